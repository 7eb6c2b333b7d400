package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func frameProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Frame ID returned by regions_detect",
	}
}

func roiProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Rectangle to work on; (x1,y1) inclusive, (x2,y2) exclusive",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

// rangeProperty describes a detection.Range; either bound may be left out.
func rangeProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description + ". Missing bounds are open.",
		"properties": map[string]interface{}{
			"min": map[string]interface{}{"type": "number"},
			"max": map[string]interface{}{"type": "number"},
		},
	}
}

func filterProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Keep only regions whose properties lie in all given ranges (inclusive)",
		"properties": map[string]interface{}{
			"value":           rangeProperty("Class value"),
			"size":            rangeProperty("Pixel count"),
			"boundary_length": rangeProperty("Boundary length in pixels"),
			"form_factor":     rangeProperty("Form factor P²/(4πA): about 1.27 for a square, larger for elongated or ragged shapes"),
			"axis_ratio":      rangeProperty("Ratio of the major to the minor principal axis"),
			"angle":           rangeProperty("Major axis angle in radians, (-pi/2, pi/2]"),
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The image is cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dominant_colors",
			Description: "Find the most common colors in an image or a rectangle of it. Useful for choosing a palette classifier or a background class.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of colors to return. Default 5",
						"default":     5,
					},
					"roi": roiProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Detection
		{
			Name: "regions_detect",
			Description: "Classify every pixel of an image and find the connected regions of equal class. " +
				"Returns a frame ID for follow-up calls and a summary of each region: class, size, bounding box, " +
				"centre of gravity, boundary length, form factor, principal axes, border contact and containing region.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"gray", "threshold", "hue", "palette", "edges"},
						"description": "How pixels are classified. Default gray",
						"default":     "gray",
					},
					"levels": map[string]interface{}{
						"type":        "integer",
						"description": "Number of bands for gray (default 4) or hue sectors for hue (default 6)",
					},
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Cut-off (1-255) for threshold and edges. Default 128",
					},
					"min_saturation": map[string]interface{}{
						"type":        "number",
						"description": "hue: pixels below this saturation are achromatic (class 0). Default 0.25",
					},
					"min_value": map[string]interface{}{
						"type":        "number",
						"description": "hue: pixels below this brightness are achromatic (class 0). Default 0.15",
					},
					"colors": map[string]interface{}{
						"type":        "integer",
						"description": "palette: number of dominant colors to map pixels to. Default 8",
					},
					"blur_radius": map[string]interface{}{
						"type":        "number",
						"description": "edges: Gaussian blur radius applied before the Sobel filter. Default 1",
					},
					"background": map[string]interface{}{
						"type":        "integer",
						"description": "Class value that forms no regions",
					},
					"roi": roiProperty(),
					"region": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"full", "top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"},
						"description": "Named part of the image to work on, instead of roi",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Scale factor applied after cropping (nearest neighbour). Default 1.0",
						"default":     1.0,
					},
					"neighborhood": map[string]interface{}{
						"type":        "integer",
						"enum":        []int{4, 8},
						"description": "Pixel connectivity used for adjacency. Default 4",
						"default":     4,
					},
					"create_graph": map[string]interface{}{
						"type":        "boolean",
						"description": "Build the region adjacency graph and containment tree. Default true",
						"default":     true,
					},
					"filter": filterProperty(),
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of regions listed. Default 100",
						"default":     100,
					},
					"mean_color": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the average source color of each region",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},

		// Frame queries
		{
			Name:        "regions_filter",
			Description: "List the regions of a detected frame that match a filter.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame_id": frameProperty(),
					"filter":   filterProperty(),
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of regions listed. Default 100",
						"default":     100,
					},
					"mean_color": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the average source color of each region",
						"default":     false,
					},
				},
				"required": []string{"frame_id", "filter"},
			},
		},
		{
			Name:        "region_at",
			Description: "Find the region containing a pixel. Returns null for background pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame_id": frameProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate in the detected (cropped and scaled) image",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate in the detected (cropped and scaled) image",
					},
				},
				"required": []string{"frame_id", "x", "y"},
			},
		},
		{
			Name:        "region_graph",
			Description: "Get the neighbours, containing region and contained regions of one region. Requires create_graph.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame_id": frameProperty(),
					"region_id": map[string]interface{}{
						"type":        "integer",
						"description": "Region ID from regions_detect",
					},
				},
				"required": []string{"frame_id", "region_id"},
			},
		},

		// Output and measurement
		{
			Name:        "regions_render",
			Description: "Draw the regions of a frame as a PNG: each region filled in its own color, with optional bounding boxes and ID labels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame_id": frameProperty(),
					"ids": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "integer"},
						"description": "Regions to draw. Default all",
					},
					"opacity": map[string]interface{}{
						"type":        "number",
						"description": "Fill opacity from 0 to 1. Default 0.5",
						"default":     0.5,
					},
					"boxes": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw bounding boxes. Default true",
						"default":     true,
					},
					"labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Write region IDs. Default true",
						"default":     true,
					},
					"box_color": map[string]interface{}{
						"type":        "string",
						"description": "Box color as #RRGGBB or #RRGGBBAA. Default: the region color",
					},
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw over the detected image instead of white. Default true",
						"default":     true,
					},
				},
				"required": []string{"frame_id"},
			},
		},
		{
			Name:        "regions_measure",
			Description: "Measure the distance and angle between the centres of gravity of two regions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame_id": frameProperty(),
					"from": map[string]interface{}{
						"type":        "integer",
						"description": "Region ID to measure from",
					},
					"to": map[string]interface{}{
						"type":        "integer",
						"description": "Region ID to measure to",
					},
				},
				"required": []string{"frame_id", "from", "to"},
			},
		},
		{
			Name:        "regions_align",
			Description: "Check whether the centres of gravity of regions share a row or a column.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame_id": frameProperty(),
					"ids": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "integer"},
						"description": "Region IDs to check",
					},
					"tolerance": map[string]interface{}{
						"type":        "number",
						"description": "Allowed standard deviation in pixels. Default 2",
						"default":     2.0,
					},
				},
				"required": []string{"frame_id", "ids"},
			},
		},
	}
}
