package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/region-tools-mcp/internal/imaging"
)

// createTestImageFile creates a uniformly coloured PNG and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return writePNG(t, img)
}

// createSceneFile writes a 40x20 white image with a red 6x6 square at (2,2)
// and a blue 10x10 square at (20,5).
func createSceneFile(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			switch {
			case x >= 2 && x < 8 && y >= 2 && y < 8:
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			case x >= 20 && x < 30 && y >= 5 && y < 15:
				img.Set(x, y, color.RGBA{0, 0, 255, 255})
			default:
				img.Set(x, y, color.White)
			}
		}
	}
	return writePNG(t, img)
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// stripeClassMap returns a map of three vertical stripes with values 0, 1, 2.
func stripeClassMap(width, height int) *imaging.ClassMap {
	m := &imaging.ClassMap{W: width, H: height, Pix: make([]uint8, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Pix[y*width+x] = uint8(x * 3 / width)
		}
	}
	return m
}

// callTool runs a tools/call request and returns the raw response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	require.NoError(t, err)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	require.NotNil(t, resp)
	return resp
}

// callToolInto runs a tool that must succeed and decodes its text content
// into out.
func callToolInto(t *testing.T, s *Server, name string, args, out interface{}) {
	t.Helper()

	resp := callTool(t, s, name, args)
	require.Nil(t, resp.Error, "tool %s failed: %+v", name, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok, "Result should be a map")
	content, ok := result["content"].([]map[string]interface{})
	require.True(t, ok, "content should be a list")
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0]["type"])
	require.NoError(t, json.Unmarshal([]byte(content[0]["text"].(string)), out))
}

// requireToolError asserts that a tool call fails with -32000.
func requireToolError(t *testing.T, s *Server, name string, args interface{}) *MCPError {
	t.Helper()

	resp := callTool(t, s, name, args)
	require.NotNil(t, resp.Error, "tool %s should fail", name)
	assert.Equal(t, -32000, resp.Error.Code)
	return resp.Error
}

// detectScene runs threshold detection on the scene with white as
// background, giving region 0 (red) and region 1 (blue).
func detectScene(t *testing.T, s *Server) regionList {
	t.Helper()

	var res regionList
	callToolInto(t, s, "regions_detect", map[string]interface{}{
		"path":       createSceneFile(t),
		"method":     "threshold",
		"background": 1,
	}, &res)
	require.Len(t, res.Regions, 2)
	return res
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New()
	path := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	callToolInto(t, s, "image_load", map[string]interface{}{"path": path}, &info)

	assert.Equal(t, 100, info.Width)
	assert.Equal(t, 80, info.Height)
	assert.Equal(t, "png", info.Format)
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New()
	path := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	var dims imaging.DimensionsResult
	callToolInto(t, s, "image_dimensions", map[string]interface{}{"path": path}, &dims)

	assert.Equal(t, 200, dims.Width)
	assert.Equal(t, 150, dims.Height)
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()
	mcpErr := requireToolError(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"})
	assert.Equal(t, "Tool execution failed", mcpErr.Message)
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()
	resp := s.handleToolsCall(&MCPRequest{JSONRPC: "2.0", ID: 1, Params: json.RawMessage(`not json`)})

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestHandleToolsCall_DominantColors(t *testing.T) {
	s := New()
	path := createSceneFile(t)

	var res imaging.DominantColorsResult
	callToolInto(t, s, "image_dominant_colors", map[string]interface{}{"path": path, "count": 2}, &res)
	require.Len(t, res.Colors, 2)
	assert.Equal(t, "#F0F0F0", res.Colors[0].Hex)

	callToolInto(t, s, "image_dominant_colors", map[string]interface{}{
		"path": path,
		"roi":  map[string]int{"x1": 20, "y1": 5, "x2": 30, "y2": 15},
	}, &res)
	require.Len(t, res.Colors, 1)
	assert.Equal(t, "#0000F0", res.Colors[0].Hex)
	assert.Equal(t, 100.0, res.Colors[0].Percentage)
}

func TestRegionsDetect(t *testing.T) {
	s := New()
	res := detectScene(t, s)

	assert.NotEmpty(t, res.FrameID)
	assert.Equal(t, 40, res.Width)
	assert.Equal(t, 20, res.Height)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Matched)
	assert.False(t, res.Truncated)
	require.Len(t, res.Classes, 2)
	assert.Equal(t, "dark", res.Classes[0].Name)

	red := res.Regions[0]
	assert.Equal(t, 0, red.ID)
	assert.Equal(t, int64(0), red.Value)
	assert.Equal(t, "dark", red.Class)
	assert.Equal(t, 36, red.Size)
	assert.Equal(t, 2, red.Bounds.X1)
	assert.Equal(t, 8, red.Bounds.X2)
	assert.InDelta(t, 4.5, red.COG.X, 1e-9)
	assert.InDelta(t, 4.5, red.COG.Y, 1e-9)
	assert.False(t, red.Border)
	assert.Empty(t, red.MeanColor)

	blue := res.Regions[1]
	assert.Equal(t, 100, blue.Size)
	assert.InDelta(t, 24.5, blue.COG.X, 1e-9)
	assert.InDelta(t, 9.5, blue.COG.Y, 1e-9)

	assert.Equal(t, 1, s.frames.len())
}

func TestRegionsDetect_WithoutBackground(t *testing.T) {
	s := New()
	var res regionList
	callToolInto(t, s, "regions_detect", map[string]interface{}{
		"path":   createSceneFile(t),
		"method": "threshold",
	}, &res)

	require.Len(t, res.Regions, 3)
	white := res.Regions[0]
	assert.Equal(t, "light", white.Class)
	assert.Equal(t, 40*20-36-100, white.Size)
	assert.True(t, white.Border)
	assert.Equal(t, 2, white.Children)

	for _, r := range res.Regions[1:] {
		require.NotNil(t, r.Parent)
		assert.Equal(t, 0, *r.Parent)
	}
}

func TestRegionsDetect_Options(t *testing.T) {
	s := New()
	path := createSceneFile(t)

	t.Run("filter and limit", func(t *testing.T) {
		var res regionList
		callToolInto(t, s, "regions_detect", map[string]interface{}{
			"path":       path,
			"method":     "threshold",
			"background": 1,
			"filter":     map[string]interface{}{"size": map[string]float64{"min": 50}},
		}, &res)
		assert.Equal(t, 2, res.Total)
		assert.Equal(t, 1, res.Matched)
		require.Len(t, res.Regions, 1)
		assert.Equal(t, 1, res.Regions[0].ID)

		callToolInto(t, s, "regions_detect", map[string]interface{}{
			"path": path, "method": "threshold", "background": 1, "limit": 1,
		}, &res)
		assert.Equal(t, 2, res.Matched)
		assert.True(t, res.Truncated)
		assert.Len(t, res.Regions, 1)
	})

	t.Run("mean color", func(t *testing.T) {
		var res regionList
		callToolInto(t, s, "regions_detect", map[string]interface{}{
			"path": path, "method": "threshold", "background": 1, "mean_color": true,
		}, &res)
		assert.Equal(t, "#FF0000", res.Regions[0].MeanColor)
		assert.Equal(t, "#0000FF", res.Regions[1].MeanColor)
	})

	t.Run("roi", func(t *testing.T) {
		var res regionList
		callToolInto(t, s, "regions_detect", map[string]interface{}{
			"path": path, "method": "threshold", "background": 1,
			"roi": map[string]int{"x1": 18, "y1": 0, "x2": 40, "y2": 20},
		}, &res)
		assert.Equal(t, 22, res.Width)
		require.Len(t, res.Regions, 1)
		assert.Equal(t, 100, res.Regions[0].Size)
		assert.Equal(t, 2, res.Regions[0].Bounds.X1)
	})

	t.Run("named region", func(t *testing.T) {
		var res regionList
		callToolInto(t, s, "regions_detect", map[string]interface{}{
			"path": path, "method": "threshold", "background": 1, "region": "left-half",
		}, &res)
		assert.Equal(t, 20, res.Width)
		require.Len(t, res.Regions, 1)
		assert.Equal(t, 36, res.Regions[0].Size)
	})

	t.Run("scale", func(t *testing.T) {
		var res regionList
		callToolInto(t, s, "regions_detect", map[string]interface{}{
			"path": path, "method": "threshold", "background": 1, "scale": 2.0,
		}, &res)
		assert.Equal(t, 80, res.Width)
		require.Len(t, res.Regions, 2)
		assert.Equal(t, 36*4, res.Regions[0].Size)
	})

	t.Run("gray classes", func(t *testing.T) {
		var res regionList
		callToolInto(t, s, "regions_detect", map[string]interface{}{"path": path}, &res)
		assert.Len(t, res.Classes, 4)
		assert.Len(t, res.Regions, 3)
	})
}

func TestRegionsDetect_Errors(t *testing.T) {
	s := New()
	path := createSceneFile(t)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing file", map[string]interface{}{"path": "/nonexistent.png"}},
		{"unknown method", map[string]interface{}{"path": path, "method": "sepia"}},
		{"bad neighborhood", map[string]interface{}{"path": path, "neighborhood": 6}},
		{"roi and region", map[string]interface{}{
			"path": path, "region": "center",
			"roi": map[string]int{"x1": 0, "y1": 0, "x2": 5, "y2": 5},
		}},
		{"roi outside", map[string]interface{}{
			"path": path, "roi": map[string]int{"x1": 0, "y1": 0, "x2": 50, "y2": 5},
		}},
		{"unknown region", map[string]interface{}{"path": path, "region": "middle"}},
		{"negative scale", map[string]interface{}{"path": path, "scale": -1}},
		{"inverted filter", map[string]interface{}{
			"path": path, "filter": map[string]interface{}{"size": map[string]float64{"min": 10, "max": 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireToolError(t, s, "regions_detect", tt.args)
		})
	}
	assert.Equal(t, 0, s.frames.len(), "failed detections store no frame")
}

func TestRegionsFilter(t *testing.T) {
	s := New()
	frame := detectScene(t, s)

	var res regionList
	callToolInto(t, s, "regions_filter", map[string]interface{}{
		"frame_id": frame.FrameID,
		"filter":   map[string]interface{}{"size": map[string]float64{"max": 50}},
	}, &res)
	assert.Equal(t, frame.FrameID, res.FrameID)
	assert.Empty(t, res.Classes)
	require.Len(t, res.Regions, 1)
	assert.Equal(t, 0, res.Regions[0].ID)

	callToolInto(t, s, "regions_filter", map[string]interface{}{
		"frame_id": frame.FrameID,
		"filter":   map[string]interface{}{},
	}, &res)
	assert.Len(t, res.Regions, 2)

	requireToolError(t, s, "regions_filter", map[string]interface{}{"frame_id": "not-a-uuid"})
	requireToolError(t, s, "regions_filter", map[string]interface{}{
		"frame_id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	})
}

func TestRegionAt(t *testing.T) {
	s := New()
	frame := detectScene(t, s)

	var res regionAtResult
	callToolInto(t, s, "region_at", map[string]interface{}{"frame_id": frame.FrameID, "x": 25, "y": 10}, &res)
	require.NotNil(t, res.Region)
	assert.Equal(t, 1, res.Region.ID)
	assert.Equal(t, "#0000FF", res.Region.MeanColor)

	// background
	res = regionAtResult{}
	callToolInto(t, s, "region_at", map[string]interface{}{"frame_id": frame.FrameID, "x": 0, "y": 0}, &res)
	assert.Nil(t, res.Region)

	// outside the image
	res = regionAtResult{}
	callToolInto(t, s, "region_at", map[string]interface{}{"frame_id": frame.FrameID, "x": 100, "y": 0}, &res)
	assert.Nil(t, res.Region)
}

func TestRegionGraph(t *testing.T) {
	s := New()
	var frame regionList
	callToolInto(t, s, "regions_detect", map[string]interface{}{
		"path":   createSceneFile(t),
		"method": "threshold",
	}, &frame)

	var res regionGraphResult
	callToolInto(t, s, "region_graph", map[string]interface{}{"frame_id": frame.FrameID, "region_id": 0}, &res)
	assert.True(t, res.Border)
	assert.Equal(t, []int{1, 2}, res.Neighbours)
	assert.Nil(t, res.Parent)
	assert.Equal(t, []int{1, 2}, res.Children)

	callToolInto(t, s, "region_graph", map[string]interface{}{"frame_id": frame.FrameID, "region_id": 1}, &res)
	assert.False(t, res.Border)
	assert.Equal(t, []int{0}, res.Neighbours)
	require.NotNil(t, res.Parent)
	assert.Equal(t, 0, *res.Parent)
	assert.Equal(t, []int{}, res.Children)

	requireToolError(t, s, "region_graph", map[string]interface{}{"frame_id": frame.FrameID, "region_id": 9})
}

func TestRegionGraph_NoGraph(t *testing.T) {
	s := New()
	var frame regionList
	callToolInto(t, s, "regions_detect", map[string]interface{}{
		"path":         createSceneFile(t),
		"method":       "threshold",
		"create_graph": false,
	}, &frame)
	assert.Nil(t, frame.Regions[1].Parent)

	mcpErr := requireToolError(t, s, "region_graph", map[string]interface{}{"frame_id": frame.FrameID, "region_id": 0})
	assert.Contains(t, mcpErr.Data, "region graph not available")
}

func TestRegionsRender(t *testing.T) {
	s := New()
	frame := detectScene(t, s)

	var res imaging.RenderResult
	callToolInto(t, s, "regions_render", map[string]interface{}{"frame_id": frame.FrameID}, &res)
	assert.Equal(t, 40, res.Width)
	assert.Equal(t, 20, res.Height)
	assert.Equal(t, "image/png", res.MimeType)
	assert.NotEmpty(t, res.ImageBase64)
	assert.Equal(t, 2, res.Regions)

	callToolInto(t, s, "regions_render", map[string]interface{}{
		"frame_id": frame.FrameID,
		"ids":      []int{1},
		"overlay":  false,
		"opacity":  1.0,
	}, &res)
	assert.Equal(t, 1, res.Regions)

	requireToolError(t, s, "regions_render", map[string]interface{}{"frame_id": frame.FrameID, "ids": []int{5}})
	requireToolError(t, s, "regions_render", map[string]interface{}{"frame_id": frame.FrameID, "opacity": 2})
}

func TestRegionsMeasure(t *testing.T) {
	s := New()
	frame := detectScene(t, s)

	var res imaging.DistanceResult
	callToolInto(t, s, "regions_measure", map[string]interface{}{"frame_id": frame.FrameID, "from": 0, "to": 1}, &res)
	assert.Equal(t, 20.0, res.DeltaX)
	assert.Equal(t, 5.0, res.DeltaY)
	assert.Equal(t, 20.62, res.DistancePixels)

	requireToolError(t, s, "regions_measure", map[string]interface{}{"frame_id": frame.FrameID, "from": 0, "to": 3})
}

func TestRegionsAlign(t *testing.T) {
	s := New()
	frame := detectScene(t, s)

	var res imaging.AlignmentResult
	callToolInto(t, s, "regions_align", map[string]interface{}{"frame_id": frame.FrameID, "ids": []int{0, 1}}, &res)
	// centres differ by 5 rows: spread 2.5
	assert.False(t, res.HorizontallyAligned)
	assert.Equal(t, 2.5, res.HorizontalSpread)

	callToolInto(t, s, "regions_align", map[string]interface{}{
		"frame_id": frame.FrameID, "ids": []int{0, 1}, "tolerance": 3,
	}, &res)
	assert.True(t, res.HorizontallyAligned)
	assert.False(t, res.VerticallyAligned)

	requireToolError(t, s, "regions_align", map[string]interface{}{"frame_id": frame.FrameID, "ids": []int{}})
}

func TestFrames_Expire(t *testing.T) {
	s := New(WithFrameLimit(1))
	first := detectScene(t, s)
	second := detectScene(t, s)
	assert.NotEqual(t, first.FrameID, second.FrameID)

	requireToolError(t, s, "regions_filter", map[string]interface{}{"frame_id": first.FrameID})

	var res regionList
	callToolInto(t, s, "regions_filter", map[string]interface{}{"frame_id": second.FrameID}, &res)
	assert.Len(t, res.Regions, 2)
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New()
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			_, err := s.executeTool(tool.Name, json.RawMessage(`{}`))
			if err != nil {
				assert.NotContains(t, err.Error(), "unknown tool")
			}
		})
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New()
	_, err := s.executeTool("nonexistent", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New()
	_, err := s.executeTool("regions_detect", json.RawMessage(`{invalid}`))
	assert.Error(t, err)
}
