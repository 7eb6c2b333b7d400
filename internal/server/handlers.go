package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
	"github.com/ironsheep/region-tools-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "regions_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads the image or the stored frame it works on
//  4. Calls the appropriate imaging/detection function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_dominant_colors":
		return s.handleImageDominantColors(args)

	// Detection
	case "regions_detect":
		return s.handleRegionsDetect(args)

	// Frame queries
	case "regions_filter":
		return s.handleRegionsFilter(args)
	case "region_at":
		return s.handleRegionAt(args)
	case "region_graph":
		return s.handleRegionGraph(args)

	// Output and measurement
	case "regions_render":
		return s.handleRegionsRender(args)
	case "regions_measure":
		return s.handleRegionsMeasure(args)
	case "regions_align":
		return s.handleRegionsAlign(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageDominantColorsArgs struct {
	Path  string       `json:"path"`
	Count int          `json:"count"`
	ROI   *imaging.ROI `json:"roi,omitempty"`
}

func (s *Server) handleImageDominantColors(args json.RawMessage) (interface{}, error) {
	var a imageDominantColorsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Count == 0 {
		a.Count = 5
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	roi, err := resolveROI(img.Bounds(), a.ROI, "")
	if err != nil {
		return nil, err
	}
	return imaging.DominantColors(img, a.Count, roi)
}

// === Detection ===

type regionsDetectArgs struct {
	Path string `json:"path"`
	imaging.ClassifyOptions

	Background   *int64       `json:"background,omitempty"`
	ROI          *imaging.ROI `json:"roi,omitempty"`
	Region       string       `json:"region,omitempty"`
	Scale        float64      `json:"scale,omitempty"`
	Neighborhood int          `json:"neighborhood,omitempty"`
	CreateGraph  *bool        `json:"create_graph,omitempty"`

	Filter    detection.FilterSpec `json:"filter"`
	Limit     int                  `json:"limit,omitempty"`
	MeanColor bool                 `json:"mean_color,omitempty"`
}

const defaultRegionLimit = 100

// regionSummary is the tool-facing view of one region. Run lists are left
// out; they can be large and regions_render shows the shapes.
type regionSummary struct {
	ID             int               `json:"id"`
	Value          int64             `json:"value"`
	Class          string            `json:"class,omitempty"`
	Size           int               `json:"size"`
	Bounds         detection.Bounds  `json:"bounds"`
	COG            detection.Point2D `json:"cog"`
	BoundaryLength float64           `json:"boundary_length"`
	FormFactor     float64           `json:"form_factor"`
	PCA            detection.PCAInfo `json:"pca"`
	Border         bool              `json:"border"`
	Parent         *int              `json:"parent,omitempty"`
	Children       int               `json:"children,omitempty"`
	MeanColor      string            `json:"mean_color,omitempty"`
}

// regionList is the result of regions_detect and regions_filter.
type regionList struct {
	FrameID   string               `json:"frame_id"`
	Width     int                  `json:"width"`
	Height    int                  `json:"height"`
	Total     int                  `json:"total_regions"`
	Matched   int                  `json:"matched"`
	Truncated bool                 `json:"truncated,omitempty"`
	Classes   []imaging.ClassLabel `json:"classes,omitempty"`
	Regions   []regionSummary      `json:"regions"`
}

func (s *Server) handleRegionsDetect(args json.RawMessage) (interface{}, error) {
	var a regionsDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Limit == 0 {
		a.Limit = defaultRegionLimit
	}
	if a.ROI != nil && a.Region != "" {
		return nil, fmt.Errorf("roi and region are mutually exclusive")
	}
	if err := a.Filter.Validate(); err != nil {
		return nil, err
	}

	cfg := s.cfg
	cfg.CreateGraph = a.CreateGraph == nil || *a.CreateGraph
	n, err := detection.ParseNeighborhood(a.Neighborhood)
	if err != nil {
		return nil, err
	}
	cfg.Neighborhood = n
	cfg.UseBackground = false
	if a.Background != nil {
		cfg = cfg.WithBackground(*a.Background)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	roi, err := resolveROI(img.Bounds(), a.ROI, a.Region)
	if err != nil {
		return nil, err
	}
	prepared, err := imaging.Prepare(img, roi, a.Scale)
	if err != nil {
		return nil, err
	}
	classes, err := imaging.Classify(prepared, a.ClassifyOptions)
	if err != nil {
		return nil, err
	}

	snap, err := s.detect(classes, cfg)
	if err != nil {
		return nil, err
	}
	f := &frame{snap: snap, image: prepared, labels: classes.Labels, path: a.Path}
	s.frames.put(f)
	s.log.Info().
		Str("frame", snap.FrameID.String()).
		Str("path", a.Path).
		Int("regions", len(snap.Regions)).
		Msg("regions detected")

	matched, err := snap.Filter(a.Filter)
	if err != nil {
		return nil, err
	}
	return f.list(matched, a.Limit, a.MeanColor, true)
}

// resolveROI turns the roi/region arguments into an ROI in image
// coordinates. Neither gives nil, the whole image.
func resolveROI(bounds image.Rectangle, roi *imaging.ROI, region string) (*imaging.ROI, error) {
	if region != "" {
		r, err := imaging.NamedROI(bounds, region)
		if err != nil {
			return nil, err
		}
		return &r, nil
	}
	if roi == nil {
		return nil, nil
	}
	r := imaging.ROI{
		X1: roi.X1 + bounds.Min.X, Y1: roi.Y1 + bounds.Min.Y,
		X2: roi.X2 + bounds.Min.X, Y2: roi.Y2 + bounds.Min.Y,
	}
	return &r, nil
}

func (f *frame) summarize(r *detection.RegionSnapshot, meanColor bool) (regionSummary, error) {
	rs := regionSummary{
		ID:             r.ID,
		Value:          r.Value,
		Size:           r.PixelCount,
		Bounds:         r.Bounds,
		COG:            r.COG,
		BoundaryLength: r.BoundaryLength(),
		FormFactor:     r.FormFactor(),
		PCA:            r.PCA(),
		Border:         r.TouchesBorder,
		Parent:         r.ParentID,
		Children:       len(r.ChildIDs),
	}
	for _, l := range f.labels {
		if int64(l.Value) == r.Value {
			rs.Class = l.Name
			break
		}
	}
	if meanColor {
		c, err := imaging.MeanColor(f.image, r.Runs)
		if err != nil {
			return rs, fmt.Errorf("region %d: %w", r.ID, err)
		}
		rs.MeanColor = c
	}
	return rs, nil
}

func (f *frame) list(regions []detection.RegionSnapshot, limit int, meanColor, withClasses bool) (*regionList, error) {
	out := &regionList{
		FrameID: f.snap.FrameID.String(),
		Width:   f.snap.Width,
		Height:  f.snap.Height,
		Total:   len(f.snap.Regions),
		Matched: len(regions),
		Regions: make([]regionSummary, 0, min(len(regions), max(limit, 0))),
	}
	if withClasses {
		out.Classes = f.labels
	}
	if limit > 0 && len(regions) > limit {
		regions = regions[:limit]
		out.Truncated = true
	}
	for i := range regions {
		rs, err := f.summarize(&regions[i], meanColor)
		if err != nil {
			return nil, err
		}
		out.Regions = append(out.Regions, rs)
	}
	return out, nil
}

// === Frame Query Handlers ===

type regionsFilterArgs struct {
	FrameID   string               `json:"frame_id"`
	Filter    detection.FilterSpec `json:"filter"`
	Limit     int                  `json:"limit,omitempty"`
	MeanColor bool                 `json:"mean_color,omitempty"`
}

func (s *Server) handleRegionsFilter(args json.RawMessage) (interface{}, error) {
	var a regionsFilterArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Limit == 0 {
		a.Limit = defaultRegionLimit
	}
	f, err := s.frames.get(a.FrameID)
	if err != nil {
		return nil, err
	}
	matched, err := f.snap.Filter(a.Filter)
	if err != nil {
		return nil, err
	}
	return f.list(matched, a.Limit, a.MeanColor, false)
}

type regionAtArgs struct {
	FrameID string `json:"frame_id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

type regionAtResult struct {
	X      int            `json:"x"`
	Y      int            `json:"y"`
	Region *regionSummary `json:"region"`
}

func (s *Server) handleRegionAt(args json.RawMessage) (interface{}, error) {
	var a regionAtArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, err := s.frames.get(a.FrameID)
	if err != nil {
		return nil, err
	}
	res := &regionAtResult{X: a.X, Y: a.Y}
	// background pixels belong to no region
	if r := f.snap.RegionAt(a.X, a.Y); r != nil {
		rs, err := f.summarize(r, true)
		if err != nil {
			return nil, err
		}
		res.Region = &rs
	}
	return res, nil
}

type regionGraphArgs struct {
	FrameID  string `json:"frame_id"`
	RegionID int    `json:"region_id"`
}

type regionGraphResult struct {
	ID         int   `json:"id"`
	Border     bool  `json:"border"`
	Neighbours []int `json:"neighbours"`
	Parent     *int  `json:"parent"`
	Children   []int `json:"children"`
}

func (s *Server) handleRegionGraph(args json.RawMessage) (interface{}, error) {
	var a regionGraphArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, err := s.frames.get(a.FrameID)
	if err != nil {
		return nil, err
	}
	r, ok := f.snap.Region(a.RegionID)
	if !ok {
		return nil, fmt.Errorf("no region %d in frame %s", a.RegionID, a.FrameID)
	}
	if !r.HasGraph {
		return nil, fmt.Errorf("frame %s was detected with create_graph=false: %w", a.FrameID, detection.ErrNoGraph)
	}
	res := &regionGraphResult{
		ID:         r.ID,
		Border:     r.TouchesBorder,
		Neighbours: r.NeighbourIDs,
		Parent:     r.ParentID,
		Children:   r.ChildIDs,
	}
	if res.Neighbours == nil {
		res.Neighbours = []int{}
	}
	if res.Children == nil {
		res.Children = []int{}
	}
	return res, nil
}

// === Output and Measurement Handlers ===

type regionsRenderArgs struct {
	FrameID  string   `json:"frame_id"`
	IDs      []int    `json:"ids,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty"`
	Boxes    *bool    `json:"boxes,omitempty"`
	Labels   *bool    `json:"labels,omitempty"`
	BoxColor string   `json:"box_color,omitempty"`
	Overlay  *bool    `json:"overlay,omitempty"`
}

func (s *Server) handleRegionsRender(args json.RawMessage) (interface{}, error) {
	var a regionsRenderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, err := s.frames.get(a.FrameID)
	if err != nil {
		return nil, err
	}

	opts := imaging.RenderOptions{
		IDs:      a.IDs,
		Opacity:  0.5,
		Boxes:    a.Boxes == nil || *a.Boxes,
		Labels:   a.Labels == nil || *a.Labels,
		BoxColor: a.BoxColor,
	}
	if a.Opacity != nil {
		opts.Opacity = *a.Opacity
	}
	if a.Overlay == nil || *a.Overlay {
		opts.Base = f.image
	}
	return imaging.RenderRegions(f.snap, opts)
}

type regionsMeasureArgs struct {
	FrameID string `json:"frame_id"`
	From    int    `json:"from"`
	To      int    `json:"to"`
}

func (s *Server) handleRegionsMeasure(args json.RawMessage) (interface{}, error) {
	var a regionsMeasureArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, err := s.frames.get(a.FrameID)
	if err != nil {
		return nil, err
	}
	return imaging.MeasureDistance(f.snap, a.From, a.To)
}

type regionsAlignArgs struct {
	FrameID   string   `json:"frame_id"`
	IDs       []int    `json:"ids"`
	Tolerance *float64 `json:"tolerance,omitempty"`
}

func (s *Server) handleRegionsAlign(args json.RawMessage) (interface{}, error) {
	var a regionsAlignArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	tolerance := 2.0
	if a.Tolerance != nil {
		tolerance = *a.Tolerance
	}
	if len(a.IDs) == 0 {
		return nil, errors.New("ids must name at least one region")
	}
	f, err := s.frames.get(a.FrameID)
	if err != nil {
		return nil, err
	}
	return imaging.CheckAlignment(f.snap, a.IDs, tolerance)
}
