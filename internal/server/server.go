package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
	"github.com/ironsheep/region-tools-mcp/internal/imaging"
	"github.com/ironsheep/region-tools-mcp/internal/logger"
)

// Name and Version identify the server in the initialize handshake.
const (
	Name    = "region-tools-mcp"
	Version = "0.1.0"
)

// Server handles MCP protocol communication
type Server struct {
	cache  *imaging.ImageCache
	frames *frameStore
	log    zerolog.Logger

	in  io.Reader
	out io.Writer

	// base detector configuration; tools override the per-call fields
	cfg detection.Config

	mu     sync.Mutex
	det    *detection.Detector[uint8]
	passes int // since the detector was built
}

// shrinkEvery is the number of passes between pool trims. The detector
// compares a trim against the peak since the previous one, so a small frame
// between large ones does not release memory.
const shrinkEvery = 16

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithDetectionConfig sets the base detector configuration: pool sizing and
// stage timing. Background, neighbourhood and graph creation come from each
// regions_detect call.
func WithDetectionConfig(cfg detection.Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

// WithFrameLimit sets how many detection results are kept for follow-up
// calls.
func WithFrameLimit(n int) Option {
	return func(s *Server) { s.frames = newFrameStore(n) }
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) { s.in, s.out = in, out }
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance
func New(opts ...Option) *Server {
	s := &Server{
		cache:  imaging.NewImageCache(),
		frames: newFrameStore(defaultFrameLimit),
		log:    zerolog.Nop(),
		in:     os.Stdin,
		out:    os.Stdout,
		cfg:    detection.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads requests until the input closes, answering each on the output.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.in)
	// class maps of large images make for long argument lists
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	encoder := json.NewEncoder(s.out)
	s.log.Info().Str("version", Version).Msg("server started")

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn().Err(err).Msg("failed to parse request")
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.Error().Err(err).Str("method", req.Method).Msg("failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	s.log.Info().Msg("input closed")
	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.log.Debug().Str("method", req.Method).Interface("id", req.ID).Msg("request")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": Version,
			},
		},
	}
}

// handleToolsList returns the tool definitions.
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

// detect runs the shared detector over m. The detector is rebuilt when the
// per-call settings change and its pools are trimmed every shrinkEvery
// passes.
func (s *Server) detect(m *imaging.ClassMap, cfg detection.Config) (*detection.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.det == nil || !sameSettings(s.det.Config(), cfg) {
		d, err := detection.New[uint8](cfg, detection.WithLogger(logger.Component(s.log, "detection")))
		if err != nil {
			return nil, err
		}
		s.det = d
		s.passes = 0
	}

	res, err := s.det.Detect(m)
	if err != nil {
		return nil, err
	}
	snap := res.Snapshot()
	s.passes++
	if s.passes%shrinkEvery == 0 {
		if n := s.det.Shrink(); n > 0 {
			s.log.Debug().Int("released", n).Int("passes", s.passes).Msg("detector pools shrunk")
		}
	}
	return snap, nil
}

func sameSettings(a, b detection.Config) bool {
	return a.CreateGraph == b.CreateGraph &&
		a.Neighborhood == b.Neighborhood &&
		a.UseBackground == b.UseBackground &&
		a.Background == b.Background &&
		a.TrackTimes == b.TrackTimes
}
