package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/Feras-dev/track-laser-pointer/internal/detection"
	"github.com/Feras-dev/track-laser-pointer/internal/imaging"
	"github.com/Feras-dev/track-laser-pointer/internal/logger"
	"github.com/Feras-dev/track-laser-pointer/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "frame_info", "frame_lock_on_target").
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
		logger.WithField("tool", params.Name).WithError(err).Warn("tool execution failed")
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "frame_info":
		return s.handleFrameInfo(args)
	case "frame_intensity_histogram":
		return s.handleFrameHistogram(args)
	case "frame_locate_target":
		return s.handleFrameLocate(args)
	case "frame_lock_on_target":
		return s.handleFrameLockOn(args)
	case "batch_lock_on_target":
		return s.handleBatchLockOn(args)
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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return json.Unmarshal(args, v)
}

// estimator returns the server estimator, with threshold applied when set.
func (s *Server) estimator(threshold *int) (*detection.Estimator, error) {
	if threshold == nil {
		return s.est, nil
	}
	if *threshold < 0 || *threshold > 255 {
		return nil, fmt.Errorf("threshold must be within 0..255, got %d", *threshold)
	}
	return s.est.With(detection.WithThreshold(uint8(*threshold))), nil
}

// === Frame information ===

type frameArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleFrameInfo(args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	threshold := s.est.Threshold()
	return imaging.LoadFrameInfo(s.cache, a.Path, func(img *image.Gray) int {
		return detection.CountCandidates(img, threshold)
	})
}

type frameHistogramArgs struct {
	Path string `json:"path"`
	From *int   `json:"from"`
}

type frameHistogramResult struct {
	Path        string               `json:"path"`
	TotalPixels int                  `json:"total_pixels"`
	Threshold   int                  `json:"threshold"`
	Candidates  int                  `json:"candidates"`
	Levels      []imaging.LevelCount `json:"levels"`
}

func (s *Server) handleFrameHistogram(args json.RawMessage) (interface{}, error) {
	var a frameHistogramArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	from := 240
	if a.From != nil {
		from = *a.From
	}
	if from < 0 || from > 255 {
		return nil, fmt.Errorf("from must be within 0..255, got %d", from)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	h := imaging.NewHistogram(img)
	levels := h.Levels(uint8(from))
	if levels == nil {
		levels = []imaging.LevelCount{}
	}
	return &frameHistogramResult{
		Path:        a.Path,
		TotalPixels: img.Bounds().Dx() * img.Bounds().Dy(),
		Threshold:   int(s.est.Threshold()),
		Candidates:  h.Above(s.est.Threshold()),
		Levels:      levels,
	}, nil
}

// === Target operations ===

type frameLocateArgs struct {
	Path      string `json:"path"`
	Threshold *int   `json:"threshold"`
}

type frameLocateResult struct {
	Path      string `json:"path"`
	Found     bool   `json:"found"`
	Threshold int    `json:"threshold"`
	detection.Estimate
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleFrameLocate(args json.RawMessage) (interface{}, error) {
	var a frameLocateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	est, err := s.estimator(a.Threshold)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res := &frameLocateResult{Path: a.Path, Threshold: int(est.Threshold())}
	target, err := est.Locate(img)
	if errors.Is(err, detection.ErrNoDetection) {
		res.Reason = err.Error()
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	res.Found = true
	res.Estimate = target
	return res, nil
}

type frameLockOnArgs struct {
	Path       string  `json:"path"`
	Threshold  *int    `json:"threshold"`
	OutputPath string  `json:"output_path"`
	Window     int     `json:"window"`
	Scale      float64 `json:"scale"`
	Label      bool    `json:"label"`
}

type frameLockOnResult struct {
	Path       string             `json:"path"`
	Target     detection.Estimate `json:"target"`
	OutputPath string             `json:"output_path,omitempty"`
	Preview    *imaging.Preview   `json:"preview"`
}

func (s *Server) handleFrameLockOn(args json.RawMessage) (interface{}, error) {
	var a frameLockOnArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	est, err := s.estimator(a.Threshold)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	target, err := est.Locate(img)
	if err != nil {
		return nil, err
	}

	marker := s.marker
	marker.Label = marker.Label || a.Label
	marked := detection.RenderMarker(img, target.Point(), marker)

	res := &frameLockOnResult{Path: a.Path, Target: target}
	if a.OutputPath != "" {
		if err := imaging.SaveFrame(a.OutputPath, marked); err != nil {
			return nil, err
		}
		s.cache.Evict(a.OutputPath)
		res.OutputPath = a.OutputPath
	}

	window := imaging.Window(marked.Bounds(), target.Point(), a.Window)
	if res.Preview, err = imaging.EncodePreview(marked, window, a.Scale); err != nil {
		return nil, err
	}
	return res, nil
}

// === Batch operations ===

type batchLockOnArgs struct {
	Dir             string `json:"dir"`
	Workers         *int   `json:"workers"`
	OnDecodeFailure string `json:"on_decode_failure"`
	OnNoDetection   string `json:"on_no_detection"`
	CreateOutputDir *bool  `json:"create_output_dir"`
}

type batchLockOnResult struct {
	*pipeline.Summary
	Errors []string `json:"errors,omitempty"`
	// AbortError is the failure that stopped the run under the abort policy.
	AbortError string `json:"abort_error,omitempty"`
}

func (s *Server) handleBatchLockOn(args json.RawMessage) (interface{}, error) {
	var a batchLockOnArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Dir == "" {
		return nil, errors.New("dir is required")
	}

	opts := s.batch
	if a.Workers != nil {
		if *a.Workers < 1 {
			return nil, fmt.Errorf("workers must be >= 1, got %d", *a.Workers)
		}
		opts.Workers = *a.Workers
	}
	if a.OnDecodeFailure != "" {
		p, err := pipeline.ParseDecodePolicy(a.OnDecodeFailure)
		if err != nil {
			return nil, err
		}
		opts.OnDecodeFailure = p
	}
	if a.OnNoDetection != "" {
		p, err := pipeline.ParseNoDetectionPolicy(a.OnNoDetection)
		if err != nil {
			return nil, err
		}
		opts.OnNoDetection = p
	}
	if a.CreateOutputDir != nil {
		opts.CreateOutputDir = *a.CreateOutputDir
	}

	runner := pipeline.New(s.est, s.marker, opts, logger.WithField("tool", "batch_lock_on_target"))
	summary, err := runner.Run(s.ctx, a.Dir)

	// The run may have overwritten frames held by the cache.
	cached := s.cache.Len()
	s.cache.Clear()
	logger.WithFields(logrus.Fields{
		"tool":    "batch_lock_on_target",
		"evicted": cached,
	}).Debug("frame cache cleared")
	if summary == nil {
		return nil, err
	}

	res := &batchLockOnResult{Summary: summary}
	for _, fr := range summary.Results {
		if fr.Err != nil && fr.Status == pipeline.StatusFailed {
			res.Errors = append(res.Errors, fr.Err.Error())
		}
	}
	if err != nil {
		if !pipeline.IsKind(err, pipeline.KindDecodeFailure) {
			return nil, err
		}
		res.AbortError = err.Error()
	}
	return res, nil
}
