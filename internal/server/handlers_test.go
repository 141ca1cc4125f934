package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Feras-dev/track-laser-pointer/internal/imaging"
	"github.com/Feras-dev/track-laser-pointer/internal/pipeline"
)

// createTestFrameFile writes a 120x90 PGM at level 40 into dir. When spot is
// non-nil a saturated 5x5 block is centred on it.
func createTestFrameFile(t *testing.T, dir, name string, spot *image.Point) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 120, 90))
	for i := range img.Pix {
		img.Pix[i] = 40
	}
	if spot != nil {
		for y := spot.Y - 2; y <= spot.Y+2; y++ {
			for x := spot.X - 2; x <= spot.X+2; x++ {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}

	path := filepath.Join(dir, name)
	if err := imaging.SaveFrame(path, img); err != nil {
		t.Fatalf("failed to save frame: %v", err)
	}
	return path
}

func pt(x, y int) *image.Point {
	p := image.Pt(x, y)
	return &p
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	paramsJSON, _ := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	return s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
}

func execTool(t *testing.T, s *Server, name string, args map[string]interface{}) interface{} {
	t.Helper()
	argsJSON, _ := json.Marshal(args)
	result, err := s.executeTool(name, argsJSON)
	if err != nil {
		t.Fatalf("executeTool(%s) failed: %v", name, err)
	}
	return result
}

func TestHandleToolsCall_FrameInfo(t *testing.T) {
	s := New()
	path := createTestFrameFile(t, t.TempDir(), "a.pgm", pt(60, 45))

	resp := callTool(t, s, "frame_info", map[string]interface{}{"path": path})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	var info imaging.FrameInfo
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &info); err != nil {
		t.Fatalf("result is not FrameInfo JSON: %v", err)
	}
	if info.Width != 120 || info.Height != 90 {
		t.Errorf("dimensions: got %dx%d, want 120x90", info.Width, info.Height)
	}
	if info.Format != "pgm" {
		t.Errorf("Format: got %s, want pgm", info.Format)
	}
	if info.Candidates != 25 {
		t.Errorf("Candidates: got %d, want 25", info.Candidates)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()

	resp := callTool(t, s, "frame_info", map[string]interface{}{"path": "/nonexistent/frame.pgm"})
	if resp.Error == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	resp := callTool(t, New(), "nonexistent_tool", map[string]interface{}{})
	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "unknown tool") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_MissingArguments(t *testing.T) {
	s := New()
	for _, name := range []string{"frame_info", "frame_intensity_histogram", "frame_locate_target", "frame_lock_on_target", "batch_lock_on_target"} {
		resp := callTool(t, s, name, map[string]interface{}{})
		if resp.Error == nil {
			t.Errorf("%s: expected error for missing required argument", name)
		}
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()
	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("Expected -32602 error, got %+v", resp.Error)
	}
}

func TestFrameHistogram(t *testing.T) {
	s := New()
	path := createTestFrameFile(t, t.TempDir(), "a.pgm", pt(60, 45))

	res := execTool(t, s, "frame_intensity_histogram", map[string]interface{}{"path": path}).(*frameHistogramResult)
	if res.TotalPixels != 120*90 {
		t.Errorf("TotalPixels: got %d, want %d", res.TotalPixels, 120*90)
	}
	if res.Candidates != 25 {
		t.Errorf("Candidates: got %d, want 25", res.Candidates)
	}
	if len(res.Levels) != 1 || res.Levels[0] != (imaging.LevelCount{Level: 255, Pixels: 25}) {
		t.Errorf("Levels: got %v, want [{255 25}]", res.Levels)
	}

	res = execTool(t, s, "frame_intensity_histogram", map[string]interface{}{"path": path, "from": 0}).(*frameHistogramResult)
	if len(res.Levels) != 2 || res.Levels[0].Level != 40 {
		t.Errorf("Levels from 0: got %v", res.Levels)
	}

	if _, err := s.executeTool("frame_intensity_histogram", json.RawMessage(`{"path":"x.pgm","from":300}`)); err == nil {
		t.Error("expected error for from out of range")
	}
}

func TestFrameLocate(t *testing.T) {
	s := New()
	dir := t.TempDir()
	spot := createTestFrameFile(t, dir, "spot.pgm", pt(30, 70))
	dark := createTestFrameFile(t, dir, "dark.pgm", nil)

	res := execTool(t, s, "frame_locate_target", map[string]interface{}{"path": spot}).(*frameLocateResult)
	if !res.Found || res.X != 30 || res.Y != 70 {
		t.Errorf("spot: got %+v, want found at (30,70)", res)
	}
	if res.Threshold != 253 {
		t.Errorf("Threshold: got %d, want 253", res.Threshold)
	}

	res = execTool(t, s, "frame_locate_target", map[string]interface{}{"path": dark}).(*frameLocateResult)
	if res.Found || res.Reason == "" {
		t.Errorf("dark: got %+v, want not found with a reason", res)
	}

	// Level 40 pixels are candidates with a low threshold: the whole frame.
	res = execTool(t, s, "frame_locate_target", map[string]interface{}{"path": dark, "threshold": 39}).(*frameLocateResult)
	if !res.Found || res.X != 59 || res.Y != 44 {
		t.Errorf("low threshold: got %+v, want found at (59,44)", res)
	}

	if _, err := s.executeTool("frame_locate_target", json.RawMessage(`{"path":"x.pgm","threshold":256}`)); err == nil {
		t.Error("expected error for threshold out of range")
	}
}

func TestFrameLockOn(t *testing.T) {
	s := New()
	dir := t.TempDir()
	path := createTestFrameFile(t, dir, "a.pgm", pt(60, 45))
	out := filepath.Join(dir, "marked.pgm")

	res := execTool(t, s, "frame_lock_on_target", map[string]interface{}{
		"path":        path,
		"output_path": out,
	}).(*frameLockOnResult)

	if res.Target.X != 60 || res.Target.Y != 45 {
		t.Errorf("Target: got (%d,%d), want (60,45)", res.Target.X, res.Target.Y)
	}
	if res.OutputPath != out {
		t.Errorf("OutputPath: got %s, want %s", res.OutputPath, out)
	}

	marked, err := imaging.LoadFrame(out)
	if err != nil {
		t.Fatalf("marked frame not written: %v", err)
	}
	if marked.GrayAt(0, 45).Y != 255 || marked.GrayAt(60, 0).Y != 255 || marked.GrayAt(10, 10).Y != 40 {
		t.Error("marked frame does not carry the crosshair")
	}

	data, err := base64.StdEncoding.DecodeString(res.Preview.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	preview, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if preview.Bounds().Dx() != 120 || preview.Bounds().Dy() != 90 {
		t.Errorf("preview size: got %v, want 120x90", preview.Bounds().Size())
	}

	// The cached source frame stays unmarked.
	src, err := s.cache.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if src.GrayAt(0, 45).Y != 40 {
		t.Error("lock-on modified the cached source frame")
	}
}

func TestFrameLockOn_WindowScale(t *testing.T) {
	s := New()
	path := createTestFrameFile(t, t.TempDir(), "a.pgm", pt(60, 45))

	res := execTool(t, s, "frame_lock_on_target", map[string]interface{}{
		"path":   path,
		"window": 10,
		"scale":  4.0,
	}).(*frameLockOnResult)

	if res.Preview.Width != 84 || res.Preview.Height != 84 {
		t.Errorf("preview size: got %dx%d, want 84x84", res.Preview.Width, res.Preview.Height)
	}
	if res.OutputPath != "" {
		t.Errorf("OutputPath should be empty, got %s", res.OutputPath)
	}
}

func TestFrameLockOn_NoTarget(t *testing.T) {
	s := New()
	path := createTestFrameFile(t, t.TempDir(), "dark.pgm", nil)

	resp := callTool(t, s, "frame_lock_on_target", map[string]interface{}{"path": path})
	if resp.Error == nil {
		t.Fatal("Expected error for a frame without target")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "no target detected") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestBatchLockOn(t *testing.T) {
	s := New()
	dir := t.TempDir()
	createTestFrameFile(t, dir, "a.pgm", pt(60, 45))
	createTestFrameFile(t, dir, "b.pgm", nil)
	if err := os.WriteFile(filepath.Join(dir, "c.pgm"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := execTool(t, s, "batch_lock_on_target", map[string]interface{}{
		"dir":               dir,
		"workers":           2,
		"create_output_dir": true,
	}).(*batchLockOnResult)

	if res.Locked != 1 || res.NoTarget != 1 || res.Failed != 1 {
		t.Errorf("summary: got %+v", res.Summary)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "decode_failure") {
		t.Errorf("Errors: got %v", res.Errors)
	}
	if res.AbortError != "" {
		t.Errorf("AbortError: got %q, want empty", res.AbortError)
	}
	if _, err := os.Stat(filepath.Join(dir, pipeline.DefaultOutputSubdir, "a.pgm")); err != nil {
		t.Errorf("marked frame missing: %v", err)
	}
}

func TestBatchLockOn_ClearsCache(t *testing.T) {
	s := New()
	dir := t.TempDir()
	path := createTestFrameFile(t, dir, "a.pgm", pt(60, 45))

	execTool(t, s, "frame_info", map[string]interface{}{"path": path})
	if s.cache.Len() != 1 {
		t.Fatalf("cache size after frame_info: got %d, want 1", s.cache.Len())
	}

	execTool(t, s, "batch_lock_on_target", map[string]interface{}{
		"dir":               dir,
		"create_output_dir": true,
	})
	if s.cache.Len() != 0 {
		t.Errorf("cache size after batch run: got %d, want 0", s.cache.Len())
	}
}

func TestBatchLockOn_Abort(t *testing.T) {
	s := New()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0.pgm"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	createTestFrameFile(t, dir, "a.pgm", pt(60, 45))

	res := execTool(t, s, "batch_lock_on_target", map[string]interface{}{
		"dir":               dir,
		"on_decode_failure": "abort",
		"create_output_dir": true,
	}).(*batchLockOnResult)

	if res.AbortError == "" {
		t.Error("AbortError should name the failing frame")
	}
	if res.Aborted != 1 || res.Halted {
		t.Errorf("summary: got aborted=%d halted=%v, want 1 and false", res.Aborted, res.Halted)
	}
	if res.Locked != 0 {
		t.Errorf("Locked: got %d, want 0", res.Locked)
	}
}

func TestBatchLockOn_InvalidArguments(t *testing.T) {
	s := New()
	dir := t.TempDir()

	tests := []map[string]interface{}{
		{"dir": dir, "workers": 0},
		{"dir": dir, "on_decode_failure": "retry"},
		{"dir": dir, "on_no_detection": "abort"},
		{"dir": filepath.Join(dir, "missing")},
	}
	for _, args := range tests {
		argsJSON, _ := json.Marshal(args)
		if _, err := s.executeTool("batch_lock_on_target", argsJSON); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New()
	dir := t.TempDir()
	path := createTestFrameFile(t, dir, "a.pgm", pt(60, 45))

	toolTests := []struct {
		name string
		args map[string]interface{}
	}{
		{"frame_info", map[string]interface{}{"path": path}},
		{"frame_intensity_histogram", map[string]interface{}{"path": path}},
		{"frame_locate_target", map[string]interface{}{"path": path}},
		{"frame_lock_on_target", map[string]interface{}{"path": path}},
		{"batch_lock_on_target", map[string]interface{}{"dir": dir, "create_output_dir": true}},
	}

	for _, tt := range toolTests {
		t.Run(tt.name, func(t *testing.T) {
			if result := execTool(t, s, tt.name, tt.args); result == nil {
				t.Errorf("executeTool(%s) returned nil result", tt.name)
			}
		})
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New()

	_, err := s.executeTool("unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New()

	_, err := s.executeTool("frame_info", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
