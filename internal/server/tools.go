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
		"description": "Absolute path to the frame file (PGM)",
	}
}

func thresholdProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Optional detection threshold; pixels strictly brighter are candidates. Default 253",
		"minimum":     0,
		"maximum":     255,
		"default":     253,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Frame information
		{
			Name:        "frame_info",
			Description: "Load a frame and return its dimensions, format, file size and the number of pixels above the detection threshold.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "frame_intensity_histogram",
			Description: "Count the pixels at each intensity level at or above a starting level, most populated first. Use it to pick a detection threshold.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"from": map[string]interface{}{
						"type":        "integer",
						"description": "Lowest intensity level to report. Default 240",
						"minimum":     0,
						"maximum":     255,
						"default":     240,
					},
				},
				"required": []string{"path"},
			},
		},

		// Target operations
		{
			Name:        "frame_locate_target",
			Description: "Estimate the center of the bright target in a frame. Returns found=false when no pixel exceeds the threshold.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty(),
					"threshold": thresholdProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "frame_lock_on_target",
			Description: "Locate the target, draw a crosshair on it and return the marked frame as base64-encoded PNG. Optionally writes the marked frame as PGM.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty(),
					"threshold": thresholdProperty(),
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the marked frame to. Its directory must exist",
					},
					"window": map[string]interface{}{
						"type":        "integer",
						"description": "Optional radius of the preview window around the target. 0 returns the whole frame",
						"default":     0,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional enlargement of the preview (e.g., 4.0 to inspect the crosshair). Default 1.0",
						"default":     1.0,
					},
					"label": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw the target coordinates next to the crosshair",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},

		// Batch operations
		{
			Name:        "batch_lock_on_target",
			Description: "Lock on to every .pgm frame directly inside a directory and write the marked frames to its output subdirectory. Returns per-frame results.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the directory holding the frames",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Number of frames processed concurrently. Default 1",
						"default":     1,
					},
					"on_decode_failure": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"skip", "abort"},
						"description": "What to do with an undecodable frame",
						"default":     "skip",
					},
					"on_no_detection": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"skip", "copy"},
						"description": "What to write for a frame without a target",
						"default":     "skip",
					},
					"create_output_dir": map[string]interface{}{
						"type":        "boolean",
						"description": "Create the output subdirectory when missing",
						"default":     false,
					},
				},
				"required": []string{"dir"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
