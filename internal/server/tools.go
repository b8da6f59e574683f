package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func emptySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func pointSchema(what string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{
				"type":        "number",
				"description": what + " X in rendered (display) pixels",
			},
			"y": map[string]interface{}{
				"type":        "number",
				"description": what + " Y in rendered (display) pixels",
			},
		},
		"required": []string{"x", "y"},
	}
}

var circleProperty = map[string]interface{}{
	"type":        "string",
	"enum":        []string{"iris", "pupil"},
	"description": "Which circle",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Analysis
		{
			Name:        "iris_analyze",
			Description: "Detect the pupil and iris in an eye image. Returns both circles in native pixel coordinates and loads the result into the overlay editor.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"image_data": map[string]interface{}{
						"type":        "string",
						"description": "Image as a data URI (data:image/png;base64,...) or bare base64. Used when path is not given.",
					},
					"load": map[string]interface{}{
						"type":        "boolean",
						"description": "Load the result into the overlay editor (default true)",
						"default":     true,
					},
				},
			},
		},
		{
			Name:        "iris_health",
			Description: "Report whether the local detection engine can be found and whether the network analysis service answers.",
			InputSchema: emptySchema(),
		},

		// Overlay editor
		{
			Name:        "overlay_state",
			Description: "Get the overlay editor state: the edited circles, the selection, the drag mode and the display size.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "overlay_select",
			Description: "Select the iris or the pupil, like the Select buttons. Does not commit.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"circle": circleProperty,
				},
				"required": []string{"circle"},
			},
		},
		{
			Name:        "overlay_mode",
			Description: "Choose what dragging changes: the circle position or its radius.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mode": map[string]interface{}{
						"type": "string",
						"enum": []string{"position", "radius"},
					},
				},
				"required": []string{"mode"},
			},
		},
		{
			Name:        "overlay_resize",
			Description: "Set the size the image is displayed at. Pointer coordinates are given in this space. 0x0 restores native size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"width":  map[string]interface{}{"type": "number"},
					"height": map[string]interface{}{"type": "number"},
				},
				"required": []string{"width", "height"},
			},
		},
		{
			Name:        "overlay_pointer_down",
			Description: "Press the pointer. Grabs the circle whose outline is within 10 px; the iris wins when both are close.",
			InputSchema: pointSchema("Pointer"),
		},
		{
			Name:        "overlay_pointer_move",
			Description: "Move the pointer while pressed. Moves or resizes the grabbed circle.",
			InputSchema: pointSchema("Pointer"),
		},
		{
			Name:        "overlay_pointer_up",
			Description: "Release the pointer and commit the edit.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "overlay_pointer_leave",
			Description: "The pointer left the image. Commits like a release.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "overlay_set_radius",
			Description: "Set a radius directly. The iris is kept at least 10 px larger than the pupil. Commits immediately.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"circle": circleProperty,
					"radius": map[string]interface{}{
						"type":        "number",
						"description": "Radius in native pixels",
					},
				},
				"required": []string{"circle", "radius"},
			},
		},
		{
			Name:        "overlay_reset",
			Description: "Restore the circles to the last analysis result and commit them.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "overlay_render",
			Description: "Draw the overlay on the image and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
					"crop": map[string]interface{}{
						"type":        "boolean",
						"description": "Crop to the iris (or the selected circle) plus a margin",
						"default":     false,
					},
					"margin": map[string]interface{}{
						"type":        "integer",
						"description": "Crop margin in pixels (default 20)",
						"default":     20,
					},
				},
			},
		},
		{
			Name:        "overlay_commits",
			Description: "List the geometries committed since the last analysis, oldest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"clear": map[string]interface{}{
						"type":        "boolean",
						"description": "Forget the listed commits afterwards",
						"default":     false,
					},
				},
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
