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
		"description": "Absolute path to the image file (PNG, JPEG or GIF)",
	}
}

func cornersProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": "Optional card outline as four {x, y} points. When omitted the outline is detected.",
		"minItems":    4,
		"maxItems":    4,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"x": map[string]interface{}{"type": "number"},
				"y": map[string]interface{}{"type": "number"},
			},
			"required": []string{"x", "y"},
		},
	}
}

func scaleProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "Optional scale factor for the returned image. Default 1.0",
		"default":     1.0,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "card_detect",
			Description: "Recognise the emotion card held up in a camera snapshot. Returns the catalog card, confidence and the four card corners, or detected=false.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "card_extract",
			Description: "List every card-like quadrilateral found in an image, best first, with contour area, distance to the frame centre, aspect ratio and squareness.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "card_rectify",
			Description: "Warp the card region to an upright canonical card image and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty(),
					"corners": cornersProperty(),
					"scale":   scaleProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "card_classify",
			Description: "Classify the rectified card by its dominant palette colour. Returns per-label pixel counts and the matching catalog card, if any.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty(),
					"corners": cornersProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "card_sample_color",
			Description: "Get the colour of a pixel as hex, RGB and 8-bit HSV, and the palette labels whose ranges contain it. Useful for tuning the palette to lighting.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "card_annotate",
			Description: "Detect the card and return the image with its outline, corner order and emotion drawn on top, as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"scale": scaleProperty(),
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Outline colour as #RRGGBB. Default green",
						"default":     "#00FF00",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "card_catalog",
			Description: "List the emotion cards the recogniser knows, with descriptions, activities and animal companions.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
