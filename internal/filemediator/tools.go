package filemediator

import "github.com/MBifolco/gotg-sub000/internal/model"

// Tool name constants shared with the session engine and implementation
// executor, which treat file_read/file_list as the read-only set.
const (
	ToolFileRead  = "file_read"
	ToolFileWrite = "file_write"
	ToolFileList  = "file_list"
)

// ReadOnlyTools is the set the implementation executor uses to detect a
// purely read-only round.
var ReadOnlyTools = map[string]bool{
	ToolFileRead: true,
	ToolFileList: true,
}

// ToolSchemas returns the standard file tool set exposed to an agent.
func ToolSchemas() []model.ToolSchema {
	return []model.ToolSchema{
		{
			Name:        ToolFileRead,
			Description: "Read the contents of a file within the project.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
				"required":   []string{"path"},
			},
		},
		{
			Name:        ToolFileList,
			Description: "List the direct children of a directory within the project.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
				"required":   []string{"path"},
			},
		},
		{
			Name:        ToolFileWrite,
			Description: "Write content to a file within the project's writable paths.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    map[string]interface{}{"type": "string"},
					"content": map[string]interface{}{"type": "string"},
				},
				"required": []string{"path", "content"},
			},
		},
	}
}
