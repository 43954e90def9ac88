// Package content lets the agent persist drafts under the workspace content
// directory, so a revision history survives the session and the user can
// diff versions by hand.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/redpen-ai/redpen/pkg/agent/tools"
	"github.com/redpen-ai/redpen/pkg/security/workspace"
	"github.com/redpen-ai/redpen/pkg/types"
)

// SaveToolName is the registered name of the draft-saving tool.
const SaveToolName = "save_draft"

// SaveTool writes a draft as markdown into the content directory. Paths are
// model-supplied, so every write goes through the workspace guard.
type SaveTool struct {
	guard *workspace.Guard
}

// NewSaveTool creates the tool rooted at the content directory.
func NewSaveTool(contentDir string) (*SaveTool, error) {
	guard, err := workspace.NewGuard(contentDir)
	if err != nil {
		return nil, err
	}
	return &SaveTool{guard: guard}, nil
}

func (t *SaveTool) Name() string {
	return SaveToolName
}

func (t *SaveTool) Description() string {
	return "Save the current draft as a markdown file in the content directory. " +
		"Use it after each revision so earlier versions are kept. Returns the saved path."
}

func (t *SaveTool) Schema() map[string]interface{} {
	return tools.ObjectSchema(map[string]interface{}{
		"title": map[string]interface{}{
			"type":        "string",
			"description": "Draft title, written as the first heading",
		},
		"body": map[string]interface{}{
			"type":        "string",
			"description": "Draft body in markdown",
		},
		"filename": map[string]interface{}{
			"type":        "string",
			"description": "File name without extension, default timestamped",
		},
	}, []string{"title", "body"})
}

func (t *SaveTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Title    string `json:"title"`
		Body     string `json:"body"`
		Filename string `json:"filename,omitempty"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", types.NewToolError(types.ErrKindIO, "invalid draft arguments: %v", err)
	}
	if in.Title == "" || in.Body == "" {
		return "", types.NewToolError(types.ErrKindIO, "draft requires title and body")
	}
	if in.Filename == "" {
		in.Filename = "draft_" + time.Now().Format("20060102_150405")
	}

	path, err := t.guard.Resolve(in.Filename + ".md")
	if err != nil {
		return "", types.NewToolError(types.ErrKindIO, "invalid draft filename: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", types.NewToolError(types.ErrKindIO, "creating content dir: %v", err)
	}

	doc := fmt.Sprintf("# %s\n\n%s\n", in.Title, in.Body)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", types.NewToolError(types.ErrKindIO, "saving draft: %v", err)
	}
	return fmt.Sprintf("Draft saved to: %s", path), nil
}

// ListDrafts returns the saved draft files, newest first. The CLI uses it
// for session statistics.
func ListDrafts(contentDir string) ([]string, error) {
	entries, err := os.ReadDir(contentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var drafts []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			drafts = append(drafts, filepath.Join(contentDir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(drafts)))
	return drafts, nil
}
