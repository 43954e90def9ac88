package content

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redpen-ai/redpen/pkg/types"
)

func TestSaveDraftWritesMarkdown(t *testing.T) {
	dir := t.TempDir()
	tool, err := NewSaveTool(dir)
	require.NoError(t, err)

	args, _ := json.Marshal(map[string]string{
		"title":    "成都小众咖啡馆",
		"body":     "第一家是玉林路的巷子咖啡。",
		"filename": "chengdu_coffee_v1",
	})
	out, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, out, "chengdu_coffee_v1.md")

	data, err := os.ReadFile(filepath.Join(dir, "chengdu_coffee_v1.md"))
	require.NoError(t, err)
	assert.Equal(t, "# 成都小众咖啡馆\n\n第一家是玉林路的巷子咖啡。\n", string(data))
}

func TestSaveDraftDefaultFilename(t *testing.T) {
	dir := t.TempDir()
	tool, err := NewSaveTool(dir)
	require.NoError(t, err)

	args, _ := json.Marshal(map[string]string{"title": "t", "body": "b"})
	out, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, out, "draft_")

	drafts, err := ListDrafts(dir)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
}

func TestSaveDraftRequiresTitleAndBody(t *testing.T) {
	tool, err := NewSaveTool(t.TempDir())
	require.NoError(t, err)

	args, _ := json.Marshal(map[string]string{"title": "only title"})
	_, err = tool.Execute(context.Background(), args)
	require.Error(t, err)

	var toolErr *types.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, types.ErrKindIO, toolErr.Kind)
}

func TestSaveDraftRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	tool, err := NewSaveTool(dir)
	require.NoError(t, err)

	args, _ := json.Marshal(map[string]string{
		"title":    "t",
		"body":     "b",
		"filename": "../escape",
	})
	_, err = tool.Execute(context.Background(), args)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escape.md"))
}

func TestListDraftsMissingDir(t *testing.T) {
	drafts, err := ListDrafts(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, drafts)
}
