// Package knowledge gives the agent read access to the user's reference
// material. Paths coming from the model are rarely exact, so the tool
// resolves them through a stack of strategies: absolute, workspace-relative,
// known knowledge directories, glob patterns, and finally a fuzzy filename
// search.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/redpen-ai/redpen/pkg/agent/tools"
	"github.com/redpen-ai/redpen/pkg/types"
)

// ToolName is the registered name of the knowledge tool.
const ToolName = "read_knowledge"

const (
	defaultMaxFiles = 10
	maxFileChars    = 10000
)

var supportedExts = map[string]bool{
	".txt":  true,
	".md":   true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".py":   true,
	".js":   true,
	".html": true,
	".css":  true,
	".pdf":  true,
}

// defaultKnowledgeDirs are directory names commonly holding reference
// material, searched when a relative path does not resolve directly.
var defaultKnowledgeDirs = []string{"knowledge", "docs", "documents", "knowledge_base", "kb", "PersonalKB"}

type arguments struct {
	Path     string `json:"path"`
	MaxFiles int    `json:"max_files,omitempty"`
}

// Tool reads knowledge files under the workspace.
type Tool struct {
	workspaceDir  string
	knowledgeDirs []string
}

// New creates the knowledge tool rooted at workspaceDir. Extra knowledge
// directory names extend the built-in set.
func New(workspaceDir string, knowledgeDirs ...string) *Tool {
	dirs := append([]string{}, knowledgeDirs...)
	dirs = append(dirs, defaultKnowledgeDirs...)
	return &Tool{workspaceDir: workspaceDir, knowledgeDirs: dirs}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Read reference files for content creation. Accepts an absolute path, " +
		"a workspace-relative path, a glob pattern like 'notes/*.md', or a bare " +
		"filename (searched across knowledge directories). Directories are read " +
		"recursively up to max_files."
}

func (t *Tool) Schema() map[string]interface{} {
	return tools.ObjectSchema(map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "File, directory, glob pattern, or bare filename to read",
		},
		"max_files": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum files to read when the path matches several (default 10)",
		},
	}, []string{"path"})
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in arguments
	if err := json.Unmarshal(args, &in); err != nil {
		return "", types.NewToolError(types.ErrKindIO, "invalid knowledge arguments: %v", err)
	}
	if in.Path == "" {
		return "", types.NewToolError(types.ErrKindIO, "path is required")
	}
	if in.MaxFiles <= 0 {
		in.MaxFiles = defaultMaxFiles
	}

	candidates := t.inferPaths(in.Path)
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			return t.readDirectory(candidate, in.MaxFiles)
		}
		content, err := readFile(candidate)
		if err != nil {
			return "", types.NewToolError(types.ErrKindIO, "reading %s: %v", candidate, err)
		}
		return fmt.Sprintf("=== %s ===\n%s", filepath.Base(candidate), content), nil
	}

	if hasGlobMeta(in.Path) {
		if out, ok := t.globSearch(in.Path, in.MaxFiles); ok {
			return out, nil
		}
	} else if !strings.ContainsAny(in.Path, `/\`) {
		if out, ok := t.fuzzySearch(in.Path, in.MaxFiles); ok {
			return out, nil
		}
	}

	return "", types.NewToolError(types.ErrKindNotFound,
		"no file found for %q (tried: %s)", in.Path, strings.Join(candidates, ", "))
}

// inferPaths builds the ordered candidate list for a user-supplied path.
func (t *Tool) inferPaths(path string) []string {
	if filepath.IsAbs(path) {
		return []string{path}
	}

	var candidates []string
	candidates = append(candidates, filepath.Join(t.workspaceDir, path))
	for _, dir := range t.knowledgeDirs {
		candidates = append(candidates, filepath.Join(t.workspaceDir, dir, path))
	}
	if strings.ContainsAny(path, `/\`) {
		candidates = append(candidates, filepath.Join(filepath.Dir(t.workspaceDir), path))
	}

	seen := make(map[string]bool, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	return unique
}

func (t *Tool) readDirectory(dir string, maxFiles int) (string, error) {
	var sections []string
	count := 0

	var paths []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if supportedExts[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)

	for _, path := range paths {
		if count >= maxFiles {
			break
		}
		content, err := readFile(path)
		if err != nil || content == "" {
			continue
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		sections = append(sections, fmt.Sprintf("=== %s ===\n%s", rel, content))
		count++
	}

	if len(sections) == 0 {
		return "", types.NewToolError(types.ErrKindNotFound, "no readable files in %s", dir)
	}
	return fmt.Sprintf("Read %d file(s) from %s:\n\n%s", count, dir, strings.Join(sections, "\n\n")), nil
}

// globSearch matches workspace-relative paths against a glob pattern.
func (t *Tool) globSearch(pattern string, maxFiles int) (string, bool) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return "", false
	}

	var sections []string
	count := 0
	_ = filepath.WalkDir(t.workspaceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || count >= maxFiles {
			return nil
		}
		rel, relErr := filepath.Rel(t.workspaceDir, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !g.Match(rel) && !g.Match(filepath.Base(path)) {
			return nil
		}
		if !supportedExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		content, readErr := readFile(path)
		if readErr != nil || content == "" {
			return nil
		}
		sections = append(sections, fmt.Sprintf("=== %s ===\n%s", rel, content))
		count++
		return nil
	})

	if len(sections) == 0 {
		return "", false
	}
	return fmt.Sprintf("Matched %d file(s) for %s:\n\n%s", count, pattern, strings.Join(sections, "\n\n")), true
}

// fuzzySearch finds files whose name (minus extension) matches the query.
func (t *Tool) fuzzySearch(name string, maxFiles int) (string, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	var sections []string
	count := 0
	_ = filepath.WalkDir(t.workspaceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || count >= maxFiles {
			return nil
		}
		base := filepath.Base(path)
		if strings.TrimSuffix(base, filepath.Ext(base)) != stem {
			return nil
		}
		if !supportedExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		content, readErr := readFile(path)
		if readErr != nil || content == "" {
			return nil
		}
		rel, relErr := filepath.Rel(t.workspaceDir, path)
		if relErr != nil {
			rel = path
		}
		sections = append(sections, fmt.Sprintf("=== %s ===\n%s", rel, content))
		count++
		return nil
	})

	if len(sections) == 0 {
		return "", false
	}
	return fmt.Sprintf("Found %d file(s) matching %q:\n\n%s", count, name, strings.Join(sections, "\n\n")), true
}

// readFile returns a file's text, truncated past maxFileChars. PDFs cannot
// be inlined; they are summarized by page count so the model knows the
// document exists and how big it is.
func readFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		pages, err := api.PageCountFile(path)
		if err != nil {
			return "", fmt.Errorf("reading pdf: %w", err)
		}
		return fmt.Sprintf("[PDF document, %d page(s): %s]", pages, filepath.Base(path)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)
	if len(content) > maxFileChars {
		content = content[:maxFileChars] + fmt.Sprintf("\n... (truncated, %d chars total)", len(data))
	}
	return content, nil
}

func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
