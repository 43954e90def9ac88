// Package imagegen generates note images through a Gemini-style
// generateContent endpoint and saves them into the workspace, handing the
// agent back a path it can attach to a draft.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/redpen-ai/redpen/pkg/agent/tools"
	"github.com/redpen-ai/redpen/pkg/security/workspace"
	"github.com/redpen-ai/redpen/pkg/types"
)

// ToolName is the registered name of the image generation tool.
const ToolName = "generate_image"

const defaultModel = "g3-pro-image-preview"

var (
	aspectRatios = []string{"1:1", "4:3", "16:9", "3:4", "9:16"}
	imageSizes   = []string{"256", "512", "1K", "2K"}
)

type arguments struct {
	Prompt         string `json:"prompt"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	ImageSize      string `json:"image_size,omitempty"`
	OutputFilename string `json:"output_filename,omitempty"`
}

// Tool calls the image API and writes results under outputDir.
type Tool struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	outputDir  string
}

// Option configures the tool.
type Option func(*Tool)

// WithModel overrides the generation model.
func WithModel(model string) Option {
	return func(t *Tool) {
		t.model = model
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Tool) {
		t.httpClient = client
	}
}

// New creates the image generation tool.
func New(endpoint, apiKey, outputDir string, opts ...Option) *Tool {
	t := &Tool{
		httpClient: &http.Client{},
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		model:      defaultModel,
		outputDir:  outputDir,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Generate an illustration for the note from a text prompt. Describe the " +
		"scene, style, and key elements in detail. The image is saved as a PNG and " +
		"the result contains its absolute path, ready for the publish step."
}

func (t *Tool) Schema() map[string]interface{} {
	return tools.ObjectSchema(map[string]interface{}{
		"prompt": map[string]interface{}{
			"type":        "string",
			"description": "Detailed description of the image to generate",
		},
		"aspect_ratio": map[string]interface{}{
			"type":        "string",
			"enum":        aspectRatios,
			"description": "Aspect ratio, default 4:3",
		},
		"image_size": map[string]interface{}{
			"type":        "string",
			"enum":        imageSizes,
			"description": "Image size, default 1K (1024px)",
		},
		"output_filename": map[string]interface{}{
			"type":        "string",
			"description": "Output file name without extension, default timestamped",
		},
	}, []string{"prompt"})
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in arguments
	if err := json.Unmarshal(args, &in); err != nil {
		return "", types.NewToolError(types.ErrKindIO, "invalid image arguments: %v", err)
	}
	if in.Prompt == "" {
		return "", types.NewToolError(types.ErrKindIO, "prompt is required")
	}
	if t.apiKey == "" {
		return "", types.NewToolError(types.ErrKindIO, "image generation API key not configured")
	}
	if in.AspectRatio == "" {
		in.AspectRatio = "4:3"
	}
	if in.ImageSize == "" {
		in.ImageSize = "1K"
	}

	raw, err := t.call(ctx, in)
	if err != nil {
		return "", err
	}

	imgData := extractImage(raw)
	if imgData == "" {
		return "", types.NewToolError(types.ErrKindProtocol, "no image data in API response")
	}

	path, err := t.save(imgData, in.OutputFilename)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Image generated and saved to: %s", path), nil
}

func (t *Tool) call(ctx context.Context, in arguments) ([]byte, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": []map[string]interface{}{{"text": in.Prompt}},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseModalities": []string{"TEXT", "IMAGE"},
			"imageConfig": map[string]interface{}{
				"aspectRatio": in.AspectRatio,
				"imageSize":   in.ImageSize,
			},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, types.NewToolError(types.ErrKindIO, "encoding request: %v", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", t.endpoint, t.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewToolError(types.ErrKindIO, "building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, types.NewToolError(types.ErrKindIO, "calling image API: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewToolError(types.ErrKindIO, "reading response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.NewToolError(types.ErrKindProtocol, "image API returned %d: %s", resp.StatusCode, truncate(string(body), 300))
	}
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return nil, types.NewToolError(types.ErrKindProtocol, "image API error: %s", msg.String())
	}
	return body, nil
}

// extractImage pulls the first inline image out of the candidate parts.
func extractImage(body []byte) string {
	parts := gjson.GetBytes(body, "candidates.0.content.parts")
	if !parts.IsArray() {
		return ""
	}
	var data string
	parts.ForEach(func(_, part gjson.Result) bool {
		if d := part.Get("inlineData.data"); d.Exists() {
			data = d.String()
			return false
		}
		return true
	})
	return data
}

func (t *Tool) save(b64 string, filename string) (string, error) {
	// Strip a data URI prefix if the API included one.
	if strings.HasPrefix(b64, "data:") {
		if idx := strings.Index(b64, ","); idx >= 0 {
			b64 = b64[idx+1:]
		}
	}
	img, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", types.NewToolError(types.ErrKindProtocol, "decoding image data: %v", err)
	}

	if filename == "" {
		filename = "image_" + time.Now().Format("20060102_150405")
	}
	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return "", types.NewToolError(types.ErrKindIO, "creating output dir: %v", err)
	}

	// The filename is model-supplied; keep it inside the images dir.
	guard, err := workspace.NewGuard(t.outputDir)
	if err != nil {
		return "", types.NewToolError(types.ErrKindIO, "output dir: %v", err)
	}
	path, err := guard.Resolve(filename + ".png")
	if err != nil {
		return "", types.NewToolError(types.ErrKindIO, "invalid output filename: %v", err)
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return "", types.NewToolError(types.ErrKindIO, "saving image: %v", err)
	}
	return path, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
