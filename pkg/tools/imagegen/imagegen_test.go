package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redpen-ai/redpen/pkg/types"
)

// 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func generationResponse() string {
	return fmt.Sprintf(`{
		"candidates": [{
			"content": {
				"parts": [
					{"text": "here is your image"},
					{"inlineData": {"mimeType": "image/png", "data": %q}}
				]
			}
		}]
	}`, base64.StdEncoding.EncodeToString(tinyPNG))
}

func TestGenerateSavesImage(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":generateContent")
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, generationResponse())
	}))
	defer srv.Close()

	dir := t.TempDir()
	tool := New(srv.URL, "test-key", dir)

	args, _ := json.Marshal(map[string]interface{}{
		"prompt":          "西湖日落水彩风",
		"aspect_ratio":    "16:9",
		"output_filename": "sunset",
	})
	out, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)

	path := filepath.Join(dir, "sunset.png")
	assert.Contains(t, out, path)
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tinyPNG, saved)

	cfg := gotBody["generationConfig"].(map[string]interface{})
	imgCfg := cfg["imageConfig"].(map[string]interface{})
	assert.Equal(t, "16:9", imgCfg["aspectRatio"])
	assert.Equal(t, "1K", imgCfg["imageSize"], "size defaults when omitted")
}

func TestServerErrorIsProtocol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tool := New(srv.URL, "test-key", t.TempDir())
	args, _ := json.Marshal(map[string]interface{}{"prompt": "anything"})
	_, err := tool.Execute(context.Background(), args)
	require.Error(t, err)
	assert.Equal(t, types.ErrKindProtocol, types.KindOf(err))
}

func TestMissingImageDataIsProtocol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates": [{"content": {"parts": [{"text": "no image today"}]}}]}`)
	}))
	defer srv.Close()

	tool := New(srv.URL, "test-key", t.TempDir())
	args, _ := json.Marshal(map[string]interface{}{"prompt": "anything"})
	_, err := tool.Execute(context.Background(), args)
	require.Error(t, err)
	assert.Equal(t, types.ErrKindProtocol, types.KindOf(err))
}

func TestTraversalFilenameRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, generationResponse())
	}))
	defer srv.Close()

	dir := t.TempDir()
	tool := New(srv.URL, "test-key", filepath.Join(dir, "images"))
	args, _ := json.Marshal(map[string]interface{}{
		"prompt":          "anything",
		"output_filename": "../escape",
	})
	_, err := tool.Execute(context.Background(), args)
	require.Error(t, err)
	assert.Equal(t, types.ErrKindIO, types.KindOf(err))
	assert.NoFileExists(t, filepath.Join(dir, "escape.png"))
}

func TestMissingPromptRejected(t *testing.T) {
	tool := New("http://unused", "test-key", t.TempDir())
	args, _ := json.Marshal(map[string]interface{}{})
	_, err := tool.Execute(context.Background(), args)
	require.Error(t, err)
	assert.Equal(t, types.ErrKindIO, types.KindOf(err))
}
