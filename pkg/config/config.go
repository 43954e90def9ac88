// Package config loads redpen configuration.
//
// Precedence, highest first:
//  1. Environment variables (OPENAI_API_KEY, OPENAI_BASE_URL, REDPEN_MODEL,
//     REDPEN_WORKSPACE, REDPEN_MAX_TURNS, REDPEN_HEADLESS, ...)
//  2. The YAML config file
//  3. Built-in defaults
//
// A .env file in the working directory or under ~/.redpen/ is loaded before
// the environment is read, so credentials can live outside the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default agent limits. MaxRevisions is zero because repeated revision is
// expected workflow, not an error; only the automated turn budget is bounded.
const (
	DefaultMaxTurns    = 50
	DefaultTokenBudget = 80000
	DefaultToolTimeout = 120 * time.Second
	DefaultToolRetries = 2
)

// LLM holds model backend settings.
type LLM struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Agent holds orchestration loop limits.
type Agent struct {
	MaxTurns     int           `yaml:"max_turns"`
	TokenBudget  int           `yaml:"token_budget"`
	ToolTimeout  time.Duration `yaml:"tool_timeout"`
	ToolRetries  int           `yaml:"tool_retries"`
	MaxRevisions int           `yaml:"max_revisions"` // 0 = unlimited
}

// Workspace holds the directory layout for generated artifacts.
type Workspace struct {
	Dir           string   `yaml:"dir"`
	ImagesDir     string   `yaml:"images_dir"`
	ContentDir    string   `yaml:"content_dir"`
	KnowledgeDirs []string `yaml:"knowledge_dirs"`
}

// RemoteTool holds settings for one remote tool endpoint.
type RemoteTool struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// Browser holds browser automation settings. Credentials are never stored
// here; authentication relies on the persisted cookie jar plus manual login.
type Browser struct {
	Enabled     bool          `yaml:"enabled"`
	Headless    bool          `yaml:"headless"`
	BaseURL     string        `yaml:"base_url"`
	CookiesFile string        `yaml:"cookies_file"`
	LoginWait   time.Duration `yaml:"login_wait"`
}

// Tools toggles each tool on or off and carries per-tool settings.
type Tools struct {
	Knowledge bool       `yaml:"knowledge"`
	Review    bool       `yaml:"review"`
	ImageGen  RemoteTool `yaml:"image_gen"`
	Search    RemoteTool `yaml:"search"`
	Browser   Browser    `yaml:"browser"`
}

// Config is the full application configuration.
type Config struct {
	LLM       LLM       `yaml:"llm"`
	Agent     Agent     `yaml:"agent"`
	Workspace Workspace `yaml:"workspace"`
	Tools     Tools     `yaml:"tools"`
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		LLM: LLM{Model: "gpt-4o"},
		Agent: Agent{
			MaxTurns:    DefaultMaxTurns,
			TokenBudget: DefaultTokenBudget,
			ToolTimeout: DefaultToolTimeout,
			ToolRetries: DefaultToolRetries,
		},
		Workspace: Workspace{
			Dir:           dir,
			ImagesDir:     filepath.Join(dir, "images"),
			ContentDir:    filepath.Join(dir, "content"),
			KnowledgeDirs: []string{"knowledge", "docs", "kb"},
		},
		Tools: Tools{
			Knowledge: true,
			Review:    true,
			Browser: Browser{
				Enabled:     true,
				BaseURL:     "https://creator.xiaohongshu.com",
				CookiesFile: filepath.Join(dir, "cookies.json"),
				LoginWait:   5 * time.Minute,
			},
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if it
// exists), and environment overrides, in that order.
func Load(path, workspaceDir string) (*Config, error) {
	loadDotenv()

	cfg := Default(workspaceDir)

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Workspace.Dir == "" {
		cfg.Workspace.Dir = workspaceDir
	}
	if cfg.Workspace.ImagesDir == "" {
		cfg.Workspace.ImagesDir = filepath.Join(cfg.Workspace.Dir, "images")
	}
	if cfg.Workspace.ContentDir == "" {
		cfg.Workspace.ContentDir = filepath.Join(cfg.Workspace.Dir, "content")
	}
	if cfg.Tools.Browser.CookiesFile == "" {
		cfg.Tools.Browser.CookiesFile = filepath.Join(cfg.Workspace.Dir, "cookies.json")
	}

	return cfg, nil
}

func loadDotenv() {
	// Best effort; a missing .env is the normal case.
	candidates := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".redpen", ".env"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("REDPEN_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("REDPEN_WORKSPACE"); v != "" {
		c.Workspace.Dir = v
		c.Workspace.ImagesDir = filepath.Join(v, "images")
		c.Workspace.ContentDir = filepath.Join(v, "content")
	}
	if v := os.Getenv("REDPEN_MAX_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Agent.MaxTurns = n
		}
	}
	if v := os.Getenv("REDPEN_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Tools.Browser.Headless = b
		}
	}
	if v := os.Getenv("REDPEN_IMAGE_GEN_ENDPOINT"); v != "" {
		c.Tools.ImageGen.Endpoint = v
		c.Tools.ImageGen.Enabled = true
	}
	if v := os.Getenv("REDPEN_IMAGE_GEN_API_KEY"); v != "" {
		c.Tools.ImageGen.APIKey = v
	}
	if v := os.Getenv("REDPEN_SEARCH_ENDPOINT"); v != "" {
		c.Tools.Search.Endpoint = v
		c.Tools.Search.Enabled = true
	}
}

// EnsureDirs creates the workspace directory tree.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Workspace.Dir, c.Workspace.ImagesDir, c.Workspace.ContentDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
