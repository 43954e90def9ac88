// Command redpen runs the content-creation agent: give it a goal, it
// researches, drafts, waits for your review, and publishes the approved note
// to Xiaohongshu through a real browser.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/redpen-ai/redpen/pkg/agent"
	"github.com/redpen-ai/redpen/pkg/agent/tools"
	appconfig "github.com/redpen-ai/redpen/pkg/config"
	"github.com/redpen-ai/redpen/pkg/llm/openai"
	"github.com/redpen-ai/redpen/pkg/logging"
	"github.com/redpen-ai/redpen/pkg/tools/browser"
	"github.com/redpen-ai/redpen/pkg/tools/content"
	"github.com/redpen-ai/redpen/pkg/tools/imagegen"
	"github.com/redpen-ai/redpen/pkg/tools/knowledge"
	"github.com/redpen-ai/redpen/pkg/tools/remote"
	"github.com/redpen-ai/redpen/pkg/tools/review"
	"github.com/redpen-ai/redpen/pkg/types"
	"github.com/redpen-ai/redpen/pkg/ui"
)

const version = "0.1.0"

type cliFlags struct {
	configPath  string
	workspace   string
	model       string
	apiKey      string
	baseURL     string
	goal        string
	showVersion bool
}

func main() {
	flags := parseFlags()
	if flags.showVersion {
		fmt.Printf("redpen v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down...")
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		cancel()
		log.Fatalf("redpen: %v", err)
	}
}

func parseFlags() *cliFlags {
	flags := &cliFlags{}

	flag.StringVar(&flags.configPath, "config", defaultConfigPath(), "Path to the YAML config file")
	flag.StringVar(&flags.workspace, "workspace", defaultWorkspace(), "Workspace directory for images, content, and cookies")
	flag.StringVar(&flags.model, "model", "", "LLM model (overrides config)")
	flag.StringVar(&flags.apiKey, "api-key", "", "LLM API key (or set OPENAI_API_KEY)")
	flag.StringVar(&flags.baseURL, "base-url", "", "LLM API base URL for compatible backends")
	flag.StringVar(&flags.goal, "goal", "", "Run a single task with this goal and exit")
	flag.BoolVar(&flags.showVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "redpen - content agent for Xiaohongshu\n\n")
		fmt.Fprintf(os.Stderr, "Usage: redpen [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY      LLM API key\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_BASE_URL     LLM API base URL\n")
		fmt.Fprintf(os.Stderr, "  REDPEN_WORKSPACE    Workspace directory\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  redpen                                   # interactive session\n")
		fmt.Fprintf(os.Stderr, "  redpen -goal \"写一篇杭州周末探店笔记\"\n")
		fmt.Fprintf(os.Stderr, "  redpen -model gpt-4o -base-url https://api.example.com/v1\n")
	}

	flag.Parse()
	return flags
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".redpen", "config.yaml")
	}
	return ""
}

func defaultWorkspace() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".redpen", "workspace")
	}
	return ".redpen-workspace"
}

func run(ctx context.Context, flags *cliFlags) error {
	cfg, err := appconfig.Load(flags.configPath, flags.workspace)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, flags)
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	logger, err := logging.New("main")
	if err != nil {
		fmt.Fprintf(os.Stderr, "file logging unavailable: %v\n", err)
	}
	defer logger.Close()

	provider, err := openai.New(cfg.LLM.APIKey,
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL),
	)
	if err != nil {
		return fmt.Errorf("model backend: %w", err)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	fmt.Println(ui.Banner(version, provider.Model()))
	fmt.Printf("Workspace: %s\nLog file:  %s\n\n", cfg.Workspace.Dir, logger.Path())

	invoker := agent.NewInvoker(registry, cfg.Agent.ToolTimeout, cfg.Agent.ToolRetries, logger)
	orch := agent.New(provider, registry, invoker, agent.Options{
		MaxTurns:     cfg.Agent.MaxTurns,
		MaxRevisions: cfg.Agent.MaxRevisions,
		TokenBudget:  cfg.Agent.TokenBudget,
		OnEvent: func(e types.Event) {
			if line := ui.EventLine(e); line != "" {
				fmt.Println(line)
			}
		},
	})

	if flags.goal != "" {
		task := types.NewTask(flags.goal)
		outcome := orch.Run(ctx, task)
		fmt.Println(ui.Outcome(outcome))
		if outcome.Status != types.OutcomeDone {
			os.Exit(1)
		}
		return nil
	}

	return interactiveLoop(ctx, orch, registry)
}

func applyFlagOverrides(cfg *appconfig.Config, flags *cliFlags) {
	if flags.model != "" {
		cfg.LLM.Model = flags.model
	}
	if flags.apiKey != "" {
		cfg.LLM.APIKey = flags.apiKey
	}
	if flags.baseURL != "" {
		cfg.LLM.BaseURL = flags.baseURL
	}
}

// buildRegistry wires up every enabled tool.
func buildRegistry(cfg *appconfig.Config) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	register := func(t tools.Tool, enabled bool) error {
		if !enabled {
			return nil
		}
		return registry.Register(t)
	}

	if err := register(knowledge.New(cfg.Workspace.Dir, cfg.Workspace.KnowledgeDirs...), cfg.Tools.Knowledge); err != nil {
		return nil, err
	}
	if err := register(review.New(review.NewCLIReviewer()), cfg.Tools.Review); err != nil {
		return nil, err
	}
	saver, err := content.NewSaveTool(cfg.Workspace.ContentDir)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(saver); err != nil {
		return nil, err
	}
	if err := register(
		imagegen.New(cfg.Tools.ImageGen.Endpoint, cfg.Tools.ImageGen.APIKey, cfg.Workspace.ImagesDir),
		cfg.Tools.ImageGen.Enabled,
	); err != nil {
		return nil, err
	}
	if cfg.Tools.Search.Enabled {
		client := remote.NewClient(cfg.Tools.Search.Endpoint, cfg.Tools.Search.APIKey)
		if err := registry.Register(remote.New(client, remote.SearchDefinition())); err != nil {
			return nil, err
		}
	}
	if cfg.Tools.Browser.Enabled {
		driver := browser.NewPlaywrightDriver(browser.DriverOptions{
			BaseURL:     cfg.Tools.Browser.BaseURL,
			Headless:    cfg.Tools.Browser.Headless,
			CookiesFile: cfg.Tools.Browser.CookiesFile,
			LoginWait:   cfg.Tools.Browser.LoginWait,
		})
		if err := registry.Register(browser.New(driver)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

type sessionStats struct {
	start     time.Time
	tasks     int
	completed int
}

func interactiveLoop(ctx context.Context, orch *agent.Orchestrator, registry *tools.Registry) error {
	stats := sessionStats{start: time.Now()}
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	fmt.Println("Enter a content goal, or /help for commands.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := handleCommand(line, registry, &stats); done {
				return nil
			}
			continue
		}

		stats.tasks++
		task := types.NewTask(line)
		outcome := orch.Run(ctx, task)
		fmt.Println(ui.Outcome(outcome))
		if outcome.Status == types.OutcomeDone {
			stats.completed++
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// handleCommand runs one slash command; true means exit.
func handleCommand(line string, registry *tools.Registry, stats *sessionStats) bool {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/exit", "/quit":
		return true
	case "/stats":
		printStats(registry, stats)
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /help   show this help")
		fmt.Println("  /stats  show session statistics")
		fmt.Println("  /exit   leave the session")
		fmt.Println("Anything else is treated as a content goal.")
	default:
		fmt.Printf("Unknown command %s; try /help.\n", line)
	}
	return false
}

func printStats(registry *tools.Registry, stats *sessionStats) {
	elapsed := time.Since(stats.start).Round(time.Second)
	fmt.Printf("Session statistics:\n")
	fmt.Printf("  duration:        %s\n", elapsed)
	fmt.Printf("  tasks run:       %d\n", stats.tasks)
	fmt.Printf("  tasks completed: %d\n", stats.completed)
	fmt.Printf("  tools available: %d\n", len(registry.List()))
	for _, t := range registry.List() {
		fmt.Printf("    - %s\n", t.Name())
	}
}
