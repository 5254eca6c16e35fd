package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"demon-cli/internal/achievements"
	"demon-cli/internal/agent"
	"demon-cli/internal/approval"
	"demon-cli/internal/config"
	"demon-cli/internal/conversation"
	"demon-cli/internal/history"
	"demon-cli/internal/llm"
	"demon-cli/internal/persona"
	"demon-cli/internal/render"
	"demon-cli/internal/tools"
	"demon-cli/internal/workspace"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "demon-cli",
		Short:         "demon-cli - a coding agent living in your terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("model", config.DefaultModel, "Model name")
	cmd.PersistentFlags().String("base-url", config.DefaultBaseURL, "OpenAI-compatible API base URL")
	cmd.PersistentFlags().Int("max-tool-rounds", config.DefaultMaxToolRounds, "Maximum tool rounds per turn")
	cmd.PersistentFlags().String("personality", "cynical", "Personality (cynical, professional, friendly)")
	cmd.PersistentFlags().String("approval", "ask", "Approval mode (ask, always-allow, always-deny)")
	cmd.PersistentFlags().String("timeout", config.DefaultTimeout.String(), "Per-turn timeout (e.g. 120s)")
	cmd.PersistentFlags().Bool("quiet", false, "Only print final answers")
	cmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newToolsCmd())

	return cmd
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			return runChat(cfg)
		},
	}
}

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			return runAsk(cfg, strings.Join(args, " "))
		},
	}
	cmd.Flags().Bool("json", false, "Output the turn result as JSON")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show achievements and usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			return runStats(cfg)
		},
	}
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := buildRegistry()
			category := ""
			for _, desc := range registry.Descriptors() {
				if string(desc.Category) != category {
					category = string(desc.Category)
					fmt.Printf("\n[%s]\n", category)
				}
				fmt.Printf("  %-18s %s\n", desc.Name, desc.Description)
			}
			fmt.Println()
			return nil
		},
	}
}

type session struct {
	agent   *agent.Agent
	conv    *conversation.Log
	tracker *achievements.Tracker
	store   *history.Store
	cfg     config.Config
	cleanup func()
}

// setup wires the full agent stack from configuration. The returned
// cleanup flushes the logger and must run on every exit path.
func setup(cfg config.Config) (*session, error) {
	logger := buildLogger(cfg.Verbose)

	personality := persona.Personality(cfg.Personality)
	if !personality.Valid() {
		_ = logger.Sync()
		return nil, fmt.Errorf("unknown personality: %q", cfg.Personality)
	}

	cwd, _ := os.Getwd()
	root, err := workspace.FindRoot(cwd)
	if err != nil {
		logger.Warn("failed to find workspace root", zap.Error(err))
		root = cwd
	}
	root, _ = filepath.Abs(root)

	registry := buildRegistry()

	var presenter approval.Presenter
	switch cfg.Approval {
	case "always-allow":
		presenter = approval.Policy{Grant: true, Reason: "approval mode always-allow"}
	case "always-deny":
		presenter = approval.Policy{Grant: false, Reason: "approval mode always-deny"}
	default:
		presenter = approval.NewTerminalPresenter(os.Stdin, os.Stderr)
	}
	dispatcher := tools.NewDispatcher(registry, presenter, logger)

	var client llm.Client
	if os.Getenv("DEMON_MOCK_LLM") == "1" {
		client = llm.NewScriptedClient([]llm.Response{
			{Content: "Mock mode is on. No model was consulted, which is probably for the best."},
		}, nil)
	} else {
		client = llm.NewOpenAIClient(os.Getenv("DEMON_API_KEY"), cfg.BaseURL)
	}

	// JSON mode owns stdout; events stay out of the payload.
	var renderer render.Renderer
	if !cfg.JSON {
		renderer = render.NewStdoutRenderer(os.Stdout, cfg.Verbose, cfg.Quiet)
	}

	var tracker *achievements.Tracker
	if cfg.AchievementsEnabled {
		tracker = achievements.NewTracker(cfg.AchievementsFile(), logger)
	}
	var store *history.Store
	if cfg.HistoryEnabled {
		store = history.NewStore(cfg.HistoryDir(), logger)
	}

	conv := conversation.NewLog(persona.SystemPrompt(personality, registry.Names()), cfg.MaxEntries)
	ag := agent.New(client, registry, dispatcher, conv, renderer, logger, cfg, tracker, store, root)

	return &session{
		agent:   ag,
		conv:    conv,
		tracker: tracker,
		store:   store,
		cfg:     cfg,
		cleanup: func() { _ = logger.Sync() },
	}, nil
}

func buildRegistry() *tools.Registry {
	registry := tools.NewRegistry()
	registry.MustRegister(
		tools.ReadFileTool{},
		tools.WriteFileTool{},
		tools.EditFileTool{},
		tools.SearchFilesTool{},
		tools.ListDirectoryTool{},
		tools.GitStatusTool{},
		tools.GitDiffTool{},
		tools.GitBranchTool{},
		tools.GitCommitTool{},
		tools.GitPushTool{},
		tools.ExecuteCommandTool{},
		tools.NewFetchURLTool(),
	)
	return registry
}

func runChat(cfg config.Config) error {
	sess, err := setup(cfg)
	if err != nil {
		return err
	}
	defer sess.cleanup()

	personality := persona.Personality(cfg.Personality)
	fmt.Println(persona.Greeting(personality))
	fmt.Println(`Type "exit" or press Ctrl+D to leave.`)

	if sess.store != nil {
		sess.store.StartSession()
	}
	success := true

	reader := bufio.NewReader(os.Stdin)
loop:
	for {
		fmt.Print("\nyou> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			break
		}
		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "exit", "quit":
			break loop
		case "/reset":
			sess.conv.Reset()
			fmt.Println("conversation cleared")
			continue
		}

		// Ctrl+C cancels the current turn but keeps the session alive.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		turnCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		result := sess.agent.Turn(turnCtx, input)
		cancel()
		stop()
		if result.Status == agent.StatusFailure {
			success = false
		}
	}

	if sess.store != nil {
		sess.store.EndSession(success)
	}
	if sess.tracker != nil {
		sess.tracker.MarkSessionCompleted()
		for _, earned := range sess.tracker.CheckAndAward() {
			fmt.Printf("achievement unlocked: %s (+%d pts) - %s\n", earned.Name, earned.Points, earned.Description)
		}
	}
	fmt.Println(persona.Farewell(personality))
	return nil
}

func runAsk(cfg config.Config, question string) error {
	sess, err := setup(cfg)
	if err != nil {
		return err
	}
	defer sess.cleanup()

	if sess.store != nil {
		sess.store.StartSession()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	result := sess.agent.Turn(ctx, question)

	if sess.store != nil {
		sess.store.EndSession(result.Status != agent.StatusFailure)
	}
	if sess.tracker != nil {
		sess.tracker.MarkSessionCompleted()
	}

	if cfg.JSON {
		payload, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(os.Stdout, string(payload))
	}
	if result.Status == agent.StatusFailure {
		os.Exit(1)
	}
	return nil
}

func runStats(cfg config.Config) error {
	logger := buildLogger(cfg.Verbose)
	defer func() { _ = logger.Sync() }()

	tracker := achievements.NewTracker(cfg.AchievementsFile(), logger)
	earned := tracker.Earned()
	stats := tracker.Stats()

	fmt.Printf("achievements: %d/%d earned, %d points\n\n", len(earned), len(achievements.All), tracker.TotalPoints())
	for _, a := range achievements.All {
		marker := "[ ]"
		for _, e := range earned {
			if e.ID == a.ID {
				marker = "[x]"
				break
			}
		}
		fmt.Printf("  %s %-16s %-10s %3d pts  %s\n", marker, a.Name, a.Rarity, a.Points, a.Description)
	}

	if len(stats) > 0 {
		fmt.Println("\nstats:")
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-22s %d\n", k, stats[k])
		}
	}
	return nil
}

func buildLogger(verbose bool) *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
