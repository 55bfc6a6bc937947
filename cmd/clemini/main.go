// Package main is the CLI entry point for clemini, a tool-augmented
// coding-assistant agent runtime built around a single Gemini-backed
// agent loop and three external surfaces: a one-shot/REPL prompt, a
// recursive Agent Client Protocol child (--acp-server), and a JSON-RPC
// dispatcher (--mcp-server).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/evansenter/clemini-go/internal/acp"
	"github.com/evansenter/clemini-go/internal/config"
	"github.com/evansenter/clemini-go/internal/observability"
	"github.com/evansenter/clemini-go/internal/rpcserver"
	"github.com/evansenter/clemini-go/internal/tools/interactive"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRootCmd creates the single root command with every flag the
// external-interfaces contract names, split into its own function to
// keep main testable.
func buildRootCmd() *cobra.Command {
	var (
		promptText string
		cwd        string
		acpServer  bool
		mcpServer  bool
		configPath string
		logLevel   string
		logFormat  string
		logFile    string
	)

	cmd := &cobra.Command{
		Use:     "clemini",
		Short:   "clemini - a tool-augmented coding-assistant agent runtime",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, runOptions{
				prompt: promptText, cwd: cwd, acpServer: acpServer, mcpServer: mcpServer,
				configPath: configPath, logLevel: logLevel, logFormat: logFormat, logFile: logFile,
			})
		},
	}

	cmd.Flags().StringVar(&promptText, "prompt", "", "Run a single turn with this prompt and exit (REPL mode if omitted)")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory and sandbox allow-list root (defaults to the process cwd)")
	cmd.Flags().BoolVar(&acpServer, "acp-server", false, "Run as an Agent Client Protocol child over stdio (used by the task tool's recursive subagent spawn)")
	cmd.Flags().BoolVar(&mcpServer, "mcp-server", false, "Run as a JSON-RPC dispatcher over stdio exposing clemini_chat/clemini_reset/clemini_rebuild")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML or JSON5 configuration file (defaults to ~/.clemini/config.yaml if present)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&logFormat, "log-format", "console", "Log format: console or json")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file with rotation instead of stderr")

	return cmd
}

type runOptions struct {
	prompt     string
	cwd        string
	acpServer  bool
	mcpServer  bool
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
}

func run(cmd *cobra.Command, opts runOptions) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if opts.cwd != "" {
		cfg.Workspace.CWD = opts.cwd
		cfg.Workspace.AllowList = append(cfg.Workspace.AllowList, opts.cwd)
	}

	logger := buildLogger(opts)

	factory := func(ctx context.Context) (*runtime, error) {
		var prompter interactive.Prompter
		if !opts.acpServer && !opts.mcpServer {
			prompter = newStdinPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		}
		return buildRuntime(ctx, cfg, logger, prompter)
	}

	rt, err := factory(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	switch {
	case opts.acpServer:
		return runACPServer(ctx, rt)
	case opts.mcpServer:
		return runMCPServer(ctx, rt, factory)
	default:
		return runPromptMode(ctx, rt, opts.prompt, cmd.InOrStdin(), cmd.OutOrStdout())
	}
}

func loadConfig(opts runOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = defaultConfigPath()
	}
	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			return config.Load(path)
		}
	}
	return config.Default(opts.cwd)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.clemini/config.yaml"
}

func buildLogger(opts runOptions) *observability.Logger {
	logConfig := observability.LogConfig{Level: opts.logLevel, Format: opts.logFormat}
	if opts.logFile != "" {
		logConfig.Output = &lumberjack.Logger{
			Filename:   opts.logFile,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
	} else {
		logConfig.Output = os.Stderr
	}
	return observability.NewLogger(logConfig)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runACPServer(ctx context.Context, rt *runtime) error {
	conn := acp.NewConn(os.Stdin, os.Stdout)
	server := acp.NewServer(newACPHandler(rt), conn)
	return server.Serve(ctx)
}

func runMCPServer(ctx context.Context, rt *runtime, factory runtimeFactory) error {
	conn := acp.NewConn(os.Stdin, os.Stdout)
	runner := newLoopRunner(rt, factory)
	server := rpcserver.NewServer(runner, conn)
	return server.Serve(ctx)
}
