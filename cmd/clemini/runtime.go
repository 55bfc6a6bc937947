package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/internal/config"
	"github.com/evansenter/clemini-go/internal/eventbus"
	"github.com/evansenter/clemini-go/internal/llm"
	"github.com/evansenter/clemini-go/internal/observability"
	"github.com/evansenter/clemini-go/internal/planmode"
	"github.com/evansenter/clemini-go/internal/sandbox"
	"github.com/evansenter/clemini-go/internal/tasks"
	eventbustool "github.com/evansenter/clemini-go/internal/tools/eventbus"
	"github.com/evansenter/clemini-go/internal/tools/files"
	"github.com/evansenter/clemini-go/internal/tools/interactive"
	planmodetool "github.com/evansenter/clemini-go/internal/tools/planmode"
	"github.com/evansenter/clemini-go/internal/tools/search"
	"github.com/evansenter/clemini-go/internal/tools/shell"
	"github.com/evansenter/clemini-go/internal/tools/subagent"
	"github.com/evansenter/clemini-go/internal/tools/web"
)

// runtime bundles every long-lived component a clemini process needs,
// however it is eventually driven (one-shot prompt, --acp-server child, or
// --mcp-server dispatcher).
type runtime struct {
	cfg      *config.Config
	logger   *observability.Logger
	loop     *agent.AgentLoop
	planGate *planmode.Store
	eventBus *eventbus.Store
	registry *tasks.Registry
}

// Close releases every resource the runtime opened.
func (r *runtime) Close() error {
	if r.eventBus != nil {
		return r.eventBus.Close()
	}
	return nil
}

// buildRuntime wires the sandbox, tool registry, event bus, plan-mode gate,
// LLM provider, and agent loop from cfg. prompter supplies ask_user's
// interactive surface; pass nil for non-interactive surfaces (ACP/RPC
// children), which answers ask_user with ErrBlocked per its contract.
func buildRuntime(ctx context.Context, cfg *config.Config, logger *observability.Logger, prompter interactive.Prompter) (*runtime, error) {
	sb, err := sandbox.New(cfg.Workspace.AllowList...)
	if err != nil {
		return nil, fmt.Errorf("build sandbox: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.EventBus.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create event bus directory: %w", err)
	}
	eventBus, err := eventbus.Open(cfg.EventBus.Path)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}

	if err := os.MkdirAll(cfg.PlanMode.PlansDir, 0o755); err != nil {
		_ = eventBus.Close()
		return nil, fmt.Errorf("create plans directory: %w", err)
	}
	planStore := planmode.NewStore(cfg.PlanMode.PlansDir)

	registry := tasks.NewRegistry()

	provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{Model: cfg.LLM.Model})
	if err != nil {
		_ = eventBus.Close()
		return nil, fmt.Errorf("build LLM provider: %w", err)
	}

	toolRegistry := agent.NewToolRegistry()
	toolRegistry.SetLogger(logger)
	summarizer := newGeminiSummarizer(provider, cfg.LLM.Model)
	if err := registerTools(toolRegistry, cfg, sb, registry, eventBus, planStore, prompter, summarizer); err != nil {
		_ = eventBus.Close()
		return nil, err
	}

	loopConfig := agent.DefaultLoopConfig()
	loopConfig.ContextWarnThreshold = cfg.LLM.ContextWarningAt
	loopConfig.MaxExtraRetries = cfg.LLM.MaxExtraRetries
	loopConfig.RetryBaseDelay = cfg.LLM.RetryBaseDelay
	loop := agent.NewAgentLoop(provider, toolRegistry, planStore, loopConfig)

	return &runtime{cfg: cfg, logger: logger, loop: loop, planGate: planStore, eventBus: eventBus, registry: registry}, nil
}

func registerTools(
	reg *agent.ToolRegistry,
	cfg *config.Config,
	sb *sandbox.Sandbox,
	taskRegistry *tasks.Registry,
	bus *eventbus.Store,
	planStore *planmode.Store,
	prompter interactive.Prompter,
	summarizer web.Summarizer,
) error {
	filesCfg := files.Config{Sandbox: sb, CWD: cfg.Workspace.CWD, MaxReadBytes: cfg.Tools.Read.MaxBytes}
	searchCfg := search.Config{Sandbox: sb, CWD: cfg.Workspace.CWD}
	shellCfg := shell.Config{
		Registry: taskRegistry, WorkingDirectory: cfg.Workspace.CWD,
		DefaultTimeout: cfg.Tools.Bash.DefaultTimeout, MaxTimeout: cfg.Tools.Bash.MaxTimeout,
	}
	webCfg := web.Config{Timeout: cfg.Tools.Fetch.Timeout, MaxChars: cfg.Tools.Fetch.MaxChars, Summarizer: summarizer}
	busCfg := eventbustool.Config{Store: bus}
	subagentCfg := subagent.Config{Registry: taskRegistry, BinaryPath: selfPath(), CWD: cfg.Workspace.CWD}

	registrants := []agent.Tool{
		files.NewReadTool(filesCfg),
		files.NewWriteTool(filesCfg),
		files.NewEditTool(filesCfg),
		files.NewListDirectoryTool(filesCfg),
		search.NewGlobTool(searchCfg),
		search.NewGrepTool(searchCfg),
		shell.NewBashTool(shellCfg),
		shell.NewKillShellTool(shellCfg),
		shell.NewTaskOutputTool(shellCfg),
		interactive.NewAskUserTool(prompter),
		interactive.NewTodoWriteTool(),
		planmodetool.NewEnterPlanModeTool(planStore),
		planmodetool.NewExitPlanModeTool(planStore),
		web.NewWebFetchTool(webCfg),
		web.NewWebSearchTool(webCfg),
		subagent.NewTaskTool(subagentCfg),
		eventbustool.NewRegisterTool(busCfg),
		eventbustool.NewHeartbeatTool(busCfg),
		eventbustool.NewUnregisterTool(busCfg),
		eventbustool.NewListSessionsTool(busCfg),
		eventbustool.NewListChannelsTool(busCfg),
		eventbustool.NewPublishEventTool(busCfg),
		eventbustool.NewGetEventsTool(busCfg),
		eventbustool.NewPruneEventsTool(busCfg),
	}
	for _, tool := range registrants {
		if err := reg.Register(tool); err != nil {
			return fmt.Errorf("register tool: %w", err)
		}
	}
	return nil
}

// selfPath resolves the path of the running binary so the task tool can
// recursively spawn another instance of it in --acp-server mode.
func selfPath() string {
	exe, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return exe
}
