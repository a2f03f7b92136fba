package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/junchih/strand/pkg/agent"
	"github.com/junchih/strand/pkg/config"
	"github.com/junchih/strand/pkg/llm"
	"github.com/junchih/strand/pkg/prompt"
	"github.com/junchih/strand/pkg/tools"
)

const basePrompt = `You are a helpful coding assistant.
When you need to inspect files or run commands, call the tools. Do not write tool markup in plain text.
Do not include chain-of-thought or <thinking> tags in your output.`

// runtime bundles everything a command needs to drive a turn loop.
type runtime struct {
	config     *config.Config
	loopConfig *agent.LoopConfig
	registry   *tools.Registry
	cwd        string
	agents     []prompt.AgentInfo
}

// newRuntime wires the client, tools, executor, history bounds and the
// approval gate from configuration.
func newRuntime(cfg *config.Config, approvalHandler agent.ApprovalHandler) (*runtime, error) {
	model := cfg.GetLLMModel()

	apiKey, err := config.ResolveAPIKey(model.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve API key: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	registry := tools.NewRegistry()
	for _, tool := range tools.DefaultTools(cwd, cfg.RequireApproval) {
		registry.Register(tool)
	}

	concurrency := cfg.Concurrency
	if concurrency == nil {
		concurrency = config.ResolveConcurrencyConfig()
	}

	history := cfg.GetHistoryConfig()

	loopConfig := &agent.LoopConfig{
		Source:   llm.NewClient(model, apiKey),
		Model:    model,
		NoStream: flagNoStream,
		Executor: agent.NewExecutorPool(
			concurrency.MaxConcurrentTools,
			concurrency.ToolTimeout,
			concurrency.QueueTimeout,
		),
		History:            agent.NewHistoryManager(&history),
		MaxToolOutputBytes: 50 * 1024,
	}
	if cfg.RequireApproval {
		loopConfig.Approval = &agent.ApprovalConfig{
			Handler: approvalHandler,
			Apply:   tools.ApplyFileChange,
		}
	}

	rt := &runtime{
		config:     cfg,
		loopConfig: loopConfig,
		registry:   registry,
		cwd:        cwd,
	}

	if cfg.AgentsPath != "" {
		if err := rt.registerSpawnTool(cfg.AgentsPath); err != nil {
			return nil, err
		}
	}

	return rt, nil
}

// registerSpawnTool loads agent definitions and makes spawning
// available as a tool.
func (rt *runtime) registerSpawnTool(path string) error {
	defs, err := agent.LoadAgentDefs(path)
	if err != nil {
		return err
	}

	agentRegistry := agent.NewRegistry(defs)
	emit := func(event agent.AgentEvent) {
		slog.Debug("[Child]", "type", event.Type, "session", event.SessionID)
	}
	rt.registry.Register(agent.NewSpawnTool(agentRegistry, rt.registry.Resolve, rt.loopConfig, emit))

	for _, def := range defs {
		rt.agents = append(rt.agents, prompt.AgentInfo{Name: def.Name, Description: def.Description})
	}

	slog.Info("agent definitions loaded", "path", path, "agents", agentRegistry.Names())
	return nil
}

// newSession creates a session carrying the full toolset.
func (rt *runtime) newSession() *agent.Session {
	all := rt.registry.All()
	infos := make([]prompt.ToolInfo, 0, len(all))
	for _, tool := range all {
		infos = append(infos, tool)
	}

	systemPrompt := prompt.NewBuilder(basePrompt, rt.cwd).
		SetTools(infos).
		SetAgents(rt.agents).
		Build()

	sess := agent.NewSession(systemPrompt)
	rt.attachTools(sess)
	return sess
}

// attachTools registers the runtime's full toolset on a session.
// Used both for fresh sessions and for sessions restored from disk,
// which never carry tools.
func (rt *runtime) attachTools(sess *agent.Session) {
	for _, tool := range rt.registry.All() {
		sess.AddTool(tool)
	}
}

// runPrompt drives one turn loop to completion, rendering events to
// out, and reports the final outcome.
func runPrompt(ctx context.Context, rt *runtime, sess *agent.Session, prompt string, out io.Writer) (string, error) {
	prompts := []agent.AgentMessage{agent.NewUserMessage(prompt)}
	stream := agent.RunLoop(ctx, prompts, sess, rt.loopConfig)

	outcome := agent.OutcomeError
	var outcomeErr string

	for item := range stream.Iterator(ctx) {
		if item.Done {
			break
		}
		event := item.Value

		switch event.Type {
		case agent.EventTextDelta:
			fmt.Fprint(out, event.Delta)
		case agent.EventToolExecutionStart:
			fmt.Fprintf(out, "\n[%s] running...\n", event.ToolName)
		case agent.EventToolExecutionEnd:
			if event.IsError && event.Result != nil {
				fmt.Fprintf(out, "[%s] failed: %s\n", event.ToolName, resultSummary(event.Result))
			}
		case agent.EventHistoryTrim:
			slog.Info("history trimmed", "before", event.Before, "after", event.After)
		case agent.EventAgentEnd:
			outcome = event.Outcome
			outcomeErr = event.Error
		}
	}
	fmt.Fprintln(out)

	if outcome == agent.OutcomeError && outcomeErr != "" {
		return outcome, fmt.Errorf("%s", outcomeErr)
	}
	return outcome, nil
}

func resultSummary(result *agent.AgentMessage) string {
	text := result.ExtractText()
	const maxLen = 200
	if len(text) > maxLen {
		return text[:maxLen] + "..."
	}
	return text
}
