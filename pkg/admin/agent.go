package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/llm"
	"github.com/shiksha-ai/study-engine/pkg/settings"
)

const agentSystemPrompt = "You are the operations assistant for an education platform. " +
	"You act on the administrator's natural-language commands by calling the provided tools. " +
	"Confirm what you did in one or two plain sentences. If a command is ambiguous, ask for the " +
	"missing detail instead of guessing. Never invent user ids."

const safetyLockRefusal = "The AI safety lock is engaged, so I cannot run any commands right now. " +
	"Disable the safety lock in system settings first."

// recentContextSize is how many past exchanges are replayed to the model.
const recentContextSize = 5

// ToolClient runs a tool-calling conversation to completion.
type ToolClient interface {
	RunToolLoop(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, executor llm.ToolExecutor, model string) (string, error)
}

// Agent translates admin commands into registry actions via the model's
// tool calling.
type Agent struct {
	registry *Registry
	client   ToolClient
	settings settings.Service
	logger   *zap.Logger
}

// NewAgent wires the admin agent.
func NewAgent(registry *Registry, client ToolClient, settingsSvc settings.Service, logger *zap.Logger) *Agent {
	return &Agent{
		registry: registry,
		client:   client,
		settings: settingsSvc,
		logger:   logger.Named("agent"),
	}
}

// Process executes one admin command and returns the agent's answer. The
// exchange is logged to the shared interaction log.
func (a *Agent) Process(ctx context.Context, command string) (string, error) {
	if a.settings.SafetyLockEngaged(ctx) {
		a.logger.Warn("Agent command refused, safety lock engaged")
		return safetyLockRefusal, nil
	}

	s, err := a.settings.Current(ctx)
	if err != nil {
		return "", fmt.Errorf("settings unavailable: %w", err)
	}

	messages := []llm.Message{{
		Role: llm.RoleSystem,
		Content: agentSystemPrompt +
			"\nToday is " + time.Now().UTC().Format("Monday, 2 January 2006") + ".",
	}}

	if history := a.recentContext(ctx); history != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: "Recent exchanges for context:\n" + history,
		})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: command})

	answer, err := a.client.RunToolLoop(ctx, messages, a.registry.Tools(), a.registry, s.AIModel)
	if err != nil {
		return "", err
	}

	if logErr := a.registry.LogInteraction(ctx, Interaction{
		Command:  command,
		Response: answer,
		At:       time.Now().UTC(),
	}); logErr != nil {
		a.logger.Warn("Failed to log agent interaction", zap.Error(logErr))
	}
	return answer, nil
}

func (a *Agent) recentContext(ctx context.Context) string {
	log, err := a.registry.RecentLogs(ctx, recentContextSize)
	if err != nil || len(log) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, entry := range log {
		fmt.Fprintf(&sb, "Admin: %s\nYou: %s\n", entry.Command, entry.Response)
	}
	return sb.String()
}
