package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/pkg/clients/anthropic"
)

// ErrAssistantDisabled is returned when no language model is configured.
var ErrAssistantDisabled = errors.New("assistant is not configured")

const assistantSystemPrompt = `You are a helpful livestock farm management assistant.
You are given the farm's current inventory, animals, tasks and alerts as JSON.
Answer the farmer's question using that data. Point out risks and give concrete, short suggestions.`

// Assistant forwards farmer questions, together with the farm context, to a language model.
type Assistant struct {
	reports *Service
	client  anthropic.Client
	logger  *zap.Logger
}

// NewAssistant builds an assistant. A nil client disables it.
func NewAssistant(reports *Service, client anthropic.Client, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{reports: reports, client: client, logger: logger}
}

// Ask answers prompt about the current farm state.
func (a *Assistant) Ask(ctx context.Context, prompt string) (string, error) {
	if a == nil || a.client == nil {
		return "", ErrAssistantDisabled
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}

	snap := a.reports.source.Snapshot()
	farmContext, err := json.Marshal(struct {
		Inventory any     `json:"inventory"`
		Animals   any     `json:"animals"`
		Tasks     any     `json:"tasks"`
		Alerts    []Alert `json:"alerts"`
	}{
		Inventory: snap.Inventory,
		Animals:   snap.Animals,
		Tasks:     snap.Tasks,
		Alerts:    a.reports.Alerts(a.reports.now()),
	})
	if err != nil {
		return "", fmt.Errorf("encode farm context: %w", err)
	}

	system := assistantSystemPrompt + "\n\nFarm data:\n" + string(farmContext)
	reply, err := a.client.Complete(ctx, system, []anthropic.Message{{Role: "user", Content: prompt}})
	if err != nil {
		a.logger.Error("assistant request failed", zap.Error(err))
		return "", err
	}
	return reply, nil
}
