// Package agent implements the conversational coach: a Claude tool loop
// over the session store and the recommendation engine.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"fincoach/internal/core"
)

const systemPrompt = `You are FinCoach, an Indian-rupee-focused financial coach with full conversational control. Always format money as ₹ with Indian-style thousand separators. Proactively lead the conversation to collect missing data and set budgets. Use tools to: get_state, set_profile_field, set_cap, set_caps_bulk, list_caps, analyze, reset_state, load_demo_data. If the user says "set weekly caps", choose sensible categories and call the tools to save those caps. Prefer transaction-based analysis if transactions exist; otherwise use profile fields. Never invent numbers. Respond in clean Markdown with headings, bullets, and bold key figures. End with up to three clear next steps.`

const (
	disabledReply  = "LLM is disabled (missing ANTHROPIC_API_KEY). Use **Sample Data**, then type **Advice** for a fixed analysis."
	exhaustedReply = "Updated. Ask for **Advice** or say **Start** to continue."

	maxResponseTokens = 2048
)

var sampleRequest = regexp.MustCompile(`\bsample\b`)

// Store is the persistence surface the coach needs.
type Store interface {
	LoadProfile(ctx context.Context, sid string) (map[string]string, error)
	SaveProfileField(ctx context.Context, sid, key, value string) error
	ReplaceTransactions(ctx context.Context, sid string, txns []core.Transaction) error
	ListTransactions(ctx context.Context, sid string) ([]core.Transaction, error)
	SetCap(ctx context.Context, sid, category string, weekly float64) error
	SetCaps(ctx context.Context, sid string, caps []core.Cap) error
	ListCaps(ctx context.Context, sid string) ([]core.Cap, error)
	AppendHistory(ctx context.Context, sid, role, content string) error
	ListHistory(ctx context.Context, sid string, limit int) ([]core.ChatMessage, error)
	ClearSession(ctx context.Context, sid string) error
}

type Config struct {
	APIKey       string
	Model        string
	MaxRounds    int
	HistoryLimit int
	Currency     core.Formatter
}

// Coach drives the chat. With no API key configured it degrades to a
// canned reply so the demo flow still works offline.
type Coach struct {
	client       *anthropic.Client
	store        Store
	model        string
	maxRounds    int
	historyLimit int
	currency     core.Formatter
}

func New(cfg Config, store Store) *Coach {
	c := &Coach{
		store:        store,
		model:        cfg.Model,
		maxRounds:    cfg.MaxRounds,
		historyLimit: cfg.HistoryLimit,
		currency:     cfg.Currency,
	}
	if cfg.APIKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
		c.client = &client
	}
	return c
}

// Enabled reports whether a model is configured.
func (c *Coach) Enabled() bool {
	return c.client != nil
}

// Respond handles one user message: records it, runs the tool loop and
// records the reply.
func (c *Coach) Respond(ctx context.Context, sid, userText string) (string, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		userText = "hi"
	}

	// "sample" anywhere in the message loads the demo statement, so
	// the coach has data to analyze even before the model replies.
	if sampleRequest.MatchString(strings.ToLower(userText)) {
		if _, err := c.LoadDemoData(ctx, sid); err != nil {
			return "", err
		}
	}

	history, err := c.store.ListHistory(ctx, sid, c.historyLimit)
	if err != nil {
		return "", err
	}

	if err := c.store.AppendHistory(ctx, sid, "user", userText); err != nil {
		return "", err
	}

	if c.client == nil {
		if err := c.store.AppendHistory(ctx, sid, "assistant", disabledReply); err != nil {
			return "", err
		}
		return disabledReply, nil
	}

	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userText)))

	reply, err := c.runToolLoop(ctx, sid, messages)
	if err != nil {
		return "", err
	}

	if err := c.store.AppendHistory(ctx, sid, "assistant", reply); err != nil {
		return "", err
	}
	return reply, nil
}

func (c *Coach) runToolLoop(ctx context.Context, sid string, messages []anthropic.MessageParam) (string, error) {
	tools := toolDefinitions()

	for round := 0; round < c.maxRounds; round++ {
		resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: maxResponseTokens,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages:  messages,
			Tools:     tools,
		})
		if err != nil {
			return "", fmt.Errorf("call model: %w", err)
		}

		messages = append(messages, resp.ToParam())

		var toolResults []anthropic.ContentBlockParamUnion
		for _, block := range resp.Content {
			variant, ok := block.AsAny().(anthropic.ToolUseBlock)
			if !ok {
				continue
			}

			slog.InfoContext(ctx, "Coach tool call",
				"session_id", sid,
				"tool", variant.Name)

			out, err := c.dispatch(ctx, sid, variant.Name, json.RawMessage(variant.JSON.Input.Raw()))
			if err != nil {
				return "", fmt.Errorf("tool %s: %w", variant.Name, err)
			}
			body, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("marshal tool result: %w", err)
			}
			toolResults = append(toolResults, anthropic.NewToolResultBlock(variant.ID, string(body), false))
		}

		if len(toolResults) == 0 {
			return replyText(resp), nil
		}
		messages = append(messages, anthropic.NewUserMessage(toolResults...))
	}

	return exhaustedReply, nil
}

func replyText(resp *anthropic.Message) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "…"
	}
	// The model occasionally slips into the wrong currency symbol.
	return strings.ReplaceAll(out, "₦", "₹")
}
