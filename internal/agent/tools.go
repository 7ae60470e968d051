package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"fincoach/internal/core"
	"fincoach/internal/engine"
	"fincoach/internal/importer"
)

// toolDefinitions converts the coach's tool surface to Claude API format.
func toolDefinitions() []anthropic.ToolUnionParam {
	defs := []struct {
		name        string
		description string
		properties  map[string]any
		required    []string
	}{
		{
			name:        "get_state",
			description: "Return current profile, missing fields, caps, and whether transactions exist.",
			properties:  map[string]any{},
		},
		{
			name:        "set_profile_field",
			description: "Set or update one profile field.",
			properties: map[string]any{
				"field": map[string]any{"type": "string"},
				"value": map[string]any{"type": []string{"string", "number", "boolean"}},
			},
			required: []string{"field", "value"},
		},
		{
			name:        "set_cap",
			description: "Create or update a weekly spending cap for a category.",
			properties: map[string]any{
				"category": map[string]any{"type": "string"},
				"weekly":   map[string]any{"type": "number"},
			},
			required: []string{"category", "weekly"},
		},
		{
			name:        "set_caps_bulk",
			description: "Create or update multiple weekly caps.",
			properties: map[string]any{
				"items": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"category": map[string]any{"type": "string"},
							"weekly":   map[string]any{"type": "number"},
						},
						"required": []string{"category", "weekly"},
					},
				},
			},
			required: []string{"items"},
		},
		{
			name:        "list_caps",
			description: "List all active weekly caps.",
			properties:  map[string]any{},
		},
		{
			name:        "analyze",
			description: "Analyze using transactions if present; else profile; include active caps.",
			properties:  map[string]any{},
		},
		{
			name:        "reset_state",
			description: "Clear memory for this session.",
			properties:  map[string]any{},
		},
		{
			name:        "load_demo_data",
			description: "Load built-in sample transactions for this session.",
			properties:  map[string]any{},
		},
	}

	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.name,
				Description: anthropic.String(d.description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: d.properties,
					Required:   d.required,
				},
			},
		})
	}
	return tools
}

// dispatch runs one tool call against the session and returns the JSON
// payload handed back to the model. Tool-level failures are reported in
// the payload, not as errors; an error here means storage failed.
func (c *Coach) dispatch(ctx context.Context, sid, name string, input json.RawMessage) (any, error) {
	switch name {
	case "get_state":
		return c.toolGetState(ctx, sid)
	case "set_profile_field":
		var args struct {
			Field string `json:"field"`
			Value any    `json:"value"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return map[string]any{"ok": false, "error": "bad arguments"}, nil
		}
		return c.toolSetProfileField(ctx, sid, args.Field, args.Value)
	case "set_cap":
		var args struct {
			Category string  `json:"category"`
			Weekly   float64 `json:"weekly"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return map[string]any{"ok": false, "error": "bad arguments"}, nil
		}
		if err := c.store.SetCap(ctx, sid, args.Category, args.Weekly); err != nil {
			return nil, err
		}
		return c.capsResult(ctx, sid, true)
	case "set_caps_bulk":
		var args struct {
			Items []struct {
				Category string  `json:"category"`
				Weekly   float64 `json:"weekly"`
			} `json:"items"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return map[string]any{"ok": false, "error": "bad arguments"}, nil
		}
		caps := make([]core.Cap, 0, len(args.Items))
		for _, item := range args.Items {
			caps = append(caps, core.Cap{Category: item.Category, Weekly: item.Weekly})
		}
		if err := c.store.SetCaps(ctx, sid, caps); err != nil {
			return nil, err
		}
		return c.capsResult(ctx, sid, true)
	case "list_caps":
		return c.capsResult(ctx, sid, false)
	case "analyze":
		return c.toolAnalyze(ctx, sid)
	case "reset_state":
		if err := c.store.ClearSession(ctx, sid); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, nil
	case "load_demo_data":
		count, err := c.LoadDemoData(ctx, sid)
		if err != nil {
			return nil, err
		}
		return map[string]any{"ok": true, "count": count}, nil
	default:
		return map[string]any{"error": "unknown tool"}, nil
	}
}

func (c *Coach) toolGetState(ctx context.Context, sid string) (any, error) {
	values, err := c.store.LoadProfile(ctx, sid)
	if err != nil {
		return nil, err
	}
	txns, err := c.store.ListTransactions(ctx, sid)
	if err != nil {
		return nil, err
	}
	caps, err := c.store.ListCaps(ctx, sid)
	if err != nil {
		return nil, err
	}

	missing := make([]map[string]any, 0)
	for _, f := range core.MissingFields(values) {
		missing = append(missing, map[string]any{
			"field":  f.Key,
			"prompt": f.Prompt,
			"type":   string(f.Kind),
		})
	}

	return map[string]any{
		"profile":          values,
		"missing":          missing,
		"has_transactions": len(txns) > 0,
		"caps":             capsPayload(caps),
	}, nil
}

func (c *Coach) toolSetProfileField(ctx context.Context, sid, field string, value any) (any, error) {
	def, ok := core.ProfileFieldByKey(field)
	if !ok {
		return map[string]any{"ok": false, "error": fmt.Sprintf("Unknown field %s", field)}, nil
	}

	switch def.Kind {
	case core.FieldBoolean:
		v := core.ParseBool(valueString(value))
		if err := c.store.SaveProfileField(ctx, sid, field, strconv.FormatBool(v)); err != nil {
			return nil, err
		}
		// No debt means no EMI to track.
		if !v {
			if err := c.store.SaveProfileField(ctx, sid, "monthly_emi", "0"); err != nil {
				return nil, err
			}
		}
	case core.FieldNumber:
		s := strings.ReplaceAll(valueString(value), ",", "")
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return map[string]any{"ok": false, "error": "Expected a number"}, nil
		}
		if err := c.store.SaveProfileField(ctx, sid, field, strconv.FormatFloat(v, 'f', -1, 64)); err != nil {
			return nil, err
		}
	default:
		if err := c.store.SaveProfileField(ctx, sid, field, valueString(value)); err != nil {
			return nil, err
		}
	}

	values, err := c.store.LoadProfile(ctx, sid)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ok": true, "profile": values}, nil
}

func (c *Coach) toolAnalyze(ctx context.Context, sid string) (any, error) {
	values, err := c.store.LoadProfile(ctx, sid)
	if err != nil {
		return nil, err
	}
	txns, err := c.store.ListTransactions(ctx, sid)
	if err != nil {
		return nil, err
	}
	caps, err := c.store.ListCaps(ctx, sid)
	if err != nil {
		return nil, err
	}

	var advice core.Advice
	if len(txns) > 0 {
		advice = engine.AdviseFromTransactions(txns, core.ParseNumber(values["starting_balance"]), caps, c.currency)
	} else {
		advice = engine.AdviseFromProfile(core.ProfileFromValues(values), caps, c.currency)
	}

	return advicePayload(advice), nil
}

// LoadDemoData imports the built-in sample statement into the session
// and returns the number of rows stored.
func (c *Coach) LoadDemoData(ctx context.Context, sid string) (int, error) {
	rows, err := importer.Parse(importer.DemoCSV)
	if err != nil {
		return 0, fmt.Errorf("parse demo statement: %w", err)
	}
	txns := importer.Enrich(rows)
	if err := c.store.ReplaceTransactions(ctx, sid, txns); err != nil {
		return 0, fmt.Errorf("store demo transactions: %w", err)
	}
	return len(txns), nil
}

func (c *Coach) capsResult(ctx context.Context, sid string, withOK bool) (any, error) {
	caps, err := c.store.ListCaps(ctx, sid)
	if err != nil {
		return nil, err
	}
	result := map[string]any{"caps": capsPayload(caps)}
	if withOK {
		result["ok"] = true
	}
	return result, nil
}

func capsPayload(caps []core.Cap) []map[string]any {
	payload := make([]map[string]any, 0, len(caps))
	for _, c := range caps {
		payload = append(payload, map[string]any{"category": c.Category, "weekly": c.Weekly})
	}
	return payload
}

func advicePayload(a core.Advice) map[string]any {
	actions := make([]map[string]any, 0, len(a.Actions))
	for _, act := range a.Actions {
		m := map[string]any{"title": act.Title, "detail": act.Detail}
		if act.CTA != "" {
			m["cta"] = act.CTA
		}
		actions = append(actions, m)
	}

	payload := map[string]any{
		"summary": a.Summary,
		"actions": actions,
	}
	if len(a.Top3) > 0 {
		top := make([]map[string]any, 0, len(a.Top3))
		for _, t := range a.Top3 {
			top = append(top, map[string]any{"category": t.Category, "total": t.Total})
		}
		payload["top3"] = top
	}
	return payload
}

func valueString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
