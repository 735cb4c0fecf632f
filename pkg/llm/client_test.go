package llm

import (
	"testing"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, allowed []string) *Client {
	t.Helper()
	c, err := NewClient(&Config{
		Endpoint:      "http://localhost:9999/v1",
		Model:         "llama-3.3-70b-versatile",
		AllowedModels: allowed,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(&Config{Model: "m"}, zap.NewNop()); err == nil {
		t.Error("missing endpoint should fail")
	}
	if _, err := NewClient(&Config{Endpoint: "http://x"}, zap.NewNop()); err == nil {
		t.Error("missing model should fail")
	}
}

func TestResolveModel(t *testing.T) {
	c := newTestClient(t, []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"})

	if got := c.ResolveModel(""); got != "llama-3.3-70b-versatile" {
		t.Errorf("empty request should use default, got %s", got)
	}
	if got := c.ResolveModel("llama-3.1-8b-instant"); got != "llama-3.1-8b-instant" {
		t.Errorf("allowed model rejected, got %s", got)
	}
	if got := c.ResolveModel("gpt-4o"); got != "llama-3.3-70b-versatile" {
		t.Errorf("unknown model should fall back to default, got %s", got)
	}
}

func TestResolveModelOpenList(t *testing.T) {
	c := newTestClient(t, nil)
	if got := c.ResolveModel("anything"); got != "anything" {
		t.Errorf("empty allow-list should accept any model, got %s", got)
	}
}

func TestNewToolDefinition(t *testing.T) {
	def := NewToolDefinition("grantSubscription", "Grant a subscription",
		map[string]ParameterProperty{
			"plan": {Type: "string", Description: "Billing plan", Enum: []string{"WEEKLY", "MONTHLY"}},
		},
		[]string{"plan"})

	props, ok := def.Parameters["properties"].(map[string]any)
	if !ok {
		t.Fatal("properties missing")
	}
	plan, ok := props["plan"].(map[string]any)
	if !ok {
		t.Fatal("plan property missing")
	}
	if plan["type"] != "string" {
		t.Errorf("unexpected type: %v", plan["type"])
	}
	if enum, ok := plan["enum"].([]string); !ok || len(enum) != 2 {
		t.Errorf("enum not preserved: %v", plan["enum"])
	}
}
