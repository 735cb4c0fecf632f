package config

import "testing"

func TestParseList(t *testing.T) {
	got := parseList("llama-3.3-70b-versatile, llama-3.1-8b-instant ,,")
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", got)
	}
	if got[0] != "llama-3.3-70b-versatile" || got[1] != "llama-3.1-8b-instant" {
		t.Errorf("unexpected entries: %v", got)
	}

	if parseList("") != nil {
		t.Error("empty input should produce nil")
	}
}

func TestConnectionString(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "study",
		Password: "secret",
		Database: "study_engine",
		SSLMode:  "require",
	}
	want := "host=db.internal port=5433 user=study password=secret dbname=study_engine sslmode=require"
	if got := cfg.ConnectionString(); got != want {
		t.Errorf("connection string mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.AI.Endpoint = "https://api.groq.com/openai/v1"
	cfg.AI.Model = "llama-3.3-70b-versatile"
	cfg.Pilot.Concurrency = 3
	if err := cfg.validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg.AI.Model = ""
	if err := cfg.validate(); err == nil {
		t.Error("missing model should fail validation")
	}
}
