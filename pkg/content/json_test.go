package content

import (
	"testing"

	"github.com/shiksha-ai/study-engine/pkg/models"
)

func TestCleanJSONFences(t *testing.T) {
	cases := map[string]string{
		"```json\n[1,2]\n```":            "[1,2]",
		"```\n{\"a\":1}\n```":            "{\"a\":1}",
		"Here is the list:\n[1,2,3]":     "[1,2,3]",
		"[1,2]\nHope this helps!":        "[1,2]",
		"{\"a\":1}":                      "{\"a\":1}",
	}
	for in, want := range cases {
		if got := CleanJSONFences(in); got != want {
			t.Errorf("CleanJSONFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeMCQListDropsInvalid(t *testing.T) {
	payload := `[
		{"question":"Q1","options":["a","b","c","d"],"correctAnswer":2},
		{"question":"","options":["a","b"],"correctAnswer":0},
		{"question":"Q3","options":["a","b"],"correctAnswer":5},
		{"question":"Q4","options":["a","b","c","d"],"correctAnswer":0,"explanation":"e"}
	]`
	items, err := decodeMCQList(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 valid items, got %d", len(items))
	}
	if items[0].Question != "Q1" || items[1].Question != "Q4" {
		t.Errorf("wrong survivors: %+v", items)
	}
}

func TestDecodeMCQListRejectsGarbage(t *testing.T) {
	if _, err := decodeMCQList("not json at all"); err == nil {
		t.Error("garbage should fail")
	}
	if _, err := decodeMCQList(`[{"question":"","options":[]}]`); err == nil {
		t.Error("all-invalid payload should fail")
	}
}

func TestDedupeMCQKeepsFirstOccurrence(t *testing.T) {
	items := []models.MCQItem{
		{Question: "What is force?", Explanation: "first"},
		{Question: "What is work?"},
		{Question: "What is force?", Explanation: "second"},
	}
	out := dedupeMCQ(items)
	if len(out) != 2 {
		t.Fatalf("expected 2, got %d", len(out))
	}
	if out[0].Explanation != "first" {
		t.Error("dedupe must keep the first occurrence")
	}
}

func TestSplitDualOutput(t *testing.T) {
	premium, summary := splitDualOutput("<<<PREMIUM>>>\n<p>deep</p>\n<<<SUMMARY>>>\n<p>short</p>")
	if premium != "<p>deep</p>" || summary != "<p>short</p>" {
		t.Errorf("got premium=%q summary=%q", premium, summary)
	}
}

func TestSplitDualOutputMissingMarkers(t *testing.T) {
	premium, summary := splitDualOutput("<p>just one version</p>")
	if premium != "<p>just one version</p>" {
		t.Errorf("whole text should become premium, got %q", premium)
	}
	if summary != missingSummaryPlaceholder {
		t.Errorf("expected placeholder summary, got %q", summary)
	}
}

func TestSplitDualOutputEmptySummary(t *testing.T) {
	_, summary := splitDualOutput("<<<PREMIUM>>>deep<<<SUMMARY>>>   ")
	if summary != missingSummaryPlaceholder {
		t.Errorf("blank summary should use placeholder, got %q", summary)
	}
}
