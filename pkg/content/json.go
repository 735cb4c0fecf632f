package content

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shiksha-ai/study-engine/pkg/models"
)

// CleanJSONFences strips markdown code fences that models wrap around JSON
// output, plus any prose before the first bracket.
func CleanJSONFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Models occasionally add a leading sentence; cut to the outermost
	// JSON container.
	start := strings.IndexAny(cleaned, "[{")
	if start > 0 {
		cleaned = cleaned[start:]
	}
	if len(cleaned) > 0 {
		var end int
		if cleaned[0] == '[' {
			end = strings.LastIndex(cleaned, "]")
		} else {
			end = strings.LastIndex(cleaned, "}")
		}
		if end >= 0 {
			cleaned = cleaned[:end+1]
		}
	}
	return cleaned
}

// decodeMCQList parses a model response into question items, validating the
// minimal shape a question needs to be playable.
func decodeMCQList(text string) ([]models.MCQItem, error) {
	var items []models.MCQItem
	if err := json.Unmarshal([]byte(CleanJSONFences(text)), &items); err != nil {
		return nil, fmt.Errorf("malformed question payload: %w", err)
	}

	valid := items[:0]
	for _, item := range items {
		if item.Question == "" || len(item.Options) < 2 {
			continue
		}
		if item.CorrectAnswer < 0 || item.CorrectAnswer >= len(item.Options) {
			continue
		}
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no usable questions in payload")
	}
	return valid, nil
}

// dedupeMCQ removes questions with exactly identical question text,
// keeping first occurrences in order.
func dedupeMCQ(items []models.MCQItem) []models.MCQItem {
	seen := make(map[string]bool, len(items))
	out := make([]models.MCQItem, 0, len(items))
	for _, item := range items {
		if seen[item.Question] {
			continue
		}
		seen[item.Question] = true
		out = append(out, item)
	}
	return out
}
