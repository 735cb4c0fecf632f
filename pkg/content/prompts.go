package content

import (
	"fmt"
	"strings"

	"github.com/shiksha-ai/study-engine/pkg/models"
)

// Dual-generation delimiters. The model is asked to emit both variants in
// one response; splitDualOutput tolerates their absence.
const (
	premiumMarker = "<<<PREMIUM>>>"
	summaryMarker = "<<<SUMMARY>>>"

	missingSummaryPlaceholder = "Summary not generated."
)

const syllabusSystemPrompt = "You are a curriculum planner for Indian school boards. " +
	"Respond with pure JSON only, no markdown, no commentary."

const notesSystemPrompt = "You are an expert teacher writing study material for Indian school students. " +
	"Respond with clean HTML using h2, h3, p, ul, li, b and table tags only. No markdown."

const mcqSystemPrompt = "You are an exam question setter for Indian school boards. " +
	"Respond with pure JSON only, no markdown, no commentary."

const defaultFreeNotesTemplate = "Write concise revision notes in {language} for the chapter \"{chapter}\" " +
	"({subject}, class {class}, {board} board). Cover the key points a student must remember, " +
	"with short definitions and one example per concept."

const defaultPremiumNotesTemplate = "Write detailed, exam-oriented study notes in {language} for the chapter " +
	"\"{chapter}\" ({subject}, class {class}, {board} board). Include: every concept explained step by step, " +
	"solved examples, common mistakes, memory tricks, and a quick revision table at the end."

const defaultCompetitionNotesTemplate = "Write advanced competition-level notes in {language} for the topic " +
	"\"{chapter}\" ({subject}). Target competitive exam aspirants: go beyond the school syllabus, include " +
	"shortcuts, previous-year question patterns and tricky conceptual points."

const defaultMCQTemplate = "Create {count} multiple-choice questions in {language} on the chapter \"{chapter}\" " +
	"({subject}, class {class}, {board} board). Each question needs exactly 4 options, the zero-based index of " +
	"the correct option, a one-line explanation, a short mnemonic, and the concept it tests. " +
	"Return a JSON array of objects with keys: question, options, correctAnswer, explanation, mnemonic, concept."

const translationTemplate = "Translate the following HTML study notes to Hindi. Keep every HTML tag and the " +
	"structure exactly as-is; translate only the visible text.\n\n%s"

const customNotesTemplate = "Write complete study notes in {language} on the topic \"{chapter}\" for a class " +
	"{class} student. Structure them with headings, explanations and examples."

const insightSystemPrompt = "You are an AI mentor reviewing student study activity. " +
	"Respond with a single valid JSON object and nothing else."

const morningInsightTemplate = "The JSON below lists recent test activity across all students. Identify common " +
	"patterns and struggle areas, then write a morning insight banner as a JSON object with keys: " +
	"title, wisdom (a short motivational quote or deep fact about study patterns), " +
	"commonTrap (the one subject or topic students struggled with most), " +
	"proTip (one specific actionable tip), motivation (one punchy line to start the day).\n\nLOGS:\n%s"

const ultraAnalysisTemplate = "A student completed a test. Analyze this performance data and return a JSON object " +
	"with keys: overallSummary (string), strengths (array of strings), weaknesses (array of strings), " +
	"chapterWisePlan (array of {chapter, advice}), motivationalNote (string).\n\nPerformance data:\n%s"

// dualWrapper asks for both variants in a single completion.
const dualWrapper = "Produce TWO versions of study notes for the same chapter in one response.\n" +
	"First output the line %s followed by the detailed premium version.\n" +
	"Then output the line %s followed by a short free summary (under 300 words).\n\n%s"

// templateVars fills a prompt template's placeholders.
func renderTemplate(tpl string, t Target, language models.Language, count int) string {
	return strings.NewReplacer(
		"{chapter}", t.Chapter.Title,
		"{subject}", t.Subject.Name,
		"{class}", string(t.Class),
		"{board}", string(t.Board),
		"{language}", string(language),
		"{count}", fmt.Sprintf("%d", count),
	).Replace(tpl)
}

func chapterListPrompt(board models.Board, class models.ClassLevel, stream models.Stream, subjectName string, language models.Language) string {
	scope := fmt.Sprintf("class %s", class)
	if class == models.ClassCompetition {
		scope = "competitive exam preparation"
	} else if class.HasStreams() && stream != "" {
		scope = fmt.Sprintf("class %s (%s stream)", class, stream)
	}
	return fmt.Sprintf(
		"List the chapters of the official %s %s syllabus for %s, in order, in %s. "+
			"Return a JSON array of objects with keys: title, description (one line).",
		board, subjectName, scope, language)
}

// splitDualOutput separates a dual-generation response into premium and
// summary variants. A response without markers is treated as premium-only.
func splitDualOutput(text string) (premium, summary string) {
	pIdx := strings.Index(text, premiumMarker)
	sIdx := strings.Index(text, summaryMarker)

	if pIdx < 0 || sIdx < 0 || sIdx < pIdx {
		return strings.TrimSpace(text), missingSummaryPlaceholder
	}

	premium = strings.TrimSpace(text[pIdx+len(premiumMarker) : sIdx])
	summary = strings.TrimSpace(text[sIdx+len(summaryMarker):])
	if summary == "" {
		summary = missingSummaryPlaceholder
	}
	if premium == "" {
		premium = strings.TrimSpace(text)
	}
	return premium, summary
}
