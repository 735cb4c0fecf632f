package content

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shiksha-ai/study-engine/pkg/llm"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/quota"
	"github.com/shiksha-ai/study-engine/pkg/settings"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

//go:embed syllabus.yaml
var syllabusYAML []byte

type staticSyllabus struct {
	Subjects struct {
		Junior      []models.Subject            `yaml:"junior"`
		Senior      map[string][]models.Subject `yaml:"senior"`
		Competition []models.Subject            `yaml:"competition"`
	} `yaml:"subjects"`
	Chapters map[string][]models.Chapter `yaml:"chapters"`
}

// Syllabus answers "which subjects, which chapters" for every board and
// class. Resolution order for chapters: admin-edited list from the store,
// in-process cache, the built-in static lists, then an AI-generated list.
type Syllabus struct {
	static   staticSyllabus
	store    store.DocumentStore
	client   CompletionClient
	quota    *quota.Controller
	settings settings.Service
	logger   *zap.Logger

	mu    sync.Mutex
	cache map[string][]models.Chapter
}

// NewSyllabus parses the built-in curriculum and wires the fallback chain.
func NewSyllabus(st store.DocumentStore, client CompletionClient, qc *quota.Controller, settingsSvc settings.Service, logger *zap.Logger) (*Syllabus, error) {
	s := &Syllabus{
		store:    st,
		client:   client,
		quota:    qc,
		settings: settingsSvc,
		logger:   logger.Named("syllabus"),
		cache:    make(map[string][]models.Chapter),
	}
	if err := yaml.Unmarshal(syllabusYAML, &s.static); err != nil {
		return nil, fmt.Errorf("failed to parse built-in syllabus: %w", err)
	}
	return s, nil
}

// SubjectsFor lists the subjects taught at a class level.
func (s *Syllabus) SubjectsFor(class models.ClassLevel, stream models.Stream) []models.Subject {
	if class == models.ClassCompetition {
		return s.static.Subjects.Competition
	}
	if class.HasStreams() {
		if subjects, ok := s.static.Subjects.Senior[string(stream)]; ok {
			return subjects
		}
		return s.static.Subjects.Senior[string(models.StreamScience)]
	}
	return s.static.Subjects.Junior
}

// CacheKey builds the cache/custom-list suffix for a chapter lookup.
func CacheKey(board models.Board, class models.ClassLevel, stream models.Stream, subjectName string, language models.Language) string {
	streamKey := ""
	if class.HasStreams() && stream != "" {
		streamKey = "-" + string(stream)
	}
	return fmt.Sprintf("%s-%s%s-%s-%s", board, class, streamKey, subjectName, language)
}

func staticChaptersKey(board models.Board, class models.ClassLevel, stream models.Stream, subjectName string) string {
	streamKey := ""
	if class.HasStreams() && stream != "" {
		streamKey = "-" + string(stream)
	}
	return fmt.Sprintf("%s-%s%s-%s", board, class, streamKey, subjectName)
}

// Chapters returns the chapter list for a subject. Never fails: when every
// source misses and generation errors out, a stub list keeps the
// navigation usable.
func (s *Syllabus) Chapters(ctx context.Context, board models.Board, class models.ClassLevel, stream models.Stream, subject models.Subject, language models.Language) []models.Chapter {
	cacheKey := CacheKey(board, class, stream, subject.Name, language)

	var custom []models.Chapter
	found, err := store.GetTyped(ctx, s.store, store.CustomSyllabusKey(cacheKey), &custom)
	if err != nil {
		s.logger.Warn("Custom syllabus read failed", zap.String("key", cacheKey), zap.Error(err))
	}
	if found && len(custom) > 0 {
		return custom
	}

	s.mu.Lock()
	cached, ok := s.cache[cacheKey]
	s.mu.Unlock()
	if ok {
		return cached
	}

	if chapters, ok := s.static.Chapters[staticChaptersKey(board, class, stream, subject.Name)]; ok {
		s.put(cacheKey, chapters)
		return chapters
	}

	chapters, err := s.generateChapters(ctx, board, class, stream, subject, language)
	if err != nil {
		s.logger.Warn("Chapter generation failed, using stub list",
			zap.String("key", cacheKey), zap.Error(err))
		chapters = stubChapters(subject.Name)
	}
	s.put(cacheKey, chapters)
	return chapters
}

// SaveCustom stores an admin-edited chapter list, overriding every other
// source for that lookup.
func (s *Syllabus) SaveCustom(ctx context.Context, board models.Board, class models.ClassLevel, stream models.Stream, subjectName string, language models.Language, chapters []models.Chapter) error {
	cacheKey := CacheKey(board, class, stream, subjectName, language)
	if err := s.store.SetDocument(ctx, store.CustomSyllabusKey(cacheKey), chapters); err != nil {
		return fmt.Errorf("failed to save custom syllabus: %w", err)
	}
	s.put(cacheKey, chapters)
	return nil
}

func (s *Syllabus) put(key string, chapters []models.Chapter) {
	s.mu.Lock()
	s.cache[key] = chapters
	s.mu.Unlock()
}

func (s *Syllabus) generateChapters(ctx context.Context, board models.Board, class models.ClassLevel, stream models.Stream, subject models.Subject, language models.Language) ([]models.Chapter, error) {
	model := ""
	if current, err := s.settings.Current(ctx); err == nil {
		model = current.AIModel
	}

	prompt := chapterListPrompt(board, class, stream, subject.Name, language)
	text, err := quota.Execute(ctx, s.quota, store.UsageStudent, func(ctx context.Context) (string, error) {
		return s.client.Complete(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: syllabusSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		}, model)
	})
	if err != nil {
		return nil, err
	}

	var specs []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(CleanJSONFences(text)), &specs); err != nil {
		return nil, fmt.Errorf("malformed chapter list: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("empty chapter list")
	}

	chapters := make([]models.Chapter, 0, len(specs))
	for i, spec := range specs {
		chapters = append(chapters, models.Chapter{
			ID:          fmt.Sprintf("ch-%d", i+1),
			Title:       spec.Title,
			Description: spec.Description,
		})
	}
	return chapters, nil
}

func stubChapters(subjectName string) []models.Chapter {
	chapters := make([]models.Chapter, 0, 10)
	for i := 1; i <= 10; i++ {
		chapters = append(chapters, models.Chapter{
			ID:    fmt.Sprintf("ch-%d", i),
			Title: fmt.Sprintf("%s Chapter %d", subjectName, i),
		})
	}
	return chapters
}
