package content

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// Target names the chapter a request is about.
type Target struct {
	Board   models.Board
	Class   models.ClassLevel
	Stream  models.Stream
	Subject models.Subject
	Chapter models.Chapter
}

// Key returns the content key for the target.
func (t Target) Key() Key {
	return NewKey(t.Board, t.Class, t.Stream, t.Subject.Name, t.Chapter.ID)
}

// Resolution is the outcome of a lookup: either resolved content, or a
// signal that AI generation should take over.
type Resolution struct {
	Content         *models.LessonContent
	NeedsGeneration bool
}

// Resolver serves admin-curated content from the store.
type Resolver struct {
	store  store.DocumentStore
	logger *zap.Logger
}

// NewResolver creates a resolver over the given store.
func NewResolver(st store.DocumentStore, logger *zap.Logger) *Resolver {
	return &Resolver{store: st, logger: logger.Named("resolver")}
}

// Record loads the content record for a key. Absent keys and malformed
// stored JSON both come back nil; malformed data is logged.
func (r *Resolver) Record(ctx context.Context, key Key) *models.ContentRecord {
	raw, err := r.store.GetDocument(ctx, key.String())
	if err != nil {
		r.logger.Warn("Content record read failed",
			zap.String("key", key.String()), zap.Error(err))
		return nil
	}
	if raw == nil {
		return nil
	}

	rec := &models.ContentRecord{}
	if err := json.Unmarshal(raw, rec); err != nil {
		r.logger.Warn("Malformed content record, treating as absent",
			zap.String("key", key.String()), zap.Error(err))
		return nil
	}
	return rec
}

// Resolve looks up stored content for the target and type.
//
// Manual MCQ data always pre-empts generation, even under
// forceRegenerate. With forceRegenerate set, every other stored payload is
// skipped so the caller regenerates. A miss on a link-based type is
// terminal (Unavailable content); a miss on a generatable type asks the
// caller to generate.
func (r *Resolver) Resolve(ctx context.Context, t Target, typ models.ContentType, mode models.SyllabusMode, forceRegenerate bool) Resolution {
	rec := r.Record(ctx, t.Key())

	if rec != nil {
		if typ.IsMCQ() && len(rec.ManualMCQ) > 0 {
			lesson := r.newLesson(t, typ)
			lesson.MCQ = rec.ManualMCQ
			lesson.MCQHindi = rec.ManualMCQHindi
			lesson.IsDraft = rec.IsDraft
			return Resolution{Content: lesson}
		}

		if !forceRegenerate {
			if lesson := r.resolveStored(t, typ, mode, rec); lesson != nil {
				return Resolution{Content: lesson}
			}
		}
	}

	if typ.IsLinkBased() {
		lesson := r.newLesson(t, typ)
		lesson.Unavailable = true
		return Resolution{Content: lesson}
	}
	return Resolution{NeedsGeneration: true}
}

// resolveStored maps the record's mode fields onto a lesson for the
// requested type, or nil when the record has nothing for it.
func (r *Resolver) resolveStored(t Target, typ models.ContentType, mode models.SyllabusMode, rec *models.ContentRecord) *models.LessonContent {
	f := rec.Fields(mode)

	var lesson *models.LessonContent
	switch typ {
	case models.PDFFree:
		if f.PDFLink != "" {
			lesson = r.newLesson(t, typ)
			lesson.Link = f.PDFLink
		}
	case models.PDFPremium:
		if f.PDFPremiumLink != "" {
			lesson = r.newLesson(t, typ)
			lesson.Link = f.PDFPremiumLink
		}
	case models.PDFUltra:
		if rec.UltraPDFLink != "" {
			lesson = r.newLesson(t, typ)
			lesson.Link = rec.UltraPDFLink
		}
	case models.NotesImageAI:
		if rec.AIImageLink != "" {
			lesson = r.newLesson(t, typ)
			lesson.Link = rec.AIImageLink
		}
	case models.VideoLecture:
		// Playlist beats the single premium link, which beats the free one.
		switch {
		case len(rec.VideoPlaylist) > 0:
			lesson = r.newLesson(t, typ)
			lesson.Playlist = rec.VideoPlaylist
			lesson.Link = rec.VideoPlaylist[0]
		case rec.PremiumVideoLink != "":
			lesson = r.newLesson(t, typ)
			lesson.Link = rec.PremiumVideoLink
		case rec.FreeVideoLink != "":
			lesson = r.newLesson(t, typ)
			lesson.Link = rec.FreeVideoLink
		}
	case models.NotesSimple:
		// An uploaded PDF outranks stored HTML for the free tier.
		switch {
		case f.PDFLink != "":
			lesson = r.newLesson(t, typ)
			lesson.Link = f.PDFLink
		case f.FreeNotesHTML != "":
			lesson = r.newLesson(t, typ)
			lesson.HTML = f.FreeNotesHTML
		}
	case models.NotesPremium:
		switch {
		case f.PDFPremiumLink != "":
			lesson = r.newLesson(t, typ)
			lesson.Link = f.PDFPremiumLink
		case f.PremiumNotesHTML != "":
			lesson = r.newLesson(t, typ)
			lesson.HTML = f.PremiumNotesHTML
			lesson.PremiumNotesHindi = f.PremiumNotesHindi
			lesson.FreeHTML = f.FreeNotesHTML
		}
	}

	if lesson != nil {
		lesson.IsDraft = rec.IsDraft
	}
	return lesson
}

func (r *Resolver) newLesson(t Target, typ models.ContentType) *models.LessonContent {
	return &models.LessonContent{
		ID:          uuid.NewString(),
		Title:       t.Chapter.Title,
		Subtitle:    t.Chapter.Description,
		Type:        typ,
		SubjectName: t.Subject.Name,
		CreatedAt:   time.Now().UTC(),
	}
}
