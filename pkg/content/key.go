// Package content resolves and generates per-chapter study material.
package content

import (
	"fmt"
	"strings"

	"github.com/shiksha-ai/study-engine/pkg/models"
)

// Key identifies one chapter's content record. Keys are comparable values;
// two keys for the same chapter are equal.
type Key struct {
	Board   models.Board
	Class   models.ClassLevel
	Stream  models.Stream
	Subject string
	Chapter string
}

// NewKey builds a content key. The stream is dropped for class levels that
// do not split into streams, so callers cannot produce divergent keys for
// the same chapter. Subject and chapter segments are normalized so the
// rendered key stays injective: the "_" separator cannot appear inside a
// segment, and hyphens stand in for it.
func NewKey(board models.Board, class models.ClassLevel, stream models.Stream, subject, chapterID string) Key {
	if !class.HasStreams() {
		stream = ""
	}
	return Key{
		Board:   board,
		Class:   class,
		Stream:  stream,
		Subject: keySegment(subject),
		Chapter: keySegment(chapterID),
	}
}

// keySegment strips the key separator from a free-form identifier.
func keySegment(s string) string {
	return strings.ReplaceAll(s, "_", "-")
}

// String renders the storage key:
// nst_content_<board>_<class>[-<stream>]_<subject>_<chapterID>.
func (k Key) String() string {
	class := string(k.Class)
	if k.Class.HasStreams() && k.Stream != "" {
		class += "-" + string(k.Stream)
	}
	return fmt.Sprintf("nst_content_%s_%s_%s_%s", k.Board, class, k.Subject, k.Chapter)
}
