package models

// Board identifies an examination board.
type Board string

const (
	BoardCBSE Board = "CBSE"
	BoardBSEB Board = "BSEB"
)

// ClassLevel is a school class ("6" through "12") or the special
// competition track.
type ClassLevel string

const ClassCompetition ClassLevel = "COMPETITION"

// AllBoards lists every supported board.
func AllBoards() []Board {
	return []Board{BoardCBSE, BoardBSEB}
}

// AllClassLevels lists every class level including the competition track.
func AllClassLevels() []ClassLevel {
	return []ClassLevel{"6", "7", "8", "9", "10", "11", "12", ClassCompetition}
}

// StreamsFor returns the streams applicable to a class level. Classes
// without streams get a single empty stream so loops stay uniform.
func StreamsFor(c ClassLevel) []Stream {
	if !c.HasStreams() {
		return []Stream{""}
	}
	return []Stream{StreamScience, StreamCommerce, StreamArts}
}

// HasStreams reports whether the class level splits into academic streams.
// Only classes 11 and 12 do.
func (c ClassLevel) HasStreams() bool {
	return c == "11" || c == "12"
}

// Stream is the academic stream for classes 11 and 12.
type Stream string

const (
	StreamScience  Stream = "Science"
	StreamCommerce Stream = "Commerce"
	StreamArts     Stream = "Arts"
)

// SyllabusMode selects which field family of a content record applies.
type SyllabusMode string

const (
	ModeSchool      SyllabusMode = "SCHOOL"
	ModeCompetition SyllabusMode = "COMPETITION"
)

// Language is the delivery language for generated content.
type Language string

const (
	LanguageEnglish Language = "English"
	LanguageHindi   Language = "Hindi"
)

// Subject is a curriculum subject within a class.
type Subject struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Chapter is a single chapter of a subject's syllabus.
type Chapter struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}
