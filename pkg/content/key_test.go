package content

import (
	"testing"

	"github.com/shiksha-ai/study-engine/pkg/models"
)

func TestKeyString(t *testing.T) {
	k := NewKey(models.BoardCBSE, "9", "", "Science", "ch-3")
	if got := k.String(); got != "nst_content_CBSE_9_Science_ch-3" {
		t.Errorf("got %q", got)
	}
}

func TestKeyStreamOnlyForSeniorClasses(t *testing.T) {
	senior := NewKey(models.BoardBSEB, "11", models.StreamScience, "Physics", "ch-1")
	if got := senior.String(); got != "nst_content_BSEB_11-Science_Physics_ch-1" {
		t.Errorf("got %q", got)
	}

	// A stream passed for class 9 must not leak into the key.
	junior := NewKey(models.BoardBSEB, "9", models.StreamScience, "Physics", "ch-1")
	if got := junior.String(); got != "nst_content_BSEB_9_Physics_ch-1" {
		t.Errorf("got %q", got)
	}
}

func TestKeyDeterministicAndComparable(t *testing.T) {
	a := NewKey(models.BoardCBSE, "12", models.StreamCommerce, "Accountancy", "ch-5")
	b := NewKey(models.BoardCBSE, "12", models.StreamCommerce, "Accountancy", "ch-5")
	if a != b {
		t.Error("identical inputs must produce equal keys")
	}
	if a.String() != b.String() {
		t.Error("identical keys must render identically")
	}

	c := NewKey(models.BoardCBSE, "12", models.StreamArts, "Accountancy", "ch-5")
	if a == c || a.String() == c.String() {
		t.Error("different streams must produce distinct keys")
	}
}

func TestKeySegmentsCannotCollideAcrossBoundaries(t *testing.T) {
	// Without normalization these two tuples would render identically.
	a := NewKey(models.BoardCBSE, "9", "", "Social_Science", "civics")
	b := NewKey(models.BoardCBSE, "9", "", "Social", "Science_civics")
	if a.String() == b.String() {
		t.Errorf("distinct tuples rendered the same key %q", a.String())
	}

	if got := a.String(); got != "nst_content_CBSE_9_Social-Science_civics" {
		t.Errorf("got %q", got)
	}
}

func TestCompetitionKeyHasNoStream(t *testing.T) {
	k := NewKey(models.BoardCBSE, models.ClassCompetition, models.StreamScience, "GK", "ch-2")
	if got := k.String(); got != "nst_content_CBSE_COMPETITION_GK_ch-2" {
		t.Errorf("got %q", got)
	}
}
