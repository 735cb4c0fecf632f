package localstate

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestSetGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Open(path, zap.NewNop())

	if err := s.Set(KeyDailyStudySeconds, 4200); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var seconds int
	if !s.Get(KeyDailyStudySeconds, &seconds) {
		t.Fatal("value missing after set")
	}
	if seconds != 4200 {
		t.Errorf("got %d", seconds)
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s := Open(path, zap.NewNop())
	_ = s.Set(KeyTermsAccepted, true)
	_ = s.Set(KeyLastSeenVersion, "2.4.0")

	reopened := Open(path, zap.NewNop())
	var accepted bool
	var version string
	if !reopened.Get(KeyTermsAccepted, &accepted) || !accepted {
		t.Error("terms flag lost across reopen")
	}
	if !reopened.Get(KeyLastSeenVersion, &version) || version != "2.4.0" {
		t.Errorf("version lost across reopen, got %q", version)
	}
}

func TestGetAbsent(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "state.json"), zap.NewNop())
	var v string
	if s.Get("missing", &v) {
		t.Error("absent key reported present")
	}
}

func TestDelete(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "state.json"), zap.NewNop())
	_ = s.Set(KeyLastChallengeDate, "2026-03-01")
	s.Delete(KeyLastChallengeDate)

	var v string
	if s.Get(KeyLastChallengeDate, &v) {
		t.Error("deleted key still present")
	}
}

func TestUpdateDismissedKeyIsPerVersion(t *testing.T) {
	if UpdateDismissedKey("1.0") == UpdateDismissedKey("2.0") {
		t.Error("dismissal keys must differ per version")
	}
}
