package logging

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeConnectionString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "password pair redacted",
			input: "host=db port=5432 password=hunter2 dbname=engine",
			want:  "host=db port=5432 password=" + RedactedText + " dbname=engine",
		},
		{
			name:  "url credentials redacted",
			input: "postgres://engine:s3cret@db:5432/engine",
			want:  "postgres://" + RedactedText + "@" + RedactedText + "/engine",
		},
		{
			name:  "no secrets untouched",
			input: "host=db port=5432 sslmode=disable",
			want:  "host=db port=5432 sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeConnectionString(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	if got := SanitizeError(nil); got != "" {
		t.Errorf("nil error should sanitize to empty, got %q", got)
	}

	err := errors.New("request failed: Bearer eyJhbGciOi.payload.sig rejected by upstream")
	got := SanitizeError(err)
	if strings.Contains(got, "eyJhbGciOi") {
		t.Errorf("bearer token leaked: %q", got)
	}
	if !strings.Contains(got, RedactedText) {
		t.Errorf("expected redaction marker in %q", got)
	}

	err = errors.New("dial postgres://admin:topsecret@db:5432/engine: refused")
	got = SanitizeError(err)
	if strings.Contains(got, "topsecret") {
		t.Errorf("password leaked: %q", got)
	}

	err = errors.New("endpoint returned 401 for api_key=abcdef1234567890")
	got = SanitizeError(err)
	if strings.Contains(got, "abcdef1234567890") {
		t.Errorf("api key leaked: %q", got)
	}
}
