// Package access decides whether a user may open a piece of content and at
// what credit cost.
package access

import (
	"time"

	"github.com/shiksha-ai/study-engine/pkg/models"
)

// Kind is the outcome of an access evaluation.
type Kind string

const (
	GrantedFree           Kind = "GRANTED_FREE"
	GrantedBySubscription Kind = "GRANTED_BY_SUBSCRIPTION"
	GrantedByCredit       Kind = "GRANTED_BY_CREDIT"
	Denied                Kind = "DENIED"
)

// Decision is the result of evaluating a content request.
type Decision struct {
	Kind   Kind   `json:"kind"`
	Cost   int    `json:"cost,omitempty"`   // set for GrantedByCredit
	Reason string `json:"reason,omitempty"` // set for Denied
}

// Granted reports whether the decision allows access.
func (d Decision) Granted() bool { return d.Kind != Denied }

// basicAllowList is the fixed set of content types a BASIC subscription
// covers: notes plus analyzed MCQ, never links or video.
var basicAllowList = map[models.ContentType]bool{
	models.NotesSimple:  true,
	models.NotesPremium: true,
	models.NotesImageAI: true,
	models.MCQAnalysis:  true,
}

// Evaluate applies the access rules in priority order. cost is the
// already-resolved credit cost for the content (record overrides applied).
// The function is pure; persistence of a credit deduction happens in the
// Ledger after the caller confirms.
func Evaluate(user *models.User, contentType models.ContentType, cost int, settings *models.SystemSettings, now time.Time) Decision {
	if user == nil {
		return Decision{Kind: Denied, Reason: "sign in required"}
	}
	if user.IsLocked {
		return Decision{Kind: Denied, Reason: "account is locked"}
	}

	// Admins bypass every gate.
	if user.Role == models.RoleAdmin {
		return Decision{Kind: GrantedFree}
	}

	policy := models.AccessAll
	if settings != nil && settings.AccessTier != "" {
		policy = settings.AccessTier
	}

	// The global free-only switch outranks subscriptions and credits.
	if policy == models.AccessFreeOnly && cost > 0 {
		return Decision{Kind: Denied, Reason: "premium content is currently disabled"}
	}

	if cost == 0 {
		return Decision{Kind: GrantedFree}
	}

	if user.HasValidSubscription(now) {
		if levelCovers(user.EffectiveLevel(), contentType, policy, settings) {
			return Decision{Kind: GrantedBySubscription}
		}
		// An uncovered type falls through to the credit path.
	}

	if user.Credits >= cost {
		return Decision{Kind: GrantedByCredit, Cost: cost}
	}
	return Decision{Kind: Denied, Reason: "insufficient credits"}
}

// levelCovers checks whether a subscription level includes the content
// type. An admin-managed tier permission entry overrides the built-in
// allow-lists; the literal "ALL" grants everything.
func levelCovers(level models.SubscriptionLevel, contentType models.ContentType, policy models.AccessTier, settings *models.SystemSettings) bool {
	if settings != nil && settings.TierPermissions != nil {
		if perms, ok := settings.TierPermissions[level]; ok {
			for _, p := range perms {
				if p == "ALL" || p == string(contentType) {
					return true
				}
			}
			return false
		}
	}

	switch level {
	case models.LevelUltra:
		// FREE_BASIC downgrades ULTRA subscribers to the BASIC set.
		if policy == models.AccessFreeBasic {
			return basicAllowList[contentType]
		}
		return true
	case models.LevelBasic:
		return basicAllowList[contentType]
	}
	return false
}
