package models

import "time"

// Role distinguishes administrators from students.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStudent Role = "STUDENT"
)

// SubscriptionLevel is the paid tier of a user.
type SubscriptionLevel string

const (
	LevelFree  SubscriptionLevel = "FREE"
	LevelBasic SubscriptionLevel = "BASIC"
	LevelUltra SubscriptionLevel = "ULTRA"
)

// SubscriptionPlan is the billing period of a subscription grant.
type SubscriptionPlan string

const (
	PlanWeekly   SubscriptionPlan = "WEEKLY"
	PlanMonthly  SubscriptionPlan = "MONTHLY"
	PlanYearly   SubscriptionPlan = "YEARLY"
	PlanLifetime SubscriptionPlan = "LIFETIME"
)

// Duration returns the plan's validity period. Lifetime plans use a
// hundred-year horizon rather than a sentinel date.
func (p SubscriptionPlan) Duration() time.Duration {
	switch p {
	case PlanWeekly:
		return 7 * 24 * time.Hour
	case PlanMonthly:
		return 30 * 24 * time.Hour
	case PlanYearly:
		return 365 * 24 * time.Hour
	case PlanLifetime:
		return 100 * 365 * 24 * time.Hour
	}
	return 0
}

// InboxMessage is a message delivered to a single user's inbox.
type InboxMessage struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Type string    `json:"type,omitempty"`
	Date time.Time `json:"date"`
	Read bool      `json:"read"`
}

// SubscriptionEvent records one grant or expiry in a user's history.
type SubscriptionEvent struct {
	Plan      SubscriptionPlan  `json:"plan"`
	Level     SubscriptionLevel `json:"level"`
	GrantedAt time.Time         `json:"grantedAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
	GrantedBy string            `json:"grantedBy,omitempty"`
}

// User is the stored account document.
type User struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Role              Role              `json:"role"`
	Credits           int               `json:"credits"`
	IsPremium         bool              `json:"isPremium"`
	SubscriptionLevel SubscriptionLevel `json:"subscriptionLevel,omitempty"`
	SubscriptionPlan  SubscriptionPlan  `json:"subscriptionTier,omitempty"`
	SubscriptionEnd   *time.Time        `json:"subscriptionEndDate,omitempty"`
	IsLocked          bool              `json:"isLocked,omitempty"`
	AutoDeduct        bool              `json:"isAutoDeductEnabled,omitempty"`
	LastActive        *time.Time        `json:"lastActiveTime,omitempty"`

	Inbox   []InboxMessage      `json:"inbox,omitempty"`
	History []SubscriptionEvent `json:"subscriptionHistory,omitempty"`
}

// HasValidSubscription reports whether the user holds an unexpired paid
// subscription at the given instant. Premium flags on an expired
// subscription do not count.
func (u *User) HasValidSubscription(now time.Time) bool {
	if u == nil || !u.IsPremium {
		return false
	}
	if u.SubscriptionEnd == nil {
		return true
	}
	return now.Before(*u.SubscriptionEnd)
}

// EffectiveLevel returns the subscription level, defaulting legacy premium
// users without an explicit level to ULTRA.
func (u *User) EffectiveLevel() SubscriptionLevel {
	if u.SubscriptionLevel == "" {
		if u.IsPremium {
			return LevelUltra
		}
		return LevelFree
	}
	return u.SubscriptionLevel
}
