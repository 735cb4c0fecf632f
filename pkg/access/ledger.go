package access

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/apperrors"
	"github.com/shiksha-ai/study-engine/pkg/localstate"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// ErrConfirmationRequired signals that a credit deduction needs explicit
// user confirmation and the auto-deduct opt-in is not set.
var ErrConfirmationRequired = errors.New("credit deduction requires confirmation")

// Ledger applies confirmed credit deductions and persists the updated user.
// Balances are client-reported and trusted as-is.
type Ledger struct {
	store  store.DocumentStore
	local  *localstate.State
	logger *zap.Logger
}

// NewLedger creates a ledger. local may be nil to skip the device-local
// current-user cache.
func NewLedger(st store.DocumentStore, local *localstate.State, logger *zap.Logger) *Ledger {
	return &Ledger{store: st, local: local, logger: logger.Named("ledger")}
}

// Charge deducts cost credits from the user and persists the change.
// confirmed must be true unless the user has opted into auto-deduction.
// The user struct is mutated on success.
func (l *Ledger) Charge(ctx context.Context, user *models.User, cost int, confirmed bool) error {
	if cost <= 0 {
		return nil
	}
	if !confirmed && !user.AutoDeduct {
		return ErrConfirmationRequired
	}
	if user.Credits < cost {
		return apperrors.ErrInsufficientCredits
	}

	user.Credits -= cost
	if err := l.persist(ctx, user); err != nil {
		// Roll the in-memory balance back so a retry starts clean.
		user.Credits += cost
		return fmt.Errorf("failed to persist credit deduction: %w", err)
	}

	l.logger.Info("Credits charged",
		zap.String("user_id", user.ID),
		zap.Int("cost", cost),
		zap.Int("balance", user.Credits))
	return nil
}

// EnableAutoDeduct records the user's opt-in to skip future confirmations.
func (l *Ledger) EnableAutoDeduct(ctx context.Context, user *models.User) error {
	if user.AutoDeduct {
		return nil
	}
	user.AutoDeduct = true
	if err := l.persist(ctx, user); err != nil {
		user.AutoDeduct = false
		return fmt.Errorf("failed to persist auto-deduct opt-in: %w", err)
	}
	return nil
}

func (l *Ledger) persist(ctx context.Context, user *models.User) error {
	if err := l.store.SetDocument(ctx, store.UserKey(user.ID), user); err != nil {
		return err
	}
	if l.local != nil {
		if err := l.local.Set(localstate.KeyCurrentUser, user); err != nil {
			l.logger.Warn("Failed to cache current user locally", zap.Error(err))
		}
	}
	return nil
}
