package access

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/apperrors"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

func TestChargeDeductsAndPersists(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	ledger := NewLedger(mem, nil, zap.NewNop())

	user := &models.User{ID: "u1", Credits: 10}
	if err := ledger.Charge(ctx, user, 4, true); err != nil {
		t.Fatalf("charge failed: %v", err)
	}
	if user.Credits != 6 {
		t.Errorf("balance not deducted: %d", user.Credits)
	}

	var stored models.User
	found, err := store.GetTyped(ctx, mem, store.UserKey("u1"), &stored)
	if err != nil || !found {
		t.Fatalf("user not persisted: %v", err)
	}
	if stored.Credits != 6 {
		t.Errorf("persisted balance %d", stored.Credits)
	}
}

func TestChargeRequiresConfirmation(t *testing.T) {
	ledger := NewLedger(store.NewMemory(), nil, zap.NewNop())
	user := &models.User{ID: "u1", Credits: 10}

	err := ledger.Charge(context.Background(), user, 4, false)
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Errorf("expected confirmation gate, got %v", err)
	}
	if user.Credits != 10 {
		t.Errorf("unconfirmed charge changed the balance: %d", user.Credits)
	}
}

func TestChargeAutoDeductSkipsConfirmation(t *testing.T) {
	ledger := NewLedger(store.NewMemory(), nil, zap.NewNop())
	user := &models.User{ID: "u1", Credits: 10, AutoDeduct: true}

	if err := ledger.Charge(context.Background(), user, 4, false); err != nil {
		t.Errorf("auto-deduct user should not need confirmation: %v", err)
	}
	if user.Credits != 6 {
		t.Errorf("balance %d", user.Credits)
	}
}

func TestChargeInsufficientCredits(t *testing.T) {
	ledger := NewLedger(store.NewMemory(), nil, zap.NewNop())
	user := &models.User{ID: "u1", Credits: 2}

	err := ledger.Charge(context.Background(), user, 5, true)
	if !errors.Is(err, apperrors.ErrInsufficientCredits) {
		t.Errorf("expected insufficient credits, got %v", err)
	}
}

func TestChargeZeroCostNoop(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	ledger := NewLedger(mem, nil, zap.NewNop())
	user := &models.User{ID: "u1", Credits: 2}

	if err := ledger.Charge(ctx, user, 0, false); err != nil {
		t.Errorf("zero cost should be a no-op: %v", err)
	}
	if keys, _ := mem.ListKeys(ctx, store.UserKeyPrefix()); len(keys) != 0 {
		t.Error("zero-cost charge should not write")
	}
}

func TestEnableAutoDeduct(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	ledger := NewLedger(mem, nil, zap.NewNop())
	user := &models.User{ID: "u1"}

	if err := ledger.EnableAutoDeduct(ctx, user); err != nil {
		t.Fatalf("opt-in failed: %v", err)
	}
	if !user.AutoDeduct {
		t.Error("flag not set")
	}

	var stored models.User
	if found, _ := store.GetTyped(ctx, mem, store.UserKey("u1"), &stored); !found || !stored.AutoDeduct {
		t.Error("opt-in not persisted")
	}
}
