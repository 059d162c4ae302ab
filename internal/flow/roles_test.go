package flow

import (
	"context"
	"testing"

	"github.com/BTreeMap/DMPipe/internal/models"
	"github.com/BTreeMap/DMPipe/internal/store"
)

func TestResolveOwnerIntentPreLaunch(t *testing.T) {
	st := store.NewInMemoryStore()
	r := NewRoleResolver(st)

	role, err := r.Resolve(context.Background(), "u1", "I want to connect my business", false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if role != models.RoleOwner {
		t.Errorf("expected owner, got %s", role)
	}
}

func TestResolveCustomerIntentPreLaunch(t *testing.T) {
	st := store.NewInMemoryStore()
	r := NewRoleResolver(st)

	role, err := r.Resolve(context.Background(), "u1", "how much is a session?", false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if role != models.RoleCustomer {
		t.Errorf("expected customer, got %s", role)
	}
}

func TestResolveAmbiguousPreLaunchDefaultsToOwner(t *testing.T) {
	st := store.NewInMemoryStore()
	r := NewRoleResolver(st)

	role, err := r.Resolve(context.Background(), "u1", "hello there", false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if role != models.RoleOwner {
		t.Errorf("expected ambiguous pre-launch sender to resolve as owner, got %s", role)
	}
}

func TestResolveInstalledDefaultsToCustomer(t *testing.T) {
	st := store.NewInMemoryStore()
	r := NewRoleResolver(st)

	role, err := r.Resolve(context.Background(), "u1", "I want to connect my business", true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if role != models.RoleCustomer {
		t.Errorf("expected installed default customer, got %s", role)
	}
}

func TestResolveRoleIsSticky(t *testing.T) {
	st := store.NewInMemoryStore()
	r := NewRoleResolver(st)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "u1", "we are a studio, set up the bot", false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first != models.RoleOwner {
		t.Fatalf("expected owner, got %s", first)
	}

	// Strong customer wording and a flipped installed flag must not change
	// the recorded role.
	second, err := r.Resolve(ctx, "u1", "what is the price for a booking?", true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if second != models.RoleOwner {
		t.Errorf("expected sticky owner role, got %s", second)
	}
}

func TestOverrideReplacesStickyRole(t *testing.T) {
	st := store.NewInMemoryStore()
	r := NewRoleResolver(st)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "u1", "set up my business", false); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := r.Override(ctx, "u1", models.RoleCustomer); err != nil {
		t.Fatalf("Override failed: %v", err)
	}

	role, err := r.Resolve(ctx, "u1", "anything", false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if role != models.RoleCustomer {
		t.Errorf("expected overridden customer role, got %s", role)
	}
}

func TestClearRerunsHeuristics(t *testing.T) {
	st := store.NewInMemoryStore()
	r := NewRoleResolver(st)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "u1", "set up my business", false); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := r.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	role, err := r.Resolve(ctx, "u1", "how much does it cost?", false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if role != models.RoleCustomer {
		t.Errorf("expected fresh classification after clear, got %s", role)
	}
}
