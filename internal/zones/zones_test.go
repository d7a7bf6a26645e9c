package zones

import (
	"context"
	"testing"

	"confattend/internal/apperr"
)

func TestMemory_AddBumpsVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Defaults)
	before, _ := m.List(ctx)
	after, err := m.Add(ctx, "  Kathua   District ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if after.Version != before.Version+1 {
		t.Fatalf("expected version %d, got %d", before.Version+1, after.Version)
	}
	if after.Zones[len(after.Zones)-1] != "Kathua District" {
		t.Fatalf("label not normalised: %q", after.Zones[len(after.Zones)-1])
	}
}

func TestMemory_DuplicateIsCaseInsensitive(t *testing.T) {
	m := NewMemory(Defaults)
	_, err := m.Add(context.Background(), "jammu")
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
}

func TestMemory_EmptyLabel(t *testing.T) {
	m := NewMemory(nil)
	if _, err := m.Add(context.Background(), "   "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMemory_Remove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Defaults)
	set, err := m.Remove(ctx, "UAE")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if set.Contains("uae") || len(set.Zones) != len(Defaults)-1 {
		t.Fatalf("zone not removed: %v", set.Zones)
	}
	if _, err := m.Remove(ctx, "UAE"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemory_ListIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Defaults)
	set, _ := m.List(ctx)
	set.Zones[0] = "mutated"
	again, _ := m.List(ctx)
	if again.Zones[0] != "Poonch" {
		t.Fatal("caller mutation leaked into the store")
	}
}
