package service

import (
	"context"
	"testing"
	"time"

	"github.com/opsdash/bonus-engine/internal/bonus"
	"github.com/opsdash/bonus-engine/internal/source"
)

func newTestService(t *testing.T) (*BonusService, *source.Memory) {
	t.Helper()
	src := source.NewMemory()
	svc, err := NewBonusService(
		WithSource(src),
		WithLogging(false),
	)
	if err != nil {
		t.Fatalf("NewBonusService: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc, src
}

func TestServiceRequiresInitialize(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.GetUserBonuses(context.Background(), "A123", 2025, 6); err == nil {
		t.Fatal("calls before Initialize must fail")
	}

	if err := svc.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := svc.GetUserBonuses(context.Background(), "A123", 2025, 6); err != nil {
		t.Fatalf("after Initialize: %v", err)
	}

	// Second Initialize is a no-op.
	if err := svc.Initialize(); err != nil {
		t.Fatalf("repeat Initialize: %v", err)
	}
}

func TestServiceInvalidateUser(t *testing.T) {
	svc, src := newTestService(t)
	if err := svc.Initialize(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	start := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	src.Add(bonus.DeductionRecord{EmployeeCode: "A123", RuleCode: "1", StartDate: start, EndDate: &start})

	first, err := svc.GetUserBonuses(ctx, "A123", 2025, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Deductions) != 1 {
		t.Fatalf("got %d deductions, want 1", len(first.Deductions))
	}

	src.Add(bonus.DeductionRecord{EmployeeCode: "A123", RuleCode: "5", StartDate: start, EndDate: &start})

	cached, _ := svc.GetUserBonuses(ctx, "A123", 2025, 6)
	if len(cached.Deductions) != 1 {
		t.Fatal("second query should serve the cached view")
	}

	if removed := svc.InvalidateUser(ctx, "A123"); removed == 0 {
		t.Fatal("invalidation should remove the cached entry")
	}

	fresh, err := svc.GetUserBonuses(ctx, "A123", 2025, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh.Deductions) != 2 {
		t.Fatalf("after invalidation got %d deductions, want 2", len(fresh.Deductions))
	}
}

func TestServiceCacheStats(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.Initialize(); err != nil {
		t.Fatal(err)
	}

	stats := svc.CacheStats(context.Background())
	if up, ok := stats["remoteUp"].(bool); !ok || up {
		t.Errorf("no remote configured, remoteUp = %v", stats["remoteUp"])
	}
	if _, ok := stats["memory"]; !ok {
		t.Error("stats should include the memory tier")
	}
}
