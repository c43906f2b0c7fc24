package source

import (
	"context"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *sqlSource {
	t.Helper()
	src, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	src.nowValue = func() time.Time { return fixedNow }
	return src
}

func insertNovedad(t *testing.T, src *sqlSource, user, code string, start time.Time, end *time.Time) {
	t.Helper()
	_, err := src.db.Exec(
		`INSERT INTO novedades (codigo_empleado, codigo_factor, fecha_inicio_novedad, fecha_fin_novedad, observaciones)
		 VALUES (?, ?, ?, ?, ?)`,
		user, code, start, end, "")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestSQLiteDeductions(t *testing.T) {
	src := newTestDB(t)
	ctx := context.Background()

	insertNovedad(t, src, "A123", "1", day(2025, 6, 5), dayPtr(2025, 6, 5))
	insertNovedad(t, src, "A123", "7", day(2025, 1, 28), dayPtr(2025, 2, 3))
	insertNovedad(t, src, "A123", "8", day(2024, 11, 2), dayPtr(2024, 11, 4))
	insertNovedad(t, src, "B999", "2", day(2025, 6, 9), dayPtr(2025, 6, 9))

	all, err := src.Deductions(ctx, "A123", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("unfiltered: got %d, want 3", len(all))
	}
	if all[0].RuleCode != "1" {
		t.Errorf("rows should come back newest first, got %s", all[0].RuleCode)
	}

	year, err := src.Deductions(ctx, "A123", 2025, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(year) != 2 {
		t.Fatalf("year filter: got %d, want 2", len(year))
	}

	// Boundary-crossing record appears in January and February.
	for _, month := range []int{1, 2} {
		recs, err := src.Deductions(ctx, "A123", 2025, month)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 1 || recs[0].RuleCode != "7" {
			t.Errorf("month %d: got %+v", month, recs)
		}
	}
}

func TestSQLiteOpenEndedRecord(t *testing.T) {
	src := newTestDB(t)
	ctx := context.Background()

	// Open-ended suspension from May; fixedNow is mid-July.
	insertNovedad(t, src, "A123", "8", day(2025, 5, 10), nil)

	for _, month := range []int{5, 6, 7} {
		recs, err := src.Deductions(ctx, "A123", 2025, month)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 1 {
			t.Errorf("open-ended record should reach month %d", month)
			continue
		}
		if recs[0].EndDate != nil {
			t.Error("NULL end date should scan as nil")
		}
	}

	recs, err := src.Deductions(ctx, "A123", 2025, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Error("record must not appear before it starts")
	}
}

func TestSQLiteYearsMonths(t *testing.T) {
	src := newTestDB(t)
	ctx := context.Background()

	insertNovedad(t, src, "A123", "1", day(2025, 6, 5), dayPtr(2025, 6, 5))
	insertNovedad(t, src, "A123", "7", day(2025, 1, 28), dayPtr(2025, 2, 3))
	insertNovedad(t, src, "A123", "8", day(2024, 11, 2), dayPtr(2024, 11, 4))

	years, err := src.Years(ctx, "A123")
	if err != nil {
		t.Fatal(err)
	}
	if len(years) != 2 || years[0] != 2025 || years[1] != 2024 {
		t.Errorf("years = %v, want [2025 2024]", years)
	}

	months, err := src.Months(ctx, "A123", 2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(months) != 2 || months[0] != 1 || months[1] != 6 {
		t.Errorf("months = %v, want [1 6]", months)
	}
}
