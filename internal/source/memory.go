package source

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opsdash/bonus-engine/internal/bonus"
)

// Memory is a slice-backed record source for tests and examples. It applies
// the same window filters the SQL sources push into their queries.
type Memory struct {
	mu      sync.RWMutex
	records []bonus.DeductionRecord
	nextID  int64

	// Now is the clock used for open-ended records; tests pin it.
	Now func() time.Time
}

// NewMemory returns an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{nextID: 1, Now: time.Now}
}

// Add stores a record, assigning an ID when unset, and returns it.
func (m *Memory) Add(rec bonus.DeductionRecord) bonus.DeductionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = m.nextID
		m.nextID++
	}
	m.records = append(m.records, rec)
	return rec
}

func (m *Memory) Deductions(ctx context.Context, userCode string, year, month int) ([]bonus.DeductionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []bonus.DeductionRecord
	for _, rec := range m.records {
		if rec.EmployeeCode != userCode {
			continue
		}
		switch {
		case year != 0 && month != 0:
			monthStart, monthEnd := bonus.MonthBounds(year, month)
			if !bonus.Overlaps(rec, monthStart, monthEnd, m.Now()) {
				continue
			}
		case year != 0:
			if rec.StartDate.Year() != year {
				continue
			}
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (m *Memory) Years(ctx context.Context, userCode string) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[int]bool{}
	for _, rec := range m.records {
		if rec.EmployeeCode == userCode {
			seen[rec.StartDate.Year()] = true
		}
	}
	var out []int
	for y := range seen {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out, nil
}

func (m *Memory) Months(ctx context.Context, userCode string, year int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[int]bool{}
	for _, rec := range m.records {
		if rec.EmployeeCode == userCode && rec.StartDate.Year() == year {
			seen[int(rec.StartDate.Month())] = true
		}
	}
	var out []int
	for mo := range seen {
		out = append(out, mo)
	}
	sort.Ints(out)
	return out, nil
}
