package bonus

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsdash/bonus-engine/internal/cache"
)

// Base bonus per calendar year. Years before the table default to the
// earliest defined base.
var baseBonusByYear = map[int]int64{
	2025: 142000,
	2024: 135000,
	2023: 128000,
	2022: 122000,
	2021: 122000,
	2020: 122000,
}

const earliestBase = int64(122000)

// BaseBonusForYear returns the full bonus an operator is eligible for in a
// given year before deductions.
func BaseBonusForYear(year int) decimal.Decimal {
	if v, ok := baseBonusByYear[year]; ok {
		return decimal.NewFromInt(v)
	}
	return decimal.NewFromInt(earliestBase)
}

var hundred = decimal.NewFromInt(100)

// Calculator resolves raw novelty records into monthly bonus outcomes. All
// reads go through the hybrid cache; only upstream fetch failures surface to
// the caller.
type Calculator struct {
	cache      *cache.Manager
	source     Source
	now        func() time.Time
	enableLogs bool
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithClock fixes the calculator's notion of "today" (tests).
func WithClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) { c.now = now }
}

// WithCalculatorLogging toggles the calculator's log lines.
func WithCalculatorLogging(enabled bool) CalculatorOption {
	return func(c *Calculator) { c.enableLogs = enabled }
}

// NewCalculator wires a calculator to its cache and record source.
func NewCalculator(cm *cache.Manager, source Source, opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		cache:  cm,
		source: source,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUserBonuses computes (or serves from cache) the bonus outcome for a
// query window: a specific month, a whole year, or everything on file.
// year==0 and month==0 mean unset.
func (c *Calculator) GetUserBonuses(ctx context.Context, userCode string, year, month int) (*BonusData, error) {
	if userCode == "" {
		return nil, fmt.Errorf("userCode is required")
	}
	if month != 0 && (month < 1 || month > 12) {
		return nil, fmt.Errorf("month out of range: %d", month)
	}

	key := cache.BonusKey(userCode, year, month)
	var out BonusData
	err := c.cache.GetOrSet(ctx, key, &out, cache.TTLWeekly, cache.CategoryBonuses, func(ctx context.Context) (any, error) {
		return c.compute(ctx, userCode, year, month)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Calculator) compute(ctx context.Context, userCode string, year, month int) (*BonusData, error) {
	now := c.now()
	queryYear := year
	if queryYear == 0 {
		queryYear = now.Year()
	}
	base := BaseBonusForYear(queryYear)

	records, err := c.source.Deductions(ctx, userCode, year, month)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch deductions for %s: %v", ErrUpstream, userCode, err)
	}
	sortByStartDesc(records)

	deductions := c.resolve(records, base)
	total := capAt(sumAmounts(deductions), base)
	final := base.Sub(total)

	data := &BonusData{
		BaseBonus:           base,
		DeductionPercentage: total.Div(base).Mul(hundred).Round(0),
		DeductionAmount:     total,
		FinalBonus:          final,
		ExpiresInDays:       c.expiresInDays(records),
		BonusesByYear:       c.bonusesByYear(),
		Deductions:          deductions,
		AvailableYears:      c.availableYears(ctx, userCode),
		AvailableMonths:     c.availableMonths(ctx, userCode, year),
	}

	switch {
	case year != 0 && month != 0:
		snapshot := monthSnapshot(queryYear, month, base, total, len(records) > 0)
		data.LastMonthData = &snapshot
		data.Summary = summarize(base, final)
	case year != 0:
		monthly, programmed, executed := c.yearSweep(ctx, userCode, year, base)
		data.MonthlyBonusData = monthly
		data.LastMonthData = c.lastMonthData(records)
		data.Summary = summarize(programmed, executed)
	default:
		data.LastMonthData = c.lastMonthData(records)
		data.Summary = summarize(base, final)
	}
	return data, nil
}

// yearSweep computes the twelve months of a year independently. A failing
// month never aborts the sweep: it is logged, reported with a zero executed
// amount, and its base still counts as programmed. Under-reporting beats
// over-reporting here.
func (c *Calculator) yearSweep(ctx context.Context, userCode string, year int, base decimal.Decimal) ([]MonthlyBonus, decimal.Decimal, decimal.Decimal) {
	monthly := make([]MonthlyBonus, 0, 12)
	programmed := decimal.Zero
	executed := decimal.Zero

	for m := 1; m <= 12; m++ {
		programmed = programmed.Add(base)

		records, err := c.source.Deductions(ctx, userCode, year, m)
		if err != nil {
			c.logf("month %d/%d failed for %s, reporting zero executed: %v", m, year, userCode, err)
			monthly = append(monthly, MonthlyBonus{
				Year:            year,
				Month:           m,
				MonthName:       MonthName(m),
				BonusValue:      base,
				DeductionAmount: base,
				FinalValue:      decimal.Zero,
				Message:         "Datos no disponibles",
			})
			continue
		}

		deductions := c.resolve(records, base)
		total := capAt(sumAmounts(deductions), base)
		snapshot := monthSnapshot(year, m, base, total, len(records) > 0)
		monthly = append(monthly, snapshot)
		executed = executed.Add(snapshot.FinalValue)
	}
	return monthly, programmed, executed
}

// resolve prices each record against the rule table. Unknown codes resolve
// to a zero amount so one bad row never sinks the calculation.
func (c *Calculator) resolve(records []DeductionRecord, base decimal.Decimal) []ResolvedDeduction {
	out := make([]ResolvedDeduction, 0, len(records))
	for _, rec := range records {
		rule, ok := LookupRule(rec.RuleCode)
		if !ok {
			c.logf("unknown rule code %q on record %d, resolving to zero", rec.RuleCode, rec.ID)
			out = append(out, ResolvedDeduction{
				ID:        rec.ID,
				Code:      rec.RuleCode,
				Label:     "Factor no reconocido: " + rec.RuleCode,
				Mode:      "unknown",
				StartDate: rec.StartDate,
				EndDate:   rec.EndDate,
				Days:      c.inclusiveDays(rec),
				Percent:   decimal.Zero,
				Amount:    decimal.Zero,
				Notes:     rec.Notes,
			})
			continue
		}

		days := c.inclusiveDays(rec)
		var amount decimal.Decimal
		switch rule.Mode {
		case ModePerDay:
			amount = rule.PerDay.Mul(decimal.NewFromInt(int64(days)))
		default:
			amount = base.Mul(rule.Percent)
		}

		out = append(out, ResolvedDeduction{
			ID:        rec.ID,
			Code:      rule.Code,
			Label:     rule.Label,
			Mode:      rule.Mode.String(),
			StartDate: rec.StartDate,
			EndDate:   rec.EndDate,
			Days:      days,
			Percent:   rule.Percent,
			Amount:    amount,
			Notes:     rec.Notes,
		})
	}
	return out
}

// inclusiveDays counts calendar days in a record's range with both endpoints
// included; an open-ended record runs through today.
func (c *Calculator) inclusiveDays(rec DeductionRecord) int {
	end := c.now()
	if rec.EndDate != nil {
		end = *rec.EndDate
	}
	span := end.Sub(rec.StartDate)
	if span < 0 {
		return 1
	}
	return int(math.Ceil(span.Hours()/24)) + 1
}

// lastMonthData builds the quick-glance snapshot for the most recent month
// holding any record. Records must already be sorted newest first.
func (c *Calculator) lastMonthData(records []DeductionRecord) *MonthlyBonus {
	if len(records) == 0 {
		return nil
	}
	latest := records[0].StartDate
	y, m := latest.Year(), int(latest.Month())
	base := BaseBonusForYear(y)

	var monthRecords []DeductionRecord
	for _, rec := range records {
		if rec.StartDate.Year() == y && int(rec.StartDate.Month()) == m {
			monthRecords = append(monthRecords, rec)
		}
	}
	total := capAt(sumAmounts(c.resolve(monthRecords, base)), base)
	snapshot := monthSnapshot(y, m, base, total, len(monthRecords) > 0)
	return &snapshot
}

// expiresInDays is the countdown the dashboard shows next to the newest
// novelty: 14 days from its start date, floored at zero.
func (c *Calculator) expiresInDays(records []DeductionRecord) *int {
	if len(records) == 0 {
		return nil
	}
	expiration := records[0].StartDate.AddDate(0, 0, 14)
	days := int(math.Ceil(expiration.Sub(c.now()).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return &days
}

// availableYears lists years with data, defaulting to the last six calendar
// years when the source has none or fails. Never fatal.
func (c *Calculator) availableYears(ctx context.Context, userCode string) []int {
	years, err := c.source.Years(ctx, userCode)
	if err != nil {
		c.logf("available years lookup failed for %s: %v", userCode, err)
	}
	if len(years) > 0 {
		return years
	}
	current := c.now().Year()
	defaults := make([]int, 6)
	for i := range defaults {
		defaults[i] = current - i
	}
	return defaults
}

// availableMonths lists months with data for a year; defaults cover the
// months that have elapsed (current year), all twelve (past years), or none
// (future years).
func (c *Calculator) availableMonths(ctx context.Context, userCode string, year int) []int {
	now := c.now()
	target := year
	if target == 0 {
		target = now.Year()
	}
	months, err := c.source.Months(ctx, userCode, target)
	if err != nil {
		c.logf("available months lookup failed for %s/%d: %v", userCode, target, err)
	}
	if len(months) > 0 {
		return months
	}
	switch {
	case target == now.Year():
		out := make([]int, int(now.Month()))
		for i := range out {
			out[i] = i + 1
		}
		return out
	case target < now.Year():
		out := make([]int, 12)
		for i := range out {
			out[i] = i + 1
		}
		return out
	default:
		return []int{}
	}
}

// bonusesByYear counts eligible bonus months per year from 2020 on: every
// month counts, deductions or not; the running year only up to this month.
func (c *Calculator) bonusesByYear() map[string]int {
	now := c.now()
	out := make(map[string]int)
	for y := 2020; y <= now.Year(); y++ {
		months := 12
		if y == now.Year() {
			months = int(now.Month())
		}
		out[fmt.Sprintf("%d", y)] = months
	}
	return out
}

func (c *Calculator) logf(format string, args ...any) {
	if c.enableLogs {
		log.Printf("[bonus] "+format, args...)
	}
}

// MonthBounds returns the first and last day of a month.
func MonthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}

// Overlaps reports whether a record's date range touches [monthStart,
// monthEnd]. A record overlaps if its start falls in the month, its
// effective end (today when open) falls in the month, or it spans the whole
// month. The three-way OR catches records that start before, end after, or
// sit wholly inside the window.
func Overlaps(rec DeductionRecord, monthStart, monthEnd, today time.Time) bool {
	end := today
	if rec.EndDate != nil {
		end = *rec.EndDate
	}
	startsIn := !rec.StartDate.Before(monthStart) && !rec.StartDate.After(monthEnd)
	endsIn := !end.Before(monthStart) && !end.After(monthEnd)
	// An open-ended record counts as unbounded here, not as ending today.
	spans := !rec.StartDate.After(monthEnd) &&
		(rec.EndDate == nil || !rec.EndDate.Before(monthStart))
	return startsIn || endsIn || spans
}

func monthSnapshot(year, month int, base, deduction decimal.Decimal, hasDeductions bool) MonthlyBonus {
	snapshot := MonthlyBonus{
		Year:            year,
		Month:           month,
		MonthName:       MonthName(month),
		BonusValue:      base,
		DeductionAmount: deduction,
		FinalValue:      base.Sub(deduction),
		HasDeductions:   hasDeductions,
	}
	if !hasDeductions {
		snapshot.Message = "Sin deducciones - Bono completo"
	}
	return snapshot
}

func summarize(programmed, executed decimal.Decimal) Summary {
	s := Summary{TotalProgrammed: programmed, TotalExecuted: executed}
	if programmed.IsPositive() {
		s.Percentage = executed.Div(programmed).Mul(hundred).Round(2)
	} else {
		s.Percentage = decimal.Zero
	}
	return s
}

func sumAmounts(deductions []ResolvedDeduction) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deductions {
		total = total.Add(d.Amount)
	}
	return total
}

func capAt(total, base decimal.Decimal) decimal.Decimal {
	if total.GreaterThan(base) {
		return base
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

func sortByStartDesc(records []DeductionRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartDate.After(records[j].StartDate)
	})
}
