package bonus

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUpstream marks failures of the deduction source itself, as opposed to
// bad input. HTTP handlers translate it to 502.
var ErrUpstream = errors.New("deduction source unavailable")

func init() {
	// The dashboard consumes amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// DeductionRecord is one raw novelty row from the upstream source. EndDate
// nil means the novelty is still open; its effective end is "today".
type DeductionRecord struct {
	ID           int64      `json:"id"`
	EmployeeCode string     `json:"employeeCode"`
	RuleCode     string     `json:"ruleCode"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
	Notes        string     `json:"notes,omitempty"`
}

// Source provides raw novelty rows. year==0 means no year filter; month==0
// means the whole year (records whose start date falls in it); both set
// means records overlapping that month.
type Source interface {
	Deductions(ctx context.Context, userCode string, year, month int) ([]DeductionRecord, error)
	Years(ctx context.Context, userCode string) ([]int, error)
	Months(ctx context.Context, userCode string, year int) ([]int, error)
}

// ResolvedDeduction is one record priced against a base amount.
type ResolvedDeduction struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Label     string          `json:"label"`
	Mode      string          `json:"mode"`
	StartDate time.Time       `json:"startDate"`
	EndDate   *time.Time      `json:"endDate"`
	Days      int             `json:"days"`
	Percent   decimal.Decimal `json:"percent"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes,omitempty"`
}

// MonthlyBonus is one month's outcome.
type MonthlyBonus struct {
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	MonthName       string          `json:"monthName"`
	BonusValue      decimal.Decimal `json:"bonusValue"`
	DeductionAmount decimal.Decimal `json:"deductionAmount"`
	FinalValue      decimal.Decimal `json:"finalValue"`
	HasDeductions   bool            `json:"hasDeductions"`
	Message         string          `json:"message,omitempty"`
}

// Summary aggregates programmed vs executed over the query window.
type Summary struct {
	TotalProgrammed decimal.Decimal `json:"totalProgrammed"`
	TotalExecuted   decimal.Decimal `json:"totalExecuted"`
	Percentage      decimal.Decimal `json:"percentage"`
}

// BonusData is the full payload handed to the presentation layer.
type BonusData struct {
	BaseBonus           decimal.Decimal     `json:"baseBonus"`
	DeductionPercentage decimal.Decimal     `json:"deductionPercentage"`
	DeductionAmount     decimal.Decimal     `json:"deductionAmount"`
	FinalBonus          decimal.Decimal     `json:"finalBonus"`
	ExpiresInDays       *int                `json:"expiresInDays"`
	BonusesByYear       map[string]int      `json:"bonusesByYear"`
	Deductions          []ResolvedDeduction `json:"deductions"`
	MonthlyBonusData    []MonthlyBonus      `json:"monthlyBonusData,omitempty"`
	LastMonthData       *MonthlyBonus       `json:"lastMonthData,omitempty"`
	AvailableYears      []int               `json:"availableYears"`
	AvailableMonths     []int               `json:"availableMonths"`
	Summary             Summary             `json:"summary"`
}

// Spanish month names, as the dashboard displays them.
var monthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the display name for month 1-12, empty otherwise.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}
