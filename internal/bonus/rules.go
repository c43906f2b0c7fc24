package bonus

import (
	"github.com/shopspring/decimal"
)

// RuleMode says how a deduction rule prices a record.
type RuleMode int

const (
	// ModePercentage deducts a fraction of the base bonus, once.
	ModePercentage RuleMode = iota + 1
	// ModePerDay deducts a fixed amount per calendar day in the record's range.
	ModePerDay
)

func (m RuleMode) String() string {
	switch m {
	case ModePercentage:
		return "percentage"
	case ModePerDay:
		return "perDay"
	default:
		return "unknown"
	}
}

// Rule is one static deduction rule. Percent is a fraction of the base
// (0.25 = 25%) for percentage rules; PerDay is currency per day for per-day
// rules. AffectsPerformance drives qualitative scoring elsewhere, not the
// amounts computed here.
type Rule struct {
	Code               string
	Label              string
	Mode               RuleMode
	Percent            decimal.Decimal
	PerDay             decimal.Decimal
	AffectsPerformance bool
}

var perDayValue = decimal.NewFromInt(4733)

func pctRule(code, label string, pct float64, affects bool) Rule {
	return Rule{Code: code, Label: label, Mode: ModePercentage, Percent: decimal.NewFromFloat(pct), AffectsPerformance: affects}
}

func dayRule(code, label string, affects bool) Rule {
	return Rule{Code: code, Label: label, Mode: ModePerDay, PerDay: perDayValue, AffectsPerformance: affects}
}

// deductionRules is the payroll deduction table. Codes come straight from
// the novelty feed.
//
// NOTE: the legacy profile view ships its own copy of this table that lists
// NPD where this one lists NPF, with a couple of diverging percentages.
// Kept as-is pending a ruling from the payroll owners; do not reconcile the
// two silently.
var deductionRules = []Rule{
	pctRule("0", "Sin Deducción", 0, false),
	pctRule("1", "Incapacidad", 0.25, true),
	pctRule("2", "Ausentismo", 1.00, true),
	dayRule("3", "Incapacidad > 7 días", true),
	dayRule("4", "Calamidad", false),
	pctRule("5", "Retardo", 0.25, true),
	dayRule("6", "Renuncia", true),
	dayRule("7", "Vacaciones", false),
	dayRule("8", "Suspensión", true),
	dayRule("9", "No Ingreso", false),
	pctRule("10", "Restricción", 1.00, true),
	dayRule("11", "Día No Remunerado", false),
	pctRule("12", "Retardo por Horas", 0.50, true),
	pctRule("13", "Día No Remunerado por Horas", 0, false),
	pctRule("DL", "Daño Leve", 0.25, true),
	pctRule("DG", "Daño Grave", 0.50, true),
	pctRule("DGV", "Daño Gravísimo", 1.00, true),
	pctRule("DEL", "Desincentivo Leve", 0.25, true),
	pctRule("DEG", "Desincentivo Grave", 0.50, true),
	pctRule("DEGV", "Desincentivo Gravísimo", 1.00, true),
	pctRule("INT", "Incumplimiento Interno", 0.25, true),
	pctRule("OM", "Falta Menor", 0.25, true),
	pctRule("OMD", "Falta MeDía", 0.50, true),
	pctRule("OG", "Falta Grave", 1.00, true),
	pctRule("NPF", "No presentarse a formación", 1.00, true),
	pctRule("HCC-L", "Hábitos, Conductas Y Comportamientos - Leve", 0.25, true),
	pctRule("HCC-G", "Hábitos, Conductas Y Comportamientos - Grave", 0.50, true),
	pctRule("HCC-GV", "Hábitos, Conductas Y Comportamientos - Gravísimo", 1.00, true),
}

var rulesByCode = func() map[string]Rule {
	m := make(map[string]Rule, len(deductionRules))
	for _, r := range deductionRules {
		m[r.Code] = r
	}
	return m
}()

// LookupRule resolves a rule code. Unknown codes return ok=false; callers
// must treat that as a zero-amount deduction, never a failure.
func LookupRule(code string) (Rule, bool) {
	r, ok := rulesByCode[code]
	return r, ok
}

// Rules returns the full table in feed order, for display surfaces.
func Rules() []Rule {
	out := make([]Rule, len(deductionRules))
	copy(out, deductionRules)
	return out
}
