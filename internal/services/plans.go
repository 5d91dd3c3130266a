package services

import (
	"sort"

	"vocab-api/pkg/apperrors"
)

// Plan is one purchasable subscription tier
type Plan struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"` // rupees
	Days  int    `json:"days"`
}

// FallbackDays is granted for a paid amount that matches no plan
const FallbackDays = 7

var planCatalogue = map[string]Plan{
	"trial":   {ID: "trial", Name: "7 Days Trial", Price: 1, Days: 7},
	"3months": {ID: "3months", Name: "3 Months Plan", Price: 129, Days: 90},
	"6months": {ID: "6months", Name: "6 Months Plan", Price: 219, Days: 180},
	"1year":   {ID: "1year", Name: "12 Months Plan", Price: 349, Days: 365},
}

var (
	errPlanAmountRequired = apperrors.Validation(apperrors.CodePlanAmountRequired, "Plan and amount are required")
	errInvalidPlan        = apperrors.Validation(apperrors.CodeInvalidPlan, "Invalid plan selected")
	errAmountMismatch     = apperrors.Validation(apperrors.CodeAmountMismatch, "Amount does not match the selected plan")
)

// Plans returns the catalogue sorted by price
func Plans() []Plan {
	plans := make([]Plan, 0, len(planCatalogue))
	for _, p := range planCatalogue {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Price < plans[j].Price })
	return plans
}

// LookupPlan returns a plan by id
func LookupPlan(id string) (Plan, bool) {
	p, ok := planCatalogue[id]
	return p, ok
}

// ValidatePlan checks a client-selected plan against the catalogue price
func ValidatePlan(id string, amount int) (Plan, error) {
	if id == "" || amount <= 0 {
		return Plan{}, errPlanAmountRequired
	}
	p, ok := planCatalogue[id]
	if !ok {
		return Plan{}, errInvalidPlan
	}
	if p.Price != amount {
		return Plan{}, errAmountMismatch
	}
	return p, nil
}

// DaysForAmount maps a paid amount to entitlement days. The second result is
// false when no plan has that price and FallbackDays was used.
func DaysForAmount(amount int) (int, bool) {
	for _, p := range planCatalogue {
		if p.Price == amount {
			return p.Days, true
		}
	}
	return FallbackDays, false
}
