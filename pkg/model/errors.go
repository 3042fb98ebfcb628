package model

import (
	"errors"
	"fmt"
	"strings"
)

// ModelError reports malformed or inconsistent input. It is fatal: no solve
// is attempted on a model that fails to build.
type ModelError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ModelError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid model: %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid model: %s %q: %s", e.Entity, e.ID, e.Reason)
}

// InfeasibleError reports that no feasible schedule was found. Budget marks
// the BudgetExceeded specialization: the search budget ran out before
// infeasibility was proven, so the caller may retry with a larger budget.
// Conflicts carries the ids of the minimal conflicting entity set when the
// solver can determine one.
type InfeasibleError struct {
	Reason    string
	Budget    bool
	Conflicts []string
}

func (e *InfeasibleError) Error() string {
	msg := "infeasible: " + e.Reason
	if e.Budget {
		msg = "budget exceeded: " + e.Reason
	}
	if len(e.Conflicts) > 0 {
		msg += " (conflicting: " + strings.Join(e.Conflicts, ", ") + ")"
	}
	return msg
}

// IsModelError reports whether err is a ModelError.
func IsModelError(err error) bool {
	var target *ModelError
	return errors.As(err, &target)
}

// IsInfeasible reports whether err is an InfeasibleError of either flavor.
func IsInfeasible(err error) bool {
	var target *InfeasibleError
	return errors.As(err, &target)
}

// IsBudgetExceeded reports whether err is the budget-exhaustion flavor of
// InfeasibleError.
func IsBudgetExceeded(err error) bool {
	var target *InfeasibleError
	return errors.As(err, &target) && target.Budget
}
