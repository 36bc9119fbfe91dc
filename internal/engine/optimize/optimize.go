// Package optimize selects a conflict-free subset of proposed resolution
// actions.
package optimize

import (
	"sort"

	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/resolve"
	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

// Optimizer turns candidate actions into a resolution plan
type Optimizer interface {
	Optimize(actions []models.ResolutionAction, violations []models.ConstraintViolation, score models.MusicalScore, cfg models.EnsembleConfiguration) models.ResolutionPlan
}

// Greedy accepts actions cheapest first, skipping any action that touches a
// note already claimed in this pass. Deterministic for a given input order.
type Greedy struct{}

// NewGreedy returns the greedy optimizer
func NewGreedy() *Greedy {
	return &Greedy{}
}

// Optimize implements Optimizer
func (g *Greedy) Optimize(actions []models.ResolutionAction, violations []models.ConstraintViolation, _ models.MusicalScore, _ models.EnsembleConfiguration) models.ResolutionPlan {
	ordered := append([]models.ResolutionAction(nil), actions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return less(ordered[i], ordered[j])
	})

	claimed := make(map[int]bool)
	resolved := make(map[int]bool)
	plan := models.ResolutionPlan{Actions: []models.ResolutionAction{}}

	for _, a := range ordered {
		if len(a.Targets) == 0 || conflicts(a, claimed) {
			continue
		}
		for _, t := range a.Targets {
			claimed[t] = true
		}
		for _, v := range a.Violations {
			resolved[v] = true
		}
		plan.Actions = append(plan.Actions, a)
		plan.TotalCost += a.Cost
	}

	for i, v := range violations {
		if v.Severity.Actionable() && !resolved[i] {
			plan.PredictedRemaining++
		}
	}
	return plan
}

func conflicts(a models.ResolutionAction, claimed map[int]bool) bool {
	for _, t := range a.Targets {
		if claimed[t] {
			return true
		}
	}
	return false
}

// less orders by cost, then confidence (higher first), strategy preference,
// first target and first addressed violation
func less(a, b models.ResolutionAction) bool {
	if a.Cost != b.Cost {
		return a.Cost < b.Cost
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Strategy != b.Strategy {
		return a.Strategy < b.Strategy
	}
	if fa, fb := a.FirstTarget(), b.FirstTarget(); fa != fb {
		return fa < fb
	}
	return firstViolation(a) < firstViolation(b)
}

func firstViolation(a models.ResolutionAction) int {
	if len(a.Violations) == 0 {
		return -1
	}
	return a.Violations[0]
}

// OmitAllCost is the cost of the trivial plan that omits every note touched
// by an actionable violation, one omission per note
func OmitAllCost(violations []models.ConstraintViolation) float64 {
	notes := make(map[int]bool)
	for _, v := range violations {
		if !v.Severity.Actionable() {
			continue
		}
		for _, n := range v.Notes {
			notes[n] = true
		}
	}
	return float64(len(notes)) * resolve.OmitCost
}
