// Package engine runs the adaptation loop: validate the score against the
// ensemble, resolve violations, select a conflict-free plan, apply it, and
// re-validate until the score is playable, stops changing, or the iteration
// or time budget runs out.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/apply"
	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/optimize"
	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/resolve"
	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/validate"
	"github.com/Conceptual-Machines/magda-ensemble/internal/logger"
	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

const defaultMaxIterations = 8

// StopReason explains why the loop ended
type StopReason string

const (
	StopResolved       StopReason = "resolved"
	StopFixedPoint     StopReason = "fixed-point"
	StopIterationLimit StopReason = "iteration-limit"
	StopDeadline       StopReason = "deadline"
)

// Options configures an Engine
type Options struct {
	MaxIterations int
	Parallelism   int
	Resolver      resolve.Options
	Optimizer     optimize.Optimizer
}

// Iteration records one pass of the loop
type Iteration struct {
	Number     int                   `json:"number"`
	Violations int                   `json:"violations"`
	Plan       models.ResolutionPlan `json:"plan"`
}

// Result is everything an adaptation run produces. It is returned for every
// valid input, playable or not.
type Result struct {
	Score      models.MusicalScore    `json:"adapted_score"`
	Report     models.ViolationReport `json:"report"`
	Plan       models.ResolutionPlan  `json:"plan"`
	Iterations []Iteration            `json:"iterations"`
	StopReason StopReason             `json:"stop_reason"`
	Duration   time.Duration          `json:"-"`
}

// Engine adapts scores to an ensemble
type Engine struct {
	maxIterations int
	suite         *validate.Suite
	resolver      *resolve.Resolver
	optimizer     optimize.Optimizer
}

// New creates an engine; zero options select the defaults
func New(opts Options) *Engine {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultMaxIterations
	}
	if opts.Optimizer == nil {
		opts.Optimizer = optimize.NewGreedy()
	}
	return &Engine{
		maxIterations: opts.MaxIterations,
		suite:         validate.NewSuite(opts.Parallelism),
		resolver:      resolve.New(opts.Resolver),
		optimizer:     opts.Optimizer,
	}
}

// Validate reports the violations of score without changing it
func (e *Engine) Validate(ctx context.Context, score models.MusicalScore, cfg models.EnsembleConfiguration) (models.ViolationReport, error) {
	if err := models.ValidateInputs(score, cfg); err != nil {
		return models.ViolationReport{}, err
	}
	report, err := e.suite.Run(ctx, score.Normalized(), cfg)
	if err != nil {
		return models.ViolationReport{}, fmt.Errorf("validation interrupted: %w", err)
	}
	return report, nil
}

// Adapt transforms score into a version the ensemble can play. Malformed
// input is rejected with an error wrapping models.ErrInvalidInput; any other
// outcome, including unresolved critical violations or an expired ctx, is
// reported through the Result.
func (e *Engine) Adapt(ctx context.Context, score models.MusicalScore, cfg models.EnsembleConfiguration) (*Result, error) {
	if err := models.ValidateInputs(score, cfg); err != nil {
		return nil, err
	}

	start := time.Now()
	current := score.Normalized()
	result := &Result{
		Plan:       models.ResolutionPlan{Actions: []models.ResolutionAction{}},
		Iterations: []Iteration{},
	}

	var report models.ViolationReport
	haveReport := false
	for pass := 1; ; pass++ {
		if ctx.Err() != nil {
			result.StopReason = StopDeadline
			break
		}
		r, err := e.suite.Run(ctx, current, cfg)
		if err != nil {
			result.StopReason = StopDeadline
			break
		}
		report, haveReport = r, true

		actionable := report.Actionable()
		if len(actionable) == 0 {
			result.StopReason = StopResolved
			break
		}
		if pass > e.maxIterations {
			result.StopReason = StopIterationLimit
			break
		}

		actions := e.resolver.Resolve(report.Violations, current, cfg)
		plan := e.optimizer.Optimize(actions, report.Violations, current, cfg)
		if len(plan.Actions) == 0 {
			result.StopReason = StopFixedPoint
			break
		}
		next := apply.Apply(current, plan)
		if next.Equal(current) {
			result.StopReason = StopFixedPoint
			break
		}

		logger.Debug("Adaptation pass applied", logger.Fields{
			"pass":                pass,
			"violations":          len(actionable),
			"proposed_actions":    len(actions),
			"accepted_actions":    len(plan.Actions),
			"plan_cost":           plan.TotalCost,
			"predicted_remaining": plan.PredictedRemaining,
		})

		result.Iterations = append(result.Iterations, Iteration{
			Number:     pass,
			Violations: len(actionable),
			Plan:       plan,
		})
		result.Plan.Actions = append(result.Plan.Actions, plan.Actions...)
		result.Plan.TotalCost += plan.TotalCost
		current = next
		haveReport = false
	}

	if !haveReport {
		// the deadline may have passed; the final report is still owed to the caller
		r, err := e.suite.Run(context.WithoutCancel(ctx), current, cfg)
		if err != nil {
			return nil, fmt.Errorf("final validation: %w", err)
		}
		report = r
	}

	result.Score = current
	result.Report = report
	result.Plan.PredictedRemaining = len(report.Actionable())
	result.Duration = time.Since(start)
	return result, nil
}
