package optimize

import (
	"context"
	"testing"

	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/resolve"
	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/validate"
	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func action(strategy models.Strategy, cost, confidence float64, violation int, targets ...int) models.ResolutionAction {
	return models.ResolutionAction{
		Strategy:   strategy,
		Targets:    targets,
		Cost:       cost,
		Confidence: confidence,
		Violations: []int{violation},
	}
}

func TestGreedySkipsConflicts(t *testing.T) {
	violations := []models.ConstraintViolation{
		{Severity: models.SeverityCritical, Notes: []int{0}},
		{Severity: models.SeverityMinor, Notes: []int{0}},
		{Severity: models.SeverityMajor, Notes: []int{1, 2}},
		{Severity: models.SeverityInfo, Notes: []int{3}},
	}
	actions := []models.ResolutionAction{
		action(models.StrategyOmit, 1.0, 1.0, 0, 0),
		action(models.StrategyTranspose, 0.025, 0.98, 0, 0),
		action(models.StrategyAdjustDynamic, 0.08, 1.0, 1, 0),
		action(models.StrategyReduceVoice, 0.74, 0.8, 2, 2),
		action(models.StrategyRedistribute, 0.45, 0.55, 2, 2),
	}

	plan := NewGreedy().Optimize(actions, violations, models.MusicalScore{}, models.EnsembleConfiguration{})

	require.Len(t, plan.Actions, 2)
	assert.Equal(t, models.StrategyTranspose, plan.Actions[0].Strategy)
	assert.Equal(t, models.StrategyRedistribute, plan.Actions[1].Strategy)
	assert.InDelta(t, 0.475, plan.TotalCost, 1e-9)
	assert.Equal(t, 1, plan.PredictedRemaining, "the velocity violation on note 0 waits for the next pass")
}

func TestGreedyTieBreaks(t *testing.T) {
	tests := []struct {
		name    string
		actions []models.ResolutionAction
		want    models.Strategy
	}{
		{
			name: "higher confidence first",
			actions: []models.ResolutionAction{
				action(models.StrategyShiftOnset, 0.3, 0.8, 0, 0),
				action(models.StrategyAdjustDuration, 0.3, 0.9, 0, 0),
			},
			want: models.StrategyAdjustDuration,
		},
		{
			name: "strategy preference on equal cost and confidence",
			actions: []models.ResolutionAction{
				action(models.StrategyOmit, 0.5, 0.8, 0, 0),
				action(models.StrategyReduceVoice, 0.5, 0.8, 0, 0),
			},
			want: models.StrategyReduceVoice,
		},
	}

	violations := []models.ConstraintViolation{{Severity: models.SeverityMajor, Notes: []int{0}}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := NewGreedy().Optimize(tt.actions, violations, models.MusicalScore{}, models.EnsembleConfiguration{})
			require.Len(t, plan.Actions, 1)
			assert.Equal(t, tt.want, plan.Actions[0].Strategy)
		})
	}
}

func TestGreedyDoesNotReorderInput(t *testing.T) {
	actions := []models.ResolutionAction{
		action(models.StrategyOmit, 1.0, 1.0, 0, 0),
		action(models.StrategyTranspose, 0.1, 0.9, 0, 0),
	}
	NewGreedy().Optimize(actions, nil, models.MusicalScore{}, models.EnsembleConfiguration{})
	assert.Equal(t, models.StrategyOmit, actions[0].Strategy)
}

func TestGreedyAcceptsOneFixPerTransition(t *testing.T) {
	bot := models.InstrumentConstraints{
		Pitch:                models.NewPitchRange(0, 127),
		MaxSimultaneousNotes: 1,
		NoteTransitionTime:   0.05,
		Velocity:             models.VelocityRange{Min: 0, Max: 127},
	}
	cfg := models.EnsembleConfiguration{Instruments: map[string]models.InstrumentAssignment{
		"bot": {Constraints: bot, Voices: models.VoiceRange{Low: 0, High: 0}},
	}}
	score := models.MusicalScore{Tempo: 120, Notes: []models.MusicalNote{
		{Pitch: 60, Velocity: 80, Start: 0, Duration: 0.5, Voice: 0},
		{Pitch: 62, Velocity: 80, Start: 0.5, Duration: 0.5, Voice: 0},
	}}

	report, err := validate.NewSuite(1).Run(context.Background(), score, cfg)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)

	actions := resolve.New(resolve.Options{}).Resolve(report.Violations, score, cfg)
	require.Greater(t, len(actions), 1)

	plan := NewGreedy().Optimize(actions, report.Violations, score, cfg)
	require.Len(t, plan.Actions, 1, "alternatives for one gap must not stack")
	assert.Equal(t, models.StrategyAdjustDuration, plan.Actions[0].Strategy)
	assert.InDelta(t, 0.15+0.5*0.05/0.5, plan.TotalCost, 1e-9)
	assert.Zero(t, plan.PredictedRemaining)
}

func TestPlanCostNeverExceedsOmitAll(t *testing.T) {
	timing := models.InstrumentConstraints{
		Pitch:                models.NewPitchRange(48, 72),
		MaxSimultaneousNotes: 1,
		MinNoteDuration:      0.1,
		NoteTransitionTime:   0.05,
		Velocity:             models.VelocityRange{Min: 30, Max: 110},
		PowerWatts:           15,
	}
	bells := models.InstrumentConstraints{
		Pitch:                models.NewPitchSet(60, 64, 67, 72),
		MaxSimultaneousNotes: 2,
		Velocity:             models.VelocityRange{Min: 0, Max: 127},
		PowerWatts:           15,
	}
	cfg := models.EnsembleConfiguration{
		PowerBudget: 20,
		Instruments: map[string]models.InstrumentAssignment{
			"bells": {Constraints: bells, Voices: models.VoiceRange{Low: 0, High: 1}},
			"bot":   {Constraints: timing, Voices: models.VoiceRange{Low: 2, High: 4}},
		},
	}
	score := models.MusicalScore{Tempo: 90, Notes: []models.MusicalNote{
		{Pitch: 61, Velocity: 90, Start: 0, Duration: 1, Voice: 0},
		{Pitch: 65, Velocity: 90, Start: 0, Duration: 1, Voice: 1},
		{Pitch: 40, Velocity: 10, Start: 0, Duration: 0.05, Voice: 2},
		{Pitch: 50, Velocity: 120, Start: 0.07, Duration: 0.5, Voice: 2},
		{Pitch: 55, Velocity: 90, Start: 0.2, Duration: 1, Voice: 3},
		{Pitch: 80, Velocity: 90, Start: 0.3, Duration: 1, Voice: 4},
	}}.Normalized()
	require.NoError(t, models.ValidateInputs(score, cfg))

	report, err := validate.NewSuite(2).Run(context.Background(), score, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, report.Actionable())

	actions := resolve.New(resolve.Options{}).Resolve(report.Violations, score, cfg)
	plan := NewGreedy().Optimize(actions, report.Violations, score, cfg)

	require.NotEmpty(t, plan.Actions)
	assert.LessOrEqual(t, plan.TotalCost, OmitAllCost(report.Violations))

	claimed := make(map[int]bool)
	for _, a := range plan.Actions {
		for _, target := range a.Targets {
			assert.False(t, claimed[target], "note %d claimed twice", target)
			claimed[target] = true
		}
	}
}

func TestOmitAllCost(t *testing.T) {
	violations := []models.ConstraintViolation{
		{Severity: models.SeverityCritical, Notes: []int{0, 1}},
		{Severity: models.SeverityMinor, Notes: []int{1, 2}},
		{Severity: models.SeverityInfo, Notes: []int{7}},
	}
	assert.InDelta(t, 3*resolve.OmitCost, OmitAllCost(violations), 1e-12)
	assert.Zero(t, OmitAllCost(nil))
}
