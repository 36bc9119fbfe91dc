package validate

import (
	"context"
	"testing"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func note(pitch int, start, duration float64, voice int) models.MusicalNote {
	return models.MusicalNote{Pitch: pitch, Velocity: 80, Start: start, Duration: duration, Voice: voice}
}

func constraints(pitch models.PitchConstraint, polyphony int) models.InstrumentConstraints {
	return models.InstrumentConstraints{
		Pitch:                pitch,
		MaxSimultaneousNotes: polyphony,
		Velocity:             models.VelocityRange{Min: 0, Max: 127},
	}
}

func single(id string, c models.InstrumentConstraints, low, high int) models.EnsembleConfiguration {
	return models.EnsembleConfiguration{
		Instruments: map[string]models.InstrumentAssignment{
			id: {Constraints: c, Voices: models.VoiceRange{Low: low, High: high}},
		},
	}
}

func instrument(id string, c models.InstrumentConstraints, low, high int) Instrument {
	c.ID = id
	return Instrument{ID: id, Constraints: c, Voices: models.VoiceRange{Low: low, High: high}}
}

func TestOverlapWindows(t *testing.T) {
	tests := []struct {
		name  string
		notes []models.MusicalNote
		want  []models.TimeWindow
	}{
		{
			name:  "disjoint notes stay separate",
			notes: []models.MusicalNote{note(60, 0, 1, 0), note(62, 1, 1, 0)},
			want: []models.TimeWindow{
				{Start: 0, End: 1, Notes: []int{0}},
				{Start: 1, End: 2, Notes: []int{1}},
			},
		},
		{
			name:  "identical spans merge into one window",
			notes: []models.MusicalNote{note(60, 0, 1, 0), note(64, 0, 1, 1), note(67, 0, 1, 2)},
			want:  []models.TimeWindow{{Start: 0, End: 1, Notes: []int{0, 1, 2}}},
		},
		{
			name: "subset segments are dropped",
			notes: []models.MusicalNote{
				note(48, 0, 4, 0),
				note(60, 1, 1, 1),
				note(64, 2, 1, 1),
			},
			want: []models.TimeWindow{
				{Start: 1, End: 2, Notes: []int{0, 1}},
				{Start: 2, End: 3, Notes: []int{0, 2}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indices := make([]int, len(tt.notes))
			for i := range indices {
				indices[i] = i
			}
			assert.Equal(t, tt.want, OverlapWindows(tt.notes, indices))
		})
	}

	assert.Nil(t, OverlapWindows(nil, nil))
}

func TestPitch(t *testing.T) {
	tests := []struct {
		name      string
		pitch     models.PitchConstraint
		note      int
		dimension models.Dimension
		severity  models.Severity
	}{
		{
			name:      "fixed set miss is critical",
			pitch:     models.NewPitchSet(60, 64, 67),
			note:      61,
			dimension: models.DimensionFixedPitchSet,
			severity:  models.SeverityCritical,
		},
		{
			name:      "near the range edge is minor",
			pitch:     models.NewPitchRange(60, 72),
			note:      74,
			dimension: models.DimensionPitchRange,
			severity:  models.SeverityMinor,
		},
		{
			name:      "far outside the range is major",
			pitch:     models.NewPitchRange(60, 72),
			note:      48,
			dimension: models.DimensionPitchRange,
			severity:  models.SeverityMajor,
		},
		{
			name:      "out of scale inside the range is critical",
			pitch:     models.NewPitchDiatonic(0, false, 60, 72),
			note:      61,
			dimension: models.DimensionFixedPitchSet,
			severity:  models.SeverityCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := models.MusicalScore{Notes: []models.MusicalNote{note(tt.note, 0, 1, 0)}}
			found := Pitch(score, instrument("inst", constraints(tt.pitch, 1), 0, 0))
			require.Len(t, found, 1)
			assert.Equal(t, tt.dimension, found[0].Dimension)
			assert.Equal(t, tt.severity, found[0].Severity)
			assert.Equal(t, []int{0}, found[0].Notes)
			assert.Equal(t, models.StrategyTranspose, found[0].Suggested)
		})
	}

	score := models.MusicalScore{Notes: []models.MusicalNote{note(64, 0, 1, 0)}}
	assert.Empty(t, Pitch(score, instrument("inst", constraints(models.NewPitchSet(60, 64, 67), 1), 0, 0)))
}

func TestPolyphony(t *testing.T) {
	score := models.MusicalScore{Notes: []models.MusicalNote{
		note(72, 0, 1, 0),
		note(64, 0, 1, 1),
		note(48, 0, 1, 2),
		note(60, 2, 1, 0),
	}}

	found := Polyphony(score, instrument("piano", constraints(models.NewPitchRange(0, 127), 1), 0, 2))
	require.Len(t, found, 1)
	v := found[0]
	assert.Equal(t, models.DimensionPolyphonyLimit, v.Dimension)
	assert.Equal(t, models.SeverityMajor, v.Severity)
	assert.Equal(t, []int{0, 1, 2}, v.Notes)
	require.NotNil(t, v.Window)
	assert.Equal(t, 0.0, v.Window.Start)
	assert.Equal(t, 1.0, v.Window.End)
	assert.InDelta(t, 2.0/3.0, v.Impact, 1e-9)

	assert.Empty(t, Polyphony(score, instrument("piano", constraints(models.NewPitchRange(0, 127), 3), 0, 2)))
}

func TestTiming(t *testing.T) {
	c := constraints(models.NewPitchRange(0, 127), 1)
	c.MinNoteDuration = 0.05
	c.MaxNoteDuration = 2
	c.NoteTransitionTime = 0.1

	score := models.MusicalScore{Notes: []models.MusicalNote{
		note(60, 0, 0.02, 0), // too short
		note(62, 0.5, 3, 0),  // too long
		note(64, 3.55, 1, 0), // only 0.05 after the previous note ends
	}}

	found := Timing(score, instrument("bot", c, 0, 0))
	require.Len(t, found, 3)

	assert.Equal(t, models.DimensionNoteDuration, found[0].Dimension)
	assert.Equal(t, models.SeverityMinor, found[0].Severity)
	assert.Equal(t, []int{0}, found[0].Notes)

	assert.Equal(t, models.DimensionNoteDuration, found[1].Dimension)
	assert.Equal(t, models.SeverityMajor, found[1].Severity)
	assert.Equal(t, []int{1}, found[1].Notes)

	assert.Equal(t, models.DimensionTransitionTime, found[2].Dimension)
	assert.Equal(t, models.SeverityMajor, found[2].Severity)
	assert.Equal(t, []int{1, 2}, found[2].Notes)
	assert.InDelta(t, 0.5, found[2].Impact, 1e-9)
}

func TestDynamics(t *testing.T) {
	c := constraints(models.NewPitchRange(0, 127), 1)
	c.Velocity = models.VelocityRange{Min: 20, Max: 100}

	score := models.MusicalScore{Notes: []models.MusicalNote{
		{Pitch: 60, Velocity: 10, Duration: 1},
		{Pitch: 60, Velocity: 60, Start: 1, Duration: 1},
		{Pitch: 60, Velocity: 127, Start: 2, Duration: 1},
	}}

	found := Dynamics(score, instrument("bot", c, 0, 0))
	require.Len(t, found, 2)
	assert.Equal(t, []int{0}, found[0].Notes)
	assert.Equal(t, []int{2}, found[1].Notes)
	for _, v := range found {
		assert.Equal(t, models.SeverityMinor, v.Severity)
		assert.Equal(t, []models.Strategy{models.StrategyAdjustDynamic}, v.Strategies)
	}
}

func TestEnsemble(t *testing.T) {
	cfg := models.EnsembleConfiguration{
		MaxTotalSimultaneousVoices: 2,
		PowerBudget:                20,
		Instruments: map[string]models.InstrumentAssignment{
			"a": {Constraints: withPower(10), Voices: models.VoiceRange{Low: 0, High: 0}},
			"b": {Constraints: withPower(10), Voices: models.VoiceRange{Low: 1, High: 1}},
			"c": {Constraints: withPower(10), Voices: models.VoiceRange{Low: 2, High: 2}},
		},
	}
	score := models.MusicalScore{Notes: []models.MusicalNote{
		note(72, 0, 1, 0),
		note(60, 0, 1, 1),
		note(48, 0, 1, 2),
	}}

	found := Ensemble(score, cfg)
	require.Len(t, found, 2)
	assert.Equal(t, models.DimensionEnsembleVoiceLimit, found[0].Dimension)
	assert.Equal(t, models.SeverityCritical, found[0].Severity)
	assert.Equal(t, models.EnsembleInstrumentID, found[0].Instrument)
	assert.Equal(t, models.DimensionPowerBudget, found[1].Dimension)
	assert.Equal(t, models.SeverityMajor, found[1].Severity)

	assert.Equal(t, []string{"a", "b", "c"}, ActiveInstruments(score.Notes, []int{2, 0, 1}, cfg.VoiceOwners(score)))
	assert.InDelta(t, 20.0, PowerDraw(cfg, []string{"a", "c"}), 1e-9)

	cfg.MaxTotalSimultaneousVoices = 0
	cfg.PowerBudget = 0
	assert.Empty(t, Ensemble(score, cfg))
}

func withPower(watts float64) models.InstrumentConstraints {
	c := constraints(models.NewPitchRange(0, 127), 1)
	c.PowerWatts = watts
	return c
}

func TestSuiteRunIsDeterministic(t *testing.T) {
	cfg := models.EnsembleConfiguration{
		MaxTotalSimultaneousVoices: 2,
		Instruments: map[string]models.InstrumentAssignment{
			"bells": {Constraints: constraints(models.NewPitchSet(60, 64, 67), 1), Voices: models.VoiceRange{Low: 0, High: 0}},
			"organ": {Constraints: constraints(models.NewPitchRange(36, 72), 1), Voices: models.VoiceRange{Low: 1, High: 2}},
			"drum":  {Constraints: constraints(models.NewPitchSet(36), 1), Voices: models.VoiceRange{Low: 3, High: 3}},
		},
	}
	score := models.MusicalScore{Notes: []models.MusicalNote{
		note(61, 0, 1, 0),
		note(74, 0, 1, 1),
		note(55, 0, 1, 2),
		note(38, 0, 1, 3),
	}}

	first, err := NewSuite(1).Run(context.Background(), score, cfg)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := NewSuite(8).Run(context.Background(), score, cfg)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	assert.False(t, first.FullyPlayable)
	assert.Equal(t, 4, first.TotalNotes)
	for k := 1; k < len(first.Violations); k++ {
		assert.LessOrEqual(t, first.Violations[k-1].Severity, first.Violations[k].Severity)
	}
}

func TestSuiteRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := single("bells", constraints(models.NewPitchSet(60), 1), 0, 0)
	score := models.MusicalScore{Notes: []models.MusicalNote{note(60, 0, 1, 0)}}

	_, err := NewSuite(2).Run(ctx, score, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewReport(t *testing.T) {
	violations := []models.ConstraintViolation{
		{Dimension: models.DimensionDynamicRange, Instrument: "b", Severity: models.SeverityMinor, Notes: []int{3}},
		{Dimension: models.DimensionFixedPitchSet, Instrument: "b", Severity: models.SeverityCritical, Notes: []int{1}},
		{Dimension: models.DimensionFixedPitchSet, Instrument: "a", Severity: models.SeverityCritical, Notes: []int{0, 1}},
		{Dimension: models.DimensionPitchRange, Instrument: "a", Severity: models.SeverityInfo, Notes: []int{2}},
	}

	report := NewReport(violations, 4)
	require.Len(t, report.Violations, 4)
	assert.Equal(t, "a", report.Violations[0].Instrument)
	assert.Equal(t, "b", report.Violations[1].Instrument)
	assert.Equal(t, models.SeverityMinor, report.Violations[2].Severity)
	assert.Equal(t, models.SeverityInfo, report.Violations[3].Severity)

	assert.Equal(t, map[models.Severity]int{
		models.SeverityCritical: 2,
		models.SeverityMajor:    0,
		models.SeverityMinor:    1,
		models.SeverityInfo:     1,
	}, report.Counts)
	assert.InDelta(t, 0.5, report.Playability, 1e-9)
	assert.False(t, report.FullyPlayable)
	assert.Len(t, report.Actionable(), 3)

	empty := NewReport(nil, 0)
	assert.NotNil(t, empty.Violations)
	assert.True(t, empty.FullyPlayable)
	assert.Equal(t, 1.0, empty.Playability)
}
