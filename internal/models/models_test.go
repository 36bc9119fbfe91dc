package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstrument(id string, pitch PitchConstraint) InstrumentConstraints {
	return InstrumentConstraints{
		ID:                   id,
		Pitch:                pitch,
		MaxSimultaneousNotes: 1,
		Velocity:             VelocityRange{Min: 0, Max: 127},
	}
}

func TestPitchConstraintAllows(t *testing.T) {
	tests := []struct {
		name       string
		constraint PitchConstraint
		allowed    []int
		rejected   []int
	}{
		{
			name:       "range",
			constraint: NewPitchRange(48, 72),
			allowed:    []int{48, 60, 72},
			rejected:   []int{47, 73},
		},
		{
			name:       "set is sorted on construction",
			constraint: NewPitchSet(67, 60, 64),
			allowed:    []int{60, 64, 67},
			rejected:   []int{61, 62, 65, 68},
		},
		{
			name:       "D major",
			constraint: NewPitchDiatonic(2, false, 62, 74),
			allowed:    []int{62, 64, 66, 67, 69, 71, 73, 74},
			rejected:   []int{63, 65, 72, 61, 76},
		},
		{
			name:       "A minor",
			constraint: NewPitchDiatonic(9, true, 57, 69),
			allowed:    []int{57, 59, 60, 62, 64, 65, 67, 69},
			rejected:   []int{58, 61, 66, 68},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, p := range tt.allowed {
				assert.True(t, tt.constraint.Allows(p), "pitch %d should be allowed", p)
			}
			for _, p := range tt.rejected {
				assert.False(t, tt.constraint.Allows(p), "pitch %d should be rejected", p)
			}
		})
	}

	set := NewPitchSet(67, 60, 64)
	assert.Equal(t, []int{60, 64, 67}, set.Pitches)
	assert.Equal(t, PitchRange{Low: 60, High: 67}, set.Bounds())
}

func TestPitchRangeDistance(t *testing.T) {
	r := PitchRange{Low: 60, High: 72}
	assert.Equal(t, 0, r.Distance(66))
	assert.Equal(t, 3, r.Distance(57))
	assert.Equal(t, 5, r.Distance(77))
}

func TestInPreferredRange(t *testing.T) {
	c := testInstrument("marimba", NewPitchRange(48, 84))
	assert.True(t, c.InPreferredRange(50), "no preferred ranges means the whole range")
	assert.False(t, c.InPreferredRange(90))

	c.PreferredRanges = []PitchRange{{Low: 60, High: 72}}
	assert.True(t, c.InPreferredRange(65))
	assert.False(t, c.InPreferredRange(50))
}

func TestNormalized(t *testing.T) {
	score := MusicalScore{
		Tempo: 100,
		Notes: []MusicalNote{
			{Pitch: 64, Velocity: 80, Start: 1, Duration: 1, Voice: 0},
			{Pitch: 67, Velocity: 80, Start: 0, Duration: 1, Voice: 1},
			{Pitch: 60, Velocity: 80, Start: 0, Duration: 1, Voice: 1},
			{Pitch: 55, Velocity: 80, Start: 0, Duration: 2, Voice: 0},
		},
	}

	normalized := score.Normalized()
	require.Len(t, normalized.Notes, 4)
	assert.Equal(t, []int{55, 60, 67, 64}, pitches(normalized))
	assert.True(t, normalized.IsNormalized())
	assert.False(t, score.IsNormalized())
	assert.Equal(t, 64, score.Notes[0].Pitch, "input must not be reordered")
	assert.True(t, normalized.Equal(normalized.Normalized()))
	assert.Equal(t, []int{0, 1}, score.Voices())
}

func pitches(s MusicalScore) []int {
	out := make([]int, 0, len(s.Notes))
	for _, n := range s.Notes {
		out = append(out, n.Pitch)
	}
	return out
}

func TestBeatDuration(t *testing.T) {
	assert.InDelta(t, 0.5, MusicalScore{}.BeatDuration(), 1e-12)
	assert.InDelta(t, 1.0, MusicalScore{Tempo: 60}.BeatDuration(), 1e-12)
}

func TestScoreValidate(t *testing.T) {
	tests := []struct {
		name    string
		note    MusicalNote
		wantErr bool
	}{
		{name: "valid", note: MusicalNote{Pitch: 60, Velocity: 90, Start: 0, Duration: 1}},
		{name: "zero duration", note: MusicalNote{Pitch: 60, Velocity: 90, Start: 0, Duration: 0}, wantErr: true},
		{name: "negative start", note: MusicalNote{Pitch: 60, Velocity: 90, Start: -1, Duration: 1}, wantErr: true},
		{name: "pitch above MIDI", note: MusicalNote{Pitch: 128, Velocity: 90, Duration: 1}, wantErr: true},
		{name: "negative velocity", note: MusicalNote{Pitch: 60, Velocity: -1, Duration: 1}, wantErr: true},
		{name: "negative voice", note: MusicalNote{Pitch: 60, Velocity: 90, Duration: 1, Voice: -2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MusicalScore{Notes: []MusicalNote{tt.note}}.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEnsembleValidate(t *testing.T) {
	valid := func() EnsembleConfiguration {
		return EnsembleConfiguration{
			Instruments: map[string]InstrumentAssignment{
				"bells": {Constraints: testInstrument("bells", NewPitchSet(60, 64, 67)), Voices: VoiceRange{Low: 0, High: 0}},
				"bass":  {Constraints: testInstrument("bass", NewPitchRange(36, 60)), Voices: VoiceRange{Low: 1, High: 2}},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(cfg *EnsembleConfiguration)
		errMsg string
	}{
		{name: "valid", mutate: func(*EnsembleConfiguration) {}},
		{
			name:   "no instruments",
			mutate: func(cfg *EnsembleConfiguration) { cfg.Instruments = nil },
			errMsg: "no instruments",
		},
		{
			name: "overlapping voices",
			mutate: func(cfg *EnsembleConfiguration) {
				a := cfg.Instruments["bass"]
				a.Voices = VoiceRange{Low: 0, High: 1}
				cfg.Instruments["bass"] = a
			},
			errMsg: "overlapping voices",
		},
		{
			name: "empty pitch set",
			mutate: func(cfg *EnsembleConfiguration) {
				a := cfg.Instruments["bells"]
				a.Constraints.Pitch = NewPitchSet()
				cfg.Instruments["bells"] = a
			},
			errMsg: "empty pitch set",
		},
		{
			name: "max below min duration",
			mutate: func(cfg *EnsembleConfiguration) {
				a := cfg.Instruments["bass"]
				a.Constraints.MinNoteDuration = 0.5
				a.Constraints.MaxNoteDuration = 0.25
				cfg.Instruments["bass"] = a
			},
			errMsg: "max_note_duration",
		},
		{
			name: "zero polyphony",
			mutate: func(cfg *EnsembleConfiguration) {
				a := cfg.Instruments["bass"]
				a.Constraints.MaxSimultaneousNotes = 0
				cfg.Instruments["bass"] = a
			},
			errMsg: "at least one simultaneous note",
		},
		{
			name: "mismatched id",
			mutate: func(cfg *EnsembleConfiguration) {
				a := cfg.Instruments["bass"]
				a.Constraints.ID = "tuba"
				cfg.Instruments["bass"] = a
			},
			errMsg: "mismatched id",
		},
		{
			name:   "negative power budget",
			mutate: func(cfg *EnsembleConfiguration) { cfg.PowerBudget = -1 },
			errMsg: "power_budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateInputsRequiresServedVoices(t *testing.T) {
	cfg := EnsembleConfiguration{
		Instruments: map[string]InstrumentAssignment{
			"bells": {Constraints: testInstrument("bells", NewPitchRange(60, 72)), Voices: VoiceRange{Low: 0, High: 0}},
		},
	}
	score := MusicalScore{Notes: []MusicalNote{
		{Pitch: 60, Velocity: 80, Duration: 1, Voice: 0},
		{Pitch: 62, Velocity: 80, Duration: 1, Voice: 3},
	}}

	err := ValidateInputs(score, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "voice 3")

	id, ok := cfg.InstrumentForVoice(0)
	assert.True(t, ok)
	assert.Equal(t, "bells", id)
	assert.Equal(t, []int{0}, cfg.NoteIndicesFor(score, "bells"))
}

func TestEnumText(t *testing.T) {
	data, err := json.Marshal(map[Severity]int{SeverityCritical: 2, SeverityInfo: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"critical":2,"info":1}`, string(data))

	var s Strategy
	require.NoError(t, s.UnmarshalText([]byte("reduce-voice")))
	assert.Equal(t, StrategyReduceVoice, s)
	assert.Error(t, s.UnmarshalText([]byte("teleport")))

	var d Dimension
	require.NoError(t, json.Unmarshal([]byte(`"power-budget"`), &d))
	assert.Equal(t, DimensionPowerBudget, d)

	role, err := ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleMelody, role)
	_, err = ParseRole("percussion")
	assert.Error(t, err)

	assert.True(t, SeverityMinor.Actionable())
	assert.False(t, SeverityInfo.Actionable())
}
