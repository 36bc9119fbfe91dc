package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput marks malformed scores or ensemble configurations.
// It is distinct from constraint violations, which are reported as data.
var ErrInvalidInput = errors.New("invalid input")

// inputValidate is the shared validator instance for boundary checks
var inputValidate = validator.New()

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Validate checks the score's own invariants
func (s MusicalScore) Validate() error {
	if err := inputValidate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return invalid("score field %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return invalid("score: %v", err)
	}
	return nil
}

// Validate checks the configuration for internal consistency
func (e EnsembleConfiguration) Validate() error {
	if len(e.Instruments) == 0 {
		return invalid("ensemble has no instruments")
	}
	if e.MaxTotalSimultaneousVoices < 0 {
		return invalid("max_total_simultaneous_voices must not be negative")
	}
	if e.PowerBudget < 0 {
		return invalid("power_budget must not be negative")
	}

	ids := e.InstrumentIDs()
	for i, id := range ids {
		a := e.Instruments[id]
		if err := a.Constraints.validate(id); err != nil {
			return err
		}
		if a.Voices.Low < 0 || a.Voices.Low > a.Voices.High {
			return invalid("instrument %s has invalid voice range [%d, %d]", id, a.Voices.Low, a.Voices.High)
		}
		for _, other := range ids[i+1:] {
			b := e.Instruments[other].Voices
			if a.Voices.Low <= b.High && b.Low <= a.Voices.High {
				return invalid("instruments %s and %s serve overlapping voices", id, other)
			}
		}
	}
	return nil
}

func (c InstrumentConstraints) validate(id string) error {
	if c.ID != "" && c.ID != id {
		return invalid("instrument %s declares mismatched id %q", id, c.ID)
	}
	switch c.Pitch.Kind {
	case PitchKindRange, PitchKindDiatonic:
		if c.Pitch.Range.Low > c.Pitch.Range.High {
			return invalid("instrument %s has empty pitch range", id)
		}
	case PitchKindSet:
		if len(c.Pitch.Pitches) == 0 {
			return invalid("instrument %s has an empty pitch set", id)
		}
	default:
		return invalid("instrument %s has unknown pitch constraint kind", id)
	}
	if c.MaxSimultaneousNotes < 1 {
		return invalid("instrument %s must allow at least one simultaneous note", id)
	}
	if c.MinNoteDuration < 0 || c.MaxNoteDuration < 0 || c.NoteTransitionTime < 0 {
		return invalid("instrument %s has negative timing limits", id)
	}
	if c.MaxNoteDuration > 0 && c.MaxNoteDuration < c.MinNoteDuration {
		return invalid("instrument %s has max_note_duration below min_note_duration", id)
	}
	if c.Velocity.Min < 0 || c.Velocity.Max > 127 || c.Velocity.Min > c.Velocity.Max {
		return invalid("instrument %s has invalid velocity range [%d, %d]", id, c.Velocity.Min, c.Velocity.Max)
	}
	if c.PowerWatts < 0 {
		return invalid("instrument %s has negative power draw", id)
	}
	return nil
}

// ValidateInputs checks a score against a configuration before adaptation:
// both must be well formed and every voice in the score must have an instrument.
func ValidateInputs(score MusicalScore, cfg EnsembleConfiguration) error {
	if err := score.Validate(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, v := range score.Voices() {
		if _, ok := cfg.InstrumentForVoice(v); !ok {
			return invalid("voice %d is not served by any instrument", v)
		}
	}
	return nil
}
