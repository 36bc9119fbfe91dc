// Package validate inspects a score against instrument and ensemble
// constraints. Every validator is a pure function of its inputs; Suite runs
// them per instrument in parallel and joins before the ensemble check.
package validate

import (
	"context"
	"runtime"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
	"golang.org/x/sync/errgroup"
)

// Instrument is one ensemble member as seen by the per-instrument validators
type Instrument struct {
	ID          string
	Constraints models.InstrumentConstraints
	Voices      models.VoiceRange
}

// NoteIndices returns the indices of the notes this instrument renders
func (i Instrument) NoteIndices(score models.MusicalScore) []int {
	var idx []int
	for k, n := range score.Notes {
		if i.Voices.Contains(n.Voice) {
			idx = append(idx, k)
		}
	}
	return idx
}

// Instruments lists the ensemble's instruments in identifier order
func Instruments(cfg models.EnsembleConfiguration) []Instrument {
	ids := cfg.InstrumentIDs()
	out := make([]Instrument, 0, len(ids))
	for _, id := range ids {
		a := cfg.Instruments[id]
		c := a.Constraints
		c.ID = id
		out = append(out, Instrument{ID: id, Constraints: c, Voices: a.Voices})
	}
	return out
}

// InstrumentValidator checks one constraint dimension of one instrument
type InstrumentValidator func(score models.MusicalScore, inst Instrument) []models.ConstraintViolation

// DefaultValidators are the per-instrument checks in report order
var DefaultValidators = []InstrumentValidator{Pitch, Polyphony, Timing, Dynamics}

// Suite runs the full validator set
type Suite struct {
	validators  []InstrumentValidator
	parallelism int
}

// NewSuite creates a suite running the default validators.
// parallelism <= 0 uses GOMAXPROCS.
func NewSuite(parallelism int) *Suite {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Suite{validators: DefaultValidators, parallelism: parallelism}
}

// Run validates score against every instrument concurrently, then runs the
// ensemble check once all per-instrument results are in, and builds the report.
// The only error is cancellation of ctx.
func (s *Suite) Run(ctx context.Context, score models.MusicalScore, cfg models.EnsembleConfiguration) (models.ViolationReport, error) {
	instruments := Instruments(cfg)
	results := make([][]models.ConstraintViolation, len(instruments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for k, inst := range instruments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var found []models.ConstraintViolation
			for _, validator := range s.validators {
				found = append(found, validator(score, inst)...)
			}
			results[k] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.ViolationReport{}, err
	}

	var all []models.ConstraintViolation
	for _, found := range results {
		all = append(all, found...)
	}
	all = append(all, Ensemble(score, cfg)...)

	return NewReport(all, len(score.Notes)), nil
}
