// Package resolve turns constraint violations into candidate resolution
// actions. Resolvers never mutate the score; each proposal carries a musical
// cost in [0,1] so the optimizer can compare across dimensions. Omission is
// always the most expensive option and is proposed as a fallback wherever
// nothing gentler clears the violation.
package resolve

import (
	"sort"

	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/validate"
	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

// Cost scale shared by every resolver
const (
	OmitCost       = 1.0
	omitConfidence = 1.0
)

const (
	defaultTranspositionWindow    = 24
	defaultPhrasingToleranceBeats = 0.25
	defaultMaxTempoStretch        = 1.5
)

// Options tunes the resolvers
type Options struct {
	// TranspositionWindow bounds the semitone offsets searched in either direction
	TranspositionWindow int
	// PhrasingToleranceBeats is the largest onset shift, in beats, that keeps a phrase intact
	PhrasingToleranceBeats float64
	// MaxTempoStretch caps the slow-down factor of a change-tempo proposal
	MaxTempoStretch float64
}

// DefaultOptions returns the standard resolver tuning
func DefaultOptions() Options {
	return Options{
		TranspositionWindow:    defaultTranspositionWindow,
		PhrasingToleranceBeats: defaultPhrasingToleranceBeats,
		MaxTempoStretch:        defaultMaxTempoStretch,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TranspositionWindow <= 0 {
		o.TranspositionWindow = d.TranspositionWindow
	}
	if o.PhrasingToleranceBeats <= 0 {
		o.PhrasingToleranceBeats = d.PhrasingToleranceBeats
	}
	if o.MaxTempoStretch <= 1 {
		o.MaxTempoStretch = d.MaxTempoStretch
	}
	return o
}

// Resolver proposes actions for every dimension
type Resolver struct {
	opts Options
}

// New creates a resolver; zero option fields fall back to defaults
func New(opts Options) *Resolver {
	return &Resolver{opts: opts.withDefaults()}
}

// Resolve proposes candidate actions for the actionable violations. Each
// action references the violations it addresses by index into violations.
func (r *Resolver) Resolve(violations []models.ConstraintViolation, score models.MusicalScore, cfg models.EnsembleConfiguration) []models.ResolutionAction {
	byDimension := make(map[models.Dimension][]int)
	for i, v := range violations {
		if !v.Severity.Actionable() {
			continue
		}
		byDimension[v.Dimension] = append(byDimension[v.Dimension], i)
	}

	instruments := make(map[string]validate.Instrument)
	for _, inst := range validate.Instruments(cfg) {
		instruments[inst.ID] = inst
	}
	ctx := &scoreContext{score: score, cfg: cfg, instruments: instruments, opts: r.opts}

	var actions []models.ResolutionAction
	pitchIdx := append(byDimension[models.DimensionPitchRange], byDimension[models.DimensionFixedPitchSet]...)
	sort.Ints(pitchIdx)
	actions = append(actions, resolvePitch(ctx, violations, pitchIdx)...)

	for dim := models.DimensionPolyphonyLimit; dim <= models.DimensionPowerBudget; dim++ {
		idx := byDimension[dim]
		switch dim {
		case models.DimensionPolyphonyLimit:
			actions = append(actions, resolveVoices(ctx, violations, idx)...)
		case models.DimensionNoteDuration:
			actions = append(actions, resolveDurations(ctx, violations, idx)...)
		case models.DimensionTransitionTime:
			actions = append(actions, resolveTransitions(ctx, violations, idx)...)
		case models.DimensionDynamicRange:
			actions = append(actions, resolveDynamics(ctx, violations, idx)...)
		case models.DimensionEnsembleVoiceLimit, models.DimensionPowerBudget:
			actions = append(actions, resolveEnsemble(ctx, violations, idx)...)
		case models.DimensionPitchRange, models.DimensionFixedPitchSet:
			// grouped above
		}
	}
	return actions
}

// scoreContext bundles the read-only inputs shared by the resolvers
type scoreContext struct {
	score       models.MusicalScore
	cfg         models.EnsembleConfiguration
	instruments map[string]validate.Instrument
	opts        Options
}

// instrumentOf returns the instrument rendering note i
func (c *scoreContext) instrumentOf(i int) (validate.Instrument, bool) {
	id, ok := c.cfg.InstrumentForVoice(c.score.Notes[i].Voice)
	if !ok {
		return validate.Instrument{}, false
	}
	inst, ok := c.instruments[id]
	return inst, ok
}

// nextInVoice returns the index of the next note in the same voice after i, or -1
func (c *scoreContext) nextInVoice(i int) int {
	voice := c.score.Notes[i].Voice
	for k := i + 1; k < len(c.score.Notes); k++ {
		if c.score.Notes[k].Voice == voice {
			return k
		}
	}
	return -1
}

func omitAction(notes []models.MusicalNote, targets []int, violations []int, reason string) models.ResolutionAction {
	edits := make([]models.NoteEdit, 0, len(targets))
	for _, t := range targets {
		edits = append(edits, models.OmitNote(t, notes[t]))
	}
	return models.ResolutionAction{
		Strategy:   models.StrategyOmit,
		Targets:    sortedCopy(targets),
		Edits:      edits,
		Cost:       OmitCost,
		Confidence: omitConfidence,
		Violations: violations,
		Reason:     reason,
	}
}

func editTargets(edits []models.NoteEdit) []int {
	targets := make([]int, 0, len(edits))
	for _, e := range edits {
		targets = append(targets, e.Index)
	}
	sort.Ints(targets)
	return targets
}

func sortedCopy(values []int) []int {
	out := append([]int(nil), values...)
	sort.Ints(out)
	return out
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
