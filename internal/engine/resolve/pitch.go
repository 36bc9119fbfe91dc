package resolve

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/validate"
	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

const (
	transposeBaseCost       = 0.1
	transposeOffsetWeight   = 0.6
	transposePreferredBonus = 0.1
	redistributeCost        = 0.55
	redistributeConfidence  = 0.6
	minMIDIPitch            = 0
	maxMIDIPitch            = 127
)

// pitchGroup is the set of pitch violations of one voice on one instrument
type pitchGroup struct {
	inst       validate.Instrument
	voice      int
	notes      []int
	violations []int
}

// transposition is a scored candidate offset
type transposition struct {
	offset     int
	cost       float64
	confidence float64
}

func resolvePitch(ctx *scoreContext, violations []models.ConstraintViolation, idx []int) []models.ResolutionAction {
	var actions []models.ResolutionAction
	for _, g := range groupPitchViolations(ctx, violations, idx) {
		if t, ok := bestTransposition(ctx, g.inst, g.notes); ok {
			actions = append(actions, transposeAction(ctx, g.notes, g.violations, t))
		} else {
			for k, n := range g.notes {
				single := []int{n}
				own := []int{g.violations[k]}
				if t, ok := bestTransposition(ctx, g.inst, single); ok {
					actions = append(actions, transposeAction(ctx, single, own, t))
					continue
				}
				if a, ok := redistributeAction(ctx, g.inst.ID, single, own); ok {
					actions = append(actions, a)
				}
			}
		}
		for k, n := range g.notes {
			actions = append(actions, omitAction(ctx.score.Notes, []int{n}, []int{g.violations[k]},
				fmt.Sprintf("%s cannot produce pitch %d", g.inst.ID, ctx.score.Notes[n].Pitch)))
		}
	}
	return actions
}

// groupPitchViolations groups single-note pitch violations by (instrument, voice),
// in order of first appearance
func groupPitchViolations(ctx *scoreContext, violations []models.ConstraintViolation, idx []int) []*pitchGroup {
	var groups []*pitchGroup
	byKey := make(map[string]*pitchGroup)
	for _, vi := range idx {
		v := violations[vi]
		inst, ok := ctx.instruments[v.Instrument]
		if !ok {
			continue
		}
		for _, n := range v.Notes {
			voice := ctx.score.Notes[n].Voice
			key := fmt.Sprintf("%s/%d", inst.ID, voice)
			g, ok := byKey[key]
			if !ok {
				g = &pitchGroup{inst: inst, voice: voice}
				byKey[key] = g
				groups = append(groups, g)
			}
			g.notes = append(g.notes, n)
			g.violations = append(g.violations, vi)
		}
	}
	return groups
}

// bestTransposition searches signed offsets within the window for the
// cheapest one that makes every note playable. Cost grows with the offset
// magnitude and shrinks with the share of pitches landing in a preferred
// range. Ties go to the smaller offset, then downward.
func bestTransposition(ctx *scoreContext, inst validate.Instrument, notes []int) (transposition, bool) {
	window := ctx.opts.TranspositionWindow
	var best transposition
	found := false

	for mag := 1; mag <= window; mag++ {
		for _, offset := range []int{-mag, mag} {
			preferred, ok := fitsWithOffset(ctx.score.Notes, inst.Constraints, notes, offset)
			if !ok {
				continue
			}
			cost := transposeBaseCost +
				transposeOffsetWeight*float64(mag)/float64(window) -
				transposePreferredBonus*preferred
			if !found || cost < best.cost-1e-12 {
				best = transposition{
					offset:     offset,
					cost:       clamp01(cost),
					confidence: clamp01(1 - 0.5*float64(mag)/float64(window)),
				}
				found = true
			}
		}
	}
	return best, found
}

// fitsWithOffset reports whether every note is producible after shifting by
// offset, and which fraction of them lands in a preferred range
func fitsWithOffset(notes []models.MusicalNote, c models.InstrumentConstraints, idx []int, offset int) (float64, bool) {
	inPreferred := 0
	for _, i := range idx {
		p := notes[i].Pitch + offset
		if p < minMIDIPitch || p > maxMIDIPitch || !c.Pitch.Allows(p) {
			return 0, false
		}
		if c.InPreferredRange(p) {
			inPreferred++
		}
	}
	return float64(inPreferred) / float64(len(idx)), true
}

func transposeAction(ctx *scoreContext, notes []int, violations []int, t transposition) models.ResolutionAction {
	edits := make([]models.NoteEdit, 0, len(notes))
	for _, i := range notes {
		n := ctx.score.Notes[i]
		moved := n
		moved.Pitch += t.offset
		edits = append(edits, models.ReplaceNote(i, n, moved))
	}
	return models.ResolutionAction{
		Strategy:   models.StrategyTranspose,
		Targets:    editTargets(edits),
		Params:     models.ActionParams{Interval: t.offset},
		Edits:      edits,
		Cost:       t.cost,
		Confidence: t.confidence,
		Violations: dedupe(violations),
		Reason:     fmt.Sprintf("transpose %d note(s) by %+d semitones", len(notes), t.offset),
	}
}

// redistributeAction moves notes to another instrument that can play every
// pitch unchanged, on that instrument's lowest voice that is silent for the span
func redistributeAction(ctx *scoreContext, from string, notes []int, violations []int) (models.ResolutionAction, bool) {
	for _, id := range ctx.cfg.InstrumentIDs() {
		if id == from {
			continue
		}
		target := ctx.instruments[id]
		if _, ok := fitsWithOffset(ctx.score.Notes, target.Constraints, notes, 0); !ok {
			continue
		}
		voice, ok := freeVoice(ctx.score.Notes, target.Voices, notes)
		if !ok {
			continue
		}

		edits := make([]models.NoteEdit, 0, len(notes))
		for _, i := range notes {
			n := ctx.score.Notes[i]
			moved := n
			moved.Voice = voice
			edits = append(edits, models.ReplaceNote(i, n, moved))
		}
		v := voice
		return models.ResolutionAction{
			Strategy:   models.StrategyRedistribute,
			Targets:    editTargets(edits),
			Params:     models.ActionParams{Instrument: id, Voice: &v},
			Edits:      edits,
			Cost:       redistributeCost,
			Confidence: redistributeConfidence,
			Violations: dedupe(violations),
			Reason:     fmt.Sprintf("move %d note(s) from %s to %s voice %d", len(notes), from, id, voice),
		}, true
	}
	return models.ResolutionAction{}, false
}

// freeVoice returns the lowest voice of the range with no note overlapping any of the moved notes
func freeVoice(notes []models.MusicalNote, voices models.VoiceRange, moved []int) (int, bool) {
	movedSet := make(map[int]bool, len(moved))
	for _, m := range moved {
		movedSet[m] = true
	}
	for voice := voices.Low; voice <= voices.High; voice++ {
		busy := false
		for k, n := range notes {
			if n.Voice != voice || movedSet[k] {
				continue
			}
			for _, m := range moved {
				if n.Overlaps(notes[m]) {
					busy = true
					break
				}
			}
			if busy {
				break
			}
		}
		if !busy {
			return voice, true
		}
	}
	return 0, false
}

func dedupe(values []int) []int {
	seen := make(map[int]bool, len(values))
	var out []int
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return sortedCopy(out)
}
