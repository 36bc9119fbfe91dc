package resolve

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/validate"
	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

const (
	stretchCostWeight    = 0.5
	stretchConfidence    = 0.9
	truncateConfidence   = 0.95
	shiftBaseCost        = 0.2
	shiftCostWeight      = 0.5
	shiftConfidence      = 0.8
	shortenBaseCost      = 0.15
	shortenCostWeight    = 0.5
	shortenConfidence    = 0.85
	simplifyCost         = 0.4
	simplifyConfidence   = 0.75
	tempoBaseCost        = 0.2
	tempoCostWeight      = 0.5
	tempoConfidence      = 0.7
	tempoMinNotes        = 4
	defaultTempoBPM      = 120.0
	tempoShortShareLimit = 0.5
)

// resolveDurations extends too-short notes up to the minimum when the next
// note of the voice leaves room, and truncates too-long notes to the maximum.
// When most of the score is too short, a global slow-down is offered as well.
func resolveDurations(ctx *scoreContext, violations []models.ConstraintViolation, idx []int) []models.ResolutionAction {
	var actions []models.ResolutionAction
	var short []int
	stretch := 1.0

	for _, vi := range idx {
		v := violations[vi]
		inst, ok := ctx.instruments[v.Instrument]
		if !ok || len(v.Notes) != 1 {
			continue
		}
		i := v.Notes[0]
		note := ctx.score.Notes[i]
		c := inst.Constraints

		if note.Duration < c.MinNoteDuration {
			short = append(short, vi)
			if s := c.MinNoteDuration / note.Duration; s > stretch {
				stretch = s
			}
			next := ctx.nextInVoice(i)
			if next < 0 || note.Start+c.MinNoteDuration <= ctx.score.Notes[next].Start+validate.TimeEpsilon {
				extended := note
				extended.Duration = c.MinNoteDuration
				actions = append(actions, models.ResolutionAction{
					Strategy:   models.StrategyAdjustDuration,
					Targets:    []int{i},
					Params:     models.ActionParams{Duration: c.MinNoteDuration},
					Edits:      []models.NoteEdit{models.ReplaceNote(i, note, extended)},
					Cost:       clamp01(stretchCostWeight * (c.MinNoteDuration - note.Duration) / c.MinNoteDuration),
					Confidence: stretchConfidence,
					Violations: []int{vi},
					Reason:     fmt.Sprintf("extend note %d from %.3f to %.3f", i, note.Duration, c.MinNoteDuration),
				})
			}
		} else if c.MaxNoteDuration > 0 && note.Duration > c.MaxNoteDuration {
			truncated := note
			truncated.Duration = c.MaxNoteDuration
			actions = append(actions, models.ResolutionAction{
				Strategy:   models.StrategyAdjustDuration,
				Targets:    []int{i},
				Params:     models.ActionParams{Duration: c.MaxNoteDuration},
				Edits:      []models.NoteEdit{models.ReplaceNote(i, note, truncated)},
				Cost:       clamp01(stretchCostWeight * (note.Duration - c.MaxNoteDuration) / note.Duration),
				Confidence: truncateConfidence,
				Violations: []int{vi},
				Reason:     fmt.Sprintf("truncate note %d from %.3f to %.3f", i, note.Duration, c.MaxNoteDuration),
			})
		}

		actions = append(actions, omitAction(ctx.score.Notes, []int{i}, []int{vi},
			fmt.Sprintf("note %d cannot be held for %.3f on %s", i, note.Duration, inst.ID)))
	}

	if a, ok := tempoAction(ctx, short, stretch); ok {
		actions = append(actions, a)
	}
	return actions
}

// tempoAction slows the whole score down so the shortest note reaches its
// minimum. Offered only when more than half of a non-trivial score is too
// short and the stretch stays within MaxTempoStretch.
func tempoAction(ctx *scoreContext, short []int, stretch float64) (models.ResolutionAction, bool) {
	total := len(ctx.score.Notes)
	if total < tempoMinNotes || float64(len(short)) <= tempoShortShareLimit*float64(total) {
		return models.ResolutionAction{}, false
	}
	if stretch <= 1 || stretch > ctx.opts.MaxTempoStretch {
		return models.ResolutionAction{}, false
	}

	tempo := ctx.score.Tempo
	if tempo <= 0 {
		tempo = defaultTempoBPM
	}
	edits := make([]models.NoteEdit, 0, total)
	for i, n := range ctx.score.Notes {
		stretched := n
		stretched.Start *= stretch
		stretched.Duration *= stretch
		edits = append(edits, models.ReplaceNote(i, n, stretched))
	}
	return models.ResolutionAction{
		Strategy:   models.StrategyChangeTempo,
		Targets:    editTargets(edits),
		Params:     models.ActionParams{Tempo: tempo / stretch, Stretch: stretch},
		Edits:      edits,
		Cost:       clamp01(tempoBaseCost + tempoCostWeight*(stretch-1)),
		Confidence: tempoConfidence,
		Violations: sortedCopy(short),
		Reason:     fmt.Sprintf("slow tempo from %.1f to %.1f BPM", tempo, tempo/stretch),
	}, true
}

// resolveTransitions restores settling time between consecutive notes of a
// voice. The later note's onset moves forward by the deficit when that stays
// within the phrasing tolerance; shortening the earlier note and merging
// repeated pitches are offered as alternatives. Omitting the shorter note is
// the fallback. Every alternative claims both notes of the pair, so at most
// one of them is accepted per pass.
func resolveTransitions(ctx *scoreContext, violations []models.ConstraintViolation, idx []int) []models.ResolutionAction {
	tolerance := ctx.opts.PhrasingToleranceBeats * ctx.score.BeatDuration()
	var actions []models.ResolutionAction

	for _, vi := range idx {
		v := violations[vi]
		inst, ok := ctx.instruments[v.Instrument]
		if !ok || len(v.Notes) != 2 {
			continue
		}
		ai, bi := v.Notes[0], v.Notes[1]
		a, b := ctx.score.Notes[ai], ctx.score.Notes[bi]
		c := inst.Constraints
		deficit := c.NoteTransitionTime - (b.Start - a.End())
		pair := sortedCopy([]int{ai, bi})

		if deficit <= tolerance+validate.TimeEpsilon {
			shifted := b
			shifted.Start = b.Start + deficit
			actions = append(actions, models.ResolutionAction{
				Strategy:   models.StrategyShiftOnset,
				Targets:    pair,
				Params:     models.ActionParams{Shift: deficit},
				Edits:      []models.NoteEdit{models.ReplaceNote(bi, b, shifted)},
				Cost:       clamp01(shiftBaseCost + shiftCostWeight*deficit/tolerance),
				Confidence: shiftConfidence,
				Violations: []int{vi},
				Reason:     fmt.Sprintf("delay note %d by %.3f", bi, deficit),
			})
		}

		if shortened := a.Duration - deficit; shortened >= c.MinNoteDuration && shortened > validate.TimeEpsilon {
			cut := a
			cut.Duration = shortened
			actions = append(actions, models.ResolutionAction{
				Strategy:   models.StrategyAdjustDuration,
				Targets:    pair,
				Params:     models.ActionParams{Duration: shortened},
				Edits:      []models.NoteEdit{models.ReplaceNote(ai, a, cut)},
				Cost:       clamp01(shortenBaseCost + shortenCostWeight*deficit/a.Duration),
				Confidence: shortenConfidence,
				Violations: []int{vi},
				Reason:     fmt.Sprintf("shorten note %d by %.3f", ai, deficit),
			})
		}

		if a.Pitch == b.Pitch {
			merged := a
			merged.Duration = b.End() - a.Start
			if c.MaxNoteDuration <= 0 || merged.Duration <= c.MaxNoteDuration {
				actions = append(actions, models.ResolutionAction{
					Strategy:   models.StrategySimplify,
					Targets:    pair,
					Edits:      []models.NoteEdit{models.ReplaceNote(ai, a, merged), models.OmitNote(bi, b)},
					Cost:       simplifyCost,
					Confidence: simplifyConfidence,
					Violations: []int{vi},
					Reason:     fmt.Sprintf("merge repeated pitch %d of notes %d and %d", a.Pitch, ai, bi),
				})
			}
		}

		drop := bi
		if a.Duration < b.Duration {
			drop = ai
		}
		omit := omitAction(ctx.score.Notes, []int{drop}, []int{vi},
			fmt.Sprintf("%s cannot settle between notes %d and %d", inst.ID, ai, bi))
		omit.Targets = pair
		actions = append(actions, omit)
	}
	return actions
}
