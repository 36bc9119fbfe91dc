package validate

import (
	"fmt"
	"sort"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

// TimeEpsilon absorbs floating point noise in time comparisons
const TimeEpsilon = 1e-9

var (
	shortNoteStrategies = []models.Strategy{
		models.StrategyAdjustDuration,
		models.StrategyChangeTempo,
		models.StrategyOmit,
	}
	longNoteStrategies = []models.Strategy{
		models.StrategyAdjustDuration,
		models.StrategyOmit,
	}
	transitionStrategies = []models.Strategy{
		models.StrategyShiftOnset,
		models.StrategyAdjustDuration,
		models.StrategySimplify,
		models.StrategyOmit,
	}
)

// Timing checks note durations and the settling time between consecutive
// notes of the same voice
func Timing(score models.MusicalScore, inst Instrument) []models.ConstraintViolation {
	c := inst.Constraints
	indices := inst.NoteIndices(score)
	var violations []models.ConstraintViolation

	for _, i := range indices {
		note := score.Notes[i]
		switch {
		case note.Duration < c.MinNoteDuration-TimeEpsilon:
			violations = append(violations, models.ConstraintViolation{
				Dimension:  models.DimensionNoteDuration,
				Instrument: inst.ID,
				Severity:   models.SeverityMinor,
				Description: fmt.Sprintf("note %d lasts %.3f, shorter than the %.3f minimum of %s",
					i, note.Duration, c.MinNoteDuration, inst.ID),
				Notes:      []int{i},
				Impact:     clamp01((c.MinNoteDuration - note.Duration) / c.MinNoteDuration),
				Strategies: shortNoteStrategies,
				Suggested:  models.StrategyAdjustDuration,
			})
		case c.MaxNoteDuration > 0 && note.Duration > c.MaxNoteDuration+TimeEpsilon:
			violations = append(violations, models.ConstraintViolation{
				Dimension:  models.DimensionNoteDuration,
				Instrument: inst.ID,
				Severity:   models.SeverityMajor,
				Description: fmt.Sprintf("note %d lasts %.3f, longer than the %.3f maximum of %s",
					i, note.Duration, c.MaxNoteDuration, inst.ID),
				Notes:      []int{i},
				Impact:     clamp01((note.Duration - c.MaxNoteDuration) / note.Duration),
				Strategies: longNoteStrategies,
				Suggested:  models.StrategyAdjustDuration,
			})
		}
	}

	for _, line := range VoiceLines(score.Notes, indices) {
		for k := 0; k+1 < len(line); k++ {
			cur, next := score.Notes[line[k]], score.Notes[line[k+1]]
			gap := next.Start - cur.End()
			if gap >= c.NoteTransitionTime-TimeEpsilon {
				continue
			}
			deficit := c.NoteTransitionTime - gap
			impact := 1.0
			if c.NoteTransitionTime > 0 {
				impact = clamp01(deficit / c.NoteTransitionTime)
			}
			violations = append(violations, models.ConstraintViolation{
				Dimension:  models.DimensionTransitionTime,
				Instrument: inst.ID,
				Severity:   models.SeverityMajor,
				Description: fmt.Sprintf("voice %d leaves %.3f between notes %d and %d, %s needs %.3f",
					cur.Voice, gap, line[k], line[k+1], inst.ID, c.NoteTransitionTime),
				Notes:      []int{line[k], line[k+1]},
				Impact:     impact,
				Strategies: transitionStrategies,
				Suggested:  models.StrategyShiftOnset,
			})
		}
	}
	return violations
}

// VoiceLines splits note indices into per-voice sequences ordered by start
// time, voices ascending. Indices of a normalized score are already in start order.
func VoiceLines(notes []models.MusicalNote, indices []int) [][]int {
	byVoice := make(map[int][]int)
	var voices []int
	for _, i := range indices {
		v := notes[i].Voice
		if _, ok := byVoice[v]; !ok {
			voices = append(voices, v)
		}
		byVoice[v] = append(byVoice[v], i)
	}
	sort.Ints(voices)

	lines := make([][]int, 0, len(voices))
	for _, v := range voices {
		lines = append(lines, byVoice[v])
	}
	return lines
}
