package validate

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

const (
	// nearBoundarySemitones is the widest out-of-range distance still graded MINOR
	nearBoundarySemitones = 2
	semitonesPerOctave    = 12
)

var pitchStrategies = []models.Strategy{
	models.StrategyTranspose,
	models.StrategyRedistribute,
	models.StrategyOmit,
}

// Pitch checks every note rendered by the instrument against its pitch constraint
func Pitch(score models.MusicalScore, inst Instrument) []models.ConstraintViolation {
	var violations []models.ConstraintViolation
	c := inst.Constraints.Pitch

	for _, i := range inst.NoteIndices(score) {
		note := score.Notes[i]
		if c.Allows(note.Pitch) {
			continue
		}

		dist := c.Range.Distance(note.Pitch)
		v := models.ConstraintViolation{
			Instrument: inst.ID,
			Notes:      []int{i},
			Strategies: pitchStrategies,
			Suggested:  models.StrategyTranspose,
		}

		switch {
		case c.Kind == models.PitchKindSet:
			v.Dimension = models.DimensionFixedPitchSet
			v.Severity = models.SeverityCritical
			v.Impact = 1.0
			v.Description = fmt.Sprintf("pitch %d is not in the fixed pitch set of %s", note.Pitch, inst.ID)
		case c.Kind == models.PitchKindDiatonic && dist == 0:
			v.Dimension = models.DimensionFixedPitchSet
			v.Severity = models.SeverityCritical
			v.Impact = 1.0
			v.Description = fmt.Sprintf("pitch %d is outside the diatonic scale of %s", note.Pitch, inst.ID)
		default:
			v.Dimension = models.DimensionPitchRange
			v.Severity = models.SeverityMajor
			if dist <= nearBoundarySemitones {
				v.Severity = models.SeverityMinor
			}
			v.Impact = clamp01(float64(dist) / semitonesPerOctave)
			v.Description = fmt.Sprintf("pitch %d is %d semitones outside the range [%d, %d] of %s",
				note.Pitch, dist, c.Range.Low, c.Range.High, inst.ID)
		}
		violations = append(violations, v)
	}
	return violations
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
