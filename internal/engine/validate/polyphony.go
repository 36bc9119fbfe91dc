package validate

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

var polyphonyStrategies = []models.Strategy{
	models.StrategyReduceVoice,
	models.StrategyRedistribute,
	models.StrategyOmit,
}

// Polyphony flags every maximal overlap window in which the instrument
// would have to sound more distinct voices than it can
func Polyphony(score models.MusicalScore, inst Instrument) []models.ConstraintViolation {
	limit := inst.Constraints.MaxSimultaneousNotes
	var violations []models.ConstraintViolation

	for _, w := range OverlapWindows(score.Notes, inst.NoteIndices(score)) {
		voices := DistinctVoices(score.Notes, w.Notes)
		if len(voices) <= limit {
			continue
		}
		window := w
		violations = append(violations, models.ConstraintViolation{
			Dimension:  models.DimensionPolyphonyLimit,
			Instrument: inst.ID,
			Severity:   models.SeverityMajor,
			Description: fmt.Sprintf("%d voices sound together on %s between %.3f and %.3f (limit %d)",
				len(voices), inst.ID, w.Start, w.End, limit),
			Notes:      append([]int(nil), w.Notes...),
			Impact:     float64(len(voices)-limit) / float64(len(voices)),
			Strategies: polyphonyStrategies,
			Suggested:  models.StrategyReduceVoice,
			Window:     &window,
		})
	}
	return violations
}

// DistinctVoices returns the voices of the given notes in first-seen order
func DistinctVoices(notes []models.MusicalNote, indices []int) []int {
	seen := make(map[int]bool)
	var voices []int
	for _, i := range indices {
		v := notes[i].Voice
		if !seen[v] {
			seen[v] = true
			voices = append(voices, v)
		}
	}
	return voices
}
