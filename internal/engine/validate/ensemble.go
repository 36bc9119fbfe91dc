package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

var ensembleStrategies = []models.Strategy{
	models.StrategyReduceVoice,
	models.StrategyOmit,
}

// Ensemble checks ensemble-wide budgets over every maximal overlap window:
// the number of distinct sounding instruments and their summed power draw.
func Ensemble(score models.MusicalScore, cfg models.EnsembleConfiguration) []models.ConstraintViolation {
	if cfg.MaxTotalSimultaneousVoices <= 0 && cfg.PowerBudget <= 0 {
		return nil
	}

	owners := cfg.VoiceOwners(score)
	var served []int
	for i, n := range score.Notes {
		if _, ok := owners[n.Voice]; ok {
			served = append(served, i)
		}
	}

	var violations []models.ConstraintViolation
	for _, w := range OverlapWindows(score.Notes, served) {
		active := ActiveInstruments(score.Notes, w.Notes, owners)

		if limit := cfg.MaxTotalSimultaneousVoices; limit > 0 && len(active) > limit {
			window := w
			violations = append(violations, models.ConstraintViolation{
				Dimension:  models.DimensionEnsembleVoiceLimit,
				Instrument: models.EnsembleInstrumentID,
				Severity:   models.SeverityCritical,
				Description: fmt.Sprintf("%d instruments (%s) sound together between %.3f and %.3f (limit %d)",
					len(active), strings.Join(active, ", "), w.Start, w.End, limit),
				Notes:      append([]int(nil), w.Notes...),
				Impact:     float64(len(active)-limit) / float64(len(active)),
				Strategies: ensembleStrategies,
				Suggested:  models.StrategyReduceVoice,
				Window:     &window,
			})
		}

		if budget := cfg.PowerBudget; budget > 0 {
			draw := PowerDraw(cfg, active)
			if draw > budget+TimeEpsilon {
				window := w
				violations = append(violations, models.ConstraintViolation{
					Dimension:  models.DimensionPowerBudget,
					Instrument: models.EnsembleInstrumentID,
					Severity:   models.SeverityMajor,
					Description: fmt.Sprintf("instruments draw %.1fW between %.3f and %.3f (budget %.1fW)",
						draw, w.Start, w.End, budget),
					Notes:      append([]int(nil), w.Notes...),
					Impact:     clamp01((draw - budget) / draw),
					Strategies: ensembleStrategies,
					Suggested:  models.StrategyReduceVoice,
					Window:     &window,
				})
			}
		}
	}
	return violations
}

// ActiveInstruments returns the sorted instruments that own at least one of the notes
func ActiveInstruments(notes []models.MusicalNote, indices []int, owners map[int]string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, i := range indices {
		id, ok := owners[notes[i].Voice]
		if ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// PowerDraw sums the steady-state draw of the given instruments
func PowerDraw(cfg models.EnsembleConfiguration, ids []string) float64 {
	total := 0.0
	for _, id := range ids {
		total += cfg.Instruments[id].Constraints.PowerWatts
	}
	return total
}
