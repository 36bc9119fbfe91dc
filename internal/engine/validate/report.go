package validate

import (
	"sort"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

// NewReport aggregates violations into a report. Violations are sorted by
// severity, instrument, first affected note, dimension and description so the
// report does not depend on the order validators finished in.
func NewReport(violations []models.ConstraintViolation, totalNotes int) models.ViolationReport {
	sorted := make([]models.ConstraintViolation, len(violations))
	copy(sorted, violations)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.Instrument != b.Instrument {
			return a.Instrument < b.Instrument
		}
		if fa, fb := a.FirstNote(), b.FirstNote(); fa != fb {
			return fa < fb
		}
		if a.Dimension != b.Dimension {
			return a.Dimension < b.Dimension
		}
		return a.Description < b.Description
	})

	counts := make(map[models.Severity]int, len(models.Severities()))
	for _, sev := range models.Severities() {
		counts[sev] = 0
	}
	blocked := make(map[int]bool)
	for _, v := range sorted {
		counts[v.Severity]++
		if v.Severity == models.SeverityCritical {
			for _, n := range v.Notes {
				blocked[n] = true
			}
		}
	}

	playability := 1.0
	if totalNotes > 0 {
		playability = float64(totalNotes-len(blocked)) / float64(totalNotes)
	}

	return models.ViolationReport{
		Violations:    sorted,
		Counts:        counts,
		TotalNotes:    totalNotes,
		Playability:   playability,
		FullyPlayable: counts[models.SeverityCritical] == 0,
	}
}
