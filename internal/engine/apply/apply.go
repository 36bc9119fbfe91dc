// Package apply executes a resolution plan against a score.
package apply

import (
	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

// Apply returns a new score with the plan's actions applied in order.
// An edit only takes effect when the note at its index is still the note it
// was built against, so repeating an action, or applying a plan to its own
// output, changes nothing further. The input score is never modified.
// Omitted notes are dropped and the result is renormalized, so note indices
// of the returned score are fresh.
func Apply(score models.MusicalScore, plan models.ResolutionPlan) models.MusicalScore {
	out := score.Copy()
	omitted := make([]bool, len(out.Notes))

	for _, action := range plan.Actions {
		for _, edit := range action.Edits {
			if edit.Index < 0 || edit.Index >= len(out.Notes) || !edit.Matches(out.Notes[edit.Index]) {
				continue
			}
			if edit.Omit {
				omitted[edit.Index] = true
				continue
			}
			out.Notes[edit.Index] = edit.Note
		}
		if action.Strategy == models.StrategyChangeTempo && action.Params.Tempo > 0 {
			out.Tempo = action.Params.Tempo
		}
	}

	kept := make([]models.MusicalNote, 0, len(out.Notes))
	for i, n := range out.Notes {
		if !omitted[i] {
			kept = append(kept, n)
		}
	}
	out.Notes = kept
	return out.Normalized()
}
