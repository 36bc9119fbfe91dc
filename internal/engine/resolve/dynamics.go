package resolve

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

const (
	clampBaseCost   = 0.05
	clampCostWeight = 0.45
	clampConfidence = 1.0
	velocitySpan    = 127.0
)

// resolveDynamics clamps velocities into the instrument's range
func resolveDynamics(ctx *scoreContext, violations []models.ConstraintViolation, idx []int) []models.ResolutionAction {
	var actions []models.ResolutionAction
	for _, vi := range idx {
		v := violations[vi]
		inst, ok := ctx.instruments[v.Instrument]
		if !ok || len(v.Notes) != 1 {
			continue
		}
		i := v.Notes[0]
		note := ctx.score.Notes[i]
		clamped := note
		clamped.Velocity = inst.Constraints.Velocity.Clamp(note.Velocity)
		vel := clamped.Velocity

		actions = append(actions, models.ResolutionAction{
			Strategy:   models.StrategyAdjustDynamic,
			Targets:    []int{i},
			Params:     models.ActionParams{Velocity: &vel},
			Edits:      []models.NoteEdit{models.ReplaceNote(i, note, clamped)},
			Cost:       clamp01(clampBaseCost + clampCostWeight*float64(absInt(vel-note.Velocity))/velocitySpan),
			Confidence: clampConfidence,
			Violations: []int{vi},
			Reason:     fmt.Sprintf("clamp velocity of note %d from %d to %d", i, note.Velocity, vel),
		})
	}
	return actions
}
