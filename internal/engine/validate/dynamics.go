package validate

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

const maxVelocity = 127.0

var dynamicStrategies = []models.Strategy{models.StrategyAdjustDynamic}

// Dynamics checks note velocities against the instrument's velocity range.
// Both directions are MINOR: mechanisms clamp rather than fail.
func Dynamics(score models.MusicalScore, inst Instrument) []models.ConstraintViolation {
	r := inst.Constraints.Velocity
	var violations []models.ConstraintViolation

	for _, i := range inst.NoteIndices(score) {
		vel := score.Notes[i].Velocity
		if vel >= r.Min && vel <= r.Max {
			continue
		}
		dist := r.Clamp(vel) - vel
		if dist < 0 {
			dist = -dist
		}
		violations = append(violations, models.ConstraintViolation{
			Dimension:  models.DimensionDynamicRange,
			Instrument: inst.ID,
			Severity:   models.SeverityMinor,
			Description: fmt.Sprintf("velocity %d of note %d is outside [%d, %d] on %s",
				vel, i, r.Min, r.Max, inst.ID),
			Notes:      []int{i},
			Impact:     clamp01(float64(dist) / maxVelocity),
			Strategies: dynamicStrategies,
			Suggested:  models.StrategyAdjustDynamic,
		})
	}
	return violations
}
