package resolve

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/validate"
	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

const (
	reduceVoiceBaseCost         = 0.5
	reduceVoiceImportance       = 0.4
	reduceVoiceConfidence       = 0.8
	voiceRedistributeCost       = 0.45
	voiceRedistributeConfidence = 0.55
)

// resolveVoices keeps the most important voices of each overloaded window and
// proposes dropping the rest, one reduce-voice action per dropped voice. A
// dropped voice that another instrument can take over unchanged also gets a
// cheaper redistribute proposal.
func resolveVoices(ctx *scoreContext, violations []models.ConstraintViolation, idx []int) []models.ResolutionAction {
	var actions []models.ResolutionAction
	for _, vi := range idx {
		v := violations[vi]
		inst, ok := ctx.instruments[v.Instrument]
		if !ok || v.Window == nil {
			continue
		}

		ranked := rankVoices(ctx, inst, *v.Window)
		limit := inst.Constraints.MaxSimultaneousNotes
		if len(ranked) <= limit {
			continue
		}
		for _, p := range ranked[limit:] {
			reason := fmt.Sprintf("drop voice %d (%s, importance %.2f) on %s between %.3f and %.3f",
				p.key, p.role, p.importance, inst.ID, v.Window.Start, v.Window.End)
			a := omitAction(ctx.score.Notes, p.notes, []int{vi}, reason)
			a.Strategy = models.StrategyReduceVoice
			a.Cost = clamp01(reduceVoiceBaseCost + reduceVoiceImportance*p.importance)
			a.Confidence = reduceVoiceConfidence
			voice := p.key
			a.Params = models.ActionParams{Instrument: inst.ID, Voice: &voice}
			actions = append(actions, a)

			if moved, ok := redistributeAction(ctx, inst.ID, p.notes, []int{vi}); ok {
				moved.Cost = voiceRedistributeCost
				moved.Confidence = voiceRedistributeConfidence
				actions = append(actions, moved)
			}
		}
	}
	return actions
}

// rankVoices ranks the voices sounding in the window on one instrument
func rankVoices(ctx *scoreContext, inst validate.Instrument, window models.TimeWindow) []*part {
	byVoice := make(map[int]*part)
	var parts []*part
	for _, i := range window.Notes {
		voice := ctx.score.Notes[i].Voice
		p, ok := byVoice[voice]
		if !ok {
			p = &part{key: voice, id: inst.ID}
			byVoice[voice] = p
			parts = append(parts, p)
		}
		p.notes = append(p.notes, i)
	}

	return rankParts(ctx.score.Notes, window, parts,
		func(p *part, n models.MusicalNote) bool { return n.Voice == p.key },
		func(*part) models.Role { return inst.Constraints.PreferredRole },
		func(*part) models.InstrumentConstraints { return inst.Constraints },
	)
}
