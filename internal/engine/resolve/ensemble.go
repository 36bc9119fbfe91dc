package resolve

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-ensemble/internal/engine/validate"
	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

// resolveEnsemble applies the voice ranking across instruments: in each
// offending window the least important instruments fall silent until the
// instrument count and power draw fit the ensemble budgets.
func resolveEnsemble(ctx *scoreContext, violations []models.ConstraintViolation, idx []int) []models.ResolutionAction {
	owners := ctx.cfg.VoiceOwners(ctx.score)
	var actions []models.ResolutionAction

	for _, vi := range idx {
		v := violations[vi]
		if v.Window == nil {
			continue
		}
		ranked := rankInstruments(ctx, owners, *v.Window)

		active := make([]string, 0, len(ranked))
		for _, p := range ranked {
			active = append(active, p.id)
		}

		var dropped []*part
		for k := len(ranked) - 1; k >= 0 && overBudget(ctx.cfg, v.Dimension, active); k-- {
			dropped = append(dropped, ranked[k])
			active = active[:k]
		}

		for _, p := range dropped {
			reason := fmt.Sprintf("silence %s (importance %.2f) between %.3f and %.3f to meet the ensemble %s",
				p.id, p.importance, v.Window.Start, v.Window.End, v.Dimension)
			a := omitAction(ctx.score.Notes, p.notes, []int{vi}, reason)
			a.Strategy = models.StrategyReduceVoice
			a.Cost = clamp01(reduceVoiceBaseCost + reduceVoiceImportance*p.importance)
			a.Confidence = reduceVoiceConfidence
			a.Params = models.ActionParams{Instrument: p.id}
			actions = append(actions, a)
		}
	}
	return actions
}

func overBudget(cfg models.EnsembleConfiguration, dim models.Dimension, active []string) bool {
	switch dim {
	case models.DimensionEnsembleVoiceLimit:
		return cfg.MaxTotalSimultaneousVoices > 0 && len(active) > cfg.MaxTotalSimultaneousVoices
	case models.DimensionPowerBudget:
		return cfg.PowerBudget > 0 && validate.PowerDraw(cfg, active) > cfg.PowerBudget+validate.TimeEpsilon
	}
	return false
}

// rankInstruments ranks the instruments sounding in the window
func rankInstruments(ctx *scoreContext, owners map[int]string, window models.TimeWindow) []*part {
	byID := make(map[string]*part)
	var parts []*part
	for _, i := range window.Notes {
		id, ok := owners[ctx.score.Notes[i].Voice]
		if !ok {
			continue
		}
		p, ok := byID[id]
		if !ok {
			p = &part{id: id}
			byID[id] = p
			parts = append(parts, p)
		}
		p.notes = append(p.notes, i)
	}

	return rankParts(ctx.score.Notes, window, parts,
		func(p *part, n models.MusicalNote) bool { return owners[n.Voice] == p.id },
		func(p *part) models.Role { return ctx.instruments[p.id].Constraints.PreferredRole },
		func(p *part) models.InstrumentConstraints { return ctx.instruments[p.id].Constraints },
	)
}
