package resolve

import (
	"sort"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

// Importance weights
const (
	roleWeight    = 0.4
	densityWeight = 0.35
	fitWeight     = 0.25
)

// part is a group of notes ranked as a unit: one voice inside an instrument,
// or one instrument inside the ensemble
type part struct {
	key        int
	id         string
	notes      []int
	role       models.Role
	importance float64
}

// rankParts scores each part in the window and returns them most important
// first. Implied roles come from register: the highest part carries the
// melody, the lowest (when there are several) the rhythm, the rest harmony.
// Density counts every note of the part overlapping the window, normalized
// to the busiest part. Fit is the share of the part's window notes inside
// its instrument's preferred range. preferred and constraints resolve per part.
func rankParts(
	notes []models.MusicalNote,
	window models.TimeWindow,
	parts []*part,
	members func(p *part, n models.MusicalNote) bool,
	preferred func(p *part) models.Role,
	constraints func(p *part) models.InstrumentConstraints,
) []*part {
	if len(parts) == 0 {
		return nil
	}

	mean := make(map[*part]float64, len(parts))
	for _, p := range parts {
		sum := 0
		for _, i := range p.notes {
			sum += notes[i].Pitch
		}
		mean[p] = float64(sum) / float64(len(p.notes))
	}

	byRegister := append([]*part(nil), parts...)
	sort.SliceStable(byRegister, func(i, j int) bool {
		if mean[byRegister[i]] != mean[byRegister[j]] {
			return mean[byRegister[i]] > mean[byRegister[j]]
		}
		return lessPart(byRegister[i], byRegister[j])
	})
	for k, p := range byRegister {
		switch {
		case k == 0:
			p.role = models.RoleMelody
		case k == len(byRegister)-1:
			p.role = models.RoleRhythm
		default:
			p.role = models.RoleHarmony
		}
	}

	density := make(map[*part]int, len(parts))
	busiest := 0
	for _, p := range parts {
		for _, n := range notes {
			if members(p, n) && n.Start < window.End && n.End() > window.Start {
				density[p]++
			}
		}
		if density[p] > busiest {
			busiest = density[p]
		}
	}

	for _, p := range parts {
		role := 0.0
		if p.role == preferred(p) {
			role = 1.0
		}
		dens := 0.0
		if busiest > 0 {
			dens = float64(density[p]) / float64(busiest)
		}
		c := constraints(p)
		fits := 0
		for _, i := range p.notes {
			if c.InPreferredRange(notes[i].Pitch) {
				fits++
			}
		}
		fit := float64(fits) / float64(len(p.notes))
		p.importance = roleWeight*role + densityWeight*dens + fitWeight*fit
	}

	ranked := append([]*part(nil), parts...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].importance != ranked[j].importance {
			return ranked[i].importance > ranked[j].importance
		}
		return lessPart(ranked[i], ranked[j])
	})
	return ranked
}

// lessPart orders parts by voice number, then instrument identifier
func lessPart(a, b *part) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.id < b.id
}
