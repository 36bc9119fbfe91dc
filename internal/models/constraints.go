package models

import (
	"fmt"
	"sort"
)

// EnsembleInstrumentID tags violations that belong to the ensemble rather than one instrument
const EnsembleInstrumentID = "ensemble"

// PitchKind selects which form a PitchConstraint takes
type PitchKind int

const (
	PitchKindRange PitchKind = iota
	PitchKindSet
	PitchKindDiatonic
	pitchKindCount
)

var pitchKindNames = [...]string{"range", "set", "diatonic"}

func (k PitchKind) String() string {
	if k >= 0 && k < pitchKindCount {
		return pitchKindNames[k]
	}
	return "unknown"
}

func (k PitchKind) MarshalText() ([]byte, error) {
	if k < 0 || k >= pitchKindCount {
		return nil, fmt.Errorf("unknown pitch kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *PitchKind) UnmarshalText(text []byte) error {
	v, err := parseName(pitchKindNames[:], string(text), "pitch kind")
	if err != nil {
		return err
	}
	*k = PitchKind(v)
	return nil
}

// Scale intervals (semitones above the tonic) for diatonic filters
var (
	majorScale = [7]int{0, 2, 4, 5, 7, 9, 11}
	minorScale = [7]int{0, 2, 3, 5, 7, 8, 10}
)

// PitchRange is an inclusive MIDI pitch interval
type PitchRange struct {
	Low  int `json:"low" yaml:"low"`
	High int `json:"high" yaml:"high"`
}

// Contains reports whether pitch lies inside the range
func (r PitchRange) Contains(pitch int) bool {
	return pitch >= r.Low && pitch <= r.High
}

// Distance returns how many semitones pitch lies outside the range (0 when inside)
func (r PitchRange) Distance(pitch int) int {
	switch {
	case pitch < r.Low:
		return r.Low - pitch
	case pitch > r.High:
		return pitch - r.High
	default:
		return 0
	}
}

// PitchConstraint describes which pitches an instrument can physically produce.
// Kind decides which fields apply:
//   - range: Range
//   - set: Pitches
//   - diatonic: Range plus Tonic (pitch class 0-11) and Minor
type PitchConstraint struct {
	Kind    PitchKind  `json:"kind"`
	Range   PitchRange `json:"range"`
	Pitches []int      `json:"pitches,omitempty"`
	Tonic   int        `json:"tonic,omitempty"`
	Minor   bool       `json:"minor,omitempty"`
}

// NewPitchRange builds a continuous range constraint
func NewPitchRange(low, high int) PitchConstraint {
	return PitchConstraint{Kind: PitchKindRange, Range: PitchRange{Low: low, High: high}}
}

// NewPitchSet builds a fixed-set constraint; the pitches are copied and sorted
func NewPitchSet(pitches ...int) PitchConstraint {
	set := append([]int(nil), pitches...)
	sort.Ints(set)
	lo, hi := 0, 0
	if len(set) > 0 {
		lo, hi = set[0], set[len(set)-1]
	}
	return PitchConstraint{Kind: PitchKindSet, Pitches: set, Range: PitchRange{Low: lo, High: hi}}
}

// NewPitchDiatonic builds a diatonic filter over [low, high]
func NewPitchDiatonic(tonic int, minor bool, low, high int) PitchConstraint {
	return PitchConstraint{
		Kind:  PitchKindDiatonic,
		Range: PitchRange{Low: low, High: high},
		Tonic: ((tonic % 12) + 12) % 12,
		Minor: minor,
	}
}

// Allows reports whether the instrument can produce pitch
func (c PitchConstraint) Allows(pitch int) bool {
	switch c.Kind {
	case PitchKindRange:
		return c.Range.Contains(pitch)
	case PitchKindSet:
		idx := sort.SearchInts(c.Pitches, pitch)
		return idx < len(c.Pitches) && c.Pitches[idx] == pitch
	case PitchKindDiatonic:
		return c.Range.Contains(pitch) && c.inScale(pitch)
	}
	return false
}

// Bounds returns the outermost producible range
func (c PitchConstraint) Bounds() PitchRange {
	return c.Range
}

func (c PitchConstraint) inScale(pitch int) bool {
	scale := majorScale
	if c.Minor {
		scale = minorScale
	}
	degree := ((pitch-c.Tonic)%12 + 12) % 12
	for _, step := range scale {
		if step == degree {
			return true
		}
	}
	return false
}

// InstrumentConstraints describes what one instrument can physically do.
// Durations and transition time are in seconds, power in watts.
type InstrumentConstraints struct {
	ID                   string          `json:"id"`
	Pitch                PitchConstraint `json:"pitch"`
	PreferredRanges      []PitchRange    `json:"preferred_ranges,omitempty"`
	MaxSimultaneousNotes int             `json:"max_simultaneous_notes"`
	MinNoteDuration      float64         `json:"min_note_duration"`
	MaxNoteDuration      float64         `json:"max_note_duration"` // 0 = unbounded
	NoteTransitionTime   float64         `json:"note_transition_time"`
	Velocity             VelocityRange   `json:"velocity_range"`
	PreferredRole        Role            `json:"preferred_role"`
	PowerWatts           float64         `json:"power_watts"`
}

// VelocityRange is an inclusive velocity interval
type VelocityRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Clamp moves v into the range
func (r VelocityRange) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// InPreferredRange reports whether pitch sits in one of the preferred sub-ranges.
// With no preferred ranges declared, the whole producible range counts.
func (c InstrumentConstraints) InPreferredRange(pitch int) bool {
	if len(c.PreferredRanges) == 0 {
		return c.Pitch.Allows(pitch)
	}
	for _, r := range c.PreferredRanges {
		if r.Contains(pitch) {
			return true
		}
	}
	return false
}

// VoiceRange is the inclusive block of voices an instrument serves
type VoiceRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Contains reports whether voice is served
func (r VoiceRange) Contains(voice int) bool {
	return voice >= r.Low && voice <= r.High
}

// InstrumentAssignment pairs an instrument with the voices it renders
type InstrumentAssignment struct {
	Constraints InstrumentConstraints `json:"constraints"`
	Voices      VoiceRange            `json:"voices"`
}

// EnsembleConfiguration is the full set of instruments plus shared budgets.
// It is read-only once handed to the engine.
type EnsembleConfiguration struct {
	Name                       string                          `json:"name,omitempty"`
	Instruments                map[string]InstrumentAssignment `json:"instruments"`
	MaxTotalSimultaneousVoices int                             `json:"max_total_simultaneous_voices"` // 0 = unbounded
	PowerBudget                float64                         `json:"power_budget"`                  // watts, 0 = unbounded
}

// InstrumentIDs returns instrument identifiers in sorted order
func (e EnsembleConfiguration) InstrumentIDs() []string {
	ids := make([]string, 0, len(e.Instruments))
	for id := range e.Instruments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InstrumentForVoice returns the instrument serving voice
func (e EnsembleConfiguration) InstrumentForVoice(voice int) (string, bool) {
	for _, id := range e.InstrumentIDs() {
		if e.Instruments[id].Voices.Contains(voice) {
			return id, true
		}
	}
	return "", false
}

// VoiceOwners maps every voice used by score to its instrument
func (e EnsembleConfiguration) VoiceOwners(score MusicalScore) map[int]string {
	owners := make(map[int]string)
	for _, v := range score.Voices() {
		if id, ok := e.InstrumentForVoice(v); ok {
			owners[v] = id
		}
	}
	return owners
}

// NoteIndicesFor returns the indices of score notes rendered by instrument id, ascending
func (e EnsembleConfiguration) NoteIndicesFor(score MusicalScore, id string) []int {
	assignment, ok := e.Instruments[id]
	if !ok {
		return nil
	}
	var idx []int
	for i, n := range score.Notes {
		if assignment.Voices.Contains(n.Voice) {
			idx = append(idx, i)
		}
	}
	return idx
}
