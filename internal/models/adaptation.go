package models

// TimeWindow is a span of time in which a fixed set of notes sounds together
type TimeWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Notes []int   `json:"notes"`
}

// ConstraintViolation is one broken constraint found by a validator.
// Violations are recomputed on every validation pass and never mutated.
type ConstraintViolation struct {
	Dimension   Dimension   `json:"dimension"`
	Instrument  string      `json:"instrument"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Notes       []int       `json:"notes"`
	Impact      float64     `json:"impact"`
	Strategies  []Strategy  `json:"strategies"`
	Suggested   Strategy    `json:"suggested"`
	Window      *TimeWindow `json:"window,omitempty"`
}

// FirstNote returns the lowest affected note index, or -1
func (v ConstraintViolation) FirstNote() int {
	if len(v.Notes) == 0 {
		return -1
	}
	first := v.Notes[0]
	for _, n := range v.Notes[1:] {
		if n < first {
			first = n
		}
	}
	return first
}

// ActionParams holds strategy-specific parameters. Only the fields relevant
// to the action's strategy are set.
type ActionParams struct {
	Interval   int     `json:"interval,omitempty"`
	Instrument string  `json:"instrument,omitempty"`
	Voice      *int    `json:"voice,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	Shift      float64 `json:"shift,omitempty"`
	Velocity   *int    `json:"velocity,omitempty"`
	Tempo      float64 `json:"tempo,omitempty"`
	Stretch    float64 `json:"stretch,omitempty"`
}

// NoteEdit is the absolute outcome of an action for one note: either the
// replacement note or removal. From is the note the edit expects at Index;
// an edit whose note is no longer there has nothing to do.
type NoteEdit struct {
	Index int         `json:"index"`
	From  MusicalNote `json:"from"`
	Note  MusicalNote `json:"note"`
	Omit  bool        `json:"omit,omitempty"`
}

// ReplaceNote builds an edit turning note i from one value into another
func ReplaceNote(i int, from, to MusicalNote) NoteEdit {
	return NoteEdit{Index: i, From: from, Note: to}
}

// OmitNote builds an edit removing note i
func OmitNote(i int, n MusicalNote) NoteEdit {
	return NoteEdit{Index: i, From: n, Note: n, Omit: true}
}

// Matches reports whether n is the note the edit was made for
func (e NoteEdit) Matches(n MusicalNote) bool {
	return n == e.From
}

// ResolutionAction is a candidate change proposed by a resolver. Targets are
// the notes the action claims during optimization, which can include notes
// it does not edit.
type ResolutionAction struct {
	Strategy   Strategy     `json:"strategy"`
	Targets    []int        `json:"targets"`
	Params     ActionParams `json:"params"`
	Edits      []NoteEdit   `json:"edits"`
	Cost       float64      `json:"cost"`
	Confidence float64      `json:"confidence"`
	Violations []int        `json:"violations"`
	Reason     string       `json:"reason,omitempty"`
}

// FirstTarget returns the lowest target index, or -1
func (a ResolutionAction) FirstTarget() int {
	if len(a.Targets) == 0 {
		return -1
	}
	first := a.Targets[0]
	for _, t := range a.Targets[1:] {
		if t < first {
			first = t
		}
	}
	return first
}

// ResolutionPlan is an ordered list of non-conflicting actions
type ResolutionPlan struct {
	Actions            []ResolutionAction `json:"actions"`
	TotalCost          float64            `json:"total_cost"`
	PredictedRemaining int                `json:"predicted_remaining"`
}

// ViolationReport aggregates validator output
type ViolationReport struct {
	Violations    []ConstraintViolation `json:"violations"`
	Counts        map[Severity]int      `json:"counts"`
	TotalNotes    int                   `json:"total_notes"`
	Playability   float64               `json:"playability"`
	FullyPlayable bool                  `json:"fully_playable"`
}

// Actionable returns the violations that require a resolution
func (r ViolationReport) Actionable() []ConstraintViolation {
	var out []ConstraintViolation
	for _, v := range r.Violations {
		if v.Severity.Actionable() {
			out = append(out, v)
		}
	}
	return out
}
