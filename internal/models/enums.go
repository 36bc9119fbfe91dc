package models

import "fmt"

// Dimension identifies which constraint a violation breaks
type Dimension int

const (
	DimensionPitchRange Dimension = iota
	DimensionFixedPitchSet
	DimensionPolyphonyLimit
	DimensionNoteDuration
	DimensionTransitionTime
	DimensionDynamicRange
	DimensionEnsembleVoiceLimit
	DimensionPowerBudget
	dimensionCount
)

var dimensionNames = [...]string{
	"pitch-range",
	"fixed-pitch-set",
	"polyphony-limit",
	"note-duration",
	"transition-time",
	"dynamic-range",
	"ensemble-voice-limit",
	"power-budget",
}

func (d Dimension) String() string {
	if d >= 0 && d < dimensionCount {
		return dimensionNames[d]
	}
	return "unknown"
}

func (d Dimension) MarshalText() ([]byte, error) {
	if d < 0 || d >= dimensionCount {
		return nil, fmt.Errorf("unknown dimension %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Dimension) UnmarshalText(text []byte) error {
	v, err := parseName(dimensionNames[:], string(text), "dimension")
	if err != nil {
		return err
	}
	*d = Dimension(v)
	return nil
}

// Severity grades a violation. Lower values sort first.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityMajor
	SeverityMinor
	SeverityInfo
	severityCount
)

var severityNames = [...]string{"critical", "major", "minor", "info"}

// Severities lists every severity in report order
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo}
}

func (s Severity) String() string {
	if s >= 0 && s < severityCount {
		return severityNames[s]
	}
	return "unknown"
}

// Actionable reports whether the severity requires a resolution
func (s Severity) Actionable() bool {
	return s != SeverityInfo
}

func (s Severity) MarshalText() ([]byte, error) {
	if s < 0 || s >= severityCount {
		return nil, fmt.Errorf("unknown severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, err := parseName(severityNames[:], string(text), "severity")
	if err != nil {
		return err
	}
	*s = Severity(v)
	return nil
}

// Strategy is the kind of change a resolution action makes.
// The order here is the optimizer's tie-break preference.
type Strategy int

const (
	StrategyAdjustDynamic Strategy = iota
	StrategyAdjustDuration
	StrategyShiftOnset
	StrategyTranspose
	StrategySimplify
	StrategyRedistribute
	StrategyReduceVoice
	StrategyChangeTempo
	StrategyOmit
	strategyCount
)

var strategyNames = [...]string{
	"adjust-dynamic",
	"adjust-duration",
	"shift-onset",
	"transpose",
	"simplify",
	"redistribute",
	"reduce-voice",
	"change-tempo",
	"omit",
}

func (s Strategy) String() string {
	if s >= 0 && s < strategyCount {
		return strategyNames[s]
	}
	return "unknown"
}

func (s Strategy) MarshalText() ([]byte, error) {
	if s < 0 || s >= strategyCount {
		return nil, fmt.Errorf("unknown strategy %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := parseName(strategyNames[:], string(text), "strategy")
	if err != nil {
		return err
	}
	*s = Strategy(v)
	return nil
}

// Role is the musical function an instrument prefers
type Role int

const (
	RoleMelody Role = iota
	RoleHarmony
	RoleRhythm
	roleCount
)

var roleNames = [...]string{"melody", "harmony", "rhythm"}

func (r Role) String() string {
	if r >= 0 && r < roleCount {
		return roleNames[r]
	}
	return "unknown"
}

func (r Role) MarshalText() ([]byte, error) {
	if r < 0 || r >= roleCount {
		return nil, fmt.Errorf("unknown role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	v, err := parseName(roleNames[:], string(text), "role")
	if err != nil {
		return err
	}
	*r = Role(v)
	return nil
}

// ParseRole converts a role name; empty input means melody
func ParseRole(name string) (Role, error) {
	if name == "" {
		return RoleMelody, nil
	}
	var r Role
	err := r.UnmarshalText([]byte(name))
	return r, err
}

func parseName(names []string, text, kind string) (int, error) {
	for i, name := range names {
		if name == text {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, text)
}
