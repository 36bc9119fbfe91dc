// Package ensemble loads instrument ensembles from YAML or JSON documents
// and turns them into engine configurations.
package ensemble

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// documentValidate checks document structure before conversion
var documentValidate = validator.New()

// LibraryDocument is the top level of an ensemble library file
type LibraryDocument struct {
	Version   int        `yaml:"version" json:"version"`
	Ensembles []Document `yaml:"ensembles" json:"ensembles" validate:"required,min=1,dive"`
}

// Document declares one ensemble
type Document struct {
	Name                       string               `yaml:"name" json:"name" validate:"required"`
	MaxTotalSimultaneousVoices int                  `yaml:"max_total_simultaneous_voices" json:"max_total_simultaneous_voices" validate:"gte=0"`
	PowerBudget                float64              `yaml:"power_budget" json:"power_budget" validate:"gte=0"`
	Instruments                []InstrumentDocument `yaml:"instruments" json:"instruments" validate:"required,min=1,dive"`
}

// InstrumentDocument declares one instrument and the voices it renders
type InstrumentDocument struct {
	ID                   string          `yaml:"id" json:"id" validate:"required"`
	Voices               VoicesDocument  `yaml:"voices" json:"voices"`
	Pitch                PitchDocument   `yaml:"pitch" json:"pitch"`
	PreferredRanges      []RangeDocument `yaml:"preferred_ranges" json:"preferred_ranges" validate:"dive"`
	MaxSimultaneousNotes int             `yaml:"max_simultaneous_notes" json:"max_simultaneous_notes" validate:"gte=1"`
	MinNoteDuration      float64         `yaml:"min_note_duration" json:"min_note_duration" validate:"gte=0"`
	MaxNoteDuration      float64         `yaml:"max_note_duration" json:"max_note_duration" validate:"gte=0"`
	NoteTransitionTime   float64         `yaml:"note_transition_time" json:"note_transition_time" validate:"gte=0"`
	Velocity             *VelocityDoc    `yaml:"velocity_range" json:"velocity_range"`
	PreferredRole        string          `yaml:"preferred_role" json:"preferred_role" validate:"omitempty,oneof=melody harmony rhythm"`
	PowerWatts           float64         `yaml:"power_watts" json:"power_watts" validate:"gte=0"`
}

// VoicesDocument is an inclusive voice block
type VoicesDocument struct {
	Low  int `yaml:"low" json:"low" validate:"gte=0"`
	High int `yaml:"high" json:"high" validate:"gtefield=Low"`
}

// RangeDocument is an inclusive pitch range
type RangeDocument struct {
	Low  Pitch `yaml:"low" json:"low"`
	High Pitch `yaml:"high" json:"high"`
}

// VelocityDoc is an inclusive velocity range
type VelocityDoc struct {
	Min int `yaml:"min" json:"min" validate:"gte=0,lte=127"`
	Max int `yaml:"max" json:"max" validate:"gte=0,lte=127,gtefield=Min"`
}

// PitchDocument sets exactly one of Range, Set or Diatonic
type PitchDocument struct {
	Range    *RangeDocument    `yaml:"range" json:"range"`
	Set      []Pitch           `yaml:"set" json:"set"`
	Diatonic *DiatonicDocument `yaml:"diatonic" json:"diatonic"`
}

// DiatonicDocument restricts a range to one major or minor scale
type DiatonicDocument struct {
	Tonic string `yaml:"tonic" json:"tonic" validate:"required"`
	Mode  string `yaml:"mode" json:"mode" validate:"omitempty,oneof=major minor"`
	Low   Pitch  `yaml:"low" json:"low"`
	High  Pitch  `yaml:"high" json:"high"`
}

// Library holds named ensembles
type Library struct {
	ensembles map[string]models.EnsembleConfiguration
}

// LoadFile reads an ensemble library from a YAML file
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ensemble library: %w", err)
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// Parse decodes and validates an ensemble library
func Parse(data []byte) (*Library, error) {
	var doc LibraryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ensemble library: %w", err)
	}
	if err := documentValidate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	lib := &Library{ensembles: make(map[string]models.EnsembleConfiguration, len(doc.Ensembles))}
	for _, d := range doc.Ensembles {
		if _, dup := lib.ensembles[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate ensemble %q", models.ErrInvalidInput, d.Name)
		}
		cfg, err := d.Build()
		if err != nil {
			return nil, err
		}
		lib.ensembles[d.Name] = cfg
	}
	return lib, nil
}

// Get returns the named ensemble
func (l *Library) Get(name string) (models.EnsembleConfiguration, bool) {
	if l == nil {
		return models.EnsembleConfiguration{}, false
	}
	cfg, ok := l.ensembles[name]
	return cfg, ok
}

// Names lists the ensembles in the library, sorted
func (l *Library) Names() []string {
	if l == nil {
		return []string{}
	}
	names := make([]string, 0, len(l.ensembles))
	for name := range l.ensembles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build validates the document and converts it to an engine configuration
func (d Document) Build() (models.EnsembleConfiguration, error) {
	if err := documentValidate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return models.EnsembleConfiguration{}, fmt.Errorf("%w: ensemble %q field %s failed %q",
				models.ErrInvalidInput, d.Name, fe.Namespace(), fe.Tag())
		}
		return models.EnsembleConfiguration{}, fmt.Errorf("%w: ensemble %q: %v", models.ErrInvalidInput, d.Name, err)
	}

	cfg := models.EnsembleConfiguration{
		Name:                       d.Name,
		Instruments:                make(map[string]models.InstrumentAssignment, len(d.Instruments)),
		MaxTotalSimultaneousVoices: d.MaxTotalSimultaneousVoices,
		PowerBudget:                d.PowerBudget,
	}
	for _, inst := range d.Instruments {
		if _, dup := cfg.Instruments[inst.ID]; dup {
			return models.EnsembleConfiguration{}, fmt.Errorf("%w: ensemble %q declares instrument %q twice",
				models.ErrInvalidInput, d.Name, inst.ID)
		}
		constraints, err := inst.constraints()
		if err != nil {
			return models.EnsembleConfiguration{}, fmt.Errorf("%w: ensemble %q: %v", models.ErrInvalidInput, d.Name, err)
		}
		cfg.Instruments[inst.ID] = models.InstrumentAssignment{
			Constraints: constraints,
			Voices:      models.VoiceRange{Low: inst.Voices.Low, High: inst.Voices.High},
		}
	}

	if err := cfg.Validate(); err != nil {
		return models.EnsembleConfiguration{}, err
	}
	return cfg, nil
}

func (i InstrumentDocument) constraints() (models.InstrumentConstraints, error) {
	pitch, err := i.Pitch.build()
	if err != nil {
		return models.InstrumentConstraints{}, fmt.Errorf("instrument %s: %w", i.ID, err)
	}
	role, err := models.ParseRole(i.PreferredRole)
	if err != nil {
		return models.InstrumentConstraints{}, fmt.Errorf("instrument %s: %w", i.ID, err)
	}

	velocity := models.VelocityRange{Min: 0, Max: 127}
	if i.Velocity != nil {
		velocity = models.VelocityRange{Min: i.Velocity.Min, Max: i.Velocity.Max}
	}

	preferred := make([]models.PitchRange, 0, len(i.PreferredRanges))
	for _, r := range i.PreferredRanges {
		if r.Low > r.High {
			return models.InstrumentConstraints{}, fmt.Errorf("instrument %s: preferred range low above high", i.ID)
		}
		preferred = append(preferred, models.PitchRange{Low: int(r.Low), High: int(r.High)})
	}

	return models.InstrumentConstraints{
		ID:                   i.ID,
		Pitch:                pitch,
		PreferredRanges:      preferred,
		MaxSimultaneousNotes: i.MaxSimultaneousNotes,
		MinNoteDuration:      i.MinNoteDuration,
		MaxNoteDuration:      i.MaxNoteDuration,
		NoteTransitionTime:   i.NoteTransitionTime,
		Velocity:             velocity,
		PreferredRole:        role,
		PowerWatts:           i.PowerWatts,
	}, nil
}

func (p PitchDocument) build() (models.PitchConstraint, error) {
	declared := 0
	if p.Range != nil {
		declared++
	}
	if len(p.Set) > 0 {
		declared++
	}
	if p.Diatonic != nil {
		declared++
	}
	if declared != 1 {
		return models.PitchConstraint{}, fmt.Errorf("pitch must declare exactly one of range, set or diatonic")
	}

	switch {
	case p.Range != nil:
		return models.NewPitchRange(int(p.Range.Low), int(p.Range.High)), nil
	case len(p.Set) > 0:
		pitches := make([]int, 0, len(p.Set))
		for _, pitch := range p.Set {
			pitches = append(pitches, int(pitch))
		}
		return models.NewPitchSet(pitches...), nil
	default:
		tonic, err := PitchClass(p.Diatonic.Tonic)
		if err != nil {
			return models.PitchConstraint{}, err
		}
		return models.NewPitchDiatonic(tonic, p.Diatonic.Mode == "minor", int(p.Diatonic.Low), int(p.Diatonic.High)), nil
	}
}
