package ensemble

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Note semitone offsets from C
var noteOffsets = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// NoteNameToMIDI converts a note name like "E1", "C4", "F#3", "Bb2" to MIDI note number
// Format: <note><accidental?><octave> where:
//   - note: A-G (case insensitive)
//   - accidental: # (sharp) or b (flat), optional
//   - octave: -1 to 9 (C4 = 60 = middle C)
func NoteNameToMIDI(noteName string) (int, error) {
	if len(noteName) < 2 {
		return 0, fmt.Errorf("note name too short: %s", noteName)
	}

	semitone, idx, err := parsePitchClass(noteName)
	if err != nil {
		return 0, err
	}

	// Parse octave (can be negative like -1)
	if idx >= len(noteName) {
		return 0, fmt.Errorf("missing octave in note name: %s", noteName)
	}
	octave, err := strconv.Atoi(noteName[idx:])
	if err != nil {
		return 0, fmt.Errorf("invalid octave in note name %s: %w", noteName, err)
	}

	// MIDI calculation: (octave + 1) * 12 + semitone
	// This gives C-1 = 0, C0 = 12, C4 = 60
	midiNote := (octave+1)*12 + semitone
	if midiNote < 0 || midiNote > 127 {
		return 0, fmt.Errorf("note %s is outside the MIDI range", noteName)
	}
	return midiNote, nil
}

// PitchClass converts a note letter with optional accidental ("D", "F#", "Bb")
// to a pitch class 0-11
func PitchClass(name string) (int, error) {
	semitone, idx, err := parsePitchClass(name)
	if err != nil {
		return 0, err
	}
	if idx != len(name) {
		return 0, fmt.Errorf("unexpected suffix in pitch class %q", name)
	}
	return (semitone + 12) % 12, nil
}

func parsePitchClass(name string) (semitone, next int, err error) {
	if name == "" {
		return 0, 0, fmt.Errorf("empty note name")
	}
	noteChar := strings.ToUpper(string(name[0]))
	semitone, ok := noteOffsets[noteChar]
	if !ok {
		return 0, 0, fmt.Errorf("invalid note letter: %s", noteChar)
	}

	// Check for accidental (# or b)
	next = 1
	if next < len(name) {
		switch name[next] {
		case '#':
			semitone++
			next++
		case 'b':
			semitone--
			next++
		}
	}
	return semitone, next, nil
}

// Pitch is a MIDI pitch written either as a number (60) or a note name ("C4")
type Pitch int

func (p *Pitch) set(raw string) error {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 || n > 127 {
			return fmt.Errorf("pitch %d is outside the MIDI range", n)
		}
		*p = Pitch(n)
		return nil
	}
	n, err := NoteNameToMIDI(raw)
	if err != nil {
		return err
	}
	*p = Pitch(n)
	return nil
}

// UnmarshalYAML accepts scalars like 60 or C4
func (p *Pitch) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: pitch must be a scalar", value.Line)
	}
	if err := p.set(value.Value); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	return nil
}

// UnmarshalJSON accepts 60 or "C4"
func (p *Pitch) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return p.set(name)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("pitch must be a number or a note name: %s", string(data))
	}
	return p.set(strconv.Itoa(n))
}
