package models

import "sort"

const (
	defaultTempoBPM  = 120.0
	secondsPerMinute = 60.0
)

// MusicalNote represents a single note of a score. Times are in seconds.
type MusicalNote struct {
	Pitch    int     `json:"pitch" yaml:"pitch" validate:"gte=0,lte=127"`
	Velocity int     `json:"velocity" yaml:"velocity" validate:"gte=0,lte=127"`
	Start    float64 `json:"start" yaml:"start" validate:"gte=0"`
	Duration float64 `json:"duration" yaml:"duration" validate:"gt=0"`
	Voice    int     `json:"voice" yaml:"voice" validate:"gte=0"`
}

// End returns the time at which the note stops sounding
func (n MusicalNote) End() float64 {
	return n.Start + n.Duration
}

// Overlaps reports whether two [start, end) intervals intersect
func (n MusicalNote) Overlaps(other MusicalNote) bool {
	return n.Start < other.End() && other.Start < n.End()
}

// TimeSignature is a numerator/denominator pair, e.g. [3, 4]
type TimeSignature struct {
	Numerator   int `json:"numerator" yaml:"numerator"`
	Denominator int `json:"denominator" yaml:"denominator"`
}

// MusicalScore is the engine's view of a parsed score
type MusicalScore struct {
	Title         string        `json:"title,omitempty"`
	Composer      string        `json:"composer,omitempty"`
	Tempo         float64       `json:"tempo" validate:"gte=0"`
	TimeSignature TimeSignature `json:"time_signature"`
	KeySignature  string        `json:"key_signature,omitempty"`
	Notes         []MusicalNote `json:"notes" validate:"dive"`
}

// BeatDuration returns the length of one beat in seconds
func (s MusicalScore) BeatDuration() float64 {
	tempo := s.Tempo
	if tempo <= 0 {
		tempo = defaultTempoBPM
	}
	return secondsPerMinute / tempo
}

// Copy returns a deep copy of the score
func (s MusicalScore) Copy() MusicalScore {
	notes := make([]MusicalNote, len(s.Notes))
	copy(notes, s.Notes)
	s.Notes = notes
	return s
}

// Normalized returns a copy with notes in canonical order:
// start time, then voice, then pitch (duration and velocity settle exact duplicates).
func (s MusicalScore) Normalized() MusicalScore {
	out := s.Copy()
	sort.SliceStable(out.Notes, func(i, j int) bool {
		return noteLess(out.Notes[i], out.Notes[j])
	})
	return out
}

// IsNormalized reports whether notes are already in canonical order
func (s MusicalScore) IsNormalized() bool {
	return sort.SliceIsSorted(s.Notes, func(i, j int) bool {
		return noteLess(s.Notes[i], s.Notes[j])
	})
}

// Equal reports whether two scores are identical, note for note
func (s MusicalScore) Equal(other MusicalScore) bool {
	if s.Title != other.Title || s.Composer != other.Composer || s.Tempo != other.Tempo ||
		s.TimeSignature != other.TimeSignature || s.KeySignature != other.KeySignature ||
		len(s.Notes) != len(other.Notes) {
		return false
	}
	for i := range s.Notes {
		if s.Notes[i] != other.Notes[i] {
			return false
		}
	}
	return true
}

// Voices returns the distinct voice numbers used by the score, ascending
func (s MusicalScore) Voices() []int {
	seen := make(map[int]bool)
	var voices []int
	for _, n := range s.Notes {
		if !seen[n.Voice] {
			seen[n.Voice] = true
			voices = append(voices, n.Voice)
		}
	}
	sort.Ints(voices)
	return voices
}

func noteLess(a, b MusicalNote) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.Voice != b.Voice {
		return a.Voice < b.Voice
	}
	if a.Pitch != b.Pitch {
		return a.Pitch < b.Pitch
	}
	if a.Duration != b.Duration {
		return a.Duration < b.Duration
	}
	return a.Velocity < b.Velocity
}
