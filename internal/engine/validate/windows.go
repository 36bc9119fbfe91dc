package validate

import (
	"sort"

	"github.com/Conceptual-Machines/magda-ensemble/internal/models"
)

// OverlapWindows returns the maximal windows of simultaneously sounding notes
// among the given note indices. Two notes overlap when their [start, end)
// intervals intersect. Consecutive spans with the same active set are merged
// and a window whose notes are a strict subset of a neighbour's is dropped.
// Windows with a single note are kept; callers filter by count.
func OverlapWindows(notes []models.MusicalNote, indices []int) []models.TimeWindow {
	if len(indices) == 0 {
		return nil
	}

	times := make([]float64, 0, len(indices)*2)
	for _, i := range indices {
		times = append(times, notes[i].Start, notes[i].End())
	}
	sort.Float64s(times)
	times = dedupeSorted(times)

	var segments []models.TimeWindow
	for k := 0; k+1 < len(times); k++ {
		start, end := times[k], times[k+1]
		var active []int
		for _, i := range indices {
			if notes[i].Start <= start && notes[i].End() >= end {
				active = append(active, i)
			}
		}
		if len(active) == 0 {
			continue
		}
		sort.Ints(active)
		if n := len(segments); n > 0 && segments[n-1].End == start && sameSet(segments[n-1].Notes, active) {
			segments[n-1].End = end
			continue
		}
		segments = append(segments, models.TimeWindow{Start: start, End: end, Notes: active})
	}

	var maximal []models.TimeWindow
	for k, seg := range segments {
		if k > 0 && strictSubset(seg.Notes, segments[k-1].Notes) {
			continue
		}
		if k+1 < len(segments) && strictSubset(seg.Notes, segments[k+1].Notes) {
			continue
		}
		maximal = append(maximal, seg)
	}
	return maximal
}

func dedupeSorted(values []float64) []float64 {
	out := values[:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// strictSubset reports whether sorted a is a strict subset of sorted b
func strictSubset(a, b []int) bool {
	if len(a) >= len(b) {
		return false
	}
	j := 0
	for _, x := range a {
		for j < len(b) && b[j] < x {
			j++
		}
		if j == len(b) || b[j] != x {
			return false
		}
		j++
	}
	return true
}
