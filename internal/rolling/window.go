package rolling

import "sort"

// Window is a fixed-capacity rolling sample window maintaining enough history
// to compute a median and MAD online. Each detector owns its windows
// exclusively; there is no shared or global statistics state.
type Window struct {
	samples    []float64
	head       int
	full       bool
	minSamples int
}

// New returns a window holding at most capacity samples. A robust z-score is
// only reported once minSamples values are present.
func New(capacity, minSamples int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	if minSamples < 2 {
		minSamples = 2
	}
	return &Window{
		samples:    make([]float64, 0, capacity),
		minSamples: minSamples,
	}
}

// Push appends a sample, evicting the oldest once the window is full.
func (w *Window) Push(x float64) {
	if !w.full && len(w.samples) < cap(w.samples) {
		w.samples = append(w.samples, x)
		if len(w.samples) == cap(w.samples) {
			w.full = true
		}
		return
	}
	w.full = true
	w.samples[w.head] = x
	w.head = (w.head + 1) % len(w.samples)
}

// Count returns the number of samples currently held.
func (w *Window) Count() int { return len(w.samples) }

// Ready reports whether the minimum sample count has been reached.
func (w *Window) Ready() bool { return len(w.samples) >= w.minSamples }

// Median returns the sample median, or 0 for an empty window.
func (w *Window) Median() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	return median(w.sorted())
}

// MAD returns the median absolute deviation, or 0 with fewer than 2 samples.
func (w *Window) MAD() float64 {
	if len(w.samples) < 2 {
		return 0
	}
	s := w.sorted()
	med := median(s)
	devs := make([]float64, len(s))
	for i, v := range s {
		d := v - med
		if d < 0 {
			d = -d
		}
		devs[i] = d
	}
	sort.Float64s(devs)
	return median(devs)
}

// Zscore returns the robust z-score of x against the window:
// (x-median)/(1.4826*MAD). The 1.4826 constant makes MAD a consistent
// estimator of the standard deviation under normality. ok is false when the
// window holds fewer than the minimum sample count; callers must treat that
// as insufficient data, not as a zero score. A zero MAD (constant window)
// yields a zero score.
func (w *Window) Zscore(x float64) (z float64, ok bool) {
	if !w.Ready() {
		return 0, false
	}
	mad := w.MAD()
	if mad == 0 {
		return 0, true
	}
	return (x - w.Median()) / (1.4826 * mad), true
}

// Last returns the most recent sample, or 0 for an empty window.
func (w *Window) Last() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	if !w.full {
		return w.samples[len(w.samples)-1]
	}
	idx := w.head - 1
	if idx < 0 {
		idx = len(w.samples) - 1
	}
	return w.samples[idx]
}

// Reset drops all samples.
func (w *Window) Reset() {
	w.samples = w.samples[:0]
	w.head = 0
	w.full = false
}

func (w *Window) sorted() []float64 {
	s := make([]float64, len(w.samples))
	copy(s, w.samples)
	sort.Float64s(s)
	return s
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
