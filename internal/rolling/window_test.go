package rolling

import (
	"math"
	"testing"
)

func TestMedianOddEven(t *testing.T) {
	w := New(10, 2)
	for _, v := range []float64{5, 1, 3} {
		w.Push(v)
	}
	if got := w.Median(); got != 3 {
		t.Fatalf("odd median = %v, want 3", got)
	}
	w.Push(7)
	if got := w.Median(); got != 4 {
		t.Fatalf("even median = %v, want 4", got)
	}
}

func TestEviction(t *testing.T) {
	w := New(3, 2)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		w.Push(v)
	}
	if w.Count() != 3 {
		t.Fatalf("count = %d, want 3", w.Count())
	}
	if got := w.Median(); got != 4 {
		t.Fatalf("median after eviction = %v, want 4", got)
	}
	if got := w.Last(); got != 5 {
		t.Fatalf("last = %v, want 5", got)
	}
}

func TestZscoreInsufficientData(t *testing.T) {
	w := New(100, 20)
	for i := 0; i < 19; i++ {
		w.Push(float64(i))
	}
	if _, ok := w.Zscore(100); ok {
		t.Fatal("expected not ok with fewer than minSamples samples")
	}
	w.Push(19)
	if _, ok := w.Zscore(100); !ok {
		t.Fatal("expected ok at minSamples samples")
	}
}

func TestZscoreRobust(t *testing.T) {
	w := New(100, 5)
	for _, v := range []float64{10, 10.5, 9.5, 12, 8, 11, 9, 10.5, 9.5, 10} {
		w.Push(v)
	}
	// sorted 8 9 9.5 9.5 10 10 10.5 10.5 11 12: median 10;
	// sorted |dev| 0 0 .5 .5 .5 .5 1 1 2 2: MAD 0.5
	z, ok := w.Zscore(13)
	if !ok {
		t.Fatal("expected ok")
	}
	want := 3.0 / (1.4826 * 0.5)
	if math.Abs(z-want) > 1e-9 {
		t.Fatalf("z = %v, want %v", z, want)
	}
}

func TestZscoreConstantWindow(t *testing.T) {
	w := New(10, 2)
	for i := 0; i < 5; i++ {
		w.Push(42)
	}
	z, ok := w.Zscore(1000)
	if !ok || z != 0 {
		t.Fatalf("constant window z = %v ok=%v, want 0 true", z, ok)
	}
}
