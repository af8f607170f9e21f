package timeline

import "testing"

func TestValueStrictlyIncreasesAcrossFrames(t *testing.T) {
	l := NewLayout(64)
	v0 := l.Value(0, 5)
	v1 := l.Value(1, 1)
	if v1 <= v0 {
		t.Fatalf("expected frame 1's values to exceed frame 0's: %d vs %d", v1, v0)
	}
}

func TestGraphSemaphoreValueMonotonic(t *testing.T) {
	a := GraphSemaphoreValue(0, 4, 0)
	b := GraphSemaphoreValue(0, 4, 1)
	c := GraphSemaphoreValue(1, 4, 0)
	if !(a < b && b < c) {
		t.Fatalf("expected a < b < c, got %d, %d, %d", a, b, c)
	}
}
