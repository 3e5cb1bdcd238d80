package entropy

import "testing"

func TestSource_SameSeedSameStream(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestSource_RestoreContinuesStream(t *testing.T) {
	a := New(7)
	a.Uint64()
	a.Uint64()
	b := Restore(a.State())
	if a.Uint64() != b.Uint64() {
		t.Fatal("restored source diverged")
	}
}

func TestSource_Bounds(t *testing.T) {
	s := New(1)
	for i := 0; i < 1000; i++ {
		if v := s.Intn(5); v < 0 || v >= 5 {
			t.Fatalf("Intn(5) = %d", v)
		}
		if v := s.Range(-2, 2); v < -2 || v > 2 {
			t.Fatalf("Range(-2,2) = %d", v)
		}
		if f := s.Float(); f < 0 || f >= 1 {
			t.Fatalf("Float() = %f", f)
		}
	}
	if s.Intn(0) != 0 {
		t.Fatal("Intn(0) must be 0")
	}
	if s.Chance(0) || !s.Chance(1) {
		t.Fatal("Chance edge cases")
	}
}
