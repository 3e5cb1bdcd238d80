package buildings

import (
	"slices"
	"testing"

	"github.com/talgya/hamlet/internal/world"
)

func TestFootprint_RotationSwapsExtent(t *testing.T) {
	fp := Footprint(Storehouse, world.Coord{X: 1, Y: 1}, Rot0)
	if len(fp) != 6 || fp[0] != (world.Coord{X: 1, Y: 1}) || fp[5] != (world.Coord{X: 3, Y: 2}) {
		t.Fatalf("footprint = %v", fp)
	}
	rot := Footprint(Storehouse, world.Coord{X: 1, Y: 1}, Rot90)
	if len(rot) != 6 || rot[5] != (world.Coord{X: 2, Y: 3}) {
		t.Fatalf("rotated footprint = %v", rot)
	}
	if Footprint(Type(99), world.Coord{}, Rot0) != nil {
		t.Fatal("unknown type should have no footprint")
	}
}

func TestPerimeter(t *testing.T) {
	b := New(1, House, world.Coord{X: 2, Y: 2}, Rot0, 0)
	p := b.Perimeter()
	if len(p) != 8 {
		t.Fatalf("2x2 perimeter has %d tiles: %v", len(p), p)
	}
	for _, c := range p {
		if b.Contains(c) || !b.Adjacent(c) {
			t.Fatalf("perimeter tile %v is not adjacent", c)
		}
	}
	if slices.Contains(p, world.Coord{X: 1, Y: 1}) {
		t.Fatal("corners are not part of the perimeter")
	}
}

func TestAddProgress_FlipsOnce(t *testing.T) {
	b := New(1, Farm, world.Coord{}, Rot0, 0)
	r := b.WorkRequired
	completions := 0
	for i := 0; i < r; i++ {
		if b.AddProgress(7, uint64(i)) {
			completions++
		}
	}
	if completions != 1 || !b.Constructed {
		t.Fatalf("completions = %d constructed=%v", completions, b.Constructed)
	}
	if b.Progress != r || b.Remaining() != 0 {
		t.Fatalf("progress = %d, want saturated at %d", b.Progress, r)
	}
}

func TestWorkerLists(t *testing.T) {
	b := New(1, Quarry, world.Coord{}, Rot0, 0)
	if !b.AddWorker(4) || b.AddWorker(4) {
		t.Fatal("duplicate worker accepted")
	}
	b.AddWorker(5)
	if b.HasWorkerCapacity() {
		t.Fatal("quarry holds two workers")
	}
	if !b.RemoveWorker(4) || b.RemoveWorker(4) || !slices.Equal(b.Workers, []uint64{5}) {
		t.Fatalf("workers = %v", b.Workers)
	}
}

func TestParse(t *testing.T) {
	typ, err := ParseType("Lumber_Mill")
	if err != nil || typ != LumberMill {
		t.Fatalf("ParseType = %v, %v", typ, err)
	}
	if _, err := ParseType("hosue"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ParseRotation(45); err == nil {
		t.Fatal("45 degrees accepted")
	}
	if r, err := ParseRotation(270); err != nil || r != Rot270 {
		t.Fatalf("ParseRotation(270) = %v, %v", r, err)
	}
}
