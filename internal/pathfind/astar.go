// Package pathfind computes tile-to-tile routes over a walkability map with
// A*. Routes are deterministic: for identical map state the same path is
// returned regardless of how the search frontier happens to grow.
package pathfind

import (
	"container/heap"

	"github.com/talgya/hamlet/internal/world"
)

// Map is the walkability view the search needs. *world.Grid satisfies it.
type Map interface {
	InBounds(c world.Coord) bool
	IsWalkable(c world.Coord) bool
}

// Options tune a search.
type Options struct {
	// Diagonal enables 8-connected movement with a Chebyshev heuristic.
	// Diagonal steps never cut a blocked corner.
	Diagonal bool

	// MaxNodes caps the number of expanded nodes. 0 means the map area.
	MaxNodes int
}

// Find returns the route from start to goal inclusive, or nil when the goal
// is out of bounds, not walkable, or unreachable. Other agents are not
// obstacles; only walkability matters. start itself need not be walkable.
func Find(m Map, start, goal world.Coord, opts Options) []world.Coord {
	if !m.InBounds(start) || !m.InBounds(goal) || !m.IsWalkable(goal) {
		return nil
	}
	if start == goal {
		return []world.Coord{start}
	}

	heuristic := world.Manhattan
	if opts.Diagonal {
		heuristic = world.Chebyshev
	}

	open := &nodeHeap{}
	gScore := map[world.Coord]int{start: 0}
	parent := make(map[world.Coord]world.Coord)
	closed := make(map[world.Coord]bool)

	heap.Push(open, node{c: start, g: 0, h: heuristic(start, goal)})
	expanded := 0

	for open.Len() > 0 {
		cur := heap.Pop(open).(node)
		if closed[cur.c] {
			continue
		}
		if cur.c == goal {
			return reconstruct(parent, start, goal)
		}
		closed[cur.c] = true
		expanded++
		if opts.MaxNodes > 0 && expanded >= opts.MaxNodes {
			return nil
		}

		for _, n := range neighbors(m, cur.c, opts.Diagonal) {
			if closed[n] {
				continue
			}
			g := cur.g + 1
			if old, seen := gScore[n]; seen && g >= old {
				continue
			}
			gScore[n] = g
			parent[n] = cur.c
			heap.Push(open, node{c: n, g: g, h: heuristic(n, goal)})
		}
	}
	return nil
}

// Length returns the number of steps in a path (tiles minus one).
func Length(path []world.Coord) int {
	if len(path) == 0 {
		return 0
	}
	return len(path) - 1
}

func neighbors(m Map, c world.Coord, diagonal bool) []world.Coord {
	out := make([]world.Coord, 0, 8)
	for _, d := range world.Orthogonal {
		n := c.Add(d.X, d.Y)
		if m.IsWalkable(n) {
			out = append(out, n)
		}
	}
	if !diagonal {
		return out
	}
	for _, d := range world.Diagonal {
		n := c.Add(d.X, d.Y)
		if !m.IsWalkable(n) {
			continue
		}
		// No squeezing between two blocked orthogonals.
		if !m.IsWalkable(c.Add(d.X, 0)) || !m.IsWalkable(c.Add(0, d.Y)) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func reconstruct(parent map[world.Coord]world.Coord, start, goal world.Coord) []world.Coord {
	var rev []world.Coord
	for c := goal; c != start; c = parent[c] {
		rev = append(rev, c)
	}
	rev = append(rev, start)
	path := make([]world.Coord, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}

// node is a frontier entry. Ordering: lowest f, then lowest h (prefer nodes
// closer to the goal), then coordinate order.
type node struct {
	c world.Coord
	g int
	h int
}

type nodeHeap []node

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	fi, fj := h[i].g+h[i].h, h[j].g+h[j].h
	if fi != fj {
		return fi < fj
	}
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].c.Less(h[j].c)
}

func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) { *h = append(*h, x.(node)) }

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
