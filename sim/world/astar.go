package world

import (
	"container/heap"
	"math"
)

// DefaultMaxExpansions caps A* node expansions to guarantee termination
// (spec.md §4.2).
const DefaultMaxExpansions = 5000

// AStar plans shortest paths over a NavGrid with corridor-width-aware
// smoothing. Grounded on the container/heap priority-queue shape used by
// other_examples' Mikko-Finell navGrid.astar, extended with destination-
// cell cost weighting and a post-pass smoother (absent from the grounding
// file).
type AStar struct {
	Grid          *NavGrid
	MaxExpansions int
	Smooth        bool
	AgentRadius   float64
}

// NewAStar returns a planner over grid with default expansion budget and
// smoothing enabled, using agentRadius for the corridor-smoothing
// half-width test (spec.md §4.2's "agent_radius + 0.2 m" corridor
// contract).
func NewAStar(grid *NavGrid, agentRadius float64) *AStar {
	return &AStar{Grid: grid, MaxExpansions: DefaultMaxExpansions, Smooth: true, AgentRadius: agentRadius}
}

type gridCell struct{ gx, gz int }

type pathNode struct {
	cell   gridCell
	g, f   float64
	parent *gridCell
	index  int
}

type pathQueue []*pathNode

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].f < q[j].f }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *pathQueue) Push(x any) {
	n := len(*q)
	item := x.(*pathNode)
	item.index = n
	*q = append(*q, item)
}
func (q *pathQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

var neighborOffsets = [8]gridCell{
	{0, -1}, {1, 0}, {0, 1}, {-1, 0},
	{1, -1}, {1, 1}, {-1, 1}, {-1, -1},
}

func (c gridCell) diagonal() bool { return c.gx != 0 && c.gz != 0 }

func heuristic(a, b gridCell) float64 {
	dx, dz := float64(a.gx-b.gx), float64(a.gz-b.gz)
	return math.Hypot(dx, dz)
}

// canTraverseDiagonal reports whether a diagonal step from cur by delta is
// permitted: both orthogonal neighbors sharing its rectangle must be
// walkable (spec.md §4.2 "diagonal corner-cut prevention").
func (g *NavGrid) canTraverseDiagonal(cur gridCell, delta gridCell) bool {
	if !delta.diagonal() {
		return true
	}
	return g.IsWalkable(cur.gx+delta.gx, cur.gz) && g.IsWalkable(cur.gx, cur.gz+delta.gz)
}

// FindPath plans a path from start to goal in world coordinates. Returns
// nil if no path is found within the expansion budget (spec.md §4.2
// failure semantics).
func (a *AStar) FindPath(start, goal Vector2) []Vector2 {
	g := a.Grid
	sx, sz := g.WorldToGrid(start)
	gx, gz := g.WorldToGrid(goal)
	startCell, ok := a.repair(gridCell{sx, sz})
	if !ok {
		return nil
	}
	goalCell, ok := a.repair(gridCell{gx, gz})
	if !ok {
		return nil
	}
	if startCell == goalCell {
		return []Vector2{g.GridToWorld(goalCell.gx, goalCell.gz)}
	}

	open := &pathQueue{}
	heap.Init(open)
	startNode := &pathNode{cell: startCell, g: 0, f: heuristic(startCell, goalCell)}
	heap.Push(open, startNode)
	gScore := map[gridCell]float64{startCell: 0}
	parents := map[gridCell]gridCell{}
	closed := map[gridCell]bool{}

	expansions := 0
	limit := a.MaxExpansions
	if limit <= 0 {
		limit = DefaultMaxExpansions
	}

	for open.Len() > 0 {
		if expansions >= limit {
			return nil
		}
		cur := heap.Pop(open).(*pathNode)
		if closed[cur.cell] {
			continue
		}
		closed[cur.cell] = true
		expansions++
		if cur.cell == goalCell {
			return a.reconstruct(parents, startCell, goalCell)
		}
		for _, delta := range neighborOffsets {
			next := gridCell{cur.cell.gx + delta.gx, cur.cell.gz + delta.gz}
			if !g.IsWalkable(next.gx, next.gz) {
				continue
			}
			if !g.canTraverseDiagonal(cur.cell, delta) {
				continue
			}
			stepCost := 1.0
			if delta.diagonal() {
				stepCost = math.Sqrt2
			}
			destCost := g.Cost(next.gx, next.gz)
			if math.IsInf(destCost, 1) {
				continue
			}
			tentative := cur.g + stepCost*destCost
			if best, ok := gScore[next]; ok && tentative >= best {
				continue
			}
			gScore[next] = tentative
			parents[next] = cur.cell
			heap.Push(open, &pathNode{cell: next, g: tentative, f: tentative + heuristic(next, goalCell)})
		}
	}
	return nil
}

// repair substitutes the nearest walkable cell if c is not itself
// walkable (spec.md §4.2 "goal/start repair").
func (a *AStar) repair(c gridCell) (gridCell, bool) {
	if a.Grid.IsWalkable(c.gx, c.gz) {
		return c, true
	}
	p, ok := a.Grid.FindNearestWalkable(a.Grid.GridToWorld(c.gx, c.gz), float64(a.Grid.GW+a.Grid.GD)*a.Grid.Res)
	if !ok {
		return c, false
	}
	gx, gz := a.Grid.WorldToGrid(p)
	return gridCell{gx, gz}, true
}

func (a *AStar) reconstruct(parents map[gridCell]gridCell, start, goal gridCell) []Vector2 {
	cells := []gridCell{goal}
	cur := goal
	for cur != start {
		p, ok := parents[cur]
		if !ok {
			break
		}
		cells = append(cells, p)
		cur = p
	}
	// cells is goal..start; reverse into start..goal world points.
	raw := make([]Vector2, len(cells))
	for i, c := range cells {
		raw[len(cells)-1-i] = a.Grid.GridToWorld(c.gx, c.gz)
	}
	if a.Smooth {
		return a.smooth(raw)
	}
	return raw
}

// smooth replaces the raw path by the sub-sequence of waypoints reachable
// by a greedy line-of-sight sweep, using a corridor test of half-width
// agent_radius+0.2m (spec.md §4.2).
func (a *AStar) smooth(path []Vector2) []Vector2 {
	if len(path) <= 2 {
		return path
	}
	out := []Vector2{path[0]}
	i := 0
	for i < len(path)-1 {
		furthest := i + 1
		for j := i + 2; j < len(path); j++ {
			if a.corridorClear(path[i], path[j]) {
				furthest = j
			}
		}
		out = append(out, path[furthest])
		i = furthest
	}
	return out
}

// corridorClear walks the segment p->q in steps of res/4, checking the
// center and two side offsets of agent_radius+0.2m at each step.
func (a *AStar) corridorClear(p, q Vector2) bool {
	g := a.Grid
	dir := q.Sub(p)
	dist := dir.Len()
	if dist < 1e-9 {
		return true
	}
	dir = dir.Mul(1 / dist)
	normal := dir.Perp()
	offset := a.AgentRadius + 0.2
	step := g.Res / 4
	steps := int(math.Ceil(dist / step))
	for s := 0; s <= steps; s++ {
		t := math.Min(float64(s)*step, dist)
		center := p.Add(dir.Mul(t))
		left := center.Add(normal.Mul(offset))
		right := center.Sub(normal.Mul(offset))
		if !g.IsWalkableWorld(center) || !g.IsWalkableWorld(left) || !g.IsWalkableWorld(right) {
			return false
		}
	}
	return true
}
