package world

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	// DefaultResolution is the default NavGrid cell edge length in meters.
	DefaultResolution = 0.5
	// DefaultInflation is the default obstacle inflation radius in meters.
	DefaultInflation = 0.5
	// minObstacleFootprint is the minimum width/depth (in meters) a solid
	// obstacle's bounding box is expanded to, except for checkout/cashier
	// /counter objects which keep their natural size.
	minObstacleFootprint = 1.5
	// waypointStride is the sampling stride (in meters) used when scanning
	// the grid for safe waypoints.
	waypointStride = 2.0
)

// NavGrid is the 2-D occupancy and zone grid built once from a scene
// description (spec.md §4.1).
type NavGrid struct {
	WorldW, WorldD float64
	Res            float64
	GW, GD         int

	cells []Cell
	zones []Zone
	costs []float64

	Cashiers     []CashierSite
	EntrancePos  Vector2
	Bounds       ZoneBounds
	Waypoints    SafeWaypoints
	inflationM   float64
}

// NewNavGrid constructs an all-FREE grid of the given world extents. Call
// Build to populate it from a scene.
func NewNavGrid(worldW, worldD, res, inflation float64) *NavGrid {
	if res <= 0 {
		res = DefaultResolution
	}
	if inflation < 0 {
		inflation = DefaultInflation
	}
	gw := int(math.Ceil(worldW / res))
	gd := int(math.Ceil(worldD / res))
	if gw < 1 {
		gw = 1
	}
	if gd < 1 {
		gd = 1
	}
	n := gw * gd
	g := &NavGrid{
		WorldW: worldW, WorldD: worldD, Res: res, GW: gw, GD: gd,
		cells: make([]Cell, n), zones: make([]Zone, n), costs: make([]float64, n),
		inflationM: inflation,
	}
	for i := range g.costs {
		g.costs[i] = 1
	}
	return g
}

func (g *NavGrid) index(gx, gz int) int { return gz*g.GW + gx }

func (g *NavGrid) inBounds(gx, gz int) bool {
	return gx >= 0 && gz >= 0 && gx < g.GW && gz < g.GD
}

// WorldToGrid converts a world position to its containing grid cell.
func (g *NavGrid) WorldToGrid(p Vector2) (int, int) {
	gx := int(math.Floor(p.X() / g.Res))
	gz := int(math.Floor(p.Z() / g.Res))
	return gx, gz
}

// GridToWorld returns the world-space center of a grid cell.
func (g *NavGrid) GridToWorld(gx, gz int) Vector2 {
	return Vec2((float64(gx)+0.5)*g.Res, (float64(gz)+0.5)*g.Res)
}

// IsWalkable reports whether a cell is not Blocked (the test AStar uses).
func (g *NavGrid) IsWalkable(gx, gz int) bool {
	if !g.inBounds(gx, gz) {
		return false
	}
	return g.cells[g.index(gx, gz)] != Blocked
}

// IsStrictlyWalkable reports whether a cell is Free (the test agent
// bodies use).
func (g *NavGrid) IsStrictlyWalkable(gx, gz int) bool {
	if !g.inBounds(gx, gz) {
		return false
	}
	return g.cells[g.index(gx, gz)] == Free
}

// IsWalkableWorld is IsStrictlyWalkable for a world-space point.
func (g *NavGrid) IsWalkableWorld(p Vector2) bool {
	gx, gz := g.WorldToGrid(p)
	return g.IsStrictlyWalkable(gx, gz)
}

// Cost returns the traversal cost of a cell, or +Inf if it is Blocked.
func (g *NavGrid) Cost(gx, gz int) float64 {
	if !g.inBounds(gx, gz) {
		return math.Inf(1)
	}
	idx := g.index(gx, gz)
	if g.cells[idx] == Blocked {
		return math.Inf(1)
	}
	return g.costs[idx]
}

// Zone returns the zone classification at a world position.
func (g *NavGrid) Zone(p Vector2) Zone {
	gx, gz := g.WorldToGrid(p)
	if !g.inBounds(gx, gz) {
		return NoZone
	}
	return g.zones[g.index(gx, gz)]
}

// RandomWaypoint returns a uniformly-random safe waypoint from the given
// zone's bucket (falling back from Shopping to Aisles when empty, per
// spec.md §4.1).
func (g *NavGrid) RandomWaypoint(z Zone, r *rand.Rand) (Vector2, bool) {
	bucket := g.Waypoints.Bucket(z)
	if len(bucket) == 0 {
		return Vector2{}, false
	}
	return bucket[r.IntN(len(bucket))], true
}

// FindNearestWalkable spirals outward from (x,z) up to maxR meters and
// returns the world-space center of the first walkable cell found.
func (g *NavGrid) FindNearestWalkable(p Vector2, maxR float64) (Vector2, bool) {
	gx0, gz0 := g.WorldToGrid(p)
	if g.IsWalkable(gx0, gz0) {
		return g.GridToWorld(gx0, gz0), true
	}
	maxRing := int(math.Ceil(maxR / g.Res))
	for ring := 1; ring <= maxRing; ring++ {
		for dz := -ring; dz <= ring; dz++ {
			for dx := -ring; dx <= ring; dx++ {
				if abs(dx) != ring && abs(dz) != ring {
					continue // only the ring's perimeter
				}
				gx, gz := gx0+dx, gz0+dz
				if g.IsWalkable(gx, gz) {
					return g.GridToWorld(gx, gz), true
				}
			}
		}
	}
	return Vector2{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Build resets the grid and populates occupancy, zones and safe waypoints
// from a scene description (spec.md §4.1, steps 1-7).
func (g *NavGrid) Build(objects []SceneObject, rois []ROI) {
	g.reset()
	g.markObstacles(objects)
	g.buildCashiers(rois)
	g.deriveBounds(objects)
	g.inflate()
	g.classifyZones()
	g.sampleWaypoints()
}

func (g *NavGrid) reset() {
	for i := range g.cells {
		g.cells[i] = Free
		g.zones[i] = NoZone
		g.costs[i] = 1
	}
	g.Cashiers = nil
	g.Waypoints = SafeWaypoints{}
}

func (g *NavGrid) markObstacles(objects []SceneObject) {
	for _, o := range objects {
		lower := o.Type
		passable, naturalSize := classify(lower)
		switch {
		case passable:
			if isEntranceType(lower) {
				g.EntrancePos = o.Position
			}
			continue
		}
		w, d := o.Scale.X(), o.Scale.Z()
		theta := o.RotationY
		effW := w*math.Abs(math.Cos(theta)) + d*math.Abs(math.Sin(theta))
		effD := w*math.Abs(math.Sin(theta)) + d*math.Abs(math.Cos(theta))
		if !naturalSize {
			if effW < minObstacleFootprint {
				effW = minObstacleFootprint
			}
			if effD < minObstacleFootprint {
				effD = minObstacleFootprint
			}
		}
		minX, maxX := o.Position.X()-effW/2, o.Position.X()+effW/2
		minZ, maxZ := o.Position.Z()-effD/2, o.Position.Z()+effD/2
		g.markBox(minX, maxX, minZ, maxZ)
	}
}

func isEntranceType(t string) bool { return t == "entrance" || t == "door" }

func (g *NavGrid) markBox(minX, maxX, minZ, maxZ float64) {
	gMinX, gMinZ := g.WorldToGrid(Vec2(minX, minZ))
	gMaxX, gMaxZ := g.WorldToGrid(Vec2(maxX, maxZ))
	for gz := gMinZ; gz <= gMaxZ; gz++ {
		for gx := gMinX; gx <= gMaxX; gx++ {
			if !g.inBounds(gx, gz) {
				continue
			}
			idx := g.index(gx, gz)
			g.cells[idx] = Blocked
			g.costs[idx] = math.Inf(1)
		}
	}
}

func (g *NavGrid) buildCashiers(rois []ROI) {
	queues := map[string]ROI{}
	services := map[string]ROI{}
	for _, r := range rois {
		if prefix, ok := roiSuffix(r.Name, "Queue"); ok {
			queues[prefix] = r
		} else if prefix, ok := roiSuffix(r.Name, "Service"); ok {
			services[prefix] = r
		}
	}
	for prefix, q := range queues {
		s, ok := services[prefix]
		if !ok {
			continue
		}
		serviceCenter := centroid(s.Vertices)
		queueCenter := centroid(q.Vertices)
		if g.nearbyCashier(serviceCenter, 2.0) {
			continue
		}
		g.Cashiers = append(g.Cashiers, CashierSite{
			Pos: serviceCenter, Width: minObstacleFootprint,
			QueueCenter: queueCenter, ServiceCenter: serviceCenter,
			QueueZoneID: prefix,
		})
	}
	sortCashiersByX(g.Cashiers)
}

func (g *NavGrid) nearbyCashier(p Vector2, radius float64) bool {
	for _, c := range g.Cashiers {
		if c.Pos.Dist(p) < radius {
			return true
		}
	}
	return false
}

func sortCashiersByX(cs []CashierSite) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].Pos.X() < cs[j-1].Pos.X(); j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

func (g *NavGrid) deriveBounds(objects []SceneObject) {
	var cashierMinZ, cashierMaxZ float64
	haveCashierZ := false
	for _, c := range g.Cashiers {
		z := c.Pos.Z()
		if !haveCashierZ || z < cashierMinZ {
			cashierMinZ = z
		}
		if !haveCashierZ || z > cashierMaxZ {
			cashierMaxZ = z
		}
		haveCashierZ = true
	}
	cashierLineZ := 10.0
	if haveCashierZ {
		cashierLineZ = (cashierMinZ + cashierMaxZ) / 2
	}

	var shelfMinX, shelfMaxX, shelfMinZ, shelfMaxZ float64
	haveShelf := false
	var checkoutMinX, checkoutMaxX float64
	haveCheckoutX := false
	for _, o := range objects {
		passable, natural := classify(o.Type)
		if passable {
			continue
		}
		minX, maxX := o.Position.X()-o.Scale.X()/2, o.Position.X()+o.Scale.X()/2
		minZ, maxZ := o.Position.Z()-o.Scale.Z()/2, o.Position.Z()+o.Scale.Z()/2
		if natural {
			if !haveCheckoutX || minX < checkoutMinX {
				checkoutMinX = minX
			}
			if !haveCheckoutX || maxX > checkoutMaxX {
				checkoutMaxX = maxX
			}
			haveCheckoutX = true
			continue
		}
		if !haveShelf || minX < shelfMinX {
			shelfMinX = minX
		}
		if !haveShelf || maxX > shelfMaxX {
			shelfMaxX = maxX
		}
		if !haveShelf || minZ < shelfMinZ {
			shelfMinZ = minZ
		}
		if !haveShelf || maxZ > shelfMaxZ {
			shelfMaxZ = maxZ
		}
		haveShelf = true
	}

	shoppingMinZ := cashierLineZ + 8
	shoppingMaxZ := g.WorldD - 1.5
	shoppingMinX := 1.5
	shoppingMaxX := g.WorldW - 1.5
	if haveShelf {
		if shelfMinZ > shoppingMinZ {
			// shelves start further in than the derived minimum; keep the
			// derived minimum as the queue/shopping boundary per spec.
		}
		shoppingMinX, shoppingMaxX = shelfMinX, shelfMaxX
		if shelfMaxZ > shoppingMaxZ {
			shoppingMaxZ = shelfMaxZ
		}
	}

	checkoutMin, checkoutMax := shoppingMinX, shoppingMaxX
	if haveCheckoutX {
		checkoutMin, checkoutMax = checkoutMinX, checkoutMaxX
	} else if len(g.Cashiers) > 0 {
		checkoutMin, checkoutMax = g.Cashiers[0].Pos.X(), g.Cashiers[len(g.Cashiers)-1].Pos.X()
	}

	bypassX := 1.5
	if g.EntrancePos.X() < g.WorldW/2 {
		bypassX = g.WorldW - 1.5
	}

	g.Bounds = ZoneBounds{
		CashierLineZ: cashierLineZ, ShoppingMinZ: shoppingMinZ, ShoppingMaxZ: shoppingMaxZ,
		ShoppingMinX: shoppingMinX, ShoppingMaxX: shoppingMaxX,
		CheckoutMinX: checkoutMin, CheckoutMaxX: checkoutMax,
		BypassCorridorX: bypassX,
	}
}

// inflate widens Blocked regions into a cost-penalized Inflated ring of
// radius g.inflationM (spec.md §4.1 step 5).
func (g *NavGrid) inflate() {
	ringCells := int(math.Ceil(g.inflationM / g.Res))
	if ringCells <= 0 {
		return
	}
	type penalty struct {
		idx  int
		cost float64
	}
	pending := map[int]float64{}
	for gz := 0; gz < g.GD; gz++ {
		for gx := 0; gx < g.GW; gx++ {
			if g.cells[g.index(gx, gz)] != Blocked {
				continue
			}
			for dz := -ringCells; dz <= ringCells; dz++ {
				for dx := -ringCells; dx <= ringCells; dx++ {
					nx, nz := gx+dx, gz+dz
					if !g.inBounds(nx, nz) {
						continue
					}
					idx := g.index(nx, nz)
					if g.cells[idx] != Free && g.cells[idx] != Inflated {
						continue
					}
					distCells := math.Hypot(float64(dx), float64(dz))
					if distCells > float64(ringCells) || distCells == 0 {
						continue
					}
					frac := 1 - distCells/float64(ringCells)
					cost := 1 + 3*frac
					if existing, ok := pending[idx]; !ok || cost > existing {
						pending[idx] = cost
					}
				}
			}
		}
	}
	for idx, cost := range pending {
		g.cells[idx] = Inflated
		if cost > g.costs[idx] {
			g.costs[idx] = cost
		}
	}
}

func (g *NavGrid) classifyZones() {
	b := g.Bounds
	checkoutZMin, checkoutZMax := b.CashierLineZ-1, b.CashierLineZ+3
	for gz := 0; gz < g.GD; gz++ {
		for gx := 0; gx < g.GW; gx++ {
			idx := g.index(gx, gz)
			if g.cells[idx] == Blocked {
				continue
			}
			p := g.GridToWorld(gx, gz)
			g.zones[idx] = classifyPoint(p, b, checkoutZMin, checkoutZMax)
		}
	}
}

func classifyPoint(p Vector2, b ZoneBounds, checkoutZMin, checkoutZMax float64) Zone {
	x, z := p.X(), p.Z()
	switch {
	case z < b.CashierLineZ-1:
		return Entrance
	case z >= checkoutZMin && z <= checkoutZMax:
		if x >= b.CheckoutMinX-2 && x <= b.CheckoutMaxX+2 {
			return Checkout
		}
	case z > checkoutZMax && z <= b.ShoppingMinZ:
		if x >= b.CheckoutMinX-2 && x <= b.CheckoutMaxX+2 {
			return Queue
		}
	case z > b.ShoppingMinZ && z <= b.ShoppingMaxZ:
		if x >= b.ShoppingMinX && x <= b.ShoppingMaxX {
			return Shopping
		}
	}
	return Bypass
}

func (g *NavGrid) sampleWaypoints() {
	stride := int(math.Max(1, math.Round(waypointStride/g.Res)))
	for gz := 0; gz < g.GD; gz += stride {
		for gx := 0; gx < g.GW; gx += stride {
			if !g.IsStrictlyWalkable(gx, gz) {
				continue
			}
			p := g.GridToWorld(gx, gz)
			switch g.zones[g.index(gx, gz)] {
			case Entrance:
				g.Waypoints.Entrance = append(g.Waypoints.Entrance, p)
			case Bypass:
				g.Waypoints.Bypass = append(g.Waypoints.Bypass, p)
			case Shopping:
				g.Waypoints.Shopping = append(g.Waypoints.Shopping, p)
			case Queue:
				g.Waypoints.Queue = append(g.Waypoints.Queue, p)
			}
		}
	}
	g.sampleAisles()
}

// sampleAisles horizontally scans each z row within the shopping band and
// records the midpoint of every contiguous walkable run (spec.md §4.1
// step 7).
func (g *NavGrid) sampleAisles() {
	zMinGrid, _ := g.WorldToGrid(Vec2(0, g.Bounds.ShoppingMinZ))
	zMaxGrid, _ := g.WorldToGrid(Vec2(0, g.Bounds.ShoppingMaxZ))
	if zMinGrid < 0 {
		zMinGrid = 0
	}
	if zMaxGrid >= g.GD {
		zMaxGrid = g.GD - 1
	}
	for gz := zMinGrid; gz <= zMaxGrid; gz++ {
		runStart := -1
		for gx := 0; gx <= g.GW; gx++ {
			walkable := gx < g.GW && g.IsStrictlyWalkable(gx, gz)
			if walkable && runStart == -1 {
				runStart = gx
			} else if !walkable && runStart != -1 {
				mid := (runStart + gx - 1) / 2
				g.Waypoints.Aisles = append(g.Waypoints.Aisles, g.GridToWorld(mid, gz))
				runStart = -1
			}
		}
	}
}

// DebugASCII renders the grid's zones as a compact ASCII grid, one
// character per cell and one line per gz row. Not part of the external
// contract (spec.md §9); cmd/simview draws cells itself and does not
// call it.
func (g *NavGrid) DebugASCII() string {
	out := make([]byte, 0, (g.GW+1)*g.GD)
	for gz := 0; gz < g.GD; gz++ {
		for gx := 0; gx < g.GW; gx++ {
			idx := g.index(gx, gz)
			out = append(out, zoneGlyph(g.cells[idx], g.zones[idx]))
		}
		out = append(out, '\n')
	}
	return string(out)
}

func zoneGlyph(c Cell, z Zone) byte {
	if c == Blocked {
		return '#'
	}
	switch z {
	case Entrance:
		return 'E'
	case Bypass:
		return '.'
	case Shopping:
		return 'S'
	case Queue:
		return 'Q'
	case Checkout:
		return 'C'
	default:
		return ' '
	}
}

// String implements fmt.Stringer for debug printing in tests.
func (g *NavGrid) String() string {
	return fmt.Sprintf("NavGrid{%dx%d cells, res=%.2f, %d cashiers}", g.GW, g.GD, g.Res, len(g.Cashiers))
}
