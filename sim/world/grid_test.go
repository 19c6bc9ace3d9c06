package world

import "testing"

// sampleScene builds a small, predictable venue: an entrance at the south
// end, one checkout lane (Queue/Service ROI pair) and a shelf obstacle
// further in, used across the Build pipeline tests below.
func sampleScene() ([]SceneObject, []ROI) {
	objects := []SceneObject{
		{Name: "Entrance", Type: "entrance", Position: Vec2(10, 1), Scale: Vec2(2, 2)},
		{Name: "Checkout1", Type: "checkout", Position: Vec2(10, 8), Scale: Vec2(1, 1)},
		{Name: "Shelf1", Type: "shelf", Position: Vec2(10, 20), Scale: Vec2(4, 2)},
	}
	rois := []ROI{
		{Name: "Lane1 - Queue", Vertices: []Vector2{Vec2(9, 5), Vec2(11, 5), Vec2(11, 7), Vec2(9, 7)}},
		{Name: "Lane1 - Service", Vertices: []Vector2{Vec2(9, 7.5), Vec2(11, 7.5), Vec2(11, 8.5), Vec2(9, 8.5)}},
	}
	return objects, rois
}

func buildSampleGrid(t *testing.T) *NavGrid {
	t.Helper()
	g := NewNavGrid(20, 30, 0.5, 0.5)
	objects, rois := sampleScene()
	g.Build(objects, rois)
	return g
}

func TestNavGridBuildEntranceAndCashiers(t *testing.T) {
	g := buildSampleGrid(t)

	if got := g.EntrancePos; !got.ApproxEqual(Vec2(10, 1), 1e-9) {
		t.Fatalf("EntrancePos: got %v, want (10,1)", got)
	}

	if len(g.Cashiers) != 1 {
		t.Fatalf("Cashiers: got %d, want 1", len(g.Cashiers))
	}
	if g.Cashiers[0].QueueZoneID != "Lane1" {
		t.Errorf("QueueZoneID: got %q, want Lane1", g.Cashiers[0].QueueZoneID)
	}
}

func TestNavGridObstaclesBlocked(t *testing.T) {
	g := buildSampleGrid(t)

	if g.IsWalkableWorld(Vec2(10, 20)) {
		t.Errorf("shelf center (10,20) should be blocked")
	}
	if g.IsWalkableWorld(Vec2(10, 8)) {
		t.Errorf("checkout center (10,8) should be blocked")
	}
}

func TestNavGridZoneClassification(t *testing.T) {
	g := buildSampleGrid(t)

	cases := []struct {
		name string
		p    Vector2
		want Zone
	}{
		{"entrance", Vec2(10, 3), Entrance},
		{"checkout", Vec2(10, 9), Checkout},
		{"queue", Vec2(10, 13), Queue},
		{"shopping", Vec2(10, 17), Shopping},
		{"bypass", Vec2(2, 20), Bypass},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.Zone(tc.p); got != tc.want {
				t.Errorf("Zone(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestNavGridSafeWaypointsNonEmpty(t *testing.T) {
	g := buildSampleGrid(t)

	if len(g.Waypoints.Entrance) == 0 {
		t.Error("expected non-empty Entrance waypoint bucket")
	}
	if len(g.Waypoints.Shopping) == 0 {
		t.Error("expected non-empty Shopping waypoint bucket")
	}
	if len(g.Waypoints.Queue) == 0 {
		t.Error("expected non-empty Queue waypoint bucket")
	}
	for _, bucket := range [][]Vector2{g.Waypoints.Entrance, g.Waypoints.Shopping, g.Waypoints.Queue} {
		for _, p := range bucket {
			if !g.IsStrictlyWalkable(g.WorldToGrid(p)) {
				t.Errorf("waypoint %v is not strictly walkable", p)
			}
		}
	}
}

func TestNavGridFindNearestWalkable(t *testing.T) {
	g := buildSampleGrid(t)

	// The shelf center is blocked; a nearby free cell must be found within
	// a modest search radius.
	got, ok := g.FindNearestWalkable(Vec2(10, 20), 3)
	if !ok {
		t.Fatal("expected to find a nearby walkable cell")
	}
	if !g.IsWalkable(g.WorldToGrid(got)) {
		t.Errorf("FindNearestWalkable returned non-walkable point %v", got)
	}
}

func TestNavGridWorldToGridRoundTrip(t *testing.T) {
	g := buildSampleGrid(t)
	gx, gz := g.WorldToGrid(Vec2(3.2, 4.8))
	back := g.GridToWorld(gx, gz)
	if back.Dist(Vec2(3.2, 4.8)) > g.Res {
		t.Errorf("round trip drifted too far: got %v from (3.2,4.8)", back)
	}
}
