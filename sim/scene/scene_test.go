package scene

import "testing"

const sampleTOML = `
world_width = 20
world_depth = 30

[[objects]]
name = "Entrance"
type = "entrance"
position = { x = 10, z = 1 }
scale = { x = 2, z = 2 }

[[objects]]
name = "Shelf1"
type = "shelf"
position = { x = 10, z = 20 }
scale = { x = 4, z = 2 }
rotation = { y = 0.5 }

[[rois]]
name = "Lane1 - Queue"
vertices = [
  { x = 9, z = 5 },
  { x = 11, z = 5 },
  { x = 11, z = 7 },
  { x = 9, z = 7 },
]

[[rois]]
name = "Lane1 - Service"
vertices = [
  { x = 9, y = 7.5 },
  { x = 11, y = 7.5 },
  { x = 11, y = 8.5 },
  { x = 9, y = 8.5 },
]
`

func TestParseSceneDimensions(t *testing.T) {
	sc, err := Parse([]byte(sampleTOML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sc.WorldWidth != 20 || sc.WorldDepth != 30 {
		t.Errorf("world dims: got %vx%v, want 20x30", sc.WorldWidth, sc.WorldDepth)
	}
}

func TestParseSceneObjects(t *testing.T) {
	sc, err := Parse([]byte(sampleTOML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sc.Objects) != 2 {
		t.Fatalf("objects: got %d, want 2", len(sc.Objects))
	}
	entrance := sc.Objects[0]
	if entrance.Type != "entrance" || entrance.Position.X() != 10 || entrance.Position.Z() != 1 {
		t.Errorf("entrance object decoded wrong: %+v", entrance)
	}
	shelf := sc.Objects[1]
	if shelf.RotationY != 0.5 {
		t.Errorf("shelf rotation: got %v, want 0.5", shelf.RotationY)
	}
}

func TestParseSceneROIsAndYFallback(t *testing.T) {
	sc, err := Parse([]byte(sampleTOML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sc.ROIs) != 2 {
		t.Fatalf("rois: got %d, want 2", len(sc.ROIs))
	}
	if sc.ROIs[0].Name != "Lane1 - Queue" {
		t.Errorf("roi name: got %q", sc.ROIs[0].Name)
	}
	// The Service ROI's vertices use "y" instead of "z"; toVector must
	// fall back to it.
	service := sc.ROIs[1]
	if len(service.Vertices) != 4 {
		t.Fatalf("service vertices: got %d, want 4", len(service.Vertices))
	}
	if got := service.Vertices[0].Z(); got != 7.5 {
		t.Errorf("y-fallback vertex: got z=%v, want 7.5", got)
	}
}

func TestParseInvalidTOML(t *testing.T) {
	_, err := Parse([]byte("this is not [valid toml"))
	if err == nil {
		t.Fatal("expected an error parsing invalid TOML")
	}
}
