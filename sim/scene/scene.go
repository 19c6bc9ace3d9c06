// Package scene loads the venue description — world bounds, placed
// objects, and region-of-interest polygons — that NavGrid.Build consumes
// (spec.md §6's "Scene input"). Grounded on the teacher's TOML-based world
// generator config loading, reworked to decode a flat scene file instead
// of a world-generation recipe; go-toml is the teacher's configuration
// format of choice.
package scene

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"

	"github.com/retailsim/simcore/sim/world"
)

// vertexDTO is a single ROI polygon vertex. The scene format allows either
// "z" or "y" for the second planar axis, matching spec.md §6's
// "vertices:[{x,z|y}]".
type vertexDTO struct {
	X float64 `toml:"x"`
	Z float64 `toml:"z"`
	Y float64 `toml:"y"`
}

func (v vertexDTO) toVector() world.Vector2 {
	z := v.Z
	if z == 0 {
		z = v.Y
	}
	return world.Vec2(v.X, z)
}

type positionDTO struct {
	X float64 `toml:"x"`
	Z float64 `toml:"z"`
}

type objectDTO struct {
	Name     string      `toml:"name"`
	Type     string      `toml:"type"`
	Position positionDTO `toml:"position"`
	Scale    positionDTO `toml:"scale"`
	Rotation struct {
		Y float64 `toml:"y"`
	} `toml:"rotation"`
}

type roiDTO struct {
	Name     string      `toml:"name"`
	Vertices []vertexDTO `toml:"vertices"`
}

// File is the on-disk scene description (spec.md §6).
type File struct {
	WorldWidth float64     `toml:"world_width"`
	WorldDepth float64     `toml:"world_depth"`
	Objects    []objectDTO `toml:"objects"`
	ROIs       []roiDTO    `toml:"rois"`
}

// Scene is the decoded, world-package-ready venue description.
type Scene struct {
	WorldWidth, WorldDepth float64
	Objects                []world.SceneObject
	ROIs                   []world.ROI
}

// Load reads and decodes a TOML scene file from path.
func Load(path string) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, fmt.Errorf("scene: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a TOML scene document already in memory.
func Parse(data []byte) (Scene, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return Scene{}, fmt.Errorf("scene: parse: %w", err)
	}
	return f.toScene(), nil
}

func (f File) toScene() Scene {
	s := Scene{WorldWidth: f.WorldWidth, WorldDepth: f.WorldDepth}
	s.Objects = make([]world.SceneObject, len(f.Objects))
	for i, o := range f.Objects {
		s.Objects[i] = world.SceneObject{
			Name:      o.Name,
			Type:      o.Type,
			Position:  world.Vec2(o.Position.X, o.Position.Z),
			Scale:     world.Vec2(o.Scale.X, o.Scale.Z),
			RotationY: o.Rotation.Y,
		}
	}
	s.ROIs = make([]world.ROI, len(f.ROIs))
	for i, r := range f.ROIs {
		verts := make([]world.Vector2, len(r.Vertices))
		for j, v := range r.Vertices {
			verts[j] = v.toVector()
		}
		s.ROIs[i] = world.ROI{Name: r.Name, Vertices: verts}
	}
	return s
}
