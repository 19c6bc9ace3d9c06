package sim

import (
	"fmt"

	"github.com/retailsim/simcore/sim/agent"
	"github.com/retailsim/simcore/sim/confusion"
)

// TrackMessage is one emitted position report (spec.md §6's "Outputs").
type TrackMessage struct {
	ID           string
	DeviceID     string
	VenueID      string
	TimestampMs  int64
	Position     [3]float64 // x, 0, z
	Velocity     [3]float64 // vx, 0, vz
	ObjectType   string
	Color        agent.Color
	BoundingBox  agent.BoundingBox
	Metadata     map[string]string
}

// TrackMessages builds one message per live agent, applying the optional
// position-noise and ID-confusion transforms (spec.md §4.10).
func (s *Simulator) TrackMessages(deviceID, venueID string) []TrackMessage {
	ts := int64(s.now * 1000)
	out := make([]TrackMessage, 0, len(s.shoppers)+len(s.cashiers))

	for _, sh := range s.shoppers {
		if sh.IsDone() {
			continue
		}
		emitID := sh.ID
		if s.cfg.EnableConfusion && s.Confuse != nil {
			if s.Confuse.Dropped(sh.ID, confusion.ShopperKind) {
				continue
			}
			emitID = s.Confuse.EmitID(sh.ID, confusion.ShopperKind)
		}
		pos, vel := s.noisyPose(sh.Pos.X(), sh.Pos.Z(), sh.Vel.X(), sh.Vel.Z())
		out = append(out, TrackMessage{
			ID: fmt.Sprintf("person-%d", emitID), DeviceID: deviceID, VenueID: venueID,
			TimestampMs: ts, Position: pos, Velocity: vel, ObjectType: "person",
			Color: sh.Color, BoundingBox: sh.BBox,
			Metadata: map[string]string{"state": sh.State.String(), "persona": sh.Persona.String()},
		})
	}

	for _, c := range s.cashiers {
		if c.State == agent.OffShift || c.State == agent.CashierDone {
			continue
		}
		emitID := c.ID
		if s.cfg.EnableConfusion && s.Confuse != nil {
			if s.Confuse.Dropped(c.ID, confusion.CashierKind) {
				continue
			}
			emitID = s.Confuse.EmitID(c.ID, confusion.CashierKind)
		}
		pos, vel := s.noisyPose(c.Pos.X(), c.Pos.Z(), c.Vel.X(), c.Vel.Z())
		out = append(out, TrackMessage{
			ID: fmt.Sprintf("cashier-%d", emitID), DeviceID: deviceID, VenueID: venueID,
			TimestampMs: ts, Position: pos, Velocity: vel, ObjectType: "person",
			Color: agent.Color{R: 220, G: 200, B: 60}, BoundingBox: agent.BoundingBox{Width: 0.5, Height: 1.75, Depth: 0.5},
			Metadata: map[string]string{"state": c.State.String(), "lane_id": fmt.Sprintf("%d", c.LaneIdx)},
		})
	}
	return out
}

func (s *Simulator) noisyPose(x, z, vx, vz float64) (pos, vel [3]float64) {
	sigma := s.cfg.PositionNoiseSigma
	nx, nz := x, z
	if sigma > 0 {
		nx += s.rng.NormFloat64() * sigma
		nz += s.rng.NormFloat64() * sigma
	}
	return [3]float64{nx, 0, nz}, [3]float64{vx, 0, vz}
}
