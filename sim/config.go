// Package sim wires the navigation grid, queueing, anti-glitch recovery,
// ID confusion, and the shopper/cashier FSMs into one deterministic,
// tick-driven simulator (spec.md §4.10). Grounded on the teacher's
// top-level server wiring: one struct owns every subsystem, constructed
// once from a scene and ticked by an external driver.
package sim

import (
	"log/slog"

	"github.com/retailsim/simcore/sim/agent"
	"github.com/retailsim/simcore/sim/antiglitch"
	"github.com/retailsim/simcore/sim/confusion"
	"github.com/retailsim/simcore/sim/queue"
	"github.com/retailsim/simcore/sim/world"
)

// Config is the simulator's external configuration (spec.md §6, all
// fields optional with defaults applied by DefaultConfig).
type Config struct {
	Seed         int64
	HasSeed      bool
	MaxOccupancy int

	GridResolution float64
	GridInflation  float64

	Personas      agent.PersonaSet
	ShopperConfig agent.Config
	QueueConfig   queue.Config
	CashierConfig agent.CashierConfig
	AntiGlitch    antiglitch.Config
	Confusion     confusion.Config
	Hysteresis    queue.Hysteresis

	PositionNoiseSigma float64

	EnableConfusion   bool
	EnableLaneControl bool
	EnableHeatmap     bool
	SpawnCashiers     bool

	Log *slog.Logger
}

// DefaultConfig returns spec.md §6's default tuning.
func DefaultConfig() Config {
	return Config{
		MaxOccupancy:       200,
		GridResolution:     world.DefaultResolution,
		GridInflation:      world.DefaultInflation,
		Personas:           agent.DefaultPersonas(),
		ShopperConfig:      agent.DefaultConfig(),
		QueueConfig:        queue.DefaultConfig(),
		CashierConfig:      agent.DefaultCashierConfig(),
		AntiGlitch:         antiglitch.DefaultConfig(),
		Confusion:          confusion.DefaultConfig(),
		Hysteresis:         queue.DefaultHysteresis(),
		PositionNoiseSigma: 0.02,
		EnableConfusion:    true,
		EnableLaneControl:  true,
		EnableHeatmap:      false,
		SpawnCashiers:      true,
	}
}
