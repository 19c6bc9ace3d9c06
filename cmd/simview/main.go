// Command simview is a terminal visualizer: it ticks a Simulator and
// paints live agent positions over the nav grid using tcell. Grounded on
// the teacher's use of terminal/TTY libraries for operator-facing tooling
// (reworked here onto gdamore/tcell/v2's cell-grid screen model, since the
// teacher itself has no terminal UI of its own).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/retailsim/simcore/sim"
	"github.com/retailsim/simcore/sim/agent"
	"github.com/retailsim/simcore/sim/scene"
	"github.com/retailsim/simcore/sim/world"
)

func main() {
	scenePath := flag.String("scene", "scene.toml", "path to the TOML scene file")
	hz := flag.Float64("hz", 10, "simulation tick rate")
	flag.Parse()

	if err := run(*scenePath, *hz); err != nil {
		fmt.Fprintln(os.Stderr, "simview:", err)
		os.Exit(1)
	}
}

func run(scenePath string, hz float64) error {
	sc, err := scene.Load(scenePath)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	cfg := sim.DefaultConfig()
	cfg.Log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	s := sim.New(sc, cfg)
	for i := 0; i < 5; i++ {
		s.SpawnAgent()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("new screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	events := make(chan tcell.Event, 8)
	go screen.ChannelEvents(events, nil)

	dt := 1.0 / hz
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case *tcell.EventKey:
				if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC || e.Rune() == 'q' {
					return nil
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			s.Update(dt)
			draw(screen, s)
		}
	}
}

func draw(screen tcell.Screen, s *sim.Simulator) {
	screen.Clear()
	grid := s.Grid
	style := tcell.StyleDefault

	for gz := 0; gz < grid.GD; gz++ {
		for gx := 0; gx < grid.GW; gx++ {
			ch := '.'
			if !grid.IsWalkable(gx, gz) {
				ch = '#'
			}
			screen.SetContent(gx, gz, ch, nil, style.Foreground(tcell.ColorGray))
		}
	}

	for _, t := range s.TrackMessages("simview", "venue-1") {
		gx, gz := grid.WorldToGrid(world.Vec2(t.Position[0], t.Position[2]))
		glyph, fg := agentGlyph(t)
		screen.SetContent(gx, gz, glyph, nil, style.Foreground(fg))
	}

	d := s.GetDiagnostics()
	status := fmt.Sprintf("spawned=%d exited=%d live=%d cashiers=%d  (q to quit)",
		d.TotalSpawned, d.TotalExited, d.LiveShoppers, d.LiveCashiers)
	for i, r := range status {
		screen.SetContent(i, grid.GD+1, r, nil, style)
	}
	screen.Show()
}

func agentGlyph(t sim.TrackMessage) (rune, tcell.Color) {
	if t.ObjectType != "person" {
		return '?', tcell.ColorWhite
	}
	if _, ok := t.Metadata["lane_id"]; ok {
		return 'C', tcell.ColorYellow
	}
	switch t.Metadata["persona"] {
	case agent.FastBuyer.String():
		return '@', tcell.ColorRed
	case agent.Browser.String():
		return '@', tcell.ColorBlue
	case agent.Family.String():
		return '@', tcell.ColorGreen
	default:
		return '@', tcell.ColorWhite
	}
}
