package sim

// LaneDiagnostic summarizes one lane's state for Diagnostics.
type LaneDiagnostic struct {
	Index       int
	IsOpen      bool
	WaitingLen  int
	InService   bool
}

// Diagnostics is the snapshot returned by GetDiagnostics (spec.md §4.10).
type Diagnostics struct {
	TotalSpawned   int
	TotalExited    int
	LiveShoppers   int
	LiveCashiers   int
	Lanes          []LaneDiagnostic
	RecentViolations []violationRecord
	WaypointBucketSizes map[string]int
}

// GetDiagnostics returns counts, recent violations, lane states, and
// safe-waypoint bucket sizes (spec.md §4.10).
func (s *Simulator) GetDiagnostics() Diagnostics {
	lanes := make([]LaneDiagnostic, len(s.laneStates))
	for i, ls := range s.laneStates {
		lane := s.Queue.Lanes()[i]
		lanes[i] = LaneDiagnostic{
			Index: i, IsOpen: ls.IsOpen,
			WaitingLen: len(lane.Waiting()), InService: lane.ServiceSlot() != 0,
		}
	}
	violations := make([]violationRecord, len(s.violations))
	copy(violations, s.violations)

	return Diagnostics{
		TotalSpawned: s.totalSpawned, TotalExited: s.totalExited,
		LiveShoppers: s.liveShopperCount(), LiveCashiers: len(s.cashiers),
		Lanes: lanes, RecentViolations: violations,
		WaypointBucketSizes: map[string]int{
			"entrance": len(s.Grid.Waypoints.Entrance),
			"bypass":   len(s.Grid.Waypoints.Bypass),
			"shopping": len(s.Grid.Waypoints.Shopping),
			"aisles":   len(s.Grid.Waypoints.Aisles),
			"queue":    len(s.Grid.Waypoints.Queue),
		},
	}
}
