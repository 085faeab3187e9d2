package game

// Reference tuning for the tilt maze. Config overrides most of these per deployment.
const (
	DefaultCols       = 15
	DefaultRows       = 15
	DefaultCellSize   = 40.0
	DefaultBallRadius = 10.0
	DefaultHoleRadius = 16.0
	DefaultHoleColor  = "black"

	DefaultSubsteps    = 10
	DefaultRestitution = 0.5

	DefaultMaxTiltDegrees = 30.0
	DefaultMaxSpeed       = 6.0

	DefaultTickHz = 60

	// MaxPlayers is the number of predefined spawn slots.
	MaxPlayers = 4
)

// SlotColors are handed out in slot order.
var SlotColors = [MaxPlayers]string{"blue", "red", "yellow", "green"}
