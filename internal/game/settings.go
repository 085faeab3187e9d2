package game

import (
	log "github.com/sirupsen/logrus"

	"github.com/tiltmaze/backend/internal/config"
)

// SettingsFromConfig builds session settings from the process config.
// Unknown enum values fall back to the defaults with a warning.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	if cfg == nil {
		return s
	}

	s.Cols = cfg.MazeCols
	s.Rows = cfg.MazeRows
	s.CellSize = cfg.CellSize
	s.BallRadius = cfg.BallRadius
	s.HoleRadius = cfg.HoleRadius
	s.Seed = cfg.MazeSeed
	s.Substeps = cfg.Substeps
	s.Restitution = cfg.WallRestitution
	s.Tilt = TiltMapper{MaxTiltDegrees: cfg.MaxTiltDegrees, MaxSpeed: cfg.MaxSpeed}
	s.JoinAfterStart = cfg.JoinAfterStart
	s.HostOnlyStart = cfg.HostOnlyStart
	s.RegenerateOnReset = cfg.RegenerateOnReset
	s.RandomizeHole = cfg.RandomizeHole

	switch AuthorityMode(cfg.AuthorityMode) {
	case AuthorityServer, AuthorityClient:
		s.Mode = AuthorityMode(cfg.AuthorityMode)
	default:
		log.Warnf("[CONFIG] Unknown AUTHORITY_MODE %q, using %s", cfg.AuthorityMode, s.Mode)
	}
	switch TiltMode(cfg.TiltMode) {
	case TiltShared, TiltOwn:
		s.TiltMode = TiltMode(cfg.TiltMode)
	default:
		log.Warnf("[CONFIG] Unknown TILT_MODE %q, using %s", cfg.TiltMode, s.TiltMode)
	}
	switch WallResponse(cfg.WallResponse) {
	case WallStop, WallBounce:
		s.WallResponse = WallResponse(cfg.WallResponse)
	default:
		log.Warnf("[CONFIG] Unknown WALL_RESPONSE %q, using %s", cfg.WallResponse, s.WallResponse)
	}
	switch WinPolicy(cfg.WinPolicy) {
	case WinContained, WinOverlap:
		s.Win = WinPolicy(cfg.WinPolicy)
	default:
		log.Warnf("[CONFIG] Unknown WIN_POLICY %q, using %s", cfg.WinPolicy, s.Win)
	}
	return s.normalized()
}
