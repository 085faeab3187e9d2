package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Database (empty disables result history)
	DatabaseURL    string
	MigrateOnStart bool

	// Redis (empty disables snapshots and cross-instance relay)
	RedisURL           string
	SnapshotTTLMinutes int

	// Server
	Port        string
	FrontendURL string

	// Maze
	MazeCols   int
	MazeRows   int
	CellSize   float64
	BallRadius float64
	HoleRadius float64
	MazeSeed   uint64

	// Simulation
	AuthorityMode   string
	TiltMode        string
	TickHz          int
	BroadcastHz     int
	Substeps        int
	WallResponse    string
	WallRestitution float64
	WinPolicy       string
	MaxTiltDegrees  float64
	MaxSpeed        float64

	// Session rules
	JoinAfterStart    bool
	HostOnlyStart     bool
	RegenerateOnReset bool
	RandomizeHole     bool
	AutoResetSeconds  int

	// Rooms created over REST are released if nobody connects within this window
	EmptyRoomGraceSeconds int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL:           getEnv("REDIS_URL", ""),
		SnapshotTTLMinutes: getEnvInt("SNAPSHOT_TTL_MINUTES", 60),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Maze
		MazeCols:   getEnvInt("MAZE_COLS", 15),
		MazeRows:   getEnvInt("MAZE_ROWS", 15),
		CellSize:   getEnvFloat("CELL_SIZE", 40),
		BallRadius: getEnvFloat("BALL_RADIUS", 10),
		HoleRadius: getEnvFloat("HOLE_RADIUS", 16),
		MazeSeed:   getEnvUint64("MAZE_SEED", 0),

		// Simulation
		AuthorityMode:   strings.ToLower(getEnv("AUTHORITY_MODE", "server")),
		TiltMode:        strings.ToLower(getEnv("TILT_MODE", "shared")),
		TickHz:          getEnvInt("TICK_HZ", 60),
		BroadcastHz:     getEnvInt("BROADCAST_HZ", 60),
		Substeps:        getEnvInt("SUBSTEPS", 10),
		WallResponse:    strings.ToLower(getEnv("WALL_RESPONSE", "stop")),
		WallRestitution: getEnvFloat("WALL_RESTITUTION", 0.5),
		WinPolicy:       strings.ToLower(getEnv("WIN_POLICY", "contained")),
		MaxTiltDegrees:  getEnvFloat("MAX_TILT_DEGREES", 30),
		MaxSpeed:        getEnvFloat("MAX_SPEED", 6),

		// Session rules
		JoinAfterStart:    getEnvBool("JOIN_AFTER_START", false),
		HostOnlyStart:     getEnvBool("HOST_ONLY_START", false),
		RegenerateOnReset: getEnvBool("REGENERATE_ON_RESET", true),
		RandomizeHole:     getEnvBool("RANDOMIZE_HOLE", false),
		AutoResetSeconds:  getEnvInt("AUTO_RESET_SECONDS", 0),

		EmptyRoomGraceSeconds: getEnvInt("EMPTY_ROOM_GRACE_SECONDS", 60),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	u, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		log.Warnf("[CONFIG] Ignoring %s=%q: want an unsigned integer, using %d", key, value, defaultValue)
		return defaultValue
	}
	return u
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
