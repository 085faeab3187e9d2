package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMazeSeedParsing(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  uint64
	}{
		{"unset", "", 0},
		{"plain", "42", 42},
		{"max", "18446744073709551615", 18446744073709551615},
		{"negative", "-1", 0},
		{"garbage", "seven", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("MAZE_SEED", tc.value)
			assert.Equal(t, tc.want, Load().MazeSeed)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"TICK_HZ", "AUTHORITY_MODE", "EMPTY_ROOM_GRACE_SECONDS"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	assert.Equal(t, 60, cfg.TickHz)
	assert.Equal(t, "server", cfg.AuthorityMode)
	assert.Equal(t, 60, cfg.EmptyRoomGraceSeconds)
}
