package ws

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiltmaze/backend/internal/game"
	"github.com/tiltmaze/backend/internal/maze"
)

func TestDecodeCommand(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Command
	}{
		{"join empty", `{"type":"join"}`, JoinCommand{}},
		{"join null data", `{"type":"join","data":null}`, JoinCommand{}},
		{"join prefs", `{"type":"join","data":{"name":"  Ann ","color":"Red","x":10,"y":10}}`,
			JoinCommand{Request: game.JoinRequest{Name: "Ann", Color: "red"}}},
		{"start", `{"type":"startGame","data":{}}`, StartGameCommand{}},
		{"tilt", `{"type":"tilt","data":{"alpha":5,"beta":-12.5,"gamma":30}}`,
			TiltCommand{Orientation: game.Orientation{Alpha: 5, Beta: -12.5, Gamma: 30}}},
		{"tilt without alpha", `{"type":"tilt","data":{"beta":1,"gamma":2}}`,
			TiltCommand{Orientation: game.Orientation{Beta: 1, Gamma: 2}}},
		{"update ball", `{"type":"updateBall","data":{"id":"b1","dx":1.5,"dy":-2}}`,
			UpdateBallCommand{BallID: "b1", Velocity: game.Vec2{X: 1.5, Y: -2}}},
		{"ball move", `{"type":"ballMove","data":{"x":100,"y":120,"dx":0,"dy":3,"isWinner":true}}`,
			BallMoveCommand{Ball: game.Ball{X: 100, Y: 120, DY: 3, IsWinner: true}}},
		{"reset", `{"type":"resetGame"}`, ResetGameCommand{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeCommandRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `tilt please`, ErrMalformedMessage},
		{"no type", `{"data":{}}`, ErrMalformedMessage},
		{"unknown type", `{"type":"teleport","data":{}}`, ErrUnknownMessageType},
		{"tilt missing gamma", `{"type":"tilt","data":{"beta":3}}`, ErrMalformedMessage},
		{"tilt no data", `{"type":"tilt"}`, ErrMalformedMessage},
		{"tilt wrong type", `{"type":"tilt","data":{"beta":"3","gamma":1}}`, ErrMalformedMessage},
		{"update missing dy", `{"type":"updateBall","data":{"dx":1}}`, ErrMalformedMessage},
		{"ball move missing y", `{"type":"ballMove","data":{"x":1,"dx":0,"dy":0}}`, ErrMalformedMessage},
		{"data not object", `{"type":"ballMove","data":[1,2,3]}`, ErrMalformedMessage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tc.raw))
			assert.Nil(t, cmd)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRequireFinite(t *testing.T) {
	nan, inf, ok := math.NaN(), math.Inf(-1), 4.0

	_, err := requireFinite("dx", &nan)
	assert.ErrorIs(t, err, ErrMalformedMessage)
	_, err = requireFinite("dx", &inf)
	assert.ErrorIs(t, err, ErrMalformedMessage)
	_, err = requireFinite("dx", nil)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	v, err := requireFinite("dx", &ok)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}

func TestJoinNameIsTruncated(t *testing.T) {
	long := strings.Repeat("é", 50)
	cmd, err := DecodeCommand([]byte(`{"type":"join","data":{"name":"` + long + `"}}`))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", maxNameLength), cmd.(JoinCommand).Request.Name)
}

func TestEncodeGridShape(t *testing.T) {
	g := maze.Generate(2, 1, 40, maze.NewRand(1))
	frame, err := Encode(TypeGrid, gridData(g, game.Hole{X: 60, Y: 20, Radius: 16, Color: "black"}))
	require.NoError(t, err)

	var decoded struct {
		Type string `json:"type"`
		Data struct {
			Cols     int     `json:"cols"`
			Rows     int     `json:"rows"`
			CellSize float64 `json:"cellSize"`
			Cells    [][]struct {
				X     int        `json:"x"`
				Y     int        `json:"y"`
				Walls maze.Walls `json:"walls"`
			} `json:"cells"`
			Hole game.Hole `json:"hole"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frame, &decoded))

	assert.Equal(t, TypeGrid, decoded.Type)
	assert.Equal(t, 2, decoded.Data.Cols)
	assert.Equal(t, 1, decoded.Data.Rows)
	require.Len(t, decoded.Data.Cells, 2)
	assert.Equal(t, 1, decoded.Data.Cells[1][0].X)
	assert.False(t, decoded.Data.Cells[0][0].Walls.Right, "the only passage joins the two cells")
	assert.False(t, decoded.Data.Cells[1][0].Walls.Left)
	assert.Equal(t, 60.0, decoded.Data.Hole.X)
}

func TestEncodeEmptyPayload(t *testing.T) {
	frame, err := Encode(TypeGameStarted, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"gameStarted","data":{}}`, string(frame))
}
