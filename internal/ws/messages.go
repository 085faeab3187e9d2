package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tiltmaze/backend/internal/game"
	"github.com/tiltmaze/backend/internal/maze"
)

var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Inbound message types
const (
	TypeJoin       = "join"
	TypeStartGame  = "startGame"
	TypeTilt       = "tilt"
	TypeUpdateBall = "updateBall"
	TypeBallMove   = "ballMove"
	TypeResetGame  = "resetGame"
)

// Outbound message types
const (
	TypeWelcome        = "welcome"
	TypeJoined         = "joined"
	TypeJoinDenied     = "joinDenied"
	TypeGameStarted    = "gameStarted"
	TypeGrid           = "grid"
	TypePlotPlayers    = "plotPlayers"
	TypeAnnounceWinner = "announceWinner"
	TypeHost           = "host"
	TypeError          = "error"
)

const maxNameLength = 32

// WSMessage is the envelope every frame travels in.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Raw inbound payloads. Pointers mark fields that must be present.
type joinData struct {
	Name  string   `json:"name"`
	Color string   `json:"color"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
}

type tiltData struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

type updateBallData struct {
	ID string   `json:"id"`
	DX *float64 `json:"dx"`
	DY *float64 `json:"dy"`
}

type ballMoveData struct {
	ID       string   `json:"id"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	DX       *float64 `json:"dx"`
	DY       *float64 `json:"dy"`
	IsWinner bool     `json:"isWinner"`
}

// Command is a validated inbound message.
type Command interface {
	Type() string
}

type JoinCommand struct {
	Request game.JoinRequest
}

type StartGameCommand struct{}

type TiltCommand struct {
	Orientation game.Orientation
}

// UpdateBallCommand is a velocity sample for one ball. An empty BallID means the sender's ball.
type UpdateBallCommand struct {
	BallID   string
	Velocity game.Vec2
}

// BallMoveCommand is a client-simulated ball state. An empty Ball.ID means the sender's ball.
type BallMoveCommand struct {
	Ball game.Ball
}

type ResetGameCommand struct{}

func (JoinCommand) Type() string       { return TypeJoin }
func (StartGameCommand) Type() string  { return TypeStartGame }
func (TiltCommand) Type() string       { return TypeTilt }
func (UpdateBallCommand) Type() string { return TypeUpdateBall }
func (BallMoveCommand) Type() string   { return TypeBallMove }
func (ResetGameCommand) Type() string  { return TypeResetGame }

// Outbound payloads
type WelcomeData struct {
	ID         string             `json:"id"`
	Host       string             `json:"host"`
	Mode       game.AuthorityMode `json:"mode"`
	TickHz     int                `json:"tickHz"`
	MaxPlayers int                `json:"maxPlayers"`
}

type JoinedData struct {
	Ball game.Ball `json:"ball"`
}

type JoinDeniedData struct {
	Reason string `json:"reason"`
}

type GridData struct {
	Cols     int            `json:"cols"`
	Rows     int            `json:"rows"`
	CellSize float64        `json:"cellSize"`
	Cells    [][]*maze.Cell `json:"cells"`
	Hole     game.Hole      `json:"hole"`
}

type AnnounceWinnerData struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Name  string `json:"name"`
}

type HostData struct {
	ID string `json:"id"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// DecodeCommand parses and validates one inbound frame.
func DecodeCommand(raw []byte) (Command, error) {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}

	switch msg.Type {
	case TypeJoin:
		var d joinData
		if err := decodeData(msg.Data, &d); err != nil {
			return nil, err
		}
		if err := optionalFinite("x", d.X); err != nil {
			return nil, err
		}
		if err := optionalFinite("y", d.Y); err != nil {
			return nil, err
		}
		return JoinCommand{Request: game.JoinRequest{
			Name:  cleanName(d.Name),
			Color: strings.ToLower(strings.TrimSpace(d.Color)),
		}}, nil

	case TypeStartGame:
		return StartGameCommand{}, nil

	case TypeTilt:
		var d tiltData
		if err := decodeData(msg.Data, &d); err != nil {
			return nil, err
		}
		beta, err := requireFinite("beta", d.Beta)
		if err != nil {
			return nil, err
		}
		gamma, err := requireFinite("gamma", d.Gamma)
		if err != nil {
			return nil, err
		}
		if err := optionalFinite("alpha", d.Alpha); err != nil {
			return nil, err
		}
		o := game.Orientation{Beta: beta, Gamma: gamma}
		if d.Alpha != nil {
			o.Alpha = *d.Alpha
		}
		return TiltCommand{Orientation: o}, nil

	case TypeUpdateBall:
		var d updateBallData
		if err := decodeData(msg.Data, &d); err != nil {
			return nil, err
		}
		dx, err := requireFinite("dx", d.DX)
		if err != nil {
			return nil, err
		}
		dy, err := requireFinite("dy", d.DY)
		if err != nil {
			return nil, err
		}
		return UpdateBallCommand{BallID: d.ID, Velocity: game.Vec2{X: dx, Y: dy}}, nil

	case TypeBallMove:
		var d ballMoveData
		if err := decodeData(msg.Data, &d); err != nil {
			return nil, err
		}
		var vals [4]float64
		for i, f := range []struct {
			name string
			v    *float64
		}{{"x", d.X}, {"y", d.Y}, {"dx", d.DX}, {"dy", d.DY}} {
			v, err := requireFinite(f.name, f.v)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return BallMoveCommand{Ball: game.Ball{
			ID:       d.ID,
			X:        vals[0],
			Y:        vals[1],
			DX:       vals[2],
			DY:       vals[3],
			IsWinner: d.IsWinner,
		}}, nil

	case TypeResetGame:
		return ResetGameCommand{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
}

// decodeData treats a missing or null payload as an empty object.
func decodeData(data json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}

func requireFinite(name string, v *float64) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedMessage, name)
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrMalformedMessage, name)
	}
	return *v, nil
}

func optionalFinite(name string, v *float64) error {
	if v == nil {
		return nil
	}
	_, err := requireFinite(name, v)
	return err
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= maxNameLength {
		return name
	}
	return string([]rune(name)[:maxNameLength])
}

// Encode builds an outbound frame.
func Encode(msgType string, data interface{}) ([]byte, error) {
	if data == nil {
		data = struct{}{}
	}
	return json.Marshal(outMessage{Type: msgType, Data: data})
}

func gridData(g *maze.Grid, h game.Hole) GridData {
	return GridData{
		Cols:     g.Cols,
		Rows:     g.Rows,
		CellSize: g.CellSize,
		Cells:    g.Cells,
		Hole:     h,
	}
}
