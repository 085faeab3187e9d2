package ws

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tiltmaze/backend/internal/config"
	"github.com/tiltmaze/backend/internal/game"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
	ErrInvalidCode  = errors.New("invalid room code")
	ErrHubClosed    = errors.New("hub is shutting down")
)

const (
	roomCodeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength    = 6
	maxRoomCodeLength = 32
)

// Hub keeps the set of live rooms, keyed by code.
type Hub struct {
	ctx   context.Context
	mu    sync.RWMutex
	rooms map[string]*Room

	opts   RoomOptions
	bridge *Bridge
}

// NewHub creates a hub whose rooms run until ctx is cancelled.
func NewHub(ctx context.Context, cfg *config.Config, recorder *game.Recorder) *Hub {
	opts := RoomOptions{
		Settings: game.SettingsFromConfig(cfg),
		Recorder: recorder,
	}
	if cfg != nil {
		opts.TickHz = cfg.TickHz
		opts.BroadcastHz = cfg.BroadcastHz
		opts.AutoReset = time.Duration(cfg.AutoResetSeconds) * time.Second
		opts.EmptyGrace = time.Duration(cfg.EmptyRoomGraceSeconds) * time.Second
	}
	return NewHubWithOptions(ctx, opts)
}

// NewHubWithOptions creates a hub with explicit room options.
func NewHubWithOptions(ctx context.Context, opts RoomOptions) *Hub {
	return &Hub{
		ctx:   ctx,
		rooms: make(map[string]*Room),
		opts:  opts,
	}
}

// SetBridge attaches the Redis bridge used for win events and remote resets.
func (h *Hub) SetBridge(b *Bridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridge = b
	h.opts.Publisher = b
}

// NormalizeCode upper-cases a room code and checks its characters.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > maxRoomCodeLength {
		return "", ErrInvalidCode
	}
	for _, ch := range code {
		if !(ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '-' || ch == '_') {
			return "", ErrInvalidCode
		}
	}
	return code, nil
}

func generateRoomCode() string {
	result := make([]byte, roomCodeLength)
	for i := range result {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		result[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(result)
}

// Room returns the live room for code.
func (h *Hub) Room(code string) (*Room, bool) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[code]
	return r, ok
}

// CreateRoom starts an empty room. An empty code picks a random one.
func (h *Hub) CreateRoom(code string) (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx.Err() != nil {
		return nil, ErrHubClosed
	}

	if code == "" {
		for {
			code = generateRoomCode()
			if _, taken := h.rooms[code]; !taken {
				break
			}
		}
	} else {
		var err error
		if code, err = NormalizeCode(code); err != nil {
			return nil, err
		}
		if _, taken := h.rooms[code]; taken {
			return nil, ErrRoomExists
		}
	}
	return h.startRoomLocked(code), nil
}

func (h *Hub) startRoomLocked(code string) *Room {
	r := NewRoom(code, h.opts)
	r.release = h.release
	h.rooms[code] = r
	go r.Run(h.ctx)
	log.Printf("[WS] Room %s created (%d live)", code, len(h.rooms))
	return r
}

// Attach connects p to the room named code, creating the room on first use.
func (h *Hub) Attach(code string, p Peer) (*Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.ctx.Err() != nil {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	r, ok := h.rooms[code]
	if !ok {
		r = h.startRoomLocked(code)
	}
	select {
	case <-r.Done():
		h.mu.Unlock()
		return nil, ErrHubClosed
	default:
	}
	// counted under the hub lock so release cannot drop a room a connect is headed for
	r.pending.Add(1)
	h.mu.Unlock()

	if !r.Connect(p) {
		r.pending.Add(-1)
		return nil, ErrHubClosed
	}
	return r, nil
}

// release removes an empty room. It refuses while connects are still in flight.
// The room deletes its stored snapshot once its loop has stopped.
func (h *Hub) release(r *Room) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r.pending.Load() > 0 {
		return false
	}
	if cur, ok := h.rooms[r.Code]; ok && cur == r {
		delete(h.rooms, r.Code)
	}
	log.Printf("[WS] Room %s released (%d live)", r.Code, len(h.rooms))
	return true
}

// Rooms lists live rooms ordered by code.
func (h *Hub) Rooms() []RoomInfo {
	h.mu.RLock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for _, r := range h.rooms {
		out = append(out, r.Info())
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// RequestReset resets a local room, or relays the request to the instance that owns it.
// relayed is true when the request went out over Redis.
func (h *Hub) RequestReset(ctx context.Context, code string) (relayed bool, err error) {
	code, err = NormalizeCode(code)
	if err != nil {
		return false, err
	}
	if r, ok := h.Room(code); ok && r.RequestReset() {
		return false, nil
	}

	h.mu.RLock()
	bridge := h.bridge
	h.mu.RUnlock()
	if bridge == nil {
		return false, ErrRoomNotFound
	}
	if err := bridge.PublishReset(ctx, code); err != nil {
		return false, err
	}
	return true, nil
}

// LoadSnapshot returns the live snapshot of a local room, falling back to the stored one.
func (h *Hub) LoadSnapshot(ctx context.Context, code string) (*game.Snapshot, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	if r, ok := h.Room(code); ok {
		snap, err := r.Snapshot(ctx)
		if err == nil {
			return &snap, nil
		}
	}
	snap, err := h.opts.Recorder.LoadSnapshot(ctx, code)
	if errors.Is(err, game.ErrSnapshotNotFound) {
		return nil, ErrRoomNotFound
	}
	return snap, err
}
