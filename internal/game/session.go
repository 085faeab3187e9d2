package game

import (
	"errors"
	"sort"
	"time"

	"golang.org/x/exp/rand"

	"github.com/tiltmaze/backend/internal/maze"
)

var (
	ErrRosterFull      = errors.New("roster is full")
	ErrGameStarted     = errors.New("game already started")
	ErrUnknownIdentity = errors.New("unknown identity")
	ErrNotHost         = errors.New("only the host can start the game")
	ErrModeMismatch    = errors.New("message not valid for this authority mode")
	ErrNotStarted      = errors.New("game not started")
)

// Settings configures a session. Zero values are replaced by the reference tuning.
type Settings struct {
	Cols       int
	Rows       int
	CellSize   float64
	BallRadius float64
	HoleRadius float64
	Slots      []SpawnSlot

	Mode         AuthorityMode
	TiltMode     TiltMode
	Tilt         TiltMapper
	Substeps     int
	WallResponse WallResponse
	Restitution  float64
	Win          WinPolicy

	JoinAfterStart    bool
	HostOnlyStart     bool
	RegenerateOnReset bool
	RandomizeHole     bool

	// Seed drives maze and hole randomness. Zero seeds from the clock.
	Seed uint64
}

// DefaultSettings returns the reference configuration.
func DefaultSettings() Settings {
	return Settings{
		Cols:              DefaultCols,
		Rows:              DefaultRows,
		CellSize:          DefaultCellSize,
		BallRadius:        DefaultBallRadius,
		HoleRadius:        DefaultHoleRadius,
		Mode:              AuthorityServer,
		TiltMode:          TiltShared,
		Tilt:              DefaultTiltMapper(),
		Substeps:          DefaultSubsteps,
		WallResponse:      WallStop,
		Restitution:       DefaultRestitution,
		Win:               WinContained,
		RegenerateOnReset: true,
	}
}

func (s Settings) normalized() Settings {
	d := DefaultSettings()
	if s.Cols < 1 {
		s.Cols = d.Cols
	}
	if s.Rows < 1 {
		s.Rows = d.Rows
	}
	if s.CellSize <= 0 {
		s.CellSize = d.CellSize
	}
	if s.BallRadius <= 0 {
		s.BallRadius = d.BallRadius
	}
	if s.HoleRadius <= 0 {
		s.HoleRadius = d.HoleRadius
	}
	if s.Mode != AuthorityClient {
		s.Mode = AuthorityServer
	}
	if s.TiltMode != TiltOwn {
		s.TiltMode = TiltShared
	}
	if s.Tilt.MaxTiltDegrees <= 0 || s.Tilt.MaxSpeed <= 0 {
		s.Tilt = d.Tilt
	}
	if s.Substeps < 1 {
		s.Substeps = d.Substeps
	}
	if s.WallResponse != WallBounce {
		s.WallResponse = WallStop
	}
	if s.Win != WinOverlap {
		s.Win = WinContained
	}
	if len(s.Slots) == 0 {
		s.Slots = DefaultSpawnSlots(s.Cols, s.Rows)
	}
	if len(s.Slots) > MaxPlayers {
		s.Slots = s.Slots[:MaxPlayers]
	}
	return s
}

// JoinRequest carries the optional preferences sent with a join.
type JoinRequest struct {
	Name  string
	Color string
}

// TickResult is what one simulation tick produced.
type TickResult struct {
	Winners    []Ball
	Collisions []CollisionEvent
}

// Snapshot is a read-only copy of the session for broadcast and storage.
type Snapshot struct {
	Mode     AuthorityMode `json:"mode"`
	Status   GameStatus    `json:"status"`
	Started  bool          `json:"started"`
	Tick     int           `json:"tick"`
	Host     string        `json:"host"`
	MazeSeed uint64        `json:"maze_seed"`
	Grid     *maze.Grid    `json:"grid"`
	Hole     Hole          `json:"hole"`
	Balls    []Ball        `json:"balls"`
	TakenAt  time.Time     `json:"taken_at"`
}

// Session is the state of one room: the maze, the roster and the start gate.
// It is not safe for concurrent use; a single event loop owns it.
type Session struct {
	settings Settings
	rng      *rand.Rand

	grid     *maze.Grid
	mazeSeed uint64
	hole     Hole
	engine   *PhysicsEngine

	balls  map[string]*Ball
	peers  []string
	tilts  map[string]Vec2
	status GameStatus
	tick   int

	roundStarted time.Time
}

// NewSession generates the first maze and returns an empty session.
func NewSession(s Settings) *Session {
	s = s.normalized()
	sess := &Session{
		settings: s,
		rng:      maze.NewRand(s.Seed),
		balls:    make(map[string]*Ball),
		tilts:    make(map[string]Vec2),
		status:   StatusWaiting,
	}
	sess.buildMaze()
	sess.placeHole()
	return sess
}

func (s *Session) buildMaze() {
	seed := s.rng.Uint64()
	if seed == 0 {
		seed = 1
	}
	s.mazeSeed = seed
	s.grid = maze.Generate(s.settings.Cols, s.settings.Rows, s.settings.CellSize, maze.NewRand(seed))
	s.engine = NewPhysicsEngine(s.grid, s.settings.Substeps, s.settings.WallResponse, s.settings.Restitution, s.settings.Win)
}

func (s *Session) placeHole() {
	if s.settings.RandomizeHole {
		s.hole = RandomHole(s.grid, s.settings.HoleRadius, s.settings.Slots, s.rng)
		return
	}
	s.hole = DefaultHole(s.grid, s.settings.HoleRadius)
}

func (s *Session) Settings() Settings { return s.settings }
func (s *Session) Mode() AuthorityMode { return s.settings.Mode }
func (s *Session) Status() GameStatus { return s.status }
func (s *Session) Started() bool { return s.status == StatusInProgress }
func (s *Session) Grid() *maze.Grid { return s.grid }
func (s *Session) Hole() Hole { return s.hole }
func (s *Session) Tick() int { return s.tick }
func (s *Session) MazeSeed() uint64 { return s.mazeSeed }
func (s *Session) MaxPlayers() int { return len(s.settings.Slots) }
func (s *Session) Engine() *PhysicsEngine { return s.engine }

// Host returns the earliest still-connected peer, or "" when nobody is connected.
func (s *Session) Host() string {
	if len(s.peers) == 0 {
		return ""
	}
	return s.peers[0]
}

// Connected reports whether id is an attached peer.
func (s *Session) Connected(id string) bool {
	for _, p := range s.peers {
		if p == id {
			return true
		}
	}
	return false
}

// Peers returns the connected peer ids in connection order.
func (s *Session) Peers() []string {
	out := make([]string, len(s.peers))
	copy(out, s.peers)
	return out
}

// Connect attaches a peer and reports whether it became host.
func (s *Session) Connect(id string) bool {
	if !s.Connected(id) {
		s.peers = append(s.peers, id)
	}
	return s.Host() == id
}

// Disconnect removes the peer and its ball. Removing an unknown id is a no-op.
// hostChanged is true when the departing peer was host and someone else took over.
func (s *Session) Disconnect(id string) (removed bool, hostChanged bool) {
	idx := -1
	for i, p := range s.peers {
		if p == id {
			idx = i
			break
		}
	}
	_, hadBall := s.balls[id]
	delete(s.balls, id)
	delete(s.tilts, id)
	if idx < 0 {
		return hadBall, false
	}
	s.peers = append(s.peers[:idx], s.peers[idx+1:]...)
	return true, idx == 0 && len(s.peers) > 0
}

// Join gives the peer a ball on the next free spawn slot. Joining twice returns the existing ball.
func (s *Session) Join(id string, req JoinRequest) (*Ball, error) {
	if !s.Connected(id) {
		return nil, ErrUnknownIdentity
	}
	if b, ok := s.balls[id]; ok {
		return b, nil
	}
	if len(s.balls) >= len(s.settings.Slots) {
		return nil, ErrRosterFull
	}
	if s.Started() && !s.settings.JoinAfterStart {
		return nil, ErrGameStarted
	}

	slot := s.freeSlot(req.Color)
	if slot < 0 {
		return nil, ErrRosterFull
	}
	spawn := s.settings.Slots[slot]
	x, y := SpawnPoint(s.grid, spawn)
	b := &Ball{
		ID:     id,
		Name:   req.Name,
		Slot:   slot,
		X:      x,
		Y:      y,
		Radius: s.settings.BallRadius,
		Color:  spawn.Color,
	}
	s.balls[id] = b
	return b, nil
}

// freeSlot returns the slot matching the preferred color when it is free,
// otherwise the lowest free slot, or -1.
func (s *Session) freeSlot(preferred string) int {
	used := make(map[int]bool, len(s.balls))
	for _, b := range s.balls {
		used[b.Slot] = true
	}
	if preferred != "" {
		for i, sl := range s.settings.Slots {
			if sl.Color == preferred && !used[i] {
				return i
			}
		}
	}
	for i := range s.settings.Slots {
		if !used[i] {
			return i
		}
	}
	return -1
}

// Ball returns the live ball for id.
func (s *Session) Ball(id string) (*Ball, bool) {
	b, ok := s.balls[id]
	return b, ok
}

// Roster returns copies of every ball ordered by spawn slot.
func (s *Session) Roster() []Ball {
	out := make([]Ball, 0, len(s.balls))
	for _, b := range s.ordered() {
		out = append(out, *b)
	}
	return out
}

func (s *Session) ordered() []*Ball {
	out := make([]*Ball, 0, len(s.balls))
	for _, b := range s.balls {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// Start opens the gate. Starting an already started game is a no-op.
func (s *Session) Start(id string) error {
	if !s.Connected(id) {
		return ErrUnknownIdentity
	}
	if s.settings.HostOnlyStart && s.Host() != id {
		return ErrNotHost
	}
	if s.status != StatusInProgress {
		s.status = StatusInProgress
		s.roundStarted = time.Now()
	}
	return nil
}

// RoundStarted is when the current round began, zero before the game starts.
func (s *Session) RoundStarted() time.Time {
	return s.roundStarted
}

// SetOrientation records a device-orientation sample from a connected peer.
func (s *Session) SetOrientation(id string, o Orientation) error {
	if s.settings.Mode != AuthorityServer {
		return ErrModeMismatch
	}
	if !s.Connected(id) {
		return ErrUnknownIdentity
	}
	s.tilts[id] = s.settings.Tilt.Velocity(o)
	return nil
}

// SetVelocitySample records a raw velocity sample for the given ball, clamped to max speed.
func (s *Session) SetVelocitySample(ballID string, v Vec2) error {
	if s.settings.Mode != AuthorityServer {
		return ErrModeMismatch
	}
	if _, ok := s.balls[ballID]; !ok {
		return ErrUnknownIdentity
	}
	s.tilts[ballID] = s.settings.Tilt.Clamp(v)
	return nil
}

// SharedVelocity is the mean of all tilt samples from connected peers.
func (s *Session) SharedVelocity() Vec2 {
	samples := make([]Vec2, 0, len(s.tilts))
	for _, id := range s.peers {
		if v, ok := s.tilts[id]; ok {
			samples = append(samples, v)
		}
	}
	return AverageTilt(samples)
}

// ApplyBallState mirrors a client-simulated ball (last write wins).
// Position is kept inside the playfield and velocity clamped; identity fields stay server-owned.
// It returns true when the update puts the ball in the hole for the first time.
// Moves sent before the game starts are rejected.
func (s *Session) ApplyBallState(state Ball) (bool, error) {
	if s.settings.Mode != AuthorityClient {
		return false, ErrModeMismatch
	}
	if !s.Started() {
		return false, ErrNotStarted
	}
	b, ok := s.balls[state.ID]
	if !ok {
		return false, ErrUnknownIdentity
	}
	b.X = clamp(state.X, b.Radius, s.engine.Width-b.Radius)
	b.Y = clamp(state.Y, b.Radius, s.engine.Height-b.Radius)
	b.SetVelocity(s.settings.Tilt.Clamp(Vec2{X: state.DX, Y: state.DY}))
	return s.engine.CheckGoal(b, s.hole), nil
}

// Step advances a started server-authoritative session by one tick.
func (s *Session) Step() TickResult {
	var res TickResult
	if s.settings.Mode != AuthorityServer || !s.Started() {
		return res
	}
	s.tick++

	balls := s.ordered()
	shared := s.SharedVelocity()
	for _, b := range balls {
		v := shared
		if s.settings.TiltMode == TiltOwn {
			v = s.tilts[b.ID]
		}
		if s.engine.Step(b, v.X, v.Y, s.hole) {
			res.Winners = append(res.Winners, *b)
		}
	}
	res.Collisions = ResolveCollisions(balls)
	return res
}

// Reset returns every ball to its spawn at rest, clears tilt samples and
// regenerates the maze when configured to.
func (s *Session) Reset() {
	if s.settings.RegenerateOnReset {
		s.buildMaze()
	}
	if s.settings.RandomizeHole {
		s.placeHole()
	}
	for _, b := range s.balls {
		x, y := SpawnPoint(s.grid, s.settings.Slots[b.Slot])
		b.Reset(x, y)
	}
	s.tilts = make(map[string]Vec2)
	s.tick = 0
	if s.Started() {
		s.roundStarted = time.Now()
	}
}

// Snapshot copies the session for broadcast or storage. The grid is shared; it is never mutated.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Mode:     s.settings.Mode,
		Status:   s.status,
		Started:  s.Started(),
		Tick:     s.tick,
		Host:     s.Host(),
		MazeSeed: s.mazeSeed,
		Grid:     s.grid,
		Hole:     s.hole,
		Balls:    s.Roster(),
		TakenAt:  time.Now(),
	}
}
