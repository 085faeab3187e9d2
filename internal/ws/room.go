package ws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tiltmaze/backend/internal/game"
	"github.com/tiltmaze/backend/internal/models"
)

// Peer is one attached connection as the room sees it.
type Peer interface {
	ID() string
	// Send queues a frame without blocking and reports whether it was accepted.
	Send(msg []byte) bool
	Close()
}

// WinPublisher fans win announcements out to other instances.
type WinPublisher interface {
	PublishWin(ctx context.Context, ev WinEvent) error
}

// WinEvent is published on every win.
type WinEvent struct {
	Room     string    `json:"room"`
	BallID   string    `json:"ball_id"`
	Color    string    `json:"color"`
	Name     string    `json:"name"`
	Ticks    int       `json:"ticks"`
	MazeSeed uint64    `json:"maze_seed"`
	WonAt    time.Time `json:"won_at"`
	Origin   string    `json:"origin,omitempty"`
}

// RoomInfo is the lock-free summary the REST layer lists.
type RoomInfo struct {
	Code    string             `json:"code"`
	Players int                `json:"players"`
	Peers   int                `json:"peers"`
	Started bool               `json:"started"`
	Mode    game.AuthorityMode `json:"mode"`
}

// SnapshotStore persists room snapshots between restarts.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, code string, snap game.Snapshot) error
	DeleteSnapshot(ctx context.Context, code string) error
}

// RoomOptions configures a room's timing and collaborators.
type RoomOptions struct {
	Settings    game.Settings
	TickHz      int
	BroadcastHz int
	AutoReset   time.Duration
	// EmptyGrace is how long a room with no peers waits for one before it is released.
	EmptyGrace time.Duration
	Recorder   *game.Recorder
	// Snapshots defaults to Recorder.
	Snapshots SnapshotStore
	Publisher WinPublisher
}

const defaultEmptyGrace = time.Minute

// room inbox messages
type (
	connectMsg    struct{ peer Peer }
	disconnectMsg struct{ peer Peer }
	inboundMsg    struct {
		from string
		cmd  Command
	}
	snapshotMsg struct{ reply chan game.Snapshot }
	resetMsg    struct{}
)

// Room owns one Session. Every mutation happens on the goroutine running Run.
type Room struct {
	Code string

	opts    RoomOptions
	session *game.Session
	peers   map[string]Peer

	inbox   chan interface{}
	done    chan struct{}
	stopped sync.Once

	// mu orders posts against the final inbox drain in stop
	mu     sync.Mutex
	closed bool

	// saves holds the newest unwritten snapshot
	saves    chan game.Snapshot
	released atomic.Bool

	// pending counts connects posted by the hub but not yet handled
	pending atomic.Int32
	players atomic.Int32
	npeers  atomic.Int32
	started atomic.Bool

	broadcastEvery int
	autoResetC     <-chan time.Time
	autoResetTimer *time.Timer
	emptyC         <-chan time.Time
	emptyTimer     *time.Timer

	// release is called from the loop once the room is empty; it returns
	// true when the room was removed and the loop should stop.
	release func(*Room) bool
}

// NewRoom creates a room with a fresh session. Call Run to start it.
func NewRoom(code string, opts RoomOptions) *Room {
	if opts.TickHz <= 0 {
		opts.TickHz = game.DefaultTickHz
	}
	if opts.BroadcastHz <= 0 || opts.BroadcastHz > opts.TickHz {
		opts.BroadcastHz = opts.TickHz
	}
	if opts.EmptyGrace <= 0 {
		opts.EmptyGrace = defaultEmptyGrace
	}
	if opts.Snapshots == nil && opts.Recorder != nil {
		opts.Snapshots = opts.Recorder
	}
	r := &Room{
		Code:           code,
		opts:           opts,
		session:        game.NewSession(opts.Settings),
		peers:          make(map[string]Peer),
		inbox:          make(chan interface{}, 256),
		done:           make(chan struct{}),
		saves:          make(chan game.Snapshot, 1),
		broadcastEvery: opts.TickHz / opts.BroadcastHz,
	}
	if r.broadcastEvery < 1 {
		r.broadcastEvery = 1
	}
	return r
}

// Info reads the room summary without going through the loop.
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		Code:    r.Code,
		Players: int(r.players.Load()),
		Peers:   int(r.npeers.Load()),
		Started: r.started.Load(),
		Mode:    r.session.Mode(),
	}
}

// Done is closed when the room loop exits.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

func (r *Room) post(m interface{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.done:
		return false
	}
}

// Connect attaches a peer.
func (r *Room) Connect(p Peer) bool {
	return r.post(connectMsg{peer: p})
}

// Disconnect detaches a peer. Detaching twice is harmless.
func (r *Room) Disconnect(p Peer) bool {
	return r.post(disconnectMsg{peer: p})
}

// Deliver hands a validated command from peer id to the loop.
func (r *Room) Deliver(from string, cmd Command) bool {
	return r.post(inboundMsg{from: from, cmd: cmd})
}

// RequestReset resets the room as if a peer sent resetGame.
func (r *Room) RequestReset() bool {
	return r.post(resetMsg{})
}

// Snapshot asks the loop for a consistent copy of the session.
func (r *Room) Snapshot(ctx context.Context) (game.Snapshot, error) {
	reply := make(chan game.Snapshot, 1)
	if !r.post(snapshotMsg{reply: reply}) {
		return game.Snapshot{}, errors.New("room closed")
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-r.done:
		return game.Snapshot{}, errors.New("room closed")
	case <-ctx.Done():
		return game.Snapshot{}, ctx.Err()
	}
}

// Run is the room's event loop. It returns when ctx is cancelled or the room empties and is released.
func (r *Room) Run(ctx context.Context) {
	defer r.stop()

	var tickC <-chan time.Time
	if r.session.Mode() == game.AuthorityServer {
		ticker := time.NewTicker(time.Second / time.Duration(r.opts.TickHz))
		defer ticker.Stop()
		tickC = ticker.C
	}

	if r.opts.Snapshots != nil {
		go r.persist(r.opts.Snapshots)
	}
	if len(r.peers) == 0 {
		r.armEmptyTimer()
	}

	log.WithFields(log.Fields{"room": r.Code, "mode": r.session.Mode()}).Info("[ROOM] Room started")

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-r.inbox:
			if !r.handle(m) {
				return
			}
		case <-tickC:
			r.tick()
		case <-r.autoResetC:
			r.autoResetC = nil
			log.Printf("[ROOM] Auto reset in room %s", r.Code)
			r.reset()
		case <-r.emptyC:
			r.emptyC = nil
			if len(r.peers) == 0 && r.tryRelease() {
				log.Printf("[ROOM] Room %s unused for %s", r.Code, r.opts.EmptyGrace)
				return
			}
		}
	}
}

func (r *Room) armEmptyTimer() {
	r.emptyTimer = time.NewTimer(r.opts.EmptyGrace)
	r.emptyC = r.emptyTimer.C
}

func (r *Room) stopEmptyTimer() {
	if r.emptyTimer != nil {
		r.emptyTimer.Stop()
		r.emptyTimer = nil
	}
	r.emptyC = nil
}

func (r *Room) tryRelease() bool {
	if r.release == nil || !r.release(r) {
		return false
	}
	r.released.Store(true)
	return true
}

func (r *Room) stop() {
	r.stopped.Do(func() {
		if r.autoResetTimer != nil {
			r.autoResetTimer.Stop()
		}
		r.stopEmptyTimer()
		for id, p := range r.peers {
			p.Close()
			delete(r.peers, id)
		}
		close(r.done)

		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		r.drain()

		log.Printf("[ROOM] Room %s closed", r.Code)
	})
}

// drain closes peers whose connect was queued but never handled.
func (r *Room) drain() {
	for {
		select {
		case m := <-r.inbox:
			if c, ok := m.(connectMsg); ok {
				r.pending.Add(-1)
				c.peer.Close()
			}
		default:
			return
		}
	}
}

// handle processes one inbox message and reports whether the loop should keep running.
func (r *Room) handle(m interface{}) bool {
	switch msg := m.(type) {
	case connectMsg:
		r.pending.Add(-1)
		r.onConnect(msg.peer)
	case disconnectMsg:
		r.onDisconnect(msg.peer)
		if len(r.peers) == 0 && r.tryRelease() {
			return false
		}
	case inboundMsg:
		r.onCommand(msg.from, msg.cmd)
	case snapshotMsg:
		msg.reply <- r.session.Snapshot()
	case resetMsg:
		r.reset()
	}
	return true
}

func (r *Room) onConnect(p Peer) {
	id := p.ID()
	if old, ok := r.peers[id]; ok && old != p {
		old.Close()
	}
	r.peers[id] = p
	r.stopEmptyTimer()
	isHost := r.session.Connect(id)
	r.syncCounters()

	log.WithFields(log.Fields{"room": r.Code, "peer": id, "host": isHost}).Info("[WS] Peer connected")

	r.sendTo(p, TypeWelcome, WelcomeData{
		ID:         id,
		Host:       r.session.Host(),
		Mode:       r.session.Mode(),
		TickHz:     r.opts.TickHz,
		MaxPlayers: r.session.MaxPlayers(),
	})
	r.sendTo(p, TypeGrid, gridData(r.session.Grid(), r.session.Hole()))
	r.sendTo(p, TypePlotPlayers, r.session.Roster())
	if r.session.Started() {
		r.sendTo(p, TypeGameStarted, nil)
	}
}

func (r *Room) onDisconnect(p Peer) {
	id := p.ID()
	if cur, ok := r.peers[id]; !ok || cur != p {
		return
	}
	delete(r.peers, id)
	p.Close()

	removed, hostChanged := r.session.Disconnect(id)
	r.syncCounters()
	if !removed {
		return
	}
	log.WithFields(log.Fields{"room": r.Code, "peer": id}).Info("[WS] Peer disconnected")

	r.broadcast(TypePlotPlayers, r.session.Roster())
	if hostChanged {
		r.broadcast(TypeHost, HostData{ID: r.session.Host()})
	}
	r.saveSnapshot()
}

func (r *Room) onCommand(from string, cmd Command) {
	if _, ok := r.peers[from]; !ok {
		return
	}

	switch c := cmd.(type) {
	case JoinCommand:
		ball, err := r.session.Join(from, c.Request)
		if err != nil {
			log.WithFields(log.Fields{"room": r.Code, "peer": from}).Infof("[ROOM] Join denied: %v", err)
			r.send(from, TypeJoinDenied, JoinDeniedData{Reason: err.Error()})
			return
		}
		r.syncCounters()
		r.send(from, TypeJoined, JoinedData{Ball: *ball})
		r.broadcast(TypePlotPlayers, r.session.Roster())
		r.saveSnapshot()

	case StartGameCommand:
		wasStarted := r.session.Started()
		if err := r.session.Start(from); err != nil {
			r.send(from, TypeError, ErrorData{Message: err.Error()})
			return
		}
		if wasStarted {
			return
		}
		r.syncCounters()
		log.Printf("[ROOM] Game started in room %s by %s", r.Code, from)
		r.broadcast(TypeGameStarted, nil)
		r.saveSnapshot()

	case TiltCommand:
		r.checkMode(from, c, r.session.SetOrientation(from, c.Orientation))

	case UpdateBallCommand:
		id := c.BallID
		if id == "" {
			id = from
		}
		r.checkMode(from, c, r.session.SetVelocitySample(id, c.Velocity))

	case BallMoveCommand:
		state := c.Ball
		if state.ID == "" {
			state.ID = from
		}
		won, err := r.session.ApplyBallState(state)
		if err != nil {
			r.checkMode(from, c, err)
			return
		}
		ball, _ := r.session.Ball(state.ID)
		r.broadcastExcept(from, TypeBallMove, *ball)
		if won {
			r.onWin(*ball)
		}

	case ResetGameCommand:
		log.Printf("[ROOM] Reset requested in room %s by %s", r.Code, from)
		r.reset()
	}
}

// checkMode logs dropped inputs. Unknown ids and mode mismatches are no-ops.
func (r *Room) checkMode(from string, cmd Command, err error) {
	if err == nil {
		return
	}
	log.WithFields(log.Fields{"room": r.Code, "peer": from, "type": cmd.Type()}).Debugf("[ROOM] Dropped input: %v", err)
}

func (r *Room) tick() {
	if !r.session.Started() {
		return
	}
	res := r.session.Step()
	if r.session.Tick()%r.broadcastEvery == 0 || len(res.Winners) > 0 {
		r.broadcast(TypePlotPlayers, r.session.Roster())
	}
	for _, w := range res.Winners {
		r.onWin(w)
	}
}

func (r *Room) onWin(b game.Ball) {
	log.WithFields(log.Fields{"room": r.Code, "ball": b.ID, "color": b.Color}).Info("[ROOM] Winner")
	r.broadcast(TypeAnnounceWinner, AnnounceWinnerData{ID: b.ID, Color: b.Color, Name: b.Name})

	now := time.Now()
	elapsed := int64(0)
	if started := r.session.RoundStarted(); !started.IsZero() {
		elapsed = now.Sub(started).Milliseconds()
	}
	result := models.GameResult{
		RoomCode:   r.Code,
		BallID:     b.ID,
		PlayerName: b.Name,
		Color:      b.Color,
		Mode:       string(r.session.Mode()),
		Ticks:      r.session.Tick(),
		ElapsedMs:  elapsed,
		MazeSeed:   int64(r.session.MazeSeed()),
		WonAt:      now,
	}
	ev := WinEvent{
		Room:     r.Code,
		BallID:   b.ID,
		Color:    b.Color,
		Name:     b.Name,
		Ticks:    result.Ticks,
		MazeSeed: r.session.MazeSeed(),
		WonAt:    now,
	}
	recorder, publisher := r.opts.Recorder, r.opts.Publisher
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := recorder.RecordWin(ctx, result); err != nil {
			log.Printf("[DB] Failed to record win in room %s: %v", result.RoomCode, err)
		}
		if publisher != nil {
			if err := publisher.PublishWin(ctx, ev); err != nil {
				log.Printf("[REDIS] Failed to publish win for room %s: %v", ev.Room, err)
			}
		}
	}()

	r.saveSnapshot()
	r.scheduleAutoReset()
}

func (r *Room) scheduleAutoReset() {
	if r.opts.AutoReset <= 0 || r.autoResetC != nil {
		return
	}
	r.autoResetTimer = time.NewTimer(r.opts.AutoReset)
	r.autoResetC = r.autoResetTimer.C
}

func (r *Room) reset() {
	if r.autoResetTimer != nil {
		r.autoResetTimer.Stop()
		r.autoResetTimer = nil
	}
	r.autoResetC = nil

	r.session.Reset()
	r.broadcast(TypeGrid, gridData(r.session.Grid(), r.session.Hole()))
	r.broadcast(TypePlotPlayers, r.session.Roster())
	r.saveSnapshot()
}

func (r *Room) syncCounters() {
	r.players.Store(int32(len(r.session.Roster())))
	r.npeers.Store(int32(len(r.peers)))
	r.started.Store(r.session.Started())
}

// saveSnapshot hands the current state to the writer, replacing any snapshot it has not written yet.
func (r *Room) saveSnapshot() {
	if r.opts.Snapshots == nil {
		return
	}
	snap := r.session.Snapshot()
	select {
	case r.saves <- snap:
	default:
		select {
		case <-r.saves:
		default:
		}
		r.saves <- snap
	}
}

// persist is the room's only snapshot writer. Once the room is released it deletes the stored snapshot.
func (r *Room) persist(store SnapshotStore) {
	for {
		select {
		case snap := <-r.saves:
			r.writeSnapshot(store, snap)
		case <-r.done:
			if r.released.Load() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := store.DeleteSnapshot(ctx, r.Code); err != nil {
					log.Printf("[REDIS] Failed to delete snapshot for room %s: %v", r.Code, err)
				}
				return
			}
			select {
			case snap := <-r.saves:
				r.writeSnapshot(store, snap)
			default:
			}
			return
		}
	}
}

func (r *Room) writeSnapshot(store SnapshotStore, snap game.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.SaveSnapshot(ctx, r.Code, snap); err != nil {
		log.Printf("[REDIS] Failed to save snapshot for room %s: %v", r.Code, err)
	}
}

func (r *Room) sendTo(p Peer, msgType string, data interface{}) {
	frame, err := Encode(msgType, data)
	if err != nil {
		log.Printf("[WS] Error marshaling %s: %v", msgType, err)
		return
	}
	if !p.Send(frame) {
		log.Printf("[WS] Send buffer full for peer %s in room %s, dropping %s", p.ID(), r.Code, msgType)
	}
}

func (r *Room) send(id string, msgType string, data interface{}) {
	if p, ok := r.peers[id]; ok {
		r.sendTo(p, msgType, data)
	}
}

func (r *Room) broadcast(msgType string, data interface{}) {
	r.broadcastExcept("", msgType, data)
}

func (r *Room) broadcastExcept(skip string, msgType string, data interface{}) {
	frame, err := Encode(msgType, data)
	if err != nil {
		log.Printf("[WS] Error marshaling %s: %v", msgType, err)
		return
	}
	for id, p := range r.peers {
		if id == skip {
			continue
		}
		if !p.Send(frame) {
			log.Printf("[WS] Send buffer full for peer %s in room %s, dropping %s", id, r.Code, msgType)
		}
	}
}
