package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiltmaze/backend/internal/config"
)

func newTestSession(t *testing.T, mutate func(*Settings)) *Session {
	t.Helper()
	s := DefaultSettings()
	s.Seed = 7
	if mutate != nil {
		mutate(&s)
	}
	return NewSession(s)
}

func connectAndJoin(t *testing.T, sess *Session, ids ...string) {
	t.Helper()
	for _, id := range ids {
		sess.Connect(id)
		_, err := sess.Join(id, JoinRequest{})
		require.NoError(t, err)
	}
}

func TestJoinAssignsSlotsInOrder(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a", "b", "c", "d")

	roster := sess.Roster()
	require.Len(t, roster, 4)

	want := []struct {
		id    string
		x, y  float64
		color string
	}{
		{"a", 20, 20, "blue"},
		{"b", 580, 20, "red"},
		{"c", 20, 580, "yellow"},
		{"d", 300, 20, "green"},
	}
	for i, w := range want {
		assert.Equal(t, w.id, roster[i].ID)
		assert.Equal(t, w.x, roster[i].X)
		assert.Equal(t, w.y, roster[i].Y)
		assert.Equal(t, w.color, roster[i].Color)
		assert.Equal(t, DefaultBallRadius, roster[i].Radius)
	}
}

func TestJoinRosterBound(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a", "b", "c", "d")
	before := sess.Roster()

	sess.Connect("e")
	ball, err := sess.Join("e", JoinRequest{Name: "late"})

	assert.ErrorIs(t, err, ErrRosterFull)
	assert.Nil(t, ball)
	assert.Equal(t, before, sess.Roster())
}

func TestJoinHonoursFreeColorPreference(t *testing.T) {
	sess := newTestSession(t, nil)
	sess.Connect("a")
	sess.Connect("b")

	a, err := sess.Join("a", JoinRequest{Color: "yellow"})
	require.NoError(t, err)
	assert.Equal(t, "yellow", a.Color)
	assert.Equal(t, 2, a.Slot)

	b, err := sess.Join("b", JoinRequest{Color: "yellow"})
	require.NoError(t, err)
	assert.Equal(t, "blue", b.Color, "taken color falls back to the lowest free slot")
}

func TestJoinTwiceReturnsSameBall(t *testing.T) {
	sess := newTestSession(t, nil)
	sess.Connect("a")
	first, err := sess.Join("a", JoinRequest{Name: "Ann"})
	require.NoError(t, err)

	second, err := sess.Join("a", JoinRequest{Name: "Other"})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, sess.Roster(), 1)
}

func TestJoinRequiresConnection(t *testing.T) {
	sess := newTestSession(t, nil)
	_, err := sess.Join("ghost", JoinRequest{})
	assert.ErrorIs(t, err, ErrUnknownIdentity)
}

func TestJoinGatedAfterStart(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a")
	require.NoError(t, sess.Start("a"))

	sess.Connect("b")
	_, err := sess.Join("b", JoinRequest{})
	assert.ErrorIs(t, err, ErrGameStarted)
	assert.Len(t, sess.Roster(), 1)

	open := newTestSession(t, func(s *Settings) { s.JoinAfterStart = true })
	connectAndJoin(t, open, "a")
	require.NoError(t, open.Start("a"))
	open.Connect("b")
	_, err = open.Join("b", JoinRequest{})
	assert.NoError(t, err)
}

func TestStartPermissions(t *testing.T) {
	sess := newTestSession(t, func(s *Settings) { s.HostOnlyStart = true })
	sess.Connect("a")
	sess.Connect("b")

	assert.ErrorIs(t, sess.Start("ghost"), ErrUnknownIdentity)
	assert.ErrorIs(t, sess.Start("b"), ErrNotHost)
	assert.False(t, sess.Started())

	require.NoError(t, sess.Start("a"))
	assert.True(t, sess.Started())
	assert.Equal(t, StatusInProgress, sess.Status())
	assert.False(t, sess.RoundStarted().IsZero())

	// anyone may start when the option is off
	open := newTestSession(t, nil)
	open.Connect("a")
	open.Connect("b")
	assert.NoError(t, open.Start("b"))
}

func TestHostHandover(t *testing.T) {
	sess := newTestSession(t, nil)
	assert.True(t, sess.Connect("a"))
	assert.False(t, sess.Connect("b"))
	assert.Equal(t, "a", sess.Host())

	removed, hostChanged := sess.Disconnect("b")
	assert.True(t, removed)
	assert.False(t, hostChanged)

	sess.Connect("c")
	removed, hostChanged = sess.Disconnect("a")
	assert.True(t, removed)
	assert.True(t, hostChanged)
	assert.Equal(t, "c", sess.Host())

	_, hostChanged = sess.Disconnect("c")
	assert.False(t, hostChanged, "no one left to take over")
	assert.Equal(t, "", sess.Host())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a", "b")

	removed, _ := sess.Disconnect("a")
	assert.True(t, removed)
	afterFirst := sess.Roster()

	removed, hostChanged := sess.Disconnect("a")
	assert.False(t, removed)
	assert.False(t, hostChanged)
	assert.Equal(t, afterFirst, sess.Roster())
	assert.Len(t, afterFirst, 1)
	assert.Equal(t, "b", afterFirst[0].ID)
}

func TestDisconnectFreesSlot(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a", "b")
	sess.Disconnect("a")

	sess.Connect("c")
	c, err := sess.Join("c", JoinRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Slot)
	assert.Equal(t, "blue", c.Color)
}

func TestStepRequiresStart(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a")
	require.NoError(t, sess.SetOrientation("a", Orientation{Gamma: 30}))

	res := sess.Step()
	assert.Empty(t, res.Winners)
	assert.Equal(t, 0, sess.Tick())
	b, _ := sess.Ball("a")
	assert.Equal(t, 20.0, b.X)
}

func TestStepSharedTiltMovesEveryBall(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a", "b")
	require.NoError(t, sess.Start("a"))
	require.NoError(t, sess.SetOrientation("a", Orientation{Gamma: 30}))

	sess.Step()

	a, _ := sess.Ball("a")
	b, _ := sess.Ball("b")
	assert.InDelta(t, 26, a.X, 1e-9)
	assert.InDelta(t, 586, b.X, 1e-9)
	assert.Equal(t, 1, sess.Tick())
}

func TestStepSharedTiltAverages(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a", "b")
	require.NoError(t, sess.Start("a"))
	require.NoError(t, sess.SetOrientation("a", Orientation{Gamma: 30}))
	require.NoError(t, sess.SetOrientation("b", Orientation{Gamma: -30}))

	assert.Equal(t, Vec2{}, sess.SharedVelocity())
	sess.Step()

	a, _ := sess.Ball("a")
	assert.Equal(t, 20.0, a.X)
	assert.Equal(t, 20.0, a.Y)
}

func TestStepOwnTilt(t *testing.T) {
	sess := newTestSession(t, func(s *Settings) { s.TiltMode = TiltOwn })
	connectAndJoin(t, sess, "a", "b")
	require.NoError(t, sess.Start("a"))
	require.NoError(t, sess.SetOrientation("a", Orientation{Gamma: 30}))

	sess.Step()

	a, _ := sess.Ball("a")
	b, _ := sess.Ball("b")
	assert.InDelta(t, 26, a.X, 1e-9)
	assert.Equal(t, 580.0, b.X, "ball without a sample stays put")
}

func TestStepReportsWinnerOnce(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a")
	require.NoError(t, sess.Start("a"))
	b, _ := sess.Ball("a")
	b.X, b.Y = sess.Hole().X, sess.Hole().Y

	first := sess.Step()
	second := sess.Step()

	require.Len(t, first.Winners, 1)
	assert.Equal(t, "a", first.Winners[0].ID)
	assert.True(t, first.Winners[0].IsWinner)
	assert.Empty(t, second.Winners)
}

func TestModeMismatch(t *testing.T) {
	server := newTestSession(t, nil)
	connectAndJoin(t, server, "a")
	_, err := server.ApplyBallState(Ball{ID: "a", X: 100, Y: 100})
	assert.ErrorIs(t, err, ErrModeMismatch)

	client := newTestSession(t, func(s *Settings) { s.Mode = AuthorityClient })
	connectAndJoin(t, client, "a")
	assert.ErrorIs(t, client.SetOrientation("a", Orientation{Gamma: 10}), ErrModeMismatch)
	assert.ErrorIs(t, client.SetVelocitySample("a", Vec2{X: 1}), ErrModeMismatch)

	require.NoError(t, client.Start("a"))
	client.Step()
	assert.Equal(t, 0, client.Tick(), "client-authoritative rooms never tick on the server")
}

func TestApplyBallStateClampsAndMirrors(t *testing.T) {
	sess := newTestSession(t, func(s *Settings) { s.Mode = AuthorityClient })
	connectAndJoin(t, sess, "a")
	require.NoError(t, sess.Start("a"))

	won, err := sess.ApplyBallState(Ball{ID: "a", X: -50, Y: 100, DX: 20, DY: -1, Color: "pink", IsWinner: true})
	require.NoError(t, err)
	assert.False(t, won, "claimed win is ignored")

	b, _ := sess.Ball("a")
	assert.Equal(t, 10.0, b.X)
	assert.Equal(t, 100.0, b.Y)
	assert.Equal(t, 6.0, b.DX)
	assert.Equal(t, -1.0, b.DY)
	assert.Equal(t, "blue", b.Color)
	assert.False(t, b.IsWinner)
}

func TestApplyBallStateUnknownBall(t *testing.T) {
	sess := newTestSession(t, func(s *Settings) { s.Mode = AuthorityClient })
	connectAndJoin(t, sess, "a")
	require.NoError(t, sess.Start("a"))
	before := sess.Roster()

	_, err := sess.ApplyBallState(Ball{ID: "ghost", X: 100, Y: 100})

	assert.ErrorIs(t, err, ErrUnknownIdentity)
	assert.Equal(t, before, sess.Roster())
}

func TestApplyBallStateDetectsGoalOnce(t *testing.T) {
	sess := newTestSession(t, func(s *Settings) { s.Mode = AuthorityClient })
	connectAndJoin(t, sess, "a")
	require.NoError(t, sess.Start("a"))
	h := sess.Hole()

	won, err := sess.ApplyBallState(Ball{ID: "a", X: h.X, Y: h.Y})
	require.NoError(t, err)
	assert.True(t, won)

	won, err = sess.ApplyBallState(Ball{ID: "a", X: h.X + 1, Y: h.Y})
	require.NoError(t, err)
	assert.False(t, won)
}

func TestApplyBallStateBeforeStart(t *testing.T) {
	sess := newTestSession(t, func(s *Settings) { s.Mode = AuthorityClient })
	connectAndJoin(t, sess, "a")
	before := sess.Roster()
	h := sess.Hole()

	won, err := sess.ApplyBallState(Ball{ID: "a", X: h.X, Y: h.Y})

	assert.ErrorIs(t, err, ErrNotStarted)
	assert.False(t, won)
	assert.Equal(t, before, sess.Roster())
}

func TestResetRespawnsAndRegenerates(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a")
	require.NoError(t, sess.Start("a"))
	require.NoError(t, sess.SetOrientation("a", Orientation{Gamma: 30}))
	sess.Step()
	b, _ := sess.Ball("a")
	b.IsWinner = true
	seed := sess.MazeSeed()

	sess.Reset()

	assert.Equal(t, 20.0, b.X)
	assert.Equal(t, 20.0, b.Y)
	assert.Equal(t, Vec2{}, b.Velocity())
	assert.False(t, b.IsWinner)
	assert.Equal(t, 0, sess.Tick())
	assert.Equal(t, Vec2{}, sess.SharedVelocity())
	assert.NotEqual(t, seed, sess.MazeSeed())
	assert.True(t, sess.Started(), "reset keeps the gate open")
}

func TestResetKeepsMazeWhenConfigured(t *testing.T) {
	sess := newTestSession(t, func(s *Settings) { s.RegenerateOnReset = false })
	grid := sess.Grid()

	sess.Reset()

	assert.Same(t, grid, sess.Grid())
}

func TestSameSeedSameMaze(t *testing.T) {
	a := newTestSession(t, nil)
	b := newTestSession(t, nil)

	assert.Equal(t, a.MazeSeed(), b.MazeSeed())
	assert.Equal(t, a.Grid().String(), b.Grid().String())
	assert.Equal(t, 224, a.Grid().RemovedWalls())
}

func TestDefaultHoleIsBottomRightCentre(t *testing.T) {
	sess := newTestSession(t, nil)
	h := sess.Hole()
	assert.Equal(t, 580.0, h.X)
	assert.Equal(t, 580.0, h.Y)
	assert.Equal(t, DefaultHoleRadius, h.Radius)
}

func TestRandomHoleAvoidsSpawnCells(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		sess := newTestSession(t, func(s *Settings) {
			s.RandomizeHole = true
			s.Seed = seed
		})
		h := sess.Hole()
		for _, slot := range sess.Settings().Slots {
			x, y := SpawnPoint(sess.Grid(), slot)
			assert.False(t, x == h.X && y == h.Y, "seed %d placed the hole on spawn %s", seed, slot.Color)
		}
	}
}

func TestSnapshotCopiesRoster(t *testing.T) {
	sess := newTestSession(t, nil)
	connectAndJoin(t, sess, "a")

	snap := sess.Snapshot()
	snap.Balls[0].X = 999

	b, _ := sess.Ball("a")
	assert.Equal(t, 20.0, b.X)
	assert.Equal(t, "a", snap.Host)
	assert.Equal(t, sess.MazeSeed(), snap.MazeSeed)
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := &config.Config{
		MazeCols:       0,
		MazeRows:       9,
		AuthorityMode:  "client",
		TiltMode:       "sideways",
		WallResponse:   "bounce",
		WinPolicy:      "overlap",
		MaxTiltDegrees: 45,
		MaxSpeed:       8,
	}

	s := SettingsFromConfig(cfg)

	assert.Equal(t, DefaultCols, s.Cols)
	assert.Equal(t, 9, s.Rows)
	assert.Equal(t, AuthorityClient, s.Mode)
	assert.Equal(t, TiltShared, s.TiltMode)
	assert.Equal(t, WallBounce, s.WallResponse)
	assert.Equal(t, WinOverlap, s.Win)
	assert.Equal(t, TiltMapper{MaxTiltDegrees: 45, MaxSpeed: 8}, s.Tilt)
	assert.Equal(t, DefaultSubsteps, s.Substeps)
	assert.Len(t, s.Slots, MaxPlayers)
	assert.Equal(t, SpawnSlot{Col: 0, Row: 8, Color: "yellow"}, s.Slots[2])
}

func TestRecorderWithoutBackends(t *testing.T) {
	rec := NewRecorder(nil, nil, nil)
	ctx := context.Background()

	assert.NoError(t, rec.SaveSnapshot(ctx, "abc", Snapshot{}))
	_, err := rec.LoadSnapshot(ctx, "abc")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	board, err := rec.Leaderboard(ctx, 10)
	assert.NoError(t, err)
	assert.Empty(t, board)
}
