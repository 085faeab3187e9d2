package game

// GameStatus represents the session's start gate.
type GameStatus string

const (
	StatusWaiting    GameStatus = "WAITING"
	StatusInProgress GameStatus = "IN_PROGRESS"
)

// AuthorityMode selects which process simulates the balls for a session.
type AuthorityMode string

const (
	// AuthorityServer runs physics on the server from client tilt samples.
	AuthorityServer AuthorityMode = "server"
	// AuthorityClient lets each client simulate its own ball and relays the result.
	AuthorityClient AuthorityMode = "client"
)

// TiltMode selects how server-authoritative sessions turn tilt samples into velocities.
type TiltMode string

const (
	// TiltShared averages every known sample into one velocity applied to all balls.
	TiltShared TiltMode = "shared"
	// TiltOwn drives each ball from its owner's latest sample.
	TiltOwn TiltMode = "own"
)
