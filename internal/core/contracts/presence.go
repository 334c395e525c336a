package contracts

import "context"

// Client is the minimal interface the presence layer needs to talk to one
// live connection. Engines never see the underlying websocket.
type Client interface {
	ID() string
	UserID() string
	Send(ctx context.Context, data []byte) error
	Close()
}

// OnlineChecker answers the one question the engines ask of presence:
// does this user hold a live connection on this instance right now.
type OnlineChecker interface {
	Online(userID string) bool
}

// Presence tracks which live connections belong to which user. In-memory,
// rebuilt from scratch on restart; one user may hold several connections.
type Presence interface {
	OnlineChecker
	Register(c Client)
	Unregister(c Client)
	ConnectionsFor(userID string) []Client
}
