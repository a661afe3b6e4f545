package obs

import "context"

// Client is one live connection to the encoder's control socket.
type Client interface {
	SetScene(ctx context.Context, name string) error
	StartStream(ctx context.Context) error
	StopStream(ctx context.Context) error
	Version(ctx context.Context) (string, error)
	Close() error
}

// Dialer opens a fresh encoder connection. The encoder gateway dials per task
// so a crashed encoder never leaves a wedged long-lived connection behind.
type Dialer func(ctx context.Context) (Client, error)
