package interfaces

import "context"

// -----------------------------------------------------------------------------
// IServer is the transport layer lifecycle.
// -----------------------------------------------------------------------------

type IServer interface {
	// Start blocks serving until the server is stopped.
	Start() error

	// Stop shuts the server down gracefully.
	Stop(ctx context.Context) error
}
