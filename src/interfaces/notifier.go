package interfaces

// -----------------------------------------------------------------------------
// INotifier pushes text notifications to every live subscriber.
// -----------------------------------------------------------------------------

//go:generate mockgen -source notifier.go -destination=mock/notifier_mock.go -package=mock
type INotifier interface {
	// Broadcast delivers message to all registered subscribers and returns how
	// many accepted it. Per-subscriber failures are handled by the implementation.
	Broadcast(message string) int
}
