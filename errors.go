package captureengine

import "errors"

// Public API errors.
var (
	// ErrOperationInFlight is returned synchronously when StartPreview or
	// StopPreview is requested while either operation slot is occupied.
	// No state changes.
	ErrOperationInFlight = errors.New("capture-engine: operation already in flight")

	// ErrUnexpectedState indicates a required collaborator (device provider,
	// active session) was missing when needed.
	ErrUnexpectedState = errors.New("capture-engine: unexpected state")

	// ErrEngineShutdown is returned when an operation is requested after
	// Shutdown has begun. The shutdown flag never clears.
	ErrEngineShutdown = errors.New("capture-engine: engine is shut down")

	// ErrPlatformFailure wraps an underlying capture substrate failure.
	// Synchronous setup paths return it directly; once inside the async
	// phase it collapses into the generic failure notification.
	ErrPlatformFailure = errors.New("capture-engine: platform failure")
)
