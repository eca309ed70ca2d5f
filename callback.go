package captureengine

// StateKind tags a host notification.
type StateKind int

const (
	// StatePreviewStarted reports a completed start sequence.
	StatePreviewStarted StateKind = iota
	// StatePreviewStopped reports a completed stop sequence.
	StatePreviewStopped
	// StatePreviewAudioFrame reports a new audio sample in the audio
	// destination buffer.
	StatePreviewAudioFrame
	// StatePreviewVideoFrame reports a changed video frame: new dimensions,
	// texture handle or transforms.
	StatePreviewVideoFrame
	// StateFailed is the generic failure signal for asynchronous failures.
	StateFailed
)

// String returns a human-readable string representation of the kind.
func (k StateKind) String() string {
	switch k {
	case StatePreviewStarted:
		return "preview-started"
	case StatePreviewStopped:
		return "preview-stopped"
	case StatePreviewAudioFrame:
		return "preview-audio-frame"
	case StatePreviewVideoFrame:
		return "preview-video-frame"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the tagged notification delivered to the host. Frame fields are
// populated only for StatePreviewVideoFrame; Err only for StateFailed.
type State struct {
	Kind StateKind

	Width   uint32
	Height  uint32
	Texture uintptr

	CameraToWorld Matrix4
	Projection    Matrix4

	Err error
}

// StateCallback delivers tagged state notifications to the host.
//
// Callbacks fire from the engine's background goroutines; the host must not
// call back into the engine's lifecycle operations from inside one.
type StateCallback func(State)
