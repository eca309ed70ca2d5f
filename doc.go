// Package captureengine exposes a live camera stream as GPU-accessible
// frames and audio buffers to a host application, with an optional
// compositing overlay applied before delivery.
//
// The core is a capture-session orchestrator: an asynchronous state machine
// that drives session start/stop as ordered step sequences on background
// goroutines, under a single lock and a strict one-operation-at-a-time
// discipline. Shutdown serializes against in-flight sequences through
// completion signals that are pre-set when idle, so resource release never
// races a sequence still touching shared state.
//
// # Quick Start
//
//	engine, err := captureengine.Create(hostDevices, func(s captureengine.State) {
//	    switch s.Kind {
//	    case captureengine.StatePreviewVideoFrame:
//	        bindTexture(s.Texture, s.Width, s.Height)
//	    case captureengine.StateFailed:
//	        log.Printf("capture failed: %v", s.Err)
//	    }
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Shutdown()
//
//	engine.SetPayloadHandler(captureengine.NewPayloadHandler())
//
//	if err := engine.StartPreview(1280, 720, true, true); err != nil {
//	    log.Fatal(err)
//	}
//	// StatePreviewStarted arrives asynchronously; frames follow.
//
// # Lifecycle
//
// StartPreview and StopPreview return immediately after claiming their
// operation slot; completion surfaces through the state callback
// (StatePreviewStarted / StatePreviewStopped, or StateFailed). A request
// made while either slot is occupied fails synchronously with
// ErrOperationInFlight and changes nothing.
//
// Shutdown blocks until fully torn down and is idempotent: it waits out any
// in-flight start, stops an active session, waits out the stop, then
// releases device resources and closes the substrate.
//
// # Frame delivery
//
// Delivered video samples are copied into a shared GPU texture that is
// reallocated only when the frame dimensions change. A
// StatePreviewVideoFrame notification fires only when the frame actually
// changed: the texture was (re)created, or the camera transforms were
// successfully recomputed against the host coordinate system. Audio samples
// overwrite a single destination buffer allocated once per session.
//
// # Thread Safety
//
// All public methods are safe for concurrent use. Callbacks fire from
// background goroutines.
package captureengine
