package captureengine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/e7canasta/capture-engine/internal/device"
	"github.com/e7canasta/capture-engine/internal/gpu"
	"github.com/e7canasta/capture-engine/internal/gstcap"
	"github.com/e7canasta/capture-engine/internal/media"
	"github.com/e7canasta/capture-engine/internal/payload"
	"github.com/e7canasta/capture-engine/internal/texture"
)

// operation is one in-flight asynchronous start or stop. A slot holds it
// from the moment the request is accepted until its completion continuation
// runs; the two slots are mutually exclusive.
type operation struct {
	id   string
	kind string
}

// Engine is the capture session orchestrator.
//
// One mutex guards all mutable session state: the operation slots, the
// bound payload handler, the coordinate-system reference and the shutdown
// flag included. Start and stop run as ordered step sequences on background
// goroutines; completion signals are channels closed when the corresponding
// operation is idle, so waiting on an idle operation returns immediately.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	platform media.Platform
	provider gpu.Provider
	callback StateCallback

	isShutdown bool

	startOp *operation
	stopOp  *operation

	// Completion signals, pre-set (closed) when idle.
	startDone chan struct{}
	stopDone  chan struct{}

	resources    *device.Resources
	session      media.Session
	initSettings *media.InitSettings
	sink         *payload.Sink

	handler *payload.Handler
	subs    []payload.Token

	fxVideo   media.Effect
	fxPreview media.Effect
	fxAudio   media.Effect

	audioBuf []byte
	tex      *texture.SharedTexture
	coordSys gpu.CoordinateSystem

	sessionID string

	videoFrames atomic.Uint64
	audioFrames atomic.Uint64
	lastErr     error
}

// EngineStats is a snapshot of delivery counters.
type EngineStats struct {
	SessionID   string
	VideoFrames uint64
	AudioFrames uint64
}

// Option configures an Engine at creation.
type Option func(*Engine)

// WithConfig replaces the default engine configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithPlatform replaces the default GStreamer capture substrate. Used by
// tests and by hosts embedding their own substrate.
func WithPlatform(p Platform) Option {
	return func(e *Engine) { e.platform = p }
}

func signaledChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Create builds an engine bound to the host's device provider and state
// callback. The callback may be nil; notifications are then dropped.
func Create(provider DeviceProvider, callback StateCallback, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil device provider", ErrUnexpectedState)
	}

	e := &Engine{
		cfg:       DefaultConfig(),
		provider:  provider,
		callback:  callback,
		startDone: signaledChan(),
		stopDone:  signaledChan(),
		sessionID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if e.platform == nil {
		e.platform = gstcap.New()
	}

	slog.Info("capture-engine: engine created",
		"session_id", e.sessionID,
		"role", e.cfg.Role.String(),
	)

	return e, nil
}

// StartPreview begins the asynchronous start sequence and returns
// immediately. Completion surfaces through the state callback as
// StatePreviewStarted, or StateFailed on an asynchronous error.
//
// Fails synchronously with ErrOperationInFlight while either operation slot
// is occupied, and with ErrUnexpectedState / ErrPlatformFailure when device
// resources cannot be created.
func (e *Engine) StartPreview(width, height uint32, enableAudio, enableMrc bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isShutdown {
		return ErrEngineShutdown
	}
	if e.startOp != nil || e.stopOp != nil {
		return ErrOperationInFlight
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("capture-engine: invalid dimensions %dx%d", width, height)
	}

	// Reset the completion signal before anything can fail; re-signal on a
	// synchronous failure so shutdown never waits on a sequence that was
	// never launched.
	e.startDone = make(chan struct{})

	if err := e.ensureDeviceResourcesLocked(); err != nil {
		close(e.startDone)
		return err
	}

	op := &operation{id: uuid.New().String(), kind: "start-preview"}
	e.startOp = op

	slog.Debug("capture-engine: start preview accepted",
		"op", op.id,
		"width", width,
		"height", height,
		"audio", enableAudio,
		"mrc", enableMrc,
	)

	go e.runStart(op, width, height, enableAudio, enableMrc)

	return nil
}

func (e *Engine) runStart(op *operation, width, height uint32, enableAudio, enableMrc bool) {
	err := e.startSequence(width, height, enableAudio, enableMrc)

	e.mu.Lock()
	e.startOp = nil
	if err != nil {
		e.lastErr = fmt.Errorf("capture-engine: start preview: %w", err)
	}
	done := e.startDone
	cb := e.callback
	e.mu.Unlock()

	close(done)

	if err != nil {
		slog.Error("capture-engine: start preview failed", "op", op.id, "error", err)
		e.notifyFailure(cb)
		return
	}

	slog.Info("capture-engine: preview started", "op", op.id, "width", width, "height", height)
	if cb != nil {
		cb(State{Kind: StatePreviewStarted})
	}
}

// StopPreview begins the asynchronous stop sequence and returns
// immediately. Completion surfaces through the state callback as
// StatePreviewStopped, or StateFailed on an asynchronous error.
//
// Fails synchronously with ErrOperationInFlight while either operation slot
// is occupied.
func (e *Engine) StopPreview() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.startOp != nil || e.stopOp != nil {
		return ErrOperationInFlight
	}

	e.stopDone = make(chan struct{})

	op := &operation{id: uuid.New().String(), kind: "stop-preview"}
	e.stopOp = op

	slog.Debug("capture-engine: stop preview accepted", "op", op.id)

	go e.runStop(op)

	return nil
}

func (e *Engine) runStop(op *operation) {
	err := e.stopSequence()

	e.mu.Lock()
	e.stopOp = nil
	if err != nil {
		e.lastErr = fmt.Errorf("capture-engine: stop preview: %w", err)
	}
	done := e.stopDone
	cb := e.callback
	e.mu.Unlock()

	close(done)

	if err != nil {
		slog.Error("capture-engine: stop preview failed", "op", op.id, "error", err)
		e.notifyFailure(cb)
		return
	}

	slog.Info("capture-engine: preview stopped", "op", op.id)
	if cb != nil {
		cb(State{Kind: StatePreviewStopped})
	}
}

// Shutdown tears the engine down and blocks until done. Idempotent: the
// shutdown flag is set once under lock and never clears, so later calls
// return immediately.
//
// Order matters: wait out any in-flight start, stop an active session, wait
// out the stop, then release device resources and close the substrate.
// Resource release must never race a sequence still touching shared state.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.isShutdown {
		e.mu.Unlock()
		return
	}
	e.isShutdown = true
	startDone := e.startDone
	e.mu.Unlock()

	slog.Info("capture-engine: shutting down", "session_id", e.sessionID)

	// An in-flight start sequence still owns the session.
	<-startDone

	e.mu.Lock()
	active := e.session != nil
	e.mu.Unlock()

	if active {
		if err := e.StopPreview(); err != nil && !errors.Is(err, ErrOperationInFlight) {
			slog.Warn("capture-engine: shutdown stop preview", "error", err)
		}
	}

	e.mu.Lock()
	stopDone := e.stopDone
	e.mu.Unlock()

	<-stopDone

	e.mu.Lock()
	e.releaseDeviceResourcesLocked()
	e.mu.Unlock()

	if err := e.platform.Close(); err != nil {
		slog.Warn("capture-engine: close platform", "error", err)
	}

	slog.Info("capture-engine: shut down", "session_id", e.sessionID)
}

// ensureDeviceResourcesLocked creates the derived capture device and its
// manager binding if absent. No-op when both are already present; nothing
// is cached on failure. Caller holds e.mu.
func (e *Engine) ensureDeviceResourcesLocked() error {
	if e.resources != nil && e.resources.Device != nil && e.resources.Manager != nil {
		return nil
	}

	res, err := device.Create(e.provider)
	if err != nil {
		if errors.Is(err, device.ErrProviderGone) {
			return fmt.Errorf("%w: device provider unavailable", ErrUnexpectedState)
		}
		return fmt.Errorf("%w: %w", ErrPlatformFailure, err)
	}

	e.resources = res
	return nil
}

// releaseDeviceResourcesLocked releases in dependency order: audio buffer,
// shared texture, then device-manager and device. Idempotent. Caller holds
// e.mu.
func (e *Engine) releaseDeviceResourcesLocked() {
	e.audioBuf = nil

	if e.tex != nil {
		e.tex.Reset()
		e.tex = nil
	}

	if e.resources != nil {
		e.resources.Release()
		e.resources = nil
	}
}

func (e *Engine) notifyFailure(cb StateCallback) {
	if cb != nil {
		cb(State{Kind: StateFailed, Err: ErrPlatformFailure})
	}
}

// PayloadHandler returns the currently bound payload handler, or nil.
func (e *Engine) PayloadHandler() *PayloadHandler {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handler
}

// DeliverySink returns the active delivery sink, or nil when no session is
// running.
func (e *Engine) DeliverySink() *payload.Sink {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sink
}

// AppCoordinateSystem returns the host coordinate-system reference, or nil.
func (e *Engine) AppCoordinateSystem() CoordinateSystem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coordSys
}

// SetAppCoordinateSystem sets the host coordinate-system reference used to
// recompute camera transforms per frame. Nil disables recomputation.
func (e *Engine) SetAppCoordinateSystem(cs CoordinateSystem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.coordSys = cs
}

// LastError returns the originating cause of the most recent asynchronous
// failure. The state callback only carries the generic failure signal.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Stats returns a snapshot of delivery counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		SessionID:   e.sessionID,
		VideoFrames: e.videoFrames.Load(),
		AudioFrames: e.audioFrames.Load(),
	}
}
