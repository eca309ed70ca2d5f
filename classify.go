package captureengine

import (
	"log/slog"

	"github.com/e7canasta/capture-engine/internal/media"
	"github.com/e7canasta/capture-engine/internal/payload"
	"github.com/e7canasta/capture-engine/internal/texture"
)

// SetPayloadHandler binds a payload handler to the engine, replacing any
// previous one. Re-binding always fully unsubscribes the prior handler's
// tokens first so no event is delivered twice. Nil unbinds.
//
// If a delivery sink is active, the handler is attached to it and delivery
// begins immediately.
func (e *Engine) SetPayloadHandler(h *PayloadHandler) {
	e.mu.Lock()
	e.resetPayloadHandlerLocked()
	e.handler = h
	if h != nil {
		e.subs = []payload.Token{
			h.OnMediaProfile(e.onMediaProfile),
			h.OnStreamDescription(e.onStreamDescription),
			h.OnStreamMetadata(e.onStreamMetadata),
			h.OnStreamSample(e.onStreamSample),
			h.OnStreamPayload(e.onStreamPayload),
		}
	}
	sink := e.sink
	e.mu.Unlock()

	if sink != nil {
		sink.SetHandler(h)
	}
}

// resetPayloadHandlerLocked unsubscribes every token held on the bound
// handler and clears it. Caller holds e.mu.
func (e *Engine) resetPayloadHandlerLocked() {
	if e.handler == nil {
		return
	}
	for _, t := range e.subs {
		e.handler.Unsubscribe(t)
	}
	e.subs = nil
	e.handler = nil
}

func (e *Engine) shuttingDown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isShutdown
}

func (e *Engine) onMediaProfile(_ *payload.Handler, profile *media.EncodingProfile) {
	if e.shuttingDown() {
		return
	}
	slog.Info("capture-engine: media profile negotiated",
		"has_audio", profile.HasAudio(),
		"has_video", profile.HasVideo(),
	)
}

func (e *Engine) onStreamDescription(_ *payload.Handler, _ media.VideoProperties) {
	if e.shuttingDown() {
		return
	}
}

func (e *Engine) onStreamMetadata(_ *payload.Handler, metadata payload.Metadata) {
	if e.shuttingDown() {
		return
	}

	if v, ok := metadata[payload.MarkerEndOfSegment].(bool); ok && v {
		slog.Info("capture-engine: end of segment")
	}
	if ts, ok := metadata[payload.MarkerTick].(int64); ok {
		slog.Debug("capture-engine: tick", "timestamp", ts)
	}
	if v, ok := metadata[payload.MarkerFlush].(bool); ok && v {
		slog.Debug("capture-engine: flush")
	}
}

func (e *Engine) onStreamSample(_ *payload.Handler, _ *payload.Sample) {
	if e.shuttingDown() {
		return
	}
}

// onStreamPayload is the classification hot path. Events are ignored once
// shutdown begins, when they originate from a handler the engine no longer
// owns, or when the payload is empty.
func (e *Engine) onStreamPayload(sender *payload.Handler, p *payload.Payload) {
	e.mu.Lock()

	if e.isShutdown || sender != e.handler || p.Empty() {
		e.mu.Unlock()
		return
	}

	var notify *State
	switch p.Sample.MajorType() {
	case payload.MajorAudio:
		notify = e.classifyAudioLocked(p)
	case payload.MajorVideo:
		notify = e.classifyVideoLocked(p)
	}

	cb := e.callback
	e.mu.Unlock()

	if notify != nil && cb != nil {
		cb(*notify)
	}
}

// classifyAudioLocked copies the sample into the audio destination buffer,
// allocating it exactly once per session, sized from the first observed
// sample's total length. Caller holds e.mu.
func (e *Engine) classifyAudioLocked(p *payload.Payload) *State {
	sample := p.Sample

	if e.audioBuf == nil {
		e.audioBuf = make([]byte, sample.TotalLength())
		slog.Debug("capture-engine: audio buffer allocated", "bytes", len(e.audioBuf))
	}

	copy(e.audioBuf, sample.Data)
	e.audioFrames.Add(1)

	return &State{Kind: StatePreviewAudioFrame}
}

// classifyVideoLocked copies the sample into the shared texture, recreating
// it when the frame dimensions changed, and recomputes transforms when a
// host coordinate system is set. A notification is returned only when the
// frame actually changed. Caller holds e.mu.
func (e *Engine) classifyVideoLocked(p *payload.Payload) *State {
	if p.Video == nil {
		return nil
	}

	width, height := p.Video.Width, p.Video.Height
	changed := false

	if !e.tex.Matches(width, height) {
		if err := e.ensureDeviceResourcesLocked(); err != nil {
			slog.Warn("capture-engine: device resources for frame", "error", err)
			return nil
		}

		hostDevice, ok := e.provider.Device()
		if !ok {
			return nil
		}

		tex, err := texture.Create(hostDevice, e.resources.Manager, width, height)
		if err != nil {
			slog.Warn("capture-engine: recreate shared texture", "error", err)
			return nil
		}

		if e.tex != nil {
			e.tex.Reset()
		}
		e.tex = tex
		changed = true
	}

	if err := e.tex.CopyFrom(p.Sample.Data); err != nil {
		slog.Warn("capture-engine: copy video sample", "error", err)
		return nil
	}

	notify := &State{
		Kind:    StatePreviewVideoFrame,
		Width:   e.tex.Desc().Width,
		Height:  e.tex.Desc().Height,
		Texture: e.tex.Handle(),
	}

	if e.coordSys != nil {
		if err := e.tex.UpdateTransforms(e.coordSys); err == nil {
			notify.CameraToWorld = e.tex.CameraToWorld
			notify.Projection = e.tex.Projection
			changed = true
		} else {
			slog.Debug("capture-engine: transform recompute skipped", "error", err)
		}
	}

	e.videoFrames.Add(1)

	if !changed {
		return nil
	}
	return notify
}
