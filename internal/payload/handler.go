package payload

import (
	"sync"

	"github.com/e7canasta/capture-engine/internal/media"
)

// Token identifies one subscription on a Handler. Unsubscribing a token
// that was never issued, or was already removed, is a no-op.
type Token uint64

// Handler is the event hub between a delivery sink and the engine's
// classification pipeline. Every event kind has its own subscription list;
// callbacks receive the originating handler so a consumer can discard
// events from a handler it no longer owns.
//
// Callbacks run synchronously on the delivering goroutine, in subscription
// order. Subscribe/Unsubscribe are safe against concurrent delivery.
type Handler struct {
	mu   sync.RWMutex
	next Token

	mediaProfile      map[Token]func(sender *Handler, profile *media.EncodingProfile)
	streamDescription map[Token]func(sender *Handler, desc media.VideoProperties)
	streamMetadata    map[Token]func(sender *Handler, metadata Metadata)
	streamSample      map[Token]func(sender *Handler, sample *Sample)
	streamPayload     map[Token]func(sender *Handler, payload *Payload)
}

// NewHandler creates an empty handler.
func NewHandler() *Handler {
	return &Handler{
		mediaProfile:      make(map[Token]func(*Handler, *media.EncodingProfile)),
		streamDescription: make(map[Token]func(*Handler, media.VideoProperties)),
		streamMetadata:    make(map[Token]func(*Handler, Metadata)),
		streamSample:      make(map[Token]func(*Handler, *Sample)),
		streamPayload:     make(map[Token]func(*Handler, *Payload)),
	}
}

func (h *Handler) issue() Token {
	h.next++
	return h.next
}

// OnMediaProfile subscribes to media-profile-negotiated events.
func (h *Handler) OnMediaProfile(fn func(sender *Handler, profile *media.EncodingProfile)) Token {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.issue()
	h.mediaProfile[t] = fn
	return t
}

// OnStreamDescription subscribes to stream-description-changed events.
func (h *Handler) OnStreamDescription(fn func(sender *Handler, desc media.VideoProperties)) Token {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.issue()
	h.streamDescription[t] = fn
	return t
}

// OnStreamMetadata subscribes to stream-metadata events.
func (h *Handler) OnStreamMetadata(fn func(sender *Handler, metadata Metadata)) Token {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.issue()
	h.streamMetadata[t] = fn
	return t
}

// OnStreamSample subscribes to raw stream-sample events.
func (h *Handler) OnStreamSample(fn func(sender *Handler, sample *Sample)) Token {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.issue()
	h.streamSample[t] = fn
	return t
}

// OnStreamPayload subscribes to stream-sample-with-payload events, the
// classification hot path.
func (h *Handler) OnStreamPayload(fn func(sender *Handler, payload *Payload)) Token {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.issue()
	h.streamPayload[t] = fn
	return t
}

// Unsubscribe removes the subscription identified by token, whichever event
// kind it belongs to.
func (h *Handler) Unsubscribe(token Token) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.mediaProfile, token)
	delete(h.streamDescription, token)
	delete(h.streamMetadata, token)
	delete(h.streamSample, token)
	delete(h.streamPayload, token)
}

// EmitMediaProfile delivers a media-profile-negotiated event.
func (h *Handler) EmitMediaProfile(profile *media.EncodingProfile) {
	h.mu.RLock()
	fns := make([]func(*Handler, *media.EncodingProfile), 0, len(h.mediaProfile))
	for _, fn := range h.mediaProfile {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(h, profile)
	}
}

// EmitStreamDescription delivers a stream-description-changed event.
func (h *Handler) EmitStreamDescription(desc media.VideoProperties) {
	h.mu.RLock()
	fns := make([]func(*Handler, media.VideoProperties), 0, len(h.streamDescription))
	for _, fn := range h.streamDescription {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(h, desc)
	}
}

// EmitStreamMetadata delivers a stream-metadata event.
func (h *Handler) EmitStreamMetadata(metadata Metadata) {
	h.mu.RLock()
	fns := make([]func(*Handler, Metadata), 0, len(h.streamMetadata))
	for _, fn := range h.streamMetadata {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(h, metadata)
	}
}

// EmitStreamSample delivers a raw stream-sample event.
func (h *Handler) EmitStreamSample(sample *Sample) {
	h.mu.RLock()
	fns := make([]func(*Handler, *Sample), 0, len(h.streamSample))
	for _, fn := range h.streamSample {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(h, sample)
	}
}

// EmitStreamPayload delivers a stream-sample-with-payload event.
func (h *Handler) EmitStreamPayload(payload *Payload) {
	h.mu.RLock()
	fns := make([]func(*Handler, *Payload), 0, len(h.streamPayload))
	for _, fn := range h.streamPayload {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(h, payload)
	}
}
