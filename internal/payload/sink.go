package payload

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/capture-engine/internal/media"
)

// Sink is the custom delivery sink the engine binds a started session to.
// It is bound to one finished encoding profile for its lifetime and forwards
// everything the substrate produces to the currently attached handler.
//
// A sink with no handler drops deliveries silently; attaching a handler
// starts delivery without renegotiation.
type Sink struct {
	mu      sync.RWMutex
	profile *media.EncodingProfile
	handler *Handler
}

// NewSink creates a sink bound to a finished encoding profile.
func NewSink(profile *media.EncodingProfile) *Sink {
	return &Sink{profile: profile}
}

// Profile returns the encoding profile the sink was built with.
func (s *Sink) Profile() *media.EncodingProfile {
	return s.profile
}

// Handler returns the currently attached handler, or nil.
func (s *Sink) Handler() *Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// SetHandler attaches a handler (nil detaches). The newly attached handler
// immediately receives the sink's media profile, mirroring the substrate's
// profile-negotiated notification.
func (s *Sink) SetHandler(h *Handler) {
	s.mu.Lock()
	s.handler = h
	profile := s.profile
	s.mu.Unlock()

	if h != nil {
		h.EmitMediaProfile(profile)
	}
}

// DeliverSample classifies one raw sample against the sink's profile and
// forwards it as a payload. Implements media.SampleSink.
func (s *Sink) DeliverSample(data []byte, pts time.Duration, video *media.VideoProperties, audio *media.AudioProperties) {
	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()
	if h == nil {
		return
	}

	major := MajorUnknown
	switch {
	case video != nil:
		major = MajorVideo
	case audio != nil:
		major = MajorAudio
	}

	sample := &Sample{
		Data:      data,
		Timestamp: pts,
		Properties: map[string]any{
			PropMajorType: major,
		},
	}

	h.EmitStreamSample(sample)
	h.EmitStreamPayload(&Payload{
		TraceID: uuid.New().String(),
		Sample:  sample,
		Video:   video,
		Audio:   audio,
	})
}

// DeliverMarker forwards a stream marker (end-of-segment, tick, flush) as a
// stream-metadata event. Implements media.SampleSink.
func (s *Sink) DeliverMarker(marker map[string]any) {
	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()
	if h == nil {
		return
	}
	h.EmitStreamMetadata(Metadata(marker))
}
