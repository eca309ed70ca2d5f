package payload_test

import (
	"testing"
	"time"

	"github.com/e7canasta/capture-engine/internal/media"
	"github.com/e7canasta/capture-engine/internal/payload"
)

func TestHandler_SubscribeAndEmit(t *testing.T) {
	h := payload.NewHandler()

	var samples, payloads int
	h.OnStreamSample(func(sender *payload.Handler, s *payload.Sample) {
		if sender != h {
			t.Error("sample event carries wrong sender")
		}
		samples++
	})
	h.OnStreamPayload(func(*payload.Handler, *payload.Payload) { payloads++ })

	sample := &payload.Sample{Data: []byte{1, 2, 3}}
	h.EmitStreamSample(sample)
	h.EmitStreamPayload(&payload.Payload{Sample: sample})

	if samples != 1 {
		t.Errorf("sample deliveries = %d, want 1", samples)
	}
	if payloads != 1 {
		t.Errorf("payload deliveries = %d, want 1", payloads)
	}
}

func TestHandler_TokensAreDistinct(t *testing.T) {
	h := payload.NewHandler()

	seen := make(map[payload.Token]bool)
	for i := 0; i < 5; i++ {
		tok := h.OnStreamPayload(func(*payload.Handler, *payload.Payload) {})
		if seen[tok] {
			t.Fatalf("token %d issued twice", tok)
		}
		seen[tok] = true
	}
	// Tokens are unique across event kinds too.
	tok := h.OnMediaProfile(func(*payload.Handler, *media.EncodingProfile) {})
	if seen[tok] {
		t.Errorf("token %d reused across event kinds", tok)
	}
}

func TestHandler_Unsubscribe(t *testing.T) {
	h := payload.NewHandler()

	var calls int
	tok := h.OnStreamMetadata(func(*payload.Handler, payload.Metadata) { calls++ })

	h.EmitStreamMetadata(payload.Metadata{payload.MarkerTick: int64(1)})
	h.Unsubscribe(tok)
	h.EmitStreamMetadata(payload.Metadata{payload.MarkerTick: int64(2)})

	if calls != 1 {
		t.Errorf("deliveries = %d, want 1 after unsubscribe", calls)
	}

	// Unsubscribing an unknown or stale token is a no-op.
	h.Unsubscribe(tok)
	h.Unsubscribe(payload.Token(9999))
}

func TestSample_MajorType(t *testing.T) {
	tests := []struct {
		name   string
		sample *payload.Sample
		want   payload.MajorType
	}{
		{name: "nil sample", sample: nil, want: payload.MajorUnknown},
		{name: "no properties", sample: &payload.Sample{}, want: payload.MajorUnknown},
		{
			name:   "video",
			sample: &payload.Sample{Properties: map[string]any{payload.PropMajorType: payload.MajorVideo}},
			want:   payload.MajorVideo,
		},
		{
			name:   "wrong property type",
			sample: &payload.Sample{Properties: map[string]any{payload.PropMajorType: "video"}},
			want:   payload.MajorUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sample.MajorType(); got != tt.want {
				t.Errorf("MajorType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPayload_Empty(t *testing.T) {
	var nilPayload *payload.Payload
	if !nilPayload.Empty() {
		t.Error("nil payload must be empty")
	}
	if !(&payload.Payload{}).Empty() {
		t.Error("payload without sample must be empty")
	}
	if !(&payload.Payload{Sample: &payload.Sample{}}).Empty() {
		t.Error("payload with zero-length sample must be empty")
	}
	if (&payload.Payload{Sample: &payload.Sample{Data: []byte{0}}}).Empty() {
		t.Error("payload with data must not be empty")
	}
}

func TestSink_AttachEmitsMediaProfile(t *testing.T) {
	profile := media.NewEncodingProfile(media.QualityHD720p)
	sink := payload.NewSink(profile)

	h := payload.NewHandler()
	var negotiated *media.EncodingProfile
	h.OnMediaProfile(func(_ *payload.Handler, p *media.EncodingProfile) { negotiated = p })

	sink.SetHandler(h)

	if negotiated != profile {
		t.Error("attaching a handler must deliver the sink's profile")
	}
	if sink.Handler() != h {
		t.Error("Handler() does not return the attached handler")
	}

	sink.SetHandler(nil)
	if sink.Handler() != nil {
		t.Error("Handler() != nil after detach")
	}
}

func TestSink_DeliverSampleClassifies(t *testing.T) {
	sink := payload.NewSink(media.NewEncodingProfile(media.QualityHD720p))
	h := payload.NewHandler()

	var got []*payload.Payload
	h.OnStreamPayload(func(_ *payload.Handler, p *payload.Payload) { got = append(got, p) })
	var sampleEvents int
	h.OnStreamSample(func(*payload.Handler, *payload.Sample) { sampleEvents++ })

	sink.SetHandler(h)

	video := &media.VideoProperties{Subtype: media.SubtypeNV12, Width: 1280, Height: 720}
	audio := &media.AudioProperties{Subtype: media.SubtypeFloat, SampleRate: 48000}

	sink.DeliverSample([]byte{1}, 10*time.Millisecond, video, nil)
	sink.DeliverSample([]byte{2}, 20*time.Millisecond, nil, audio)
	sink.DeliverSample([]byte{3}, 30*time.Millisecond, nil, nil)

	if len(got) != 3 {
		t.Fatalf("payload deliveries = %d, want 3", len(got))
	}
	if sampleEvents != 3 {
		t.Errorf("sample deliveries = %d, want 3", sampleEvents)
	}

	if got[0].Sample.MajorType() != payload.MajorVideo || got[0].Video != video {
		t.Errorf("first payload not classified as video: %+v", got[0])
	}
	if got[1].Sample.MajorType() != payload.MajorAudio || got[1].Audio != audio {
		t.Errorf("second payload not classified as audio: %+v", got[1])
	}
	if got[2].Sample.MajorType() != payload.MajorUnknown {
		t.Errorf("bare payload classified as %v, want unknown", got[2].Sample.MajorType())
	}

	if got[0].TraceID == "" || got[0].TraceID == got[1].TraceID {
		t.Error("payloads must carry distinct trace ids")
	}
}

func TestSink_NoHandlerDropsSilently(t *testing.T) {
	sink := payload.NewSink(media.NewEncodingProfile(media.QualityHD720p))

	// Must not panic without a handler.
	sink.DeliverSample([]byte{1}, 0, nil, nil)
	sink.DeliverMarker(map[string]any{payload.MarkerFlush: true})
}

func TestSink_DeliverMarker(t *testing.T) {
	sink := payload.NewSink(media.NewEncodingProfile(media.QualityHD720p))
	h := payload.NewHandler()

	var got payload.Metadata
	h.OnStreamMetadata(func(_ *payload.Handler, m payload.Metadata) { got = m })
	sink.SetHandler(h)

	sink.DeliverMarker(map[string]any{payload.MarkerEndOfSegment: true})

	if v, ok := got[payload.MarkerEndOfSegment].(bool); !ok || !v {
		t.Errorf("metadata = %v, want end-of-segment marker", got)
	}
}
