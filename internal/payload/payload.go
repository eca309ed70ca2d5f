// Package payload models the sample stream a delivery sink hands the
// engine: payloads (sample plus encoding metadata), stream markers, and the
// token-subscription handler the engine classifies them through.
package payload

import (
	"time"

	"github.com/e7canasta/capture-engine/internal/media"
)

// MajorType classifies a sample's stream kind.
type MajorType int

const (
	// MajorUnknown is an unclassifiable sample.
	MajorUnknown MajorType = iota
	// MajorAudio is an audio sample.
	MajorAudio
	// MajorVideo is a video sample.
	MajorVideo
)

// String returns a human-readable string representation of the major type.
func (m MajorType) String() string {
	switch m {
	case MajorAudio:
		return "audio"
	case MajorVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Extended property keys carried on samples.
const (
	// PropMajorType holds the sample's MajorType.
	PropMajorType = "MajorType"
)

// Metadata marker keys delivered on stream-metadata events.
const (
	// MarkerEndOfSegment marks the end of a stream segment.
	MarkerEndOfSegment = "EndOfSegment"
	// MarkerTick carries a tick timestamp in 100ns units.
	MarkerTick = "Tick"
	// MarkerFlush requests a flush.
	MarkerFlush = "Flush"
)

// Metadata is the property set delivered on stream-metadata events.
type Metadata map[string]any

// Sample is one raw media sample with its extended properties.
type Sample struct {
	Data       []byte
	Timestamp  time.Duration
	Properties map[string]any
}

// TotalLength returns the sample's total buffer length in bytes.
func (s *Sample) TotalLength() int {
	if s == nil {
		return 0
	}
	return len(s.Data)
}

// MajorType reads the sample's major type from its extended properties.
func (s *Sample) MajorType() MajorType {
	if s == nil || s.Properties == nil {
		return MajorUnknown
	}
	if t, ok := s.Properties[PropMajorType].(MajorType); ok {
		return t
	}
	return MajorUnknown
}

// Payload is one sample paired with its encoding metadata, as delivered by
// the sink. Exactly one of Video/Audio is set for classifiable payloads.
type Payload struct {
	TraceID string
	Sample  *Sample
	Video   *media.VideoProperties
	Audio   *media.AudioProperties
}

// Empty reports whether the payload carries no usable sample.
func (p *Payload) Empty() bool {
	return p == nil || p.Sample == nil || len(p.Sample.Data) == 0
}
