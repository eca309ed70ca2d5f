// Package media defines the capture substrate contract and the media
// property model the engine negotiates against it.
//
// The substrate (a Platform implementation) is a black box: device
// enumeration, session init, stream property get/set, effect add/remove and
// the start/stop paths all live behind it. The engine only reasons about the
// value types in this package.
package media

import (
	"context"
	"time"
)

// Subtype identifies a media wire format.
type Subtype string

const (
	// SubtypeNV12 is 8-bit planar 4:2:0 chroma-subsampled video.
	SubtypeNV12 Subtype = "NV12"
	// SubtypeBGRA8 is uncompressed 8-bit BGRA video.
	SubtypeBGRA8 Subtype = "BGRA8"
	// SubtypeH264 is compressed H.264 video.
	SubtypeH264 Subtype = "H264"
	// SubtypeAAC is compressed AAC audio.
	SubtypeAAC Subtype = "AAC"
	// SubtypeFloat is uncompressed 32-bit floating point PCM audio.
	SubtypeFloat Subtype = "Float"
)

// FrameRate30 is the only frame rate the engine negotiates for.
const FrameRate30 = 30.0

// StreamRole identifies which pipeline a stream flows through.
type StreamRole int

const (
	// RolePreview is the live local preview pipeline.
	RolePreview StreamRole = iota
	// RoleRecord is the record pipeline.
	RoleRecord
	// RoleAudio is the audio pipeline.
	RoleAudio
)

// String returns a human-readable string representation of the role.
func (r StreamRole) String() string {
	switch r {
	case RolePreview:
		return "preview"
	case RoleRecord:
		return "record"
	case RoleAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// SharingMode controls whether the session takes exclusive control of the
// capture device.
type SharingMode int

const (
	// SharingExclusive takes exclusive control; stream properties may be set.
	SharingExclusive SharingMode = iota
	// SharingReadOnly shares the device read-only; properties come from the
	// negotiated profile.
	SharingReadOnly
)

// Category is the media category a session is initialized under.
type Category int

const (
	// CategoryCommunications tunes the device for real-time communication.
	CategoryCommunications Category = iota
	// CategoryMedia tunes the device for media capture.
	CategoryMedia
)

// ProfileKind selects which family of known video profiles to enumerate.
type ProfileKind int

const (
	// ProfileVideoConferencing is the conferencing profile family.
	ProfileVideoConferencing ProfileKind = iota
	// ProfileVideoRecording is the recording profile family.
	ProfileVideoRecording
)

// Optimization is a stream tuning hint.
type Optimization int

const (
	// OptimizationDefault leaves the device's own tuning in place.
	OptimizationDefault Optimization = iota
	// OptimizationLatency favors latency over quality.
	OptimizationLatency
)

// Characteristic reports how the device's preview and record pipelines
// relate to each other.
type Characteristic int

const (
	// CharacteristicAllStreamsIdentical means every stream shares one pipeline.
	CharacteristicAllStreamsIdentical Characteristic = iota
	// CharacteristicPreviewRecordIdentical means preview and record share one
	// pipeline.
	CharacteristicPreviewRecordIdentical
	// CharacteristicIndependentStreams means preview and record run on
	// independent pipelines.
	CharacteristicIndependentStreams
)

// Identical reports whether preview and record share a physical pipeline.
func (c Characteristic) Identical() bool {
	return c == CharacteristicAllStreamsIdentical || c == CharacteristicPreviewRecordIdentical
}

// StreamState is the session's streaming status.
type StreamState int

const (
	// StreamStateStopped means no stream is flowing.
	StreamStateStopped StreamState = iota
	// StreamStateStreaming means the session is actively streaming.
	StreamStateStreaming
)

// DeviceClass selects which kind of capture device to enumerate.
type DeviceClass int

const (
	// DeviceVideoCapture enumerates cameras.
	DeviceVideoCapture DeviceClass = iota
	// DeviceAudioCapture enumerates microphones.
	DeviceAudioCapture
)

// DeviceInfo identifies an enumerated capture device.
type DeviceInfo struct {
	ID   string
	Name string
}

// Description is one candidate stream description inside a video profile.
type Description struct {
	Subtype   Subtype
	Width     uint32
	Height    uint32
	FrameRate float64
}

// VideoProfile is a known device profile with its candidate stream
// descriptions per role.
type VideoProfile struct {
	ID      string
	Preview []Description
	Record  []Description
}

// AudioProperties are the negotiated audio stream properties of a device.
type AudioProperties struct {
	Subtype       Subtype
	Bitrate       uint32
	BitsPerSample uint32
	ChannelCount  uint32
	SampleRate    uint32
}

// VideoProperties are the negotiated video stream properties of a device.
type VideoProperties struct {
	Subtype   Subtype
	Width     uint32
	Height    uint32
	FrameRate float64
	Bitrate   uint32
}

// MemoryPreference controls where the substrate allocates sample memory.
type MemoryPreference int

const (
	// MemoryAuto lets the substrate choose CPU or GPU memory.
	MemoryAuto MemoryPreference = iota
	// MemoryCPU forces CPU memory.
	MemoryCPU
)

// CaptureMode selects which streams a session captures.
type CaptureMode int

const (
	// CaptureVideo captures video only.
	CaptureVideo CaptureMode = iota
	// CaptureAudioAndVideo captures audio and video.
	CaptureAudioAndVideo
)

// PhotoSource selects which stream photo capture draws from.
type PhotoSource int

const (
	// PhotoSourceAuto lets the device choose.
	PhotoSourceAuto PhotoSource = iota
	// PhotoSourcePreview draws photos from the preview stream.
	PhotoSourcePreview
)

// DeviceManagerBinding is the device-manager handle init settings carry so
// the substrate can sample against the engine's capture device. Cleared on
// stop before the session closes.
type DeviceManagerBinding interface {
	ResetToken() uint32
}

// InitSettings is everything a session is initialized with.
type InitSettings struct {
	Memory        MemoryPreference
	Mode          CaptureMode
	Category      Category
	SharingMode   SharingMode
	PhotoSource   PhotoSource
	VideoDeviceID string
	AudioDeviceID string

	// Profile negotiation results; nil when the device has no profile support.
	VideoProfile       *VideoProfile
	PreviewDescription *Description
	RecordDescription  *Description

	// DeviceManager is the engine's device-manager binding, borrowed for the
	// session's lifetime.
	DeviceManager DeviceManagerBinding
}

// Effect is an opaque handle to an attached effect.
type Effect interface {
	Kind() EffectKind
}

// SampleSink receives the sample stream a started session produces. The
// engine's delivery sink satisfies this.
type SampleSink interface {
	DeliverSample(data []byte, pts time.Duration, video *VideoProperties, audio *AudioProperties)
	DeliverMarker(marker map[string]any)
}

// Session is an initialized capture session on the substrate.
//
// All blocking calls take a context; the engine does not cancel them, but a
// substrate implementation may honor deadlines of its own.
type Session interface {
	Characteristic() Characteristic
	StreamState() StreamState

	SetDesiredOptimization(opt Optimization) error
	SetStreamProperties(ctx context.Context, role StreamRole, props VideoProperties) error
	StreamProperties(role StreamRole) (VideoProperties, bool)
	AudioProperties() (AudioProperties, bool)

	AddVideoEffect(ctx context.Context, def EffectDefinition, role StreamRole) (Effect, error)
	AddAudioEffect(ctx context.Context, def EffectDefinition) (Effect, error)
	RemoveEffect(ctx context.Context, effect Effect) error

	StartPreview(ctx context.Context, profile *EncodingProfile, sink SampleSink) error
	StartRecord(ctx context.Context, profile *EncodingProfile, sink SampleSink) error
	StopPreview(ctx context.Context) error
	StopRecord(ctx context.Context) error

	// PullPreviewFrame synchronously pulls one warm-up frame after preview
	// start.
	PullPreviewFrame(ctx context.Context) error

	Close() error
}

// Platform is the capture substrate.
type Platform interface {
	FirstDevice(ctx context.Context, class DeviceClass) (DeviceInfo, error)
	IsVideoProfileSupported(deviceID string) bool
	FindKnownVideoProfiles(deviceID string, kind ProfileKind) []VideoProfile
	CreateSession(ctx context.Context, settings *InitSettings) (Session, error)

	// Close tears the substrate down. Called once, at engine shutdown.
	Close() error
}
