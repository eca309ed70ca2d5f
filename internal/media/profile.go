package media

// Quality is the baseline quality tier an encoding profile starts from.
type Quality int

const (
	// QualityHD720p is the fixed baseline tier (1280x720).
	QualityHD720p Quality = iota
)

// AudioEncoding is the audio half of an encoding profile.
type AudioEncoding struct {
	Subtype       Subtype
	Bitrate       uint32
	BitsPerSample uint32
	ChannelCount  uint32
	SampleRate    uint32
}

// VideoEncoding is the video half of an encoding profile.
type VideoEncoding struct {
	Subtype   Subtype
	Width     uint32
	Height    uint32
	FrameRate float64
	Bitrate   uint32
}

// EncodingProfile describes the stream a sink is bound to. It starts from a
// fixed baseline and is overridden field by field from the negotiated device
// properties. No container: samples are delivered raw to the sink.
type EncodingProfile struct {
	Quality Quality
	Audio   *AudioEncoding
	Video   *VideoEncoding
}

// NewEncodingProfile builds the baseline profile for a quality tier.
// The baseline mirrors a 720p MP4 profile with the container dropped.
func NewEncodingProfile(q Quality) *EncodingProfile {
	return &EncodingProfile{
		Quality: q,
		Audio: &AudioEncoding{
			Subtype:       SubtypeAAC,
			Bitrate:       96000,
			BitsPerSample: 16,
			ChannelCount:  2,
			SampleRate:    48000,
		},
		Video: &VideoEncoding{
			Subtype:   SubtypeH264,
			Width:     1280,
			Height:    720,
			FrameRate: FrameRate30,
			Bitrate:   5_000_000,
		},
	}
}

// HasAudio reports whether the profile carries an audio stream.
func (p *EncodingProfile) HasAudio() bool {
	return p != nil && p.Audio != nil
}

// HasVideo reports whether the profile carries a video stream.
func (p *EncodingProfile) HasVideo() bool {
	return p != nil && p.Video != nil
}
