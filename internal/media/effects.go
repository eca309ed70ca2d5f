package media

// EffectKind tags an effect definition as video or audio.
type EffectKind int

const (
	// EffectVideo is a video overlay effect.
	EffectVideo EffectKind = iota
	// EffectAudio is an audio overlay effect.
	EffectAudio
)

// String returns a human-readable string representation of the kind.
func (k EffectKind) String() string {
	switch k {
	case EffectVideo:
		return "video"
	case EffectAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Overlay effect property keys. The substrate reads the ones it understands
// and ignores the rest.
const (
	// PropStreamRole names the stream role a video overlay targets.
	PropStreamRole = "StreamRole"
	// PropHologramComposition enables compositing rendered content onto the
	// stream.
	PropHologramComposition = "HologramComposition"
	// PropRecordingIndicator enables the on-stream recording indicator.
	PropRecordingIndicator = "RecordingIndicatorEnabled"
	// PropVideoStabilization enables stabilization on the composited stream.
	PropVideoStabilization = "VideoStabilizationEnabled"
	// PropGlobalOpacity sets the overlay's global opacity coefficient.
	PropGlobalOpacity = "GlobalOpacityCoefficient"
	// PropMixerMode selects which audio sources the audio overlay mixes.
	PropMixerMode = "MixerMode"
)

// MixerModeMicAndSystem mixes microphone and rendered audio, the audio
// overlay default.
const MixerModeMicAndSystem = 2

// EffectDefinition describes an effect to attach: a kind plus a property
// bag, uniform across video and audio rather than dispatching per type.
type EffectDefinition struct {
	Kind       EffectKind
	Properties map[string]any
}

// OverlayVideoEffect returns the compositing video overlay definition for a
// stream role.
func OverlayVideoEffect(role StreamRole) EffectDefinition {
	return EffectDefinition{
		Kind: EffectVideo,
		Properties: map[string]any{
			PropStreamRole:          role,
			PropHologramComposition: true,
			PropRecordingIndicator:  false,
			PropVideoStabilization:  false,
			PropGlobalOpacity:       float32(0.9),
		},
	}
}

// OverlayAudioEffect returns the compositing audio overlay definition.
func OverlayAudioEffect() EffectDefinition {
	return EffectDefinition{
		Kind: EffectAudio,
		Properties: map[string]any{
			PropMixerMode: MixerModeMicAndSystem,
		},
	}
}
