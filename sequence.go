package captureengine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/e7canasta/capture-engine/internal/media"
	"github.com/e7canasta/capture-engine/internal/payload"
)

// startSequence is the ordered start pipeline. Each step is fallible and
// short-circuits the sequence; the single completion continuation in
// runStart observes the result. Runs on a background goroutine.
func (e *Engine) startSequence(width, height uint32, enableAudio, enableMrc bool) error {
	ctx := context.Background()

	// Create the session on first start; on restart, strip any overlay
	// effects left attached so the new configuration starts clean.
	e.mu.Lock()
	sess := e.session
	e.mu.Unlock()

	if sess == nil {
		created, settings, err := e.createSession(ctx, enableAudio, width, height)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.session = created
		e.initSettings = settings
		e.mu.Unlock()
		sess = created
	} else {
		e.removeEffects(ctx)
	}

	if err := sess.SetDesiredOptimization(media.OptimizationLatency); err != nil {
		return fmt.Errorf("set stream optimization: %w", err)
	}

	e.mu.Lock()
	settings := e.initSettings
	e.mu.Unlock()

	// Exclusive-control sessions have no negotiated profile; pin the stream
	// properties explicitly. NV12 at the requested size, 30 fps.
	if settings != nil && settings.SharingMode == media.SharingExclusive {
		props := media.VideoProperties{
			Subtype:   media.SubtypeNV12,
			Width:     width,
			Height:    height,
			FrameRate: media.FrameRate30,
		}

		if err := sess.SetStreamProperties(ctx, e.cfg.Role, props); err != nil {
			return fmt.Errorf("set %s stream properties: %w", e.cfg.Role, err)
		}

		if e.cfg.Role != media.RolePreview && !sess.Characteristic().Identical() {
			if err := sess.SetStreamProperties(ctx, media.RoleRecord, props); err != nil {
				return fmt.Errorf("set record stream properties: %w", err)
			}
		}
	}

	// Baseline encoding profile, overridden from the negotiated device
	// properties.
	profile := media.NewEncodingProfile(e.cfg.Quality)

	if enableAudio {
		if ap, ok := sess.AudioProperties(); ok {
			profile.Audio.Bitrate = ap.Bitrate
			profile.Audio.BitsPerSample = ap.BitsPerSample
			profile.Audio.ChannelCount = ap.ChannelCount
			profile.Audio.SampleRate = ap.SampleRate
		}
		if e.cfg.Role == media.RolePreview {
			// Local playback wants uncompressed audio.
			profile.Audio.Subtype = media.SubtypeFloat
		}
	} else {
		profile.Audio = nil
	}

	if vp, ok := sess.StreamProperties(e.cfg.Role); ok {
		profile.Video.Width = vp.Width
		profile.Video.Height = vp.Height
		if e.cfg.Role == media.RolePreview {
			// Local playback wants uncompressed video.
			profile.Video.Subtype = media.SubtypeBGRA8
		}
	}

	sink := payload.NewSink(profile)

	// Overlay effects must attach before the stream starts.
	if enableMrc {
		e.addEffects(ctx, enableAudio)
	}

	switch e.cfg.Role {
	case media.RoleRecord:
		if err := sess.StartRecord(ctx, profile, sink); err != nil {
			return fmt.Errorf("start record to sink: %w", err)
		}
	case media.RolePreview:
		if err := sess.StartPreview(ctx, profile, sink); err != nil {
			return fmt.Errorf("start preview to sink: %w", err)
		}

		warmCtx, cancel := context.WithTimeout(ctx, e.cfg.WarmupTimeout)
		err := sess.PullPreviewFrame(warmCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("pull warm-up frame: %w", err)
		}
	}

	// Store the sink; bind the configured handler so delivery begins.
	e.mu.Lock()
	e.sink = sink
	h := e.handler
	e.mu.Unlock()

	if h != nil {
		sink.SetHandler(h)
	}

	return nil
}

// createSession enumerates devices, negotiates the video profile and
// initializes a capture session on the substrate.
func (e *Engine) createSession(ctx context.Context, enableAudio bool, width, height uint32) (media.Session, *media.InitSettings, error) {
	videoDevice, err := e.platform.FirstDevice(ctx, media.DeviceVideoCapture)
	if err != nil {
		return nil, nil, fmt.Errorf("enumerate video device: %w", err)
	}

	settings := &media.InitSettings{
		Memory:        media.MemoryAuto,
		Mode:          media.CaptureVideo,
		Category:      e.cfg.Category,
		PhotoSource:   media.PhotoSourceAuto,
		VideoDeviceID: videoDevice.ID,
	}
	if e.cfg.Role == media.RolePreview {
		settings.PhotoSource = media.PhotoSourcePreview
	}

	if enableAudio {
		audioDevice, err := e.platform.FirstDevice(ctx, media.DeviceAudioCapture)
		if err != nil {
			return nil, nil, fmt.Errorf("enumerate audio device: %w", err)
		}
		settings.Mode = media.CaptureAudioAndVideo
		settings.AudioDeviceID = audioDevice.ID
	}

	e.mu.Lock()
	res := e.resources
	e.mu.Unlock()
	if res == nil || res.Manager == nil {
		return nil, nil, fmt.Errorf("%w: device resources missing", ErrUnexpectedState)
	}
	settings.DeviceManager = res.Manager

	if e.platform.IsVideoProfileSupported(videoDevice.ID) {
		settings.SharingMode = media.SharingReadOnly

		profiles := e.platform.FindKnownVideoProfiles(videoDevice.ID, e.cfg.ProfileKind)
		profile, desc := media.SelectDescription(profiles, e.cfg.Role, width, height)

		settings.VideoProfile = profile
		if e.cfg.Role == media.RolePreview {
			settings.PreviewDescription = desc
		} else {
			settings.RecordDescription = desc
		}
	} else {
		settings.SharingMode = media.SharingExclusive
	}

	sess, err := e.platform.CreateSession(ctx, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize session: %w", err)
	}

	slog.Debug("capture-engine: session initialized",
		"video_device", videoDevice.ID,
		"sharing", settings.SharingMode == media.SharingExclusive,
		"profile", settings.VideoProfile != nil,
	)

	return sess, settings, nil
}

// stopSequence is the ordered stop pipeline, symmetric to startSequence.
// Also run synchronously by Shutdown through StopPreview.
func (e *Engine) stopSequence() error {
	ctx := context.Background()

	// Unsubscribe and clear the payload handler first so delivery stops,
	// then detach the sink.
	e.mu.Lock()
	e.resetPayloadHandlerLocked()
	sink := e.sink
	e.sink = nil
	sess := e.session
	e.mu.Unlock()

	if sink != nil {
		sink.SetHandler(nil)
	}

	if sess == nil {
		return nil
	}

	if sess.StreamState() == media.StreamStateStreaming {
		var err error
		switch e.cfg.Role {
		case media.RoleRecord:
			err = sess.StopRecord(ctx)
		case media.RolePreview:
			err = sess.StopPreview(ctx)
		}
		if err != nil {
			return fmt.Errorf("stop %s: %w", e.cfg.Role, err)
		}
	}

	e.removeEffects(ctx)

	// Clear the device-manager binding before the session closes; the
	// manager outlives the session.
	e.mu.Lock()
	if e.initSettings != nil {
		e.initSettings.DeviceManager = nil
		e.initSettings = nil
	}
	e.mu.Unlock()

	if err := sess.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	e.mu.Lock()
	e.session = nil
	e.mu.Unlock()

	return nil
}

// addEffects attaches the overlay effects to the active session. Attachment
// is best-effort: a failure is logged and the start sequence continues with
// whatever attached before it.
//
// The record path always gets a video overlay. When the device reports that
// preview and record pipelines are not independent, that one instance serves
// both roles; otherwise a second instance attaches to the preview path. An
// audio overlay attaches only when audio was requested.
func (e *Engine) addEffects(ctx context.Context, enableAudio bool) {
	e.mu.Lock()
	sess := e.session
	e.mu.Unlock()
	if sess == nil {
		return
	}

	var videoFx, previewFx, audioFx media.Effect

	attach := func() error {
		fx, err := sess.AddVideoEffect(ctx, media.OverlayVideoEffect(media.RoleRecord), media.RoleRecord)
		if err != nil {
			return fmt.Errorf("record video overlay: %w", err)
		}
		videoFx = fx

		if !sess.Characteristic().Identical() {
			fx, err = sess.AddVideoEffect(ctx, media.OverlayVideoEffect(media.RolePreview), media.RolePreview)
			if err != nil {
				return fmt.Errorf("preview video overlay: %w", err)
			}
			previewFx = fx
		}

		if enableAudio {
			fx, err = sess.AddAudioEffect(ctx, media.OverlayAudioEffect())
			if err != nil {
				return fmt.Errorf("audio overlay: %w", err)
			}
			audioFx = fx
		}

		return nil
	}

	if err := attach(); err != nil {
		slog.Warn("capture-engine: overlay effect attach failed", "error", err)
	}

	e.mu.Lock()
	e.fxVideo = videoFx
	e.fxPreview = previewFx
	e.fxAudio = audioFx
	e.mu.Unlock()
}

// removeEffects detaches whichever overlay effects are attached, clearing
// each handle independently after its removal. No-op with nothing attached.
func (e *Engine) removeEffects(ctx context.Context) {
	e.mu.Lock()
	sess := e.session
	audioFx, previewFx, videoFx := e.fxAudio, e.fxPreview, e.fxVideo
	e.mu.Unlock()

	if sess == nil {
		return
	}
	if audioFx == nil && previewFx == nil && videoFx == nil {
		return
	}

	if audioFx != nil {
		if err := sess.RemoveEffect(ctx, audioFx); err != nil {
			slog.Warn("capture-engine: remove audio overlay", "error", err)
		}
		e.mu.Lock()
		e.fxAudio = nil
		e.mu.Unlock()
	}

	if previewFx != nil {
		if err := sess.RemoveEffect(ctx, previewFx); err != nil {
			slog.Warn("capture-engine: remove preview overlay", "error", err)
		}
		e.mu.Lock()
		e.fxPreview = nil
		e.mu.Unlock()
	}

	if videoFx != nil {
		if err := sess.RemoveEffect(ctx, videoFx); err != nil {
			slog.Warn("capture-engine: remove record overlay", "error", err)
		}
		e.mu.Lock()
		e.fxVideo = nil
		e.mu.Unlock()
	}
}
