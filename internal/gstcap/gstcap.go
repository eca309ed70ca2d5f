// Package gstcap is the GStreamer-backed capture substrate: local camera
// (v4l2/autovideosrc) and microphone capture delivered through appsink into
// the engine's delivery sink.
//
// It implements media.Platform and media.Session. Requires the gstreamer1.0
// runtime; verify with `gst-inspect-1.0 --version`.
package gstcap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/capture-engine/internal/media"
)

// ErrClosed indicates the platform was already closed.
var ErrClosed = errors.New("gstcap: platform closed")

// Platform is the GStreamer capture substrate.
type Platform struct {
	mu     sync.Mutex
	closed bool
}

// New creates the substrate. GStreamer initializes lazily on first use.
func New() *Platform {
	return &Platform{}
}

// FirstDevice returns the first available capture device of a class.
// Availability is probed by instantiating the source element, the same way
// a missing plugin is detected.
func (p *Platform) FirstDevice(_ context.Context, class media.DeviceClass) (media.DeviceInfo, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return media.DeviceInfo{}, ErrClosed
	}
	p.mu.Unlock()

	gst.Init(nil)

	switch class {
	case media.DeviceVideoCapture:
		if elem, err := gst.NewElement("v4l2src"); err == nil {
			elem.SetState(gst.StateNull)
			return media.DeviceInfo{ID: "v4l2:///dev/video0", Name: "v4l2 default camera"}, nil
		}
		if elem, err := gst.NewElement("autovideosrc"); err == nil {
			elem.SetState(gst.StateNull)
			return media.DeviceInfo{ID: "autovideosrc", Name: "auto video source"}, nil
		}
		return media.DeviceInfo{}, errors.New("gstcap: no video capture source available")

	case media.DeviceAudioCapture:
		if elem, err := gst.NewElement("autoaudiosrc"); err == nil {
			elem.SetState(gst.StateNull)
			return media.DeviceInfo{ID: "autoaudiosrc", Name: "auto audio source"}, nil
		}
		return media.DeviceInfo{}, errors.New("gstcap: no audio capture source available")

	default:
		return media.DeviceInfo{}, fmt.Errorf("gstcap: unknown device class %d", class)
	}
}

// IsVideoProfileSupported reports false: v4l2 devices expose raw formats,
// not profile sets, so sessions run under exclusive control with the engine
// pinning stream properties explicitly.
func (p *Platform) IsVideoProfileSupported(string) bool {
	return false
}

// FindKnownVideoProfiles returns nil; see IsVideoProfileSupported.
func (p *Platform) FindKnownVideoProfiles(string, media.ProfileKind) []media.VideoProfile {
	return nil
}

// CreateSession initializes a capture session for the given settings.
func (p *Platform) CreateSession(_ context.Context, settings *media.InitSettings) (media.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if settings == nil {
		return nil, errors.New("gstcap: nil init settings")
	}

	slog.Info("gstcap: session created",
		"video_device", settings.VideoDeviceID,
		"audio_device", settings.AudioDeviceID,
	)

	return newSession(settings), nil
}

// Close shuts the substrate down. Sessions created earlier must already be
// closed by the engine's stop sequence.
func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
