package gstcap

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/capture-engine/internal/media"
	"github.com/e7canasta/capture-engine/internal/payload"
)

func gstVideoFormat(subtype media.Subtype) string {
	switch subtype {
	case media.SubtypeBGRA8:
		return "BGRA"
	default:
		return "NV12"
	}
}

// buildPipeline assembles the capture pipeline for a profile:
//
//	v4l2src ! videoconvert ! [overlays] ! capsfilter ! appsink
//
// plus, when the profile carries audio:
//
//	autoaudiosrc ! audioconvert ! [mixer] ! capsfilter ! appsink
//
// Returns the pipeline plus the video and audio appsinks (audio nil when
// absent).
func buildPipeline(settings *media.InitSettings, profile *media.EncodingProfile, effects []*overlayEffect) (*gst.Pipeline, *app.Sink, *app.Sink, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("gstcap: create pipeline: %w", err)
	}

	videoSink, err := buildVideoBranch(pipeline, settings, profile, effects)
	if err != nil {
		return nil, nil, nil, err
	}

	var audioSink *app.Sink
	if profile.HasAudio() {
		audioSink, err = buildAudioBranch(pipeline, settings, profile, effects)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return pipeline, videoSink, audioSink, nil
}

func buildVideoBranch(pipeline *gst.Pipeline, settings *media.InitSettings, profile *media.EncodingProfile, effects []*overlayEffect) (*app.Sink, error) {
	src, err := videoSource(settings.VideoDeviceID)
	if err != nil {
		return nil, err
	}

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("gstcap: create videoconvert: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("gstcap: create capsfilter: %w", err)
	}
	caps := gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=%s,width=%d,height=%d,framerate=%d/1",
		gstVideoFormat(profile.Video.Subtype),
		profile.Video.Width,
		profile.Video.Height,
		int(profile.Video.FrameRate),
	))
	if err := capsfilter.SetProperty("caps", caps); err != nil {
		return nil, fmt.Errorf("gstcap: set video caps: %w", err)
	}

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("gstcap: create video appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 4)
	appsink.SetProperty("drop", true)

	elems := []*gst.Element{src, convert}
	for _, fx := range effects {
		if fx.kind == media.EffectVideo && fx.element != nil {
			elems = append(elems, fx.element)
		}
	}
	elems = append(elems, capsfilter, appsink.Element)

	if err := pipeline.AddMany(elems...); err != nil {
		return nil, fmt.Errorf("gstcap: add video elements: %w", err)
	}
	if err := gst.ElementLinkMany(elems...); err != nil {
		return nil, fmt.Errorf("gstcap: link video elements: %w", err)
	}

	return appsink, nil
}

func buildAudioBranch(pipeline *gst.Pipeline, settings *media.InitSettings, profile *media.EncodingProfile, effects []*overlayEffect) (*app.Sink, error) {
	src, err := gst.NewElement("autoaudiosrc")
	if err != nil {
		return nil, fmt.Errorf("gstcap: create audio source: %w", err)
	}

	convert, err := gst.NewElement("audioconvert")
	if err != nil {
		return nil, fmt.Errorf("gstcap: create audioconvert: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("gstcap: create audio capsfilter: %w", err)
	}
	format := "F32LE"
	if profile.Audio.Subtype != media.SubtypeFloat {
		format = "S16LE"
	}
	caps := gst.NewCapsFromString(fmt.Sprintf(
		"audio/x-raw,format=%s,rate=%d,channels=%d",
		format,
		profile.Audio.SampleRate,
		profile.Audio.ChannelCount,
	))
	if err := capsfilter.SetProperty("caps", caps); err != nil {
		return nil, fmt.Errorf("gstcap: set audio caps: %w", err)
	}

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("gstcap: create audio appsink: %w", err)
	}
	appsink.SetProperty("sync", false)

	elems := []*gst.Element{src, convert}
	for _, fx := range effects {
		if fx.kind == media.EffectAudio && fx.element != nil {
			elems = append(elems, fx.element)
		}
	}
	elems = append(elems, capsfilter, appsink.Element)

	if err := pipeline.AddMany(elems...); err != nil {
		return nil, fmt.Errorf("gstcap: add audio elements: %w", err)
	}
	if err := gst.ElementLinkMany(elems...); err != nil {
		return nil, fmt.Errorf("gstcap: link audio elements: %w", err)
	}

	return appsink, nil
}

func videoSource(deviceID string) (*gst.Element, error) {
	if strings.HasPrefix(deviceID, "v4l2://") {
		src, err := gst.NewElement("v4l2src")
		if err != nil {
			return nil, fmt.Errorf("gstcap: create v4l2src: %w", err)
		}
		if err := src.SetProperty("device", strings.TrimPrefix(deviceID, "v4l2://")); err != nil {
			return nil, fmt.Errorf("gstcap: set v4l2 device: %w", err)
		}
		return src, nil
	}

	src, err := gst.NewElement("autovideosrc")
	if err != nil {
		return nil, fmt.Errorf("gstcap: create video source: %w", err)
	}
	return src, nil
}

// attachVideoCallbacks wires the video appsink into the delivery sink. The
// first sample also releases anyone blocked in PullPreviewFrame.
func (s *session) attachVideoCallbacks(appsink *app.Sink, out media.SampleSink, props media.VideoProperties) {
	started := s.started
	first := s.firstFrame
	once := s.firstOnce

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			sample := sink.PullSample()
			if sample == nil {
				return gst.FlowEOS
			}

			buffer := sample.GetBuffer()
			if buffer == nil {
				return gst.FlowError
			}

			mapInfo := buffer.Map(gst.MapRead)
			if mapInfo == nil {
				return gst.FlowError
			}
			data := make([]byte, len(mapInfo.Bytes()))
			copy(data, mapInfo.Bytes())
			buffer.Unmap()

			once.Do(func() { close(first) })

			vp := props
			out.DeliverSample(data, time.Since(started), &vp, nil)
			return gst.FlowOK
		},
	})
}

func (s *session) attachAudioCallbacks(appsink *app.Sink, out media.SampleSink, props media.AudioProperties) {
	started := s.started

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			sample := sink.PullSample()
			if sample == nil {
				return gst.FlowEOS
			}

			buffer := sample.GetBuffer()
			if buffer == nil {
				return gst.FlowError
			}

			mapInfo := buffer.Map(gst.MapRead)
			if mapInfo == nil {
				return gst.FlowError
			}
			data := make([]byte, len(mapInfo.Bytes()))
			copy(data, mapInfo.Bytes())
			buffer.Unmap()

			ap := props
			out.DeliverSample(data, time.Since(started), nil, &ap)
			return gst.FlowOK
		},
	})
}

// monitorBus watches the pipeline bus until stopped, forwarding end-of-stream
// as a marker and logging pipeline errors.
func (s *session) monitorBus(pipeline *gst.Pipeline, out media.SampleSink, stop <-chan struct{}) {
	bus := pipeline.GetPipelineBus()
	if bus == nil {
		return
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		msg := bus.TimedPop(500 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("gstcap: end of stream")
			out.DeliverMarker(map[string]any{payload.MarkerEndOfSegment: true})
			return
		case gst.MessageError:
			slog.Error("gstcap: pipeline error", "message", msg.String())
		}
	}
}
