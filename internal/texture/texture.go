// Package texture owns the shared video texture the engine exposes to the
// host: one GPU texture, its descriptor, a CPU backing buffer samples are
// copied through, and the cached camera transforms.
//
// A SharedTexture is recreated exactly when the requested dimensions differ
// from its descriptor; everything else is overwrite-in-place.
package texture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/e7canasta/capture-engine/internal/device"
	"github.com/e7canasta/capture-engine/internal/gpu"
)

// ErrNoDevice indicates texture creation was attempted without a device.
var ErrNoDevice = errors.New("texture: no device")

// SharedTexture is the GPU texture video frames are copied into, plus the
// transform pair recomputed against the host coordinate system.
type SharedTexture struct {
	desc gpu.TextureDesc
	tex  gpu.Texture
	buf  []byte

	// Cached transforms from the last successful recompute.
	CameraToWorld gpu.Matrix4
	Projection    gpu.Matrix4
}

// Create allocates a shared texture of the given dimensions on the host
// device, sampled through the engine's device-manager binding.
func Create(dev gpu.Device, manager *device.Manager, width, height uint32) (*SharedTexture, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	if manager == nil || manager.Device() == nil {
		return nil, errors.New("texture: device manager unbound")
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("texture: invalid dimensions %dx%d", width, height)
	}

	desc := gpu.TextureDesc{Width: width, Height: height, Format: gpu.FormatBGRA8}
	tex, err := dev.CreateTexture2D(desc)
	if err != nil {
		return nil, fmt.Errorf("texture: create %dx%d: %w", width, height, err)
	}

	slog.Debug("texture: shared texture created", "width", width, "height", height)

	return &SharedTexture{
		desc:          desc,
		tex:           tex,
		buf:           make([]byte, desc.Format.FrameSize(width, height)),
		CameraToWorld: gpu.Identity(),
		Projection:    gpu.Identity(),
	}, nil
}

// Desc returns the texture descriptor.
func (t *SharedTexture) Desc() gpu.TextureDesc {
	return t.desc
}

// Matches reports whether the texture already has the requested dimensions.
func (t *SharedTexture) Matches(width, height uint32) bool {
	return t != nil && t.tex != nil && t.desc.Width == width && t.desc.Height == height
}

// Handle returns the GPU handle the host binds, or 0 after Reset.
func (t *SharedTexture) Handle() uintptr {
	if t == nil || t.tex == nil {
		return 0
	}
	return t.tex.Handle()
}

// CopyFrom overwrites the backing buffer with sample data. Short samples
// fill only their prefix; oversized samples are truncated to the frame.
func (t *SharedTexture) CopyFrom(data []byte) error {
	if t == nil || t.tex == nil {
		return errors.New("texture: copy into released texture")
	}
	if len(data) == 0 {
		return errors.New("texture: empty sample")
	}
	copy(t.buf, data)
	return nil
}

// Bytes exposes the backing buffer for upload by the substrate or host.
func (t *SharedTexture) Bytes() []byte {
	if t == nil {
		return nil
	}
	return t.buf
}

// UpdateTransforms recomputes the camera-to-world and projection matrices
// against the host coordinate system, caching them on success. A locate
// failure leaves the cached transforms untouched.
func (t *SharedTexture) UpdateTransforms(cs gpu.CoordinateSystem) error {
	if cs == nil {
		return errors.New("texture: nil coordinate system")
	}

	world, projection, err := cs.Transforms()
	if err != nil {
		return fmt.Errorf("texture: locate transforms: %w", err)
	}

	t.CameraToWorld = world
	t.Projection = projection
	return nil
}

// Reset releases the GPU texture and backing buffer. Idempotent.
func (t *SharedTexture) Reset() {
	if t == nil {
		return
	}
	if t.tex != nil {
		if err := t.tex.Close(); err != nil {
			slog.Warn("texture: close", "error", err)
		}
		t.tex = nil
	}
	t.buf = nil
}
