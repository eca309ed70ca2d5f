// Package gpu defines the contracts between the capture engine and the
// host-provided graphics stack.
//
// The engine never owns the host device: Provider hands out a borrowed
// reference, and the engine derives its own capture-capable device from the
// host device's adapter. Texture and matrix types are plain values so the
// hot path stays allocation-free once a frame is established.
package gpu

// Format identifies a texture pixel format.
type Format int

const (
	// FormatBGRA8 is 8-bit BGRA, the shared-texture format handed to the host.
	FormatBGRA8 Format = iota
	// FormatNV12 is 8-bit planar 4:2:0, the capture pipeline's native format.
	FormatNV12
)

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatBGRA8:
		return "bgra8"
	case FormatNV12:
		return "nv12"
	default:
		return "unknown"
	}
}

// FrameSize returns the backing-buffer size in bytes for a full frame at
// the given dimensions. NV12 is 1.5 bytes per pixel.
func (f Format) FrameSize(width, height uint32) int {
	switch f {
	case FormatNV12:
		return int(width) * int(height) * 3 / 2
	default:
		return int(width) * int(height) * 4
	}
}

// Matrix4 is a row-major 4x4 float32 matrix.
type Matrix4 [4][4]float32

// Identity returns the identity matrix.
func Identity() Matrix4 {
	var m Matrix4
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// TextureDesc describes a 2D texture allocation.
type TextureDesc struct {
	Width  uint32
	Height uint32
	Format Format
}

// Texture is a GPU-resident 2D texture created on a Device.
//
// Handle returns an opaque pointer-sized value the host can bind directly
// (a shader resource view equivalent). Close releases the GPU allocation.
type Texture interface {
	Desc() TextureDesc
	Handle() uintptr
	Close() error
}

// Device is a graphics device capable of allocating textures.
//
// The host's own device and the engine's derived capture device both satisfy
// this contract. Only devices the engine created itself may be closed by the
// engine.
type Device interface {
	// Adapter returns the physical adapter backing this device.
	Adapter() (Adapter, error)

	// CreateTexture2D allocates a texture on this device.
	CreateTexture2D(desc TextureDesc) (Texture, error)

	// Close releases the device. Borrowed host devices must not be closed.
	Close() error
}

// Adapter is a physical graphics adapter from which capture-capable devices
// are derived.
type Adapter interface {
	// CreateMediaDevice creates a dedicated capture-capable device on this
	// adapter. The caller owns the returned device.
	CreateMediaDevice() (Device, error)
}

// Provider hands out the host's graphics device without extending its
// lifetime. Device reports ok=false once the host has torn its device down;
// callers must treat that as the device being gone, not retry.
type Provider interface {
	Device() (Device, bool)
}

// CoordinateSystem is the host-supplied spatial reference used to recompute
// the camera transforms for a delivered frame.
//
// Transforms returns the camera-to-world and camera projection matrices
// relative to this coordinate system, or an error when the pose cannot be
// located for the current frame. A failed locate is expected while tracking
// is lost and must not abort frame delivery.
type CoordinateSystem interface {
	Transforms() (world, projection Matrix4, err error)
}
