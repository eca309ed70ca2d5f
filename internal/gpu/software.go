package gpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// SoftwareProvider is a heap-backed Provider for hosts without a GPU swap
// chain: probe tools, headless services and tests. Textures are plain byte
// slices; handles are stable for the texture's lifetime.
type SoftwareProvider struct {
	mu     sync.Mutex
	device *SoftwareDevice
	gone   bool
}

// NewSoftwareProvider creates a provider with one software device.
func NewSoftwareProvider() *SoftwareProvider {
	return &SoftwareProvider{device: &SoftwareDevice{}}
}

// Device returns the host device, or false after Drop.
func (p *SoftwareProvider) Device() (Device, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gone {
		return nil, false
	}
	return p.device, true
}

// Drop simulates the host surrendering its device.
func (p *SoftwareProvider) Drop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gone = true
}

// SoftwareDevice is a heap-backed Device.
type SoftwareDevice struct {
	closed   atomic.Bool
	textures atomic.Int64
}

// Adapter returns the device's adapter.
func (d *SoftwareDevice) Adapter() (Adapter, error) {
	if d.closed.Load() {
		return nil, errors.New("gpu: device closed")
	}
	return &softwareAdapter{parent: d}, nil
}

// CreateTexture2D allocates a heap-backed texture.
func (d *SoftwareDevice) CreateTexture2D(desc TextureDesc) (Texture, error) {
	if d.closed.Load() {
		return nil, errors.New("gpu: device closed")
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("gpu: invalid texture size %dx%d", desc.Width, desc.Height)
	}

	t := &SoftwareTexture{
		desc: desc,
		pix:  make([]byte, desc.Format.FrameSize(desc.Width, desc.Height)),
		dev:  d,
	}
	d.textures.Add(1)
	return t, nil
}

// Close marks the device closed. Outstanding textures stay valid; they hold
// their own memory.
func (d *SoftwareDevice) Close() error {
	d.closed.Store(true)
	return nil
}

// LiveTextures reports how many textures are currently open.
func (d *SoftwareDevice) LiveTextures() int64 {
	return d.textures.Load()
}

type softwareAdapter struct {
	parent *SoftwareDevice
}

// CreateMediaDevice derives a capture-side device on the same adapter.
func (a *softwareAdapter) CreateMediaDevice() (Device, error) {
	if a.parent.closed.Load() {
		return nil, errors.New("gpu: device closed")
	}
	return &SoftwareDevice{}, nil
}

// SoftwareTexture is a heap-backed Texture.
type SoftwareTexture struct {
	desc   TextureDesc
	pix    []byte
	dev    *SoftwareDevice
	closed atomic.Bool
}

// Desc returns the creation descriptor.
func (t *SoftwareTexture) Desc() TextureDesc { return t.desc }

// Handle returns the address of the pixel store. Valid until Close.
func (t *SoftwareTexture) Handle() uintptr {
	if t.closed.Load() || len(t.pix) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&t.pix[0]))
}

// Pix exposes the backing pixels for inspection.
func (t *SoftwareTexture) Pix() []byte { return t.pix }

// Close releases the texture.
func (t *SoftwareTexture) Close() error {
	if t.closed.CompareAndSwap(false, true) {
		t.dev.textures.Add(-1)
	}
	return nil
}
