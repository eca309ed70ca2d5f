// Package device manages the engine's long-lived GPU resources: the derived
// capture-capable device and the device-manager binding the capture substrate
// samples against.
//
// Creation is all-or-nothing: a failure at any step leaves nothing cached.
// Release is idempotent and ordered so that nothing depending on the device
// outlives it.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/e7canasta/capture-engine/internal/gpu"
)

// ErrProviderGone indicates the host device provider no longer has a device.
var ErrProviderGone = errors.New("device: host device provider unavailable")

var resetTokens atomic.Uint32

// Manager binds a device to the capture substrate, in the manner of a DXGI
// device manager: the token proves which reset the binding belongs to.
type Manager struct {
	device gpu.Device
	token  uint32
}

// NewManager creates an unbound manager with a fresh reset token.
func NewManager() *Manager {
	return &Manager{token: resetTokens.Add(1)}
}

// Reset binds the manager to a device. The token must match the one issued
// at creation.
func (m *Manager) Reset(dev gpu.Device, token uint32) error {
	if token != m.token {
		return fmt.Errorf("device: reset token mismatch (got %d, want %d)", token, m.token)
	}
	m.device = dev
	return nil
}

// ResetToken returns the token issued when the manager was created.
func (m *Manager) ResetToken() uint32 {
	return m.token
}

// Device returns the bound device, or nil when unbound.
func (m *Manager) Device() gpu.Device {
	if m == nil {
		return nil
	}
	return m.device
}

// Resources holds the derived capture device and its manager binding.
// Both are present or both are absent; the engine treats a partially
// populated value as a bug.
type Resources struct {
	Device  gpu.Device
	Manager *Manager
}

// Create derives a capture-capable device from the host provider's device
// and wraps it in a manager binding.
//
// Steps, each fallible, with no caching on failure:
//  1. borrow the host device from the provider
//  2. derive its adapter
//  3. create a dedicated capture device on that adapter
//  4. create a manager and bind the new device to it
func Create(provider gpu.Provider) (*Resources, error) {
	hostDevice, ok := provider.Device()
	if !ok || hostDevice == nil {
		return nil, ErrProviderGone
	}

	adapter, err := hostDevice.Adapter()
	if err != nil {
		return nil, fmt.Errorf("device: query adapter: %w", err)
	}

	mediaDevice, err := adapter.CreateMediaDevice()
	if err != nil {
		return nil, fmt.Errorf("device: create capture device: %w", err)
	}

	manager := NewManager()
	if err := manager.Reset(mediaDevice, manager.ResetToken()); err != nil {
		mediaDevice.Close()
		return nil, err
	}

	slog.Debug("device: capture device resources created", "reset_token", manager.ResetToken())

	return &Resources{Device: mediaDevice, Manager: manager}, nil
}

// Release tears down the manager binding and then the derived device.
// Safe to call on nil or already-released resources.
func (r *Resources) Release() {
	if r == nil {
		return
	}

	if r.Manager != nil {
		r.Manager.device = nil
		r.Manager = nil
	}

	if r.Device != nil {
		if err := r.Device.Close(); err != nil {
			slog.Warn("device: close capture device", "error", err)
		}
		r.Device = nil
	}
}
