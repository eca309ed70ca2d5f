package device_test

import (
	"errors"
	"testing"

	"github.com/e7canasta/capture-engine/internal/device"
	"github.com/e7canasta/capture-engine/internal/gpu"
)

func TestCreate(t *testing.T) {
	res, err := device.Create(gpu.NewSoftwareProvider())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer res.Release()

	if res.Device == nil {
		t.Error("Resources.Device = nil")
	}
	if res.Manager == nil {
		t.Fatal("Resources.Manager = nil")
	}
	if res.Manager.Device() != res.Device {
		t.Error("manager not bound to the derived device")
	}
	if res.Manager.ResetToken() == 0 {
		t.Error("ResetToken() = 0")
	}
}

func TestCreate_ProviderGone(t *testing.T) {
	provider := gpu.NewSoftwareProvider()
	provider.Drop()

	if _, err := device.Create(provider); !errors.Is(err, device.ErrProviderGone) {
		t.Errorf("Create() error = %v, want ErrProviderGone", err)
	}
}

func TestManager_ResetTokenMismatch(t *testing.T) {
	mgr := device.NewManager()
	dev := &gpu.SoftwareDevice{}

	if err := mgr.Reset(dev, mgr.ResetToken()+1); err == nil {
		t.Error("Reset() with wrong token expected error")
	}
	if mgr.Device() != nil {
		t.Error("manager bound despite token mismatch")
	}

	if err := mgr.Reset(dev, mgr.ResetToken()); err != nil {
		t.Errorf("Reset() with issued token error = %v", err)
	}
	if mgr.Device() != dev {
		t.Error("manager not bound after valid reset")
	}
}

func TestManager_TokensAreDistinct(t *testing.T) {
	a := device.NewManager()
	b := device.NewManager()
	if a.ResetToken() == b.ResetToken() {
		t.Error("two managers issued the same reset token")
	}
}

func TestManager_NilDevice(t *testing.T) {
	var mgr *device.Manager
	if mgr.Device() != nil {
		t.Error("nil manager returned a device")
	}
}

func TestResources_Release(t *testing.T) {
	res, err := device.Create(gpu.NewSoftwareProvider())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	mgr := res.Manager
	res.Release()

	if res.Device != nil || res.Manager != nil {
		t.Error("Release() left fields populated")
	}
	if mgr.Device() != nil {
		t.Error("manager still bound after release")
	}

	// Idempotent, including on nil.
	res.Release()
	var nilRes *device.Resources
	nilRes.Release()
}
