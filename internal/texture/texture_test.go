package texture_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/e7canasta/capture-engine/internal/device"
	"github.com/e7canasta/capture-engine/internal/gpu"
	"github.com/e7canasta/capture-engine/internal/texture"
)

func newBoundManager(t *testing.T) (*gpu.SoftwareDevice, *device.Manager) {
	t.Helper()
	dev := &gpu.SoftwareDevice{}
	mgr := device.NewManager()
	if err := mgr.Reset(dev, mgr.ResetToken()); err != nil {
		t.Fatalf("bind manager: %v", err)
	}
	return dev, mgr
}

func TestCreate_FailFast(t *testing.T) {
	dev, mgr := newBoundManager(t)

	tests := []struct {
		name    string
		dev     gpu.Device
		mgr     *device.Manager
		width   uint32
		height  uint32
		wantErr bool
	}{
		{name: "valid", dev: dev, mgr: mgr, width: 64, height: 48},
		{name: "nil device", dev: nil, mgr: mgr, width: 64, height: 48, wantErr: true},
		{name: "nil manager", dev: dev, mgr: nil, width: 64, height: 48, wantErr: true},
		{name: "unbound manager", dev: dev, mgr: device.NewManager(), width: 64, height: 48, wantErr: true},
		{name: "zero width", dev: dev, mgr: mgr, width: 0, height: 48, wantErr: true},
		{name: "zero height", dev: dev, mgr: mgr, width: 64, height: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := texture.Create(tt.dev, tt.mgr, tt.width, tt.height)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				defer tex.Reset()
				if tex.Handle() == 0 {
					t.Error("Handle() = 0 for live texture")
				}
			}
		})
	}

	if _, err := texture.Create(nil, mgr, 64, 48); !errors.Is(err, texture.ErrNoDevice) {
		t.Errorf("Create(nil device) error = %v, want ErrNoDevice", err)
	}
}

func TestSharedTexture_Matches(t *testing.T) {
	dev, mgr := newBoundManager(t)
	tex, err := texture.Create(dev, mgr, 64, 48)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer tex.Reset()

	if !tex.Matches(64, 48) {
		t.Error("Matches(64, 48) = false")
	}
	if tex.Matches(64, 49) || tex.Matches(128, 48) {
		t.Error("Matches() = true for different dimensions")
	}

	var nilTex *texture.SharedTexture
	if nilTex.Matches(64, 48) {
		t.Error("nil texture matches")
	}
}

func TestSharedTexture_CopyFrom(t *testing.T) {
	dev, mgr := newBoundManager(t)
	tex, err := texture.Create(dev, mgr, 4, 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer tex.Reset()

	frame := gpu.FormatBGRA8.FrameSize(4, 2)

	if err := tex.CopyFrom(nil); err == nil {
		t.Error("CopyFrom(nil) expected error")
	}

	// Short sample fills a prefix.
	if err := tex.CopyFrom([]byte{1, 2, 3}); err != nil {
		t.Fatalf("CopyFrom(short) error = %v", err)
	}
	if got := tex.Bytes()[:3]; !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("prefix = %v, want [1 2 3]", got)
	}

	// Oversized sample is truncated to the frame.
	big := make([]byte, frame+16)
	for i := range big {
		big[i] = 0xAB
	}
	if err := tex.CopyFrom(big); err != nil {
		t.Fatalf("CopyFrom(oversized) error = %v", err)
	}
	if len(tex.Bytes()) != frame {
		t.Errorf("backing buffer = %d bytes, want %d", len(tex.Bytes()), frame)
	}
}

type poseStub struct {
	world gpu.Matrix4
	proj  gpu.Matrix4
	err   error
}

func (p poseStub) Transforms() (gpu.Matrix4, gpu.Matrix4, error) {
	return p.world, p.proj, p.err
}

func TestSharedTexture_UpdateTransforms(t *testing.T) {
	dev, mgr := newBoundManager(t)
	tex, err := texture.Create(dev, mgr, 4, 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer tex.Reset()

	world := gpu.Identity()
	world[1][3] = 3

	if err := tex.UpdateTransforms(poseStub{world: world, proj: gpu.Identity()}); err != nil {
		t.Fatalf("UpdateTransforms() error = %v", err)
	}
	if tex.CameraToWorld != world {
		t.Errorf("CameraToWorld = %+v, want %+v", tex.CameraToWorld, world)
	}

	// A locate failure must leave the cached transforms untouched.
	if err := tex.UpdateTransforms(poseStub{err: errors.New("tracking lost")}); err == nil {
		t.Fatal("UpdateTransforms() expected error on locate failure")
	}
	if tex.CameraToWorld != world {
		t.Errorf("cached transform mutated on failure: %+v", tex.CameraToWorld)
	}

	if err := tex.UpdateTransforms(nil); err == nil {
		t.Error("UpdateTransforms(nil) expected error")
	}
}

func TestSharedTexture_Reset(t *testing.T) {
	dev, mgr := newBoundManager(t)
	tex, err := texture.Create(dev, mgr, 64, 48)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if dev.LiveTextures() != 1 {
		t.Fatalf("LiveTextures() = %d, want 1", dev.LiveTextures())
	}

	tex.Reset()
	tex.Reset() // idempotent

	if dev.LiveTextures() != 0 {
		t.Errorf("LiveTextures() = %d after Reset, want 0", dev.LiveTextures())
	}
	if tex.Handle() != 0 {
		t.Error("Handle() != 0 after Reset")
	}
	if err := tex.CopyFrom([]byte{1}); err == nil {
		t.Error("CopyFrom() after Reset expected error")
	}

	var nilTex *texture.SharedTexture
	nilTex.Reset()
}
