package captureengine

import (
	"github.com/e7canasta/capture-engine/internal/gpu"
	"github.com/e7canasta/capture-engine/internal/media"
	"github.com/e7canasta/capture-engine/internal/payload"
)

// Public API - re-export internal types as the stable contract.

// Matrix4 is a row-major 4x4 float32 matrix.
type Matrix4 = gpu.Matrix4

// DeviceProvider hands out the host's GPU device without extending its
// lifetime.
type DeviceProvider = gpu.Provider

// Device is a graphics device capable of allocating textures.
type Device = gpu.Device

// CoordinateSystem is the host-supplied spatial reference for transform
// recomputation.
type CoordinateSystem = gpu.CoordinateSystem

// Platform is the capture substrate the engine drives.
type Platform = media.Platform

// Session is an initialized capture session on the substrate.
type Session = media.Session

// PayloadHandler is the event hub between the delivery sink and the
// engine's classification pipeline.
type PayloadHandler = payload.Handler

// Payload is one sample paired with its encoding metadata.
type Payload = payload.Payload

// NewPayloadHandler creates an empty payload handler for use with
// Engine.SetPayloadHandler.
func NewPayloadHandler() *PayloadHandler {
	return payload.NewHandler()
}
