package device

import (
	"fmt"

	"github.com/kestrel-forge/rhi/bindless"
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/window"
)

// DeviceInfo describes one physical adapter an Instance can bind a
// logical Device to (spec.md §2 "Instance").
type DeviceInfo struct {
	ID           int
	Name         string
	Discrete     bool
	VideoMemory  int64
}

// Backend is the seam a concrete GPU API implementation (backend/wgpu)
// satisfies to plug into Instance/Device. It mirrors the
// renderer/RendererBackend split the teacher uses to keep the
// API-agnostic frame-lifecycle code free of direct wgpu references.
type Backend interface {
	// EnumerateDevices lists the physical adapters available to this
	// backend.
	EnumerateDevices() ([]DeviceInfo, error)

	// CreateGPU creates the rhi.GPU bound to the adapter identified by
	// id, with the given validation level.
	CreateGPU(id int, validation ValidationLevel) (rhi.GPU, error)

	// CreateSwapchain creates a presentation surface for win on gpu,
	// sized for the given number of frames in flight.
	CreateSwapchain(gpu rhi.GPU, win window.Window, framesInFlight int) (rhi.Swapchain, error)

	// CreateBindlessWriter returns the bindless.Writer that performs
	// this backend's concrete descriptor writes for gpu.
	CreateBindlessWriter(gpu rhi.GPU) (bindless.Writer, error)
}

// Instance is the top-level entry point to the RHI, analogous to a
// Vulkan VkInstance (spec.md §2 "Instance"). It owns no GPU resources
// itself; it only enumerates adapters and mints Devices.
type Instance struct {
	backend    Backend
	validation ValidationLevel
}

// Create creates an Instance bound to backend, with the given
// validation level applied to every Device it subsequently creates
// (spec.md §2 "Instance.Create(api, validation_level) -> Instance").
func Create(backend Backend, validation ValidationLevel) *Instance {
	return &Instance{backend: backend, validation: validation}
}

// DeviceInfoList enumerates the physical adapters this Instance's
// backend can bind a Device to.
func (inst *Instance) DeviceInfoList() ([]DeviceInfo, error) {
	return inst.backend.EnumerateDevices()
}

// CreateDevice creates the single logical Device bound to the physical
// adapter identified by id, with framesInFlight frames of CPU/GPU
// overlap (spec.md §2 "Instance.CreateDevice(id, frames_in_flight)").
func (inst *Instance) CreateDevice(id int, framesInFlight int, opts ...Option) (*Device, error) {
	gpu, err := inst.backend.CreateGPU(id, inst.validation)
	if err != nil {
		return nil, fmt.Errorf("device: creating GPU for adapter %d: %w", id, err)
	}
	return newDevice(inst.backend, gpu, framesInFlight, opts...)
}
