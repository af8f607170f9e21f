// Package rhierr defines the RHI's error taxonomy (spec.md §7) as
// sentinel errors, matched with errors.Is against wrapped causes.
package rhierr

import "errors"

// ErrUnsupported means the requested device lacks required
// features/extensions.
var ErrUnsupported = errors.New("rhi: unsupported")

// ErrOutOfMemory means a device or host allocation failed.
var ErrOutOfMemory = errors.New("rhi: out of memory")

// ErrInvalidGraph means a render graph has a cycle, a dangling resource
// version, a double writer, or misuses a render-pass attachment slot.
var ErrInvalidGraph = errors.New("rhi: invalid graph")

// ErrCapabilityMismatch means a command was issued on a node whose
// capability bits forbid it.
var ErrCapabilityMismatch = errors.New("rhi: capability mismatch")

// ErrStagingTooSmall means a transfer request exceeds the staging
// buffer's capacity; non-recoverable for that request.
var ErrStagingTooSmall = errors.New("rhi: staging buffer too small")

// ErrShaderCompile is surfaced from the external shader compiler.
var ErrShaderCompile = errors.New("rhi: shader compile error")

// ErrDeviceLost is fatal: the caller must destroy everything created
// from the device's GPU and reopen the driver.
var ErrDeviceLost = errors.New("rhi: device lost")

// ErrOutOfBindlessSlots means a bindless binding's free-index set is
// exhausted (spec.md §4.10).
var ErrOutOfBindlessSlots = errors.New("rhi: out of bindless slots")
