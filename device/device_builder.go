package device

// Option is a functional option applied to a Device during construction
// via Instance.CreateDevice, following the same WithX builder shape the
// teacher uses for its Renderer and Window types.
type Option func(*Device)

// WithTransferStagingCapacity sets the size, in bytes, of each of the
// Transfer Engine's two rotating staging buffers. Defaults to 64 MiB.
func WithTransferStagingCapacity(bytes int64) Option {
	return func(d *Device) {
		d.stagingCapacity = bytes
	}
}

// WithMaxGraphsPerFrame sets the upper bound on how many render graphs
// ExecuteConsecutive will be asked to run within a single frame, used to
// size the render-graph timeline semaphore's per-frame stride (spec.md
// §4.1 "(absolute_frame × (K+1) + graph_idx + 1)"). Defaults to 4.
func WithMaxGraphsPerFrame(k uint64) Option {
	return func(d *Device) {
		d.maxGraphsPerFrame = k
	}
}
