package device

// ValidationLevel controls how much backend validation is enabled at
// instance creation (spec.md §2 "Environment / CLI"), the only external
// knob the RHI exposes for diagnostics.
type ValidationLevel int

const (
	// ValidationNone disables validation entirely.
	ValidationNone ValidationLevel = iota

	// ValidationDebugInfoOnly enables debug labels and object naming
	// only, with no extra validation cost.
	ValidationDebugInfoOnly

	// ValidationBasic enables the backend's standard validation layer.
	ValidationBasic

	// ValidationExtensive enables the backend's most thorough validation,
	// including synchronization validation where the backend supports it.
	ValidationExtensive
)

func (v ValidationLevel) String() string {
	switch v {
	case ValidationNone:
		return "none"
	case ValidationDebugInfoOnly:
		return "debug-info-only"
	case ValidationBasic:
		return "basic"
	case ValidationExtensive:
		return "extensive"
	default:
		return "unknown"
	}
}
