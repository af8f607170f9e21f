package rendergraph

import (
	"github.com/kestrel-forge/rhi/registry"
	"github.com/kestrel-forge/rhi/rhi"
)

// TextureInfo describes a transient texture's creation parameters.
// Fields may be marked dependent on another resource version, in which
// case their value is copied from that version's concrete texture
// before each compile (spec.md §3 "Dependent values", §4.7).
type TextureInfo struct {
	Format         rhi.PixelFmt
	Type           rhi.TextureType
	Extent         rhi.Dim3D
	MipLevels      int
	Samples        int
	Layers         int
	CubeCompatible bool
	Usage          rhi.Usage

	// DependentOn, when Valid, names a version whose concrete texture's
	// attributes flagged below override this struct's own values.
	DependentOn        registry.ResourceVersion
	DependentOnValid   bool
	FormatDependent    bool
	ExtentDependent    bool
	MipLevelsDependent bool
	SamplesDependent   bool
}

// BufferInfo describes a transient buffer's creation parameters.
type BufferInfo struct {
	Size    int64
	Visible bool
	Usage   rhi.Usage
}

// importedUsage records the initial/final declared states of an
// imported resource, consulted by the Barrier Planner for the resource's
// in-barrier (when it has no prior usage this compile) and out-barrier
// (when it is last used, spec.md §4.6).
type importedUsage struct {
	initial rhi.ResourceState
	final   rhi.ResourceState
}

// resourceUsageSpan records a ResourceId's first and last usage within
// one compile, by dependency level; ties within a level keep the
// earliest-recorded node as first and the latest-recorded as last
// (spec.md §4.4 step 3).
type resourceUsageSpan struct {
	firstNode  int
	firstState rhi.ResourceState
	lastNode   int
	lastState  rhi.ResourceState
	hasUsage   bool
}
