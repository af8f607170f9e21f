package barrier

import (
	"testing"

	"github.com/kestrel-forge/rhi/rhi"
)

func TestNoBarrierOnFirstUsageWithoutImport(t *testing.T) {
	p := Compute(Input{
		Accesses: []Access{
			{Node: 0, ResID: 1, Kind: KindImage, State: rhi.ColorTarget},
		},
	})
	if len(p.InImage[0]) != 0 {
		t.Fatalf("expected no in-barrier for a resource with no prior usage and no import, got %v", p.InImage[0])
	}
}

func TestPriorStateProducesInBarrierOnTransientFirstUsage(t *testing.T) {
	p := Compute(Input{
		Accesses: []Access{
			{Node: 0, ResID: 1, Kind: KindImage, State: rhi.ShaderSampled},
		},
		PriorState: map[int]rhi.ResourceState{1: rhi.ColorTarget},
	})
	if len(p.InImage[0]) != 1 {
		t.Fatalf("expected one in-barrier from the carried-over prior state, got %d", len(p.InImage[0]))
	}
	b := p.InImage[0][0]
	if b.SrcLayout != rhi.ColorTarget.Layout() || b.DstLayout != rhi.ShaderSampled.Layout() {
		t.Fatalf("unexpected barrier layouts: %+v", b)
	}
}

func TestImportedInitialStateProducesInBarrier(t *testing.T) {
	p := Compute(Input{
		Accesses: []Access{
			{Node: 0, ResID: 1, Kind: KindImage, State: rhi.ShaderSampled},
		},
		Imported: map[int]Imported{
			1: {Declared: true, Initial: rhi.TransferDst, Final: rhi.ShaderSampled},
		},
	})
	if len(p.InImage[0]) != 1 {
		t.Fatalf("expected one in-barrier from the declared initial state, got %d", len(p.InImage[0]))
	}
	b := p.InImage[0][0]
	if b.SrcLayout != rhi.TransferDst.Layout() || b.DstLayout != rhi.ShaderSampled.Layout() {
		t.Fatalf("unexpected barrier layouts: %+v", b)
	}
}

func TestSameLayoutSkipsBarrier(t *testing.T) {
	p := Compute(Input{
		Accesses: []Access{
			{Node: 0, ResID: 1, Kind: KindImage, State: rhi.ShaderSampled},
			{Node: 1, ResID: 1, Kind: KindImage, State: rhi.ShaderSampled},
		},
	})
	if len(p.InImage[1]) != 0 {
		t.Fatalf("expected no barrier between two usages sharing a layout, got %v", p.InImage[1])
	}
}

func TestImageOutBarrierEmittedForDeclaredFinalState(t *testing.T) {
	p := Compute(Input{
		Accesses: []Access{
			{Node: 0, ResID: 1, Kind: KindImage, State: rhi.ColorTarget},
		},
		Imported: map[int]Imported{
			1: {Declared: true, Initial: rhi.ColorTarget, Final: rhi.PresentTexture},
		},
	})
	if len(p.OutImage[0]) != 1 {
		t.Fatalf("expected one out-barrier on the last user, got %d", len(p.OutImage[0]))
	}
	if p.OutImage[0][0].DstLayout != rhi.PresentTexture.Layout() {
		t.Fatalf("expected out-barrier to target the declared final layout")
	}
}

func TestBufferInBarrierOnlyWhenAccessDiffers(t *testing.T) {
	p := Compute(Input{
		Accesses: []Access{
			{Node: 0, ResID: 2, Kind: KindBuffer, State: rhi.ShaderStorageRead},
			{Node: 1, ResID: 2, Kind: KindBuffer, State: rhi.ShaderStorageRead},
			{Node: 2, ResID: 2, Kind: KindBuffer, State: rhi.ShaderStorageWrite},
		},
	})
	if len(p.InBuffer[1]) != 0 {
		t.Fatalf("expected no barrier between two reads with identical access, got %v", p.InBuffer[1])
	}
	if len(p.InBuffer[2]) != 1 {
		t.Fatalf("expected a barrier when access flags differ, got %v", p.InBuffer[2])
	}
}

func TestBufferPackAlwaysBarriersAfterFirstUsage(t *testing.T) {
	p := Compute(Input{
		Accesses: []Access{
			{Node: 0, ResID: 3, Kind: KindBufferPack, State: rhi.ShaderStorageWrite},
			{Node: 1, ResID: 3, Kind: KindBufferPack, State: rhi.ShaderStorageRead},
		},
	})
	if len(p.InBuffer[0]) != 0 {
		t.Fatalf("expected no barrier on the pack's first usage, got %v", p.InBuffer[0])
	}
	if len(p.InBuffer[1]) != 1 {
		t.Fatalf("expected a barrier on the pack's second usage, got %v", p.InBuffer[1])
	}
}
