package leaf

import (
	"fmt"

	"github.com/l1jgo/leafsys/internal/core/handle"
	"github.com/l1jgo/leafsys/internal/geom"
)

// RenderHandle addresses a registered renderable.
type RenderHandle handle.Handle

// ShadowHandle addresses a registered shadow or flashlight projection.
type ShadowHandle handle.Handle

const (
	InvalidRenderHandle = RenderHandle(handle.Invalid)
	InvalidShadowHandle = ShadowHandle(handle.Invalid)
)

func (h RenderHandle) slot() int { return handle.Handle(h).Index() }
func (h ShadowHandle) slot() int { return handle.Handle(h).Index() }

// LeafIndex is a visibility cell id as reported by the spatial query.
type LeafIndex uint16

const InvalidLeaf LeafIndex = 0xFFFF

// Area sentinels for a renderable's cached area.
const (
	AreaMultiple = -1 // leaves span more than one area
	AreaNone     = -2 // renderable occupies no leaves
)

// NumSubsystemSlots is the number of per-leaf data slots owned by external
// collaborators (detail objects, sprite batches).
const NumSubsystemSlots = 2

// RenderGroup classifies a renderable for draw pass and sort policy. The
// first six values are size tiers of the two opaque groups and only appear in
// render lists; registration uses GroupOpaqueStatic / GroupOpaqueEntity.
type RenderGroup uint8

const (
	GroupOpaqueStaticHuge RenderGroup = iota
	GroupOpaqueEntityHuge
	GroupOpaqueStaticLarge
	GroupOpaqueEntityLarge
	GroupOpaqueStaticMedium
	GroupOpaqueEntityMedium
	GroupOpaqueStatic
	GroupOpaqueEntity
	GroupTranslucentEntity
	GroupViewModelOpaque
	GroupViewModelTranslucent
	GroupOpaqueBrush
	GroupOther
	GroupCount
)

func (g RenderGroup) String() string {
	switch g {
	case GroupOpaqueStaticHuge:
		return "OpaqueStaticHuge"
	case GroupOpaqueEntityHuge:
		return "OpaqueEntityHuge"
	case GroupOpaqueStaticLarge:
		return "OpaqueStaticLarge"
	case GroupOpaqueEntityLarge:
		return "OpaqueEntityLarge"
	case GroupOpaqueStaticMedium:
		return "OpaqueStaticMedium"
	case GroupOpaqueEntityMedium:
		return "OpaqueEntityMedium"
	case GroupOpaqueStatic:
		return "OpaqueStatic"
	case GroupOpaqueEntity:
		return "OpaqueEntity"
	case GroupTranslucentEntity:
		return "TranslucentEntity"
	case GroupViewModelOpaque:
		return "ViewModelOpaque"
	case GroupViewModelTranslucent:
		return "ViewModelTranslucent"
	case GroupOpaqueBrush:
		return "OpaqueBrush"
	case GroupOther:
		return "Other"
	default:
		return fmt.Sprintf("Unknown(%d)", int(g))
	}
}

func (g RenderGroup) IsTranslucent() bool {
	return g == GroupTranslucentEntity || g == GroupViewModelTranslucent
}

func (g RenderGroup) IsViewModel() bool {
	return g == GroupViewModelOpaque || g == GroupViewModelTranslucent
}

// registrable reports whether a renderable may be classified into g.
func (g RenderGroup) registrable() bool {
	return g >= GroupOpaqueStatic && g < GroupCount
}

// RenderFlags are per-renderable state bits.
type RenderFlags uint16

const (
	FlagHasChanged RenderFlags = 1 << iota // queued for reinsertion
	FlagStaticProp
	FlagBrushModel
	FlagStudioModel
	FlagAlternateSort    // translucent sort uses the render origin, not the bounds centre
	FlagDisableRendering // stays in the tree but is never emitted
	FlagViewModel        // drawn from the view-model list, never in a leaf
)

// userFlags may be toggled by callers through SetRenderableFlags.
const userFlags = FlagAlternateSort | FlagDisableRendering

// ModelKind is the owner's model type; it decides shadow receiver eligibility.
type ModelKind uint8

const (
	ModelOther ModelKind = iota // sprites, particles, anything without receiver geometry
	ModelBrush
	ModelStudio
	ModelStaticProp
)

// ShadowFlags select the projection type of a shadow record.
type ShadowFlags uint8

const (
	ShadowFlagShadow ShadowFlags = 1 << iota
	ShadowFlagFlashlight

	ShadowFlagProjectedTextureMask = ShadowFlagShadow | ShadowFlagFlashlight
)

// ReceiverKind tells the shadow manager which receiver geometry to register.
type ReceiverKind uint8

const (
	ReceiverBrushModel ReceiverKind = iota
	ReceiverStaticProp
	ReceiverStudioModel
)

func (k ReceiverKind) String() string {
	switch k {
	case ReceiverBrushModel:
		return "BrushModel"
	case ReceiverStaticProp:
		return "StaticProp"
	case ReceiverStudioModel:
		return "StudioModel"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// SpatialQuery is the precomputed spatial subdivision. EnumerateLeaves must be
// safe for concurrent callers when parallel reinsertion is enabled.
type SpatialQuery interface {
	LeafCount() int
	LeafArea(leaf LeafIndex) int
	// EnumerateLeaves calls fn for each leaf touching vol until fn returns
	// false. Returns false if enumeration was stopped.
	EnumerateLeaves(vol geom.Volume, fn func(leaf LeafIndex) bool) bool
}

// Owner is the object behind a renderable.
type Owner interface {
	RenderBounds() (mins, maxs geom.Vector) // local space
	RenderOrigin() geom.Vector
	RenderAngles() geom.Angles
	LocalOrigin() geom.Vector // offset from the followed entity
	FollowedEntity() Owner    // nil when not parented
	IsTransparent() bool
	IsTwoPass() bool
	IsViewModel() bool
	ComputeFxBlend() int // 0..255
	ShouldReceiveProjectedTextures(flags ShadowFlags) bool
	ModelKind() ModelKind
}

// ShadowManager registers receiver geometry for shadows that land on
// renderables. sourceID is the id passed to AddShadow.
type ShadowManager interface {
	AddShadowToReceiver(sourceID int, owner Owner, kind ReceiverKind)
	RemoveAllShadowsFromReceiver(owner Owner, kind ReceiverKind)
}

// SubsystemReleaser is implemented by per-leaf subsystem data that holds
// resources; Release runs when the leaf table is torn down.
type SubsystemReleaser interface {
	Release()
}
