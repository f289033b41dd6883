package partition

import (
	"errors"
	"fmt"

	"github.com/WorldQL/mc-provisioner/internal/mathx"
	"github.com/WorldQL/mc-provisioner/internal/region"
)

// SliceAlignment is the granularity slice widths must be a multiple of.
const SliceAlignment = 512

var ErrInvalidParams = errors.New("invalid partition parameters")

// Params describe how the world is cut into slices. Build with NewParams; a
// zero Params is not usable.
type Params struct {
	WorldDiameter      uint32 `json:"world_diameter"`
	SliceWidth         uint32 `json:"slice_width"`
	AvoidSlicingOrigin bool   `json:"avoid_slicing_origin"`
	OriginRadius       uint32 `json:"origin_radius"`
	CombinedDirectory  string `json:"combined_directory"`
}

func NewParams(worldDiameter, sliceWidth uint32, avoidSlicingOrigin bool, originRadius uint32, combinedDirectory string) (Params, error) {
	p := Params{
		WorldDiameter:      worldDiameter,
		SliceWidth:         sliceWidth,
		AvoidSlicingOrigin: avoidSlicingOrigin,
		OriginRadius:       originRadius,
		CombinedDirectory:  combinedDirectory,
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) Validate() error {
	if p.SliceWidth == 0 || p.SliceWidth%SliceAlignment != 0 {
		return fmt.Errorf("%w: slice_width must be greater than 0 and a multiple of %d", ErrInvalidParams, SliceAlignment)
	}
	if p.WorldDiameter%p.SliceWidth != 0 {
		return fmt.Errorf("%w: world_diameter must be a multiple of slice_width", ErrInvalidParams)
	}
	if p.WorldDiameter < p.SliceWidth {
		return fmt.Errorf("%w: world_diameter must be greater than or equal to slice_width", ErrInvalidParams)
	}
	if p.AvoidSlicingOrigin && p.OriginRadius != p.SliceWidth {
		return fmt.Errorf("%w: origin_radius must match slice_width", ErrInvalidParams)
	}
	if p.CombinedDirectory == "" {
		return fmt.Errorf("%w: combined_directory must not be empty", ErrInvalidParams)
	}
	return nil
}

// SlicesPerRow is the number of slices along one axis of the world.
func (p Params) SlicesPerRow() int64 {
	return int64(p.WorldDiameter / p.SliceWidth)
}

func (p Params) inOrigin(block region.Coords) bool {
	if !p.AvoidSlicingOrigin {
		return false
	}
	r := int64(p.OriginRadius)
	return mathx.Abs(block.X) < r && mathx.Abs(block.Z) < r
}
