package partition

import (
	"math"

	"github.com/WorldQL/mc-provisioner/internal/mathx"
	"github.com/WorldQL/mc-provisioner/internal/region"
)

// Unowned marks positions outside the sliced world.
const Unowned int16 = -1

// Blocks further out than this are far outside any world and would overflow
// the slice arithmetic.
const maxBlock = math.MaxInt64 / 2

// Owner returns the 0-based server index owning a block position, or Unowned
// when the position lies outside the world or shardCount is zero.
//
// Slices are numbered row-major across the world and dealt out to servers
// modulo shardCount. The optional origin zone always belongs to server 0.
func Owner(block region.Coords, p Params, shardCount uint8) int16 {
	if shardCount == 0 || p.SliceWidth == 0 {
		return Unowned
	}
	if block.X > maxBlock || block.X < -maxBlock || block.Z > maxBlock || block.Z < -maxBlock {
		return Unowned
	}
	if p.inOrigin(block) {
		return 0
	}

	half := int64(p.WorldDiameter / 2)
	width := int64(p.SliceWidth)
	perRow := p.SlicesPerRow()

	sx := mathx.FloorDiv(block.X+half, width)
	sz := mathx.FloorDiv(block.Z+half, width)
	if sx < 0 || sz < 0 || sx >= perRow || sz >= perRow {
		return Unowned
	}

	position := sx + sz*perRow
	return int16(mathx.Mod(position, int64(shardCount)))
}

// RegionOwner is the owner of a region's lowest block. Regions too far out to
// address in blocks are Unowned.
func RegionOwner(r region.Coords, p Params, shardCount uint8) int16 {
	if !r.RegionAddressable() {
		return Unowned
	}
	return Owner(r.MinBlockFromRegion(), p, shardCount)
}
