package region

import (
	"fmt"
	"math"
)

// Nesting between the three granularities. These mirror the on-disk region
// format and are not configurable.
const (
	ChunkShift  = 5 // blocks per chunk axis = 1<<ChunkShift
	RegionShift = 5 // chunks per region axis = 1<<RegionShift

	BlocksPerChunk  = 1 << ChunkShift
	ChunksPerRegion = 1 << RegionShift
	BlocksPerRegion = BlocksPerChunk * ChunksPerRegion

	// MaxRegionCoord bounds region coordinates whose block footprint, plus a
	// one-region halo, still fits in an int64.
	MaxRegionCoord = math.MaxInt64 >> (ChunkShift + RegionShift + 1)
)

// Coords is a 2D position at block, chunk or region granularity. Which one is
// implied by where the value came from; convert explicitly with the methods below.
type Coords struct {
	X int64
	Z int64
}

func (c Coords) Add(dx, dz int64) Coords {
	return Coords{X: c.X + dx, Z: c.Z + dz}
}

func (c Coords) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Less orders by X then Z.
func (c Coords) Less(o Coords) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Z < o.Z
}

// Neighbors returns the 8 surrounding coords, x-major from (-1,-1) to (1,1).
func (c Coords) Neighbors() [8]Coords {
	var out [8]Coords
	i := 0
	for dx := int64(-1); dx <= 1; dx++ {
		for dz := int64(-1); dz <= 1; dz++ {
			if dx == 0 && dz == 0 {
				continue
			}
			out[i] = c.Add(dx, dz)
			i++
		}
	}
	return out
}

func (c Coords) MinBlockFromChunk() Coords {
	return Coords{X: c.X << ChunkShift, Z: c.Z << ChunkShift}
}

func (c Coords) MaxBlockFromChunk() Coords {
	return Coords{X: ((c.X + 1) << ChunkShift) - 1, Z: ((c.Z + 1) << ChunkShift) - 1}
}

func (c Coords) MinChunkFromRegion() Coords {
	return Coords{X: c.X << RegionShift, Z: c.Z << RegionShift}
}

func (c Coords) MaxChunkFromRegion() Coords {
	return Coords{X: ((c.X + 1) << RegionShift) - 1, Z: ((c.Z + 1) << RegionShift) - 1}
}

// RegionAddressable reports whether the region's block footprint can be
// computed without overflow.
func (c Coords) RegionAddressable() bool {
	return c.X >= -MaxRegionCoord && c.X <= MaxRegionCoord &&
		c.Z >= -MaxRegionCoord && c.Z <= MaxRegionCoord
}

// MinBlockFromRegion is the lowest block of the region's footprint.
func (c Coords) MinBlockFromRegion() Coords {
	return c.MinChunkFromRegion().MinBlockFromChunk()
}

// MaxBlockFromRegion is the highest block of the region's footprint.
func (c Coords) MaxBlockFromRegion() Coords {
	return c.MaxChunkFromRegion().MaxBlockFromChunk()
}

// ChunkFromBlock floors a block position to its chunk. Arithmetic shift keeps
// negative coordinates in the right chunk.
func (c Coords) ChunkFromBlock() Coords {
	return Coords{X: c.X >> ChunkShift, Z: c.Z >> ChunkShift}
}

func (c Coords) RegionFromChunk() Coords {
	return Coords{X: c.X >> RegionShift, Z: c.Z >> RegionShift}
}

func (c Coords) RegionFromBlock() Coords {
	return c.ChunkFromBlock().RegionFromChunk()
}
