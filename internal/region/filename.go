package region

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	// Extension is the suffix of every region file, without the dot.
	Extension = "mca"
	// LevelFile is the per-world metadata copied into the master archive.
	LevelFile = "level.dat"

	filenamePattern = `^\s*r\.(-?\d+)\.(-?\d+)\.mca\s*$`
)

// Categories are the world subdirectories that hold region files. Every
// server and the master archive use the same names.
var Categories = [...]string{"region", "entities", "poi"}

// Matcher parses region filenames. Build one with NewMatcher and share it.
type Matcher struct {
	rx *regexp.Regexp
}

func NewMatcher() *Matcher {
	return &Matcher{rx: regexp.MustCompile(filenamePattern)}
}

// Parse extracts the region coordinates from a name like "r.-1.0.mca".
func (m *Matcher) Parse(name string) (Coords, bool) {
	sm := m.rx.FindStringSubmatch(name)
	if sm == nil {
		return Coords{}, false
	}
	x, err := strconv.ParseInt(sm[1], 10, 64)
	if err != nil {
		return Coords{}, false
	}
	z, err := strconv.ParseInt(sm[2], 10, 64)
	if err != nil {
		return Coords{}, false
	}
	return Coords{X: x, Z: z}, true
}

// Filename is the canonical file name of a region.
func Filename(c Coords) string {
	return fmt.Sprintf("r.%d.%d.%s", c.X, c.Z, Extension)
}
