package division

import (
	"fmt"
	"strings"
)

// CodeWidth is the fixed width of a division code.
const CodeWidth = 12

// Level is the administrative depth of a division.
type Level int

const (
	// LevelProvince is the province level, the root of the tree.
	LevelProvince Level = iota
	// LevelCity is the prefecture level.
	LevelCity
	// LevelCounty is the county level.
	LevelCounty
	// LevelTown is the township level.
	LevelTown
	// LevelVillage is the village level, the leaves of the tree.
	LevelVillage
)

// Levels lists all the levels from the top of the tree to the bottom.
var Levels = []Level{LevelProvince, LevelCity, LevelCounty, LevelTown, LevelVillage}

var levelNames = [...]string{"province", "city", "county", "town", "village"}

// String returns the lower case name of the level, e.g. "province".
func (l Level) String() string {
	if l < LevelProvince || l > LevelVillage {
		return fmt.Sprintf("Level(%d)", int(l))
	}

	return levelNames[l]
}

// ParseLevel parses a level from its name.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}

	return 0, fmt.Errorf("unknown level %q", s)
}

// Record is one administrative division found on a page.
type Record struct {
	Code  string
	Name  string
	Level Level
}

// PadCode right-pads a code with zeros up to CodeWidth. Codes that are already wide enough are returned unchanged.
func PadCode(code string) string {
	if len(code) >= CodeWidth {
		return code
	}

	return code + strings.Repeat("0", CodeWidth-len(code))
}
