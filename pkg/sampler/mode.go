package sampler

import (
	"fmt"
	"strings"
)

// Mode selects the interpolation kernel.
type Mode int

const (
	// Nearest returns the value of the closest voxel center.
	Nearest Mode = iota
	// Linear interpolates trilinearly between the 8 surrounding voxels.
	Linear
	// Cubic applies a Catmull-Rom kernel over a 4×4×4 neighbourhood.
	Cubic
)

// ClampMode converts an integer to a Mode, clamping out-of-range values to
// the nearest valid mode instead of failing.
func ClampMode(m int) Mode {
	switch {
	case m < int(Nearest):
		return Nearest
	case m > int(Cubic):
		return Cubic
	}
	return Mode(m)
}

// ParseMode parses "nearest", "linear" or "cubic" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "nearestneighbor":
		return Nearest, nil
	case "linear", "trilinear":
		return Linear, nil
	case "cubic", "tricubic":
		return Cubic, nil
	}
	return Nearest, fmt.Errorf("unknown interpolation mode %q (use nearest, linear or cubic)", s)
}

func (m Mode) String() string {
	switch m {
	case Nearest:
		return "nearest"
	case Linear:
		return "linear"
	case Cubic:
		return "cubic"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MarshalText lets modes appear by name in YAML and flags.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(ClampMode(int(m)).String()), nil
}

// UnmarshalText accepts the names ParseMode understands.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
