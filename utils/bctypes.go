package utils

import "strings"

// BCType represents a boundary condition assigned to a mesh face, per §6 of
// the configuration surface ("inlet", "outlet", "wall", "symmetry").
type BCType uint16

const (
	// BCNone indicates no boundary condition (interior face).
	BCNone BCType = iota

	BCInlet  // inflow: full primitive state prescribed
	BCOutlet // outflow: full primitive state prescribed
	BCWall   // reflect the normal velocity component, copy the rest
	BCSymmetry

	// BCPartitionBoundary marks a face shared with a neighboring rank; it is
	// resolved through halo exchange rather than a boundary closure.
	BCPartitionBoundary
)

// String returns the string representation of a BCType.
func (bc BCType) String() string {
	names := map[BCType]string{
		BCNone:              "None",
		BCInlet:             "Inlet",
		BCOutlet:            "Outlet",
		BCWall:              "Wall",
		BCSymmetry:          "Symmetry",
		BCPartitionBoundary: "PartitionBoundary",
	}
	if name, ok := names[bc]; ok {
		return name
	}
	return "Unknown"
}

// BCNameMap maps the §6 configuration names (case-insensitive) to BCType.
var BCNameMap = map[string]BCType{
	"inlet":    BCInlet,
	"inflow":   BCInlet,
	"outlet":   BCOutlet,
	"outflow":  BCOutlet,
	"wall":     BCWall,
	"symmetry": BCSymmetry,
	"symmetric": BCSymmetry,
}

// ParseBCName converts a boundary condition name string to BCType. Unknown
// names default to Wall, matching the teacher's conservative fallback.
func ParseBCName(name string) BCType {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	if bcType, ok := BCNameMap[lowerName]; ok {
		return bcType
	}
	return BCWall
}

// IsWallOrSymmetry reports whether a physical boundary face reflects flow
// rather than prescribing it, the condition under which a phase-transitioned
// cell's new material id mirrors onto the ghost across that face.
func (bc BCType) IsWallOrSymmetry() bool {
	return bc == BCWall || bc == BCSymmetry
}
