package embedded

import (
	"fmt"
	"plugin"
)

// TrackSurfaces advances each node of surf by its current Velocity scaled
// by dt, matching EmbeddedBoundaryOperator::TrackSurfaces. phiLayers names
// how many narrow-band layers the caller should re-tag afterward (the
// original threads this through to avoid retagging the whole domain).
func TrackSurfaces(surf *Surface, dt float64, phiLayers int) {
	for i := range surf.Nodes {
		surf.Nodes[i][0] += dt * surf.Velocity[i][0]
		surf.Nodes[i][1] += dt * surf.Velocity[i][1]
		surf.Nodes[i][2] += dt * surf.Velocity[i][2]
	}
	_ = phiLayers
}

// TrackUpdatedSurfaces recomputes per-node velocity from an externally
// supplied displacement field (e.g. from a structural solver or a
// UserDefinedDynamics plugin), matching
// EmbeddedBoundaryOperator::TrackUpdatedSurfaces.
func TrackUpdatedSurfaces(surf *Surface, newPositions [][3]float64, dt float64) {
	for i := range surf.Nodes {
		surf.Velocity[i] = [3]float64{
			(newPositions[i][0] - surf.Nodes[i][0]) / dt,
			(newPositions[i][1] - surf.Nodes[i][1]) / dt,
			(newPositions[i][2] - surf.Nodes[i][2]) / dt,
		}
		surf.Nodes[i] = newPositions[i]
	}
}

// UserDefinedDynamics is the collaborator contract for externally
// programmed surface motion, matching
// EmbeddedBoundaryOperator::SetupUserDefinedDynamicsCalculator /
// ApplyUserDefinedSurfaceDynamics.
type UserDefinedDynamics interface {
	// GetDisplacement returns the per-node displacement to apply at
	// simulation time t with step size dt.
	GetDisplacement(t, dt float64, nodes [][3]float64) ([][3]float64, error)
}

// LoadUserDefinedDynamics loads a Go plugin (.so) exposing a symbol named
// "Dynamics" implementing UserDefinedDynamics, matching the original's
// dynamically-loaded user subroutine for surface motion (Design Note 5).
// If the platform does not support the plugin package (anything but
// linux/amd64 or linux/arm64), callers should treat the returned error as
// a configuration error and fall back to TrackSurfaces with a
// zero-velocity surface rather than aborting the run.
func LoadUserDefinedDynamics(path string) (UserDefinedDynamics, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("embedded: failed to load user-defined dynamics plugin %q: %w", path, err)
	}
	sym, err := p.Lookup("Dynamics")
	if err != nil {
		return nil, fmt.Errorf("embedded: plugin %q missing symbol Dynamics: %w", path, err)
	}
	dyn, ok := sym.(UserDefinedDynamics)
	if !ok {
		return nil, fmt.Errorf("embedded: plugin %q symbol Dynamics does not implement UserDefinedDynamics", path)
	}
	return dyn, nil
}
