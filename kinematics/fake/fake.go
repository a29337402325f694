// Package fake provides deterministic kinematic models for tests and demos.
package fake

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/armservo/kinematics"
)

// Frame names understood by the fake models.
const (
	BaseFrame = "base"
	EEFrame   = "ee"
)

// Gantry6 is a six degree-of-freedom cartesian gantry with a spherical
// wrist: three prismatic joints along x, y, z followed by three revolute
// joints about x, y, z at the tool point. Its Jacobian is the identity at
// every configuration, which makes it convenient for exercising the servo
// math without inverse-kinematics noise.
type Gantry6 struct {
	names  []string
	bounds map[string]kinematics.Bounds
}

// NewGantry6 returns a gantry with generous symmetric bounds on every joint.
func NewGantry6() *Gantry6 {
	g := &Gantry6{
		names:  []string{"gantry_x", "gantry_y", "gantry_z", "wrist_x", "wrist_y", "wrist_z"},
		bounds: map[string]kinematics.Bounds{},
	}
	for _, name := range g.names {
		g.bounds[name] = kinematics.Bounds{
			PositionBounded: true, MinPosition: -100, MaxPosition: 100,
			VelocityBounded: true, MinVelocity: -100, MaxVelocity: 100,
			AccelerationBounded: true, MinAcceleration: -1000, MaxAcceleration: 1000,
		}
	}
	return g
}

// SetBounds overrides the bounds of one joint.
func (g *Gantry6) SetBounds(name string, b kinematics.Bounds) {
	g.bounds[name] = b
}

// ActiveJointNames implements kinematics.Model.
func (g *Gantry6) ActiveJointNames() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// VariableBounds implements kinematics.Model.
func (g *Gantry6) VariableBounds(name string) (kinematics.Bounds, bool) {
	b, ok := g.bounds[name]
	return b, ok
}

// Jacobian implements kinematics.Model; it is the 6x6 identity everywhere.
func (g *Gantry6) Jacobian(positions []float64) (*mat.Dense, error) {
	if len(positions) != len(g.names) {
		return nil, errors.Errorf("expected %d positions, got %d", len(g.names), len(positions))
	}
	j := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		j.Set(i, i, 1)
	}
	return j, nil
}

// GlobalTransform implements kinematics.Model.
func (g *Gantry6) GlobalTransform(frame string, positions []float64) (kinematics.Transform, error) {
	if len(positions) != len(g.names) {
		return kinematics.Transform{}, errors.Errorf("expected %d positions, got %d", len(g.names), len(positions))
	}
	switch frame {
	case BaseFrame:
		return kinematics.NewTransform(), nil
	case EEFrame:
		m := mgl64.Translate3D(positions[0], positions[1], positions[2]).
			Mul4(mgl64.HomogRotate3DZ(positions[5])).
			Mul4(mgl64.HomogRotate3DY(positions[4])).
			Mul4(mgl64.HomogRotate3DX(positions[3]))
		return kinematics.NewTransformFromMatrix(m), nil
	default:
		return kinematics.Transform{}, errors.Errorf("unknown frame %q", frame)
	}
}

// Static is a model whose Jacobian is supplied by the caller, optionally as
// a function of position. It is the workhorse for singularity-proximity
// tests, where the exact singular values matter.
type Static struct {
	names      []string
	bounds     map[string]kinematics.Bounds
	jacobian   func(positions []float64) *mat.Dense
	transforms map[string]kinematics.Transform
}

// NewStatic builds a Static model over the named joints.
func NewStatic(names []string, jacobian func(positions []float64) *mat.Dense) *Static {
	s := &Static{
		names:      names,
		bounds:     map[string]kinematics.Bounds{},
		jacobian:   jacobian,
		transforms: map[string]kinematics.Transform{},
	}
	for _, name := range names {
		s.bounds[name] = kinematics.Bounds{
			PositionBounded: true, MinPosition: -100, MaxPosition: 100,
			VelocityBounded: true, MinVelocity: -100, MaxVelocity: 100,
			AccelerationBounded: true, MinAcceleration: -1000, MaxAcceleration: 1000,
		}
	}
	return s
}

// SetBounds overrides the bounds of one joint.
func (s *Static) SetBounds(name string, b kinematics.Bounds) {
	s.bounds[name] = b
}

// SetTransform fixes the global transform reported for a frame.
func (s *Static) SetTransform(frame string, tf kinematics.Transform) {
	s.transforms[frame] = tf
}

// ActiveJointNames implements kinematics.Model.
func (s *Static) ActiveJointNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// VariableBounds implements kinematics.Model.
func (s *Static) VariableBounds(name string) (kinematics.Bounds, bool) {
	b, ok := s.bounds[name]
	return b, ok
}

// Jacobian implements kinematics.Model.
func (s *Static) Jacobian(positions []float64) (*mat.Dense, error) {
	return s.jacobian(positions), nil
}

// GlobalTransform implements kinematics.Model. Unconfigured frames resolve
// to the identity so frame-agnostic tests stay terse.
func (s *Static) GlobalTransform(frame string, positions []float64) (kinematics.Transform, error) {
	if tf, ok := s.transforms[frame]; ok {
		return tf, nil
	}
	return kinematics.NewTransform(), nil
}
