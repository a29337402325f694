// Package kinematics defines the contract between the servo controller and
// an external kinematic model provider, plus a thin stateful wrapper that
// tracks current joint positions and recomputes Jacobians and frame
// transforms from them.
package kinematics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Bounds describes the motion limits of a single joint variable. A limit
// only applies when the corresponding Bounded flag is set; many robot
// descriptions omit acceleration bounds entirely.
type Bounds struct {
	PositionBounded bool
	MinPosition     float64
	MaxPosition     float64

	VelocityBounded bool
	MinVelocity     float64
	MaxVelocity     float64

	AccelerationBounded bool
	MinAcceleration     float64
	MaxAcceleration     float64
}

// Model is the external kinematic model provider. Implementations must be
// safe for use from a single goroutine at a time; the servo core only calls
// into the model from its tick goroutine.
type Model interface {
	// ActiveJointNames returns the ordered names of the active joints of
	// the move group. The order fixes the meaning of every positions
	// slice exchanged with the model.
	ActiveJointNames() []string

	// VariableBounds returns the bounds for the named joint, and whether
	// the joint is known.
	VariableBounds(name string) (Bounds, bool)

	// Jacobian computes the 6xN end-effector Jacobian at the given joint
	// positions, rows ordered [lin_x, lin_y, lin_z, ang_x, ang_y, ang_z].
	Jacobian(positions []float64) (*mat.Dense, error)

	// GlobalTransform returns the transform from the model root to the
	// named frame at the given joint positions.
	GlobalTransform(frame string, positions []float64) (Transform, error)
}

// State wraps a Model with a current-positions snapshot. It is the
// "set positions and recompute" primitive of the servo loop: positions are
// mutated only by the tick goroutine, and every kinematic query is answered
// at the stored positions.
type State struct {
	model     Model
	names     []string
	index     map[string]int
	bounds    []Bounds
	known     []bool
	positions []float64
}

// NewState builds a State for the model's active joints.
func NewState(model Model) (*State, error) {
	names := model.ActiveJointNames()
	if len(names) == 0 {
		return nil, errors.New("kinematic model has no active joints")
	}
	s := &State{
		model:     model,
		names:     names,
		index:     make(map[string]int, len(names)),
		bounds:    make([]Bounds, len(names)),
		known:     make([]bool, len(names)),
		positions: make([]float64, len(names)),
	}
	for i, name := range names {
		if _, ok := s.index[name]; ok {
			return nil, errors.Errorf("duplicate joint name %q in move group", name)
		}
		s.index[name] = i
		s.bounds[i], s.known[i] = model.VariableBounds(name)
	}
	return s, nil
}

// Names returns the ordered active joint names.
func (s *State) Names() []string {
	return s.names
}

// NumJoints returns the number of active joints.
func (s *State) NumJoints() int {
	return len(s.names)
}

// Index returns the position of the named joint in the active ordering.
func (s *State) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// SetPositions replaces the stored joint positions.
func (s *State) SetPositions(positions []float64) error {
	if len(positions) != len(s.positions) {
		return errors.Errorf("expected %d positions, got %d", len(s.positions), len(positions))
	}
	copy(s.positions, positions)
	return nil
}

// Positions returns a copy of the stored joint positions.
func (s *State) Positions() []float64 {
	out := make([]float64, len(s.positions))
	copy(out, s.positions)
	return out
}

// Jacobian computes the Jacobian at the stored positions.
func (s *State) Jacobian() (*mat.Dense, error) {
	return s.model.Jacobian(s.positions)
}

// GlobalTransform returns the root-to-frame transform at the stored positions.
func (s *State) GlobalTransform(frame string) (Transform, error) {
	return s.model.GlobalTransform(frame, s.positions)
}

// VariableBounds returns the cached bounds of joint i, and whether the
// model knows the joint at all.
func (s *State) VariableBounds(i int) (Bounds, bool) {
	return s.bounds[i], s.known[i]
}

// SatisfiesPositionBounds reports whether joint i is within its position
// bounds widened by margin on each side. A negative margin therefore checks
// against a shrunken, inner range. Unbounded joints always satisfy.
func (s *State) SatisfiesPositionBounds(i int, margin float64) bool {
	b := s.bounds[i]
	if !s.known[i] || !b.PositionBounded {
		return true
	}
	p := s.positions[i]
	return p >= b.MinPosition-margin && p <= b.MaxPosition+margin
}

// Finite reports whether every stored position is a finite number.
func (s *State) Finite() bool {
	for _, p := range s.positions {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	return true
}
