package servo

import (
	"time"

	"github.com/golang/geo/r3"
)

// JointState is a sampled robot state. Names order the position and
// velocity slices; joints outside the controller's move group are ignored
// on ingest.
type JointState struct {
	Names      []string
	Positions  []float64
	Velocities []float64
	Stamp      time.Time
}

// Clone deep-copies the state.
func (js *JointState) Clone() JointState {
	return JointState{
		Names:      append([]string(nil), js.Names...),
		Positions:  append([]float64(nil), js.Positions...),
		Velocities: append([]float64(nil), js.Velocities...),
		Stamp:      js.Stamp,
	}
}

// TwistStamped is an end-effector velocity command. Units depend on the
// configured command_in_type: unitless values in [-1, 1], or m/s and rad/s.
// A zero Stamp marks the command as stamp-less; it is then never considered
// stale by age.
type TwistStamped struct {
	Frame   string
	Stamp   time.Time
	Linear  r3.Vector
	Angular r3.Vector
}

// JointJog is a direct joint velocity command for a subset of the group's
// joints.
type JointJog struct {
	Names      []string
	Velocities []float64
	Stamp      time.Time
}

// Clone deep-copies the command.
func (j *JointJog) Clone() JointJog {
	return JointJog{
		Names:      append([]string(nil), j.Names...),
		Velocities: append([]float64(nil), j.Velocities...),
		Stamp:      j.Stamp,
	}
}

// TrajectoryPoint is a single setpoint of an outgoing trajectory. Which of
// the three slices are populated follows the publish_joint_* configuration.
type TrajectoryPoint struct {
	TimeFromStart time.Duration
	Positions     []float64
	Velocities    []float64
	Accelerations []float64
}

func (p *TrajectoryPoint) clone() TrajectoryPoint {
	return TrajectoryPoint{
		TimeFromStart: p.TimeFromStart,
		Positions:     append([]float64(nil), p.Positions...),
		Velocities:    append([]float64(nil), p.Velocities...),
		Accelerations: append([]float64(nil), p.Accelerations...),
	}
}

// JointTrajectory is the outgoing command message.
type JointTrajectory struct {
	Frame      string
	Stamp      time.Time
	JointNames []string
	Points     []TrajectoryPoint
}

// Clone deep-copies the trajectory.
func (t *JointTrajectory) Clone() JointTrajectory {
	out := JointTrajectory{
		Frame:      t.Frame,
		Stamp:      t.Stamp,
		JointNames: append([]string(nil), t.JointNames...),
		Points:     make([]TrajectoryPoint, 0, len(t.Points)),
	}
	for i := range t.Points {
		out.Points = append(out.Points, t.Points[i].clone())
	}
	return out
}
