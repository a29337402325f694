package servo

import (
	"math"

	"go.viam.com/armservo/kinematics"
)

// enforceAccelVelLimits clips the joint delta vector (position increments
// over one publish period) against per-joint acceleration and velocity
// bounds, in that order. The velocity clip is not followed by a second
// acceleration pass, so a residual acceleration overshoot after a velocity
// clip is accepted.
func (s *ServoCalcs) enforceAccelVelLimits(delta []float64) {
	period := s.params.PublishPeriod
	for i := range delta {
		bounds, ok := s.kinState.VariableBounds(i)
		if !ok {
			continue
		}
		enforceSingleVelAccelLimit(bounds, s.prevJointVelocity[i], period, &delta[i])
	}
}

func enforceSingleVelAccelLimit(bounds kinematics.Bounds, prevVel, period float64, delta *float64) {
	if bounds.AccelerationBounded {
		vel := *delta / period
		accel := (vel - prevVel) / period

		clip := false
		var accelLimit float64
		if accel < bounds.MinAcceleration {
			clip = true
			accelLimit = bounds.MinAcceleration
		} else if accel > bounds.MaxAcceleration {
			clip = true
			accelLimit = bounds.MaxAcceleration
		}
		if clip {
			// accel = ((delta/dt) - prevVel) / dt  -->  delta = (accel*dt + prevVel) * dt
			relativeChange := ((accelLimit*period + prevVel) * period) / *delta
			// guard the delta==0 division
			if math.Abs(relativeChange) < 1 {
				*delta *= relativeChange
			}
		}
	}

	if bounds.VelocityBounded {
		vel := *delta / period

		clip := false
		var velLimit float64
		if vel < bounds.MinVelocity {
			clip = true
			velLimit = bounds.MinVelocity
		} else if vel > bounds.MaxVelocity {
			clip = true
			velLimit = bounds.MaxVelocity
		}
		if clip {
			relativeChange := (velLimit * period) / *delta
			if math.Abs(relativeChange) < 1 {
				*delta *= relativeChange
			}
		}
	}
}

// exceedsPositionLimits reports whether any joint sits outside the inner
// margin of its position bounds while the freshly computed velocity pushes
// it further out. No per-joint clipping is attempted; the caller halts the
// whole arm.
func (s *ServoCalcs) exceedsPositionLimits() bool {
	margin := s.params.JointLimitMargin
	halting := false
	for i, name := range s.jointNames {
		if s.kinState.SatisfiesPositionBounds(i, -margin) {
			continue
		}
		bounds, ok := s.kinState.VariableBounds(i)
		if !ok || !bounds.PositionBounded {
			continue
		}
		angle := s.originalJointState.Positions[i]
		vel := s.internalJointState.Velocities[i]
		if (vel < 0 && angle < bounds.MinPosition+margin) ||
			(vel > 0 && angle > bounds.MaxPosition-margin) {
			if s.throttle.Allow("position-limit-" + name) {
				s.logger.Warnw("joint close to a position limit, halting", "joint", name)
			}
			halting = true
		}
	}
	return halting
}

// worstCaseStopTime returns the maximum over the group's joints of
// |velocity| / acceleration_limit given the latest sampled joint state.
// Joints without an acceleration bound are skipped with a warning, since
// a stop distance cannot be guaranteed for them.
func (s *ServoCalcs) worstCaseStopTime(js *JointState) float64 {
	worst := 0.0
	for m, name := range js.Names {
		i, ok := s.jointIndex[name]
		if !ok || m >= len(js.Velocities) {
			continue
		}
		bounds, known := s.kinState.VariableBounds(i)
		if !known || !bounds.AccelerationBounded {
			if s.throttle.Allow("stop-time-unbounded-" + name) {
				s.logger.Warnw(
					"no acceleration limit defined for joint; stop distance should not be used for collision checking",
					"joint", name)
			}
			continue
		}
		// conservative: the weaker of the two directional limits
		accelLimit := math.Min(math.Abs(bounds.MinAcceleration), math.Abs(bounds.MaxAcceleration))
		if accelLimit == 0 {
			continue
		}
		worst = math.Max(worst, math.Abs(js.Velocities[m]/accelLimit))
	}
	return worst
}
