package servo

import "math"

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// twistIsValid reports whether every component of the command is finite
// and, for unitless commands, within [-1, 1].
func twistIsValid(cmd *TwistStamped, unitless bool) bool {
	components := [6]float64{
		cmd.Linear.X, cmd.Linear.Y, cmd.Linear.Z,
		cmd.Angular.X, cmd.Angular.Y, cmd.Angular.Z,
	}
	for _, c := range components {
		if !isFinite(c) {
			return false
		}
		if unitless && math.Abs(c) > 1 {
			return false
		}
	}
	return true
}

// jogIsValid reports whether every commanded velocity is finite.
func jogIsValid(cmd *JointJog) bool {
	for _, v := range cmd.Velocities {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// twistIsNonZero reports whether any component of the twist is nonzero.
func twistIsNonZero(cmd *TwistStamped) bool {
	return cmd.Linear.X != 0 || cmd.Linear.Y != 0 || cmd.Linear.Z != 0 ||
		cmd.Angular.X != 0 || cmd.Angular.Y != 0 || cmd.Angular.Z != 0
}

// jogIsNonZero reports whether any commanded velocity is nonzero.
func jogIsNonZero(cmd *JointJog) bool {
	for _, v := range cmd.Velocities {
		if v != 0 {
			return true
		}
	}
	return false
}
