package servo

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// pseudoInverse computes the Moore-Penrose inverse V * S^-1 * U^T from a
// factorized thin SVD. An exactly zero singular value means the Jacobian
// has lost rank and no finite inverse exists.
func pseudoInverse(svd *mat.SVD) (*mat.Dense, error) {
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	sInv := mat.NewDense(len(values), len(values), nil)
	for i, sv := range values {
		if sv == 0 {
			return nil, errors.New("jacobian is rank deficient, cannot invert")
		}
		sInv.Set(i, i, 1/sv)
	}

	var tmp, pinv mat.Dense
	tmp.Mul(&v, sInv)
	pinv.Mul(&tmp, u.T())
	return &pinv, nil
}

func conditionNumber(values []float64) float64 {
	return values[0] / values[len(values)-1]
}

// velocityScaleForSingularity returns a scale in [0, 1] for the commanded
// cartesian increment deltaX, given the (possibly row-reduced) Jacobian's
// SVD and pseudoinverse. Motion toward a singular direction ramps the scale
// down between the two condition-number thresholds and to zero past the
// hard stop; motion away is never scaled.
func (s *ServoCalcs) velocityScaleForSingularity(deltaX *mat.VecDense, svd *mat.SVD, pinv *mat.Dense) float64 {
	dims := deltaX.Len()

	var u mat.Dense
	svd.UTo(&u)
	_, uCols := u.Dims()
	lastCol := dims - 1
	if uCols < dims {
		lastCol = uCols - 1
	}

	// The last column of U points directly toward or away from the nearest
	// singularity, but its sign is arbitrary (R. Bro, "Resolving the Sign
	// Ambiguity in the Singular Value Decomposition").
	towardSingularity := mat.NewVecDense(dims, nil)
	for i := 0; i < dims; i++ {
		towardSingularity.SetVec(i, u.At(i, lastCol))
	}

	values := svd.Values(nil)
	iniCondition := conditionNumber(values)

	// Probe a small motion along the candidate direction and recompute the
	// condition number at the perturbed configuration. The candidate is kept
	// when the condition number does not grow, and flipped when it grows.
	const probeScale = 100
	probe := mat.NewVecDense(dims, nil)
	probe.ScaleVec(1/float64(probeScale), towardSingularity)

	rows, _ := pinv.Dims()
	deltaTest := mat.NewVecDense(rows, nil)
	deltaTest.MulVec(pinv, probe)

	original := s.kinState.Positions()
	if rows == len(original) {
		perturbed := make([]float64, len(original))
		for i := range original {
			perturbed[i] = original[i] + deltaTest.AtVec(i)
		}
		if err := s.kinState.SetPositions(perturbed); err == nil {
			if newJacobian, err := s.kinState.Jacobian(); err == nil {
				var newSVD mat.SVD
				if newSVD.Factorize(newJacobian, mat.SVDNone) {
					newCondition := conditionNumber(newSVD.Values(nil))
					if newCondition > iniCondition {
						towardSingularity.ScaleVec(-1, towardSingularity)
					}
				}
			}
		}
		if err := s.kinState.SetPositions(original); err != nil {
			s.logger.Errorw("failed to restore joint positions after singularity probe", "error", err)
		}
	}

	// A positive dot product means the command moves toward the singularity.
	if mat.Dot(towardSingularity, deltaX) <= 0 {
		return 1
	}

	lower := s.params.LowerSingularityThreshold
	hard := s.params.HardStopSingularityThreshold
	switch {
	case iniCondition <= lower:
		return 1
	case iniCondition >= hard:
		s.status = StatusHaltForSingularity
		if s.throttle.Allow("singularity-halt") {
			s.logger.Warnw(StatusHaltForSingularity.String(), "condition", iniCondition)
		}
		return 0
	default:
		s.status = StatusDecelerateForSingularity
		if s.throttle.Allow("singularity-decelerate") {
			s.logger.Warnw(StatusDecelerateForSingularity.String(), "condition", iniCondition)
		}
		return 1 - (iniCondition-lower)/(hard-lower)
	}
}

// removeDriftDimensions drops the Jacobian rows and deltaX entries of every
// drifting cartesian dimension, exploiting task redundancy. At least one
// row always survives.
func removeDriftDimensions(jacobian *mat.Dense, deltaX *mat.VecDense, driftDims [6]bool) (*mat.Dense, *mat.VecDense) {
	rows, cols := jacobian.Dims()
	kept := make([]int, 0, rows)
	for d := 0; d < rows; d++ {
		if !driftDims[d] {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		kept = []int{0}
	}
	if len(kept) == rows {
		return jacobian, deltaX
	}

	reduced := mat.NewDense(len(kept), cols, nil)
	reducedX := mat.NewVecDense(len(kept), nil)
	for i, d := range kept {
		for c := 0; c < cols; c++ {
			reduced.Set(i, c, jacobian.At(d, c))
		}
		reducedX.SetVec(i, deltaX.AtVec(d))
	}
	return reduced, reducedX
}
