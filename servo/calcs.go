// Package servo implements the realtime servo calculation loop for an
// articulated arm: it turns a live stream of cartesian twist or joint jog
// commands into joint trajectory increments at a fixed publish period,
// honoring joint limits, decelerating near kinematic singularities, and
// scaling velocity for imminent collisions.
package servo

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/armservo/config"
	"go.viam.com/armservo/kinematics"
	"go.viam.com/armservo/utils"
)

const (
	// how often repeated in-loop warnings may fire
	logThrottleInterval = 30 * time.Second

	// sleep between retries while the tick waits for a first joint state
	jointStateRetryInterval = time.Millisecond

	// poll interval for WaitForInitialized
	initializedPollInterval = 5 * time.Millisecond

	// number of points duplicated into the outgoing trajectory in gazebo
	// mode, so dropped early points do not stall the simulation
	gazeboRedundantMessageCount = 30
)

// ServoCalcs runs the periodic servo calculation loop. Command and state
// updates arrive asynchronously through the Update/Set methods and are
// snapshotted at the top of each tick; all servo math runs on the single
// tick goroutine.
type ServoCalcs struct {
	params   *config.Parameters
	out      Output
	logger   golog.Logger
	clk      clock.Clock
	throttle *utils.Throttler

	kinState   *kinematics.State
	jointNames []string
	jointIndex map[string]int
	numJoints  int

	// latestStateMu guards every field shared with producer goroutines.
	// It is held only for O(1) copies, never across kinematics, SVD or
	// publishing.
	latestStateMu          sync.Mutex
	latestJointState       *JointState
	latestTwist            *TwistStamped
	latestTwistNonzero     bool
	latestTwistStamp       time.Time
	latestJog              *JointJog
	latestJogNonzero       bool
	latestJogStamp         time.Time
	collisionVelocityScale float64
	controlDims            [6]bool
	driftDims              [6]bool
	tfPlanningToCmd        kinematics.Transform
	tfPopulated            bool
	cancelTick             context.CancelFunc

	paused        atomic.Bool
	stopRequested atomic.Bool

	// tick-goroutine state, never touched by producers
	internalJointState JointState
	originalJointState JointState
	prevJointVelocity  []float64
	positionFilters    []*lowPassFilter
	updatedFilters     bool
	status             StatusCode
	zeroVelocityCount  int
	waitForCommands    bool
	lastSentCommand    *JointTrajectory
	tickTF             kinematics.Transform

	activeBackgroundWorkers sync.WaitGroup
}

// NewServoCalcs validates the parameters and builds a servo controller
// around the given kinematic model. The model is a borrow-only dependency:
// the controller never closes or reconfigures it.
func NewServoCalcs(
	params *config.Parameters,
	model kinematics.Model,
	out Output,
	logger golog.Logger,
) (*ServoCalcs, error) {
	return newServoCalcs(params, model, out, logger, clock.New())
}

func newServoCalcs(
	params *config.Parameters,
	model kinematics.Model,
	out Output,
	logger golog.Logger,
	clk clock.Clock,
) (*ServoCalcs, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid servo parameters")
	}
	kinState, err := kinematics.NewState(model)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot build kinematic state for move group %q", params.MoveGroupName)
	}

	names := kinState.Names()
	s := &ServoCalcs{
		params:                 params,
		out:                    out,
		logger:                 logger,
		clk:                    clk,
		throttle:               utils.NewThrottler(clk, logThrottleInterval),
		kinState:               kinState,
		jointNames:             names,
		jointIndex:             make(map[string]int, len(names)),
		numJoints:              len(names),
		collisionVelocityScale: 1,
		controlDims:            [6]bool{true, true, true, true, true, true},
		waitForCommands:        true,
	}
	for i, name := range names {
		s.jointIndex[name] = i
	}
	s.internalJointState = JointState{
		Names:      append([]string(nil), names...),
		Positions:  make([]float64, s.numJoints),
		Velocities: make([]float64, s.numJoints),
	}
	s.originalJointState = s.internalJointState.Clone()
	s.prevJointVelocity = make([]float64, s.numJoints)
	s.positionFilters = make([]*lowPassFilter, 0, s.numJoints)
	for range names {
		filter, err := newLowPassFilter(params.LowPassFilterCoeff)
		if err != nil {
			return nil, err
		}
		s.positionFilters = append(s.positionFilters, filter)
	}
	return s, nil
}

// UpdateJointState replaces the latest sampled joint state.
func (s *ServoCalcs) UpdateJointState(js *JointState) {
	snapshot := js.Clone()
	s.latestStateMu.Lock()
	defer s.latestStateMu.Unlock()
	s.latestJointState = &snapshot
}

// UpdateTwist replaces the latest cartesian command.
func (s *ServoCalcs) UpdateTwist(cmd *TwistStamped) {
	snapshot := *cmd
	s.latestStateMu.Lock()
	defer s.latestStateMu.Unlock()
	s.latestTwist = &snapshot
	s.latestTwistNonzero = twistIsNonZero(&snapshot)
	s.latestTwistStamp = snapshot.Stamp
}

// UpdateJointJog replaces the latest joint jog command.
func (s *ServoCalcs) UpdateJointJog(cmd *JointJog) {
	snapshot := cmd.Clone()
	s.latestStateMu.Lock()
	defer s.latestStateMu.Unlock()
	s.latestJog = &snapshot
	s.latestJogNonzero = jogIsNonZero(&snapshot)
	s.latestJogStamp = snapshot.Stamp
}

// SetCollisionVelocityScale stores the newest collision velocity scale from
// the external collision checker; it is clamped to [0, 1] at use.
func (s *ServoCalcs) SetCollisionVelocityScale(scale float64) {
	s.latestStateMu.Lock()
	defer s.latestStateMu.Unlock()
	s.collisionVelocityScale = scale
}

// SetControlDimensions updates which cartesian input dimensions are
// honored, ordered [lin_x, lin_y, lin_z, ang_x, ang_y, ang_z]. The change
// is visible on the next tick.
func (s *ServoCalcs) SetControlDimensions(dims [6]bool) {
	s.latestStateMu.Lock()
	defer s.latestStateMu.Unlock()
	s.controlDims = dims
}

// SetDriftDimensions updates which cartesian dimensions may drift (their
// Jacobian rows are removed). The change is visible on the next tick.
func (s *ServoCalcs) SetDriftDimensions(dims [6]bool) {
	s.latestStateMu.Lock()
	defer s.latestStateMu.Unlock()
	s.driftDims = dims
}

// SetPaused toggles the pause state. The tick keeps running while paused
// but skips servo output and keeps the filters fresh.
func (s *ServoCalcs) SetPaused(paused bool) {
	s.paused.Store(paused)
}

// LatestJointState returns a copy of the newest sampled joint state, or
// nil if none has arrived yet.
func (s *ServoCalcs) LatestJointState() *JointState {
	s.latestStateMu.Lock()
	defer s.latestStateMu.Unlock()
	if s.latestJointState == nil {
		return nil
	}
	snapshot := s.latestJointState.Clone()
	return &snapshot
}

// CommandFrameTransform returns the planning-frame to command-frame
// transform and whether a tick has populated it at least once.
func (s *ServoCalcs) CommandFrameTransform() (kinematics.Transform, bool) {
	s.latestStateMu.Lock()
	defer s.latestStateMu.Unlock()
	return s.tfPlanningToCmd, s.tfPopulated
}

// WaitForInitialized blocks until a first joint state has been received,
// the timeout elapses, or ctx is cancelled. It reports whether the
// controller is initialized.
func (s *ServoCalcs) WaitForInitialized(ctx context.Context, timeout time.Duration) bool {
	deadline := s.clk.Now().Add(timeout)
	for {
		s.latestStateMu.Lock()
		initialized := s.latestJointState != nil
		s.latestStateMu.Unlock()
		if initialized {
			return true
		}
		if !s.clk.Now().Before(deadline) {
			return false
		}
		if !goutils.SelectContextOrWait(ctx, initializedPollInterval) {
			return false
		}
	}
}

// Start arms the periodic tick. It refuses to start before any joint state
// has been received, and seeds the last-sent command from the current
// positions so the first no-motion tick holds still.
func (s *ServoCalcs) Start(ctx context.Context) error {
	s.latestStateMu.Lock()
	alreadyRunning := s.cancelTick != nil
	initialized := s.latestJointState != nil
	s.latestStateMu.Unlock()
	if alreadyRunning {
		return errors.New("servo is already started")
	}
	if !initialized {
		return errors.New("cannot start servo: no joint state received, is the joint state source publishing?")
	}
	if !s.updateJoints() {
		return errors.New("cannot start servo: latest joint state does not cover the move group")
	}

	s.seedLastSentCommand()

	s.stopRequested.Store(false)
	cancelCtx, cancel := context.WithCancel(ctx)
	s.latestStateMu.Lock()
	s.cancelTick = cancel
	s.latestStateMu.Unlock()

	ticker := s.clk.Ticker(s.params.Period())
	s.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		defer ticker.Stop()
		for {
			select {
			case <-cancelCtx.Done():
				return
			case <-ticker.C:
			}
			if s.stopRequested.Load() {
				return
			}
			s.runTick(cancelCtx)
		}
	}, s.activeBackgroundWorkers.Done)
	return nil
}

// seedLastSentCommand populates the last-sent command with the current
// positions and zero velocities, so the first no-motion tick after a start
// holds the arm still.
func (s *ServoCalcs) seedLastSentCommand() {
	initial := &JointTrajectory{
		Frame:      s.params.PlanningFrame,
		Stamp:      s.clk.Now(),
		JointNames: append([]string(nil), s.jointNames...),
	}
	point := TrajectoryPoint{TimeFromStart: s.params.Period()}
	if s.params.PublishJointPositions {
		point.Positions = append([]float64(nil), s.internalJointState.Positions...)
	}
	if s.params.PublishJointVelocities {
		point.Velocities = make([]float64, s.numJoints)
	}
	if s.params.PublishJointAccelerations {
		point.Accelerations = make([]float64, s.numJoints)
	}
	initial.Points = append(initial.Points, point)
	s.lastSentCommand = initial
}

// Stop requests the tick loop to end and waits for it.
func (s *ServoCalcs) Stop() {
	s.stopRequested.Store(true)
	s.latestStateMu.Lock()
	cancel := s.cancelTick
	s.cancelTick = nil
	s.latestStateMu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.activeBackgroundWorkers.Wait()
}

// runTick executes one servo cycle. It never blocks beyond the bounded
// snapshot lock and the cooperative wait for a first joint state, and it
// always terminates within the publish period under nominal load.
func (s *ServoCalcs) runTick(ctx context.Context) {
	// Status goes out exactly once per tick, then resets.
	s.out.Status(s.status)
	s.status = StatusNoWarning

	// Refresh the joints even when there is nothing to do, so the filters
	// and the command frame transform never go stale.
	for !s.updateJoints() {
		if s.stopRequested.Load() {
			return
		}
		if !goutils.SelectContextOrWait(ctx, jointStateRetryInterval) {
			return
		}
	}

	// One critical section snapshots every cross-thread field.
	s.latestStateMu.Lock()
	incoming := s.latestJointState.Clone()
	var twist TwistStamped
	haveTwist := false
	if s.latestTwist != nil {
		twist = *s.latestTwist
		haveTwist = s.latestTwistNonzero
	}
	var jog JointJog
	haveJog := false
	if s.latestJog != nil {
		jog = s.latestJog.Clone()
		haveJog = s.latestJogNonzero
	}
	now := s.clk.Now()
	timeout := time.Duration(s.params.IncomingCommandTimeout * float64(time.Second))
	twistStale := !s.latestTwistStamp.IsZero() && now.Sub(s.latestTwistStamp) >= timeout
	jogStale := !s.latestJogStamp.IsZero() && now.Sub(s.latestJogStamp) >= timeout
	collisionScale := s.collisionVelocityScale
	controlDims := s.controlDims
	driftDims := s.driftDims
	s.latestStateMu.Unlock()

	s.out.StopTime(s.worstCaseStopTime(&incoming))

	if err := s.kinState.SetPositions(s.internalJointState.Positions); err != nil {
		s.logger.Errorw("failed to apply joint state to kinematic model", "error", err)
		return
	}
	s.refreshCommandFrameTransform()

	haveNonzero := (haveTwist && !twistStale) || (haveJog && !jogStale)

	// While paused or waiting for a first command, keep the filters in
	// sync with the real joints so unpausing does not jump.
	if s.waitForCommands || s.paused.Load() {
		s.resetLowPassFilters(&s.originalJointState)
		if s.waitForCommands && (!twist.Stamp.IsZero() || !jog.Stamp.IsZero()) {
			s.waitForCommands = false
		}
		return
	}

	s.updatedFilters = false

	traj := &JointTrajectory{}
	switch {
	case haveTwist && !twistStale:
		// cartesian servoing has strict priority over joint servoing
		if !s.cartesianServoCalcs(&twist, traj, controlDims, driftDims, collisionScale) {
			s.resetLowPassFilters(&s.originalJointState)
			return
		}
	case haveJog && !jogStale:
		if !s.jointServoCalcs(&jog, traj, collisionScale) {
			s.resetLowPassFilters(&s.originalJointState)
			return
		}
	default:
		// No fresh motion: repeat the last sent command with zeroed
		// velocities.
		if s.lastSentCommand != nil {
			clone := s.lastSentCommand.Clone()
			traj = &clone
			for i := range traj.Points {
				for j := range traj.Points[i].Velocities {
					traj.Points[i].Velocities[j] = 0
				}
			}
		}
	}

	if !haveNonzero && (twistStale || jogStale) && s.throttle.Allow("stale-command") {
		s.logger.Warnw("stale command, consider a larger incoming_command_timeout")
	}

	if !haveNonzero {
		s.suddenHalt(traj)
	}

	// Skip publication once all inputs have been zero for more than
	// num_outgoing_halt_msgs_to_publish cycles; zero keeps republishing
	// forever.
	okToPublish := haveNonzero ||
		s.params.NumOutgoingHaltMsgsToPublish == 0 ||
		s.zeroVelocityCount <= s.params.NumOutgoingHaltMsgsToPublish
	if !okToPublish && s.throttle.Allow("all-zero") {
		s.logger.Debugw("all-zero command, doing nothing")
	}

	if haveNonzero {
		s.zeroVelocityCount = 0
	} else if s.zeroVelocityCount < math.MaxInt {
		s.zeroVelocityCount++
	}

	if okToPublish {
		traj.Stamp = s.clk.Now()
		sent := traj.Clone()
		s.lastSentCommand = &sent
		switch s.params.CommandOutType {
		case config.CommandOutTrajectory:
			s.out.Trajectory(traj)
		case config.CommandOutMultiArray:
			var data []float64
			if len(traj.Points) > 0 {
				switch {
				case s.params.PublishJointPositions:
					data = append([]float64(nil), traj.Points[0].Positions...)
				case s.params.PublishJointVelocities:
					data = append([]float64(nil), traj.Points[0].Velocities...)
				}
			}
			s.out.FloatArray(data)
		}
	}

	if !s.updatedFilters {
		s.resetLowPassFilters(&s.originalJointState)
	}
}

// updateJoints refreshes the internal joint state from the latest sampled
// one. Joints outside the move group are ignored. It reports false until a
// usable joint state has arrived.
func (s *ServoCalcs) updateJoints() bool {
	s.latestStateMu.Lock()
	defer s.latestStateMu.Unlock()
	if s.latestJointState == nil || len(s.latestJointState.Names) < s.numJoints {
		return false
	}
	for m, name := range s.latestJointState.Names {
		i, ok := s.jointIndex[name]
		if !ok || m >= len(s.latestJointState.Positions) {
			continue
		}
		s.internalJointState.Positions[i] = s.latestJointState.Positions[m]
	}
	s.originalJointState = s.internalJointState.Clone()
	return true
}

// refreshCommandFrameTransform recomputes the planning-frame to
// command-frame transform at the current joint positions. We solve
// (root->planning)^-1 * (root->command_frame).
func (s *ServoCalcs) refreshCommandFrameTransform() {
	tfPlanning, err := s.kinState.GlobalTransform(s.params.PlanningFrame)
	if err != nil {
		if s.throttle.Allow("planning-frame") {
			s.logger.Warnw("cannot resolve planning frame", "frame", s.params.PlanningFrame, "error", err)
		}
		return
	}
	tfCmd, err := s.kinState.GlobalTransform(s.params.RobotLinkCommandFrame)
	if err != nil {
		if s.throttle.Allow("command-frame") {
			s.logger.Warnw("cannot resolve command frame", "frame", s.params.RobotLinkCommandFrame, "error", err)
		}
		return
	}
	tf := tfPlanning.Inverse().Mul(tfCmd)
	s.tickTF = tf
	s.latestStateMu.Lock()
	s.tfPlanningToCmd = tf
	s.tfPopulated = true
	s.latestStateMu.Unlock()
}

// cartesianServoCalcs runs the cartesian branch of the tick: mask, frame
// transform, scaling, pseudoinverse, singularity scaling, then the shared
// post-processing.
func (s *ServoCalcs) cartesianServoCalcs(
	cmd *TwistStamped,
	traj *JointTrajectory,
	controlDims, driftDims [6]bool,
	collisionScale float64,
) bool {
	if !twistIsValid(cmd, s.params.CommandInType == config.CommandInUnitless) {
		if s.throttle.Allow("invalid-twist") {
			s.logger.Warnw("invalid twist command, skipping this datapoint")
		}
		return false
	}

	enforceControlDimensions(cmd, controlDims)

	if cmd.Frame != s.params.PlanningFrame {
		var rotation kinematics.Transform
		if cmd.Frame == "" || cmd.Frame == s.params.RobotLinkCommandFrame {
			rotation = s.tickTF
		} else {
			tfPlanning, err := s.kinState.GlobalTransform(s.params.PlanningFrame)
			if err == nil {
				var tfIncoming kinematics.Transform
				tfIncoming, err = s.kinState.GlobalTransform(cmd.Frame)
				if err == nil {
					rotation = tfPlanning.Inverse().Mul(tfIncoming)
				}
			}
			if err != nil {
				if s.throttle.Allow("twist-frame") {
					s.logger.Warnw("cannot transform twist to planning frame", "frame", cmd.Frame, "error", err)
				}
				return false
			}
		}
		// Rotations only: twists transform at the origin, not as points.
		cmd.Linear = rotation.RotateVector(cmd.Linear)
		cmd.Angular = rotation.RotateVector(cmd.Angular)
		cmd.Frame = s.params.PlanningFrame
	}

	deltaX := s.scaleCartesianCommand(cmd)

	jacobian, err := s.kinState.Jacobian()
	if err != nil {
		s.logger.Errorw("failed to compute jacobian", "error", err)
		return false
	}
	jacobian, deltaX = removeDriftDimensions(jacobian, deltaX, driftDims)

	var svd mat.SVD
	if !svd.Factorize(jacobian, mat.SVDThin) {
		if s.throttle.Allow("svd") {
			s.logger.Errorw("jacobian SVD failed to converge")
		}
		return false
	}
	pinv, err := pseudoInverse(&svd)
	if err != nil {
		if s.throttle.Allow("pinv") {
			s.logger.Errorw("cannot invert jacobian", "error", err)
		}
		return false
	}

	rows, _ := pinv.Dims()
	deltaTheta := mat.NewVecDense(rows, nil)
	deltaTheta.MulVec(pinv, deltaX)
	deltaTheta.ScaleVec(s.velocityScaleForSingularity(deltaX, &svd, pinv), deltaTheta)

	delta := make([]float64, deltaTheta.Len())
	for i := range delta {
		delta[i] = deltaTheta.AtVec(i)
	}
	return s.internalServoUpdate(delta, traj, collisionScale)
}

// jointServoCalcs runs the joint jog branch of the tick.
func (s *ServoCalcs) jointServoCalcs(cmd *JointJog, traj *JointTrajectory, collisionScale float64) bool {
	if !jogIsValid(cmd) {
		if s.throttle.Allow("invalid-jog") {
			s.logger.Warnw("invalid joint jog command, skipping this datapoint")
		}
		return false
	}
	return s.internalServoUpdate(s.scaleJointCommand(cmd), traj, collisionScale)
}

// internalServoUpdate is the post-processing shared by both branches:
// limit enforcement, collision scaling, integration, filtering, message
// composition, and the position-bound halt check.
func (s *ServoCalcs) internalServoUpdate(delta []float64, traj *JointTrajectory, collisionScale float64) bool {
	if len(delta) != s.numJoints {
		if s.throttle.Allow("delta-size") {
			s.logger.Errorw("lengths of increments and joints do not match",
				"delta", len(delta), "joints", s.numJoints)
		}
		return false
	}

	s.internalJointState = s.originalJointState.Clone()

	s.enforceAccelVelLimits(delta)

	scale := utils.Clamp(collisionScale, 0, 1)
	switch {
	case scale == 0:
		s.status = StatusHaltForCollision
		if s.throttle.Allow("collision-halt") {
			s.logger.Errorw("halting for collision")
		}
	case scale < 1:
		s.status = StatusDecelerateForCollision
		if s.throttle.Allow("collision-decelerate") {
			s.logger.Warnw(StatusDecelerateForCollision.String(), "scale", scale)
		}
	}
	for i := range delta {
		delta[i] *= scale
	}

	s.applyJointUpdate(delta)
	s.updatedFilters = true

	s.composeJointTrajMessage(&s.internalJointState, traj)

	if s.exceedsPositionLimits() {
		s.suddenHalt(traj)
		s.status = StatusJointBound
		for i := range s.prevJointVelocity {
			s.prevJointVelocity[i] = 0
		}
	}

	if s.params.UseGazebo && s.params.CommandOutType == config.CommandOutTrajectory {
		insertRedundantPoints(traj, gazeboRedundantMessageCount, s.params.Period())
	}
	return true
}

// applyJointUpdate integrates the delta into the joint positions, low-pass
// filters the result, and derives the velocities.
func (s *ServoCalcs) applyJointUpdate(delta []float64) {
	for i := range delta {
		s.internalJointState.Positions[i] += delta[i]
		s.internalJointState.Positions[i] = s.positionFilters[i].Filter(s.internalJointState.Positions[i])
		s.internalJointState.Velocities[i] = delta[i] / s.params.PublishPeriod
		s.prevJointVelocity[i] = s.internalJointState.Velocities[i]
	}
}

// scaleCartesianCommand turns a twist into a 6-vector of cartesian position
// increments over one publish period.
func (s *ServoCalcs) scaleCartesianCommand(cmd *TwistStamped) *mat.VecDense {
	period := s.params.PublishPeriod
	linearScale, rotationalScale := period, period
	if s.params.CommandInType == config.CommandInUnitless {
		linearScale *= s.params.LinearScale
		rotationalScale *= s.params.RotationalScale
	}
	return mat.NewVecDense(6, []float64{
		linearScale * cmd.Linear.X,
		linearScale * cmd.Linear.Y,
		linearScale * cmd.Linear.Z,
		rotationalScale * cmd.Angular.X,
		rotationalScale * cmd.Angular.Y,
		rotationalScale * cmd.Angular.Z,
	})
}

// scaleJointCommand turns a jog into a joint delta vector. Joints absent
// from the move group are ignored with a warning.
func (s *ServoCalcs) scaleJointCommand(cmd *JointJog) []float64 {
	delta := make([]float64, s.numJoints)
	scale := s.params.PublishPeriod
	if s.params.CommandInType == config.CommandInUnitless {
		scale *= s.params.JointScale
	}
	for m, name := range cmd.Names {
		if m >= len(cmd.Velocities) {
			break
		}
		i, ok := s.jointIndex[name]
		if !ok {
			if s.throttle.Allow("unknown-joint-" + name) {
				s.logger.Warnw("ignoring jog for joint outside the move group", "joint", name)
			}
			continue
		}
		delta[i] = cmd.Velocities[m] * scale
	}
	return delta
}

// enforceControlDimensions zeroes every twist component whose control
// dimension is disabled, in the command frame.
func enforceControlDimensions(cmd *TwistStamped, controlDims [6]bool) {
	if !controlDims[0] {
		cmd.Linear.X = 0
	}
	if !controlDims[1] {
		cmd.Linear.Y = 0
	}
	if !controlDims[2] {
		cmd.Linear.Z = 0
	}
	if !controlDims[3] {
		cmd.Angular.X = 0
	}
	if !controlDims[4] {
		cmd.Angular.Y = 0
	}
	if !controlDims[5] {
		cmd.Angular.Z = 0
	}
}

// composeJointTrajMessage appends a single point at one publish period from
// now, with fields per the publish_joint_* configuration. Accelerations are
// always zero; some controllers only check that the field is non-empty.
func (s *ServoCalcs) composeJointTrajMessage(js *JointState, traj *JointTrajectory) {
	traj.Frame = s.params.PlanningFrame
	traj.Stamp = s.clk.Now()
	traj.JointNames = append([]string(nil), js.Names...)

	point := TrajectoryPoint{TimeFromStart: s.params.Period()}
	if s.params.PublishJointPositions {
		point.Positions = append([]float64(nil), js.Positions...)
	}
	if s.params.PublishJointVelocities {
		point.Velocities = append([]float64(nil), js.Velocities...)
	}
	if s.params.PublishJointAccelerations {
		point.Accelerations = make([]float64, s.numJoints)
	}
	traj.Points = append(traj.Points, point)
}

// suddenHalt forces the outgoing command to the current position with zero
// velocity. Invoking it on an already-halted command is a no-op.
func (s *ServoCalcs) suddenHalt(traj *JointTrajectory) {
	if len(traj.JointNames) == 0 {
		traj.JointNames = append([]string(nil), s.jointNames...)
	}
	if len(traj.Points) == 0 {
		traj.Points = append(traj.Points, TrajectoryPoint{
			TimeFromStart: s.params.Period(),
			Positions:     make([]float64, s.numJoints),
			Velocities:    make([]float64, s.numJoints),
		})
	}
	point := &traj.Points[0]
	for i := 0; i < s.numJoints; i++ {
		// position-controlled robots reset to a known good state
		if s.params.PublishJointPositions && i < len(point.Positions) {
			point.Positions[i] = s.originalJointState.Positions[i]
		}
		// velocity-controlled robots stop
		if s.params.PublishJointVelocities && i < len(point.Velocities) {
			point.Velocities[i] = 0
		}
	}
}

// resetLowPassFilters snaps every position filter to the given joint state.
func (s *ServoCalcs) resetLowPassFilters(js *JointState) {
	for i, filter := range s.positionFilters {
		filter.Reset(js.Positions[i])
	}
	s.updatedFilters = true
}

// insertRedundantPoints duplicates the single computed point so the first
// few may be dropped in transit without stalling a simulated robot.
func insertRedundantPoints(traj *JointTrajectory, count int, period time.Duration) {
	if count < 2 || len(traj.Points) == 0 {
		return
	}
	base := traj.Points[0]
	points := make([]TrajectoryPoint, 0, count)
	for i := 0; i < count; i++ {
		point := base.clone()
		point.TimeFromStart = time.Duration(i+1) * period
		points = append(points, point)
	}
	traj.Points = points
}
