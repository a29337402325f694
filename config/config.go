// Package config holds the servo controller parameters and their
// validation rules. Parameters are immutable once a controller has been
// constructed from them.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Accepted values for CommandInType.
const (
	CommandInUnitless   = "unitless"
	CommandInSpeedUnits = "speed_units"
)

// Accepted values for CommandOutType.
const (
	CommandOutTrajectory = "trajectory"
	CommandOutMultiArray = "multiarray"
)

// Parameters configures a servo controller. Topic names are opaque
// identifiers for whatever transport is wired around the core; the core
// itself never interprets them.
type Parameters struct {
	UseGazebo   bool   `json:"use_gazebo"`
	StatusTopic string `json:"status_topic"`

	// Properties of incoming commands.
	CartesianCommandInTopic string  `json:"cartesian_command_in_topic"`
	JointCommandInTopic     string  `json:"joint_command_in_topic"`
	RobotLinkCommandFrame   string  `json:"robot_link_command_frame"`
	CommandInType           string  `json:"command_in_type"`
	LinearScale             float64 `json:"linear_scale"`
	RotationalScale         float64 `json:"rotational_scale"`
	JointScale              float64 `json:"joint_scale"`

	// Properties of outgoing commands.
	CommandOutTopic           string  `json:"command_out_topic"`
	PublishPeriod             float64 `json:"publish_period"`
	CommandOutType            string  `json:"command_out_type"`
	PublishJointPositions     bool    `json:"publish_joint_positions"`
	PublishJointVelocities    bool    `json:"publish_joint_velocities"`
	PublishJointAccelerations bool    `json:"publish_joint_accelerations"`

	// Incoming joint state properties.
	JointTopic         string  `json:"joint_topic"`
	LowPassFilterCoeff float64 `json:"low_pass_filter_coeff"`

	// Kinematic model properties.
	MoveGroupName string `json:"move_group_name"`
	PlanningFrame string `json:"planning_frame"`

	// Stopping behaviour.
	IncomingCommandTimeout       float64 `json:"incoming_command_timeout"`
	NumOutgoingHaltMsgsToPublish int     `json:"num_outgoing_halt_msgs_to_publish"`

	// Singularity and joint-limit handling.
	LowerSingularityThreshold    float64 `json:"lower_singularity_threshold"`
	HardStopSingularityThreshold float64 `json:"hard_stop_singularity_threshold"`
	JointLimitMargin             float64 `json:"joint_limit_margin"`
}

// DefaultParameters returns a parameter set matching the reference
// configuration for a 100 Hz position-command controller.
func DefaultParameters() *Parameters {
	return &Parameters{
		StatusTopic:             "status",
		CartesianCommandInTopic: "delta_twist_cmds",
		JointCommandInTopic:     "delta_joint_cmds",
		RobotLinkCommandFrame:   "ee",
		CommandInType:           CommandInUnitless,
		LinearScale:             0.4,
		RotationalScale:         0.8,
		JointScale:              0.5,

		CommandOutTopic:        "command",
		PublishPeriod:          0.01,
		CommandOutType:         CommandOutTrajectory,
		PublishJointPositions:  true,
		PublishJointVelocities: true,

		JointTopic:         "joint_states",
		LowPassFilterCoeff: 2.0,

		MoveGroupName: "arm",
		PlanningFrame: "base",

		IncomingCommandTimeout:       0.1,
		NumOutgoingHaltMsgsToPublish: 4,

		LowerSingularityThreshold:    17,
		HardStopSingularityThreshold: 30,
		JointLimitMargin:             0.1,
	}
}

// Period returns the publish period as a duration.
func (p *Parameters) Period() time.Duration {
	return time.Duration(p.PublishPeriod * float64(time.Second))
}

// Validate checks every rule the controller depends on and returns all
// violations at once.
func (p *Parameters) Validate() error {
	var err error
	if p.PublishPeriod <= 0 {
		err = multierr.Append(err, errors.New("publish_period must be greater than zero"))
	}
	if p.NumOutgoingHaltMsgsToPublish < 0 {
		err = multierr.Append(err, errors.New("num_outgoing_halt_msgs_to_publish must not be negative"))
	}
	if p.LowerSingularityThreshold < 0 || p.HardStopSingularityThreshold < 0 {
		err = multierr.Append(err,
			errors.New("lower_singularity_threshold and hard_stop_singularity_threshold must not be negative"))
	}
	if p.HardStopSingularityThreshold < p.LowerSingularityThreshold {
		err = multierr.Append(err,
			errors.New("hard_stop_singularity_threshold must be at least lower_singularity_threshold"))
	}
	if p.LowPassFilterCoeff < 1 {
		err = multierr.Append(err, errors.New("low_pass_filter_coeff must be at least 1"))
	}
	if p.JointLimitMargin < 0 {
		err = multierr.Append(err, errors.New("joint_limit_margin must not be negative"))
	}
	if p.IncomingCommandTimeout <= 0 {
		err = multierr.Append(err, errors.New("incoming_command_timeout must be greater than zero"))
	}
	switch p.CommandInType {
	case CommandInUnitless, CommandInSpeedUnits:
	default:
		err = multierr.Append(err,
			errors.Errorf("command_in_type must be %q or %q", CommandInUnitless, CommandInSpeedUnits))
	}
	switch p.CommandOutType {
	case CommandOutTrajectory, CommandOutMultiArray:
	default:
		err = multierr.Append(err,
			errors.Errorf("command_out_type must be %q or %q", CommandOutTrajectory, CommandOutMultiArray))
	}
	if !p.PublishJointPositions && !p.PublishJointVelocities && !p.PublishJointAccelerations {
		err = multierr.Append(err, errors.New(
			"at least one of publish_joint_positions, publish_joint_velocities, publish_joint_accelerations must be true"))
	}
	if p.CommandOutType == CommandOutMultiArray && p.PublishJointPositions == p.PublishJointVelocities {
		err = multierr.Append(err, errors.New(
			"multiarray output requires exactly one of publish_joint_positions or publish_joint_velocities"))
	}
	if p.PlanningFrame == "" {
		err = multierr.Append(err, errors.New("planning_frame must be set"))
	}
	if p.RobotLinkCommandFrame == "" {
		err = multierr.Append(err, errors.New("robot_link_command_frame must be set"))
	}
	if p.MoveGroupName == "" {
		err = multierr.Append(err, errors.New("move_group_name must be set"))
	}
	return err
}
