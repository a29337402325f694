package config

import (
	"strings"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(p *Parameters)
		err    string
	}{
		{"defaults", func(p *Parameters) {}, ""},
		{"zero period", func(p *Parameters) { p.PublishPeriod = 0 }, "publish_period"},
		{"negative period", func(p *Parameters) { p.PublishPeriod = -0.01 }, "publish_period"},
		{"negative halt count", func(p *Parameters) { p.NumOutgoingHaltMsgsToPublish = -1 }, "num_outgoing_halt_msgs_to_publish"},
		{"negative singularity threshold", func(p *Parameters) { p.LowerSingularityThreshold = -1 }, "lower_singularity_threshold"},
		{
			"hard below lower",
			func(p *Parameters) { p.LowerSingularityThreshold = 50; p.HardStopSingularityThreshold = 30 },
			"hard_stop_singularity_threshold must be at least",
		},
		{"filter coeff below one", func(p *Parameters) { p.LowPassFilterCoeff = 0.5 }, "low_pass_filter_coeff"},
		{"negative margin", func(p *Parameters) { p.JointLimitMargin = -0.1 }, "joint_limit_margin"},
		{"zero timeout", func(p *Parameters) { p.IncomingCommandTimeout = 0 }, "incoming_command_timeout"},
		{"bad in type", func(p *Parameters) { p.CommandInType = "furlongs" }, "command_in_type"},
		{"bad out type", func(p *Parameters) { p.CommandOutType = "csv" }, "command_out_type"},
		{
			"nothing published",
			func(p *Parameters) {
				p.PublishJointPositions = false
				p.PublishJointVelocities = false
				p.PublishJointAccelerations = false
			},
			"at least one of",
		},
		{
			"multiarray with both",
			func(p *Parameters) { p.CommandOutType = CommandOutMultiArray },
			"exactly one of",
		},
		{
			"multiarray with neither",
			func(p *Parameters) {
				p.CommandOutType = CommandOutMultiArray
				p.PublishJointPositions = false
				p.PublishJointVelocities = false
				p.PublishJointAccelerations = true
			},
			"exactly one of",
		},
		{
			"multiarray velocities only",
			func(p *Parameters) {
				p.CommandOutType = CommandOutMultiArray
				p.PublishJointPositions = false
			},
			"",
		},
		{"no planning frame", func(p *Parameters) { p.PlanningFrame = "" }, "planning_frame"},
		{"no command frame", func(p *Parameters) { p.RobotLinkCommandFrame = "" }, "robot_link_command_frame"},
		{"no move group", func(p *Parameters) { p.MoveGroupName = "" }, "move_group_name"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			params := DefaultParameters()
			tc.mutate(params)
			err := params.Validate()
			if tc.err == "" {
				test.That(t, err, test.ShouldBeNil)
			} else {
				test.That(t, err, test.ShouldNotBeNil)
				test.That(t, err.Error(), test.ShouldContainSubstring, tc.err)
			}
		})
	}
}

func TestValidateAccumulates(t *testing.T) {
	params := DefaultParameters()
	params.PublishPeriod = 0
	params.LowPassFilterCoeff = 0
	err := params.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "publish_period")
	test.That(t, err.Error(), test.ShouldContainSubstring, "low_pass_filter_coeff")
}

func TestFromReader(t *testing.T) {
	logger := golog.NewTestLogger(t)

	params, err := FromReader("servo.json", strings.NewReader(`{
		"publish_period": 0.004,
		"command_in_type": "speed_units",
		"move_group_name": "left_arm"
	}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params.Period(), test.ShouldEqual, 4*time.Millisecond)
	test.That(t, params.CommandInType, test.ShouldEqual, CommandInSpeedUnits)
	test.That(t, params.MoveGroupName, test.ShouldEqual, "left_arm")
	// untouched options keep their defaults
	test.That(t, params.LinearScale, test.ShouldEqual, 0.4)

	_, err = FromReader("servo.json", strings.NewReader(`{"publish_period": -1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "publish_period")

	_, err = FromReader("servo.json", strings.NewReader(`{"not_an_option": 1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
}
