// Package main runs a servo controller against the fake gantry model,
// taking twist commands over a websocket and printing outgoing trajectories
// as JSON lines. It exists to exercise the full loop without a robot; real
// deployments wire their own transport around the servo package.
package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/armservo/config"
	"go.viam.com/armservo/kinematics/fake"
	"go.viam.com/armservo/servo"
)

var logger = golog.NewDevelopmentLogger("armservo")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Config  string `flag:"config,usage=path to a servo config file"`
	Address string `flag:"address,default=:8188,usage=websocket listen address"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	params := config.DefaultParameters()
	if argsParsed.Config != "" {
		var err error
		params, err = config.Read(argsParsed.Config, logger)
		if err != nil {
			return err
		}
	}
	params.PlanningFrame = fake.BaseFrame
	params.RobotLinkCommandFrame = fake.EEFrame

	return runServer(ctx, params, argsParsed.Address, logger)
}

func runServer(ctx context.Context, params *config.Parameters, address string, logger golog.Logger) error {
	model := fake.NewGantry6()
	sink := &jsonSink{encoder: json.NewEncoder(os.Stdout)}
	calcs, err := servo.NewServoCalcs(params, model, sink, logger)
	if err != nil {
		return err
	}
	// With no robot attached, loop the outgoing command back as the next
	// joint state, i.e. assume perfect tracking.
	sink.track = calcs

	calcs.UpdateJointState(&servo.JointState{
		Names:      model.ActiveJointNames(),
		Positions:  make([]float64, 6),
		Velocities: make([]float64, 6),
		Stamp:      time.Now(),
	})
	if !calcs.WaitForInitialized(ctx, time.Second) {
		return errors.New("servo failed to initialize")
	}
	if err := calcs.Start(ctx); err != nil {
		return err
	}
	defer calcs.Stop()

	var upgrader websocket.Upgrader
	mux := http.NewServeMux()
	mux.HandleFunc("/twist", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnw("websocket upgrade failed", "error", err)
			return
		}
		defer func() {
			utils.UncheckedError(conn.Close())
		}()
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}
			cmd, err := decodeTwist(data)
			if err != nil {
				logger.Warnw("dropping malformed twist message", "error", err)
				continue
			}
			calcs.UpdateTwist(cmd)
		}
	})

	httpServer := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		logger.Infow("listening for twist commands", "address", address, "path", "/twist")
		errCh <- httpServer.ListenAndServe()
	})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// twistMessageSize is the fixed wire size of a binary twist command:
// 6 float64 components plus a uint64 millisecond timestamp, little-endian.
const twistMessageSize = 56

// decodeTwist parses the binary twist format used by the teleop relays.
func decodeTwist(data []byte) (*servo.TwistStamped, error) {
	if len(data) != twistMessageSize {
		return nil, errors.Errorf("expected %d byte twist message, got %d", twistMessageSize, len(data))
	}
	readFloat := func(offset int) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
	}
	stampMillis := binary.LittleEndian.Uint64(data[48:56])
	var stamp time.Time
	if stampMillis != 0 {
		stamp = time.UnixMilli(int64(stampMillis))
	}
	return &servo.TwistStamped{
		Stamp:   stamp,
		Linear:  r3.Vector{X: readFloat(0), Y: readFloat(8), Z: readFloat(16)},
		Angular: r3.Vector{X: readFloat(24), Y: readFloat(32), Z: readFloat(40)},
	}, nil
}

// jsonSink prints everything the controller emits as JSON lines and feeds
// trajectories back as joint states.
type jsonSink struct {
	encoder *json.Encoder
	track   *servo.ServoCalcs
}

type outputLine struct {
	Kind       string                 `json:"kind"`
	Status     string                 `json:"status,omitempty"`
	Trajectory *servo.JointTrajectory `json:"trajectory,omitempty"`
	Data       []float64              `json:"data,omitempty"`
}

func (j *jsonSink) Trajectory(traj *servo.JointTrajectory) {
	utils.UncheckedError(j.encoder.Encode(outputLine{Kind: "trajectory", Trajectory: traj}))
	if j.track != nil && len(traj.Points) > 0 {
		j.track.UpdateJointState(&servo.JointState{
			Names:      traj.JointNames,
			Positions:  traj.Points[0].Positions,
			Velocities: traj.Points[0].Velocities,
			Stamp:      time.Now(),
		})
	}
}

func (j *jsonSink) FloatArray(data []float64) {
	utils.UncheckedError(j.encoder.Encode(outputLine{Kind: "command", Data: data}))
}

func (j *jsonSink) Status(code servo.StatusCode) {
	if code != servo.StatusNoWarning {
		utils.UncheckedError(j.encoder.Encode(outputLine{Kind: "status", Status: code.String()}))
	}
}

func (j *jsonSink) StopTime(seconds float64) {}
