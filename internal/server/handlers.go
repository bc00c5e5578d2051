package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/control"
	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/noise"
	"github.com/san-kum/livetrain/internal/robot"
	"github.com/san-kum/livetrain/internal/trajectory"
)

type State struct {
	Telemetry       dynamo.Telemetry                `json:"telemetry"`
	UpdateFrequency float64                         `json:"update_frequency"`
	Drivetrain      DrivetrainState                 `json:"drivetrain"`
	Constraints     trajectory.Constraints          `json:"constraints"`
	Coefficients    map[string]control.Coefficients `json:"coefficients"`
	Noise           NoiseState                      `json:"noise"`
	Trajectory      TrajectoryState                 `json:"trajectory"`
	Passes          int                             `json:"passes"`
	Clients         int                             `json:"clients"`
}

type DrivetrainState struct {
	Type        robot.DriveType `json:"type"`
	WheelRadius float64         `json:"wheel_radius"`
	MaxVelocity float64         `json:"max_velocity"`
}

type NoiseState struct {
	Enabled  bool        `json:"enabled"`
	Static   noise.Noise `json:"static"`
	Additive noise.Noise `json:"additive"`
}

type TrajectoryState struct {
	Path      trajectory.PathType     `json:"path"`
	Profile   trajectory.ProfileType  `json:"profile"`
	Waypoints []config.WaypointConfig `json:"waypoints"`
	Duration  float64                 `json:"duration"`
}

type speedRequest struct {
	Speed float64 `json:"speed"`
}

type advanceRequest struct {
	Seconds float64 `json:"seconds"`
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

type noiseRequest struct {
	Enabled  *bool        `json:"enabled"`
	Static   *noise.Noise `json:"static"`
	Additive *noise.Noise `json:"additive"`
}

type coefficientsRequest struct {
	Heading []float64 `json:"heading"`
	Lateral []float64 `json:"lateral"`
	Axial   []float64 `json:"axial"`
}

type drivetrainRequest struct {
	Type        *robot.DriveType `json:"type"`
	WheelRadius *float64         `json:"wheel_radius"`
	MaxVelocity *float64         `json:"max_velocity"`
}

type trajectoryRequest struct {
	Path      *trajectory.PathType    `json:"path"`
	Profile   *trajectory.ProfileType `json:"profile"`
	Waypoints []config.WaypointConfig `json:"waypoints"`
}

type powersRequest struct {
	Powers dynamo.WheelPowers `json:"powers"`
}

func parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
	}
	return nil
}

func (s *Server) state() State {
	st := State{
		Telemetry: s.sim.Snapshot(),
		Passes:    s.sim.Passes(),
		Clients:   s.hub.ClientCount(),
	}
	gen := s.sim.Noise()
	st.Noise = NoiseState{Enabled: gen.Enabled(), Static: gen.Static(), Additive: gen.Additive()}

	_ = s.sim.WithRobot(func(r *robot.Robot) error {
		d := r.Drivetrain()
		st.UpdateFrequency = r.UpdateFrequency()
		st.Drivetrain = DrivetrainState{Type: d.Type(), WheelRadius: d.WheelRadius(), MaxVelocity: d.MaxVelocity()}
		st.Constraints = r.Constraints()
		h, l, a := r.Follower().Coefficients()
		st.Coefficients = map[string]control.Coefficients{"heading": h, "lateral": l, "axial": a}
		st.Trajectory = TrajectoryState{
			Path:      s.cfg.Trajectory.Path,
			Profile:   s.cfg.Trajectory.Profile,
			Waypoints: append([]config.WaypointConfig(nil), s.cfg.Trajectory.Waypoints...),
		}
		if traj := r.Follower().Trajectory(); traj != nil {
			st.Trajectory.Duration = traj.Duration()
		}
		return nil
	})
	return st
}

func (s *Server) getState(c *fiber.Ctx) error {
	return c.JSON(s.state())
}

func (s *Server) postRun(c *fiber.Ctx) error {
	s.sim.SetRunning(true)
	return c.JSON(s.state())
}

func (s *Server) postPause(c *fiber.Ctx) error {
	s.sim.SetRunning(false)
	return c.JSON(s.state())
}

func (s *Server) postReset(c *fiber.Ctx) error {
	s.sim.Reset()
	return c.JSON(s.state())
}

func (s *Server) postSpeed(c *fiber.Ctx) error {
	var req speedRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := s.sim.SetSpeed(req.Speed); err != nil {
		return err
	}
	return c.JSON(s.state())
}

func (s *Server) postAdvance(c *fiber.Ctx) error {
	var req advanceRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := s.sim.AdvanceBy(req.Seconds); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(s.state())
}

func (s *Server) postFollow(c *fiber.Ctx) error {
	var req toggleRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	_ = s.sim.WithRobot(func(r *robot.Robot) error {
		r.SetFollowing(req.Enabled)
		return nil
	})
	return c.JSON(s.state())
}

func (s *Server) postNoise(c *fiber.Ctx) error {
	var req noiseRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	for _, n := range []*noise.Noise{req.Static, req.Additive} {
		if n != nil && n.Upper < n.Lower {
			return fmt.Errorf("noise range %v: %w", *n, dynamo.ErrParameterBounds)
		}
	}

	gen := s.sim.Noise()
	if req.Static != nil {
		gen.SetStatic(*req.Static)
	}
	if req.Additive != nil {
		gen.SetAdditive(*req.Additive)
	}
	if req.Enabled != nil {
		gen.SetEnabled(*req.Enabled)
	}
	return c.JSON(s.state())
}

func (s *Server) postCoefficients(c *fiber.Ctx) error {
	var req coefficientsRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	err := s.sim.WithRobot(func(r *robot.Robot) error {
		return r.Follower().SetCoefficients(req.Heading, req.Lateral, req.Axial)
	})
	if err != nil {
		return err
	}
	return c.JSON(s.state())
}

func (s *Server) postDrivetrain(c *fiber.Ctx) error {
	var req drivetrainRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if req.WheelRadius != nil && !(*req.WheelRadius >= robot.MinWheelRadius) {
		return fmt.Errorf("wheel radius %v: %w", *req.WheelRadius, dynamo.ErrParameterBounds)
	}
	if req.MaxVelocity != nil && !(*req.MaxVelocity > 0) {
		return fmt.Errorf("max velocity %v: %w", *req.MaxVelocity, dynamo.ErrParameterBounds)
	}

	err := s.sim.WithRobot(func(r *robot.Robot) error {
		d := r.Drivetrain()
		if req.WheelRadius != nil {
			if err := d.SetWheelRadius(*req.WheelRadius); err != nil {
				return err
			}
		}
		if req.MaxVelocity != nil {
			d.SetMaxVelocity(*req.MaxVelocity)
		}
		if req.Type != nil {
			d.SetType(*req.Type)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(s.state())
}

// postConstraints installs new motion constraints and refits the current
// waypoints with them.
func (s *Server) postConstraints(c *fiber.Ctx) error {
	var req trajectory.Constraints
	if err := parse(c, &req); err != nil {
		return err
	}
	err := s.sim.WithRobot(func(r *robot.Robot) error {
		if err := req.Validate(s.cfg.Trajectory.Profile); err != nil {
			return err
		}
		r.SetConstraints(req)
		s.cfg.Constraints = req
		if len(s.cfg.Trajectory.Waypoints) < 2 {
			return nil
		}
		return s.rebuild(r)
	})
	if err != nil {
		return err
	}
	return c.JSON(s.state())
}

func (s *Server) postTrajectory(c *fiber.Ctx) error {
	var req trajectoryRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	err := s.sim.WithRobot(func(r *robot.Robot) error {
		next := s.cfg.Trajectory
		if req.Path != nil {
			next.Path = *req.Path
		}
		if req.Profile != nil {
			next.Profile = *req.Profile
		}
		next.Waypoints = req.Waypoints

		if err := r.Constraints().Validate(next.Profile); err != nil {
			return err
		}
		prev := s.cfg.Trajectory
		s.cfg.Trajectory = next
		err := s.rebuild(r)
		if err != nil && !errors.Is(err, dynamo.ErrDegeneratePath) {
			s.cfg.Trajectory = prev
		}
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(s.state())
}

// rebuild refits s.cfg's waypoints. Must run under WithRobot, which also
// guards s.cfg. Fewer than two waypoints clear the trajectory and switch
// following off.
func (s *Server) rebuild(r *robot.Robot) error {
	t := s.cfg.Trajectory
	waypoints := make([]dynamo.Pose, len(t.Waypoints))
	for i, w := range t.Waypoints {
		waypoints[i] = w.Pose()
		if !waypoints[i].IsValid() {
			return fmt.Errorf("waypoint %d: %w", i, dynamo.ErrNonFinite)
		}
	}
	traj, err := r.BuildTrajectory(waypoints, t.Profile, t.Path)
	if err != nil {
		return err
	}
	s.logger.Info("trajectory rebuilt",
		zap.Int("waypoints", len(waypoints)),
		zap.Stringer("path", t.Path),
		zap.Stringer("profile", t.Profile),
		zap.Float64("duration", traj.Duration()))
	return nil
}

// postPowers writes wheel powers directly. The follower overwrites them on
// its next firing while following is on.
func (s *Server) postPowers(c *fiber.Ctx) error {
	var req powersRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if !req.Powers.IsValid() {
		return fmt.Errorf("powers %v: %w", req.Powers, dynamo.ErrNonFinite)
	}
	_ = s.sim.WithRobot(func(r *robot.Robot) error {
		r.SetPowers(req.Powers)
		return nil
	})
	return c.JSON(s.state())
}
