// Package server exposes a running simulation over HTTP. Control
// endpoints live under /api and telemetry streams on /ws/telemetry.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/sim"
)

const DefaultBroadcastInterval = 50 * time.Millisecond

type Options struct {
	// BroadcastInterval is the period of telemetry pushes to websocket
	// clients.
	BroadcastInterval time.Duration
	Logger            *zap.Logger
}

type Server struct {
	app      *fiber.App
	sim      *sim.Simulation
	cfg      *config.Config
	hub      *Hub
	interval time.Duration
	logger   *zap.Logger
}

// New wires the routes for s. cfg supplies the path and profile used when
// a trajectory request leaves them out; it is cloned and not retained.
func New(s *sim.Simulation, cfg *config.Config, opts Options) *Server {
	if opts.BroadcastInterval <= 0 {
		opts.BroadcastInterval = DefaultBroadcastInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	srv := &Server{
		sim:      s,
		cfg:      cfg.Clone(),
		hub:      NewHub(opts.Logger),
		interval: opts.BroadcastInterval,
		logger:   opts.Logger,
	}
	srv.app = fiber.New(fiber.Config{
		AppName:               "livetrain",
		DisableStartupMessage: true,
		ErrorHandler:          srv.errorHandler,
	})
	srv.app.Use(recover.New())
	srv.app.Use(cors.New())
	srv.routes()
	return srv
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "clients": s.hub.ClientCount()})
	})
	api.Get("/state", s.getState)
	api.Post("/run", s.postRun)
	api.Post("/pause", s.postPause)
	api.Post("/reset", s.postReset)
	api.Post("/speed", s.postSpeed)
	api.Post("/advance", s.postAdvance)
	api.Post("/follow", s.postFollow)
	api.Post("/noise", s.postNoise)
	api.Post("/coefficients", s.postCoefficients)
	api.Post("/drivetrain", s.postDrivetrain)
	api.Post("/constraints", s.postConstraints)
	api.Post("/trajectory", s.postTrajectory)
	api.Post("/powers", s.postPowers)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/telemetry", websocket.New(s.hub.handle))
}

// errorHandler maps domain sentinels to 400 and everything else to 500.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, dynamo.ErrParameterBounds),
		errors.Is(err, dynamo.ErrCoefficientLength),
		errors.Is(err, dynamo.ErrInvalidConstraints),
		errors.Is(err, dynamo.ErrDegeneratePath),
		errors.Is(err, dynamo.ErrUnknownKind),
		errors.Is(err, dynamo.ErrNonFinite):
		code = fiber.StatusBadRequest
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Hub() *Hub { return s.hub }

// Serve broadcasts telemetry and serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(ctx, s.interval, s.sim.Snapshot)

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()

	s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		return <-errc
	}
}

// ListenAndServe is Serve on a new TCP listener for addr.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
