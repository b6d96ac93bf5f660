package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/engine"
)

// Server is the API server over the mapping engine
type Server struct {
	config Config
	svc    *engine.Service
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The engine service is injected to allow sharing with other front ends
// (e.g., the CLI when both run against the same artifacts).
func NewServer(config Config, svc *engine.Service, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		svc:    svc,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/train", s.handleTrain)
	app.Post("/v1/predict", s.handlePredict)
	app.Post("/v1/feedback", s.handleFeedback)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
