// Package web serves the scene to a browser renderer: websocket input from
// the hand detector and audio analyser, a per-tick frame stream, a local
// camera preview, and the REST API for photos, music and camera tuning.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-treeform/internal/log"
	"github.com/teslashibe/go-treeform/pkg/hub"
	"github.com/teslashibe/go-treeform/pkg/protocol"
	"github.com/teslashibe/go-treeform/pkg/scene"
)

// Config holds the HTTP server settings.
type Config struct {
	Port      int    `yaml:"port" json:"port"`
	StaticDir string `yaml:"static_dir" json:"static_dir"` // renderer assets, empty = API only
	BodyLimit int    `yaml:"body_limit" json:"body_limit"` // max request body in bytes
}

// DefaultConfig listens on :8080 with room for a batch of phone photos.
func DefaultConfig() Config {
	return Config{
		Port:      8080,
		BodyLimit: 64 << 20,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("body_limit must be positive, got %d", c.BodyLimit)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

type blob struct {
	contentType string
	data        []byte
}

// Server is the scene's HTTP and websocket front end
type Server struct {
	app      *fiber.App
	cfg      Config
	director *scene.Director
	logger   *slog.Logger

	// Hubs for websocket fan-out
	inputHub  *hub.Hub
	frameHub  *hub.Hub
	cameraHub *hub.Hub

	// Uploaded photo bytes, served back to the renderer
	images   map[uuid.UUID]blob
	imagesMu sync.RWMutex
}

// NewServer creates a server for the director. Hubs start with Serve.
func NewServer(cfg Config, d *scene.Director) *Server {
	s := &Server{
		cfg:      cfg,
		director: d,
		logger:   log.Component("web"),
		images:   make(map[uuid.UUID]blob),
	}
	s.inputHub = hub.New("input", hub.Options{OnMessage: s.handleInput})
	s.frameHub = hub.New("frames", hub.Options{Coalesce: true, OnConnect: s.greetRenderer})
	s.cameraHub = hub.New("camera", hub.Options{Coalesce: true})

	app := fiber.New(fiber.Config{
		AppName:               "treeform",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/entities", s.handleEntities)
	api.Get("/geometry", s.handleGeometry)
	api.Get("/photos", s.handleListPhotos)
	api.Post("/photos", s.handleUploadPhotos)
	api.Get("/photos/:id/image", s.handlePhotoImage)
	api.Delete("/photos/:id", s.handleDeletePhoto)
	api.Get("/music", s.handleListMusic)
	api.Post("/music", s.handleUploadMusic)
	api.Get("/music/:id", s.handleMusicData)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)
	api.Get("/camera/presets", s.handleCameraPresets)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/input", websocket.New(s.wsHandler(s.inputHub)))
	app.Get("/ws/frames", websocket.New(s.wsHandler(s.frameHub)))
	app.Get("/ws/camera", websocket.New(s.wsHandler(s.cameraHub)))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured port until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hubs and serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, h := range []*hub.Hub{s.inputHub, s.frameHub, s.cameraHub} {
		go h.Run(ctx)
	}

	s.logger.Info("web server listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	cancel()
	for _, h := range []*hub.Hub{s.inputHub, s.frameHub, s.cameraHub} {
		<-h.Done()
	}
	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// PublishFrame streams a frame to every renderer. Slow renderers only ever
// see the newest frame.
func (s *Server) PublishFrame(f scene.Frame) {
	if s.frameHub.ClientCount() == 0 {
		return
	}
	msg, err := protocol.NewFrameMessage(&f)
	if err != nil {
		s.logger.Error("encode frame", "error", err)
		return
	}
	b, err := msg.Bytes()
	if err != nil {
		s.logger.Error("encode frame", "error", err)
		return
	}
	s.frameHub.Broadcast(hub.NewJSONMessage(b))
}

// SendCameraPreview sends a JPEG preview to every camera viewer.
func (s *Server) SendCameraPreview(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// ClientCounts reports connected clients per stream.
func (s *Server) ClientCounts() map[string]int {
	return map[string]int{
		"input":  s.inputHub.ClientCount(),
		"frames": s.frameHub.ClientCount(),
		"camera": s.cameraHub.ClientCount(),
	}
}

func (s *Server) wsHandler(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		client, err := hub.NewClient(h, c)
		if err != nil {
			c.Close()
			return
		}
		client.Run()
	}
}
