package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-treeform/internal/config"
	"github.com/teslashibe/go-treeform/internal/log"
	"github.com/teslashibe/go-treeform/pkg/capture"
	"github.com/teslashibe/go-treeform/pkg/capture/webcam"
	"github.com/teslashibe/go-treeform/pkg/photodir"
	"github.com/teslashibe/go-treeform/pkg/scene"
	"github.com/teslashibe/go-treeform/pkg/web"
)

var (
	servePort     int
	serveStatic   string
	serveCapture  bool
	servePhotoDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scene and the web server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (overrides config)")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "directory with the renderer assets")
	serveCmd.Flags().BoolVar(&serveCapture, "capture", false, "stream the local webcam as a preview")
	serveCmd.Flags().StringVar(&servePhotoDir, "photo-dir", "", "import images dropped into this directory")
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("port") {
		cfg.Web.Port = servePort
	}
	if flags.Changed("static") {
		cfg.Web.StaticDir = serveStatic
	}
	if flags.Changed("capture") {
		cfg.Capture.Enabled = serveCapture
	}
	if flags.Changed("photo-dir") {
		cfg.PhotoDir.Dir = servePhotoDir
	}
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	director, err := scene.New(cfg.SceneOptions())
	if err != nil {
		return err
	}
	srv := web.NewServer(cfg.Web, director)
	director.OnFrame(srv.PublishFrame)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return director.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })

	if cfg.Capture.Enabled {
		g.Go(func() error {
			runCapture(ctx, cfg.Capture, director, srv)
			return nil
		})
	}

	if cfg.PhotoDir.Enabled() {
		w, err := photodir.New(cfg.PhotoDir, photoSink(srv))
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	}

	log.Info("treeform started", "addr", cfg.Web.Addr(), "capture", cfg.Capture.Enabled,
		"photo_dir", cfg.PhotoDir.Dir)
	err = g.Wait()
	log.Info("treeform stopped")
	return err
}

// runCapture streams webcam previews. Hands come from the browser detector,
// so a missing camera is logged and the scene keeps running without it.
func runCapture(ctx context.Context, cfg capture.Config, d *scene.Director, srv *web.Server) {
	cam, err := webcam.Open(cfg, nil)
	if err != nil {
		log.Warn("camera preview disabled", "error", err)
		return
	}
	pump := capture.NewPump(cfg, cam, d, nil)
	pump.OnPreview(srv.SendCameraPreview)
	if err := pump.Run(ctx); err != nil {
		log.Warn("camera preview stopped", "error", err)
	}
}

func photoSink(srv *web.Server) photodir.Sink {
	return func(files []photodir.File) error {
		photos := make([]web.PhotoFile, len(files))
		for i, f := range files {
			photos[i] = web.PhotoFile{Name: f.Name, ContentType: f.ContentType, Data: f.Data}
		}
		_, err := srv.AddPhotos(photos)
		return err
	}
}
