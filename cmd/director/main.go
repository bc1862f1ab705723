// Command director runs the live camera-directing service: it loads a
// reconstructed scene, consumes tracking updates, and serves relation
// tables, recommendations, and the reduced point cloud over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/scenecast/director/internal/api"
	"github.com/scenecast/director/internal/config"
	"github.com/scenecast/director/internal/engine"
	"github.com/scenecast/director/internal/httputil"
	"github.com/scenecast/director/internal/pointcloud"
	"github.com/scenecast/director/internal/scene"
	"github.com/scenecast/director/internal/store"
	"github.com/scenecast/director/internal/timeutil"
	"github.com/scenecast/director/internal/tracking"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	configPath  = flag.String("config", "", "Path to tuning config JSON (optional)")
	camerasPath = flag.String("cameras", "", "Path to scene cameras JSON")
	cloudPath   = flag.String("cloud", "", "Path to scene point cloud JSON (optional)")
	streamURL   = flag.String("stream", "", "Tracking websocket URL")
	pollURL     = flag.String("poll", "", "Tracking HTTP poll URL")
	synthetic   = flag.Int("synthetic", 0, "Run a synthetic feed with N subjects instead of a tracker")
	cutlogPath  = flag.String("cutlog", "", "Path to the cut log sqlite database (optional)")
)

// feed is the common shape of the three tracking sources.
type feed interface {
	Updates() <-chan tracking.Update
	Run(ctx context.Context) error
}

func buildFeed(cfg *config.Config, clock timeutil.Clock) feed {
	switch {
	case *streamURL != "":
		return tracking.NewStreamClient(*streamURL, tracking.StreamConfig{
			RetryBase:  cfg.GetStreamRetryBase(),
			RetryGrow:  cfg.GetStreamRetryGrow(),
			MaxRetries: cfg.GetStreamMaxRetry(),
		}, clock)
	case *pollURL != "":
		return tracking.NewPollClient(*pollURL, cfg.GetPollInterval(), httputil.NewStandardClient(nil), clock)
	default:
		n := *synthetic
		if n <= 0 {
			n = 3
		}
		return tracking.NewSyntheticFeed(n, cfg.GetPollInterval(), clock)
	}
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	eng := engine.New(cfg)

	if *camerasPath != "" {
		cams, err := scene.LoadCameras(*camerasPath)
		if err != nil {
			log.Fatalf("failed to load cameras: %v", err)
		}
		var cloud pointcloud.Cloud
		if *cloudPath != "" {
			cloud, err = scene.LoadCloud(*cloudPath)
			if err != nil {
				log.Fatalf("failed to load point cloud: %v", err)
			}
		}
		eng.SetScene(cams, cloud)
		log.Printf("loaded scene: %d cameras, %d points", len(cams), cloud.Len())
	}

	var cuts *store.CutLog
	if *cutlogPath != "" {
		var err error
		cuts, err = store.Open(*cutlogPath, eng.RunID())
		if err != nil {
			log.Fatalf("failed to open cut log: %v", err)
		}
		defer cuts.Close()
		eng.SetCutRecorder(cuts)
	}

	clock := timeutil.RealClock{}
	src := buildFeed(cfg, clock)
	server := api.NewServer(eng, cuts)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// tracking source
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := src.Run(ctx)
		switch {
		case err == nil || errors.Is(err, context.Canceled):
		case errors.Is(err, tracking.ErrRetryExhausted):
			// The stream gave up; keep the view alive on synthetic motion.
			log.Print("tracking stream exhausted retries, falling back to synthetic feed")
			fallback := tracking.NewSyntheticFeed(3, cfg.GetPollInterval(), clock)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := eng.Run(ctx, fallback.Updates()); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("engine stopped: %v", err)
				}
			}()
			if err := fallback.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("synthetic feed stopped: %v", err)
			}
		default:
			log.Printf("tracking feed stopped: %v", err)
		}
		log.Print("tracking routine terminated")
	}()

	// engine loop consuming tracking updates
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := eng.Run(ctx, src.Updates()); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("engine stopped: %v", err)
		}
		log.Print("engine routine terminated")
	}()

	// websocket snapshot broadcast
	wg.Add(1)
	go func() {
		defer wg.Done()
		server.Hub().BroadcastSnapshots(ctx, eng, clock, cfg.GetPollInterval())
		log.Print("broadcast routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		httpServer := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(server.ServeMux()),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
