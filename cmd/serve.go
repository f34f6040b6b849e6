package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"FACEATTEND/controllers/absen"
	"FACEATTEND/controllers/face"
	"FACEATTEND/enrollment"
	"FACEATTEND/logging"
	"FACEATTEND/routes"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the attendance HTTP server.
On startup every image in the students directory is enrolled, the gallery is
warmed and a background job keeps it in sync with the database.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().Bool("skip-enroll", false, "Do not enroll the students directory on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !mustGetBool(cmd, "skip-enroll") {
		enrollDirectory(ctx, a)
	}
	refreshGallery(ctx, a)

	scheduler, err := startRefreshJob(a)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	port := a.cfg.HTTP.Port
	if p := mustGetInt(cmd, "port"); p > 0 {
		port = p
	}

	gin.SetMode(gin.ReleaseMode)
	router := routes.SetupRouter(routes.Deps{
		Absen: &absen.Controller{
			Recognizer:   a.recognizer,
			Ledger:       a.ledger,
			ListLimit:    a.cfg.Attendance.ListLimit,
			ListMaxLimit: a.cfg.Attendance.ListMaxLimit,
		},
		Face: &face.Controller{
			Enroller:    a.enrollment,
			Students:    a.gallery,
			StudentsDir: a.cfg.Storage.StudentsDir,
		},
		Gatherer:    a.registry,
		CORSOrigins: a.cfg.HTTP.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info(gctx, "server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// enrollDirectory mendaftarkan folder students. Kegagalan cukup di-log dan
// tidak menghentikan server.
func enrollDirectory(ctx context.Context, a *app) {
	dir := a.cfg.Storage.StudentsDir
	results, err := a.enrollment.BulkEnroll(ctx, dir, nil)
	if err != nil {
		logging.Warn(ctx, "startup enrollment skipped", slog.String("dir", dir), logging.Err(err))
		return
	}
	failed := 0
	for _, r := range results {
		if r.Status == enrollment.StatusFailed {
			failed++
		}
	}
	logging.Info(ctx, "startup enrollment finished",
		slog.String("dir", dir), slog.Int("files", len(results)), slog.Int("failed", failed))
}

func refreshGallery(ctx context.Context, a *app) {
	if err := a.gallery.Refresh(ctx); err != nil {
		logging.Warn(ctx, "gallery refresh failed", logging.Err(err))
	}
}

// startRefreshJob memuat ulang gallery setiap CACHE_REFRESH_INTERVAL supaya data
// dari instance lain ikut terlihat. Interval 0 mematikan job ini.
func startRefreshJob(a *app) (*gocron.Scheduler, error) {
	interval := a.cfg.HTTP.CacheRefresh
	if interval <= 0 {
		return nil, nil
	}

	s := gocron.NewScheduler(a.cfg.Attendance.Location)
	s.SingletonModeAll()
	_, err := s.Every(interval).WaitForSchedule().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		refreshGallery(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule gallery refresh: %w", err)
	}
	s.StartAsync()
	return s, nil
}
