package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/soundsync/server/internal/controller"
	"github.com/soundsync/server/internal/repository/connection/inmemory"
	"github.com/soundsync/server/internal/repository/file/disk"
	"github.com/soundsync/server/internal/repository/room/redis"
	"github.com/soundsync/server/internal/service/room"
	"github.com/soundsync/server/pkg/ctxlogger"
	"github.com/soundsync/server/pkg/redisclient"
)

type AppConfig struct {
	Host          string  `json:"host"`
	Port          int     `json:"port"`
	LogLevel      string  `json:"log_level"`
	UploadDir     string  `json:"upload_dir"`
	MembersLimit  int     `json:"members_limit"`
	QueueLimit    int     `json:"queue_limit"`
	SyncIntervalS float64 `json:"sync_interval_s"`
	PlayBufferS   float64 `json:"play_buffer_s"`
	RedisHost     string  `json:"redis_host"`
	RedisPort     int     `json:"redis_port"`
	RedisPassword string  `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.QueueLimit < 1 {
		return fmt.Errorf("queue limit must be greater than 0")
	}
	if cfg.SyncIntervalS <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if cfg.PlayBufferS <= 0 {
		return fmt.Errorf("play buffer must be positive")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	fileRepo, err := disk.NewRepo(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to create file repo: %w", err)
	}

	roomRepo := redis.NewRepo(rc, 24*time.Hour)
	connectionRepo := inmemory.NewRepo()
	roomService := room.NewService(roomRepo, connectionRepo, &room.Config{
		MembersLimit:        cfg.MembersLimit,
		QueueLimit:          cfg.QueueLimit,
		ScheduledPlayBuffer: time.Duration(cfg.PlayBufferS * float64(time.Second)),
		AutoAdvanceBuffer:   500 * time.Millisecond,
	})
	controller := controller.NewController(roomService, fileRepo, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	go controller.RunSyncBroadcaster(serverCtx, time.Duration(cfg.SyncIntervalS*float64(time.Second)))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	slog.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
