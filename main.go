package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"shortsbot/bot"
	"shortsbot/config"
	"shortsbot/media"
	"shortsbot/progress"
	"shortsbot/subtitles"
	"shortsbot/workflow"
	"shortsbot/youtube"
)

func main() {
	// Load .env (local dev only, deployments set real env vars)
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	folders := media.NewFolders(cfg.Paths)
	if err := folders.Ensure(); err != nil {
		log.Fatalf("Failed to create working folders: %v", err)
	}

	logger, closeLogs := config.SetupLogger(cfg.Paths.Logs, slog.LevelInfo)
	defer closeLogs()

	store := progress.Open(cfg.Paths.ProgressFile, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var uploader workflow.ClipUploader
	if cfg.YouTube.OnlineMode {
		svc, err := youtube.NewService(ctx)
		if err != nil {
			log.Fatalf("Failed to authenticate with YouTube: %v", err)
		}
		uploader = youtube.NewUploader(svc,
			cfg.Bot.UploadRetryAttempts,
			time.Duration(cfg.Bot.RetryDelayMinutes)*time.Minute,
			logger)
		logger.Info("youtube authenticated, uploads enabled")
	} else {
		logger.Warn("offline mode: clips will be produced but nothing uploaded")
	}

	b, err := bot.New(cfg, store, folders, cfg.YouTube.OnlineMode, stop, logger)
	if err != nil {
		log.Fatalf("Failed to create Discord bot: %v", err)
	}

	splitter := media.NewSplitter(folders, cfg.Video, logger)
	subs := subtitles.New(cfg.Subtitles, logger)
	producer := workflow.NewProducer(splitter, subs, b, logger)
	pipeline := workflow.NewPipeline(cfg, store, folders, uploader, b, logger)
	manager := workflow.NewManager(cfg, store, folders, producer, pipeline, uploader, b, b, logger)
	driver := workflow.NewDriver(manager, time.Duration(cfg.Bot.TickMinutes)*time.Minute, logger)
	b.AttachDriver(driver)

	if err := b.Open(); err != nil {
		log.Fatalf("Failed to connect to Discord: %v", err)
	}
	defer b.Close()

	logger.Info("shorts bot running",
		"channel", cfg.Bot.ChannelID,
		"tick_minutes", cfg.Bot.TickMinutes,
		"online", cfg.YouTube.OnlineMode)

	driver.Run(ctx)
	logger.Info("shutting down")
}
