// Command bot is the entry point for the Veyra-Vet Discord bot.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Monkestation/Veyra-Vet/internal/cache"
	"github.com/Monkestation/Veyra-Vet/internal/config"
	"github.com/Monkestation/Veyra-Vet/internal/discord"
	"github.com/Monkestation/Veyra-Vet/internal/models"
	"github.com/Monkestation/Veyra-Vet/internal/observability"
	"github.com/Monkestation/Veyra-Vet/internal/ops"
	"github.com/Monkestation/Veyra-Vet/internal/repository"
	"github.com/Monkestation/Veyra-Vet/internal/scheduler"
	"github.com/Monkestation/Veyra-Vet/internal/service"
	"github.com/Monkestation/Veyra-Vet/internal/store"
	"github.com/Monkestation/Veyra-Vet/internal/veyra"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogging(cfg.Env)

	ctx := context.Background()

	vetStore, comStore, err := openStores(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	vetRepo := repository.NewVettingRepository(vetStore)
	comRepo := repository.NewCommissionRepository(comStore)
	if err := vetRepo.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize vetting storage: %v", err)
	}
	if err := comRepo.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize commission storage: %v", err)
	}

	rdb := cache.InitRedis(cfg.RedisURL)
	verCache := cache.NewVerificationCache(rdb, time.Duration(cfg.VerificationCacheTTLMin)*time.Minute)

	api := veyra.NewClient(cfg.VeyraBaseURL, cfg.VeyraUsername, cfg.VeyraPassword, veyra.WithCache(verCache))
	if err := api.Login(ctx); err != nil {
		// Startup continues; the client re-authenticates on demand.
		slog.Warn("initial Veyra login failed", "error", err)
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("Failed to create Discord session: %v", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	gateway := discord.NewAdapter(session, cfg)
	sched := scheduler.New()

	vetSvc := service.NewVettingService(vetRepo, api, gateway, sched)
	comSvc := service.NewCommissionService(comRepo, gateway, sched)

	handler := discord.NewHandler(cfg, vetSvc, comSvc)
	handler.Attach(session)

	registerMaintenance(sched, cfg, vetSvc, comSvc)

	if err := session.Open(); err != nil {
		log.Fatalf("Failed to connect to Discord: %v", err)
	}
	sched.Start()

	var opsSrv *ops.Server
	if cfg.OpsAddr != "" {
		opsSrv = ops.NewServer(cfg, vetSvc, comSvc, rdb)
		go func() {
			if err := opsSrv.Listen(cfg.OpsAddr); err != nil {
				slog.Error("ops server stopped", "error", err)
			}
		}()
	}

	slog.Info("bot is running", "guild", cfg.DiscordGuildID)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if opsSrv != nil {
		if err := opsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("ops server shutdown error", "error", err)
		}
	}
	sched.Stop()
	if err := session.Close(); err != nil {
		slog.Error("Discord session close error", "error", err)
	}

	vetStats, vetErr := vetSvc.Stats(shutdownCtx)
	comStats, comErr := comSvc.Stats(shutdownCtx)
	if vetErr == nil && comErr == nil {
		slog.Info("shutdown complete",
			"pending_vetting", vetStats[models.VettingStatusPending],
			"active_commissions", comStats[models.CommissionStatusActive])
	} else {
		slog.Info("shutdown complete")
	}
}

func openStores(cfg *config.Config) (store.Store[*models.VettingRequest], store.Store[*models.Commission], error) {
	switch cfg.StorageDriver {
	case "sqlite", "postgres":
		db, err := store.OpenDatabase(cfg.StorageDriver, cfg.StorageDSN)
		if err != nil {
			return nil, nil, err
		}
		return store.NewGormStore[*models.VettingRequest](db, "vetting_requests"),
			store.NewGormStore[*models.Commission](db, "commissions"), nil
	default:
		return store.NewFileStore[*models.VettingRequest](filepath.Join(cfg.DataDir, "vettings.json"), "vetting requests"),
			store.NewFileStore[*models.Commission](filepath.Join(cfg.DataDir, "commissions.json"), "commissions"), nil
	}
}

func registerMaintenance(sched *scheduler.Scheduler, cfg *config.Config, vetSvc *service.VettingService, comSvc *service.CommissionService) {
	timeout := time.Duration(cfg.VettingTimeoutDays) * 24 * time.Hour

	must := func(err error) {
		if err != nil {
			log.Fatalf("Failed to register maintenance job: %v", err)
		}
	}

	must(sched.AddMaintenance("vetting-timeout-sweep", func(ctx context.Context) {
		if _, err := vetSvc.TimeoutSweep(ctx, timeout); err != nil {
			slog.Error("vetting timeout sweep failed", "error", err)
		}
	}))
	must(sched.AddMaintenance("vetting-cleanup", func(ctx context.Context) {
		if _, err := vetSvc.Cleanup(ctx); err != nil {
			slog.Error("vetting cleanup failed", "error", err)
		}
	}))
	must(sched.AddMaintenance("commission-cleanup", func(ctx context.Context) {
		if _, err := comSvc.Cleanup(ctx); err != nil {
			slog.Error("commission cleanup failed", "error", err)
		}
	}))
}
