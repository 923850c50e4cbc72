package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carelink/patient-portal/internal/app"
	"github.com/carelink/patient-portal/internal/cache"
	"github.com/carelink/patient-portal/internal/config"
	"github.com/carelink/patient-portal/internal/controller"
	"github.com/carelink/patient-portal/internal/controller/httpapi"
	"github.com/carelink/patient-portal/internal/repository"
	"github.com/carelink/patient-portal/internal/service"
	"github.com/carelink/patient-portal/internal/slots"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal",
		Short: "Patient portal: doctor slots and appointment booking",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(slotsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API, Telegram bot and cache warmer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, mg *app.Migrator) error {
				return mg.Up(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, mg *app.Migrator) error {
				return mg.Down(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, mg *app.Migrator) error {
				version, err := mg.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Schema version: %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

// slotsCmd печатает свободные слоты врача, удобно для проверки расписания
func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print available slots of a doctor for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetString("doctor")
			rawDate, _ := cmd.Flags().GetString("date")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			logger := app.NewLogger(cfg.Environment)
			defer logger.Sync()

			date := time.Now().In(loc)
			if rawDate != "" {
				if date, err = time.ParseInLocation(time.DateOnly, rawDate, loc); err != nil {
					return fmt.Errorf("parse date: %w", err)
				}
			}

			ctx := cmd.Context()
			pool, err := app.NewPostgresPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			engine := slots.NewEngine(
				repository.NewAvailabilityRepository(pool),
				repository.NewAppointmentRepository(pool),
				logger,
				slots.WithLocation(loc),
			)

			result := engine.GetAvailableSlots(ctx, doctorID, date)
			fmt.Printf("Doctor %s, %s: %d slot(s)\n", doctorID, date.Format(time.DateOnly), len(result.Slots))
			for _, s := range result.ISO() {
				fmt.Println("  " + s)
			}
			for _, f := range result.Failures {
				fmt.Printf("  degraded: %s: %v\n", f.Source, f.Err)
			}
			return nil
		},
	}
	cmd.Flags().String("doctor", "", "Doctor UUID")
	cmd.Flags().String("date", "", "Date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("doctor")
	return cmd
}

func withMigrator(ctx context.Context, fn func(ctx context.Context, mg *app.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	pool, err := app.NewPostgresPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	mg, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer mg.Close()

	return fn(ctx, mg)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting patient portal",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("timezone", loc.String()),
		zap.Bool("bot_enabled", cfg.BotEnabled()),
		zap.Bool("cache_enabled", cfg.CacheEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := app.NewPostgresPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	mg, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	if err := mg.Up(ctx); err != nil {
		mg.Close()
		return err
	}
	mg.Close()

	redisClient := app.NewRedisClient(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	availabilityRepo := repository.NewAvailabilityRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	doctorRepo := repository.NewDoctorRepository(pool)

	engine := slots.NewEngine(availabilityRepo, appointmentRepo, logger, slots.WithLocation(loc))
	slotCache := cache.NewSlotCache(redisClient, cfg.SlotCacheTTL)

	var botInstance *bot.Bot
	var botController *controller.BotController
	var notifier service.Notifier = service.NopNotifier{}
	if cfg.BotEnabled() {
		// Контроллер создаётся после бота, поэтому fallback через замыкание
		botInstance, err = bot.New(cfg.TelegramToken, bot.WithDefaultHandler(
			func(ctx context.Context, b *bot.Bot, update *models.Update) {
				botController.Fallback(ctx, b, update)
			}))
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}
		notifier = controller.NewTelegramNotifier(botInstance, loc, logger)
	}

	bookingService := service.NewBookingService(engine, appointmentRepo, doctorRepo, slotCache, notifier, logger)
	availabilityService := service.NewAvailabilityService(availabilityRepo, doctorRepo, slotCache, logger)

	if botInstance != nil {
		botController = controller.NewBotController(botInstance, bookingService, loc, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	scheduler := app.NewScheduler(availabilityService, bookingService, loc, cfg.WarmInterval, cfg.WarmDays, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	handler := httpapi.NewHandler(bookingService, availabilityService, loc, logger)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, logger, cfg.IsProduction()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("Patient portal stopped")
	return nil
}
