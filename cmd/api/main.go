package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackify/internal/infrastructure/postgres/listener"
	"trackify/internal/interfaces/scheduler"
	"trackify/internal/shared/config"
	"trackify/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
			SampleRatio:  cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				log.Printf("Error shutting down telemetry: %v", err)
			}
		}()
		log.Printf("Telemetry enabled (metrics on :%s)", cfg.Telemetry.MetricsPort)
	}

	deps, err := NewDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	sched, err := setupScheduler(cfg, deps)
	if err != nil {
		return err
	}

	var templateListener *listener.TemplateListener
	if cfg.Listener.Enabled && sched != nil {
		templateListener = listener.NewTemplateListener(
			cfg.Database.ConnectionString(),
			scheduler.TriggerUser(sched, deps.Engine),
		)
		templateListener.Start(ctx)
	}

	srv := StartServer(cfg.Server.Host+":"+cfg.Server.Port, SetupRoutes(deps))

	<-ctx.Done()

	GracefulShutdown(srv, sched, templateListener, cfg.Server.ShutdownTimeout)
	return nil
}

// setupScheduler registers the daily processing run and, when enabled, the
// upcoming-charges reminder. It returns nil when the scheduler is disabled.
func setupScheduler(cfg *config.Config, deps *Dependencies) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		log.Println("Scheduler is disabled")
		return nil, nil
	}

	sched := scheduler.NewScheduler(scheduler.Config{
		WorkerCount:  cfg.Scheduler.WorkerCount,
		JobDelay:     cfg.Scheduler.JobDelay,
		QueueSize:    cfg.Scheduler.QueueSize,
		RunOnStartup: cfg.Scheduler.RunOnStartup,
	})

	err := sched.AddDaily(scheduler.TaskProcessDue, cfg.Scheduler.ScheduleTimes,
		scheduler.ProcessDueProvider(deps.RecurringRepo, deps.Engine))
	if err != nil {
		return nil, err
	}

	if cfg.Reminder.Enabled {
		err := sched.AddDaily(scheduler.TaskUpcomingReminder, []string{cfg.Reminder.Time},
			scheduler.UpcomingReminderProvider(deps.RecurringRepo, deps.Engine, deps.NotificationService, cfg.Reminder.WindowDays))
		if err != nil {
			return nil, err
		}
	}

	sched.Start()
	log.Printf("Next %s run at %s", scheduler.TaskProcessDue,
		sched.NextRun(scheduler.TaskProcessDue).Format(time.RFC3339))
	return sched, nil
}
