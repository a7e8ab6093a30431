// -----------------------------------------------------------------------
// App - Dependency wiring for the swarm, its stores and the status server
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/server"
	"github.com/ternarybob/peto/internal/services/browser"
	"github.com/ternarybob/peto/internal/services/events"
	"github.com/ternarybob/peto/internal/services/heal"
	"github.com/ternarybob/peto/internal/services/inbox"
	"github.com/ternarybob/peto/internal/services/report"
	"github.com/ternarybob/peto/internal/services/resume"
	"github.com/ternarybob/peto/internal/services/scheduler"
	"github.com/ternarybob/peto/internal/services/swarm"
	"github.com/ternarybob/peto/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage interfaces.StorageManager

	Events    interfaces.EventService
	Browser   interfaces.BrowserService
	Inbox     interfaces.InboxService
	Scheduler interfaces.SchedulerService

	Profile *models.Profile
	Targets []models.Target

	Swarm  *swarm.Service
	Heal   *heal.Service
	Resume *resume.Service
	Report *report.Service

	// Server is nil unless the status server is enabled in config.
	Server *server.Server

	// One live run at a time; the self-heal step never overlaps a run.
	runMu       sync.Mutex
	browserOnce sync.Once
	browserErr  error
}

// New initializes the application with all dependencies. The browser
// process is not launched here; it starts lazily on the first swarm run
// so heal-only invocations stay cheap.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initInputs(); err != nil {
		return nil, fmt.Errorf("failed to load run inputs: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Int("targets", len(app.Targets)).
		Int("attempt", cfg.Swarm.Attempt).
		Bool("server_enabled", cfg.Server.Enabled).
		Bool("schedule_enabled", cfg.Schedule.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens the Badger stores for run state, outcomes and reports.
func (a *App) initStorage() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.Storage = manager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initInputs loads the applicant profile and the target list. Both
// loaders fall back to built-in defaults when their files are absent.
func (a *App) initInputs() error {
	profile, err := models.LoadProfile(a.Config.Profile.Path)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	a.Profile = profile
	a.Logger.Debug().
		Str("path", a.Config.Profile.Path).
		Str("applicant", profile.FirstName+" "+profile.LastName).
		Msg("Profile loaded")

	targets, err := models.LoadTargets(a.Config.Targets.Path)
	if err != nil {
		return fmt.Errorf("failed to load targets: %w", err)
	}
	a.Targets = targets
	a.Logger.Debug().
		Str("path", a.Config.Targets.Path).
		Int("targets", len(targets)).
		Msg("Targets loaded")

	return nil
}

// initServices initializes all business services in dependency order.
func (a *App) initServices() error {
	a.Events = events.NewService(a.Logger)
	a.Logger.Debug().Msg("Event service initialized")

	a.Browser = browser.NewService(a.Config, a.Logger)
	a.Logger.Debug().Msg("Browser service initialized")

	a.Inbox = inbox.NewService(&a.Config.Inbox, a.Logger)
	a.Logger.Debug().Bool("enabled", a.Config.Inbox.Enabled).Msg("Inbox service initialized")

	a.Resume = resume.NewService(a.Config, a.Profile, a.Logger)
	a.Report = report.NewService(a.Config, a.Logger)
	a.Heal = heal.NewService(a.Config, a.Storage.RunStateStorage(), a.Events, a.Logger)

	a.Swarm = swarm.NewService(a.Config, a.Profile, a.Targets, a.Browser, a.Storage, a.Events, a.Inbox, a.Logger)
	a.Logger.Debug().Msg("Swarm service initialized")

	a.Scheduler = scheduler.NewService(a.Logger)
	if a.Config.Schedule.Enabled {
		if err := common.ValidateSchedule(a.Config.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", a.Config.Schedule.Cron, err)
		}
		if err := a.Scheduler.RegisterJob("swarm-run", a.Config.Schedule.Cron, a.scheduledRun); err != nil {
			return fmt.Errorf("failed to register scheduled run: %w", err)
		}
		if err := a.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		a.Logger.Info().
			Str("cron", a.Config.Schedule.Cron).
			Bool("heal_runs", a.Config.Schedule.HealRun).
			Msg("Scheduler started")
	}

	if a.Config.Server.Enabled {
		a.Server = server.New(a.Config, a.Storage, a.Events, a.Scheduler, a.Logger)
		a.Server.AttachLogger(a.Logger)
		a.Logger.Debug().
			Str("host", a.Config.Server.Host).
			Int("port", a.Config.Server.Port).
			Msg("Status server initialized")
	}

	return nil
}

// RunSwarm executes one full swarm pass at the configured attempt number
// and writes the report renditions. Provisions the resume and launches
// the browser first when this is the process's first run.
func (a *App) RunSwarm(ctx context.Context) (*models.RunReport, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	resumePath, err := a.Resume.Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume not available: %w", err)
	}
	a.Logger.Debug().Str("path", resumePath).Msg("Resume ready")

	if err := a.ensureBrowser(); err != nil {
		return nil, fmt.Errorf("browser startup failed: %w", err)
	}

	report, err := a.Swarm.Run(ctx)
	if err != nil {
		return nil, err
	}

	if _, _, err := a.Report.WriteRenditions(report); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to write report renditions")
	}

	return report, nil
}

// RunHeal runs the self-heal step over the given attempt's log and
// returns the updated run state. Serialized with RunSwarm: the hint
// pools are only ever written while no run is live.
func (a *App) RunHeal(ctx context.Context, attempt int) (*models.RunState, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	return a.Heal.Heal(ctx, attempt)
}

// scheduledRun is the cron job body for unattended operation: swarm
// pass, optional heal step over its log, then a fresh attempt number so
// the next pass never overwrites this one's outcomes.
func (a *App) scheduledRun() error {
	ctx := context.Background()
	attempt := a.Config.Swarm.Attempt

	if _, err := a.RunSwarm(ctx); err != nil {
		return fmt.Errorf("scheduled swarm run failed: %w", err)
	}

	if a.Config.Schedule.HealRun {
		if _, err := a.RunHeal(ctx, attempt); err != nil {
			a.Logger.Warn().Err(err).Int("attempt", attempt).Msg("Scheduled self-heal step failed")
		}
	}

	a.advanceAttempt()
	return nil
}

// advanceAttempt bumps the attempt counter between scheduled passes.
func (a *App) advanceAttempt() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	a.Config.Swarm.Attempt++
	a.Logger.Info().
		Int("attempt", a.Config.Swarm.Attempt).
		Msg("Attempt counter advanced for next scheduled run")
}

// ensureBrowser launches the shared Chrome process on first use. The
// allocator must outlive any single run, so it is anchored to the
// background context rather than a per-run one.
func (a *App) ensureBrowser() error {
	a.browserOnce.Do(func() {
		a.browserErr = a.Browser.Initialize(context.Background())
	})
	return a.browserErr
}

// Close closes all application resources in reverse dependency order.
// The status server is shut down by the caller before Close so in-flight
// requests get a deadline.
func (a *App) Close() error {
	if a.Scheduler != nil && a.Scheduler.IsRunning() {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.Browser != nil {
		if err := a.Browser.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close browser service")
		}
	}

	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Debug().Msg("Storage closed")
	}

	return nil
}
