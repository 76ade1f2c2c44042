package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/semmidev/obx/internal/adapter/archive"
	"github.com/semmidev/obx/internal/adapter/crontab"
	"github.com/semmidev/obx/internal/adapter/database"
	"github.com/semmidev/obx/internal/adapter/storage"
	"github.com/semmidev/obx/internal/config"
	"github.com/semmidev/obx/internal/domain"
	"github.com/semmidev/obx/internal/infrastructure/logger"
	"github.com/semmidev/obx/internal/infrastructure/prompt"
	"github.com/semmidev/obx/internal/usecase"
)

type App struct {
	config   *config.Config
	logger   *logger.Logger
	prompter *prompt.Prompter
	db       *database.PostgreSQLDatabase
	locator  *usecase.Locator
	archiver *archive.ZipArchiver
	crontab  *crontab.Crontab
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db := database.NewPostgreSQL(cfg)

	return &App{
		config:   cfg,
		logger:   log,
		prompter: prompt.New(),
		db:       db,
		locator:  usecase.NewLocator(db, log),
		archiver: archive.NewZip(),
		crontab:  crontab.New(),
	}, nil
}

// Run resolves every setting, runs one backup and optionally installs a
// cron entry. A user declining the confirmation is a clean exit, not an
// error.
func (a *App) Run(ctx context.Context) error {
	if err := a.resolveConnection(); err != nil {
		return err
	}

	if err := a.db.Connect(ctx); err != nil {
		return err
	}
	a.logger.Infof("Connected to PostgreSQL at %s:%d", a.config.Host, a.config.Port)

	if err := a.resolveDatabase(ctx); err != nil {
		return err
	}
	if err := a.resolveFilestore(ctx); err != nil {
		return err
	}
	if err := a.resolveOutputPath(); err != nil {
		return err
	}

	if a.config.NonInteractive {
		a.logger.Infof("Database: %s", a.config.Database)
		a.logger.Infof("Filestore: %s", displayPath(a.config.FilestorePath))
		a.logger.Infof("Output: %s", a.config.OutputPath)
	} else {
		a.prompter.Summary("Backup configuration", [][2]string{
			{"Database", a.config.Database},
			{"Filestore", displayPath(a.config.FilestorePath)},
			{"Output", a.config.OutputPath},
		})

		proceed, err := a.prompter.Confirm("Proceed with backup?", true)
		if err != nil {
			return err
		}
		if !proceed {
			a.logger.Warnf("Backup cancelled")
			return nil
		}
	}

	localStorage, err := storage.NewLocal(a.config.OutputPath)
	if err != nil {
		return err
	}

	backupUC := usecase.NewBackup(a.db, a.archiver, localStorage, a.uploadTargets(), a.logger)
	if _, err := backupUC.Execute(ctx, domain.Request{
		Database:      a.config.Database,
		FilestorePath: a.config.FilestorePath,
		OutputPath:    a.config.OutputPath,
	}); err != nil {
		return err
	}

	a.maybeSetupCron(ctx)
	return nil
}

// resolveConnection fills the connection settings nothing resolved yet,
// by prompting in interactive mode and by fixed defaults otherwise.
func (a *App) resolveConnection() error {
	if a.config.NonInteractive {
		a.config.ApplyDefaults()
		return nil
	}

	var err error
	if a.config.Host == "" {
		if a.config.Host, err = a.prompter.Input("PostgreSQL host", config.DefaultHost); err != nil {
			return err
		}
	}
	if a.config.Port == 0 {
		if a.config.Port, err = a.prompter.InputInt("PostgreSQL port", config.DefaultPort); err != nil {
			return err
		}
	}
	if a.config.User == "" {
		if a.config.User, err = a.prompter.Input("PostgreSQL user", config.DefaultUser); err != nil {
			return err
		}
	}
	if a.config.Password == "" {
		if a.config.Password, err = a.prompter.Password("PostgreSQL password (empty for peer auth)"); err != nil {
			return err
		}
	}
	return nil
}

// resolveDatabase picks the database to back up. The server's databases are
// listed either way, so a non-interactive run missing --database still
// tells the operator what is available before failing.
func (a *App) resolveDatabase(ctx context.Context) error {
	if a.config.Database != "" {
		return nil
	}

	databases, err := a.db.ListDatabases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list databases: %w", err)
	}
	if len(databases) == 0 {
		return fmt.Errorf("no databases found on %s:%d", a.config.Host, a.config.Port)
	}

	if a.config.NonInteractive {
		a.logger.Infof("Available databases: %s", strings.Join(databases, ", "))
		return fmt.Errorf("--database is required in non-interactive mode")
	}

	a.config.Database, err = a.prompter.Select("Select database to back up", databases, databases[0])
	return err
}

func (a *App) resolveFilestore(ctx context.Context) error {
	if a.config.FilestorePath != "" {
		return nil
	}

	if path, err := a.locator.Locate(ctx, a.config.Database); err == nil {
		a.config.FilestorePath = path
		return nil
	}

	fallback := config.DefaultFilestorePath(a.config.Database)
	if a.config.NonInteractive {
		a.logger.Warnf("Could not detect the filestore, trying %s", fallback)
		a.config.FilestorePath = fallback
		return nil
	}

	a.logger.Warnf("Could not detect the filestore automatically")
	answer, err := a.prompter.Input("Filestore path", fallback)
	if err != nil {
		return err
	}
	a.config.FilestorePath = answer
	return nil
}

func (a *App) resolveOutputPath() error {
	if a.config.OutputPath != "" {
		return nil
	}

	answer, err := a.prompter.Input("Output directory", config.DefaultOutputPath)
	if err != nil {
		return err
	}
	a.config.OutputPath = answer
	return nil
}

func (a *App) uploadTargets() []usecase.UploadTarget {
	var targets []usecase.UploadTarget

	for _, targetCfg := range a.config.GetEnabledUploadTargets() {
		var stor domain.Storage
		var err error

		switch targetCfg.Type {
		case "gdrive":
			stor, err = storage.NewGDrive(&targetCfg)
			if err != nil {
				a.logger.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			a.logger.Infof("✓ Google Drive upload enabled")

		case "s3":
			stor, err = storage.NewS3(&targetCfg)
			if err != nil {
				a.logger.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			a.logger.Infof("✓ AWS S3 upload enabled (bucket: %s)", targetCfg.Bucket)

		case "telegram":
			stor, err = storage.NewTelegram(&targetCfg)
			if err != nil {
				a.logger.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			a.logger.Infof("✓ Telegram upload enabled")

		default:
			a.logger.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets
}

// maybeSetupCron offers recurring backups after a successful run. Cron
// problems are reported but never fail the run, the backup already exists.
func (a *App) maybeSetupCron(ctx context.Context) {
	setupCron := a.config.SetupCron
	if !setupCron && !a.config.NonInteractive {
		answer, err := a.prompter.Confirm("Set up automatic recurring backups with cron?", false)
		if err != nil {
			return
		}
		setupCron = answer
	}
	if !setupCron {
		return
	}

	a.setupSchedule(ctx)
}

func (a *App) setupSchedule(ctx context.Context) {
	command := a.cronCommand()
	scheduleExpr := a.config.CronSchedule
	if scheduleExpr == "" {
		scheduleExpr = config.DefaultSchedule
	}

	if !a.config.NonInteractive {
		a.prompter.Summary("Common schedules", [][2]string{
			{"0 2 * * *", "every day at 02:00"},
			{"0 */6 * * *", "every 6 hours"},
			{"0 2 * * 0", "every Sunday at 02:00"},
			{"0 2 1 * *", "first day of each month at 02:00"},
		})

		answer, err := a.prompter.Input("Cron schedule", scheduleExpr)
		if err != nil {
			return
		}
		scheduleExpr = answer

		proceed, err := a.prompter.Confirm("Add this cron job to your crontab automatically?", true)
		if err != nil {
			return
		}
		if !proceed {
			a.printManualInstructions(scheduleExpr, command)
			return
		}
	}

	scheduleUC := usecase.NewSchedule(a.crontab, a.prompter, a.logger, a.config.NonInteractive)
	if err := scheduleUC.Execute(ctx, scheduleExpr, command); err != nil {
		switch {
		case errors.Is(err, usecase.ErrScheduleCancelled):
			a.logger.Warnf("Cron setup cancelled")
		case errors.Is(err, crontab.ErrNotAvailable):
			a.logger.Warnf("The crontab command is not available on this system")
			a.printManualInstructions(scheduleExpr, command)
		default:
			a.logger.Errorf("Failed to install cron job: %v", err)
			a.printManualInstructions(scheduleExpr, command)
		}
	}
}

// cronCommand rebuilds this run as a non-interactive invocation, preferring
// the installed binary over the one currently executing.
func (a *App) cronCommand() string {
	return a.executable() + " " + strings.Join(a.config.ReplayArgs(), " ")
}

func (a *App) executable() string {
	if path, err := exec.LookPath("obx"); err == nil {
		return path
	}
	if path, err := os.Executable(); err == nil {
		return path
	}
	return "obx"
}

func (a *App) printManualInstructions(scheduleExpr, command string) {
	a.logger.Infof("To schedule backups manually, run: crontab -e")
	a.logger.Infof("Then add this line: %s %s %s", scheduleExpr, command, usecase.Marker)
}

func displayPath(path string) string {
	if path == "" {
		return "(database only)"
	}
	return path
}

func (a *App) Shutdown() {
	if err := a.db.Close(); err != nil {
		a.logger.Warnf("Failed to close database connection: %v", err)
	}
	a.logger.Close()
}
