package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Marker identifies crontab lines this tool manages. It rides along as a
// shell comment at the end of every installed entry, so recognition does
// not depend on where the binary lives or what it is called, and a command
// that merely mentions obx is never claimed.
const Marker = "# obx-backup"

// ErrScheduleCancelled reports that the user backed out when asked what to
// do with existing entries.
var ErrScheduleCancelled = errors.New("schedule setup cancelled")

type Crontab interface {
	Read(ctx context.Context) (string, error)
	Install(ctx context.Context, table string) error
}

type SchedulePrompter interface {
	Select(message string, options []string, defaultValue string) (string, error)
}

type Schedule struct {
	crontab        Crontab
	prompter       SchedulePrompter
	logger         Logger
	nonInteractive bool
}

func NewSchedule(crontab Crontab, prompter SchedulePrompter, logger Logger, nonInteractive bool) *Schedule {
	return &Schedule{
		crontab:        crontab,
		prompter:       prompter,
		logger:         logger,
		nonInteractive: nonInteractive,
	}
}

// Execute validates the schedule expression, reconciles the new entry with
// any entries this tool installed before, and writes the updated crontab.
// The crontab is read and written through the crontab command, never by
// touching spool files directly.
func (uc *Schedule) Execute(ctx context.Context, scheduleExpr, command string) error {
	schedule, err := cron.ParseStandard(scheduleExpr)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", scheduleExpr, err)
	}

	entry := scheduleExpr + " " + command + " " + Marker
	uc.logger.Infof("Cron entry: %s", entry)
	uc.logger.Infof("Next run: %s", schedule.Next(time.Now()).Format("2006-01-02 15:04:05"))

	table, err := uc.crontab.Read(ctx)
	if err != nil {
		return err
	}

	updated, changed, err := uc.reconcile(table, entry)
	if err != nil {
		return err
	}
	if !changed {
		uc.logger.Infof("This exact cron job already exists, nothing to do")
		return nil
	}

	if err := uc.crontab.Install(ctx, updated); err != nil {
		return err
	}

	uc.logger.Infof("Cron job installed, verify with: crontab -l")
	return nil
}

// reconcile merges entry into the table. With existing managed entries the
// user picks replace, add or cancel; non-interactive runs always replace.
// The returned bool reports whether the table changed at all.
func (uc *Schedule) reconcile(table, entry string) (string, bool, error) {
	lines := splitTable(table)

	var existing []string
	for _, line := range lines {
		if strings.Contains(line, Marker) {
			existing = append(existing, line)
		}
	}

	if len(existing) == 0 {
		if containsEntry(lines, entry) {
			return "", false, nil
		}
		return joinTable(append(lines, entry)), true, nil
	}

	uc.logger.Warnf("Found %d existing backup cron job(s):", len(existing))
	for _, line := range existing {
		uc.logger.Warnf("  %s", line)
	}

	action := "replace"
	if !uc.nonInteractive {
		var err error
		action, err = uc.prompter.Select("What do you want to do with them?",
			[]string{"replace", "add", "cancel"}, "replace")
		if err != nil {
			return "", false, err
		}
	}

	switch action {
	case "replace":
		var kept []string
		for _, line := range lines {
			if !strings.Contains(line, Marker) {
				kept = append(kept, line)
			}
		}
		return joinTable(append(kept, entry)), true, nil
	case "add":
		return joinTable(append(lines, entry)), true, nil
	default:
		return "", false, ErrScheduleCancelled
	}
}

func containsEntry(lines []string, entry string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) == entry {
			return true
		}
	}
	return false
}

func splitTable(table string) []string {
	if strings.TrimSpace(table) == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(table, "\n"), "\n")
}

func joinTable(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}
