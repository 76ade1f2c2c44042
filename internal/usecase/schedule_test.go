package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/obx/internal/adapter/crontab"
)

type fakeCrontab struct {
	table      string
	readErr    error
	installErr error
	installed  []string
}

func (f *fakeCrontab) Read(ctx context.Context) (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.table, nil
}

func (f *fakeCrontab) Install(ctx context.Context, table string) error {
	if f.installErr != nil {
		return f.installErr
	}
	f.installed = append(f.installed, table)
	return nil
}

type fakePrompter struct {
	selection string
	err       error
	asked     bool
}

func (f *fakePrompter) Select(message string, options []string, defaultValue string) (string, error) {
	f.asked = true
	if f.err != nil {
		return "", f.err
	}
	return f.selection, nil
}

const replayCommand = "obx --host localhost --port 5432 --user odoo --database production " +
	"--output-path './backups' --non-interactive"

func TestScheduleExecute(t *testing.T) {
	Convey("Given a schedule installer", t, func() {
		tab := &fakeCrontab{}
		prompter := &fakePrompter{}
		uc := NewSchedule(tab, prompter, testLogger{}, false)

		ctx := context.Background()
		entry := "0 2 * * * " + replayCommand + " " + Marker

		Convey("When the crontab is empty", func() {
			err := uc.Execute(ctx, "0 2 * * *", replayCommand)

			Convey("It should install the single entry", func() {
				So(err, ShouldBeNil)
				So(len(tab.installed), ShouldEqual, 1)
				So(tab.installed[0], ShouldEqual, entry+"\n")
				So(prompter.asked, ShouldBeFalse)
			})
		})

		Convey("When the crontab has unrelated entries", func() {
			tab.table = "0 1 * * * /usr/local/bin/certbot renew\n"

			err := uc.Execute(ctx, "0 2 * * *", replayCommand)

			Convey("It should keep them and append the new entry", func() {
				So(err, ShouldBeNil)
				So(len(tab.installed), ShouldEqual, 1)
				So(tab.installed[0], ShouldEqual,
					"0 1 * * * /usr/local/bin/certbot renew\n"+entry+"\n")
			})
		})

		Convey("When managed entries already exist", func() {
			staging := "30 3 * * * /opt/tools/obx --host localhost --port 5432 --user odoo " +
				"--database staging --output-path './backups' --non-interactive " + Marker
			tab.table = strings.Join([]string{
				"0 1 * * * /usr/local/bin/certbot renew",
				staging,
				"",
			}, "\n")

			Convey("And the user chooses replace", func() {
				prompter.selection = "replace"

				err := uc.Execute(ctx, "0 2 * * *", replayCommand)

				Convey("It should drop the old managed entries", func() {
					So(err, ShouldBeNil)
					So(prompter.asked, ShouldBeTrue)
					So(len(tab.installed), ShouldEqual, 1)
					So(tab.installed[0], ShouldEqual,
						"0 1 * * * /usr/local/bin/certbot renew\n"+entry+"\n")
				})
			})

			Convey("And the user chooses add", func() {
				prompter.selection = "add"

				err := uc.Execute(ctx, "0 2 * * *", replayCommand)

				Convey("It should keep both entries", func() {
					So(err, ShouldBeNil)
					So(len(tab.installed), ShouldEqual, 1)
					So(tab.installed[0], ShouldContainSubstring, "--database staging")
					So(tab.installed[0], ShouldContainSubstring, entry)
					So(strings.Count(tab.installed[0], Marker), ShouldEqual, 2)
				})
			})

			Convey("And the user chooses cancel", func() {
				prompter.selection = "cancel"

				err := uc.Execute(ctx, "0 2 * * *", replayCommand)

				Convey("It should write nothing and report the cancellation", func() {
					So(err, ShouldEqual, ErrScheduleCancelled)
					So(len(tab.installed), ShouldEqual, 0)
				})
			})

			Convey("And the run is non-interactive", func() {
				uc := NewSchedule(tab, prompter, testLogger{}, true)

				err := uc.Execute(ctx, "0 2 * * *", replayCommand)

				Convey("It should replace without asking", func() {
					So(err, ShouldBeNil)
					So(prompter.asked, ShouldBeFalse)
					So(len(tab.installed), ShouldEqual, 1)
					So(tab.installed[0], ShouldNotContainSubstring, "--database staging")
					So(tab.installed[0], ShouldContainSubstring, entry)
				})
			})
		})

		Convey("When the exact entry is already installed", func() {
			tab.table = entry + "\n"

			Convey("And the user chooses add", func() {
				prompter.selection = "add"

				err := uc.Execute(ctx, "0 2 * * *", replayCommand)

				Convey("It should append a second identical entry", func() {
					So(err, ShouldBeNil)
					So(len(tab.installed), ShouldEqual, 1)
					So(tab.installed[0], ShouldEqual, entry+"\n"+entry+"\n")
					So(strings.Count(tab.installed[0], Marker), ShouldEqual, 2)
				})
			})

			Convey("And the user chooses replace", func() {
				prompter.selection = "replace"

				err := uc.Execute(ctx, "0 2 * * *", replayCommand)

				Convey("It should keep exactly one entry", func() {
					So(err, ShouldBeNil)
					So(len(tab.installed), ShouldEqual, 1)
					So(tab.installed[0], ShouldEqual, entry+"\n")
				})
			})
		})

		Convey("When an entry merely mentions the binary without the marker", func() {
			tab.table = "0 4 * * * echo obx --host nightly reminder\n"

			err := uc.Execute(ctx, "0 2 * * *", replayCommand)

			Convey("It should not claim it and just append the new entry", func() {
				So(err, ShouldBeNil)
				So(prompter.asked, ShouldBeFalse)
				So(len(tab.installed), ShouldEqual, 1)
				So(tab.installed[0], ShouldEqual,
					"0 4 * * * echo obx --host nightly reminder\n"+entry+"\n")
			})
		})

		Convey("When the schedule expression is invalid", func() {
			err := uc.Execute(ctx, "99 99 * * *", replayCommand)

			Convey("It should fail before touching the crontab", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "invalid cron schedule")
				So(len(tab.installed), ShouldEqual, 0)
			})
		})

		Convey("When the crontab command is unavailable", func() {
			tab.readErr = crontab.ErrNotAvailable

			err := uc.Execute(ctx, "0 2 * * *", replayCommand)

			Convey("It should surface the adapter error", func() {
				So(err, ShouldEqual, crontab.ErrNotAvailable)
			})
		})

		Convey("When installing the table fails", func() {
			tab.installErr = fmt.Errorf("failed to install crontab: exit status 1")

			err := uc.Execute(ctx, "0 2 * * *", replayCommand)

			Convey("It should surface the error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to install crontab")
			})
		})
	})
}
