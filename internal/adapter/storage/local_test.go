package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalStorage(t *testing.T) {
	Convey("Given an output directory for backup archives", t, func() {
		tempDir, err := os.MkdirTemp("", "local_storage_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		outputDir := filepath.Join(tempDir, "backups")

		Convey("When the directory does not exist yet", func() {
			local, err := NewLocal(outputDir)

			Convey("It should be created on demand", func() {
				So(err, ShouldBeNil)
				So(local, ShouldNotBeNil)

				info, statErr := os.Stat(outputDir)
				So(statErr, ShouldBeNil)
				So(info.IsDir(), ShouldBeTrue)
			})
		})

		Convey("When storing an assembled archive", func() {
			local, err := NewLocal(outputDir)
			So(err, ShouldBeNil)

			bundlePath := filepath.Join(tempDir, "bundle.zip")
			So(os.WriteFile(bundlePath, []byte("archive bytes"), 0644), ShouldBeNil)

			artifactName := "production_20250101_020000.zip"
			So(regexp.MustCompile(`^production_\d{8}_\d{6}\.zip$`).MatchString(artifactName), ShouldBeTrue)

			err = local.Upload(context.Background(), bundlePath, artifactName)

			Convey("It should land exactly where GetPath points", func() {
				So(err, ShouldBeNil)

				finalPath := local.GetPath(artifactName)
				So(filepath.Dir(finalPath), ShouldEqual, outputDir)

				content, readErr := os.ReadFile(finalPath)
				So(readErr, ShouldBeNil)
				So(string(content), ShouldEqual, "archive bytes")
			})
		})

		Convey("When the source archive is missing", func() {
			local, err := NewLocal(outputDir)
			So(err, ShouldBeNil)

			err = local.Upload(context.Background(), filepath.Join(tempDir, "gone.zip"), "production_20250101_020000.zip")

			Convey("It should return an error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to open source")
			})
		})
	})
}
