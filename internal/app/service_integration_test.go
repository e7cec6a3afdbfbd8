package service_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/gridcast/internal/adapters/export"
	service "github.com/okian/gridcast/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with full integration", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(append(raceOptions(race(t)), service.WithLoadWorkers(4))...)
		defer svc.Stop()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the window document is exported and read back", func() {
			doc, err := svc.Document(5 * time.Second)
			So(err, ShouldBeNil)

			path := filepath.Join(t.TempDir(), "events_5s_indexed.json")
			So(export.WriteFile(path, doc, export.FormatJSON), ShouldBeNil)

			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			var decoded map[string][]map[string]any
			So(json.Unmarshal(data, &decoded), ShouldBeNil)

			Convey("Then every window and event survives", func() {
				So(len(decoded), ShouldEqual, doc.Len())
				total := 0
				for _, events := range decoded {
					total += len(events)
					for _, e := range events {
						So(e[export.KeyEventDescription], ShouldNotBeBlank)
						So(e[export.KeyEventType], ShouldBeIn, []any{"position", "lap", "pit_stop", "overtake"})
					}
				}
				So(total, ShouldEqual, svc.Timeline().Len())
			})
		})
	})
}
