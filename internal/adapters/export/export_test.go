package export_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/gridcast/internal/adapters/export"
	"github.com/okian/gridcast/internal/domain/describe"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/roster"
	"github.com/okian/gridcast/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

var t0 = time.Date(2024, 9, 22, 12, 0, 0, 0, time.UTC)

func fixture() (*timeline.Timeline, *describe.Synthesizer) {
	mk := func(c model.Category, off time.Duration, p model.Payload, attrs map[string]any) *model.Event {
		e, err := model.NewEvent(c, t0.Add(off), p, attrs)
		if err != nil {
			panic(err)
		}
		return e
	}
	events := []*model.Event{
		mk(model.CategoryLap, 0, model.Lap{DriverNumber: 1, LapNumber: 2, LapDuration: model.NewDecimal("91.275")},
			map[string]any{"date_start": "2024-09-22T12:00:00", "driver_number": json.Number("1"), "lap_duration": json.Number("91.275")}),
		mk(model.CategoryOvertake, 3*time.Second, model.Overtake{OvertakingDriverNumber: 1, OvertakenDriverNumber: 99, Position: 2},
			map[string]any{"date": "2024-09-22T12:00:03", "overtaking_driver_number": json.Number("1"), "overtaken_driver_number": json.Number("99")}),
		mk(model.CategoryPosition, 12*time.Second, model.Position{DriverNumber: 1, Position: model.DecimalFromInt(1)},
			map[string]any{"date": "2024-09-22T12:00:12", "driver_number": json.Number("1"), "position": json.Number("1")}),
	}
	r := roster.New(model.Driver{Number: 1, FullName: "Max VERSTAPPEN"})
	return timeline.Merge(events), describe.New(r)
}

func TestBuild(t *testing.T) {
	Convey("Given a timeline bucketed into 5s windows", t, func() {
		tl, s := fixture()
		ws, err := timeline.Windows(tl, 5*time.Second)
		So(err, ShouldBeNil)

		doc := export.Build(ws, s)

		Convey("Then every window gets an entry, empty ones included", func() {
			So(doc.Len(), ShouldEqual, 3)
			So(doc.Entries[0].Key, ShouldEqual, "2024-09-22T12:00:00.000000+00:00")
			So(doc.Entries[1].Events, ShouldBeEmpty)
			So(doc.Entries[2].Key, ShouldEqual, "2024-09-22T12:00:10.000000+00:00")
		})

		Convey("Then events are annotated", func() {
			lap := doc.Entries[0].Events[0]
			So(lap[export.KeyEventType], ShouldEqual, "lap")
			So(lap[export.KeyEventTime], ShouldEqual, "2024-09-22T12:00:00.000000+00:00")
			So(lap[export.KeyEventDescription], ShouldEqual, "Lap event: Max VERSTAPPEN completed a lap in 91.275 seconds")
			So(lap[export.KeyDriverName], ShouldEqual, "Max VERSTAPPEN")
			So(lap["lap_duration"], ShouldEqual, json.Number("91.275"))

			over := doc.Entries[0].Events[1]
			So(over[export.KeyOvertakingDriver], ShouldEqual, "Max VERSTAPPEN")
			So(over[export.KeyOvertakenDriver], ShouldEqual, roster.UnknownDriver)
			_, hasDriver := over[export.KeyDriverName]
			So(hasDriver, ShouldBeFalse)
		})

		Convey("Then the raw attributes are left alone", func() {
			_, touched := tl.At(0).Attributes[export.KeyEventType]
			So(touched, ShouldBeFalse)
		})
	})
}

func TestEncode(t *testing.T) {
	tl, s := fixture()
	ws, _ := timeline.Windows(tl, 5*time.Second)
	doc := export.Build(ws, s)

	Convey("Given JSON encoding", t, func() {
		var buf bytes.Buffer
		So(export.Encode(&buf, doc, export.FormatJSON), ShouldBeNil)
		out := buf.String()

		Convey("Then keys appear in window order", func() {
			a := strings.Index(out, `"2024-09-22T12:00:00.000000+00:00"`)
			b := strings.Index(out, `"2024-09-22T12:00:05.000000+00:00"`)
			c := strings.Index(out, `"2024-09-22T12:00:10.000000+00:00"`)
			So(a, ShouldBeGreaterThan, -1)
			So(a, ShouldBeLessThan, b)
			So(b, ShouldBeLessThan, c)
		})

		Convey("Then numbers keep their literal text", func() {
			So(out, ShouldContainSubstring, `"lap_duration": 91.275`)
		})

		Convey("Then the document decodes back into a map", func() {
			var decoded map[string][]map[string]any
			So(json.Unmarshal(buf.Bytes(), &decoded), ShouldBeNil)
			So(len(decoded), ShouldEqual, 3)
			So(decoded["2024-09-22T12:00:05.000000+00:00"], ShouldBeEmpty)
		})
	})

	Convey("Given YAML encoding", t, func() {
		var buf bytes.Buffer
		So(export.Encode(&buf, doc, export.FormatYAML), ShouldBeNil)
		out := buf.String()

		Convey("Then keys are ordered and numbers unquoted", func() {
			So(strings.Index(out, "2024-09-22T12:00:00"), ShouldBeLessThan, strings.Index(out, "2024-09-22T12:00:10"))
			So(out, ShouldContainSubstring, "lap_duration: 91.275")

			var decoded map[string][]map[string]any
			So(yaml.Unmarshal(buf.Bytes(), &decoded), ShouldBeNil)
			So(len(decoded), ShouldEqual, 3)
		})
	})

	Convey("Given an unknown format", t, func() {
		err := export.Encode(&bytes.Buffer{}, doc, export.Format("xml"))
		So(errors.Is(err, export.ErrUnknownFormat), ShouldBeTrue)

		_, err = export.ParseFormat("xml")
		So(errors.Is(err, export.ErrUnknownFormat), ShouldBeTrue)

		f, err := export.ParseFormat("YML")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, export.FormatYAML)
	})
}

func TestWriteFile(t *testing.T) {
	tl, s := fixture()
	ws, _ := timeline.Windows(tl, 5*time.Second)
	doc := export.Build(ws, s)

	Convey("Given a target path", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "event_buckets.json")

		So(export.WriteFile(path, doc, export.FormatJSON), ShouldBeNil)

		Convey("Then only the final file remains", func() {
			entries, err := os.ReadDir(dir)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 1)
			So(entries[0].Name(), ShouldEqual, "event_buckets.json")
		})

		Convey("Then rewriting replaces the content", func() {
			So(export.WriteFile(path, export.Document{}, export.FormatJSON), ShouldBeNil)
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(strings.TrimSpace(string(data)), ShouldEqual, "{}")
		})
	})

	Convey("Given a missing directory", t, func() {
		err := export.WriteFile(filepath.Join(t.TempDir(), "nope", "out.json"), doc, export.FormatJSON)
		So(errors.Is(err, export.ErrWrite), ShouldBeTrue)
	})
}
