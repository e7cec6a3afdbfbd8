package describe_test

import (
	"testing"
	"time"

	"github.com/okian/gridcast/internal/domain/describe"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/roster"
	. "github.com/smartystreets/goconvey/convey"
)

var ts = time.Date(2024, 9, 22, 12, 4, 6, 630_000_000, time.UTC)

func event(c model.Category, p model.Payload) *model.Event {
	e, err := model.NewEvent(c, ts, p, nil)
	if err != nil {
		panic(err)
	}
	return e
}

func testRoster() *roster.Roster {
	return roster.New(
		model.Driver{Number: 16, FullName: "Charles LECLERC"},
		model.Driver{Number: 22, FullName: "Yuki TSUNODA"},
	)
}

func TestSynthesizer(t *testing.T) {
	Convey("Given a synthesizer over a roster", t, func() {
		s := describe.New(testRoster())

		Convey("Then laps render with their duration", func() {
			e := event(model.CategoryLap, model.Lap{DriverNumber: 16, LapDuration: model.NewDecimal("98.425")})
			So(s.Describe(e), ShouldEqual, "Lap event: Charles LECLERC completed a lap in 98.425 seconds")
		})

		Convey("And a null lap duration renders as None", func() {
			e := event(model.CategoryLap, model.Lap{DriverNumber: 16})
			So(s.Describe(e), ShouldEqual, "Lap event: Charles LECLERC completed a lap in None seconds")
		})

		Convey("And positions render with the P prefix", func() {
			e := event(model.CategoryPosition, model.Position{DriverNumber: 22, Position: model.DecimalFromInt(9)})
			So(s.Describe(e), ShouldEqual, "Position update: Yuki TSUNODA is now P9")
		})

		Convey("And a null position renders as PNone", func() {
			e := event(model.CategoryPosition, model.Position{DriverNumber: 22})
			So(s.Describe(e), ShouldEqual, "Position update: Yuki TSUNODA is now PNone")
		})

		Convey("And pit stops name the driver", func() {
			e := event(model.CategoryPitStop, model.PitStop{DriverNumber: 22})
			So(s.Describe(e), ShouldEqual, "Pit stop: Yuki TSUNODA")
		})

		Convey("And overtakes keep the overtaking/overtaken roles", func() {
			e := event(model.CategoryOvertake, model.Overtake{OvertakingDriverNumber: 16, OvertakenDriverNumber: 22, Position: 8})
			So(s.Describe(e), ShouldEqual, "Overtake event: Charles LECLERC overtook Yuki TSUNODA")
		})

		Convey("And unknown drivers render as Unknown Driver", func() {
			e := event(model.CategoryOvertake, model.Overtake{OvertakingDriverNumber: 44, OvertakenDriverNumber: 22})
			So(s.Describe(e), ShouldEqual, "Overtake event: Unknown Driver overtook Yuki TSUNODA")

			p := event(model.CategoryPosition, model.Position{DriverNumber: 0, Position: model.DecimalFromInt(3)})
			So(s.Describe(p), ShouldEqual, "Position update: Unknown Driver is now P3")
		})

		Convey("And rendering is deterministic across synthesizers", func() {
			payload := model.Position{DriverNumber: 16, Position: model.DecimalFromInt(1)}
			a := describe.New(testRoster()).Describe(event(model.CategoryPosition, payload))
			b := describe.New(testRoster()).Describe(event(model.CategoryPosition, payload))
			So(a, ShouldEqual, b)
		})
	})

	Convey("Given a synthesizer without a roster", t, func() {
		s := describe.New(nil)
		e := event(model.CategoryPitStop, model.PitStop{DriverNumber: 16})
		So(s.Describe(e), ShouldEqual, "Pit stop: Unknown Driver")
	})
}

func TestTimedRenderer(t *testing.T) {
	Convey("Given a timed renderer", t, func() {
		s := describe.New(testRoster())
		r := describe.NewTimed(s)
		e := event(model.CategoryPosition, model.Position{DriverNumber: 22, Position: model.DecimalFromInt(9)})

		Convey("Then the replay line carries the timestamp", func() {
			So(r.Line(e), ShouldEqual, "Position update: Yuki TSUNODA is now P9 at 2024-09-22 12:04:06.63")
		})

		Convey("And the cached description is unchanged", func() {
			_ = r.Line(e)
			So(s.Describe(e), ShouldEqual, "Position update: Yuki TSUNODA is now P9")
		})
	})
}
