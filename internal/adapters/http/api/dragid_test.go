package api_test

import (
	"errors"
	"testing"

	"github.com/okian/statline/internal/adapters/http/api"
	"github.com/okian/statline/internal/domain/attribute"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDragIDs(t *testing.T) {
	Convey("Given drag-and-drop element ids", t, func() {
		Convey("When formatting and parsing every position and slot", func() {
			Convey("Then the ids round trip", func() {
				for i, slot := range attribute.All() {
					pos, err := api.ParseSourceID(api.SourceID(i))
					So(err, ShouldBeNil)
					So(pos, ShouldEqual, i)

					got, err := api.ParseTargetID(api.TargetID(slot))
					So(err, ShouldBeNil)
					So(got, ShouldEqual, slot)
				}
				So(api.SourceID(3), ShouldEqual, "draggable3")
				So(api.TargetID(attribute.LUC), ShouldEqual, "droppableLUC")
			})
		})

		Convey("When the target names a slot in lower case", func() {
			got, err := api.ParseTargetID("droppablesta")

			Convey("Then it resolves to the attribute", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, attribute.STA)
			})
		})

		Convey("When the target names no known attribute", func() {
			got, err := api.ParseTargetID("droppableXYZ")

			Convey("Then the raw text is passed through", func() {
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, "XYZ")
			})
		})

		Convey("When the ids are malformed", func() {
			Convey("Then parsing fails with a bad request", func() {
				for _, id := range []string{"", "draggable", "drag1", "draggableX", "droppableSTR"} {
					_, err := api.ParseSourceID(id)
					So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
				}
				for _, id := range []string{"", "droppable", "dropSTR", "draggableSTR"} {
					_, err := api.ParseTargetID(id)
					So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
				}
			})
		})
	})
}

func TestKindError(t *testing.T) {
	Convey("Given a wrapped handler error", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.move", api.ErrBadRequest, cause)

		Convey("Then it matches both its kind and its cause", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(errors.Is(err, api.ErrNotFound), ShouldBeFalse)
			So(err.Error(), ShouldEqual, "api.move: bad request: boom")
		})

		Convey("And a bare kind carries only the op", func() {
			bare := api.NewKind("api.get_session", api.ErrNotFound)
			So(errors.Is(bare, api.ErrNotFound), ShouldBeTrue)
			So(bare.Error(), ShouldEqual, "api.get_session: not found")
		})
	})
}
