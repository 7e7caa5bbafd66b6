package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/statline/internal/adapters/feed"
	"github.com/okian/statline/internal/domain/attribute"
	"github.com/okian/statline/internal/domain/engine"
	. "github.com/smartystreets/goconvey/convey"
)

func receive(ch <-chan engine.State) (engine.State, bool) {
	select {
	case s, ok := <-ch:
		return s, ok
	case <-time.After(time.Second):
		return engine.State{}, false
	}
}

func TestBroker(t *testing.T) {
	Convey("Given a broker and an initialized engine", t, func() {
		ctx := context.Background()
		eng := engine.New()
		_, err := eng.Initialize(ctx, []int{15, 14, 13, 12, 10, 9, 8})
		So(err, ShouldBeNil)
		broker := feed.NewBroker(feed.WithBuffer(2))

		Convey("When subscribing", func() {
			ch, unsubscribe := broker.Subscribe("s1", eng.State)
			defer unsubscribe()

			Convey("Then the current state arrives first", func() {
				s, ok := receive(ch)
				So(ok, ShouldBeTrue)
				So(s.Remaining(), ShouldEqual, 7)
				So(broker.Subscribers(), ShouldEqual, 1)
			})

			Convey("And later publishes are delivered", func() {
				_, _ = receive(ch)
				eng.Move(ctx, 0, attribute.STR)
				broker.Publish("s1", eng.State())

				s, ok := receive(ch)
				So(ok, ShouldBeTrue)
				n, _ := s.Assignment[attribute.STR].Get()
				So(n, ShouldEqual, 15)
			})

			Convey("And publishes to other sessions are not", func() {
				_, _ = receive(ch)
				broker.Publish("other", eng.State())

				delivered := false
				select {
				case <-ch:
					delivered = true
				case <-time.After(20 * time.Millisecond):
				}
				So(delivered, ShouldBeFalse)
			})
		})

		Convey("When a subscriber falls behind", func() {
			ch, unsubscribe := broker.Subscribe("s1", eng.State)
			defer unsubscribe()

			for i, slot := range attribute.All() {
				eng.Move(ctx, i, slot)
				broker.Publish("s1", eng.State())
			}

			Convey("Then only the newest snapshots are kept", func() {
				var last engine.State
				for i := 0; i < 2; i++ {
					s, ok := receive(ch)
					So(ok, ShouldBeTrue)
					last = s
				}
				So(last.Complete(), ShouldBeTrue)
			})
		})

		Convey("When unsubscribing", func() {
			ch, unsubscribe := broker.Subscribe("s1", nil)
			unsubscribe()
			unsubscribe()

			Convey("Then the channel is closed and the count drops", func() {
				_, ok := <-ch
				So(ok, ShouldBeFalse)
				So(broker.Subscribers(), ShouldEqual, 0)
			})
		})

		Convey("When the session is closed", func() {
			a, unsubA := broker.Subscribe("s1", nil)
			b, unsubB := broker.Subscribe("s1", nil)
			c, unsubC := broker.Subscribe("s2", nil)
			defer unsubA()
			defer unsubB()
			defer unsubC()

			broker.Close("s1")

			Convey("Then only that session's subscribers end", func() {
				_, okA := <-a
				_, okB := <-b
				So(okA, ShouldBeFalse)
				So(okB, ShouldBeFalse)
				So(broker.Subscribers(), ShouldEqual, 1)

				broker.CloseAll()
				_, okC := <-c
				So(okC, ShouldBeFalse)
				So(broker.Subscribers(), ShouldEqual, 0)
			})
		})
	})
}
