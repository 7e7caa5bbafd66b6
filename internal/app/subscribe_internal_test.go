package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/statline/internal/adapters/repository"
	"github.com/okian/statline/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// vanishingStore deletes a session right after handing it out once, the way
// a concurrent DeleteSession would between a lookup and what follows it.
type vanishingStore struct {
	repository.Store
	svc  *Service
	gets int
}

func (v *vanishingStore) Get(ctx context.Context, id string) (*repository.Session, error) {
	v.gets++
	sess, err := v.Store.Get(ctx, id)
	if v.gets == 1 && err == nil {
		_ = v.Store.Delete(ctx, id)
		v.svc.broker.Close(id)
	}
	return sess, err
}

func TestSubscribeDuringDelete(t *testing.T) {
	Convey("Given a session that is deleted while a client subscribes", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()
		svc := New(WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		sess, err := svc.CreateSession(ctx, SessionRequest{})
		So(err, ShouldBeNil)
		svc.sessions = &vanishingStore{Store: svc.sessions, svc: svc}

		ch, cancel, err := svc.Subscribe(ctx, sess.ID)

		Convey("Then the subscription is refused and nothing is left behind", func() {
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(ch, ShouldBeNil)
			So(cancel, ShouldBeNil)
			So(svc.broker.Subscribers(), ShouldEqual, 0)
			So(svc.GetStats(ctx).Subscribers, ShouldEqual, 0)
		})
	})

	Convey("Given a live session with a subscriber", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()
		svc := New(WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		sess, err := svc.CreateSession(ctx, SessionRequest{})
		So(err, ShouldBeNil)
		ch, cancel, err := svc.Subscribe(ctx, sess.ID)
		So(err, ShouldBeNil)
		defer cancel()

		Convey("When the session is deleted afterwards", func() {
			So(svc.DeleteSession(ctx, sess.ID), ShouldBeNil)

			Convey("Then the stream ends", func() {
				closed := false
				deadline := time.After(time.Second)
				for !closed {
					select {
					case _, ok := <-ch:
						closed = !ok
					case <-deadline:
						So(closed, ShouldBeTrue)
						return
					}
				}
				So(closed, ShouldBeTrue)
			})
		})
	})
}
