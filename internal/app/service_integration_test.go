package service_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	service "github.com/okian/statline/internal/app"
	"github.com/okian/statline/internal/domain/attribute"
	"github.com/okian/statline/internal/domain/engine"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with full integration", t, func() {
		ctx := context.Background()
		svc := started(service.WithWorkerCount(4), service.WithQueueSize(10_000))

		Convey("When many sessions are played concurrently and the service stops", func() {
			const sessions = 20
			var wg sync.WaitGroup
			for i := 0; i < sessions; i++ {
				wg.Add(1)
				go func(seed int64) {
					defer wg.Done()
					sess, err := svc.CreateSession(ctx, service.SessionRequest{})
					if err != nil {
						return
					}
					_, _ = svc.Fill(ctx, sess.ID)
					_, _ = svc.Move(ctx, sess.ID, 0, attribute.STR) // slot taken
					_, _ = svc.Reset(ctx, sess.ID)

					r := rand.New(rand.NewSource(seed))
					for j := 0; j < 20; j++ {
						_, _ = svc.Move(ctx, sess.ID, r.Intn(attribute.Count), attribute.All()[r.Intn(attribute.Count)])
					}
				}(int64(i))
			}
			wg.Wait()
			svc.Stop()

			Convey("Then every change was tallied before stop returned", func() {
				tally := svc.GetStats(ctx).Tally
				So(tally.Initializations, ShouldEqual, int64(sessions))
				So(tally.Resets, ShouldEqual, int64(sessions))
				So(tally.Completions, ShouldBeGreaterThanOrEqualTo, sessions)
				So(tally.Moves, ShouldBeGreaterThanOrEqualTo, sessions*attribute.Count)
				So(tally.Rejections["slot_filled"], ShouldBeGreaterThanOrEqualTo, sessions)
				So(tally.Slots[attribute.STR].Mean, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a client follows a session's stream", func() {
			defer svc.Stop()
			sess, err := svc.CreateSession(ctx, service.SessionRequest{})
			So(err, ShouldBeNil)

			ch, cancel, err := svc.Subscribe(ctx, sess.ID)
			So(err, ShouldBeNil)
			defer cancel()

			_, _ = svc.Fill(ctx, sess.ID)

			Convey("Then it eventually sees the completed assignment", func() {
				var last engine.State
				deadline := time.After(2 * time.Second)
				for !last.Complete() {
					select {
					case st := <-ch:
						last = st
					case <-deadline:
						So(last.Complete(), ShouldBeTrue)
						return
					}
				}
				So(last.Complete(), ShouldBeTrue)
				So(last.Assignment[attribute.STR], ShouldResemble, engine.Some(15))
				So(svc.GetStats(ctx).Subscribers, ShouldEqual, 1)
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given one session raced by many clients", t, func() {
		ctx := context.Background()
		svc := started()
		defer svc.Stop()

		sess, err := svc.CreateSession(ctx, service.SessionRequest{})
		So(err, ShouldBeNil)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			applied int
		)
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i, slot := range attribute.All() {
					res, err := svc.Move(ctx, sess.ID, i, slot)
					if err == nil && res.Applied {
						mu.Lock()
						applied++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each value is placed exactly once", func() {
			So(applied, ShouldEqual, attribute.Count)
			view, err := svc.State(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(view.State.Complete(), ShouldBeTrue)
			So(view.State.Remaining(), ShouldEqual, 0)
		})
	})
}

func TestServiceMoveViews(t *testing.T) {
	Convey("Given one session moved on by a client per slot", t, func() {
		ctx := context.Background()
		svc := started()
		defer svc.Stop()

		sess, err := svc.CreateSession(ctx, service.SessionRequest{})
		So(err, ShouldBeNil)

		results := make([]service.MoveResult, attribute.Count)
		var wg sync.WaitGroup
		for i, slot := range attribute.All() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], _ = svc.Move(ctx, sess.ID, i, slot)
			}()
		}
		wg.Wait()

		Convey("Then each result shows the state its own move produced", func() {
			seen := map[int]bool{}
			for i, slot := range attribute.All() {
				res := results[i]
				So(res.Applied, ShouldBeTrue)
				So(res.Session.Initialized, ShouldBeTrue)
				So(res.Session.State.Assignment[slot].IsEmpty(), ShouldBeFalse)
				So(res.Session.State.Pool[i].IsEmpty(), ShouldBeTrue)
				seen[res.Session.State.Assigned()] = true
			}
			So(len(seen), ShouldEqual, attribute.Count)
			for n := 1; n <= attribute.Count; n++ {
				So(seen[n], ShouldBeTrue)
			}
		})
	})
}
