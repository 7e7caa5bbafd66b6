package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/statline/internal/adapters/repository"
	"github.com/okian/statline/internal/domain/engine"
	. "github.com/smartystreets/goconvey/convey"
)

func newSession(id string) *repository.Session {
	return &repository.Session{ID: id, Engine: engine.New(), CreatedAt: time.Now()}
}

func TestMemoryStore(t *testing.T) {
	Convey("Given an unbounded store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()

		Convey("When a session is added", func() {
			sess := newSession("a")
			So(store.Put(ctx, sess), ShouldBeNil)

			Convey("Then it can be fetched by id", func() {
				got, err := store.Get(ctx, "a")
				So(err, ShouldBeNil)
				So(got, ShouldEqual, sess)
				So(store.Count(ctx), ShouldEqual, 1)
			})

			Convey("And adding the same id again fails with ErrExists", func() {
				err := store.Put(ctx, newSession("a"))
				So(errors.Is(err, repository.ErrExists), ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 1)
			})

			Convey("And deleting it makes it unreachable", func() {
				So(store.Delete(ctx, "a"), ShouldBeNil)
				_, err := store.Get(ctx, "a")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(store.Delete(ctx, "a"), repository.ErrNotFound), ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When fetching an unknown id", func() {
			_, err := store.Get(ctx, "missing")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a store bounded to two sessions", t, func() {
		ctx := context.Background()
		var evicted []string
		store := repository.NewMemoryStore(
			repository.WithMaxSessions(2),
			repository.WithOnEvict(func(s *repository.Session) { evicted = append(evicted, s.ID) }),
		)
		So(store.Put(ctx, newSession("first")), ShouldBeNil)
		So(store.Put(ctx, newSession("second")), ShouldBeNil)

		Convey("When a third session is added", func() {
			So(store.Put(ctx, newSession("third")), ShouldBeNil)

			Convey("Then the oldest session is evicted", func() {
				So(evicted, ShouldResemble, []string{"first"})
				So(store.Count(ctx), ShouldEqual, 2)
				_, err := store.Get(ctx, "first")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = store.Get(ctx, "third")
				So(err, ShouldBeNil)
			})
		})

		Convey("When a middle session is deleted before adding", func() {
			So(store.Delete(ctx, "first"), ShouldBeNil)
			So(store.Put(ctx, newSession("third")), ShouldBeNil)

			Convey("Then nothing is evicted", func() {
				So(evicted, ShouldBeEmpty)
				So(store.Count(ctx), ShouldEqual, 2)
			})
		})
	})

	Convey("Given concurrent writers on a bounded store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(repository.WithMaxSessions(50))

		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					_ = store.Put(ctx, newSession(fmt.Sprintf("%d-%d", w, i)))
				}
			}(w)
		}
		wg.Wait()

		Convey("Then the bound is respected", func() {
			So(store.Count(ctx), ShouldEqual, 50)
		})
	})
}
