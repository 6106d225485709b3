package dedupe_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	dedupe "github.com/okian/realmrep/internal/domain/dedupe"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)
		id := uuid.New()

		Convey("When an event ID is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, id)

			Convey("Then it is reported as new", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the second sighting is a duplicate", func() {
				So(d.SeenAndRecord(ctx, id), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded ID is unrecorded", func() {
			d.SeenAndRecord(ctx, id)
			d.Unrecord(ctx, id)

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
			})
		})

		Convey("When an unknown ID is unrecorded", func() {
			d.Unrecord(ctx, uuid.New())

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a deduper bounded to three IDs", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		events := ids(4)
		for _, id := range events[:3] {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("When a fourth ID arrives", func() {
			So(d.SeenAndRecord(ctx, events[3]), ShouldBeFalse)

			Convey("Then the oldest ID is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, events[2]), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, events[3]), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, events[0]), ShouldBeFalse)
			})
		})

		Convey("When a middle ID is unrecorded and two more arrive", func() {
			d.Unrecord(ctx, events[1])
			extra := ids(2)
			d.SeenAndRecord(ctx, extra[0])
			d.SeenAndRecord(ctx, extra[1])

			Convey("Then the window never exceeds its bound", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, extra[1]), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, events[2]), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		events := ids(1000)
		for _, id := range events {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("Then every ID is kept", func() {
			So(d.Size(), ShouldEqual, 1000)
			So(d.SeenAndRecord(ctx, events[0]), ShouldBeTrue)
			d.Unrecord(ctx, events[0])
			So(d.Size(), ShouldEqual, 999)
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper shared by ten goroutines", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		shared := uuid.New()

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for _, id := range ids(50) {
					d.SeenAndRecord(context.Background(), id)
				}
				if !d.SeenAndRecord(context.Background(), shared) {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one goroutine records the shared ID", func() {
			So(fresh, ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 501)
		})
	})
}
