package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/startupforworld/coach/internal/domain/recommend"
)

type fakeSource struct {
	calls int32
	err   error
	cat   recommend.Catalog
	delay time.Duration
}

func (f *fakeSource) Fetch(ctx context.Context) (recommend.Catalog, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.cat, nil
}

func TestCached(t *testing.T) {
	Convey("Given a cached catalog with a fake clock", t, func() {
		now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		remote := recommend.Catalog{{SKU: "R1", Title: "Remote", Tags: []recommend.Category{recommend.CategoryBaseline}}}
		src := &fakeSource{cat: remote}
		c := NewCached(src, WithClock(clock), WithTTL(time.Hour), WithRetryAfter(time.Minute))
		ctx := context.Background()

		Convey("When read twice within the ttl", func() {
			first := c.Snapshot(ctx)
			second := c.Snapshot(ctx)

			Convey("Then the source is hit once", func() {
				So(first.Products[0].SKU, ShouldEqual, "R1")
				So(second.ExpiresAt.Equal(now.Add(time.Hour)), ShouldBeTrue)
				So(atomic.LoadInt32(&src.calls), ShouldEqual, int32(1))
				So(first.Fallback, ShouldBeFalse)
			})
		})

		Convey("When the ttl passes", func() {
			c.Snapshot(ctx)
			now = now.Add(time.Hour)
			c.Snapshot(ctx)
			So(atomic.LoadInt32(&src.calls), ShouldEqual, int32(2))
		})

		Convey("When the source fails with no previous snapshot", func() {
			src.err = errors.New("down")
			snap := c.Snapshot(ctx)

			Convey("Then the fallback catalog is served and retried later", func() {
				So(snap.Fallback, ShouldBeTrue)
				So(snap.Products, ShouldResemble, recommend.FallbackCatalog())
				So(snap.ExpiresAt.Equal(now.Add(time.Minute)), ShouldBeTrue)

				src.err = nil
				now = now.Add(time.Minute)
				So(c.Catalog(ctx)[0].SKU, ShouldEqual, "R1")
			})
		})

		Convey("When the source fails after a good fetch", func() {
			c.Snapshot(ctx)
			src.err = errors.New("down")
			now = now.Add(2 * time.Hour)
			snap := c.Snapshot(ctx)

			Convey("Then the previous products are kept", func() {
				So(snap.Fallback, ShouldBeFalse)
				So(snap.Products[0].SKU, ShouldEqual, "R1")
				So(snap.ExpiresAt.Equal(now.Add(time.Minute)), ShouldBeTrue)
			})
		})

		Convey("When many readers arrive at once", func() {
			src.delay = 20 * time.Millisecond
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = c.Catalog(ctx)
				}()
			}
			wg.Wait()

			Convey("Then the refresh is coalesced", func() {
				So(atomic.LoadInt32(&src.calls), ShouldEqual, int32(1))
			})
		})
	})

	Convey("Given snapshot freshness", t, func() {
		now := time.Now()
		So(Snapshot{}.Fresh(now), ShouldBeFalse)
		So(Snapshot{Products: recommend.FallbackCatalog(), ExpiresAt: now.Add(time.Second)}.Fresh(now), ShouldBeTrue)
		So(Snapshot{Products: recommend.FallbackCatalog(), ExpiresAt: now}.Fresh(now), ShouldBeFalse)
	})
}
