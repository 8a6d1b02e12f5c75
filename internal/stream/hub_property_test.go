package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"zellax/internal/journal"
	"zellax/internal/models"
)

func snapshotN(i int, pnl float64) journal.Dashboard {
	return journal.Dashboard{
		Window:      journal.WindowAll,
		Fingerprint: uint64(i + 1),
		Stats:       models.TradingStats{TotalTrades: i + 1, TotalPnL: pnl},
	}
}

// Property: every subscriber that keeps up receives every published snapshot.
func TestProperty_AllSubscribersReceiveSnapshots(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("All fast subscribers receive all snapshots", prop.ForAll(
		func(subscriberCount int, snapshotCount int, pnl float64) bool {
			hub := NewHubWithConfig(HubConfig{BufferSize: 64, SubscriberBufferSize: 64})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			hub.Start(ctx)
			defer hub.Stop()

			subs := make([]*Subscriber, subscriberCount)
			for i := range subs {
				subs[i] = hub.Subscribe("")
			}

			var wg sync.WaitGroup
			received := make([]int64, subscriberCount)
			ordered := int32(1)
			for i, sub := range subs {
				wg.Add(1)
				go func(idx int, sub *Subscriber) {
					defer wg.Done()
					timeout := time.After(5 * time.Second)
					var last uint64
					for {
						select {
						case d, ok := <-sub.C:
							if !ok {
								return
							}
							if d.Fingerprint <= last {
								atomic.StoreInt32(&ordered, 0)
							}
							last = d.Fingerprint
							if atomic.AddInt64(&received[idx], 1) >= int64(snapshotCount) {
								return
							}
						case <-timeout:
							return
						}
					}
				}(i, sub)
			}

			for i := 0; i < snapshotCount; i++ {
				hub.Publish(snapshotN(i, pnl))
			}
			wg.Wait()

			for i := range received {
				if atomic.LoadInt64(&received[i]) != int64(snapshotCount) {
					return false
				}
			}
			return atomic.LoadInt32(&ordered) == 1
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 20),
		gen.Float64Range(-5000, 5000),
	))

	properties.TestingRun(t)
}

// Property: a subscriber that never reads does not hold up the others, and
// still ends up holding the newest snapshot.
func TestProperty_SlowSubscribersDoNotBlockOthers(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Slow subscribers do not block fast subscribers", prop.ForAll(
		func(snapshotCount int) bool {
			hub := NewHubWithConfig(HubConfig{BufferSize: 64, SubscriberBufferSize: 2})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			hub.Start(ctx)
			defer hub.Stop()

			fast := hub.Subscribe("fast")
			slow := hub.Subscribe("slow")

			var fastLast uint64
			done := make(chan struct{})
			go func() {
				defer close(done)
				timeout := time.After(2 * time.Second)
				for {
					select {
					case d := <-fast.C:
						fastLast = d.Fingerprint
						if fastLast == uint64(snapshotCount) {
							return
						}
					case <-timeout:
						return
					}
				}
			}()

			for i := 0; i < snapshotCount; i++ {
				hub.Publish(snapshotN(i, 0))
			}
			<-done
			if fastLast != uint64(snapshotCount) {
				return false
			}

			// Wait for the last broadcast to land before draining the slow one.
			deadline := time.Now().Add(time.Second)
			for {
				if d, ok := hub.Latest(); ok && d.Fingerprint == uint64(snapshotCount) {
					break
				}
				if time.Now().After(deadline) {
					return false
				}
				time.Sleep(time.Millisecond)
			}

			var slowLast uint64
			for len(slow.C) > 0 {
				slowLast = (<-slow.C).Fingerprint
			}
			return slowLast == uint64(snapshotCount)
		},
		gen.IntRange(3, 30),
	))

	properties.TestingRun(t)
}
