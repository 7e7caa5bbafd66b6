package simulate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/statline/internal/adapters/http/api"
	"github.com/okian/statline/internal/domain/attribute"
	"github.com/okian/statline/internal/domain/engine"
	"github.com/okian/statline/pkg/logger"
)

// counters are shared by the session workers.
type counters struct {
	sessions, sent, applied, rejected, rechecks, resets, violations, failed atomic.Int64
}

// Run executes the complete simulation and returns its statistics. It fails
// with ErrViolations when any response broke an assignment guarantee.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("simulate")

	log.Info(ctx, "starting statline simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.Sessions),
		logger.Int("moves", config.Moves),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Uint64("seed", config.Seed),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.health(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	// Step 2: The slot catalogue must match what the generator aims at
	slots, err := client.slots(ctx)
	if err != nil {
		return nil, fmt.Errorf("slot listing failed: %w", err)
	}
	if len(slots) != attribute.Count {
		return nil, fmt.Errorf("%w: server lists %d slots, expected %d", ErrViolations, len(slots), attribute.Count)
	}

	// Step 3: Play sessions concurrently
	workers := max(config.Workers, 1)
	var c counters
	jobs := make(chan int, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				p := &player{
					client: client,
					gen:    NewGenerator(config.Seed+uint64(n), config.InvalidRate),
					c:      &c,
					log:    log.With(logger.Int("session", n)),
					values: config.Values,
					moves:  config.Moves,
					debug:  config.Verbose,
				}
				p.play(ctx)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for n := 0; n < config.Sessions; n++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- n:
			}
		}
	}()
	wg.Wait()

	stats.SessionsPlayed = int(c.sessions.Load())
	stats.MovesSent = int(c.sent.Load())
	stats.MovesApplied = int(c.applied.Load())
	stats.MovesRejected = int(c.rejected.Load())
	stats.Rechecks = int(c.rechecks.Load())
	stats.Resets = int(c.resets.Load())
	stats.Violations = int(c.violations.Load())
	stats.RequestsFailed = int(c.failed.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, stats)

	if stats.Violations > 0 {
		return stats, fmt.Errorf("%w: %d violations", ErrViolations, stats.Violations)
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// player runs one session from creation to deletion.
type player struct {
	client *HTTPClient
	gen    *Generator
	c      *counters
	log    logger.Logger
	values []int
	moves  int
	debug  bool
}

func (p *player) violation(ctx context.Context, err error) {
	p.c.violations.Add(1)
	p.log.Error(ctx, "guarantee violated", logger.Error(err))
}

func (p *player) failed(ctx context.Context, what string, err error) {
	p.c.failed.Add(1)
	p.log.Warn(ctx, what+" failed", logger.Error(err))
}

func (p *player) play(ctx context.Context) {
	view, err := p.client.createSession(ctx, p.values)
	if err != nil {
		p.failed(ctx, "create session", err)
		return
	}
	p.c.sessions.Add(1)
	defer func() {
		if err := p.client.deleteSession(context.WithoutCancel(ctx), view.ID); err != nil {
			p.failed(ctx, "delete session", err)
		}
	}()

	origin := view.State
	var values []int
	for _, v := range origin.Pool {
		if n, ok := v.Get(); ok {
			values = append(values, n)
		}
	}

	cur := origin
	for i := 0; i < p.moves && ctx.Err() == nil; i++ {
		drag, pos, slot := p.gen.Next()
		next, applied, ok := p.step(ctx, view.ID, cur, drag, pos, slot)
		if !ok {
			return
		}
		if err := checkConservation(values, next); err != nil {
			p.violation(ctx, err)
		}
		if applied {
			p.recheck(ctx, view.ID, next, pos, slot)
		}
		cur = next
	}

	after, err := p.client.reset(ctx, view.ID)
	if err != nil {
		p.failed(ctx, "reset", err)
		return
	}
	p.c.resets.Add(1)
	if err := checkReset(origin, after.State); err != nil {
		p.violation(ctx, err)
	}
}

// step sends one drag and checks its effect against cur. ok is false when
// the request itself failed.
func (p *player) step(ctx context.Context, id string, cur engine.State, drag Drag, pos int, slot attribute.Slot) (next engine.State, applied, ok bool) {
	res, err := p.client.move(ctx, id, drag)
	p.c.sent.Add(1)
	if err != nil {
		p.failed(ctx, "move", err)
		return cur, false, false
	}
	if res.Applied {
		p.c.applied.Add(1)
	} else {
		p.c.rejected.Add(1)
	}
	if p.debug {
		p.log.Debug(ctx, "move",
			logger.String("source", drag.Source),
			logger.String("target", drag.Target),
			logger.String("outcome", res.Outcome))
	}
	if res.Applied != (res.Outcome == engine.Applied.String()) {
		p.violation(ctx, fmt.Errorf("move %s->%s: applied=%t with outcome %q", drag.Source, drag.Target, res.Applied, res.Outcome))
	}
	if err := checkMove(cur, res.Session.State, pos, slot, res.Applied); err != nil {
		p.violation(ctx, err)
	}
	return res.Session.State, res.Applied, true
}

// recheck follows an applied move with the two moves it must have ruled out:
// the same position into another slot, and another position into the same
// slot. Both have to be rejected without touching the state.
func (p *player) recheck(ctx context.Context, id string, cur engine.State, pos int, slot attribute.Slot) {
	for _, d := range []struct {
		pos  int
		slot attribute.Slot
	}{
		{pos, p.gen.Other(slot)},
		{p.gen.OtherPosition(pos), slot},
	} {
		p.c.rechecks.Add(1)
		drag := Drag{Source: api.SourceID(d.pos), Target: api.TargetID(d.slot)}
		res, err := p.client.move(ctx, id, drag)
		if err != nil {
			p.failed(ctx, "recheck", err)
			return
		}
		if res.Applied {
			p.violation(ctx, fmt.Errorf("recheck %s->%s was applied after %d->%s", drag.Source, drag.Target, pos, slot))
			return
		}
		if err := checkMove(cur, res.Session.State, d.pos, d.slot, false); err != nil {
			p.violation(ctx, err)
			return
		}
	}
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var movesPerSecond float64
	if stats.Duration > 0 {
		movesPerSecond = float64(stats.MovesSent+stats.Rechecks) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("sessionsPlayed", stats.SessionsPlayed),
		logger.Int("movesSent", stats.MovesSent),
		logger.Int("movesApplied", stats.MovesApplied),
		logger.Int("movesRejected", stats.MovesRejected),
		logger.Int("rechecks", stats.Rechecks),
		logger.Int("resets", stats.Resets),
		logger.Int("violations", stats.Violations),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Duration("duration", stats.Duration),
		logger.Any("movesPerSecond", movesPerSecond))
}
