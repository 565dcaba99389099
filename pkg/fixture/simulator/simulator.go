// Package simulator advances simulated background jobs and applies their
// terminal transitions to the target assets.
package simulator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/events"
	"github.com/datakin/workbench/pkg/fixture"
	"github.com/datakin/workbench/pkg/loop"
	"github.com/datakin/workbench/pkg/utils/slices"
)

// TransitionFn mutates the target asset of a process reaching a terminal
// status.
type TransitionFn func(db *fixture.Database, p domain.Process) error

type Simulator struct {
	db  *fixture.Database
	bus *events.Bus

	tick   time.Duration
	now    func() time.Time
	jitter func() float64

	completion   map[domain.Kind]TransitionFn
	cancellation map[domain.Kind]TransitionFn

	aud audience

	logger *log.Logger
}

type Option func(*Simulator)

// WithClock replaces the completion-timestamp source. For tests.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithJitter replaces the per-tick progress jitter. For tests.
func WithJitter(jitter func() float64) Option {
	return func(s *Simulator) { s.jitter = jitter }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// New builds a simulator over db, publishing to bus and advancing every
// tickInterval.
//
// It fails when the completion or cancellation table misses any kind of
// domain.ProcessTargets: an incomplete table would leave assets of that kind
// stuck in their pre-completion status forever.
func New(db *fixture.Database, bus *events.Bus, tickInterval time.Duration, opt ...Option) (*Simulator, error) {
	s := &Simulator{
		db:           db,
		bus:          bus,
		tick:         tickInterval,
		now:          time.Now,
		jitter:       func() float64 { return rand.Float64() * 0.01 },
		completion:   completionTable(),
		cancellation: cancellationTable(),
		logger:       log.Default(),
	}
	for _, o := range opt {
		o(s)
	}

	for _, table := range []struct {
		name string
		fns  map[domain.Kind]TransitionFn
	}{
		{"completion", s.completion},
		{"cancellation", s.cancellation},
	} {
		for _, kind := range domain.ProcessTargets() {
			if _, ok := table.fns[kind]; !ok {
				return nil, fmt.Errorf(
					"simulator %s table has no transition for target %s", table.name, kind,
				)
			}
		}
	}

	return s, nil
}

// Interval between ticks.
func (s *Simulator) Interval() time.Duration {
	return s.tick
}

// Launch inserts p as a live process. Status defaults to RUNNING; pass
// domain.ProcessQueued explicitly for jobs waiting on a predecessor.
func (s *Simulator) Launch(p domain.Process) (domain.Process, error) {
	if p.Status == "" {
		p.Status = domain.ProcessRunning
	}
	p.Progress = 0
	p.Touched = false
	return s.db.Processes.Insert(p)
}

// Stats of one tick, for the loop monitor.
type Stats struct {
	Advanced  int
	Completed int
	Dropped   int
	Failed    int
}

// Task adapts the simulator to the loop runner.
func (s *Simulator) Task() loop.Task[Stats] {
	return func(ctx context.Context, _ Stats) (Stats, loop.Next) {
		stats, err := s.Tick(ctx)
		if err != nil {
			return stats, loop.Break(err)
		}
		return stats, loop.Continue(s.tick)
	}
}

// Tick advances every RUNNING process once.
//
// QUEUED processes wait for an external trigger and are never advanced here.
// A process whose audience has left entirely is dropped without further
// processing, so abandoned jobs cannot pile up. A process whose advancement
// or transition errors (say, its target asset is gone) is marked FAILED and
// skipped; one broken job never stops the sweep for the healthy ones.
func (s *Simulator) Tick(ctx context.Context) (Stats, error) {
	stats := Stats{}

	running, err := s.db.Processes.Find(func(p domain.Process) bool {
		return p.Status == domain.ProcessRunning && p.Progress < 1
	})
	if err != nil {
		return stats, err
	}

	for _, p := range running {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		if s.aud.abandoned(p.ID) {
			if err := s.db.Processes.Remove(p.ID); err != nil {
				return stats, err
			}
			s.aud.forget(p.ID)
			s.logger.Printf("dropped abandoned process %s (target %s %s)", p.ID, p.Target, p.TargetID)
			stats.Dropped += 1
			continue
		}

		armed := p.Touched
		completed, err := s.step(&p)
		if err != nil {
			s.logger.Printf("process %s (target %s %s) errored: %s", p.ID, p.Target, p.TargetID, err)
			if _, failErr := s.Fail(p.ID, err.Error()); failErr != nil {
				s.logger.Printf("could not mark process %s failed: %s", p.ID, failErr)
			}
			stats.Failed += 1
			continue
		}
		if armed {
			stats.Advanced += 1
		}
		if completed {
			stats.Completed += 1
		}
	}

	return stats, nil
}

// step moves one live process through a single tick: arming, progress, and
// the completion transition when it crosses 1.
func (s *Simulator) step(p *domain.Process) (completed bool, err error) {
	if !p.Touched {
		// freshly created jobs sit at 0 for one interval
		p.Touched = true
		_, err := s.db.Processes.Update(*p)
		return false, err
	}

	if err := s.advance(p); err != nil {
		return false, err
	}

	if 1 <= p.Progress {
		if err := s.complete(*p); err != nil {
			return false, err
		}
		return true, nil
	}
	_, err = s.db.Processes.Update(*p)
	return false, err
}

func (s *Simulator) advance(p *domain.Process) error {
	if p.Target == domain.KindModel {
		// model training progresses by iteration count, not wall clock
		progress, err := s.advanceTraining(*p)
		if err != nil {
			return err
		}
		if p.Progress < progress {
			p.Progress = progress
		}
		return nil
	}

	var step float64
	if 0 < p.ExpectedDuration {
		step = float64(s.tick) / float64(p.ExpectedDuration)
	} else {
		speed := p.Speed
		if speed <= 0 {
			speed = domain.DefaultProcessSpeed
		}
		step = speed + s.jitter()
	}

	p.Progress += step
	if 1 < p.Progress {
		p.Progress = 1
	}
	return nil
}

// advanceTraining appends one synthetic iteration to the experiment of the
// target model and reports overall progress derived from iteration count.
func (s *Simulator) advanceTraining(p domain.Process) (float64, error) {
	model, err := s.db.Models.Get(p.TargetID)
	if err != nil {
		return 0, err
	}
	exp, err := s.db.Experiments.Get(model.ExperimentID)
	if err != nil {
		return 0, err
	}

	if !exp.Saturated() {
		seq := len(exp.Iterations) + 1
		loss := 1.0/float64(seq) + s.jitter()
		exp.Iterations = append(exp.Iterations, domain.TrainingIteration{
			Seq:   seq,
			Loss:  loss,
			Score: 1 - loss/2,
		})
		switch {
		case exp.Saturated():
			exp.Phase = domain.PhaseComplete
		case domain.RefiningAfterIterations <= len(exp.Iterations):
			exp.Phase = domain.PhaseRefining
		default:
			exp.Phase = domain.PhaseTraining
		}
		if _, err := s.db.Experiments.Update(exp); err != nil {
			return 0, err
		}
	}

	return exp.Progress(), nil
}

func (s *Simulator) complete(p domain.Process) error {
	p.Progress = 1
	p.Status = domain.ProcessCompleted
	now := s.now()
	p.Completed = &now

	transition := s.completion[p.Target]
	if transition == nil {
		return fmt.Errorf("no completion transition for target %s", p.Target)
	}
	if err := transition(s.db, p); err != nil {
		return err
	}
	if _, err := s.db.Processes.Update(p); err != nil {
		return err
	}

	s.logger.Printf("process %s completed (target %s %s)", p.ID, p.Target, p.TargetID)
	s.bus.Publish(events.ProcessCompleted, p)
	s.bus.Publish(events.UpdateList(p.Target), p.TargetID)
	return nil
}

// Cancel stops a live process right away, bypassing the timer, and applies
// the cancellation transition of its target kind. Terminal processes cannot
// be cancelled.
func (s *Simulator) Cancel(processID string) (domain.Process, error) {
	p, err := s.db.Processes.Get(processID)
	if err != nil {
		return domain.Process{}, err
	}
	if p.Status.Terminal() {
		return domain.Process{}, kerr.Conflict{
			Collection: "processes",
			Reason:     fmt.Sprintf("process %s is already %s", p.ID, p.Status),
		}
	}

	p.Status = domain.ProcessCancelled
	now := s.now()
	p.Completed = &now

	if err := s.cancellation[p.Target](s.db, p); err != nil {
		return domain.Process{}, err
	}
	if _, err := s.db.Processes.Update(p); err != nil {
		return domain.Process{}, err
	}

	s.bus.Publish(events.ProcessCancelled, p)
	s.bus.Publish(events.UpdateList(p.Target), p.TargetID)
	return p, nil
}

// Fail moves a live process to FAILED with a cause, notifies the owner, and
// broadcasts the failure.
func (s *Simulator) Fail(processID string, cause string) (domain.Process, error) {
	p, err := s.db.Processes.Get(processID)
	if err != nil {
		return domain.Process{}, err
	}
	if p.Status.Terminal() {
		return domain.Process{}, kerr.Conflict{
			Collection: "processes",
			Reason:     fmt.Sprintf("process %s is already %s", p.ID, p.Status),
		}
	}

	p.Status = domain.ProcessFailed
	p.Cause = cause
	now := s.now()
	p.Completed = &now

	if _, err := s.db.Processes.Update(p); err != nil {
		return domain.Process{}, err
	}

	if _, err := s.db.Notifications.Insert(domain.Notification{
		OwnerID: p.OwnerID,
		Kind:    p.Target,
		AssetID: p.TargetID,
		Message: fmt.Sprintf("%s %s failed: %s", p.Target, p.TargetID, cause),
	}); err != nil {
		return domain.Process{}, err
	}

	s.bus.Publish(events.ProcessFailed, p)
	return p, nil
}

// Watch registers an observer on the process's completion stream and returns
// events concerning it. Detaching the last observer makes the process
// eligible for the audience sweep in Tick.
func (s *Simulator) Watch(processID string) (<-chan events.Event, func()) {
	s.aud.add(processID)
	ch, cancelSub := s.bus.Subscribe(16)
	done := make(chan struct{})

	out := make(chan events.Event, 16)
	go func() {
		defer close(out)
		for ev := range ch {
			p, ok := ev.Payload.(domain.Process)
			if !ok || p.ID != processID {
				continue
			}
			if p.Status.Terminal() {
				// the closing event must not be lost to a full buffer:
				// block until the watcher takes it or goes away
				select {
				case out <- ev:
				case <-done:
				}
				return
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()

	var detached bool
	return out, func() {
		if detached {
			return
		}
		detached = true
		cancelSub()
		close(done)
		s.aud.remove(processID)
	}
}

// ProcessesOf lists the processes owned by user, newest first.
func (s *Simulator) ProcessesOf(user domain.User) ([]domain.Process, error) {
	procs, err := s.db.Processes.Find(func(p domain.Process) bool {
		return p.OwnerID == user.ID
	})
	if err != nil {
		return nil, err
	}
	return slices.Sorted(procs, func(a, b domain.Process) bool {
		return b.Created.Before(a.Created)
	}), nil
}
