package simulator_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/datakin/workbench/pkg/db/bunt"
	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/events"
	"github.com/datakin/workbench/pkg/fixture"
	"github.com/datakin/workbench/pkg/fixture/simulator"
	"github.com/datakin/workbench/pkg/utils/try"
)

const tick = 100 * time.Millisecond

func newSimulator(t *testing.T) (*fixture.Database, *events.Bus, *simulator.Simulator) {
	t.Helper()
	driver := try.To(bunt.Open(bunt.InMemory)).OrFatal(t)
	t.Cleanup(func() { driver.Close() })
	db := fixture.NewDatabase(driver)
	bus := events.NewBus()
	sim := try.To(simulator.New(
		db, bus, tick,
		simulator.WithJitter(func() float64 { return 0 }),
		simulator.WithLogger(log.New(io.Discard, "", 0)),
	)).OrFatal(t)
	return db, bus, sim
}

func ctxOf(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func TestSimulator_Tick(t *testing.T) {
	t.Run("progress stays at zero for the first tick, then grows monotonically to completion", func(t *testing.T) {
		db, _, sim := newSimulator(t)
		ctx := ctxOf(t)

		table := try.To(db.Tables.Insert(domain.Table{
			Asset: domain.Asset{OwnerID: "me", Status: domain.StatusSaving},
		})).OrFatal(t)
		p := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindTable, TargetID: table.ID,
			Speed: 0.4,
		})).OrFatal(t)

		try.To(sim.Tick(ctx)).OrFatal(t)
		afterFirst := try.To(db.Processes.Get(p.ID)).OrFatal(t)
		if afterFirst.Progress != 0 {
			t.Errorf("first tick advanced a fresh process: %v", afterFirst.Progress)
		}

		last := 0.0
		for i := 0; i < 3; i++ {
			try.To(sim.Tick(ctx)).OrFatal(t)
			got := try.To(db.Processes.Get(p.ID)).OrFatal(t)
			if got.Progress < last {
				t.Errorf("progress went backwards: %v -> %v", last, got.Progress)
			}
			last = got.Progress
		}

		final := try.To(db.Processes.Get(p.ID)).OrFatal(t)
		if final.Status != domain.ProcessCompleted || final.Progress != 1 {
			t.Errorf("unmatch final process: %+v", final)
		}
		if final.Completed == nil {
			t.Error("completion time is not recorded")
		}

		got := try.To(db.Tables.Get(table.ID)).OrFatal(t)
		if got.Status != domain.StatusActive {
			t.Errorf("table is stuck in %s", got.Status)
		}

		// terminal processes are immutable
		try.To(sim.Tick(ctx)).OrFatal(t)
		again := try.To(db.Processes.Get(p.ID)).OrFatal(t)
		if again.Progress != 1 || again.Status != domain.ProcessCompleted {
			t.Errorf("terminal process changed: %+v", again)
		}
	})

	t.Run("an expected duration drives time-proportional progress", func(t *testing.T) {
		db, _, sim := newSimulator(t)
		ctx := ctxOf(t)

		p := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindFlow, TargetID: "f-1",
			ExpectedDuration: 4 * tick,
		})).OrFatal(t)

		try.To(sim.Tick(ctx)).OrFatal(t) // touched
		try.To(sim.Tick(ctx)).OrFatal(t)
		got := try.To(db.Processes.Get(p.ID)).OrFatal(t)
		if got.Progress != 0.25 {
			t.Errorf("unmatch progress: %v (expected 0.25)", got.Progress)
		}
	})

	t.Run("QUEUED processes are left alone", func(t *testing.T) {
		db, _, sim := newSimulator(t)
		ctx := ctxOf(t)

		p := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindFlow, TargetID: "f-1",
			Status: domain.ProcessQueued,
		})).OrFatal(t)

		try.To(sim.Tick(ctx)).OrFatal(t)
		try.To(sim.Tick(ctx)).OrFatal(t)
		got := try.To(db.Processes.Get(p.ID)).OrFatal(t)
		if got.Progress != 0 || got.Status != domain.ProcessQueued {
			t.Errorf("queued process moved: %+v", got)
		}
	})

	t.Run("a process whose whole audience left is dropped; never-watched ones keep running", func(t *testing.T) {
		db, _, sim := newSimulator(t)
		ctx := ctxOf(t)

		watched := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindFlow, TargetID: "f-1",
		})).OrFatal(t)
		polled := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindFlow, TargetID: "f-2",
		})).OrFatal(t)

		_, detach := sim.Watch(watched.ID)
		detach()

		stats := try.To(sim.Tick(ctx)).OrFatal(t)
		if stats.Dropped != 1 {
			t.Errorf("unmatch dropped: %+v", stats)
		}

		if _, err := db.Processes.Get(watched.ID); !errors.Is(err, kerr.ErrMissing) {
			t.Errorf("abandoned process survives: %v", err)
		}
		if _, err := db.Processes.Get(polled.ID); err != nil {
			t.Errorf("never-watched process was dropped: %v", err)
		}
	})

	t.Run("a process with a dangling target fails alone, healthy jobs keep going", func(t *testing.T) {
		db, _, sim := newSimulator(t)
		ctx := ctxOf(t)

		table := try.To(db.Tables.Insert(domain.Table{
			Asset: domain.Asset{OwnerID: "me", Status: domain.StatusSaving},
		})).OrFatal(t)
		healthy := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindTable, TargetID: table.ID, Speed: 1,
		})).OrFatal(t)
		dangling := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindFlow, TargetID: "gone", Speed: 1,
		})).OrFatal(t)

		for i := 0; i < 5; i++ {
			try.To(sim.Tick(ctx)).OrFatal(t)
		}

		after := try.To(db.Tables.Get(table.ID)).OrFatal(t)
		if after.Status != domain.StatusActive {
			t.Errorf("healthy import was starved: %s", after.Status)
		}
		if p := try.To(db.Processes.Get(healthy.ID)).OrFatal(t); p.Status != domain.ProcessCompleted {
			t.Errorf("unmatch healthy process: %+v", p)
		}

		broken := try.To(db.Processes.Get(dangling.ID)).OrFatal(t)
		if broken.Status != domain.ProcessFailed {
			t.Errorf("unmatch dangling process: %+v", broken)
		}
		notes := try.To(db.Notifications.Find(nil)).OrFatal(t)
		if len(notes) != 1 || notes[0].AssetID != "gone" {
			t.Errorf("unmatch notifications: %+v", notes)
		}
	})
}

func TestSimulator_Training(t *testing.T) {
	t.Run("model progress is derived from training iterations, phases included", func(t *testing.T) {
		db, _, sim := newSimulator(t)
		ctx := ctxOf(t)

		model := try.To(db.Models.Insert(domain.Model{
			Asset: domain.Asset{OwnerID: "me", Status: domain.StatusTraining},
		})).OrFatal(t)
		exp := try.To(db.Experiments.Insert(domain.Experiment{
			ModelID: model.ID, Phase: domain.PhaseTraining,
		})).OrFatal(t)
		model.ExperimentID = exp.ID
		model = try.To(db.Models.Update(model)).OrFatal(t)

		p := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindModel, TargetID: model.ID,
		})).OrFatal(t)

		try.To(sim.Tick(ctx)).OrFatal(t) // touched

		for i := 1; i <= domain.MaxTrainingIterations; i++ {
			try.To(sim.Tick(ctx)).OrFatal(t)

			got := try.To(db.Experiments.Get(exp.ID)).OrFatal(t)
			if len(got.Iterations) != i {
				t.Fatalf("unmatch iterations after tick %d: %d", i, len(got.Iterations))
			}
			switch {
			case i < domain.RefiningAfterIterations:
				if got.Phase != domain.PhaseTraining {
					t.Errorf("unmatch phase at %d: %s", i, got.Phase)
				}
			case i < domain.MaxTrainingIterations:
				if got.Phase != domain.PhaseRefining {
					t.Errorf("unmatch phase at %d: %s", i, got.Phase)
				}
			default:
				if got.Phase != domain.PhaseComplete {
					t.Errorf("unmatch phase at %d: %s", i, got.Phase)
				}
			}
		}

		final := try.To(db.Processes.Get(p.ID)).OrFatal(t)
		if final.Status != domain.ProcessCompleted {
			t.Errorf("unmatch process: %+v", final)
		}
		trained := try.To(db.Models.Get(model.ID)).OrFatal(t)
		if trained.Status != domain.StatusActive {
			t.Errorf("unmatch model status: %s", trained.Status)
		}
	})
}

func TestSimulator_Transitions(t *testing.T) {
	// every target kind must leave its asset in a new status on completion
	t.Run("completion changes the target status for every process target", func(t *testing.T) {
		db, _, sim := newSimulator(t)
		ctx := ctxOf(t)

		type target struct {
			id     func() string
			before domain.Status
			after  func() (domain.Status, error)
		}

		insertAndRead := map[domain.Kind]target{}
		{
			table := try.To(db.Tables.Insert(domain.Table{
				Asset: domain.Asset{Status: domain.StatusSaving},
			})).OrFatal(t)
			insertAndRead[domain.KindTable] = target{
				id:     func() string { return table.ID },
				before: domain.StatusSaving,
				after: func() (domain.Status, error) {
					got, err := db.Tables.Get(table.ID)
					return got.Status, err
				},
			}

			flow := try.To(db.Flows.Insert(domain.Flow{
				Asset: domain.Asset{Status: domain.StatusRunning},
			})).OrFatal(t)
			insertAndRead[domain.KindFlow] = target{
				id:     func() string { return flow.ID },
				before: domain.StatusRunning,
				after: func() (domain.Status, error) {
					got, err := db.Flows.Get(flow.ID)
					return got.Status, err
				},
			}

			replay := try.To(db.Replays.Insert(domain.Replay{
				Asset: domain.Asset{Status: domain.StatusRunning}, FlowID: flow.ID,
			})).OrFatal(t)
			insertAndRead[domain.KindReplay] = target{
				id:     func() string { return replay.ID },
				before: domain.StatusRunning,
				after: func() (domain.Status, error) {
					got, err := db.Replays.Get(replay.ID)
					return got.Status, err
				},
			}

			exp := try.To(db.Experiments.Insert(domain.Experiment{
				Phase: domain.PhaseComplete,
				Iterations: make(
					[]domain.TrainingIteration, domain.MaxTrainingIterations,
				),
			})).OrFatal(t)
			model := try.To(db.Models.Insert(domain.Model{
				Asset:        domain.Asset{Status: domain.StatusTraining},
				ExperimentID: exp.ID,
			})).OrFatal(t)
			insertAndRead[domain.KindModel] = target{
				id:     func() string { return model.ID },
				before: domain.StatusTraining,
				after: func() (domain.Status, error) {
					got, err := db.Models.Get(model.ID)
					return got.Status, err
				},
			}

			cvmodel := try.To(db.CVModels.Insert(domain.CVModel{
				Asset: domain.Asset{Status: domain.StatusTraining},
			})).OrFatal(t)
			insertAndRead[domain.KindCVModel] = target{
				id:     func() string { return cvmodel.ID },
				before: domain.StatusTraining,
				after: func() (domain.Status, error) {
					got, err := db.CVModels.Get(cvmodel.ID)
					return got.Status, err
				},
			}

			album := try.To(db.Albums.Insert(domain.Album{
				Asset: domain.Asset{Status: domain.StatusSaving},
			})).OrFatal(t)
			insertAndRead[domain.KindAlbum] = target{
				id:     func() string { return album.ID },
				before: domain.StatusSaving,
				after: func() (domain.Status, error) {
					got, err := db.Albums.Get(album.ID)
					return got.Status, err
				},
			}

			output := try.To(db.Tables.Insert(domain.Table{
				Asset: domain.Asset{Status: domain.StatusSaving},
			})).OrFatal(t)
			pred := try.To(db.Predictions.Insert(domain.Prediction{
				Asset:         domain.Asset{Status: domain.StatusRunning},
				OutputTableID: output.ID,
			})).OrFatal(t)
			insertAndRead[domain.KindPrediction] = target{
				id:     func() string { return pred.ID },
				before: domain.StatusRunning,
				after: func() (domain.Status, error) {
					got, err := db.Predictions.Get(pred.ID)
					if err != nil {
						return "", err
					}
					out, err := db.Tables.Get(output.ID)
					if err != nil {
						return "", err
					}
					if out.Status != domain.StatusActive {
						return got.Status, errors.New("output table is not ACTIVE")
					}
					return got.Status, nil
				},
			}

			diaa := try.To(db.Diaas.Insert(domain.Diaa{
				Asset: domain.Asset{Status: domain.StatusRunning},
			})).OrFatal(t)
			insertAndRead[domain.KindDiaa] = target{
				id:     func() string { return diaa.ID },
				before: domain.StatusRunning,
				after: func() (domain.Status, error) {
					got, err := db.Diaas.Get(diaa.ID)
					return got.Status, err
				},
			}

			script := try.To(db.Scripts.Insert(domain.ScriptDeployment{
				Asset: domain.Asset{Status: domain.StatusDeploying},
			})).OrFatal(t)
			insertAndRead[domain.KindScriptDeployment] = target{
				id:     func() string { return script.ID },
				before: domain.StatusDeploying,
				after: func() (domain.Status, error) {
					got, err := db.Scripts.Get(script.ID)
					return got.Status, err
				},
			}

			api := try.To(db.OnlineAPIs.Insert(domain.OnlineAPI{
				Asset: domain.Asset{Status: domain.StatusDeploying},
			})).OrFatal(t)
			insertAndRead[domain.KindOnlineAPI] = target{
				id:     func() string { return api.ID },
				before: domain.StatusDeploying,
				after: func() (domain.Status, error) {
					got, err := db.OnlineAPIs.Get(api.ID)
					return got.Status, err
				},
			}
		}

		for _, kind := range domain.ProcessTargets() {
			tgt, ok := insertAndRead[kind]
			if !ok {
				t.Fatalf("no fixture for target %s", kind)
			}

			p := try.To(sim.Launch(domain.Process{
				OwnerID: "me", Target: kind, TargetID: tgt.id(), Speed: 1,
			})).OrFatal(t)
			try.To(sim.Tick(ctx)).OrFatal(t) // touched
			try.To(sim.Tick(ctx)).OrFatal(t) // completes

			done := try.To(db.Processes.Get(p.ID)).OrFatal(t)
			if done.Status != domain.ProcessCompleted {
				t.Errorf("[%s] process not completed: %+v", kind, done)
			}
			after := try.To(tgt.after()).OrFatal(t)
			if after == tgt.before {
				t.Errorf("[%s] completion is a silent no-op: still %s", kind, after)
			}
		}
	})

	t.Run("re-checking a DONE diaa marks it CHECKED", func(t *testing.T) {
		db, _, sim := newSimulator(t)
		ctx := ctxOf(t)

		diaa := try.To(db.Diaas.Insert(domain.Diaa{
			Asset: domain.Asset{Status: domain.StatusDone},
		})).OrFatal(t)
		try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindDiaa, TargetID: diaa.ID, Speed: 1,
		})).OrFatal(t)

		try.To(sim.Tick(ctx)).OrFatal(t)
		try.To(sim.Tick(ctx)).OrFatal(t)

		got := try.To(db.Diaas.Get(diaa.ID)).OrFatal(t)
		if got.Status != domain.StatusChecked {
			t.Errorf("unmatch: %s", got.Status)
		}
	})
}

func TestSimulator_Cancel(t *testing.T) {
	t.Run("cancelling an album job rolls the album back to ACTIVE", func(t *testing.T) {
		db, _, sim := newSimulator(t)

		album := try.To(db.Albums.Insert(domain.Album{
			Asset: domain.Asset{OwnerID: "me", Status: domain.StatusSaving},
		})).OrFatal(t)
		p := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindAlbum, TargetID: album.ID,
		})).OrFatal(t)

		cancelled := try.To(sim.Cancel(p.ID)).OrFatal(t)
		if cancelled.Status != domain.ProcessCancelled {
			t.Errorf("unmatch process: %+v", cancelled)
		}

		got := try.To(db.Albums.Get(album.ID)).OrFatal(t)
		if got.Status != domain.StatusActive {
			t.Errorf("cancel did not restore the album: %s", got.Status)
		}
	})

	t.Run("a terminal process cannot be cancelled again", func(t *testing.T) {
		db, _, sim := newSimulator(t)

		album := try.To(db.Albums.Insert(domain.Album{
			Asset: domain.Asset{Status: domain.StatusSaving},
		})).OrFatal(t)
		p := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindAlbum, TargetID: album.ID,
		})).OrFatal(t)
		try.To(sim.Cancel(p.ID)).OrFatal(t)

		if _, err := sim.Cancel(p.ID); !errors.Is(err, kerr.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestSimulator_Fail(t *testing.T) {
	t.Run("failure records a notification and broadcasts the event", func(t *testing.T) {
		db, bus, sim := newSimulator(t)

		ch, cancel := bus.Subscribe(16)
		defer cancel()

		p := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindTable, TargetID: "t-1",
		})).OrFatal(t)
		failed := try.To(sim.Fail(p.ID, "quota exceeded")).OrFatal(t)

		if failed.Status != domain.ProcessFailed || failed.Cause != "quota exceeded" {
			t.Errorf("unmatch process: %+v", failed)
		}

		notes := try.To(db.Notifications.Find(nil)).OrFatal(t)
		if len(notes) != 1 {
			t.Fatalf("unmatch notifications: %d", len(notes))
		}
		if notes[0].OwnerID != "me" || notes[0].Message != "TABLE t-1 failed: quota exceeded" {
			t.Errorf("unmatch notification: %+v", notes[0])
		}

		select {
		case ev := <-ch:
			if ev.Name != events.ProcessFailed {
				t.Errorf("unmatch event: %s", ev.Name)
			}
		case <-time.After(time.Second):
			t.Error("no event broadcast")
		}
	})
}

func TestSimulator_Watch(t *testing.T) {
	t.Run("watchers only see events of their process", func(t *testing.T) {
		db, _, sim := newSimulator(t)
		ctx := ctxOf(t)

		try.To(db.Flows.Insert(domain.Flow{
			Asset: domain.Asset{ID: "f-1", Status: domain.StatusRunning},
		})).OrFatal(t)
		try.To(db.Flows.Insert(domain.Flow{
			Asset: domain.Asset{ID: "f-other", Status: domain.StatusRunning},
		})).OrFatal(t)
		mine := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindFlow, TargetID: "f-1", Speed: 1,
		})).OrFatal(t)
		try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindFlow, TargetID: "f-other", Speed: 1,
		})).OrFatal(t)

		ch, detach := sim.Watch(mine.ID)
		defer detach()

		// touched, then both complete
		try.To(sim.Tick(ctx)).OrFatal(t)
		try.To(sim.Tick(ctx)).OrFatal(t)

		select {
		case ev := <-ch:
			if ev.Name != events.ProcessCompleted {
				t.Errorf("unmatch event: %s", ev.Name)
			}
			if p, ok := ev.Payload.(domain.Process); !ok || p.ID != mine.ID {
				t.Errorf("unmatch payload: %+v", ev.Payload)
			}
		case <-time.After(time.Second):
			t.Error("no completion event delivered")
		}
	})

	t.Run("the stream delivers the terminal event and then closes", func(t *testing.T) {
		db, _, sim := newSimulator(t)
		ctx := ctxOf(t)

		try.To(db.Flows.Insert(domain.Flow{
			Asset: domain.Asset{ID: "f-1", Status: domain.StatusRunning},
		})).OrFatal(t)
		p := try.To(sim.Launch(domain.Process{
			OwnerID: "me", Target: domain.KindFlow, TargetID: "f-1", Speed: 1,
		})).OrFatal(t)

		ch, detach := sim.Watch(p.ID)
		defer detach()

		try.To(sim.Tick(ctx)).OrFatal(t)
		try.To(sim.Tick(ctx)).OrFatal(t)

		deadline := time.After(time.Second)
		gotTerminal := false
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					if !gotTerminal {
						t.Error("stream closed without a terminal event")
					}
					return
				}
				if p, ok := ev.Payload.(domain.Process); ok && p.Status.Terminal() {
					gotTerminal = true
				}
			case <-deadline:
				t.Fatal("stream never closed after completion")
			}
		}
	})
}
