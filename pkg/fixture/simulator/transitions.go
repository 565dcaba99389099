package simulator

import (
	"github.com/datakin/workbench/pkg/domain"
	"github.com/datakin/workbench/pkg/fixture"
)

// completionTable maps every process target kind to the status its asset
// takes when the job completes.
//
// This table and the cancellation table are intentionally separate: the
// statuses differ (an Album returns to ACTIVE on cancel, a Model becomes
// CANCELLED), and merging them once caused assets to end up in states the UI
// has no rendering for.
func completionTable() map[domain.Kind]TransitionFn {
	return map[domain.Kind]TransitionFn{
		domain.KindTable:   setTableStatus(domain.StatusActive),
		domain.KindAlbum:   setAlbumStatus(domain.StatusActive),
		domain.KindCVModel: setCVModelStatus(domain.StatusActive),
		domain.KindModel: func(db *fixture.Database, p domain.Process) error {
			model, err := db.Models.Get(p.TargetID)
			if err != nil {
				return err
			}
			model.Status = domain.StatusActive
			if _, err := db.Models.Update(model); err != nil {
				return err
			}
			// training is saturated by now; pin the experiment phase
			exp, err := db.Experiments.Get(model.ExperimentID)
			if err != nil {
				return err
			}
			exp.Phase = domain.PhaseComplete
			_, err = db.Experiments.Update(exp)
			return err
		},
		domain.KindPrediction: func(db *fixture.Database, p domain.Process) error {
			pred, err := db.Predictions.Get(p.TargetID)
			if err != nil {
				return err
			}
			pred.Status = domain.StatusDone
			if _, err := db.Predictions.Update(pred); err != nil {
				return err
			}
			if pred.OutputTableID == "" {
				return nil
			}
			out, err := db.Tables.Get(pred.OutputTableID)
			if err != nil {
				return err
			}
			out.Status = domain.StatusActive
			_, err = db.Tables.Update(out)
			return err
		},
		domain.KindFlow:   setFlowStatus(domain.StatusDone),
		domain.KindReplay: setReplayStatus(domain.StatusDone),
		domain.KindDiaa: func(db *fixture.Database, p domain.Process) error {
			diaa, err := db.Diaas.Get(p.TargetID)
			if err != nil {
				return err
			}
			// a first run marks DONE; re-checking an already-done analysis
			// marks CHECKED
			if diaa.Status == domain.StatusDone {
				diaa.Status = domain.StatusChecked
			} else {
				diaa.Status = domain.StatusDone
			}
			_, err = db.Diaas.Update(diaa)
			return err
		},
		domain.KindScriptDeployment: setScriptStatus(domain.StatusReady),
		domain.KindOnlineAPI:        setOnlineAPIStatus(domain.StatusActive),
	}
}

// cancellationTable maps every process target kind to the status its asset
// rolls back to when the job is cancelled.
func cancellationTable() map[domain.Kind]TransitionFn {
	return map[domain.Kind]TransitionFn{
		domain.KindTable:   setTableStatus(domain.StatusError),
		domain.KindAlbum:   setAlbumStatus(domain.StatusActive),
		domain.KindModel:   setModelStatus(domain.StatusCancelled),
		domain.KindCVModel: setCVModelStatus(domain.StatusCancelled),
		domain.KindPrediction: func(db *fixture.Database, p domain.Process) error {
			pred, err := db.Predictions.Get(p.TargetID)
			if err != nil {
				return err
			}
			pred.Status = domain.StatusCancelled
			_, err = db.Predictions.Update(pred)
			return err
		},
		domain.KindFlow:             setFlowStatus(domain.StatusCancelled),
		domain.KindReplay:           setReplayStatus(domain.StatusCancelled),
		domain.KindDiaa:             setDiaaStatus(domain.StatusDone),
		domain.KindScriptDeployment: setScriptStatus(domain.StatusCancelled),
		domain.KindOnlineAPI:        setOnlineAPIStatus(domain.StatusDisabled),
	}
}

func setTableStatus(status domain.Status) TransitionFn {
	return func(db *fixture.Database, p domain.Process) error {
		rec, err := db.Tables.Get(p.TargetID)
		if err != nil {
			return err
		}
		rec.Status = status
		_, err = db.Tables.Update(rec)
		return err
	}
}

func setAlbumStatus(status domain.Status) TransitionFn {
	return func(db *fixture.Database, p domain.Process) error {
		rec, err := db.Albums.Get(p.TargetID)
		if err != nil {
			return err
		}
		rec.Status = status
		_, err = db.Albums.Update(rec)
		return err
	}
}

func setModelStatus(status domain.Status) TransitionFn {
	return func(db *fixture.Database, p domain.Process) error {
		rec, err := db.Models.Get(p.TargetID)
		if err != nil {
			return err
		}
		rec.Status = status
		_, err = db.Models.Update(rec)
		return err
	}
}

func setCVModelStatus(status domain.Status) TransitionFn {
	return func(db *fixture.Database, p domain.Process) error {
		rec, err := db.CVModels.Get(p.TargetID)
		if err != nil {
			return err
		}
		rec.Status = status
		_, err = db.CVModels.Update(rec)
		return err
	}
}

func setFlowStatus(status domain.Status) TransitionFn {
	return func(db *fixture.Database, p domain.Process) error {
		rec, err := db.Flows.Get(p.TargetID)
		if err != nil {
			return err
		}
		rec.Status = status
		_, err = db.Flows.Update(rec)
		return err
	}
}

func setReplayStatus(status domain.Status) TransitionFn {
	return func(db *fixture.Database, p domain.Process) error {
		rec, err := db.Replays.Get(p.TargetID)
		if err != nil {
			return err
		}
		rec.Status = status
		_, err = db.Replays.Update(rec)
		return err
	}
}

func setDiaaStatus(status domain.Status) TransitionFn {
	return func(db *fixture.Database, p domain.Process) error {
		rec, err := db.Diaas.Get(p.TargetID)
		if err != nil {
			return err
		}
		rec.Status = status
		_, err = db.Diaas.Update(rec)
		return err
	}
}

func setScriptStatus(status domain.Status) TransitionFn {
	return func(db *fixture.Database, p domain.Process) error {
		rec, err := db.Scripts.Get(p.TargetID)
		if err != nil {
			return err
		}
		rec.Status = status
		_, err = db.Scripts.Update(rec)
		return err
	}
}

func setOnlineAPIStatus(status domain.Status) TransitionFn {
	return func(db *fixture.Database, p domain.Process) error {
		rec, err := db.OnlineAPIs.Get(p.TargetID)
		if err != nil {
			return err
		}
		rec.Status = status
		_, err = db.OnlineAPIs.Update(rec)
		return err
	}
}
