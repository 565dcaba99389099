package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

func Models(d Deps) []dispatch.Route {
	list := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return listOf(d, d.DB.Models, domain.KindModel, req)
	}

	get := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return getOf(d, d.DB.Models, domain.KindModel, req)
	}

	// create starts a training run: the model goes TRAINING, gets a fresh
	// experiment, and a process whose progress tracks the experiment's
	// iteration count.
	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		name := req.Params.String("name")
		if err := conflictOnDuplicateName(d.DB.Models, user, name, ""); err != nil {
			return nil, err
		}

		model, err := d.DB.Models.Insert(domain.Model{
			Asset: domain.Asset{
				OwnerID:     user.ID,
				Name:        name,
				Description: req.Params.String("description"),
				Status:      domain.StatusTraining,
			},
			TableID: req.Params.String("tableId"),
			JobType: req.Params.String("jobType"),
		})
		if err != nil {
			return nil, err
		}

		exp, err := d.DB.Experiments.Insert(domain.Experiment{
			ModelID: model.ID,
			Phase:   domain.PhaseTraining,
		})
		if err != nil {
			return nil, err
		}
		model.ExperimentID = exp.ID
		model, err = d.DB.Models.Update(model)
		if err != nil {
			return nil, err
		}

		if _, err := d.Sim.Launch(domain.Process{
			OwnerID:  user.ID,
			Target:   domain.KindModel,
			TargetID: model.ID,
			JobType:  model.JobType,
		}); err != nil {
			return nil, err
		}
		return model, nil
	}

	experiment := func(ctx context.Context, req *dispatch.Request) (any, error) {
		model, err := getOf(d, d.DB.Models, domain.KindModel, req)
		if err != nil {
			return nil, err
		}
		if model.ExperimentID == "" {
			return nil, kerr.Missing{
				Collection: d.DB.Experiments.Name(), Identity: model.ID,
			}
		}
		return d.DB.Experiments.Get(model.ExperimentID)
	}

	update := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		model, err := ownedOf(d.DB.Models, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		if req.Params.Has("name") {
			if err := conflictOnDuplicateName(
				d.DB.Models, user, req.Params.String("name"), model.ID,
			); err != nil {
				return nil, err
			}
		}
		patchAsset(&model.Asset, req.Params)
		return d.DB.Models.Update(model)
	}

	remove := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		model, err := ownedOf(d.DB.Models, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		if model.ExperimentID != "" {
			if _, err := d.DB.Experiments.RemoveWhere(func(e domain.Experiment) bool {
				return e.ID == model.ExperimentID
			}); err != nil {
				return nil, err
			}
		}
		if err := dropLinksAndShares(d, domain.KindModel, model.ID); err != nil {
			return nil, err
		}
		if err := d.DB.Models.Remove(model.ID); err != nil {
			return nil, err
		}
		return model, nil
	}

	return []dispatch.Route{
		{Method: http.MethodGet, Pattern: `models/([\w-]+)/experiment`, Handle: experiment},
		{Method: http.MethodGet, Pattern: `models/([\w-]+)`, Handle: get},
		{Method: http.MethodGet, Pattern: `models`, Handle: list},
		{Method: http.MethodPost, Pattern: `models`, Handle: create},
		{Method: http.MethodPut, Pattern: `models/([\w-]+)`, Handle: update},
		{Method: http.MethodDelete, Pattern: `models/([\w-]+)`, Handle: remove},
	}
}
