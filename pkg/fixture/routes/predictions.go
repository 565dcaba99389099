package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/domain"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

func Predictions(d Deps) []dispatch.Route {
	// create scores a table with a model. The output table is materialized
	// up front in SAVING; the completion transition flips both the
	// prediction and the output table.
	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		name := req.Params.String("name")
		if err := conflictOnDuplicateName(d.DB.Predictions, user, name, ""); err != nil {
			return nil, err
		}
		model, err := ownedOf(d.DB.Models, req.Params.String("modelId"), user)
		if err != nil {
			return nil, err
		}

		output, err := d.DB.Tables.Insert(domain.Table{
			Asset: domain.Asset{
				OwnerID: user.ID,
				Name:    name + " (scored)",
				Status:  domain.StatusSaving,
			},
		})
		if err != nil {
			return nil, err
		}
		prediction, err := d.DB.Predictions.Insert(domain.Prediction{
			Asset: domain.Asset{
				OwnerID:     user.ID,
				Name:        name,
				Description: req.Params.String("description"),
				Status:      domain.StatusRunning,
			},
			ModelID:       model.ID,
			InputTableID:  req.Params.String("inputTableId"),
			OutputTableID: output.ID,
		})
		if err != nil {
			return nil, err
		}
		if _, err := d.Sim.Launch(domain.Process{
			OwnerID:  user.ID,
			Target:   domain.KindPrediction,
			TargetID: prediction.ID,
			JobType:  "predict",
		}); err != nil {
			return nil, err
		}
		return prediction, nil
	}

	return append([]dispatch.Route{
		{Method: http.MethodPost, Pattern: `predictions`, Handle: create},
	}, crudOf(d, d.DB.Predictions, domain.KindPrediction, `predictions`)...)
}

func Diaas(d Deps) []dispatch.Route {
	// create runs a disparate-impact analysis over a model.
	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		name := req.Params.String("name")
		if err := conflictOnDuplicateName(d.DB.Diaas, user, name, ""); err != nil {
			return nil, err
		}
		model, err := ownedOf(d.DB.Models, req.Params.String("modelId"), user)
		if err != nil {
			return nil, err
		}
		diaa, err := d.DB.Diaas.Insert(domain.Diaa{
			Asset: domain.Asset{
				OwnerID:     user.ID,
				Name:        name,
				Description: req.Params.String("description"),
				Status:      domain.StatusRunning,
			},
			ModelID: model.ID,
		})
		if err != nil {
			return nil, err
		}
		if _, err := d.Sim.Launch(domain.Process{
			OwnerID:  user.ID,
			Target:   domain.KindDiaa,
			TargetID: diaa.ID,
			JobType:  "analyze",
		}); err != nil {
			return nil, err
		}
		return diaa, nil
	}

	// rerun repeats the analysis: a fresh mitigated output model is created
	// and the diaa is rewired to it, then driven DONE -> CHECKED.
	rerun := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		diaa, err := ownedOf(d.DB.Diaas, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		output, err := d.DB.Models.Insert(domain.Model{
			Asset: domain.Asset{
				OwnerID: user.ID,
				Name:    diaa.Name + " (mitigated)",
				Status:  domain.StatusActive,
			},
		})
		if err != nil {
			return nil, err
		}
		diaa.OutputModelID = output.ID
		diaa, err = d.DB.Diaas.Update(diaa)
		if err != nil {
			return nil, err
		}
		if _, err := d.Sim.Launch(domain.Process{
			OwnerID:  user.ID,
			Target:   domain.KindDiaa,
			TargetID: diaa.ID,
			JobType:  "analyze",
		}); err != nil {
			return nil, err
		}
		return diaa, nil
	}

	return append([]dispatch.Route{
		{Method: http.MethodPost, Pattern: `diaas/([\w-]+)/rerun`, Handle: rerun},
		{Method: http.MethodPost, Pattern: `diaas`, Handle: create},
	}, crudOf(d, d.DB.Diaas, domain.KindDiaa, `diaas`)...)
}
