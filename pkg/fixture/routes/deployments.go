package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/domain"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

func Scripts(d Deps) []dispatch.Route {
	// create publishes a script: DEPLOYING until the rollout process turns
	// it READY.
	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		name := req.Params.String("name")
		if err := conflictOnDuplicateName(d.DB.Scripts, user, name, ""); err != nil {
			return nil, err
		}
		deployment, err := d.DB.Scripts.Insert(domain.ScriptDeployment{
			Asset: domain.Asset{
				OwnerID:     user.ID,
				Name:        name,
				Description: req.Params.String("description"),
				Status:      domain.StatusDeploying,
			},
			ScriptID: req.Params.String("scriptId"),
		})
		if err != nil {
			return nil, err
		}
		if _, err := d.Sim.Launch(domain.Process{
			OwnerID:  user.ID,
			Target:   domain.KindScriptDeployment,
			TargetID: deployment.ID,
			JobType:  "deploy",
		}); err != nil {
			return nil, err
		}
		return deployment, nil
	}

	return append([]dispatch.Route{
		{Method: http.MethodPost, Pattern: `scriptDeployments`, Handle: create},
	}, crudOf(d, d.DB.Scripts, domain.KindScriptDeployment, `scriptDeployments`)...)
}

func OnlineAPIs(d Deps) []dispatch.Route {
	// create exposes a model as a scoring endpoint.
	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		name := req.Params.String("name")
		if err := conflictOnDuplicateName(d.DB.OnlineAPIs, user, name, ""); err != nil {
			return nil, err
		}
		model, err := ownedOf(d.DB.Models, req.Params.String("modelId"), user)
		if err != nil {
			return nil, err
		}
		api, err := d.DB.OnlineAPIs.Insert(domain.OnlineAPI{
			Asset: domain.Asset{
				OwnerID:     user.ID,
				Name:        name,
				Description: req.Params.String("description"),
				Status:      domain.StatusDeploying,
			},
			ModelID: model.ID,
		})
		if err != nil {
			return nil, err
		}
		if _, err := d.Sim.Launch(domain.Process{
			OwnerID:  user.ID,
			Target:   domain.KindOnlineAPI,
			TargetID: api.ID,
			JobType:  "deploy",
		}); err != nil {
			return nil, err
		}
		return api, nil
	}

	// disable takes the endpoint out of rotation without deleting it.
	disable := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		api, err := ownedOf(d.DB.OnlineAPIs, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		api.Status = domain.StatusDisabled
		return d.DB.OnlineAPIs.Update(api)
	}

	return append([]dispatch.Route{
		{Method: http.MethodPut, Pattern: `onlineApis/([\w-]+)/disable`, Handle: disable},
		{Method: http.MethodPost, Pattern: `onlineApis`, Handle: create},
	}, crudOf(d, d.DB.OnlineAPIs, domain.KindOnlineAPI, `onlineApis`)...)
}
