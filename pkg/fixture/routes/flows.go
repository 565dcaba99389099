package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/domain"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

func Flows(d Deps) []dispatch.Route {
	list := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return listOf(d, d.DB.Flows, domain.KindFlow, req)
	}

	get := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return getOf(d, d.DB.Flows, domain.KindFlow, req)
	}

	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		name := req.Params.String("name")
		if err := conflictOnDuplicateName(d.DB.Flows, user, name, ""); err != nil {
			return nil, err
		}
		return d.DB.Flows.Insert(domain.Flow{
			Asset: domain.Asset{
				OwnerID:     user.ID,
				Name:        name,
				Description: req.Params.String("description"),
				Status:      domain.StatusActive,
			},
			TableIDs: req.Params.StringSlice("tableIds"),
			ModelID:  req.Params.String("modelId"),
		})
	}

	update := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		flow, err := ownedOf(d.DB.Flows, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		if req.Params.Has("name") {
			if err := conflictOnDuplicateName(
				d.DB.Flows, user, req.Params.String("name"), flow.ID,
			); err != nil {
				return nil, err
			}
		}
		patchAsset(&flow.Asset, req.Params)
		if req.Params.Has("tableIds") {
			flow.TableIDs = req.Params.StringSlice("tableIds")
		}
		if req.Params.Has("modelId") {
			flow.ModelID = req.Params.String("modelId")
		}
		return d.DB.Flows.Update(flow)
	}

	// removeTable drops a table from the flow composition. When the id is
	// found at index i, the table list is truncated from i on; callers
	// rebuild the tail by re-adding tables. Kept as the UI expects it.
	removeTable := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		flow, err := ownedOf(d.DB.Flows, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		tableID := req.Params.Capture(2)
		for i, id := range flow.TableIDs {
			if id == tableID {
				flow.TableIDs = flow.TableIDs[:i]
				break
			}
		}
		return d.DB.Flows.Update(flow)
	}

	// run executes the flow: a Replay record plus a background process
	// driving it to DONE.
	run := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		flow, err := ownedOf(d.DB.Flows, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		replay, err := d.DB.Replays.Insert(domain.Replay{
			Asset: domain.Asset{
				OwnerID: user.ID,
				Name:    flow.Name,
				Status:  domain.StatusRunning,
			},
			FlowID: flow.ID,
		})
		if err != nil {
			return nil, err
		}
		if _, err := d.Sim.Launch(domain.Process{
			OwnerID:  user.ID,
			Target:   domain.KindReplay,
			TargetID: replay.ID,
			JobType:  "replay",
		}); err != nil {
			return nil, err
		}
		return replay, nil
	}

	remove := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		flow, err := ownedOf(d.DB.Flows, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		if err := dropLinksAndShares(d, domain.KindFlow, flow.ID); err != nil {
			return nil, err
		}
		if err := d.DB.Flows.Remove(flow.ID); err != nil {
			return nil, err
		}
		return flow, nil
	}

	listReplays := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return listOf(d, d.DB.Replays, domain.KindReplay, req)
	}

	getReplay := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return getOf(d, d.DB.Replays, domain.KindReplay, req)
	}

	return []dispatch.Route{
		{Method: http.MethodPost, Pattern: `flows/([\w-]+)/run`, Handle: run},
		{Method: http.MethodDelete, Pattern: `flows/([\w-]+)/tables/([\w-]+)`, Handle: removeTable},
		{Method: http.MethodGet, Pattern: `flows/([\w-]+)`, Handle: get},
		{Method: http.MethodGet, Pattern: `flows`, Handle: list},
		{Method: http.MethodPost, Pattern: `flows`, Handle: create},
		{Method: http.MethodPut, Pattern: `flows/([\w-]+)`, Handle: update},
		{Method: http.MethodDelete, Pattern: `flows/([\w-]+)`, Handle: remove},
		{Method: http.MethodGet, Pattern: `replays/([\w-]+)`, Handle: getReplay},
		{Method: http.MethodGet, Pattern: `replays`, Handle: listReplays},
	}
}
