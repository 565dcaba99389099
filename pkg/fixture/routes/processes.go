package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/api/types/list"
	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

func Processes(d Deps) []dispatch.Route {
	ownProcess := func(req *dispatch.Request) (domain.Process, error) {
		user, err := requireUser(req)
		if err != nil {
			return domain.Process{}, err
		}
		id := req.Params.Capture(1)
		p, err := d.DB.Processes.Get(id)
		if err != nil {
			return domain.Process{}, err
		}
		if p.OwnerID != user.ID {
			return domain.Process{}, kerr.Missing{
				Collection: d.DB.Processes.Name(), Identity: id,
			}
		}
		return p, nil
	}

	listProcesses := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		rows, err := d.Sim.ProcessesOf(user)
		if err != nil {
			return nil, err
		}
		return list.Response[domain.Process]{Count: len(rows), Data: rows}, nil
	}

	get := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return ownProcess(req)
	}

	// cancel stops a running job right away, applying the rollback status
	// of its target kind.
	cancel := func(ctx context.Context, req *dispatch.Request) (any, error) {
		p, err := ownProcess(req)
		if err != nil {
			return nil, err
		}
		return d.Sim.Cancel(p.ID)
	}

	return []dispatch.Route{
		{Method: http.MethodGet, Pattern: `processes/([\w-]+)`, Handle: get},
		{Method: http.MethodGet, Pattern: `processes`, Handle: listProcesses},
		{Method: http.MethodDelete, Pattern: `processes/([\w-]+)`, Handle: cancel},
	}
}
