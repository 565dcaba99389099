package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

func Admin(d Deps) []dispatch.Route {
	// reset wipes the whole store and restores the seed data. Session
	// tokens stay valid only when the seed recreates the same users.
	reset := func(ctx context.Context, req *dispatch.Request) (any, error) {
		if _, err := requireUser(req); err != nil {
			return nil, err
		}
		if err := d.DB.Reset(); err != nil {
			return nil, err
		}
		if d.Reseed != nil {
			if err := d.Reseed(); err != nil {
				return nil, err
			}
		}
		return map[string]string{"status": "reset"}, nil
	}

	return []dispatch.Route{
		{Method: http.MethodPost, Pattern: `reset`, Handle: reset},
	}
}
