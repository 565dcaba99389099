package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/api/types/list"
	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
	"github.com/datakin/workbench/pkg/utils/slices"
)

func Notifications(d Deps) []dispatch.Route {
	listNotifications := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		rows, err := d.DB.Notifications.Find(func(n domain.Notification) bool {
			if req.Params.Bool("unread") && n.Read {
				return false
			}
			return n.OwnerID == user.ID
		})
		if err != nil {
			return nil, err
		}
		rows = slices.Sorted(rows, func(a, b domain.Notification) bool {
			return b.Created.Before(a.Created)
		})
		return list.Response[domain.Notification]{Count: len(rows), Data: rows}, nil
	}

	markRead := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		id := req.Params.Capture(1)
		n, err := d.DB.Notifications.Get(id)
		if err != nil {
			return nil, err
		}
		if n.OwnerID != user.ID {
			return nil, kerr.Missing{
				Collection: d.DB.Notifications.Name(), Identity: id,
			}
		}
		n.Read = true
		return d.DB.Notifications.Update(n)
	}

	markAllRead := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		rows, err := d.DB.Notifications.Find(func(n domain.Notification) bool {
			return n.OwnerID == user.ID && !n.Read
		})
		if err != nil {
			return nil, err
		}
		for _, n := range rows {
			n.Read = true
			if _, err := d.DB.Notifications.Update(n); err != nil {
				return nil, err
			}
		}
		return map[string]int{"updated": len(rows)}, nil
	}

	return []dispatch.Route{
		{Method: http.MethodPut, Pattern: `notifications/read`, Handle: markAllRead},
		{Method: http.MethodPut, Pattern: `notifications/([\w-]+)/read`, Handle: markRead},
		{Method: http.MethodGet, Pattern: `notifications`, Handle: listNotifications},
	}
}
