package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

// Session is the login response.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func Users(d Deps) []dispatch.Route {
	login := func(ctx context.Context, req *dispatch.Request) (any, error) {
		email := req.Params.String("email")
		user, ok, err := d.DB.Users.FindOne(func(u domain.User) bool {
			return u.Email == email
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, kerr.Missing{Collection: d.DB.Users.Name(), Identity: email}
		}
		token, err := d.Auth.Issue(user)
		if err != nil {
			return nil, err
		}
		return Session{Token: token, User: user}, nil
	}

	me := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		return user, nil
	}

	return []dispatch.Route{
		{Method: http.MethodPost, Pattern: `session`, Handle: login},
		{Method: http.MethodGet, Pattern: `user/me`, Handle: me},
	}
}
