// Package routes registers the per-asset handler tables of the mock API.
//
// Each module is a list of (method, pattern, handler) triples consumed by the
// dispatcher. Patterns are anchored regexes; within a module the specific
// patterns come before the general ones because the first match wins.
package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/db"
	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/events"
	"github.com/datakin/workbench/pkg/fixture"
	"github.com/datakin/workbench/pkg/fixture/auth"
	"github.com/datakin/workbench/pkg/fixture/dataset"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
	"github.com/datakin/workbench/pkg/fixture/listing"
	"github.com/datakin/workbench/pkg/fixture/simulator"
)

// Deps is everything the handler modules share.
type Deps struct {
	DB     *fixture.Database
	Sim    *simulator.Simulator
	Auth   *auth.Tokens
	Loader *dataset.Loader
	Bus    *events.Bus

	// Reseed restores the initial dataset after an admin reset.
	Reseed func() error
}

// All returns every route table, in registration order.
func All(d Deps) [][]dispatch.Route {
	return [][]dispatch.Route{
		Users(d),
		Tables(d),
		Flows(d),
		Models(d),
		Albums(d),
		CVModels(d),
		Predictions(d),
		Diaas(d),
		Scripts(d),
		OnlineAPIs(d),
		Processes(d),
		Shares(d),
		Projects(d),
		Notifications(d),
		Admin(d),
	}
}

func requireUser(req *dispatch.Request) (domain.User, error) {
	if req.User == nil {
		return domain.User{}, kerr.Denied{Kind: domain.KindUser, Identity: "session"}
	}
	return *req.User, nil
}

// listOf runs the common list pipeline: scope, project filter, search,
// order, paging.
func listOf[T domain.AssetLike, PT db.Record[T]](
	d Deps, c *db.Collection[T, PT], kind domain.Kind, req *dispatch.Request,
) (any, error) {
	user, err := requireUser(req)
	if err != nil {
		return nil, err
	}
	rows, err := c.Find(nil)
	if err != nil {
		return nil, err
	}
	shares, err := d.DB.Shares.Find(nil)
	if err != nil {
		return nil, err
	}
	links, err := d.DB.ProjectLinks.Find(nil)
	if err != nil {
		return nil, err
	}

	q := listing.QueryOf(req.Params)
	scoped := listing.ByScope(rows, q.Scope, user, kind, shares)
	return listing.Prepare(scoped, q, links)
}

// getOf fetches one asset the requester may read, honoring a
// sharedResourceId parameter.
func getOf[T domain.AssetLike, PT db.Record[T]](
	d Deps, c *db.Collection[T, PT], kind domain.Kind, req *dispatch.Request,
) (T, error) {
	user, err := requireUser(req)
	if err != nil {
		return *new(T), err
	}
	return listing.GetWithACL(
		c, kind, req.Params.Capture(1), user,
		req.Params.String("sharedResourceId"), d.DB.Shares,
	)
}

// ownedOf fetches one asset and requires ownership, for mutation paths.
func ownedOf[T domain.AssetLike, PT db.Record[T]](
	c *db.Collection[T, PT], id string, user domain.User,
) (T, error) {
	rec, err := c.Get(id)
	if err != nil {
		return *new(T), err
	}
	if rec.AssetBody().OwnerID != user.ID {
		return *new(T), kerr.Missing{Collection: c.Name(), Identity: id}
	}
	return rec, nil
}

// conflictOnDuplicateName guards create and rename against a second asset of
// the same name owned by the same user.
func conflictOnDuplicateName[T domain.AssetLike, PT db.Record[T]](
	c *db.Collection[T, PT], user domain.User, name string, exceptID string,
) error {
	_, dup, err := c.FindOne(func(row T) bool {
		body := row.AssetBody()
		return body.OwnerID == user.ID && body.Name == name && body.ID != exceptID
	})
	if err != nil {
		return err
	}
	if dup {
		return kerr.Conflict{
			Collection: c.Name(),
			Reason:     "name " + name + " is already used",
		}
	}
	return nil
}

// patchAsset applies the body fields every asset type lets the owner edit.
func patchAsset(a *domain.Asset, p dispatch.Params) {
	if p.Has("name") {
		a.Name = p.String("name")
	}
	if p.Has("description") {
		a.Description = p.String("description")
	}
	if p.Has("inLibrary") {
		visible := p.Bool("inLibrary")
		a.InLibrary = &visible
	}
}

// assetRecord is a Record whose embedded Asset is reachable for edits.
type assetRecord[T any] interface {
	db.Record[T]
	AssetRef() *domain.Asset
}

// crudOf builds the list/get/update/delete quartet shared by the simpler
// asset modules. Creation stays per-module since it is where processes and
// child records differ.
func crudOf[T domain.AssetLike, PT assetRecord[T]](
	d Deps, c *db.Collection[T, PT], kind domain.Kind, prefix string,
) []dispatch.Route {
	list := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return listOf(d, c, kind, req)
	}
	get := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return getOf(d, c, kind, req)
	}
	update := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		rec, err := ownedOf(c, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		if req.Params.Has("name") {
			if err := conflictOnDuplicateName(
				c, user, req.Params.String("name"), rec.AssetBody().ID,
			); err != nil {
				return nil, err
			}
		}
		patchAsset(PT(&rec).AssetRef(), req.Params)
		return c.Update(rec)
	}
	remove := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		rec, err := ownedOf(c, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		id := rec.AssetBody().ID
		if err := dropLinksAndShares(d, kind, id); err != nil {
			return nil, err
		}
		if err := c.Remove(id); err != nil {
			return nil, err
		}
		return rec, nil
	}

	return []dispatch.Route{
		{Method: http.MethodGet, Pattern: prefix + `/([\w-]+)`, Handle: get},
		{Method: http.MethodGet, Pattern: prefix, Handle: list},
		{Method: http.MethodPut, Pattern: prefix + `/([\w-]+)`, Handle: update},
		{Method: http.MethodDelete, Pattern: prefix + `/([\w-]+)`, Handle: remove},
	}
}

// dropLinksAndShares cascades an asset deletion into the link and share
// tables so nothing dangles.
func dropLinksAndShares(d Deps, kind domain.Kind, assetID string) error {
	if _, err := d.DB.ProjectLinks.RemoveWhere(func(l domain.ProjectLink) bool {
		return l.Type == kind && l.AssetID == assetID
	}); err != nil {
		return err
	}
	_, err := d.DB.Shares.RemoveWhere(func(s domain.Share) bool {
		return s.AssetType == kind && s.AssetID == assetID
	})
	return err
}
