package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/api/types/list"
	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

func Shares(d Deps) []dispatch.Route {
	// create grants read access by recipient email. The grant is resolved
	// to an account id when the recipient already has one; otherwise it
	// stays keyed by email until they sign up.
	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		kind, err := domain.AsKind(req.Params.String("assetType"))
		if err != nil {
			return nil, err
		}
		assetID := req.Params.String("assetId")
		email := req.Params.String("recipientEmail")

		_, dup, err := d.DB.Shares.FindOne(func(s domain.Share) bool {
			return s.OwnerID == user.ID && s.AssetType == kind &&
				s.AssetID == assetID && s.RecipientEmail == email
		})
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, kerr.Conflict{
				Collection: d.DB.Shares.Name(),
				Reason:     assetID + " is already shared with " + email,
			}
		}

		share := domain.Share{
			OwnerID:        user.ID,
			RecipientEmail: email,
			AssetType:      kind,
			AssetID:        assetID,
		}
		recipient, ok, err := d.DB.Users.FindOne(func(u domain.User) bool {
			return u.Email == email
		})
		if err != nil {
			return nil, err
		}
		if ok {
			share.RecipientID = recipient.ID
		}
		return d.DB.Shares.Insert(share)
	}

	given := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		rows, err := d.DB.Shares.Find(func(s domain.Share) bool {
			return s.OwnerID == user.ID
		})
		if err != nil {
			return nil, err
		}
		return list.Response[domain.Share]{Count: len(rows), Data: rows}, nil
	}

	received := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		rows, err := d.DB.Shares.Find(func(s domain.Share) bool {
			return s.RecipientID == user.ID ||
				(s.RecipientID == "" && s.RecipientEmail == user.Email)
		})
		if err != nil {
			return nil, err
		}
		return list.Response[domain.Share]{Count: len(rows), Data: rows}, nil
	}

	revoke := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		id := req.Params.Capture(1)
		share, err := d.DB.Shares.Get(id)
		if err != nil {
			return nil, err
		}
		if share.OwnerID != user.ID {
			return nil, kerr.Missing{Collection: d.DB.Shares.Name(), Identity: id}
		}
		if err := d.DB.Shares.Remove(id); err != nil {
			return nil, err
		}
		return share, nil
	}

	return []dispatch.Route{
		{Method: http.MethodGet, Pattern: `shares/received`, Handle: received},
		{Method: http.MethodGet, Pattern: `shares`, Handle: given},
		{Method: http.MethodPost, Pattern: `shares`, Handle: create},
		{Method: http.MethodDelete, Pattern: `shares/([\w-]+)`, Handle: revoke},
	}
}
