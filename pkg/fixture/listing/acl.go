package listing

import (
	"github.com/datakin/workbench/pkg/db"
	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
)

// GetWithACL fetches one asset the user may read: either an asset they own,
// or one reachable through the share grant named by sharedResourceID.
//
// A foreign asset without a valid grant fails with the same Missing error as
// an id that does not exist. Callers must not be able to probe for the
// existence of other users' assets.
func GetWithACL[T domain.AssetLike, PT db.Record[T]](
	c *db.Collection[T, PT],
	kind domain.Kind,
	id string,
	user domain.User,
	sharedResourceID string,
	shares *db.Collection[domain.Share, *domain.Share],
) (T, error) {
	notFound := kerr.Missing{Collection: c.Name(), Identity: id}

	rec, err := c.Get(id)
	if err != nil {
		return *new(T), notFound
	}

	if rec.AssetBody().OwnerID == user.ID {
		return rec, nil
	}

	if sharedResourceID != "" {
		share, ok, err := shares.FindOne(func(s domain.Share) bool {
			return s.ID == sharedResourceID
		})
		if err != nil {
			return *new(T), err
		}
		if ok && share.Grants(kind, id, user) {
			return rec, nil
		}
	}

	return *new(T), notFound
}
