package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/domain"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

func Albums(d Deps) []dispatch.Route {
	// create registers an album upload: SAVING until its ingest process
	// finishes.
	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		name := req.Params.String("name")
		if err := conflictOnDuplicateName(d.DB.Albums, user, name, ""); err != nil {
			return nil, err
		}
		imageCount, _ := req.Params.Int("imageCount")
		album, err := d.DB.Albums.Insert(domain.Album{
			Asset: domain.Asset{
				OwnerID:     user.ID,
				Name:        name,
				Description: req.Params.String("description"),
				Status:      domain.StatusSaving,
			},
			ImageCount: imageCount,
		})
		if err != nil {
			return nil, err
		}
		if _, err := d.Sim.Launch(domain.Process{
			OwnerID:  user.ID,
			Target:   domain.KindAlbum,
			TargetID: album.ID,
			JobType:  "ingest",
		}); err != nil {
			return nil, err
		}
		return album, nil
	}

	return append([]dispatch.Route{
		{Method: http.MethodPost, Pattern: `albums`, Handle: create},
	}, crudOf(d, d.DB.Albums, domain.KindAlbum, `albums`)...)
}

func CVModels(d Deps) []dispatch.Route {
	// create trains a vision model over an album.
	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		name := req.Params.String("name")
		if err := conflictOnDuplicateName(d.DB.CVModels, user, name, ""); err != nil {
			return nil, err
		}
		albumID := req.Params.String("albumId")
		if albumID != "" {
			if _, err := ownedOf(d.DB.Albums, albumID, user); err != nil {
				return nil, err
			}
		}
		cvmodel, err := d.DB.CVModels.Insert(domain.CVModel{
			Asset: domain.Asset{
				OwnerID:     user.ID,
				Name:        name,
				Description: req.Params.String("description"),
				Status:      domain.StatusTraining,
			},
			AlbumID: albumID,
		})
		if err != nil {
			return nil, err
		}
		if _, err := d.Sim.Launch(domain.Process{
			OwnerID:  user.ID,
			Target:   domain.KindCVModel,
			TargetID: cvmodel.ID,
			JobType:  "train",
		}); err != nil {
			return nil, err
		}
		return cvmodel, nil
	}

	return append([]dispatch.Route{
		{Method: http.MethodPost, Pattern: `cvmodels`, Handle: create},
	}, crudOf(d, d.DB.CVModels, domain.KindCVModel, `cvmodels`)...)
}
