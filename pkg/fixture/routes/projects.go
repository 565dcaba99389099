package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/api/types/list"
	"github.com/datakin/workbench/pkg/db"
	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

func Projects(d Deps) []dispatch.Route {
	// Project access is the one place denial is explicit: a foreign
	// project id answers Denied, not NotFound.
	ownProject := func(req *dispatch.Request) (domain.Project, error) {
		user, err := requireUser(req)
		if err != nil {
			return domain.Project{}, err
		}
		id := req.Params.Capture(1)
		project, err := d.DB.Projects.Get(id)
		if err != nil {
			return domain.Project{}, err
		}
		if project.OwnerID != user.ID {
			return domain.Project{}, kerr.Denied{
				Kind: domain.KindProject, Identity: id,
			}
		}
		return project, nil
	}

	listProjects := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return listOf(d, d.DB.Projects, domain.KindProject, req)
	}

	get := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return ownProject(req)
	}

	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		name := req.Params.String("name")
		if err := conflictOnDuplicateName(d.DB.Projects, user, name, ""); err != nil {
			return nil, err
		}
		return d.DB.Projects.Insert(domain.Project{
			Asset: domain.Asset{
				OwnerID:     user.ID,
				Name:        name,
				Description: req.Params.String("description"),
				Status:      domain.StatusActive,
			},
		})
	}

	update := func(ctx context.Context, req *dispatch.Request) (any, error) {
		project, err := ownProject(req)
		if err != nil {
			return nil, err
		}
		user := *req.User
		if req.Params.Has("name") {
			if err := conflictOnDuplicateName(
				d.DB.Projects, user, req.Params.String("name"), project.ID,
			); err != nil {
				return nil, err
			}
		}
		patchAsset(&project.Asset, req.Params)
		return d.DB.Projects.Update(project)
	}

	remove := func(ctx context.Context, req *dispatch.Request) (any, error) {
		project, err := ownProject(req)
		if err != nil {
			return nil, err
		}
		if _, err := d.DB.ProjectLinks.RemoveWhere(func(l domain.ProjectLink) bool {
			return l.ProjectID == project.ID
		}); err != nil {
			return nil, err
		}
		if err := d.DB.Projects.Remove(project.ID); err != nil {
			return nil, err
		}
		return project, nil
	}

	addFolder := func(ctx context.Context, req *dispatch.Request) (any, error) {
		project, err := ownProject(req)
		if err != nil {
			return nil, err
		}
		project.Folders = append(project.Folders, domain.Folder{
			ID:   db.NewID(),
			Name: req.Params.String("name"),
		})
		return d.DB.Projects.Update(project)
	}

	links := func(ctx context.Context, req *dispatch.Request) (any, error) {
		project, err := ownProject(req)
		if err != nil {
			return nil, err
		}
		rows, err := d.DB.ProjectLinks.Find(func(l domain.ProjectLink) bool {
			return l.ProjectID == project.ID
		})
		if err != nil {
			return nil, err
		}
		return list.Response[domain.ProjectLink]{Count: len(rows), Data: rows}, nil
	}

	// link files an asset into the project, optionally inside a folder.
	link := func(ctx context.Context, req *dispatch.Request) (any, error) {
		project, err := ownProject(req)
		if err != nil {
			return nil, err
		}
		kind, err := domain.AsKind(req.Params.String("type"))
		if err != nil {
			return nil, err
		}
		folderID := req.Params.String("folderId")
		if folderID != "" {
			known := false
			for _, f := range project.Folders {
				if f.ID == folderID {
					known = true
					break
				}
			}
			if !known {
				return nil, kerr.Missing{Collection: "folders", Identity: folderID}
			}
		}
		return d.DB.ProjectLinks.Insert(domain.ProjectLink{
			ProjectID: project.ID,
			AssetID:   req.Params.String("assetId"),
			Type:      kind,
			FolderID:  folderID,
		})
	}

	unlink := func(ctx context.Context, req *dispatch.Request) (any, error) {
		project, err := ownProject(req)
		if err != nil {
			return nil, err
		}
		linkID := req.Params.Capture(2)
		rec, err := d.DB.ProjectLinks.Get(linkID)
		if err != nil {
			return nil, err
		}
		if rec.ProjectID != project.ID {
			return nil, kerr.Missing{
				Collection: d.DB.ProjectLinks.Name(), Identity: linkID,
			}
		}
		if err := d.DB.ProjectLinks.Remove(linkID); err != nil {
			return nil, err
		}
		return rec, nil
	}

	return []dispatch.Route{
		{Method: http.MethodPost, Pattern: `projects/([\w-]+)/folders`, Handle: addFolder},
		{Method: http.MethodGet, Pattern: `projects/([\w-]+)/links`, Handle: links},
		{Method: http.MethodPost, Pattern: `projects/([\w-]+)/links`, Handle: link},
		{Method: http.MethodDelete, Pattern: `projects/([\w-]+)/links/([\w-]+)`, Handle: unlink},
		{Method: http.MethodGet, Pattern: `projects/([\w-]+)`, Handle: get},
		{Method: http.MethodGet, Pattern: `projects`, Handle: listProjects},
		{Method: http.MethodPost, Pattern: `projects`, Handle: create},
		{Method: http.MethodPut, Pattern: `projects/([\w-]+)`, Handle: update},
		{Method: http.MethodDelete, Pattern: `projects/([\w-]+)`, Handle: remove},
	}
}
