package routes

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/domain"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

func Tables(d Deps) []dispatch.Route {
	list := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return listOf(d, d.DB.Tables, domain.KindTable, req)
	}

	get := func(ctx context.Context, req *dispatch.Request) (any, error) {
		return getOf(d, d.DB.Tables, domain.KindTable, req)
	}

	// data returns the dataset rows behind a table, fetching them lazily
	// when the table was imported from a URL.
	data := func(ctx context.Context, req *dispatch.Request) (any, error) {
		table, err := getOf(d, d.DB.Tables, domain.KindTable, req)
		if err != nil {
			return nil, err
		}
		return d.Loader.Rows(ctx, table)
	}

	// create imports a table: inline rows make it ACTIVE right away, a
	// source URL leaves it SAVING behind a running import process.
	create := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		name := req.Params.String("name")
		if err := conflictOnDuplicateName(d.DB.Tables, user, name, ""); err != nil {
			return nil, err
		}

		table := domain.Table{
			Asset: domain.Asset{
				OwnerID:     user.ID,
				Name:        name,
				Description: req.Params.String("description"),
			},
			SourceURL: req.Params.String("sourceUrl"),
		}

		ds := domain.Dataset{}
		if table.SourceURL == "" {
			ds.Columns = req.Params.StringSlice("columns")
			ds.Rows = rowsParam(req.Params)
			ds.Loaded = true
			table.Status = domain.StatusActive
			table.RowCount = len(ds.Rows)
		} else {
			table.Status = domain.StatusSaving
		}

		table, err = d.DB.Tables.Insert(table)
		if err != nil {
			return nil, err
		}
		ds.TableID = table.ID
		ds, err = d.DB.Datasets.Insert(ds)
		if err != nil {
			return nil, err
		}
		table.DatasetID = ds.ID
		table, err = d.DB.Tables.Update(table)
		if err != nil {
			return nil, err
		}

		if table.Status == domain.StatusSaving {
			if _, err := d.Sim.Launch(domain.Process{
				OwnerID:  user.ID,
				Target:   domain.KindTable,
				TargetID: table.ID,
				JobType:  "import",
			}); err != nil {
				return nil, err
			}
		}
		return table, nil
	}

	update := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		table, err := ownedOf(d.DB.Tables, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		if req.Params.Has("name") {
			if err := conflictOnDuplicateName(
				d.DB.Tables, user, req.Params.String("name"), table.ID,
			); err != nil {
				return nil, err
			}
		}
		patchAsset(&table.Asset, req.Params)
		return d.DB.Tables.Update(table)
	}

	remove := func(ctx context.Context, req *dispatch.Request) (any, error) {
		user, err := requireUser(req)
		if err != nil {
			return nil, err
		}
		table, err := ownedOf(d.DB.Tables, req.Params.Capture(1), user)
		if err != nil {
			return nil, err
		}
		if _, err := d.DB.Datasets.RemoveWhere(func(ds domain.Dataset) bool {
			return ds.TableID == table.ID
		}); err != nil {
			return nil, err
		}
		if err := dropLinksAndShares(d, domain.KindTable, table.ID); err != nil {
			return nil, err
		}
		if err := d.DB.Tables.Remove(table.ID); err != nil {
			return nil, err
		}
		return table, nil
	}

	return []dispatch.Route{
		{Method: http.MethodGet, Pattern: `tables/([\w-]+)/data`, Handle: data},
		{Method: http.MethodGet, Pattern: `tables/([\w-]+)`, Handle: get},
		{Method: http.MethodGet, Pattern: `tables`, Handle: list},
		{Method: http.MethodPost, Pattern: `tables`, Handle: create},
		{Method: http.MethodPut, Pattern: `tables/([\w-]+)`, Handle: update},
		{Method: http.MethodDelete, Pattern: `tables/([\w-]+)`, Handle: remove},
	}
}

// rowsParam reads the inline row matrix out of a create body.
func rowsParam(p dispatch.Params) [][]string {
	v, ok := p["rows"]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		if rows, ok := v.([][]string); ok {
			return rows
		}
		return nil
	}
	rows := make([][]string, 0, len(raw))
	for _, r := range raw {
		cells, ok := r.([]any)
		if !ok {
			continue
		}
		row := make([]string, 0, len(cells))
		for _, c := range cells {
			if s, ok := c.(string); ok {
				row = append(row, s)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
