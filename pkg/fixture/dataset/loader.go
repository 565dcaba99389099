// Package dataset fetches table rows lazily.
//
// Tables imported from a URL carry an empty Dataset record until someone
// reads their data. The first read fetches and parses the CSV; concurrent
// reads for the same table share that one in-flight fetch, and the parsed
// rows are persisted onto the dataset record so later reads hit the store.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/datakin/workbench/pkg/db"
	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
)

type Loader struct {
	datasets *db.Collection[domain.Dataset, *domain.Dataset]
	client   *http.Client

	// one in-flight fetch per table id
	group singleflight.Group
}

func NewLoader(datasets *db.Collection[domain.Dataset, *domain.Dataset], client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{datasets: datasets, client: client}
}

// Rows returns the dataset of table, fetching it on first access.
//
// The table must be ACTIVE; rows of a table still being imported are not
// queryable.
func (l *Loader) Rows(ctx context.Context, table domain.Table) (domain.Dataset, error) {
	if table.Status != domain.StatusActive {
		return domain.Dataset{}, kerr.Conflict{
			Collection: "tables",
			Reason:     fmt.Sprintf("table %s is %s, not %s", table.ID, table.Status, domain.StatusActive),
		}
	}

	ds, err := l.datasets.Get(table.DatasetID)
	if err != nil {
		return domain.Dataset{}, err
	}
	if ds.Loaded {
		return ds, nil
	}
	if table.SourceURL == "" {
		// nothing to fetch; the dataset is simply empty
		return ds, nil
	}

	loaded, err, _ := l.group.Do(table.ID, func() (any, error) {
		// re-read: a fetch that finished while we queued already persisted
		ds, err := l.datasets.Get(table.DatasetID)
		if err != nil {
			return nil, err
		}
		if ds.Loaded {
			return ds, nil
		}

		columns, rows, err := l.fetch(ctx, table.SourceURL)
		if err != nil {
			return nil, err
		}

		ds.Columns = columns
		ds.Rows = rows
		ds.Loaded = true
		return l.datasets.Update(ds)
	})
	if err != nil {
		return domain.Dataset{}, err
	}
	return loaded.(domain.Dataset), nil
}

func (l *Loader) fetch(ctx context.Context, url string) (columns []string, rows [][]string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}
