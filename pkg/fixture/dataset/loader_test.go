package dataset_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/datakin/workbench/pkg/db"
	"github.com/datakin/workbench/pkg/db/bunt"
	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/fixture/dataset"
	"github.com/datakin/workbench/pkg/utils/cmp"
	"github.com/datakin/workbench/pkg/utils/try"
)

func newDatasets(t *testing.T) *db.Collection[domain.Dataset, *domain.Dataset] {
	t.Helper()
	driver := try.To(bunt.Open(bunt.InMemory)).OrFatal(t)
	t.Cleanup(func() { driver.Close() })
	return db.NewCollection[domain.Dataset](driver, "datasets")
}

func TestLoader_Rows(t *testing.T) {
	csvBody := "id,label\n1,yes\n2,no\n"

	t.Run("rows of a non-ACTIVE table are not queryable", func(t *testing.T) {
		loader := dataset.NewLoader(newDatasets(t), nil)

		_, err := loader.Rows(context.Background(), domain.Table{
			Asset: domain.Asset{ID: "t-1", Status: domain.StatusSaving},
		})
		if !errors.Is(err, kerr.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("the first read fetches and persists; later reads hit the store", func(t *testing.T) {
		fetches := int32(0)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&fetches, 1)
			w.Write([]byte(csvBody))
		}))
		defer ts.Close()

		datasets := newDatasets(t)
		ds := try.To(datasets.Insert(domain.Dataset{TableID: "t-1"})).OrFatal(t)
		table := domain.Table{
			Asset:     domain.Asset{ID: "t-1", Status: domain.StatusActive},
			DatasetID: ds.ID,
			SourceURL: ts.URL,
		}
		loader := dataset.NewLoader(datasets, ts.Client())

		got := try.To(loader.Rows(context.Background(), table)).OrFatal(t)
		if !cmp.SliceEq(got.Columns, []string{"id", "label"}) {
			t.Errorf("unmatch columns: %v", got.Columns)
		}
		if len(got.Rows) != 2 || !cmp.SliceEq(got.Rows[1], []string{"2", "no"}) {
			t.Errorf("unmatch rows: %v", got.Rows)
		}
		if !got.Loaded {
			t.Error("dataset is not marked loaded")
		}

		try.To(loader.Rows(context.Background(), table)).OrFatal(t)
		if n := atomic.LoadInt32(&fetches); n != 1 {
			t.Errorf("fetched %d times (expected 1)", n)
		}

		stored := try.To(datasets.Get(ds.ID)).OrFatal(t)
		if !stored.Loaded || len(stored.Rows) != 2 {
			t.Errorf("rows are not persisted: %+v", stored)
		}
	})

	t.Run("concurrent readers share one in-flight fetch", func(t *testing.T) {
		release := make(chan struct{})
		fetches := int32(0)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&fetches, 1)
			<-release
			w.Write([]byte(csvBody))
		}))
		defer ts.Close()

		datasets := newDatasets(t)
		ds := try.To(datasets.Insert(domain.Dataset{TableID: "t-1"})).OrFatal(t)
		table := domain.Table{
			Asset:     domain.Asset{ID: "t-1", Status: domain.StatusActive},
			DatasetID: ds.ID,
			SourceURL: ts.URL,
		}
		loader := dataset.NewLoader(datasets, ts.Client())

		wg := sync.WaitGroup{}
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := loader.Rows(context.Background(), table)
				if err != nil {
					t.Errorf("read failed: %v", err)
					return
				}
				if len(got.Rows) != 2 {
					t.Errorf("unmatch rows: %v", got.Rows)
				}
			}()
		}
		close(release)
		wg.Wait()

		if n := atomic.LoadInt32(&fetches); n != 1 {
			t.Errorf("fetched %d times (expected 1)", n)
		}
	})

	t.Run("a table without a source url reads as an empty dataset", func(t *testing.T) {
		datasets := newDatasets(t)
		ds := try.To(datasets.Insert(domain.Dataset{TableID: "t-1"})).OrFatal(t)

		got := try.To(dataset.NewLoader(datasets, nil).Rows(
			context.Background(), domain.Table{
				Asset:     domain.Asset{ID: "t-1", Status: domain.StatusActive},
				DatasetID: ds.ID,
			},
		)).OrFatal(t)
		if got.Loaded || len(got.Rows) != 0 {
			t.Errorf("unmatch dataset: %+v", got)
		}
	})

	t.Run("an upstream failure is reported, not cached", func(t *testing.T) {
		status := int32(http.StatusInternalServerError)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.LoadInt32(&status) != http.StatusOK {
				w.WriteHeader(int(atomic.LoadInt32(&status)))
				return
			}
			w.Write([]byte(csvBody))
		}))
		defer ts.Close()

		datasets := newDatasets(t)
		ds := try.To(datasets.Insert(domain.Dataset{TableID: "t-1"})).OrFatal(t)
		table := domain.Table{
			Asset:     domain.Asset{ID: "t-1", Status: domain.StatusActive},
			DatasetID: ds.ID,
			SourceURL: ts.URL,
		}
		loader := dataset.NewLoader(datasets, ts.Client())

		if _, err := loader.Rows(context.Background(), table); err == nil {
			t.Error("upstream 500 is not reported")
		}

		atomic.StoreInt32(&status, http.StatusOK)
		got := try.To(loader.Rows(context.Background(), table)).OrFatal(t)
		if len(got.Rows) != 2 {
			t.Errorf("retry after failure did not load: %+v", got)
		}
	})
}
