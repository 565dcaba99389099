// Package listing builds the {count, data} resultsets of list endpoints:
// visibility scoping, project filtering, search, ordering and pagination.
package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/datakin/workbench/pkg/api/types/list"
	"github.com/datakin/workbench/pkg/domain"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
	"github.com/datakin/workbench/pkg/utils/slices"
)

// Scope picks which assets a list query returns for a user.
type Scope string

const (
	// ScopeMine: assets the user owns, minus library opt-outs. The default.
	ScopeMine Scope = "mine"
	// ScopeShared: assets someone else shared with the user.
	ScopeShared Scope = "shared"
	// ScopeAll: union of mine and shared.
	ScopeAll Scope = "all"
)

func AsScope(s string) Scope {
	switch Scope(s) {
	case ScopeShared:
		return ScopeShared
	case ScopeAll:
		return ScopeAll
	default:
		return ScopeMine
	}
}

// ByScope filters rows down to what user may see under scope.
//
// Owned rows hidden with an explicit inLibrary=false are excluded from
// "mine" and "all"; a missing inLibrary field counts as visible.
// Shared visibility requires a Share of the matching kind granted to the
// user's account id.
func ByScope[T domain.AssetLike](
	rows []T, scope Scope, user domain.User, kind domain.Kind, shares []domain.Share,
) []T {
	sharedIDs := map[string]bool{}
	if scope == ScopeShared || scope == ScopeAll {
		for _, s := range shares {
			if s.AssetType == kind && s.RecipientID == user.ID {
				sharedIDs[s.AssetID] = true
			}
		}
	}

	return slices.Filter(rows, func(row T) bool {
		body := row.AssetBody()
		switch scope {
		case ScopeShared:
			return sharedIDs[body.ID]
		case ScopeAll:
			if sharedIDs[body.ID] {
				return true
			}
			return body.OwnerID == user.ID && body.VisibleInLibrary()
		default:
			return body.OwnerID == user.ID && body.VisibleInLibrary()
		}
	})
}

// Query is everything a list endpoint reads from request parameters.
type Query struct {
	Scope       Scope
	ProjectID   string
	FolderID    string
	Search      string
	SearchField string
	Order       string
	Page        int
	PageSize    int
}

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// QueryOf reads the listing parameters, applying defaults.
//
// An explicit page=0 or page_size=0 disables pagination entirely; only
// absent parameters fall back to the 1/20 defaults.
func QueryOf(p dispatch.Params) Query {
	q := Query{
		Scope:       AsScope(p.String("scope")),
		ProjectID:   p.String("projectId"),
		FolderID:    p.String("folderId"),
		Search:      p.String("search"),
		SearchField: "name",
		Order:       p.String("order"),
		Page:        defaultPage,
		PageSize:    defaultPageSize,
	}
	if f := p.String("search_field"); f != "" {
		q.SearchField = f
	}
	if p.Has("page") {
		if n, ok := p.Int("page"); ok {
			q.Page = n
		}
	}
	if p.Has("page_size") {
		if n, ok := p.Int("page_size"); ok {
			q.PageSize = n
		}
	}
	return q
}

// Prepare turns scoped rows into one page of a list response.
//
// Count is always the full filtered count, not the page length. Bad order
// syntax is an error, never silently ignored.
func Prepare[T domain.AssetLike](
	rows []T, q Query, links []domain.ProjectLink,
) (list.Response[T], error) {
	none := list.Response[T]{}

	if q.ProjectID != "" {
		inProject := map[string]bool{}
		for _, l := range links {
			if l.ProjectID == q.ProjectID && l.FolderID == q.FolderID {
				inProject[l.AssetID] = true
			}
		}
		rows = slices.Filter(rows, func(row T) bool {
			return inProject[row.AssetBody().ID]
		})
	}

	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		rows2 := make([]T, 0, len(rows))
		for _, row := range rows {
			hay, err := textField(row.AssetBody(), q.SearchField)
			if err != nil {
				return none, err
			}
			if strings.Contains(strings.ToLower(hay), needle) {
				rows2 = append(rows2, row)
			}
		}
		rows = rows2
	}

	if q.Order != "" {
		less, err := orderBy[T](q.Order)
		if err != nil {
			return none, err
		}
		rows = slices.Sorted(rows, less)
	}

	count := len(rows)
	if q.Page > 0 && q.PageSize > 0 {
		from := (q.Page - 1) * q.PageSize
		if count < from {
			from = count
		}
		to := from + q.PageSize
		if count < to {
			to = count
		}
		rows = rows[from:to]
	}

	return list.Response[T]{Count: count, Data: rows}, nil
}

// textField reads a searchable field off the asset body.
func textField(a domain.Asset, field string) (string, error) {
	switch field {
	case "name":
		return a.Name, nil
	case "description":
		return a.Description, nil
	case "status":
		return a.Status.String(), nil
	default:
		return "", fmt.Errorf("cannot search by %q", field)
	}
}

// orderBy parses a comma-separated order spec ("-updated,name") into a
// compound less function.
func orderBy[T domain.AssetLike](spec string) (func(a, b T) bool, error) {
	type term struct {
		field string
		desc  bool
	}

	terms := []term{}
	for _, raw := range strings.Split(spec, ",") {
		t := term{field: strings.TrimSpace(raw)}
		if cut, ok := strings.CutPrefix(t.field, "-"); ok {
			t.field, t.desc = cut, true
		}
		switch t.field {
		case "name", "description", "status", "created", "updated":
		case "":
			return nil, fmt.Errorf("malformed order: %q", spec)
		default:
			return nil, fmt.Errorf("cannot order by %q", t.field)
		}
		terms = append(terms, t)
	}

	return func(a, b T) bool {
		ab, bb := a.AssetBody(), b.AssetBody()
		for _, t := range terms {
			cmp := compareField(ab, bb, t.field)
			if cmp == 0 {
				continue
			}
			if t.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	}, nil
}

func compareField(a, b domain.Asset, field string) int {
	switch field {
	case "created":
		return compareTime(a.Created, b.Created)
	case "updated":
		return compareTime(a.Updated, b.Updated)
	default:
		av, _ := textField(a, field)
		bv, _ := textField(b, field)
		return strings.Compare(av, bv)
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}
