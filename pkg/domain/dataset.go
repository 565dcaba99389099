package domain

import "time"

// Dataset holds the materialized rows of a Table.
//
// Rows may be absent until first access; tables created from a URL get their
// dataset filled lazily by the dataset loader.
type Dataset struct {
	ID      string     `json:"id"`
	TableID string     `json:"tableId"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	Loaded  bool       `json:"loaded"`

	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

func (d Dataset) Identity() string {
	return d.ID
}

func (d *Dataset) SetIdentity(id string) {
	d.ID = id
}

func (d *Dataset) SetTimestamps(now time.Time) {
	if d.Created.IsZero() {
		d.Created = now
	}
	d.Updated = now
}
