package domain

import "time"

// Project groups assets into folders.
type Project struct {
	Asset   `yaml:",inline"`
	Folders []Folder `json:"folders,omitempty"`
}

type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectLink is one membership of an asset in a project.
//
// It is a flat link table, not a tree; an asset may appear in many projects.
// FolderID is empty for assets at the project root.
type ProjectLink struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	AssetID   string    `json:"assetId"`
	Type      Kind      `json:"type"`
	FolderID  string    `json:"folderId,omitempty"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

func (l ProjectLink) Identity() string {
	return l.ID
}

func (l *ProjectLink) SetIdentity(id string) {
	l.ID = id
}

func (l *ProjectLink) SetTimestamps(now time.Time) {
	if l.Created.IsZero() {
		l.Created = now
	}
	l.Updated = now
}
