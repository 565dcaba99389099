package domain

import "time"

// Status is the lifecycle state of an asset.
//
// Each concrete asset type uses a subset of these; the active/terminal value
// gates whether dependent data may be read (a Table must be StatusActive
// before its dataset rows are queryable).
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSaving    Status = "SAVING"
	StatusTraining  Status = "TRAINING"
	StatusRunning   Status = "RUNNING"
	StatusDone      Status = "DONE"
	StatusChecked   Status = "CHECKED"
	StatusReady     Status = "READY"
	StatusDeploying Status = "DEPLOYING"
	StatusDisabled  Status = "DISABLED"
	StatusCancelled Status = "CANCELLED"
	StatusError     Status = "ERROR"
)

func (s Status) String() string {
	return string(s)
}

// Asset is the shape shared by every top-level workbench object.
//
// Concrete asset types embed it. InLibrary is an opt-out flag: nil means
// visible, only an explicit false hides the asset from "mine"/"all" listings.
type Asset struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Name        string     `json:"name"`
	Created     time.Time  `json:"created"`
	Updated     time.Time  `json:"updated"`
	Status      Status     `json:"status,omitempty"`
	Description string     `json:"description,omitempty"`
	InLibrary   *bool      `json:"inLibrary,omitempty"`
}

func (a Asset) Identity() string {
	return a.ID
}

func (a *Asset) SetIdentity(id string) {
	a.ID = id
}

func (a *Asset) SetTimestamps(now time.Time) {
	if a.Created.IsZero() {
		a.Created = now
	}
	a.Updated = now
}

// AssetBody exposes the embedded Asset for listing and ACL helpers.
func (a Asset) AssetBody() Asset {
	return a
}

// AssetRef is the addressable counterpart of AssetBody, for in-place edits.
func (a *Asset) AssetRef() *Asset {
	return a
}

// VisibleInLibrary is true unless InLibrary is an explicit false.
func (a Asset) VisibleInLibrary() bool {
	return a.InLibrary == nil || *a.InLibrary
}

// AssetLike is anything embedding an Asset body.
type AssetLike interface {
	AssetBody() Asset
}
