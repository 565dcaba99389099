package domain

import "time"

// Notification is a user-facing message, written by the simulator when a
// process fails and listed by the notification center in the UI.
type Notification struct {
	ID      string    `json:"id"`
	OwnerID string    `json:"ownerId"`
	Kind    Kind      `json:"kind"`
	AssetID string    `json:"assetId,omitempty"`
	Message string    `json:"message"`
	Read    bool      `json:"read"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

func (n Notification) Identity() string {
	return n.ID
}

func (n *Notification) SetIdentity(id string) {
	n.ID = id
}

func (n *Notification) SetTimestamps(now time.Time) {
	if n.Created.IsZero() {
		n.Created = now
	}
	n.Updated = now
}
