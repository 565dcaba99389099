package domain

import "time"

// Share grants one recipient read access to one asset.
//
// RecipientID stays empty until the recipient signs up; the grant is keyed by
// email first and resolved to an account when possible.
type Share struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"ownerId"`
	RecipientEmail string    `json:"recipientEmail"`
	RecipientID    string    `json:"recipientId,omitempty"`
	AssetType      Kind      `json:"assetType"`
	AssetID        string    `json:"assetId"`
	Created        time.Time `json:"created"`
	Updated        time.Time `json:"updated"`
}

func (s Share) Identity() string {
	return s.ID
}

func (s *Share) SetIdentity(id string) {
	s.ID = id
}

func (s *Share) SetTimestamps(now time.Time) {
	if s.Created.IsZero() {
		s.Created = now
	}
	s.Updated = now
}

// Grants reports whether this share gives user access to the given asset.
func (s Share) Grants(kind Kind, assetID string, user User) bool {
	if s.AssetType != kind || s.AssetID != assetID {
		return false
	}
	return s.RecipientID == user.ID || (s.RecipientID == "" && s.RecipientEmail == user.Email)
}
