package domain

import "time"

// User is a workbench account known to the fixture backend.
//
// Simulated users only ever see mock data. Non-simulated ("real") users are
// eligible for the real-backend-first path; the mock is their fallback.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Simulated bool      `json:"simulated"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

func (u User) Identity() string {
	return u.ID
}

func (u *User) SetIdentity(id string) {
	u.ID = id
}

func (u *User) SetTimestamps(now time.Time) {
	if u.Created.IsZero() {
		u.Created = now
	}
	u.Updated = now
}
