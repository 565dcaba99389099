// Package list defines the envelope every list endpoint responds with.
package list

// Response carries one page of rows together with the pre-pagination count of
// everything that matched, so the UI can render pagers.
type Response[T any] struct {
	Count int `json:"count"`
	Data  []T `json:"data"`
}
