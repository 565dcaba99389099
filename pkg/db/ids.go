package db

import (
	"math/rand"

	"github.com/teris-io/shortid"
)

// alphabet for record ids. URL-safe, shuffled so ids do not resemble the
// shortid default alphabet.
const idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var sid = shortid.MustNew(1, idABC, 2423)

// NewID generates an opaque record id.
func NewID() string {
	id, err := sid.Generate()
	if err != nil {
		// shortid fails only on clock skew; fall back to a random id.
		buf := make([]byte, 9)
		for i := range buf {
			buf[i] = idABC[rand.Intn(len(idABC))]
		}
		return string(buf)
	}
	return id
}
