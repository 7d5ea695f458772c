package service

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// newID returns a ULID for t. IDs minted within the same millisecond are
// monotonically increasing.
func newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}
