package xid

import "github.com/google/uuid"

// New returns a prefixed, collision-free identifier.
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
