package xid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New returns a sortable-by-time identifier such as "rec-20260301T101500-<uuid>".
func New(prefix string) string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().UTC().Format("20060102T150405"), id.String())
}
