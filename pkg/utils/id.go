package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a prefixed random identifier, e.g. "auction-<uuid>".
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
