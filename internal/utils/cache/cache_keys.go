package cache

import "strings"

type EntityType string

const (
	EntityIdempotency     EntityType = "idempotency"
	EntityIdempotencyLock EntityType = "idempotency_lock"
)

const prefix = "finops"

// GenerateCompositeKey joins parts in the given order. Colons inside parts
// are escaped so distinct part lists never produce the same key.
func GenerateCompositeKey(entity EntityType, parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, prefix, string(entity))
	for _, p := range parts {
		escaped = append(escaped, strings.ReplaceAll(p, ":", "%3A"))
	}
	return strings.Join(escaped, ":")
}
