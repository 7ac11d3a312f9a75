package validation

const (
	// String lengths
	MaxDescriptionLength = 500
	MaxNotesLength       = 1000

	// Bulk limits
	MaxBulkItems = 100
)
