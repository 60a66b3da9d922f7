package config

const (
	// MaxRuleNameLength is the maximum length for rule names. Limited to 255
	// to fit comfortably in index keys and stay readable in "@owner/name"
	// addresses.
	MaxRuleNameLength = 255

	// MaxDescriptionLength is the maximum length for rule descriptions.
	MaxDescriptionLength = 2000

	// MaxTagCount caps how many tags a rule can carry.
	MaxTagCount = 20

	// MaxTagLength is the maximum length of a single tag.
	MaxTagLength = 50

	// MaxChangelogLength is the maximum length of a version changelog entry.
	MaxChangelogLength = 2000

	// MaxContentBytes caps rule content size. Rules are instruction text, not
	// binaries; 1 MiB is generous.
	MaxContentBytes = 1 << 20

	// DefaultRelatedLimit is how many related rules are returned when the
	// caller does not ask for a specific count.
	DefaultRelatedLimit = 5

	// MaxRelatedLimit caps the related-rules result size.
	MaxRelatedLimit = 20

	// MaxVersionRetries bounds the optimistic retry loop for version-number
	// allocation under concurrent updates.
	MaxVersionRetries = 3
)
