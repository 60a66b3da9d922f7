package rules

import "context"

// BlobStore is the byte-content side channel. Keys are opaque strings minted
// by the version manager, one per version, never reused; the metadata store
// never embeds content.
type BlobStore interface {
	// Put writes content under key. Keys are write-once: the version manager
	// never puts to an existing key.
	Put(ctx context.Context, key string, content []byte) error

	// Get retrieves the content stored under key. Returns a not-found error
	// when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the content stored under key. Returns a not-found error
	// when the key does not exist.
	Delete(ctx context.Context, key string) error
}
