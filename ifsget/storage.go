package ifsget

import (
	"context"
	"io"

	"github.com/opencontainers/go-digest"
)

// ContentStore abstracts read access to published IFS images, keyed by
// (component, version). Published images are immutable: the same
// (id, version, offset, length) read always yields the same bytes.
// Implementations must support concurrent readers.
type ContentStore interface {
	// Exists reports whether an image is stored for (id, version).
	Exists(ctx context.Context, id ComponentID, version Version) (bool, error)

	// ListVersions returns all stored versions of a component, ascending.
	// A component with no versions yields an empty slice, not an error.
	ListVersions(ctx context.Context, id ComponentID) ([]Version, error)

	// ReadRange reads up to maxLen bytes starting at offset. It returns
	// fewer bytes only when the image ends before offset+maxLen. maxLen <= 0
	// means "to the end of the image". Fails with NOT_FOUND if the key is
	// absent and RANGE_INVALID if offset exceeds the image length.
	ReadRange(ctx context.Context, id ComponentID, version Version, offset int64, maxLen int64) ([]byte, error)

	// Size returns the total byte length of an image.
	Size(ctx context.Context, id ComponentID, version Version) (int64, error)
}

// Publisher is implemented by writable stores. Publishing an already
// existing (id, version) fails with PUBLISH_CONFLICT; images are immutable
// once stored.
type Publisher interface {
	Put(ctx context.Context, id ComponentID, version Version, r io.Reader) (digest.Digest, int64, error)
}
