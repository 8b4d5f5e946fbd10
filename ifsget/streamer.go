package ifsget

import (
	"context"
	"io"

	ifserrors "ifs-get/ifsget/errors"
	"ifs-get/ifsget/logger"
)

// ChunkStreamer turns one stored image into an ordered sequence of
// bounded-size chunks. The sequence is lazy: bytes are read from the store
// one chunk at a time, never buffered wholesale.
type ChunkStreamer interface {
	Stream(ctx context.Context, id ComponentID, version Version, chunkSize int64) (*ChunkStream, error)
}

func NewChunkStreamer(store ContentStore) ChunkStreamer {
	return &chunkStreamer{store: store}
}

type chunkStreamer struct {
	store ContentStore
}

func (s *chunkStreamer) Stream(ctx context.Context, id ComponentID, version Version, chunkSize int64) (*ChunkStream, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	// Size is queried exactly once; immutability makes it valid for the
	// whole stream.
	size, err := s.store.Size(ctx, id, version)
	if err != nil {
		return nil, err
	}

	logger.Debug("streaming %s@%d: %d bytes in chunks of %d", id, version, size, chunkSize)

	return &ChunkStream{
		store:     s.store,
		id:        id,
		version:   version,
		chunkSize: chunkSize,
		size:      size,
	}, nil
}

// ChunkStream is a pull-based, finite chunk sequence. It is not restartable
// mid-flight; call Stream again to reproduce the sequence from offset 0.
// It is not safe for concurrent use.
type ChunkStream struct {
	store     ContentStore
	id        ComponentID
	version   Version
	chunkSize int64
	size      int64
	offset    int64
	done      bool
}

// Size returns the total byte length of the streamed image.
func (cs *ChunkStream) Size() int64 {
	return cs.size
}

// Next returns the next chunk, or io.EOF after the final chunk has been
// delivered. Any other error terminates the sequence; no chunks follow it.
// Cancellation is checked before every store read, so a cancelled consumer
// causes no further ReadRange calls.
func (cs *ChunkStream) Next(ctx context.Context) (*Chunk, error) {
	if cs.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		cs.done = true
		return nil, err
	}

	// An empty image is a valid download: one final zero-length chunk.
	if cs.size == 0 {
		cs.done = true
		return &Chunk{Offset: 0, Final: true}, nil
	}

	want := cs.chunkSize
	if remaining := cs.size - cs.offset; remaining < want {
		want = remaining
	}

	data, err := cs.store.ReadRange(ctx, cs.id, cs.version, cs.offset, want)
	if err != nil {
		cs.done = true
		return nil, err
	}
	if int64(len(data)) != want {
		cs.done = true
		return nil, ifserrors.ErrStoreInconsistency.
			WithDetail("component", string(cs.id)).
			WithDetail("version", uint64(cs.version)).
			WithDetail("offset", cs.offset).
			WithDetail("want", want).
			WithDetail("got", len(data))
	}

	chunk := &Chunk{
		Offset: cs.offset,
		Data:   data,
		Final:  cs.offset+want == cs.size,
	}
	cs.offset += want
	if chunk.Final {
		cs.done = true
	}
	return chunk, nil
}
