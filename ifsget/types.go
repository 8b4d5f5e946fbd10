package ifsget

import (
	ifserrors "ifs-get/ifsget/errors"
)

// ComponentID is the opaque identifier of a versioned software component.
// It is used only as a lookup key; no internal structure is interpreted.
type ComponentID string

// Version is a monotonically assigned, per-component version number.
// Zero is a legal version; "no version given" is expressed with a nil
// *Version, never with a zero sentinel.
type Version uint64

// Chunk is a bounded contiguous slice of an IFS image.
type Chunk struct {
	Offset int64
	Data   []byte
	Final  bool
}

// DownloadResult is the per-item outcome of a download stream: exactly one
// of Chunk or Err is set. An error result is always the last item of a
// stream.
type DownloadResult struct {
	Chunk *Chunk
	Err   *ifserrors.IFSError
}

// DefaultChunkSize bounds chunk payloads to 1 MiB unless configured otherwise.
const DefaultChunkSize int64 = 1 << 20
