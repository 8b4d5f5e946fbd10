package ifsget

import (
	"context"
	"errors"
	"io"

	ifserrors "ifs-get/ifsget/errors"
	"ifs-get/ifsget/logger"
)

// ResultSink receives the results of one download stream, in order. It is
// the boundary to the external RPC transport: a Send error means the
// consumer is gone and aborts the stream.
type ResultSink interface {
	Send(*DownloadResult) error
}

// DownloadService orchestrates version resolution and chunk streaming for
// one download request and maps failures to a single terminal error result.
type DownloadService interface {
	// Download streams the image for (id, version) into sink. A nil version
	// requests the latest published version. The returned error reports the
	// request outcome to the caller; the sink sees at most one error result,
	// always as the last item, and none at all on success or when the
	// consumer disconnected.
	Download(ctx context.Context, id ComponentID, version *Version, sink ResultSink) error
}

type downloadService struct {
	resolver  VersionResolver
	streamer  ChunkStreamer
	chunkSize int64
}

func NewDownloadService(store ContentStore, chunkSize int64) DownloadService {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &downloadService{
		resolver:  NewVersionResolver(store),
		streamer:  NewChunkStreamer(store),
		chunkSize: chunkSize,
	}
}

func (s *downloadService) Download(ctx context.Context, id ComponentID, version *Version, sink ResultSink) error {
	pinned, err := s.resolver.Resolve(ctx, id, version)
	if err != nil {
		return s.fail(sink, err)
	}

	logger.Info("download %s pinned to version %d", id, pinned)

	stream, err := s.streamer.Stream(ctx, id, pinned, s.chunkSize)
	if err != nil {
		return s.fail(sink, err)
	}

	for {
		chunk, err := stream.Next(ctx)
		if err == io.EOF {
			logger.Debug("download %s@%d completed", id, pinned)
			return nil
		}
		if err != nil {
			return s.fail(sink, err)
		}
		if err := sink.Send(&DownloadResult{Chunk: chunk}); err != nil {
			logger.Warn("download %s@%d aborted: %v", id, pinned, err)
			return ifserrors.ErrTransportFailure.WithCause(err)
		}
	}
}

// fail emits the single terminal error result and reports the failure to
// the caller. A cancelled request gets no terminal message: the consumer is
// gone and the transport closes the stream.
func (s *downloadService) fail(sink ResultSink, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	logger.Error("download failed: %v", err)

	var ifsErr *ifserrors.IFSError
	if !errors.As(err, &ifsErr) {
		ifsErr = ifserrors.ErrStoreInconsistency.WithCause(err)
	}
	if sendErr := sink.Send(&DownloadResult{Err: ifsErr}); sendErr != nil {
		return ifserrors.ErrTransportFailure.WithCause(sendErr)
	}
	return err
}
