package ifsget

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/goleak"

	ifserrors "ifs-get/ifsget/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// collectSink records every delivered result and can simulate a consumer
// that disconnects after a number of sends.
type collectSink struct {
	results   []*DownloadResult
	failAfter int // fail the nth Send (1-based); 0 never fails
}

func (s *collectSink) Send(res *DownloadResult) error {
	if s.failAfter > 0 && len(s.results)+1 >= s.failAfter {
		return fmt.Errorf("consumer went away")
	}
	s.results = append(s.results, res)
	return nil
}

func (s *collectSink) chunks() []*Chunk {
	var chunks []*Chunk
	for _, res := range s.results {
		if res.Chunk != nil {
			chunks = append(chunks, res.Chunk)
		}
	}
	return chunks
}

func (s *collectSink) terminalErr() *ifserrors.IFSError {
	if len(s.results) == 0 {
		return nil
	}
	return s.results[len(s.results)-1].Err
}

func TestDownloadService_Success(t *testing.T) {
	data := patternBytes(2_500_000)
	store := newFakeStore()
	store.add("C1", 1, []byte("old"))
	store.add("C1", 2, data)

	svc := NewDownloadService(store, 1_048_576)
	sink := &collectSink{}

	// Absent version must pin to the highest stored version.
	if err := svc.Download(context.Background(), "C1", nil, sink); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	chunks := sink.chunks()
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if sink.terminalErr() != nil {
		t.Errorf("successful download emitted terminal error: %v", sink.terminalErr())
	}

	var reassembled []byte
	for _, chunk := range chunks {
		reassembled = append(reassembled, chunk.Data...)
	}
	if !bytes.Equal(reassembled, data) {
		t.Error("reassembled bytes differ from latest stored image")
	}
}

func TestDownloadService_NotFound(t *testing.T) {
	store := newFakeStore()
	store.add("C1", 1, []byte("v1"))
	store.add("C1", 2, []byte("v2"))

	svc := NewDownloadService(store, 1024)

	tests := []struct {
		name    string
		id      ComponentID
		version *Version
	}{
		{name: "missing version", id: "C1", version: versionPtr(5)},
		{name: "unknown component", id: "ghost", version: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &collectSink{}
			err := svc.Download(context.Background(), tt.id, tt.version, sink)
			if !errors.Is(err, ifserrors.ErrNotFound) {
				t.Fatalf("Download() error = %v, want NOT_FOUND", err)
			}

			if got := len(sink.chunks()); got != 0 {
				t.Errorf("got %d chunks before resolution failure, want 0", got)
			}
			if len(sink.results) != 1 {
				t.Fatalf("got %d results, want exactly one terminal error", len(sink.results))
			}
			if terminal := sink.terminalErr(); terminal == nil || terminal.Code != "NOT_FOUND" {
				t.Errorf("terminal result = %+v, want NOT_FOUND error", sink.results[0])
			}
		})
	}
}

func TestDownloadService_EmptyImage(t *testing.T) {
	store := newFakeStore()
	store.add("empty", 3, nil)

	svc := NewDownloadService(store, 1024)
	sink := &collectSink{}

	if err := svc.Download(context.Background(), "empty", nil, sink); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if len(sink.results) != 1 {
		t.Fatalf("got %d results, want 1", len(sink.results))
	}
	chunk := sink.results[0].Chunk
	if chunk == nil || len(chunk.Data) != 0 || !chunk.Final {
		t.Errorf("result = %+v, want single zero-length final chunk", sink.results[0])
	}
}

func TestDownloadService_StoreInconsistency(t *testing.T) {
	store := newFakeStore()
	store.add("comp", 1, patternBytes(4096))
	store.truncate = 1 // every read comes back one byte short

	svc := NewDownloadService(store, 1024)
	sink := &collectSink{}

	err := svc.Download(context.Background(), "comp", nil, sink)
	if !errors.Is(err, ifserrors.ErrStoreInconsistency) {
		t.Fatalf("Download() error = %v, want STORE_INCONSISTENT", err)
	}

	// Exactly one terminal error, after zero chunks, and nothing after it.
	if len(sink.results) != 1 {
		t.Fatalf("got %d results, want 1", len(sink.results))
	}
	if terminal := sink.terminalErr(); terminal == nil || terminal.Code != "STORE_INCONSISTENT" {
		t.Errorf("terminal result = %+v, want STORE_INCONSISTENT error", sink.results[0])
	}
}

func TestDownloadService_TransportFailure(t *testing.T) {
	store := newFakeStore()
	store.add("comp", 1, patternBytes(5*1024))

	svc := NewDownloadService(store, 1024)
	sink := &collectSink{failAfter: 3}

	err := svc.Download(context.Background(), "comp", nil, sink)
	if !errors.Is(err, ifserrors.ErrTransportFailure) {
		t.Fatalf("Download() error = %v, want TRANSPORT_FAILURE", err)
	}

	// Two chunks got through; no terminal error is forced into a dead sink.
	if len(sink.results) != 2 {
		t.Fatalf("got %d results, want 2", len(sink.results))
	}
	if sink.terminalErr() != nil {
		t.Error("terminal error delivered after transport failure")
	}
}

func TestDownloadService_CancelMidStream(t *testing.T) {
	store := newFakeStore()
	store.add("comp", 1, patternBytes(5*1024))

	svc := NewDownloadService(store, 1024)

	ctx, cancel := context.WithCancel(context.Background())
	sink := &cancellingSink{cancel: cancel, after: 2}

	err := svc.Download(ctx, "comp", nil, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Download() error = %v, want context.Canceled", err)
	}

	// Two chunks were delivered before the cancel; the disconnected client
	// gets no terminal message and no further reads happen.
	if sink.sent != 2 {
		t.Errorf("sink received %d results, want 2", sink.sent)
	}
	if store.readCalls != 2 {
		t.Errorf("ReadRange called %d times, want 2", store.readCalls)
	}
}

// cancellingSink cancels the request context after delivering a number of
// results, simulating a client disconnect.
type cancellingSink struct {
	cancel context.CancelFunc
	after  int
	sent   int
}

func (s *cancellingSink) Send(res *DownloadResult) error {
	s.sent++
	if s.sent >= s.after {
		s.cancel()
	}
	return nil
}
