package ifsget

import (
	"context"
	"errors"
	"testing"

	ifserrors "ifs-get/ifsget/errors"
)

func versionPtr(v Version) *Version {
	return &v
}

func TestVersionResolver_Resolve(t *testing.T) {
	store := newFakeStore()
	store.add("C1", 1, []byte("v1"))
	store.add("C1", 2, []byte("v2"))
	store.add("zero", 0, []byte("z"))

	resolver := NewVersionResolver(store)

	tests := []struct {
		name      string
		id        ComponentID
		version   *Version
		want      Version
		wantErr   bool
		wantCode  string
	}{
		{
			name:    "explicit existing version",
			id:      "C1",
			version: versionPtr(1),
			want:    1,
		},
		{
			name:     "explicit missing version",
			id:       "C1",
			version:  versionPtr(5),
			wantErr:  true,
			wantCode: "NOT_FOUND",
		},
		{
			name:    "absent version picks latest",
			id:      "C1",
			version: nil,
			want:    2,
		},
		{
			name:     "unknown component",
			id:       "nope",
			version:  nil,
			wantErr:  true,
			wantCode: "NOT_FOUND",
		},
		{
			name:    "zero is a legal explicit version",
			id:      "zero",
			version: versionPtr(0),
			want:    0,
		},
		{
			name:    "zero is a legal latest version",
			id:      "zero",
			version: nil,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(context.Background(), tt.id, tt.version)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve() = %d, want error", got)
				}
				var ifsErr *ifserrors.IFSError
				if !errors.As(err, &ifsErr) || ifsErr.Code != tt.wantCode {
					t.Errorf("Resolve() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %d, want %d", got, tt.want)
			}
		})
	}
}
