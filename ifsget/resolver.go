package ifsget

import (
	"context"

	ifserrors "ifs-get/ifsget/errors"
)

// VersionResolver pins an optional requested version to a concrete stored
// version. A nil version means "latest".
type VersionResolver interface {
	Resolve(ctx context.Context, id ComponentID, version *Version) (Version, error)
}

func NewVersionResolver(store ContentStore) VersionResolver {
	return &versionResolver{store: store}
}

type versionResolver struct {
	store ContentStore
}

func (r *versionResolver) Resolve(ctx context.Context, id ComponentID, version *Version) (Version, error) {
	if version != nil {
		ok, err := r.store.Exists(ctx, id, *version)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ifserrors.ErrNotFound.
				WithDetail("component", string(id)).
				WithDetail("version", uint64(*version))
		}
		return *version, nil
	}

	versions, err := r.store.ListVersions(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, ifserrors.ErrNotFound.WithDetail("component", string(id))
	}

	latest := versions[0]
	for _, v := range versions[1:] {
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}
