package registry

import (
	"context"
	"fmt"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/blobstore"
	"github.com/tracknova/recgo/simindex"
)

// BundleLoader builds a Loader that fetches bundle blobs from a store.
// sources maps model names to blob names (paths/keys); names outside
// the map fail with ErrUnknownModel. indexOptFns configure the
// similarity index built over each decoded artifact.
func BundleLoader(store blobstore.Store, sources map[string]string, indexOptFns ...func(o *simindex.Options)) Loader {
	return func(ctx context.Context, name string) (*Model, error) {
		source, ok := sources[name]
		if !ok {
			return nil, NewLoadError(name, ErrUnknownModel)
		}

		data, err := blobstore.ReadAll(ctx, store, source)
		if err != nil {
			return nil, NewLoadError(name, fmt.Errorf("read bundle %q: %w", source, err))
		}

		art, err := artifact.Decode(data)
		if err != nil {
			return nil, NewLoadError(name, err)
		}
		if art.Name() != name {
			return nil, NewLoadError(name, fmt.Errorf("bundle %q carries artifact %q", source, art.Name()))
		}

		idx, err := simindex.New(art, indexOptFns...)
		if err != nil {
			return nil, NewLoadError(name, err)
		}

		return &Model{Art: art, Index: idx}, nil
	}
}
