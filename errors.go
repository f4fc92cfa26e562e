package recgo

import (
	"errors"
	"fmt"

	"github.com/tracknova/recgo/query"
	"github.com/tracknova/recgo/recommend"
	"github.com/tracknova/recgo/registry"
)

var (
	// ErrInvalidRequest is returned when a request fails validation
	// (empty seeds, non-positive count).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnknownStrategy is returned for a strategy the engine does not
	// implement. It always arrives wrapped in ErrInvalidRequest.
	ErrUnknownStrategy = recommend.ErrUnknownStrategy

	// ErrUnknownModel is returned when a request names a model that is
	// not configured.
	ErrUnknownModel = errors.New("unknown model")

	// ErrNoActiveModel is returned when a request omits the model name
	// and no model is active for the requested kind.
	ErrNoActiveModel = errors.New("no active model for kind")

	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("engine is closed")
)

// ModelLoadError indicates a model's bundle could not be fetched,
// decoded, or validated.
//
// The original underlying error can be accessed via errors.Unwrap.
type ModelLoadError struct {
	Model string
	cause error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model %q failed to load: %v", e.Model, e.cause)
}

func (e *ModelLoadError) Unwrap() error { return e.cause }

// SeedNotInModelError indicates that none of the request's seed tracks
// exist in the selected model.
//
// The original underlying error can be accessed via errors.Unwrap.
type SeedNotInModelError struct {
	Model string
	Seeds []string
	cause error
}

func (e *SeedNotInModelError) Error() string {
	return fmt.Sprintf("model %q contains none of the %d seed track(s)", e.Model, len(e.Seeds))
}

func (e *SeedNotInModelError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Request validation normalization.
	if errors.Is(err, recommend.ErrEmptySeeds) || errors.Is(err, recommend.ErrInvalidCount) ||
		errors.Is(err, recommend.ErrUnknownStrategy) {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	// Model lifecycle normalization.
	var le *registry.LoadError
	if errors.As(err, &le) {
		if errors.Is(err, registry.ErrUnknownModel) {
			return fmt.Errorf("%w: %q", ErrUnknownModel, le.Name)
		}
		return &ModelLoadError{Model: le.Name, cause: err}
	}
	if errors.Is(err, registry.ErrUnknownModel) {
		return fmt.Errorf("%w: %w", ErrUnknownModel, err)
	}

	var snm *query.SeedsNotInModelError
	if errors.As(err, &snm) {
		return &SeedNotInModelError{Model: snm.Model, Seeds: snm.Seeds, cause: err}
	}

	return err
}
