// internal/cli/offline.go
package bayesbatch

import (
	"context"
	"errors"

	"github.com/mwiater/bayesbatch/internal/providers"
)

var errOffline = errors.New("remote batch API is not used by this command")

// offlineProvider backs commands that only read persisted job state.
type offlineProvider struct{}

func (offlineProvider) Upload(context.Context, string, []byte, string) (providers.FileRef, error) {
	return providers.FileRef{}, errOffline
}

func (offlineProvider) SubmitBatch(context.Context, string, string, string) (providers.Batch, error) {
	return providers.Batch{}, errOffline
}

func (offlineProvider) BatchStatus(context.Context, string) (providers.Batch, error) {
	return providers.Batch{}, errOffline
}

func (offlineProvider) FetchContent(context.Context, string) ([]byte, error) {
	return nil, errOffline
}
