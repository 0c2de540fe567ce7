package orchestrator

import (
	"context"

	"qvox/internal/backend"
)

// Catalogue is the backend's store of reference clips and past results.
// Writes go straight to the backend and never touch the task slot.
type Catalogue interface {
	Capabilities(ctx context.Context) (backend.CapabilitiesResponse, error)
	Languages(ctx context.Context) (backend.LanguagesResponse, error)
	References(ctx context.Context) ([]backend.ReferenceAudio, error)
	UploadReference(ctx context.Context, filename string, audio []byte, refText string) (backend.ReferenceAudio, error)
	DownloadReference(ctx context.Context, id string) ([]byte, error)
	RenameReference(ctx context.Context, id, name string) (backend.RenameResponse, error)
	DeleteReference(ctx context.Context, id string) error
	Generated(ctx context.Context) ([]backend.GeneratedAudio, error)
	DeleteGenerated(ctx context.Context, id string) error
}

// Catalogue returns the backend's catalogue once the backend is ready.
func (o *Orchestrator) Catalogue() (Catalogue, error) {
	if !o.Ready() {
		return nil, ErrBackendNotReady
	}
	c, ok := o.backendClient().(Catalogue)
	if !ok {
		return nil, ErrBackendNotReady
	}
	return c, nil
}
