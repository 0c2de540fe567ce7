package httpapi

import (
	"context"

	"qvox/internal/backend"
	"qvox/internal/orchestrator"
	"qvox/internal/supervisor"
	"qvox/internal/task"
	"qvox/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *orchestrator.Orchestrator satisfies it.
type Service interface {
	Status() types.StatusResponse
	Ready() bool
	Submit(ctx context.Context, req backend.GenerationRequest) (task.Task, error)
	Cancel(ctx context.Context) error
	Dismiss() error
	Audio() ([]byte, error)
	Task() (task.Task, bool)
	BackendConfig() supervisor.Config
	Restart(ctx context.Context, cfg supervisor.Config) error
	Catalogue() (orchestrator.Catalogue, error)
}

// EventSource feeds GET /events. *orchestrator.Broadcaster satisfies it.
type EventSource interface {
	Subscribe() (<-chan orchestrator.Event, func())
}

var _ Service = (*orchestrator.Orchestrator)(nil)
var _ EventSource = (*orchestrator.Broadcaster)(nil)
