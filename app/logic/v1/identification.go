package v1

import (
	"context"
	"log/slog"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/pkg/types"
)

// SetupWorkspace returns the workspace of the request, the configured
// default when the context carries none.
func SetupWorkspace(ctx context.Context, core *core.Core) types.Workspace {
	ws, ok := InjectWorkspace(ctx)
	if !ok || ws == "" {
		slog.Debug("Not found workspace in context, using default", slog.String("component", "logic.v1.setupWorkspace"))
		return core.DefaultWorkspace()
	}
	return ws
}
