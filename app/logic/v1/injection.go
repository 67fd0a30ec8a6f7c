package v1

import (
	"context"

	"github.com/quka-ai/ragstore/pkg/types"
)

const (
	WORKSPACE_CONTEXT_KEY = "__ragstore.workspace"
	LANGUAGE_KEY          = "__ragstore.accept_language"
)

func InjectWorkspace(ctx context.Context) (types.Workspace, bool) {
	val, ok := ctx.Value(WORKSPACE_CONTEXT_KEY).(types.Workspace)
	return val, ok
}

// WithWorkspace is used by the http middleware and by tests.
func WithWorkspace(ctx context.Context, ws types.Workspace) context.Context {
	return context.WithValue(ctx, WORKSPACE_CONTEXT_KEY, ws)
}

func InjectLanguage(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(LANGUAGE_KEY).(string)
	return val, ok
}
