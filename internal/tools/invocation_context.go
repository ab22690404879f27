package tools

import (
	"context"
	"strings"
)

type invocationContextKey struct{}

// InvocationContext carries caller metadata for a tool call under
// evaluation. External safety checkers can request these fields through
// their required_context binding.
type InvocationContext struct {
	SessionID string
	RequestID string
	Workspace string
}

// WithInvocation stores invocation metadata in the context.
func WithInvocation(ctx context.Context, meta InvocationContext) context.Context {
	return context.WithValue(ctx, invocationContextKey{}, meta)
}

// InvocationFromContext reads invocation metadata from the context.
func InvocationFromContext(ctx context.Context) InvocationContext {
	v := ctx.Value(invocationContextKey{})
	meta, ok := v.(InvocationContext)
	if !ok {
		return InvocationContext{}
	}
	meta.SessionID = strings.TrimSpace(meta.SessionID)
	meta.RequestID = strings.TrimSpace(meta.RequestID)
	meta.Workspace = strings.TrimSpace(meta.Workspace)
	return meta
}
