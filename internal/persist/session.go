package persist

import "context"

type contextKey string

const viewerKey contextKey = "viewer_id"

// WithViewer scopes ctx to the authenticated session identity. Backends use
// it for all "current user" queries (like status, follows, comment authors).
func WithViewer(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, viewerKey, userID)
}

// ViewerFromContext extracts the session identity, if any.
func ViewerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(viewerKey).(string)
	return id, ok && id != ""
}
