package logging

import "context"

type sinkKey struct{}

type userIDKey struct{}

// NewContext returns a copy of ctx carrying sink.
func NewContext(ctx context.Context, sink Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

// FromContext returns the sink stored in ctx, or one that discards everything.
func FromContext(ctx context.Context) Sink {
	if sink, ok := ctx.Value(sinkKey{}).(Sink); ok && sink != nil {
		return sink
	}
	return discard{}
}

// WithUserID attaches the authenticated user to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user set by WithUserID, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

type discard struct{}

func (discard) Log(context.Context, Level, string, Meta) {}

func (discard) LogError(context.Context, Level, error, Meta) {}
