// Package obsctx carries request-scoped correlation data through contexts so
// logs, traces and audit records agree on who did what.
package obsctx

import (
	"context"
	"strings"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
	clientKey    contextKey = "client"
)

// Actor identifies the authenticated principal behind a request. System
// workers use ActorSystem with an empty UserID.
type Actor struct {
	UserID string
	Email  string
	Role   string
}

// ActorSystem is the actor recorded for scheduler and bootstrap work.
var ActorSystem = Actor{Role: "system", Email: "system"}

// Client captures transport-level request metadata for the audit trail.
type Client struct {
	IP        string
	UserAgent string
}

// WithRequestID stores the request correlation id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id or empty when unset.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithActor stores the acting principal in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the acting principal and whether one was set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	if v, ok := ctx.Value(actorKey).(Actor); ok {
		return v, true
	}
	return Actor{}, false
}

// WithClient stores transport metadata in the context.
func WithClient(ctx context.Context, client Client) context.Context {
	return context.WithValue(ctx, clientKey, client)
}

// ClientFromContext returns transport metadata and whether any was set.
func ClientFromContext(ctx context.Context) (Client, bool) {
	if ctx == nil {
		return Client{}, false
	}
	if v, ok := ctx.Value(clientKey).(Client); ok {
		return v, true
	}
	return Client{}, false
}
