package clog

import (
	"context"
	"sync"
)

// Request-scoped attribute bag. Middleware installs it at the top of a request;
// anything below can attach attributes that the AttributesHandler later folds
// into every log record emitted with that context.
type ctxAttrs struct {
	mu    sync.RWMutex
	attrs map[string]any
}

type ctxAttrsKey struct{}

func ContextWithAttributes(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxAttrsKey{}, &ctxAttrs{attrs: make(map[string]any)})
}

func AddAttribute(ctx context.Context, key string, value any) {
	bag, ok := ctx.Value(ctxAttrsKey{}).(*ctxAttrs)
	if !ok {
		return
	}
	bag.mu.Lock()
	bag.attrs[key] = value
	bag.mu.Unlock()
}

func AddAttributes(ctx context.Context, attrs map[string]any) {
	bag, ok := ctx.Value(ctxAttrsKey{}).(*ctxAttrs)
	if !ok {
		return
	}
	bag.mu.Lock()
	for k, v := range attrs {
		bag.attrs[k] = v
	}
	bag.mu.Unlock()
}

func GetAttributes(ctx context.Context) map[string]any {
	bag, ok := ctx.Value(ctxAttrsKey{}).(*ctxAttrs)
	if !ok {
		return nil
	}
	bag.mu.RLock()
	defer bag.mu.RUnlock()
	copied := make(map[string]any, len(bag.attrs))
	for k, v := range bag.attrs {
		copied[k] = v
	}
	return copied
}

const (
	ErrorAttributeKey = "error.message"
	StackAttributeKey = "error.stack"
)

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}
