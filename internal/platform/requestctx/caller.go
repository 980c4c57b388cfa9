// Package requestctx carries the authenticated caller through a request.
package requestctx

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// callerContextKey is the context key for the authenticated caller address.
type callerContextKey struct{}

// WithCaller stores the authenticated caller address in context. The
// embedding application is responsible for authenticating it.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext returns the caller address stored in context and whether
// a non-zero address was present.
func CallerFromContext(ctx context.Context) (common.Address, bool) {
	if ctx == nil {
		return common.Address{}, false
	}
	value, _ := ctx.Value(callerContextKey{}).(common.Address)
	return value, value != (common.Address{})
}
