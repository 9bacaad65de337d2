package history

import "context"

type contextKey struct{}

// NewContext returns ctx carrying the session's ledger so capabilities that
// report over history can reach it.
func NewContext(ctx context.Context, l *Ledger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext extracts the session's ledger, or nil when absent.
func FromContext(ctx context.Context) *Ledger {
	if l, ok := ctx.Value(contextKey{}).(*Ledger); ok {
		return l
	}
	return nil
}
