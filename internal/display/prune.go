package display

import (
	"context"
	"net/http"

	"DisplayAPI/internal/model"
)

// PruneFields keeps the fields whose output key was requested, in declaration
// order. No request leaves the fields unchanged. Unknown names are ignored
// without validation, so a request naming only unknown fields removes all of
// them.
func PruneFields(fields []model.Field, requested []string) []model.Field {
	if len(requested) == 0 {
		return fields
	}
	keep := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		keep[name] = struct{}{}
	}
	out := make([]model.Field, 0, len(fields))
	for _, f := range fields {
		if _, ok := keep[f.Key()]; ok {
			out = append(out, f)
		}
	}
	return out
}

// PruneRequest prunes by the raw display values of r.
func PruneRequest(r *http.Request, fields []model.Field) []model.Field {
	if r == nil || r.URL == nil {
		return fields
	}
	return PruneFields(fields, r.URL.Query()[DefaultParam])
}

type requestKey struct{}

// WithRequest stores r in ctx for PruneContext.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

func RequestFromContext(ctx context.Context) (*http.Request, bool) {
	r, ok := ctx.Value(requestKey{}).(*http.Request)
	return r, ok && r != nil
}

// PruneContext prunes by the request stored in ctx; without one the fields
// are returned unchanged.
func PruneContext(ctx context.Context, fields []model.Field) []model.Field {
	r, ok := RequestFromContext(ctx)
	if !ok {
		return fields
	}
	return PruneRequest(r, fields)
}
