package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"DisplayAPI/internal/cache"
	"DisplayAPI/internal/display"
	"DisplayAPI/internal/logger"
	"DisplayAPI/internal/model"
	"DisplayAPI/internal/query"
	"DisplayAPI/internal/resolver"

	"github.com/julienschmidt/httprouter"
)

const maxLimit = 10000

type listMeta struct {
	Display         []string `json:"display"`
	SelectRelated   []string `json:"select_related"`
	PrefetchRelated []string `json:"prefetch_related"`
}

type listResponse struct {
	Data []*resolver.Item `json:"data"`
	Meta listMeta         `json:"meta"`
}

// List serves GET /api/:model/:view.
func (a *API) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	const endpoint = "/api/:model/:view"
	m, view, ok := a.lookup(w, ps)
	if !ok {
		return
	}

	limit, offset, err := paging(r, view)
	if err != nil {
		logger.Warn("invalid_paging", map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key, err := cache.Key(cache.KeyParams{
		Model:   m.Name,
		View:    view.Name,
		Display: r.URL.Query()[display.DefaultParam],
		Limit:   limit,
		Offset:  offset,
	})
	if err == nil {
		if body, hit, cerr := a.Cache.Get(r.Context(), key); cerr != nil {
			logger.Warn("cache_get_failed", map[string]any{"error": cerr.Error()})
		} else {
			a.observeCache(hit)
			if hit {
				writeJSON(w, endpoint, body)
				return
			}
		}
	}

	q := query.New(m).OrderBy(view.Order...).Limit(limit).Offset(offset)
	q, err = display.FilterQuery(a.Filter, r, q, view)
	if err != nil {
		fail(w, endpoint, err)
		return
	}
	if a.Metrics != nil {
		a.Metrics.ObserveHints(m.Name, len(q.SelectRelatedPaths()), len(q.PrefetchRelatedPaths()))
	}

	preset, err := a.Filter.SerializerFor(view)
	if err != nil {
		// an explicit whitelist without a serializer renders the columns
		preset = m.ColumnPreset()
	}
	ctx := display.WithRequest(r.Context(), r)
	fields := display.PruneContext(ctx, preset.Fields)

	items, err := resolver.Resolve(ctx, a.DB, q, fields)
	if err != nil {
		fail(w, endpoint, err)
		return
	}

	body, err := json.Marshal(listResponse{
		Data: items,
		Meta: listMeta{
			Display:         renderedKeys(fields),
			SelectRelated:   nonNil(q.SelectRelatedPaths()),
			PrefetchRelated: nonNil(q.PrefetchRelatedPaths()),
		},
	})
	if err != nil {
		fail(w, endpoint, err)
		return
	}
	if key != "" {
		if err := a.Cache.Set(r.Context(), key, body); err != nil {
			logger.Warn("cache_set_failed", map[string]any{"error": err.Error()})
		}
	}
	writeJSON(w, endpoint, body)
}

func (a *API) observeCache(hit bool) {
	if a.Metrics == nil {
		return
	}
	if _, noop := a.Cache.(cache.Noop); noop {
		return
	}
	a.Metrics.ObserveCache(hit)
}

// paging reads ?limit= and ?offset=; the view limit is the default and the cap.
func paging(r *http.Request, view *model.View) (uint64, uint64, error) {
	limit := view.Limit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 || n > maxLimit {
			return 0, 0, &pagingError{param: "limit", value: raw}
		}
		if view.Limit == 0 || n < view.Limit {
			limit = n
		}
	}
	var offset uint64
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, 0, &pagingError{param: "offset", value: raw}
		}
		offset = n
	}
	return limit, offset, nil
}

type pagingError struct {
	param string
	value string
}

func (e *pagingError) Error() string {
	return "invalid " + e.param + " '" + e.value + "'"
}

func renderedKeys(fields []model.Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !f.WriteOnly {
			out = append(out, f.Key())
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
