package handler

import (
	"net/http"

	"DisplayAPI/internal/logger"
	"DisplayAPI/internal/query"

	"github.com/julienschmidt/httprouter"
)

// Count serves GET /api/:model/:view/count with the number of rows of the
// view's model.
func (a *API) Count(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	const endpoint = "/api/:model/:view/count"
	m, _, ok := a.lookup(w, ps)
	if !ok {
		return
	}

	sb, err := query.New(m).ToCount()
	if err != nil {
		fail(w, endpoint, err)
		return
	}
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		fail(w, endpoint, err)
		return
	}
	logger.Debug("sql", map[string]any{
		"endpoint": endpoint,
		"sql":      sqlStr,
		"args":     args,
	})

	rows, err := a.DB.QueryRows(r.Context(), sqlStr, args...)
	if err != nil {
		fail(w, endpoint, err)
		return
	}
	var count any = 0
	if len(rows) > 0 && rows[0]["count"] != nil {
		count = rows[0]["count"]
	}
	encodeJSON(w, endpoint, map[string]any{"count": count})
}
