package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Schema serves GET /api/:model/:view/schema: the query parameters the view
// accepts, described in ?locale= or the configured locale.
func (a *API) Schema(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, _, ok := a.lookup(w, ps); !ok {
		return
	}
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = a.Locale
	}
	encodeJSON(w, "/api/:model/:view/schema", map[string]any{
		"parameters": a.Filter.SchemaFields(locale),
	})
}
