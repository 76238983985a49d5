package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"DisplayAPI/internal/cache"
	"DisplayAPI/internal/db"
	"DisplayAPI/internal/display"
	"DisplayAPI/internal/logger"
	"DisplayAPI/internal/metrics"
	"DisplayAPI/internal/model"

	"github.com/julienschmidt/httprouter"
)

// API serves the views of the registry.
type API struct {
	Registry map[string]*model.Model
	DB       db.Querier
	Filter   *display.Filter
	Cache    cache.Cache
	Metrics  *metrics.Metrics
	Locale   string // schema locale when the request names none
}

// NewAPI wires a filter whose dropped names are counted in m.
func NewAPI(reg map[string]*model.Model, conn db.Querier, c cache.Cache, m *metrics.Metrics, locale string) *API {
	a := &API{
		Registry: reg,
		DB:       conn,
		Filter:   display.New(),
		Cache:    c,
		Metrics:  m,
		Locale:   locale,
	}
	if a.Cache == nil {
		a.Cache = cache.Noop{}
	}
	if m != nil {
		a.Filter.OnDropped = func(view *model.View, names []string) {
			modelName := ""
			if vm := view.GetModelRef(); vm != nil {
				modelName = vm.Name
			}
			m.ObserveDropped(modelName, len(names))
		}
	}
	return a
}

// lookup resolves the :model and :view parameters or answers 404.
func (a *API) lookup(w http.ResponseWriter, ps httprouter.Params) (*model.Model, *model.View, bool) {
	modelName := ps.ByName("model")
	m, ok := a.Registry[modelName]
	if !ok {
		http.Error(w, "model '"+modelName+"' not found", http.StatusNotFound)
		return nil, nil, false
	}
	viewName := ps.ByName("view")
	view := m.GetView(viewName)
	if view == nil {
		http.Error(w, "view '"+modelName+"."+viewName+"' not found", http.StatusNotFound)
		return nil, nil, false
	}
	return m, view, true
}

// fail answers 500. A configuration error carries its diagnostic to the
// client; any other error is only logged.
func fail(w http.ResponseWriter, endpoint string, err error) {
	fields := map[string]any{
		"endpoint": endpoint,
		"error":    err.Error(),
	}
	var cfgErr *display.ImproperlyConfiguredError
	if errors.As(err, &cfgErr) {
		logger.Error("display_misconfigured", fields)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	logger.Error("resolver_error", fields)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, endpoint string, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		logger.Error("write_response_failed", map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
	}
}

func encodeJSON(w http.ResponseWriter, endpoint string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		fail(w, endpoint, err)
		return
	}
	writeJSON(w, endpoint, body)
}
