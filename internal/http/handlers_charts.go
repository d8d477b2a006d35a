package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"donorboard/internal/charts"
	"donorboard/internal/core"
	"donorboard/internal/dashboard"
	"donorboard/internal/log"
)

// chartError is the JSON body of a chart that could not be built.
type chartError struct {
	Name    string `json:"name"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// buildChart resolves the session table and computes the one view behind
// the named chart. The returned status is meaningful only on error.
func (s *Server) buildChart(w http.ResponseWriter, r *http.Request, name string) (dashboard.ChartSpec, int, error) {
	sess, err := s.sessions.Load(w, r)
	if err != nil {
		return dashboard.ChartSpec{}, http.StatusInternalServerError, err
	}
	t, err := s.table(r.Context(), sess)
	if err != nil {
		return dashboard.ChartSpec{}, http.StatusUnprocessableEntity, err
	}
	spec, err := dashboard.BuildChart(r.Context(), s.engine, t, name)
	switch {
	case err == nil:
		return spec, http.StatusOK, nil
	case errors.Is(err, dashboard.ErrUnknownChart):
		return spec, http.StatusNotFound, err
	case core.KindOf(err) == core.KindInputAbsent:
		return spec, http.StatusConflict, err
	}
	return spec, http.StatusUnprocessableEntity, err
}

func (s *Server) handleChartSpec(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("view")
	spec, status, err := s.buildChart(w, r, name)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err != nil {
		n := dashboard.NoticeFor(err)
		if status == http.StatusNotFound {
			n = dashboard.Notice{Level: dashboard.LevelError, Message: "Unknown chart"}
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(chartError{Name: name, Level: n.Level, Message: n.Message})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(spec)
}

func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if !ok {
		NotFoundError("Unknown chart").Write(w)
		return
	}
	spec, status, err := s.buildChart(w, r, name)
	if err != nil {
		if status == http.StatusNotFound {
			NotFoundError("Unknown chart").Write(w)
			return
		}
		ErrorResponse(status, dashboard.NoticeFor(err).Message).Write(w)
		return
	}

	var buf bytes.Buffer
	if err := charts.Render(&buf, spec); err != nil {
		if errors.Is(err, charts.ErrNoData) {
			ErrorResponse(http.StatusUnprocessableEntity, "No data to chart").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Chart render failed",
			log.FieldError, err,
			log.FieldView, name,
			log.FieldComponent, log.ComponentCharts,
			log.FieldOperation, log.OpRender)
		InternalServerError(dashboard.MsgUnexpected).Write(w)
		return
	}
	w.Header().Set("Content-Type", charts.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`.svg"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
