package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"donorboard/internal/amqp"
	"donorboard/internal/analytics"
	"donorboard/internal/core"
	"donorboard/internal/dashboard"
	"donorboard/internal/loader"
	"donorboard/internal/log"
	"donorboard/internal/session"
)

// multipartMemory is how much of an upload is buffered before spilling to
// temporary files.
const multipartMemory = 32 << 20

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady checks templates, the fixed source and every registered
// dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})
	fail := func(name string, err error) {
		checks[name] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", errors.New("templates not loaded"))
	} else {
		checks["templates"] = "ok"
	}

	if s.source != nil {
		if _, err := s.source.Load(ctx); err != nil {
			fail("source", err)
		} else {
			checks["source"] = "ok"
		}
	} else {
		checks["source"] = "upload"
	}

	for name, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			fail(name, err)
		} else {
			checks[name] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	viewStats := s.engine.Cache().Stats()

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	gauge("http_response_time_avg_microseconds", "Average response time", traceMetrics.AverageResponseTime)
	counter("uploads_total", "Donor files loaded successfully", atomic.LoadInt64(&s.appMetrics.uploads))
	counter("upload_failures_total", "Donor files rejected", atomic.LoadInt64(&s.appMetrics.uploadFailures))
	counter("dataset_publish_failures_total", "Dataset events that could not be published", atomic.LoadInt64(&s.appMetrics.publishFailures))
	counter("view_computations_total", "Dashboard views computed rather than served from memo", s.engine.Computations())
	counter("view_cache_hits_total", "View memo hits", viewStats.Hits)
	counter("view_cache_misses_total", "View memo misses", viewStats.Misses)
	counter("view_cache_evictions_total", "View memo evictions", viewStats.Evictions)

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{type=\"views\"} %d\n", viewStats.Size)
	for name, c := range s.caches {
		fmt.Fprintf(w, "cache_entries{type=%q} %d\n", name, c.Stats().Size)
	}
	fmt.Fprintln(w)

	counter("rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n# TYPE uptime_seconds gauge\nuptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

// table resolves the active table for a session. A nil table with a nil
// error means nothing has been uploaded yet.
func (s *Server) table(ctx context.Context, sess *session.Session) (*core.Table, error) {
	if s.source != nil {
		return s.source.Load(ctx)
	}
	return sess.Table, nil
}

// page builds the full view model for a session.
func (s *Server) page(ctx context.Context, sess *session.Session, t *core.Table, loadErr error) dashboard.Page {
	var d analytics.Dashboard
	if !t.Empty() {
		d = s.engine.Compute(ctx, t, sess.Params)
	}
	page := dashboard.NewPage(s.content, t, d, sess.Params)
	page.Upload = s.source == nil
	page.MaxUploadMB = int(s.maxUpload >> 20)
	if s.source != nil {
		page.Source = s.source.Name()
	}
	if loadErr != nil {
		n := dashboard.NoticeFor(loadErr)
		page.Notice = &n
	}
	return page
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Load(w, r)
	if err != nil {
		s.structured.LogError(r.Context(), "Session load failed", err, log.ComponentSession, log.OpLoad, log.NewFields())
		InternalServerError(dashboard.MsgUnexpected).Write(w)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	t, err := s.table(r.Context(), sess)
	page := s.page(r.Context(), sess, t, err)
	if id := r.URL.Query().Get(paramSection); id != "" {
		if _, ok := dashboard.SectionByID(id); ok {
			page.Active = id
		}
	}

	body, ok := s.render(w, r, "index.html", &page)
	if !ok {
		return
	}
	NewHTMXResponse().BodyHTML(string(body)).Write(w)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.source != nil {
		msg := "Uploads are disabled; donor data is read from " + s.source.Name() + "."
		ErrorResponse(http.StatusConflict, msg).TriggerErrorNotification(msg).Write(w)
		return
	}
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.rejectUpload(w, r, http.StatusRequestEntityTooLarge, dashboard.Notice{
				Level:   dashboard.LevelError,
				Message: fmt.Sprintf("File exceeds the %d MB upload limit.", s.maxUpload>>20),
			}, err)
			return
		}
		s.rejectUpload(w, r, http.StatusBadRequest, dashboard.Notice{Level: dashboard.LevelInfo, Message: dashboard.MsgUploadHint}, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.rejectUpload(w, r, http.StatusBadRequest, dashboard.Notice{Level: dashboard.LevelInfo, Message: dashboard.MsgUploadHint}, err)
		return
	}
	defer file.Close()

	name := uploadName(header.Filename)
	t, err := loader.Load(ctx, name, file)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if core.KindOf(err) == core.KindUnsupportedFormat {
			status = http.StatusUnsupportedMediaType
		}
		s.rejectUpload(w, r, status, dashboard.NoticeFor(err), err)
		return
	}
	if t.Empty() {
		// A header-only file is the prompt path; the session keeps its table.
		err := fmt.Errorf("%s: %w", name, core.ErrEmptyTable)
		s.rejectUpload(w, r, http.StatusUnprocessableEntity, dashboard.NoticeFor(err), err)
		return
	}

	previous := sess.Table
	sess.Table = t
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.structured.LogError(ctx, "Session save failed", err, log.ComponentSession, log.OpUpload, log.NewFields())
		InternalServerError(dashboard.MsgUnexpected).Write(w)
		return
	}
	if previous != nil && previous.ID != t.ID {
		s.engine.Forget(previous.ID)
	}
	atomic.AddInt64(&s.appMetrics.uploads, 1)
	s.structured.LogDatasetLoaded(ctx, sess.ID, t.ID, t.Source, string(t.Format), t.Len())
	s.publish(ctx, sess.ID, amqp.NewDatasetLoadedMessage(sess.ID, t))

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	notice := dashboard.LoadedNotice(t.Format)
	page := s.page(ctx, sess, t, nil)
	page.Notice = &notice
	body, ok := s.render(w, r, "dashboard", &page)
	if !ok {
		return
	}
	NewHTMXResponse().
		TriggerDatasetLoaded(t.Source, t.Len()).
		TriggerNotice(notice).
		BodyHTML(string(body)).
		Write(w)
}

// rejectUpload answers a failed upload with the notice partial. The
// session keeps whatever table it had.
func (s *Server) rejectUpload(w http.ResponseWriter, r *http.Request, status int, n dashboard.Notice, cause error) {
	atomic.AddInt64(&s.appMetrics.uploadFailures, 1)
	s.logger.WarnContext(r.Context(), "Upload rejected",
		log.FieldError, cause,
		log.FieldErrorKind, string(core.KindOf(cause)),
		log.FieldStatusCode, status,
		log.FieldOperation, log.OpUpload)
	s.writeNotice(w, r, status, n)
}

func (s *Server) writeNotice(w http.ResponseWriter, r *http.Request, status int, n dashboard.Notice) {
	body, ok := s.render(w, r, "notice", &n)
	if !ok {
		return
	}
	NewHTMXResponse().
		Status(status).
		TriggerNotice(n).
		BodyHTML(string(body)).
		Write(w)
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue(paramSection)
	if _, ok := dashboard.SectionByID(id); !ok {
		NotFoundError("Unknown section").Write(w)
		return
	}
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	t, err := s.table(r.Context(), sess)
	page := s.page(r.Context(), sess, t, err)
	page.Active = id
	view, _ := page.SectionView(id)

	body, ok := s.render(w, r, "section", view)
	if !ok {
		return
	}
	NewHTMXResponse().BodyHTML(string(body)).Write(w)
}

// updateParams applies the request's controls to the session and stores
// them when they changed.
func (s *Server) updateParams(w http.ResponseWriter, r *http.Request, sess *session.Session) (analytics.Params, bool) {
	p, err := ParseParams(r.URL.Query(), sess.Params)
	if err != nil {
		s.writeNotice(w, r, http.StatusBadRequest, dashboard.Notice{Level: dashboard.LevelWarning, Message: "Unknown year option."})
		return p, false
	}
	if p != sess.Params {
		sess.Params = p
		if err := s.sessions.Save(r.Context(), sess); err != nil {
			s.structured.LogError(r.Context(), "Session save failed", err, log.ComponentSession, log.OpCompute, log.NewFields())
		}
	}
	return p, true
}

func (s *Server) handleAverageDonors(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	p, ok := s.updateParams(w, r, sess)
	if !ok {
		return
	}

	var view dashboard.TableView
	t, err := s.table(r.Context(), sess)
	if err != nil {
		n := dashboard.NoticeFor(err)
		view.Notice = &n
	} else {
		view = dashboard.AverageDonorsView(s.engine.TopAverage(r.Context(), t, p.AvgTopN))
	}

	body, ok := s.render(w, r, "average_donors", view)
	if !ok {
		return
	}
	NewHTMXResponse().
		TriggerControlsChanged(dashboard.NewControls(p)).
		BodyHTML(string(body)).
		Write(w)
}

func (s *Server) handleRankedDonors(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	p, ok := s.updateParams(w, r, sess)
	if !ok {
		return
	}

	var c dashboard.Cultivation
	t, err := s.table(r.Context(), sess)
	if err != nil {
		n := dashboard.NoticeFor(err)
		c.Top.Notice, c.Bottom.Notice = &n, &n
	} else {
		c.Top, c.Bottom = dashboard.RankingViews(s.engine.Ranking(r.Context(), t, p.Year, p.TopN), p.TopN)
	}

	body, ok := s.render(w, r, "ranked_donors", c)
	if !ok {
		return
	}
	NewHTMXResponse().
		TriggerControlsChanged(dashboard.NewControls(p)).
		BodyHTML(string(body)).
		Write(w)
}
