package http

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alem-hub/rank-explorer/config"
	"github.com/alem-hub/rank-explorer/internal/application/query"
	"github.com/alem-hub/rank-explorer/internal/interface/http/handlers"
	"github.com/alem-hub/rank-explorer/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"name":        "Student Rank Explorer API",
		"version":     "v1",
		"description": "Search, rank, compare and export students by CGPA",
		"endpoints": map[string]string{
			"health":      "/health",
			"search":      "/api/v1/students/search?q=",
			"suggest":     "/api/v1/students/suggest?q=",
			"compare":     "/api/v1/students/compare?a=&b=",
			"spotlight":   "/api/v1/students/spotlight",
			"student":     "/api/v1/students/{id}",
			"top":         "/api/v1/leaderboard/top?n=",
			"leaderboard": "/api/v1/leaderboard?state=&min=&max=",
			"export":      "/api/v1/leaderboard/export",
			"stats":       "/api/v1/stats",
		},
		"uptime": s.Uptime().Round(time.Second).String(),
	}
	if s.deps.Features != nil {
		features := make(map[string]bool)
		for _, f := range s.deps.Features.GetAllFeatures() {
			features[f.Name] = f.Enabled
		}
		info["features"] = features
	}

	writeJSON(w, r, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if status.Version == "" {
		status.Version = s.config.Version
	}
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleSearch handles GET /api/v1/students/search?q=&selected=&limit=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := getQueryParamInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, "search", err)
		return
	}

	q := query.SearchStudentsQuery{
		SessionID:    handlers.SessionID(r.Context()),
		Term:         r.URL.Query().Get("q"),
		Selected:     r.URL.Query().Get("selected"),
		SuggestLimit: limit,
	}

	result, err := s.deps.SearchHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, "search", err)
		return
	}

	logger.FromContext(r.Context()).Debug("search",
		logger.SearchTerm(result.Term),
		logger.Int("matches", len(result.Matches)),
		logger.Bool("from_session", result.FromSession),
	)

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.TotalCount})
}

// handleSuggest handles GET /api/v1/students/suggest?q=&limit=
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	limit, err := getQueryParamInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, "suggest", err)
		return
	}

	result, err := s.deps.SuggestHandler.Handle(r.Context(), query.SuggestNamesQuery{
		Term:  r.URL.Query().Get("q"),
		Limit: limit,
	})
	if err != nil {
		s.writeError(w, r, "suggest", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleCompare handles GET /api/v1/students/compare?a=&b=
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.CompareHandler.Handle(r.Context(), query.CompareStudentsQuery{
		NameA: getQueryParam(r, "a", ""),
		NameB: getQueryParam(r, "b", ""),
	})
	if err != nil {
		s.writeError(w, r, "compare", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleSpotlight handles GET /api/v1/students/spotlight
func (s *Server) handleSpotlight(w http.ResponseWriter, r *http.Request) {
	if !s.featureEnabled(r, config.FeatureSpotlight) {
		writeJSONError(w, http.StatusNotFound, "feature_disabled", "Spotlight is disabled")
		return
	}

	result, err := s.deps.SpotlightHandler.Handle(r.Context())
	if err != nil {
		s.writeError(w, r, "spotlight", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleGetStudent handles GET /api/v1/students/{id}?neighbors=
func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	if strings.TrimSpace(studentID) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Student ID is required")
		return
	}

	neighbors, err := getQueryParamInt(r, "neighbors", 0)
	if err != nil {
		s.writeError(w, r, "rank", err)
		return
	}

	result, err := s.deps.StudentRankHandler.Handle(r.Context(), query.GetStudentRankQuery{
		RegistrationID: studentID,
		Neighbors:      neighbors,
	})
	if err != nil {
		s.writeError(w, r, "rank", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.TotalStudents})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleTop handles GET /api/v1/leaderboard/top?n=
func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	n, err := getQueryParamInt(r, "n", s.config.DefaultTopN)
	if err != nil {
		s.writeError(w, r, "top", err)
		return
	}

	result, err := s.deps.TopHandler.Handle(r.Context(), query.GetTopStudentsQuery{N: n})
	if err != nil {
		s.writeError(w, r, "top", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.TotalCount})
}

// handleFilter handles GET /api/v1/leaderboard?state=&min=&max=
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	q, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, "filter", err)
		return
	}

	result, err := s.deps.FilterHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, "filter", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.TotalCount})
}

// handleExport handles GET /api/v1/leaderboard/export?state=&min=&max=
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.featureEnabled(r, config.FeatureExportCSV) {
		writeJSONError(w, http.StatusNotFound, "feature_disabled", "CSV export is disabled")
		return
	}

	q, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, "export", err)
		return
	}

	result, err := s.deps.ExportHandler.Handle(r.Context(), query.ExportStudentsQuery{FilterStudentsQuery: q})
	if err != nil {
		s.writeError(w, r, "export", err)
		return
	}

	w.Header().Set("ETag", result.ETag)
	if etagMatches(r.Header.Get("If-None-Match"), result.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Body)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleSummary handles GET /api/v1/stats
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.StatisticsHandler.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, "summary", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.Count})
}

// handleStates handles GET /api/v1/stats/states
func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.StatisticsHandler.States(r.Context())
	if err != nil {
		s.writeError(w, r, "states", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.TotalCount})
}

// handleHistogram handles GET /api/v1/stats/histogram?bins=
func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	bins, err := getQueryParamInt(r, "bins", s.config.DefaultHistogramBins)
	if err != nil {
		s.writeError(w, r, "histogram", err)
		return
	}

	result, err := s.deps.StatisticsHandler.Histogram(r.Context(), query.HistogramQuery{Bins: bins})
	if err != nil {
		s.writeError(w, r, "histogram", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.TotalCount})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleReload handles POST /api/v1/admin/reload
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	table, err := s.deps.Reloader.Reload(r.Context())
	if err != nil {
		s.writeError(w, r, "reload", err)
		return
	}

	s.logger.Info("dataset reloaded on request",
		logger.RecordCount(table.Count()),
		logger.String("version", table.Version()),
	)
	writeJSON(w, r, http.StatusOK, map[string]any{
		"records": table.Count(),
		"version": table.Version(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func parseFilter(r *http.Request) (query.FilterStudentsQuery, error) {
	min, err := getQueryParamFloat(r, "min")
	if err != nil {
		return query.FilterStudentsQuery{}, err
	}
	max, err := getQueryParamFloat(r, "max")
	if err != nil {
		return query.FilterStudentsQuery{}, err
	}
	return query.FilterStudentsQuery{
		State: getQueryParam(r, "state", ""),
		Min:   min,
		Max:   max,
	}, nil
}

// etagMatches implements the If-None-Match comparison (weak, list aware).
func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
