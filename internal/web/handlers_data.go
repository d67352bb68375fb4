package web

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datasweeper/internal/chart"
	"github.com/JonMunkholm/datasweeper/internal/core"
)

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)
	p, err := s.service.Preview(sid, fid, parseIntParam(r, "n", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)
	stats, err := s.service.Summary(sid, fid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleCorrelation responds 200 even when there is nothing to correlate;
// the body then carries only a message.
func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)
	res, err := s.service.Correlation(sid, fid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

type cleanRequest struct {
	Operation string `json:"operation" validate:"required,oneof=drop_duplicates fill_missing normalize_text"`
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)

	var req cleanRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Clean(sid, fid, core.CleanOperation(req.Operation))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

type columnsRequest struct {
	Columns []string `json:"columns" validate:"dive,required"`
}

func (s *Server) handleSelectColumns(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)

	var req columnsRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	info, err := s.service.SelectColumns(sid, fid, req.Columns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

// mergeKeyRequest sets the merge column. An empty column restores the
// default.
type mergeKeyRequest struct {
	Column string `json:"column" validate:"max=256"`
}

func (s *Server) handleSetMergeKey(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)

	var req mergeKeyRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	info, err := s.service.SetMergeKey(sid, fid, req.Column)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

// handleChart builds a chart of the file. The kind is one of bar, pie or
// correlation; format=json returns the chart data, anything else renders
// an HTML page.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)
	kind := chi.URLParam(r, "kind")

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "json" {
		s.respondError(w, r, fmt.Errorf("%w: chart format %q", errInvalidRequest, format))
		return
	}

	c, err := s.buildChart(sid, fid, kind)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if format == "json" {
		writeJSON(w, r, http.StatusOK, c)
		return
	}

	s.writeChart(w, r, kind, c)
}

// writeChart renders c fully before anything is sent, so a render failure
// still gets a clean error response.
func (s *Server) writeChart(w http.ResponseWriter, r *http.Request, kind string, c chart.Chart) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		s.respondError(w, r, fmt.Errorf("render %s chart: %w", kind, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) buildChart(sid, fid, kind string) (chart.Chart, error) {
	switch kind {
	case chart.KindBar, chart.KindPie:
		t, err := s.service.Projected(sid, fid)
		if err != nil {
			return nil, err
		}
		if kind == chart.KindBar {
			return chart.Bar(t), nil
		}
		return chart.Pie(t)
	case chart.KindCorrelation:
		res, err := s.service.Correlation(sid, fid)
		if err != nil {
			return nil, err
		}
		if res.Correlation == nil {
			return nil, fmt.Errorf("%w: %s", errInvalidRequest, res.Message)
		}
		return chart.CorrelationHeatmap(res.Correlation), nil
	}
	return nil, fmt.Errorf("%w: unknown chart %q", errInvalidRequest, kind)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	exp, err := s.service.Export(sid, fid, format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeAttachment(w, exp)
}

func (s *Server) handleMergedPreview(w http.ResponseWriter, r *http.Request) {
	sid, _ := ids(r)
	p, err := s.service.MergedPreview(sid, parseIntParam(r, "n", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleMergedExport(w http.ResponseWriter, r *http.Request) {
	sid, _ := ids(r)
	exp, err := s.service.ExportMerged(sid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeAttachment(w, exp)
}
