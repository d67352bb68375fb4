package web

// handlers_ui.go serves the HTML pages. Form actions redirect back to the
// session page, which recomputes every section from the session state.

import (
	"fmt"
	"net/http"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/web/templates"
)

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, templates.IndexPage(core.AcceptedExtensions(), s.cfg.Session.MaxFiles))
}

// handleCreateSessionForm starts a session from the index upload form and
// shows it right away, so skipped files are reported on the same page.
// A failed upload removes the new session again.
func (s *Server) handleCreateSessionForm(w http.ResponseWriter, r *http.Request) {
	info := s.service.CreateSession()
	res, err := s.uploadFromRequest(w, r, info.ID)
	if err != nil {
		if delErr := s.service.DeleteSession(info.ID); delErr != nil {
			logging.FromContext(r.Context()).Warn("delete failed session", "session_id", info.ID, "error", delErr)
		}
		s.respondError(w, r, err)
		return
	}
	s.showUpload(w, r, info.ID, res)
}

func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	sid, _ := ids(r)
	res, err := s.uploadFromRequest(w, r, sid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.showUpload(w, r, sid, res)
}

func (s *Server) showUpload(w http.ResponseWriter, r *http.Request, sid string, res *core.UploadResult) {
	view, err := s.sessionView(sid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	view.UploadError = res.Errors
	s.renderPage(w, r, http.StatusOK, templates.SessionPage(*view))
}

func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	sid, _ := ids(r)
	view, err := s.sessionView(sid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if done := r.URL.Query().Get("done"); done != "" {
		if op, err := core.ParseCleanOperation(done); err == nil {
			view.Flash = op.Message()
		}
	}
	s.renderPage(w, r, http.StatusOK, templates.SessionPage(*view))
}

// sessionView computes every section of the session page.
func (s *Server) sessionView(sid string) (*templates.SessionView, error) {
	info, err := s.service.GetSession(sid)
	if err != nil {
		return nil, err
	}

	view := &templates.SessionView{
		Session: *info,
		Files:   make([]templates.FileView, 0, len(info.Files)),
		Accept:  core.AcceptedExtensions(),
		Formats: core.Formats(),
	}

	for _, f := range info.Files {
		fv := templates.FileView{Info: f}
		if fv.Preview, err = s.service.Preview(sid, f.ID, 0); err != nil {
			return nil, err
		}
		if fv.Summary, err = s.service.Summary(sid, f.ID); err != nil {
			return nil, err
		}
		if fv.Correlation, err = s.service.Correlation(sid, f.ID); err != nil {
			return nil, err
		}
		view.Files = append(view.Files, fv)
	}

	if info.CanMerge {
		merged, err := s.service.MergedPreview(sid, 0)
		if err != nil {
			msg := core.MapError(err)
			view.MergeError = &msg
		} else {
			view.Merged = merged
		}
	}
	return view, nil
}

func (s *Server) redirectToSession(w http.ResponseWriter, r *http.Request, sid, query string) {
	target := "/sessions/" + sid
	if query != "" {
		target += "?" + query
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleCleanForm(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)

	op, err := core.ParseCleanOperation(r.FormValue("operation"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.service.Clean(sid, fid, op); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.redirectToSession(w, r, sid, fmt.Sprintf("done=%s", op))
}

func (s *Server) handleColumnsForm(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)

	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}
	if _, err := s.service.SelectColumns(sid, fid, r.PostForm["columns"]); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.redirectToSession(w, r, sid, "")
}

func (s *Server) handleMergeKeyForm(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)

	if _, err := s.service.SetMergeKey(sid, fid, r.FormValue("column")); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.redirectToSession(w, r, sid, "")
}

func (s *Server) handleDeleteFileForm(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)

	if err := s.service.DeleteFile(sid, fid); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.redirectToSession(w, r, sid, "")
}
