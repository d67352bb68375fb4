package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

type healthResponse struct {
	Status   string                   `json:"status"`
	Sessions int                      `json:"sessions"`
	Uploads  core.UploadLimiterStatus `json:"uploads"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: s.service.SessionCount(),
		Uploads:  s.service.Limiter().Status(),
	})
}

type formatResponse struct {
	Key   string `json:"key"`
	Ext   string `json:"ext"`
	MIME  string `json:"mime"`
	Label string `json:"label"`
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	defs := core.Formats()
	out := make([]formatResponse, len(defs))
	for i, d := range defs {
		out[i] = formatResponse{Key: d.Key, Ext: d.Ext, MIME: d.MIME, Label: d.Label}
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusCreated, s.service.CreateSession())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sid, _ := ids(r)
	info, err := s.service.GetSession(sid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sid, _ := ids(r)
	if err := s.service.DeleteSession(sid); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload loads the files of a multipart upload into the session.
// Responds 200 when at least one file loaded and 400 when none did; both
// carry the per-file errors.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sid, _ := ids(r)
	res, err := s.uploadFromRequest(w, r, sid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(res.Files) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, r, status, res)
}

// uploadFromRequest reads the "files" parts of a multipart request and
// uploads them into the session.
func (s *Server) uploadFromRequest(w http.ResponseWriter, r *http.Request, sid string) (*core.UploadResult, error) {
	maxBody := s.cfg.Upload.MaxFileSize*int64(s.cfg.Session.MaxFiles) + multipartMemory
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: request body over %d bytes", core.ErrFileTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: multipart form: %v", errInvalidRequest, err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, core.ErrNoFiles
	}

	inputs := make([]core.UploadInput, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		inputs = append(inputs, core.UploadInput{Name: fh.Filename, Size: fh.Size, Reader: f})
	}

	return s.service.Upload(r.Context(), sid, inputs)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)
	info, err := s.service.GetFile(sid, fid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	sid, fid := ids(r)
	if err := s.service.DeleteFile(sid, fid); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
