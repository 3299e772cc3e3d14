package adapthttp

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"photoshare/internal/adapter/blob"
	"photoshare/internal/app"
	"photoshare/internal/domain"

	"github.com/go-chi/chi/v5"
)

const (
	multipartMemory = 1 << 20
	// formOverhead leaves room for multipart framing and the description field.
	formOverhead = 64 << 10
)

var errNoPhoto = domain.Validation("No photo uploaded")

func (s *Server) handlePhotosOfUser(w http.ResponseWriter, r *http.Request) {
	photos, err := s.photos.PhotosOfUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photos)
}

func (s *Server) handleCommentsOfUser(w http.ResponseWriter, r *http.Request) {
	comments, err := s.photos.CommentsOfUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	author, ok := sessionUser(r)
	if !ok {
		s.writeError(w, r, domain.ErrNotLoggedIn)
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := parseJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	comment, err := s.photos.AddComment(r.Context(), chi.URLParam(r, "photoID"), author, req.Comment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner, ok := sessionUser(r)
	if !ok {
		s.writeError(w, r, domain.ErrNotLoggedIn)
		return
	}

	tooLarge := domain.Validation(fmt.Sprintf("File too large. Maximum size is %dMB.", s.opts.MaxUploadBytes>>20))

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.writeError(w, r, tooLarge)
			return
		}
		s.writeError(w, r, errNoPhoto)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, hdr, err := r.FormFile("photo")
	if err != nil {
		s.writeError(w, r, errNoPhoto)
		return
	}
	defer file.Close() //nolint:errcheck

	if hdr.Size > s.opts.MaxUploadBytes {
		s.writeError(w, r, tooLarge)
		return
	}

	contentType := hdr.Header.Get("Content-Type")
	var body io.Reader = file
	if contentType == "" || contentType == "application/octet-stream" {
		contentType, body, err = blob.DetectContentType(file)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	photo, err := s.photos.Upload(r.Context(), owner, app.UploadInput{
		OriginalName: hdr.Filename,
		ContentType:  contentType,
		Size:         hdr.Size,
		Body:         body,
		Description:  r.FormValue("description"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := s.photos.OpenImage(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, domain.ErrBlobNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close() //nolint:errcheck

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.log.WithError(err).Debug("image stream interrupted")
	}
}
