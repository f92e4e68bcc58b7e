package media

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"chatr/internal/common"
)

// HTTPServer serves stored profile photos under /uploads/{filename}.
type HTTPServer struct {
	storage common.BlobStore
	logger  *zap.Logger
}

func NewHTTPServer(storage common.BlobStore, logger *zap.Logger) *HTTPServer {
	return &HTTPServer{
		storage: storage,
		logger:  logger,
	}
}

func (s *HTTPServer) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/uploads/{filename}", s.serveFile).Methods(http.MethodGet, http.MethodHead)
}

func (s *HTTPServer) serveFile(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	reader, info, err := s.storage.Open(r.Context(), filename)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.WriteJSON(w, http.StatusNotFound, common.ErrorResponse{Message: "File not found"})
			return
		}
		s.logger.Error("open blob failed", zap.String("filename", filename), zap.Error(err))
		common.WriteError(w, "Server error", err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", common.ContentTypeForFilename(info.Filename))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Warn("error streaming file", zap.String("filename", filename), zap.Error(err))
	}
}
