package handler

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/response"
	"github.com/stemsi/exstem-quizgen/internal/service"
	"github.com/stemsi/exstem-quizgen/internal/storage"
)

var contentTypes = map[string]string{
	".zip":  "application/zip",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// DownloadHandler serves published bundle files.
type DownloadHandler struct {
	generationService *service.GenerationService
	log               zerolog.Logger
}

// NewDownloadHandler creates a new DownloadHandler.
func NewDownloadHandler(generationService *service.GenerationService, log zerolog.Logger) *DownloadHandler {
	return &DownloadHandler{
		generationService: generationService,
		log:               log.With().Str("component", "download_handler").Logger(),
	}
}

// Download godoc
// GET /api/v1/downloads/:bundle/:filename?token=...
// Streams a published file as an attachment. The token must be a download
// token issued for exactly this file of this bundle.
func (h *DownloadHandler) Download(c *gin.Context) {
	ref := storage.Ref{Bundle: c.Param("bundle"), Name: c.Param("filename")}
	token := c.Query("token")
	if token == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	f, info, err := h.generationService.OpenDownload(c.Request.Context(), ref, token)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			response.Fail(c, http.StatusUnauthorized, response.ErrTokenExpired)
		case errors.Is(err, service.ErrArtifactNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrTokenScope), errors.Is(err, service.ErrWrongTokenType):
			response.Fail(c, http.StatusForbidden, response.ErrTokenInvalid)
		case isTokenError(err):
			response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		default:
			h.log.Error().Err(err).Str("file", ref.String()).Msg("Download failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	defer f.Close()

	if ct, ok := contentTypes[filepath.Ext(info.Name())]; ok {
		c.Header("Content-Type", ct)
	}
	c.Header("Content-Disposition", `attachment; filename="`+info.Name()+`"`)
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func isTokenError(err error) bool {
	return errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) ||
		errors.Is(err, jwt.ErrTokenInvalidClaims) ||
		errors.Is(err, jwt.ErrTokenNotValidYet)
}
