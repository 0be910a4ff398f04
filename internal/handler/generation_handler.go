package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/bundle"
	"github.com/stemsi/exstem-quizgen/internal/middleware"
	"github.com/stemsi/exstem-quizgen/internal/model"
	"github.com/stemsi/exstem-quizgen/internal/quiz"
	"github.com/stemsi/exstem-quizgen/internal/response"
	"github.com/stemsi/exstem-quizgen/internal/service"
	"github.com/stemsi/exstem-quizgen/internal/validator"
)

// GenerationHandler handles exam generation endpoints.
type GenerationHandler struct {
	generationService *service.GenerationService
	maxVersions       int
	log               zerolog.Logger
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(generationService *service.GenerationService, maxVersions int, log zerolog.Logger) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		maxVersions:       maxVersions,
		log:               log.With().Str("component", "generation_handler").Logger(),
	}
}

// CreateGeneration godoc
// POST /api/v1/generations
// Accepts a spreadsheet upload and generation parameters, returns signed
// links to the regular archive, the highlighted archive and the answer key.
func (h *GenerationHandler) CreateGeneration(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	file, header, err := c.Request.FormFile("excelFile")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if err := service.CheckUploadName(header.Filename); err != nil {
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrUnsupportedFile, err.Error())
		return
	}

	var form model.GenerateRequest
	if fields := validator.BindForm(c, &form); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if h.maxVersions > 0 && form.NumVersions > h.maxVersions {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"numVersions": fmt.Sprintf("numVersions must be %d or less", h.maxVersions),
		})
		return
	}
	layouts, err := parseLayouts(form.Layouts)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"layouts": err.Error(),
		})
		return
	}

	req := bundle.Request{
		Questions:      form.NumQuestions,
		Versions:       form.NumVersions,
		Seed:           form.Seed,
		ShuffleAnswers: form.ShuffleAnswers,
		ClassName:      strings.TrimSpace(form.ClassName),
		SubjectName:    strings.TrimSpace(form.SubjectName),
		Layouts:        layouts,
		AnswerKey:      form.AnswerKey == nil || *form.AnswerKey,
	}

	result, err := h.generationService.Generate(c.Request.Context(), claims.UserID,
		service.Upload{File: file, Header: header}, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// ListGenerations godoc
// GET /api/v1/generations?page=1&per_page=10
// Returns the caller's generation history, newest first.
func (h *GenerationHandler) ListGenerations(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	generations, pagination, err := h.generationService.List(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		h.log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("List generations failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"generations": generations}, pagination)
}

func (h *GenerationHandler) fail(c *gin.Context, err error) {
	code := service.ErrorCode(err)

	var schemaErr *quiz.SchemaError
	switch {
	case code == response.ErrInternal:
		h.log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Generation failed")
		response.Fail(c, http.StatusInternalServerError, code)
	case errors.As(err, &schemaErr):
		response.FailWithProblems(c, http.StatusBadRequest, code, schemaErr.Problems)
	case code == response.ErrFileTooLarge:
		response.FailWithDetail(c, http.StatusRequestEntityTooLarge, code, err.Error())
	default:
		response.FailWithDetail(c, http.StatusBadRequest, code, err.Error())
	}
}

// parseLayouts reads "2", "1,2" or "" into column counts.
func parseLayouts(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var layouts []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || (n != 1 && n != 2) {
			return nil, fmt.Errorf("layouts must be a comma-separated list of 1 and 2, got %q", raw)
		}
		layouts = append(layouts, n)
	}
	return layouts, nil
}
