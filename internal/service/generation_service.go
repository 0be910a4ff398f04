package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/bundle"
	"github.com/stemsi/exstem-quizgen/internal/config"
	"github.com/stemsi/exstem-quizgen/internal/model"
	"github.com/stemsi/exstem-quizgen/internal/quiz"
	"github.com/stemsi/exstem-quizgen/internal/response"
	"github.com/stemsi/exstem-quizgen/internal/sheet"
	"github.com/stemsi/exstem-quizgen/internal/storage"
)

// Sentinel errors for uploads and downloads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrArtifactNotFound    = errors.New("file not found or expired")
)

// allowedExtensions lists accepted spreadsheet formats.
var allowedExtensions = map[string]bool{
	".xlsx": true,
}

// DownloadPath is the route prefix of signed download links.
const DownloadPath = "/api/v1/downloads/"

// GenerationStore persists the generation history.
type GenerationStore interface {
	Create(ctx context.Context, g *model.Generation) error
	ListByOperator(ctx context.Context, operatorID, limit, offset int) ([]model.Generation, int, error)
}

// ArtifactRegistry tracks which published files may still be downloaded.
type ArtifactRegistry interface {
	Register(ctx context.Context, refs []storage.Ref, ttl time.Duration) error
	Exists(ctx context.Context, ref storage.Ref) (bool, error)
}

// Upload is the spreadsheet part of a generation request.
type Upload struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// GenerationResult is returned to the operator after a successful request.
type GenerationResult struct {
	Generation *model.Generation `json:"generation"`
	Downloads  []model.Download  `json:"downloads"`
}

// GenerationService runs the upload → bundle → publish flow.
type GenerationService struct {
	cfg         *config.Config
	assembler   *bundle.Assembler
	store       *storage.Store
	generations GenerationStore
	artifacts   ArtifactRegistry
	auth        *AuthService
	log         zerolog.Logger
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(
	cfg *config.Config,
	assembler *bundle.Assembler,
	store *storage.Store,
	generations GenerationStore,
	artifacts ArtifactRegistry,
	auth *AuthService,
	log zerolog.Logger,
) *GenerationService {
	return &GenerationService{
		cfg:         cfg,
		assembler:   assembler,
		store:       store,
		generations: generations,
		artifacts:   artifacts,
		auth:        auth,
		log:         log.With().Str("component", "generation_service").Logger(),
	}
}

// Generate validates the upload, assembles the bundle and records the outcome.
// Every call leaves a history row, whatever the outcome.
func (s *GenerationService) Generate(ctx context.Context, operatorID int, upload Upload, req bundle.Request) (*GenerationResult, error) {
	start := time.Now()
	gen := &model.Generation{
		ID:             uuid.New().String(),
		OperatorID:     operatorID,
		SourceName:     filepath.Base(upload.Header.Filename),
		ClassName:      req.ClassName,
		SubjectName:    req.SubjectName,
		Questions:      req.Questions,
		Versions:       req.Versions,
		Seed:           req.Seed,
		ShuffleAnswers: req.ShuffleAnswers,
		Layouts:        req.Layouts,
	}

	// The generation ID doubles as the bundle directory, so requests with
	// identical parameters never share published files.
	req.Bundle = gen.ID
	result, err := s.generate(ctx, upload, req)
	gen.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		code := ErrorCode(err)
		gen.ErrorCode = string(code)
		gen.Status = model.GenerationRejected
		if code == response.ErrInternal {
			gen.Status = model.GenerationFailed
		}
		s.record(ctx, gen)

		event, msg := s.log.Warn(), "Generation rejected"
		if gen.Status == model.GenerationFailed {
			event, msg = s.log.Error(), "Generation failed"
		}
		event.Err(err).
			Str("generation_id", gen.ID).
			Str("error_code", gen.ErrorCode).
			Msg(msg)
		return nil, err
	}

	gen.Status = model.GenerationSucceeded
	gen.Files = result.Files()
	gen.Layouts = result.Layouts

	refs := result.Refs()
	if err := s.artifacts.Register(ctx, refs, s.cfg.OutputTTL); err != nil {
		// Unregistered files can never be downloaded.
		if rmErr := s.store.RemoveBundle(result.Bundle); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("bundle", result.Bundle).Msg("Failed to remove unregistered bundle")
		}
		gen.Status, gen.ErrorCode, gen.Files = model.GenerationFailed, string(response.ErrInternal), nil
		s.record(ctx, gen)
		return nil, fmt.Errorf("register outputs: %w", err)
	}
	s.record(ctx, gen)

	downloads := make([]model.Download, 0, len(refs))
	for _, ref := range refs {
		token, expires, err := s.auth.GenerateDownloadToken(operatorID, ref)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, model.Download{
			Filename:  ref.Name,
			URL:       DownloadURL(ref, token),
			ExpiresAt: expires,
		})
	}

	s.log.Info().
		Str("generation_id", gen.ID).
		Int("operator_id", operatorID).
		Int("questions", req.Questions).
		Int("versions", req.Versions).
		Int64("duration_ms", gen.DurationMS).
		Msg("Generation succeeded")

	return &GenerationResult{Generation: gen, Downloads: downloads}, nil
}

func (s *GenerationService) generate(ctx context.Context, upload Upload, req bundle.Request) (*bundle.Result, error) {
	path, err := s.saveUpload(upload)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", path).Msg("Failed to remove upload")
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	table, err := sheet.ReadTable(f)
	if err != nil {
		return nil, err
	}
	return s.assembler.Assemble(ctx, table, req)
}

// CheckUploadName rejects files whose extension is not an accepted
// spreadsheet format.
func CheckUploadName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %q (allowed: .xlsx)", ErrUnsupportedFileType, ext)
	}
	return nil
}

// saveUpload stores the spreadsheet under a UUID name and returns its path.
func (s *GenerationService) saveUpload(upload Upload) (string, error) {
	if err := CheckUploadName(upload.Header.Filename); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(upload.Header.Filename))
	if upload.Header.Size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, upload.Header.Size, s.cfg.MaxUploadBytes)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	destPath := filepath.Join(s.cfg.UploadDir, uuid.New().String()+ext)
	dst, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, upload.File); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("write file: %w", err)
	}
	return destPath, nil
}

func (s *GenerationService) record(ctx context.Context, gen *model.Generation) {
	if err := s.generations.Create(ctx, gen); err != nil {
		s.log.Error().Err(err).Str("generation_id", gen.ID).Msg("Failed to record generation")
	}
}

// List returns one page of an operator's history.
func (s *GenerationService) List(ctx context.Context, operatorID, page, perPage int) ([]model.Generation, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	generations, total, err := s.generations.ListByOperator(ctx, operatorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if generations == nil {
		generations = []model.Generation{}
	}

	return generations, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

// DownloadURL is the signed link for one published file.
func DownloadURL(ref storage.Ref, token string) string {
	return DownloadPath + url.PathEscape(ref.Bundle) + "/" + url.PathEscape(ref.Name) + "?token=" + url.QueryEscape(token)
}

// OpenDownload checks a download token and opens the published file.
func (s *GenerationService) OpenDownload(ctx context.Context, ref storage.Ref, token string) (*os.File, os.FileInfo, error) {
	if _, err := s.auth.ValidateDownloadToken(token, ref); err != nil {
		return nil, nil, err
	}

	ok, err := s.artifacts.Exists(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrArtifactNotFound
	}

	f, info, err := s.store.Open(ref)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidName) {
			return nil, nil, ErrArtifactNotFound
		}
		return nil, nil, err
	}
	return f, info, nil
}

// ErrorCode maps a generation error to its API error code.
func ErrorCode(err error) response.ErrCode {
	var (
		schemaErr       *quiz.SchemaError
		insufficientErr *quiz.InsufficientQuestionsError
		coverageErr     *quiz.CategoryCoverageError
	)
	switch {
	case errors.As(err, &schemaErr):
		return response.ErrSchemaInvalid
	case errors.As(err, &insufficientErr):
		return response.ErrInsufficientQuestions
	case errors.As(err, &coverageErr):
		return response.ErrCategoryCoverage
	case errors.Is(err, quiz.ErrInvalidCount),
		errors.Is(err, bundle.ErrInvalidVersions),
		errors.Is(err, bundle.ErrInvalidLayout):
		return response.ErrValidation
	case errors.Is(err, ErrUnsupportedFileType), errors.Is(err, sheet.ErrUnreadableWorkbook):
		return response.ErrUnsupportedFile
	case errors.Is(err, ErrFileTooLarge):
		return response.ErrFileTooLarge
	default:
		return response.ErrInternal
	}
}
