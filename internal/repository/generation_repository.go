package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-quizgen/internal/model"
)

// GenerationRepository stores the generation history.
type GenerationRepository struct {
	pool *pgxpool.Pool
}

// NewGenerationRepository creates a new GenerationRepository.
func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepository {
	return &GenerationRepository{pool: pool}
}

// Create inserts a generation record. g.ID must already be set.
func (r *GenerationRepository) Create(ctx context.Context, g *model.Generation) error {
	layouts := g.Layouts
	if layouts == nil {
		layouts = []int{}
	}
	files := g.Files
	if files == nil {
		files = []string{}
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO generations
		   (id, operator_id, source_name, class_name, subject_name, questions, versions,
		    seed, shuffle_answers, layouts, status, error_code, files, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING created_at`,
		g.ID, g.OperatorID, g.SourceName, g.ClassName, g.SubjectName, g.Questions, g.Versions,
		g.Seed, g.ShuffleAnswers, layouts, string(g.Status), g.ErrorCode, files, g.DurationMS,
	).Scan(&g.CreatedAt)
}

// ListByOperator returns one page of an operator's history, newest first,
// and the operator's total count.
func (r *GenerationRepository) ListByOperator(ctx context.Context, operatorID, limit, offset int) ([]model.Generation, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM generations WHERE operator_id = $1`, operatorID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, operator_id, source_name, class_name, subject_name, questions, versions,
		        seed, shuffle_answers, layouts, status, error_code, files, duration_ms, created_at
		 FROM generations
		 WHERE operator_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, operatorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var generations []model.Generation
	for rows.Next() {
		var g model.Generation
		var status string
		if err := rows.Scan(&g.ID, &g.OperatorID, &g.SourceName, &g.ClassName, &g.SubjectName,
			&g.Questions, &g.Versions, &g.Seed, &g.ShuffleAnswers, &g.Layouts, &status,
			&g.ErrorCode, &g.Files, &g.DurationMS, &g.CreatedAt); err != nil {
			return nil, 0, err
		}
		g.Status = model.GenerationStatus(status)
		generations = append(generations, g)
	}
	return generations, total, rows.Err()
}
