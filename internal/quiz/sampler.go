package quiz

import (
	"github.com/stemsi/exstem-quizgen/internal/model"
)

// Sample draws n rows from t for one exam version.
//
// Without a category column the rows are drawn uniformly without replacement.
// With one, every category first contributes one row, the remainder is drawn
// from the rows not yet chosen, and the result is shuffled so the grouping is
// not visible. Every draw takes its own source from seeder.
func Sample(t *model.Table, n int, seeder *Seeder) ([]model.Question, error) {
	if n < 1 {
		return nil, ErrInvalidCount
	}
	if n > t.Len() {
		return nil, &InsufficientQuestionsError{Requested: n, Available: t.Len()}
	}

	if !t.HasCategory {
		picked := seeder.Next().Perm(t.Len())[:n]
		return cloneRows(t.Questions, picked), nil
	}

	categories := t.Categories()
	if n < len(categories) {
		return nil, &CategoryCoverageError{Requested: n, Categories: len(categories)}
	}

	pools := make(map[string][]int, len(categories))
	for i, q := range t.Questions {
		pools[q.Category] = append(pools[q.Category], i)
	}

	chosen := make(map[int]struct{}, n)
	picked := make([]int, 0, n)
	for _, cat := range categories {
		pool := pools[cat]
		if len(pool) == 0 {
			return nil, &InsufficientQuestionsError{Requested: 1, Available: 0, Category: cat}
		}
		idx := pool[seeder.Next().IntN(len(pool))]
		chosen[idx] = struct{}{}
		picked = append(picked, idx)
	}

	if rest := n - len(categories); rest > 0 {
		remaining := make([]int, 0, t.Len()-len(picked))
		for i := range t.Questions {
			if _, ok := chosen[i]; !ok {
				remaining = append(remaining, i)
			}
		}
		if len(remaining) < rest {
			return nil, &InsufficientQuestionsError{Requested: rest, Available: len(remaining)}
		}
		for _, j := range seeder.Next().Perm(len(remaining))[:rest] {
			picked = append(picked, remaining[j])
		}
	}

	r := seeder.Next()
	r.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	return cloneRows(t.Questions, picked), nil
}

func cloneRows(rows []model.Question, idx []int) []model.Question {
	out := make([]model.Question, len(idx))
	for i, j := range idx {
		out[i] = rows[j].Clone()
	}
	return out
}
