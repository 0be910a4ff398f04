package quiz

import (
	"github.com/stemsi/exstem-quizgen/internal/model"
)

// ShuffleOptions permutes the four option slots of every question and moves
// the answer label to wherever the correct text landed. Each row consumes one
// draw from seeder, in order.
//
// The correct slot is found by text: when two options share the same text the
// first matching slot (A to D) is labelled correct.
func ShuffleOptions(questions []model.Question, seeder *Seeder) []model.Question {
	out := make([]model.Question, len(questions))
	for i, q := range questions {
		out[i] = shuffleRow(q.Clone(), seeder.Next().Perm(len(q.Options)))
	}
	return out
}

func shuffleRow(q model.Question, perm []int) model.Question {
	correct := q.CorrectOption().Text

	var shuffled [4]model.Option
	for slot, from := range perm {
		shuffled[slot] = q.Options[from]
	}
	q.Options = shuffled

	for slot, opt := range q.Options {
		if opt.Text == correct {
			q.Answer = model.OptionKeys[slot]
			break
		}
	}
	return q
}
