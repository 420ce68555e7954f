// Package prompt implements ports.Prompter and ports.Notifier for the HTTP
// API (answers scripted per request) and the terminal.
package prompt

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// Answer is one scripted reply. A zero Answer means the user cancelled.
type Answer struct {
	Text  string
	Given bool
}

// Say returns a given answer.
func Say(text string) Answer { return Answer{Text: text, Given: true} }

// Cancel returns a cancelled answer.
func Cancel() Answer { return Answer{} }

// Of returns a given answer for a non-nil text and a cancelled one otherwise.
func Of(text *string) Answer {
	if text == nil {
		return Cancel()
	}
	return Say(*text)
}

type scriptKey struct{}

type script struct {
	mu      sync.Mutex
	answers []Answer
	asked   []domain.Question
}

// WithAnswers returns a context whose Scripted prompter replies with answers
// in order.
func WithAnswers(ctx context.Context, answers ...Answer) context.Context {
	return context.WithValue(ctx, scriptKey{}, &script{answers: answers})
}

// Asked returns the questions asked so far under ctx.
func Asked(ctx context.Context) []domain.Question {
	s, ok := ctx.Value(scriptKey{}).(*script)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Question, len(s.asked))
	copy(out, s.asked)
	return out
}

// Scripted answers questions from the script carried by the context.
type Scripted struct {
	// Fallback answers questions the script does not cover. Without one
	// they are cancelled.
	Fallback ports.Prompter
}

// Ask pops the next scripted answer.
func (p Scripted) Ask(ctx context.Context, q domain.Question) (string, bool, error) {
	if a, ok := pop(ctx, q); ok {
		return a.Text, a.Given, nil
	}
	if p.Fallback != nil {
		return p.Fallback.Ask(ctx, q)
	}
	slog.DebugContext(ctx, "no scripted answer, treating prompt as cancelled", "question", q.Text)
	return "", false, nil
}

func pop(ctx context.Context, q domain.Question) (Answer, bool) {
	s, ok := ctx.Value(scriptKey{}).(*script)
	if !ok {
		return Answer{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, q)
	if len(s.answers) == 0 {
		return Answer{}, false
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, true
}
