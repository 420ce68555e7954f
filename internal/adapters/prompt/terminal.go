package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// Terminal asks questions on a line-oriented terminal. End of input cancels.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a Terminal prompter.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Ask prints q and reads one line. An empty line selects q.Default when set.
func (t *Terminal) Ask(ctx context.Context, q domain.Question) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if q.Default != "" {
		fmt.Fprintf(t.out, "%s [%s] ", q.Text, q.Default)
	} else {
		fmt.Fprintf(t.out, "%s ", q.Text)
	}

	s, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, fmt.Errorf("read answer: %w", err)
	}
	if errors.Is(err, io.EOF) && s == "" {
		return "", false, nil
	}
	answer := strings.TrimRight(s, "\r\n")
	if answer == "" && q.Default != "" {
		answer = q.Default
	}
	return answer, true, nil
}

// WriterNotifier prints acknowledgements on a writer.
type WriterNotifier struct {
	W io.Writer
}

// Notify prints message on its own line.
func (n WriterNotifier) Notify(_ context.Context, message string) error {
	_, err := fmt.Fprintln(n.W, message)
	return err
}
