package calibration

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrPromptTimeout marks an expired input wait. The caller treats it
	// like an explicit skip but reports it distinctly.
	ErrPromptTimeout = errors.New("prompt timed out")
	// ErrPromptClosed marks an exhausted input source.
	ErrPromptClosed = errors.New("prompt input closed")
)

// Prompter supplies operator choices with a bounded wait.
type Prompter interface {
	ReadChoice(timeout time.Duration) (string, error)
}

// LinePrompter reads trimmed, lower-cased lines from a reader through a
// background goroutine, so a line typed just after a timeout is not lost
// for the next prompt.
type LinePrompter struct {
	lines chan string
}

func NewLinePrompter(reader io.Reader) *LinePrompter {
	p := &LinePrompter{
		lines: make(chan string),
	}
	go func() {
		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			p.lines <- strings.ToLower(strings.TrimSpace(scanner.Text()))
		}
		close(p.lines)
	}()
	return p
}

func (p *LinePrompter) ReadChoice(timeout time.Duration) (string, error) {
	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", ErrPromptClosed
		}
		return line, nil
	case <-time.After(timeout):
		return "", ErrPromptTimeout
	}
}
