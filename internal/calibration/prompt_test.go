package calibration

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinePrompterNormalizesInput(t *testing.T) {
	// GIVEN
	prompter := NewLinePrompter(strings.NewReader("  C \nk\n"))

	// WHEN
	first, firstErr := prompter.ReadChoice(time.Second)
	second, secondErr := prompter.ReadChoice(time.Second)

	// THEN
	assert.NoError(t, firstErr)
	assert.Equal(t, "c", first)
	assert.NoError(t, secondErr)
	assert.Equal(t, "k", second)
}

func TestLinePrompterTimesOut(t *testing.T) {
	// GIVEN a reader that never produces a line
	prompter := NewLinePrompter(blockedReader{})

	// WHEN
	_, err := prompter.ReadChoice(10 * time.Millisecond)

	// THEN
	assert.ErrorIs(t, err, ErrPromptTimeout)
}

func TestLinePrompterReportsClosedInput(t *testing.T) {
	// GIVEN
	prompter := NewLinePrompter(strings.NewReader(""))

	// WHEN
	_, err := prompter.ReadChoice(time.Second)

	// THEN
	assert.ErrorIs(t, err, ErrPromptClosed)
}
