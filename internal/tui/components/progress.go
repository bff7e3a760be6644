// Package components holds small view components shared by the wizard views.
package components

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/lingoflow/internal/tui/ui"
)

// StepProgress renders "step i of n" as a bar.
type StepProgress struct {
	current int
	total   int
	label   string
	width   int
	styles  ui.Styles
}

// NewStepProgress creates a progress bar for a wizard with total steps.
func NewStepProgress(total int) StepProgress {
	if total < 0 {
		total = 0
	}
	return StepProgress{
		total:  total,
		width:  ui.DefaultProgressBarWidth,
		styles: ui.DefaultStyles(),
	}
}

// Current returns the one-based step number.
func (p StepProgress) Current() int {
	return p.current
}

// Total returns the number of steps.
func (p StepProgress) Total() int {
	return p.total
}

// Percent returns the share of steps reached (0.0 to 1.0).
func (p StepProgress) Percent() float64 {
	if p.total == 0 {
		return 0
	}
	return float64(p.current) / float64(p.total)
}

// SetStep moves to a zero-based step index and names it.
func (p StepProgress) SetStep(index int, label string) StepProgress {
	current := index + 1
	if current < 0 {
		current = 0
	}
	if current > p.total {
		current = p.total
	}
	p.current = current
	p.label = label
	return p
}

// WithWidth sets the bar width.
func (p StepProgress) WithWidth(width int) StepProgress {
	p.width = width
	return p
}

// WithStyles sets the styles.
func (p StepProgress) WithStyles(styles ui.Styles) StepProgress {
	p.styles = styles
	return p
}

// View renders the bar followed by the step counter.
func (p StepProgress) View() string {
	var b strings.Builder

	barWidth := p.width - 2
	if barWidth < 0 {
		barWidth = 0
	}
	filled := int(p.Percent() * float64(barWidth))
	bar := fmt.Sprintf("[%s%s]",
		strings.Repeat("█", filled),
		strings.Repeat("░", barWidth-filled),
	)
	b.WriteString(p.styles.ProgressBar.Render(bar))

	fmt.Fprintf(&b, " Step %d of %d", p.current, p.total)
	if p.label != "" {
		b.WriteString(p.styles.Subtitle.Render(" · " + p.label))
	}
	return b.String()
}
