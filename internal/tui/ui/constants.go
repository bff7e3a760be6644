package ui

// Default component dimensions.
const (
	// DefaultWidth is the assumed terminal width before the first resize.
	DefaultWidth = 80

	// DefaultHeight is the assumed terminal height before the first resize.
	DefaultHeight = 24

	// DefaultInputWidth is the width of text inputs.
	DefaultInputWidth = 40

	// DefaultProgressBarWidth is the default width for progress bars.
	DefaultProgressBarWidth = 40

	// DefaultCharLimit is the character limit for free text inputs.
	DefaultCharLimit = 120
)
