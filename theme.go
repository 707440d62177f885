package coach

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values.
type Theme struct {
	User      int // User message accent
	Assistant int // Assistant message accent
	Error     int // Errors and failed validation
	Warning   int // Field validation hints
	Success   int // Confirmations
	Muted     int // Status bar, timestamps, placeholders
	Accent    int // Headings, titles, selection
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		User:      4,
		Assistant: 6,
		Error:     1,
		Warning:   3,
		Success:   2,
		Muted:     8,
		Accent:    5,
	}
}
