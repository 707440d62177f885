package bubbletea

import "github.com/fwojciec/coach"

// ChatRow exports chatRow for testing.
func ChatRow(c coach.ChatSession, selected bool, width int, styles Styles) string {
	return chatRow(c, selected, width, styles)
}

// FirstValidationMessage exports firstValidationMessage for testing.
func FirstValidationMessage(err error) string {
	return firstValidationMessage(err)
}
