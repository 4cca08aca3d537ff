// Package io provides console implementations for the LC-3 trap service
// routines. A Console is byte oriented: GETC and IN read one character, and
// OUT, PUTS, IN and PUTSP write characters or strings.
package io

// Console defines the interface for the character device used by the trap
// service routines.
type Console interface {
	// ReadChar blocks until a character is available.
	ReadChar() (ch byte, err error)
	// WriteChar writes a single character.
	WriteChar(ch byte) error
	// WriteString writes a string of characters.
	WriteString(str string) error
}
