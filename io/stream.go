package io

import (
	"io"
	"strings"
)

// Stream provides console operations over byte streams.
// It wraps an io.Reader for keyboard input and an io.Writer for display
// output.
type Stream struct {
	Input  io.Reader
	Output io.Writer
	Crlf   bool // If set, '\n' is written as "\r\n" for raw terminals.
}

var _ Console = &Stream{}

// ReadChar reads a single byte from the input stream.
func (st *Stream) ReadChar() (ch byte, err error) {
	if st.Input == nil {
		err = ErrInputEmpty
		return
	}

	var one [1]byte
	for {
		var n int
		n, err = st.Input.Read(one[:])
		if n == 1 {
			ch = one[0]
			err = nil
			return
		}
		if err != nil {
			return
		}
	}
}

// WriteChar writes a single byte to the output stream.
func (st *Stream) WriteChar(ch byte) (err error) {
	if st.Output == nil {
		return
	}

	if ch == '\n' && st.Crlf {
		_, err = st.Output.Write([]byte{'\r', '\n'})
		return
	}

	_, err = st.Output.Write([]byte{ch})
	return
}

// WriteString writes a string to the output stream.
func (st *Stream) WriteString(str string) (err error) {
	if st.Output == nil {
		return
	}

	if st.Crlf {
		str = strings.ReplaceAll(str, "\n", "\r\n")
	}

	_, err = io.WriteString(st.Output, str)
	return
}
