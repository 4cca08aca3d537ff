// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"io"
	"os"

	"golang.org/x/term"
)

// terminal is the keyboard for GETC and IN. When stdin is a terminal it is
// switched to raw mode, so characters arrive without waiting for a newline.
type terminal struct {
	fd    int
	state *term.State
}

func openTerminal() (tm *terminal) {
	tm = &terminal{fd: int(os.Stdin.Fd())}

	if !term.IsTerminal(tm.fd) {
		return
	}

	state, err := term.MakeRaw(tm.fd)
	if err != nil {
		return
	}
	tm.state = state

	return
}

// Raw returns true if stdin is in raw mode.
func (tm *terminal) Raw() bool {
	return tm.state != nil
}

// Read reads from stdin. Raw mode sends CR for Enter; it is translated to LF.
// Raw mode also swallows the interrupt key, so ^C ends the input.
func (tm *terminal) Read(buf []byte) (n int, err error) {
	n, err = os.Stdin.Read(buf)
	if tm.Raw() {
		for i := range n {
			switch buf[i] {
			case '\r':
				buf[i] = '\n'
			case 0x03:
				n = i
				err = io.EOF
				return
			}
		}
	}
	return
}

// Close restores stdin to its previous mode.
func (tm *terminal) Close() {
	if tm.state != nil {
		_ = term.Restore(tm.fd, tm.state)
		tm.state = nil
	}
}
