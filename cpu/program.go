package cpu

import (
	"encoding/binary"
	"io"
	"iter"
)

// Opcode represents a line of assembled code with its source location and
// generated words.
type Opcode struct {
	LineNo    int
	Pc        int
	Words     []string
	Codes     []Code
	LinkLabel string // Label to resolve into the last code.
	LinkBits  int    // PC offset width for LinkLabel; 0 for an absolute word.
}

// Program is an assembled, contiguous image starting at Origin.
type Program struct {
	Origin  uint16
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the source line that generated the word at pc.
func (prog *Program) Debug(pc uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(pc) >= op.Pc && int(pc) < op.Pc+len(op.Codes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(pc) - op.Pc,
			}
			break
		}
	}

	return
}

// Codes iterates over every generated word and its address.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(pc uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				if !yield(uint16(op.Pc+n), code) {
					return
				}
			}
		}
	}
}

// Binary returns the image words, in address order from Origin.
func (prog *Program) Binary() (bins []uint16) {
	for _, code := range prog.Codes() {
		bins = append(bins, uint16(code))
	}

	return
}

// WriteObject writes the image in object format: big-endian words, with the
// origin first.
func (prog *Program) WriteObject(w io.Writer) (err error) {
	words := append([]uint16{prog.Origin}, prog.Binary()...)
	err = binary.Write(w, binary.BigEndian, words)
	return
}

// ReadObject reads an object format image. Each word becomes its own Opcode,
// without source information.
func ReadObject(r io.Reader) (prog *Program, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}

	if len(data) < 2 {
		err = ErrObjectEmpty
		return
	}

	if len(data)%2 != 0 {
		err = ErrObjectOdd
		return
	}

	prog = &Program{
		Origin: binary.BigEndian.Uint16(data),
	}

	pc := int(prog.Origin)
	for n := 2; n < len(data); n += 2 {
		code := Code(binary.BigEndian.Uint16(data[n:]))
		prog.Opcodes = append(prog.Opcodes, Opcode{
			Pc:    pc,
			Codes: []Code{code},
		})
		pc++
	}

	return
}
