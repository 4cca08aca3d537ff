package cpu

import (
	"errors"
	"strings"
)

// IN_PROMPT is written by the IN trap before reading a character.
const IN_PROMPT = "Enter a character: "

// trap runs the service routine for a trap vector. R7 receives the return
// address once the vector is known to be valid.
func (ex *Executor) trap(vector CodeTrap, mem *Memory, rf *RegisterFile) (result Result, err error) {
	result = RESULT_CONTINUE

	if !vector.Valid() {
		err = errors.Join(ErrOpcodeTrap, ErrTrap(vector))
		return
	}

	err = rf.Write(REG_R7, rf.Pc())
	if err != nil {
		err = errors.Join(ErrOpcodeTrap, err)
		return
	}

	if vector == TRAP_HALT {
		result = RESULT_HALT
		return
	}

	if ex.Console == nil {
		return
	}

	switch vector {
	case TRAP_GETC:
		err = ex.getc(rf, false)
	case TRAP_OUT:
		err = ex.Console.WriteChar(byte(rf.Data[REG_R0]))
	case TRAP_PUTS:
		err = ex.puts(mem, rf, false)
	case TRAP_IN:
		err = ex.Console.WriteString(IN_PROMPT)
		if err == nil {
			err = ex.getc(rf, true)
		}
	case TRAP_PUTSP:
		err = ex.puts(mem, rf, true)
	}

	if err != nil && !errors.Is(err, ErrMemoryBounds) {
		err = errors.Join(ErrConsole, err)
	}
	if err != nil {
		err = errors.Join(ErrOpcodeTrap, err)
	}

	return
}

// getc reads one character into R0, optionally echoing it.
func (ex *Executor) getc(rf *RegisterFile, echo bool) (err error) {
	ch, err := ex.Console.ReadChar()
	if err != nil {
		return
	}

	if echo {
		err = ex.Console.WriteChar(ch)
		if err != nil {
			return
		}
	}

	rf.Data[REG_R0] = uint16(ch)
	return
}

// puts writes the zero terminated string at R0. Packed strings hold two
// characters per word, low byte first.
func (ex *Executor) puts(mem *Memory, rf *RegisterFile, packed bool) (err error) {
	var text strings.Builder

	address := rf.Data[REG_R0]
	for range MEMORY_MAX {
		value, ok := mem.Read(address)
		if !ok {
			err = ErrMemoryBounds
			return
		}
		if value == 0 {
			break
		}
		text.WriteByte(byte(value & 0xff))
		if packed && (value>>8) != 0 {
			text.WriteByte(byte(value >> 8))
		}
		address++
	}

	err = ex.Console.WriteString(text.String())
	return
}
