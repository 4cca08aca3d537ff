package cpu

import (
	"errors"
	"iter"
)

// MEMORY_MAX is the number of words in the address space.
const MEMORY_MAX = 1 << 16

// PC_START is the conventional load address for user programs.
const PC_START = uint16(0x3000)

// Memory is the word addressable store.
type Memory struct {
	Data [MEMORY_MAX]uint16
}

// inBounds is always true while addresses are 16 bits wide.
func (mem *Memory) inBounds(address uint16) bool {
	return int(address) < len(mem.Data)
}

// Read returns the word at address.
func (mem *Memory) Read(address uint16) (value uint16, ok bool) {
	if !mem.inBounds(address) {
		return
	}
	return mem.Data[address], true
}

// Write stores a word at address.
func (mem *Memory) Write(address uint16, value uint16) (err error) {
	if !mem.inBounds(address) {
		err = ErrMemoryBounds
		return
	}
	mem.Data[address] = value
	return
}

// LoadProgram copies words into memory starting at start. Nothing is
// written if the program would run past the top of the address space.
func (mem *Memory) LoadProgram(start uint16, words []uint16) (n int, err error) {
	if int(start)+len(words) > len(mem.Data) {
		err = ErrProgramTooLarge
		return
	}

	n = copy(mem.Data[start:], words)
	return
}

// FetchInstruction reads the word at PC and, only if the read succeeds,
// advances PC.
func (mem *Memory) FetchInstruction(rf *RegisterFile) (code Code, err error) {
	value, ok := mem.Read(rf.Pc())
	if !ok {
		err = errors.Join(ErrFetch, ErrMemoryBounds)
		return
	}
	rf.IncrementPc()
	code = Code(value)
	return
}

// Slice returns a view of up to length words from start, clamped to the
// address space.
func (mem *Memory) Slice(start int, length int) []uint16 {
	if start < 0 || length <= 0 || start >= len(mem.Data) {
		return nil
	}
	end := min(start+length, len(mem.Data))
	return mem.Data[start:end:end]
}

// Words iterates over the address and value of up to length words from start.
func (mem *Memory) Words(start int, length int) iter.Seq2[uint16, uint16] {
	return func(yield func(address uint16, value uint16) bool) {
		for n, value := range mem.Slice(start, length) {
			if !yield(uint16(start+n), value) {
				return
			}
		}
	}
}

// Reset zeros all of memory.
func (mem *Memory) Reset() {
	clear(mem.Data[:])
}
