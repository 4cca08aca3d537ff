// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/internal"
	"github.com/ezrec/lc3/io"
)

var _emulator_defines = map[string]string{}

func init() {
	for tv := cpu.TRAP_GETC; tv <= cpu.TRAP_HALT; tv++ {
		_emulator_defines["TRAP_"+tv.String()] = fmt.Sprintf("0x%02x", int(tv))
	}
}

// Emulator state. CPU + program listing + console.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Stream io.Stream // Console stream for the trap service routines.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{Origin: cpu.PC_START},
	}

	emu.Cpu.Console = &emu.Stream

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset discards all machine state and loads the program.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	err = emu.Cpu.Initialize(emu.Program.Origin, emu.Program.Binary())
	if err != nil {
		err = &ErrRuntime{Pc: int(emu.Program.Origin), Err: err}
		return
	}

	return
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() uint64 {
	return emu.Cpu.InstructionCount()
}

// Code returns the instruction word at the current PC.
func (emu *Emulator) Code() cpu.Code {
	value, _ := emu.Cpu.ReadMemory(emu.Cpu.Pc())
	return cpu.Code(value)
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc())
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator. done is set once the
// CPU has stopped, either by a HALT or by an error.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if !emu.Cpu.Running() {
		done = true
		return
	}

	pc := emu.Cpu.Pc()
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Pc: int(pc), Err: err}
		}
	}()

	result, err := emu.Cpu.Step()
	done = result != cpu.RESULT_CONTINUE

	return
}

// Run ticks until the CPU stops, or until limit instructions have been
// executed. A limit of 0 is unbounded. done is false if the limit was
// reached first.
func (emu *Emulator) Run(limit uint64) (done bool, err error) {
	for n := uint64(0); limit == 0 || n < limit; n++ {
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}

	done = !emu.Cpu.Running()
	return
}

// Describe returns a short analysis of the instruction word at address.
func (emu *Emulator) Describe(address uint16) (text string) {
	value, _ := emu.Cpu.ReadMemory(address)
	code := cpu.Code(value)
	op := code.Op()

	text += fmt.Sprintf("Instruction: 0x%04X\n", value)
	text += fmt.Sprintf("Opcode: %d\n", int(op))
	text += fmt.Sprintf("Operation: %v - %v\n", op, op.Description())
	if op == cpu.OP_TRAP {
		tv := code.TrapVect()
		if tv.Valid() {
			text += fmt.Sprintf("Trap: %v - %v\n", tv, tv.Description())
		} else {
			text += fmt.Sprintf("Trap: 0x%02X unknown\n", int(tv))
		}
	}
	text += fmt.Sprintf("Assembly: %v\n", code)

	dbg := emu.Program.Debug(address)
	if dbg.Opcode != nil && dbg.LineNo != 0 {
		text += fmt.Sprintf("Source: line %d\n", dbg.LineNo)
	}

	return
}
