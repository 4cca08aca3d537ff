package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
)

var _cpu_defines = map[string]string{
	"PC_START":   fmt.Sprintf("0x%x", PC_START),
	"MEMORY_MAX": fmt.Sprintf("0x%x", MEMORY_MAX),
	"FL_POS":     fmt.Sprintf("%v", uint16(FL_POS)),
	"FL_ZRO":     fmt.Sprintf("%v", uint16(FL_ZRO)),
	"FL_NEG":     fmt.Sprintf("%v", uint16(FL_NEG)),
}

// Cpu is the fetch-execute controller. It owns one register file and one
// memory for its lifetime.
type Cpu struct {
	Verbose bool    // Set to enable verbose logging.
	Console Console // Console for the trap service routines.

	Registers RegisterFile // Register bank.
	Memory    Memory       // Main memory.

	running bool   // Set by Initialize, cleared on halt or error.
	ticks   uint64 // Instructions executed since Initialize.
}

// NewCpu creates a new, uninitialized CPU.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Initialize loads a program at start and prepares to execute from it.
// On failure the CPU is left as it was.
func (cpu *Cpu) Initialize(start uint16, program []uint16) (err error) {
	_, err = cpu.Memory.LoadProgram(start, program)
	if err != nil {
		return
	}

	cpu.Registers.SetPc(start)
	cpu.Registers.UpdateConditionCode(0)
	cpu.ticks = 0
	cpu.running = true

	if cpu.Verbose {
		log.Printf("cpu: loaded %d words at 0x%04x", len(program), start)
	}

	return
}

// Step fetches and executes a single instruction. A CPU that is not running
// returns RESULT_HALT and is left unchanged.
func (cpu *Cpu) Step() (result Result, err error) {
	if !cpu.running {
		result = RESULT_HALT
		return
	}

	pc := cpu.Registers.Pc()

	code, err := cpu.Memory.FetchInstruction(&cpu.Registers)
	if err != nil {
		cpu.running = false
		result = RESULT_ERROR
		return
	}

	if cpu.Verbose {
		log.Printf("%04x: %v", pc, code)
	}

	ex := Executor{Console: cpu.Console}
	result, err = ex.Execute(code, &cpu.Memory, &cpu.Registers)

	cpu.ticks++

	switch result {
	case RESULT_HALT:
		cpu.running = false
		if cpu.Verbose {
			log.Printf("cpu: halt at 0x%04x", pc)
		}
	case RESULT_ERROR:
		cpu.running = false
		if cpu.Verbose {
			log.Printf("cpu: 0x%04x: %v", pc, err)
		}
	}

	return
}

// Run steps until the CPU stops running. There is no bound on the number of
// instructions executed; use RunFor when the program may never halt.
func (cpu *Cpu) Run() (err error) {
	for cpu.running {
		_, err = cpu.Step()
		if err != nil {
			return
		}
	}

	return
}

// RunFor steps until the CPU stops running or max instructions have been
// executed.
func (cpu *Cpu) RunFor(max uint64) (err error) {
	for n := uint64(0); cpu.running && n < max; n++ {
		_, err = cpu.Step()
		if err != nil {
			return
		}
	}

	return
}

// Halt stops the CPU. The next Step is a no-op.
func (cpu *Cpu) Halt() {
	cpu.running = false
}

// Reset discards all registers and memory, and clears the run state.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Registers = RegisterFile{}
	cpu.Memory = Memory{}
	cpu.running = false
	cpu.ticks = 0
}

// Running returns true while the CPU accepts Step.
func (cpu *Cpu) Running() bool {
	return cpu.running
}

// InstructionCount returns the number of instructions executed since
// Initialize.
func (cpu *Cpu) InstructionCount() uint64 {
	return cpu.ticks
}

// Pc returns the program counter.
func (cpu *Cpu) Pc() uint16 {
	return cpu.Registers.Pc()
}

// Register returns the value of a register.
func (cpu *Cpu) Register(reg Reg) (value uint16, err error) {
	return cpu.Registers.Read(reg)
}

// SetRegister sets the value of a register.
func (cpu *Cpu) SetRegister(reg Reg, value uint16) (err error) {
	return cpu.Registers.Write(reg, value)
}

// ReadMemory returns the word at address.
func (cpu *Cpu) ReadMemory(address uint16) (value uint16, ok bool) {
	return cpu.Memory.Read(address)
}

// WriteMemory stores a word at address.
func (cpu *Cpu) WriteMemory(address uint16, value uint16) (err error) {
	return cpu.Memory.Write(address, value)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	rf := &cpu.Registers

	text += fmt.Sprintf("% 5s: %04X\n", "pc", rf.Pc())
	for n := REG_R0; n <= REG_R7; n++ {
		text += fmt.Sprintf("% 5s: %04X\n", n.String(), rf.Data[n])
	}

	cond := rf.ConditionCode()
	var flags string
	for _, fl := range []Flag{FL_NEG, FL_ZRO, FL_POS} {
		if fl.IsSetIn(cond) {
			flags += fl.String()
		} else {
			flags += "-"
		}
	}
	text += fmt.Sprintf("% 5s: %04X %v\n", "cond", cond, flags)
	text += fmt.Sprintf("% 5s: %d\n", "ticks", cpu.ticks)
	text += fmt.Sprintf("% 5s: %v\n", "run", cpu.running)

	return
}
