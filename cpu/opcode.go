package cpu

import (
	"fmt"
)

// CodeOp is the 4-bit opcode in bits 15-12 of an instruction.
type CodeOp int

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_BR   = CodeOp(0)  // BR
	OP_ADD  = CodeOp(1)  // ADD
	OP_LD   = CodeOp(2)  // LD
	OP_ST   = CodeOp(3)  // ST
	OP_JSR  = CodeOp(4)  // JSR
	OP_AND  = CodeOp(5)  // AND
	OP_LDR  = CodeOp(6)  // LDR
	OP_STR  = CodeOp(7)  // STR
	OP_RTI  = CodeOp(8)  // RTI
	OP_NOT  = CodeOp(9)  // NOT
	OP_LDI  = CodeOp(10) // LDI
	OP_STI  = CodeOp(11) // STI
	OP_JMP  = CodeOp(12) // JMP
	OP_RES  = CodeOp(13) // RES
	OP_LEA  = CodeOp(14) // LEA
	OP_TRAP = CodeOp(15) // TRAP
)

var _opDescription = [...]string{
	OP_BR:   "Branch - Conditional jump based on condition codes",
	OP_ADD:  "Add - Add two values and store result",
	OP_LD:   "Load - Load value from memory into register",
	OP_ST:   "Store - Store register value to memory",
	OP_JSR:  "Jump to Subroutine - Call a subroutine",
	OP_AND:  "Bitwise AND - Perform bitwise AND operation",
	OP_LDR:  "Load Register - Load from memory using base+offset",
	OP_STR:  "Store Register - Store to memory using base+offset",
	OP_RTI:  "Return from Interrupt - Return from interrupt handler",
	OP_NOT:  "Bitwise NOT - Perform bitwise NOT operation",
	OP_LDI:  "Load Indirect - Load from memory address stored in memory",
	OP_STI:  "Store Indirect - Store to memory address stored in memory",
	OP_JMP:  "Jump - Unconditional jump to register address",
	OP_RES:  "Reserved - Unused opcode",
	OP_LEA:  "Load Effective Address - Load address into register",
	OP_TRAP: "Trap - Execute system call",
}

// Valid returns true if the opcode is one of the 16 defined opcodes.
func (op CodeOp) Valid() bool {
	return op >= OP_BR && op <= OP_TRAP
}

// Description returns a one line summary of the opcode.
func (op CodeOp) Description() string {
	if !op.Valid() {
		return ""
	}
	return _opDescription[op]
}

// CodeTrap is an 8-bit trap vector.
type CodeTrap int

//go:generate go tool stringer -linecomment -type=CodeTrap
const (
	TRAP_GETC  = CodeTrap(0x20) // GETC
	TRAP_OUT   = CodeTrap(0x21) // OUT
	TRAP_PUTS  = CodeTrap(0x22) // PUTS
	TRAP_IN    = CodeTrap(0x23) // IN
	TRAP_PUTSP = CodeTrap(0x24) // PUTSP
	TRAP_HALT  = CodeTrap(0x25) // HALT
)

var _trapDescription = map[CodeTrap]string{
	TRAP_GETC:  "Get character from keyboard (no echo)",
	TRAP_OUT:   "Output character to console",
	TRAP_PUTS:  "Output null-terminated string to console",
	TRAP_IN:    "Get character from keyboard with echo",
	TRAP_PUTSP: "Output string with packed characters",
	TRAP_HALT:  "Halt the program execution",
}

// Valid returns true if the trap vector has a service routine.
func (tv CodeTrap) Valid() bool {
	return tv >= TRAP_GETC && tv <= TRAP_HALT
}

// Description returns a one line summary of the trap service routine.
func (tv CodeTrap) Description() string {
	return _trapDescription[tv]
}

// Field widths of the signed instruction fields.
const (
	IMM5_BITS       = 5
	OFFSET6_BITS    = 6
	PCOFFSET9_BITS  = 9
	PCOFFSET11_BITS = 11
)

// SignExtend extends the two's-complement field of width bits to 16 bits.
func SignExtend(value uint16, bits int) uint16 {
	if bits <= 0 || bits >= 16 {
		return value
	}
	mask := uint16(1)<<bits - 1
	value &= mask
	if (value>>(bits-1))&1 == 1 {
		value |= ^mask
	}
	return value
}

// Code is a single 16-bit instruction word.
type Code uint16

// Op returns the opcode, bits 15-12.
func (code Code) Op() CodeOp {
	return CodeOp(uint16(code) >> 12)
}

// Dr returns the destination (or store source) register, bits 11-9.
func (code Code) Dr() Reg {
	return Reg((uint16(code) >> 9) & 0x7)
}

// Sr1 returns the first source or base register, bits 8-6.
func (code Code) Sr1() Reg {
	return Reg((uint16(code) >> 6) & 0x7)
}

// Sr2 returns the second source register, bits 2-0.
func (code Code) Sr2() Reg {
	return Reg(uint16(code) & 0x7)
}

// ImmFlag returns true if bit 5 selects the immediate form of ADD/AND.
func (code Code) ImmFlag() bool {
	return (uint16(code) & 0x20) != 0
}

// Imm5 returns the raw 5-bit immediate, bits 4-0.
func (code Code) Imm5() uint16 {
	return uint16(code) & 0x1f
}

// Offset6 returns the raw 6-bit base offset, bits 5-0.
func (code Code) Offset6() uint16 {
	return uint16(code) & 0x3f
}

// PcOffset9 returns the raw 9-bit PC offset, bits 8-0.
func (code Code) PcOffset9() uint16 {
	return uint16(code) & 0x1ff
}

// PcOffset11 returns the raw 11-bit PC offset, bits 10-0.
func (code Code) PcOffset11() uint16 {
	return uint16(code) & 0x7ff
}

// Nzp returns the BR condition mask, bits 11-9, aligned with the Flag bits.
func (code Code) Nzp() uint16 {
	return (uint16(code) >> 9) & 0x7
}

// JsrFlag returns true if bit 11 selects the PC-relative JSR form.
func (code Code) JsrFlag() bool {
	return (uint16(code) & 0x800) != 0
}

// TrapVect returns the trap vector, bits 7-0.
func (code Code) TrapVect() CodeTrap {
	return CodeTrap(uint16(code) & 0xff)
}

func field(value int, bits int) uint16 {
	return uint16(value) & (uint16(1)<<bits - 1)
}

func makeCode(op CodeOp, bits uint16) Code {
	return Code((uint16(op) << 12) | (bits & 0x0fff))
}

// MakeCodeBr creates a conditional branch. nzp uses the Flag bit layout.
func MakeCodeBr(nzp uint16, offset int) Code {
	return makeCode(OP_BR, ((nzp&0x7)<<9)|field(offset, PCOFFSET9_BITS))
}

// MakeCodeAdd creates a register form ADD.
func MakeCodeAdd(dr, sr1, sr2 Reg) Code {
	return makeCode(OP_ADD, uint16(dr&7)<<9|uint16(sr1&7)<<6|uint16(sr2&7))
}

// MakeCodeAddImm creates an immediate form ADD.
func MakeCodeAddImm(dr, sr1 Reg, imm int) Code {
	return makeCode(OP_ADD, uint16(dr&7)<<9|uint16(sr1&7)<<6|0x20|field(imm, IMM5_BITS))
}

// MakeCodeAnd creates a register form AND.
func MakeCodeAnd(dr, sr1, sr2 Reg) Code {
	return makeCode(OP_AND, uint16(dr&7)<<9|uint16(sr1&7)<<6|uint16(sr2&7))
}

// MakeCodeAndImm creates an immediate form AND.
func MakeCodeAndImm(dr, sr1 Reg, imm int) Code {
	return makeCode(OP_AND, uint16(dr&7)<<9|uint16(sr1&7)<<6|0x20|field(imm, IMM5_BITS))
}

// MakeCodeNot creates a NOT.
func MakeCodeNot(dr, sr Reg) Code {
	return makeCode(OP_NOT, uint16(dr&7)<<9|uint16(sr&7)<<6|0x3f)
}

// MakeCodePcRelative creates LD, LDI, LEA, ST or STI.
func MakeCodePcRelative(op CodeOp, r Reg, offset int) Code {
	return makeCode(op, uint16(r&7)<<9|field(offset, PCOFFSET9_BITS))
}

// MakeCodeBaseOffset creates LDR or STR.
func MakeCodeBaseOffset(op CodeOp, r, base Reg, offset int) Code {
	return makeCode(op, uint16(r&7)<<9|uint16(base&7)<<6|field(offset, OFFSET6_BITS))
}

// MakeCodeJmp creates a JMP through a base register. JMP R7 is RET.
func MakeCodeJmp(base Reg) Code {
	return makeCode(OP_JMP, uint16(base&7)<<6)
}

// MakeCodeJsr creates a PC-relative subroutine call.
func MakeCodeJsr(offset int) Code {
	return makeCode(OP_JSR, 0x800|field(offset, PCOFFSET11_BITS))
}

// MakeCodeJsrr creates a subroutine call through a base register.
func MakeCodeJsrr(base Reg) Code {
	return makeCode(OP_JSR, uint16(base&7)<<6)
}

// MakeCodeTrap creates a TRAP.
func MakeCodeTrap(vector CodeTrap) Code {
	return makeCode(OP_TRAP, uint16(vector)&0xff)
}

// MakeCodeRti creates an RTI.
func MakeCodeRti() Code {
	return makeCode(OP_RTI, 0)
}

func signed(value uint16, bits int) int {
	return int(int16(SignExtend(value, bits)))
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	op := code.Op()

	switch op {
	case OP_BR:
		nzp := ""
		if code.Nzp()&uint16(FL_NEG) != 0 {
			nzp += "n"
		}
		if code.Nzp()&uint16(FL_ZRO) != 0 {
			nzp += "z"
		}
		if code.Nzp()&uint16(FL_POS) != 0 {
			nzp += "p"
		}
		if len(nzp) == 0 {
			return "NOP"
		}
		out = fmt.Sprintf("BR%v #%d", nzp, signed(code.PcOffset9(), PCOFFSET9_BITS))
	case OP_ADD, OP_AND:
		if code.ImmFlag() {
			out = fmt.Sprintf("%v %v, %v, #%d", op, code.Dr(), code.Sr1(), signed(code.Imm5(), IMM5_BITS))
		} else {
			out = fmt.Sprintf("%v %v, %v, %v", op, code.Dr(), code.Sr1(), code.Sr2())
		}
	case OP_NOT:
		out = fmt.Sprintf("NOT %v, %v", code.Dr(), code.Sr1())
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		out = fmt.Sprintf("%v %v, #%d", op, code.Dr(), signed(code.PcOffset9(), PCOFFSET9_BITS))
	case OP_LDR, OP_STR:
		out = fmt.Sprintf("%v %v, %v, #%d", op, code.Dr(), code.Sr1(), signed(code.Offset6(), OFFSET6_BITS))
	case OP_JMP:
		if code.Sr1() == REG_R7 {
			out = "RET"
		} else {
			out = fmt.Sprintf("JMP %v", code.Sr1())
		}
	case OP_JSR:
		if code.JsrFlag() {
			out = fmt.Sprintf("JSR #%d", signed(code.PcOffset11(), PCOFFSET11_BITS))
		} else {
			out = fmt.Sprintf("JSRR %v", code.Sr1())
		}
	case OP_TRAP:
		vector := code.TrapVect()
		if vector.Valid() {
			out = vector.String()
		} else {
			out = fmt.Sprintf("TRAP x%02X", int(vector))
		}
	default:
		out = op.String()
	}

	return
}
