package cpu

import (
	"errors"

	"github.com/ezrec/lc3/io"
)

// Console is the character device used by the trap service routines.
type Console io.Console

// Result is the outcome of executing one instruction.
type Result int

//go:generate go tool stringer -linecomment -type=Result
const (
	RESULT_CONTINUE = Result(0) // continue
	RESULT_HALT     = Result(1) // halt
	RESULT_ERROR    = Result(2) // error
)

// Executor applies the semantics of a single instruction to a register file
// and memory. It holds no machine state of its own.
type Executor struct {
	Console Console // Trap console; nil makes the console traps no-ops.
}

// readReg reads a register, tagging a bounds failure with the opcode class.
func readReg(rf *RegisterFile, reg Reg, class error) (value uint16, err error) {
	value, err = rf.Read(reg)
	if err != nil {
		err = errors.Join(class, err)
	}
	return
}

// writeResult stores a value producing result and updates the condition code.
func writeResult(rf *RegisterFile, reg Reg, value uint16, class error) (err error) {
	err = rf.Write(reg, value)
	if err != nil {
		err = errors.Join(class, err)
		return
	}
	rf.UpdateConditionCode(value)
	return
}

// Execute executes a single decoded instruction. Any failure returns
// RESULT_ERROR along with an error wrapped in ErrOpcode.
func (ex *Executor) Execute(code Code, mem *Memory, rf *RegisterFile) (result Result, err error) {
	defer func() {
		if err != nil {
			result = RESULT_ERROR
			err = errors.Join(ErrOpcode(code), err)
		}
	}()

	result = RESULT_CONTINUE

	// PC has already been advanced past this instruction.
	pc := rf.Pc()

	switch code.Op() {
	case OP_BR:
		if code.Nzp()&rf.ConditionCode() != 0 {
			rf.SetPc(pc + SignExtend(code.PcOffset9(), PCOFFSET9_BITS))
		}
	case OP_ADD, OP_AND:
		var a, b uint16
		a, err = readReg(rf, code.Sr1(), ErrOpcodeAlu)
		if err != nil {
			return
		}
		if code.ImmFlag() {
			b = SignExtend(code.Imm5(), IMM5_BITS)
		} else {
			b, err = readReg(rf, code.Sr2(), ErrOpcodeAlu)
			if err != nil {
				return
			}
		}
		var value uint16
		if code.Op() == OP_ADD {
			value = a + b
		} else {
			value = a & b
		}
		err = writeResult(rf, code.Dr(), value, ErrOpcodeAlu)
	case OP_NOT:
		var a uint16
		a, err = readReg(rf, code.Sr1(), ErrOpcodeAlu)
		if err != nil {
			return
		}
		err = writeResult(rf, code.Dr(), ^a, ErrOpcodeAlu)
	case OP_LD:
		address := pc + SignExtend(code.PcOffset9(), PCOFFSET9_BITS)
		value, ok := mem.Read(address)
		if !ok {
			err = errors.Join(ErrOpcodeLd, ErrMemoryBounds)
			return
		}
		err = writeResult(rf, code.Dr(), value, ErrOpcodeLd)
	case OP_ST:
		address := pc + SignExtend(code.PcOffset9(), PCOFFSET9_BITS)
		var value uint16
		value, err = readReg(rf, code.Dr(), ErrOpcodeSt)
		if err != nil {
			return
		}
		err = mem.Write(address, value)
		if err != nil {
			err = errors.Join(ErrOpcodeSt, err)
		}
	case OP_LDI:
		pointer := pc + SignExtend(code.PcOffset9(), PCOFFSET9_BITS)
		address, ok := mem.Read(pointer)
		if !ok {
			err = errors.Join(ErrOpcodeLdi, ErrIndirectPointer, ErrMemoryBounds)
			return
		}
		value, ok := mem.Read(address)
		if !ok {
			err = errors.Join(ErrOpcodeLdi, ErrIndirectTarget, ErrMemoryBounds)
			return
		}
		err = writeResult(rf, code.Dr(), value, ErrOpcodeLdi)
	case OP_STI:
		pointer := pc + SignExtend(code.PcOffset9(), PCOFFSET9_BITS)
		var value uint16
		value, err = readReg(rf, code.Dr(), ErrOpcodeSti)
		if err != nil {
			return
		}
		address, ok := mem.Read(pointer)
		if !ok {
			err = errors.Join(ErrOpcodeSti, ErrIndirectPointer, ErrMemoryBounds)
			return
		}
		err = mem.Write(address, value)
		if err != nil {
			err = errors.Join(ErrOpcodeSti, ErrIndirectTarget, err)
		}
	case OP_LDR:
		var base uint16
		base, err = readReg(rf, code.Sr1(), ErrOpcodeLdr)
		if err != nil {
			return
		}
		address := base + SignExtend(code.Offset6(), OFFSET6_BITS)
		value, ok := mem.Read(address)
		if !ok {
			err = errors.Join(ErrOpcodeLdr, ErrMemoryBounds)
			return
		}
		err = writeResult(rf, code.Dr(), value, ErrOpcodeLdr)
	case OP_STR:
		var base, value uint16
		base, err = readReg(rf, code.Sr1(), ErrOpcodeStr)
		if err != nil {
			return
		}
		value, err = readReg(rf, code.Dr(), ErrOpcodeStr)
		if err != nil {
			return
		}
		address := base + SignExtend(code.Offset6(), OFFSET6_BITS)
		err = mem.Write(address, value)
		if err != nil {
			err = errors.Join(ErrOpcodeStr, err)
		}
	case OP_LEA:
		address := pc + SignExtend(code.PcOffset9(), PCOFFSET9_BITS)
		err = writeResult(rf, code.Dr(), address, ErrOpcodeAlu)
	case OP_JMP:
		var target uint16
		target, err = readReg(rf, code.Sr1(), ErrOpcodeJump)
		if err != nil {
			return
		}
		rf.SetPc(target)
	case OP_JSR:
		// The base register is read before R7 is written, so JSRR R7 jumps
		// through the old R7.
		var target uint16
		if code.JsrFlag() {
			target = pc + SignExtend(code.PcOffset11(), PCOFFSET11_BITS)
		} else {
			target, err = readReg(rf, code.Sr1(), ErrOpcodeJump)
			if err != nil {
				return
			}
		}
		err = rf.Write(REG_R7, pc)
		if err != nil {
			err = errors.Join(ErrOpcodeJump, err)
			return
		}
		rf.SetPc(target)
	case OP_TRAP:
		result, err = ex.trap(code.TrapVect(), mem, rf)
	case OP_RTI:
		err = ErrOpcodeRti
	case OP_RES:
		err = ErrOpcodeReserved
	default:
		err = ErrOpcodeUnknown
	}

	return
}
