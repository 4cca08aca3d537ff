package cpu

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrMemoryBounds    = errors.New(f("memory access out of bounds"))
	ErrRegisterBounds  = errors.New(f("register access out of bounds"))
	ErrProgramTooLarge = errors.New(f("program exceeds address space"))
	ErrFetch           = errors.New(f("instruction fetch failed"))
	ErrConsole         = errors.New(f("console"))

	// Instruction execution errors
	ErrOpcodeUnknown   = errors.New(f("opcode unknown"))
	ErrOpcodeRti       = errors.New(f("return from interrupt unsupported"))
	ErrOpcodeReserved  = errors.New(f("opcode reserved"))
	ErrOpcodeLd        = errors.New(f("ld"))
	ErrOpcodeSt        = errors.New(f("st"))
	ErrOpcodeLdi       = errors.New(f("ldi"))
	ErrOpcodeSti       = errors.New(f("sti"))
	ErrOpcodeLdr       = errors.New(f("ldr"))
	ErrOpcodeStr       = errors.New(f("str"))
	ErrOpcodeAlu       = errors.New(f("alu"))
	ErrOpcodeJump      = errors.New(f("jump"))
	ErrOpcodeTrap      = errors.New(f("trap"))
	ErrIndirectPointer = errors.New(f("indirect pointer"))
	ErrIndirectTarget  = errors.New(f("indirect target"))

	// Object image errors
	ErrObjectEmpty = errors.New(f("object image empty"))
	ErrObjectOdd   = errors.New(f("object image has odd length"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelInvalid       = errors.New(f("label invalid"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOrigin             = errors.New(f(".orig after code"))
	ErrOriginSyntax       = errors.New(f(".orig syntax"))
	ErrStringSyntax       = errors.New(f(".stringz syntax"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissingArgs  = errors.New(f("missing arguments"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrTrap is an unrecognized trap vector.
type ErrTrap uint8

func (et ErrTrap) Error() string {
	return f("trap vector 0x%02x unknown", uint8(et))
}

func (et ErrTrap) Is(err error) (ok bool) {
	_, ok = err.(ErrTrap)
	return
}

// ErrOpcode tags an execution failure with the offending instruction word.
type ErrOpcode Code

func (eo ErrOpcode) Error() string {
	return f("bad opcode 0x%04x %v", uint16(eo), Code(eo).String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrOperandRange is an operand that does not fit its instruction field.
type ErrOperandRange struct {
	Value int
	Bits  int
}

func (err ErrOperandRange) Error() string {
	return f("operand %v does not fit in %v bits", err.Value, err.Bits)
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
