package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/io"
)

// execAt runs one instruction as if fetched from pc.
func execAt(ex *Executor, code Code, mem *Memory, rf *RegisterFile, pc uint16) (Result, error) {
	rf.SetPc(pc + 1)
	return ex.Execute(code, mem, rf)
}

func TestExecute_Alu(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		r1, r2 uint16
		code   Code
		value  uint16
		flag   Flag
	}){
		{"add_imm", 5, 0, MakeCodeAddImm(REG_R0, REG_R1, 3), 8, FL_POS},
		{"add_neg", 5, 0, MakeCodeAddImm(REG_R0, REG_R1, -5), 0, FL_ZRO},
		{"add_reg", 0x1234, 0x1111, MakeCodeAdd(REG_R0, REG_R1, REG_R2), 0x2345, FL_POS},
		{"add_overflow", 0x7fff, 0, MakeCodeAddImm(REG_R0, REG_R1, 1), 0x8000, FL_NEG},
		{"add_wrap", 0xffff, 0, MakeCodeAddImm(REG_R0, REG_R1, 1), 0, FL_ZRO},
		{"add_wrap_reg", 0x8000, 0x8001, MakeCodeAdd(REG_R0, REG_R1, REG_R2), 1, FL_POS},
		{"and_imm", 0xffff, 0, MakeCodeAndImm(REG_R0, REG_R1, 0x0f), 0x000f, FL_POS},
		{"and_imm_sext", 0xf0f0, 0, MakeCodeAndImm(REG_R0, REG_R1, -16), 0xf0f0, FL_NEG},
		{"and_reg", 0xff00, 0x0ff0, MakeCodeAnd(REG_R0, REG_R1, REG_R2), 0x0f00, FL_POS},
		{"and_zero", 0x1234, 0, MakeCodeAndImm(REG_R0, REG_R1, 0), 0, FL_ZRO},
		{"not", 0x00ff, 0, MakeCodeNot(REG_R0, REG_R1), 0xff00, FL_NEG},
		{"not_zero", 0xffff, 0, MakeCodeNot(REG_R0, REG_R1), 0, FL_ZRO},
	}

	ex := &Executor{}
	for _, entry := range table {
		mem := &Memory{}
		rf := &RegisterFile{}
		rf.Data[REG_R1] = entry.r1
		rf.Data[REG_R2] = entry.r2

		result, err := execAt(ex, entry.code, mem, rf, 0x3000)
		assert.NoError(err, entry.name)
		assert.Equal(RESULT_CONTINUE, result, entry.name)
		assert.Equal(entry.value, rf.Data[REG_R0], entry.name)
		assert.Equal(uint16(entry.flag), rf.ConditionCode(), entry.name)
		assert.Equal(uint16(0x3001), rf.Pc(), entry.name)
	}
}

func TestExecute_Br(t *testing.T) {
	assert := assert.New(t)

	ex := &Executor{}
	mem := &Memory{}
	rf := &RegisterFile{}

	for nzp := uint16(0); nzp < 8; nzp++ {
		for _, cond := range []Flag{FL_POS, FL_ZRO, FL_NEG} {
			for _, offset := range []int{-256, -1, 0, 5, 255} {
				rf.Data[REG_COND] = uint16(cond)
				code := MakeCodeBr(nzp, offset)

				result, err := execAt(ex, code, mem, rf, 0x3000)
				assert.NoError(err)
				assert.Equal(RESULT_CONTINUE, result)

				expected := uint16(0x3001)
				if nzp&uint16(cond) != 0 {
					expected = uint16(0x3001 + offset)
				}
				assert.Equal(expected, rf.Pc(), "nzp=%03b cond=%v offset=%d", nzp, cond, offset)
				assert.Equal(uint16(cond), rf.ConditionCode())
			}
		}
	}

	// PC relative targets wrap around the address space.
	rf.Data[REG_COND] = uint16(FL_ZRO)
	_, err := execAt(ex, MakeCodeBr(uint16(FL_ZRO), -2), mem, rf, 0x0000)
	assert.NoError(err)
	assert.Equal(uint16(0xffff), rf.Pc())
}

func TestExecute_LoadStore(t *testing.T) {
	assert := assert.New(t)

	ex := &Executor{}
	mem := &Memory{}
	rf := &RegisterFile{}

	mem.Write(0x3005, 0x8123)
	mem.Write(0x2ff0, 0x4000)
	mem.Write(0x4000, 0x0042)

	// LD R2, #4
	_, err := execAt(ex, MakeCodePcRelative(OP_LD, REG_R2, 4), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal(uint16(0x8123), rf.Data[REG_R2])
	assert.True(rf.IsFlagSet(FL_NEG))

	// LDI R3, #-17 -> [0x2ff0] = 0x4000 -> 0x0042
	_, err = execAt(ex, MakeCodePcRelative(OP_LDI, REG_R3, -17), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal(uint16(0x0042), rf.Data[REG_R3])
	assert.True(rf.IsFlagSet(FL_POS))

	// ST R2, #9
	_, err = execAt(ex, MakeCodePcRelative(OP_ST, REG_R2, 9), mem, rf, 0x3000)
	assert.NoError(err)
	value, _ := mem.Read(0x300a)
	assert.Equal(uint16(0x8123), value)
	assert.True(rf.IsFlagSet(FL_POS), "ST leaves COND alone")

	// STI R2, #-17 -> [0x2ff0] = 0x4000
	_, err = execAt(ex, MakeCodePcRelative(OP_STI, REG_R2, -17), mem, rf, 0x3000)
	assert.NoError(err)
	value, _ = mem.Read(0x4000)
	assert.Equal(uint16(0x8123), value)

	// LDR R4, R5, #-2
	rf.Data[REG_R5] = 0x4002
	_, err = execAt(ex, MakeCodeBaseOffset(OP_LDR, REG_R4, REG_R5, -2), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal(uint16(0x8123), rf.Data[REG_R4])
	assert.True(rf.IsFlagSet(FL_NEG))

	// STR R3, R5, #31
	_, err = execAt(ex, MakeCodeBaseOffset(OP_STR, REG_R3, REG_R5, 31), mem, rf, 0x3000)
	assert.NoError(err)
	value, _ = mem.Read(0x4021)
	assert.Equal(uint16(0x0042), value)

	// LDR wraps the base register arithmetic.
	rf.Data[REG_R5] = 0xffff
	mem.Write(0x0001, 0)
	_, err = execAt(ex, MakeCodeBaseOffset(OP_LDR, REG_R4, REG_R5, 2), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal(uint16(0), rf.Data[REG_R4])
	assert.True(rf.IsFlagSet(FL_ZRO))

	// LEA R1, #-1 does not touch memory.
	_, err = execAt(ex, MakeCodePcRelative(OP_LEA, REG_R1, -1), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal(uint16(0x3000), rf.Data[REG_R1])
	assert.True(rf.IsFlagSet(FL_POS))
}

func TestExecute_Jump(t *testing.T) {
	assert := assert.New(t)

	ex := &Executor{}
	mem := &Memory{}
	rf := &RegisterFile{}

	// JMP R3
	rf.Data[REG_R3] = 0x4567
	_, err := execAt(ex, MakeCodeJmp(REG_R3), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal(uint16(0x4567), rf.Pc())

	// JSR #-1024
	rf.Data[REG_COND] = uint16(FL_NEG)
	_, err = execAt(ex, MakeCodeJsr(-1024), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal(uint16(0x3001), rf.Data[REG_R7])
	assert.Equal(uint16(0x3001-1024), rf.Pc())
	assert.Equal(uint16(FL_NEG), rf.ConditionCode(), "JSR leaves COND alone")

	// RET
	_, err = execAt(ex, MakeCodeJmp(REG_R7), mem, rf, 0x2c01)
	assert.NoError(err)
	assert.Equal(uint16(0x3001), rf.Pc())

	// JSRR R3
	_, err = execAt(ex, MakeCodeJsrr(REG_R3), mem, rf, 0x3010)
	assert.NoError(err)
	assert.Equal(uint16(0x3011), rf.Data[REG_R7])
	assert.Equal(uint16(0x4567), rf.Pc())

	// JSRR R7 jumps through the previous R7.
	rf.Data[REG_R7] = 0x5000
	_, err = execAt(ex, MakeCodeJsrr(REG_R7), mem, rf, 0x3020)
	assert.NoError(err)
	assert.Equal(uint16(0x3021), rf.Data[REG_R7])
	assert.Equal(uint16(0x5000), rf.Pc())
}

func TestExecute_Errors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		code Code
		errs []error
	}){
		{"rti", MakeCodeRti(), []error{ErrOpcodeRti}},
		{"res", Code(0xd000), []error{ErrOpcodeReserved}},
		{"res_bits", Code(0xdfff), []error{ErrOpcodeReserved}},
		{"trap_low", MakeCodeTrap(0x00), []error{ErrOpcodeTrap, ErrTrap(0)}},
		{"trap_ff", MakeCodeTrap(0xff), []error{ErrOpcodeTrap, ErrTrap(0)}},
		{"trap_26", MakeCodeTrap(0x26), []error{ErrOpcodeTrap, ErrTrap(0)}},
	}

	ex := &Executor{}
	for _, entry := range table {
		mem := &Memory{}
		rf := &RegisterFile{}
		rf.Data[REG_R7] = 0x1234

		result, err := execAt(ex, entry.code, mem, rf, 0x3000)
		assert.Equal(RESULT_ERROR, result, entry.name)
		assert.ErrorIs(err, ErrOpcode(0), entry.name)
		for _, target := range entry.errs {
			assert.ErrorIs(err, target, entry.name)
		}
		assert.Equal(uint16(0x1234), rf.Data[REG_R7], entry.name)
	}
}

func TestExecute_TrapHalt(t *testing.T) {
	assert := assert.New(t)

	ex := &Executor{}
	mem := &Memory{}
	rf := &RegisterFile{}

	result, err := execAt(ex, MakeCodeTrap(TRAP_HALT), mem, rf, 0x3004)
	assert.NoError(err)
	assert.Equal(RESULT_HALT, result)
	assert.Equal(uint16(0x3005), rf.Data[REG_R7])
}

func TestExecute_TrapNoConsole(t *testing.T) {
	assert := assert.New(t)

	ex := &Executor{}

	for tv := TRAP_GETC; tv < TRAP_HALT; tv++ {
		mem := &Memory{}
		rf := &RegisterFile{}
		rf.Data[REG_R0] = 0x3100

		result, err := execAt(ex, MakeCodeTrap(tv), mem, rf, 0x3000)
		assert.NoError(err, tv.String())
		assert.Equal(RESULT_CONTINUE, result, tv.String())
		assert.Equal(uint16(0x3100), rf.Data[REG_R0], tv.String())
		assert.Equal(uint16(0x3001), rf.Data[REG_R7], tv.String())
	}
}

func TestExecute_TrapConsole(t *testing.T) {
	assert := assert.New(t)

	console := &io.Queue{}
	ex := &Executor{Console: console}
	mem := &Memory{}
	rf := &RegisterFile{}

	// GETC: no echo, no condition code update.
	console.SendKeys("ab")
	rf.Data[REG_COND] = uint16(FL_NEG)
	result, err := execAt(ex, MakeCodeTrap(TRAP_GETC), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal(RESULT_CONTINUE, result)
	assert.Equal(uint16('a'), rf.Data[REG_R0])
	assert.Equal(uint16(FL_NEG), rf.ConditionCode())
	assert.Equal("", console.Display())

	// IN: prompt, then echo.
	_, err = execAt(ex, MakeCodeTrap(TRAP_IN), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal(uint16('b'), rf.Data[REG_R0])
	assert.Equal(IN_PROMPT+"b", console.Display())
	console.Reset()

	// OUT
	rf.Data[REG_R0] = 0x0a21
	_, err = execAt(ex, MakeCodeTrap(TRAP_OUT), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal("!", console.Display())
	console.Reset()

	// PUTS
	for n, ch := range "Hello\n" {
		mem.Write(uint16(0x4000+n), uint16(ch))
	}
	rf.Data[REG_R0] = 0x4000
	_, err = execAt(ex, MakeCodeTrap(TRAP_PUTS), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal("Hello\n", console.Display())
	console.Reset()

	// PUTSP, with an odd length string.
	mem.Write(0x5000, uint16('e')<<8|uint16('H'))
	mem.Write(0x5001, uint16('l')<<8|uint16('l'))
	mem.Write(0x5002, uint16('o'))
	mem.Write(0x5003, 0)
	rf.Data[REG_R0] = 0x5000
	_, err = execAt(ex, MakeCodeTrap(TRAP_PUTSP), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal("Hello", console.Display())
	console.Reset()

	// PUTS of an empty string.
	rf.Data[REG_R0] = 0x5003
	_, err = execAt(ex, MakeCodeTrap(TRAP_PUTS), mem, rf, 0x3000)
	assert.NoError(err)
	assert.Equal("", console.Display())

	// GETC with nothing to read.
	result, err = execAt(ex, MakeCodeTrap(TRAP_GETC), mem, rf, 0x3000)
	assert.Equal(RESULT_ERROR, result)
	assert.ErrorIs(err, ErrConsole)
	assert.ErrorIs(err, ErrOpcodeTrap)
	assert.ErrorIs(err, io.ErrInputEmpty)
}

func TestExecute_ConditionCodeExclusive(t *testing.T) {
	assert := assert.New(t)

	ex := &Executor{}
	mem := &Memory{}
	rf := &RegisterFile{}

	for _, start := range []uint16{0, 1, 0x7fff, 0x8000, 0xfffe, 0xffff} {
		rf.Data[REG_R1] = start
		for imm := -16; imm < 16; imm++ {
			_, err := execAt(ex, MakeCodeAddImm(REG_R0, REG_R1, imm), mem, rf, 0x3000)
			assert.NoError(err)

			cond := rf.ConditionCode()
			count := 0
			for _, fl := range []Flag{FL_POS, FL_ZRO, FL_NEG} {
				if fl.IsSetIn(cond) {
					count++
				}
			}
			assert.Equal(1, count)
			assert.Equal(uint16(FlagOf(rf.Data[REG_R0])), cond)
		}
	}
}

func TestExecute_AllCodes(t *testing.T) {
	assert := assert.New(t)

	ex := &Executor{}
	mem := &Memory{}

	for word := range MEMORY_MAX {
		code := Code(word)
		rf := &RegisterFile{}
		for n := REG_R0; n <= REG_R7; n++ {
			rf.Data[n] = uint16(n) * 0x2345
		}
		rf.UpdateConditionCode(0)

		result, err := execAt(ex, code, mem, rf, 0x3000)
		if err != nil {
			assert.Equal(RESULT_ERROR, result, "%v", code)
			continue
		}

		switch code.Op() {
		case OP_ADD, OP_AND, OP_NOT, OP_LD, OP_LDI, OP_LDR, OP_LEA:
			assert.Equal(uint16(FlagOf(rf.Data[code.Dr()])), rf.ConditionCode(), "%v", code)
		default:
			assert.Equal(uint16(FL_ZRO), rf.ConditionCode(), "%v", code)
		}
	}
}
