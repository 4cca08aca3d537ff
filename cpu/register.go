package cpu

// Reg identifies a slot in the register file.
type Reg int

//go:generate go tool stringer -linecomment -type=Reg
const (
	REG_R0   = Reg(0) // R0
	REG_R1   = Reg(1) // R1
	REG_R2   = Reg(2) // R2
	REG_R3   = Reg(3) // R3
	REG_R4   = Reg(4) // R4
	REG_R5   = Reg(5) // R5
	REG_R6   = Reg(6) // R6
	REG_R7   = Reg(7) // R7
	REG_PC   = Reg(8) // PC
	REG_COND = Reg(9) // COND
)

// REG_COUNT is the number of addressable registers.
const REG_COUNT = 10

// Valid returns true if the register identifier addresses a slot.
func (reg Reg) Valid() bool {
	return reg >= REG_R0 && reg < REG_COUNT
}

// RegOf converts a raw register number, rejecting out of range values.
func RegOf(n int) (reg Reg, err error) {
	reg = Reg(n)
	if !reg.Valid() {
		err = ErrRegisterBounds
	}
	return
}

// Flag is a condition code bit held in COND.
type Flag uint16

const (
	FL_POS = Flag(1 << 0) // Positive result
	FL_ZRO = Flag(1 << 1) // Zero result
	FL_NEG = Flag(1 << 2) // Negative result
)

// IsSetIn returns true if the flag is set in a condition code value.
func (fl Flag) IsSetIn(cond uint16) bool {
	return (cond & uint16(fl)) != 0
}

func (fl Flag) String() string {
	switch fl {
	case FL_POS:
		return "P"
	case FL_ZRO:
		return "Z"
	case FL_NEG:
		return "N"
	}
	return "?"
}

// FlagOf returns the condition flag describing the sign of a value.
func FlagOf(value uint16) Flag {
	switch {
	case value == 0:
		return FL_ZRO
	case int16(value) < 0:
		return FL_NEG
	default:
		return FL_POS
	}
}

// RegisterFile holds R0-R7, PC and COND.
type RegisterFile struct {
	Data [REG_COUNT]uint16
}

// Read returns the value of a register.
func (rf *RegisterFile) Read(reg Reg) (value uint16, err error) {
	if !reg.Valid() {
		err = ErrRegisterBounds
		return
	}
	value = rf.Data[reg]
	return
}

// Write sets the value of a register.
func (rf *RegisterFile) Write(reg Reg, value uint16) (err error) {
	if !reg.Valid() {
		err = ErrRegisterBounds
		return
	}
	rf.Data[reg] = value
	return
}

// Pc returns the program counter.
func (rf *RegisterFile) Pc() uint16 {
	return rf.Data[REG_PC]
}

// SetPc sets the program counter.
func (rf *RegisterFile) SetPc(value uint16) {
	rf.Data[REG_PC] = value
}

// IncrementPc advances the program counter by one word, wrapping at 0xffff.
func (rf *RegisterFile) IncrementPc() {
	rf.Data[REG_PC]++
}

// UpdateConditionCode sets COND to exactly one of POS, ZRO or NEG.
func (rf *RegisterFile) UpdateConditionCode(value uint16) {
	rf.Data[REG_COND] = uint16(FlagOf(value))
}

// ConditionCode returns COND.
func (rf *RegisterFile) ConditionCode() uint16 {
	return rf.Data[REG_COND]
}

// IsFlagSet returns true if the flag is set in COND.
func (rf *RegisterFile) IsFlagSet(flag Flag) bool {
	return flag.IsSetIn(rf.Data[REG_COND])
}

// Reset zeros every register.
func (rf *RegisterFile) Reset() {
	clear(rf.Data[:])
}
