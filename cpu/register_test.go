package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterFile(t *testing.T) {
	assert := assert.New(t)

	rf := &RegisterFile{}

	for reg := REG_R0; reg <= REG_COND; reg++ {
		err := rf.Write(reg, uint16(0x100+reg))
		assert.NoError(err, reg.String())
	}

	for reg := REG_R0; reg <= REG_COND; reg++ {
		value, err := rf.Read(reg)
		assert.NoError(err, reg.String())
		assert.Equal(uint16(0x100+reg), value, reg.String())
	}

	assert.Equal(uint16(0x108), rf.Pc())

	rf.Reset()
	assert.Equal(uint16(0), rf.Pc())
}

func TestRegisterFile_Bounds(t *testing.T) {
	assert := assert.New(t)

	rf := &RegisterFile{}

	for _, reg := range []Reg{-1, REG_COUNT, 100} {
		_, err := rf.Read(reg)
		assert.ErrorIs(err, ErrRegisterBounds)

		err = rf.Write(reg, 1)
		assert.ErrorIs(err, ErrRegisterBounds)
	}

	reg, err := RegOf(7)
	assert.NoError(err)
	assert.Equal(REG_R7, reg)

	_, err = RegOf(10)
	assert.ErrorIs(err, ErrRegisterBounds)
}

func TestRegisterFile_Pc(t *testing.T) {
	assert := assert.New(t)

	rf := &RegisterFile{}

	rf.SetPc(0x3000)
	rf.IncrementPc()
	assert.Equal(uint16(0x3001), rf.Pc())

	rf.SetPc(0xffff)
	rf.IncrementPc()
	assert.Equal(uint16(0), rf.Pc())
}

func TestRegisterFile_ConditionCode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		value uint16
		flag  Flag
	}){
		{0, FL_ZRO},
		{1, FL_POS},
		{0x7fff, FL_POS},
		{0x8000, FL_NEG},
		{0xffff, FL_NEG},
	}

	rf := &RegisterFile{}
	for _, entry := range table {
		rf.UpdateConditionCode(entry.value)
		assert.Equal(uint16(entry.flag), rf.ConditionCode(), "%#x", entry.value)
		for _, fl := range []Flag{FL_POS, FL_ZRO, FL_NEG} {
			assert.Equal(fl == entry.flag, rf.IsFlagSet(fl), "%#x %v", entry.value, fl)
		}
	}
}
