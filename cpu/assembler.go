// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":   "0",
	"PC_START": fmt.Sprintf("%#v", PC_START),
}

// Assembler is a single pass macro assembler for LC-3 assembly language.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	origin     int  // Load address; -1 until .ORIG or the first code.
	ended      bool // Set by .END; the rest of the input is ignored.
	expansions int  // Macro expansion counter, for '@' local labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

var reLabel = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.$]*$`)

// isLabel returns true if word can name a label.
func isLabel(word string) bool {
	return reLabel.MatchString(word)
}

// valueOf returns the value of a simple word.
//
// Accepted forms are #decimal, xHEX, and anything strconv.ParseInt accepts
// with base prefixes. A leading '~' inverts the value.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}

	if len(word) > 0 && word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word)
		return
	}

	text := word
	base := 0
	switch {
	case strings.HasPrefix(text, "#"):
		text = text[1:]
		base = 10
	case len(text) > 1 && (text[0] == 'x' || text[0] == 'X'):
		text = text[1:]
		base = 16
		if strings.HasPrefix(text, "-") {
			// x-10 is not LC-3, but -x10 is not either.
			err = ErrParseNumber(word)
			return
		}
	}

	v64, perr := strconv.ParseInt(text, base, 32)
	if perr != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	if invert {
		value = ^value
	}

	return
}

// regOf returns the register named by word.
func regOf(word string) (reg Reg, err error) {
	if len(word) == 2 && (word[0] == 'r' || word[0] == 'R') && word[1] >= '0' && word[1] <= '7' {
		reg = Reg(word[1] - '0')
		return
	}

	err = ErrRegisterInvalid
	return
}

// checkSigned ensures value fits a two's complement field of bits.
func checkSigned(value int, bits int) (err error) {
	limit := 1 << (bits - 1)
	if value < -limit || value >= limit {
		err = ErrOperandRange{Value: value, Bits: bits}
	}
	return
}

// checkWord ensures value fits in a word, signed or unsigned.
func checkWord(value int) (err error) {
	if value < -0x8000 || value > 0xffff {
		err = ErrOperandRange{Value: value, Bits: 16}
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v int
		v, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	for key, pc := range asm.Label {
		pred[key] = starlark.MakeInt(pc)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// splitQuoted splits a line at its first '"', so string literals escape
// character and expression evaluation.
func splitQuoted(line string) (head string, quoted string) {
	n := strings.IndexByte(line, '"')
	if n < 0 {
		return line, ""
	}
	return line[:n], strings.TrimSpace(line[n:])
}

// stripComment removes a ';' comment that is not inside a string literal.
func stripComment(text string) string {
	quoted := false
	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '\\':
			if quoted {
				n++
			}
		case '"':
			quoted = !quoted
		case '\'':
			// ';' as a character literal
			if !quoted && n+2 < len(text) && text[n+2] == '\'' {
				n += 2
			}
		case ';':
			if !quoted {
				return text[:n]
			}
		}
	}
	return text
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	head, quoted := splitQuoted(line)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	head = re.ReplaceAllStringFunc(head, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			case "0":
				str = "\000"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	head = re.ReplaceAllStringFunc(head, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("#%d", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(strings.ReplaceAll(head, ",", " "))
	if len(quoted) != 0 {
		words = append(words, quoted)
	}

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.EqualFold(words[0], ".equ") {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	// Labels, either 'NAME:' or a leading word that is not an opcode.
	implicit := false
	for len(words) > 0 {
		label := words[0]
		if strings.HasSuffix(label, ":") {
			label = label[:len(label)-1]
		} else if implicit || !isLabel(label) || asm.isMnemonic(label) {
			break
		} else {
			implicit = true
		}

		if !isLabel(label) {
			err = ErrLabelInvalid
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentPc()
		words = words[1:]
	}

	if len(words) == 0 {
		return
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = args[n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentPc gets the address of the next generated word.
func (asm *Assembler) currentPc() int {
	if len(asm.Opcode) == 0 {
		if asm.origin < 0 {
			return int(PC_START)
		}
		return asm.origin
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Pc + len(last.Codes)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}
	asm.origin = -1
	asm.ended = false
	asm.expansions = 0

	wrap := func(err error) error {
		return ErrSyntax{LineNo: lineno, Line: line, Err: err}
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.ended {
			continue
		}

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && strings.EqualFold(words[0], ".macro") {
			if macro != nil {
				err = wrap(ErrMacroNesting)
				return
			}
			if len(words) < 2 {
				err = wrap(ErrMacroSyntax)
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = wrap(ErrMacroDuplicate)
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && strings.EqualFold(words[0], ".endm") {
			if macro == nil {
				err = wrap(ErrMacroLonelyEndm)
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			err = wrap(err)
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			err = wrap(err)
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = wrap(ErrMacroLonely)
		return
	}

	err = asm.link()
	if err != nil {
		return
	}

	origin := asm.origin
	if origin < 0 {
		origin = int(PC_START)
	}

	prog = &Program{
		Origin:  uint16(origin),
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// link resolves label references into the generated codes.
func (asm *Assembler) link() (err error) {
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}

		syntax_err := func(err error) error {
			return ErrSyntax{LineNo: op.LineNo, Line: strings.Join(op.Words, " "), Err: err}
		}

		label := op.LinkLabel
		target, ok := asm.Label[label]
		if !ok {
			return syntax_err(ErrLabelMissing(label))
		}

		linked := &op.Codes[len(op.Codes)-1]
		if op.LinkBits == 0 {
			*linked = Code(target)
			continue
		}

		// PC relative to the word after the instruction.
		offset := target - (op.Pc + len(op.Codes))
		err = checkSigned(offset, op.LinkBits)
		if err != nil {
			return syntax_err(err)
		}
		*linked |= Code(field(offset, op.LinkBits))
	}

	return
}

// mnemonics are the opcode and directive names, in upper case.
var mnemonics = map[string]bool{
	"ADD": true, "AND": true, "NOT": true,
	"LD": true, "LDI": true, "LDR": true, "LEA": true,
	"ST": true, "STI": true, "STR": true,
	"JMP": true, "RET": true, "JSR": true, "JSRR": true,
	"RTI": true, "TRAP": true,
	"GETC": true, "OUT": true, "PUTS": true, "IN": true, "PUTSP": true, "HALT": true,
	".ORIG": true, ".END": true, ".FILL": true, ".BLKW": true, ".STRINGZ": true,
}

// branchNzp decodes a BR mnemonic into its condition mask.
func branchNzp(mnemonic string) (nzp uint16, ok bool) {
	if !strings.HasPrefix(mnemonic, "BR") {
		return
	}

	flags := mnemonic[2:]
	if len(flags) == 0 {
		return uint16(FL_NEG | FL_ZRO | FL_POS), true
	}

	order := "NZP"
	for _, ch := range flags {
		n := strings.IndexRune(order, ch)
		if n < 0 {
			return 0, false
		}
		order = order[n+1:]
		switch ch {
		case 'N':
			nzp |= uint16(FL_NEG)
		case 'Z':
			nzp |= uint16(FL_ZRO)
		case 'P':
			nzp |= uint16(FL_POS)
		}
	}

	return nzp, true
}

// isMnemonic returns true if word is an opcode, directive, or macro.
func (asm *Assembler) isMnemonic(word string) bool {
	upper := strings.ToUpper(word)
	if mnemonics[upper] {
		return true
	}
	if _, ok := branchNzp(upper); ok {
		return true
	}
	_, ok := asm.Macro[word]
	return ok
}

// trapAlias maps the trap service routine names to their vectors.
var trapAlias = map[string]CodeTrap{
	"GETC":  TRAP_GETC,
	"OUT":   TRAP_OUT,
	"PUTS":  TRAP_PUTS,
	"IN":    TRAP_IN,
	"PUTSP": TRAP_PUTSP,
	"HALT":  TRAP_HALT,
}

// pcOffset returns a PC relative operand. Numbers are taken as the offset
// itself; labels are resolved at link time.
func (asm *Assembler) pcOffset(op *Opcode, word string, bits int) (offset int, err error) {
	offset, err = asm.valueOf(word)
	if err == nil {
		err = checkSigned(offset, bits)
		return
	}

	if !isLabel(word) {
		return
	}

	err = nil
	offset = 0
	op.LinkLabel = word
	op.LinkBits = bits
	return
}

// immediate returns a signed immediate operand.
func (asm *Assembler) immediate(word string, bits int) (value int, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}
	err = checkSigned(value, bits)
	return
}

// parseWords assembles a single opcode or directive.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	if len(words) == 0 {
		return
	}

	mnemonic := strings.ToUpper(words[0])
	args := words[1:]

	nargs := func(n int) error {
		switch {
		case len(args) < n:
			return ErrOpcodeMissingArgs
		case len(args) > n:
			return ErrOpcodeExtraArgs
		}
		return nil
	}

	op := Opcode{
		LineNo: lineno,
		Pc:     asm.currentPc(),
		Words:  slices.Clone(words),
	}

	var code Code
	var regs [3]Reg

	switch mnemonic {
	case ".ORIG":
		if err = nargs(1); err != nil {
			return
		}
		if len(asm.Opcode) != 0 || asm.origin >= 0 {
			err = ErrOrigin
			return
		}
		var origin int
		origin, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if origin < 0 || origin > 0xffff {
			err = ErrOriginSyntax
			return
		}
		asm.origin = origin
		return
	case ".END":
		asm.ended = true
		return
	case ".FILL":
		if err = nargs(1); err != nil {
			return
		}
		var value int
		value, err = asm.valueOf(args[0])
		if err != nil {
			if !isLabel(args[0]) {
				return
			}
			err = nil
			op.LinkLabel = args[0]
		} else if err = checkWord(value); err != nil {
			return
		}
		op.Codes = []Code{Code(uint16(value))}
	case ".BLKW":
		if len(args) < 1 {
			err = ErrOpcodeMissingArgs
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var count, fill int
		count, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if count < 0 || count > MEMORY_MAX {
			err = ErrOperandRange{Value: count, Bits: 16}
			return
		}
		if len(args) == 2 {
			fill, err = asm.valueOf(args[1])
			if err != nil {
				return
			}
			if err = checkWord(fill); err != nil {
				return
			}
		}
		op.Codes = make([]Code, count)
		for n := range op.Codes {
			op.Codes[n] = Code(uint16(fill))
		}
	case ".STRINGZ":
		if err = nargs(1); err != nil {
			return
		}
		var text string
		text, err = strconv.Unquote(args[0])
		if err != nil {
			err = ErrStringSyntax
			return
		}
		for n := 0; n < len(text); n++ {
			op.Codes = append(op.Codes, Code(text[n]))
		}
		op.Codes = append(op.Codes, 0)
	case "ADD", "AND":
		if err = nargs(3); err != nil {
			return
		}
		for n := range 2 {
			regs[n], err = regOf(args[n])
			if err != nil {
				return
			}
		}
		regs[2], err = regOf(args[2])
		if err == nil {
			if mnemonic == "ADD" {
				code = MakeCodeAdd(regs[0], regs[1], regs[2])
			} else {
				code = MakeCodeAnd(regs[0], regs[1], regs[2])
			}
		} else {
			var imm int
			imm, err = asm.immediate(args[2], IMM5_BITS)
			if err != nil {
				return
			}
			if mnemonic == "ADD" {
				code = MakeCodeAddImm(regs[0], regs[1], imm)
			} else {
				code = MakeCodeAndImm(regs[0], regs[1], imm)
			}
		}
		op.Codes = []Code{code}
	case "NOT":
		if err = nargs(2); err != nil {
			return
		}
		for n := range 2 {
			regs[n], err = regOf(args[n])
			if err != nil {
				return
			}
		}
		op.Codes = []Code{MakeCodeNot(regs[0], regs[1])}
	case "LD", "LDI", "LEA", "ST", "STI":
		if err = nargs(2); err != nil {
			return
		}
		regs[0], err = regOf(args[0])
		if err != nil {
			return
		}
		var offset int
		offset, err = asm.pcOffset(&op, args[1], PCOFFSET9_BITS)
		if err != nil {
			return
		}
		codeOp := map[string]CodeOp{"LD": OP_LD, "LDI": OP_LDI, "LEA": OP_LEA, "ST": OP_ST, "STI": OP_STI}[mnemonic]
		op.Codes = []Code{MakeCodePcRelative(codeOp, regs[0], offset)}
	case "LDR", "STR":
		if err = nargs(3); err != nil {
			return
		}
		for n := range 2 {
			regs[n], err = regOf(args[n])
			if err != nil {
				return
			}
		}
		var offset int
		offset, err = asm.immediate(args[2], OFFSET6_BITS)
		if err != nil {
			return
		}
		codeOp := OP_LDR
		if mnemonic == "STR" {
			codeOp = OP_STR
		}
		op.Codes = []Code{MakeCodeBaseOffset(codeOp, regs[0], regs[1], offset)}
	case "JMP", "JSRR":
		if err = nargs(1); err != nil {
			return
		}
		regs[0], err = regOf(args[0])
		if err != nil {
			return
		}
		if mnemonic == "JMP" {
			op.Codes = []Code{MakeCodeJmp(regs[0])}
		} else {
			op.Codes = []Code{MakeCodeJsrr(regs[0])}
		}
	case "RET":
		if err = nargs(0); err != nil {
			return
		}
		op.Codes = []Code{MakeCodeJmp(REG_R7)}
	case "JSR":
		if err = nargs(1); err != nil {
			return
		}
		var offset int
		offset, err = asm.pcOffset(&op, args[0], PCOFFSET11_BITS)
		if err != nil {
			return
		}
		op.Codes = []Code{MakeCodeJsr(offset)}
	case "RTI":
		if err = nargs(0); err != nil {
			return
		}
		op.Codes = []Code{MakeCodeRti()}
	case "TRAP":
		if err = nargs(1); err != nil {
			return
		}
		var vector int
		vector, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if vector < 0 || vector > 0xff {
			err = ErrOperandRange{Value: vector, Bits: 8}
			return
		}
		op.Codes = []Code{MakeCodeTrap(CodeTrap(vector))}
	case "GETC", "OUT", "PUTS", "IN", "PUTSP", "HALT":
		if err = nargs(0); err != nil {
			return
		}
		op.Codes = []Code{MakeCodeTrap(trapAlias[mnemonic])}
	default:
		nzp, ok := branchNzp(mnemonic)
		if !ok {
			err = ErrOpcodeInvalid
			return
		}
		if err = nargs(1); err != nil {
			return
		}
		var offset int
		offset, err = asm.pcOffset(&op, args[0], PCOFFSET9_BITS)
		if err != nil {
			return
		}
		op.Codes = []Code{MakeCodeBr(nzp, offset)}
	}

	if op.Pc+len(op.Codes) > MEMORY_MAX {
		err = ErrProgramTooLarge
		return
	}

	if asm.origin < 0 {
		asm.origin = op.Pc
	}

	asm.Opcode = append(asm.Opcode, op)

	return
}
