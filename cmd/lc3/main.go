// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/emulator"
	"github.com/ezrec/lc3/translate"
)

// demoProgram is run when neither a source nor an object image is given.
func demoProgram() (prog *cpu.Program) {
	prog = &cpu.Program{
		Origin: cpu.PC_START,
		Opcodes: []cpu.Opcode{
			{Pc: int(cpu.PC_START), Codes: []cpu.Code{cpu.MakeCodeAddImm(cpu.REG_R0, cpu.REG_R0, 5)}},
			{Pc: int(cpu.PC_START) + 1, Codes: []cpu.Code{cpu.MakeCodeTrap(cpu.TRAP_HALT)}},
		},
	}
	return
}

func main() {
	var compile string
	var input string
	var output string
	var limit uint64
	var dump bool
	var verbose bool
	var lang string

	flag.StringVar(&compile, "c", "", ".asm file to assemble")
	flag.StringVar(&input, "i", "", ".obj image to run")
	flag.StringVar(&output, "o", "", "Write the .obj image, do not execute")
	flag.Uint64Var(&limit, "n", 0, "Instruction limit (0 is unlimited)")
	flag.BoolVar(&dump, "d", false, "Dump machine state before and after the run")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&lang, "l", "", "Message language (BCP 47 tag)")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(lang) != 0 {
		translate.SetLanguage(lang)
	}

	if len(compile) != 0 && len(input) != 0 {
		log.Fatalf("%v: -c and -i are exclusive", os.Args[0])
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	prog := demoProgram()

	// Assemble a new program.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	// Load an object image.
	if len(input) != 0 {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()

		prog, err = cpu.ReadObject(inf)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
	}

	if len(output) != 0 {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		err = prog.WriteObject(ouf)
		if err == nil {
			err = ouf.Close()
		}
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	emu.Program = prog
	err := emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	if dump {
		fmt.Printf("Program loaded at address 0x%04X\n", prog.Origin)
		fmt.Printf("\nInitial state:\n%v", emu.Cpu)
	}

	term := openTerminal()
	emu.Stream.Input = term
	emu.Stream.Output = os.Stdout
	emu.Stream.Crlf = term.Raw()

	done, err := emu.Run(limit)

	term.Close()

	if err != nil {
		log.Fatal(err)
	}

	if dump {
		fmt.Printf("\nFinal state:\n%v", emu.Cpu)
		fmt.Printf("\nInstruction analysis:\n%v", emu.Describe(prog.Origin))
		fmt.Printf("\nInstructions executed: %d\n", emu.Ticks())
		fmt.Printf("Running: %v\n", emu.Running())
	}

	if !done {
		log.Fatalf("%v: stopped after %d instructions", os.Args[0], emu.Ticks())
	}
}
