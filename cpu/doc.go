// Package cpu implements the processor and assembler for an LC-3 class
// machine.
//
// The CPU has eight 16-bit general-purpose registers (R0-R7), a program
// counter (PC), and a condition code register (COND) holding exactly one of
// the N, Z or P flags. Memory is 65536 words, word addressed. Each Step
// fetches the word at PC, advances PC, and executes it; arithmetic wraps
// modulo 65536.
//
// The trap service routines for console I/O delegate to an injected Console,
// so the processor itself never touches a terminal.
//
// The assembler accepts the usual LC-3 assembly language (.ORIG, .FILL,
// .BLKW, .STRINGZ, .END), plus macros, equates, and compile-time expression
// evaluation.
package cpu
