// Package compiler is the front end and driver of the Simple C compiler.
//
// Pipeline: source → Lex → Parse (driving pkg/checker) → pkg/codegen → i386 assembly text
package compiler
