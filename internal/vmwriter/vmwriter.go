// Package vmwriter emits the textual stack-VM instruction set that the
// compiler targets: one instruction per line, in the exact syntax the
// reference Nand2Tetris VM translator expects.
package vmwriter

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jacklang/jackc/internal/token"
)

// Segment is one of the eight addressable VM memory regions.
type Segment string

const (
	Constant Segment = "constant"
	Argument Segment = "argument"
	Local    Segment = "local"
	Static   Segment = "static"
	This     Segment = "this"
	That     Segment = "that"
	Pointer  Segment = "pointer"
	Temp     Segment = "temp"
)

// Op is one of the nine zero-operand arithmetic/logic VM commands.
type Op string

const (
	Add Op = "add"
	Sub Op = "sub"
	Neg Op = "neg"
	Eq  Op = "eq"
	Gt  Op = "gt"
	Lt  Op = "lt"
	And Op = "and"
	Or  Op = "or"
	Not Op = "not"
)

// Writer emits VM instructions to an underlying sink, one per line. It
// buffers output and must be closed (flushed) by the caller once the class
// is fully compiled.
type Writer struct {
	w   *bufio.Writer
	err error
}

// New wraps w as a VM instruction sink.
func New(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (v *Writer) line(format string, args ...any) {
	if v.err != nil {
		return
	}
	if _, err := fmt.Fprintf(v.w, format+"\n", args...); err != nil {
		v.err = err
	}
}

// Push emits "push <segment> <index>".
func (v *Writer) Push(segment Segment, index token.Word) {
	v.line("push %s %d", segment, index)
}

// Pop emits "pop <segment> <index>". Popping into Constant is never valid
// VM code (there is nowhere to store the popped value); the writer guards
// against it defensively even though a correct compiler never asks for it.
func (v *Writer) Pop(segment Segment, index token.Word) error {
	if segment == Constant {
		return fmt.Errorf("vmwriter: cannot pop into constant segment")
	}
	v.line("pop %s %d", segment, index)
	return nil
}

// Arithmetic emits a zero-operand arithmetic/logic command.
func (v *Writer) Arithmetic(op Op) {
	v.line("%s", op)
}

// Multiply and Divide have no native VM opcode; Jack's `*`/`/` compile to
// calls into the OS Math library instead.
func (v *Writer) Multiply() { v.Call("Math.multiply", 2) }
func (v *Writer) Divide()   { v.Call("Math.divide", 2) }

// Label, Goto, IfGoto emit the three control-flow directives.
func (v *Writer) Label(label string)  { v.line("label %s", label) }
func (v *Writer) Goto(label string)   { v.line("goto %s", label) }
func (v *Writer) IfGoto(label string) { v.line("if-goto %s", label) }

// Call emits "call <name> <nArgs>".
func (v *Writer) Call(name string, nArgs token.Word) {
	v.line("call %s %d", name, nArgs)
}

// Function emits "function <name> <nLocals>".
func (v *Writer) Function(name string, nLocals token.Word) {
	v.line("function %s %d", name, nLocals)
}

// Return emits "return".
func (v *Writer) Return() { v.line("return") }

// Comment emits a "//"-prefixed debug line; the reference VM translator
// ignores it.
func (v *Writer) Comment(format string, args ...any) {
	v.line("// "+format, args...)
}

// Close flushes buffered output. It must be called exactly once, after the
// last instruction for a class has been written.
func (v *Writer) Close() error {
	if err := v.w.Flush(); err != nil && v.err == nil {
		v.err = err
	}
	return v.err
}
