// Package xmlwriter emits the debug parse-tree artifact: a tree of tagged
// terminals and nonterminals that mirrors the grammar one-to-one.
package xmlwriter

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// Writer emits the indented XML parse tree. Open/Close bracket a
// nonterminal's children; Terminal emits a single tagged leaf line.
type Writer struct {
	w     *bufio.Writer
	depth int
	err   error
}

// New wraps w as an XML tree sink.
func New(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (x *Writer) writeLine(format string, args ...any) {
	if x.err != nil {
		return
	}
	indent := strings.Repeat("  ", x.depth)
	if _, err := fmt.Fprintf(x.w, indent+format+"\n", args...); err != nil {
		x.err = err
	}
}

// Open begins a nonterminal node, e.g. <letStatement>, and indents its
// children one level deeper.
func (x *Writer) Open(tag string) {
	x.writeLine("<%s>", tag)
	x.depth++
}

// Close ends the nonterminal most recently opened.
func (x *Writer) Close(tag string) {
	x.depth--
	x.writeLine("</%s>", tag)
}

// Terminal emits one tagged leaf, e.g. <keyword> class </keyword>, with the
// three XML special characters escaped in content.
func (x *Writer) Terminal(tag, content string) {
	x.writeLine("<%s> %s </%s>", tag, escaper.Replace(content), tag)
}

// Flush flushes buffered output.
func (x *Writer) Flush() error {
	if err := x.w.Flush(); err != nil && x.err == nil {
		x.err = err
	}
	return x.err
}
