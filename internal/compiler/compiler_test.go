package compiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacklang/jackc/internal/token"
	"github.com/jacklang/jackc/internal/vmwriter"
	"github.com/jacklang/jackc/internal/xmlwriter"
)

func compileSource(t *testing.T, src string) (string, error) {
	t.Helper()
	var vmBuf bytes.Buffer
	tok := token.New(strings.NewReader(src))
	vm := vmwriter.New(&vmBuf)
	c := New(tok, vm, nil)
	err := c.Compile()
	return vmBuf.String(), err
}

func TestCompileSimpleFunctionReturningConstant(t *testing.T) {
	src := `
class Main {
	function int answer() {
		return 42;
	}
}`
	out, err := compileSource(t, src)
	require.NoError(t, err)

	want := `function Main.answer 0
push constant 42
return
`
	assert.Equal(t, want, out)
}

func TestCompileLetWithFieldsAndConstructor(t *testing.T) {
	src := `
class Point {
	field int x, y;

	constructor Point new(int ax, int ay) {
		let x = ax;
		let y = ay;
		return this;
	}
}`
	out, err := compileSource(t, src)
	require.NoError(t, err)

	want := `function Point.new 0
push constant 2
call Memory.alloc 1
pop pointer 0
push argument 0
pop this 0
push argument 1
pop this 1
push pointer 0
return
`
	assert.Equal(t, want, out)
}

func TestCompileIfElseUsesSpecLabelNames(t *testing.T) {
	src := `
class Main {
	function void choose(boolean flag) {
		if (flag) {
			do Main.choose(flag);
		} else {
			do Main.choose(flag);
		}
		return;
	}
}`
	out, err := compileSource(t, src)
	require.NoError(t, err)

	assert.Contains(t, out, "label IF_TRUE_0")
	assert.Contains(t, out, "label IF_FALSE_0")
	assert.Contains(t, out, "label IF_END_0")
}

func TestCompileWhileUsesSpecLabelNames(t *testing.T) {
	src := `
class Main {
	function void loop() {
		while (true) {
			let x = 1;
		}
		return;
	}
}`
	// x is undeclared here on purpose; check label emission happens before
	// the undeclared-symbol error is raised by compileLet's final resolve.
	tok := token.New(strings.NewReader(src))
	var vmBuf bytes.Buffer
	vm := vmwriter.New(&vmBuf)
	c := New(tok, vm, nil)
	err := c.Compile()

	require.Error(t, err)
	// Compile flushes the VM writer only on success; flush the partial
	// output here so it can be inspected.
	require.NoError(t, vm.Close())
	assert.Contains(t, vmBuf.String(), "label WHILE_EXP_0")
	assert.Contains(t, vmBuf.String(), "if-goto WHILE_END_0")
}

func TestCompileStringConstant(t *testing.T) {
	src := `
class Main {
	function void main() {
		do Output.printString("hi");
		return;
	}
}`
	out, err := compileSource(t, src)
	require.NoError(t, err)

	want := `function Main.main 0
push constant 2
call String.new 1
push constant 104
call String.appendChar 2
push constant 105
call String.appendChar 2
call Output.printString 1
pop temp 0
push constant 0
return
`
	assert.Equal(t, want, out)
}

func TestCompileMethodCallOnVariableResolvesReceiverType(t *testing.T) {
	src := `
class Main {
	function void main() {
		var Point p;
		do p.dispose();
		return;
	}
}`
	out, err := compileSource(t, src)
	require.NoError(t, err)

	want := `function Main.main 1
push local 0
call Point.dispose 1
pop temp 0
push constant 0
return
`
	assert.Equal(t, want, out)
}

func TestUndeclaredVariableIsParseError(t *testing.T) {
	src := `
class Main {
	function void main() {
		let y = 1;
		return;
	}
}`
	_, err := compileSource(t, src)
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestDuplicateDeclarationIsSemanticallyRejected(t *testing.T) {
	src := `
class Main {
	field int x;
	field int x;
}`
	_, err := compileSource(t, src)
	require.Error(t, err)
	var semErr *SemanticError
	require.ErrorAs(t, err, &semErr)
}

func TestMissingSemicolonIsParseError(t *testing.T) {
	src := `
class Main {
	function void main() {
		return
	}
}`
	_, err := compileSource(t, src)
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestLabelCountersResetPerSubroutine(t *testing.T) {
	src := `
class Main {
	function void a() {
		if (true) {
			return;
		}
		return;
	}

	function void b() {
		if (true) {
			return;
		}
		return;
	}
}`
	out, err := compileSource(t, src)
	require.NoError(t, err)

	// Both subroutines' first if-statement must be labeled IF_TRUE_0: the
	// if/while counters reset at the start of each subroutine rather than
	// climbing across the whole class.
	assert.Equal(t, 2, strings.Count(out, "label IF_TRUE_0"))
}

func TestXMLParseTreeIsEmittedAlongsideVM(t *testing.T) {
	src := `
class Main {
	function void main() {
		return;
	}
}`
	var vmBuf, xmlBuf bytes.Buffer
	tok := token.New(strings.NewReader(src))
	vm := vmwriter.New(&vmBuf)
	xml := xmlwriter.New(&xmlBuf)
	c := New(tok, vm, xml)
	require.NoError(t, c.Compile())

	assert.Contains(t, xmlBuf.String(), "<class>")
	assert.Contains(t, xmlBuf.String(), "<keyword> class </keyword>")
	assert.Contains(t, xmlBuf.String(), "</class>")
}
