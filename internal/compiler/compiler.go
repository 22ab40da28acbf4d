// Package compiler implements the recursive-descent parser and code
// generator that together form the CompilationEngine of the spec: it walks
// Jack's LL(1) grammar token by token, resolves identifiers through a
// SymbolTable as it goes, and emits VM instructions (and, optionally, a
// debug XML parse tree) as each construct's semantics become known.
package compiler

import (
	"fmt"

	"github.com/jacklang/jackc/internal/symtab"
	"github.com/jacklang/jackc/internal/token"
	"github.com/jacklang/jackc/internal/vmwriter"
	"github.com/jacklang/jackc/internal/xmlwriter"
)

// Compiler drives one class's compilation: a single pass over the token
// stream from tok, emitting VM code to vm and, if xml is non-nil, a
// parallel debug parse tree to xml.
type Compiler struct {
	tok  *token.Tokenizer
	syms *symtab.Table
	vm   *vmwriter.Writer
	xml  *xmlwriter.Writer

	className string
	cur       token.Token
	atEOF     bool

	ifCount    int
	whileCount int
}

// New constructs a Compiler reading from tok and writing to vm. xml may be
// nil, in which case no debug parse tree is emitted.
func New(tok *token.Tokenizer, vm *vmwriter.Writer, xml *xmlwriter.Writer) *Compiler {
	return &Compiler{tok: tok, vm: vm, xml: xml, syms: symtab.New()}
}

// Compile parses and translates exactly one class, flushing both writers
// on success.
func (c *Compiler) Compile() error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.compileClass(); err != nil {
		return err
	}
	if !c.atEOF {
		return &ParseError{Line: c.cur.Line, Reason: "unexpected content after class body"}
	}
	if c.xml != nil {
		if err := c.xml.Flush(); err != nil {
			return err
		}
	}
	return c.vm.Close()
}

// --- token-stream plumbing ---------------------------------------------

// advance fetches the next token from the tokenizer. Reaching a clean end
// of input is not an error: it sets atEOF and leaves cur as the zero
// Token, and callers that require more input surface their own ParseError.
func (c *Compiler) advance() error {
	if c.tok.Scan() {
		c.cur = c.tok.Token()
		return nil
	}
	if err := c.tok.Err(); err != nil {
		return err
	}
	c.atEOF = true
	c.cur = token.Token{}
	return nil
}

func (c *Compiler) errExpected(want string) error {
	return &ParseError{Line: c.cur.Line, Reason: fmt.Sprintf("expected %q, got %q", want, c.cur.Text)}
}

func (c *Compiler) emitTerminal() {
	if c.xml != nil {
		c.xml.Terminal(c.cur.Kind.String(), c.cur.Text)
	}
}

// consume verifies cur matches each expected terminal in turn, mirroring
// it to the debug XML tree and advancing past it.
func (c *Compiler) consume(expected ...string) error {
	for _, want := range expected {
		if !c.cur.Is(want) {
			return c.errExpected(want)
		}
		c.emitTerminal()
		if err := c.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) consumeIdentifier() (string, error) {
	if c.cur.Kind != token.Identifier {
		return "", &ParseError{Line: c.cur.Line, Reason: fmt.Sprintf("expected identifier, got %q", c.cur.Text)}
	}
	name := c.cur.Text
	c.emitTerminal()
	if err := c.advance(); err != nil {
		return "", err
	}
	return name, nil
}

// consumeType parses `int | char | boolean | className`.
func (c *Compiler) consumeType() (string, error) {
	if c.cur.Is("int", "char", "boolean") {
		t := c.cur.Text
		c.emitTerminal()
		if err := c.advance(); err != nil {
			return "", err
		}
		return t, nil
	}
	return c.consumeIdentifier()
}

// --- symbol resolution ---------------------------------------------------

func segmentFor(kind symtab.Kind) vmwriter.Segment {
	switch kind {
	case symtab.Static:
		return vmwriter.Static
	case symtab.Field:
		return vmwriter.This
	case symtab.Arg:
		return vmwriter.Argument
	case symtab.Var:
		return vmwriter.Local
	default:
		panic("compiler: unreachable symbol kind")
	}
}

// resolveVariable looks name up in the active symbol tables, reporting an
// undefined-symbol ParseError per spec §7 if it isn't declared.
func (c *Compiler) resolveVariable(name string) (symtab.Entry, error) {
	entry, ok := c.syms.Lookup(name)
	if !ok {
		return symtab.Entry{}, &ParseError{Line: c.cur.Line, Reason: fmt.Sprintf("undefined symbol %q", name)}
	}
	return entry, nil
}

// --- class / subroutine structure ---------------------------------------

func (c *Compiler) compileClass() error {
	if c.xml != nil {
		c.xml.Open("class")
	}
	if err := c.consume("class"); err != nil {
		return err
	}
	c.syms.Reset(symtab.Class)

	name, err := c.consumeIdentifier()
	if err != nil {
		return err
	}
	c.className = name

	if err := c.consume("{"); err != nil {
		return err
	}
	for c.cur.Is("static", "field") {
		if err := c.compileClassVarDec(); err != nil {
			return err
		}
	}
	for c.cur.Is("constructor", "function", "method") {
		if err := c.compileSubroutineDec(); err != nil {
			return err
		}
	}
	if err := c.consume("}"); err != nil {
		return err
	}
	if c.xml != nil {
		c.xml.Close("class")
	}
	return nil
}

func (c *Compiler) compileClassVarDec() error {
	if c.xml != nil {
		c.xml.Open("classVarDec")
	}
	var kind symtab.Kind
	switch {
	case c.cur.Is("static"):
		kind = symtab.Static
		if err := c.consume("static"); err != nil {
			return err
		}
	case c.cur.Is("field"):
		kind = symtab.Field
		if err := c.consume("field"); err != nil {
			return err
		}
	default:
		return &ParseError{Line: c.cur.Line, Reason: `expected "static" or "field"`}
	}
	if _, err := c.compileVarSequence(kind, symtab.Class); err != nil {
		return err
	}
	if c.xml != nil {
		c.xml.Close("classVarDec")
	}
	return nil
}

// compileVarSequence parses `type varName (',' varName)* ';'`, declaring
// each name in scope under kind, and reports how many names it declared.
func (c *Compiler) compileVarSequence(kind symtab.Kind, scope symtab.Scope) (token.Word, error) {
	varType, err := c.consumeType()
	if err != nil {
		return 0, err
	}
	count := token.Word(0)
	for {
		name, err := c.consumeIdentifier()
		if err != nil {
			return 0, err
		}
		if _, err := c.syms.Declare(scope, name, varType, kind); err != nil {
			return 0, &SemanticError{Line: c.cur.Line, Reason: err.Error()}
		}
		count++
		if !c.cur.Is(",") {
			break
		}
		if err := c.consume(","); err != nil {
			return 0, err
		}
	}
	if err := c.consume(";"); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *Compiler) compileSubroutineDec() error {
	if c.xml != nil {
		c.xml.Open("subroutineDec")
	}
	c.syms.Reset(symtab.Subroutine)
	c.ifCount, c.whileCount = 0, 0

	kind := c.cur.Text // "constructor" | "function" | "method"
	if err := c.consume(kind); err != nil {
		return err
	}

	if kind == "method" {
		if _, err := c.syms.Declare(symtab.Subroutine, "this", c.className, symtab.Arg); err != nil {
			return &SemanticError{Line: c.cur.Line, Reason: err.Error()}
		}
	}

	if c.cur.Is("void") {
		if err := c.consume("void"); err != nil {
			return err
		}
	} else if _, err := c.consumeType(); err != nil {
		return err
	}

	name, err := c.consumeIdentifier()
	if err != nil {
		return err
	}

	if err := c.consume("("); err != nil {
		return err
	}
	if c.xml != nil {
		c.xml.Open("parameterList")
	}
	if !c.cur.Is(")") {
		if err := c.compileParameterList(); err != nil {
			return err
		}
	}
	if c.xml != nil {
		c.xml.Close("parameterList")
	}
	if err := c.consume(")"); err != nil {
		return err
	}

	if err := c.compileSubroutineBody(name, kind); err != nil {
		return err
	}

	if c.xml != nil {
		c.xml.Close("subroutineDec")
	}
	return nil
}

func (c *Compiler) compileParameterList() error {
	for {
		varType, err := c.consumeType()
		if err != nil {
			return err
		}
		name, err := c.consumeIdentifier()
		if err != nil {
			return err
		}
		if _, err := c.syms.Declare(symtab.Subroutine, name, varType, symtab.Arg); err != nil {
			return &SemanticError{Line: c.cur.Line, Reason: err.Error()}
		}
		if !c.cur.Is(",") {
			return nil
		}
		if err := c.consume(","); err != nil {
			return err
		}
	}
}

func (c *Compiler) compileSubroutineBody(name, kind string) error {
	if c.xml != nil {
		c.xml.Open("subroutineBody")
	}
	if err := c.consume("{"); err != nil {
		return err
	}

	nLocals := token.Word(0)
	for c.cur.Is("var") {
		n, err := c.compileVarDec()
		if err != nil {
			return err
		}
		nLocals += n
	}

	c.vm.Function(c.className+"."+name, nLocals)

	switch kind {
	case "constructor":
		nFields := c.syms.Count(symtab.Class, symtab.Field)
		c.vm.Push(vmwriter.Constant, nFields)
		c.vm.Call("Memory.alloc", 1)
		if err := c.vm.Pop(vmwriter.Pointer, 0); err != nil {
			return err
		}
	case "method":
		c.vm.Push(vmwriter.Argument, 0)
		if err := c.vm.Pop(vmwriter.Pointer, 0); err != nil {
			return err
		}
	}

	if err := c.compileStatements(); err != nil {
		return err
	}
	if err := c.consume("}"); err != nil {
		return err
	}
	if c.xml != nil {
		c.xml.Close("subroutineBody")
	}
	return nil
}

func (c *Compiler) compileVarDec() (token.Word, error) {
	if c.xml != nil {
		c.xml.Open("varDec")
	}
	if err := c.consume("var"); err != nil {
		return 0, err
	}
	count, err := c.compileVarSequence(symtab.Var, symtab.Subroutine)
	if err != nil {
		return 0, err
	}
	if c.xml != nil {
		c.xml.Close("varDec")
	}
	return count, nil
}

// --- statements -----------------------------------------------------------

func (c *Compiler) compileStatements() error {
	if c.xml != nil {
		c.xml.Open("statements")
	}
	for {
		switch {
		case c.cur.Is("let"):
			if err := c.compileLet(); err != nil {
				return err
			}
		case c.cur.Is("if"):
			if err := c.compileIf(); err != nil {
				return err
			}
		case c.cur.Is("while"):
			if err := c.compileWhile(); err != nil {
				return err
			}
		case c.cur.Is("do"):
			if err := c.compileDo(); err != nil {
				return err
			}
		case c.cur.Is("return"):
			if err := c.compileReturn(); err != nil {
				return err
			}
		default:
			if c.xml != nil {
				c.xml.Close("statements")
			}
			return nil
		}
	}
}

func (c *Compiler) compileLet() error {
	if c.xml != nil {
		c.xml.Open("letStatement")
	}
	if err := c.consume("let"); err != nil {
		return err
	}
	name, err := c.consumeIdentifier()
	if err != nil {
		return err
	}

	indexed := false
	if c.cur.Is("[") {
		indexed = true
		if err := c.consume("["); err != nil {
			return err
		}
		if err := c.compileArrayAddress(name); err != nil {
			return err
		}
		if err := c.consume("]"); err != nil {
			return err
		}
	}

	if err := c.consume("="); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.consume(";"); err != nil {
		return err
	}

	if indexed {
		// The RHS value is on top of stack, the target address below it.
		// Stash the value, bind THAT to the address, restore, and store.
		if err := c.vm.Pop(vmwriter.Temp, 0); err != nil {
			return err
		}
		if err := c.vm.Pop(vmwriter.Pointer, 1); err != nil {
			return err
		}
		c.vm.Push(vmwriter.Temp, 0)
		if err := c.vm.Pop(vmwriter.That, 0); err != nil {
			return err
		}
	} else {
		entry, err := c.resolveVariable(name)
		if err != nil {
			return err
		}
		if err := c.vm.Pop(segmentFor(entry.Kind), entry.Index); err != nil {
			return err
		}
	}

	if c.xml != nil {
		c.xml.Close("letStatement")
	}
	return nil
}

// compileArrayAddress leaves `name`'s base address plus the bracketed
// index expression's value, summed, on top of the stack.
func (c *Compiler) compileArrayAddress(name string) error {
	entry, err := c.resolveVariable(name)
	if err != nil {
		return err
	}
	c.vm.Push(segmentFor(entry.Kind), entry.Index)
	if err := c.compileExpression(); err != nil {
		return err
	}
	c.vm.Arithmetic(vmwriter.Add)
	return nil
}

func (c *Compiler) compileIf() error {
	if c.xml != nil {
		c.xml.Open("ifStatement")
	}
	if err := c.consume("if", "("); err != nil {
		return err
	}

	id := c.nextIfLabel()
	trueLabel := fmt.Sprintf("IF_TRUE_%d", id)
	falseLabel := fmt.Sprintf("IF_FALSE_%d", id)
	endLabel := fmt.Sprintf("IF_END_%d", id)

	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.consume(")", "{"); err != nil {
		return err
	}

	c.vm.IfGoto(trueLabel)
	c.vm.Goto(falseLabel)
	c.vm.Label(trueLabel)

	if err := c.compileStatements(); err != nil {
		return err
	}
	if err := c.consume("}"); err != nil {
		return err
	}

	hasElse := c.cur.Is("else")
	if hasElse {
		c.vm.Goto(endLabel)
	}
	c.vm.Label(falseLabel)

	if hasElse {
		if err := c.consume("else", "{"); err != nil {
			return err
		}
		if err := c.compileStatements(); err != nil {
			return err
		}
		if err := c.consume("}"); err != nil {
			return err
		}
		c.vm.Label(endLabel)
	}

	if c.xml != nil {
		c.xml.Close("ifStatement")
	}
	return nil
}

func (c *Compiler) compileWhile() error {
	if c.xml != nil {
		c.xml.Open("whileStatement")
	}
	if err := c.consume("while", "("); err != nil {
		return err
	}

	id := c.nextWhileLabel()
	expLabel := fmt.Sprintf("WHILE_EXP_%d", id)
	endLabel := fmt.Sprintf("WHILE_END_%d", id)

	c.vm.Label(expLabel)
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.consume(")", "{"); err != nil {
		return err
	}

	c.vm.Arithmetic(vmwriter.Not)
	c.vm.IfGoto(endLabel)

	if err := c.compileStatements(); err != nil {
		return err
	}
	if err := c.consume("}"); err != nil {
		return err
	}

	c.vm.Goto(expLabel)
	c.vm.Label(endLabel)

	if c.xml != nil {
		c.xml.Close("whileStatement")
	}
	return nil
}

func (c *Compiler) compileDo() error {
	if c.xml != nil {
		c.xml.Open("doStatement")
	}
	if err := c.consume("do"); err != nil {
		return err
	}
	if err := c.compileSubroutineCall(); err != nil {
		return err
	}
	// Jack subroutines always push a return value; `do` discards it.
	if err := c.vm.Pop(vmwriter.Temp, 0); err != nil {
		return err
	}
	if err := c.consume(";"); err != nil {
		return err
	}
	if c.xml != nil {
		c.xml.Close("doStatement")
	}
	return nil
}

func (c *Compiler) compileReturn() error {
	if c.xml != nil {
		c.xml.Open("returnStatement")
	}
	if err := c.consume("return"); err != nil {
		return err
	}
	if c.cur.Is(";") {
		c.vm.Push(vmwriter.Constant, 0)
	} else {
		if err := c.compileExpression(); err != nil {
			return err
		}
	}
	c.vm.Return()
	if err := c.consume(";"); err != nil {
		return err
	}
	if c.xml != nil {
		c.xml.Close("returnStatement")
	}
	return nil
}

// --- expressions ------------------------------------------------------

func isBinaryOp(t token.Token) bool {
	return t.Is("+", "-", "*", "/", "&", "|", "<", ">", "=")
}

func (c *Compiler) emitBinaryOp(op string) {
	switch op {
	case "+":
		c.vm.Arithmetic(vmwriter.Add)
	case "-":
		c.vm.Arithmetic(vmwriter.Sub)
	case "&":
		c.vm.Arithmetic(vmwriter.And)
	case "|":
		c.vm.Arithmetic(vmwriter.Or)
	case "<":
		c.vm.Arithmetic(vmwriter.Lt)
	case ">":
		c.vm.Arithmetic(vmwriter.Gt)
	case "=":
		c.vm.Arithmetic(vmwriter.Eq)
	case "*":
		c.vm.Multiply()
	case "/":
		c.vm.Divide()
	}
}

// compileExpression: term (op term)*. Ops are evaluated strictly
// left-to-right with no precedence; each operator is emitted after its
// right operand has been compiled.
func (c *Compiler) compileExpression() error {
	if c.xml != nil {
		c.xml.Open("expression")
	}
	if err := c.compileTerm(); err != nil {
		return err
	}
	for isBinaryOp(c.cur) {
		op := c.cur.Text
		if err := c.consume(op); err != nil {
			return err
		}
		if err := c.compileTerm(); err != nil {
			return err
		}
		c.emitBinaryOp(op)
	}
	if c.xml != nil {
		c.xml.Close("expression")
	}
	return nil
}

func (c *Compiler) compileExpressionList() (token.Word, error) {
	if c.xml != nil {
		c.xml.Open("expressionList")
	}
	count := token.Word(0)
	if !c.cur.Is(")") {
		if err := c.compileExpression(); err != nil {
			return 0, err
		}
		count++
		for c.cur.Is(",") {
			if err := c.consume(","); err != nil {
				return 0, err
			}
			if err := c.compileExpression(); err != nil {
				return 0, err
			}
			count++
		}
	}
	if c.xml != nil {
		c.xml.Close("expressionList")
	}
	return count, nil
}

func (c *Compiler) compileTerm() error {
	if c.xml != nil {
		c.xml.Open("term")
	}
	if err := c.compileTermInner(); err != nil {
		return err
	}
	if c.xml != nil {
		c.xml.Close("term")
	}
	return nil
}

func (c *Compiler) compileTermInner() error {
	switch {
	case c.cur.Kind == token.IntConst:
		n := c.cur.Int()
		c.emitTerminal()
		if err := c.advance(); err != nil {
			return err
		}
		c.vm.Push(vmwriter.Constant, n)
		return nil

	case c.cur.Kind == token.StringConst:
		s := c.cur.Text
		c.emitTerminal()
		if err := c.advance(); err != nil {
			return err
		}
		c.emitStringConstant(s)
		return nil

	case c.cur.Is("true"):
		if err := c.consume("true"); err != nil {
			return err
		}
		c.vm.Push(vmwriter.Constant, 0)
		c.vm.Arithmetic(vmwriter.Not)
		return nil

	case c.cur.Is("false", "null"):
		term := c.cur.Text
		if err := c.consume(term); err != nil {
			return err
		}
		c.vm.Push(vmwriter.Constant, 0)
		return nil

	case c.cur.Is("this"):
		if err := c.consume("this"); err != nil {
			return err
		}
		c.vm.Push(vmwriter.Pointer, 0)
		return nil

	case c.cur.Is("("):
		if err := c.consume("("); err != nil {
			return err
		}
		if err := c.compileExpression(); err != nil {
			return err
		}
		return c.consume(")")

	case c.cur.Is("-", "~"):
		op := c.cur.Text
		if err := c.consume(op); err != nil {
			return err
		}
		if err := c.compileTerm(); err != nil {
			return err
		}
		if op == "-" {
			c.vm.Arithmetic(vmwriter.Neg)
		} else {
			c.vm.Arithmetic(vmwriter.Not)
		}
		return nil

	case c.cur.Kind == token.Identifier:
		return c.compileVarOrCallTerm()

	default:
		return &ParseError{Line: c.cur.Line, Reason: fmt.Sprintf("unexpected token %q", c.cur.Text)}
	}
}

// emitStringConstant compiles a string literal exactly per spec §4.4: a
// fresh String, appended one character at a time. No temp-segment staging
// is needed — String.appendChar returns its receiver, so the pointer left
// on the stack by the previous call is already in place as the next call's
// first argument.
func (c *Compiler) emitStringConstant(s string) {
	c.vm.Push(vmwriter.Constant, token.Word(len(s)))
	c.vm.Call("String.new", 1)
	for _, ch := range s {
		c.vm.Push(vmwriter.Constant, token.Word(ch))
		c.vm.Call("String.appendChar", 2)
	}
}

// compileVarOrCallTerm disambiguates the four term shapes that start with
// an identifier, using the one token of lookahead `consumeIdentifier`
// leaves in cur: varName, varName[expr], name(args), name.name(args).
func (c *Compiler) compileVarOrCallTerm() error {
	name, err := c.consumeIdentifier()
	if err != nil {
		return err
	}

	switch {
	case c.cur.Is("["):
		if err := c.consume("["); err != nil {
			return err
		}
		if err := c.compileArrayAddress(name); err != nil {
			return err
		}
		if err := c.consume("]"); err != nil {
			return err
		}
		if err := c.vm.Pop(vmwriter.Pointer, 1); err != nil {
			return err
		}
		c.vm.Push(vmwriter.That, 0)
		return nil

	case c.cur.Is("(", "."):
		return c.compileSubroutineCallNamed(name)

	default:
		entry, err := c.resolveVariable(name)
		if err != nil {
			return err
		}
		c.vm.Push(segmentFor(entry.Kind), entry.Index)
		return nil
	}
}

// compileSubroutineCall parses a subroutineCall whose leading identifier
// hasn't been consumed yet (the `do` statement's position).
func (c *Compiler) compileSubroutineCall() error {
	name, err := c.consumeIdentifier()
	if err != nil {
		return err
	}
	return c.compileSubroutineCallNamed(name)
}

// compileSubroutineCallNamed implements the three call forms of spec §4.4:
// a bare name(...) is a call to a method of the current class; a
// receiver.name(...) where receiver resolves to a declared variable is a
// method call on that object; otherwise Class.name(...) is a function or
// constructor call.
func (c *Compiler) compileSubroutineCallNamed(name string) error {
	switch {
	case c.cur.Is("."):
		if err := c.consume("."); err != nil {
			return err
		}
		methodName, err := c.consumeIdentifier()
		if err != nil {
			return err
		}

		nArgs := token.Word(0)
		fullName := name + "." + methodName
		if entry, ok := c.syms.Lookup(name); ok {
			c.vm.Push(segmentFor(entry.Kind), entry.Index)
			nArgs++
			fullName = entry.Type + "." + methodName
		}

		if err := c.consume("("); err != nil {
			return err
		}
		n, err := c.compileExpressionList()
		if err != nil {
			return err
		}
		nArgs += n
		if err := c.consume(")"); err != nil {
			return err
		}

		c.vm.Call(fullName, nArgs)
		return nil

	case c.cur.Is("("):
		c.vm.Push(vmwriter.Pointer, 0)
		if err := c.consume("("); err != nil {
			return err
		}
		n, err := c.compileExpressionList()
		if err != nil {
			return err
		}
		if err := c.consume(")"); err != nil {
			return err
		}
		c.vm.Call(c.className+"."+name, n+1)
		return nil

	default:
		return &ParseError{Line: c.cur.Line, Reason: fmt.Sprintf(`expected "(" or ".", got %q`, c.cur.Text)}
	}
}

// --- label generation ----------------------------------------------------

func (c *Compiler) nextIfLabel() int {
	id := c.ifCount
	c.ifCount++
	return id
}

func (c *Compiler) nextWhileLabel() int {
	id := c.whileCount
	c.whileCount++
	return id
}
