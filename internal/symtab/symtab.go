// Package symtab implements the two-scope symbol tables that resolve Jack
// identifiers to a memory kind and a dense, kind-local index.
package symtab

import (
	"fmt"

	"github.com/jacklang/jackc/internal/token"
)

// Kind is a Jack variable kind, corresponding 1:1 to a VM memory segment.
type Kind int

const (
	Static Kind = iota
	Field
	Arg
	Var
	numKinds
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Field:
		return "field"
	case Arg:
		return "argument"
	case Var:
		return "var"
	default:
		return "invalid"
	}
}

// Entry is one resolved symbol: its declared type, kind, and the index
// assigned to it within its kind's counter.
type Entry struct {
	Name  string
	Type  string
	Kind  Kind
	Index token.Word
}

// Scope selects which of the two tables Declare/Count/Reset operate on.
type Scope int

const (
	Class Scope = iota
	Subroutine
)

// DuplicateError reports a second declaration of a name already present in
// the targeted scope.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%q is already declared in this scope", e.Name)
}

// table holds one scope's entries plus a running counter per kind, so
// Declare is O(1) instead of rescanning the map on every insertion.
type table struct {
	entries map[string]Entry
	counts  [numKinds]token.Word
}

func newTable() table {
	return table{entries: make(map[string]Entry)}
}

// Table is the pair of symbol tables the compiler maintains: one scoped to
// the current class (Static, Field), one scoped to the current subroutine
// (Arg, Var). Subroutine scope shadows class scope on lookup.
type Table struct {
	class      table
	subroutine table
}

// New returns an empty symbol table pair.
func New() *Table {
	return &Table{class: newTable(), subroutine: newTable()}
}

func (t *Table) scope(s Scope) *table {
	if s == Class {
		return &t.class
	}
	return &t.subroutine
}

// Declare registers name with the given type and kind in scope, assigning
// it the next free index for that kind. It fails if name is already
// declared in that same scope.
func (t *Table) Declare(scope Scope, name, varType string, kind Kind) (Entry, error) {
	tbl := t.scope(scope)
	if _, ok := tbl.entries[name]; ok {
		return Entry{}, &DuplicateError{Name: name}
	}
	entry := Entry{Name: name, Type: varType, Kind: kind, Index: tbl.counts[kind]}
	tbl.counts[kind]++
	tbl.entries[name] = entry
	return entry, nil
}

// Count reports how many symbols of kind have been declared in scope.
func (t *Table) Count(scope Scope, kind Kind) token.Word {
	return t.scope(scope).counts[kind]
}

// Lookup finds name, preferring subroutine scope over class scope.
func (t *Table) Lookup(name string) (Entry, bool) {
	if entry, ok := t.subroutine.entries[name]; ok {
		return entry, true
	}
	entry, ok := t.class.entries[name]
	return entry, ok
}

// Reset clears scope's entries and counters. Clearing Class also clears
// Subroutine, since a subroutine can never outlive its enclosing class.
func (t *Table) Reset(scope Scope) {
	t.scope(Subroutine).entries = make(map[string]Entry)
	t.scope(Subroutine).counts = [numKinds]token.Word{}
	if scope == Class {
		t.scope(Class).entries = make(map[string]Entry)
		t.scope(Class).counts = [numKinds]token.Word{}
	}
}
