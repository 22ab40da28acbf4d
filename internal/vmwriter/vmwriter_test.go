package vmwriter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterEmitsExpectedInstructions(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Push(Constant, 7)
	require.NoError(t, w.Pop(Local, 2))
	w.Arithmetic(Add)
	w.Multiply()
	w.Divide()
	w.Label("LOOP_0")
	w.Goto("LOOP_0")
	w.IfGoto("LOOP_0")
	w.Call("Math.multiply", 2)
	w.Function("Main.main", 3)
	w.Return()
	require.NoError(t, w.Close())

	want := `push constant 7
pop local 2
add
call Math.multiply 2
call Math.divide 2
label LOOP_0
goto LOOP_0
if-goto LOOP_0
call Math.multiply 2
function Main.main 3
return
`
	assert.Equal(t, want, buf.String())
}

func TestPopIntoConstantIsRejected(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	err := w.Pop(Constant, 0)
	assert.Error(t, err)
}
