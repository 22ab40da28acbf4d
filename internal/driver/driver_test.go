package driver

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRunCompilesDirectoryAndWritesVMFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Main.jack", `
class Main {
	function void main() {
		return;
	}
}`)
	writeFile(t, dir, "ignored.txt", "not jack source")

	err := Run(Options{Path: dir, Log: silentLogger()})
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "function Main.main 0")
}

func TestRunEmitsXMLWhenRequested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Main.jack", `
class Main {
	function void main() {
		return;
	}
}`)

	err := Run(Options{Path: dir, EmitXML: true, Log: silentLogger()})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "Main.xml"))
	require.NoError(t, err)
}

func TestRunAggregatesFailuresAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Good.jack", `
class Good {
	function void main() {
		return;
	}
}`)
	writeFile(t, dir, "Bad.jack", `class Bad { function void main() { return`)

	err := Run(Options{Path: dir, Log: silentLogger()})
	require.Error(t, err)

	_, err = os.Stat(filepath.Join(dir, "Good.vm"))
	assert.NoError(t, err, "a failing sibling file must not prevent Good.jack from compiling")
}

func TestRunOnSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Solo.jack", `
class Solo {
	function void main() {
		return;
	}
}`)

	err := Run(Options{Path: path, Log: silentLogger()})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "Solo.vm"))
	require.NoError(t, err)
}

func TestRunOnMissingPathFails(t *testing.T) {
	err := Run(Options{Path: filepath.Join(t.TempDir(), "missing"), Log: silentLogger()})
	assert.Error(t, err)
}
