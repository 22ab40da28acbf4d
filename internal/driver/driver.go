// Package driver resolves a file-or-directory CLI argument into the set of
// .jack files to compile, and runs one Compiler per file, collecting
// per-file failures without letting one bad file abort its siblings.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/jacklang/jackc/internal/compiler"
	"github.com/jacklang/jackc/internal/token"
	"github.com/jacklang/jackc/internal/vmwriter"
	"github.com/jacklang/jackc/internal/xmlwriter"
)

// Options controls one invocation of Run.
type Options struct {
	// Path is a single .jack file or a directory containing .jack files.
	Path string
	// EmitXML additionally writes a <name>.xml debug parse tree beside each
	// <name>.jack file.
	EmitXML bool
	Log     *logrus.Logger
}

func removeExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}

// collectFiles resolves fileOrDir into a sorted list of .jack files: itself,
// if it names a single file, or every .jack entry of the directory it names.
func collectFiles(fileOrDir string) ([]string, error) {
	info, err := os.Stat(fileOrDir)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %q: %w", fileOrDir, err)
	}

	if !info.IsDir() {
		return []string{fileOrDir}, nil
	}

	entries, err := os.ReadDir(fileOrDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %w", fileOrDir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jack" {
			continue
		}
		files = append(files, filepath.Join(fileOrDir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// compileOne translates a single .jack file to a .vm file beside it, and
// optionally a .xml debug parse tree.
func compileOne(path string, emitXML bool) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer src.Close()

	vmOut, err := os.Create(removeExt(path) + ".vm")
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer vmOut.Close()

	var xml *xmlwriter.Writer
	if emitXML {
		xmlOut, err := os.Create(removeExt(path) + ".xml")
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		defer xmlOut.Close()
		xml = xmlwriter.New(xmlOut)
	}

	tok := token.New(src)
	vm := vmwriter.New(vmOut)
	c := compiler.New(tok, vm, xml)

	if err := c.Compile(); err != nil {
		// Compiler errors render as "<line>: <reason>", giving
		// "<file>:<line>: <reason>".
		return fmt.Errorf("%s:%w", path, err)
	}
	return nil
}

// Run compiles every .jack file named by opts.Path. It keeps going after a
// file fails so a single bad file never hides failures in its siblings, and
// returns the aggregate of every failure as a *multierror.Error (nil if all
// files compiled cleanly).
func Run(opts Options) error {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	files, err := collectFiles(opts.Path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .jack files found at %q", opts.Path)
	}

	var result *multierror.Error
	for _, file := range files {
		log.WithField("file", file).Info("compiling")
		if err := compileOne(file, opts.EmitXML); err != nil {
			log.WithField("file", file).WithError(err).Error("compile failed")
			result = multierror.Append(result, err)
			continue
		}
		log.WithField("file", file).Info("compiled")
	}
	return result.ErrorOrNil()
}
