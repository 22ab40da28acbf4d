// Command jackc compiles Jack source into Hack VM code.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jacklang/jackc/internal/driver"
)

func newRootCmd() *cobra.Command {
	var (
		emitXML bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "jackc <file.jack | directory>",
		Short:         "Compile Jack source files to Hack VM code",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.New()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			return driver.Run(driver.Options{
				Path:    args[0],
				EmitXML: emitXML,
				Log:     log,
			})
		},
	}

	cmd.Flags().BoolVarP(&emitXML, "xml", "x", false, "also emit a debug XML parse tree per file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
