package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AnyUserName/reducepic/internal/encoder"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the output formats available on this machine",
	Args:  cobra.NoArgs,
	RunE:  runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func runFormats(_ *cobra.Command, _ []string) error {
	reg := encoder.NewRegistry()

	tbl := printer.NewTable([]string{"Format", "Extension", "MIME type", "Quality"})
	for _, f := range reg.Available() {
		enc, err := reg.Get(f)
		if err != nil {
			return err
		}
		q := "lossy"
		if enc.Lossless() {
			q = "lossless"
		}
		tbl.AddRow(enc.Format(), "."+enc.Extension(), enc.MIMEType(), q)
	}
	if err := tbl.Render(); err != nil {
		return err
	}

	if _, err := reg.Get("avif"); err != nil {
		printer.Info("avif needs avifenc on PATH")
	}
	return nil
}
