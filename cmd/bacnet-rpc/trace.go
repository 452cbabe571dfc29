package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maxzerker/bacnet-rpc/internal/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace FILE",
	Short: "Print a CBOR operation trace as JSON lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open trace: %w", err)
		}
		defer f.Close()

		records, err := trace.Read(f)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	},
}
