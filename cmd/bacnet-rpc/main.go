package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "bacnet-rpc {serve|whois|read|write|read-multiple}",
	Short: "bacnet-rpc, a BACnet/IP gateway served as JSON over HTTP",
	Long: `
bacnet-rpc reads and writes BACnet object properties and discovers devices
on a BACnet/IP network, either as a long running HTTP(S) server or as one-shot
commands printing the JSON result.
`,
	Example: `  bacnet-rpc serve --config bacnet-rpc.yaml
  bacnet-rpc whois --start 201200 --end 201300
  bacnet-rpc read 201201 analog-input,2
  bacnet-rpc write 201201 analog-value,1 present-value 21.5 --priority 8`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func init() {
	cobra.EnableCommandSorting = false

	addSharedFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(serveCmd, whoisCmd, readCmd, writeCmd, readMultipleCmd, traceCmd, versionCmd)
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
