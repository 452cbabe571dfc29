package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maxzerker/bacnet-rpc/gateway"
)

var (
	whoisStart    int64
	whoisEnd      int64
	whoisInstance int64
	whoisAddress  string
	writePriority int
)

var whoisCmd = &cobra.Command{
	Use:   "whois",
	Short: "Broadcast Who-Is and print the devices that answer",
	Example: `  bacnet-rpc whois
  bacnet-rpc whois --start 201200 --end 201300
  bacnet-rpc whois --instance 201201 --address 192.168.1.20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStack(cmd, func(s *stack) error {
			var (
				devices []gateway.DeviceIdentification
				err     error
			)
			if cmd.Flags().Changed("instance") {
				devices, err = s.service.WhoIsDevice(cmd.Context(), whoisInstance, whoisAddress)
			} else {
				req := gateway.WhoIsRequest{}
				if cmd.Flags().Changed("start") {
					req.StartInstance = &whoisStart
				}
				if cmd.Flags().Changed("end") {
					req.EndInstance = &whoisEnd
				}
				devices, err = s.service.WhoIs(cmd.Context(), req)
			}
			if err != nil {
				return printJSON(cmd.OutOrStdout(), gateway.Failed(err))
			}
			return printJSON(cmd.OutOrStdout(), devices)
		})
	},
}

var readCmd = &cobra.Command{
	Use:     "read DEVICE OBJECT [PROPERTY]",
	Short:   "Read one property, present-value by default",
	Example: `  bacnet-rpc read 201201 analog-input,2 units`,
	Args:    cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := parseDevice(args[0])
		if err != nil {
			return err
		}
		req := gateway.ReadRequest{DeviceInstance: device, ObjectIdentifier: args[1]}
		if len(args) == 3 {
			req.PropertyIdentifier = args[2]
		}
		return withStack(cmd, func(s *stack) error {
			return printJSON(cmd.OutOrStdout(), s.service.Read(cmd.Context(), req))
		})
	},
}

var writeCmd = &cobra.Command{
	Use:   "write DEVICE OBJECT PROPERTY VALUE",
	Short: "Write one property, or relinquish it with the value null",
	Example: `  bacnet-rpc write 201201 analog-value,1 present-value 21.5 --priority 8
  bacnet-rpc write 201201 analog-value,1 present-value null --priority 8`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := parseDevice(args[0])
		if err != nil {
			return err
		}
		req := gateway.WriteRequest{
			DeviceInstance:     device,
			ObjectIdentifier:   args[1],
			PropertyIdentifier: args[2],
			Value:              parseValue(args[3]),
		}
		if cmd.Flags().Changed("priority") {
			req.Priority = &writePriority
		}
		return withStack(cmd, func(s *stack) error {
			return printJSON(cmd.OutOrStdout(), s.service.Write(cmd.Context(), req))
		})
	},
}

var readMultipleCmd = &cobra.Command{
	Use:     "read-multiple DEVICE OBJECT[:PROPERTY]...",
	Short:   "Read several properties in one request",
	Example: `  bacnet-rpc read-multiple 201201 analog-input,2 analog-input,2:units analog-value,1:priority-array`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := parseDevice(args[0])
		if err != nil {
			return err
		}
		req := gateway.ReadMultipleRequest{DeviceInstance: device}
		for _, arg := range args[1:] {
			req.Requests = append(req.Requests, parseBatchItem(arg))
		}
		return withStack(cmd, func(s *stack) error {
			return printJSON(cmd.OutOrStdout(), s.service.ReadMultiple(cmd.Context(), req))
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	whoisCmd.Flags().Int64Var(&whoisStart, "start", 0, "lowest device instance to ask")
	whoisCmd.Flags().Int64Var(&whoisEnd, "end", 0, "highest device instance to ask")
	whoisCmd.Flags().Int64Var(&whoisInstance, "instance", 0, "ask a single device instance")
	whoisCmd.Flags().StringVar(&whoisAddress, "address", "", "send the single device Who-Is to ip[:port] instead of broadcasting")
	whoisCmd.MarkFlagsMutuallyExclusive("instance", "start")
	whoisCmd.MarkFlagsMutuallyExclusive("instance", "end")
	whoisCmd.MarkFlagsRequiredTogether("start", "end")

	writeCmd.Flags().IntVar(&writePriority, "priority", 0, "command priority 1-16")
}

// withStack runs fn against a freshly opened stack; logs go to stderr so
// stdout carries only the JSON result.
func withStack(cmd *cobra.Command, fn func(*stack) error) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	s, err := newStack(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDevice(s string) (int64, error) {
	device, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("device instance %q is not a number", s)
	}
	return device, nil
}

// parseValue passes numbers through as JSON numbers so they are echoed as
// numbers, everything else as a string.
func parseValue(s string) any {
	if _, err := strconv.ParseFloat(s, 64); err == nil && json.Valid([]byte(s)) {
		return json.Number(s)
	}
	return s
}

// parseBatchItem splits "analog-input,2:units". The property defaults to
// present-value.
func parseBatchItem(s string) gateway.BatchItem {
	object, property, found := strings.Cut(s, ":")
	if !found || property == "" {
		property = "present-value"
	}
	return gateway.BatchItem{ObjectIdentifier: object, PropertyIdentifier: property}
}
