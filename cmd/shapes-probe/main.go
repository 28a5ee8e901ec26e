package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errNotOK marks a completed check whose outcome was not a success.
var errNotOK = errors.New("check did not succeed")

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:           "shapes-probe",
		Short:         "Call the hello and shapes endpoints and interpret the results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(helloCmd())
	rootCmd.AddCommand(shapesCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(iconCmd())
	rootCmd.AddCommand(configCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errNotOK) {
			fmt.Fprintf(os.Stderr, "shapes-probe failed: %v\n", err)
		}
		os.Exit(1)
	}
}
