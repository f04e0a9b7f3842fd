// Command mediator runs the DIDComm message mediator: it accepts inbound
// HTTP deliveries, dispatches them to a camped pub/sub listener or an
// FCM fallback, and recovers endpoints across broker failures.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mediator",
		Short:         "DIDComm message mediator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(startCmd())
	return root
}
