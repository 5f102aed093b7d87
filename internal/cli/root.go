package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// Execute builds the command tree, wires --verbose to the log level and
// runs the command selected by args. Logs go to stderr.
//
//	func main() {
//	    ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	    defer cancel()
//	    if err := cli.Execute(ctx, os.Args[1:], os.Stderr); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context, args []string, stderr io.Writer) error {
	return newRoot(stderr).runWith(ctx, args)
}

type root struct {
	cli     *CLI
	cmd     *cobra.Command
	verbose bool
}

func newRoot(stderr io.Writer) *root {
	r := &root{cli: New(stderr, LogInfo)}
	r.cmd = r.cli.RootCommand()
	r.cmd.PersistentFlags().BoolVarP(&r.verbose, "verbose", "v", false, "enable verbose logging")
	r.cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if r.verbose {
			r.cli.SetLogLevel(LogDebug)
		}
		cmd.SetContext(withLogger(cmd.Context(), r.cli.Logger))
		return nil
	}
	return r
}

func (r *root) runWith(ctx context.Context, args []string) error {
	r.cmd.SetArgs(args)
	return r.cmd.ExecuteContext(ctx)
}
