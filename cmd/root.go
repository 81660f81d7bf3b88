package cmd

import (
	"github.com/grovetools/editorbridge/cli"
	"github.com/grovetools/editorbridge/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the editorbridge command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"editorbridge",
		"Drive rich-text editor surfaces and follow their formatting state",
	)
	rootCmd.Long = `editorbridge hosts a rich-text editor surface behind a script transport.
Commands become scripts for the surface; the events it raises are decoded into
the style state under the cursor.

Surfaces are reached over a websocket from a browser page, through a Neovim
instance, or run in-process on the built-in Lua surface.`

	rootCmd.AddCommand(
		NewServeCmd(),
		NewReplCmd(),
		NewDemoCmd(),
		NewConfigCmd(),
		cli.NewVersionCommand("editorbridge"),
	)

	cli.SetVersionTemplate(rootCmd, version.GetInfo())
	cli.ApplyStyledHelpRecursive(rootCmd)
	return rootCmd
}

// Execute runs the command tree and reports a failure through the error handler.
func Execute() error {
	rootCmd := NewRootCmd()
	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		if cmd == nil {
			cmd = rootCmd
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		return cli.NewErrorHandler(verbose).Handle(err)
	}
	return nil
}
