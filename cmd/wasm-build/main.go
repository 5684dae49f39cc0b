// Command wasm-build turns a component crate with a WIT world description
// into a validated WebAssembly component.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	wasmbuild "github.com/wippyai/wasm-build"
	"github.com/wippyai/wasm-build/build"
	"github.com/wippyai/wasm-build/resolve"
	"github.com/wippyai/wasm-build/target"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wasm-build",
		Short:         "Build WebAssembly components from WIT worlds",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       wasmbuild.Version,
	}
	rootCmd.AddCommand(newBuildCmd())
	return rootCmd
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [dirs...]",
		Short: "Build one or more workspace members",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			release, _ := cmd.Flags().GetBool("release")
			verbose, _ := cmd.Flags().GetBool("verbose")
			registryURL, _ := cmd.Flags().GetString("registry")
			compiler, _ := cmd.Flags().GetString("compiler")
			compilerArgs, _ := cmd.Flags().GetStringSlice("compiler-arg")
			output, _ := cmd.Flags().GetString("compiler-output")

			if verbose {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				defer logger.Sync()
				build.SetLogger(logger)
				target.SetLogger(logger)
			}

			var registry resolve.Registry
			if registryURL != "" {
				registry = resolve.NewHTTPRegistry(registryURL)
			}

			dirs := args
			if len(dirs) == 0 {
				dirs = []string{"."}
			}
			ws := &build.Workspace{}
			for _, dir := range dirs {
				ws.Members = append(ws.Members, build.Config{
					Dir:      dir,
					Release:  release,
					Registry: registry,
					Compiler: &build.ExecCompiler{
						Command: compiler,
						Args:    compilerArgs,
						Output:  output,
					},
				})
			}

			results, err := ws.Build(cmd.Context())
			if err != nil {
				return err
			}
			for _, res := range results {
				fmt.Fprintln(cmd.OutOrStdout(), res.Artifact)
			}
			return nil
		},
	}
	cmd.Flags().Bool("release", false, "Build with the optimized release profile")
	cmd.Flags().BoolP("verbose", "v", false, "Enable diagnostic logging")
	cmd.Flags().String("registry", "", "Registry base URL for versioned WIT dependencies")
	cmd.Flags().String("compiler", "cargo", "External compiler command")
	cmd.Flags().StringSlice("compiler-arg", []string{"build"}, "Argument passed to the external compiler")
	cmd.Flags().String("compiler-output", "", "Core module path the compiler produces, relative to the member")
	return cmd
}
