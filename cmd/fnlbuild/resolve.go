// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/spf13/cobra"

func newResolveCommand(app *App) *cobra.Command {
	var o resolveOptions
	cmd := &cobra.Command{
		Use:   "resolve [paths...]",
		Short: "Print the build handles affected by the given sources",
		Long: `Collect source files from the given paths (default: the current
directory), find the build descriptions that own them, and print the
dependency trees and the leaf-first build order. Nothing is built.`,
		Example: `  fnlbuild resolve src/core
  fnlbuild resolve -r -s main.c util.h
  fnlbuild resolve --changed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.bind(cmd)
			return asServiceError(app.runResolve(cmd, o, args))
		},
	}
	addResolveFlags(cmd, &o)
	return cmd
}

func (a *App) runResolve(cmd *cobra.Command, o resolveOptions, paths []string) error {
	ctx := cmd.Context()
	loaded, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	s, err := a.newSession(ctx, loaded.Config, o, paths)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.printTrees(a.stdout); err != nil {
		return err
	}
	s.printOrder(a.stdout)
	s.printSummary(a.stdout)
	return nil
}
