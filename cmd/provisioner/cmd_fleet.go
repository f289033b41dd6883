package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WorldQL/mc-provisioner/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		seed       string
		ops        []string
		whiteList  []string
		properties []string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create every server directory with its jar and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.global(cmd)
			if err != nil || g.ServerCount == 0 {
				return err
			}
			var o config.InitOverrides
			if cmd.Flags().Changed("level-seed") {
				o.LevelSeed = &seed
			}
			if cmd.Flags().Changed("op") {
				o.Ops = ops
			}
			if cmd.Flags().Changed("white-list") {
				o.WhiteList = whiteList
			}
			o.Properties = properties
			opts, err := a.file.ResolveInit(o)
			if err != nil {
				return err
			}
			return a.provisioner(g).Init(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&seed, "level-seed", "s", "", "world seed written to server.properties")
	f.StringSliceVar(&ops, "op", nil, "player added to ops.txt (repeatable)")
	f.StringSliceVar(&whiteList, "white-list", nil, "player added to whitelist.txt (repeatable)")
	f.StringArrayVarP(&properties, "property", "P", nil, "extra server.properties entry as key=value (repeatable)")
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	var clearPlugins bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy the sync directories into every server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.global(cmd)
			if err != nil || g.ServerCount == 0 {
				return err
			}
			return a.provisioner(g).Sync(clearPlugins)
		},
	}
	cmd.Flags().BoolVar(&clearPlugins, "clear-plugins", false, "delete plugin jars before syncing")
	return cmd
}

func newUpdateServerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update-server",
		Short: "Download the server jar again and replace it in every server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.global(cmd)
			if err != nil || g.ServerCount == 0 {
				return err
			}
			return a.provisioner(g).UpdateServer(cmd.Context())
		},
	}
}

func newResetWorldCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-world",
		Short: "Delete the world directories of every server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.global(cmd)
			if err != nil || g.ServerCount == 0 {
				return err
			}
			return a.provisioner(g).ResetWorld()
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Delete every server directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.global(cmd)
			if err != nil || g.ServerCount == 0 {
				return err
			}
			if failed := a.provisioner(g).Remove(); failed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d server directories could not be removed\n", failed)
			}
			return nil
		},
	}
}
