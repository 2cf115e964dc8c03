package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yi-nology/mediable/biz/dal/model"
	"github.com/yi-nology/mediable/biz/service/media"
	"github.com/yi-nology/mediable/pkg/logging"
)

type runFunc func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error

// withApp builds the application for the duration of one command.
func withApp(configPath *string, run runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		defer logging.Recover(ctx, &err)

		a, err := newApp(ctx, *configPath)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		return run(ctx, a, cmd, args)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "mediable",
		Short:         "Media asset manager",
		Long:          "mediable stores uploaded files on configured disks, tracks them as assets and derives image conversions.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	rootCmd.AddCommand(
		newUploadCmd(&configPath),
		newMkdirCmd(&configPath),
		newShowCmd(&configPath),
		newListCmd(&configPath),
		newConvertCmd(&configPath),
		newDeleteCmd(&configPath),
		newRestoreCmd(&configPath),
		newMoveCmd(&configPath),
		newConversionsCmd(&configPath),
	)
	return rootCmd
}

func newUploadCmd(configPath *string) *cobra.Command {
	var (
		opts   media.UploadOptions
		parent string
		owner  string
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			src, err := media.FromPath(args[0])
			if err != nil {
				return err
			}
			if opts.Owner, err = parseOwner(owner); err != nil {
				return err
			}
			opts.ParentID = optional(parent)
			asset, err := a.media.Upload(ctx, src, opts)
			if err != nil {
				return err
			}
			return printAsset(ctx, cmd.OutOrStdout(), a, asset)
		}),
	}
	cmd.Flags().StringVar(&opts.Disk, "disk", "", "target disk (default from config)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "file name to store instead of the local one")
	cmd.Flags().StringVar(&parent, "parent", "", "parent directory id")
	cmd.Flags().StringVar(&owner, "owner", "", "owning record as type:id")
	cmd.Flags().StringVar(&opts.Channel, "channel", "", "association channel")
	cmd.Flags().BoolVar(&opts.GenerateGlobal, "global", false, "apply global conversions after upload")
	return cmd
}

func newMkdirCmd(configPath *string) *cobra.Command {
	var (
		opts   media.DirectoryOptions
		parent string
	)
	cmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a directory entry",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			opts.ParentID = optional(parent)
			dir, err := a.media.MakeDirectory(ctx, args[0], opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dir)
		}),
	}
	cmd.Flags().StringVar(&opts.Disk, "disk", "", "disk (default from config)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent directory id")
	return cmd
}

func newShowCmd(configPath *string) *cobra.Command {
	var trashed bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an asset with its URLs",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			get := a.media.Get
			if trashed {
				get = a.media.GetWithTrashed
			}
			asset, err := get(ctx, args[0])
			if err != nil {
				return err
			}
			return printAsset(ctx, cmd.OutOrStdout(), a, asset)
		}),
	}
	cmd.Flags().BoolVar(&trashed, "trashed", false, "include soft deleted assets")
	return cmd
}

func newListCmd(configPath *string) *cobra.Command {
	var (
		opts   media.ListOptions
		parent string
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List assets",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			opts.ParentID = optional(parent)
			assets, err := a.media.List(ctx, opts)
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), a, assets)
		}),
	}
	cmd.Flags().StringVar(&opts.Disk, "disk", "", "only assets on this disk")
	cmd.Flags().StringVar(&parent, "parent", "", "only children of this directory")
	cmd.Flags().BoolVar(&opts.Root, "root", false, "only top level assets")
	cmd.Flags().StringVar(&opts.Type, "type", "", "file or dir")
	cmd.Flags().BoolVar(&opts.WithTrashed, "with-trashed", false, "include soft deleted assets")
	cmd.Flags().BoolVar(&opts.OnlyTrashed, "only-trashed", false, "only soft deleted assets")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")
	return cmd
}

func newConvertCmd(configPath *string) *cobra.Command {
	var global bool
	cmd := &cobra.Command{
		Use:   "convert <id> [conversion...]",
		Short: "Apply conversions to an image asset",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, names := args[0], args[1:]
			if !global && len(names) == 0 {
				return fmt.Errorf("name at least one conversion or pass --global")
			}
			if global {
				if _, err := a.media.ApplyGlobalConversions(ctx, id); err != nil {
					return err
				}
			}
			for _, name := range names {
				if _, err := a.media.ApplyConversion(ctx, id, name); err != nil {
					return err
				}
			}
			asset, err := a.media.Get(ctx, id)
			if err != nil {
				return err
			}
			return printAsset(ctx, cmd.OutOrStdout(), a, asset)
		}),
	}
	cmd.Flags().BoolVar(&global, "global", false, "apply every global conversion")
	return cmd
}

func newDeleteCmd(configPath *string) *cobra.Command {
	var (
		force    bool
		children string
	)
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft delete an asset, or purge it with --force",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if !force {
				if err := a.media.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "trashed %s\n", args[0])
				return nil
			}
			policy, err := media.ParseChildPolicy(children)
			if err != nil {
				return err
			}
			if err := a.media.Purge(ctx, args[0], media.PurgeOptions{Children: policy}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", args[0])
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "remove the record and every stored file")
	cmd.Flags().StringVar(&children, "children", media.DetachChildren.String(), "directory children on purge: detach, cascade or restrict")
	return cmd
}

func newRestoreCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a soft deleted asset",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			asset, err := a.media.Restore(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), asset)
		}),
	}
}

func newMoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <id> [parent-id]",
		Short: "Move an asset under a directory, or to the top level",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			var parent *string
			if len(args) == 2 {
				parent = optional(args[1])
			}
			asset, err := a.media.Move(ctx, args[0], parent)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), asset)
		}),
	}
}

func newConversionsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "conversions",
		Short: "List registered conversions",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			registry := a.media.Registry()
			global := make(map[string]bool)
			for _, name := range registry.ListGlobal() {
				global[name] = true
			}
			out := cmd.OutOrStdout()
			for _, name := range registry.List() {
				if global[name] {
					fmt.Fprintf(out, "%s (global)\n", name)
					continue
				}
				fmt.Fprintln(out, name)
			}
			return nil
		}),
	}
}

func parseOwner(value string) (media.Owner, error) {
	if value == "" {
		return nil, nil
	}
	ownerType, ownerID, ok := strings.Cut(value, ":")
	if !ok || ownerType == "" || ownerID == "" {
		return nil, fmt.Errorf("owner must be type:id, got %q", value)
	}
	return media.OwnerRef{Type: ownerType, ID: ownerID}, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

type assetView struct {
	*model.Asset
	ReadableSize string            `json:"readable_size,omitempty"`
	URLs         map[string]string `json:"urls,omitempty"`
}

func printAsset(ctx context.Context, w io.Writer, a *app, asset *model.Asset) error {
	view := assetView{Asset: asset}
	if !asset.IsDirectory() {
		view.ReadableSize = a.media.ReadableSize(asset, 1)
		urls, err := a.media.ConversionURLs(ctx, asset)
		if err != nil {
			return err
		}
		view.URLs = urls
	}
	return printJSON(w, view)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, a *app, assets []model.Asset) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tDISK\tNAME\tSIZE\tPATH")
	for i := range assets {
		asset := &assets[i]
		size := "-"
		if !asset.IsDirectory() {
			size = a.media.ReadableSize(asset, 1)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			asset.ID, asset.Type, asset.Disk, asset.Name, size, asset.StoragePath())
	}
	return tw.Flush()
}
