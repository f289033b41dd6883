package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/WorldQL/mc-provisioner/internal/config"
	"github.com/WorldQL/mc-provisioner/internal/persistence/bundle"
	"github.com/WorldQL/mc-provisioner/internal/persistence/indexdb"
	"github.com/WorldQL/mc-provisioner/internal/persistence/r2s3"
)

// archiveDir resolves the combined directory, falling back to the flag value
// when the world section is incomplete.
func (a *app) archiveDir(cmd *cobra.Command, flagValue string) (string, error) {
	g, err := a.global(cmd)
	if err != nil {
		return "", err
	}
	dir := flagValue
	if !cmd.Flags().Changed("combined-directory") {
		if a.file.WorldManagement.CombinedDirectory == nil {
			return "", fmt.Errorf("%w: combined_directory", config.ErrMissingSetting)
		}
		dir = *a.file.WorldManagement.CombinedDirectory
	}
	return underRoot(g.Root, dir), nil
}

func newBundleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Export or import the combined archive as a tar.zst bundle",
	}

	var exportDir string
	export := &cobra.Command{
		Use:   "export <bundle.tar.zst>",
		Short: "Write the combined archive to a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.archiveDir(cmd, exportDir)
			if err != nil {
				return err
			}
			n, err := bundle.Export(dir, args[0])
			if err != nil {
				return err
			}
			a.logger.Info("bundle exported", zap.String("path", args[0]), zap.Int("files", n))
			return nil
		},
	}
	export.Flags().StringVar(&exportDir, "combined-directory", "", "directory holding the combined archive")

	var importDir string
	imp := &cobra.Command{
		Use:   "import <bundle.tar.zst>",
		Short: "Replace the combined archive with the contents of a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.archiveDir(cmd, importDir)
			if err != nil {
				return err
			}
			n, err := bundle.Import(args[0], dir)
			if err != nil {
				return err
			}
			a.logger.Info("bundle imported", zap.String("path", dir), zap.Int("files", n))
			return nil
		},
	}
	imp.Flags().StringVar(&importDir, "combined-directory", "", "directory holding the combined archive")

	cmd.AddCommand(export, imp)
	return cmd
}

func newPublishCmd(a *app) *cobra.Command {
	var (
		dir      string
		endpoint string
		bucket   string
		prefix   string
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the combined archive to S3-compatible object storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archiveDir, err := a.archiveDir(cmd, dir)
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			var o config.PublishOverrides
			if fl.Changed("endpoint") {
				o.Endpoint = &endpoint
			}
			if fl.Changed("bucket") {
				o.Bucket = &bucket
			}
			if fl.Changed("prefix") {
				o.Prefix = &prefix
			}
			if fl.Changed("workers") {
				o.Workers = &workers
			}
			pub, err := a.file.ResolvePublish(o)
			if err != nil {
				return err
			}
			creds, err := r2s3.CredentialsFromEnv()
			if err != nil {
				return err
			}
			client, err := r2s3.New(pub.Endpoint, pub.Bucket, creds)
			if err != nil {
				return err
			}
			res, err := r2s3.NewPublisher(client, pub.Prefix, pub.Workers, a.logger).Publish(cmd.Context(), archiveDir)
			a.logger.Info("publish finished", zap.String("bucket", pub.Bucket), zap.Int("uploaded", len(res.Uploaded)))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "combined-directory", "", "directory holding the combined archive")
	f.StringVar(&endpoint, "endpoint", "", "object storage endpoint")
	f.StringVar(&bucket, "bucket", "", "bucket name")
	f.StringVar(&prefix, "prefix", "", "key prefix inside the bucket")
	f.IntVar(&workers, "workers", config.DefaultPublishWorkers, "parallel uploads")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent combine, optimize and prune runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.global(cmd)
			if err != nil {
				return err
			}
			idx := a.file.ResolveIndex(g.Root, nil, nil)
			ledger, err := indexdb.OpenSQLite(idx.Path)
			if err != nil {
				return err
			}
			defer ledger.Close()
			runs, err := ledger.Runs(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOPERATION\tSTARTED\tSTATUS\tDRY RUN\tACTIONS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%d\n", r.ID, r.Operation, r.StartedAt, r.Status, r.DryRun, r.Actions)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
