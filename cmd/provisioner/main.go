package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/WorldQL/mc-provisioner/internal/config"
	"github.com/WorldQL/mc-provisioner/internal/provision"
	"github.com/WorldQL/mc-provisioner/internal/serverjar"
)

var version = "dev"

// app carries the parsed flags and the dependencies commands share.
type app struct {
	configPath string
	verbose    bool
	logJSON    bool

	root              string
	serverCount       uint8
	startPort         uint16
	directoryTemplate string
	levelName         string
	jarType           string
	jarVersion        string
	syncDirs          []string

	out    io.Writer
	logger *zap.Logger
	file   config.File

	// Overridable in tests.
	buildLogger func() (*zap.Logger, error)
	jars        provision.JarFetcher
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&app{out: os.Stdout})
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	if a.out == nil {
		a.out = io.Discard
	}
	cmd := &cobra.Command{
		Use:   "provisioner",
		Short: "Provision and partition a fleet of Minecraft servers",
		Long: `provisioner creates a fleet of Minecraft servers that together host one
world. Each server owns a set of slices of the world; combine, optimize and
prune move region files so every server holds its own slices plus a one
region border.`,
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	cmd.SetOut(a.out)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultPath, "path to provisioner.yaml")
	pf.BoolVar(&a.verbose, "verbose", false, "enable debug logging")
	pf.BoolVar(&a.logJSON, "log-json", false, "emit JSON logs")
	pf.StringVar(&a.root, "root", "", "base directory the server directories live under")
	pf.Uint8VarP(&a.serverCount, "server-count", "c", config.DefaultServerCount, "number of servers")
	pf.Uint16VarP(&a.startPort, "start-port", "p", config.DefaultStartPort, "port of the first server")
	pf.StringVarP(&a.directoryTemplate, "directory-template", "d", config.DefaultDirectoryTemplate, "server directory template")
	pf.StringVarP(&a.levelName, "level-name", "w", config.DefaultLevelName, "world directory name")
	pf.StringVarP(&a.jarType, "jar-type", "j", string(serverjar.Paper), "server jar type (paper, pufferfish)")
	pf.StringVarP(&a.jarVersion, "jar-version", "J", "", "minecraft version of the server jar")
	pf.StringSliceVar(&a.syncDirs, "sync-dir", nil, "directory copied into every server (repeatable)")

	cmd.AddCommand(
		newInitCmd(a),
		newSyncCmd(a),
		newUpdateServerCmd(a),
		newResetWorldCmd(a),
		newRemoveCmd(a),
		newCombineCmd(a),
		newOptimizeCmd(a),
		newPruneCmd(a),
		newBundleCmd(a),
		newPublishCmd(a),
		newHistoryCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.logger == nil {
		build := a.buildLogger
		if build == nil {
			build = a.defaultLogger
		}
		l, err := build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logger = l
	}

	f, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.file = f
	return nil
}

func (a *app) defaultLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if a.logJSON {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if a.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// global resolves the fleet settings with flags layered over the config file.
func (a *app) global(cmd *cobra.Command) (config.Global, error) {
	fl := cmd.Flags()
	var o config.GlobalOverrides
	if fl.Changed("root") {
		o.Root = &a.root
	}
	if fl.Changed("server-count") {
		o.ServerCount = &a.serverCount
	}
	if fl.Changed("start-port") {
		o.StartPort = &a.startPort
	}
	if fl.Changed("directory-template") {
		o.DirectoryTemplate = &a.directoryTemplate
	}
	if fl.Changed("level-name") {
		o.LevelName = &a.levelName
	}
	if fl.Changed("jar-type") {
		o.JarType = &a.jarType
	}
	if fl.Changed("jar-version") {
		o.JarVersion = &a.jarVersion
	}
	if fl.Changed("sync-dir") {
		o.SyncDirs = a.syncDirs
	}
	g, err := a.file.ResolveGlobal(o)
	if err != nil {
		return g, err
	}
	if g.ServerCount == 0 {
		a.logger.Warn("server count is 0, nothing to do")
	}
	return g, nil
}

func (a *app) provisioner(g config.Global) *provision.Provisioner {
	jars := a.jars
	if jars == nil {
		jars = serverjar.NewDownloader(version, a.logger)
	}
	syncDirs := make([]string, len(g.SyncDirs))
	for i, d := range g.SyncDirs {
		syncDirs[i] = underRoot(g.Root, d)
	}
	return &provision.Provisioner{
		Servers:    g.Servers(),
		JarType:    g.JarType,
		JarVersion: g.JarVersion,
		LevelName:  g.LevelName,
		SyncDirs:   syncDirs,
		Jars:       jars,
		Logger:     a.logger,
	}
}

func underRoot(root, p string) string {
	if root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
