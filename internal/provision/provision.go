package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/WorldQL/mc-provisioner/internal/fleet"
	"github.com/WorldQL/mc-provisioner/internal/serverjar"
)

var ErrMissingSeed = errors.New("level seed is required")

// JarFetcher downloads a server jar. *serverjar.Downloader implements it.
type JarFetcher interface {
	Download(ctx context.Context, t serverjar.JarType, version string) ([]byte, error)
}

// Provisioner manages the lifecycle of the server directories in a fleet.
type Provisioner struct {
	Servers    []fleet.Server
	JarType    serverjar.JarType
	JarVersion string
	LevelName  string
	SyncDirs   []string

	Jars   JarFetcher
	Logger *zap.Logger
}

type InitOptions struct {
	LevelSeed  string
	Ops        []string
	WhiteList  []string
	Properties []Property
}

func (p *Provisioner) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Provisioner) download(ctx context.Context) ([]byte, error) {
	if p.Jars == nil {
		return nil, fmt.Errorf("no jar fetcher configured")
	}
	jar, err := p.Jars.Download(ctx, p.JarType, p.JarVersion)
	if err != nil {
		return nil, fmt.Errorf("download %s %s: %w", p.JarType, p.JarVersion, err)
	}
	return jar, nil
}

// Init creates every server directory with its jar, eula, operator lists and
// server.properties, then copies the sync directories into it.
func (p *Provisioner) Init(ctx context.Context, opts InitOptions) error {
	if strings.TrimSpace(opts.LevelSeed) == "" {
		return ErrMissingSeed
	}
	for _, prop := range opts.Properties {
		if _, err := newProperty(prop.Key, prop.Value); err != nil {
			return err
		}
	}
	jar, err := p.download(ctx)
	if err != nil {
		return err
	}

	ops := lines(opts.Ops)
	whiteList := lines(opts.WhiteList)
	for _, srv := range p.Servers {
		p.logger().Info("creating server", zap.String("server", srv.Label), zap.String("path", srv.Directory))
		if err := os.MkdirAll(srv.Directory, 0o755); err != nil {
			return err
		}
		if err := writeFile(srv.Directory, "eula.txt", []byte("eula=true\n")); err != nil {
			return err
		}
		if err := writeFile(srv.Directory, p.JarType.FileName(), jar); err != nil {
			return err
		}
		if ops != "" {
			if err := writeFile(srv.Directory, "ops.txt", []byte(ops)); err != nil {
				return err
			}
		}
		if whiteList != "" {
			if err := writeFile(srv.Directory, "whitelist.txt", []byte(whiteList)); err != nil {
				return err
			}
		}
		if err := writeFile(srv.Directory, "server.properties", []byte(p.properties(srv, opts))); err != nil {
			return err
		}
		if err := p.syncInto(srv); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) properties(srv fleet.Server, opts InitOptions) string {
	port := strconv.Itoa(int(srv.Port))
	var b strings.Builder
	b.WriteString("level-seed=" + opts.LevelSeed + "\n")
	b.WriteString("motd=" + srv.Label + "\n")
	b.WriteString("query.port=" + port + "\n")
	b.WriteString("server-port=" + port + "\n")
	if p.LevelName != "" {
		b.WriteString("level-name=" + p.LevelName + "\n")
	}
	for _, prop := range opts.Properties {
		b.WriteString(prop.String() + "\n")
	}
	return b.String()
}

// Sync copies the sync directories into every server, optionally clearing
// plugin jars first.
func (p *Provisioner) Sync(clearPlugins bool) error {
	for _, srv := range p.Servers {
		if clearPlugins {
			if err := p.clearPlugins(srv); err != nil {
				return err
			}
		}
		if err := p.syncInto(srv); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) clearPlugins(srv fleet.Server) error {
	dir := filepath.Join(srv.Directory, "plugins")
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	p.logger().Info("clearing plugins", zap.String("server", srv.Label))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ".jar") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) syncInto(srv fleet.Server) error {
	for _, src := range p.SyncDirs {
		info, err := os.Stat(src)
		if err != nil {
			p.logger().Warn("directory does not exist, skipping sync", zap.String("path", src))
			continue
		}
		if !info.IsDir() {
			p.logger().Warn("not a directory, skipping sync", zap.String("path", src))
			continue
		}
		target := srv.Directory
		if filepath.Base(filepath.Clean(src)) == "plugins" {
			target = filepath.Join(srv.Directory, "plugins")
		}
		p.logger().Debug("syncing directory", zap.String("server", srv.Label), zap.String("path", src))
		if err := copyContents(src, target); err != nil {
			return fmt.Errorf("%s: sync %s: %w", srv.Label, src, err)
		}
	}
	return nil
}

// UpdateServer replaces the jar in every server directory that exists.
func (p *Provisioner) UpdateServer(ctx context.Context) error {
	jar, err := p.download(ctx)
	if err != nil {
		return err
	}
	for _, srv := range p.Servers {
		if !isDir(srv.Directory) {
			continue
		}
		p.logger().Info("updating server jar", zap.String("server", srv.Label))
		if err := writeFile(srv.Directory, p.JarType.FileName(), jar); err != nil {
			return err
		}
	}
	return nil
}

// ResetWorld deletes the overworld, nether and end directories of each server.
func (p *Provisioner) ResetWorld() error {
	level := p.LevelName
	if level == "" {
		level = "world"
	}
	for _, srv := range p.Servers {
		if !isDir(srv.Directory) {
			continue
		}
		p.logger().Info("resetting world", zap.String("server", srv.Label))
		for _, name := range []string{level, level + "_nether", level + "_the_end"} {
			dir := filepath.Join(srv.Directory, name)
			if !isDir(dir) {
				continue
			}
			if err := os.RemoveAll(dir); err != nil {
				p.logger().Error("failed to remove world", zap.String("path", dir), zap.Error(err))
			}
		}
	}
	return nil
}

// Remove deletes every server directory. Failures are logged and the
// remaining servers are still removed; the count of failures is returned.
func (p *Provisioner) Remove() int {
	failed := 0
	for _, srv := range p.Servers {
		if !isDir(srv.Directory) {
			continue
		}
		p.logger().Info("removing server", zap.String("server", srv.Label), zap.String("path", srv.Directory))
		if err := os.RemoveAll(srv.Directory); err != nil {
			failed++
			p.logger().Error("failed to remove directory", zap.String("path", srv.Directory), zap.Error(err))
		}
	}
	return failed
}

func lines(items []string) string {
	var b strings.Builder
	for _, s := range items {
		b.WriteString(s + "\n")
	}
	return b.String()
}

func writeFile(dir, name string, data []byte) error {
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
