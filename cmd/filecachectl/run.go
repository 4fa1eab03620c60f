package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	databrickssdk "github.com/databricks/databricks-sdk-go"
	"github.com/dustin/go-humanize"
	"gopkg.in/ini.v1"

	"filecache"
	"filecache/diskdrv"
)

// cliConfig captures the parsed command line: a subcommand plus its
// arguments. Cache settings themselves come from the environment and an
// optional ini file, not flags (see run).
type cliConfig struct {
	subcommand     string
	url            string
	configPath     string
	databricksDisk string
}

type cliError struct {
	exitCode int
	msg      string
	printed  bool
}

func (e *cliError) Error() string { return e.msg }

// runDeps collects every side-effecting dependency run needs, so tests can
// substitute fakes without touching the real filesystem or environment.
type runDeps struct {
	loadEnvConfig       func() (filecache.Config, error)
	loadCacheOverrides  func(path string, cfg *filecache.Config) error
	loadRegistry        func(path string) (*filecache.Registry, error)
	newDatabricksClient func() (*databrickssdk.WorkspaceClient, error)
	newDatabricksDisk   func(name string, w *databrickssdk.WorkspaceClient) (filecache.Disk, error)
	newCache            func(filecache.Config, *filecache.Registry) *filecache.Cache
	statCacheDir        func(path string) (count int, totalSize int64, err error)
	stdout              io.Writer
}

func defaultDeps() runDeps {
	return runDeps{
		loadEnvConfig:      filecache.LoadConfigFromEnv,
		loadCacheOverrides: loadCacheOverridesFromINI,
		loadRegistry:       filecache.LoadRegistryFromINI,
		newDatabricksClient: func() (*databrickssdk.WorkspaceClient, error) {
			return databrickssdk.NewWorkspaceClient()
		},
		newDatabricksDisk: func(name string, w *databrickssdk.WorkspaceClient) (filecache.Disk, error) {
			return diskdrv.NewDatabricksDisk(name, w)
		},
		newCache:     filecache.New,
		statCacheDir: statCacheDir,
		stdout:       os.Stdout,
	}
}

var subcommands = map[string]bool{
	"get":   true,
	"prune": true,
	"clear": true,
	"stats": true,
}

func usage(prog string) string {
	return fmt.Sprintf("Usage: %s [-config FILE] [-databricks-disk NAME] get URL | prune | clear | stats", prog)
}

func parseArgs(args []string) (cliConfig, error) {
	var cfg cliConfig
	if len(args) == 0 {
		return cfg, &cliError{exitCode: 1, msg: usage("filecachectl")}
	}

	sub := args[0]
	if !subcommands[sub] {
		return cfg, &cliError{exitCode: 1, msg: fmt.Sprintf("unknown subcommand %q\n%s", sub, usage("filecachectl"))}
	}
	cfg.subcommand = sub

	fs := flag.NewFlagSet(sub, flag.ContinueOnError)
	configPath := fs.String("config", "", "optional ini file with disk registry and cache settings")
	databricksDisk := fs.String("databricks-disk", "", "register a Databricks Workspace Files disk under this name, using ambient SDK credentials")
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cfg, &cliError{exitCode: 0, printed: true}
		}
		return cfg, &cliError{exitCode: 2, msg: err.Error(), printed: true}
	}
	cfg.configPath = *configPath
	cfg.databricksDisk = *databricksDisk

	if sub == "get" {
		if fs.NArg() < 1 {
			return cfg, &cliError{exitCode: 1, msg: "Usage: filecachectl get [-config FILE] URL"}
		}
		cfg.url = fs.Arg(0)
	}

	return cfg, nil
}

func validateConfig(cfg filecache.Config) error {
	if cfg.Path == "" {
		return &cliError{exitCode: 1, msg: "cache path must not be empty (set CACHE_PATH or -config)"}
	}
	return nil
}

// loadCacheOverridesFromINI lets the optional -config file's [cache]
// section override settings assembled from the environment, before flags
// (there are none for cache settings) get the final word.
func loadCacheOverridesFromINI(path string, cfg *filecache.Config) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	if !f.HasSection("cache") {
		return nil
	}
	return f.Section("cache").MapTo(cfg)
}

func statCacheDir(path string) (int, int64, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	var count int
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		count++
		total += info.Size()
	}
	return count, total, nil
}

func run(args []string, deps runDeps) error {
	cfg, err := parseArgs(args)
	if err != nil {
		return err
	}

	cacheCfg, err := deps.loadEnvConfig()
	if err != nil {
		return fmt.Errorf("loading config from environment: %w", err)
	}

	var registry *filecache.Registry
	if cfg.configPath != "" {
		if err := deps.loadCacheOverrides(cfg.configPath, &cacheCfg); err != nil {
			return err
		}
		registry, err = deps.loadRegistry(cfg.configPath)
		if err != nil {
			return fmt.Errorf("loading disk registry: %w", err)
		}
	}

	if cfg.databricksDisk != "" {
		if registry == nil {
			registry = filecache.NewRegistry()
		}
		w, err := deps.newDatabricksClient()
		if err != nil {
			return fmt.Errorf("connecting to Databricks: %w", err)
		}
		disk, err := deps.newDatabricksDisk(cfg.databricksDisk, w)
		if err != nil {
			return fmt.Errorf("registering Databricks disk %q: %w", cfg.databricksDisk, err)
		}
		registry.Register(disk)
	}

	if err := validateConfig(cacheCfg); err != nil {
		return err
	}

	cache := deps.newCache(cacheCfg, registry)

	switch cfg.subcommand {
	case "get":
		file := filecache.NewFile(cfg.url, "")
		_, err := cache.Get(context.Background(), file, func(f filecache.LogicalFile, path string) (any, error) {
			fmt.Fprintln(deps.stdout, path)
			return nil, nil
		})
		return err

	case "prune":
		if err := cache.Prune(); err != nil {
			return err
		}
		fmt.Fprintln(deps.stdout, "prune complete")
		return nil

	case "clear":
		if err := cache.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(deps.stdout, "cache cleared")
		return nil

	case "stats":
		count, total, err := deps.statCacheDir(cacheCfg.Path)
		if err != nil {
			return err
		}
		fmt.Fprintf(deps.stdout, "entries: %d\ntotal size: %s\n", count, humanize.Bytes(uint64(total)))
		return nil
	}

	return fmt.Errorf("unreachable: subcommand %q", cfg.subcommand)
}
