package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fanvault/fanvault/cmd/do/cmd"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	maybeRebuild()

	var envFile string

	rootCmd := &cobra.Command{
		Use:           "do",
		Short:         "Development and operations tools for fanvault",
		SilenceUsage: true,
		// Values from --env-file win over .env, which config.Load reads later.
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if envFile == "" {
				return nil
			}
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "environment file to load, e.g. .env.staging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "dev", Title: "Development:"},
		&cobra.Group{ID: "ops", Title: "Database and storage:"},
		&cobra.Group{ID: "media", Title: "Media:"},
	)
	rootCmd.AddCommand(
		inGroup("dev", cmd.DevCmd()),
		inGroup("ops", cmd.MigrateCmd()),
		inGroup("ops", cmd.BucketsCmd()),
		inGroup("media", cmd.PosterCmd()),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func inGroup(id string, c *cobra.Command) *cobra.Command {
	c.GroupID = id
	return c
}

// rebuildSources are the trees bin/do is built from; it links the config,
// db, storage and thumbnail packages.
var rebuildSources = []string{"cmd/do", "internal"}

// maybeRebuild rebuilds bin/do and re-executes it when a Go file it is built
// from changed after the binary.
func maybeRebuild() {
	exe, err := os.Executable()
	if err != nil || !strings.HasSuffix(exe, "bin/do") {
		return
	}

	binInfo, err := os.Stat(exe)
	if err != nil {
		return
	}

	if !newerSources(binInfo.ModTime()) {
		return
	}

	fmt.Println("Rebuilding bin/do...")
	build := exec.Command("go", "build", "-o", exe, "./cmd/do")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		fmt.Println("Rebuild failed:", err)
		return
	}

	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		fmt.Println("Re-exec failed:", err)
	}
}

func newerSources(since time.Time) bool {
	newer := false
	for _, root := range rebuildSources {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			info, err := d.Info()
			if err == nil && info.ModTime().After(since) {
				newer = true
				return filepath.SkipAll
			}
			return nil
		})
		if newer {
			return true
		}
	}
	return false
}
