package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/fanvault/fanvault/internal/config"
	"github.com/fanvault/fanvault/internal/db"
	"github.com/fanvault/fanvault/internal/storage"
	"github.com/fanvault/fanvault/internal/thumbnail"
	"github.com/spf13/cobra"
)

func DevCmd() *cobra.Command {
	var (
		port          string
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Prepare the database and storage, then run the API under air",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !skipPreflight {
				if err := preflight(config.Load()); err != nil {
					return err
				}
			}
			return runDev(port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "8090", "port the API listens on")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip migrations and storage checks")
	return cmd
}

// preflight applies migrations, creates the buckets and reports whether
// video uploads will get posters.
func preflight(cfg *config.Config) error {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close(database)

	if err := db.RunMigrations(database.DB, cfg.DBDriver); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Printf("database  %s migrated\n", cfg.DBDriver)

	if _, err := storage.New(cfg); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	fmt.Printf("storage   %s, %d buckets\n", cfg.StorageDriver, len(cfg.Buckets()))

	switch {
	case !cfg.ThumbnailEnabled:
		fmt.Println("posters   disabled (THUMBNAIL_ENABLED=false)")
	case !thumbnail.NewFFmpegDecoder(cfg.FFmpegPath, cfg.FFprobePath).Available():
		fmt.Println("posters   ffmpeg/ffprobe not found, videos upload without a poster")
	default:
		fmt.Println("posters   enabled")
	}
	return nil
}

func runDev(port string) error {
	airPath, err := exec.LookPath("air")
	if err != nil {
		fmt.Println("Missing binary: air")
		fmt.Println("Install with:")
		fmt.Println("  go install github.com/air-verse/air@latest")
		return fmt.Errorf("air not found")
	}

	fmt.Println("Building bin/do...")
	build := exec.Command("go", "build", "-o", "bin/do", "./cmd/do")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		return fmt.Errorf("failed to build do: %w", err)
	}

	// Migrations are watched so a new one restarts the server.
	airArgs := []string{
		"air",
		"-c", "/dev/null",
		"-root", ".",
		"-build.cmd", "go build -o ./tmp/main ./cmd/server",
		"-build.bin", "./tmp/main",
		"-build.delay", "100",
		"-build.exclude_dir", "bin,tmp,data",
		"-build.exclude_regex", "_test.go$",
		"-build.include_ext", "go,sql",
		"-build.kill_delay", "500ms",
		"-build.send_interrupt", "true",
	}

	env := append(os.Environ(), "PORT="+port)

	return syscall.Exec(airPath, airArgs, env)
}
