package cmd

import (
	"fmt"

	"github.com/fanvault/fanvault/internal/config"
	"github.com/fanvault/fanvault/internal/storage"
	"github.com/spf13/cobra"
)

func BucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "Create the configured buckets if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			// storage.New ensures every bucket exists for s3 and minio.
			_, err := storage.New(cfg)
			if err != nil {
				return err
			}

			for _, bucket := range cfg.Buckets() {
				visibility := "public"
				if bucket == cfg.BucketKYC {
					visibility = "private"
				}
				fmt.Printf("%-20s %s\n", bucket, visibility)
			}
			return nil
		},
	}
}
