package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fanvault/fanvault/internal/thumbnail"
	"github.com/spf13/cobra"
)

func PosterCmd() *cobra.Command {
	var (
		output   string
		maxWidth int
		ffmpeg   string
		ffprobe  string
	)

	cmd := &cobra.Command{
		Use:   "poster <video>",
		Short: "Extract the poster image of a video the way uploads do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decoder := thumbnail.NewFFmpegDecoder(ffmpeg, ffprobe)
			if !decoder.Available() {
				return fmt.Errorf("ffmpeg and ffprobe are required")
			}

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			thumb, err := thumbnail.NewExtractor(decoder, thumbnail.WithMaxWidth(maxWidth)).Extract(cmd.Context(), in)
			if err != nil {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], ".mp4") + ".jpg"
			}
			err = os.WriteFile(output, thumb.Data, 0644)
			if err != nil {
				return err
			}

			fmt.Printf("%s %dx%d %d bytes\n", output, thumb.Width, thumb.Height, thumb.Size())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <video>.jpg)")
	cmd.Flags().IntVar(&maxWidth, "max-width", 0, "downscale wider frames")
	cmd.Flags().StringVar(&ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary")
	cmd.Flags().StringVar(&ffprobe, "ffprobe", "ffprobe", "ffprobe binary")
	return cmd
}
