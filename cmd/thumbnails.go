package cmd

import (
	"fmt"

	"inventory/core"

	"github.com/spf13/cobra"
)

var regenerateThumbnailsCmd = &cobra.Command{
	Use:   "regenerate-thumbnails",
	Short: "Rebuild the thumbnail of every stored image",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appConfig.EnsureDirectories(); err != nil {
			return err
		}
		report, err := core.NewUploader(appConfig.Uploads).RegenerateThumbnails()
		if err != nil {
			return err
		}
		fmt.Printf("Generated: %d, copied: %d, failed: %d\n", report.Generated, report.Copied, report.Failed)
		if report.Failed > 0 {
			return fmt.Errorf("%d thumbnails could not be written", report.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regenerateThumbnailsCmd)
}
