package cmd

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"FACEATTEND/enrollment"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [dir]",
	Short: "Enroll every image in a directory",
	Long: `Enroll every image in dir (default: STUDENTS_DIR). The file name without
extension becomes the student name; enrolling a name again replaces its
descriptor.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	dir := a.cfg.Storage.StudentsDir
	if len(args) == 1 {
		dir = args[0]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read students directory: %w", err)
	}

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Enrolling students"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	results, err := a.enrollment.BulkEnroll(cmd.Context(), dir, func(enrollment.FileResult) {
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}

	var created, updated, failed int
	for _, r := range results {
		switch r.Status {
		case enrollment.StatusCreated:
			created++
		case enrollment.StatusUpdated:
			updated++
		default:
			failed++
			fmt.Printf("  %s: %s\n", r.File, r.Error)
		}
	}
	fmt.Printf("\nEnrolled %d files: %d created, %d updated, %d failed\n", len(results), created, updated, failed)
	return nil
}
