package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List enrolled students",
	RunE:  runStudents,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
}

func runStudents(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	students, err := a.gallery.Names(cmd.Context())
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}
	if len(students) == 0 {
		fmt.Println("No enrolled students")
		return nil
	}
	for _, s := range students {
		fmt.Printf("%6d  %s\n", s.Id, s.Name)
	}
	fmt.Printf("\nTotal: %d\n", len(students))
	return nil
}
