package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLessonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "Inspect lessons",
	}
	cmd.AddCommand(newLessonsListCmd())
	return cmd
}

func newLessonsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all lessons",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			lessons, err := st.ListLessons(cmd.Context())
			if err != nil {
				return fmt.Errorf("list lessons: %w", err)
			}
			if len(lessons) == 0 {
				fmt.Println("No lessons found.")
				return nil
			}

			fmt.Printf("%-4s  %-32s  %-10s  %s\n", "ID", "TITLE", "STATUS", "PUBLISH DATE")
			for _, l := range lessons {
				fmt.Printf("%-4d  %-32s  %-10s  %s\n",
					l.ID, l.Title, l.Status, l.PublishDate.Format("2006-01-02"))
			}
			return nil
		},
	}
}
