package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage server-side sessions",
	}
	cmd.AddCommand(newSessionsCleanupCmd())
	return cmd
}

func newSessionsCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.DeleteExpiredSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("delete expired sessions: %w", err)
			}
			fmt.Printf("Removed %d expired sessions\n", removed)
			return nil
		},
	}
}
