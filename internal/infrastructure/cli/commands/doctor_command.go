package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(provide ContainerProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, storage and scan endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := provide(cmd.Context())
			if err != nil {
				return err
			}
			if container.StoreErr != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] Storage - %v\n", maliciousColor.Sprint("ERROR"), container.StoreErr)
			}

			report, err := container.DoctorService.Run(cmd.Context())
			renderHealthReport(cmd.OutOrStdout(), report)
			if err != nil {
				return fmt.Errorf("diagnostics completed with errors: %w", err)
			}
			if report.Failed() {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}
}
