package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reservationsSweepCmd = &cobra.Command{
	Use:   "reservations:sweep",
	Short: "Expire active reservations past their due date",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		n, err := a.deps.Reservations.SweepExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Expired reservations: %d\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reservationsSweepCmd)
}
