package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reparafacil/repair-service/internal/service"
)

func newSeedCmd() *cobra.Command {
	var (
		tickets       int
		adminPassword string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and repair tickets",
		Long: `Creates the admin account, six technicians and a batch of demo tickets.
Nothing is written when the store already has users.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			if !cmd.Flags().Changed("tickets") {
				tickets = rt.cfg.Seed.Tickets
			}
			if !cmd.Flags().Changed("admin-password") {
				adminPassword = rt.cfg.Seed.AdminPassword
			}
			result, err := rt.seed.Seed(cmd.Context(), adminPassword, tickets)
			if err != nil {
				return err
			}
			printSeedResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().IntVar(&tickets, "tickets", 0, "number of demo tickets (default SEED_TICKETS)")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password for admin and technicians (default SEED_ADMIN_PASSWORD)")
	return cmd
}

func printSeedResult(out io.Writer, result *service.SeedResult) {
	if result.Skipped {
		fmt.Fprintln(out, "Store already has users; seed skipped.")
		return
	}
	fmt.Fprintf(out, "Created %d users and %d tickets.\n", result.Users, result.Tickets)
	for _, name := range result.Technicians {
		fmt.Fprintf(out, "  technician: %s\n", name)
	}
}
