package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewCreateCommand creates the create command and its entity subcommands.
func NewCreateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a fleet entity, online or offline",
	}

	var fieldsJSON string
	var companyRef string

	vehicle := &cobra.Command{
		Use:   "vehicle",
		Short: "Create a vehicle",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(fieldsJSON)
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.monitor.Refresh(cmd.Context()); err != nil {
				slog.Debug("connectivity probe failed", "error", err)
			}

			res, err := a.service.CreateVehicle(cmd.Context(), fields, companyRef)
			if err != nil {
				return err
			}
			return renderCreate(cmd.OutOrStdout(), opts.Format, res)
		},
	}
	vehicle.Flags().StringVar(&fieldsJSON, "data", "{}", "vehicle fields as JSON")
	vehicle.Flags().StringVar(&companyRef, "company", "", "local id of the owning company")

	var companyFieldsJSON string
	company := &cobra.Command{
		Use:   "company",
		Short: "Create a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(companyFieldsJSON)
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.monitor.Refresh(cmd.Context()); err != nil {
				slog.Debug("connectivity probe failed", "error", err)
			}

			res, err := a.service.CreateCompany(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return renderCreate(cmd.OutOrStdout(), opts.Format, res)
		},
	}
	company.Flags().StringVar(&companyFieldsJSON, "data", "{}", "company fields as JSON")

	cmd.AddCommand(vehicle)
	cmd.AddCommand(company)
	return cmd
}

func parseFields(raw string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("invalid --data JSON: %w", err)
	}
	return fields, nil
}
