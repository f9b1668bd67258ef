package app

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetpeer/cmd/fleetctl/app/options"
	"github.com/autopeer-io/fleetpeer/internal/admin"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
)

func newLoginCommand(opts *options.FleetctlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check the credentials and print a bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(genericapiserver.SetupSignalContext(), opts, cmd.OutOrStdout())
		},
	}
}

func runLogin(ctx context.Context, opts *options.FleetctlOptions, out io.Writer) error {
	s, err := signIn(ctx, opts)
	if err != nil {
		return err
	}
	printProfile(out, &s.profile)
	_, err = fmt.Fprintf(out, "\nTOKEN\n%s\n", s.client.Token())
	return err
}

type driversFlags struct {
	filter string
}

func newDriversCommand(opts *options.FleetctlOptions) *cobra.Command {
	f := &driversFlags{filter: string(admin.FilterAll)}
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "List the drivers of the organization with their last position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDrivers(genericapiserver.SetupSignalContext(), opts, f, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&f.filter, "filter", f.filter, "Show all, online or offline drivers.")
	return cmd
}

func runDrivers(ctx context.Context, opts *options.FleetctlOptions, f *driversFlags, out io.Writer) error {
	filter := admin.Filter(f.filter)
	if !filter.Valid() {
		return fmt.Errorf("unknown filter %q", f.filter)
	}

	s, err := signIn(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	roster, err := s.client.Roster(ctx)
	if err != nil {
		return err
	}
	drivers := admin.FromRoster(roster)
	printDrivers(out, filter.Apply(drivers), admin.Count(drivers))
	return nil
}

type createDriverFlags struct {
	name     string
	email    string
	password string
}

func newCreateDriverCommand(opts *options.FleetctlOptions) *cobra.Command {
	f := &createDriverFlags{}
	cmd := &cobra.Command{
		Use:   "create-driver",
		Short: "Create a driver account in the organization of the signed-in admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateDriver(genericapiserver.SetupSignalContext(), opts, f, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&f.name, "name", "", "Full name of the driver.")
	cmd.Flags().StringVar(&f.email, "email", "", "Email the driver signs in with.")
	cmd.Flags().StringVar(&f.password, "password", "", "Initial password, at least 6 characters.")
	return cmd
}

func runCreateDriver(ctx context.Context, opts *options.FleetctlOptions, f *createDriverFlags, out io.Writer) error {
	s, err := signIn(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	resp, err := s.client.CreateDriver(ctx, &v1.CreateDriverRequest{
		Name:     f.name,
		Email:    f.email,
		Password: f.password,
		AdminID:  s.profile.ID,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\nID:    %s\nNAME:  %s\nEMAIL: %s\n", resp.Message, resp.User.ID, resp.User.Name, resp.User.Email)
	return err
}

func newExportCommand(opts *options.FleetctlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export a roster snapshot to object storage and print its download link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(genericapiserver.SetupSignalContext(), opts, cmd.OutOrStdout())
		},
	}
}

func runExport(ctx context.Context, opts *options.FleetctlOptions, out io.Writer) error {
	s, err := signIn(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	exp, err := s.client.ExportRoster(ctx)
	if err != nil {
		return err
	}
	printExport(out, exp)
	return nil
}
