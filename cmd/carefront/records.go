package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stillcare/carefront/pkg/dataservice"
)

var recordResources = []string{
	dataservice.ResourceClients,
	dataservice.ResourceAppointments,
	dataservice.ResourceVisits,
	dataservice.ResourceInvoices,
}

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "records <resource> list|get|delete [id]",
		Short:     "Inspect records in the data service",
		Long:      "Resources: clients, appointments, visits, invoices. \"records dashboard\" prints the counters, recent appointments and today's visits.",
		ValidArgs: append([]string{"dashboard"}, recordResources...),
		Args:      cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()

			client, err := a.dataService()
			if err != nil {
				return err
			}
			out, err := runRecords(cmd.Context(), client, args)
			if err != nil {
				return err
			}
			if out == nil {
				return nil
			}
			return writeIndented(cmd.OutOrStdout(), out)
		},
	}
	return cmd
}

func runRecords(ctx context.Context, client *dataservice.Client, args []string) (any, error) {
	verb := "list"
	if len(args) > 1 {
		verb = args[1]
	}
	rest := args[min(len(args), 2):]
	switch args[0] {
	case "dashboard":
		return client.Overview(ctx)
	case dataservice.ResourceClients:
		return runCollection(ctx, client.Clients(), verb, rest)
	case dataservice.ResourceAppointments:
		return runCollection(ctx, client.Appointments(), verb, rest)
	case dataservice.ResourceVisits:
		return runCollection(ctx, client.Visits(), verb, rest)
	case dataservice.ResourceInvoices:
		return runCollection(ctx, client.Invoices(), verb, rest)
	default:
		return nil, fmt.Errorf("unknown resource %q", args[0])
	}
}

func runCollection[T any](ctx context.Context, collection *dataservice.Collection[T], verb string, rest []string) (any, error) {
	switch verb {
	case "list":
		return collection.List(ctx)
	case "get", "delete":
		if len(rest) == 0 {
			return nil, fmt.Errorf("%s %s requires an id", collection.Resource(), verb)
		}
		id, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", rest[0], err)
		}
		if verb == "get" {
			return collection.Get(ctx, id)
		}
		return nil, collection.Delete(ctx, id)
	default:
		return nil, fmt.Errorf("unknown verb %q, expected list, get or delete", verb)
	}
}
