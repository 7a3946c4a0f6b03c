package main

import (
	"context"
	"fmt"

	"github.com/yashgupta8707/jubilant-system/internal/domain/quotation"
)

func (a *app) quotation(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("quotation requires a subcommand: list or get")
	}
	client, err := a.api()
	if err != nil {
		return err
	}
	svc := client.Quotations()

	switch args[0] {
	case "list":
		fs := a.newFlagSet("quotation list")
		partyID := fs.String("party", "", "Only quotations of this party")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		var (
			list []quotation.Quotation
			err  error
		)
		if *partyID != "" {
			list, err = svc.ListByParty(ctx, *partyID)
		} else {
			list, err = svc.List(ctx)
		}
		if err != nil {
			return fmt.Errorf("listing quotations: %w", err)
		}
		return a.render(list, quotationTable(list))

	case "get":
		fs := a.newFlagSet("quotation get")
		id := fs.String("id", "", "Quotation id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" {
			return usageError("quotation get requires -id")
		}
		q, err := svc.Get(ctx, *id)
		if err != nil {
			return fmt.Errorf("fetching quotation: %w", err)
		}
		return a.render(q, quotationDetail(q))
	}
	return usageError("unknown quotation subcommand %q", args[0])
}
