package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/yashgupta8707/jubilant-system/internal/partyform"
)

// stringsFlag collects every occurrence of a repeatable flag
type stringsFlag []string

func (s *stringsFlag) String() string { return strings.Join(*s, ",") }

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// partyFlags maps command-line flags to form fields
var partyFlags = []struct {
	flag, field, usage string
}{
	{"name", partyform.FieldName, "Party name"},
	{"phone", partyform.FieldPhone, "Phone number"},
	{"address", partyform.FieldAddress, "Postal address"},
	{"email", partyform.FieldEmail, "Email address"},
	{"source", partyform.FieldSource, "Lead source: walk-in, instagram, linkedin, whatsapp, referral, website, other"},
	{"priority", partyform.FieldPriority, "Priority: low, medium, high"},
	{"deal-status", partyform.FieldDealStatus, "Deal status: in_progress, won, lost, on_hold"},
	{"requirements", partyform.FieldRequirements, "Free-text requirements"},
	{"comment", partyform.FieldComment, "Initial comment (create) or change comment (edit)"},
}

func (a *app) party(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("party requires a subcommand: get, list, create, edit, delete or comment")
	}
	switch args[0] {
	case "get":
		return a.partyGet(ctx, args[1:])
	case "list":
		return a.partyList(ctx, args[1:])
	case "create":
		return a.partySave(ctx, "create", args[1:])
	case "edit":
		return a.partySave(ctx, "edit", args[1:])
	case "delete":
		return a.partyDelete(ctx, args[1:])
	case "comment":
		return a.partyComment(ctx, args[1:])
	}
	return usageError("unknown party subcommand %q", args[0])
}

func (a *app) partyGet(ctx context.Context, args []string) error {
	fs := a.newFlagSet("party get")
	id := fs.String("id", "", "Party id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return usageError("party get requires -id")
	}
	client, err := a.api()
	if err != nil {
		return err
	}
	rec, err := client.Parties().Get(ctx, *id)
	if err != nil {
		return fmt.Errorf("fetching party: %w", err)
	}
	return a.render(rec, partyDetail(rec))
}

func (a *app) partyList(ctx context.Context, args []string) error {
	fs := a.newFlagSet("party list")
	search := fs.String("search", "", "Filter by name, phone or email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := a.api()
	if err != nil {
		return err
	}
	list, err := client.Parties().List(ctx, *search)
	if err != nil {
		return fmt.Errorf("listing parties: %w", err)
	}
	return a.render(list, partyTable(list))
}

// partySave drives the party form from flags. In edit mode only the flags
// given on the command line change the loaded record.
func (a *app) partySave(ctx context.Context, mode string, args []string) error {
	fs := a.newFlagSet("party " + mode)
	id := fs.String("id", "", "Party id (edit only)")
	values := make(map[string]*string, len(partyFlags))
	for _, pf := range partyFlags {
		values[pf.flag] = fs.String(pf.flag, "", pf.usage)
	}
	var tags, untags stringsFlag
	fs.Var(&tags, "tag", "Add a tag (repeatable)")
	fs.Var(&untags, "untag", "Remove a tag (repeatable, edit only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if mode == "edit" && *id == "" {
		return usageError("party edit requires -id")
	}
	if mode == "create" && (*id != "" || len(untags) > 0) {
		return usageError("-id and -untag are only valid for party edit")
	}

	client, err := a.api()
	if err != nil {
		return err
	}
	form := partyform.New(client.Parties(), nil, partyform.Options{
		ID:      *id,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	if err := form.Load(ctx); err != nil {
		return fmt.Errorf("%s: %w", form.State().Error, errors.Unwrap(err))
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for _, pf := range partyFlags {
		if !set[pf.flag] {
			continue
		}
		if err := form.SetField(pf.field, *values[pf.flag]); err != nil {
			return usageError("-%s: %v", pf.flag, err)
		}
	}
	for _, t := range untags {
		removed, err := form.RemoveTag(t)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(a.errOut, "Warning: tag %q not present\n", t)
		}
	}
	for _, t := range tags {
		if err := form.SetTagInput(t); err != nil {
			return err
		}
		if _, err := form.HandleKey(partyform.KeyEnter); err != nil {
			return err
		}
	}

	if err := form.Submit(ctx); err != nil {
		st := form.State()
		if len(st.FieldErrors) > 0 {
			for _, fe := range st.FieldErrors {
				fmt.Fprintf(a.errOut, "  %s: %s\n", fe.Field, fe.Message)
			}
			return errors.New("party is not valid")
		}
		if st.Error != "" {
			return errors.New(st.Error)
		}
		return err
	}

	saved := form.State().Saved
	if saved == nil {
		return errors.New("party saved but no record was returned")
	}
	return a.render(*saved, partyDetail(*saved))
}

func (a *app) partyDelete(ctx context.Context, args []string) error {
	fs := a.newFlagSet("party delete")
	id := fs.String("id", "", "Party id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return usageError("party delete requires -id")
	}
	client, err := a.api()
	if err != nil {
		return err
	}
	if err := client.Parties().Delete(ctx, *id); err != nil {
		return fmt.Errorf("deleting party: %w", err)
	}
	fmt.Fprintf(a.out, "Deleted %s\n", *id)
	return nil
}

func (a *app) partyComment(ctx context.Context, args []string) error {
	fs := a.newFlagSet("party comment")
	id := fs.String("id", "", "Party id")
	text := fs.String("text", "", "Comment text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || strings.TrimSpace(*text) == "" {
		return usageError("party comment requires -id and -text")
	}
	client, err := a.api()
	if err != nil {
		return err
	}
	rec, err := client.Parties().AddComment(ctx, *id, strings.TrimSpace(*text))
	if err != nil {
		return fmt.Errorf("adding comment: %w", err)
	}
	return a.render(rec, partyDetail(rec))
}
