package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/yashgupta8707/jubilant-system/internal/domain/catalog"
	"github.com/yashgupta8707/jubilant-system/internal/domain/party"
	"github.com/yashgupta8707/jubilant-system/internal/domain/quotation"
	"github.com/yashgupta8707/jubilant-system/internal/presentation"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validFormat(f string) bool {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return true
	}
	return false
}

// render writes v as JSON or YAML, or calls table for the table format
func (a *app) render(v any, table func(w *tabwriter.Writer)) error {
	switch a.format {
	case formatJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

func partyTable(parties []party.Record) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tPHONE\tSOURCE\tPRIORITY\tDEAL\tTAGS")
		for _, p := range parties {
			p = p.WithDefaults()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\t%s %s\t%s %s\t%s\n",
				p.ID, p.Name, p.Phone,
				presentation.SourceGlyph(p.Source), presentation.SourceLabel(p.Source),
				presentation.PriorityGlyph(p.Priority), presentation.PriorityLabel(p.Priority),
				presentation.DealStatusGlyph(p.DealStatus), presentation.DealStatusLabel(p.DealStatus),
				strings.Join(p.Tags.Values(), ", "),
			)
		}
	}
}

func partyDetail(p party.Record) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		p = p.WithDefaults()
		fmt.Fprintf(w, "ID:\t%s\n", p.ID)
		fmt.Fprintf(w, "Name:\t%s\n", p.Name)
		fmt.Fprintf(w, "Phone:\t%s\n", p.Phone)
		fmt.Fprintf(w, "Address:\t%s\n", p.Address)
		if p.Email != "" {
			fmt.Fprintf(w, "Email:\t%s\n", p.Email)
		}
		fmt.Fprintf(w, "Source:\t%s %s\n", presentation.SourceGlyph(p.Source), presentation.SourceLabel(p.Source))
		fmt.Fprintf(w, "Priority:\t%s %s\n", presentation.PriorityGlyph(p.Priority), presentation.PriorityLabel(p.Priority))
		fmt.Fprintf(w, "Deal:\t%s %s\n", presentation.DealStatusGlyph(p.DealStatus), presentation.DealStatusLabel(p.DealStatus))
		if p.Requirements != "" {
			fmt.Fprintf(w, "Requirements:\t%s\n", p.Requirements)
		}
		fmt.Fprintf(w, "Tags:\t%s\n", strings.Join(p.Tags.Values(), ", "))
		for _, c := range p.Comments {
			fmt.Fprintf(w, "Comment:\t[%s %s] %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04"), c.CreatedBy, c.Text)
		}
	}
}

func quotationTable(qs []quotation.Quotation) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNUMBER\tPARTY\tSTATUS\tITEMS\tTOTAL")
		for _, q := range qs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				q.ID, q.QuotationID, q.PartyName(), q.Status, len(q.Items), q.GrandTotal.StringFixed(2))
		}
	}
}

func quotationDetail(q quotation.Quotation) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "ID:\t%s\n", q.ID)
		fmt.Fprintf(w, "Number:\t%s\n", q.QuotationID)
		fmt.Fprintf(w, "Party:\t%s\n", q.PartyName())
		fmt.Fprintf(w, "Status:\t%s\n", q.Status)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "DESCRIPTION\tQTY\tUNIT\tGST%\tTOTAL")
		for _, l := range q.Items {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
				l.Description, l.Quantity, l.UnitPrice.StringFixed(2), l.GSTRate.String(), l.Total().StringFixed(2))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Tax included:\t%s\n", q.TotalTax.StringFixed(2))
		fmt.Fprintf(w, "Grand total:\t%s\n", q.GrandTotal.StringFixed(2))
	}
}

// writeResults prints numbered search results
func writeResults(out io.Writer, items []catalog.Item) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, it := range items {
		fmt.Fprintf(tw, "%d.\t%s\t%s\t%s\tHSN %s\t%s\n",
			i+1, it.Name, it.CategoryName(), it.BrandName(), it.HSN, it.SalesPrice.StringFixed(2))
	}
	_ = tw.Flush()
}
