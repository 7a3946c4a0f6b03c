package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yashgupta8707/jubilant-system/internal/domain/catalog"
	"github.com/yashgupta8707/jubilant-system/internal/search"
)

const searchHelp = `Type a query to search the catalog. Commands:
    :select N            Pick result N
    :new                 Create an item named after the query (offered when nothing matches)
    :set <field> <value> Set a draft field: name, category, brand, hsn, warranty,
                         purchasePrice, salesPrice, gstRate
    :category <name>     Create a category and use it in the draft
    :brand <name>        Create a brand and use it in the draft
    :categories          List categories
    :brands              List brands
    :show                Show the draft
    :save                Create the item
    :cancel              Close the create form
    :help                Show this help
    :quit                Exit
`

// searchSession is the interactive loop over a search widget
type searchSession struct {
	a       *app
	widget  *search.Widget
	changed chan struct{}
	wait    time.Duration
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := a.newFlagSet("search")
	debounce := fs.Duration("debounce", a.cfg.Search.Debounce, "Delay before a query is sent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := a.api()
	if err != nil {
		return err
	}

	s := &searchSession{
		a:       a,
		changed: make(chan struct{}, 1),
		wait:    *debounce + a.cfg.API.Timeout,
	}
	s.widget = search.New(client.Catalog(), search.Options{
		Debounce:       *debounce,
		MinQueryLength: a.cfg.Search.MinQueryLength,
		Logger:         a.logger,
		Metrics:        a.metrics,
		OnSelect: func(it catalog.Item) {
			fmt.Fprintf(a.out, "Selected: %s (%s)\n", it.Name, it.ID)
		},
		OnChange: func(search.State) {
			select {
			case s.changed <- struct{}{}:
			default:
			}
		},
	})
	defer s.widget.Close()

	if err := s.widget.Init(ctx); err != nil {
		fmt.Fprintf(a.errOut, "Warning: catalog partially loaded: %v\n", err)
	}
	st := s.widget.State()
	fmt.Fprintf(a.out, "Catalog: %d items, %d categories, %d brands. Type :help for commands.\n",
		st.CatalogSize, len(st.Categories), len(st.Brands))

	scanner := bufio.NewScanner(a.in)
	for {
		fmt.Fprint(a.errOut, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := s.command(ctx, line); quit {
				return nil
			}
			continue
		}
		if err := s.query(ctx, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// query sets the widget query and prints the outcome once it settles
func (s *searchSession) query(ctx context.Context, q string) error {
	s.widget.SetQuery(q)
	if utf8.RuneCountInString(q) < s.a.cfg.Search.MinQueryLength {
		fmt.Fprintf(s.a.out, "Type at least %d characters to search\n", s.a.cfg.Search.MinQueryLength)
		return nil
	}

	st, err := s.settle(ctx, q)
	if err != nil {
		return err
	}
	if len(st.Results) == 0 {
		fmt.Fprintf(s.a.out, "No matches for %q", q)
		if st.CanCreate {
			fmt.Fprint(s.a.out, ". Type :new to add it to the catalog")
		}
		fmt.Fprintln(s.a.out)
		return nil
	}
	writeResults(s.a.out, st.Results)
	return nil
}

// settle waits until the widget holds results for q
func (s *searchSession) settle(ctx context.Context, q string) (search.State, error) {
	timeout := time.NewTimer(s.wait)
	defer timeout.Stop()
	for {
		st := s.widget.State()
		if st.ResultsQuery == q && !st.Loading {
			return st, nil
		}
		select {
		case <-s.changed:
		case <-timeout.C:
			return st, fmt.Errorf("search for %q timed out", q)
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// command runs a ':' command and reports whether the loop should end
func (s *searchSession) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	out := s.a.out

	var err error
	switch name {
	case "quit", "q", "exit":
		return true
	case "help":
		fmt.Fprint(out, searchHelp)
	case "select":
		err = s.selectResult(arg)
	case "new":
		if err = s.widget.OpenCreate(); err == nil {
			s.showDraft()
		}
	case "set":
		field, value, _ := strings.Cut(arg, " ")
		value = strings.TrimSpace(value)
		st := s.widget.State()
		switch field {
		case catalog.FieldCategory:
			value = refID(st.Categories, value)
		case catalog.FieldBrand:
			value = refID(st.Brands, value)
		}
		err = s.widget.SetDraftField(field, value)
	case "category":
		var ref catalog.Ref
		if ref, err = s.widget.CreateCategory(ctx, arg); err == nil && ref.ID != "" {
			fmt.Fprintf(out, "Category %s created (%s)\n", ref.Name, ref.ID)
		}
	case "brand":
		var ref catalog.Ref
		if ref, err = s.widget.CreateBrand(ctx, arg); err == nil && ref.ID != "" {
			fmt.Fprintf(out, "Brand %s created (%s)\n", ref.Name, ref.ID)
		}
	case "categories":
		writeRefs(s.a, s.widget.State().Categories)
	case "brands":
		writeRefs(s.a, s.widget.State().Brands)
	case "show":
		s.showDraft()
	case "save":
		err = s.widget.SubmitCreate(ctx)
	case "cancel":
		s.widget.CloseCreate()
	default:
		err = fmt.Errorf("unknown command %q, type :help", name)
	}

	if err != nil {
		msg := err.Error()
		switch name {
		case "save", "category", "brand":
			if st := s.widget.State(); st.CreateError != "" {
				msg = st.CreateError
			}
		}
		fmt.Fprintf(s.a.errOut, "Error: %s\n", msg)
	}
	return false
}

func (s *searchSession) selectResult(arg string) error {
	n, err := strconv.Atoi(arg)
	results := s.widget.State().Results
	if err != nil || n < 1 || n > len(results) {
		return errors.New("select needs a result number from the list")
	}
	s.widget.Select(results[n-1])
	return nil
}

func (s *searchSession) showDraft() {
	st := s.widget.State()
	if !st.CreateOpen {
		fmt.Fprintln(s.a.out, "Create form is closed")
		return
	}
	d := st.Draft
	fmt.Fprintf(s.a.out, "New item:\n  name: %s\n  category: %s\n  brand: %s\n  hsn: %s\n  warranty: %s\n"+
		"  purchasePrice: %s\n  salesPrice: %s\n  gstRate: %s\n",
		d.Name, refName(st.Categories, d.Category), refName(st.Brands, d.Brand), d.HSN, d.Warranty,
		d.PurchasePrice, d.SalesPrice, d.GSTRate)
}

func writeRefs(a *app, refs []catalog.Ref) {
	for _, r := range refs {
		fmt.Fprintf(a.out, "%s\t%s\n", r.ID, r.Name)
	}
}

func refName(refs []catalog.Ref, id string) string {
	for _, r := range refs {
		if r.ID == id {
			return r.Name
		}
	}
	return id
}

// refID resolves a reference given by name or id
func refID(refs []catalog.Ref, v string) string {
	for _, r := range refs {
		if r.ID == v || strings.EqualFold(r.Name, v) {
			return r.ID
		}
	}
	return v
}
