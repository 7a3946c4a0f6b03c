// Package search implements the catalog search widget: debounced remote
// search with a local fallback, selection, and inline creation of missing
// catalog items, categories and brands.
package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/yashgupta8707/jubilant-system/internal/api"
	"github.com/yashgupta8707/jubilant-system/internal/domain/catalog"
	"github.com/yashgupta8707/jubilant-system/internal/metrics"
	"github.com/yashgupta8707/jubilant-system/internal/validation"
)

// Defaults
const (
	DefaultDebounce       = 500 * time.Millisecond
	DefaultMinQueryLength = 2
)

// Messages shown for failed create operations
const (
	msgCreateModelFailed    = "Failed to create model"
	msgCreateModelTransport = "Failed to create model. Please check your connection and try again."
	msgCreateCategoryFailed = "Failed to create category. Please try again."
	msgCreateBrandFailed    = "Failed to create brand. Please try again."
	msgRequiredFields       = "Please fill in all required fields"
)

var (
	// ErrCreateUnavailable is returned by OpenCreate when no search for the current query came back empty
	ErrCreateUnavailable = errors.New("search: create is only offered after an empty search")
	// ErrCreateClosed is returned when a create operation is attempted with the create form closed
	ErrCreateClosed = errors.New("search: create form is not open")
	// ErrCreateInProgress is returned when a create submission is already outstanding
	ErrCreateInProgress = errors.New("search: create already in progress")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("search: widget closed")
)

// CatalogAPI is the catalog collaborator of the widget
type CatalogAPI interface {
	ListCategories(ctx context.Context) ([]catalog.Ref, error)
	ListBrands(ctx context.Context) ([]catalog.Ref, error)
	ListModels(ctx context.Context) ([]catalog.Item, error)
	SearchModels(ctx context.Context, term string) ([]catalog.Item, error)
	CreateModel(ctx context.Context, req catalog.CreateRequest) (catalog.Item, error)
	CreateCategory(ctx context.Context, name string) (catalog.Ref, error)
	CreateBrand(ctx context.Context, name string) (catalog.Ref, error)
}

// Options configures a Widget
type Options struct {
	Debounce       time.Duration
	MinQueryLength int
	// OnSelect receives the chosen or newly created item.
	OnSelect func(catalog.Item)
	// OnChange receives a snapshot after every state change. It may be called
	// from timer goroutines and must be safe for concurrent use.
	OnChange func(State)
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// State is a snapshot of the widget
type State struct {
	Query        string
	Results      []catalog.Item
	ResultsQuery string // query the results were produced for
	ResultSource string // metrics.SourceRemote or metrics.SourceLocal
	Loading      bool
	CanCreate    bool
	CatalogSize  int
	CatalogReady bool
	Categories   []catalog.Ref
	Brands       []catalog.Ref
	Draft        catalog.Draft
	CreateOpen   bool
	Creating     bool
	CreateError  string
	LoadErrors   map[string]string
}

// Widget is the search state machine.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Widget struct {
	api       CatalogAPI
	opts      Options
	logger    *zap.Logger
	metrics   *metrics.Metrics
	debouncer *Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	query        string
	results      []catalog.Item
	resultsQuery string
	resultsValid bool
	source       string
	loading      bool
	cache        []catalog.Item
	cacheReady   bool
	categories   []catalog.Ref
	brands       []catalog.Ref
	draft        catalog.Draft
	createOpen   bool
	creating     bool
	createErr    string
	loadErrs     map[string]string
	gen          uint64
	cancelSearch context.CancelFunc
	closed       bool
}

// New creates a widget backed by catalogAPI
func New(catalogAPI CatalogAPI, opts Options) *Widget {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Widget{
		api:       catalogAPI,
		opts:      opts,
		logger:    logger.Named("search"),
		metrics:   opts.Metrics,
		debouncer: NewDebouncer(opts.Debounce),
		ctx:       ctx,
		cancel:    cancel,
		draft:     catalog.NewDraft(),
		loadErrs:  make(map[string]string),
	}
}

// Init fetches categories, brands and the full catalog concurrently. Each
// listing is stored as soon as it arrives; a failed listing is logged,
// recorded in State.LoadErrors and left empty. Init returns once all three
// have completed, with the joined errors of the failed ones.
func (w *Widget) Init(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(name string, err error) {
		w.logger.Warn("failed to load reference data", zap.String("resource", name), zap.Error(err))
		w.mu.Lock()
		w.loadErrs[name] = err.Error()
		w.mu.Unlock()
		mu.Lock()
		errs = append(errs, fmt.Errorf("search: loading %s: %w", name, err))
		mu.Unlock()
		w.notify()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		cats, err := w.api.ListCategories(ctx)
		if err != nil {
			record("categories", err)
			return
		}
		w.mu.Lock()
		w.categories = mergeRefs(cats, w.categories)
		delete(w.loadErrs, "categories")
		w.mu.Unlock()
		w.logger.Debug("categories loaded", zap.Int("count", len(cats)))
		w.notify()
	}()
	go func() {
		defer wg.Done()
		brands, err := w.api.ListBrands(ctx)
		if err != nil {
			record("brands", err)
			return
		}
		w.mu.Lock()
		w.brands = mergeRefs(brands, w.brands)
		delete(w.loadErrs, "brands")
		w.mu.Unlock()
		w.logger.Debug("brands loaded", zap.Int("count", len(brands)))
		w.notify()
	}()
	go func() {
		defer wg.Done()
		items, err := w.api.ListModels(ctx)
		if err != nil {
			record("models", err)
			return
		}
		w.mu.Lock()
		w.cache = mergeItems(items, w.cache)
		w.cacheReady = true
		delete(w.loadErrs, "models")
		// Results filtered from the catalog before it arrived are stale.
		if !w.closed && w.localResultsLocked() {
			w.armLocked()
		}
		w.mu.Unlock()
		w.logger.Debug("models loaded", zap.Int("count", len(items)))
		w.notify()
	}()
	wg.Wait()

	return errors.Join(errs...)
}

// SetQuery updates the query. Queries shorter than the minimum length clear
// the results without searching; longer ones re-arm the debounce timer.
func (w *Widget) SetQuery(q string) {
	w.mu.Lock()
	if w.closed || q == w.query {
		w.mu.Unlock()
		return
	}
	w.query = q
	if w.searchable(q) {
		w.armLocked()
	} else {
		w.resetSearchLocked()
	}
	w.mu.Unlock()
	w.notify()
}

// Select hands item to the host and clears the query and results.
func (w *Widget) Select(item catalog.Item) {
	w.mu.Lock()
	w.query = ""
	w.resetSearchLocked()
	w.mu.Unlock()

	w.logger.Debug("item selected", zap.String("id", item.ID), zap.String("name", item.Name))
	if w.opts.OnSelect != nil {
		w.opts.OnSelect(item)
	}
	w.notify()
}

// CanCreate reports whether the create affordance is offered: the current
// query is searchable, its search completed with no results and nothing is in flight.
func (w *Widget) CanCreate() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canCreateLocked()
}

// OpenCreate opens the create form with the draft name seeded from the query.
// Other draft fields keep their values.
func (w *Widget) OpenCreate() error {
	w.mu.Lock()
	if !w.canCreateLocked() {
		w.mu.Unlock()
		return ErrCreateUnavailable
	}
	w.draft.Name = w.query
	w.createOpen = true
	w.createErr = ""
	w.mu.Unlock()
	w.notify()
	return nil
}

// EditDraft applies fn to the draft of the open create form
func (w *Widget) EditDraft(fn func(*catalog.Draft)) error {
	w.mu.Lock()
	if !w.createOpen {
		w.mu.Unlock()
		return ErrCreateClosed
	}
	if w.creating {
		w.mu.Unlock()
		return ErrCreateInProgress
	}
	fn(&w.draft)
	w.mu.Unlock()
	w.notify()
	return nil
}

// SetDraftField assigns one draft field by name
func (w *Widget) SetDraftField(field, value string) error {
	var setErr error
	if err := w.EditDraft(func(d *catalog.Draft) { setErr = d.Set(field, value) }); err != nil {
		return err
	}
	return setErr
}

// CloseCreate hides the create form. The draft is kept.
func (w *Widget) CloseCreate() {
	w.mu.Lock()
	w.createOpen = false
	w.createErr = ""
	w.mu.Unlock()
	w.notify()
}

// SubmitCreate validates and coerces the draft and creates the item. On
// success the item is appended to the catalog and handed to the host, the
// form closes, the draft resets and the query clears. On failure the form
// stays open with the draft intact and State.CreateError describes the problem.
func (w *Widget) SubmitCreate(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if !w.createOpen {
		w.mu.Unlock()
		return ErrCreateClosed
	}
	if w.creating {
		w.mu.Unlock()
		return ErrCreateInProgress
	}
	req, err := w.draft.Request()
	if err != nil {
		w.createErr = draftErrorMessage(err)
		w.mu.Unlock()
		w.notify()
		return err
	}
	w.creating = true
	w.createErr = ""
	w.mu.Unlock()
	w.notify()

	item, err := w.api.CreateModel(ctx, req)

	w.mu.Lock()
	w.creating = false
	if err != nil {
		w.createErr = createErrorMessage(err)
		w.mu.Unlock()
		w.logger.Warn("failed to create model", zap.String("name", req.Name), zap.Error(err))
		w.metrics.Submission("model", "failure")
		w.notify()
		return err
	}
	w.cache = append(w.cache, item)
	w.createOpen = false
	w.draft = catalog.NewDraft()
	w.query = ""
	w.resetSearchLocked()
	w.mu.Unlock()

	w.logger.Info("model created", zap.String("id", item.ID), zap.String("name", item.Name))
	w.metrics.Submission("model", "success")
	if w.opts.OnSelect != nil {
		w.opts.OnSelect(item)
	}
	w.notify()
	return nil
}

// CreateCategory creates a category, appends it to the category list and
// selects it in the draft. An empty name is a cancelled prompt and does nothing.
// If the form closes while the request is out, the category is still listed
// but the draft is left alone.
func (w *Widget) CreateCategory(ctx context.Context, name string) (catalog.Ref, error) {
	return w.createRef(ctx, name, "category", w.api.CreateCategory,
		func(ref catalog.Ref) { w.categories = append(w.categories, ref) },
		func(ref catalog.Ref) { w.draft.Category = ref.ID },
		msgCreateCategoryFailed)
}

// CreateBrand creates a brand, appends it to the brand list and selects it
// in the draft. An empty name is a cancelled prompt and does nothing.
// If the form closes while the request is out, the brand is still listed
// but the draft is left alone.
func (w *Widget) CreateBrand(ctx context.Context, name string) (catalog.Ref, error) {
	return w.createRef(ctx, name, "brand", w.api.CreateBrand,
		func(ref catalog.Ref) { w.brands = append(w.brands, ref) },
		func(ref catalog.Ref) { w.draft.Brand = ref.ID },
		msgCreateBrandFailed)
}

func (w *Widget) createRef(
	ctx context.Context,
	name, kind string,
	create func(context.Context, string) (catalog.Ref, error),
	add, pick func(catalog.Ref),
	failMsg string,
) (catalog.Ref, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Ref{}, nil
	}

	w.mu.Lock()
	if !w.createOpen {
		w.mu.Unlock()
		return catalog.Ref{}, ErrCreateClosed
	}
	w.mu.Unlock()

	ref, err := create(ctx, name)
	if err != nil {
		w.mu.Lock()
		if w.createOpen {
			w.createErr = failMsg
		}
		w.mu.Unlock()
		w.logger.Warn("failed to create "+kind, zap.String("name", name), zap.Error(err))
		w.notify()
		return catalog.Ref{}, err
	}

	w.mu.Lock()
	add(ref)
	if w.createOpen {
		pick(ref)
		w.createErr = ""
	}
	w.mu.Unlock()
	w.logger.Info(kind+" created", zap.String("id", ref.ID), zap.String("name", ref.Name))
	w.notify()
	return ref, nil
}

// State returns a snapshot of the widget
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	loadErrs := make(map[string]string, len(w.loadErrs))
	for k, v := range w.loadErrs {
		loadErrs[k] = v
	}
	return State{
		Query:        w.query,
		Results:      slices.Clone(w.results),
		ResultsQuery: w.resultsQuery,
		ResultSource: w.source,
		Loading:      w.loading,
		CanCreate:    w.canCreateLocked(),
		CatalogSize:  len(w.cache),
		CatalogReady: w.cacheReady,
		Categories:   slices.Clone(w.categories),
		Brands:       slices.Clone(w.brands),
		Draft:        w.draft,
		CreateOpen:   w.createOpen,
		Creating:     w.creating,
		CreateError:  w.createErr,
		LoadErrors:   loadErrs,
	}
}

// Close stops the debounce timer and cancels any search in flight.
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.debouncer.Cancel()
	w.cancel()
	w.loading = false
}

func (w *Widget) searchable(q string) bool {
	return utf8.RuneCountInString(q) >= w.opts.MinQueryLength
}

func (w *Widget) canCreateLocked() bool {
	return w.searchable(w.query) &&
		!w.loading &&
		w.resultsValid &&
		w.resultsQuery == w.query &&
		len(w.results) == 0
}

// localResultsLocked reports whether the results shown for the current query
// came from the local fallback after a failed remote search.
func (w *Widget) localResultsLocked() bool {
	return w.resultsValid &&
		w.resultsQuery == w.query &&
		w.source == metrics.SourceLocal &&
		w.searchable(w.query)
}

// armLocked supersedes any pending or running search and schedules a new
// one for the current query.
func (w *Widget) armLocked() {
	w.gen++
	if w.cancelSearch != nil {
		w.cancelSearch()
		w.cancelSearch = nil
	}
	w.loading = false
	gen, q := w.gen, w.query
	w.debouncer.Trigger(func() { w.run(gen, q) })
}

// resetSearchLocked clears results and supersedes pending work.
func (w *Widget) resetSearchLocked() {
	w.gen++
	w.debouncer.Cancel()
	if w.cancelSearch != nil {
		w.cancelSearch()
		w.cancelSearch = nil
	}
	w.results = nil
	w.resultsQuery = ""
	w.resultsValid = false
	w.source = ""
	w.loading = false
}

// run executes the search armed as generation gen for query q.
func (w *Widget) run(gen uint64, q string) {
	w.mu.Lock()
	if w.closed || gen != w.gen {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(w.ctx)
	w.cancelSearch = cancel
	w.loading = true
	w.mu.Unlock()
	w.notify()
	defer cancel()

	source := metrics.SourceRemote
	items, err := w.api.SearchModels(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			w.metrics.SearchDiscarded()
			w.logger.Debug("search superseded", zap.String("query", q))
			return
		}
		w.logger.Debug("remote search failed, filtering locally", zap.String("query", q), zap.Error(err))
		source = metrics.SourceLocal
		w.mu.Lock()
		items = catalog.Filter(w.cache, q)
		w.mu.Unlock()
	}
	if items == nil {
		items = []catalog.Item{}
	}

	w.mu.Lock()
	if gen != w.gen || q != w.query {
		w.mu.Unlock()
		w.metrics.SearchDiscarded()
		w.logger.Debug("discarding stale search result", zap.String("query", q))
		return
	}
	w.results = items
	w.resultsQuery = q
	w.resultsValid = true
	w.source = source
	w.loading = false
	w.cancelSearch = nil
	w.mu.Unlock()

	w.metrics.SearchApplied(source)
	w.logger.Debug("search applied",
		zap.String("query", q),
		zap.String("source", source),
		zap.Int("results", len(items)),
	)
	w.notify()
}

func (w *Widget) notify() {
	if w.opts.OnChange != nil {
		w.opts.OnChange(w.State())
	}
}

func draftErrorMessage(err error) string {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return msgRequiredFields + ": " + validation.Join(verr.Fields)
	}
	return err.Error()
}

func createErrorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return msgCreateModelFailed + ": " + msg
	}
	return msgCreateModelTransport
}

// mergeRefs returns fetched followed by the entries of local missing from it.
func mergeRefs(fetched, local []catalog.Ref) []catalog.Ref {
	out := slices.Clone(fetched)
	for _, r := range local {
		if !slices.ContainsFunc(out, func(x catalog.Ref) bool { return x.ID == r.ID }) {
			out = append(out, r)
		}
	}
	return out
}

// mergeItems returns fetched followed by the entries of local missing from it.
func mergeItems(fetched, local []catalog.Item) []catalog.Item {
	out := slices.Clone(fetched)
	for _, it := range local {
		if !slices.ContainsFunc(out, func(x catalog.Item) bool { return x.ID == it.ID }) {
			out = append(out, it)
		}
	}
	return out
}
