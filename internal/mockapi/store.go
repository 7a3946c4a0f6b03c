package mockapi

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/yashgupta8707/jubilant-system/internal/domain/catalog"
	"github.com/yashgupta8707/jubilant-system/internal/domain/party"
	"github.com/yashgupta8707/jubilant-system/internal/domain/quotation"
)

// Store errors
var (
	ErrNotFound         = errors.New("mockapi: not found")
	ErrDuplicate        = errors.New("mockapi: already exists")
	ErrUnknownReference = errors.New("mockapi: unknown reference")
)

// firstPartyNumber is the numeric part of the first generated party id
const firstPartyNumber = 1001

// Store is the in-memory data set served by the mock backend.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Store struct {
	mu         sync.RWMutex
	categories []catalog.Ref
	brands     []catalog.Ref
	models     []catalog.Item
	parties    []party.Record
	quotations []quotation.Quotation
	nextParty  int
	now        func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		nextParty: firstPartyNumber,
		now:       time.Now,
	}
}

// Categories returns every category
func (s *Store) Categories() []catalog.Ref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

// Brands returns every brand
func (s *Store) Brands() []catalog.Ref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.brands)
}

// AddCategory creates a category. Names are unique ignoring case.
func (s *Store) AddCategory(name string) (catalog.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addRef(&s.categories, name)
}

// AddBrand creates a brand. Names are unique ignoring case.
func (s *Store) AddBrand(name string) (catalog.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addRef(&s.brands, name)
}

func addRef(refs *[]catalog.Ref, name string) (catalog.Ref, error) {
	name = strings.TrimSpace(name)
	fold := cases.Fold()
	key := fold.String(name)
	for _, r := range *refs {
		if fold.String(r.Name) == key {
			return catalog.Ref{}, fmt.Errorf("%w: %s", ErrDuplicate, name)
		}
	}
	ref := catalog.Ref{ID: uuid.NewString(), Name: name}
	*refs = append(*refs, ref)
	return ref, nil
}

// Models returns the full catalog
func (s *Store) Models() []catalog.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.models)
}

// SearchModels returns the items matching term
func (s *Store) SearchModels(term string) []catalog.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.Filter(s.models, term)
}

// AddModel creates a catalog item, populating its category and brand from
// the referenced identifiers.
func (s *Store) AddModel(req catalog.CreateRequest) (catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := findRef(s.categories, req.Category)
	if !ok {
		return catalog.Item{}, fmt.Errorf("%w: category %s", ErrUnknownReference, req.Category)
	}
	brand, ok := findRef(s.brands, req.Brand)
	if !ok {
		return catalog.Item{}, fmt.Errorf("%w: brand %s", ErrUnknownReference, req.Brand)
	}
	for _, m := range s.models {
		if strings.EqualFold(m.Name, req.Name) && m.Brand != nil && m.Brand.ID == brand.ID {
			return catalog.Item{}, fmt.Errorf("%w: model %s", ErrDuplicate, req.Name)
		}
	}

	item := catalog.Item{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Category:      &category,
		Brand:         &brand,
		HSN:           req.HSN,
		Warranty:      req.Warranty,
		PurchasePrice: req.PurchasePrice,
		SalesPrice:    req.SalesPrice,
		GSTRate:       req.GSTRate,
	}
	s.models = append(s.models, item)
	return item, nil
}

func findRef(refs []catalog.Ref, id string) (catalog.Ref, bool) {
	i := slices.IndexFunc(refs, func(r catalog.Ref) bool { return r.ID == id })
	if i < 0 {
		return catalog.Ref{}, false
	}
	return refs[i], true
}

// Parties returns the parties whose name, phone, email or party id contain
// search, ignoring case. An empty search returns every party.
func (s *Store) Parties(search string) []party.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]party.Record, 0, len(s.parties))
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(search))
	for _, p := range s.parties {
		if q == "" || slices.ContainsFunc([]string{p.Name, p.Phone, p.Email, p.PartyID}, func(v string) bool {
			return v != "" && strings.Contains(fold.String(v), q)
		}) {
			out = append(out, cloneParty(p))
		}
	}
	return out
}

// Party returns the party with the given id
func (s *Store) Party(id string) (party.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.partyIndex(id)
	if i < 0 {
		return party.Record{}, fmt.Errorf("%w: party %s", ErrNotFound, id)
	}
	return cloneParty(s.parties[i]), nil
}

// AddParty creates a party. The initial comment, when present, becomes the
// first comment of the record.
func (s *Store) AddParty(req party.CreateRequest, author string) (party.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.parties {
		if p.Phone == req.Phone {
			return party.Record{}, fmt.Errorf("%w: phone %s", ErrDuplicate, req.Phone)
		}
	}

	now := s.now().UTC()
	id := fmt.Sprintf("P-%d", s.nextParty)
	s.nextParty++
	rec := party.Record{
		ID:           id,
		PartyID:      id,
		Name:         req.Name,
		Phone:        req.Phone,
		Address:      req.Address,
		Email:        req.Email,
		Source:       req.Source,
		Priority:     req.Priority,
		Requirements: req.Requirements,
		DealStatus:   req.DealStatus,
		Tags:         req.Tags.Clone(),
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}
	if req.InitialComment != "" {
		rec.Comments = append(rec.Comments, s.newComment(req.InitialComment, author))
	}
	s.parties = append(s.parties, rec)
	return cloneParty(rec), nil
}

// UpdateParty replaces the fields of a party. A change comment is appended
// to its comments.
func (s *Store) UpdateParty(id string, req party.UpdateRequest, author string) (party.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.partyIndex(id)
	if i < 0 {
		return party.Record{}, fmt.Errorf("%w: party %s", ErrNotFound, id)
	}
	rec := &s.parties[i]
	rec.Name = req.Name
	rec.Phone = req.Phone
	rec.Address = req.Address
	rec.Email = req.Email
	rec.Source = req.Source
	rec.Priority = req.Priority
	rec.Requirements = req.Requirements
	rec.DealStatus = req.DealStatus
	rec.Tags = req.Tags.Clone()
	if req.ChangeComment != "" {
		rec.Comments = append(rec.Comments, s.newComment(req.ChangeComment, author))
	}
	now := s.now().UTC()
	rec.UpdatedAt = &now
	return cloneParty(*rec), nil
}

// DeleteParty removes a party
func (s *Store) DeleteParty(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.partyIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: party %s", ErrNotFound, id)
	}
	s.parties = slices.Delete(s.parties, i, i+1)
	return nil
}

// AddComment appends a comment to a party
func (s *Store) AddComment(id, text, author string) (party.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.partyIndex(id)
	if i < 0 {
		return party.Record{}, fmt.Errorf("%w: party %s", ErrNotFound, id)
	}
	s.parties[i].Comments = append(s.parties[i].Comments, s.newComment(text, author))
	return cloneParty(s.parties[i]), nil
}

func (s *Store) newComment(text, author string) party.Comment {
	return party.Comment{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedBy: author,
		CreatedAt: s.now().UTC(),
	}
}

func (s *Store) partyIndex(id string) int {
	return slices.IndexFunc(s.parties, func(p party.Record) bool { return p.ID == id })
}

func cloneParty(p party.Record) party.Record {
	p.Tags = p.Tags.Clone()
	p.Comments = slices.Clone(p.Comments)
	return p
}

// Quotations returns every quotation
func (s *Store) Quotations() []quotation.Quotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.quotations)
}

// QuotationsByParty returns the quotations issued to a party
func (s *Store) QuotationsByParty(partyID string) []quotation.Quotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]quotation.Quotation, 0)
	for _, q := range s.quotations {
		if q.Party != nil && q.Party.ID == partyID {
			out = append(out, q)
		}
	}
	return out
}

// Quotation returns the quotation with the given id
func (s *Store) Quotation(id string) (quotation.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quotations {
		if q.ID == id {
			return q, nil
		}
	}
	return quotation.Quotation{}, fmt.Errorf("%w: quotation %s", ErrNotFound, id)
}

// AddQuotation stores q, assigning an id and computing its totals.
func (s *Store) AddQuotation(q quotation.Quotation) quotation.Quotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.QuotationID == "" {
		q.QuotationID = fmt.Sprintf("QT-%04d", len(s.quotations)+1)
	}
	if q.Status == "" {
		q.Status = quotation.StatusDraft
	}
	if q.CreatedAt == nil {
		now := s.now().UTC()
		q.CreatedAt = &now
	}
	q.ComputeTotals()
	s.quotations = append(s.quotations, q)
	return q
}
