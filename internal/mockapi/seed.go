package mockapi

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/yashgupta8707/jubilant-system/internal/domain/catalog"
	"github.com/yashgupta8707/jubilant-system/internal/domain/party"
	"github.com/yashgupta8707/jubilant-system/internal/domain/quotation"
)

// SeedConfig sizes the generated data set
type SeedConfig struct {
	Models  int
	Parties int
	// Seed makes the data set reproducible. 0 picks a random seed.
	Seed uint64
}

var (
	seedCategories = []string{"Networking", "Storage", "Peripherals", "Displays", "Power", "Components"}
	seedBrands     = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Stark"}
	seedHSN        = []string{"8471", "8473", "8517", "8528", "8504", "8544"}
	seedWarranty   = []string{"6 months", "1 year", "2 years", "3 years"}
	seedGSTRates   = []int64{0, 5, 12, 18, 28}
	seedTags       = []string{"VIP", "Urgent", "Bulk", "Reseller", "Government", "Repeat"}
)

// Seed fills the store with categories, brands, catalog items, parties and
// one quotation per party generated with gofakeit.
func (s *Store) Seed(cfg SeedConfig) error {
	f := gofakeit.New(cfg.Seed)

	categories := make([]catalog.Ref, 0, len(seedCategories))
	for _, name := range seedCategories {
		ref, err := s.AddCategory(name)
		if err != nil {
			return fmt.Errorf("mockapi: seeding categories: %w", err)
		}
		categories = append(categories, ref)
	}
	brands := make([]catalog.Ref, 0, len(seedBrands))
	for _, name := range seedBrands {
		ref, err := s.AddBrand(name)
		if err != nil {
			return fmt.Errorf("mockapi: seeding brands: %w", err)
		}
		brands = append(brands, ref)
	}

	items := make([]catalog.Item, 0, cfg.Models)
	for i := 0; i < cfg.Models; i++ {
		purchase := decimal.NewFromFloat(f.Price(500, 50000)).Round(2)
		margin := decimal.NewFromInt(int64(f.Number(5, 40)))
		req := catalog.CreateRequest{
			Name:          fmt.Sprintf("%s %d", f.ProductName(), i+1),
			Category:      categories[f.Number(0, len(categories)-1)].ID,
			Brand:         brands[f.Number(0, len(brands)-1)].ID,
			HSN:           f.RandomString(seedHSN),
			Warranty:      f.RandomString(seedWarranty),
			PurchasePrice: purchase,
			SalesPrice:    purchase.Add(purchase.Mul(margin).Div(decimal.NewFromInt(100))).Round(2),
			GSTRate:       decimal.NewFromInt(seedGSTRates[f.Number(0, len(seedGSTRates)-1)]),
		}
		item, err := s.AddModel(req)
		if err != nil {
			return fmt.Errorf("mockapi: seeding models: %w", err)
		}
		items = append(items, item)
	}

	sources := party.LeadSources()
	priorities := party.Priorities()
	statuses := party.DealStatuses()
	for i := 0; i < cfg.Parties; i++ {
		tags := party.NewTagSet()
		for n := f.Number(0, 2); n > 0; n-- {
			tags.Add(f.RandomString(seedTags))
		}
		rec, err := s.AddParty(party.CreateRequest{
			Name:         f.Company(),
			Phone:        fmt.Sprintf("9%03d%06d", f.Number(0, 999), i),
			Address:      f.Street() + ", " + f.City(),
			Email:        f.Email(),
			Source:       sources[f.Number(0, len(sources)-1)],
			Priority:     priorities[f.Number(0, len(priorities)-1)],
			Requirements: f.ProductName(),
			DealStatus:   statuses[f.Number(0, len(statuses)-1)],
			Tags:         tags,
		}, "seed")
		if err != nil {
			return fmt.Errorf("mockapi: seeding parties: %w", err)
		}
		if len(items) > 0 {
			s.AddQuotation(seedQuotation(f, rec, items))
		}
	}
	return nil
}

func seedQuotation(f *gofakeit.Faker, rec party.Record, items []catalog.Item) quotation.Quotation {
	q := quotation.Quotation{
		Party:  &quotation.PartyRef{ID: rec.ID, Name: rec.Name, Phone: rec.Phone},
		Status: quotation.StatusDraft,
	}
	for n := f.Number(1, 3); n > 0; n-- {
		it := items[f.Number(0, len(items)-1)]
		q.Items = append(q.Items, quotation.LineItem{
			Model:       it.ID,
			Description: it.Name,
			HSN:         it.HSN,
			Warranty:    it.Warranty,
			Quantity:    f.Number(1, 10),
			UnitPrice:   it.SalesPrice,
			GSTRate:     it.GSTRate,
		})
	}
	return q
}
