package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yashgupta8707/jubilant-system/internal/validation"
)

// Draft field names, as accepted by Draft.Set
const (
	FieldName          = "name"
	FieldCategory      = "category"
	FieldBrand         = "brand"
	FieldHSN           = "hsn"
	FieldWarranty      = "warranty"
	FieldPurchasePrice = "purchasePrice"
	FieldSalesPrice    = "salesPrice"
	FieldGSTRate       = "gstRate"
)

// Coercion defaults for numeric text that does not parse
var (
	DefaultPrice   = decimal.Zero
	DefaultGSTRate = decimal.NewFromInt(18)
)

// ErrUnknownField is returned by Draft.Set for a field the draft does not have
var ErrUnknownField = errors.New("catalog: unknown draft field")

// Draft is the text-backed state of the inline create form.
// Category and Brand hold reference identifiers.
type Draft struct {
	Name          string `json:"name" validate:"required"`
	Category      string `json:"category" validate:"required"`
	Brand         string `json:"brand" validate:"required"`
	HSN           string `json:"hsn" validate:"required"`
	Warranty      string `json:"warranty" validate:"required"`
	PurchasePrice string `json:"purchasePrice" validate:"required"`
	SalesPrice    string `json:"salesPrice" validate:"required"`
	GSTRate       string `json:"gstRate"`
}

// NewDraft returns an empty draft with the GST rate preset to 18
func NewDraft() Draft {
	return Draft{GSTRate: "18"}
}

// Set assigns a field by its JSON name
func (d *Draft) Set(field, value string) error {
	switch field {
	case FieldName:
		d.Name = value
	case FieldCategory:
		d.Category = value
	case FieldBrand:
		d.Brand = value
	case FieldHSN:
		d.HSN = value
	case FieldWarranty:
		d.Warranty = value
	case FieldPurchasePrice:
		d.PurchasePrice = value
	case FieldSalesPrice:
		d.SalesPrice = value
	case FieldGSTRate:
		d.GSTRate = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// CreateRequest is the body of POST /models
type CreateRequest struct {
	Name          string          `json:"name" validate:"required"`
	Category      string          `json:"category" validate:"required"`
	Brand         string          `json:"brand" validate:"required"`
	HSN           string          `json:"hsn" validate:"required"`
	Warranty      string          `json:"warranty" validate:"required"`
	PurchasePrice decimal.Decimal `json:"purchasePrice" validate:"gte=0"`
	SalesPrice    decimal.Decimal `json:"salesPrice" validate:"gte=0"`
	GSTRate       decimal.Decimal `json:"gstRate" validate:"gte=0,lte=28"`
}

// Request validates the draft and converts it into a create request.
// Required text fields must be non-blank. Numeric text is coerced rather than
// rejected: only the leading number counts. Prices with no leading number
// become 0 and a GST rate with no leading number becomes 18. The coerced
// values must then satisfy the range rules.
func (d Draft) Request() (CreateRequest, error) {
	trimmed := Draft{
		Name:          strings.TrimSpace(d.Name),
		Category:      strings.TrimSpace(d.Category),
		Brand:         strings.TrimSpace(d.Brand),
		HSN:           strings.TrimSpace(d.HSN),
		Warranty:      strings.TrimSpace(d.Warranty),
		PurchasePrice: strings.TrimSpace(d.PurchasePrice),
		SalesPrice:    strings.TrimSpace(d.SalesPrice),
		GSTRate:       strings.TrimSpace(d.GSTRate),
	}
	if err := validation.Struct(trimmed); err != nil {
		return CreateRequest{}, err
	}

	req := CreateRequest{
		Name:          trimmed.Name,
		Category:      trimmed.Category,
		Brand:         trimmed.Brand,
		HSN:           trimmed.HSN,
		Warranty:      trimmed.Warranty,
		PurchasePrice: Coerce(trimmed.PurchasePrice, DefaultPrice),
		SalesPrice:    Coerce(trimmed.SalesPrice, DefaultPrice),
		GSTRate:       Coerce(trimmed.GSTRate, DefaultGSTRate),
	}
	if err := validation.Struct(req); err != nil {
		return CreateRequest{}, err
	}
	return req, nil
}

// numericPrefix matches the longest leading decimal number, exponent included.
var numericPrefix = regexp.MustCompile(`^([+-]?)(\d*)(?:\.(\d*))?(?:[eE]([+-]?\d+))?`)

// Coerce parses the leading decimal number of s, ignoring any trailing text
// ("99.5 INR" is 99.5, "1,200" is 1). It returns def when s has no leading
// number.
func Coerce(s string, def decimal.Decimal) decimal.Decimal {
	m := numericPrefix.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || m[2] == "" && m[3] == "" {
		return def
	}
	intPart, frac := m[2], m[3]
	if intPart == "" {
		intPart = "0"
	}
	num := intPart
	if m[1] == "-" {
		num = "-" + num
	}
	if frac != "" {
		num += "." + frac
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return def
	}
	if m[4] != "" {
		exp, err := strconv.ParseInt(m[4], 10, 32)
		if err != nil {
			return def
		}
		d = d.Shift(int32(exp))
	}
	return d
}
