// Package partyform implements the party record editor: loading an existing
// party in edit mode, tag management, validation and create/update submission.
package partyform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yashgupta8707/jubilant-system/internal/api"
	"github.com/yashgupta8707/jubilant-system/internal/domain/party"
	"github.com/yashgupta8707/jubilant-system/internal/metrics"
	"github.com/yashgupta8707/jubilant-system/internal/route"
	"github.com/yashgupta8707/jubilant-system/internal/validation"
)

// Field names accepted by SetField
const (
	FieldName         = "name"
	FieldPhone        = "phone"
	FieldAddress      = "address"
	FieldEmail        = "email"
	FieldSource       = "source"
	FieldPriority     = "priority"
	FieldRequirements = "requirements"
	FieldDealStatus   = "dealStatus"
	FieldComment      = "comment"
)

// KeyEnter is the key that adds the pending tag input
const KeyEnter = "Enter"

const (
	msgLoadFailed = "Failed to load client data"
	msgSaveFailed = "Failed to save client. Please try again."
)

// Mode tells whether the form creates a new party or edits an existing one
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

var (
	// ErrFormDisabled is returned for edits while the form is loading or failed to load
	ErrFormDisabled = errors.New("partyform: form is not usable")
	// ErrSubmitInProgress is returned while a submission is outstanding
	ErrSubmitInProgress = errors.New("partyform: submission in progress")
	// ErrUnknownField is returned by SetField for an unknown field name
	ErrUnknownField = errors.New("partyform: unknown field")
)

// PartyAPI is the party collaborator of the form
type PartyAPI interface {
	Get(ctx context.Context, id string) (party.Record, error)
	Create(ctx context.Context, req party.CreateRequest) (party.Record, error)
	Update(ctx context.Context, id string, req party.UpdateRequest) (party.Record, error)
}

// Options configures a Form
type Options struct {
	// ID selects edit mode when non-empty.
	ID      string
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Fields holds the editable scalar fields. Comment is sent as the change
// comment in edit mode and as the initial comment in create mode.
type Fields struct {
	Name         string
	Phone        string
	Address      string
	Email        string
	Source       party.LeadSource
	Priority     party.Priority
	Requirements string
	DealStatus   party.DealStatus
	Comment      string
}

func defaultFields() Fields {
	return Fields{
		Source:     party.DefaultSource,
		Priority:   party.DefaultPriority,
		DealStatus: party.DefaultDealStatus,
	}
}

// State is a snapshot of the form
type State struct {
	Mode       Mode
	ID         string
	Fields     Fields
	Tags       []string
	TagInput   string
	Loading    bool
	Usable     bool
	Submitting bool
	// Validated is set once a submission was blocked by validation.
	Validated   bool
	FieldErrors []validation.FieldError
	Error       string
	Saved       *party.Record
}

// Form is the party record editor.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Form struct {
	api     PartyAPI
	nav     route.Navigator
	logger  *zap.Logger
	metrics *metrics.Metrics
	id      string

	mu          sync.Mutex
	fields      Fields
	tags        party.TagSet
	tagInput    string
	loading     bool
	loadFailed  bool
	submitting  bool
	validated   bool
	fieldErrors []validation.FieldError
	errMsg      string
	saved       *party.Record
}

// New creates a form. With opts.ID set the form starts in edit mode and
// stays disabled until Load succeeds.
func New(partyAPI PartyAPI, nav route.Navigator, opts Options) *Form {
	if nav == nil {
		nav = route.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{
		api:     partyAPI,
		nav:     nav,
		logger:  logger.Named("partyform"),
		metrics: opts.Metrics,
		id:      opts.ID,
		fields:  defaultFields(),
		tags:    party.NewTagSet(),
		loading: opts.ID != "",
	}
}

// Mode reports whether the form creates or edits
func (f *Form) Mode() Mode {
	if f.id == "" {
		return ModeCreate
	}
	return ModeEdit
}

// Load fetches the record in edit mode and fills the fields, applying the
// classification defaults for missing values. A failed fetch leaves the form
// unusable. Load is a no-op in create mode.
func (f *Form) Load(ctx context.Context) error {
	if f.id == "" {
		return nil
	}

	rec, err := f.api.Get(ctx, f.id)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		f.loadFailed = true
		f.errMsg = msgLoadFailed
		f.logger.Error("failed to load party", zap.String("id", f.id), zap.Error(err))
		return fmt.Errorf("partyform: load %s: %w", f.id, err)
	}

	rec = rec.WithDefaults()
	f.loadFailed = false
	f.errMsg = ""
	f.fields = Fields{
		Name:         rec.Name,
		Phone:        rec.Phone,
		Address:      rec.Address,
		Email:        rec.Email,
		Source:       rec.Source,
		Priority:     rec.Priority,
		Requirements: rec.Requirements,
		DealStatus:   rec.DealStatus,
	}
	f.tags = rec.Tags
	f.logger.Debug("party loaded", zap.String("id", f.id), zap.Int("tags", rec.Tags.Len()))
	return nil
}

// SetField assigns a field by name. Enumerated fields must hold a known
// value; an empty value selects the default.
func (f *Form) SetField(field, value string) error {
	return f.edit(func() error {
		switch field {
		case FieldName:
			f.fields.Name = value
		case FieldPhone:
			f.fields.Phone = value
		case FieldAddress:
			f.fields.Address = value
		case FieldEmail:
			f.fields.Email = value
		case FieldRequirements:
			f.fields.Requirements = value
		case FieldComment:
			f.fields.Comment = value
		case FieldSource:
			v, err := party.ParseLeadSource(value)
			if err != nil {
				return err
			}
			f.fields.Source = v
		case FieldPriority:
			v, err := party.ParsePriority(value)
			if err != nil {
				return err
			}
			f.fields.Priority = v
		case FieldDealStatus:
			v, err := party.ParseDealStatus(value)
			if err != nil {
				return err
			}
			f.fields.DealStatus = v
		default:
			return fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		return nil
	})
}

func (f *Form) SetName(v string) error    { return f.SetField(FieldName, v) }
func (f *Form) SetPhone(v string) error   { return f.SetField(FieldPhone, v) }
func (f *Form) SetAddress(v string) error { return f.SetField(FieldAddress, v) }
func (f *Form) SetEmail(v string) error   { return f.SetField(FieldEmail, v) }
func (f *Form) SetComment(v string) error { return f.SetField(FieldComment, v) }

// SetTagInput replaces the pending tag text
func (f *Form) SetTagInput(v string) error {
	return f.edit(func() error {
		f.tagInput = v
		return nil
	})
}

// AddTag appends the trimmed tag input unless it is blank or already
// present, and reports whether a tag was added. The input is cleared only
// when the tag is added.
func (f *Form) AddTag() (bool, error) {
	var added bool
	err := f.edit(func() error {
		if added = f.tags.Add(f.tagInput); added {
			f.tagInput = ""
		}
		return nil
	})
	return added, err
}

// HandleKey processes a key press in the tag input. Enter adds the tag;
// other keys are ignored. It reports whether the key was handled.
func (f *Form) HandleKey(key string) (bool, error) {
	if key != KeyEnter {
		return false, nil
	}
	if _, err := f.AddTag(); err != nil {
		return true, err
	}
	return true, nil
}

// RemoveTag removes tag and reports whether it was present
func (f *Form) RemoveTag(tag string) (bool, error) {
	var removed bool
	err := f.edit(func() error {
		removed = f.tags.Remove(tag)
		return nil
	})
	return removed, err
}

// Validate checks the required fields, the email format and the
// enumerations. On failure the form enters the validation-error state.
func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *Form) validateLocked() error {
	var err error
	if f.id == "" {
		err = validation.Struct(f.createRequestLocked())
	} else {
		req := f.updateRequestLocked()
		req.Name = strings.TrimSpace(req.Name)
		req.Phone = strings.TrimSpace(req.Phone)
		req.Address = strings.TrimSpace(req.Address)
		req.Email = strings.TrimSpace(req.Email)
		err = validation.Struct(req)
	}
	if err != nil {
		f.validated = true
		f.fieldErrors = validation.Fields(err)
		return err
	}
	f.fieldErrors = nil
	return nil
}

// Submit validates and sends the record. Edit mode sends the full field set
// to the update endpoint; create mode sends the cleaned record to the create
// endpoint. Success navigates to the party listing.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInProgress
	}
	if !f.usableLocked() {
		f.mu.Unlock()
		return ErrFormDisabled
	}
	if err := f.validateLocked(); err != nil {
		f.mu.Unlock()
		f.logger.Debug("submission blocked by validation", zap.Error(err))
		return err
	}
	f.submitting = true
	f.errMsg = ""
	edit := f.id != ""
	createReq := f.createRequestLocked()
	updateReq := f.updateRequestLocked()
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	var (
		rec party.Record
		err error
	)
	if edit {
		rec, err = f.api.Update(ctx, f.id, updateReq)
	} else {
		rec, err = f.api.Create(ctx, createReq)
	}
	if err != nil {
		msg := api.DisplayMessage(err, msgSaveFailed)
		f.mu.Lock()
		f.errMsg = msg
		f.mu.Unlock()
		f.logger.Warn("failed to save party",
			zap.String("mode", string(f.Mode())),
			zap.String("id", f.id),
			zap.Error(err),
		)
		f.metrics.Submission("party", "failure")
		return err
	}

	f.mu.Lock()
	f.saved = &rec
	f.mu.Unlock()
	f.logger.Info("party saved", zap.String("mode", string(f.Mode())), zap.String("id", rec.ID))
	f.metrics.Submission("party", "success")
	f.nav.Navigate(route.Parties)
	return nil
}

// DismissError clears the displayed error message
func (f *Form) DismissError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usableLocked() {
		f.errMsg = ""
	}
}

// State returns a snapshot of the form
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	var saved *party.Record
	if f.saved != nil {
		rec := *f.saved
		saved = &rec
	}
	return State{
		Mode:        f.Mode(),
		ID:          f.id,
		Fields:      f.fields,
		Tags:        f.tags.Values(),
		TagInput:    f.tagInput,
		Loading:     f.loading,
		Usable:      f.usableLocked(),
		Submitting:  f.submitting,
		Validated:   f.validated,
		FieldErrors: append([]validation.FieldError(nil), f.fieldErrors...),
		Error:       f.errMsg,
		Saved:       saved,
	}
}

func (f *Form) usableLocked() bool {
	return !f.loading && !f.loadFailed
}

// edit runs fn under the lock if the form accepts input
func (f *Form) edit(fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.usableLocked() {
		return ErrFormDisabled
	}
	if f.submitting {
		return ErrSubmitInProgress
	}
	return fn()
}

func (f *Form) createRequestLocked() party.CreateRequest {
	return party.CreateRequest{
		Name:           f.fields.Name,
		Phone:          f.fields.Phone,
		Address:        f.fields.Address,
		Email:          f.fields.Email,
		Source:         f.fields.Source,
		Priority:       f.fields.Priority,
		Requirements:   f.fields.Requirements,
		DealStatus:     f.fields.DealStatus,
		Tags:           f.tags,
		InitialComment: f.fields.Comment,
	}.Clean()
}

func (f *Form) updateRequestLocked() party.UpdateRequest {
	return party.UpdateRequest{
		Name:          f.fields.Name,
		Phone:         f.fields.Phone,
		Address:       f.fields.Address,
		Email:         f.fields.Email,
		Source:        f.fields.Source,
		Priority:      f.fields.Priority,
		Requirements:  f.fields.Requirements,
		DealStatus:    f.fields.DealStatus,
		Tags:          f.tags.Clone(),
		ChangeComment: strings.TrimSpace(f.fields.Comment),
	}
}
