package partyform

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashgupta8707/jubilant-system/internal/api"
	"github.com/yashgupta8707/jubilant-system/internal/domain/party"
	"github.com/yashgupta8707/jubilant-system/internal/route"
	"github.com/yashgupta8707/jubilant-system/internal/validation"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

type fakeParties struct {
	mu      sync.Mutex
	record  party.Record
	getErr  error
	saveErr error
	block   chan struct{}

	creates []party.CreateRequest
	updates []party.UpdateRequest
}

func (f *fakeParties) Get(_ context.Context, id string) (party.Record, error) {
	if f.getErr != nil {
		return party.Record{}, f.getErr
	}
	rec := f.record
	rec.ID = id
	return rec, nil
}

func (f *fakeParties) Create(_ context.Context, req party.CreateRequest) (party.Record, error) {
	f.mu.Lock()
	f.creates = append(f.creates, req)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.saveErr != nil {
		return party.Record{}, f.saveErr
	}
	return party.Record{ID: "P-2000", Name: req.Name, Tags: req.Tags}, nil
}

func (f *fakeParties) Update(_ context.Context, id string, req party.UpdateRequest) (party.Record, error) {
	f.mu.Lock()
	f.updates = append(f.updates, req)
	f.mu.Unlock()
	if f.saveErr != nil {
		return party.Record{}, f.saveErr
	}
	return party.Record{ID: id, Name: req.Name, Tags: req.Tags}, nil
}

func (f *fakeParties) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.updates)
}

func payload(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func fillRequired(t *testing.T, f *Form) {
	t.Helper()
	require.NoError(t, f.SetName("  Acme Traders "))
	require.NoError(t, f.SetPhone("9876543210"))
	require.NoError(t, f.SetAddress("12 MG Road"))
}

func TestForm_EditRemovesTagAndUpdates(t *testing.T) {
	fake := &fakeParties{record: party.Record{
		Name: "Acme", Phone: "1", Address: "Pune",
		Tags: party.NewTagSet("VIP", "Urgent"),
	}}
	nav := &route.Recorder{}
	f := New(fake, nav, Options{ID: "P-1001"})

	s := f.State()
	assert.Equal(t, ModeEdit, s.Mode)
	assert.True(t, s.Loading)
	assert.False(t, s.Usable)
	assert.ErrorIs(t, f.SetName("x"), ErrFormDisabled)

	require.NoError(t, f.Load(context.Background()))
	s = f.State()
	assert.True(t, s.Usable)
	assert.Equal(t, []string{"VIP", "Urgent"}, s.Tags)
	assert.Equal(t, party.DefaultSource, s.Fields.Source)
	assert.Equal(t, party.DefaultPriority, s.Fields.Priority)
	assert.Equal(t, party.DefaultDealStatus, s.Fields.DealStatus)

	removed, err := f.RemoveTag("Urgent")
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, f.Submit(context.Background()))

	require.Len(t, fake.updates, 1)
	body := payload(t, fake.updates[0])
	assert.Equal(t, []any{"VIP"}, body["tags"])
	assert.NotContains(t, body, "changeComment")
	assert.Equal(t, []string{route.Parties}, nav.Paths())
}

func TestForm_EditSendsChangeComment(t *testing.T) {
	fake := &fakeParties{record: party.Record{Name: "Acme", Phone: "1", Address: "Pune", Email: "a@b.co"}}
	f := New(fake, nil, Options{ID: "P-1"})
	require.NoError(t, f.Load(context.Background()))
	require.NoError(t, f.SetComment(" moved to priority follow-up "))
	require.NoError(t, f.SetField(FieldPriority, "high"))

	require.NoError(t, f.Submit(context.Background()))
	require.Len(t, fake.updates, 1)
	body := payload(t, fake.updates[0])
	assert.Equal(t, "moved to priority follow-up", body["changeComment"])
	assert.Equal(t, "high", body["priority"])
	assert.Equal(t, "a@b.co", body["email"])
}

func TestForm_LoadFailure(t *testing.T) {
	fake := &fakeParties{getErr: &api.Error{StatusCode: 404}}
	f := New(fake, nil, Options{ID: "P-404"})

	require.Error(t, f.Load(context.Background()))
	s := f.State()
	assert.False(t, s.Loading)
	assert.False(t, s.Usable)
	assert.Equal(t, msgLoadFailed, s.Error)
	assert.ErrorIs(t, f.Submit(context.Background()), ErrFormDisabled)
	_, err := f.AddTag()
	assert.ErrorIs(t, err, ErrFormDisabled)
	assert.Zero(t, fake.calls())
}

func TestForm_CreateOmitsBlankEmail(t *testing.T) {
	fake := &fakeParties{}
	nav := &route.Recorder{}
	f := New(fake, nav, Options{})
	require.NoError(t, f.Load(context.Background()))
	fillRequired(t, f)
	require.NoError(t, f.SetEmail("   "))

	require.NoError(t, f.Submit(context.Background()))

	require.Len(t, fake.creates, 1)
	body := payload(t, fake.creates[0])
	assert.NotContains(t, body, "email")
	assert.NotContains(t, body, "initialComment")
	assert.Equal(t, "Acme Traders", body["name"])
	assert.Equal(t, "walk-in", body["source"])
	assert.Equal(t, "medium", body["priority"])
	assert.Equal(t, "in_progress", body["dealStatus"])
	assert.Equal(t, []any{}, body["tags"])
	assert.Equal(t, route.Parties, nav.Last())
	require.NotNil(t, f.State().Saved)
	assert.Equal(t, "P-2000", f.State().Saved.ID)
}

func TestForm_EmptyNameBlocksSubmission(t *testing.T) {
	fake := &fakeParties{}
	nav := &route.Recorder{}
	f := New(fake, nav, Options{})
	require.NoError(t, f.SetPhone("1"))
	require.NoError(t, f.SetAddress("a"))
	require.NoError(t, f.SetName("   "))

	err := f.Submit(context.Background())
	require.Error(t, err)

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("name"))
	assert.Zero(t, fake.calls())
	assert.Empty(t, nav.Paths())

	s := f.State()
	assert.True(t, s.Validated)
	assert.False(t, s.Submitting)
	require.NotEmpty(t, s.FieldErrors)
	assert.Equal(t, "name", s.FieldErrors[0].Field)
}

func TestForm_InvalidEmail(t *testing.T) {
	f := New(&fakeParties{}, nil, Options{})
	fillRequired(t, f)
	require.NoError(t, f.SetEmail("not-an-email"))

	err := f.Validate()
	require.Error(t, err)
	assert.Equal(t, []validation.FieldError{{Field: "email", Message: "Invalid email format"}}, validation.Fields(err))
}

func TestForm_Tags(t *testing.T) {
	f := New(&fakeParties{}, nil, Options{})

	require.NoError(t, f.SetTagInput("VIP"))
	added, err := f.AddTag()
	require.NoError(t, err)
	assert.True(t, added)
	assert.Empty(t, f.State().TagInput)

	require.NoError(t, f.SetTagInput(" VIP "))
	handled, err := f.HandleKey(KeyEnter)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, " VIP ", f.State().TagInput, "duplicate input is kept")

	require.NoError(t, f.SetTagInput("vip"))
	_, err = f.AddTag()
	require.NoError(t, err)

	require.NoError(t, f.SetTagInput("   "))
	added, err = f.AddTag()
	require.NoError(t, err)
	assert.False(t, added)

	handled, err = f.HandleKey("Tab")
	require.NoError(t, err)
	assert.False(t, handled)

	assert.Equal(t, []string{"VIP", "vip"}, f.State().Tags)
}

func TestForm_SubmitInProgress(t *testing.T) {
	fake := &fakeParties{block: make(chan struct{})}
	f := New(fake, nil, Options{})
	fillRequired(t, f)
	require.NoError(t, f.SetTagInput("VIP"))
	_, err := f.AddTag()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background()) }()
	require.Eventually(t, func() bool { return fake.calls() == 1 }, timeout, tick)

	assert.True(t, f.State().Submitting)
	assert.ErrorIs(t, f.Submit(context.Background()), ErrSubmitInProgress)
	_, err = f.RemoveTag("VIP")
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(fake.block)
	require.NoError(t, <-done)
	assert.False(t, f.State().Submitting)
	assert.Equal(t, 1, fake.calls())
}

func TestForm_SubmitFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &api.Error{StatusCode: 400, Message: "Phone already registered"}, "Phone already registered"},
		{
			"field errors",
			&api.Error{StatusCode: 422, Errors: []validation.FieldError{{Field: "phone", Message: "is invalid"}, {Field: "email", Message: "is taken"}}},
			"phone: is invalid, email: is taken",
		},
		{"unstructured response", &api.Error{StatusCode: 500}, msgSaveFailed},
		{"transport", fmt.Errorf("%w: dial tcp: connection refused", api.ErrTransport), "api: transport failure: dial tcp: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &route.Recorder{}
			f := New(&fakeParties{saveErr: tt.err}, nav, Options{})
			fillRequired(t, f)

			err := f.Submit(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)

			s := f.State()
			assert.Equal(t, tt.want, s.Error)
			assert.False(t, s.Submitting)
			assert.True(t, s.Usable)
			assert.Empty(t, nav.Paths())

			f.DismissError()
			assert.Empty(t, f.State().Error)
		})
	}
}

func TestForm_SetField(t *testing.T) {
	f := New(&fakeParties{}, nil, Options{})

	require.NoError(t, f.SetField(FieldSource, "referral"))
	require.NoError(t, f.SetField(FieldDealStatus, "won"))
	require.NoError(t, f.SetField(FieldPriority, ""))
	assert.Error(t, f.SetField(FieldPriority, "urgent"))
	assert.ErrorIs(t, f.SetField("fax", "1"), ErrUnknownField)

	s := f.State()
	assert.Equal(t, party.SourceReferral, s.Fields.Source)
	assert.Equal(t, party.DealWon, s.Fields.DealStatus)
	assert.Equal(t, party.PriorityMedium, s.Fields.Priority)
}
