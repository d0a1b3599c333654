package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"invoice-dashboard-go/internal/graph"
)

// fakeStore implements Store in memory, mirroring the unique message_id
// semantics of the note table
type fakeStore struct {
	cursor      string
	cursorSaves []string
	loadErr     error

	notesByMessageID map[string]uint
	insertErr        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{notesByMessageID: map[string]uint{}}
}

func (s *fakeStore) LoadDeltaLink(mailbox string) (string, error) {
	return s.cursor, s.loadErr
}

func (s *fakeStore) SaveDeltaLink(mailbox, link string) error {
	s.cursor = link
	s.cursorSaves = append(s.cursorSaves, link)
	return nil
}

func (s *fakeStore) InsertReplyNote(invoiceID uint, text string, date time.Time, messageID string) (bool, error) {
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if _, exists := s.notesByMessageID[messageID]; exists {
		return false, nil
	}
	s.notesByMessageID[messageID] = invoiceID
	return true, nil
}

// fakeClient serves a scripted sequence of delta pages keyed by request URL
type fakeClient struct {
	pages     map[string]*graph.DeltaPage
	requested []string
	tokenErr  error
	fetchErr  error
}

func (c *fakeClient) Token(ctx context.Context) error {
	return c.tokenErr
}

func (c *fakeClient) InitialDeltaURL(mailbox string) string {
	return "https://graph.test/delta/initial"
}

func (c *fakeClient) FetchDeltaPage(ctx context.Context, pageURL string) (*graph.DeltaPage, error) {
	c.requested = append(c.requested, pageURL)
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	page, ok := c.pages[pageURL]
	if !ok {
		return nil, errors.New("unexpected page URL: " + pageURL)
	}
	return page, nil
}

func message(subject, messageID string) graph.Message {
	return graph.Message{
		Subject:           subject,
		Body:              graph.ItemBody{ContentType: "text", Content: "reply body"},
		InternetMessageID: messageID,
	}
}

func TestIdempotentIngestion(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{pages: map[string]*graph.DeltaPage{
		"https://graph.test/delta/initial": {
			Messages:  []graph.Message{message("RE: [#INV:101]", "msg-1")},
			DeltaLink: "https://graph.test/delta/token-1",
		},
		"https://graph.test/delta/token-1": {
			Messages:  []graph.Message{message("RE: [#INV:101]", "msg-1")},
			DeltaLink: "https://graph.test/delta/token-2",
		},
	}}

	p := New("ap@example.com", client, store, nil)

	// Same remote message delivered in two consecutive cycles yields one note
	assert.NoError(t, p.RunCycle(context.Background()))
	assert.NoError(t, p.RunCycle(context.Background()))
	assert.Len(t, store.notesByMessageID, 1)
	assert.Equal(t, uint(101), store.notesByMessageID["msg-1"])
}

func TestCursorAdvancesOnlyAtCompletion(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{pages: map[string]*graph.DeltaPage{
		"https://graph.test/delta/initial": {
			Messages: []graph.Message{message("RE: [#INV:1]", "m1")},
			NextLink: "https://graph.test/delta/page2",
		},
		"https://graph.test/delta/page2": {
			Messages: []graph.Message{message("RE: [#INV:2]", "m2")},
			NextLink: "https://graph.test/delta/page3",
		},
		"https://graph.test/delta/page3": {
			Messages:  []graph.Message{message("RE: [#INV:3]", "m3")},
			DeltaLink: "https://graph.test/delta/done",
		},
	}}

	p := New("ap@example.com", client, store, nil)
	assert.NoError(t, p.RunCycle(context.Background()))

	// Exactly one cursor write, after the final page, holding its delta link
	assert.Equal(t, []string{"https://graph.test/delta/done"}, store.cursorSaves)
	assert.Len(t, store.notesByMessageID, 3)
}

func TestCursorUnchangedOnMidPaginationFailure(t *testing.T) {
	store := newFakeStore()
	store.cursor = "https://graph.test/delta/committed"
	client := &fakeClient{pages: map[string]*graph.DeltaPage{
		"https://graph.test/delta/committed": {
			Messages: []graph.Message{message("RE: [#INV:1]", "m1")},
			NextLink: "https://graph.test/delta/missing",
		},
	}}

	p := New("ap@example.com", client, store, nil)
	err := p.RunCycle(context.Background())
	assert.Error(t, err)

	// The failed cycle inserted m1 but never touched the cursor; the next
	// tick resumes from the committed value and re-derives the same state.
	assert.Empty(t, store.cursorSaves)
	assert.Equal(t, "https://graph.test/delta/committed", store.cursor)
	assert.Len(t, store.notesByMessageID, 1)
}

func TestBadCursorFallsBackToInitialSync(t *testing.T) {
	store := newFakeStore()
	store.cursor = "not a url at all"
	client := &fakeClient{pages: map[string]*graph.DeltaPage{
		"https://graph.test/delta/initial": {
			DeltaLink: "https://graph.test/delta/fresh",
		},
	}}

	p := New("ap@example.com", client, store, nil)
	assert.NoError(t, p.RunCycle(context.Background()))

	assert.Equal(t, []string{"https://graph.test/delta/initial"}, client.requested)
	assert.Equal(t, "https://graph.test/delta/fresh", store.cursor)
}

func TestUncorrelatedMessagesAreSkipped(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{pages: map[string]*graph.DeltaPage{
		"https://graph.test/delta/initial": {
			Messages: []graph.Message{
				message("newsletter of the week", "m1"),
				message("RE: [#INV:55]", "m2"),
				message("out of office", "m3"),
			},
			DeltaLink: "https://graph.test/delta/done",
		},
	}}

	p := New("ap@example.com", client, store, nil)
	assert.NoError(t, p.RunCycle(context.Background()))

	assert.Len(t, store.notesByMessageID, 1)
	assert.Equal(t, uint(55), store.notesByMessageID["m2"])
}

func TestCredentialFailureAbortsBeforeAnyFetch(t *testing.T) {
	store := newFakeStore()
	store.cursor = "https://graph.test/delta/committed"
	client := &fakeClient{tokenErr: errors.New("invalid_client")}

	p := New("ap@example.com", client, store, nil)
	err := p.RunCycle(context.Background())
	assert.Error(t, err)

	assert.Empty(t, client.requested)
	assert.Empty(t, store.cursorSaves)
}

func TestInsertFailureDoesNotAbortCycle(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("foreign key violation")
	client := &fakeClient{pages: map[string]*graph.DeltaPage{
		"https://graph.test/delta/initial": {
			Messages:  []graph.Message{message("RE: [#INV:404]", "m1")},
			DeltaLink: "https://graph.test/delta/done",
		},
	}}

	p := New("ap@example.com", client, store, nil)
	assert.NoError(t, p.RunCycle(context.Background()))
	assert.Equal(t, "https://graph.test/delta/done", store.cursor)
}

func TestHTMLBodyIsNormalized(t *testing.T) {
	store := newFakeStore()
	htmlMsg := graph.Message{
		Subject:           "RE: [#INV:7]",
		Body:              graph.ItemBody{ContentType: "html", Content: "<p>Approved</p><br/>Thanks"},
		InternetMessageID: "m-html",
	}
	var storedText string
	client := &fakeClient{pages: map[string]*graph.DeltaPage{
		"https://graph.test/delta/initial": {
			Messages:  []graph.Message{htmlMsg},
			DeltaLink: "https://graph.test/delta/done",
		},
	}}

	recorder := &recordingStore{fakeStore: store, text: &storedText}
	p := New("ap@example.com", client, recorder, nil)
	assert.NoError(t, p.RunCycle(context.Background()))

	assert.Contains(t, storedText, "Approved")
	assert.Contains(t, storedText, "Thanks")
	assert.NotContains(t, storedText, "<p>")
}

// recordingStore captures the inserted note text
type recordingStore struct {
	*fakeStore
	text *string
}

func (s *recordingStore) InsertReplyNote(invoiceID uint, text string, date time.Time, messageID string) (bool, error) {
	*s.text = text
	return s.fakeStore.InsertReplyNote(invoiceID, text, date, messageID)
}
