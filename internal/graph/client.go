package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"invoice-dashboard-go/internal/config"
)

const (
	defaultBaseURL = "https://graph.microsoft.com/v1.0"
	graphScope     = "https://graph.microsoft.com/.default"

	deltaSelect = "subject,from,receivedDateTime,body,internetMessageId"

	requestTimeout = 30 * time.Second
)

// Client talks to the Microsoft Graph mail API using the application
// (client-credentials) flow
type Client struct {
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
	baseURL     string
}

// NewClient creates a Graph client from the tenant/app/secret triple
func NewClient(cfg config.GraphConfig) *Client {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(cfg.TenantID)),
		Scopes:       []string{graphScope},
	}

	base := &http.Client{Timeout: requestTimeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := cc.TokenSource(ctx)

	// oauth2.NewClient only carries over the base transport, not the base
	// client's Timeout, so set it again on the wrapping client. Without it a
	// hung delta fetch would stall the cycle indefinitely.
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = requestTimeout

	return &Client{
		tokenSource: ts,
		httpClient:  httpClient,
		baseURL:     defaultBaseURL,
	}
}

// Token acquires (or returns the cached) bearer credential. Called at the
// start of each poll cycle so a credential failure aborts the cycle before
// any state is touched.
func (c *Client) Token(ctx context.Context) error {
	if _, err := c.tokenSource.Token(); err != nil {
		return fmt.Errorf("failed to acquire Graph token: %w", err)
	}
	return nil
}

// Message is one changed message in a delta page
type Message struct {
	Subject           string    `json:"subject"`
	From              Recipient `json:"from"`
	ReceivedDateTime  time.Time `json:"receivedDateTime"`
	Body              ItemBody  `json:"body"`
	InternetMessageID string    `json:"internetMessageId"`
}

// ItemBody is a message body with its declared content type
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Recipient wraps a Graph email address
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// EmailAddress is a bare address with an optional display name
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// DeltaPage is one page of a mailbox delta sync. Exactly one of NextLink and
// DeltaLink is set: NextLink means more pages are pending, DeltaLink means
// the sync is caught up and the link is the next cycle's resumption cursor.
type DeltaPage struct {
	Messages  []Message `json:"value"`
	NextLink  string    `json:"@odata.nextLink"`
	DeltaLink string    `json:"@odata.deltaLink"`
}

// HasMore reports whether another page must be fetched before the sync is
// complete
func (p *DeltaPage) HasMore() bool {
	return p.NextLink != ""
}

// InitialDeltaURL builds the fresh initial-sync request for a mailbox's
// inbox, selecting only the fields the poller needs
func (c *Client) InitialDeltaURL(mailbox string) string {
	return fmt.Sprintf("%s/users/%s/mailFolders('Inbox')/messages/delta?%s",
		c.baseURL,
		url.PathEscape(mailbox),
		url.Values{"$select": []string{deltaSelect}}.Encode(),
	)
}

// ValidDeltaURL reports whether a stored continuation token can be used as a
// request target. Anything unparseable falls back to the initial sync.
func ValidDeltaURL(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

// FetchDeltaPage fetches one page of mailbox changes from the given request
// URL (either the initial sync URL, a stored delta link, or a previous
// page's next link)
func (c *Client) FetchDeltaPage(ctx context.Context, pageURL string) (*DeltaPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build delta request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("delta request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("graph delta failed %d: %s", resp.StatusCode, string(body))
	}

	var page DeltaPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode delta page: %w", err)
	}
	return &page, nil
}

// FileAttachment is a base64-encoded outbound attachment
type FileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// OutboundMessage is the Graph sendMail message payload
type OutboundMessage struct {
	Subject       string           `json:"subject"`
	Body          ItemBody         `json:"body"`
	ToRecipients  []Recipient      `json:"toRecipients"`
	CcRecipients  []Recipient      `json:"ccRecipients"`
	BccRecipients []Recipient      `json:"bccRecipients"`
	Attachments   []FileAttachment `json:"attachments"`
}

// ParseRecipients splits a `;` or `,` separated address list into Graph
// recipients
func ParseRecipients(list string) []Recipient {
	var out []Recipient
	for _, s := range strings.FieldsFunc(list, func(r rune) bool { return r == ';' || r == ',' }) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, Recipient{EmailAddress: EmailAddress{Address: s}})
	}
	return out
}

// SendError carries the status Graph returned for a failed send so the
// handler can relay it
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("graph sendMail failed %d: %s", e.StatusCode, e.Body)
}

// SendMail sends a message from the given mailbox, saving it to Sent Items
func (c *Client) SendMail(ctx context.Context, from string, msg OutboundMessage) error {
	payload := struct {
		Message         OutboundMessage `json:"message"`
		SaveToSentItems bool            `json:"saveToSentItems"`
	}{Message: msg, SaveToSentItems: true}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sendMail payload: %w", err)
	}

	sendURL := fmt.Sprintf("%s/users/%s/sendMail", c.baseURL, url.PathEscape(from))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sendMail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendMail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &SendError{StatusCode: resp.StatusCode, Body: string(text)}
	}
	return nil
}
