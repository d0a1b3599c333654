package poller

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"invoice-dashboard-go/internal/graph"
	"invoice-dashboard-go/internal/metrics"
	"invoice-dashboard-go/internal/parser"
)

// MailClient is the slice of the Graph client the poller needs
type MailClient interface {
	Token(ctx context.Context) error
	InitialDeltaURL(mailbox string) string
	FetchDeltaPage(ctx context.Context, pageURL string) (*graph.DeltaPage, error)
}

// Store is the persistence surface the poller needs: the mailbox cursor and
// the idempotent reply-note insert
type Store interface {
	LoadDeltaLink(mailbox string) (string, error)
	SaveDeltaLink(mailbox, link string) error
	InsertReplyNote(invoiceID uint, text string, date time.Time, messageID string) (bool, error)
}

// Poller ingests invoice-correlated mailbox replies as notes. One cycle
// drains the mailbox's delta feed; the continuation cursor is only advanced
// once a page signals completion, so an aborted cycle resumes from the same
// safe point next tick.
type Poller struct {
	mailbox string
	client  MailClient
	store   Store
	metrics *metrics.Metrics
}

// New creates a poller for one monitored mailbox
func New(mailbox string, client MailClient, store Store, m *metrics.Metrics) *Poller {
	return &Poller{
		mailbox: mailbox,
		client:  client,
		store:   store,
		metrics: m,
	}
}

// Mailbox returns the monitored mailbox address
func (p *Poller) Mailbox() string {
	return p.mailbox
}

// RunCycle runs one full poll cycle. Any error aborts the cycle with the
// cursor left at its last committed value; the caller's schedule is the
// retry policy.
func (p *Poller) RunCycle(ctx context.Context) error {
	start := time.Now()
	if p.metrics != nil {
		p.metrics.PollCycles.Inc()
	}

	err := p.runCycle(ctx)

	if p.metrics != nil {
		p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			p.metrics.PollFailures.Inc()
		}
	}
	return err
}

func (p *Poller) runCycle(ctx context.Context) error {
	// Credential first: a failure here aborts before any state is touched.
	if err := p.client.Token(ctx); err != nil {
		return err
	}

	cursor, err := p.store.LoadDeltaLink(p.mailbox)
	if err != nil {
		return err
	}

	next := cursor
	if !graph.ValidDeltaURL(next) {
		if cursor != "" {
			logrus.Warnf("Stored cursor for %s is not a usable URL, falling back to initial sync", p.mailbox)
		}
		next = p.client.InitialDeltaURL(p.mailbox)
	}

	for next != "" {
		page, err := p.client.FetchDeltaPage(ctx, next)
		if err != nil {
			return err
		}

		p.processPage(page)

		if page.HasMore() {
			// More pages pending: keep the persisted cursor untouched so a
			// crash here restarts the same sync range.
			next = page.NextLink
			continue
		}

		if page.DeltaLink != "" {
			if err := p.store.SaveDeltaLink(p.mailbox, page.DeltaLink); err != nil {
				return err
			}
		}
		next = ""
	}

	return nil
}

// processPage correlates and persists the messages of one delta page. A
// failed insert is logged and skipped; the message id uniqueness makes the
// retry on the next cycle safe.
func (p *Poller) processPage(page *graph.DeltaPage) {
	today := time.Now()
	for _, m := range page.Messages {
		if p.metrics != nil {
			p.metrics.MessagesSeen.Inc()
		}

		invoiceID, ok := parser.ExtractInvoiceID(m.Subject)
		if !ok {
			// Not a correlated reply. Irrelevant, not an error.
			if p.metrics != nil {
				p.metrics.MessagesSkipped.Inc()
			}
			continue
		}

		text := parser.NormalizeBody(m.Body.Content, m.Body.ContentType)

		inserted, err := p.store.InsertReplyNote(invoiceID, text, today, m.InternetMessageID)
		if err != nil {
			logrus.Errorf("Failed to insert reply note for invoice %d: %v", invoiceID, err)
			continue
		}

		if p.metrics != nil {
			if inserted {
				p.metrics.RepliesIngested.Inc()
			} else {
				p.metrics.RepliesDuplicate.Inc()
			}
		}

		if inserted {
			logrus.Infof("Ingested reply %s as note on invoice %d", m.InternetMessageID, invoiceID)
		}
	}
}
