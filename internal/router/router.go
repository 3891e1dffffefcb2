package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/noc-incidents/internal/docqa"
	"github.com/spec-kit/noc-incidents/internal/domain"
	"github.com/spec-kit/noc-incidents/internal/observability"
	"github.com/spec-kit/noc-incidents/internal/repository"
)

// Fixed replies.
const (
	MsgEmptyQuery       = "Please type a question."
	MsgAskTicketID      = "Please provide the ticket ID you want to look up."
	MsgTicketNotFound   = "Ticket not found."
	MsgStoreUnavailable = "Sorry, tickets cannot be looked up right now."
	MsgAskImageURL      = "Please provide a link to a PNG or JPEG image."
	MsgDocumentFailure  = "Sorry, I could not process that document right now. Please try again later."
	MsgHelp             = "I can look up a ticket (\"ticket <id>\") or answer a question about a document image (\"document <image url> <question>\")."
	MsgUnknown          = "Sorry, I did not understand that. Type \"help\" to see what I can do."
)

// DefaultQuestion is asked about an image when the query carries none.
const DefaultQuestion = "What is the invoice number?"

// TicketFinder is the read side of the ticket store.
type TicketFinder interface {
	Find(ctx context.Context, id string) (domain.Ticket, error)
}

// DocumentQA is the external document question-answering capability.
type DocumentQA interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
	Ask(ctx context.Context, image []byte, question string) (docqa.Answer, error)
}

// Response is the reply to one query.
type Response struct {
	Intent Intent         `json:"intent"`
	Text   string         `json:"text"`
	Ticket *domain.Ticket `json:"ticket,omitempty"`
	Answer *docqa.Answer  `json:"answer,omitempty"`
}

// Exchange is one query and its reply in the transcript.
type Exchange struct {
	Query    string    `json:"query"`
	Response Response  `json:"response"`
	At       time.Time `json:"at"`
}

// Options tunes a Router.
type Options struct {
	QATimeout       time.Duration
	DefaultQuestion string
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// Router answers queries and keeps the transcript of its session in memory.
// It is safe for concurrent use.
type Router struct {
	tickets  TicketFinder
	qa       DocumentQA
	timeout  time.Duration
	question string
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	history []Exchange
}

// New builds a router. qa may be nil, in which case document queries get the
// apology reply.
func New(tickets TicketFinder, qa DocumentQA, opts Options) *Router {
	if opts.QATimeout <= 0 {
		opts.QATimeout = 10 * time.Second
	}
	if opts.DefaultQuestion == "" {
		opts.DefaultQuestion = DefaultQuestion
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Router{
		tickets:  tickets,
		qa:       qa,
		timeout:  opts.QATimeout,
		question: opts.DefaultQuestion,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Route answers query and records the exchange. It never fails; every
// error becomes a user-facing reply.
func (r *Router) Route(ctx context.Context, query string) Response {
	var resp Response
	switch intent := DetectIntent(query); intent {
	case NoIntent:
		resp = Response{Intent: intent, Text: MsgEmptyQuery}
	case TicketLookup:
		resp = r.lookupTicket(ctx, query)
	case DocumentQuery:
		resp = r.queryDocument(ctx, query)
	case Help:
		resp = Response{Intent: intent, Text: MsgHelp}
	default:
		resp = Response{Intent: Unknown, Text: MsgUnknown}
	}

	r.mu.Lock()
	r.history = append(r.history, Exchange{Query: query, Response: resp, At: time.Now().UTC()})
	r.mu.Unlock()
	return resp
}

// History returns a copy of the transcript.
func (r *Router) History() []Exchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Exchange(nil), r.history...)
}

func (r *Router) lookupTicket(ctx context.Context, query string) Response {
	resp := Response{Intent: TicketLookup}
	id, ok := ExtractTicketID(query)
	if !ok {
		resp.Text = MsgAskTicketID
		return resp
	}
	if r.tickets == nil {
		resp.Text = MsgStoreUnavailable
		return resp
	}

	t, err := r.tickets.Find(ctx, id)
	switch {
	case errors.Is(err, repository.ErrTicketNotFound):
		resp.Text = MsgTicketNotFound
	case err != nil:
		r.logger.Error("ticket lookup failed", zap.String("ticket_id", id), zap.Error(err))
		resp.Text = MsgStoreUnavailable
	default:
		resp.Ticket = &t
		resp.Text = describeTicket(t)
	}
	return resp
}

func (r *Router) queryDocument(ctx context.Context, query string) Response {
	resp := Response{Intent: DocumentQuery}
	imageURL, ok := ExtractImageURL(query)
	if !ok {
		resp.Text = MsgAskImageURL
		return resp
	}
	if r.qa == nil {
		r.metrics.RecordDocQA("unavailable")
		resp.Text = MsgDocumentFailure
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	answer, err := r.askDocument(ctx, imageURL, QuestionFor(query, imageURL, r.question))
	if err != nil {
		r.metrics.RecordDocQA("failure")
		r.logger.Warn("document query failed", zap.String("url", imageURL), zap.Error(err))
		resp.Text = MsgDocumentFailure
		return resp
	}
	r.metrics.RecordDocQA("success")
	resp.Answer = &answer
	resp.Text = fmt.Sprintf("%s (confidence %.2f)", answer.Text, answer.Confidence)
	return resp
}

func (r *Router) askDocument(ctx context.Context, imageURL, question string) (docqa.Answer, error) {
	image, err := r.qa.FetchImage(ctx, imageURL)
	if err != nil {
		return docqa.Answer{}, err
	}
	return r.qa.Ask(ctx, image, question)
}

func describeTicket(t domain.Ticket) string {
	return fmt.Sprintf("Ticket %s: %s (severity %s, priority %s). %s Suggested solution: %s",
		t.TicketID, t.IssueType, t.Severity, t.Priority, t.Description, t.Solution)
}
