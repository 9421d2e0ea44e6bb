package sections

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/composer"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/document"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/history"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/retrieval/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/sections/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/tracing"
)

// NoDocumentsMessage is the client-facing detail for an empty store.
const NoDocumentsMessage = "No documents available. Data file may not be loaded."

// timestampLayout renders UTC with microseconds; a literal Z is appended.
const timestampLayout = "2006-01-02T15:04:05.000000"

// DocumentSet is the read side of document.Store. Snapshot returns the
// documents together with the fingerprint of that same set.
type DocumentSet interface {
	Snapshot() ([]document.Document, string)
}

var _ DocumentSet = (*document.Store)(nil)

// Options carries the optional collaborators of a Service. Nil fields are
// skipped.
type Options struct {
	Cache    *cache.SectionCache
	Recorder analytics.Recorder
	Metrics  *metrics.Metrics
}

// Service handles generation and history lookups.
type Service struct {
	docs   DocumentSet
	engine *retrieval.Engine
	ledger *history.Ledger
	topK   int
	opts   Options
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewService wires a Service. topK bounds the documents per section.
func NewService(docs DocumentSet, engine *retrieval.Engine, ledger *history.Ledger, topK int, opts Options) *Service {
	return &Service{
		docs:   docs,
		engine: engine,
		ledger: ledger,
		topK:   topK,
		opts:   opts,
		logger: slog.Default().With("component", "section-service"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Generate builds a section for req and records it in the history. It fails
// with apperrors.ErrNoDocuments when no documents are loaded; an unknown
// company or section is not an error.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := s.now()
	docs, fingerprint := s.docs.Snapshot()
	if len(docs) == 0 {
		return nil, apperrors.New(apperrors.ErrNoDocuments, http.StatusServiceUnavailable, NoDocumentsMessage)
	}

	requestID := s.newID()
	ctx, span := tracing.Start(ctx, "generate_section", requestID)
	defer span.Log(ctx, s.logger)

	entry, cacheHit := s.build(ctx, docs, fingerprint, req)
	sources := slices.Clone(entry.Sources)
	if sources == nil {
		sources = []string{}
	}
	createdAt := s.now().UTC().Format(timestampLayout) + "Z"

	s.ledger.Append(history.Entry{
		RequestID:   requestID,
		CreatedAt:   createdAt,
		CompanyID:   req.CompanyID,
		SectionType: req.SectionType,
		Sources:     sources,
	})

	if m := s.opts.Metrics; m != nil {
		m.SectionsGenerated.WithLabelValues(entry.Tier).Inc()
		m.RetrievalCandidates.Observe(float64(entry.Candidates))
	}
	if s.opts.Recorder != nil {
		s.opts.Recorder.Record(ctx, analytics.GenerationEvent{
			RequestID:   requestID,
			CompanyID:   req.CompanyID,
			SectionType: req.SectionType,
			Tier:        entry.Tier,
			Candidates:  entry.Candidates,
			Sources:     sources,
			QueryWords:  len(tokenizer.Words(req.Text)),
			CacheHit:    cacheHit,
			LatencyMs:   s.now().Sub(start).Milliseconds(),
			Timestamp:   start.UTC(),
		})
	}

	logger.FromContext(ctx).Info("section generated",
		"generation_id", requestID,
		"company_id", req.CompanyID,
		"section_type", req.SectionType,
		"tier", entry.Tier,
		"sources", len(sources),
		"cache_hit", cacheHit,
	)

	return &GenerateResponse{
		CompanyID:     req.CompanyID,
		SectionType:   req.SectionType,
		GeneratedText: entry.GeneratedText,
		Sources:       sources,
		RequestID:     requestID,
		CreatedAt:     createdAt,
	}, nil
}

// History returns companyID's generations in request order, never nil.
func (s *Service) History(companyID string) []history.Entry {
	return s.ledger.ListByCompany(companyID)
}

// build runs retrieval and composition, through the cache when one is set.
func (s *Service) build(ctx context.Context, docs []document.Document, fingerprint string, req GenerateRequest) (*cache.Entry, bool) {
	compute := func() (*cache.Entry, error) {
		return s.compute(ctx, docs, req), nil
	}
	if s.opts.Cache == nil {
		entry, _ := compute()
		return entry, false
	}
	key := cache.Key{
		Fingerprint: fingerprint,
		CompanyID:   req.CompanyID,
		SectionType: req.SectionType,
		Query:       req.Text,
		TopK:        s.topK,
	}
	entry, hit, err := s.opts.Cache.GetOrCompute(ctx, key, compute)
	if err != nil {
		entry, _ = compute()
		return entry, false
	}
	return entry, hit
}

func (s *Service) compute(ctx context.Context, docs []document.Document, req GenerateRequest) *cache.Entry {
	rctx, rspan := tracing.StartChild(ctx, "retrieve")
	res := s.engine.Retrieve(rctx, docs, retrieval.Query{
		CompanyID:   req.CompanyID,
		SectionType: req.SectionType,
		Text:        req.Text,
		TopK:        s.topK,
	})
	rspan.SetAttr("tier", string(res.Tier))
	rspan.SetAttr("candidates", res.Candidates)
	rspan.SetAttr("selected", len(res.Docs))
	rspan.End()

	_, cspan := tracing.StartChild(ctx, "compose")
	text := composer.Compose(req.Text, res.Docs)
	cspan.End()

	return &cache.Entry{
		GeneratedText: text,
		Sources:       document.IDs(res.Docs),
		Tier:          string(res.Tier),
		Candidates:    res.Candidates,
	}
}
