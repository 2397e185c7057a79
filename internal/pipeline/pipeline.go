package pipeline

import (
	"context"
	"strings"
	"time"

	"dhc-casetracker/internal/database"
	"dhc-casetracker/internal/fetch"
	"dhc-casetracker/internal/scrape"
	"dhc-casetracker/internal/search"
	"dhc-casetracker/pkg/logger"
)

// Stage names the pipeline states. A run walks them in order; any stage can
// transition to failed, and both terminal outcomes write exactly one query
// log row.
type Stage string

const (
	StageValidating Stage = "validating"
	StageFetching   Stage = "fetching"
	StageParsing    Stage = "parsing"
	StageResolving  Stage = "resolving_documents"
	StagePersisting Stage = "persisting"
	StageDone       Stage = "done"
)

// Fetcher retrieves raw court HTML for a query.
type Fetcher interface {
	Fetch(ctx context.Context, query search.Query) (*fetch.Result, error)
}

// Resolver downloads and validates document binaries.
type Resolver interface {
	Resolve(ctx context.Context, caseDir string, links []scrape.DocumentLink) []scrape.Resolved
}

// Observer receives pipeline telemetry. Satisfied by metrics.Metrics.
type Observer interface {
	ObservePipeline(state string, d time.Duration)
	ObserveFetch(via string)
}

// Outcome is the terminal result of one pipeline run.
type Outcome struct {
	Query       search.Query
	FieldErrors []search.FieldError
	CaseID      uint
	Case        *database.Case
	Documents   []database.Document
	FailedDocs  int
	FetchVia    string
	FailedStage Stage
	Err         error
}

// Success reports whether the run reached Done.
func (o *Outcome) Success() bool { return o.Err == nil && len(o.FieldErrors) == 0 }

// Partial reports whether the case was stored but some documents could not
// be fetched.
func (o *Outcome) Partial() bool { return o.Success() && o.FailedDocs > 0 }

// Pipeline runs one synchronous scrape-and-normalize pass per user search.
// Runs are self-contained; concurrent requests each check out their own
// fetch session.
type Pipeline struct {
	fetcher          Fetcher
	parser           *scrape.Parser
	resolver         Resolver
	store            *database.Store
	log              *logger.Logger
	obs              Observer
	downloadOnSearch bool
}

// New assembles a pipeline. resolver may be nil when documents are only
// fetched on demand; obs may be nil.
func New(fetcher Fetcher, parser *scrape.Parser, resolver Resolver, store *database.Store, log *logger.Logger, obs Observer, downloadOnSearch bool) *Pipeline {
	return &Pipeline{
		fetcher:          fetcher,
		parser:           parser,
		resolver:         resolver,
		store:            store,
		log:              log,
		obs:              obs,
		downloadOnSearch: downloadOnSearch,
	}
}

// Run executes Validating → Fetching → Parsing → ResolvingDocuments →
// Persisting for one raw form submission. Every invocation, successful or
// not, appends exactly one query log row.
func (p *Pipeline) Run(ctx context.Context, caseType, caseNumber, filingYear, clientIP string) *Outcome {
	start := time.Now()

	queryLog := &database.QueryLog{
		CaseType:   strings.TrimSpace(caseType),
		CaseNumber: strings.TrimSpace(caseNumber),
		IPAddress:  clientIP,
	}

	outcome := p.run(ctx, caseType, caseNumber, filingYear, queryLog)

	queryLog.DurationMs = time.Since(start).Milliseconds()
	queryLog.Success = outcome.Success()
	if !outcome.Success() {
		queryLog.ErrorMessage = p.errorMessage(outcome)
	}
	if err := p.store.LogQuery(queryLog); err != nil {
		// The audit row failed; nothing left to roll back, so log and move on.
		p.log.Error("failed to write query log", "error", err)
	}

	state := string(StageDone)
	if !outcome.Success() {
		state = "failed_" + string(outcome.FailedStage)
	}
	if p.obs != nil {
		p.obs.ObservePipeline(state, time.Since(start))
	}

	return outcome
}

func (p *Pipeline) run(ctx context.Context, caseType, caseNumber, filingYear string, queryLog *database.QueryLog) *Outcome {
	outcome := &Outcome{FailedStage: StageValidating}

	// Validating
	query, fieldErrs := search.Parse(caseType, caseNumber, filingYear)
	if len(fieldErrs) > 0 {
		outcome.FieldErrors = fieldErrs
		return outcome
	}
	outcome.Query = query
	queryLog.CaseType = query.CaseType
	queryLog.CaseNumber = query.CaseNumber
	queryLog.FilingYear = query.FilingYear

	// Fetching
	outcome.FailedStage = StageFetching
	result, err := p.fetcher.Fetch(ctx, query)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.FetchVia = result.Via
	queryLog.FetchVia = result.Via
	queryLog.RawResponse = result.HTML
	if p.obs != nil {
		p.obs.ObserveFetch(result.Via)
	}

	// Parsing
	outcome.FailedStage = StageParsing
	details, links, err := p.parser.Parse(result.HTML, query)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	// ResolvingDocuments
	outcome.FailedStage = StageResolving
	docs := p.resolveDocuments(ctx, query, links, outcome)

	// Persisting
	outcome.FailedStage = StagePersisting
	caseRecord := toCaseRecord(query, details)
	caseID, err := p.store.UpsertCase(caseRecord, docs)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.CaseID = caseID
	outcome.Case = caseRecord
	outcome.Documents = docs
	outcome.FailedStage = ""

	p.log.Info("case search completed",
		"case", query.Key(),
		"case_id", caseID,
		"documents", len(docs),
		"failed_documents", outcome.FailedDocs,
		"via", result.Via,
	)
	return outcome
}

// resolveDocuments maps discovered links to document rows, optionally
// downloading the binaries. A failed download keeps its row with an empty
// local path; it degrades the result instead of failing the case.
func (p *Pipeline) resolveDocuments(ctx context.Context, query search.Query, links []scrape.DocumentLink, outcome *Outcome) []database.Document {
	docs := make([]database.Document, 0, len(links))

	if !p.downloadOnSearch || p.resolver == nil {
		for _, link := range links {
			docs = append(docs, database.Document{
				DocumentType: link.Type,
				DocumentDate: link.Date,
				Description:  link.Description,
				SourceURL:    link.URL,
			})
		}
		return docs
	}

	caseDir := scrape.CaseDir(query.CaseType, query.CaseNumber, query.FilingYear)
	for _, resolved := range p.resolver.Resolve(ctx, caseDir, links) {
		doc := database.Document{
			DocumentType: resolved.Link.Type,
			DocumentDate: resolved.Link.Date,
			Description:  resolved.Link.Description,
			SourceURL:    resolved.Link.URL,
			LocalPath:    resolved.LocalPath,
			FileSize:     resolved.FileSize,
			Checksum:     resolved.Checksum,
		}
		if resolved.Err != nil {
			doc.FetchError = resolved.Err.Error()
			outcome.FailedDocs++
		}
		docs = append(docs, doc)
	}
	return docs
}

func toCaseRecord(query search.Query, details *scrape.CaseDetails) *database.Case {
	c := &database.Case{
		CaseType:    query.CaseType,
		CaseNumber:  query.CaseNumber,
		FilingYear:  query.FilingYear,
		FilingDate:  details.FilingDate,
		NextHearing: details.NextHearing,
		Status:      details.Status,
		Advocate:    details.Advocate,
		Bench:       details.Bench,
	}
	c.SetParties(details.Petitioners, details.Respondents)
	c.SetDetails(details.Extra)
	return c
}

func (p *Pipeline) errorMessage(outcome *Outcome) string {
	if len(outcome.FieldErrors) > 0 {
		msgs := make([]string, 0, len(outcome.FieldErrors))
		for _, fe := range outcome.FieldErrors {
			msgs = append(msgs, fe.Error())
		}
		return strings.Join(msgs, "; ")
	}
	if outcome.Err != nil {
		return outcome.Err.Error()
	}
	return ""
}
