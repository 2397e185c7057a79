package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dhc-casetracker/internal/config"
	"dhc-casetracker/internal/database"
	"dhc-casetracker/internal/fetch"
	"dhc-casetracker/internal/pipeline"
	"dhc-casetracker/internal/scrape"
	"dhc-casetracker/internal/search"
	"dhc-casetracker/pkg/logger"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	pipeline *pipeline.Pipeline
	store    *database.Store
	resolver *scrape.Resolver
	logger   *logger.Logger
	cfg      *config.Config
	started  time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(p *pipeline.Pipeline, store *database.Store, resolver *scrape.Resolver, logger *logger.Logger, cfg *config.Config) *Handlers {
	return &Handlers{
		pipeline: p,
		store:    store,
		resolver: resolver,
		logger:   logger,
		cfg:      cfg,
		started:  time.Now(),
	}
}

// HomePage renders the search form.
func (h *Handlers) HomePage(c *gin.Context) {
	h.renderForm(c, http.StatusOK, nil, nil)
}

func (h *Handlers) renderForm(c *gin.Context, status int, fieldErrors []search.FieldError, messages []string) {
	errsByField := map[string]string{}
	for _, fe := range fieldErrors {
		errsByField[fe.Field] = fe.Message
	}
	c.HTML(status, "index.html", gin.H{
		"title":       "Court Case Search",
		"courtName":   h.cfg.CourtName,
		"caseTypes":   search.CaseTypes(),
		"years":       search.YearRange(),
		"fieldErrors": errsByField,
		"messages":    messages,
	})
}

// SearchCase handles the search form submission and runs the pipeline.
func (h *Handlers) SearchCase(c *gin.Context) {
	caseType := c.PostForm("case_type")
	caseNumber := c.PostForm("case_number")
	filingYear := c.PostForm("filing_year")

	outcome := h.pipeline.Run(c.Request.Context(), caseType, caseNumber, filingYear, c.ClientIP())

	if len(outcome.FieldErrors) > 0 {
		h.renderForm(c, http.StatusBadRequest, outcome.FieldErrors, nil)
		return
	}

	if outcome.Err != nil {
		h.renderPipelineError(c, outcome)
		return
	}

	caseRecord, err := h.store.GetCase(outcome.CaseID)
	if err != nil {
		h.logger.Error("failed to reload case after search", "case_id", outcome.CaseID, "error", err)
		caseRecord = outcome.Case
	}

	c.HTML(http.StatusOK, "case_details.html", gin.H{
		"title":      caseRecord.Title(),
		"case":       caseRecord,
		"partial":    outcome.Partial(),
		"failedDocs": outcome.FailedDocs,
		"fetchVia":   outcome.FetchVia,
	})
}

// renderPipelineError maps pipeline failures to friendly pages. Parse and
// no-record failures get suggestions; everything else gets a generic
// message without internals.
func (h *Handlers) renderPipelineError(c *gin.Context, outcome *pipeline.Outcome) {
	var fetchErr *fetch.Error
	var parseErr *scrape.ParseError
	var persistErr *database.PersistenceError

	switch {
	case errors.Is(outcome.Err, scrape.ErrNoRecords):
		h.renderForm(c, http.StatusNotFound, nil, []string{
			fmt.Sprintf("Case not found: %s. Please verify the details are correct.", outcome.Query.Key()),
			search.FormatTip(outcome.Query.CaseType),
			"You can also try different spacing or formats (with or without a prefix).",
		})
	case errors.As(outcome.Err, &fetchErr):
		c.HTML(http.StatusBadGateway, "error.html", gin.H{
			"title": "Court website unavailable",
			"error": fmt.Sprintf("Could not reach the court website (%s). Please try again in a few minutes.", fetchErr.Reason),
		})
	case errors.As(outcome.Err, &parseErr):
		c.HTML(http.StatusBadGateway, "error.html", gin.H{
			"title": "Unexpected court response",
			"error": "The court website returned a page we could not read. Please try again later.",
		})
	case errors.As(outcome.Err, &persistErr):
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"title": "Storage error",
			"error": "The case was fetched but could not be saved. Please try again.",
		})
	default:
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"title": "Search failed",
			"error": "An unexpected error occurred. Please try again.",
		})
	}
}

// ViewCase renders a stored case with its documents.
func (h *Handlers) ViewCase(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.HTML(http.StatusBadRequest, "error.html", gin.H{
			"title": "Invalid case",
			"error": "Invalid case ID",
		})
		return
	}

	caseRecord, err := h.store.GetCase(uint(id))
	if errors.Is(err, database.ErrNotFound) {
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"title": "Case not found",
			"error": "No stored case with that ID",
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to load case", "case_id", id, "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"title": "Error",
			"error": "Failed to load case",
		})
		return
	}

	c.HTML(http.StatusOK, "case_details.html", gin.H{
		"title": caseRecord.Title(),
		"case":  caseRecord,
	})
}

// DownloadDocument streams a stored PDF, fetching and validating it on
// first request.
func (h *Handlers) DownloadDocument(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.HTML(http.StatusBadRequest, "error.html", gin.H{
			"title": "Invalid document",
			"error": "Invalid document ID",
		})
		return
	}

	doc, err := h.store.GetDocument(uint(id))
	if errors.Is(err, database.ErrNotFound) {
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"title": "Document not found",
			"error": "No stored document with that ID",
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to load document", "document_id", id, "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"title": "Error",
			"error": "Failed to load document",
		})
		return
	}

	path, size, checksum, err := h.resolver.Ensure(c.Request.Context(), doc.SourceURL, doc.LocalPath, doc.Checksum, doc.ID)
	if err != nil {
		h.logger.Warn("document download failed", "document_id", doc.ID, "error", err)
		c.HTML(http.StatusBadGateway, "error.html", gin.H{
			"title": "Download failed",
			"error": "Unable to download the document from the court website. Please try again later.",
		})
		return
	}

	if err := h.store.UpdateDocumentFile(doc.ID, path, size, checksum); err != nil {
		h.logger.Error("failed to record document download", "document_id", doc.ID, "error", err)
	}

	c.FileAttachment(path, fmt.Sprintf("document_%d.pdf", doc.ID))
}

// GetCaseAPI returns the latest stored case for a case number, with
// documents and the latest query status.
func (h *Handlers) GetCaseAPI(c *gin.Context) {
	caseNumber := c.Param("number")

	caseRecord, err := h.store.LatestCaseByNumber(caseNumber)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Case not found"})
		return
	}
	if err != nil {
		h.logger.Error("api case lookup failed", "case_number", caseNumber, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	documents := make([]gin.H, 0, len(caseRecord.Documents))
	for _, doc := range caseRecord.Documents {
		documents = append(documents, gin.H{
			"id":            doc.ID,
			"type":          doc.DocumentType,
			"date":          jsonDate(doc.DocumentDate),
			"description":   doc.Description,
			"is_downloaded": doc.IsDownloaded(),
			"download_url":  fmt.Sprintf("/download/%d", doc.ID),
		})
	}

	resp := gin.H{
		"id":                caseRecord.ID,
		"case_type":         caseRecord.CaseType,
		"case_number":       caseRecord.CaseNumber,
		"filing_year":       caseRecord.FilingYear,
		"case_title":        caseRecord.Title(),
		"parties":           gin.H{"petitioner": caseRecord.Petitioners(), "respondent": caseRecord.Respondents()},
		"filing_date":       jsonDate(caseRecord.FilingDate),
		"next_hearing_date": jsonDate(caseRecord.NextHearing),
		"status":            caseRecord.Status,
		"documents":         documents,
		"created_at":        caseRecord.CreatedAt,
	}

	if q, err := h.store.LatestQueryFor(caseRecord.CaseType, caseRecord.CaseNumber, caseRecord.FilingYear); err == nil {
		resp["last_query"] = gin.H{
			"success":   q.Success,
			"error":     q.ErrorMessage,
			"fetch_via": q.FetchVia,
			"time":      q.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ListCasesAPI returns a paginated case listing.
func (h *Handlers) ListCasesAPI(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	cases, total, err := h.store.ListCases(page, limit)
	if err != nil {
		h.logger.Error("case listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": cases,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// StatsPage renders the statistics dashboard.
func (h *Handlers) StatsPage(c *gin.Context) {
	stats, err := h.store.GetStats()
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"title": "Error",
			"error": "Error loading statistics",
		})
		return
	}

	c.HTML(http.StatusOK, "stats.html", gin.H{
		"title": "Application Statistics",
		"stats": stats,
	})
}

// HealthCheck reports database reachability and uptime.
func (h *Handlers) HealthCheck(c *gin.Context) {
	var count int64
	dbHealthy := h.store.DB().Model(&database.QueryLog{}).Count(&count).Error == nil

	status := http.StatusOK
	if !dbHealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   map[bool]string{true: "healthy", false: "degraded"}[dbHealthy],
		"database": dbHealthy,
		"uptime":   time.Since(h.started).String(),
		"time":     time.Now().Unix(),
	})
}

func jsonDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}
