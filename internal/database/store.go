package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("not found")

// PersistenceError wraps a failed database write. The surrounding pipeline
// reports a generic failure but still writes its query log.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the persister boundary: case upserts, document attachment and
// the append-only query log.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an initialized gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// UpsertCase writes a case keyed by (case_type, case_number, filing_year).
// Repeating the same search updates the existing row in place and returns
// the same ID. The case and its documents are written in one transaction.
func (s *Store) UpsertCase(c *Case, docs []Document) (uint, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing Case
		result := tx.Where(
			"case_type = ? AND case_number = ? AND filing_year = ?",
			c.CaseType, c.CaseNumber, c.FilingYear,
		).First(&existing)

		switch {
		case result.Error == nil:
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"petitioners":  c.PetitionersJSON,
				"respondents":  c.RespondentsJSON,
				"filing_date":  c.FilingDate,
				"next_hearing": c.NextHearing,
				"status":       c.Status,
				"advocate":     c.Advocate,
				"bench":        c.Bench,
				"details":      c.DetailsJSON,
			}).Error; err != nil {
				return err
			}
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			if err := tx.Create(c).Error; err != nil {
				return err
			}
		default:
			return result.Error
		}

		return addDocumentsTx(tx, c.ID, docs)
	})
	if err != nil {
		return 0, &PersistenceError{Op: "upsert case", Err: err}
	}
	return c.ID, nil
}

// AddDocuments attaches documents to a case. Insertion is additive but
// deduplicated on (case_id, source_url): a repeated search never duplicates
// document rows.
func (s *Store) AddDocuments(caseID uint, docs []Document) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return addDocumentsTx(tx, caseID, docs)
	})
	if err != nil {
		return &PersistenceError{Op: "add documents", Err: err}
	}
	return nil
}

func addDocumentsTx(tx *gorm.DB, caseID uint, docs []Document) error {
	for i := range docs {
		docs[i].CaseID = caseID

		var existing Document
		result := tx.Where("case_id = ? AND source_url = ?", caseID, docs[i].SourceURL).First(&existing)
		switch {
		case result.Error == nil:
			updates := map[string]interface{}{
				"document_type": docs[i].DocumentType,
				"description":   docs[i].Description,
			}
			if !docs[i].DocumentDate.IsZero() {
				updates["document_date"] = docs[i].DocumentDate
			}
			// A stored binary is only replaced by a fresh successful fetch.
			if docs[i].LocalPath != "" {
				updates["local_path"] = docs[i].LocalPath
				updates["file_size"] = docs[i].FileSize
				updates["checksum"] = docs[i].Checksum
				updates["fetch_error"] = ""
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return err
			}
			docs[i].ID = existing.ID
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			if err := tx.Create(&docs[i]).Error; err != nil {
				return err
			}
		default:
			return result.Error
		}
	}
	return nil
}

// UpdateDocumentFile records a completed on-demand download.
func (s *Store) UpdateDocumentFile(documentID uint, localPath string, fileSize int64, checksum string) error {
	err := s.db.Model(&Document{}).Where("id = ?", documentID).Updates(map[string]interface{}{
		"local_path":     localPath,
		"file_size":      fileSize,
		"checksum":       checksum,
		"fetch_error":    "",
		"download_count": gorm.Expr("download_count + 1"),
	}).Error
	if err != nil {
		return &PersistenceError{Op: "update document", Err: err}
	}
	return nil
}

// LogQuery appends one audit row. Called exactly once per pipeline run.
func (s *Store) LogQuery(log *QueryLog) error {
	if err := s.db.Create(log).Error; err != nil {
		return &PersistenceError{Op: "log query", Err: err}
	}
	return nil
}

// GetCase loads a case with its documents.
func (s *Store) GetCase(id uint) (*Case, error) {
	var c Case
	err := s.db.Preload("Documents").First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetDocument loads a single document row.
func (s *Store) GetDocument(id uint) (*Document, error) {
	var d Document
	err := s.db.First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// LatestCaseByNumber returns the most recently stored case for a case
// number, with documents.
func (s *Store) LatestCaseByNumber(caseNumber string) (*Case, error) {
	var c Case
	err := s.db.Preload("Documents").
		Where("case_number = ?", caseNumber).
		Order("created_at DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LatestQueryFor returns the newest query log for a case key.
func (s *Store) LatestQueryFor(caseType, caseNumber string, filingYear int) (*QueryLog, error) {
	var q QueryLog
	err := s.db.Where(
		"case_type = ? AND case_number = ? AND filing_year = ?",
		caseType, caseNumber, filingYear,
	).Order("created_at DESC").First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListCases returns a page of stored cases, newest first.
func (s *Store) ListCases(page, limit int) ([]Case, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var total int64
	if err := s.db.Model(&Case{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var cases []Case
	err := s.db.Preload("Documents").
		Offset((page - 1) * limit).
		Limit(limit).
		Order("created_at DESC").
		Find(&cases).Error
	if err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

// TypeCount is one per-case-type bucket on the stats page.
type TypeCount struct {
	CaseType string `json:"type"`
	Count    int64  `json:"count"`
}

// Stats summarizes stored data for the dashboard.
type Stats struct {
	TotalCases        int64       `json:"total_cases"`
	TotalQueries      int64       `json:"total_queries"`
	SuccessfulQueries int64       `json:"successful_queries"`
	SuccessRate       float64     `json:"success_rate"`
	TotalDocuments    int64       `json:"total_documents"`
	CaseTypes         []TypeCount `json:"case_types"`
	GeneratedAt       time.Time   `json:"generated_at"`
}

// GetStats computes dashboard totals.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{GeneratedAt: time.Now()}

	if err := s.db.Model(&Case{}).Count(&stats.TotalCases).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&QueryLog{}).Count(&stats.TotalQueries).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&QueryLog{}).Where("success = ?", true).Count(&stats.SuccessfulQueries).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&Document{}).Count(&stats.TotalDocuments).Error; err != nil {
		return nil, err
	}
	if stats.TotalQueries > 0 {
		stats.SuccessRate = float64(stats.SuccessfulQueries) / float64(stats.TotalQueries) * 100
	}

	err := s.db.Model(&Case{}).
		Select("case_type, count(id) as count").
		Group("case_type").
		Order("count DESC").
		Scan(&stats.CaseTypes).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}
