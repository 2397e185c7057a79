package database

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Case is one court proceeding identified by (case_type, case_number,
// filing_year). Upserted on that key, never deleted by the pipeline.
type Case struct {
	gorm.Model
	CaseType        string    `json:"case_type" gorm:"uniqueIndex:idx_case_key,priority:1"`
	CaseNumber      string    `json:"case_number" gorm:"uniqueIndex:idx_case_key,priority:2;index"`
	FilingYear      int       `json:"filing_year" gorm:"uniqueIndex:idx_case_key,priority:3"`
	PetitionersJSON string    `json:"-" gorm:"column:petitioners;type:text"`
	RespondentsJSON string    `json:"-" gorm:"column:respondents;type:text"`
	FilingDate      time.Time `json:"filing_date"`
	NextHearing     time.Time `json:"next_hearing_date"`
	Status          string    `json:"status"`
	Advocate        string    `json:"advocate"`
	Bench           string    `json:"bench"`
	DetailsJSON     string    `json:"-" gorm:"column:details;type:text"`

	Documents []Document `json:"documents" gorm:"foreignKey:CaseID"`
}

// Document is one court PDF attached to a case. LocalPath stays empty until
// the binary has been fetched and validated.
type Document struct {
	gorm.Model
	CaseID        uint      `json:"case_id" gorm:"index"`
	DocumentType  string    `json:"document_type"`
	DocumentDate  time.Time `json:"document_date"`
	Description   string    `json:"description"`
	SourceURL     string    `json:"source_url" gorm:"index"`
	LocalPath     string    `json:"local_path"`
	FileSize      int64     `json:"file_size"`
	Checksum      string    `json:"checksum"`
	DownloadCount int       `json:"download_count"`
	FetchError    string    `json:"fetch_error,omitempty"`
}

// QueryLog is the append-only audit record: exactly one row per pipeline
// invocation, successful or not.
type QueryLog struct {
	gorm.Model
	CaseType     string `json:"case_type"`
	CaseNumber   string `json:"case_number"`
	FilingYear   int    `json:"filing_year"`
	RawResponse  string `json:"-" gorm:"type:text"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message"`
	FetchVia     string `json:"fetch_via"`
	IPAddress    string `json:"ip_address"`
	DurationMs   int64  `json:"duration_ms"`
}

func (Case) TableName() string     { return "cases" }
func (Document) TableName() string { return "documents" }
func (QueryLog) TableName() string { return "query_logs" }

// Petitioners decodes the stored petitioner list.
func (c *Case) Petitioners() []string { return decodeList(c.PetitionersJSON) }

// Respondents decodes the stored respondent list.
func (c *Case) Respondents() []string { return decodeList(c.RespondentsJSON) }

// SetParties stores the party lists as JSON.
func (c *Case) SetParties(petitioners, respondents []string) {
	c.PetitionersJSON = encodeList(petitioners)
	c.RespondentsJSON = encodeList(respondents)
}

// Details decodes extra labeled fields captured from the court page.
func (c *Case) Details() map[string]string {
	if c.DetailsJSON == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(c.DetailsJSON), &out); err != nil {
		return nil
	}
	return out
}

// SetDetails stores extra labeled fields as JSON.
func (c *Case) SetDetails(details map[string]string) {
	if len(details) == 0 {
		c.DetailsJSON = ""
		return
	}
	data, err := json.Marshal(details)
	if err != nil {
		return
	}
	c.DetailsJSON = string(data)
}

// Title renders "Petitioner vs Respondent" for display.
func (c *Case) Title() string {
	pets, resps := c.Petitioners(), c.Respondents()
	if len(pets) > 0 && len(resps) > 0 {
		return pets[0] + " vs " + resps[0]
	}
	return c.CaseType + " " + c.CaseNumber
}

// IsDownloaded reports whether the document binary is stored locally.
func (d *Document) IsDownloaded() bool {
	return d.LocalPath != "" && d.FileSize > 0
}

func encodeList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
