package scrape

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"

	"dhc-casetracker/pkg/logger"
)

// pdfSignature is the format header every well-formed PDF starts with.
// Checked instead of trusting the URL extension.
var pdfSignature = []byte("%PDF-")

// Resolved is the outcome of fetching one document link. A failed fetch
// keeps the link but leaves LocalPath empty; it never aborts the case.
type Resolved struct {
	Link      DocumentLink
	LocalPath string
	FileSize  int64
	Checksum  string
	Err       error
}

// Resolver downloads court PDFs, validates them and stores them on disk.
type Resolver struct {
	http    *resty.Client
	dir     string
	maxSize int64
	log     *logger.Logger
}

// NewResolver creates a resolver storing documents under dir, rejecting
// files larger than maxSize bytes.
func NewResolver(dir string, maxSize int64, timeout time.Duration, log *logger.Logger) *Resolver {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/pdf,application/octet-stream,*/*").
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	return &Resolver{http: client, dir: dir, maxSize: maxSize, log: log}
}

// Resolve fetches each link sequentially. Individual failures are recorded
// on the returned slice rather than returned as an error.
func (r *Resolver) Resolve(ctx context.Context, caseDir string, links []DocumentLink) []Resolved {
	results := make([]Resolved, 0, len(links))
	for i, link := range links {
		name := fmt.Sprintf("doc_%02d.pdf", i+1)
		path, size, checksum, err := r.download(ctx, link.URL, filepath.Join(caseDir, name))
		if err != nil {
			r.log.Warn("document fetch failed",
				"url", link.URL,
				"error", err,
			)
			results = append(results, Resolved{Link: link, Err: err})
			continue
		}
		results = append(results, Resolved{
			Link:      link,
			LocalPath: path,
			FileSize:  size,
			Checksum:  checksum,
		})
	}
	return results
}

// Ensure fetches a single stored document on demand. When the file already
// exists locally and its content hash matches the stored checksum the
// download is skipped; a changed hash overwrites the file in place.
func (r *Resolver) Ensure(ctx context.Context, sourceURL, existingPath, existingChecksum string, documentID uint) (string, int64, string, error) {
	if existingPath != "" {
		if checksum, size, err := fileChecksum(existingPath); err == nil && checksum == existingChecksum {
			return existingPath, size, checksum, nil
		}
	}
	name := fmt.Sprintf("document_%d.pdf", documentID)
	return r.download(ctx, sourceURL, name)
}

func (r *Resolver) download(ctx context.Context, sourceURL, relPath string) (string, int64, string, error) {
	resp, err := r.http.R().SetContext(ctx).Get(sourceURL)
	if err != nil {
		return "", 0, "", fmt.Errorf("download %s: %w", sourceURL, err)
	}
	if resp.StatusCode() != 200 {
		return "", 0, "", fmt.Errorf("download %s: status %d", sourceURL, resp.StatusCode())
	}

	body := resp.Body()
	if int64(len(body)) > r.maxSize {
		return "", 0, "", fmt.Errorf("document exceeds size limit (%d > %d bytes)", len(body), r.maxSize)
	}
	if !bytes.HasPrefix(body, pdfSignature) {
		return "", 0, "", fmt.Errorf("document at %s is not a valid PDF", sourceURL)
	}

	fullPath := filepath.Join(r.dir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", 0, "", fmt.Errorf("create document directory: %w", err)
	}
	if err := os.WriteFile(fullPath, body, 0o644); err != nil {
		return "", 0, "", fmt.Errorf("write document: %w", err)
	}

	sum := sha256.Sum256(body)
	checksum := hex.EncodeToString(sum[:])

	r.log.Info("document stored",
		"url", sourceURL,
		"path", fullPath,
		"size", len(body),
	)
	return fullPath, int64(len(body)), checksum, nil
}

func fileChecksum(path string) (string, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), int64(len(data)), nil
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CaseDir builds the on-disk directory for a case's documents,
// e.g. "2023/CRL-1234".
func CaseDir(caseType, caseNumber string, filingYear int) string {
	slug := unsafePathChars.ReplaceAllString(caseType+"-"+caseNumber, "-")
	return filepath.Join(fmt.Sprintf("%d", filingYear), slug)
}
