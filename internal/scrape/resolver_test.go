package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhc-casetracker/pkg/logger"
)

// fixturePDF renders a small real PDF so signature validation sees an
// actual document, not a hand-rolled byte string.
func fixturePDF(t *testing.T) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(40, 10, "IN THE HIGH COURT OF DELHI AT NEW DELHI")

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func newTestResolver(t *testing.T, maxSize int64) *Resolver {
	t.Helper()
	return NewResolver(t.TempDir(), maxSize, 5*time.Second, logger.NewNop())
}

func TestResolveStoresValidPDF(t *testing.T) {
	pdfBytes := fixturePDF(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdfBytes)
	}))
	defer srv.Close()

	r := newTestResolver(t, 1<<20)
	links := []DocumentLink{{Type: DocTypeOrder, Description: "Order", URL: srv.URL + "/order.pdf"}}

	results := r.Resolve(context.Background(), CaseDir("CRL", "1234", 2023), links)
	require.Len(t, results, 1)

	res := results[0]
	require.NoError(t, res.Err)
	assert.NotEmpty(t, res.LocalPath)
	assert.EqualValues(t, len(pdfBytes), res.FileSize)
	assert.Len(t, res.Checksum, 64)

	stored, err := os.ReadFile(res.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, stored)
}

func TestResolveRejectsNonPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>not a pdf</html>")
	}))
	defer srv.Close()

	r := newTestResolver(t, 1<<20)
	links := []DocumentLink{{Type: DocTypeOrder, URL: srv.URL + "/fake.pdf"}}

	results := r.Resolve(context.Background(), "2023/CRL-1234", links)
	require.Len(t, results, 1)

	res := results[0]
	require.Error(t, res.Err)
	assert.Empty(t, res.LocalPath, "invalid documents must not be stored")
	assert.Equal(t, links[0], res.Link, "the link is kept for recording a row without a local path")
}

func TestResolveContinuesPastFailures(t *testing.T) {
	pdfBytes := fixturePDF(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.pdf" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(pdfBytes)
	}))
	defer srv.Close()

	r := newTestResolver(t, 1<<20)
	links := []DocumentLink{
		{Type: DocTypeOrder, URL: srv.URL + "/broken.pdf"},
		{Type: DocTypeJudgment, URL: srv.URL + "/good.pdf"},
	}

	results := r.Resolve(context.Background(), "2023/CRL-1234", links)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.NotEmpty(t, results[1].LocalPath)
}

func TestResolveEnforcesSizeLimit(t *testing.T) {
	pdfBytes := fixturePDF(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pdfBytes)
	}))
	defer srv.Close()

	r := newTestResolver(t, 16)
	results := r.Resolve(context.Background(), "2023/X-1", []DocumentLink{{URL: srv.URL + "/big.pdf"}})
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "size limit")
}

func TestEnsureSkipsWhenChecksumMatches(t *testing.T) {
	pdfBytes := fixturePDF(t)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write(pdfBytes)
	}))
	defer srv.Close()

	r := newTestResolver(t, 1<<20)

	path, size, checksum, err := r.Ensure(context.Background(), srv.URL+"/doc.pdf", "", "", 7)
	require.NoError(t, err)
	require.Equal(t, 1, hits)
	assert.EqualValues(t, len(pdfBytes), size)

	// Second call with the stored path and matching checksum must not refetch.
	path2, _, checksum2, err := r.Ensure(context.Background(), srv.URL+"/doc.pdf", path, checksum, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.Equal(t, path, path2)
	assert.Equal(t, checksum, checksum2)
}

func TestEnsureRedownloadsWhenContentChanged(t *testing.T) {
	pdfBytes := fixturePDF(t)
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write(pdfBytes)
	}))
	defer srv.Close()

	r := newTestResolver(t, 1<<20)

	path, _, _, err := r.Ensure(context.Background(), srv.URL+"/doc.pdf", "", "", 9)
	require.NoError(t, err)
	require.Equal(t, 1, hits)

	// Stored checksum no longer matches the file on disk.
	_, _, _, err = r.Ensure(context.Background(), srv.URL+"/doc.pdf", path, "stale-checksum", 9)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestCaseDirSanitizesComponents(t *testing.T) {
	dir := CaseDir("W.P.(C)", "12/34", 2021)
	assert.Equal(t, filepath.Join("2021", "W.P.-C--12-34"), dir)
}
