package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return NewStore(db)
}

func sampleCase() *Case {
	c := &Case{
		CaseType:   "CRL",
		CaseNumber: "1234",
		FilingYear: 2023,
		Status:     "Listed for Hearing",
		FilingDate: time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	c.SetParties([]string{"Rajesh Kumar"}, []string{"State of NCT of Delhi"})
	return c
}

func TestUpsertCaseIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.UpsertCase(sampleCase(), nil)
	require.NoError(t, err)
	require.NotZero(t, id1)

	updated := sampleCase()
	updated.Status = "Disposed"
	id2, err := store.UpsertCase(updated, nil)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "repeat search must reuse the same case row")

	var count int64
	require.NoError(t, store.DB().Model(&Case{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	got, err := store.GetCase(id1)
	require.NoError(t, err)
	assert.Equal(t, "Disposed", got.Status, "upsert updates fields in place")
	assert.Equal(t, []string{"Rajesh Kumar"}, got.Petitioners())
}

func TestUpsertDistinguishesCaseKeys(t *testing.T) {
	store := newTestStore(t)

	a := sampleCase()
	b := sampleCase()
	b.FilingYear = 2022

	idA, err := store.UpsertCase(a, nil)
	require.NoError(t, err)
	idB, err := store.UpsertCase(b, nil)
	require.NoError(t, err)

	assert.NotEqual(t, idA, idB)
}

func TestDocumentsDedupedBySourceURL(t *testing.T) {
	store := newTestStore(t)

	docs := []Document{
		{DocumentType: "Order", SourceURL: "https://example.org/order1.pdf", Description: "Order dated 20/04/2023"},
		{DocumentType: "Judgment", SourceURL: "https://example.org/judgment.pdf", Description: "Final Judgment"},
	}
	id, err := store.UpsertCase(sampleCase(), docs)
	require.NoError(t, err)

	// Second identical search discovers the same links again.
	again := []Document{
		{DocumentType: "Order", SourceURL: "https://example.org/order1.pdf", Description: "Order dated 20/04/2023"},
		{DocumentType: "Judgment", SourceURL: "https://example.org/judgment.pdf", Description: "Final Judgment"},
	}
	_, err = store.UpsertCase(sampleCase(), again)
	require.NoError(t, err)

	got, err := store.GetCase(id)
	require.NoError(t, err)
	assert.Len(t, got.Documents, 2, "repeat searches must not duplicate document rows")
}

func TestDocumentUpdateKeepsStoredBinary(t *testing.T) {
	store := newTestStore(t)

	id, err := store.UpsertCase(sampleCase(), []Document{{
		DocumentType: "Order",
		SourceURL:    "https://example.org/order1.pdf",
		LocalPath:    "/data/downloads/doc_01.pdf",
		FileSize:     2048,
		Checksum:     "abc",
	}})
	require.NoError(t, err)

	// A later search records the same link without downloading it.
	require.NoError(t, store.AddDocuments(id, []Document{{
		DocumentType: "Order",
		SourceURL:    "https://example.org/order1.pdf",
	}}))

	got, err := store.GetCase(id)
	require.NoError(t, err)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "/data/downloads/doc_01.pdf", got.Documents[0].LocalPath)
	assert.EqualValues(t, 2048, got.Documents[0].FileSize)
}

func TestQueryLogAppendOnly(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.LogQuery(&QueryLog{
		CaseType: "CRL", CaseNumber: "1234", FilingYear: 2023, Success: true, FetchVia: "http",
	}))
	require.NoError(t, store.LogQuery(&QueryLog{
		CaseType: "CRL", CaseNumber: "1234", FilingYear: 2023,
		Success: false, ErrorMessage: "fetch failed (blocked)",
	}))

	var count int64
	require.NoError(t, store.DB().Model(&QueryLog{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	latest, err := store.LatestQueryFor("CRL", "1234", 2023)
	require.NoError(t, err)
	assert.False(t, latest.Success)
	assert.NotEmpty(t, latest.ErrorMessage)
}

func TestLookupsReturnErrNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCase(999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetDocument(999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.LatestCaseByNumber("0")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.LatestQueryFor("CRL", "0", 2000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCasesPaginates(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 15; i++ {
		c := sampleCase()
		c.CaseNumber = string(rune('a' + i))
		_, err := store.UpsertCase(c, nil)
		require.NoError(t, err)
	}

	page1, total, err := store.ListCases(1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 15, total)
	assert.Len(t, page1, 10)

	page2, _, err := store.ListCases(2, 10)
	require.NoError(t, err)
	assert.Len(t, page2, 5)
}

func TestGetStats(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpsertCase(sampleCase(), []Document{{SourceURL: "https://example.org/a.pdf"}})
	require.NoError(t, err)

	other := sampleCase()
	other.CaseType = "W.P.(C)"
	_, err = store.UpsertCase(other, nil)
	require.NoError(t, err)

	require.NoError(t, store.LogQuery(&QueryLog{Success: true}))
	require.NoError(t, store.LogQuery(&QueryLog{Success: false}))

	stats, err := store.GetStats()
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalCases)
	assert.EqualValues(t, 2, stats.TotalQueries)
	assert.EqualValues(t, 1, stats.SuccessfulQueries)
	assert.InDelta(t, 50.0, stats.SuccessRate, 0.01)
	assert.EqualValues(t, 1, stats.TotalDocuments)
	assert.Len(t, stats.CaseTypes, 2)
}

func TestLatestCaseByNumber(t *testing.T) {
	store := newTestStore(t)

	older := sampleCase()
	older.FilingYear = 2020
	_, err := store.UpsertCase(older, nil)
	require.NoError(t, err)

	newer := sampleCase()
	id, err := store.UpsertCase(newer, nil)
	require.NoError(t, err)

	got, err := store.LatestCaseByNumber("1234")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}
