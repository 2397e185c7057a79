package scrape

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhc-casetracker/internal/search"
)

const courtBase = "https://delhihighcourt.nic.in"

var fixtureQuery = search.Query{CaseType: "CRL", CaseNumber: "1234", FilingYear: 2023}

const resultsFixture = `<!DOCTYPE html>
<html>
<body>
<h2>Case Details</h2>
<table>
  <tr><th>Petitioner</th><td>Rajesh Kumar, Sunita Kumar</td></tr>
  <tr><th>Respondent</th><td>State of NCT of Delhi</td></tr>
  <tr><th>Advocate</th><td>A. K. Sharma</td></tr>
  <tr><th>Case Status</th><td>Listed for Hearing</td></tr>
  <tr><th>Filing Date</th><td>15/03/2023</td></tr>
  <tr><th>Next Hearing Date</th><td>10/09/2023</td></tr>
  <tr><th>Bench</th><td>Hon'ble Justice Verma</td></tr>
  <tr><th>Court No</th><td>14</td></tr>
</table>
<div class="orders">
  <a href="/orders/crl_1234_2023_order1.pdf">Order dated 20/04/2023</a>
  <a href="https://delhihighcourt.nic.in/orders/crl_1234_2023_judgment.pdf">Final Judgment</a>
  <a href="#">Back to top</a>
</div>
</body>
</html>`

func TestParseExtractsCaseDetails(t *testing.T) {
	p := NewParser(courtBase)

	details, links, err := p.Parse(resultsFixture, fixtureQuery)
	require.NoError(t, err)

	assert.Equal(t, "CRL", details.CaseType)
	assert.Equal(t, "1234", details.CaseNumber)
	assert.Equal(t, 2023, details.FilingYear)
	assert.Equal(t, "Listed for Hearing", details.Status)
	assert.Equal(t, "A. K. Sharma", details.Advocate)
	assert.Equal(t, "Hon'ble Justice Verma", details.Bench)

	if diff := cmp.Diff([]string{"Rajesh Kumar", "Sunita Kumar"}, details.Petitioners); diff != "" {
		t.Errorf("petitioners mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"State of NCT of Delhi"}, details.Respondents); diff != "" {
		t.Errorf("respondents mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), details.FilingDate)
	assert.Equal(t, time.Date(2023, 9, 10, 0, 0, 0, 0, time.UTC), details.NextHearing)

	// Unmatched labels land in the extras map by declared policy.
	assert.Equal(t, "14", details.Extra["court no"])

	require.Len(t, links, 2)
	assert.Equal(t, courtBase+"/orders/crl_1234_2023_order1.pdf", links[0].URL)
	assert.Equal(t, DocTypeOrder, links[0].Type)
	assert.Equal(t, time.Date(2023, 4, 20, 0, 0, 0, 0, time.UTC), links[0].Date)
	assert.Equal(t, DocTypeJudgment, links[1].Type)
}

func TestParseDocumentCountMatchesFixtureLinks(t *testing.T) {
	p := NewParser(courtBase)

	_, links, err := p.Parse(resultsFixture, fixtureQuery)
	require.NoError(t, err)
	// Two real document anchors in the fixture; the bare "#" anchor is not one.
	assert.Len(t, links, 2)
}

func TestParseNoRecords(t *testing.T) {
	pages := []string{
		`<html><body><p>No records found for this query</p></body></html>`,
		`<html><body><div class="error">Case not found. Please verify.</div></body></html>`,
		`<html><body>Invalid case number entered</body></html>`,
	}
	p := NewParser(courtBase)

	for _, page := range pages {
		_, _, err := p.Parse(page, fixtureQuery)
		assert.ErrorIs(t, err, ErrNoRecords)
	}
}

func TestParseFailsWithoutStructuralAnchors(t *testing.T) {
	p := NewParser(courtBase)

	_, _, err := p.Parse(`<html><body><p>Welcome to the portal</p></body></html>`, fixtureQuery)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.NotEmpty(t, perr.Reason)
}

func TestParseToleratesMarkupDrift(t *testing.T) {
	// Same fields, different nesting and label casing.
	drifted := `<html><body>
	<div><table class="new-layout">
	  <tr><td>PETITIONER NAME</td><td>Mohan Lal</td></tr>
	  <tr><td>respondent details</td><td>Union of India</td></tr>
	  <tr><td>Stage</td><td>Arguments</td></tr>
	</table></div>
	</body></html>`

	p := NewParser(courtBase)
	details, _, err := p.Parse(drifted, fixtureQuery)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mohan Lal"}, details.Petitioners)
	assert.Equal(t, []string{"Union of India"}, details.Respondents)
	assert.Equal(t, "Arguments", details.Status)
}

func TestParsePartiesFromVersusCaption(t *testing.T) {
	page := `<html><body>
	<h3>Case Status</h3>
	<table><tr><th>Status</th><td>Disposed</td></tr></table>
	<p>Ram Singh vs State of Delhi</p>
	</body></html>`

	p := NewParser(courtBase)
	details, _, err := p.Parse(page, fixtureQuery)
	require.NoError(t, err)

	require.NotEmpty(t, details.Petitioners)
	require.NotEmpty(t, details.Respondents)
	assert.Contains(t, details.Respondents[0], "State of Delhi")
}

func TestClassifyDocument(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Interim Order dated 01/01/2023", DocTypeOrder},
		{"Final Judgement", DocTypeJudgment},
		{"Notice to Respondent", DocTypeNotice},
		{"Writ Petition copy", DocTypePetition},
		{"Annexure A", DocTypeOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyDocument(tt.text), tt.text)
	}
}
