package search

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Query is a validated case search. Immutable once constructed.
type Query struct {
	CaseType   string `validate:"required,casetype"`
	CaseNumber string `validate:"required,casenumber"`
	FilingYear int    `validate:"required,min=1950,filingyear"`
}

// Key identifies a case uniquely across searches.
func (q Query) Key() string {
	return fmt.Sprintf("%s/%s/%d", q.CaseType, q.CaseNumber, q.FilingYear)
}

// FieldError reports a validation failure on a single form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// caseTypes is the set accepted by the Delhi High Court case-status form.
var caseTypes = []string{
	"CS", "CRL", "W.P.(C)", "CO", "ARB", "MAT", "ITA", "MAC", "RC", "LPA",
}

var caseTypeLabels = map[string]string{
	"CS":      "Civil Suits",
	"CRL":     "Criminal Cases",
	"W.P.(C)": "Writ Petitions (Civil)",
	"CO":      "Company Petitions",
	"ARB":     "Arbitration Petitions",
	"MAT":     "Matrimonial Cases",
	"ITA":     "Income Tax Appeals",
	"MAC":     "Motor Accident Claims",
	"RC":      "Rent Control Cases",
	"LPA":     "Letters Patent Appeals",
}

// Case numbers are digits, optionally carrying a court-style prefix such as
// "CRL.M.C. 1234".
var caseNumberPattern = regexp.MustCompile(`^(?:[A-Za-z][A-Za-z.()\s]*[.\s])?\d+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("casetype", func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, t := range caseTypes {
			if t == val {
				return true
			}
		}
		return false
	})
	_ = v.RegisterValidation("casenumber", func(fl validator.FieldLevel) bool {
		return caseNumberPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("filingyear", func(fl validator.FieldLevel) bool {
		year := fl.Field().Int()
		return year >= 1950 && year <= int64(time.Now().Year())
	})
	return v
}

// CaseTypes returns the accepted case type codes in form order.
func CaseTypes() []string {
	out := make([]string, len(caseTypes))
	copy(out, caseTypes)
	return out
}

// CaseTypeLabel returns the human-readable name of a case type code.
func CaseTypeLabel(code string) string {
	if label, ok := caseTypeLabels[code]; ok {
		return label
	}
	return code
}

// YearRange lists selectable filing years, newest first.
func YearRange() []int {
	current := time.Now().Year()
	years := make([]int, 0, current-1950+1)
	for y := current; y >= 1950; y-- {
		years = append(years, y)
	}
	return years
}

// Parse validates raw form strings and returns a Query or field-level
// errors. It performs no network or database access.
func Parse(caseType, caseNumber, filingYear string) (Query, []FieldError) {
	var errs []FieldError

	caseType = strings.TrimSpace(caseType)
	caseNumber = strings.TrimSpace(caseNumber)
	filingYear = strings.TrimSpace(filingYear)

	year := 0
	if filingYear == "" {
		errs = append(errs, FieldError{Field: "filing_year", Message: "Filing year is required"})
	} else {
		parsed, err := strconv.Atoi(filingYear)
		if err != nil {
			errs = append(errs, FieldError{Field: "filing_year", Message: "Filing year must be a number"})
		} else {
			year = parsed
		}
	}

	q := Query{CaseType: caseType, CaseNumber: caseNumber, FilingYear: year}

	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if msg := messageFor(fe); msg != nil {
					errs = appendUnique(errs, *msg)
				}
			}
		} else {
			errs = append(errs, FieldError{Field: "form", Message: "Invalid search input"})
		}
	}

	if len(errs) > 0 {
		return Query{}, errs
	}
	return q, nil
}

func messageFor(fe validator.FieldError) *FieldError {
	switch fe.StructField() {
	case "CaseType":
		if fe.Tag() == "required" {
			return &FieldError{Field: "case_type", Message: "Case type is required"}
		}
		return &FieldError{
			Field:   "case_type",
			Message: fmt.Sprintf("Unknown case type; must be one of %s", strings.Join(caseTypes, ", ")),
		}
	case "CaseNumber":
		if fe.Tag() == "required" {
			return &FieldError{Field: "case_number", Message: "Case number is required"}
		}
		return &FieldError{Field: "case_number", Message: "Case number must be a positive number, optionally with a court prefix"}
	case "FilingYear":
		return &FieldError{
			Field:   "filing_year",
			Message: fmt.Sprintf("Filing year must be between 1950 and %d", time.Now().Year()),
		}
	}
	return nil
}

func appendUnique(errs []FieldError, e FieldError) []FieldError {
	for _, existing := range errs {
		if existing.Field == e.Field {
			return errs
		}
	}
	return append(errs, e)
}

// FormatTip gives a search suggestion for a case type, shown when a lookup
// comes back empty.
func FormatTip(caseType string) string {
	tips := map[string]string{
		"ITA":     "For tax cases, try adding a prefix like ITXA, TA, or ITAT before the case number.",
		"CRL":     "For criminal cases, try adding a prefix like CRL.A. or CRL.M.C. before the case number.",
		"W.P.(C)": "For writ petitions, try formats like W.P.(C) or W.P.(CRL) before the case number.",
		"CS":      "For civil suits, try adding a prefix like CS or C.S. before the case number.",
		"CO":      "For company petitions, try adding a prefix like CO or CP before the case number.",
		"ARB":     "For arbitration cases, try prefixes like ARB.P. or ARB.A. before the case number.",
		"MAT":     "For matrimonial cases, try adding a prefix like MAT.A. before the case number.",
		"MAC":     "For motor accident claims, try adding a prefix like MAC.APP. before the case number.",
		"RC":      "For rent control cases, try adding a prefix like R.C.REV. before the case number.",
		"LPA":     "For letters patent appeals, verify the case number on the cause list.",
	}
	if tip, ok := tips[caseType]; ok {
		return tip
	}
	return "Verify the case number format and filing year on the court's cause list."
}
