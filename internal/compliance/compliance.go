// Package compliance derives documentation KPIs and the OK/NOK verdict
// for normalized work item records.
package compliance

import (
	"regexp"

	"github.com/JaimeStill/warden/internal/records"
)

// Rule constants. They are fixed, not configuration.
const (
	DefaultLinkPattern      = `(?i)https://bkbrasil\.sharepoint\.com`
	DefaultComplexThreshold = 20
)

// Verdict is the compliance outcome of a record.
type Verdict string

// Stored verdict values. NOK sorts before OK.
const (
	OK  Verdict = "OK"
	NOK Verdict = "NOK"
)

// Result is a record together with its KPIs and verdict.
type Result struct {
	records.Record
	HasLinkInDescription  bool    `json:"has_link_in_description"`
	HasLinkInComment      bool    `json:"has_link_in_comment"`
	HasDocumentationLink  bool    `json:"has_documentation_link"`
	HasComplexDescription bool    `json:"has_complex_description"`
	HasAttachment         bool    `json:"has_attachment"`
	IsDocumented          bool    `json:"is_documented"`
	Verdict               Verdict `json:"compliance"`
}

// Rules holds the link pattern and the description length above which
// a description counts as complex.
type Rules struct {
	LinkPattern      *regexp.Regexp
	ComplexThreshold int
}

var defaultPattern = regexp.MustCompile(DefaultLinkPattern)

// DefaultRules returns the rules built from the package constants.
func DefaultRules() Rules {
	return Rules{
		LinkPattern:      defaultPattern,
		ComplexThreshold: DefaultComplexThreshold,
	}
}

// Evaluate computes the KPIs and verdict for one record.
func (r Rules) Evaluate(rec records.Record) Result {
	res := Result{
		Record:                rec,
		HasLinkInDescription:  r.matches(rec.RawDescription),
		HasLinkInComment:      r.matches(rec.CommentsText),
		HasComplexDescription: rec.DescriptionLength > r.ComplexThreshold,
		HasAttachment:         rec.AttachmentCount > 0,
	}

	res.HasDocumentationLink = res.HasLinkInDescription || res.HasLinkInComment
	res.IsDocumented = res.HasDocumentationLink || res.HasAttachment

	res.Verdict = NOK
	if res.IsDocumented || res.HasComplexDescription {
		res.Verdict = OK
	}
	return res
}

// Apply evaluates every record, preserving order. An empty batch yields
// an empty, non-nil slice.
func (r Rules) Apply(batch []records.Record) []Result {
	out := make([]Result, len(batch))
	for i, rec := range batch {
		out[i] = r.Evaluate(rec)
	}
	return out
}

func (r Rules) matches(text string) bool {
	if text == "" || r.LinkPattern == nil {
		return false
	}
	return r.LinkPattern.MatchString(text)
}
