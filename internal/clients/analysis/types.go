package analysis

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/prism-backend/internal/domain/review"
)

type analyzeRequest struct {
	CaseID      string `json:"case_id"`
	Attempt     int    `json:"attempt"`
	DocumentRef string `json:"document_ref"`
	PolicyID    string `json:"policy_id"`
	PolicyText  string `json:"policy_text"`
	ProviderID  string `json:"provider_id,omitempty"`
}

type evidenceWire struct {
	Quote string `json:"quote"`
	Page  int    `json:"page"`
}

// analyzeResponse accepts both the nested evidence object and the flat
// evidence_quote/evidence_page pair older engine builds return. Those builds
// also name entities entities_detected and the decision fhir_json.
type analyzeResponse struct {
	Status                string          `json:"status"`
	Reasoning             string          `json:"reasoning"`
	Reason                string          `json:"reason"`
	Entities              []string        `json:"entities"`
	EntitiesDetected      []string        `json:"entities_detected"`
	CriteriaMet           *bool           `json:"criteria_met"`
	DocumentationComplete *bool           `json:"documentation_complete"`
	PolicyMatch           *bool           `json:"policy_match"`
	MissingCriteria       string          `json:"missing_criteria"`
	MissingDocumentation  string          `json:"missing_documentation"`
	PriorAuthStatus       string          `json:"prior_auth_status"`
	Evidence              *evidenceWire   `json:"evidence"`
	EvidenceQuote         string          `json:"evidence_quote"`
	EvidencePage          int             `json:"evidence_page"`
	RFIDraft              string          `json:"rfi_draft"`
	Decision              json.RawMessage `json:"decision"`
	FHIRJSON              json.RawMessage `json:"fhir_json"`
}

func (r analyzeResponse) toInput() (review.VerdictInput, error) {
	outcome, err := review.ParseOutcome(r.Status)
	if err != nil {
		return review.VerdictInput{}, err
	}
	reasoning := r.Reasoning
	if strings.TrimSpace(reasoning) == "" {
		reasoning = r.Reason
	}
	entities := r.Entities
	if len(entities) == 0 {
		entities = r.EntitiesDetected
	}
	in := review.VerdictInput{
		Outcome:               outcome,
		Reasoning:             reasoning,
		Entities:              entities,
		CriteriaMet:           r.CriteriaMet,
		DocumentationComplete: r.DocumentationComplete,
		PolicyMatch:           r.PolicyMatch,
		MissingCriteria:       r.MissingCriteria,
		MissingDocumentation:  r.MissingDocumentation,
		PriorAuthStatus:       r.PriorAuthStatus,
		SuggestedRFI:          r.RFIDraft,
	}
	switch {
	case r.Evidence != nil && strings.TrimSpace(r.Evidence.Quote) != "":
		in.Evidence = &review.EvidenceCitation{Quote: r.Evidence.Quote, Page: r.Evidence.Page}
	case strings.TrimSpace(r.EvidenceQuote) != "":
		in.Evidence = &review.EvidenceCitation{Quote: r.EvidenceQuote, Page: r.EvidencePage}
	}
	switch {
	case present(r.Decision):
		in.Decision = r.Decision
	case present(r.FHIRJSON):
		in.Decision = r.FHIRJSON
	}
	return in, nil
}

func present(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

// DecodeVerdict parses a verdict in the engine's wire format, as delivered
// out of band to the verdict callback.
func DecodeVerdict(raw []byte) (review.VerdictInput, error) {
	var r analyzeResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return review.VerdictInput{}, fmt.Errorf("decode verdict: %w", err)
	}
	return r.toInput()
}

type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "http error"
	}
	if strings.TrimSpace(e.Code) != "" {
		return fmt.Sprintf("analysis http %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("analysis http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func parseHTTPError(status int, raw []byte) error {
	he := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &env) == nil {
		he.Message = env.Error.Message
		he.Code = env.Error.Code
		if he.Message == "" {
			he.Message = env.Detail
		}
	}
	return he
}
