package fhir

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	msgNotABundle    = "Response is not a FHIR Bundle"
	msgEmptyBundle   = "No entries in response bundle"
	msgParseFailure  = "Error parsing response: "
	msgProcessed     = "Response processed successfully"
	msgIssuesPresent = "Response contains OperationOutcome issues"
)

// ParsedResponse is the normalized view of an NPHIES response. It is built
// fresh per call and never persisted by the parser.
type ParsedResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	Data      []map[string]any `json:"data"`
	Errors    []string         `json:"errors"`
	BundleID  *string          `json:"bundle_id"`
	Timestamp string           `json:"timestamp"`
}

// Parser turns decoded NPHIES responses into ParsedResponse values.
type Parser struct {
	now func() time.Time
}

func NewParser() *Parser {
	return &Parser{now: time.Now}
}

var defaultParser = NewParser()

// ParseResponse decodes raw JSON and parses it with the default parser.
func ParseResponse(raw []byte) ParsedResponse {
	return defaultParser.Parse(raw)
}

func (p *Parser) Parse(raw []byte) ParsedResponse {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return p.failure(msgParseFailure+err.Error(), nil)
	}
	return p.ParseValue(decoded)
}

// ParseMap parses an already decoded response object.
func (p *Parser) ParseMap(m map[string]any) ParsedResponse {
	return p.ParseValue(m)
}

// ParseValue never panics and never returns an error: every failure mode ends
// up in Errors with Success=false. A single OperationOutcome issue of any
// severity marks the whole response as failed. Entries without a resource
// are skipped, so a bundle made only of such entries parses as a success
// with empty Data.
func (p *Parser) ParseValue(v any) (out ParsedResponse) {
	defer func() {
		if r := recover(); r != nil {
			out = p.failure(fmt.Sprintf("%s%v", msgParseFailure, r), nil)
		}
	}()

	bundle, ok := v.(map[string]any)
	if !ok || bundle["resourceType"] != KindBundle {
		return p.failure(msgNotABundle, nil)
	}
	bundleID := stringPtr(bundle["id"])

	rawEntries, present := bundle["entry"]
	if !present || rawEntries == nil {
		return p.failure(msgEmptyBundle, bundleID)
	}
	entries, ok := rawEntries.([]any)
	if !ok {
		return p.failure(fmt.Sprintf("%sentry is %T, not a list", msgParseFailure, rawEntries), bundleID)
	}
	if len(entries) == 0 {
		return p.failure(msgEmptyBundle, bundleID)
	}

	data := make([]map[string]any, 0, len(entries))
	errs := []string{}

	for i, raw := range entries {
		e, ok := raw.(map[string]any)
		if !ok {
			return p.failure(fmt.Sprintf("%sentry[%d] is %T, not an object", msgParseFailure, i, raw), bundleID)
		}
		rawResource, present := e["resource"]
		if !present {
			continue
		}
		res, ok := rawResource.(map[string]any)
		if !ok {
			return p.failure(fmt.Sprintf("%sentry[%d].resource is %T, not an object", msgParseFailure, i, rawResource), bundleID)
		}
		data = append(data, res)

		if res["resourceType"] != KindOperationOutcome {
			continue
		}
		issues, err := outcomeIssues(res)
		if err != nil {
			return p.failure(fmt.Sprintf("%sentry[%d]: %v", msgParseFailure, i, err), bundleID)
		}
		errs = append(errs, issues...)
	}

	out = ParsedResponse{
		Success:   len(errs) == 0,
		Message:   msgProcessed,
		Data:      data,
		Errors:    errs,
		BundleID:  bundleID,
		Timestamp: p.timestamp(),
	}
	if !out.Success {
		out.Message = msgIssuesPresent
	}
	return out
}

// outcomeIssues formats every issue as "[severity] details".
func outcomeIssues(outcome map[string]any) ([]string, error) {
	rawIssues, present := outcome["issue"]
	if !present || rawIssues == nil {
		return nil, nil
	}
	issues, ok := rawIssues.([]any)
	if !ok {
		return nil, fmt.Errorf("issue is %T, not a list", rawIssues)
	}

	out := make([]string, 0, len(issues))
	for j, raw := range issues {
		issue, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("issue[%d] is %T, not an object", j, raw)
		}
		severity, _ := issue["severity"].(string)
		out = append(out, fmt.Sprintf("[%s] %s", severity, issueText(issue)))
	}
	return out, nil
}

func issueText(issue map[string]any) string {
	if details, ok := issue["details"].(map[string]any); ok {
		if text, ok := details["text"].(string); ok {
			return text
		}
	}
	diagnostics, _ := issue["diagnostics"].(string)
	return diagnostics
}

func (p *Parser) failure(msg string, bundleID *string) ParsedResponse {
	return ParsedResponse{
		Success:   false,
		Message:   msg,
		Data:      nil,
		Errors:    []string{msg},
		BundleID:  bundleID,
		Timestamp: p.timestamp(),
	}
}

func (p *Parser) timestamp() string {
	return p.now().UTC().Format(time.RFC3339)
}

func stringPtr(v any) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
