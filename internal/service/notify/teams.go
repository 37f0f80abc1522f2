package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/rcm-ksa/nphies-gateway/internal/service/common"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/ledger"
)

// SignatureHeader carries "sha256=<hex hmac>" of the request body.
const SignatureHeader = "X-Signature"

const maxListedErrors = 5

type TeamsOptions struct {
	WebhookURL string
	Secret     string
	RetryMax   int
}

// TeamsNotifier posts rejected submissions to a Teams incoming webhook.
// With no webhook URL it does nothing.
type TeamsNotifier struct {
	url    string
	secret string
	http   *retryablehttp.Client
	logger zerolog.Logger
}

func NewTeamsNotifier(opt TeamsOptions, logger zerolog.Logger) *TeamsNotifier {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.RetryMax = 2
	if opt.RetryMax > 0 {
		rc.RetryMax = opt.RetryMax
	}
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil

	return &TeamsNotifier{
		url:    opt.WebhookURL,
		secret: opt.Secret,
		http:   rc,
		logger: logger,
	}
}

func (n *TeamsNotifier) Enabled() bool { return n.url != "" }

type messageCard struct {
	Type       string        `json:"@type"`
	Context    string        `json:"@context"`
	ThemeColor string        `json:"themeColor"`
	Summary    string        `json:"summary"`
	Sections   []cardSection `json:"sections"`
}

type cardSection struct {
	ActivityTitle string     `json:"activityTitle"`
	Facts         []cardFact `json:"facts"`
	Text          string     `json:"text,omitempty"`
}

type cardFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (n *TeamsNotifier) NotifyRejection(ctx context.Context, s ledger.Submission) error {
	if !n.Enabled() {
		return nil
	}

	body, err := json.Marshal(rejectionCard(s))
	if err != nil {
		return errors.Wrap(err, "encode teams card")
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, n.url, body)
	if err != nil {
		return errors.Wrap(err, "build teams request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+common.GenerateHMACSignature(string(body), n.secret))
	}

	resp, err := n.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "post teams notification")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("teams webhook returned %d", resp.StatusCode)
	}
	n.logger.Debug().Str("submission_id", s.ID).Msg("rejection notification sent")
	return nil
}

func rejectionCard(s ledger.Submission) messageCard {
	errs := s.Errors
	more := 0
	if len(errs) > maxListedErrors {
		more = len(errs) - maxListedErrors
		errs = errs[:maxListedErrors]
	}
	text := strings.Join(errs, "\n\n")
	if more > 0 {
		text += fmt.Sprintf("\n\n(+%d more)", more)
	}

	return messageCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: "D70000",
		Summary:    fmt.Sprintf("NPHIES %s rejected", s.Kind),
		Sections: []cardSection{{
			ActivityTitle: fmt.Sprintf("NPHIES %s rejected by %s", s.Kind, s.PayerCode),
			Facts: []cardFact{
				{Name: "Submission", Value: s.ID},
				{Name: "Bundle", Value: s.BundleID},
				{Name: "Member", Value: s.MemberID},
				{Name: "Correlation", Value: s.CorrelationID},
			},
			Text: text,
		}},
	}
}

// VerifySignatureHeader checks a "sha256=<hex>" header value against body.
func VerifySignatureHeader(body []byte, header, secret string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	return common.VerifyHMACSignature(string(body), sig, secret)
}
