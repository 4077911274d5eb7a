// Package moderation screens post content through the Perspective API
// before it is published.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chirp/internal/observability"
)

const defaultBaseURL = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"

// Verdict is the outcome of analyzing one piece of content.
type Verdict struct {
	Approved bool
	Flagged  bool
	Reason   string
	Scores   Scores
}

// Scores holds the raw Perspective attribute scores behind a verdict.
// Insult is reported but carries no threshold of its own.
type Scores struct {
	Toxicity       float64
	IdentityAttack float64
	Threat         float64
	Insult         float64
}

// Thresholds over Perspective attribute scores. Scores strictly above the
// reject level block the post; scores strictly above the flag level publish
// it but mark it for review. A score exactly at a level stays in the band
// below it.
const (
	rejectToxicity       = 0.9
	rejectIdentityAttack = 0.8
	rejectThreat         = 0.7

	flagToxicity       = 0.7
	flagIdentityAttack = 0.6
	flagThreat         = 0.5
)

// Classifier calls the Perspective API. Without an API key every verdict
// is approved; moderation never blocks publishing on its own outage.
type Classifier struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Classifier) { cl.http = c }
}

// WithBaseURL overrides the analyze endpoint.
func WithBaseURL(u string) Option {
	return func(cl *Classifier) { cl.baseURL = u }
}

// NewClassifier creates a classifier. An empty apiKey disables analysis.
func NewClassifier(apiKey string, opts ...Option) *Classifier {
	c := &Classifier{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     observability.NewLogger("moderation"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type analyzeRequest struct {
	Comment             analyzeComment      `json:"comment"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
	Languages           []string            `json:"languages"`
	DoNotStore          bool                `json:"doNotStore"`
}

type analyzeComment struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	AttributeScores map[string]attributeScore `json:"attributeScores"`
}

type attributeScore struct {
	SummaryScore summaryScore `json:"summaryScore"`
}

type summaryScore struct {
	Value float64 `json:"value"`
}

// Analyze scores the text and maps the scores to a verdict. Transport and
// API errors fail open with an approved verdict.
func (c *Classifier) Analyze(ctx context.Context, text string) Verdict {
	if c.apiKey == "" {
		return Verdict{Approved: true}
	}

	scores, err := c.fetchScores(ctx, text)
	if err != nil {
		c.log.Warn("perspective analysis failed, approving", "error", err)
		observability.ModerationVerdictsTotal.WithLabelValues("error").Inc()
		return Verdict{Approved: true}
	}

	s := Scores{
		Toxicity:       scores["TOXICITY"],
		IdentityAttack: scores["IDENTITY_ATTACK"],
		Threat:         scores["THREAT"],
		Insult:         scores["INSULT"],
	}

	if s.Toxicity > rejectToxicity || s.IdentityAttack > rejectIdentityAttack || s.Threat > rejectThreat {
		observability.ModerationVerdictsTotal.WithLabelValues("rejected").Inc()
		return Verdict{Reason: reason("rejected", s), Scores: s}
	}
	if s.Toxicity > flagToxicity || s.IdentityAttack > flagIdentityAttack || s.Threat > flagThreat {
		observability.ModerationVerdictsTotal.WithLabelValues("flagged").Inc()
		return Verdict{Approved: true, Flagged: true, Reason: reason("flagged", s), Scores: s}
	}
	observability.ModerationVerdictsTotal.WithLabelValues("approved").Inc()
	return Verdict{Approved: true, Scores: s}
}

func (c *Classifier) fetchScores(ctx context.Context, text string) (map[string]float64, error) {
	payload := analyzeRequest{
		Comment: analyzeComment{Text: text},
		RequestedAttributes: map[string]struct{}{
			"TOXICITY":        {},
			"IDENTITY_ATTACK": {},
			"THREAT":          {},
			"INSULT":          {},
		},
		Languages:  []string{"en"},
		DoNotStore: true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("perspective returned status %d", resp.StatusCode)
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(decoded.AttributeScores))
	for name, attr := range decoded.AttributeScores {
		scores[name] = attr.SummaryScore.Value
	}
	return scores, nil
}

func reason(level string, s Scores) string {
	parts := []string{
		fmt.Sprintf("toxicity=%.2f", s.Toxicity),
		fmt.Sprintf("identity_attack=%.2f", s.IdentityAttack),
		fmt.Sprintf("threat=%.2f", s.Threat),
		fmt.Sprintf("insult=%.2f", s.Insult),
	}
	return fmt.Sprintf("content %s (%s)", level, strings.Join(parts, ", "))
}
