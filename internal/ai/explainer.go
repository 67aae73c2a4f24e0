package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agrotrade/internal/matching"
)

// maxReasonLen caps what we pass on to buyers; models sometimes ramble.
const maxReasonLen = 400

// Completer is the text-completion capability the explainer needs.
type Completer interface {
	GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

// Explainer asks an LLM for a one or two sentence justification of a match.
// The ranking is already decided when it is called.
type Explainer struct {
	client Completer
}

func NewExplainer(client Completer) *Explainer {
	return &Explainer{client: client}
}

func (e *Explainer) Explain(ctx context.Context, req matching.ExplainRequest) (string, error) {
	resp, err := e.client.GenerateCompletion(ctx, BuildExplainPrompt(req), false)
	if err != nil {
		return "", err
	}
	reason := strings.Join(strings.Fields(resp), " ")
	if reason == "" {
		return "", errors.New("empty explanation")
	}
	if len(reason) > maxReasonLen {
		reason = strings.TrimSpace(reason[:maxReasonLen]) + "…"
	}
	return reason, nil
}

func BuildExplainPrompt(req matching.ExplainRequest) string {
	sp := req.Supplier
	verified := "not verified"
	if sp.Verified {
		verified = "verified"
	}
	specs := strings.TrimSpace(req.Specs)
	if specs == "" {
		specs = "none"
	}

	return fmt.Sprintf(`You are a sourcing analyst for an agricultural commodity marketplace.
A buyer needs %s of %s delivered to %s under %s.
Technical instructions: %s

Candidate supplier: %s
Specialties: %s
Home region: %s (%s)
On-time delivery rate: %.0f%%
Trust score: %d/100, %s
Match score already assigned: %.2f/100

In at most two sentences, explain why this supplier fits the request.
Do not change or dispute the score. Do not invent certifications or prices.
RESPOND WITH PLAIN TEXT ONLY.`,
		req.Volume, req.Crop, req.Destination, req.Incoterm, specs,
		sp.Name, strings.Join(sp.Specialties, ", "), sp.Region, sp.Country,
		sp.OnTimeRate*100, sp.TrustScore, verified, req.Score)
}
