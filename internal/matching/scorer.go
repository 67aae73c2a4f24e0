// Package matching ranks suppliers against an RFQ.
//
// Ranking is deterministic: the same RFQ and pool always give the same scores
// and order. Explanations are advisory text fetched afterwards and never
// influence the ranking.
package matching

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"agrotrade/internal/metrics"
	"agrotrade/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Composite score weights. They sum to 1.
const (
	WeightSpecialty = 0.30
	WeightOnTime    = 0.30
	WeightRegion    = 0.15
	WeightTrust     = 0.25
)

// Specialty strength: an exact crop match earns the base, suppliers focused
// on the crop's category earn up to the full bonus on top.
const (
	exactMatchScore = 70.0
	categoryBonus   = 30.0
)

// Regional proximity buckets.
const (
	sameCountryScore = 100.0
	sameRegionScore  = 60.0
	otherRegionScore = 20.0
)

const (
	MaxCandidates         = 5
	DefaultExplainTimeout = 4 * time.Second
)

// ExplainRequest is the context handed to the explanation oracle.
type ExplainRequest struct {
	Crop        string
	Volume      string
	Destination string
	Incoterm    string
	Specs       string
	Supplier    models.Supplier
	Score       float64
}

// Explainer produces a short natural-language justification for a match.
type Explainer interface {
	Explain(ctx context.Context, req ExplainRequest) (string, error)
}

type Scorer struct {
	explainer Explainer
	timeout   time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics
}

type Option func(*Scorer)

func WithExplainTimeout(d time.Duration) Option {
	return func(s *Scorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Scorer) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scorer) { s.metrics = m }
}

// NewScorer creates a scorer. explainer may be nil, in which case reasons
// are left empty.
func NewScorer(explainer Explainer, opts ...Option) *Scorer {
	s := &Scorer{
		explainer: explainer,
		timeout:   DefaultExplainTimeout,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score filters, scores, orders and truncates the pool. It has no side
// effects and never calls the oracle.
func (s *Scorer) Score(rfq models.RFQ, pool []models.Supplier) []models.MatchCandidate {
	crop := models.NormalizeTag(rfq.Crop)
	destCountry := DestinationCountry(rfq.Destination)

	candidates := make([]models.MatchCandidate, 0, len(pool))
	for _, sp := range pool {
		if !sp.HasSpecialty(crop) {
			continue
		}
		candidates = append(candidates, models.MatchCandidate{
			Supplier: sp,
			Score:    CompositeScore(crop, destCountry, sp),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Supplier.TrustScore != b.Supplier.TrustScore {
			return a.Supplier.TrustScore > b.Supplier.TrustScore
		}
		return a.Supplier.ID < b.Supplier.ID
	})

	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}

// Rank scores the pool and then asks the oracle for a reason per candidate.
// Oracle errors and timeouts leave the reason empty; they never drop a
// candidate or change its score.
func (s *Scorer) Rank(ctx context.Context, rfq models.RFQ, pool []models.Supplier) []models.MatchCandidate {
	start := time.Now()
	defer func() { s.metrics.ObserveRank(time.Since(start)) }()

	candidates := s.Score(rfq, pool)
	if s.explainer == nil || len(candidates) == 0 {
		return candidates
	}

	var g errgroup.Group
	for i := range candidates {
		i := i
		g.Go(func() error {
			req := ExplainRequest{
				Crop:        models.NormalizeTag(rfq.Crop),
				Volume:      strings.TrimSpace(rfq.Volume.String() + " " + rfq.VolumeUnit),
				Destination: rfq.Destination,
				Incoterm:    string(rfq.Incoterm),
				Specs:       rfq.Instructions,
				Supplier:    candidates[i].Supplier,
				Score:       candidates[i].Score,
			}
			reason, err := s.explain(ctx, req)
			if err != nil {
				s.metrics.ExplanationFailed()
				s.log.Warn("explanation unavailable",
					zap.String("rfq_id", rfq.ID),
					zap.String("supplier_id", req.Supplier.ID),
					zap.Error(err))
				return nil
			}
			candidates[i].Reason = strings.TrimSpace(reason)
			return nil
		})
	}
	_ = g.Wait()
	return candidates
}

// explain bounds the oracle call even if the oracle ignores ctx.
func (s *Scorer) explain(ctx context.Context, req ExplainRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := s.explainer.Explain(ctx, req)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// CompositeScore returns the weighted score in [0,100], rounded to two
// decimals. sp must already be known to specialise in crop.
func CompositeScore(crop, destCountry string, sp models.Supplier) float64 {
	score := WeightSpecialty*specialtyStrength(crop, sp) +
		WeightOnTime*clamp(sp.OnTimeRate, 0, 1)*100 +
		WeightRegion*proximity(destCountry, sp) +
		WeightTrust*clamp(float64(sp.TrustScore), 0, 100)
	return math.Round(clamp(score, 0, 100)*100) / 100
}

func specialtyStrength(crop string, sp models.Supplier) float64 {
	if !sp.HasSpecialty(crop) {
		return 0
	}
	category := CategoryOf(crop)
	if category == "" || len(sp.Specialties) == 0 {
		return exactMatchScore
	}
	inCategory := 0
	for _, tag := range sp.Specialties {
		if CategoryOf(tag) == category {
			inCategory++
		}
	}
	return exactMatchScore + categoryBonus*float64(inCategory)/float64(len(sp.Specialties))
}

func proximity(destCountry string, sp models.Supplier) float64 {
	if destCountry == "" {
		return otherRegionScore
	}
	if models.NormalizeTag(sp.Country) == destCountry {
		return sameCountryScore
	}
	destRegion := RegionOf(destCountry)
	spRegion := models.NormalizeTag(sp.Region)
	if spRegion == "" {
		spRegion = RegionOf(sp.Country)
	}
	if destRegion != "" && spRegion == destRegion {
		return sameRegionScore
	}
	return otherRegionScore
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
