package matching_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"agrotrade/internal/matching"
	"agrotrade/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func cashewRFQ() models.RFQ {
	return models.RFQ{
		ID:           "rfq-x",
		BuyerID:      "buyer-1",
		Crop:         "CASHEWS",
		Volume:       decimal.NewFromInt(80),
		VolumeUnit:   "MT",
		Destination:  "Hamburg, DE",
		Incoterm:     models.IncotermCIF,
		Instructions: "W320 grade, moisture below 5%",
	}
}

func scenarioPool() []models.Supplier {
	return []models.Supplier{
		{ID: "sup-c", Specialties: []string{"CASHEWS", "GINGER", "COCOA"}, Region: "EAST_AFRICA", Country: "KE", OnTimeRate: 0.7, TrustScore: 60},
		{ID: "sup-d", Specialties: []string{"COCOA"}, Region: "WEST_AFRICA", Country: "GH", OnTimeRate: 0.99, TrustScore: 99},
		{ID: "sup-a", Specialties: []string{"CASHEWS"}, Region: "WEST_AFRICA", Country: "CI", OnTimeRate: 0.9, TrustScore: 80},
		{ID: "sup-e", Specialties: []string{"MAIZE"}, Region: "EUROPE", Country: "DE", OnTimeRate: 1, TrustScore: 100},
		{ID: "sup-b", Specialties: []string{"CASHEWS", "SESAME"}, Region: "EUROPE", Country: "NL", OnTimeRate: 0.95, TrustScore: 70},
	}
}

type explainerFunc func(ctx context.Context, req matching.ExplainRequest) (string, error)

func (f explainerFunc) Explain(ctx context.Context, req matching.ExplainRequest) (string, error) {
	return f(ctx, req)
}

func ids(cands []models.MatchCandidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Supplier.ID
	}
	return out
}

func TestRankCashewScenario(t *testing.T) {
	scorer := matching.NewScorer(nil)

	cands := scorer.Rank(context.Background(), cashewRFQ(), scenarioPool())
	require.Len(t, cands, 3)
	require.Equal(t, []string{"sup-b", "sup-a", "sup-c"}, ids(cands))
	for i, c := range cands {
		require.Equal(t, i+1, c.Rank)
		require.True(t, c.Supplier.HasSpecialty("CASHEWS"))
		require.GreaterOrEqual(t, c.Score, 0.0)
		require.LessOrEqual(t, c.Score, 100.0)
		if i > 0 {
			require.GreaterOrEqual(t, cands[i-1].Score, c.Score)
		}
	}
	require.InDelta(t, 80.5, cands[0].Score, 0.001)
	require.InDelta(t, 80.0, cands[1].Score, 0.001)
	require.InDelta(t, 63.0, cands[2].Score, 0.001)
}

func TestRankIsDeterministic(t *testing.T) {
	var calls atomic.Int64
	scorer := matching.NewScorer(explainerFunc(func(ctx context.Context, req matching.ExplainRequest) (string, error) {
		// reasons differ between runs; scores and ranks must not
		return fmt.Sprintf("call %d", calls.Add(1)), nil
	}))

	pool := scenarioPool()
	first := scorer.Rank(context.Background(), cashewRFQ(), pool)
	for i := 0; i < 20; i++ {
		// reversed input order must not matter either
		reversed := make([]models.Supplier, len(pool))
		for j := range pool {
			reversed[len(pool)-1-j] = pool[j]
		}
		next := scorer.Rank(context.Background(), cashewRFQ(), reversed)
		require.Equal(t, ids(first), ids(next))
		for j := range first {
			require.Equal(t, first[j].Score, next[j].Score)
			require.Equal(t, first[j].Rank, next[j].Rank)
		}
	}
}

func TestRankTruncatesToFive(t *testing.T) {
	var pool []models.Supplier
	for i := 0; i < 12; i++ {
		pool = append(pool, models.Supplier{
			ID:          fmt.Sprintf("sup-%02d", i),
			Specialties: []string{"CASHEWS"},
			Country:     "CI",
			OnTimeRate:  float64(i) / 12,
			TrustScore:  50,
		})
	}
	cands := matching.NewScorer(nil).Rank(context.Background(), cashewRFQ(), pool)
	require.Len(t, cands, matching.MaxCandidates)
	require.Equal(t, []string{"sup-11", "sup-10", "sup-09", "sup-08", "sup-07"}, ids(cands))
}

func TestRankNoMatchIsEmpty(t *testing.T) {
	pool := []models.Supplier{
		{ID: "sup-d", Specialties: []string{"COCOA"}},
		{ID: "sup-e", Specialties: []string{"MAIZE"}},
	}
	cands := matching.NewScorer(nil).Rank(context.Background(), cashewRFQ(), pool)
	require.NotNil(t, cands)
	require.Empty(t, cands)

	require.Empty(t, matching.NewScorer(nil).Rank(context.Background(), cashewRFQ(), nil))
}

func TestRankTieBreaks(t *testing.T) {
	pool := []models.Supplier{
		// identical suppliers: id ascending decides
		{ID: "sup-z", Specialties: []string{"CASHEWS"}, Country: "CI", OnTimeRate: 0.9, TrustScore: 80},
		{ID: "sup-y", Specialties: []string{"CASHEWS"}, Country: "CI", OnTimeRate: 0.9, TrustScore: 80},
		// same score as the two above with lower trust: trust descending decides
		{ID: "sup-a", Specialties: []string{"CASHEWS"}, Country: "CI", OnTimeRate: 1.0, TrustScore: 68},
	}
	cands := matching.NewScorer(nil).Score(cashewRFQ(), pool)
	require.Equal(t, cands[0].Score, cands[2].Score)
	require.Equal(t, []string{"sup-y", "sup-z", "sup-a"}, ids(cands))
}

func TestRankOracleFailureKeepsCandidates(t *testing.T) {
	scorer := matching.NewScorer(explainerFunc(func(ctx context.Context, req matching.ExplainRequest) (string, error) {
		if req.Supplier.ID == "sup-a" {
			return "", errors.New("model overloaded")
		}
		require.Equal(t, "CASHEWS", req.Crop)
		require.Equal(t, "80 MT", req.Volume)
		require.Equal(t, "Hamburg, DE", req.Destination)
		return " Good fit. ", nil
	}))

	cands := scorer.Rank(context.Background(), cashewRFQ(), scenarioPool())
	require.Equal(t, []string{"sup-b", "sup-a", "sup-c"}, ids(cands))
	require.Equal(t, "Good fit.", cands[0].Reason)
	require.Empty(t, cands[1].Reason)
	require.Equal(t, "Good fit.", cands[2].Reason)
}

func TestRankOracleTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	scorer := matching.NewScorer(explainerFunc(func(ctx context.Context, req matching.ExplainRequest) (string, error) {
		// ignores ctx on purpose
		<-block
		return "too late", nil
	}), matching.WithExplainTimeout(50*time.Millisecond))

	start := time.Now()
	cands := scorer.Rank(context.Background(), cashewRFQ(), scenarioPool())
	require.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, cands, 3)
	for _, c := range cands {
		require.Empty(t, c.Reason)
	}
}

func TestCompositeScoreRegionBuckets(t *testing.T) {
	base := models.Supplier{ID: "s", Specialties: []string{"CASHEWS"}, OnTimeRate: 0.5, TrustScore: 50}

	sameCountry := base
	sameCountry.Country = "DE"
	sameRegion := base
	sameRegion.Country = "NL"
	sameRegion.Region = "EUROPE"
	other := base
	other.Country = "VN"

	a := matching.CompositeScore("CASHEWS", "DE", sameCountry)
	b := matching.CompositeScore("CASHEWS", "DE", sameRegion)
	c := matching.CompositeScore("CASHEWS", "DE", other)
	require.Greater(t, a, b)
	require.Greater(t, b, c)
}

func TestCompositeScoreCategoryFocus(t *testing.T) {
	specialist := models.Supplier{ID: "s1", Specialties: []string{"CASHEWS", "ALMONDS"}, Country: "VN"}
	generalist := models.Supplier{ID: "s2", Specialties: []string{"CASHEWS", "MAIZE", "COTTON"}, Country: "VN"}
	require.Greater(t,
		matching.CompositeScore("CASHEWS", "DE", specialist),
		matching.CompositeScore("CASHEWS", "DE", generalist))
}

func TestDestinationCountry(t *testing.T) {
	require.Equal(t, "DE", matching.DestinationCountry("Hamburg, DE"))
	require.Equal(t, "NL", matching.DestinationCountry(" rotterdam ,nl "))
	require.Equal(t, "AE", matching.DestinationCountry("ae"))
	require.Equal(t, "", matching.DestinationCountry("Hamburg"))
	require.Equal(t, "EUROPE", matching.RegionOf("de"))
}
