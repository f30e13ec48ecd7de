package authority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescope/internal/domain"
)

func TestTrust(t *testing.T) {
	res := &domain.AnalysisResult{
		StartedAt:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Reputation: domain.Success(domain.Reputation{}),
		Archive:    domain.Success(domain.ArchiveHistory{Archived: true, FirstSnapshot: time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)}),
		DNS:        domain.Success(domain.DNSRecords{HasSPF: true, HasDMARC: true}),
		Index:      domain.Success(domain.IndexPresence{Indexed: true, ResultCount: 500}),
	}
	r := Trust{}.Report(res)
	assert.False(t, r.NoData)
	// 50 + 10 + min(10*3, 25) + 5 + 5 + 15
	assert.Equal(t, 100, r.Score)
	assert.Len(t, r.Signals, 5)
	assert.Equal(t, domain.BandGreen, r.Color())
}

func TestTrustFlagged(t *testing.T) {
	res := &domain.AnalysisResult{Reputation: domain.Success(domain.Reputation{Flagged: true})}
	r := Trust{}.Report(res)
	assert.Equal(t, 10, r.Score)
	assert.Equal(t, domain.BandRed, r.Color())
}

func TestNoData(t *testing.T) {
	reports := ReportAll(&domain.AnalysisResult{}, Default())
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.True(t, r.NoData, r.Name)
		assert.Equal(t, domain.BandNone, r.Color())
		assert.Empty(t, r.Details())
	}
}

func TestPresenceIgnoresUnreliableContent(t *testing.T) {
	res := &domain.AnalysisResult{
		CrawlReliable: false,
		Content:       domain.Success(domain.ContentFacts{SocialLinks: []string{"https://x.com/a"}}),
	}
	assert.True(t, Presence{}.Report(res).NoData)

	res.CrawlReliable = true
	r := Presence{}.Report(res)
	assert.False(t, r.NoData)
	assert.Equal(t, 45, r.Score)
}
