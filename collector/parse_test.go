package collector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-digest/collector"
	"review-digest/config"
)

func TestParseReviewMissingFields(t *testing.T) {
	sel := config.Default().Collector.Selectors

	review, err := collector.ParseReview(`<div class="col EPCmJX Ma1fCG"><p class="z9E0IG">Just a title</p></div>`, sel)
	require.NoError(t, err)
	assert.Equal(t, "", review.UserRating)
	assert.Equal(t, "Just a title", review.Title)
	assert.Nil(t, review.Comment, "missing comment element is recorded as nil")

	review, err = collector.ParseReview(`<div><div class="ZmyHeo"></div></div>`, sel)
	require.NoError(t, err)
	require.NotNil(t, review.Comment)
	assert.Equal(t, "", *review.Comment)
}

func TestParseAggregate(t *testing.T) {
	sel := config.Default().Collector.Selectors

	agg, err := collector.ParseAggregate(`<div class="col-4-12 F2+K4v">
<div class="ipqd2A">4.3<img src="star.svg"></div>
<div><span>1,02,311 Ratings &amp;</span><span>5,164 Reviews</span></div>
</div>`, sel)
	require.NoError(t, err)
	assert.Equal(t, "4.3", agg.OverallRating)
	assert.Equal(t, "1,02,311 Ratings &", agg.TotalRatings)

	agg, err = collector.ParseAggregate(`<div></div>`, sel)
	require.NoError(t, err)
	assert.Empty(t, agg.OverallRating)
	assert.Empty(t, agg.TotalRatings)
}
