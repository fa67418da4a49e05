package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/angola-gov/vigilancia/internal/case/domain"
)

func TestAgeGroupBoundaries(t *testing.T) {
	tests := []struct {
		age  int
		want string
	}{
		{0, "0-17"},
		{17, "0-17"},
		{18, "18-35"},
		{35, "18-35"},
		{36, "36-50"},
		{50, "36-50"},
		{51, "51-65"},
		{65, "51-65"},
		{66, "65+"},
		{90, "65+"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AgeGroupFor(tt.age), "age %d", tt.age)
	}
}

func TestBucketAgesIncludesEmptyGroups(t *testing.T) {
	now := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	dates := []domain.Date{
		domain.NewDate(2010, time.January, 1),   // 15
		domain.NewDate(2000, time.January, 1),   // 25
		domain.NewDate(1995, time.December, 31), // 29
	}

	counts := BucketAges(dates, now)

	assert.Len(t, counts, len(AgeGroups))
	assert.Equal(t, "0-17", counts[0].AgeGroup)
	assert.Equal(t, int64(1), counts[0].Total)
	assert.Equal(t, int64(2), counts[1].Total)
	assert.Equal(t, int64(0), counts[2].Total)
	assert.Equal(t, int64(0), counts[3].Total)
	assert.Equal(t, int64(0), counts[4].Total)
}

func TestBucketAgesOrderIsStable(t *testing.T) {
	counts := BucketAges(nil, time.Now())
	for i, group := range AgeGroups {
		assert.Equal(t, group, counts[i].AgeGroup)
	}
}

func TestClampTimelineDays(t *testing.T) {
	assert.Equal(t, 30, ClampTimelineDays(0), "default window")
	assert.Equal(t, 30, ClampTimelineDays(-5), "negative falls back to default")
	assert.Equal(t, 7, ClampTimelineDays(7))
	assert.Equal(t, 365, ClampTimelineDays(365))
	assert.Equal(t, 365, ClampTimelineDays(4000), "cap at one year")
}
