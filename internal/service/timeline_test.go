package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readleafapp/readleaf-server/internal/domain"
)

func entry(id, date string, page, pct int) *domain.ProgressLog {
	return &domain.ProgressLog{ID: id, ProgressDate: date, CurrentPage: page, CurrentPercentage: pct}
}

func TestValidateTimelineEmptySession(t *testing.T) {
	err := validateTimeline(nil, timelineCandidate{
		Date:  "2025-01-05",
		Value: domain.PageValue(100),
	})
	assert.Nil(t, err)
}

func TestValidateTimelineBetweenEntries(t *testing.T) {
	entries := []*domain.ProgressLog{
		entry("e1", "2025-01-01", 50, 16),
		entry("e2", "2025-01-10", 200, 66),
	}

	// 80 pages on Jan 5 sits between 50 and 200.
	err := validateTimeline(entries, timelineCandidate{
		Date:  "2025-01-05",
		Value: domain.PageValue(80),
	})
	assert.Nil(t, err)

	// 250 pages on Jan 5 exceeds the Jan 10 successor.
	err = validateTimeline(entries, timelineCandidate{
		Date:  "2025-01-05",
		Value: domain.PageValue(250),
	})
	require.NotNil(t, err)
	assert.Equal(t, "progress cannot exceed page 200, logged on 2025-01-10", err.Message)
	require.NotNil(t, err.Conflicting)
	assert.Equal(t, "e2", err.Conflicting.ID)

	// 30 pages on Jan 5 regresses below the Jan 1 predecessor.
	err = validateTimeline(entries, timelineCandidate{
		Date:  "2025-01-05",
		Value: domain.PageValue(30),
	})
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "cannot be less than page 50")
}

func TestValidateTimelinePercentageUnit(t *testing.T) {
	entries := []*domain.ProgressLog{
		entry("e1", "2025-01-01", 50, 16),
		entry("e2", "2025-01-10", 200, 66),
	}

	err := validateTimeline(entries, timelineCandidate{
		Date:  "2025-01-05",
		Value: domain.PercentageValue(80),
	})
	require.NotNil(t, err)
	assert.Equal(t, "progress cannot exceed 66%, logged on 2025-01-10", err.Message)
}

func TestValidateTimelineSameDateCoincident(t *testing.T) {
	entries := []*domain.ProgressLog{
		entry("e1", "2025-01-05", 100, 33),
	}

	// Same-day entries are excluded from the ordering check, so a lower
	// value on the same date is allowed to supersede.
	err := validateTimeline(entries, timelineCandidate{
		Date:  "2025-01-05",
		Value: domain.PageValue(40),
	})
	assert.Nil(t, err)
}

func TestValidateTimelineExcludesEditedEntry(t *testing.T) {
	entries := []*domain.ProgressLog{
		entry("e1", "2025-01-01", 50, 16),
		entry("e2", "2025-01-05", 100, 33),
		entry("e3", "2025-01-10", 200, 66),
	}

	// Editing e2 down to 60 stays valid against e1 and e3.
	err := validateTimeline(entries, timelineCandidate{
		Date:      "2025-01-05",
		Value:     domain.PageValue(60),
		ExcludeID: "e2",
	})
	assert.Nil(t, err)

	// But editing it above e3 fails.
	err = validateTimeline(entries, timelineCandidate{
		Date:      "2025-01-05",
		Value:     domain.PageValue(300),
		ExcludeID: "e2",
	})
	require.NotNil(t, err)
	assert.Equal(t, "e3", err.Conflicting.ID)
}

func TestValidateTimelineEqualValuesAllowed(t *testing.T) {
	entries := []*domain.ProgressLog{
		entry("e1", "2025-01-01", 50, 16),
	}

	// No progress is still monotone.
	err := validateTimeline(entries, timelineCandidate{
		Date:  "2025-01-02",
		Value: domain.PageValue(50),
	})
	assert.Nil(t, err)
}
