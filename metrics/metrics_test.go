package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSwipe(t *testing.T) {
	likes := testutil.ToFloat64(SurveySwipes.WithLabelValues("like"))
	dislikes := testutil.ToFloat64(SurveySwipes.WithLabelValues("dislike"))

	RecordSwipe(true)
	RecordSwipe(true)
	RecordSwipe(false)

	assert.Equal(t, likes+2, testutil.ToFloat64(SurveySwipes.WithLabelValues("like")))
	assert.Equal(t, dislikes+1, testutil.ToFloat64(SurveySwipes.WithLabelValues("dislike")))
}

func TestRecordCache(t *testing.T) {
	before := testutil.ToFloat64(CacheLookups.WithLabelValues("user", "hit"))

	RecordCache("user", true)

	assert.Equal(t, before+1, testutil.ToFloat64(CacheLookups.WithLabelValues("user", "hit")))
}
