package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOutcome(t *testing.T) {
	before := testutil.ToFloat64(Outcomes.WithLabelValues("diagnose", "ok"))
	ObserveOutcome("diagnose", "")
	assert.Equal(t, before+1, testutil.ToFloat64(Outcomes.WithLabelValues("diagnose", "ok")))

	beforeErr := testutil.ToFloat64(Outcomes.WithLabelValues("chat", "MODEL_ERROR"))
	ObserveOutcome("chat", "MODEL_ERROR")
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(Outcomes.WithLabelValues("chat", "MODEL_ERROR")))
}
