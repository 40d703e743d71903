package main

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
	"github.com/davidleathers/aurelius-backend/internal/service"
	"github.com/davidleathers/aurelius-backend/internal/service/analytics"
	"github.com/davidleathers/aurelius-backend/internal/service/learning"
	tu "github.com/davidleathers/aurelius-backend/internal/testutil"
	"github.com/davidleathers/aurelius-backend/internal/testutil/fixtures"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-period", "weekly"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "weekly", opts.period)

	opts, err = parseFlags([]string{"-draft", "launch", "-platform", "discord"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "discord", opts.platform)

	_, err = parseFlags(nil, io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-learn", "-status"}, io.Discard)
	assert.Error(t, err)
}

func newServices(t *testing.T) *service.Services {
	t.Helper()
	store := tu.NewTestStore(t)
	fixtures.NewInteraction(t, records.PlatformTwitter).WithContent("Thank you all for the launch").Seed(store)
	fixtures.NewPaymentEvent(t, "payment_completed").WithAmount("25.00").Seed(store)

	return service.NewServices(tu.TestContext(t), config.Defaults(), store, zap.NewNop(), nil)
}

func TestExecute(t *testing.T) {
	ctx := tu.TestContext(t)
	svcs := newServices(t)

	t.Run("period", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, execute(ctx, options{period: "bogus"}, svcs, &out))

		var report analytics.Report
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		assert.Equal(t, analytics.PeriodDaily, report.Period)
		assert.Equal(t, 1, report.SocialMedia[records.PlatformTwitter].PostsCreated)
	})

	t.Run("learn then status", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, execute(ctx, options{learn: true}, svcs, &out))

		var summary learning.CycleSummary
		require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
		assert.Equal(t, len(summary.Insights), summary.InsightsGenerated)

		out.Reset()
		require.NoError(t, execute(ctx, options{status: true}, svcs, &out))

		var status learning.Status
		require.NoError(t, json.Unmarshal(out.Bytes(), &status))
		assert.Equal(t, 1, status.TotalCycles)
		assert.NotEqual(t, learning.NeverRun, status.LastLearningCycle)
	})

	t.Run("trends", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, execute(ctx, options{trends: 3}, svcs, &out))
		assert.Contains(t, out.String(), "daily_metrics")
	})

	t.Run("draft without key", func(t *testing.T) {
		err := execute(ctx, options{draft: "launch", platform: "twitter"}, svcs, io.Discard)
		assert.ErrorContains(t, err, "openai.api_key")
	})
}
