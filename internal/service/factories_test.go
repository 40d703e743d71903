package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
	"github.com/davidleathers/aurelius-backend/internal/metrics"
	"github.com/davidleathers/aurelius-backend/internal/service/learning"
	"github.com/davidleathers/aurelius-backend/internal/service/scheduler"
	tu "github.com/davidleathers/aurelius-backend/internal/testutil"
)

func taskNames(tasks []scheduler.Task) []string {
	names := make([]string, 0, len(tasks))
	for _, task := range tasks {
		names = append(names, task.Name)
	}
	return names
}

func TestNewServices(t *testing.T) {
	ctx := tu.TestContext(t)
	store := tu.NewTestStore(t)

	t.Run("without an OpenAI key", func(t *testing.T) {
		cfg := config.Defaults()
		svcs := NewServices(ctx, cfg, store, zap.NewNop(), metrics.NewRegistry())

		require.NotNil(t, svcs.Analytics)
		require.NotNil(t, svcs.Learning)
		assert.Nil(t, svcs.Content)
		assert.Equal(t, learning.StateIdle, svcs.Learning.State())

		assert.Equal(t, []string{scheduler.TaskAnalytics, scheduler.TaskLearning, scheduler.TaskHealth},
			taskNames(svcs.Tasks(cfg.Scheduler, zap.NewNop())))
	})

	t.Run("with an OpenAI key", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.OpenAI.APIKey = "sk-test"
		svcs := NewServices(ctx, cfg, store, zap.NewNop(), nil)

		require.NotNil(t, svcs.Content)
		tasks := svcs.Tasks(cfg.Scheduler, zap.NewNop())
		require.Len(t, tasks, 4)
		assert.Equal(t, scheduler.TaskContent, tasks[3].Name)
		assert.Equal(t, cfg.Scheduler.ContentInterval, tasks[3].Interval)
	})
}
