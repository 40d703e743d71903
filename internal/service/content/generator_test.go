package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/davidleathers/aurelius-backend/internal/domain/errors"
	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
	"github.com/davidleathers/aurelius-backend/internal/metrics"
	"github.com/davidleathers/aurelius-backend/internal/service/learning"
	tu "github.com/davidleathers/aurelius-backend/internal/testutil"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

type staticOptimizer learning.Optimizations

func (o staticOptimizer) ApplyLearnedOptimizations(string, records.Platform) learning.Optimizations {
	return learning.Optimizations(o)
}

func completion(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}}},
	}
}

func requestCount(t *testing.T, reg *metrics.Registry, platform, outcome string) float64 {
	t.Helper()
	return tu.MetricValue(t, reg.Gatherer(), "aurelius_content_generation_requests_total",
		map[string]string{"platform": platform, "outcome": outcome})
}

func TestCharLimit(t *testing.T) {
	assert.Equal(t, 280, CharLimit(records.PlatformTwitter))
	assert.Equal(t, 500, CharLimit(records.PlatformMastodon))
	assert.Equal(t, 2000, CharLimit(records.PlatformDiscord))
	assert.Equal(t, 280, CharLimit("unknown"))
}

func TestBuildPostPrompt(t *testing.T) {
	prompt := BuildPostPrompt("our spring course", records.PlatformMastodon, learning.Optimizations{
		RecommendedKeywords: []string{"course", "launch"},
		OptimalLength:       [2]int{120, 600},
		ContentStyle:        "announcement",
	})

	assert.Contains(t, prompt.System, "Create announcement posts for mastodon")
	assert.Contains(t, prompt.System, "Stay under 500 characters")
	assert.Contains(t, prompt.System, "Aim for 120 to 500 characters")
	assert.Contains(t, prompt.System, "course, launch")
	assert.Equal(t, "Create a mastodon post about: our spring course", prompt.User)

	bare := BuildPostPrompt("x", records.PlatformTwitter, learning.Optimizations{ContentStyle: "general"})
	assert.NotContains(t, bare.System, "keywords")
	assert.NotContains(t, bare.System, "Aim for")
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain topic", "plain topic"},
		{"<b>bold</b> move", "bold move"},
		{"<SCRIPT>alert(1)</script>", "alert(1)"},
		{"click JavaScript:void", "click void"},
		{"eval(eval(x))", "x))"},
		{"  spaced  ", "spaced"},
		{"<script", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "hello brave", Truncate("hello brave new world", 12))
	assert.Equal(t, "hello braven", Truncate("hello bravenewworld", 12), "a boundary in the first half is ignored")
	assert.Equal(t, "abcdefgh", Truncate("abcdefghij", 8))
	assert.Equal(t, "ééé", Truncate("ééééé", 3))
}

func TestGenerator_Post(t *testing.T) {
	ctx := tu.TestContext(t)
	client := &mockCompleter{}
	reg := metrics.NewRegistry()
	optimizer := staticOptimizer{
		RecommendedKeywords: []string{"course"},
		OptimalLength:       [2]int{80, 120},
		ContentStyle:        "promotional",
	}

	long := strings.Repeat("word ", 100)
	client.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-test" &&
			req.MaxTokens == postMaxTokens &&
			len(req.Messages) == 2 &&
			strings.Contains(req.Messages[0].Content, "Create promotional posts for twitter") &&
			strings.Contains(req.Messages[0].Content, "course") &&
			req.Messages[1].Content == "Create a twitter post about: spring sale"
	})).Return(completion("  "+long+"  "), nil).Once()

	gen := NewGenerator(client, optimizer, config.OpenAIConfig{Model: "gpt-test"}, zaptest.NewLogger(t), reg)

	post, err := gen.Post(ctx, "<i>spring sale</i>", records.PlatformTwitter)
	require.NoError(t, err)

	assert.LessOrEqual(t, utf8.RuneCountInString(post), 280)
	assert.True(t, strings.HasPrefix(post, "word word"))
	assert.False(t, strings.HasSuffix(post, " "))
	assert.Equal(t, 1.0, requestCount(t, reg, "twitter", metrics.OutcomeSuccess))
	client.AssertExpectations(t)
}

func TestGenerator_PostValidation(t *testing.T) {
	ctx := tu.TestContext(t)
	client := &mockCompleter{}
	gen := NewGenerator(client, nil, config.OpenAIConfig{}, zap.NewNop(), nil)

	_, err := gen.Post(ctx, "  <br>  ", records.PlatformTwitter)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = gen.Post(ctx, "topic", "myspace")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	client.AssertNotCalled(t, "CreateChatCompletion", mock.Anything, mock.Anything)
}

func TestGenerator_PostFailures(t *testing.T) {
	ctx := tu.TestContext(t)

	tests := []struct {
		name string
		resp openai.ChatCompletionResponse
		err  error
	}{
		{"api error", openai.ChatCompletionResponse{}, errors.New("429 too many requests")},
		{"no choices", openai.ChatCompletionResponse{}, nil},
		{"blank content", completion("   "), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockCompleter{}
			client.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(tt.resp, tt.err)
			reg := metrics.NewRegistry()

			gen := NewGenerator(client, nil, config.OpenAIConfig{}, zap.NewNop(), reg)
			post, err := gen.Post(ctx, "topic", records.PlatformDiscord)

			assert.Empty(t, post)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
			assert.Equal(t, 1.0, requestCount(t, reg, "discord", metrics.OutcomeFailure))
		})
	}
}

func TestGenerator_Throttled(t *testing.T) {
	client := &mockCompleter{}
	client.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(completion("ok"), nil)

	gen := NewGenerator(client, nil, config.OpenAIConfig{RequestsPerMinute: 1}, zap.NewNop(), nil)

	_, err := gen.Post(tu.TestContext(t), "first", records.PlatformTwitter)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = gen.Post(ctx, "second", records.PlatformTwitter)
	require.Error(t, err)
	client.AssertNumberOfCalls(t, "CreateChatCompletion", 1)
}

func TestGenerator_OpenAIClient(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("Our new course is live! #learning"))
	}))
	defer server.Close()

	cfg := config.OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1", Model: "gpt-4o-mini", Timeout: 5 * time.Second}
	gen := NewGenerator(NewClient(cfg), nil, cfg, zap.NewNop(), nil)

	post, err := gen.Post(tu.TestContext(t), "the new course", records.PlatformMastodon)
	require.NoError(t, err)

	assert.Equal(t, "Our new course is live! #learning", post)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, "Create a mastodon post about: the new course", got.Messages[1].Content)
	assert.Contains(t, got.Messages[0].Content, "Aim for 100 to 200 characters")
}
