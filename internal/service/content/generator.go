// Package content writes platform posts with an OpenAI-compatible chat model, biased by what the
// learning cycle has found to perform well.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/davidleathers/aurelius-backend/internal/domain/errors"
	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/aurelius-backend/internal/metrics"
	"github.com/davidleathers/aurelius-backend/internal/service/learning"
)

const (
	postTemperature  = 0.9
	postMaxTokens    = 150
	defaultCharLimit = 280
)

var charLimits = map[records.Platform]int{
	records.PlatformTwitter:  280,
	records.PlatformMastodon: 500,
	records.PlatformDiscord:  2000,
}

// CharLimit is the longest post a platform accepts
func CharLimit(platform records.Platform) int {
	if limit, ok := charLimits[platform]; ok {
		return limit
	}
	return defaultCharLimit
}

// ChatCompleter is the part of the OpenAI client the generator uses
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Optimizer supplies learned content hints
type Optimizer interface {
	ApplyLearnedOptimizations(contentType string, platform records.Platform) learning.Optimizations
}

// NewClient creates an OpenAI client from configuration. An empty BaseURL keeps the public API.
func NewClient(cfg config.OpenAIConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// Generator writes social posts
type Generator struct {
	client    ChatCompleter
	optimizer Optimizer
	limiter   *rate.Limiter
	model     string
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Registry
	tracer    trace.Tracer
}

// NewGenerator creates a Generator. Requests are spread to at most cfg.RequestsPerMinute per
// minute; zero disables throttling. optimizer and m may be nil.
func NewGenerator(client ChatCompleter, optimizer Optimizer, cfg config.OpenAIConfig, logger *zap.Logger, m *metrics.Registry) *Generator {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}

	return &Generator{
		client:    client,
		optimizer: optimizer,
		limiter:   rate.NewLimiter(limit, 1),
		model:     model,
		timeout:   cfg.Timeout,
		logger:    logger.Named("content"),
		metrics:   m,
		tracer:    telemetry.Tracer("aurelius/content"),
	}
}

// Prompt is a chat request before it is sent
type Prompt struct {
	System string
	User   string
}

// BuildPostPrompt renders the prompt for a post about topic
func BuildPostPrompt(topic string, platform records.Platform, opts learning.Optimizations) Prompt {
	limit := CharLimit(platform)

	var b strings.Builder
	fmt.Fprintf(&b, "You are a social media expert. Create %s posts for %s that:\n", opts.ContentStyle, platform)
	fmt.Fprintf(&b, "- Stay under %d characters\n", limit)
	if lo, hi := opts.OptimalLength[0], opts.OptimalLength[1]; hi > 0 && lo <= hi {
		fmt.Fprintf(&b, "- Aim for %d to %d characters\n", lo, min(hi, limit))
	}
	if len(opts.RecommendedKeywords) > 0 {
		fmt.Fprintf(&b, "- Work in some of these keywords where natural: %s\n", strings.Join(opts.RecommendedKeywords, ", "))
	}
	b.WriteString("- Include relevant hashtags (2-3 max)\n")
	b.WriteString("- Encourage interaction\n")
	b.WriteString("- Avoid controversial topics\n")

	return Prompt{
		System: b.String(),
		User:   fmt.Sprintf("Create a %s post about: %s", platform, topic),
	}
}

// Post generates a post about topic for platform
func (g *Generator) Post(ctx context.Context, topic string, platform records.Platform) (string, error) {
	topic = Sanitize(topic)
	if topic == "" {
		return "", errors.NewValidationError("EMPTY_TOPIC", "topic cannot be empty")
	}
	if !platform.Valid() {
		return "", errors.NewValidationError("INVALID_PLATFORM", fmt.Sprintf("unknown platform %q", platform))
	}

	ctx, span := g.tracer.Start(ctx, "content.Post",
		trace.WithAttributes(attribute.String("content.platform", platform.String())))
	defer span.End()

	opts := learning.Optimizations{
		RecommendedKeywords: []string{},
		OptimalLength:       learning.DefaultOptimalLength,
		ContentStyle:        learning.DefaultContentStyle,
	}
	if g.optimizer != nil {
		opts = g.optimizer.ApplyLearnedOptimizations("post", platform)
	}

	text, err := g.complete(ctx, BuildPostPrompt(topic, platform, opts))
	if err != nil {
		telemetry.RecordError(span, err)
		g.metrics.RecordContentRequest(platform.String(), metrics.OutcomeFailure)
		g.logger.Error("failed to generate post", zap.String("platform", platform.String()), zap.Error(err))
		return "", err
	}

	post := Truncate(text, CharLimit(platform))
	g.metrics.RecordContentRequest(platform.String(), metrics.OutcomeSuccess)
	g.logger.Info("generated post",
		zap.String("platform", platform.String()),
		zap.String("style", opts.ContentStyle),
		zap.Int("length", utf8.RuneCountInString(post)))

	return post, nil
}

func (g *Generator) complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for request budget: %w", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: Sanitize(prompt.System)},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: postTemperature,
		MaxTokens:   postMaxTokens,
	})
	if err != nil {
		return "", errors.NewExternalError("openai", "chat completion failed").WithCause(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.NewExternalError("openai", "no completion choices returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.NewExternalError("openai", "empty completion returned")
	}
	return text, nil
}

var injectionPatterns = []string{
	"javascript:", "data:", "vbscript:", "onload=", "onerror=",
	"<script", "</script>", "eval(", "settimeout(", "setinterval(",
}

// Sanitize removes markup and script injection fragments from text sent to the model
func Sanitize(text string) string {
	text = stripTags(text)
	for {
		cut := false
		for _, pattern := range injectionPatterns {
			if i := indexFold(text, pattern); i >= 0 {
				text = text[:i] + text[i+len(pattern):]
				cut = true
				break
			}
		}
		if !cut {
			break
		}
	}
	return strings.TrimSpace(text)
}

// indexFold is strings.Index ignoring ASCII case
func indexFold(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

func stripTags(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Truncate cuts text to at most limit characters, preferring the last word boundary
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)[:limit]
	cut := string(runes)
	if i := strings.LastIndexAny(cut, " \n"); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
