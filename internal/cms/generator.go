package cms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/dayplan/internal/ai"
	"github.com/nhle/dayplan/internal/model"
)

// ErrGenerationFailed marks a failed model call or an unusable reply.
var ErrGenerationFailed = errors.New("generation failed")

// ErrNotConfigured is returned when no model is available. Posts are left
// untouched and no retry is charged.
var ErrNotConfigured = errors.New("post generation is not configured")

// maxTopicsPerTheme bounds a single topic request.
const maxTopicsPerTheme = 10

// PostStore is the slice of the store the generator needs.
type PostStore interface {
	GetPost(ctx context.Context, userID, id string) (*model.Post, error)
	CreatePosts(ctx context.Context, posts []model.Post) ([]model.Post, error)
	MarkPostGenerating(ctx context.Context, userID, id string, now time.Time) error
	CompletePostGeneration(ctx context.Context, userID, id, title, body string) error
	FailPostGeneration(ctx context.Context, userID, id, reason string, maxRetries int) (string, error)
}

// Generator writes post bodies with the language model.
type Generator struct {
	store       PostStore
	ai          ai.Completer
	maxRetries  int
	concurrency int
	logger      *zap.Logger
}

// NewGenerator creates a Generator. completer may be nil when no API key is
// configured; every call then returns ErrNotConfigured.
func NewGenerator(s PostStore, completer ai.Completer, cfg model.GenerationConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{
		store:       s,
		ai:          completer,
		maxRetries:  cfg.MaxRetries,
		concurrency: cfg.TopicConcurrency,
		logger:      logger.Named("generator"),
	}
	if g.maxRetries <= 0 {
		g.maxRetries = 3
	}
	if g.concurrency <= 0 {
		g.concurrency = 1
	}
	return g
}

// Configured reports whether a model is available.
func (g *Generator) Configured() bool {
	return g.ai != nil
}

// Generate produces the body of a post and publishes it. A post that is
// not yet generating is claimed first. When the model call fails the
// attempt is charged against the post's retries.
func (g *Generator) Generate(ctx context.Context, userID, postID string) (*model.Post, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}
	if err := g.store.MarkPostGenerating(ctx, userID, postID, time.Now()); err != nil {
		return nil, fmt.Errorf("claiming post %s: %w", postID, err)
	}
	post, err := g.store.GetPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	log := g.logger.With(zap.String("post_id", postID), zap.String("user_id", userID))
	generated, genErr := g.write(ctx, post.Topic)
	if genErr != nil {
		status, err := g.store.FailPostGeneration(context.WithoutCancel(ctx), userID, postID, genErr.Error(), g.maxRetries)
		if err != nil {
			return nil, fmt.Errorf("recording failed generation of post %s: %w", postID, err)
		}
		log.Warn("post generation failed", zap.String("status", status), zap.Error(genErr))
		return nil, fmt.Errorf("generating post %s: %w: %w", postID, ErrGenerationFailed, genErr)
	}

	if err := g.store.CompletePostGeneration(ctx, userID, postID, generated.Title, generated.Body); err != nil {
		return nil, err
	}
	log.Info("post published", zap.String("title", generated.Title))
	return g.store.GetPost(ctx, userID, postID)
}

func (g *Generator) write(ctx context.Context, topic string) (ai.GeneratedPost, error) {
	resp, err := g.ai.Complete(ctx, ai.PostSystemPrompt, ai.BuildPostPrompt(topic))
	if err != nil {
		return ai.GeneratedPost{}, err
	}
	return ai.ParsePost(resp)
}

// GenerateTopics asks the model for perTheme topics for each theme, with at
// most the configured number of requests in flight, and stores every topic
// as a draft post in one batch. Posts are returned grouped by theme in input
// order.
func (g *Generator) GenerateTopics(ctx context.Context, userID string, themes []string, perTheme int) ([]model.Post, error) {
	if len(themes) == 0 {
		return nil, model.Invalid("themes", "must not be empty")
	}
	if perTheme < 1 || perTheme > maxTopicsPerTheme {
		return nil, model.Invalid("count", "must be between 1 and %d", maxTopicsPerTheme)
	}
	for i, th := range themes {
		if strings.TrimSpace(th) == "" {
			return nil, model.Invalid("themes", "entry %d is empty", i)
		}
	}
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	topics := make([][]string, len(themes))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, theme := range themes {
		eg.Go(func() error {
			resp, err := g.ai.Complete(egCtx, ai.PostSystemPrompt, ai.BuildTopicsPrompt(theme, perTheme))
			if err != nil {
				return fmt.Errorf("topics for %q: %w", theme, err)
			}
			list, err := ai.ParseTopics(resp, perTheme)
			if err != nil {
				return fmt.Errorf("topics for %q: %w", theme, err)
			}
			topics[i] = list
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("generating topics: %w: %w", ErrGenerationFailed, err)
	}

	var drafts []model.Post
	for _, list := range topics {
		for _, topic := range list {
			drafts = append(drafts, model.Post{UserID: userID, Topic: topic})
		}
	}
	posts, err := g.store.CreatePosts(ctx, drafts)
	if err != nil {
		return nil, fmt.Errorf("storing topics: %w", err)
	}
	g.logger.Info("topics generated",
		zap.String("user_id", userID), zap.Int("themes", len(themes)), zap.Int("posts", len(posts)))
	return posts, nil
}
