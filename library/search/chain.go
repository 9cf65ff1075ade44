package search

import (
	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	appLog "github.com/Laisky/wechat-article-search/library/log"
)

// Role names what part of a result page a selector strategy targets.
type Role string

const (
	RoleContainer   Role = "result_container"
	RoleTitle       Role = "article_title"
	RoleDescription Role = "description"
	RoleMeta        Role = "meta_info"
	RoleWait        Role = "wait"
	RoleFallback    Role = "fallback"
)

// Selector is an immutable CSS selector bound to the role it serves.
type Selector struct {
	Pattern string
	Role    Role
}

// Strategy is one prioritized attempt of a Chain.
// Apply reports ok=false when the strategy does not match its input.
type Strategy[In, Out any] struct {
	Name  string
	Apply func(In) (Out, bool)
}

// ChainOption customises a Chain during construction.
type ChainOption func(*chainConfig)

type chainConfig struct {
	logger logSDK.Logger
}

// WithChainLogger overrides the logger used to trace strategy attempts.
func WithChainLogger(logger logSDK.Logger) ChainOption {
	return func(c *chainConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Chain runs its strategies in priority order and commits to the first one
// that matches. Matches are never merged across strategies.
type Chain[In, Out any] struct {
	name       string
	strategies []Strategy[In, Out]
	logger     logSDK.Logger
}

// NewChain constructs a Chain from the given strategies, skipping entries without Apply.
func NewChain[In, Out any](name string, strategies []Strategy[In, Out], opts ...ChainOption) (*Chain[In, Out], error) {
	cleaned := make([]Strategy[In, Out], 0, len(strategies))
	for _, s := range strategies {
		if s.Apply == nil {
			continue
		}
		cleaned = append(cleaned, s)
	}
	if len(cleaned) == 0 {
		return nil, errors.Errorf("chain %q requires at least one strategy", name)
	}

	cfg := &chainConfig{logger: appLog.Logger.Named("strategy_chain")}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Chain[In, Out]{
		name:       name,
		strategies: cleaned,
		logger:     cfg.logger.With(zap.String("chain", name)),
	}, nil
}

// Name returns the chain identifier.
func (c *Chain[In, Out]) Name() string {
	return c.name
}

// Len returns the number of strategies in the chain.
func (c *Chain[In, Out]) Len() int {
	return len(c.strategies)
}

// Run applies strategies in order and returns the first match together with
// the name of the strategy that produced it. A panicking strategy counts as a miss.
func (c *Chain[In, Out]) Run(in In) (out Out, matched string, ok bool) {
	for idx, strategy := range c.strategies {
		result, hit, err := c.apply(strategy, in)
		if err != nil {
			c.logger.Warn("strategy failed",
				zap.String("strategy", strategy.Name),
				zap.Int("priority", idx),
				zap.Error(err))
			continue
		}
		if !hit {
			c.logger.Debug("strategy missed",
				zap.String("strategy", strategy.Name),
				zap.Int("priority", idx))
			continue
		}

		c.logger.Debug("strategy matched",
			zap.String("strategy", strategy.Name),
			zap.Int("priority", idx))
		return result, strategy.Name, true
	}

	return out, "", false
}

func (c *Chain[In, Out]) apply(strategy Strategy[In, Out], in In) (out Out, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("strategy panic: %v", r)
			ok = false
		}
	}()

	out, ok = strategy.Apply(in)
	return out, ok, nil
}
