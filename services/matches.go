package services

import (
	"context"
	"time"

	"github.com/lborres/tipsapi/core"
	"github.com/lborres/tipsapi/pkg/logging"
	"go.uber.org/zap"
)

// MatchService serves the read-only match listing and detail views.
type MatchService struct {
	storage      core.MatchStorage
	queryTimeout time.Duration
	logger       *zap.Logger
}

func NewMatchService(storage core.MatchStorage, queryTimeout time.Duration, logger *zap.Logger) *MatchService {
	if queryTimeout <= 0 {
		queryTimeout = core.DefaultQueryTimeout
	}
	return &MatchService{
		storage:      storage,
		queryTimeout: queryTimeout,
		logger:       logging.OrNop(logger).Named("matches"),
	}
}

func (s *MatchService) List(ctx context.Context, q core.MatchQuery) (*core.MatchPage, error) {
	filter, page, err := q.Filter()
	if err != nil {
		return nil, err
	}

	var (
		items []*core.Match
		total int
	)
	if err := callStore(ctx, s.queryTimeout, "list matches", func(ctx context.Context) error {
		var err error
		items, total, err = s.storage.ListMatches(ctx, filter)
		return err
	}); err != nil {
		return nil, err
	}
	if items == nil {
		items = []*core.Match{}
	}

	return &core.MatchPage{
		Data:       items,
		Pagination: core.NewPagination(page, filter.Limit, total),
	}, nil
}

// Get returns the match with its related tips.
func (s *MatchService) Get(ctx context.Context, id string) (*core.MatchDetail, error) {
	var m *core.Match
	if err := callStore(ctx, s.queryTimeout, "get match", func(ctx context.Context) error {
		var err error
		m, err = s.storage.GetMatch(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}

	var tips []core.MatchTip
	if err := callStore(ctx, s.queryTimeout, "list match tips", func(ctx context.Context) error {
		var err error
		tips, err = s.storage.ListMatchTips(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}
	if tips == nil {
		tips = []core.MatchTip{}
	}

	return &core.MatchDetail{Match: m, RelatedTips: tips}, nil
}
