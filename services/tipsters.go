package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lborres/tipsapi/core"
	"github.com/lborres/tipsapi/pkg/logging"
	"go.uber.org/zap"
)

type TipsterService struct {
	storage      core.TipsterStorage
	queryTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewTipsterService(storage core.TipsterStorage, queryTimeout time.Duration, logger *zap.Logger) *TipsterService {
	if queryTimeout <= 0 {
		queryTimeout = core.DefaultQueryTimeout
	}
	return &TipsterService{
		storage:      storage,
		queryTimeout: queryTimeout,
		logger:       logging.OrNop(logger).Named("tipsters"),
		now:          time.Now,
	}
}

func (s *TipsterService) List(ctx context.Context, q core.TipsterQuery) (*core.TipsterPage, error) {
	filter, page, err := q.Filter()
	if err != nil {
		return nil, err
	}

	var (
		items []*core.Tipster
		total int
	)
	if err := callStore(ctx, s.queryTimeout, "list tipsters", func(ctx context.Context) error {
		var err error
		items, total, err = s.storage.ListTipsters(ctx, filter)
		return err
	}); err != nil {
		return nil, err
	}
	if items == nil {
		items = []*core.Tipster{}
	}

	return &core.TipsterPage{
		Data:       items,
		Pagination: core.NewPagination(page, filter.Limit, total),
	}, nil
}

func (s *TipsterService) Get(ctx context.Context, id string) (*core.Tipster, error) {
	var t *core.Tipster
	err := callStore(ctx, s.queryTimeout, "get tipster", func(ctx context.Context) error {
		var err error
		t, err = s.storage.GetTipster(ctx, id)
		return err
	})
	return t, err
}

// Create stores a new tipster. A missing id defaults to tipster_<unix millis>.
func (s *TipsterService) Create(ctx context.Context, input core.TipsterInput) (*core.Tipster, error) {
	if err := input.ValidateCreate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &core.Tipster{
		ID:          fmt.Sprintf("tipster_%d", now.UnixMilli()),
		Name:        strings.TrimSpace(*input.Name),
		URL:         input.URL,
		Type:        input.Type,
		Platform:    input.Platform,
		TrackedData: input.TrackedData,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.ID != nil {
		t.ID = strings.TrimSpace(*input.ID)
	}

	if err := callStore(ctx, s.queryTimeout, "create tipster", func(ctx context.Context) error {
		return s.storage.CreateTipster(ctx, t)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("tipster created", zap.String("tipster_id", t.ID))
	return t, nil
}

// Update applies the present fields of input and returns the stored result.
func (s *TipsterService) Update(ctx context.Context, id string, input core.TipsterInput) (*core.Tipster, error) {
	patch, err := input.Patch()
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}

	if err := callStore(ctx, s.queryTimeout, "update tipster", func(ctx context.Context) error {
		return s.storage.UpdateTipster(ctx, id, patch)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("tipster updated", zap.String("tipster_id", id))
	return s.Get(ctx, id)
}

func (s *TipsterService) Delete(ctx context.Context, id string) error {
	if err := callStore(ctx, s.queryTimeout, "delete tipster", func(ctx context.Context) error {
		return s.storage.DeleteTipster(ctx, id)
	}); err != nil {
		return err
	}

	s.logger.Info("tipster deleted", zap.String("tipster_id", id))
	return nil
}
