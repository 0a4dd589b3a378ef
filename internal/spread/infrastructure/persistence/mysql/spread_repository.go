// Package mysql 价差聚合的 GORM 仓储实现，兼容 MySQL、PostgreSQL 与 SQLite 方言
package mysql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/spreadhub/internal/spread/domain"
	"github.com/wyfcoding/spreadhub/pkg/contextx"
	"github.com/wyfcoding/spreadhub/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options 构造时注入的仓储配置
type Options struct {
	// 单页最大条数
	MaxPageSize int
}

type spreadRepository struct {
	db   *gorm.DB
	opts Options
	now  func() time.Time
}

// NewSpreadRepository 创建价差仓储实例
func NewSpreadRepository(db *gorm.DB, opts Options) domain.SpreadRepository {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = domain.DefaultPageSize
	}
	return &spreadRepository{db: db, opts: opts, now: time.Now}
}

func (r *spreadRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := contextx.GetTx(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// inTx 复用 context 中已有的事务，否则开启新事务
func (r *spreadRepository) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if contextx.GetTx(ctx) != nil {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

// List 先在同一事务内计数并取 id 页，再批量加载聚合；id 页为空时不做加载
func (r *spreadRepository) List(ctx context.Context, f *domain.Filter) (*domain.SpreadPage, error) {
	if f == nil {
		return nil, &domain.ValidationError{Field: "filter", Reason: "is required"}
	}
	if f.Limit <= 0 || f.Limit > r.opts.MaxPageSize {
		return nil, &domain.ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d, got %d", r.opts.MaxPageSize, f.Limit)}
	}
	if f.Offset < 0 {
		return nil, &domain.ValidationError{Field: "offset", Reason: fmt.Sprintf("must be >= 0, got %d", f.Offset)}
	}
	orderBy, err := normalizeSort(f.SortBy, f.OrderBy)
	if err != nil {
		return nil, &domain.ValidationError{Field: "order_by", Reason: err.Error(), Err: err}
	}

	page := &domain.SpreadPage{Spreads: []*domain.Spread{}}
	err = r.inTx(ctx, func(ctx context.Context) error {
		if err := r.getDB(ctx).Model(&SpreadModel{}).Scopes(filterScope(f)).Count(&page.TotalCount).Error; err != nil {
			return fmt.Errorf("failed to count spreads: %w", err)
		}

		var ids []string
		err := r.getDB(ctx).Model(&SpreadModel{}).
			Scopes(filterScope(f)).
			Order(orderBy).
			Limit(f.Limit).
			Offset(f.Offset).
			Pluck("spreads.id", &ids).Error
		if err != nil {
			return fmt.Errorf("failed to select spread ids: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		spreads, err := hydrate(r.getDB(ctx), ids)
		if err != nil {
			return fmt.Errorf("failed to load spreads: %w", err)
		}
		page.Spreads = spreads
		return nil
	})
	if err != nil {
		logger.Error(ctx, "spread_repository.List failed", "limit", f.Limit, "offset", f.Offset, "error", err)
		return nil, err
	}
	return page, nil
}

func (r *spreadRepository) Get(ctx context.Context, id string) (*domain.Spread, error) {
	var m SpreadModel
	err := r.getDB(ctx).
		Preload("Pair").
		Preload("Quotes", preloadQuotes).
		Where("spreads.id = ?", id).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "spread_repository.Get failed", "spread_id", id, "error", err)
		return nil, fmt.Errorf("failed to get spread: %w", err)
	}
	return toSpread(&m), nil
}

// Create 交易对先于价差写入并取得 id，价差与报价在同一事务内提交，提交后从存储重新加载
func (r *spreadRepository) Create(ctx context.Context, s *domain.Spread) (*domain.Spread, error) {
	var id string
	err := r.inTx(ctx, func(ctx context.Context) error {
		pairID, err := r.resolvePair(ctx, s.Pair)
		if err != nil {
			return err
		}

		row := toSpreadModel(s, pairID)
		row.ID = uuid.NewString()
		if row.Timestamp.IsZero() {
			row.Timestamp = r.now().UTC()
		}
		if err := r.getDB(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
			return fmt.Errorf("failed to insert spread: %w", err)
		}
		if err := r.insertQuotes(ctx, row.ID, s.CEX); err != nil {
			return err
		}
		id = row.ID
		return nil
	})
	if err != nil {
		logger.Error(ctx, "spread_repository.Create failed", "pair", s.Pair.Base+"/"+s.Pair.Quote, "error", err)
		return nil, err
	}
	return r.reload(ctx, id)
}

// Update 整体替换：标量列全部覆盖，报价先删后插，均在同一事务内
func (r *spreadRepository) Update(ctx context.Context, id string, s *domain.Spread) (*domain.Spread, error) {
	found := false
	err := r.inTx(ctx, func(ctx context.Context) error {
		var existing SpreadModel
		err := r.getDB(ctx).Select("id").Where("id = ?", id).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load spread: %w", err)
		}
		found = true

		pairID, err := r.resolvePair(ctx, s.Pair)
		if err != nil {
			return err
		}

		row := toSpreadModel(s, pairID)
		if row.Timestamp.IsZero() {
			row.Timestamp = r.now().UTC()
		}
		if err := r.getDB(ctx).Model(&SpreadModel{}).Where("id = ?", id).Updates(scalarColumns(row)).Error; err != nil {
			return fmt.Errorf("failed to update spread: %w", err)
		}

		if err := r.getDB(ctx).Where("spread_id = ?", id).Delete(&ExchangeQuoteModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete exchange quotes: %w", err)
		}
		return r.insertQuotes(ctx, id, s.CEX)
	})
	if err != nil {
		logger.Error(ctx, "spread_repository.Update failed", "spread_id", id, "error", err)
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return r.reload(ctx, id)
}

// Delete 先删报价再删价差；交易对保留
func (r *spreadRepository) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := r.inTx(ctx, func(ctx context.Context) error {
		if err := r.getDB(ctx).Where("spread_id = ?", id).Delete(&ExchangeQuoteModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete exchange quotes: %w", err)
		}
		res := r.getDB(ctx).Where("id = ?", id).Delete(&SpreadModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete spread: %w", res.Error)
		}
		found = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		logger.Error(ctx, "spread_repository.Delete failed", "spread_id", id, "error", err)
		return false, err
	}
	return found, nil
}

func (r *spreadRepository) ListExchanges(ctx context.Context) ([]string, error) {
	var names []string
	err := r.getDB(ctx).Model(&ExchangeQuoteModel{}).Distinct().Pluck("exchange_name", &names).Error
	if err != nil {
		logger.Error(ctx, "spread_repository.ListExchanges failed", "error", err)
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		name := domain.NormalizeExchangeName(n)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// resolvePair 按 (base, quote) 精确查找，不存在则插入；并发插入冲突时重新查询胜出行的 id
func (r *spreadRepository) resolvePair(ctx context.Context, p domain.Pair) (string, error) {
	var existing PairModel
	err := r.getDB(ctx).Where("base = ? AND quote = ?", p.Base, p.Quote).Take(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to find pair: %w", err)
	}

	candidate := &PairModel{ID: uuid.NewString(), Base: p.Base, Quote: p.Quote}
	if err := r.getDB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(candidate).Error; err != nil {
		return "", fmt.Errorf("failed to insert pair: %w", err)
	}

	var stored PairModel
	if err := r.getDB(ctx).Where("base = ? AND quote = ?", p.Base, p.Quote).Take(&stored).Error; err != nil {
		return "", fmt.Errorf("failed to resolve pair id: %w", err)
	}
	return stored.ID, nil
}

func (r *spreadRepository) insertQuotes(ctx context.Context, spreadID string, cex *domain.CEXData) error {
	rows := toQuoteModels(spreadID, cex)
	if len(rows) == 0 {
		return nil
	}
	if err := r.getDB(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert exchange quotes: %w", err)
	}
	return nil
}

// reload 写入后从存储重新加载，反映生成的 id 与默认值
func (r *spreadRepository) reload(ctx context.Context, id string) (*domain.Spread, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("spread %s not found after write", id)
	}
	return s, nil
}
