package mysql

import (
	"fmt"

	"github.com/wyfcoding/spreadhub/internal/spread/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var sortColumns = map[domain.SortBy]string{
	domain.SortTopSpread: "spread_percent",
	domain.SortLiquidity: "liquidity",
	domain.SortFDV:       "fdv",
	domain.SortDays:      "days_on_market",
}

// normalizeSort 解析为 (列, 方向)，并以 id 作为同方向的次级排序键，保证分页稳定。
// 未知排序字段回落到 spread_percent；方向只接受 asc/desc。
func normalizeSort(sortBy domain.SortBy, orderBy domain.OrderBy) (clause.OrderBy, error) {
	var desc bool
	switch orderBy {
	case domain.OrderAsc:
	case domain.OrderDesc:
		desc = true
	default:
		return clause.OrderBy{}, fmt.Errorf("%w: %q", domain.ErrInvalidSortDirection, orderBy)
	}

	col, ok := sortColumns[sortBy]
	if !ok {
		col = sortColumns[domain.SortTopSpread]
	}

	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Table: "spreads", Name: col}, Desc: desc},
		{Column: clause.Column{Table: "spreads", Name: "id"}, Desc: desc},
	}}, nil
}

// filterScope 只作用于 spreads 表；交易所条件用 EXISTS 子查询表达，父行不会因多条报价被重复。
// 名称比较前去空白并转小写，与 ListExchanges 的归一化一致
func filterScope(f *domain.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if names := f.Exchanges(); len(names) > 0 {
			sub := db.Session(&gorm.Session{NewDB: true}).
				Table("exchange_quotes").
				Select("1").
				Where("exchange_quotes.spread_id = spreads.id").
				Where("LOWER(TRIM(exchange_quotes.exchange_name)) IN ?", names)
			db = db.Where("EXISTS (?)", sub)
		}
		if network, ok := f.NetworkValue(); ok {
			db = db.Where("spreads.network = ?", network)
		}
		db = between(db, "spreads.spread_percent", f.FromSpread, f.ToSpread)
		db = between(db, "spreads.liquidity", f.FromLiquidity, f.ToLiquidity)
		db = between(db, "spreads.fdv", f.FromFDV, f.ToFDV)
		return db
	}
}

// between 上下界各自独立、闭区间
func between(db *gorm.DB, column string, from, to *float64) *gorm.DB {
	if from != nil {
		db = db.Where(column+" >= ?", *from)
	}
	if to != nil {
		db = db.Where(column+" <= ?", *to)
	}
	return db
}

// preloadQuotes 报价按写入顺序加载
func preloadQuotes(db *gorm.DB) *gorm.DB {
	return db.Order("exchange_quotes.seq ASC").Order("exchange_quotes.id ASC")
}

// hydrate 按 id 集合一次性加载价差、交易对与报价（每个关联一条 IN 查询），并按 ids 的顺序返回
func hydrate(db *gorm.DB, ids []string) ([]*domain.Spread, error) {
	var rows []SpreadModel
	err := db.Preload("Pair").
		Preload("Quotes", preloadQuotes).
		Where("spreads.id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*SpreadModel, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	out := make([]*domain.Spread, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, toSpread(m))
		}
	}
	return out, nil
}
