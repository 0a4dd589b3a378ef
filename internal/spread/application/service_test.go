package application

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/spreadhub/internal/spread/domain"
	"github.com/wyfcoding/spreadhub/pkg/metrics"
)

func TestMain(m *testing.M) {
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

type fakeRepo struct {
	spreads    map[string]*domain.Spread
	lastFilter *domain.Filter
	listCalls  int
	err        error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{spreads: map[string]*domain.Spread{}}
}

func (r *fakeRepo) List(_ context.Context, f *domain.Filter) (*domain.SpreadPage, error) {
	r.listCalls++
	r.lastFilter = f
	if r.err != nil {
		return nil, r.err
	}
	page := &domain.SpreadPage{Spreads: []*domain.Spread{}}
	for _, s := range r.spreads {
		page.Spreads = append(page.Spreads, s)
	}
	page.TotalCount = int64(len(page.Spreads))
	return page, nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (*domain.Spread, error) {
	return r.spreads[id], r.err
}

func (r *fakeRepo) Create(_ context.Context, s *domain.Spread) (*domain.Spread, error) {
	if r.err != nil {
		return nil, r.err
	}
	cp := *s
	cp.ID = "generated"
	r.spreads[cp.ID] = &cp
	return &cp, nil
}

func (r *fakeRepo) Update(_ context.Context, id string, s *domain.Spread) (*domain.Spread, error) {
	if r.err != nil {
		return nil, r.err
	}
	if _, ok := r.spreads[id]; !ok {
		return nil, nil
	}
	cp := *s
	cp.ID = id
	r.spreads[id] = &cp
	return &cp, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.spreads[id]
	delete(r.spreads, id)
	return ok, nil
}

func (r *fakeRepo) ListExchanges(context.Context) ([]string, error) {
	return []string{"binance"}, r.err
}

type fakePublisher struct {
	events []domain.SpreadChangedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e domain.SpreadChangedEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func strp(v string) *string { return &v }
func f64p(v float64) *float64 { return &v }
func i64p(v int64) *int64 { return &v }
func intp(v int) *int { return &v }
func decp(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func validInput() *SpreadInput {
	return &SpreadInput{
		Network:       "ETH",
		SpreadPercent: f64p(1.03),
		Price1:        decp("2971.5"),
		Pair:          &PairDTO{Base: "ETH", Quote: "USDT"},
		Direction:     &DirectionDTO{From: strp("CEX"), To: strp("DEX")},
		Liquidity:     i64p(1234567),
		FDV:           i64p(100000000),
		DaysOnMarket:  i64p(30),
		CEX: &CEXDTO{
			Spot: []QuoteDTO{
				{ExchangeName: "binance", ExchangeKind: "futures", Profit: decp("1.05")},
				{ExchangeName: "bybit"},
			},
		},
	}
}

func TestCreateSpreadPublishesEvent(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	m := metrics.New("test")
	svc := NewSpreadService(repo, pub, 100, m)

	out, err := svc.CreateSpread(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "generated", out.ID)

	stored := repo.spreads["generated"]
	require.NotNil(t, stored.CEX)
	require.Len(t, stored.CEX.Spot, 2)
	// 分组决定类别，请求中的 exchange_kind 被忽略
	assert.Equal(t, domain.KindSpot, stored.CEX.Spot[0].Kind)
	assert.Empty(t, stored.CEX.Futures)
	assert.True(t, stored.Timestamp.IsZero())

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.SpreadCreatedEventType, pub.events[0].Type)
	assert.Equal(t, 2, pub.events[0].SpotCount)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SpreadWritesTotal.WithLabelValues("create", "ok")))
}

func TestCreateSpreadEmptyGroupsHasNoCEX(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSpreadService(repo, nil, 100, nil)

	in := validInput()
	in.CEX = &CEXDTO{}
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	in.Timestamp = &ts

	out, err := svc.CreateSpread(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, out.CEX)
	assert.Equal(t, time.UTC, repo.spreads["generated"].Timestamp.Location())
}

func TestCreateSpreadPublishFailureKeepsWrite(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{err: errors.New("kafka down")}
	svc := NewSpreadService(repo, pub, 100, metrics.New("test"))

	out, err := svc.CreateSpread(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Contains(t, repo.spreads, "generated")
}

func TestCreateSpreadRejectsInvalidInput(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSpreadService(repo, nil, 100, nil)

	in := validInput()
	in.Pair = nil
	_, err := svc.CreateSpread(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in = validInput()
	in.CEX.Futures = []QuoteDTO{{ExchangeName: "  "}}
	_, err = svc.CreateSpread(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateSpread(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, repo.spreads)
}

func TestCreateSpreadRepoError(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("db down")
	m := metrics.New("test")
	pub := &fakePublisher{}
	svc := NewSpreadService(repo, pub, 100, m)

	_, err := svc.CreateSpread(context.Background(), validInput())
	assert.ErrorIs(t, err, repo.err)
	assert.Empty(t, pub.events)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SpreadWritesTotal.WithLabelValues("create", "error")))
}

func TestUpdateSpread(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewSpreadService(repo, pub, 100, nil)

	out, err := svc.UpdateSpread(context.Background(), "missing", validInput())
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Empty(t, pub.events)

	repo.spreads["s1"] = &domain.Spread{ID: "s1"}
	out, err = svc.UpdateSpread(context.Background(), "s1", validInput())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "s1", out.ID)
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.SpreadUpdatedEventType, pub.events[0].Type)
}

func TestDeleteSpread(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewSpreadService(repo, pub, 100, nil)

	ok, err := svc.DeleteSpread(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, pub.events)

	repo.spreads["s1"] = &domain.Spread{ID: "s1"}
	ok, err = svc.DeleteSpread(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.SpreadDeletedEventType, pub.events[0].Type)
	assert.Equal(t, "s1", pub.events[0].SpreadID)
}

func TestListSpreadsValidatesBeforeStorage(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSpreadService(repo, nil, 100, nil)

	_, err := svc.ListSpreads(context.Background(), ListSpreadsQuery{Limit: intp(0)})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.ListSpreads(context.Background(), ListSpreadsQuery{OrderBy: "up"})
	assert.ErrorIs(t, err, domain.ErrInvalidSortDirection)
	_, err = svc.ListSpreads(context.Background(), ListSpreadsQuery{Limit: intp(101)})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, repo.listCalls)

	repo.spreads["s1"] = &domain.Spread{ID: "s1"}
	out, err := svc.ListSpreads(context.Background(), ListSpreadsQuery{Limit: intp(5), SortBy: "liquidity", OrderBy: "desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.TotalCount)
	require.Len(t, out.Spreads, 1)
	assert.Equal(t, 5, repo.lastFilter.Limit)
	assert.Equal(t, domain.SortLiquidity, repo.lastFilter.SortBy)
	assert.Equal(t, domain.OrderDesc, repo.lastFilter.OrderBy)
}

func TestListSpreadsEmptyEncodesAsArray(t *testing.T) {
	svc := NewSpreadService(newFakeRepo(), nil, 100, nil)
	out, err := svc.ListSpreads(context.Background(), ListSpreadsQuery{})
	require.NoError(t, err)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"spreads":[],"total_count":0}`, string(data))
}

func TestGetSpreadAndExchanges(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSpreadService(repo, nil, 100, nil)

	out, err := svc.GetSpread(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, out)

	names, err := svc.ListExchanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"binance"}, names)
}

func TestSpreadDTOUsesWireAliases(t *testing.T) {
	s := &domain.Spread{
		ID:            "s1",
		Pair:          domain.Pair{ID: "p1", Base: "ETH", Quote: "USDT"},
		SpreadPercent: 1.5,
		Price1:        decp("2971.50"),
		DaysOnMarket:  i64p(30),
		Timestamp:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CEX: &domain.CEXData{
			Spot:    []domain.ExchangeQuote{{ID: "q1", ExchangeName: "binance", Kind: domain.KindSpot, Volume: decp("10")}},
			Futures: []domain.ExchangeQuote{},
		},
	}
	data, err := json.Marshal(ToSpreadDTO(s))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 1.5, raw["spread"])
	assert.Equal(t, float64(30), raw["days"])
	assert.Equal(t, 2971.5, raw["price_1"])

	cex := raw["cex"].(map[string]any)
	spot := cex["spot"].([]any)
	require.Len(t, spot, 1)
	q := spot[0].(map[string]any)
	assert.Equal(t, "binance", q["exchange"])
	assert.Equal(t, "spot", q["exchange_kind"])
	assert.Equal(t, float64(10), q["vol"])
	assert.Equal(t, []any{}, cex["futures"])
}
