package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }
func strp(v string) *string { return &v }
func floatp(v float64) *float64 { return &v }

func TestNewFilterDefaults(t *testing.T) {
	f, err := NewFilter(FilterParams{}, 100)
	require.NoError(t, err)

	assert.Equal(t, 100, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, SortTopSpread, f.SortBy)
	assert.Equal(t, OrderAsc, f.OrderBy)
	assert.Nil(t, f.Exchanges())
}

func TestNewFilterDefaultLimitFollowsSmallerCeiling(t *testing.T) {
	f, err := NewFilter(FilterParams{}, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, f.Limit)
}

func TestNewFilterRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		p     FilterParams
		field string
	}{
		{"zero limit", FilterParams{Limit: intp(0)}, "limit"},
		{"limit above ceiling", FilterParams{Limit: intp(101)}, "limit"},
		{"negative offset", FilterParams{Offset: intp(-1)}, "offset"},
		{"unknown sort", FilterParams{SortBy: "volume"}, "sort_by"},
		{"unknown order", FilterParams{OrderBy: "up"}, "order_by"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFilter(tc.p, 100)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestNewFilterOrderByFailsLoudly(t *testing.T) {
	_, err := NewFilter(FilterParams{OrderBy: "DESC"}, 100)
	assert.ErrorIs(t, err, ErrInvalidSortDirection)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewFilterBoundaries(t *testing.T) {
	f, err := NewFilter(FilterParams{Limit: intp(1), Offset: intp(0)}, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Limit)

	f, err = NewFilter(FilterParams{Limit: intp(100), SortBy: "sortDays", OrderBy: "desc"}, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, f.Limit)
	assert.Equal(t, SortDays, f.SortBy)
	assert.Equal(t, OrderDesc, f.OrderBy)
}

func TestNewFilterAcceptsInvertedRange(t *testing.T) {
	f, err := NewFilter(FilterParams{FromSpread: floatp(5), ToSpread: floatp(1)}, 100)
	require.NoError(t, err)
	assert.Equal(t, 5.0, *f.FromSpread)
	assert.Equal(t, 1.0, *f.ToSpread)
}

func TestFilterExchanges(t *testing.T) {
	f, err := NewFilter(FilterParams{Exchanges: strp(" Binance, ,BYBIT ,kraken,")}, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"binance", "bybit", "kraken"}, f.Exchanges())

	f, err = NewFilter(FilterParams{Exchanges: strp(" , ")}, 100)
	require.NoError(t, err)
	assert.Empty(t, f.Exchanges())
}

func TestFilterNetworkValue(t *testing.T) {
	f := &Filter{Network: strp("")}
	_, ok := f.NetworkValue()
	assert.False(t, ok)

	f.Network = strp("SOLANA")
	v, ok := f.NetworkValue()
	assert.True(t, ok)
	assert.Equal(t, "SOLANA", v)
}
