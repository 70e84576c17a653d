package marketrules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/bondlib/marketrules"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	rules, err := marketrules.Default()
	require.NoError(t, err)
	require.NotNil(t, rules)

	for _, market := range []string{"US", "EUR", "GB", "JP"} {
		_, err := rules.Convention(market)
		require.NoError(t, err, market)
	}
}

func TestSettlementLag(t *testing.T) {
	t.Parallel()

	rules, err := marketrules.Default()
	require.NoError(t, err)

	cases := []struct {
		market     string
		instrument marketrules.InstrumentType
		want       int
	}{
		{"US", marketrules.Government, 1},
		{"US", marketrules.Corporate, 2},
		{"US", marketrules.MoneyMkt, 0},
		{"EUR", marketrules.Government, 2},
		{"GB", marketrules.Government, 1},
		{"JP", marketrules.Corporate, 2},
	}
	for _, tc := range cases {
		got, err := rules.SettlementLag(tc.market, tc.instrument)
		require.NoError(t, err, "%s/%s", tc.market, tc.instrument)
		assert.Equal(t, tc.want, got, "%s/%s", tc.market, tc.instrument)
	}
}

func TestExDividendWindow(t *testing.T) {
	t.Parallel()

	rules, err := marketrules.Default()
	require.NoError(t, err)

	gb, err := rules.Convention("GB")
	require.NoError(t, err)
	assert.Equal(t, 7, gb.ExDividendBusinessDays)

	us, err := rules.Convention("US")
	require.NoError(t, err)
	assert.Zero(t, us.ExDividendBusinessDays)
}

func TestUnknownMarket(t *testing.T) {
	t.Parallel()

	rules, err := marketrules.Default()
	require.NoError(t, err)

	_, err = rules.Convention("KR")
	require.Error(t, err)
	_, err = rules.SettlementLag("KR", marketrules.Government)
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	t.Parallel()

	rules, err := marketrules.Parse([]byte(`
markets:
  XX:
    calendar: WEEKENDS
    settlement_days:
      government: 3
`))
	require.NoError(t, err)
	lag, err := rules.SettlementLag("XX", marketrules.Government)
	require.NoError(t, err)
	assert.Equal(t, 3, lag)

	// Missing cycle for an instrument type is an error, not a default.
	_, err = rules.SettlementLag("XX", marketrules.Corporate)
	require.Error(t, err)

	_, err = marketrules.Parse([]byte(`markets: {}`))
	require.Error(t, err)
	_, err = marketrules.Parse([]byte(`{invalid`))
	require.Error(t, err)
}
