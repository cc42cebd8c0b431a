package bonus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/generic"
)

func TestFormatter_Currency(t *testing.T) {
	cases := []struct {
		locale string
		unit   generic.Unit
		value  string
		want   string
	}{
		{"pt-BR", generic.UnitBRL, "566.6666666666666667", "R$ 566,67"},
		{"pt-BR", generic.UnitBRL, "1234.565", "R$ 1.234,57"},
		{"en-US", generic.UnitUSD, "1234.5", "$ 1,234.50"},
		{"pt-BR", generic.UnitBRL, "0", "R$ 0,00"},
	}
	for _, tc := range cases {
		t.Run(tc.locale+"/"+tc.value, func(t *testing.T) {
			f, err := bonus.NewFormatter(tc.locale, tc.unit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, f.FormatCurrency(generic.NewAmountFromString(tc.value, tc.unit)))
		})
	}
}

func TestFormatter_UnknownSymbolFallsBackToCode(t *testing.T) {
	f, err := bonus.NewFormatter("en-US", generic.Unit("JPY"))
	require.NoError(t, err)
	assert.Equal(t, "JPY 10.00", f.FormatCurrency(generic.NewAmountFromString("10", "JPY")))
}

func TestFormatter_Rejects(t *testing.T) {
	_, err := bonus.NewFormatter("not a locale!!", generic.UnitBRL)
	assert.Error(t, err)

	_, err = bonus.NewFormatter("pt-BR", generic.Unit("XXXX"))
	assert.Error(t, err)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "100.0%", bonus.FormatPercent(dec("1")))
	assert.Equal(t, "70.0%", bonus.FormatPercent(dec("0.7")))
	assert.Equal(t, "0.0%", bonus.FormatPercent(dec("0")))
	assert.Equal(t, "33.3%", bonus.FormatPercent(dec("0.3333333333333333")))
}

func TestFormatter_Percent(t *testing.T) {
	br, err := bonus.NewFormatter("pt-BR", generic.UnitBRL)
	require.NoError(t, err)
	assert.Equal(t, "33,3%", br.FormatPercent(dec("0.3333333333333333")))
	assert.Equal(t, "100,0%", br.FormatPercent(dec("1")))
	assert.Equal(t, "R$ 0,13", br.FormatCurrency(generic.NewAmountFromString("0.125", generic.UnitBRL)))

	us, err := bonus.NewFormatter("en-US", generic.UnitUSD)
	require.NoError(t, err)
	assert.Equal(t, "66.7%", us.FormatPercent(dec("0.6666666666666667")))
}
