package prices

import (
	"math"
	"testing"

	"github.com/aristath/folio/internal/domain"
	testutil "github.com/aristath/folio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(date string, close float64) domain.PriceRecord {
	return domain.PriceRecord{Date: testutil.Day(date), Open: close, High: close, Low: close, Close: close}
}

func TestValidateBars_DropsInvalidCloses(t *testing.T) {
	v := NewPriceValidator(zerolog.Nop())

	out := v.ValidateBars("AAPL", []domain.PriceRecord{
		bar("2024-01-02", 100),
		bar("2024-01-03", math.NaN()),
		bar("2024-01-04", -5),
		bar("2024-01-05", 0),
		bar("2024-01-08", 101),
	})

	require.Len(t, out, 2)
	assert.Equal(t, 100.0, out[0].Close)
	assert.Equal(t, 101.0, out[1].Close)
}

func TestValidateBars_DropsSpikes(t *testing.T) {
	v := NewPriceValidator(zerolog.Nop())

	out := v.ValidateBars("AAPL", []domain.PriceRecord{
		bar("2024-01-02", 100),
		bar("2024-01-03", 5000), // +4900%
		bar("2024-01-04", 5),    // -95%
		bar("2024-01-05", 102),
	})

	require.Len(t, out, 2)
	assert.Equal(t, testutil.Day("2024-01-05"), out[1].Date)
}

func TestEnsureOHLCConsistency(t *testing.T) {
	fixed := ensureOHLCConsistency(domain.PriceRecord{Open: 0, High: 90, Low: 120, Close: 100, Volume: -1})

	assert.Equal(t, 100.0, fixed.Open)
	assert.Equal(t, 100.0, fixed.High)
	assert.Equal(t, 100.0, fixed.Low)
	assert.Equal(t, int64(0), fixed.Volume)

	fixed = ensureOHLCConsistency(domain.PriceRecord{Open: 95, High: 99, Low: 97, Close: 100})
	assert.Equal(t, 100.0, fixed.High)
	assert.Equal(t, 95.0, fixed.Low)
}
