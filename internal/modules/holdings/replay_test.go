package holdings

import (
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func day(s string) time.Time {
	t, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func aaplLedger(t *testing.T) *domain.Ledger {
	t.Helper()
	ledger, err := domain.NewLedger([]domain.TransactionEvent{
		{Date: day("2023-01-01"), Symbol: "AAPL", Action: domain.ActionBuy, Quantity: f(10), Price: f(150), Amount: -1500},
		{Date: day("2023-06-01"), Symbol: "AAPL", Action: domain.ActionSell, Quantity: f(5), Price: f(180), Amount: 900},
	})
	require.NoError(t, err)
	return ledger
}

func TestHoldingsAt_RoundTrip(t *testing.T) {
	ledger := aaplLedger(t)

	assert.Equal(t, domain.HoldingsSnapshot{"AAPL": 10}, HoldingsAt(ledger, day("2023-03-01")))
	assert.Equal(t, domain.HoldingsSnapshot{"AAPL": 5}, HoldingsAt(ledger, day("2023-12-31")))
	assert.Empty(t, HoldingsAt(ledger, day("2022-12-31")))
}

func TestHoldingsAt_IncludesEventsOnDate(t *testing.T) {
	ledger := aaplLedger(t)
	assert.Equal(t, domain.HoldingsSnapshot{"AAPL": 5}, HoldingsAt(ledger, day("2023-06-01")))
}

func TestCurrentHoldings(t *testing.T) {
	assert.Equal(t, domain.HoldingsSnapshot{"AAPL": 5}, CurrentHoldings(aaplLedger(t)))
	assert.Empty(t, CurrentHoldings(nil))
}

func TestHoldingsAt_NonQuantityActionsAreNoops(t *testing.T) {
	ledger, err := domain.NewLedger([]domain.TransactionEvent{
		{Date: day("2023-01-01"), Symbol: "AAPL", Action: domain.ActionBuy, Quantity: f(10), Price: f(150)},
		{Date: day("2023-02-01"), Symbol: "AAPL", Action: domain.ActionDividend, Quantity: f(3), Amount: 5},
		{Date: day("2023-03-01"), Symbol: "AAPL", Action: domain.ActionSplit, Quantity: f(10)},
		{Date: day("2023-04-01"), Symbol: "AAPL", Action: domain.ActionTransfer, Quantity: f(1), Amount: 100},
		{Date: day("2023-05-01"), Action: domain.ActionTransfer, Amount: 1000},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.HoldingsSnapshot{"AAPL": 10}, CurrentHoldings(ledger))
}

func TestHoldingsAt_EpsilonDropsClosedPositions(t *testing.T) {
	ledger, err := domain.NewLedger([]domain.TransactionEvent{
		{Date: day("2023-01-01"), Symbol: "BTC", Action: domain.ActionBuy, Quantity: f(0.1), Price: f(20000)},
		{Date: day("2023-01-02"), Symbol: "BTC", Action: domain.ActionBuy, Quantity: f(0.2), Price: f(20000)},
		{Date: day("2023-01-03"), Symbol: "BTC", Action: domain.ActionSell, Quantity: f(0.3), Price: f(21000)},
		{Date: day("2023-01-03"), Symbol: "ETH", Action: domain.ActionBuy, Quantity: f(0.0000005), Price: f(1500)},
		{Date: day("2023-01-03"), Symbol: "MSFT", Action: domain.ActionBuy, Quantity: f(1), Price: f(250)},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.HoldingsSnapshot{"MSFT": 1}, CurrentHoldings(ledger))
}

func TestHoldingsAt_ShortPositionIsSigned(t *testing.T) {
	ledger, err := domain.NewLedger([]domain.TransactionEvent{
		{Date: day("2023-01-01"), Symbol: "TSLA", Action: domain.ActionSell, Quantity: f(2), Price: f(100)},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.HoldingsSnapshot{"TSLA": -2}, CurrentHoldings(ledger))
}

func TestReplayer_AppliesEachEventOnce(t *testing.T) {
	ledger := aaplLedger(t)
	r := NewReplayer(ledger)

	assert.Equal(t, domain.HoldingsSnapshot{"AAPL": 10}, r.AdvanceTo(day("2023-03-01")))
	assert.Equal(t, 1, r.Applied())
	assert.Equal(t, domain.HoldingsSnapshot{"AAPL": 10}, r.AdvanceTo(day("2023-03-01")))
	assert.Equal(t, 1, r.Applied())
	assert.Equal(t, domain.HoldingsSnapshot{"AAPL": 5}, r.AdvanceTo(day("2023-07-01")))
	assert.Equal(t, 2, r.Applied())

	// no rewind
	assert.Equal(t, domain.HoldingsSnapshot{"AAPL": 5}, r.AdvanceTo(day("2023-01-01")))
}

func TestReplayer_MatchesHoldingsAt(t *testing.T) {
	ledger := aaplLedger(t)
	r := NewReplayer(ledger)

	for d := day("2022-12-25"); d.Before(day("2023-07-01")); d = d.AddDate(0, 0, 9) {
		assert.Equal(t, HoldingsAt(ledger, d), r.AdvanceTo(d), d.Format(domain.DateLayout))
	}
}

func TestHoldingsAt_Deterministic(t *testing.T) {
	ledger := aaplLedger(t)
	first := HoldingsAt(ledger, day("2023-12-31"))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, HoldingsAt(ledger, day("2023-12-31")))
	}
}
