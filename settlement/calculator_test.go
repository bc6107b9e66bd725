package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/ledger"
)

func TestAccount_EmptyWorkLog(t *testing.T) {
	a := Account{}

	assert.True(t, a.Earned().IsZero())
	assert.True(t, a.Remitted().IsZero())
	assert.True(t, a.Payable().IsZero())
	assert.Equal(t, StatusUnremitted, a.Status(), "nothing ever paid means unremitted")
}

func TestAccount_EarnedAndRemitted(t *testing.T) {
	// GIVEN: 60 minutes, +5.00 and -2.00 adjustments, items in every status
	f := newFixture(t)
	f.user("u1")
	f.worklog("w1", "u1")
	f.segments("w1", 10, 20, 30)
	f.adjust("w1", "5.00", "-2.00")
	f.remit("u1", "w1", ledger.RemittanceSuccess, "10.00")
	f.remit("u1", "w1", ledger.RemittanceFailed, "20.00")
	f.remit("u1", "w1", ledger.RemittanceCancelled, "5.00")

	// WHEN
	a, err := LoadAccount(f.ctx, f.store, "w1")
	require.NoError(t, err)

	// THEN: only the SUCCESS item counts
	assert.Equal(t, "33.00", a.Earned().StringFixed(2))
	assert.Equal(t, "10.00", a.Remitted().StringFixed(2))
	assert.Equal(t, "23.00", a.Payable().StringFixed(2))
	assert.Equal(t, StatusUnremitted, a.Status())
}

func TestAccount_PayableFlooredAtZero(t *testing.T) {
	// GIVEN: earned 10.00, remitted 15.00 (over-paid)
	f := newFixture(t)
	f.user("u1")
	f.worklog("w1", "u1")
	f.segments("w1", 20)
	f.remit("u1", "w1", ledger.RemittanceSuccess, "15.00")

	a, err := LoadAccount(f.ctx, f.store, "w1")
	require.NoError(t, err)

	assert.True(t, a.Payable().IsZero())
	assert.Equal(t, StatusRemitted, a.Status())
}

func TestAccount_NegativeAdjustmentsSummedAsIs(t *testing.T) {
	// GIVEN: a refund larger than the worked time
	f := newFixture(t)
	f.user("u1")
	f.worklog("w1", "u1")
	f.segments("w1", 10)
	f.adjust("w1", "-8.00")

	a, err := LoadAccount(f.ctx, f.store, "w1")
	require.NoError(t, err)

	assert.Equal(t, "-3.00", a.Earned().StringFixed(2))
	assert.True(t, a.Payable().IsZero())
	assert.Equal(t, StatusUnremitted, a.Status(), "no successful remittance yet")
}

func TestAccount_ZeroMinuteSegments(t *testing.T) {
	f := newFixture(t)
	f.user("u1")
	f.worklog("w1", "u1")
	f.segments("w1", 0, 0)

	a, err := LoadAccount(f.ctx, f.store, "w1")
	require.NoError(t, err)
	assert.True(t, a.Earned().IsZero())
}

func TestAccount_StatusFlipsOnNewWork(t *testing.T) {
	// GIVEN: a fully remitted work-log
	f := newFixture(t)
	f.user("u1")
	f.worklog("w1", "u1")
	f.segments("w1", 20)
	f.remit("u1", "w1", ledger.RemittanceSuccess, "10.00")

	a, err := LoadAccount(f.ctx, f.store, "w1")
	require.NoError(t, err)
	require.Equal(t, StatusRemitted, a.Status())

	// WHEN: one more minute is logged
	f.segments("w1", 1)

	// THEN
	a, err = LoadAccount(f.ctx, f.store, "w1")
	require.NoError(t, err)
	assert.Equal(t, "0.50", a.Payable().StringFixed(2))
	assert.Equal(t, StatusUnremitted, a.Status())
}

func TestAggregations_UnknownWorkLog(t *testing.T) {
	f := newFixture(t)

	_, err := TotalEarned(f.ctx, f.store, "missing")
	assert.ErrorIs(t, err, ledger.ErrWorkLogNotFound)

	_, err = TotalRemitted(f.ctx, f.store, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = PayableAmount(f.ctx, f.store, "missing")
	assert.True(t, ledger.IsNotFound(err))
}

func TestAggregations_MatchAccount(t *testing.T) {
	f := newFixture(t)
	f.user("u1")
	f.worklog("w1", "u1")
	f.segments("w1", 30)
	f.remit("u1", "w1", ledger.RemittanceSuccess, "4.00")

	earned, err := TotalEarned(f.ctx, f.store, "w1")
	require.NoError(t, err)
	remitted, err := TotalRemitted(f.ctx, f.store, "w1")
	require.NoError(t, err)
	payable, err := PayableAmount(f.ctx, f.store, "w1")
	require.NoError(t, err)

	assert.Equal(t, "15.00", earned.StringFixed(2))
	assert.Equal(t, "4.00", remitted.StringFixed(2))
	assert.Equal(t, "11.00", payable.StringFixed(2))
}
