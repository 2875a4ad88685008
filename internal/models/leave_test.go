package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestLeaveBalanceAvailable(t *testing.T) {
	b := LeaveBalance{OpeningBalance: dec("12"), Used: dec("4.5"), Adjustments: dec("1")}
	assert.True(t, b.Available().Equal(dec("8.5")))
	assert.True(t, b.CanApprove(dec("8.5")))
	assert.False(t, b.CanApprove(dec("9")))

	overdrawn := LeaveBalance{OpeningBalance: dec("2"), Used: dec("3")}
	assert.True(t, overdrawn.Available().Equal(dec("-1")))
	assert.False(t, overdrawn.CanApprove(dec("0.5")))
}

func TestLeaveBalanceDisplayAvailable(t *testing.T) {
	fresh := LeaveBalance{OpeningBalance: dec("90")}
	assert.True(t, fresh.DisplayAvailable("Maternity Leave (ML)").Equal(dec("90")))
	assert.True(t, fresh.DisplayAvailable("Leave Without Pay (LWP)").Equal(dec("90")))

	used := LeaveBalance{OpeningBalance: dec("90"), Used: dec("10")}
	assert.True(t, used.DisplayAvailable("Maternity Leave (ML)").Equal(dec("80")))

	casual := LeaveBalance{OpeningBalance: dec("12"), Adjustments: dec("-2")}
	assert.True(t, casual.DisplayAvailable("Casual Leave (CL)").Equal(dec("10")))
}

func TestLeaveRecordEffectiveDays(t *testing.T) {
	assert.True(t, LeaveRecord{}.EffectiveDays().Equal(dec("1")))
	assert.True(t, LeaveRecord{Days: decimal.NewNullDecimal(decimal.Zero)}.EffectiveDays().Equal(dec("1")))
	assert.True(t, LeaveRecord{Days: decimal.NewNullDecimal(dec("-2"))}.EffectiveDays().Equal(dec("1")))
	assert.True(t, LeaveRecord{Days: decimal.NewNullDecimal(dec("2.5"))}.EffectiveDays().Equal(dec("2.5")))
}

func TestLeaveRecordLedgerYear(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	legacy := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2024, LeaveRecord{StartDate: &start, Date: &legacy, CreatedAt: created}.LedgerYear(now))
	assert.Equal(t, 2023, LeaveRecord{Date: &legacy, CreatedAt: created}.LedgerYear(now))
	assert.Equal(t, 2022, LeaveRecord{CreatedAt: created}.LedgerYear(now))
	assert.Equal(t, 2026, LeaveRecord{}.LedgerYear(now))
}

func TestDefaultAffectsBalance(t *testing.T) {
	assert.False(t, DefaultAffectsBalance("Leave Without Pay (LWP)"))
	assert.False(t, DefaultAffectsBalance("lwp"))
	assert.False(t, DefaultAffectsBalance("Leave without pay"))
	// substring match, case-insensitive: any name containing lwp is exempt
	assert.False(t, DefaultAffectsBalance("Slwpx"))
	assert.False(t, DefaultAffectsBalance("Unpaid (LWP) extension"))
	assert.True(t, DefaultAffectsBalance("Casual Leave (CL)"))
	assert.True(t, DefaultAffectsBalance("Maternity Leave (ML)"))
}

func TestLeaveStatusTransitionable(t *testing.T) {
	assert.True(t, LeaveStatusApproved.Transitionable())
	assert.True(t, LeaveStatusPending.Transitionable())
	assert.True(t, LeaveStatusRejected.Transitionable())
	assert.False(t, LeaveStatusEscalated.Transitionable())
	assert.True(t, LeaveStatusEscalated.Valid())
	assert.False(t, LeaveStatus("cancelled").Valid())
}
