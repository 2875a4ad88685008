package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LeaveStatus enumerates the lifecycle states of a leave application.
type LeaveStatus string

const (
	LeaveStatusPending   LeaveStatus = "pending"
	LeaveStatusApproved  LeaveStatus = "approved"
	LeaveStatusRejected  LeaveStatus = "rejected"
	LeaveStatusEscalated LeaveStatus = "escalated"
)

// Transitionable reports whether the status may be requested through the approval workflow.
// Escalation has its own operation and is not accepted here.
func (s LeaveStatus) Transitionable() bool {
	switch s {
	case LeaveStatusPending, LeaveStatusApproved, LeaveStatusRejected:
		return true
	}
	return false
}

// Valid reports whether the status is any known lifecycle state.
func (s LeaveStatus) Valid() bool {
	return s.Transitionable() || s == LeaveStatusEscalated
}

// LeaveRecord is a leave application row.
type LeaveRecord struct {
	ID          string              `db:"id" json:"id"`
	UserID      string              `db:"user_id" json:"user_id"`
	StartDate   *time.Time          `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time          `db:"end_date" json:"end_date,omitempty"`
	Date        *time.Time          `db:"date" json:"date,omitempty"`
	Reason      string              `db:"reason" json:"reason"`
	Days        decimal.NullDecimal `db:"days" json:"days"`
	Status      LeaveStatus         `db:"status" json:"status"`
	LeaveTypeID string              `db:"leave_type_id" json:"leave_type_id"`
	CourseID    *string             `db:"course_id" json:"course_id,omitempty"`
	Remarks     *string             `db:"remarks" json:"remarks,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// EffectiveDays is the quantity debited from the ledger. Missing or non-positive values count as one day.
func (l LeaveRecord) EffectiveDays() decimal.Decimal {
	if !l.Days.Valid || !l.Days.Decimal.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return l.Days.Decimal
}

// LedgerYear resolves the balance year: start date, then the legacy date, then creation time, then now.
func (l LeaveRecord) LedgerYear(now time.Time) int {
	switch {
	case l.StartDate != nil && !l.StartDate.IsZero():
		return l.StartDate.Year()
	case l.Date != nil && !l.Date.IsZero():
		return l.Date.Year()
	case !l.CreatedAt.IsZero():
		return l.CreatedAt.Year()
	}
	return now.Year()
}

// LeaveRecordView enriches a leave record for listings.
type LeaveRecordView struct {
	LeaveRecord
	UserName      string `db:"user_name" json:"user_name"`
	LeaveTypeName string `db:"leave_type_name" json:"leave_type_name"`
}

// LeaveFilter narrows leave listings.
type LeaveFilter struct {
	UserID      string
	Status      LeaveStatus
	LeaveTypeID string
	Year        int
	Page        int
	PageSize    int
}

// LeaveType is a catalog entry such as "Casual Leave (CL)".
type LeaveType struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	MaxPerYear     int       `db:"max_per_year" json:"max_per_year"`
	CarryForward   bool      `db:"carry_forward" json:"carry_forward"`
	AffectsBalance bool      `db:"affects_balance" json:"affects_balance"`
	Description    *string   `db:"description" json:"description,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultAffectsBalance derives the ledger flag for a new type from its name.
// Unpaid leave is exempt from balance accounting.
func DefaultAffectsBalance(name string) bool {
	lower := strings.ToLower(name)
	return !strings.Contains(lower, "lwp") && !strings.Contains(lower, "leave without pay")
}

// LeaveTypeRequest creates or updates a leave type. AffectsBalance is derived from the name when omitted.
type LeaveTypeRequest struct {
	Name           string  `json:"name" validate:"required,max=100"`
	MaxPerYear     int     `json:"max_per_year" validate:"min=0,max=366"`
	CarryForward   bool    `json:"carry_forward"`
	AffectsBalance *bool   `json:"affects_balance"`
	Description    *string `json:"description"`
}

// LeaveBalanceKey identifies a ledger row.
type LeaveBalanceKey struct {
	UserID      string `db:"user_id" json:"user_id"`
	LeaveTypeID string `db:"leave_type_id" json:"leave_type_id"`
	Year        int    `db:"year" json:"year"`
}

// LeaveBalance is the per teacher, type and year ledger row.
type LeaveBalance struct {
	LeaveBalanceKey
	OpeningBalance decimal.Decimal `db:"opening_balance" json:"opening_balance"`
	Used           decimal.Decimal `db:"used" json:"used"`
	Adjustments    decimal.Decimal `db:"adjustments" json:"adjustments"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Available is opening_balance - used + adjustments, unclamped.
func (b LeaveBalance) Available() decimal.Decimal {
	return b.OpeningBalance.Sub(b.Used).Add(b.Adjustments)
}

// CanApprove reports whether the balance covers the requested days.
func (b LeaveBalance) CanApprove(days decimal.Decimal) bool {
	return b.Available().GreaterThanOrEqual(days)
}

// DisplayAvailable is the figure shown in balance listings. Untouched unpaid and maternity
// balances show their opening figure; the approval gate always uses Available.
func (b LeaveBalance) DisplayAvailable(typeName string) decimal.Decimal {
	lower := strings.ToLower(typeName)
	special := strings.Contains(lower, "leave without pay") || strings.Contains(lower, "maternity leave")
	if special && b.Used.IsZero() && b.Adjustments.IsZero() {
		return b.OpeningBalance
	}
	return b.Available()
}

// LeaveBalanceView is a ledger row rendered for listings.
type LeaveBalanceView struct {
	LeaveBalance
	LeaveTypeName    string          `db:"leave_type_name" json:"leave_type_name"`
	Available        decimal.Decimal `db:"-" json:"available"`
	DisplayAvailable decimal.Decimal `db:"-" json:"display_available"`
}

// LeaveBalanceAdjustment records a manual change to a ledger row.
type LeaveBalanceAdjustment struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	LeaveTypeID string          `db:"leave_type_id" json:"leave_type_id"`
	Year        int             `db:"year" json:"year"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Reason      string          `db:"reason" json:"reason"`
	CreatedBy   *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// ApplyLeaveRequest submits a leave application. Days are computed from the dates when omitted.
type ApplyLeaveRequest struct {
	LeaveTypeID string           `json:"leave_type_id" validate:"required"`
	StartDate   string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	Days        *decimal.Decimal `json:"days"`
	HalfDay     bool             `json:"half_day"`
	Reason      string           `json:"reason" validate:"required,max=500"`
	CourseID    *string          `json:"course_id"`
}

// LeaveStatusRequest asks for a status change through the approval workflow.
type LeaveStatusRequest struct {
	Status  LeaveStatus `json:"status" validate:"required"`
	Remarks *string     `json:"remarks"`
}

// EscalateLeaveRequest escalates a leave application.
type EscalateLeaveRequest struct {
	Remarks *string `json:"remarks"`
}

// LeaveTransitionResult reports the outcome of a status change.
type LeaveTransitionResult struct {
	LeaveID        string          `json:"leave_id"`
	Status         LeaveStatus     `json:"status"`
	PreviousStatus LeaveStatus     `json:"previous_status"`
	BalanceDelta   decimal.Decimal `json:"balance_delta"`
}

// SetOpeningBalanceRequest upserts the opening figure of a ledger row.
type SetOpeningBalanceRequest struct {
	UserID         string          `json:"user_id" validate:"required"`
	LeaveTypeID    string          `json:"leave_type_id" validate:"required"`
	Year           int             `json:"year" validate:"required,min=2000,max=2100"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// AdjustBalanceRequest adds a signed manual adjustment to a ledger row.
type AdjustBalanceRequest struct {
	UserID      string          `json:"user_id" validate:"required"`
	LeaveTypeID string          `json:"leave_type_id" validate:"required"`
	Year        int             `json:"year" validate:"required,min=2000,max=2100"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason" validate:"required,max=255"`
}
