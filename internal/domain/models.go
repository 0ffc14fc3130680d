package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownBranch marks a movement whose destination could not be resolved.
const UnknownBranch = "unknown"

const (
	LedgerSideOutgoing = "outgoing"
	LedgerSideIncoming = "incoming"
)

const (
	TransferStatusOK          = "OK"
	TransferStatusDiscrepancy = "DISCREPANCY"
)

// Movement is one Kardex row read from a branch ledger.
type Movement struct {
	Branch       string          `json:"branch"`
	Date         time.Time       `json:"date"`
	Folio        string          `json:"folio"`
	ItemCode     string          `json:"item_code"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Reference    string          `json:"reference"`
	MovementType int             `json:"movement_type"`
}

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls within the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

func (r DateRange) Valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && !r.To.Before(r.From)
}

type Branch struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Table   string   `json:"-"`
	Aliases []string `json:"aliases"`
}

type BranchListResponse struct {
	Branches []Branch `json:"branches"`
}

type TransferPair struct {
	Origin              string          `json:"origin"`
	Destination         string          `json:"destination"`
	Date                time.Time       `json:"date"`
	Folio               string          `json:"folio"`
	ItemCode            string          `json:"item_code"`
	Reference           string          `json:"reference"`
	OriginQuantity      decimal.Decimal `json:"origin_quantity"`
	OriginUnitCost      decimal.Decimal `json:"origin_unit_cost"`
	DestinationQuantity decimal.Decimal `json:"destination_quantity"`
	DestinationUnitCost decimal.Decimal `json:"destination_unit_cost"`
	Matched             bool            `json:"matched"`
	QuantityDiscrepancy bool            `json:"quantity_discrepancy"`
	OriginValue         decimal.Decimal `json:"origin_value"`
	ReceivedValue       decimal.Decimal `json:"received_value"`
	ValueDiscrepancy    decimal.Decimal `json:"value_discrepancy"`
}

func (p TransferPair) Status() string {
	if p.QuantityDiscrepancy {
		return TransferStatusDiscrepancy
	}
	return TransferStatusOK
}

// BranchWarning reports a ledger read that failed and was treated as empty.
type BranchWarning struct {
	Branch  string `json:"branch"`
	Side    string `json:"side"`
	Message string `json:"message"`
}

type TransferReport struct {
	RunID            string          `json:"run_id"`
	RequestedBy      string          `json:"requested_by"`
	Origin           string          `json:"origin"`
	Range            DateRange       `json:"range"`
	Pairs            []TransferPair  `json:"pairs"`
	Unresolved       []Movement      `json:"unresolved"`
	TotalSent        decimal.Decimal `json:"total_sent"`
	TotalReceived    decimal.Decimal `json:"total_received"`
	Balance          decimal.Decimal `json:"balance"`
	DiscrepancyCount int             `json:"discrepancy_count"`
	Warnings         []BranchWarning `json:"warnings"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

type BranchTotals struct {
	Branch           string          `json:"branch"`
	Sent             decimal.Decimal `json:"sent"`
	Received         decimal.Decimal `json:"received"`
	DiscrepancyCount int             `json:"discrepancy_count"`
}

type TransferSummary struct {
	Range            DateRange       `json:"range"`
	TotalSent        decimal.Decimal `json:"total_sent"`
	TotalReceived    decimal.Decimal `json:"total_received"`
	Balance          decimal.Decimal `json:"balance"`
	DiscrepancyCount int             `json:"discrepancy_count"`
	ByBranch         []BranchTotals  `json:"by_branch"`
	Warnings         []BranchWarning `json:"warnings"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

type DestinationPreview struct {
	Reference   string `json:"reference"`
	Destination string `json:"destination"`
	Resolved    bool   `json:"resolved"`
}

type ReportingPeriod struct {
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p ReportingPeriod) Range() DateRange {
	return DateRange{From: p.From, To: p.To}
}

type ReportingPeriodRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
