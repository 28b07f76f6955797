package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemberSummary rolls up one member's balances and open loans.
type MemberSummary struct {
	MemberID         uuid.UUID       `json:"member_id"`
	FullName         string          `json:"full_name"`
	TotalShares      decimal.Decimal `json:"total_shares"`
	TotalSocialFund  decimal.Decimal `json:"total_social_fund"`
	TotalPenalties   decimal.Decimal `json:"total_penalties"`
	OutstandingLoans decimal.Decimal `json:"outstanding_loans"`
	ActiveLoans      int             `json:"active_loans"`
}

// LedgerSummary holds the fleet-wide dashboard totals. Values are kept at
// full precision; call Rounded before presenting them.
type LedgerSummary struct {
	TotalShares              decimal.Decimal  `json:"total_shares"`
	TotalSocialFund          decimal.Decimal  `json:"total_social_fund"`
	TotalPenalties           decimal.Decimal  `json:"total_penalties"`
	TotalContributions       decimal.Decimal  `json:"total_contributions"`
	TotalServiceChargeEarned decimal.Decimal  `json:"total_service_charge_earned"`
	TotalOutstandingLoans    decimal.Decimal  `json:"total_outstanding_loans"`
	GrandTotalCashOnHand     decimal.Decimal  `json:"grand_total_cash_on_hand"`
	MemberCount              int              `json:"member_count"`
	LoanCount                int              `json:"loan_count"`
	ActiveLoanCount          int              `json:"active_loan_count"`
	Members                  []*MemberSummary `json:"members"`
}

// Rounded returns a copy with every amount rounded to 2 decimal places.
func (s *LedgerSummary) Rounded() *LedgerSummary {
	out := *s
	out.TotalShares = s.TotalShares.Round(2)
	out.TotalSocialFund = s.TotalSocialFund.Round(2)
	out.TotalPenalties = s.TotalPenalties.Round(2)
	out.TotalContributions = s.TotalContributions.Round(2)
	out.TotalServiceChargeEarned = s.TotalServiceChargeEarned.Round(2)
	out.TotalOutstandingLoans = s.TotalOutstandingLoans.Round(2)
	out.GrandTotalCashOnHand = s.GrandTotalCashOnHand.Round(2)
	out.Members = make([]*MemberSummary, 0, len(s.Members))
	for _, m := range s.Members {
		rm := *m
		rm.TotalShares = m.TotalShares.Round(2)
		rm.TotalSocialFund = m.TotalSocialFund.Round(2)
		rm.TotalPenalties = m.TotalPenalties.Round(2)
		rm.OutstandingLoans = m.OutstandingLoans.Round(2)
		out.Members = append(out.Members, &rm)
	}
	return &out
}

// LedgerSnapshot is a dated copy of the dashboard totals.
type LedgerSnapshot struct {
	TakenAt time.Time      `json:"taken_at"`
	Summary *LedgerSummary `json:"summary"`
}

// DistributionBasis selects which service charge figure feeds the
// year-end earnings pool.
type DistributionBasis string

const (
	// DistributionAccrued distributes every loan's charged service charge,
	// paid or not.
	DistributionAccrued DistributionBasis = "accrued"
	// DistributionPaidOnly distributes only service charge actually collected.
	DistributionPaidOnly DistributionBasis = "paid_only"
)

func ParseDistributionBasis(s string) (DistributionBasis, error) {
	switch b := DistributionBasis(s); b {
	case DistributionAccrued, DistributionPaidOnly:
		return b, nil
	}
	return "", fmt.Errorf("unknown distribution basis %q (want %q or %q)", s, DistributionAccrued, DistributionPaidOnly)
}

type MemberDistribution struct {
	MemberID              uuid.UUID       `json:"member_id"`
	FullName              string          `json:"full_name"`
	TotalShares           decimal.Decimal `json:"total_shares"`
	ServiceChargeEarnings decimal.Decimal `json:"service_charge_earnings"`
	SocialFundShare       decimal.Decimal `json:"social_fund_share"`
	TotalDistribution     decimal.Decimal `json:"total_distribution"`
}

type DistributionSummary struct {
	Basis                    DistributionBasis `json:"basis"`
	MemberCount              int               `json:"member_count"`
	TotalShares              decimal.Decimal   `json:"total_shares"`
	TotalEarnings            decimal.Decimal   `json:"total_earnings"`
	TotalPenalties           decimal.Decimal   `json:"total_penalties"`
	TotalSocialFund          decimal.Decimal   `json:"total_social_fund"`
	SocialFundSharePerMember decimal.Decimal   `json:"social_fund_share_per_member"`
	TotalDistribution        decimal.Decimal   `json:"total_distribution"`
}

// DistributionReport is the computed year-end payout. It is never persisted.
type DistributionReport struct {
	Members []*MemberDistribution `json:"members"`
	Summary DistributionSummary   `json:"summary"`
}

type ClearYearDataRequest struct {
	Confirmation string `json:"confirmation"`
}

// ClearResult reports how many rows the year-end clear removed.
type ClearResult struct {
	PaymentsDeleted      int64 `json:"payments_deleted"`
	LoansDeleted         int64 `json:"loans_deleted"`
	ContributionsDeleted int64 `json:"contributions_deleted"`
	PenaltiesDeleted     int64 `json:"penalties_deleted"`
	MembersReset         int64 `json:"members_reset"`
}
