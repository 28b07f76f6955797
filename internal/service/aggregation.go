package service

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/coop-ledger/internal/domain"
)

// groupPayments indexes payments by the loan they belong to.
func groupPayments(payments []*domain.LoanPayment) map[uuid.UUID][]*domain.LoanPayment {
	byLoan := make(map[uuid.UUID][]*domain.LoanPayment)
	for _, p := range payments {
		byLoan[p.LoanID] = append(byLoan[p.LoanID], p)
	}
	return byLoan
}

// Aggregate folds the current members, loans and payments into dashboard
// totals. Service charge counts as earned only once paid. Amounts are left at
// full precision.
func Aggregate(members []*domain.Member, loans []*domain.Loan, payments []*domain.LoanPayment) *domain.LedgerSummary {
	summary := &domain.LedgerSummary{
		TotalShares:              decimal.Zero,
		TotalSocialFund:          decimal.Zero,
		TotalPenalties:           decimal.Zero,
		TotalServiceChargeEarned: decimal.Zero,
		TotalOutstandingLoans:    decimal.Zero,
		MemberCount:              len(members),
		LoanCount:                len(loans),
		Members:                  make([]*domain.MemberSummary, 0, len(members)),
	}

	perMember := make(map[uuid.UUID]*domain.MemberSummary, len(members))
	for _, m := range members {
		summary.TotalShares = summary.TotalShares.Add(m.TotalShares)
		summary.TotalSocialFund = summary.TotalSocialFund.Add(m.TotalSocialFund)
		summary.TotalPenalties = summary.TotalPenalties.Add(m.TotalPenalties)

		ms := &domain.MemberSummary{
			MemberID:         m.ID,
			FullName:         m.FullName,
			TotalShares:      m.TotalShares,
			TotalSocialFund:  m.TotalSocialFund,
			TotalPenalties:   m.TotalPenalties,
			OutstandingLoans: decimal.Zero,
		}
		perMember[m.ID] = ms
		summary.Members = append(summary.Members, ms)
	}

	byLoan := groupPayments(payments)
	for _, loan := range loans {
		loanPayments := byLoan[loan.ID]

		_, paidServiceCharge := PaidByType(loanPayments)
		summary.TotalServiceChargeEarned = summary.TotalServiceChargeEarned.Add(paidServiceCharge)

		outstanding := OutstandingBalance(loan, loanPayments)
		summary.TotalOutstandingLoans = summary.TotalOutstandingLoans.Add(outstanding)

		active := !loan.Status.Terminal()
		if active {
			summary.ActiveLoanCount++
		}
		if ms, ok := perMember[loan.MemberID]; ok {
			ms.OutstandingLoans = ms.OutstandingLoans.Add(outstanding)
			if active {
				ms.ActiveLoans++
			}
		}
	}

	summary.TotalContributions = summary.TotalShares.Add(summary.TotalSocialFund)
	summary.GrandTotalCashOnHand = summary.TotalContributions.
		Add(summary.TotalServiceChargeEarned).
		Sub(summary.TotalOutstandingLoans)

	return summary
}
