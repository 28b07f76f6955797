package service

import (
	"github.com/shopspring/decimal"

	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/pkg/utils"
)

// DistributableServiceCharge sums the service charge that feeds the year-end
// earnings pool under basis: every loan's charged amount for accrued, or only
// SERVICE_CHARGE payments for paid_only. Payments whose loan is not in loans
// are ignored.
func DistributableServiceCharge(loans []*domain.Loan, payments []*domain.LoanPayment, basis domain.DistributionBasis) decimal.Decimal {
	total := decimal.Zero
	if basis == domain.DistributionPaidOnly {
		byLoan := groupPayments(payments)
		for _, loan := range loans {
			_, paid := PaidByType(byLoan[loan.ID])
			total = total.Add(paid)
		}
		return total
	}
	for _, loan := range loans {
		total = total.Add(loan.OriginalServiceCharge)
	}
	return total
}

// ComputeDistribution builds the year-end payout. Each member gets back their
// shares, a share-weighted cut of earnings (service charge plus penalties)
// and an equal split of the social fund. Inputs are only read.
func ComputeDistribution(members []*domain.Member, loans []*domain.Loan, payments []*domain.LoanPayment, basis domain.DistributionBasis) *domain.DistributionReport {
	totalShares := decimal.Zero
	totalPenalties := decimal.Zero
	totalSocialFund := decimal.Zero
	for _, m := range members {
		totalShares = totalShares.Add(m.TotalShares)
		totalPenalties = totalPenalties.Add(m.TotalPenalties)
		totalSocialFund = totalSocialFund.Add(m.TotalSocialFund)
	}

	totalEarnings := DistributableServiceCharge(loans, payments, basis).Add(totalPenalties)

	socialFundShare := decimal.Zero
	if n := len(members); n > 0 {
		socialFundShare = utils.RoundMoney(totalSocialFund.Div(decimal.NewFromInt(int64(n))))
	}

	report := &domain.DistributionReport{
		Members: make([]*domain.MemberDistribution, 0, len(members)),
	}
	grandTotal := decimal.Zero

	for _, m := range members {
		earnings := decimal.Zero
		if totalShares.IsPositive() {
			// Multiply first: Div truncates to DivisionPrecision digits.
			earnings = utils.RoundMoney(m.TotalShares.Mul(totalEarnings).Div(totalShares))
		}
		total := utils.RoundMoney(utils.Sum(m.TotalShares, earnings, socialFundShare))
		grandTotal = grandTotal.Add(total)

		report.Members = append(report.Members, &domain.MemberDistribution{
			MemberID:              m.ID,
			FullName:              m.FullName,
			TotalShares:           m.TotalShares,
			ServiceChargeEarnings: earnings,
			SocialFundShare:       socialFundShare,
			TotalDistribution:     total,
		})
	}

	report.Summary = domain.DistributionSummary{
		Basis:                    basis,
		MemberCount:              len(members),
		TotalShares:              utils.RoundMoney(totalShares),
		TotalEarnings:            utils.RoundMoney(totalEarnings),
		TotalPenalties:           utils.RoundMoney(totalPenalties),
		TotalSocialFund:          utils.RoundMoney(totalSocialFund),
		SocialFundSharePerMember: socialFundShare,
		TotalDistribution:        utils.RoundMoney(grandTotal),
	}

	return report
}
