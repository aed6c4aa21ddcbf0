package businessflow

import "github.com/leadforge/leadforge/models"

// Budget range labels accepted on the lead form
const (
	BudgetUnder1K  = "<1000"
	Budget1KTo3K   = "1000-2999"
	Budget3KTo5K   = "3000-4999"
	Budget5KTo10K  = "5000-9999"
	Budget10KPlus  = "10000+"
)

// Timeline labels accepted on the lead form
const (
	TimelineImmediate   = "immediate"
	TimelineWithinMonth = "within_month"
	TimelineExploring   = "exploring"
)

// ScoreLead computes the qualification score, letter grade, and recommended
// package from the form answers. Scoring is deterministic so a lead's grade
// can be recomputed and audited from its stored answers.
//
// Points: budget tier 5..30, decision maker 20, fast response expectation 15,
// timeline immediate 10 or within a month 5. Grades: A at 85+, B at 60+,
// C at 40+, D below.
func ScoreLead(budgetRange string, decisionMaker, responseWithin5Min bool, timeline string) (score int, grade, recommendedPackage string) {
	switch budgetRange {
	case Budget10KPlus:
		score += 30
	case Budget5KTo10K:
		score += 25
	case Budget3KTo5K:
		score += 15
	case Budget1KTo3K:
		score += 10
	default:
		score += 5
	}

	if decisionMaker {
		score += 20
	}

	if responseWithin5Min {
		score += 15
	}

	switch timeline {
	case TimelineImmediate:
		score += 10
	case TimelineWithinMonth:
		score += 5
	}

	switch {
	case score >= 85:
		grade = models.LeadGradeA
		recommendedPackage = models.PackageScale
	case score >= 60:
		grade = models.LeadGradeB
		recommendedPackage = models.PackageGrowth
	case score >= 40:
		grade = models.LeadGradeC
		recommendedPackage = models.PackageStarter
	default:
		grade = models.LeadGradeD
		recommendedPackage = models.PackageAudit
	}

	return score, grade, recommendedPackage
}
