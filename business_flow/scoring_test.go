package businessflow

import (
	"testing"

	"github.com/leadforge/leadforge/models"
	"github.com/stretchr/testify/assert"
)

func TestScoreLead(t *testing.T) {
	tests := []struct {
		name               string
		budgetRange        string
		decisionMaker      bool
		responseWithin5Min bool
		timeline           string
		expectedScore      int
		expectedGrade      string
		expectedPackage    string
	}{
		{
			name:               "mid budget decision maker wanting fast response immediately",
			budgetRange:        Budget5KTo10K,
			decisionMaker:      true,
			responseWithin5Min: true,
			timeline:           TimelineImmediate,
			expectedScore:      70,
			expectedGrade:      models.LeadGradeB,
			expectedPackage:    models.PackageGrowth,
		},
		{
			name:               "top budget with every qualifying answer",
			budgetRange:        Budget10KPlus,
			decisionMaker:      true,
			responseWithin5Min: true,
			timeline:           TimelineImmediate,
			expectedScore:      75,
			expectedGrade:      models.LeadGradeB,
			expectedPackage:    models.PackageGrowth,
		},
		{
			name:               "just below the B boundary",
			budgetRange:        Budget10KPlus,
			decisionMaker:      true,
			responseWithin5Min: false,
			timeline:           TimelineWithinMonth,
			expectedScore:      55,
			expectedGrade:      models.LeadGradeC,
			expectedPackage:    models.PackageStarter,
		},
		{
			name:               "decision maker on a small budget",
			budgetRange:        Budget1KTo3K,
			decisionMaker:      true,
			responseWithin5Min: false,
			timeline:           TimelineExploring,
			expectedScore:      30,
			expectedGrade:      models.LeadGradeD,
			expectedPackage:    models.PackageAudit,
		},
		{
			name:               "exactly at the C boundary",
			budgetRange:        Budget3KTo5K,
			decisionMaker:      true,
			responseWithin5Min: false,
			timeline:           TimelineWithinMonth,
			expectedScore:      40,
			expectedGrade:      models.LeadGradeC,
			expectedPackage:    models.PackageStarter,
		},
		{
			name:               "exactly at the B boundary",
			budgetRange:        Budget10KPlus,
			decisionMaker:      true,
			responseWithin5Min: false,
			timeline:           TimelineImmediate,
			expectedScore:      60,
			expectedGrade:      models.LeadGradeB,
			expectedPackage:    models.PackageGrowth,
		},
		{
			name:               "minimum possible score",
			budgetRange:        BudgetUnder1K,
			decisionMaker:      false,
			responseWithin5Min: false,
			timeline:           TimelineExploring,
			expectedScore:      5,
			expectedGrade:      models.LeadGradeD,
			expectedPackage:    models.PackageAudit,
		},
		{
			name:               "unrecognized budget falls to the lowest tier",
			budgetRange:        "a-lot",
			decisionMaker:      false,
			responseWithin5Min: true,
			timeline:           TimelineImmediate,
			expectedScore:      30,
			expectedGrade:      models.LeadGradeD,
			expectedPackage:    models.PackageAudit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, grade, pkg := ScoreLead(tt.budgetRange, tt.decisionMaker, tt.responseWithin5Min, tt.timeline)
			assert.Equal(t, tt.expectedScore, score)
			assert.Equal(t, tt.expectedGrade, grade)
			assert.Equal(t, tt.expectedPackage, pkg)
		})
	}
}

func TestScoreLeadIsDeterministic(t *testing.T) {
	s1, g1, p1 := ScoreLead(Budget5KTo10K, true, true, TimelineImmediate)
	s2, g2, p2 := ScoreLead(Budget5KTo10K, true, true, TimelineImmediate)
	assert.Equal(t, s1, s2)
	assert.Equal(t, g1, g2)
	assert.Equal(t, p1, p2)
}
