package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func days(n int) time.Time { return testNow.AddDate(0, 0, n) }

func TestScoreCategoryLevelGPADeadlineAndAmount(t *testing.T) {
	t.Parallel()

	offer := &Offer{
		ID:          "o",
		Category:    "OBC",
		Level:       LevelUndergraduate,
		Amount:      25000,
		Deadline:    days(15),
		Eligibility: Eligibility{GPAThreshold: ptr(8.0)},
	}

	withAcademicLevel := &Profile{
		ID:             "p",
		Category:       ptr("OBC"),
		EducationLevel: ptr(EducationBachelor),
		AcademicLevel:  ptr(LevelUndergraduate),
		GPA:            ptr(8.5),
	}

	rec, err := Score(withAcademicLevel, offer, testNow)
	require.NoError(t, err)
	assert.Equal(t, 50+40+20+25+10, rec.Score)
	assert.Equal(t, []string{
		"Matches your category (OBC)",
		"Matches your academic level (Undergraduate)",
		"Meets GPA requirement (8)",
		"Urgent deadline - apply soon!",
		"High-value scholarship",
	}, rec.Reasons)
	assert.Equal(t, *offer, rec.Offer)

	// educationLevel alone never earns the academic level points.
	educationOnly := &Profile{
		ID:             "p",
		Category:       ptr("OBC"),
		EducationLevel: ptr(EducationBachelor),
		GPA:            ptr(8.5),
	}
	rec, err = Score(educationOnly, offer, testNow)
	require.NoError(t, err)
	assert.Equal(t, 50+20+25+10, rec.Score)
}

func TestScoreDeadlineBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{name: "past", deadline: days(-1), want: 0},
		{name: "now", deadline: testNow, want: 0},
		{name: "in an hour", deadline: testNow.Add(time.Hour), want: 25},
		{name: "30 days", deadline: days(30), want: 25},
		{name: "30 days and a minute", deadline: days(30).Add(time.Minute), want: 15},
		{name: "90 days", deadline: days(90), want: 15},
		{name: "91 days", deadline: days(91), want: 0},
		{name: "no deadline", deadline: time.Time{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, err := Score(&Profile{ID: "p"}, &Offer{ID: "o", Deadline: tt.deadline}, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Score)
		})
	}
}

func TestScoreIncomeTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		income *float64
		amount float64
		want   int
		reason string
	}{
		{name: "low income high value", income: ptr(20000.0), amount: 10000, want: 20 + 5, reason: "High-value scholarship for low-income students"},
		{name: "low income falls to moderate tier", income: ptr(20000.0), amount: 6000, want: 15, reason: "Good value scholarship for moderate-income students"},
		{name: "zero income is present", income: ptr(0.0), amount: 10000, want: 20 + 5, reason: "High-value scholarship for low-income students"},
		{name: "moderate income", income: ptr(75000.0), amount: 5000, want: 15, reason: "Good value scholarship for moderate-income students"},
		{name: "high income", income: ptr(150000.0), amount: 9000, want: 0},
		{name: "absent income", income: nil, amount: 9000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, err := Score(&Profile{ID: "p", Income: tt.income}, &Offer{ID: "o", Amount: tt.amount}, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Score)
			if tt.reason != "" {
				assert.Contains(t, rec.Reasons, tt.reason)
			}
		})
	}
}

func TestScorePreferencesCountEveryMatch(t *testing.T) {
	t.Parallel()

	profile := &Profile{ID: "p", Preferences: []string{"engineering", "Women", "music", "STEM"}}
	offer := &Offer{ID: "o", Field: "Electrical Engineering", Tags: []string{"women-in-stem", "merit"}}

	rec, err := Score(profile, offer, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3*15, rec.Score)
	assert.Equal(t, []string{"Matches your interests: engineering, Women, STEM"}, rec.Reasons)
}

func TestScoreGenderAndRegion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profile Profile
		offer   Offer
		want    int
	}{
		{name: "gender equal", profile: Profile{ID: "p", Gender: ptr("Female")}, offer: Offer{ID: "o", Eligibility: Eligibility{Gender: "Female"}}, want: 30},
		{name: "gender any", profile: Profile{ID: "p", Gender: ptr("Male")}, offer: Offer{ID: "o", Eligibility: Eligibility{Gender: AnyGender}}, want: 30},
		{name: "gender differs", profile: Profile{ID: "p", Gender: ptr("Male")}, offer: Offer{ID: "o", Eligibility: Eligibility{Gender: "Female"}}, want: 0},
		{name: "gender any needs profile gender", profile: Profile{ID: "p"}, offer: Offer{ID: "o", Eligibility: Eligibility{Gender: AnyGender}}, want: 0},
		{name: "region equal", profile: Profile{ID: "p", Region: ptr("Kerala")}, offer: Offer{ID: "o", Country: "Kerala"}, want: 25},
		{name: "region differs", profile: Profile{ID: "p", Region: ptr("Kerala")}, offer: Offer{ID: "o", Country: "India"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, err := Score(&tt.profile, &tt.offer, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Score)
		})
	}
}

func TestScoreAwardSize(t *testing.T) {
	t.Parallel()

	for amount, want := range map[float64]int{0: 0, 9999: 0, 10000: 5, 19999: 5, 20000: 10, 1e6: 10} {
		rec, err := Score(&Profile{ID: "p"}, &Offer{ID: "o", Amount: amount}, testNow)
		require.NoError(t, err)
		assert.Equal(t, want, rec.Score, "amount %v", amount)
		assert.GreaterOrEqual(t, rec.Score, 0)
	}
}

func TestScoreIsPureAndIgnoresWallClock(t *testing.T) {
	t.Parallel()

	profile := &Profile{ID: "p", Category: ptr("SC"), Preferences: []string{"law"}}
	offer := &Offer{ID: "o", Category: "SC", Field: "Law", Amount: 12000, Deadline: days(45)}

	first, err := Score(profile, offer, testNow)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Score(profile, offer, testNow)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	later, err := Score(profile, offer, testNow.AddDate(0, 0, 60))
	require.NoError(t, err)
	assert.Equal(t, first.Score-15, later.Score)
}

func TestScoreValidation(t *testing.T) {
	t.Parallel()

	_, err := Score(nil, &Offer{ID: "o"}, testNow)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Score(&Profile{ID: "p"}, &Offer{}, testNow)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDaysUntil(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, DaysUntil(testNow.Add(time.Second), testNow))
	assert.Equal(t, 90, DaysUntil(days(90), testNow))
	assert.Equal(t, 91, DaysUntil(days(90).Add(time.Second), testNow))
	assert.Equal(t, 0, DaysUntil(testNow.Add(-time.Hour), testNow))
	assert.Equal(t, -1, DaysUntil(days(-1), testNow))
}
