package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveGradeDefaultScaleBoundaries(t *testing.T) {
	cases := []struct {
		score  float64
		grade  string
		remark string
		passed bool
	}{
		{score: 100, grade: "A", remark: "Excellent", passed: true},
		{score: 70, grade: "A", remark: "Excellent", passed: true},
		{score: 69.999, grade: "B", remark: "Very Good", passed: true},
		{score: 60, grade: "B", remark: "Very Good", passed: true},
		{score: 59.5, grade: "C", remark: "Good", passed: true},
		{score: 50, grade: "C", remark: "Good", passed: true},
		{score: 45, grade: "D", remark: "Fair", passed: true},
		{score: 44.99, grade: "E", remark: "Pass", passed: true},
		{score: 40, grade: "E", remark: "Pass", passed: true},
		{score: 39.999, grade: "F", remark: "Fail", passed: false},
		{score: 0, grade: "F", remark: "Fail", passed: false},
		{score: 150, grade: "A", remark: "Excellent", passed: true},
		{score: -5, grade: "F", remark: "Fail", passed: false},
	}

	for _, tc := range cases {
		result := ResolveGrade(tc.score, nil)
		require.Equal(t, tc.grade, result.Grade, "score %v", tc.score)
		require.Equal(t, tc.remark, result.Remark, "score %v", tc.score)
		require.Equal(t, tc.passed, result.Passed, "score %v", tc.score)
	}
}

func TestResolveGradeEmptySystemMatchesDefault(t *testing.T) {
	empty := &GradingSystem{Name: "Empty", PassMark: 90}
	for _, score := range []float64{0, 39.9, 40, 52, 69.999, 70, 100} {
		require.Equal(t, ResolveGrade(score, nil), ResolveGrade(score, empty))
	}
}

func TestResolveGradeCustomSystem(t *testing.T) {
	system := &GradingSystem{
		Levels:   []GradingLevel{{MinScore: 80, MaxScore: 100, Grade: "A1", Remark: "Outstanding"}},
		PassMark: 50,
	}

	result := ResolveGrade(85, system)
	require.Equal(t, Result{Grade: "A1", Remark: "Outstanding", Passed: true}, result)

	result = ResolveGrade(30, system)
	require.Equal(t, FallbackResult, result)
}

func TestResolveGradeGapIgnoresPassMark(t *testing.T) {
	system := &GradingSystem{
		Levels: []GradingLevel{
			{MinScore: 70, MaxScore: 100, Grade: "A", Remark: "Distinction"},
			{MinScore: 0, MaxScore: 49, Grade: "F", Remark: "Fail"},
		},
		PassMark: 50,
	}

	result := ResolveGrade(60, system)
	require.Equal(t, "F", result.Grade)
	require.False(t, result.Passed)

	result = ResolveGrade(49.5, system)
	require.Equal(t, FallbackResult, result)
}

func TestResolveGradeOverlapPrefersHigherMax(t *testing.T) {
	system := &GradingSystem{
		Levels: []GradingLevel{
			{MinScore: 50, MaxScore: 75, Grade: "B", Remark: "Good"},
			{MinScore: 70, MaxScore: 100, Grade: "A", Remark: "Excellent"},
		},
		PassMark: 50,
	}

	require.Equal(t, "A", ResolveGrade(72, system).Grade)
	require.Equal(t, "B", ResolveGrade(65, system).Grade)
}

func TestResolveGradeEqualMaxKeepsConfiguredOrder(t *testing.T) {
	system := &GradingSystem{
		Levels: []GradingLevel{
			{MinScore: 60, MaxScore: 100, Grade: "P", Remark: "Pass"},
			{MinScore: 80, MaxScore: 100, Grade: "D", Remark: "Distinction"},
		},
		PassMark: 60,
	}

	require.Equal(t, "P", ResolveGrade(90, system).Grade)
	require.Equal(t, "P", ResolveGrade(90, system).Grade)
}

func TestResolveGradeDoesNotReorderCallerLevels(t *testing.T) {
	levels := []GradingLevel{
		{MinScore: 0, MaxScore: 49, Grade: "F", Remark: "Fail"},
		{MinScore: 50, MaxScore: 100, Grade: "P", Remark: "Pass"},
	}
	system := &GradingSystem{Levels: levels, PassMark: 50}

	require.Equal(t, "P", ResolveGrade(75, system).Grade)
	require.Equal(t, "F", system.Levels[0].Grade)
}

func TestResolveGradeNaNFallsBack(t *testing.T) {
	require.Equal(t, FallbackResult, ResolveGrade(math.NaN(), nil))
}

func TestDefaultGradingSystemIsACopy(t *testing.T) {
	system := DefaultGradingSystem()
	system.Levels[0].Grade = "Z"

	require.Equal(t, "A", ResolveGrade(90, nil).Grade)
	require.Equal(t, DefaultPassMark, DefaultGradingSystem().PassMark)
}

func TestGradingSystemValidate(t *testing.T) {
	valid := GradingSystem{
		PassMark: 50,
		Levels: []GradingLevel{
			{MinScore: 70, MaxScore: 100, Grade: "A"},
			{MinScore: 0, MaxScore: 69, Grade: "B"},
		},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]GradingSystem{
		"pass mark":   {PassMark: 120},
		"empty grade": {PassMark: 40, Levels: []GradingLevel{{MinScore: 0, MaxScore: 10}}},
		"inverted":    {PassMark: 40, Levels: []GradingLevel{{MinScore: 60, MaxScore: 50, Grade: "X"}}},
		"max range":   {PassMark: 40, Levels: []GradingLevel{{MinScore: 60, MaxScore: 150, Grade: "X"}}},
		"min range":   {PassMark: 40, Levels: []GradingLevel{{MinScore: -1, MaxScore: 10, Grade: "X"}}},
	}
	for name, system := range cases {
		err := system.Validate()
		require.Error(t, err, name)
		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr, name)
	}
}

func TestFormatHelpers(t *testing.T) {
	score := 52.26
	grade := "C"
	require.Equal(t, "52.3", FormatScore(&score))
	require.Equal(t, "-", FormatScore(nil))
	require.Equal(t, "C", FormatGrade(&grade))
	require.Equal(t, "-", FormatGrade(nil))

	require.Equal(t, "1st", Ordinal(1))
	require.Equal(t, "2nd", Ordinal(2))
	require.Equal(t, "3rd", Ordinal(3))
	require.Equal(t, "4th", Ordinal(4))
	require.Equal(t, "11th", Ordinal(11))
	require.Equal(t, "13th", Ordinal(13))
	require.Equal(t, "22nd", Ordinal(22))
	require.Equal(t, "-", Ordinal(0))
}
