package grading

import (
	"fmt"
	"strconv"
)

// FormatScore renders a score with one decimal place, or "-" when absent.
func FormatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', 1, 64)
}

// FormatGrade renders a grade code, or "-" when absent.
func FormatGrade(grade *string) string {
	if grade == nil || *grade == "" {
		return "-"
	}
	return *grade
}

// Ordinal renders a class position such as 1st, 2nd, 11th or 23rd.
func Ordinal(n int) string {
	if n <= 0 {
		return "-"
	}

	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}

	return fmt.Sprintf("%d%s", n, suffix)
}
