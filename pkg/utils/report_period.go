package utils

import (
	"fmt"
	"time"
)

// PeriodFolder formats the month folder used by the report bucket (MM_YYYY)
func PeriodFolder(period time.Time) string {
	return fmt.Sprintf("%02d_%d", int(period.Month()), period.Year())
}
