package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodFolder(t *testing.T) {
	assert.Equal(t, "10_2025", PeriodFolder(time.Date(2025, time.October, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "03_2026", PeriodFolder(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
}
