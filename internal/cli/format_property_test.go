package cli

import (
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property: FormatCurrency keeps the sign, always has two decimals, groups
// thousands with commas and parses back to the amount rounded to cents.
func TestProperty_CurrencyFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatCurrency round-trips to cents", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatCurrency(amount, "$")

			body := strings.TrimPrefix(formatted, "-")
			if !strings.HasPrefix(body, "$") {
				t.Logf("Expected $ prefix for %f, got %s", amount, formatted)
				return false
			}
			body = strings.TrimPrefix(body, "$")

			parts := strings.Split(body, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				t.Logf("Expected two decimals for %f, got %s", amount, formatted)
				return false
			}

			groups := strings.Split(parts[0], ",")
			for i, g := range groups {
				if (i == 0 && (len(g) < 1 || len(g) > 3)) || (i > 0 && len(g) != 3) {
					t.Logf("Bad grouping for %f: %s", amount, formatted)
					return false
				}
			}

			parsed, err := strconv.ParseFloat(strings.ReplaceAll(body, ",", ""), 64)
			if err != nil {
				return false
			}
			if strings.HasPrefix(formatted, "-") {
				parsed = -parsed
			}
			if math.Abs(parsed-amount) > 0.0051 {
				t.Logf("Value drift for %f: %s", amount, formatted)
				return false
			}
			return true
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatCurrency(1234.5, "$"))
	assert.Equal(t, "-€62.50", FormatCurrency(-62.5, "€"))
	assert.Equal(t, "$0.00", FormatCurrency(0, "$"))
	assert.Equal(t, "+$125.00", FormatPnL(125, "$"))
	assert.Equal(t, "-$40.00", FormatPnL(-40, "$"))
	assert.Equal(t, "+12.50%", FormatPercent(12.5))
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "1,500", FormatQuantity(1500))
	assert.Equal(t, "0.25", FormatQuantity(0.25))
}

func TestParseDate(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

	got, err := ParseDate("2024-03-01T10:30:00Z", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)))

	got, err = ParseDate("2024-03-01", now)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Day())

	got, err = ParseDate("now", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(now))

	_, err = ParseDate("yesterday-ish", now)
	assert.Error(t, err)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "3f2a9c1e", ShortID("3f2a9c1e-8b7d-4c2a-9e1f-0a1b2c3d4e5f"))
	assert.Equal(t, "t1", ShortID("t1"))
	assert.Equal(t, "abcde...", ShortID("abcdefghijk"))
}
