package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
)

// fixedClock pins Now for deterministic window and traffic light tests.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestFilters_String(t *testing.T) {
	filters := Filters{
		"team_name": "  Platform Team  ",
		"months":    float64(3),
		"ratio":     float64(2.5),
		"empty":     nil,
	}

	assert.Equal(t, "Platform Team", filters.String("team_name"))
	assert.Equal(t, "3", filters.String("months"))
	assert.Equal(t, "2.5", filters.String("ratio"))
	assert.Equal(t, "", filters.String("empty"))
	assert.Equal(t, "", filters.String("absent"))
}

func TestFilters_Bool(t *testing.T) {
	filters := Filters{
		"flag_bool":   true,
		"flag_true":   "true",
		"flag_one":    " 1 ",
		"flag_mixed":  "TRUE",
		"flag_false":  "false",
		"flag_number": float64(1),
	}

	assert.True(t, filters.Bool("flag_bool"))
	assert.True(t, filters.Bool("flag_true"))
	assert.True(t, filters.Bool("flag_one"))
	assert.True(t, filters.Bool("flag_mixed"))
	assert.False(t, filters.Bool("flag_false"))
	assert.False(t, filters.Bool("flag_number"))
	assert.False(t, filters.Bool("absent"))
}

func TestFilters_List(t *testing.T) {
	t.Run("comma separated string", func(t *testing.T) {
		filters := Filters{"pi_names": "a, b ,c,,  "}
		assert.Equal(t, []string{"a", "b", "c"}, filters.List("pi_names"))
	})

	t.Run("json array", func(t *testing.T) {
		filters := Filters{"pi_names": []interface{}{"PI-1", " PI-2 ", nil, ""}}
		assert.Equal(t, []string{"PI-1", "PI-2"}, filters.List("pi_names"))
	})

	t.Run("string slice", func(t *testing.T) {
		filters := Filters{"pi_names": []string{" PI-1", ""}}
		assert.Equal(t, []string{"PI-1"}, filters.List("pi_names"))
	})

	t.Run("bare scalar", func(t *testing.T) {
		filters := Filters{"pi_names": "PI-1"}
		assert.Equal(t, []string{"PI-1"}, filters.List("pi_names"))
	})

	t.Run("absent yields empty list", func(t *testing.T) {
		filters := Filters{}
		assert.Equal(t, []string{}, filters.List("pi_names"))
	})
}

func TestFilters_Int(t *testing.T) {
	filters := Filters{
		"from_float":  float64(6),
		"from_string": " 9 ",
		"garbage":     "six",
	}

	assert.Equal(t, 6, filters.Int("from_float", 3))
	assert.Equal(t, 9, filters.Int("from_string", 3))
	assert.Equal(t, 3, filters.Int("garbage", 3))
	assert.Equal(t, 3, filters.Int("absent", 3))
}

func TestFilters_Months(t *testing.T) {
	assert.Equal(t, 6, Filters{"months": float64(6)}.Months(3))
	// 5 is not an offered lookback window, fall back
	assert.Equal(t, 3, Filters{"months": float64(5)}.Months(3))
	assert.Equal(t, 3, Filters{"months": float64(-1)}.Months(3))
	assert.Equal(t, 3, Filters{}.Months(3))
}

func TestFilters_Require(t *testing.T) {
	value, err := Filters{"team_name": "Platform"}.Require("team_name")
	assert.NoError(t, err)
	assert.Equal(t, "Platform", value)

	_, err = Filters{"team_name": "   "}.Require("team_name")
	assert.ErrorIs(t, err, domainerrors.ErrMissingFilter)

	_, err = Filters{}.Require("team_name")
	assert.ErrorIs(t, err, domainerrors.ErrMissingFilter)
}

func TestWindowStart(t *testing.T) {
	clock := fixedClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	assert.Equal(t, time.Date(2025, 3, 17, 12, 0, 0, 0, time.UTC), windowStart(clock, 3))
}

func TestMonthLabels(t *testing.T) {
	start := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2024-11", "2024-12", "2025-01", "2025-02"}, monthLabels(start, end))

	sameMonth := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2025-02"}, monthLabels(end, sameMonth))
}

func TestStatusPriority(t *testing.T) {
	assert.Equal(t, 1, statusPriority("In Progress"))
	assert.Equal(t, 2, statusPriority("Code Review"))
	assert.Equal(t, 3, statusPriority("QA Testing"))
	assert.Equal(t, 4, statusPriority("Approved for Release"))
	assert.Equal(t, 99, statusPriority("Blocked"))
}
