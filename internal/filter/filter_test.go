package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Check(t *testing.T) {
	f := New(Config{})

	t.Run("rejects empty text", func(t *testing.T) {
		result := f.Check("")
		assert.False(t, result.Pass)
		assert.Equal(t, "empty text", result.Reason)
	})

	t.Run("rejects whitespace only", func(t *testing.T) {
		result := f.Check("   \n\t ")
		assert.False(t, result.Pass)
	})

	t.Run("rejects short text", func(t *testing.T) {
		result := f.Check("ok")
		assert.False(t, result.Pass)
		assert.Equal(t, "too short", result.Reason)
	})

	t.Run("accepts normal text", func(t *testing.T) {
		result := f.Check("I love debugging at 2am")
		assert.True(t, result.Pass)
	})

	t.Run("rejects deny-listed term", func(t *testing.T) {
		result := f.Check("they found a bomb near the station")
		assert.False(t, result.Pass)
		assert.Contains(t, result.Reason, "bomb")
	})

	t.Run("deny-list match is case-insensitive", func(t *testing.T) {
		result := f.Check("this is pure VIOLENCE honestly")
		assert.False(t, result.Pass)
	})

	t.Run("coarse substring match also catches compounds", func(t *testing.T) {
		// "war" inside "warehouse" matches too; accepted over-filter.
		result := f.Check("we moved everything to the warehouse")
		assert.False(t, result.Pass)
		assert.Contains(t, result.Reason, "war")
	})

	t.Run("rejects long all-caps text", func(t *testing.T) {
		result := f.Check(strings.Repeat("A", 25))
		assert.False(t, result.Pass)
		assert.Equal(t, "all uppercase", result.Reason)
	})

	t.Run("accepts short all-caps text", func(t *testing.T) {
		result := f.Check("GREAT NEWS TODAY")
		assert.True(t, result.Pass)
	})

	t.Run("accepts long mixed-case text", func(t *testing.T) {
		result := f.Check("Shipping a side project this weekend, finally")
		assert.True(t, result.Pass)
	})
}

func TestFilter_Appropriate(t *testing.T) {
	f := New(Config{})

	assert.False(t, f.Appropriate(""))
	assert.False(t, f.Appropriate("ok"))
	assert.True(t, f.Appropriate("I love debugging at 2am"))
	assert.False(t, f.Appropriate("hot take: bomb threats are funny"))
	assert.False(t, f.Appropriate("THIS IS DEFINITELY NOT SHOUTING AT ALL"))
}

func TestFilter_AdditionalTerms(t *testing.T) {
	f := New(Config{AdditionalTerms: []string{"crypto"}})

	assert.False(t, f.Appropriate("another crypto giveaway, trust me"))
	assert.True(t, f.Appropriate("another rust giveaway, trust me"))
}
