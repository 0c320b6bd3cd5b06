package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dryRunDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        "host=localhost dbname=voicelog sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestTermRankScore(t *testing.T) {
	rank := &TermRank{Terms: []string{"now", "magtein", "now"}, Fields: []string{"product_name", "brand", "product_key"}}

	testCases := []struct {
		name     string
		row      map[string]string
		expected int
	}{
		{
			name:     "Both terms",
			row:      map[string]string{"product_name": "Magtein Magnesium L-Threonate", "brand": "NOW", "product_key": "now magtein magnesium l threonate"},
			expected: 2,
		},
		{
			name:     "Brand only",
			row:      map[string]string{"product_name": "Vitamin D3", "brand": "NOW", "product_key": "now vitamin d3"},
			expected: 1,
		},
		{
			name:     "Missing fields",
			row:      map[string]string{},
			expected: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, rank.Score(tc.row))
		})
	}

	var none *TermRank
	assert.Equal(t, 0, none.Score(map[string]string{"brand": "NOW"}))
}

func TestSearchCatalogRanksBeforeLimit(t *testing.T) {
	// Arrange
	db := dryRunDB(t)
	terms := []string{"now", "magtein"}
	fields := []string{"product_name", "brand", "product_key"}
	filter := Filter{
		AnyOf: ContainsAnyTerm(terms, fields...),
		Rank:  &TermRank{Terms: terms, Fields: fields},
		Order: []Order{{Field: "times_logged", Desc: true}},
		Limit: 50,
	}

	// Act
	query, err := filter.apply(db.Model(&CatalogProduct{}), catalogFields)
	require.NoError(t, err)
	var products []CatalogProduct
	stmt := query.Find(&products).Statement

	// Assert
	sql := stmt.SQL.String()
	assert.Contains(t, sql, `ORDER BY (CASE WHEN concat_ws(' ', "product_name", "brand", "product_key") ILIKE`)
	assert.Contains(t, sql, `THEN 1 ELSE 0 END + CASE WHEN`)
	assert.Contains(t, sql, `) DESC, "times_logged" DESC`)
	assert.Contains(t, sql, "LIMIT")
	assert.Contains(t, stmt.Vars, "%magtein%")
}

func TestFilterRejectsUnknownRankField(t *testing.T) {
	db := dryRunDB(t)
	filter := Filter{Rank: &TermRank{Terms: []string{"now"}, Fields: []string{"password"}}}

	_, err := filter.apply(db.Model(&CatalogProduct{}), catalogFields)

	assert.ErrorIs(t, err, ErrUnknownField)
}
