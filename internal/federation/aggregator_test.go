package federation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtandao/campaignhub-backend/internal/federation"
	"github.com/mtandao/campaignhub-backend/internal/model"
)

func record(accountID, name, status string, created time.Time) federation.Record {
	return federation.Record{
		AccountID: accountID,
		Campaign: &model.Campaign{
			ID:        name + "-id",
			Name:      name,
			Status:    status,
			CreatedAt: created,
		},
	}
}

// twoTenantPartials models an owner with two accounts: one holding three
// campaigns, the other holding one.
func twoTenantPartials() []federation.Result[[]federation.Record] {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return []federation.Result[[]federation.Record]{
		{
			Account: &model.Account{ID: "acct-a", DBName: "acct_a"},
			Value: []federation.Record{
				record("acct-a", "Delta push", "created", base.Add(3*time.Hour)),
				record("acct-a", "alpha blast", "created", base.Add(1*time.Hour)),
				record("acct-a", "Charlie promo", "archived", base.Add(2*time.Hour)),
			},
		},
		{
			Account: &model.Account{ID: "acct-b", DBName: "acct_b"},
			Value: []federation.Record{
				record("acct-b", "Bravo launch", "archived", base.Add(4*time.Hour)),
			},
		},
	}
}

func TestAggregateSortsGloballyBeforePaging(t *testing.T) {
	page, histogram := federation.Aggregate(twoTenantPartials(), "name", federation.SortAsc, 1, 2)

	require.Len(t, page.Records, 2)
	// "alpha blast" (acct-a) sorts before "Bravo launch" (acct-b): the page
	// interleaves tenants, which only a global sort produces.
	assert.Equal(t, "alpha blast", page.Records[0].Campaign.Name)
	assert.Equal(t, "Bravo launch", page.Records[1].Campaign.Name)
	assert.Equal(t, "acct-a", page.Records[0].AccountID)
	assert.Equal(t, "acct-b", page.Records[1].AccountID)

	assert.Equal(t, 4, page.Total, "total reflects the full merged set")
	assert.Equal(t, 2, page.TotalPages)

	// Histogram covers the whole set, not the page.
	assert.Equal(t, map[string]int{"created": 2, "archived": 2}, histogram)
}

func TestAggregatePagesPartitionTheMergedSet(t *testing.T) {
	partials := twoTenantPartials()

	var seen []string
	for p := 1; ; p++ {
		page, _ := federation.Aggregate(partials, "name", federation.SortAsc, p, 2)
		if len(page.Records) == 0 {
			break
		}
		for _, r := range page.Records {
			seen = append(seen, r.Campaign.Name)
		}
	}

	// Concatenated pages equal the full sorted set: nothing dropped, nothing
	// duplicated.
	assert.Equal(t, []string{"alpha blast", "Bravo launch", "Charlie promo", "Delta push"}, seen)
}

func TestSortRecordsDescending(t *testing.T) {
	merged := federation.Merge(twoTenantPartials())
	federation.SortRecords(merged, "name", federation.SortDesc)

	names := make([]string, 0, len(merged))
	for _, r := range merged {
		names = append(names, r.Campaign.Name)
	}
	assert.Equal(t, []string{"Delta push", "Charlie promo", "Bravo launch", "alpha blast"}, names)
}

func TestSortRecordsDefaultsToCreatedAt(t *testing.T) {
	merged := federation.Merge(twoTenantPartials())
	federation.SortRecords(merged, "garbage_field", federation.SortAsc)

	assert.Equal(t, "alpha blast", merged[0].Campaign.Name)
	assert.Equal(t, "Bravo launch", merged[3].Campaign.Name)
}

func TestPaginateClampsOutOfRange(t *testing.T) {
	merged := federation.Merge(twoTenantPartials())
	federation.SortRecords(merged, "name", federation.SortAsc)

	page := federation.Paginate(merged, 99, 2)
	assert.Empty(t, page.Records)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	page = federation.Paginate(merged, 0, 0)
	assert.Equal(t, 4, page.Total, "page and limit below 1 fall back to defaults")
	assert.Len(t, page.Records, 4)
}

func TestAggregateEmptyInput(t *testing.T) {
	page, histogram := federation.Aggregate(nil, "name", federation.SortAsc, 1, 10)
	assert.Empty(t, page.Records)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, histogram)
}
