// internal/federation/aggregator.go
package federation

import (
	"sort"
	"strings"

	"github.com/mtandao/campaignhub-backend/internal/model"
)

// Sort directions as the request contract spells them.
const (
	SortAsc  = 1
	SortDesc = -1
)

// Record pairs one campaign with the account it came from, plus the detail
// summary its tenant query computed. It only lives through aggregation.
type Record struct {
	AccountID      string         `json:"account_id"`
	Campaign       *model.Campaign `json:"campaign"`
	DetailCount    int            `json:"detail_count"`
	DetailStatuses map[string]int `json:"detail_statuses"`
}

// Page is one slice of the globally sorted merged set.
type Page struct {
	Records    []Record
	Total      int
	TotalPages int
}

// Merge flattens per-tenant partial results into one unordered sequence.
// Tenant-local order is deliberately ignored: comparisons must be global.
func Merge(partials []Result[[]Record]) []Record {
	merged := []Record{}
	for _, p := range partials {
		merged = append(merged, p.Value...)
	}
	return merged
}

// SortRecords orders the merged set by sortField in the given direction.
// Unknown fields fall back to creation time. The sort is stable so paging
// over equal keys stays deterministic.
func SortRecords(records []Record, sortField string, direction int) {
	less := lessFunc(sortField)
	sort.SliceStable(records, func(i, j int) bool {
		if direction == SortDesc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}

func lessFunc(sortField string) func(a, b Record) bool {
	switch sortField {
	case "name":
		return func(a, b Record) bool {
			return strings.ToLower(a.Campaign.Name) < strings.ToLower(b.Campaign.Name)
		}
	case "status":
		return func(a, b Record) bool {
			return a.Campaign.Status < b.Campaign.Status
		}
	default: // created_at
		return func(a, b Record) bool {
			return a.Campaign.CreatedAt.Before(b.Campaign.CreatedAt)
		}
	}
}

// Paginate slices the already-sorted merged set. Total always reflects the
// full set, whatever page was asked for.
func Paginate(records []Record, page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	total := len(records)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start >= total {
		return Page{Records: []Record{}, Total: total, TotalPages: totalPages}
	}
	end := start + limit
	if end > total {
		end = total
	}

	return Page{Records: records[start:end], Total: total, TotalPages: totalPages}
}

// Histogram counts campaign statuses over the WHOLE merged set, not the
// current page: it describes the logical entity, not one page of it.
func Histogram(records []Record) map[string]int {
	counts := map[string]int{}
	for _, r := range records {
		counts[r.Campaign.Status]++
	}
	return counts
}

// Aggregate runs the full merge → global sort → paginate pipeline and
// computes the status histogram over the unpaginated set.
func Aggregate(partials []Result[[]Record], sortField string, direction, page, limit int) (Page, map[string]int) {
	merged := Merge(partials)
	SortRecords(merged, sortField, direction)
	return Paginate(merged, page, limit), Histogram(merged)
}
