package query_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository/memory"
	"github.com/jdsmith2004/stockroom/internal/service/query"
)

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	items := []models.Item{
		{Name: "drained", Price: decimal.NewFromInt(4), Popular: false, Qty: 0},
		{Name: "fresh", Price: decimal.NewFromInt(2), Popular: true, Qty: 3},
		{Name: "stocked", Price: decimal.NewFromInt(8), Popular: true, Qty: 40},
		{Name: "slow", Price: decimal.NewFromInt(1), Popular: false, Qty: 2},
	}
	for _, it := range items {
		if err := store.PutItem(context.Background(), it.Name, it); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func names(items []models.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	sort.Strings(out)
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearchAll(t *testing.T) {
	svc := query.NewService(seedStore(t), nil)
	ctx := context.Background()

	cases := []struct {
		selector string
		want     []string
	}{
		{"all", []string{"drained", "fresh", "slow", "stocked"}},
		{"1", []string{"drained", "fresh", "slow", "stocked"}},
		{"out-of-stock", []string{"drained"}},
		{"2", []string{"drained"}},
		{"popular-low-stock", []string{"fresh"}},
		{"3", []string{"fresh"}},
	}
	for _, tc := range cases {
		t.Run(tc.selector, func(t *testing.T) {
			items, err := svc.SearchAll(ctx, tc.selector)
			if err != nil {
				t.Fatal(err)
			}
			if got := names(items); !equalNames(got, tc.want) {
				t.Fatalf("selector %q matched %v, want %v", tc.selector, got, tc.want)
			}
		})
	}
}

func TestInvalidSelectorExecutesNothing(t *testing.T) {
	svc := query.NewService(seedStore(t), nil)

	for _, selector := range []string{"4", "zero", "ALL", "popular"} {
		if _, err := svc.SearchAll(context.Background(), selector); !errors.Is(err, query.ErrInvalidQuery) {
			t.Fatalf("selector %q: want ErrInvalidQuery, got %v", selector, err)
		}
	}
}

func TestCursorIsSinglePassButReissuable(t *testing.T) {
	svc := query.NewService(seedStore(t), nil)
	ctx := context.Background()

	cur, err := svc.Search(ctx, "all")
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for cur.Next(ctx) {
		n++
	}
	if cur.Next(ctx) {
		t.Fatal("exhausted cursor restarted")
	}
	if err := cur.Close(ctx); err != nil {
		t.Fatal(err)
	}

	// A new invocation yields a fresh pass.
	again, err := svc.SearchAll(ctx, "all")
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != n {
		t.Fatalf("reissued query returned %d items, want %d", len(again), n)
	}
}
