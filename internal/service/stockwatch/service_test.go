package stockwatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository"
	"github.com/jdsmith2004/stockroom/internal/repository/memory"
	"github.com/jdsmith2004/stockroom/internal/service/audit"
	"github.com/jdsmith2004/stockroom/internal/service/ledger"
	"github.com/jdsmith2004/stockroom/internal/service/stockwatch"
)

// chanNotifier collects alerts for assertions.
type chanNotifier struct {
	alerts chan models.StockAlert
}

func (n *chanNotifier) Notify(_ context.Context, alert models.StockAlert) error {
	n.alerts <- alert
	return nil
}

func recvAlert(t *testing.T, ch <-chan models.StockAlert) models.StockAlert {
	t.Helper()
	select {
	case alert := <-ch:
		return alert
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stock alert")
	}
	return models.StockAlert{}
}

func TestClassify(t *testing.T) {
	cases := map[repository.ChangeKind]models.StockTransition{
		repository.ChangeRemoved:  models.TransitionRestocked,
		repository.ChangeAdded:    models.TransitionNowOutOfStock,
		repository.ChangeModified: models.TransitionStillOutOfStock,
	}
	for kind, want := range cases {
		got, ok := stockwatch.Classify(kind)
		if !ok || got != want {
			t.Fatalf("Classify(%s)=%s ok=%v, want %s", kind, got, ok, want)
		}
	}
	if _, ok := stockwatch.Classify("BOGUS"); ok {
		t.Fatal("unknown kind must not classify")
	}
}

// Widget drains to zero then restocks, emitting exactly one NOW_OUT_OF_STOCK
// followed by one RESTOCKED, in that order.
func TestWidgetDrainAndRestock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewStore()
	recorder := audit.NewRecorder(store, nil, nil)
	ledgerSvc := ledger.NewService(store, recorder, 0, nil)

	notifier := &chanNotifier{alerts: make(chan models.StockAlert, 16)}
	watch := stockwatch.NewService(store, []stockwatch.Notifier{notifier}, nil)
	if err := watch.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := ledgerSvc.CreateItem(ctx, "Widget", decimal.NewFromFloat(9.99), 5, true); err != nil {
		t.Fatal(err)
	}

	if _, err := ledgerSvc.UseQuantity(ctx, "Widget", 5); err != nil {
		t.Fatal(err)
	}
	alert := recvAlert(t, notifier.alerts)
	if alert.Transition != models.TransitionNowOutOfStock || alert.Item != "Widget" {
		t.Fatalf("want NOW_OUT_OF_STOCK Widget, got %+v", alert)
	}
	if alert.EventID == "" {
		t.Fatal("alert must carry an event id")
	}

	// Zero-stock query now includes Widget.
	if !inFilter(t, store, models.FilterOutOfStock, "Widget") {
		t.Fatal("Widget missing from zero-stock query")
	}

	if _, err := ledgerSvc.AddQuantity(ctx, "Widget", 3); err != nil {
		t.Fatal(err)
	}
	alert = recvAlert(t, notifier.alerts)
	if alert.Transition != models.TransitionRestocked || alert.Item != "Widget" {
		t.Fatalf("want RESTOCKED Widget, got %+v", alert)
	}

	// qty=3 < 10 and popular: present in the low-stock query, absent from
	// the zero-stock one.
	if inFilter(t, store, models.FilterOutOfStock, "Widget") {
		t.Fatal("Widget still in zero-stock query after restock")
	}
	if !inFilter(t, store, models.FilterPopularLowStock, "Widget") {
		t.Fatal("Widget missing from popular-low-stock query")
	}

	select {
	case extra := <-notifier.alerts:
		t.Fatalf("unexpected extra alert: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case <-watch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}

func TestEditWhileOutOfStock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewStore()
	if err := store.PutItem(ctx, "Gadget", models.Item{Name: "Gadget", Price: decimal.NewFromInt(2), Qty: 0}); err != nil {
		t.Fatal(err)
	}

	notifier := &chanNotifier{alerts: make(chan models.StockAlert, 16)}
	watch := stockwatch.NewService(store, []stockwatch.Notifier{notifier}, nil)
	if err := watch.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// Price edit on an already-empty item.
	if err := store.PutItem(ctx, "Gadget", models.Item{Name: "Gadget", Price: decimal.NewFromInt(3), Qty: 0}); err != nil {
		t.Fatal(err)
	}

	alert := recvAlert(t, notifier.alerts)
	if alert.Transition != models.TransitionStillOutOfStock || alert.Item != "Gadget" {
		t.Fatalf("want STILL_OUT_OF_STOCK Gadget, got %+v", alert)
	}
}

func inFilter(t *testing.T, store *memory.Store, filter models.Filter, name string) bool {
	t.Helper()
	cur, err := store.RunQuery(context.Background(), filter)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cur.Close(context.Background()) }()
	for cur.Next(context.Background()) {
		if cur.Item().Name == name {
			return true
		}
	}
	return false
}
