package purchasing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gestor-comercial/gestor/internal/directory"
	"github.com/gestor-comercial/gestor/internal/ledger"
	"github.com/gestor-comercial/gestor/internal/shared"
)

type memoryOrderRepo struct {
	orders       map[int64]*PurchaseOrder
	nextOrderID  int64
	nextItemID   int64
	orderCounter int64
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[int64]*PurchaseOrder)}
}

func (r *memoryOrderRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryOrderRepo) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	copied := *order
	copied.Items = append([]OrderItem(nil), order.Items...)
	return copied, nil
}

func (r *memoryOrderRepo) ListOrders(ctx context.Context, status OrderStatus) ([]PurchaseOrder, error) {
	var orders []PurchaseOrder
	for _, order := range r.orders {
		if status != "" && order.Status != status {
			continue
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

func (r *memoryOrderRepo) NextOrderNumber(ctx context.Context) (string, error) {
	r.orderCounter++
	return fmt.Sprintf("OC-%06d", r.orderCounter), nil
}

func (r *memoryOrderRepo) CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	r.nextOrderID++
	copied := order
	copied.ID = r.nextOrderID
	copied.Items = nil
	r.orders[copied.ID] = &copied
	return copied.ID, nil
}

func (r *memoryOrderRepo) InsertItem(ctx context.Context, item OrderItem) (int64, error) {
	order, ok := r.orders[item.OrderID]
	if !ok {
		return 0, ErrNotFound
	}
	r.nextItemID++
	item.ID = r.nextItemID
	order.Items = append(order.Items, item)
	return item.ID, nil
}

func (r *memoryOrderRepo) UpdateStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	order, ok := r.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	return nil
}

func (r *memoryOrderRepo) UpdateLogistics(ctx context.Context, orderID int64, logistics LogisticsStatus) error {
	order, ok := r.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Logistics = logistics
	return nil
}

func (r *memoryOrderRepo) SetItemReceivedQty(ctx context.Context, itemID int64, qty float64) error {
	for _, order := range r.orders {
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				value := qty
				order.Items[i].ReceivedQty = &value
				return nil
			}
		}
	}
	return ErrNotFound
}

func (r *memoryOrderRepo) DeleteOrder(ctx context.Context, orderID int64) error {
	delete(r.orders, orderID)
	return nil
}

type stubSuppliers struct {
	known map[int64]string
}

func (d stubSuppliers) GetSupplier(ctx context.Context, id int64) (directory.Supplier, error) {
	name, ok := d.known[id]
	if !ok {
		return directory.Supplier{}, directory.ErrNotFound
	}
	return directory.Supplier{ID: id, Name: name}, nil
}

type recordingNotifier struct {
	notices []LogisticsNotice
	fail    bool
}

func (n *recordingNotifier) EnqueueLogisticsNotice(notice LogisticsNotice) error {
	if n.fail {
		return fmt.Errorf("queue unavailable")
	}
	n.notices = append(n.notices, notice)
	return nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]bool)}
}

func (s *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if s.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	s.keys[key] = true
	return nil
}

func (s *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(s.keys, key)
	return nil
}

func newPurchasingService(repo *memoryOrderRepo, notifier Notifier) *Service {
	dir := stubSuppliers{known: map[int64]string{7: "Distribuidora Norte"}}
	return NewService(repo, dir, nil, notifier, newMemoryIdempotency())
}

func createTestOrder(t *testing.T, svc *Service) PurchaseOrder {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 7,
		Term:       ledger.TermCredit,
		Items: []OrderItemInput{
			{ProductID: 10, Name: "Caja de cartón", Qty: 10, UnitCost: 25, TaxAmount: 40},
			{ProductID: 11, Name: "Cinta adhesiva", Qty: 5, UnitCost: 12, TaxAmount: 9.6},
		},
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderInitialStates(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})

	order := createTestOrder(t, svc)
	require.Equal(t, "OC-000001", order.Number)
	require.Equal(t, OrderStatusPending, order.Status)
	require.Equal(t, LogisticsNone, order.Logistics)
	require.Equal(t, 310.0, order.Subtotal)
	require.InDelta(t, 49.6, order.TaxAmount, 1e-9)
	require.InDelta(t, 359.6, order.Total, 1e-9)
	require.Len(t, order.Items, 2)
}

func TestCreateOrderRejectsUnknownSupplier(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 99,
		Term:       ledger.TermCredit,
		Items:      []OrderItemInput{{ProductID: 10, Name: "Caja", Qty: 1, UnitCost: 1}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrderRequiresItems(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 7,
		Term:       ledger.TermCredit,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestRequestLogisticsTransitions(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})
	order := createTestOrder(t, svc)

	require.NoError(t, svc.RequestLogistics(ctx, order.ID))
	got, _ := svc.GetOrder(ctx, order.ID)
	require.Equal(t, LogisticsRequested, got.Logistics)

	// second request is a no-op, not an error
	require.NoError(t, svc.RequestLogistics(ctx, order.ID))
	got, _ = svc.GetOrder(ctx, order.ID)
	require.Equal(t, LogisticsRequested, got.Logistics)
}

func TestRequestLogisticsUnknownOrderIsNoOp(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})

	require.NoError(t, svc.RequestLogistics(context.Background(), 999))
}

func TestAdvanceLogisticsRequiresRequested(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})
	order := createTestOrder(t, svc)

	// from N/A: no-op
	require.NoError(t, svc.AdvanceLogistics(ctx, order.ID))
	got, _ := svc.GetOrder(ctx, order.ID)
	require.Equal(t, LogisticsNone, got.Logistics)

	require.NoError(t, svc.RequestLogistics(ctx, order.ID))
	require.NoError(t, svc.AdvanceLogistics(ctx, order.ID))
	got, _ = svc.GetOrder(ctx, order.ID)
	require.Equal(t, LogisticsInTransit, got.Logistics)
}

func TestNotifyLogisticsDispatchesOnce(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	notifier := &recordingNotifier{}
	svc := newPurchasingService(repo, notifier)
	order := createTestOrder(t, svc)
	require.NoError(t, svc.RequestLogistics(ctx, order.ID))

	require.NoError(t, svc.NotifyLogistics(ctx, order.ID))
	require.NoError(t, svc.NotifyLogistics(ctx, order.ID))
	require.Len(t, notifier.notices, 1)
	require.Equal(t, order.Number, notifier.notices[0].OrderNumber)
	require.Equal(t, "Distribuidora Norte", notifier.notices[0].SupplierName)
	require.Equal(t, string(LogisticsRequested), notifier.notices[0].Status)
}

func TestNotifyLogisticsReleasesKeyOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	notifier := &recordingNotifier{fail: true}
	svc := newPurchasingService(repo, notifier)
	order := createTestOrder(t, svc)

	require.Error(t, svc.NotifyLogistics(ctx, order.ID))

	// after the queue recovers the notice goes out
	notifier.fail = false
	require.NoError(t, svc.NotifyLogistics(ctx, order.ID))
	require.Len(t, notifier.notices, 1)
}

func TestConfirmReceptionCompletesUnconditionally(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})
	order := createTestOrder(t, svc)

	got, summary, err := svc.ConfirmReception(ctx, order.ID, []ReceivedItemInput{
		{ItemID: order.Items[0].ID, Qty: 12},
	})
	require.NoError(t, err)
	require.Equal(t, OrderStatusCompleted, got.Status)
	require.Equal(t, LogisticsDelivered, got.Logistics)
	require.Equal(t, 1, summary.DiscrepantCount())
	require.Equal(t, 15.0, summary.TotalExpected)
	require.Equal(t, 17.0, summary.TotalReceived)

	stored, _ := svc.GetOrder(ctx, order.ID)
	require.Equal(t, OrderStatusCompleted, stored.Status)
	require.NotNil(t, stored.Items[0].ReceivedQty)
	require.Equal(t, 12.0, *stored.Items[0].ReceivedQty)
	require.NotNil(t, stored.Items[1].ReceivedQty)
	require.Equal(t, 5.0, *stored.Items[1].ReceivedQty)
}

func TestConfirmReceptionFiltersUnknownItems(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})
	order := createTestOrder(t, svc)

	_, summary, err := svc.ConfirmReception(ctx, order.ID, []ReceivedItemInput{
		{ItemID: 9999, Qty: 3},
	})
	require.NoError(t, err)
	require.Equal(t, 0, summary.DiscrepantCount())
	require.Equal(t, summary.TotalExpected, summary.TotalReceived)
}

func TestConfirmReceptionRejectsNegativeQty(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})
	order := createTestOrder(t, svc)

	_, _, err := svc.ConfirmReception(ctx, order.ID, []ReceivedItemInput{
		{ItemID: order.Items[0].ID, Qty: -1},
	})
	require.ErrorIs(t, err, ErrValidation)

	stored, _ := svc.GetOrder(ctx, order.ID)
	require.Equal(t, OrderStatusPending, stored.Status)
}

func TestConfirmReceptionUnknownOrder(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})

	_, _, err := svc.ConfirmReception(context.Background(), 999, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelOrderOnlyWhenPending(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})
	order := createTestOrder(t, svc)

	require.NoError(t, svc.CancelOrder(ctx, order.ID))
	got, _ := svc.GetOrder(ctx, order.ID)
	require.Equal(t, OrderStatusCancelled, got.Status)

	require.ErrorIs(t, svc.CancelOrder(ctx, order.ID), ErrInvalidState)
}

func TestCancelCompletedOrderRejected(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})
	order := createTestOrder(t, svc)

	_, _, err := svc.ConfirmReception(ctx, order.ID, nil)
	require.NoError(t, err)
	require.ErrorIs(t, svc.CancelOrder(ctx, order.ID), ErrInvalidState)
}

func TestCancelUnknownOrderIsNoOp(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})

	require.NoError(t, svc.CancelOrder(context.Background(), 999))
}

func TestDeleteOrderRemovesEverything(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})
	order := createTestOrder(t, svc)

	require.NoError(t, svc.DeleteOrder(ctx, order.ID))
	_, err := svc.GetOrder(ctx, order.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// unknown id afterwards is a no-op
	require.NoError(t, svc.DeleteOrder(ctx, order.ID))
}

func TestOrderNumbersAreSequential(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo, &recordingNotifier{})

	first := createTestOrder(t, svc)
	second := createTestOrder(t, svc)
	require.Equal(t, "OC-000001", first.Number)
	require.Equal(t, "OC-000002", second.Number)
	require.True(t, second.IssuedAt.After(time.Time{}))
}
