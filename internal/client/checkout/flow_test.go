package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"app/internal/client/api"
	"app/internal/client/cart"
	"app/internal/client/checkout"
	"app/internal/client/notify"
	"app/internal/client/storage"
)

// =====================
// Fakes
// =====================

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(key string) ([]byte, error) {
	b, ok := m.data[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return b, nil
}
func (m *memStore) Set(key string, value []byte) error { m.data[key] = value; return nil }
func (m *memStore) Delete(key string) error            { delete(m.data, key); return nil }

type fakeSession struct {
	userID int64
}

func (s *fakeSession) CurrentUserID() (int64, bool) {
	if s.userID == 0 {
		return 0, false
	}
	return s.userID, true
}

// fakeOrderAPI は2段階書き込みの呼び出しを記録する。
// createErr / itemsErr でどちらの段を失敗させるか仕込める。
type fakeOrderAPI struct {
	mu sync.Mutex

	createErr error
	itemsErr  error

	createCalls int
	itemsCalls  int
	lastCreate  api.OrderCreateInput
	lastOrderID int64
	lastItems   []api.OrderItem

	//CreateOrder中に他のSubmitを走らせるためのフック
	onCreate func()
}

func (f *fakeOrderAPI) CreateOrder(ctx context.Context, in api.OrderCreateInput) (api.Order, error) {
	f.mu.Lock()
	f.createCalls++
	f.lastCreate = in
	hook := f.onCreate
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if f.createErr != nil {
		return api.Order{}, f.createErr
	}
	return api.Order{ID: 100, Status: "pending", TotalAmount: in.TotalAmount}, nil
}

func (f *fakeOrderAPI) AddOrderItems(ctx context.Context, orderID int64, items []api.OrderItem) error {
	f.mu.Lock()
	f.itemsCalls++
	f.lastOrderID = orderID
	f.lastItems = items
	f.mu.Unlock()
	return f.itemsErr
}

func validForm() checkout.Form {
	return checkout.Form{
		Address:       "12 MG Road",
		City:          "Bengaluru",
		State:         "Karnataka",
		PostalCode:    "560001",
		PaymentMethod: "cod",
	}
}

func newCartWith(items ...cart.LineItem) *cart.Store {
	s := cart.NewStore(newMemStore(), notify.NullNotifier{})
	for _, it := range items {
		s.AddItem(it.Product, it.Quantity, it.Size)
	}
	return s
}

func line(id, price, qty int64, size string) cart.LineItem {
	return cart.LineItem{
		Product:  api.Product{ID: id, Name: "Tee", Price: price},
		Quantity: qty,
		Size:     size,
	}
}

// =====================
// 前提条件
// =====================

func TestFlow_Submit_NotSignedIn(t *testing.T) {
	orders := &fakeOrderAPI{}
	flow := checkout.NewFlow(newCartWith(line(1, 999, 1, "M")), orders, &fakeSession{}, notify.NullNotifier{})

	_, err := flow.Submit(context.Background(), validForm())

	assert.ErrorIs(t, err, checkout.ErrNotSignedIn)
	assert.Equal(t, 0, orders.createCalls)
}

func TestFlow_Submit_EmptyCart(t *testing.T) {
	orders := &fakeOrderAPI{}
	flow := checkout.NewFlow(newCartWith(), orders, &fakeSession{userID: 7}, notify.NullNotifier{})

	_, err := flow.Submit(context.Background(), validForm())

	assert.ErrorIs(t, err, checkout.ErrCartEmpty)
	assert.Equal(t, 0, orders.createCalls)
}

func TestFlow_Submit_InvalidForm(t *testing.T) {
	orders := &fakeOrderAPI{}
	c := newCartWith(line(1, 999, 1, "M"))
	flow := checkout.NewFlow(c, orders, &fakeSession{userID: 7}, notify.NullNotifier{})

	form := validForm()
	form.PaymentMethod = "cheque"
	_, err := flow.Submit(context.Background(), form)

	assert.ErrorIs(t, err, checkout.ErrInvalidForm)
	assert.Equal(t, 0, orders.createCalls)
	assert.Len(t, c.Items(), 1)
}

// =====================
// 成功
// =====================

func TestFlow_Submit_Success(t *testing.T) {
	orders := &fakeOrderAPI{}
	c := newCartWith(line(1, 999, 2, "M"), line(2, 1500, 1, "L"))
	flow := checkout.NewFlow(c, orders, &fakeSession{userID: 7}, notify.NullNotifier{})

	order, err := flow.Submit(context.Background(), validForm())

	assert.NoError(t, err)
	assert.Equal(t, int64(100), order.ID)
	assert.Equal(t, checkout.StateSucceeded, flow.State())

	//合計はカートから計算される
	assert.Equal(t, int64(999*2+1500), orders.lastCreate.TotalAmount)
	assert.Equal(t, "cod", orders.lastCreate.PaymentMethod)

	//明細はカートの行数ぶん、単価スナップショット付き
	assert.Equal(t, int64(100), orders.lastOrderID)
	assert.Len(t, orders.lastItems, 2)
	assert.Equal(t, int64(999), orders.lastItems[0].Price)
	assert.Equal(t, "M", orders.lastItems[0].Size)

	//成功時だけカートが消える
	assert.Empty(t, c.Items())
}

// =====================
// 失敗パス
// =====================

func TestFlow_Submit_FailedAtOrderCreate_CartUntouched(t *testing.T) {
	orders := &fakeOrderAPI{createErr: errors.New("db down")}
	c := newCartWith(line(1, 999, 2, "M"))
	flow := checkout.NewFlow(c, orders, &fakeSession{userID: 7}, notify.NullNotifier{})

	_, err := flow.Submit(context.Background(), validForm())

	assert.Error(t, err)
	assert.Equal(t, checkout.StateFailedAtOrderCreate, flow.State())
	assert.Equal(t, 0, orders.itemsCalls)
	assert.Len(t, c.Items(), 1)
}

func TestFlow_Submit_FailedAtItemsInsert_CartNotCleared(t *testing.T) {
	//1段目は成功、2段目で失敗 → 明細ゼロの注文が残り、カートはそのまま
	orders := &fakeOrderAPI{itemsErr: errors.New("insert failed")}
	c := newCartWith(line(1, 999, 2, "M"))
	flow := checkout.NewFlow(c, orders, &fakeSession{userID: 7}, notify.NullNotifier{})

	_, err := flow.Submit(context.Background(), validForm())

	assert.Error(t, err)
	assert.Equal(t, checkout.StateFailedAtItemsInsert, flow.State())
	assert.Equal(t, 1, orders.createCalls)
	assert.Equal(t, 1, orders.itemsCalls)
	assert.Len(t, c.Items(), 1)
}

func TestFlow_Submit_TotalComputedFromItemsSnapshot(t *testing.T) {
	orders := &fakeOrderAPI{}
	c := newCartWith(line(1, 999, 2, "M"), line(2, 1500, 1, "L"))
	flow := checkout.NewFlow(c, orders, &fakeSession{userID: 7}, notify.NullNotifier{})

	//送信中にカートが動いても、合計と明細は同じスナップショットから出る
	orders.onCreate = func() {
		c.AddItem(api.Product{ID: 3, Name: "Jacket", Price: 9999}, 1, "M")
	}

	_, err := flow.Submit(context.Background(), validForm())
	assert.NoError(t, err)

	assert.Len(t, orders.lastItems, 2)

	var want int64
	for _, it := range orders.lastItems {
		want += it.Price * it.Quantity
	}
	assert.Equal(t, want, orders.lastCreate.TotalAmount)
	assert.Equal(t, int64(999*2+1500), orders.lastCreate.TotalAmount)
}

// =====================
// 再入ガード
// =====================

func TestFlow_Submit_SecondSubmitWhileInFlight(t *testing.T) {
	orders := &fakeOrderAPI{}
	c := newCartWith(line(1, 999, 1, "M"))
	flow := checkout.NewFlow(c, orders, &fakeSession{userID: 7}, notify.NullNotifier{})

	var secondErr error
	orders.onCreate = func() {
		//1回目のCreateOrderの最中に2回目のSubmitを試す
		_, secondErr = flow.Submit(context.Background(), validForm())
	}

	_, err := flow.Submit(context.Background(), validForm())

	assert.NoError(t, err)
	assert.ErrorIs(t, secondErr, checkout.ErrSubmitInFlight)
	//注文は1つしか作られない
	assert.Equal(t, 1, orders.createCalls)
}

// =====================
// Form
// =====================

func TestForm_Validate(t *testing.T) {
	assert.NoError(t, validForm().Validate())

	f := validForm()
	f.Address = "  "
	assert.ErrorIs(t, f.Validate(), checkout.ErrInvalidForm)

	f = validForm()
	f.PostalCode = "123"
	assert.ErrorIs(t, f.Validate(), checkout.ErrInvalidForm)

	for _, pm := range []string{"card", "upi", "cod"} {
		f = validForm()
		f.PaymentMethod = pm
		assert.NoError(t, f.Validate())
	}
}
