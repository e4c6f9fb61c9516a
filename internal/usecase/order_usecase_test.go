package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) CountByOrderID(ctx context.Context, orderID int64) (int64, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

// TxManagerMock は同じリポジトリをTx内でもそのまま使わせる。
type TxManagerMock struct {
	orders *OrderRepoMock
	items  *OrderItemRepoMock
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(m)
}

func (m *TxManagerMock) Orders() repo.OrderRepository         { return m.orders }
func (m *TxManagerMock) OrderItems() repo.OrderItemRepository { return m.items }
func (m *TxManagerMock) Products() repo.ProductRepository     { panic("not used in OrderUsecase tests") }

func newOrderUsecase() (*usecase.OrderUsecase, *OrderRepoMock, *OrderItemRepoMock) {
	oRepo := new(OrderRepoMock)
	iRepo := new(OrderItemRepoMock)
	tx := &TxManagerMock{orders: oRepo, items: iRepo}
	return usecase.NewOrderUsecase(tx, oRepo, iRepo), oRepo, iRepo
}

func assertHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	httpErr, ok := usecase.AsHTTPError(err)
	assert.True(t, ok, "expected HTTPError, got %v", err)
	if ok {
		assert.Equal(t, status, httpErr.Status)
	}
}

// =====================
// CreateOrder
// =====================

func TestOrderUsecase_CreateOrder_Unauthorized(t *testing.T) {
	uc, _, _ := newOrderUsecase()

	_, err := uc.CreateOrder(context.Background(), 0, usecase.CreateOrderInput{
		TotalAmount: 1000, ShippingAddress: "addr", PaymentMethod: "cod",
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestOrderUsecase_CreateOrder_InvalidInput(t *testing.T) {
	uc, _, _ := newOrderUsecase()
	ctx := context.Background()

	_, err := uc.CreateOrder(ctx, 7, usecase.CreateOrderInput{TotalAmount: 0, ShippingAddress: "addr", PaymentMethod: "cod"})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	_, err = uc.CreateOrder(ctx, 7, usecase.CreateOrderInput{TotalAmount: 1000, ShippingAddress: "  ", PaymentMethod: "cod"})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	_, err = uc.CreateOrder(ctx, 7, usecase.CreateOrderInput{TotalAmount: 1000, ShippingAddress: "addr", PaymentMethod: "cheque"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestOrderUsecase_CreateOrder_Success(t *testing.T) {
	uc, oRepo, _ := newOrderUsecase()

	oRepo.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID == 7 &&
			o.Status == model.OrderStatusPending &&
			o.TotalAmount == 2998 &&
			o.PaymentMethod == model.PaymentMethodUPI
	})).Return(int64(100), nil)

	out, err := uc.CreateOrder(context.Background(), 7, usecase.CreateOrderInput{
		TotalAmount: 2998, ShippingAddress: "12 MG Road, Bengaluru", PaymentMethod: "upi",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(100), out.ID)
	assert.Equal(t, "pending", out.Status)
	assert.Empty(t, out.Items)
	oRepo.AssertExpectations(t)
}

// =====================
// AddOrderItems
// =====================

func TestOrderUsecase_AddOrderItems_Success(t *testing.T) {
	uc, oRepo, iRepo := newOrderUsecase()

	oRepo.On("FindByID", mock.Anything, int64(100)).
		Return(model.Order{ID: 100, UserID: 7, Status: model.OrderStatusPending}, nil)
	iRepo.On("CountByOrderID", mock.Anything, int64(100)).Return(int64(0), nil)
	iRepo.On("CreateBulk", mock.Anything, int64(100), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 2 && items[0].Price == 999 && items[1].Size == "L"
	})).Return(nil)

	out, err := uc.AddOrderItems(context.Background(), 7, 100, []usecase.OrderItemInput{
		{ProductID: 1, Quantity: 2, Size: "M", Price: 999},
		{ProductID: 2, Quantity: 1, Size: "L", Price: 1500},
	})

	assert.NoError(t, err)
	assert.Len(t, out.Items, 2)
	oRepo.AssertExpectations(t)
	iRepo.AssertExpectations(t)
}

func TestOrderUsecase_AddOrderItems_EmptyItems(t *testing.T) {
	uc, _, _ := newOrderUsecase()

	_, err := uc.AddOrderItems(context.Background(), 7, 100, nil)
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestOrderUsecase_AddOrderItems_InvalidItem(t *testing.T) {
	uc, _, _ := newOrderUsecase()

	_, err := uc.AddOrderItems(context.Background(), 7, 100, []usecase.OrderItemInput{
		{ProductID: 1, Quantity: 0, Price: 999},
	})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestOrderUsecase_AddOrderItems_OrderNotFound(t *testing.T) {
	uc, oRepo, _ := newOrderUsecase()

	oRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.AddOrderItems(context.Background(), 7, 100, []usecase.OrderItemInput{
		{ProductID: 1, Quantity: 1, Price: 999},
	})
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_AddOrderItems_OtherUsersOrderIsNotFound(t *testing.T) {
	uc, oRepo, _ := newOrderUsecase()

	oRepo.On("FindByID", mock.Anything, int64(100)).
		Return(model.Order{ID: 100, UserID: 99}, nil)

	_, err := uc.AddOrderItems(context.Background(), 7, 100, []usecase.OrderItemInput{
		{ProductID: 1, Quantity: 1, Price: 999},
	})
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_AddOrderItems_AlreadyHasItems(t *testing.T) {
	uc, oRepo, iRepo := newOrderUsecase()

	oRepo.On("FindByID", mock.Anything, int64(100)).
		Return(model.Order{ID: 100, UserID: 7}, nil)
	iRepo.On("CountByOrderID", mock.Anything, int64(100)).Return(int64(2), nil)

	_, err := uc.AddOrderItems(context.Background(), 7, 100, []usecase.OrderItemInput{
		{ProductID: 1, Quantity: 1, Price: 999},
	})
	assertHTTPStatus(t, err, http.StatusConflict)
	iRepo.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
}

// =====================
// 履歴/詳細
// =====================

func TestOrderUsecase_ListMyOrders_Success(t *testing.T) {
	uc, oRepo, _ := newOrderUsecase()

	oRepo.On("ListByUserID", mock.Anything, int64(7), 1, 50).
		Return([]model.Order{{ID: 2, UserID: 7}, {ID: 1, UserID: 7}}, int64(2), nil)

	outs, err := uc.ListMyOrders(context.Background(), 7)
	assert.NoError(t, err)
	assert.Len(t, outs, 2)
	assert.Equal(t, int64(2), outs[0].ID)
}

func TestOrderUsecase_GetMyOrderDetail_WithItems(t *testing.T) {
	uc, oRepo, iRepo := newOrderUsecase()

	oRepo.On("FindByID", mock.Anything, int64(100)).
		Return(model.Order{ID: 100, UserID: 7, TotalAmount: 999}, nil)
	iRepo.On("ListByOrderID", mock.Anything, int64(100)).
		Return([]model.OrderItem{{OrderID: 100, ProductID: 1, Quantity: 1, Price: 999}}, nil)

	out, err := uc.GetMyOrderDetail(context.Background(), 7, 100)
	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
}

func TestOrderUsecase_GetMyOrderDetail_OtherUsersOrder(t *testing.T) {
	uc, oRepo, _ := newOrderUsecase()

	oRepo.On("FindByID", mock.Anything, int64(100)).
		Return(model.Order{ID: 100, UserID: 99}, nil)

	_, err := uc.GetMyOrderDetail(context.Background(), 7, 100)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

// =====================
// Admin
// =====================

func TestOrderUsecase_UpdateOrderStatus_InvalidStatus(t *testing.T) {
	uc, _, _ := newOrderUsecase()

	err := uc.UpdateOrderStatus(context.Background(), 100, "refunded")
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestOrderUsecase_UpdateOrderStatus_Success(t *testing.T) {
	uc, oRepo, _ := newOrderUsecase()

	oRepo.On("UpdateStatus", mock.Anything, int64(100), model.OrderStatusShipped).Return(nil)

	err := uc.UpdateOrderStatus(context.Background(), 100, "shipped")
	assert.NoError(t, err)
	oRepo.AssertExpectations(t)
}
