// Package checkout はカートの中身と配送/支払いフォームから注文を確定する。
//
// 書き込みは2段階（注文レコード作成→明細一括作成）で、間にトランザクションは無い。
// 1段目だけ成功して2段目が失敗すると明細ゼロのpending注文が残る。
// その場合カートはクリアしない（ユーザーが再試行できるように）。
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"app/internal/client/api"
	"app/internal/client/cart"
	"app/internal/client/notify"
)

// 送信の状態機械。SubmittingがUIの二重押下ガードを兼ねる。
type State int32

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailedAtOrderCreate
	StateFailedAtItemsInsert
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailedAtOrderCreate:
		return "failed_at_order_create"
	case StateFailedAtItemsInsert:
		return "failed_at_items_insert"
	}
	return "unknown"
}

var (
	//サインインしていない（呼び出し側はサインイン画面へ誘導する）
	ErrNotSignedIn = errors.New("not signed in")
	//カートが空（呼び出し側はホームへ誘導する）
	ErrCartEmpty = errors.New("cart is empty")
	//送信が既に進行中
	ErrSubmitInFlight = errors.New("submission already in flight")
	//フォーム入力が不正
	ErrInvalidForm = errors.New("invalid form")
)

// Session は「今サインインしているか」を同期的に答える。
type Session interface {
	CurrentUserID() (int64, bool)
}

// OrderAPI は2段階書き込みの片側ずつを呼ぶ。
type OrderAPI interface {
	CreateOrder(ctx context.Context, in api.OrderCreateInput) (api.Order, error)
	AddOrderItems(ctx context.Context, orderID int64, items []api.OrderItem) error
}

// Form は配送/支払いフォームの入力。
type Form struct {
	Address       string
	City          string
	State         string
	PostalCode    string
	PaymentMethod string // card / upi / cod
}

// Validate は送信前のフォーム検証。失敗してもどこにも書き込まない。
func (f Form) Validate() error {
	if strings.TrimSpace(f.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidForm)
	}
	if strings.TrimSpace(f.City) == "" {
		return fmt.Errorf("%w: city is required", ErrInvalidForm)
	}
	if strings.TrimSpace(f.State) == "" {
		return fmt.Errorf("%w: state is required", ErrInvalidForm)
	}
	if len(strings.TrimSpace(f.PostalCode)) < 6 {
		return fmt.Errorf("%w: postal code is required", ErrInvalidForm)
	}
	switch f.PaymentMethod {
	case "card", "upi", "cod":
	default:
		return fmt.Errorf("%w: invalid payment method", ErrInvalidForm)
	}
	return nil
}

// 配送先住所を1本の文字列にまとめる
func (f Form) shippingAddress() string {
	return fmt.Sprintf("%s, %s, %s - %s",
		strings.TrimSpace(f.Address),
		strings.TrimSpace(f.City),
		strings.TrimSpace(f.State),
		strings.TrimSpace(f.PostalCode),
	)
}

// Flow は1回分の注文送信を調停する。
type Flow struct {
	cart     *cart.Store
	orders   OrderAPI
	session  Session
	notifier notify.Notifier

	mu    sync.Mutex
	state State
}

func NewFlow(c *cart.Store, orders OrderAPI, session Session, n notify.Notifier) *Flow {
	return &Flow{
		cart:     c,
		orders:   orders,
		session:  session,
		notifier: n,
		state:    StateIdle,
	}
}

// State は現在の送信状態を返す。
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit は注文を確定する。
//
// 前提条件（サインイン済み・カートが空でない）を満たさない場合は
// 何も書き込まずにエラーを返す。進行中の送信がある間は2回目を受け付けない。
// 成功したらカートをクリアして作成済み注文を返す。
func (f *Flow) Submit(ctx context.Context, form Form) (api.Order, error) {
	//前提条件チェック（書き込み前）
	if _, ok := f.session.CurrentUserID(); !ok {
		return api.Order{}, ErrNotSignedIn
	}

	items := f.cart.Items()
	if len(items) == 0 {
		return api.Order{}, ErrCartEmpty
	}

	if err := form.Validate(); err != nil {
		f.notifier.Error("Please check the form and try again")
		return api.Order{}, err
	}

	//再入ガード：Submitting中の呼び出しは注文を作らない
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return api.Order{}, ErrSubmitInFlight
	}
	f.state = StateSubmitting
	f.mu.Unlock()

	//合計は先に取ったスナップショットから計算する
	//（送信中にカートが動いても合計と明細はずれない）
	var total int64
	for _, it := range items {
		total += it.Product.Price * it.Quantity
	}

	//1段目：注文レコード作成。失敗したら何も残らない。
	order, err := f.orders.CreateOrder(ctx, api.OrderCreateInput{
		TotalAmount:     total,
		ShippingAddress: form.shippingAddress(),
		PaymentMethod:   form.PaymentMethod,
	})
	if err != nil {
		f.setState(StateFailedAtOrderCreate)
		f.notifier.Error("Failed to place order. Please try again.")
		return api.Order{}, err
	}

	//2段目：明細一括作成。1段目のIDが出てからしか呼ばない。
	orderItems := make([]api.OrderItem, 0, len(items))
	for _, it := range items {
		orderItems = append(orderItems, api.OrderItem{
			ProductID: it.Product.ID,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Price:     it.Product.Price,
		})
	}

	if err := f.orders.AddOrderItems(ctx, order.ID, orderItems); err != nil {
		//注文レコードは明細ゼロのまま残る。カートは触らない。
		f.setState(StateFailedAtItemsInsert)
		f.notifier.Error("Failed to place order. Please try again.")
		return api.Order{}, err
	}

	//成功：カートをクリアして注文履歴へ誘導
	f.cart.Clear()
	f.setState(StateSucceeded)
	f.notifier.Success("Order placed successfully!")

	return order, nil
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}
