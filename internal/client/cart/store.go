// Package cart はクライアント側のカートを1つだけ持つ状態コンテナ。
// 中身は毎回まるごとシリアライズしてローカルストレージに保存する。
// サーバー側にカートのミラーは存在しない。
package cart

import (
	"encoding/json"
	"sync"

	"app/internal/client/api"
	"app/internal/client/notify"
	"app/internal/client/storage"
)

// 保存キー（固定）
const StorageKey = "klassico_cart"

// LineItem はカートの1行。
// 同一判定キーは (product.id, size)。同じ商品でもサイズ違いは別行。
type LineItem struct {
	Product  api.Product `json:"product"`
	Quantity int64       `json:"quantity"`
	Size     string      `json:"size"`
}

// Store はアプリ起動時に1回だけ作り、セッションの間ずっと生かす。
// すべてのページがここを読む共有状態なので、変更は購読者に同期的に伝える。
type Store struct {
	mu       sync.Mutex
	items    []LineItem
	storage  storage.Store
	notifier notify.Notifier

	subs   map[int]func()
	nextID int
}

// NewStore は永続化済みのカートを読み込んで返す。
// 壊れたデータは捨てて空のカートで始める（エラーにはしない）。
func NewStore(st storage.Store, n notify.Notifier) *Store {
	s := &Store{
		storage:  st,
		notifier: n,
		subs:     map[int]func(){},
	}
	s.load()
	return s
}

// AddItem は同じ(商品ID, サイズ)の行があれば数量を加算し、無ければ末尾に追加する。
// この層では数量の上限チェックはしない（呼び出し側UIに任せる）。
func (s *Store) AddItem(p api.Product, quantity int64, size string) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	merged := false
	for i := range s.items {
		if s.items[i].Product.ID == p.ID && s.items[i].Size == size {
			s.items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, LineItem{Product: p, Quantity: quantity, Size: size})
	}
	s.persistLocked()
	s.mu.Unlock()

	if merged {
		s.notifier.Success("Updated quantity in cart")
	} else {
		s.notifier.Success("Added to cart")
	}
	s.publish()
}

// RemoveItem は商品IDが一致する行をサイズ違いも含めて全部消す。
// 追加のマージキーは(商品ID, サイズ)だが削除は商品IDだけで引く（既存仕様のまま）。
func (s *Store) RemoveItem(productID int64) {
	s.mu.Lock()
	kept := s.items[:0]
	removed := false
	for _, it := range s.items {
		if it.Product.ID == productID {
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	s.items = kept
	if removed {
		s.persistLocked()
	}
	s.mu.Unlock()

	if removed {
		s.notifier.Success("Removed from cart")
		s.publish()
	}
}

// UpdateQuantity は商品IDが最初に一致した行の数量を上書きする。
// 1未満になる更新は受け付けない（行を消したいときはRemoveItem）。
func (s *Store) UpdateQuantity(productID int64, quantity int64) {
	if quantity < 1 {
		return
	}

	s.mu.Lock()
	updated := false
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items[i].Quantity = quantity
			updated = true
			break
		}
	}
	if updated {
		s.persistLocked()
	}
	s.mu.Unlock()

	if updated {
		s.notifier.Success("Updated quantity")
		s.publish()
	}
}

// Clear はカートを空にして空の状態を保存する。
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.persistLocked()
	s.mu.Unlock()

	s.notifier.Success("Cart cleared")
	s.publish()
}

// Items は行のコピーを返す。
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Total は Σ(単価×数量)。単価は行に取り込んだ時点のproduct.price。
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, it := range s.items {
		total += it.Product.Price * it.Quantity
	}
	return total
}

// ItemCount は Σ(数量)。行数ではない。
func (s *Store) ItemCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, it := range s.items {
		count += it.Quantity
	}
	return count
}

// Subscribe は変更通知の購読を登録して解除関数を返す。
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// 全購読者へ同期通知
func (s *Store) publish() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// 起動時の読み込み。壊れていたらキーごと消して空で始める。
func (s *Store) load() {
	b, err := s.storage.Get(StorageKey)
	if err != nil {
		return
	}

	var items []LineItem
	if err := json.Unmarshal(b, &items); err != nil {
		_ = s.storage.Delete(StorageKey)
		return
	}
	s.items = items
}

// 毎回まるごと書き直す（差分保存はしない）
func (s *Store) persistLocked() {
	b, err := json.Marshal(s.items)
	if err != nil {
		return
	}
	_ = s.storage.Set(StorageKey, b)
}
