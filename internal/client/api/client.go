// Package api はストアフロントのバックエンドAPIクライアント。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"app/internal/client/storage"
)

// セッションの保存キー（固定）
const SessionKey = "klassico_session"

// APIError はサーバーの {"error": "..."} 応答。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client は認証済みセッションを1つ持つ。
// SignIn成功後はトークンとユーザーを保持し、以後のリクエストにBearerを付ける。
type Client struct {
	baseURL string
	http    *http.Client
	session storage.Store // nilならプロセス内のみ

	token string
	user  *User
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewPersistentClient はセッションをstへ保存するClientを返す。
// 保存済みのセッションがあれば読み込むので、プロセスをまたいでサインイン状態が続く。
func NewPersistentClient(baseURL string, st storage.Store) *Client {
	c := NewClient(baseURL)
	c.session = st
	c.loadSession()
	return c
}

// ストレージに保存するセッションの形
type sessionData struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// 起動時の読み込み。壊れたデータはキーごと消して未サインインで始める。
func (c *Client) loadSession() {
	if c.session == nil {
		return
	}

	b, err := c.session.Get(SessionKey)
	if err != nil {
		return
	}

	var s sessionData
	if err := json.Unmarshal(b, &s); err != nil || s.Token == "" {
		_ = c.session.Delete(SessionKey)
		return
	}
	c.token = s.Token
	c.user = &s.User
}

// 保存に失敗してもサインイン自体は通す
func (c *Client) persistSession() {
	if c.session == nil || c.user == nil {
		return
	}

	b, err := json.Marshal(sessionData{Token: c.token, User: *c.user})
	if err != nil {
		return
	}
	_ = c.session.Set(SessionKey, b)
}

// CurrentUser はサインイン済みならユーザーを返す。
func (c *Client) CurrentUser() (User, bool) {
	if c.user == nil {
		return User{}, false
	}
	return *c.user, true
}

// CurrentUserID はOrder SubmissionのSessionポート用。
func (c *Client) CurrentUserID() (int64, bool) {
	if c.user == nil {
		return 0, false
	}
	return c.user.ID, true
}

// =====================
// Auth
// =====================

func (c *Client) SignUp(ctx context.Context, email, password, firstName, lastName string) (User, error) {
	var out User
	err := c.doJSON(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email":      email,
		"password":   password,
		"first_name": firstName,
		"last_name":  lastName,
	}, &out)
	return out, err
}

func (c *Client) SignIn(ctx context.Context, email, password string) (User, error) {
	var out LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return User{}, err
	}

	c.token = out.Token.AccessToken
	c.user = &out.User
	c.persistSession()
	return out.User, nil
}

// SignOut はローカルのセッションを破棄するだけ。
func (c *Client) SignOut() {
	c.token = ""
	c.user = nil
	if c.session != nil {
		_ = c.session.Delete(SessionKey)
	}
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/password-reset", map[string]string{"email": email}, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, firstName, lastName, phone, address string) (User, error) {
	var out User
	err := c.doJSON(ctx, http.MethodPut, "/auth/me", map[string]string{
		"first_name": firstName,
		"last_name":  lastName,
		"phone":      phone,
		"address":    address,
	}, &out)
	if err == nil {
		c.user = &out
		c.persistSession()
	}
	return out, err
}

// =====================
// Catalog（読み取り専用）
// =====================

type ProductQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	Sort     string
}

func (c *Client) FetchProducts(ctx context.Context, q ProductQuery) (ProductList, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}

	v := url.Values{}
	v.Set("page", fmt.Sprintf("%d", q.Page))
	v.Set("limit", fmt.Sprintf("%d", q.Limit))
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}

	var out ProductList
	err := c.doJSON(ctx, http.MethodGet, "/products?"+v.Encode(), nil, &out)
	return out, err
}

func (c *Client) FetchProductBySlug(ctx context.Context, slug string) (Product, error) {
	var out Product
	err := c.doJSON(ctx, http.MethodGet, "/products/"+url.PathEscape(slug), nil, &out)
	return out, err
}

func (c *Client) FetchCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.doJSON(ctx, http.MethodGet, "/categories", nil, &out)
	return out, err
}

// =====================
// Orders（2段階書き込みの片側ずつ）
// =====================

// CreateOrder は注文レコードだけを作る（明細なし）。
func (c *Client) CreateOrder(ctx context.Context, in OrderCreateInput) (Order, error) {
	var out Order
	err := c.doJSON(ctx, http.MethodPost, "/orders", in, &out)
	return out, err
}

// AddOrderItems は注文明細を一括作成する。
func (c *Client) AddOrderItems(ctx context.Context, orderID int64, items []OrderItem) error {
	body := map[string]interface{}{"items": items}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/items", orderID), body, nil)
}

func (c *Client) FetchMyOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	err := c.doJSON(ctx, http.MethodGet, "/orders", nil, &out)
	return out, err
}

func (c *Client) FetchOrderDetail(ctx context.Context, orderID int64) (Order, error) {
	var out Order
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil, &out)
	return out, err
}

// =====================
// Wishlist
// =====================

func (c *Client) FetchWishlist(ctx context.Context) ([]WishlistItem, error) {
	var out []WishlistItem
	err := c.doJSON(ctx, http.MethodGet, "/wishlist", nil, &out)
	return out, err
}

func (c *Client) AddToWishlist(ctx context.Context, productID int64) error {
	return c.doJSON(ctx, http.MethodPost, "/wishlist", map[string]int64{"product_id": productID}, nil)
}

func (c *Client) RemoveFromWishlist(ctx context.Context, productID int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/wishlist/%d", productID), nil, nil)
}

// JSONリクエストを投げて2xxならoutへデコードする。
// 2xx以外は {"error": "..."} をAPIErrorに詰めて返す。
func (c *Client) doJSON(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}
