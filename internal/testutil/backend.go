// Package testutil provides an in-process fake of the marketplace backend
// for package tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Raj-venom/scrap-dai-client/internal/catalog"
)

// Account is a registered backend account.
type Account struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
	password string
}

// Upload describes one received image part.
type Upload struct {
	Filename    string
	ContentType string
	Size        int
}

// Order is an order as stored by the fake.
type Order struct {
	ID              string          `json:"_id"`
	Status          string          `json:"status"`
	PickUpDate      string          `json:"pickUpDate"`
	PickUpTime      string          `json:"pickUpTime"`
	PickupAddress   json.RawMessage `json:"pickupAddress"`
	OrderItems      json.RawMessage `json:"orderItems"`
	EstimatedAmount float64         `json:"estimatedAmount"`
	PaymentMethod   string          `json:"paymentMethod"`
	ScrapImages     []string        `json:"scrapImages"`
	User            string          `json:"user"`
	Collector       string          `json:"collector,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`

	Uploads []Upload `json:"-"`
}

// Notification is a stored notification.
type Notification struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
	owner     string
}

// Backend is a fake backend served over httptest.
type Backend struct {
	Server *httptest.Server

	mu            sync.Mutex
	accounts      map[string]*Account // role + "/" + email
	access        map[string]*Account
	refresh       map[string]*Account
	categories    []catalog.Category
	orders        []*Order
	notifications []*Notification
	seq           int

	refreshCalls atomic.Int64
	requests     atomic.Int64
}

// NewBackend starts a fake backend that is closed when t finishes.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		accounts: make(map[string]*Account),
		access:   make(map[string]*Account),
		refresh:  make(map[string]*Account),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.requests.Add(1)
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/user/register", b.handleRegister)
	r.Post("/{role}/login", b.handleLogin)
	r.Post("/{role}/refresh-access-token", b.handleRefresh)
	r.Get("/category/all", b.handleCategories)

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)

		r.Post("/{role}/logout", b.handleLogout)
		r.Get("/{role}/current-user", b.handleCurrentUser)

		r.Post("/order/create", b.handleCreateOrder)
		r.Get("/order/my-orders", b.handleMyOrders)
		r.Get("/order/pending", b.handlePending)
		r.Get("/order/{id}", b.handleGetOrder)
		r.Patch("/order/{id}/cancel", b.handleTransition("cancel"))
		r.Patch("/order/{id}/accept", b.handleTransition("accept"))
		r.Patch("/order/{id}/complete", b.handleTransition("complete"))

		r.Get("/notification/all", b.handleNotifications)
		r.Patch("/notification/{id}/read", b.handleMarkRead)
	})
	return r
}

// AddAccount registers an account directly.
func (b *Backend) AddAccount(role, email, password, fullName string) *Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addAccountLocked(role, email, password, fullName)
}

func (b *Backend) addAccountLocked(role, email, password, fullName string) *Account {
	a := &Account{
		ID:       b.nextIDLocked("acc"),
		FullName: fullName,
		Email:    email,
		Role:     role,
		password: password,
	}
	b.accounts[role+"/"+email] = a
	return a
}

// IssueTokens creates a token pair for a as if it had logged in.
func (b *Backend) IssueTokens(a *Account) (access, refresh string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(a)
}

func (b *Backend) issueLocked(a *Account) (string, string) {
	access := b.nextIDLocked("access")
	refresh := b.nextIDLocked("refresh")
	b.access[access] = a
	b.refresh[refresh] = a
	return access, refresh
}

// ExpireAccessTokens invalidates every issued access token. Refresh tokens
// stay valid.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]*Account)
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh = make(map[string]*Account)
}

// SetCategories replaces the catalog.
func (b *Backend) SetCategories(c []catalog.Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories = c
}

// AddNotification stores a notification for a.
func (b *Backend) AddNotification(a *Account, title, message string) *Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := &Notification{
		ID:        b.nextIDLocked("ntf"),
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
		owner:     a.ID,
	}
	b.notifications = append(b.notifications, n)
	return n
}

// Orders returns a copy of the stored orders.
func (b *Backend) Orders() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Order, len(b.orders))
	for i, o := range b.orders {
		out[i] = *o
	}
	return out
}

// RefreshCalls returns how many refresh requests were served.
func (b *Backend) RefreshCalls() int64 {
	return b.refreshCalls.Load()
}

// Requests returns how many requests were served.
func (b *Backend) Requests() int64 {
	return b.requests.Load()
}

func (b *Backend) nextIDLocked(prefix string) string {
	b.seq++
	return prefix + "-" + strconv.Itoa(b.seq)
}

// Response helpers

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": status,
		"data":       data,
		"message":    "Success",
		"success":    true,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": status,
		"data":       nil,
		"message":    message,
		"success":    false,
	})
}

// Auth

type accountKey struct{}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		a, ok := b.access[token]
		b.mu.Unlock()
		if token == "" || !ok {
			writeError(w, http.StatusUnauthorized, "jwt expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, a)))
	})
}

func caller(r *http.Request) *Account {
	a, _ := r.Context().Value(accountKey{}).(*Account)
	return a
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts["user/"+req.Email]; exists {
		writeError(w, http.StatusConflict, "user already exists")
		return
	}
	a := b.addAccountLocked("user", req.Email, req.Password, req.FullName)
	a.Phone = req.Phone
	writeData(w, http.StatusCreated, a)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[role+"/"+req.Email]
	if !ok || a.password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	access, refresh := b.issueLocked(a)
	writeData(w, http.StatusOK, map[string]any{
		"user":         a,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	role := chi.URLParam(r, "role")
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.refresh[req.RefreshToken]
	if !ok || a.Role != role {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	delete(b.refresh, req.RefreshToken)
	access, refresh := b.issueLocked(a)
	writeData(w, http.StatusOK, map[string]string{
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	a := caller(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	for tok, owner := range b.access {
		if owner == a {
			delete(b.access, tok)
		}
	}
	for tok, owner := range b.refresh {
		if owner == a {
			delete(b.refresh, tok)
		}
	}
	writeData(w, http.StatusOK, nil)
}

func (b *Backend) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	a := caller(r)
	if a.Role != chi.URLParam(r, "role") {
		writeError(w, http.StatusForbidden, "wrong role")
		return
	}
	writeData(w, http.StatusOK, a)
}

func (b *Backend) handleCategories(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeData(w, http.StatusOK, b.categories)
}

// Orders

func (b *Backend) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	a := caller(r)
	if a.Role != "user" {
		writeError(w, http.StatusForbidden, "only users can create orders")
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	amount, err := strconv.ParseFloat(r.FormValue("estimatedAmount"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid estimatedAmount")
		return
	}
	items := r.FormValue("orderItems")
	addr := r.FormValue("pickupAddress")
	if !json.Valid([]byte(items)) || !json.Valid([]byte(addr)) {
		writeError(w, http.StatusBadRequest, "orderItems and pickupAddress must be JSON")
		return
	}

	var uploads []Upload
	var urls []string
	for _, fh := range r.MultipartForm.File["scrapImages"] {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable image")
			return
		}
		n, _ := io.Copy(io.Discard, f)
		_ = f.Close()
		uploads = append(uploads, Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        int(n),
		})
		urls = append(urls, "https://cdn.example/"+fh.Filename)
	}
	if len(uploads) == 0 {
		writeError(w, http.StatusBadRequest, "at least one image is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	o := &Order{
		ID:              b.nextIDLocked("ord"),
		Status:          "pending",
		PickUpDate:      r.FormValue("pickUpDate"),
		PickUpTime:      r.FormValue("pickUpTime"),
		PickupAddress:   json.RawMessage(addr),
		OrderItems:      json.RawMessage(items),
		EstimatedAmount: amount,
		PaymentMethod:   r.FormValue("paymentMethod"),
		ScrapImages:     urls,
		User:            a.ID,
		CreatedAt:       time.Now().UTC(),
		Uploads:         uploads,
	}
	b.orders = append(b.orders, o)
	writeData(w, http.StatusCreated, o)
}

func (b *Backend) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	a := caller(r)
	status := r.URL.Query().Get("status")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []*Order{}
	for _, o := range b.orders {
		if (o.User == a.ID || o.Collector == a.ID) && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	writeData(w, http.StatusOK, out)
}

func (b *Backend) handlePending(w http.ResponseWriter, r *http.Request) {
	if caller(r).Role != "collector" {
		writeError(w, http.StatusForbidden, "only collectors can list pending orders")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []*Order{}
	for _, o := range b.orders {
		if o.Status == "pending" {
			out = append(out, o)
		}
	}
	writeData(w, http.StatusOK, out)
}

func (b *Backend) findOrderLocked(id string) *Order {
	for _, o := range b.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (b *Backend) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	a := caller(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.findOrderLocked(chi.URLParam(r, "id"))
	if o == nil || (o.User != a.ID && o.Collector != a.ID && a.Role != "collector") {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeData(w, http.StatusOK, o)
}

func (b *Backend) handleTransition(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := caller(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		o := b.findOrderLocked(chi.URLParam(r, "id"))
		if o == nil {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}

		switch {
		case action == "cancel" && o.User == a.ID && o.Status == "pending":
			o.Status = "cancelled"
		case action == "accept" && a.Role == "collector" && o.Status == "pending":
			o.Status = "accepted"
			o.Collector = a.ID
		case action == "complete" && o.Collector == a.ID && o.Status == "accepted":
			o.Status = "completed"
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot %s order in status %s", action, o.Status))
			return
		}
		writeData(w, http.StatusOK, o)
	}
}

// Notifications

func (b *Backend) handleNotifications(w http.ResponseWriter, r *http.Request) {
	a := caller(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []*Notification{}
	for i := len(b.notifications) - 1; i >= 0; i-- {
		if n := b.notifications[i]; n.owner == a.ID {
			out = append(out, n)
		}
	}
	writeData(w, http.StatusOK, out)
}

func (b *Backend) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	a := caller(r)
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.notifications {
		if n.ID == id && n.owner == a.ID {
			n.Read = true
			writeData(w, http.StatusOK, n)
			return
		}
	}
	writeError(w, http.StatusNotFound, "notification not found")
}
