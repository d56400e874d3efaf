package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSuraphong/library-testing/internal/auth"
	"github.com/MrSuraphong/library-testing/internal/handler"
	"github.com/MrSuraphong/library-testing/internal/lending"
	"github.com/MrSuraphong/library-testing/internal/memstore"
	"github.com/MrSuraphong/library-testing/internal/model"
)

type testAPI struct {
	t      *testing.T
	router http.Handler
	admin  string // bearer token
	member string // bearer token

	adminID  string
	memberID string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	store := memstore.New()
	engine := lending.NewEngine(store, store)
	h := handler.New(engine, store, auth.NewService(store))

	api := &testAPI{t: t, router: handler.NewRouter(h)}
	api.adminID, api.admin = api.signup("boss", model.RoleAdmin)
	api.memberID, api.member = api.signup("reader", model.RoleMember)
	return api
}

func (a *testAPI) signup(username, role string) (id, token string) {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/register", "", model.RegisterRequest{
		Username: username, Password: "s3cret", Role: role,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/login", "", model.LoginRequest{
		Username: username, Password: "s3cret",
	})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.LoginResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.User.ID, resp.Token
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createBook(title string, copies int) model.Book {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/books", a.admin, model.CreateBookRequest{
		Title: title, Author: "Anon", Quantity: copies,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var book model.Book
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &book))
	return book
}

func (a *testAPI) getBook(id string) model.Book {
	a.t.Helper()

	rec := a.do(http.MethodGet, "/books/"+id, "", nil)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	var book model.Book
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &book))
	return book
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegister_DuplicateUsername(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/register", "", model.RegisterRequest{
		Username: "reader", Password: "s3cret",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/login", "", model.LoginRequest{
		Username: "reader", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBooks_AdminGate(t *testing.T) {
	api := newTestAPI(t)
	payload := model.CreateBookRequest{Title: "Gated", Author: "Anon", Quantity: 1}

	rec := api.do(http.MethodPost, "/books", "", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/books", api.member, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/books", api.admin, payload)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Reads stay public.
	rec = api.do(http.MethodGet, "/books", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBooks_CRUD(t *testing.T) {
	api := newTestAPI(t)

	book := api.createBook("Editable", 4)
	assert.Equal(t, 4, book.TotalCopies)
	assert.Equal(t, 4, book.AvailableCopies)

	newTitle := "Edited"
	rec := api.do(http.MethodPut, "/books/"+book.ID, api.admin, model.UpdateBookRequest{Title: &newTitle})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Edited", api.getBook(book.ID).Title)

	rec = api.do(http.MethodDelete, "/books/"+book.ID, api.admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/books/"+book.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBooks_CreateValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/books", api.admin, model.CreateBookRequest{Author: "Anon", Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/books", api.admin, model.CreateBookRequest{Title: "T", Author: "A", Quantity: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBorrowReturn_FullFlow(t *testing.T) {
	api := newTestAPI(t)
	book := api.createBook("Single Copy", 1)

	// Borrow succeeds and hands back the transaction.
	rec := api.do(http.MethodPost, "/borrow", api.member, model.BorrowRequest{
		UserID: api.memberID, BookID: book.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tx model.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, model.StatusBorrowed, tx.Status)
	assert.Equal(t, 0, api.getBook(book.ID).AvailableCopies)

	// No copies left: the caller gets the specific reason.
	rec = api.do(http.MethodPost, "/borrow", api.admin, model.BorrowRequest{
		UserID: api.adminID, BookID: book.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Deleting a book with an open loan is refused.
	rec = api.do(http.MethodDelete, "/books/"+book.ID, api.admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Return restores the copy and closes the loan.
	rec = api.do(http.MethodPost, "/return", api.member, model.ReturnRequest{TransactionID: tx.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var returned model.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &returned))
	assert.Equal(t, model.StatusReturned, returned.Status)
	assert.NotNil(t, returned.ReturnDate)
	assert.Equal(t, 1, api.getBook(book.ID).AvailableCopies)

	// Double return surfaces the specific error.
	rec = api.do(http.MethodPost, "/return", api.member, model.ReturnRequest{TransactionID: tx.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// History reflects true state; no active loans remain.
	rec = api.do(http.MethodGet, "/history/"+api.memberID, api.member, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []model.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusReturned, history[0].Status)

	rec = api.do(http.MethodGet, fmt.Sprintf("/loans/%s/active", api.memberID), api.member, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestBorrow_Validation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/borrow", api.member, model.BorrowRequest{BookID: "b1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/borrow", api.member, model.BorrowRequest{
		UserID: api.memberID, BookID: "no-such-book",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/borrow", "", model.BorrowRequest{
		UserID: api.memberID, BookID: "b1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReturn_Validation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/return", api.member, model.ReturnRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/return", api.member, model.ReturnRequest{TransactionID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateBook_ConflictOnShrinkBelowLoans(t *testing.T) {
	api := newTestAPI(t)
	book := api.createBook("Shrinkable", 2)

	rec := api.do(http.MethodPost, "/borrow", api.member, model.BorrowRequest{
		UserID: api.memberID, BookID: book.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	zero := 0
	rec = api.do(http.MethodPut, "/books/"+book.ID, api.admin, model.UpdateBookRequest{TotalCopies: &zero})
	assert.Equal(t, http.StatusConflict, rec.Code)

	five := 5
	rec = api.do(http.MethodPut, "/books/"+book.ID, api.admin, model.UpdateBookRequest{TotalCopies: &five})
	require.Equal(t, http.StatusOK, rec.Code)
	got := api.getBook(book.ID)
	assert.Equal(t, 5, got.TotalCopies)
	assert.Equal(t, 4, got.AvailableCopies)
}

func TestUpdateProfile_OwnProfileOnly(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]string{"profile_picture": "me.png", "bio": "bookworm"}

	rec := api.do(http.MethodPut, "/users/"+api.memberID, api.member, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "bookworm", user.Bio)

	rec = api.do(http.MethodPut, "/users/"+api.adminID, api.member, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_request_duration_seconds")
}
