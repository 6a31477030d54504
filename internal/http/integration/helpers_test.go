package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/inventoryhub/internal/auth"
	"github.com/geocoder89/inventoryhub/internal/cache"
	apphttp "github.com/geocoder89/inventoryhub/internal/http"
	"github.com/geocoder89/inventoryhub/internal/repo/observed"
	"github.com/geocoder89/inventoryhub/internal/stats"
	"github.com/gin-gonic/gin"
)

func newRouter(items observed.ItemStore, users observed.UserStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tokens := auth.NewManager("test-secret-key", 24*time.Hour)

	return apphttp.NewRouter(apphttp.Deps{
		Log:    logger,
		Env:    "test",
		Items:  items,
		Auth:   auth.NewAuthenticator(users, tokens),
		Tokens: tokens,
		Stats:  stats.NewService(items, cache.New(time.Minute)),
		Ready:  items.Ping,
	})
}

// function that runs a request and returns the recorder
func doRequest(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func expectStatus(t *testing.T, step string, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("%s got status %d, want %d, body=%s", step, w.Code, want, w.Body.String())
	}
}

// runInventoryFlow drives register, login, item CRUD, search, stats and delete through the full router.
func runInventoryFlow(t *testing.T, router http.Handler) {
	t.Helper()

	// register + duplicate
	reg := `{"username":"sam","email":"sam@example.com","password":"password123"}`
	expectStatus(t, "register", doRequest(router, http.MethodPost, "/api/auth/register", reg, ""), http.StatusCreated)
	expectStatus(t, "register again", doRequest(router, http.MethodPost, "/api/auth/register", reg, ""), http.StatusBadRequest)

	// login
	w := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"sam@example.com","password":"password123"}`, "")
	expectStatus(t, "login", w, http.StatusOK)

	var login struct {
		AccessToken string `json:"access_token"`
	}
	mustReadJSON(t, w, &login)
	token := login.AccessToken

	wrongPw := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"sam@example.com","password":"nope"}`, "")
	unknown := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"nope"}`, "")
	expectStatus(t, "login wrong password", wrongPw, http.StatusUnauthorized)
	expectStatus(t, "login unknown email", unknown, http.StatusUnauthorized)
	var e1, e2 struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	mustReadJSON(t, wrongPw, &e1)
	mustReadJSON(t, unknown, &e2)
	if e1 != e2 {
		t.Fatalf("login failures differ: %+v vs %+v", e1, e2)
	}

	// items
	var created struct {
		ID string `json:"id"`
	}

	w = doRequest(router, http.MethodPost, "/api/items/", `{"name":"Red Hammer","item_code":"H-1","category":"tools","quantity":5,"price":"2.50"}`, token)
	expectStatus(t, "create hammer", w, http.StatusCreated)
	mustReadJSON(t, w, &created)
	hammer := created.ID

	w = doRequest(router, http.MethodPost, "/api/items/", `{"name":"Paint 50% off","item_code":"P-1","category":"paint","quantity":"3","price":10,"description":"hammered finish"}`, token)
	expectStatus(t, "create paint", w, http.StatusCreated)
	mustReadJSON(t, w, &created)
	paint := created.ID

	expectStatus(t, "create bad quantity",
		doRequest(router, http.MethodPost, "/api/items/", `{"name":"x","item_code":"x","category":"x","quantity":"abc","price":1}`, token),
		http.StatusBadRequest)

	// list + search
	var list struct {
		Items []struct {
			ID string `json:"_id"`
		} `json:"items"`
		Total int64 `json:"total"`
		Pages int64 `json:"pages"`
	}

	w = doRequest(router, http.MethodGet, "/api/items?limit=1&page=1", "", token)
	expectStatus(t, "list", w, http.StatusOK)
	mustReadJSON(t, w, &list)
	if list.Total != 2 || list.Pages != 2 || len(list.Items) != 1 || list.Items[0].ID != paint {
		t.Fatalf("unexpected first page: %+v", list)
	}

	w = doRequest(router, http.MethodGet, "/api/items?search=HAMMER", "", token)
	expectStatus(t, "search", w, http.StatusOK)
	mustReadJSON(t, w, &list)
	if list.Total != 2 {
		t.Fatalf("search should match name and description, got %d", list.Total)
	}

	w = doRequest(router, http.MethodGet, "/api/items?search=50%25&category=paint", "", token)
	expectStatus(t, "literal search", w, http.StatusOK)
	mustReadJSON(t, w, &list)
	if list.Total != 1 {
		t.Fatalf("literal %% search should match once, got %d", list.Total)
	}

	// stats
	var st struct {
		TotalItems    int64   `json:"total_items"`
		LowStockItems int64   `json:"low_stock_items"`
		TotalValue    float64 `json:"total_value"`
		Categories    []struct {
			Category *string `json:"category"`
			Count    int64   `json:"count"`
		} `json:"categories"`
	}

	w = doRequest(router, http.MethodGet, "/api/stats", "", token)
	expectStatus(t, "stats", w, http.StatusOK)
	mustReadJSON(t, w, &st)
	if st.TotalItems != 2 || st.LowStockItems != 2 || st.TotalValue != 42.5 || len(st.Categories) != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	// update
	expectStatus(t, "update", doRequest(router, http.MethodPut, "/api/items/"+hammer, `{"quantity":50}`, token), http.StatusOK)

	var got struct {
		Name     string `json:"name"`
		Quantity int64  `json:"quantity"`
	}
	w = doRequest(router, http.MethodGet, "/api/items/"+hammer, "", token)
	expectStatus(t, "get after update", w, http.StatusOK)
	mustReadJSON(t, w, &got)
	if got.Quantity != 50 || got.Name != "Red Hammer" {
		t.Fatalf("partial update went wrong: %+v", got)
	}

	w = doRequest(router, http.MethodGet, "/api/stats/", "", token)
	mustReadJSON(t, w, &st)
	if st.LowStockItems != 1 || st.TotalValue != 155 {
		t.Fatalf("stats not refreshed after update: %+v", st)
	}

	// delete
	expectStatus(t, "delete", doRequest(router, http.MethodDelete, "/api/items/"+hammer, "", token), http.StatusOK)
	expectStatus(t, "get deleted", doRequest(router, http.MethodGet, "/api/items/"+hammer, "", token), http.StatusNotFound)
	expectStatus(t, "delete again", doRequest(router, http.MethodDelete, "/api/items/"+hammer, "", token), http.StatusNotFound)
	expectStatus(t, "update deleted", doRequest(router, http.MethodPut, "/api/items/"+hammer, `{"quantity":1}`, token), http.StatusNotFound)

	// low stock
	w = doRequest(router, http.MethodGet, "/api/stats/low-stock", "", token)
	expectStatus(t, "low stock", w, http.StatusOK)
	mustReadJSON(t, w, &list)
	if len(list.Items) != 1 || list.Items[0].ID != paint {
		t.Fatalf("unexpected low stock list: %+v", list.Items)
	}

	expectStatus(t, "readyz", doRequest(router, http.MethodGet, "/readyz", "", ""), http.StatusOK)
}
