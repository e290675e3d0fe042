package returns

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ATLAS-backend/internal/orders"
)

func setupRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := orders.NewMemStore()
	catalog.SeedDemo(testNow)
	svc := NewService(NewMemStore(), catalog, nil, nil)
	svc.clock = fixedClock{t: testNow}
	svc.id = &seqIDGen{}

	r := gin.New()
	RegisterRoutes(r, svc)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createViaAPI(t *testing.T, r *gin.Engine) map[string]interface{} {
	t.Helper()
	w := doJSON(t, r, "POST", "/returns", laptopRequest())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHandlerCreate(t *testing.T) {
	r, _ := setupRouter(t)

	resp := createViaAPI(t, r)
	if resp["status"] != StatusPending {
		t.Errorf("expected pending, got %v", resp["status"])
	}
	if resp["refund_amount"].(float64) != 1200 {
		t.Errorf("expected refund 1200, got %v", resp["refund_amount"])
	}
	if resp["return_ulid"] == "" {
		t.Error("expected non-empty return_ulid")
	}
}

func TestHandlerCreate_SetsLocationHeader(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, "POST", "/returns", laptopRequest())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/returns/") {
		t.Errorf("expected Location header, got %q", loc)
	}
}

func TestHandlerCreate_MissingFields(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, "POST", "/returns", map[string]interface{}{"reason": "壊れていた"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"]["code"] != "INVALID_ARGUMENT" {
		t.Errorf("expected INVALID_ARGUMENT, got %v", resp["error"]["code"])
	}
}

func TestHandlerGet_NotFound(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, "GET", "/returns/01NOSUCHRETURN000000000000", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlerList(t *testing.T) {
	r, _ := setupRouter(t)
	createViaAPI(t, r)

	w := doJSON(t, r, "GET", "/returns", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["total"].(float64) != 1 {
		t.Errorf("expected total 1, got %v", resp["total"])
	}
}

func TestHandlerList_RejectsMalformedDateFilters(t *testing.T) {
	r, _ := setupRouter(t)
	createViaAPI(t, r)

	for _, path := range []string{
		"/returns?from=2024-11-20",        // RFC3339でない
		"/returns?to=not-a-date",
		"/returns?from=2024/11/20T00:00:00Z",
	} {
		w := doJSON(t, r, "GET", path, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d: %s", path, w.Code, w.Body.String())
			continue
		}
		var resp map[string]map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp["error"]["code"] != "INVALID_ARGUMENT" {
			t.Errorf("%s: expected INVALID_ARGUMENT, got %v", path, resp["error"]["code"])
		}
	}

	// 正しいRFC3339はフィルタとして効く
	w := doJSON(t, r, "GET", "/returns?from=2024-11-19T00:00:00Z&to=2024-11-21T00:00:00Z", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid range, got %d: %s", w.Code, w.Body.String())
	}
	var ok map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &ok)
	if ok["total"].(float64) != 1 {
		t.Errorf("expected 1 return in range, got %v", ok["total"])
	}
}

func TestHandlerApproveRejectFlow(t *testing.T) {
	r, _ := setupRouter(t)
	created := createViaAPI(t, r)
	ulid := created["return_ulid"].(string)

	// 承認（操作者は本文から）
	w := doJSON(t, r, "POST", "/returns/"+ulid+"/approve", TransitionRequest{Actor: "admin"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != StatusApproved {
		t.Errorf("expected approved, got %v", resp["status"])
	}

	// 理由なしの却下は 400
	w = doJSON(t, r, "POST", "/returns/"+ulid+"/reject", map[string]string{"actor": "admin"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("reject without reason: expected 400, got %d", w.Code)
	}

	// 理由付きの却下
	w = doJSON(t, r, "POST", "/returns/"+ulid+"/reject", RejectRequest{Actor: "admin", Reason: "Policy violation"})
	if w.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["notes"] != "Policy violation" {
		t.Errorf("expected reason in notes, got %v", resp["notes"])
	}
}

func TestHandlerDelete_NoContentAndIdempotent(t *testing.T) {
	r, _ := setupRouter(t)
	created := createViaAPI(t, r)
	ulid := created["return_ulid"].(string)

	w := doJSON(t, r, "DELETE", "/returns/"+ulid, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	// 2回目も 204
	w = doJSON(t, r, "DELETE", "/returns/"+ulid, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("second delete: expected 204, got %d", w.Code)
	}
}

func TestHandlerStats(t *testing.T) {
	r, _ := setupRouter(t)
	createViaAPI(t, r)

	w := doJSON(t, r, "GET", "/return-stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Errorf("expected total 1, got %d", resp.Total)
	}
	if len(resp.CountByStatus) != len(Statuses) {
		t.Errorf("expected all statuses as keys, got %v", resp.CountByStatus)
	}
}

func TestHandlerEligibleOrders(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, "GET", "/eligible-orders", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["count"].(float64) != 2 {
		t.Errorf("expected 2 eligible orders, got %v", resp["count"])
	}
}

func TestHandlerExport_BadEncoding(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, "GET", "/return-export?encoding=latin1", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlerExport_Headers(t *testing.T) {
	r, _ := setupRouter(t)
	createViaAPI(t, r)

	w := doJSON(t, r, "GET", "/return-export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "returns.csv") {
		t.Errorf("expected attachment header, got %q", cd)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Errorf("expected text/csv, got %q", ct)
	}
}
