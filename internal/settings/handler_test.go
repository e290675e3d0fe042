package settings

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewService(NewMemStore(), nil))
	return r
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

func TestHandlerGetSystem_Defaults(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(t, r, "GET", "/settings/system", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp SystemSettings
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CompanyName != DefaultSystem().CompanyName {
		t.Errorf("expected default company name, got %q", resp.CompanyName)
	}
}

func TestHandlerUpdateSystem_RoundtripAndValidation(t *testing.T) {
	r := setupRouter(t)

	in := DefaultSystem()
	in.CompanyName = "ATLAS Delivery GmbH"
	w := doJSON(t, r, "PUT", "/settings/system", in)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, "GET", "/settings/system", nil)
	var resp SystemSettings
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.CompanyName != "ATLAS Delivery GmbH" {
		t.Errorf("update not persisted: %q", resp.CompanyName)
	}

	in.Theme = "solarized"
	w = doJSON(t, r, "PUT", "/settings/system", in)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad theme, got %d", w.Code)
	}
	var errResp map[string]map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &errResp)
	if errResp["error"]["code"] != "INVALID_ARGUMENT" {
		t.Errorf("expected INVALID_ARGUMENT, got %v", errResp["error"]["code"])
	}
}

func TestHandlerNotificationsAndSecurity(t *testing.T) {
	r := setupRouter(t)

	in := DefaultNotifications()
	in.SMSEnabled = true
	in.QuietHours = QuietHours{Enabled: true, Start: "21:00", End: "06:00"}
	w := doJSON(t, r, "PUT", "/settings/notifications", in)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, "GET", "/settings/notifications", nil)
	var ntf NotificationSettings
	json.Unmarshal(w.Body.Bytes(), &ntf)
	if !ntf.SMSEnabled || !ntf.QuietHours.Enabled || ntf.QuietHours.Start != "21:00" {
		t.Errorf("roundtrip mismatch: %+v", ntf)
	}

	sec := DefaultSecurity()
	sec.SessionTimeoutMinutes = 2 // 範囲外
	w = doJSON(t, r, "PUT", "/settings/security", sec)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short session timeout, got %d", w.Code)
	}
}
