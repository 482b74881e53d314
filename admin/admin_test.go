package admin_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ssehub/ssehub"
	"github.com/ssehub/ssehub/admin"
)

// it should serve a HTML index page
func TestAdminHTTPIndex(t *testing.T) {
	s, err := ssehub.NewServer()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown()

	req, err := http.NewRequest("GET", "/admin/", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := admin.AdminHandler(s)
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}
}

// it should expose a REST JSON status API
func TestAdminHTTPStatusAPI(t *testing.T) {
	s, err := ssehub.NewServer()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown()

	req, err := http.NewRequest("GET", "/admin/status.json", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := admin.AdminHandler(s)
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	if ctype := rr.Header().Get("Content-Type"); ctype != "application/json" {
		t.Errorf("content type header does not match: got %v want %v",
			ctype, "application/json")
	}

	var status ssehub.ReportingStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("status body is not valid JSON: %v", err)
	}
	if status.Status != "OK" {
		t.Errorf("expected status OK, got %q", status.Status)
	}
}

// it should refuse to serve anything when the surface is disabled
func TestAdminHTTPDisabled(t *testing.T) {
	s, err := ssehub.NewServer(ssehub.WithDisableAdminEndpoints())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown()

	req, err := http.NewRequest("GET", "/admin/status.json", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	admin.AdminHandler(s).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusForbidden {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusForbidden)
	}
}
