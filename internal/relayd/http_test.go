package relayd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/danmuck/relayctl/internal/relay"
	"github.com/danmuck/relayctl/internal/testutil/testlog"
)

func newTestAdmin(t *testing.T) (*Admin, *Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := NewStore()
	return NewAdmin("test-admin", store, nil), store
}

func doRequest(t *testing.T, admin *Admin, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	admin.Router().ServeHTTP(w, req)
	return w
}

func TestAdminHealth(t *testing.T) {
	testlog.Start(t)
	admin, _ := newTestAdmin(t)
	w := doRequest(t, admin, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health body: %s", w.Body.String())
	}
}

func TestAdminSeedAndList(t *testing.T) {
	testlog.Start(t)
	admin, store := newTestAdmin(t)

	w := doRequest(t, admin, http.MethodPut, "/records/Example.ORG",
		`[{"key":"a","value":"1","sign":true},{"key":"b","value":"2"}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("seed status = %d body=%s", w.Code, w.Body.String())
	}

	fqdn := mustFQDN(t, "example.org")
	records := store.Lookup(fqdn)
	if len(records) != 2 {
		t.Fatalf("store holds %d records, want 2", len(records))
	}
	if records[0].Key != "a" || string(records[0].Value) != "1" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if len(records[0].Sig) == 0 {
		t.Fatal("sign=true did not attach a signature")
	}
	if len(records[1].Sig) != 0 {
		t.Fatal("unsigned record gained a signature")
	}

	w = doRequest(t, admin, http.MethodGet, "/fqdns", "")
	if w.Code != http.StatusOK {
		t.Fatalf("fqdns status = %d", w.Code)
	}
	var listing struct {
		FQDNs []string `json:"fqdns"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode fqdns: %v", err)
	}
	if len(listing.FQDNs) != 1 || listing.FQDNs[0] != "example.org" {
		t.Fatalf("fqdns = %v", listing.FQDNs)
	}
}

func TestAdminSeedRejectsMissingKey(t *testing.T) {
	testlog.Start(t)
	admin, store := newTestAdmin(t)

	w := doRequest(t, admin, http.MethodPut, "/records/example.org", `[{"value":"1"}]`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := store.Lookup(mustFQDN(t, "example.org")); len(got) != 0 {
		t.Fatalf("partial seed applied: %d records", len(got))
	}
}

func TestAdminGetRecords(t *testing.T) {
	testlog.Start(t)
	admin, store := newTestAdmin(t)
	fqdn := mustFQDN(t, "example.org")
	store.Put(fqdn, []relay.Record{{Key: "a", Value: []byte("1")}})

	w := doRequest(t, admin, http.MethodGet, "/records/example.org", "")
	if w.Code != http.StatusOK {
		t.Fatalf("records status = %d", w.Code)
	}
	var body struct {
		FQDN    string         `json:"fqdn"`
		Records []relay.Record `json:"records"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if body.FQDN != "example.org" || len(body.Records) != 1 || body.Records[0].Key != "a" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestAdminRejectsBadFQDN(t *testing.T) {
	testlog.Start(t)
	admin, _ := newTestAdmin(t)
	w := doRequest(t, admin, http.MethodGet, "/records/bad..name", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAdminDenyFlow(t *testing.T) {
	testlog.Start(t)
	admin, store := newTestAdmin(t)
	fqdn := mustFQDN(t, "blocked.example.org")

	w := doRequest(t, admin, http.MethodPost, "/deny/blocked.example.org", `{"status":403}`)
	if w.Code != http.StatusOK {
		t.Fatalf("deny status = %d body=%s", w.Code, w.Body.String())
	}
	status, denied := store.DeniedStatus(fqdn)
	if !denied || status != 403 {
		t.Fatalf("store deny = %d/%v, want 403/true", status, denied)
	}

	w = doRequest(t, admin, http.MethodPost, "/deny/blocked.example.org", `{"status":0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero status accepted: %d", w.Code)
	}

	w = doRequest(t, admin, http.MethodDelete, "/deny/blocked.example.org", "")
	if w.Code != http.StatusOK {
		t.Fatalf("allow status = %d", w.Code)
	}
	if _, denied := store.DeniedStatus(fqdn); denied {
		t.Fatal("delete did not clear deny")
	}
}

func TestAdminDeleteRecords(t *testing.T) {
	testlog.Start(t)
	admin, store := newTestAdmin(t)
	fqdn := mustFQDN(t, "example.org")
	store.Put(fqdn, []relay.Record{{Key: "a", Value: []byte("1")}})

	w := doRequest(t, admin, http.MethodDelete, "/records/example.org", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if got := store.Lookup(fqdn); len(got) != 0 {
		t.Fatalf("records remain after delete: %d", len(got))
	}
}
