package submission

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/claims/internal/platform/fhir"
)

func newTestHandler(repo Repository) (*Handler, *echo.Echo) {
	return NewHandler(newTestService(repo)), echo.New()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) *fhir.OperationOutcome {
	t.Helper()
	var o fhir.OperationOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if len(o.Issue) == 0 {
		t.Fatal("expected at least one issue")
	}
	return &o
}

func TestHandler_Normalize(t *testing.T) {
	h, e := newTestHandler(nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/?format=generic", genericPayload), rec)

	if err := h.Normalize(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["claim_id"] != "GEN-1" {
		t.Errorf("expected claim_id GEN-1, got %v", body["claim_id"])
	}
}

func TestHandler_Normalize_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"malformed json", `{"claim_id":`, http.StatusBadRequest, "parsing_error"},
		{"not an object", `[1, 2]`, http.StatusUnprocessableEntity, "invalid_data"},
		{"bundle without claim", `{"resourceType": "Bundle", "entry": []}`, http.StatusUnprocessableEntity, "missing_required_field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e := newTestHandler(nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(jsonRequest(http.MethodPost, "/?format=waseel", tt.body), rec)
			if err := h.Normalize(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			o := decodeOutcome(t, rec)
			d := o.Issue[0].Details
			if d == nil || len(d.Coding) != 1 || d.Coding[0].Code != tt.kind || d.Coding[0].System != ErrorSystem {
				t.Errorf("expected %s detail code, got %+v", tt.kind, d)
			}
		})
	}
}

func TestHandler_NormalizeBatch(t *testing.T) {
	h, e := newTestHandler(nil)
	body := `{"format":"generic","payloads":[` + genericPayload + `, "oops"]}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/", body), rec)

	if err := h.NormalizeBatch(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var items []struct {
		Index int                    `json:"index"`
		Claim map[string]interface{} `json:"claim"`
		Error *struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Claim == nil || items[0].Error != nil {
		t.Errorf("expected item 0 to succeed, got %+v", items[0])
	}
	if items[1].Index != 1 || items[1].Error == nil || items[1].Error.Kind != "invalid_data" {
		t.Errorf("expected item 1 invalid_data, got %+v", items[1])
	}
}

func TestHandler_Validate(t *testing.T) {
	h, e := newTestHandler(nil)
	body := `{"claim_id":"","provider":{"name":"","code":"","branch":"riyadh"},"patient":{"member_id":"","name":""},
		"claim_details":{"service_date":"2024-06-10T00:00:00Z","total_amount":"0","diagnosis_codes":[],"procedure_codes":[]},
		"payer":{"name":"","insurance_type":"other"},"submission":{"method":"portal","timestamp":"2024-06-12T09:00:00Z","status":"pending"}}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/", body), rec)

	if err := h.Validate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var verdict map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &verdict)
	if verdict["status"] != "failed" {
		t.Errorf("expected failed verdict for empty claim, got %v", verdict["status"])
	}
}

func TestHandler_Validate_RejectsOutOfRangeAmount(t *testing.T) {
	h, e := newTestHandler(nil)
	for _, tt := range []struct {
		name    string
		body    string
		handler func(echo.Context) error
	}{
		{"single", `{"claim_id":"C1","claim_details":{"total_amount":1e2000000}}`, h.Validate},
		{"batch", `{"claims":[{"claim_id":"A"},{"claim_id":"B","claim_details":{"total_amount":"1e400"}}]}`, h.ValidateBatch},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(jsonRequest(http.MethodPost, "/", tt.body), rec)
			if err := tt.handler(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("expected 422, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_ValidateBatch_KeepsOrder(t *testing.T) {
	h, e := newTestHandler(nil)
	body := `{"claims":[{"claim_id":"A"},{"claim_id":"B"},{"claim_id":"C"}]}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/", body), rec)

	if err := h.ValidateBatch(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var verdicts []struct {
		ClaimID string `json:"claim_id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &verdicts)
	if len(verdicts) != 3 || verdicts[0].ClaimID != "A" || verdicts[2].ClaimID != "C" {
		t.Errorf("unexpected verdicts %+v", verdicts)
	}
}

func TestHandler_Process(t *testing.T) {
	repo := newMockRepo()
	h, e := newTestHandler(repo)
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/?format=generic", genericPayload), rec)

	if err := h.Process(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.items) != 1 {
		t.Errorf("expected stored submission, got %d", len(repo.items))
	}
}

func TestHandler_Process_Rejected(t *testing.T) {
	h, e := newTestHandler(newMockRepo())
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/?format=generic&validate=false", `"just a string"`), rec)

	if err := h.Process(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"rejected"`) {
		t.Errorf("expected rejected submission body, got %s", rec.Body.String())
	}
}

func TestHandler_Process_BadFlag(t *testing.T) {
	h, e := newTestHandler(nil)
	c := e.NewContext(jsonRequest(http.MethodPost, "/?validate=maybe", genericPayload), httptest.NewRecorder())
	err := h.Process(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_ProcessBatch(t *testing.T) {
	h, e := newTestHandler(newMockRepo())
	body := `{"format":"generic","validate":false,"payloads":[` + genericPayload + `,{"claim_id":"GEN-2"}]}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/", body), rec)

	if err := h.ProcessBatch(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var subs []Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &subs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(subs) != 2 || subs[1].ClaimID != "GEN-2" || subs[1].Status != StatusNormalized {
		t.Errorf("unexpected submissions %+v", subs)
	}
}

func TestHandler_GetSubmission(t *testing.T) {
	repo := newMockRepo()
	h, e := newTestHandler(repo)
	sub := &Submission{ID: uuid.New(), ClaimID: "X-1", Status: StatusNormalized}
	repo.items[sub.ID] = sub

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(sub.ID.String())
	if err := h.GetSubmission(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetSubmission_NotFound(t *testing.T) {
	h, e := newTestHandler(newMockRepo())
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if err := h.GetSubmission(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_GetSubmission_InvalidID(t *testing.T) {
	h, e := newTestHandler(newMockRepo())
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if err := h.GetSubmission(c); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestHandler_ListSubmissions(t *testing.T) {
	repo := newMockRepo()
	h, e := newTestHandler(repo)
	for _, id := range []string{"A", "B", "C"} {
		s := &Submission{ID: uuid.New(), ClaimID: id, Status: StatusNormalized}
		repo.items[s.ID] = s
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=2", nil), rec)
	if err := h.ListSubmissions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data    []Submission `json:"data"`
		Total   int          `json:"total"`
		HasMore bool         `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || len(resp.Data) != 2 || !resp.HasMore {
		t.Errorf("unexpected page %+v", resp)
	}
}

func TestHandler_ListSubmissions_NoStore(t *testing.T) {
	h, e := newTestHandler(nil)
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	err := h.ListSubmissions(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", err)
	}
}

func TestRegisterRoutes(t *testing.T) {
	h, e := newTestHandler(nil)
	h.RegisterRoutes(e.Group("/api/v1"))
	want := map[string]bool{
		"POST /api/v1/claims/normalize":       false,
		"POST /api/v1/claims/normalize/batch": false,
		"POST /api/v1/claims/validate":        false,
		"POST /api/v1/claims/validate/batch":  false,
		"POST /api/v1/claims/process":         false,
		"POST /api/v1/claims/process/batch":   false,
		"GET /api/v1/submissions":             false,
		"GET /api/v1/submissions/:id":         false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("missing route %s", route)
		}
	}
}
