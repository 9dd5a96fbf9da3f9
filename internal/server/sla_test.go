package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	authdomain "github.com/locafrota/fleetsla/internal/auth/domain"
	"github.com/locafrota/fleetsla/internal/config"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/sla"
)

func TestEvaluateFormListsServiceTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	holder, err := config.NewSLAConfigHolder()
	if err != nil {
		t.Fatalf("sla config: %v", err)
	}
	srv := newTestServer()
	srv.slaCfg = holder

	router := newTestRouter()
	router.GET("/api/sla/evaluate", srv.EvaluateForm)

	req := httptest.NewRequest(http.MethodGet, "/api/sla/evaluate", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var body struct {
		ServiceTypes []serviceTypeView `json:"service_types"`
		MinScenarios int               `json:"min_scenarios"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.ServiceTypes) != 4 {
		t.Fatalf("expected 4 service types, got %d", len(body.ServiceTypes))
	}
	first := serviceTypeView{Value: "preventive", Label: "Preventiva", ThresholdDays: 2}
	if body.ServiceTypes[0] != first {
		t.Fatalf("first service type = %+v, want %+v", body.ServiceTypes[0], first)
	}
	last := serviceTypeView{Value: "engine", Label: "Motor", ThresholdDays: 15}
	if body.ServiceTypes[3] != last {
		t.Fatalf("last service type = %+v, want %+v", body.ServiceTypes[3], last)
	}
	if body.MinScenarios != 2 {
		t.Fatalf("min_scenarios = %d, want 2", body.MinScenarios)
	}
}

func TestEvaluateCreatesAnalysis(t *testing.T) {
	gin.SetMode(gin.TestMode)

	user := settledUser(101, identitydomain.RoleUser)
	auth := &fakeAuthService{user: user, session: &authdomain.Session{ID: 301, UserID: user.ID}}
	analyses := &fakeAnalysisService{}
	srv := newTestServer()
	srv.authsvc = auth
	srv.analysisSvc = analyses

	router := newTestRouter()
	router.POST("/api/sla/evaluate", srv.AuthRequired(), srv.Evaluate)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/sla/evaluate", bytes.NewBufferString(
		`{"client":"Transportadora Ipiranga","plate":"BRA2E19","entry_date":"2025-03-03","exit_date":"2025-03-10","holidays":1,"service_type":"corrective","monthly_fee":"1200"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if analyses.simpleCalls != 1 {
		t.Fatalf("expected one create call, got %d", analyses.simpleCalls)
	}
	if analyses.lastSimple.UserID != user.ID || analyses.lastSimple.Username != "carla" {
		t.Fatalf("unexpected author on create: %+v", analyses.lastSimple)
	}
	wantEntry := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	if !analyses.lastSimple.Input.EntryDate.Equal(wantEntry) {
		t.Fatalf("entry date = %v, want %v", analyses.lastSimple.Input.EntryDate, wantEntry)
	}

	var body struct {
		Analysis analysisdomain.Analysis     `json:"analysis"`
		Result   analysisdomain.SimpleRecord `json:"result"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Analysis.Protocol == "" {
		t.Fatal("expected a protocol on the stored analysis")
	}
	if body.Result.BusinessDays != 5 {
		t.Fatalf("business days = %d, want 5", body.Result.BusinessDays)
	}
	if body.Result.ThresholdDays != 3 || body.Result.ExcessDays != 2 {
		t.Fatalf("threshold/excess = %d/%d, want 3/2", body.Result.ThresholdDays, body.Result.ExcessDays)
	}
	if !body.Result.Discount.Equal(dec(t, "80")) {
		t.Fatalf("discount = %s, want 80", body.Result.Discount)
	}
	if body.Result.Status != sla.StatusOutOfSLA {
		t.Fatalf("status = %q, want %q", body.Result.Status, sla.StatusOutOfSLA)
	}
}

func TestEvaluateUnknownServiceTypeIsMaximallyStrict(t *testing.T) {
	gin.SetMode(gin.TestMode)

	user := settledUser(101, identitydomain.RoleUser)
	auth := &fakeAuthService{user: user, session: &authdomain.Session{ID: 301, UserID: user.ID}}
	analyses := &fakeAnalysisService{}
	srv := newTestServer()
	srv.authsvc = auth
	srv.analysisSvc = analyses

	router := newTestRouter()
	router.POST("/api/sla/evaluate", srv.AuthRequired(), srv.Evaluate)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/sla/evaluate", bytes.NewBufferString(
		`{"client":"Frota Sul","plate":"QWE1D23","entry_date":"2025-03-03","exit_date":"2025-03-04","holidays":0,"service_type":"detailing","monthly_fee":"300"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Result analysisdomain.SimpleRecord `json:"result"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Result.ThresholdDays != 0 {
		t.Fatalf("threshold = %d, want 0 for an unknown type", body.Result.ThresholdDays)
	}
	if body.Result.ExcessDays != 2 {
		t.Fatalf("excess = %d, want every business day counted", body.Result.ExcessDays)
	}
	if !body.Result.Discount.Equal(dec(t, "20")) {
		t.Fatalf("discount = %s, want 20", body.Result.Discount)
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name  string
		body  string
		field string
		code  string
	}{
		{
			"malformed entry date",
			`{"entry_date":"03/03/2025","exit_date":"2025-03-10","holidays":0,"service_type":"corrective","monthly_fee":"1200"}`,
			"entry_date", "invalid_date",
		},
		{
			"inverted range",
			`{"entry_date":"2025-03-10","exit_date":"2025-03-03","holidays":0,"service_type":"corrective","monthly_fee":"1200"}`,
			"exit_date", "invalid_time_range",
		},
		{
			"negative holidays",
			`{"entry_date":"2025-03-03","exit_date":"2025-03-10","holidays":-1,"service_type":"corrective","monthly_fee":"1200"}`,
			"holidays", "invalid_holidays",
		},
		{
			"negative fee",
			`{"entry_date":"2025-03-03","exit_date":"2025-03-10","holidays":0,"service_type":"corrective","monthly_fee":"-10"}`,
			"monthly_fee", "invalid_monthly_fee",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := settledUser(101, identitydomain.RoleUser)
			auth := &fakeAuthService{user: user, session: &authdomain.Session{ID: 301, UserID: user.ID}}
			analyses := &fakeAnalysisService{}
			srv := newTestServer()
			srv.authsvc = auth
			srv.analysisSvc = analyses

			router := newTestRouter()
			router.POST("/api/sla/evaluate", srv.AuthRequired(), srv.Evaluate)

			req := withSession(httptest.NewRequest(http.MethodPost, "/api/sla/evaluate", bytes.NewBufferString(tc.body)))
			req.Header.Set("Content-Type", "application/json")
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
			}
			payload := decodeError(t, resp.Body.Bytes())
			if payload.Type != "validation_error" {
				t.Fatalf("error type = %q, want validation_error", payload.Type)
			}
			if len(payload.Errors) != 1 || payload.Errors[0].Field != tc.field || payload.Errors[0].Code != tc.code {
				t.Fatalf("unexpected violation: %+v", payload.Errors)
			}
			if analyses.simpleCalls != 0 {
				t.Fatal("expected nothing persisted on invalid input")
			}
		})
	}
}
