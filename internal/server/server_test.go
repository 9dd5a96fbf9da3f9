package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	authdomain "github.com/locafrota/fleetsla/internal/auth/domain"
	"github.com/locafrota/fleetsla/internal/auth/session"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/sla"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestServer() *Server {
	return &Server{
		cfg:      config.Config{PasswordMaxAge: 90 * 24 * time.Hour},
		log:      zap.NewNop(),
		clock:    clock.NewFakeClock(testNow),
		sessions: session.NewManager(config.Config{}),
	}
}

func newTestRouter() *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	return router
}

func withSession(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "tok-123"})
	return req
}

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func decodeError(t *testing.T, body []byte) errorPayload {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

// settledUser builds an active account that owes no gate step.
func settledUser(id int64, role string) *identitydomain.User {
	terms := testNow.AddDate(0, -1, 0)
	return &identitydomain.User{
		ID:                snowflake.ID(id),
		Username:          "carla",
		Email:             "carla@example.com",
		FullName:          "Carla Mendes",
		Matricula:         "F10482",
		Role:              role,
		Status:            identitydomain.StatusActive,
		PasswordChangedAt: testNow.AddDate(0, 0, -30),
		TermsAcceptedAt:   &terms,
	}
}

func simpleAnalysis(id int64, userID snowflake.ID, protocol, client, plate string, input sla.EvaluationInput) *analysisdomain.Analysis {
	eval := sla.Evaluate(input, sla.DefaultThresholds())
	payload, _ := json.Marshal(analysisdomain.SimpleRecord{Client: client, Plate: plate, Evaluation: eval})
	return &analysisdomain.Analysis{
		ID:         snowflake.ID(id),
		Protocol:   protocol,
		UserID:     userID,
		Username:   "carla",
		Kind:       analysisdomain.KindSimple,
		ClientName: client,
		Plate:      plate,
		Payload:    datatypes.JSON(payload),
		FinalTotal: eval.MonthlyFee.Sub(eval.Discount).Round(2),
		RecordedAt: testNow,
		CreatedAt:  testNow,
	}
}

type fakeAuthService struct {
	authdomain.Service

	user    *identitydomain.User
	session *authdomain.Session
	authErr error

	loginResult *authdomain.LoginResult
	loginErr    error
	loginCalls  int
	lastLogin   authdomain.LoginRequest

	logoutCalls int
	lastToken   string

	changeCalls int
	lastChange  authdomain.ChangePasswordRequest
	changeErr   error

	resetRequests []string
	resetErr      error
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	f.loginCalls++
	f.lastLogin = req
	_ = ctx
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResult, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, rawToken string) error {
	f.logoutCalls++
	f.lastToken = rawToken
	_ = ctx
	return nil
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*identitydomain.User, *authdomain.Session, error) {
	f.lastToken = rawToken
	_ = ctx
	if f.authErr != nil {
		return nil, nil, f.authErr
	}
	return f.user, f.session, nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, req authdomain.ChangePasswordRequest) error {
	f.changeCalls++
	f.lastChange = req
	_ = ctx
	return f.changeErr
}

func (f *fakeAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	f.resetRequests = append(f.resetRequests, email)
	_ = ctx
	return f.resetErr
}

type fakeIdentityService struct {
	identitydomain.Service

	signupCalls int
	lastSignup  identitydomain.SignupRequest
	signupErr   error

	acceptCalls  int
	lastAcceptID string
}

func (f *fakeIdentityService) Signup(ctx context.Context, req identitydomain.SignupRequest) (*identitydomain.User, error) {
	f.signupCalls++
	f.lastSignup = req
	_ = ctx
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &identitydomain.User{
		ID:           snowflake.ID(200),
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		Matricula:    req.Matricula,
		PasswordHash: "$2a$10$never-serialized",
		Role:         identitydomain.RoleUser,
		Status:       identitydomain.StatusPending,
	}, nil
}

func (f *fakeIdentityService) AcceptTerms(ctx context.Context, id string) error {
	f.acceptCalls++
	f.lastAcceptID = id
	_ = ctx
	return nil
}

type fakeAuthz struct {
	err   error
	calls int
}

func (f *fakeAuthz) Authorize(ctx context.Context, subject string, role string, object string, action string) error {
	f.calls++
	_ = ctx
	_ = subject
	_ = role
	_ = object
	_ = action
	return f.err
}

type fakeAnalysisService struct {
	analysisdomain.Service

	byProtocol map[string]*analysisdomain.Analysis

	simpleCalls int
	lastSimple  analysisdomain.CreateSimpleRequest
	simpleErr   error

	listCalls int
	lastList  analysisdomain.ListAnalysisRequest
}

func (f *fakeAnalysisService) CreateSimple(ctx context.Context, req analysisdomain.CreateSimpleRequest) (*analysisdomain.Analysis, error) {
	f.simpleCalls++
	f.lastSimple = req
	_ = ctx
	if f.simpleErr != nil {
		return nil, f.simpleErr
	}
	return simpleAnalysis(77, req.UserID, "b1f8a7e2-4c52-4f4e-9c0a-52c9a3d8f6b1", req.Client, req.Plate, req.Input), nil
}

func (f *fakeAnalysisService) GetByProtocol(ctx context.Context, protocol string) (*analysisdomain.Analysis, error) {
	_ = ctx
	analysis, ok := f.byProtocol[protocol]
	if !ok {
		return nil, analysisdomain.ErrNotFound
	}
	return analysis, nil
}

func (f *fakeAnalysisService) List(ctx context.Context, req analysisdomain.ListAnalysisRequest) (analysisdomain.ListAnalysisResponse, error) {
	f.listCalls++
	f.lastList = req
	_ = ctx
	return analysisdomain.ListAnalysisResponse{}, nil
}
