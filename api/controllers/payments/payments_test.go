package payments

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcontreras/vendia-backend/api/middleware"
	internalpayments "github.com/jpcontreras/vendia-backend/internal/payments"
	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
)

type testPaymentsService struct {
	internalpayments.Service

	submitFn func(ctx context.Context, input internalpayments.SubmitPaymentInput) (*models.Payment, error)
	verifyFn func(ctx context.Context, input internalpayments.VerifyPaymentInput) error
}

func (s *testPaymentsService) Submit(ctx context.Context, input internalpayments.SubmitPaymentInput) (*models.Payment, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, input)
	}
	return &models.Payment{}, nil
}

func (s *testPaymentsService) Verify(ctx context.Context, input internalpayments.VerifyPaymentInput) error {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, input)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func authedRequest(r *http.Request, userID uuid.UUID, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(r.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return r.WithContext(ctx)
}

func addRouteParam(r *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
}

func TestSubmitForwardsParsedPayment(t *testing.T) {
	clientID := uuid.New()
	orderID := uuid.New()
	var got internalpayments.SubmitPaymentInput
	svc := &testPaymentsService{
		submitFn: func(ctx context.Context, input internalpayments.SubmitPaymentInput) (*models.Payment, error) {
			got = input
			return &models.Payment{ID: uuid.New()}, nil
		},
	}

	body := `{"amount":"3625.00","currency":"VES","method":"transfer","reference":"0412-555"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/payments", strings.NewReader(body))
	req = authedRequest(req, clientID, enums.RoleClient)
	req = addRouteParam(req, "orderId", orderID.String())

	resp := httptest.NewRecorder()
	Submit(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.OrderID != orderID || got.Actor.UserID != clientID {
		t.Fatalf("unexpected input %+v", got)
	}
	if got.Currency != enums.CurrencyVES {
		t.Fatalf("unexpected currency %s", got.Currency)
	}
	if !got.Amount.Equal(decimal.RequireFromString("3625.00")) {
		t.Fatalf("unexpected amount %s", got.Amount)
	}
	if got.Reference == nil || *got.Reference != "0412-555" {
		t.Fatalf("unexpected reference %v", got.Reference)
	}
}

func TestSubmitRejectsUnknownCurrency(t *testing.T) {
	orderID := uuid.New()
	body := `{"amount":"10","currency":"EUR","method":"cash"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/payments", strings.NewReader(body))
	req = authedRequest(req, uuid.New(), enums.RoleClient)
	req = addRouteParam(req, "orderId", orderID.String())

	resp := httptest.NewRecorder()
	Submit(&testPaymentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminVerifyPassesActor(t *testing.T) {
	adminID := uuid.New()
	paymentID := uuid.New()
	called := false
	svc := &testPaymentsService{
		verifyFn: func(ctx context.Context, input internalpayments.VerifyPaymentInput) error {
			called = true
			if input.PaymentID != paymentID {
				t.Fatalf("unexpected payment %s", input.PaymentID)
			}
			if input.Actor.Role != enums.RoleAdmin {
				t.Fatalf("unexpected role %s", input.Actor.Role)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payments/"+paymentID.String()+"/verify", nil)
	req = authedRequest(req, adminID, enums.RoleAdmin)
	req = addRouteParam(req, "paymentId", paymentID.String())

	resp := httptest.NewRecorder()
	AdminVerify(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}
