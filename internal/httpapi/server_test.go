package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elagi/loyalty/pkg/loyalty"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testCustomerID = "CUST-001"

type fakeStore struct {
	customers   map[string]loyalty.Customer
	entries     []loyalty.Entry
	nextEntryID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{customers: map[string]loyalty.Customer{}}
}

func (store *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore loyalty.Store) error) error {
	return fn(ctx, store)
}

func (store *fakeStore) GetActiveCustomer(_ context.Context, customerID string) (loyalty.Customer, error) {
	customer, ok := store.customers[customerID]
	if !ok || customer.Deleted {
		return loyalty.Customer{}, loyalty.ErrCustomerNotFound
	}
	return customer, nil
}

func (store *fakeStore) GetAnyCustomer(_ context.Context, customerID string) (loyalty.Customer, error) {
	customer, ok := store.customers[customerID]
	if !ok {
		return loyalty.Customer{}, loyalty.ErrCustomerNotFound
	}
	return customer, nil
}

func (store *fakeStore) ListActiveCustomers(_ context.Context) ([]loyalty.Customer, error) {
	active := make([]loyalty.Customer, 0, len(store.customers))
	for _, customer := range store.customers {
		if !customer.Deleted {
			active = append(active, customer)
		}
	}
	return active, nil
}

func (store *fakeStore) SaveCustomer(_ context.Context, customer loyalty.Customer) (loyalty.Customer, error) {
	store.customers[customer.CustomerID] = customer
	return customer, nil
}

func (store *fakeStore) AppendEntry(_ context.Context, entryInput loyalty.EntryInput) (loyalty.Entry, error) {
	store.nextEntryID++
	entry := loyalty.Entry{
		EntryID:         store.nextEntryID,
		CustomerID:      entryInput.CustomerID,
		ChangeType:      entryInput.ChangeType,
		PointChange:     entryInput.PointChange,
		TransactionID:   entryInput.TransactionID,
		CampaignApplied: entryInput.CampaignApplied,
		CreatedUnixUTC:  entryInput.CreatedUnixUTC,
	}
	store.entries = append(store.entries, entry)
	return entry, nil
}

func (store *fakeStore) SumEarnedInRange(_ context.Context, customerID string, startUnixUTC int64, endUnixUTC int64) (int64, error) {
	var total int64
	for _, entry := range store.entries {
		if entry.CustomerID != customerID || entry.ChangeType != loyalty.ChangeTypeEarn {
			continue
		}
		if entry.CreatedUnixUTC >= startUnixUTC && entry.CreatedUnixUTC < endUnixUTC {
			total += entry.PointChange
		}
	}
	return total, nil
}

func (store *fakeStore) DeleteEntriesForCustomer(_ context.Context, customerID string) error {
	remaining := store.entries[:0]
	for _, entry := range store.entries {
		if entry.CustomerID != customerID {
			remaining = append(remaining, entry)
		}
	}
	store.entries = remaining
	return nil
}

func newTestRouter(test *testing.T, store *fakeStore) *gin.Engine {
	test.Helper()
	service, err := loyalty.NewService(store, func() int64 { return time.Now().UTC().Unix() })
	if err != nil {
		test.Fatalf("service init: %v", err)
	}
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("config: %v", err)
	}
	return setupRouter(cfg, &httpHandler{logger: zap.NewNop(), service: service})
}

func performRequest(test *testing.T, router *gin.Engine, method string, target string, body any) *httptest.ResponseRecorder {
	test.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			test.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, target, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeJSON(test *testing.T, recorder *httptest.ResponseRecorder, target any) {
	test.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		test.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
}

func seedActiveCustomer(store *fakeStore, customerID string, points int64) {
	store.customers[customerID] = loyalty.Customer{CustomerID: customerID, Name: "Asha", TotalPoints: points}
}

func TestHealthz(test *testing.T) {
	test.Parallel()
	router := newTestRouter(test, newFakeStore())
	recorder := performRequest(test, router, http.MethodGet, "/healthz", nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("healthz status=%d", recorder.Code)
	}
}

func TestRegisterAndGetCustomer(test *testing.T) {
	test.Parallel()
	router := newTestRouter(test, newFakeStore())

	recorder := performRequest(test, router, http.MethodPost, "/customers/register", map[string]any{
		"customerId":    testCustomerID,
		"name":          "Asha",
		"initialPoints": 50,
	})
	if recorder.Code != http.StatusCreated {
		test.Fatalf("register status=%d body=%s", recorder.Code, recorder.Body.String())
	}
	var created customerPayload
	decodeJSON(test, recorder, &created)
	if created.CustomerID != testCustomerID || created.TotalPoints != 50 {
		test.Fatalf("unexpected created payload: %+v", created)
	}

	recorder = performRequest(test, router, http.MethodGet, "/customers/"+testCustomerID, nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("get status=%d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestRegisterDuplicateActiveID(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, testCustomerID, 0)
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodPost, "/customers/register", map[string]any{
		"customerId": testCustomerID,
		"name":       "Asha",
	})
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400, got %d body=%s", recorder.Code, recorder.Body.String())
	}
	var envelope errorEnvelope
	decodeJSON(test, recorder, &envelope)
	if envelope.Error.Code != errorCodeCustomerExists {
		test.Fatalf("expected code %q, got %q", errorCodeCustomerExists, envelope.Error.Code)
	}
}

func TestRegisterRejectsNegativeInitialPoints(test *testing.T) {
	test.Parallel()
	router := newTestRouter(test, newFakeStore())
	recorder := performRequest(test, router, http.MethodPost, "/customers/register", map[string]any{
		"customerId":    testCustomerID,
		"name":          "Asha",
		"initialPoints": -5,
	})
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400, got %d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestGetMissingCustomerIs404(test *testing.T) {
	test.Parallel()
	router := newTestRouter(test, newFakeStore())
	recorder := performRequest(test, router, http.MethodGet, "/customers/CUST-MISSING", nil)
	if recorder.Code != http.StatusNotFound {
		test.Fatalf("expected 404, got %d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestListCustomersExcludesDeleted(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, "CUST-A", 1)
	store.customers["CUST-B"] = loyalty.Customer{CustomerID: "CUST-B", Name: "Bee", Deleted: true}
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodGet, "/customers/all", nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("list status=%d body=%s", recorder.Code, recorder.Body.String())
	}
	var customers []customerPayload
	decodeJSON(test, recorder, &customers)
	if len(customers) != 1 || customers[0].CustomerID != "CUST-A" {
		test.Fatalf("unexpected list payload: %+v", customers)
	}
}

func TestUpdateCustomer(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, testCustomerID, 10)
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodPut, "/customers/"+testCustomerID, map[string]any{"name": "Renamed"})
	if recorder.Code != http.StatusOK {
		test.Fatalf("update status=%d body=%s", recorder.Code, recorder.Body.String())
	}
	var updated customerPayload
	decodeJSON(test, recorder, &updated)
	if updated.Name != "Renamed" || updated.TotalPoints != 10 {
		test.Fatalf("unexpected update payload: %+v", updated)
	}

	recorder = performRequest(test, router, http.MethodPut, "/customers/"+testCustomerID, map[string]any{})
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400 for empty update, got %d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestDeleteCustomerLifecycle(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, testCustomerID, 10)
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodDelete, "/customers/"+testCustomerID, nil)
	if recorder.Code != http.StatusNoContent {
		test.Fatalf("delete status=%d body=%s", recorder.Code, recorder.Body.String())
	}

	recorder = performRequest(test, router, http.MethodDelete, "/customers/"+testCustomerID, nil)
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400 for double delete, got %d body=%s", recorder.Code, recorder.Body.String())
	}

	recorder = performRequest(test, router, http.MethodGet, "/customers/"+testCustomerID, nil)
	if recorder.Code != http.StatusNotFound {
		test.Fatalf("expected 404 after delete, got %d body=%s", recorder.Code, recorder.Body.String())
	}

	recorder = performRequest(test, router, http.MethodDelete, "/customers/CUST-MISSING", nil)
	if recorder.Code != http.StatusNotFound {
		test.Fatalf("expected 404 for missing customer, got %d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestPurchaseAwardsPoints(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, testCustomerID, 50)
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodPost, "/transactions/purchase", map[string]any{
		"customerId": testCustomerID,
		"amount":     149.99,
	})
	if recorder.Code != http.StatusOK {
		test.Fatalf("purchase status=%d body=%s", recorder.Code, recorder.Body.String())
	}
	var status statusPayload
	decodeJSON(test, recorder, &status)
	if status.NewTotalPoints != 52 {
		test.Fatalf("expected balance 52, got %d", status.NewTotalPoints)
	}
	expectedMessage := "Successfully recorded purchase of 149.99. Points awarded: 2."
	if status.Message != expectedMessage {
		test.Fatalf("expected message %q, got %q", expectedMessage, status.Message)
	}
	if len(store.entries) != 1 || store.entries[0].PointChange != 2 {
		test.Fatalf("expected one earn entry of +2, got %+v", store.entries)
	}
}

func TestPurchaseBelowThreshold(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, testCustomerID, 50)
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodPost, "/transactions/purchase", map[string]any{
		"customerId": testCustomerID,
		"amount":     49.99,
	})
	if recorder.Code != http.StatusOK {
		test.Fatalf("purchase status=%d body=%s", recorder.Code, recorder.Body.String())
	}
	var status statusPayload
	decodeJSON(test, recorder, &status)
	if status.NewTotalPoints != 50 {
		test.Fatalf("expected unchanged balance 50, got %d", status.NewTotalPoints)
	}
	if len(store.entries) != 0 {
		test.Fatalf("expected no ledger entries, got %+v", store.entries)
	}
}

func TestPurchaseRejectsNonPositiveAmount(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, testCustomerID, 0)
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodPost, "/transactions/purchase", map[string]any{
		"customerId": testCustomerID,
		"amount":     0,
	})
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400 for zero amount, got %d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestRedeemFlow(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, testCustomerID, 52)
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodPost, "/points/redeem", map[string]any{
		"customerId":        testCustomerID,
		"pointsToRedeem":    52,
		"rewardDescription": "Gift Card",
	})
	if recorder.Code != http.StatusOK {
		test.Fatalf("redeem status=%d body=%s", recorder.Code, recorder.Body.String())
	}
	var status statusPayload
	decodeJSON(test, recorder, &status)
	if status.NewTotalPoints != 0 {
		test.Fatalf("expected balance 0, got %d", status.NewTotalPoints)
	}
	expectedMessage := "Successfully redeemed 52 points for 'Gift Card'."
	if status.Message != expectedMessage {
		test.Fatalf("expected message %q, got %q", expectedMessage, status.Message)
	}

	recorder = performRequest(test, router, http.MethodPost, "/points/redeem", map[string]any{
		"customerId":        testCustomerID,
		"pointsToRedeem":    1,
		"rewardDescription": "Sticker",
	})
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400 for insufficient points, got %d body=%s", recorder.Code, recorder.Body.String())
	}
	var envelope errorEnvelope
	decodeJSON(test, recorder, &envelope)
	if envelope.Error.Code != errorCodeInsufficientPoints {
		test.Fatalf("expected code %q, got %q", errorCodeInsufficientPoints, envelope.Error.Code)
	}
	if store.customers[testCustomerID].TotalPoints != 0 {
		test.Fatalf("expected balance to remain 0, got %d", store.customers[testCustomerID].TotalPoints)
	}
}

func TestPointsByTime(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, testCustomerID, 0)
	inside := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC).Unix()
	outside := time.Date(2024, time.April, 2, 10, 0, 0, 0, time.UTC).Unix()
	store.entries = []loyalty.Entry{
		{EntryID: 1, CustomerID: testCustomerID, ChangeType: loyalty.ChangeTypeEarn, PointChange: 2, CreatedUnixUTC: inside},
		{EntryID: 2, CustomerID: testCustomerID, ChangeType: loyalty.ChangeTypeRedeem, PointChange: -1, CreatedUnixUTC: inside},
		{EntryID: 3, CustomerID: testCustomerID, ChangeType: loyalty.ChangeTypeEarn, PointChange: 4, CreatedUnixUTC: outside},
	}
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodGet, "/customers/"+testCustomerID+"/points-by-time?startDate=2024-03-01&endDate=2024-03-31", nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("points-by-time status=%d body=%s", recorder.Code, recorder.Body.String())
	}
	var payload pointsByTimePayload
	decodeJSON(test, recorder, &payload)
	if payload.PointsEarned != 2 {
		test.Fatalf("expected 2 points earned, got %d", payload.PointsEarned)
	}
	if payload.StartDate != "2024-03-01" || payload.EndDate != "2024-03-31" {
		test.Fatalf("unexpected echo of dates: %+v", payload)
	}
}

func TestPointsByTimeValidation(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, testCustomerID, 0)
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodGet, "/customers/"+testCustomerID+"/points-by-time?startDate=2024-03-31&endDate=2024-03-01", nil)
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400 for reversed range, got %d body=%s", recorder.Code, recorder.Body.String())
	}
	var envelope errorEnvelope
	decodeJSON(test, recorder, &envelope)
	if envelope.Error.Code != errorCodeInvalidDateRange {
		test.Fatalf("expected code %q, got %q", errorCodeInvalidDateRange, envelope.Error.Code)
	}

	recorder = performRequest(test, router, http.MethodGet, "/customers/"+testCustomerID+"/points-by-time?startDate=bogus&endDate=2024-03-01", nil)
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400 for malformed date, got %d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestBalanceEndpointReturnsActiveCustomer(test *testing.T) {
	test.Parallel()
	store := newFakeStore()
	seedActiveCustomer(store, testCustomerID, 42)
	router := newTestRouter(test, store)

	recorder := performRequest(test, router, http.MethodGet, "/customers/"+testCustomerID+"/balance", nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("balance status=%d body=%s", recorder.Code, recorder.Body.String())
	}
	var payload customerPayload
	decodeJSON(test, recorder, &payload)
	if payload.TotalPoints != 42 {
		test.Fatalf("expected balance 42, got %d", payload.TotalPoints)
	}
}
