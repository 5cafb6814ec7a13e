package loyalty

import (
	"context"
	"errors"
	"testing"
	"time"
)

const (
	errStoreMessage      = "store error"
	errorMismatchMessage = "expected %v, got %v"
)

var errStoreFailure = errors.New(errStoreMessage)

func TestPurchaseReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		configure func(store *stubStore)
	}{
		{
			name: "customer lookup error",
			configure: func(store *stubStore) {
				store.getActiveError = errStoreFailure
			},
		},
		{
			name: "customer save error",
			configure: func(store *stubStore) {
				store.saveError = errStoreFailure
			},
		},
		{
			name: "entry append error",
			configure: func(store *stubStore) {
				store.appendError = errStoreFailure
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore()
			seedCustomer(store, customerIDValue, 0)
			testCase.configure(store)
			service := mustNewService(test, store)
			customerID := mustCustomerID(test, customerIDValue)

			_, err := service.Purchase(context.Background(), customerID, mustAmountCents(test, 10000))
			if !errors.Is(err, errStoreFailure) {
				test.Fatalf(errorMismatchMessage, errStoreFailure, err)
			}
		})
	}
}

func TestRedeemReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		configure func(store *stubStore)
	}{
		{
			name: "customer lookup error",
			configure: func(store *stubStore) {
				store.getActiveError = errStoreFailure
			},
		},
		{
			name: "customer save error",
			configure: func(store *stubStore) {
				store.saveError = errStoreFailure
			},
		},
		{
			name: "entry append error",
			configure: func(store *stubStore) {
				store.appendError = errStoreFailure
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore()
			seedCustomer(store, customerIDValue, 100)
			testCase.configure(store)
			service := mustNewService(test, store)
			customerID := mustCustomerID(test, customerIDValue)

			_, err := service.Redeem(context.Background(), customerID, mustPointsToRedeem(test, 10), mustReward(test, rewardValue))
			if !errors.Is(err, errStoreFailure) {
				test.Fatalf(errorMismatchMessage, errStoreFailure, err)
			}
		})
	}
}

func TestPointsEarnedInPeriodReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		configure func(store *stubStore)
	}{
		{
			name: "customer lookup error",
			configure: func(store *stubStore) {
				store.getActiveError = errStoreFailure
			},
		},
		{
			name: "aggregate error",
			configure: func(store *stubStore) {
				store.sumError = errStoreFailure
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore()
			seedCustomer(store, customerIDValue, 0)
			testCase.configure(store)
			service := mustNewService(test, store)
			customerID := mustCustomerID(test, customerIDValue)
			windowDay := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
			day := mustDateRange(test, windowDay, windowDay)

			_, err := service.PointsEarnedInPeriod(context.Background(), customerID, day)
			if !errors.Is(err, errStoreFailure) {
				test.Fatalf(errorMismatchMessage, errStoreFailure, err)
			}
		})
	}
}

func TestRegisterReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	store.getActiveError = errStoreFailure
	service := mustNewService(test, store)
	customerID := mustCustomerID(test, customerIDValue)

	_, err := service.Register(context.Background(), customerID, mustCustomerName(test, customerNameValue), mustInitialPoints(test, 0))
	if !errors.Is(err, errStoreFailure) {
		test.Fatalf(errorMismatchMessage, errStoreFailure, err)
	}
}
