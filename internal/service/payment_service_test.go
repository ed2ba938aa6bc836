package service

import (
	"context"
	"testing"

	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDestination = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"

func newPaymentFixture(t *testing.T) (*PaymentServiceImpl, *fakeActivityRepo, *fakeLedger) {
	t.Helper()
	walletRepo := newFakeWalletRepo()
	activityRepo := &fakeActivityRepo{}
	ledger := newFakeLedger()
	cipher, err := NewAESCipherService(testAESKey)
	require.NoError(t, err)
	walletSvc := NewWalletService(walletRepo, activityRepo, cipher, ledger, false, domain.WalletNetworkStellar, zerolog.Nop())
	rateLimit := NewActivityRateLimitService(activityRepo, zerolog.Nop())
	return NewPaymentService(walletSvc, rateLimit, ledger, 5, 50, zerolog.Nop()), activityRepo, ledger
}

func TestPaymentService_SignAndSubmit(t *testing.T) {
	svc, activity, _ := newPaymentFixture(t)

	res, err := svc.SignPayment(context.Background(), ports.SignPaymentRequest{
		UserID:      uuid.New(),
		Destination: testDestination,
		Amount:      "12.5",
		Submit:      true,
	})
	require.NoError(t, err)
	assert.True(t, res.Submitted)
	assert.NotEmpty(t, res.Hash)
	assert.Equal(t, int32(12345), res.Ledger)

	require.Len(t, activity.entries, 1)
	assert.Equal(t, domain.ActionSignPayment, activity.entries[0].Action)
}

func TestPaymentService_SignOnly(t *testing.T) {
	svc, _, _ := newPaymentFixture(t)

	res, err := svc.SignPayment(context.Background(), ports.SignPaymentRequest{
		UserID:      uuid.New(),
		Destination: testDestination,
		Amount:      "1",
		Submit:      false,
	})
	require.NoError(t, err)
	assert.False(t, res.Submitted)
	assert.NotEmpty(t, res.SignedXDR)
}

func TestPaymentService_InvalidDestination(t *testing.T) {
	svc, _, _ := newPaymentFixture(t)

	for _, dest := range []string{"", "not-an-address", "SBCVMMCBEDB64TVJZFYJOJAERZC4YVVUOE6SYR2Y76CBTENGUSGWRRVO"} {
		_, err := svc.SignPayment(context.Background(), ports.SignPaymentRequest{
			UserID: uuid.New(), Destination: dest, Amount: "1",
		})
		require.Error(t, err, "destination %q must be rejected", dest)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VAL_004", appErr.Code)
	}
}

func TestPaymentService_InvalidAmount(t *testing.T) {
	svc, _, _ := newPaymentFixture(t)

	for _, amt := range []string{"", "0", "-1", "abc"} {
		_, err := svc.SignPayment(context.Background(), ports.SignPaymentRequest{
			UserID: uuid.New(), Destination: testDestination, Amount: amt,
		})
		require.Error(t, err, "amount %q must be rejected", amt)
	}
}

func TestPaymentService_RateLimited(t *testing.T) {
	svc, _, _ := newPaymentFixture(t)
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := svc.SignPayment(context.Background(), ports.SignPaymentRequest{
			UserID: userID, Destination: testDestination, Amount: "1", Submit: true,
		})
		require.NoError(t, err)
	}

	_, err := svc.SignPayment(context.Background(), ports.SignPaymentRequest{
		UserID: userID, Destination: testDestination, Amount: "1", Submit: true,
	})
	require.Error(t, err, "sixth payment inside the minute must be limited")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RATE_001", appErr.Code)
}
