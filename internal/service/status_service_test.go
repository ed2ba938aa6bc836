package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusFixture struct {
	svc        *StatusServiceImpl
	tokenRepo  *fakeTokenRepo
	lotEvents  *fakeLotEventRepo
	bottles    *fakeBottleRepo
	botEvents  *fakeBottleEventRepo
	qrs        *fakeQRRepo
	ledger     *fakeLedger
	adminID    uuid.UUID
	token      *domain.WineToken
}

func newStatusFixture(t *testing.T) *statusFixture {
	t.Helper()
	f := &statusFixture{
		tokenRepo: newFakeTokenRepo(),
		lotEvents: &fakeLotEventRepo{},
		bottles:   newFakeBottleRepo(),
		botEvents: &fakeBottleEventRepo{},
		qrs:       newFakeQRRepo(),
		ledger:    newFakeLedger(),
		adminID:   uuid.New(),
	}

	walletRepo := newFakeWalletRepo()
	walletSvc := newTestWalletService(t, walletRepo, f.ledger, false)
	rateLimit := NewActivityRateLimitService(&fakeActivityRepo{}, zerolog.Nop())

	f.token = &domain.WineToken{
		ID:           uuid.New(),
		TokenAddress: "CBOTTLE7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJUWDA",
		Name:         "Barolo Riserva 2019",
		Symbol:       "BRL19",
		CreatedBy:    f.adminID,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.tokenRepo.Create(context.Background(), f.token))

	f.svc = NewStatusService(
		f.tokenRepo, f.lotEvents, f.bottles, f.botEvents, f.qrs,
		walletSvc, rateLimit, f.ledger, 10, 100, zerolog.Nop(),
	)
	return f
}

func (f *statusFixture) addBottle(t *testing.T, status domain.BottleStatus) (*domain.Bottle, *domain.QRCode) {
	t.Helper()
	bottle := &domain.Bottle{
		ID:            uuid.New(),
		TokenID:       f.token.ID,
		BottleNumber:  1,
		QRCodeHash:    "a1b2c3",
		CurrentStatus: status,
		CreatedAt:     time.Now().UTC(),
	}
	f.bottles.byID[bottle.ID] = bottle
	qr := &domain.QRCode{
		ID:       uuid.New(),
		BottleID: bottle.ID,
		Code:     "VINEFI-" + bottle.ID.String()[:8],
		CodeHash: bottle.QRCodeHash,
		IsActive: true,
	}
	f.qrs.byID[qr.ID] = qr
	return bottle, qr
}

func TestStatusService_UpdateLotStatus_FirstEvent(t *testing.T) {
	f := newStatusFixture(t)

	loc := "Langhe, Piedmont"
	event, err := f.svc.UpdateLotStatus(context.Background(), ports.LotStatusUpdateRequest{
		UserID:      f.adminID,
		HandlerName: "Cantina Rossi",
		TokenID:     &f.token.ID,
		Status:      domain.LotStatusHarvested,
		Location:    &loc,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LotStatusHarvested, event.Status)
	assert.Nil(t, event.PreviousStatus, "first event has no previous status")
	require.NotNil(t, event.TransactionHash)
	assert.Equal(t, "deadbeef00", *event.TransactionHash)

	require.Len(t, f.ledger.statusCalls, 1)
	call := f.ledger.statusCalls[0]
	assert.Equal(t, f.token.TokenAddress, call.tokenAddress)
	assert.Equal(t, "harvested", call.status)
	assert.Nil(t, call.previousStatus)
}

func TestStatusService_UpdateLotStatus_CarriesPrevious(t *testing.T) {
	f := newStatusFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateLotStatus(ctx, ports.LotStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "h", TokenID: &f.token.ID, Status: domain.LotStatusHarvested,
	})
	require.NoError(t, err)

	event, err := f.svc.UpdateLotStatus(ctx, ports.LotStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "h", TokenID: &f.token.ID, Status: domain.LotStatusFermented,
	})
	require.NoError(t, err)
	require.NotNil(t, event.PreviousStatus)
	assert.Equal(t, domain.LotStatusHarvested, *event.PreviousStatus)

	require.Len(t, f.ledger.statusCalls, 2)
	require.NotNil(t, f.ledger.statusCalls[1].previousStatus)
	assert.Equal(t, "harvested", *f.ledger.statusCalls[1].previousStatus)
}

func TestStatusService_UpdateLotStatus_ChainFailureStillRecords(t *testing.T) {
	f := newStatusFixture(t)
	f.ledger.setStatusErr = errors.New("rpc timeout")

	event, err := f.svc.UpdateLotStatus(context.Background(), ports.LotStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "h", TokenID: &f.token.ID, Status: domain.LotStatusHarvested,
	})
	require.NoError(t, err, "ledger outage must not lose the durable record")
	assert.Nil(t, event.TransactionHash)
	assert.Len(t, f.lotEvents.events, 1)
}

func TestStatusService_UpdateLotStatus_CompareAndSwap(t *testing.T) {
	f := newStatusFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateLotStatus(ctx, ports.LotStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "h", TokenID: &f.token.ID, Status: domain.LotStatusHarvested,
	})
	require.NoError(t, err)

	// Matching expectation passes.
	expected := domain.LotStatusHarvested
	_, err = f.svc.UpdateLotStatus(ctx, ports.LotStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "h", TokenID: &f.token.ID,
		Status: domain.LotStatusFermented, ExpectedPreviousStatus: &expected,
	})
	require.NoError(t, err)

	// Stale expectation conflicts.
	stale := domain.LotStatusHarvested
	_, err = f.svc.UpdateLotStatus(ctx, ports.LotStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "h", TokenID: &f.token.ID,
		Status: domain.LotStatusAged, ExpectedPreviousStatus: &stale,
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RES_002", appErr.Code)
	assert.Equal(t, 409, appErr.HTTPStatus)
}

func TestStatusService_UpdateLotStatus_InvalidStatus(t *testing.T) {
	f := newStatusFixture(t)

	_, err := f.svc.UpdateLotStatus(context.Background(), ports.LotStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "h", TokenID: &f.token.ID, Status: "vaporized",
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_002", appErr.Code)
	assert.Empty(t, f.ledger.statusCalls, "invalid status must never reach the ledger")
}

func TestStatusService_UpdateLotStatus_NonAdminDenied(t *testing.T) {
	f := newStatusFixture(t)

	_, err := f.svc.UpdateLotStatus(context.Background(), ports.LotStatusUpdateRequest{
		UserID: uuid.New(), HandlerName: "h", TokenID: &f.token.ID, Status: domain.LotStatusHarvested,
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_003", appErr.Code)
}

func TestStatusService_UpdateLotStatus_UnknownToken(t *testing.T) {
	f := newStatusFixture(t)
	unknown := uuid.New()

	_, err := f.svc.UpdateLotStatus(context.Background(), ports.LotStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "h", TokenID: &unknown, Status: domain.LotStatusHarvested,
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RES_001", appErr.Code)
}

func TestStatusService_UpdateBottleStatus_AdminPath(t *testing.T) {
	f := newStatusFixture(t)
	bottle, _ := f.addBottle(t, domain.BottleStatusBottled)

	event, err := f.svc.UpdateBottleStatus(context.Background(), ports.BottleStatusUpdateRequest{
		UserID:      f.adminID,
		HandlerName: "Warehouse A",
		BottleID:    bottle.ID,
		Status:      domain.BottleStatusInWarehouse,
	})
	require.NoError(t, err)
	assert.Nil(t, event.TransactionHash, "bottle events carry no chain proof")
	require.NotNil(t, event.PreviousStatus)
	assert.Equal(t, domain.BottleStatusBottled, *event.PreviousStatus)

	updated, err := f.bottles.GetByID(context.Background(), bottle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BottleStatusInWarehouse, updated.CurrentStatus)
}

func TestStatusService_UpdateBottleStatus_NonAdminDenied(t *testing.T) {
	f := newStatusFixture(t)
	bottle, _ := f.addBottle(t, domain.BottleStatusBottled)

	scan := domain.ScanTypeWarehouseIn
	_, err := f.svc.UpdateBottleStatus(context.Background(), ports.BottleStatusUpdateRequest{
		UserID: uuid.New(), HandlerName: "h", BottleID: bottle.ID,
		Status: domain.BottleStatusInWarehouse, ScanType: &scan,
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_003", appErr.Code)
}

func TestStatusService_UpdateBottleStatus_ConsumerScanBypassesAuthz(t *testing.T) {
	f := newStatusFixture(t)
	bottle, qr := f.addBottle(t, domain.BottleStatusAtRetail)

	scan := domain.ScanTypeConsumer
	event, err := f.svc.UpdateBottleStatus(context.Background(), ports.BottleStatusUpdateRequest{
		HandlerName: "consumer",
		BottleID:    bottle.ID,
		Status:      domain.BottleStatusScanned,
		ScanType:    &scan,
	})
	require.NoError(t, err, "consumer scans need no admin rights")
	assert.Equal(t, domain.BottleStatusScanned, event.Status)
	assert.Nil(t, event.HandlerID)

	got := f.qrs.byID[qr.ID]
	assert.Equal(t, 1, got.ScanCount, "scan-type events bump the counter")
}

func TestStatusService_UpdateBottleStatus_InvalidScanType(t *testing.T) {
	f := newStatusFixture(t)
	bottle, _ := f.addBottle(t, domain.BottleStatusBottled)

	scan := domain.ScanType("teleport")
	_, err := f.svc.UpdateBottleStatus(context.Background(), ports.BottleStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "h", BottleID: bottle.ID,
		Status: domain.BottleStatusInWarehouse, ScanType: &scan,
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_003", appErr.Code)
}

func TestStatusService_LotHistory_NewestFirst(t *testing.T) {
	f := newStatusFixture(t)
	ctx := context.Background()

	for _, s := range []domain.LotStatus{domain.LotStatusHarvested, domain.LotStatusFermented, domain.LotStatusAged} {
		_, err := f.svc.UpdateLotStatus(ctx, ports.LotStatusUpdateRequest{
			UserID: f.adminID, HandlerName: "h", TokenID: &f.token.ID, Status: s,
		})
		require.NoError(t, err)
	}

	history, err := f.svc.LotHistory(ctx, &f.token.ID, nil)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.LotStatusAged, history[0].Status)
	assert.Equal(t, domain.LotStatusHarvested, history[2].Status)
}

func TestStatusService_LotHistory_ByAddress(t *testing.T) {
	f := newStatusFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateLotStatus(ctx, ports.LotStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "h", TokenID: &f.token.ID, Status: domain.LotStatusHarvested,
	})
	require.NoError(t, err)

	history, err := f.svc.LotHistory(ctx, nil, &f.token.TokenAddress)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStatusService_Traceability_ByQRCode(t *testing.T) {
	f := newStatusFixture(t)
	bottle, qr := f.addBottle(t, domain.BottleStatusAtRetail)

	scan := domain.ScanTypeRetail
	_, err := f.svc.UpdateBottleStatus(context.Background(), ports.BottleStatusUpdateRequest{
		UserID: f.adminID, HandlerName: "Shop", BottleID: bottle.ID,
		Status: domain.BottleStatusAtRetail, ScanType: &scan,
	})
	require.NoError(t, err)

	trace, err := f.svc.Traceability(context.Background(), &qr.Code, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, bottle.ID, trace.Bottle.ID)
	assert.Equal(t, f.token.ID, trace.Token.ID)
	require.NotNil(t, trace.QR)
	assert.Len(t, trace.History, 1)

	// Only the status scan counts; the public lookup is a pure read.
	got := f.qrs.byID[qr.ID]
	assert.Equal(t, 1, got.ScanCount, "traceability lookups must not bump the counter")
}

func TestStatusService_Traceability_InactiveQR(t *testing.T) {
	f := newStatusFixture(t)
	_, qr := f.addBottle(t, domain.BottleStatusAtRetail)
	f.qrs.byID[qr.ID].IsActive = false

	_, err := f.svc.Traceability(context.Background(), &qr.Code, nil, nil)
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RES_001", appErr.Code)
}

func TestStatusService_Traceability_NoSelector(t *testing.T) {
	f := newStatusFixture(t)

	_, err := f.svc.Traceability(context.Background(), nil, nil, nil)
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_001", appErr.Code)
}
