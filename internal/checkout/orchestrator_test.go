package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adashop/storefront/internal/order"
	"github.com/adashop/storefront/internal/wallet"
)

const shopAddress = "addr1shop"

func newTestOrchestrator(t *testing.T, c *fakeCart) (*Orchestrator, *fakeOrders, *wallet.StubWallet) {
	t.Helper()
	orders := newFakeOrders()
	stub := wallet.NewStubWallet("addr1payer")
	orc := NewOrchestrator(c, orders, &fixedWallets{wallet: stub}, shopAddress)
	return orc, orders, stub
}

func TestBegin_EmptyCart(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, newFakeCart())

	err := orc.Begin(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_RequiresWallet(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, newFakeCart(testLine("p1", 1, 2_000_000)))
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	_, err := orc.PlaceOrder(ctx)
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestSubmitPayment_RequiresOrder(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, newFakeCart(testLine("p1", 1, 2_000_000)))
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))
	_, err := orc.SubmitPayment(ctx)
	assert.ErrorIs(t, err, ErrNoOrder)
}

func TestHappyPath(t *testing.T) {
	fc := newFakeCart(testLine("p1", 2, 1_500_000), testLine("p2", 1, 4_000_000))
	orc, orders, _ := newTestOrchestrator(t, fc)
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	assert.Equal(t, StageReview, orc.Stage())

	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))

	placed, err := orc.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, StagePayment, orc.Stage())
	assert.Equal(t, "addr1payer", placed.PayerAddress)
	assert.Equal(t, int64(7_000_000), placed.TotalLovelace)

	res, err := orc.SubmitPayment(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.TxID)
	assert.False(t, res.Timeout)
	assert.Equal(t, StageResult, orc.Stage())

	stored := orders.get(placed.ID)
	assert.Equal(t, order.StatusPaid, stored.Status)
	assert.Equal(t, res.TxID, stored.TransactionID)

	// success is the only path that empties the cart
	assert.Equal(t, 1, fc.clearCount())
	assert.True(t, fc.empty())
}

func TestPlaceOrder_OncePerAttempt(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, newFakeCart(testLine("p1", 1, 2_000_000)))
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))

	first, err := orc.PlaceOrder(ctx)
	require.NoError(t, err)
	second, err := orc.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSubmitPayment_Rejection(t *testing.T) {
	fc := newFakeCart(testLine("p1", 1, 2_000_000))
	orc, orders, stub := newTestOrchestrator(t, fc)
	stub.Reject = true
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))
	placed, err := orc.PlaceOrder(ctx)
	require.NoError(t, err)

	res, err := orc.SubmitPayment(ctx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.Timeout)
	assert.ErrorIs(t, res.Err, wallet.ErrPaymentRejected)

	stored := orders.get(placed.ID)
	assert.Equal(t, order.StatusPaymentFailed, stored.Status)
	assert.NotEmpty(t, stored.PaymentError)

	// a failed payment keeps the cart intact
	assert.Equal(t, 0, fc.clearCount())
	assert.False(t, fc.empty())
}

func TestSubmitPayment_Timeout(t *testing.T) {
	fc := newFakeCart(testLine("p1", 1, 2_000_000))
	orc, orders, stub := newTestOrchestrator(t, fc)
	orc.timeout = 30 * time.Millisecond
	stub.Delay = 500 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))
	placed, err := orc.PlaceOrder(ctx)
	require.NoError(t, err)

	start := time.Now()
	res, err := orc.SubmitPayment(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)

	assert.False(t, res.Success)
	assert.True(t, res.Timeout)
	assert.ErrorIs(t, res.Err, ErrPaymentTimeout)
	assert.Equal(t, order.StatusPaymentFailed, orders.get(placed.ID).Status)
	assert.Equal(t, 0, fc.clearCount())
}

func TestSubmitPayment_LateResultDiscarded(t *testing.T) {
	fc := newFakeCart(testLine("p1", 1, 2_000_000))
	orc, orders, stub := newTestOrchestrator(t, fc)
	orc.timeout = 20 * time.Millisecond
	stub.Delay = 150 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))
	placed, err := orc.PlaceOrder(ctx)
	require.NoError(t, err)

	res, err := orc.SubmitPayment(ctx)
	require.NoError(t, err)
	require.True(t, res.Timeout)
	require.Equal(t, order.StatusPaymentFailed, orders.get(placed.ID).Status)

	// let the wallet resolve well after the deadline; its success must not
	// resurrect the failed attempt
	require.Eventually(t, func() bool {
		return stub.Submissions() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	stored := orders.get(placed.ID)
	assert.Equal(t, order.StatusPaymentFailed, stored.Status)
	assert.Empty(t, stored.TransactionID)
	assert.Equal(t, 0, fc.clearCount())
	assert.False(t, fc.empty())
}

func TestRetry_CreatesBrandNewOrder(t *testing.T) {
	fc := newFakeCart(testLine("p1", 1, 2_000_000))
	orc, orders, stub := newTestOrchestrator(t, fc)
	stub.Reject = true
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))
	first, err := orc.PlaceOrder(ctx)
	require.NoError(t, err)

	res, err := orc.SubmitPayment(ctx)
	require.NoError(t, err)
	require.False(t, res.Success)

	require.NoError(t, orc.Retry())
	assert.Equal(t, StageReview, orc.Stage())
	assert.Nil(t, orc.Result())

	stub.Reject = false
	second, err := orc.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	res, err = orc.SubmitPayment(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)

	// the failed order stays failed forever
	assert.Equal(t, order.StatusPaymentFailed, orders.get(first.ID).Status)
	assert.Equal(t, order.StatusPaid, orders.get(second.ID).Status)
}

func TestSubmitPayment_RejectsConcurrentAttempts(t *testing.T) {
	fc := newFakeCart(testLine("p1", 1, 2_000_000))
	orc, _, stub := newTestOrchestrator(t, fc)
	stub.Delay = 200 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))
	_, err := orc.PlaceOrder(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = orc.SubmitPayment(ctx)
	}()

	require.Eventually(t, func() bool {
		orc.mu.Lock()
		defer orc.mu.Unlock()
		return orc.inFlight
	}, time.Second, 5*time.Millisecond)

	_, err = orc.SubmitPayment(ctx)
	assert.ErrorIs(t, err, ErrPaymentInFlight)
	_, err = orc.PlaceOrder(ctx)
	assert.ErrorIs(t, err, ErrPaymentInFlight)
	<-done
}

func TestPlaceOrder_RejectsConcurrentPlacement(t *testing.T) {
	gw := newGateWallet("addr1payer")
	orders := newFakeOrders()
	orc := NewOrchestrator(newFakeCart(testLine("p1", 1, 2_000_000)), orders, &fixedWallets{wallet: gw}, shopAddress)
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))

	done := make(chan error, 1)
	go func() {
		_, err := orc.PlaceOrder(ctx)
		done <- err
	}()

	// the first placement is parked inside the wallet call
	<-gw.entered

	_, err := orc.PlaceOrder(ctx)
	assert.ErrorIs(t, err, ErrPaymentInFlight)

	close(gw.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, orders.count())

	// once settled, repeat calls hand back the existing order
	_, err = orc.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, orders.count())
}

func TestConnectWallet_FailureKeepsStage(t *testing.T) {
	fw := &fixedWallets{err: wallet.ErrConnectionRefused}
	orc := NewOrchestrator(newFakeCart(testLine("p1", 1, 2_000_000)), newFakeOrders(), fw, shopAddress)
	ctx := context.Background()

	require.NoError(t, orc.Begin(ctx))
	err := orc.ConnectWallet(ctx, "eternl")
	assert.ErrorIs(t, err, wallet.ErrConnectionRefused)
	assert.Equal(t, StageReview, orc.Stage())

	fw.err = nil
	fw.wallet = wallet.NewStubWallet("addr1payer")
	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))
	assert.Equal(t, StageWalletConnect, orc.Stage())
}

func TestConnectWallet_ReusesSession(t *testing.T) {
	fw := &fixedWallets{wallet: wallet.NewStubWallet("addr1payer")}
	orc := NewOrchestrator(newFakeCart(testLine("p1", 1, 2_000_000)), newFakeOrders(), fw, shopAddress)
	ctx := context.Background()

	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))
	require.NoError(t, orc.ConnectWallet(ctx, "eternl"))
	assert.Equal(t, 1, fw.connect)

	require.NoError(t, orc.ConnectWallet(ctx, "nami"))
	assert.Equal(t, 2, fw.connect)
}
