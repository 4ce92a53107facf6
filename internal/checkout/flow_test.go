package checkout

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"boxoffice/internal/booking"
	"boxoffice/internal/navigation"
	"boxoffice/internal/reservation"
	"boxoffice/internal/sandbox"
	"boxoffice/internal/session"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/unload"
	"boxoffice/pkg/clock"
	"boxoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

var buyer = booking.CustomerInfo{
	Name:  "Tran Thi B",
	Email: "b@example.com",
	Phone: "0912345678",
}

type backend struct {
	url    string
	svc    *sandbox.Service
	perfID int64
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	ctx := context.Background()
	clk := clock.New()
	repo := sandbox.NewMemoryRepository()
	perfID, err := sandbox.SeedDemo(ctx, repo, clk.Now())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := sandbox.NewService(repo, sandbox.NewMemoryHoldStore(clk), nil, clk, sandbox.Config{
		ServiceFeePerTicket: 10000,
		PollsUntilSettled:   1,
		GatewayURL:          "http://gateway.test/pay",
	}, logger.Discard())

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	sandbox.SetupRoutes(engine.Group("/api/v1"), sandbox.NewController(svc))
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return &backend{url: srv.URL + "/api/v1", svc: svc, perfID: perfID}
}

func (b *backend) seatStatus(t *testing.T, id int64) string {
	t.Helper()
	m, err := b.svc.SeatMap(context.Background(), b.perfID)
	if err != nil {
		t.Fatalf("seat map: %v", err)
	}
	for _, e := range m.Seats {
		if e.ID == id {
			return e.Status
		}
	}
	t.Fatalf("seat %d not on map", id)
	return ""
}

func newFlow(t *testing.T, b *backend, tweak ...func(*config.Config)) *Flow {
	t.Helper()
	cfg := config.Load()
	cfg.Checkout.BackendURL = b.url
	cfg.Checkout.RequestTimeout = 2 * time.Second
	cfg.Checkout.PaymentPollDelay = 10 * time.Millisecond
	cfg.Checkout.PaymentPollInterval = 10 * time.Millisecond
	cfg.Checkout.BeaconTransport = BeaconHTTP
	cfg.Checkout.BeaconTimeout = 2 * time.Second
	cfg.Checkout.SessionStorage = StorageMemory
	for _, fn := range tweak {
		fn(cfg)
	}
	f, err := New(cfg, Options{Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("new flow: %v", err)
	}
	return f
}

// hold selects the demo performance and reserves seats one click at a time
func hold(t *testing.T, f *Flow, b *backend, ids ...int64) {
	t.Helper()
	ctx := context.Background()
	perf, err := f.Client().GetPerformance(ctx, b.perfID)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if err := f.Orchestrator.SelectPerformance(ctx, *perf); err != nil {
		t.Fatalf("select performance: %v", err)
	}
	m, err := f.Client().GetSeatMap(ctx, b.perfID)
	if err != nil {
		t.Fatalf("seat map: %v", err)
	}
	byID := make(map[int64]reservation.Seat, len(m.Seats))
	for _, e := range m.Seats {
		byID[e.ID] = e.Seat
	}
	for _, id := range ids {
		if err := f.Orchestrator.SelectSeat(ctx, byID[id]); err != nil {
			t.Fatalf("select seat %d: %v", id, err)
		}
	}
}

func TestFlowBooksAndPays(t *testing.T) {
	b := newBackend(t)
	f := newFlow(t, b)
	ctx := context.Background()
	defer f.Close(ctx)

	hold(t, f, b, 1, 2)
	if d := f.Navigate(ctx, "/booking/1/customer-info"); !d.Allow {
		t.Fatalf("customer info blocked: %+v", d)
	}

	f.Orchestrator.SetCustomerInfo(ctx, buyer)
	totals, err := f.Orchestrator.ApplyDiscount(ctx, "WELCOME10", buyer)
	if err != nil {
		t.Fatalf("discount: %v", err)
	}
	if totals.DiscountAmount != 100000 || totals.Final != 1000000+20000+30000-100000 {
		t.Fatalf("totals = %+v", totals)
	}

	bk, err := f.Orchestrator.CreateBooking(ctx)
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if bk.FinalAmount != totals.Final {
		t.Fatalf("booking final %d, quoted %d", bk.FinalAmount, totals.Final)
	}
	if d := f.Navigate(ctx, "/booking/1/payment"); !d.Allow {
		t.Fatalf("payment blocked: %+v", d)
	}

	pay, err := f.Orchestrator.ProcessPayment(ctx, "card")
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	status, err := f.Orchestrator.AwaitPayment(waitCtx, pay.TransactionID)
	if err != nil || status != reservation.PaymentSuccess {
		t.Fatalf("await = %s, %v", status, err)
	}

	if f.Orchestrator.SessionID() != "" {
		t.Fatal("session should be completed after payment")
	}
	if _, ok, _ := f.Store.GetString(ctx, session.KeySessionID); ok {
		t.Fatal("session id still persisted")
	}
	if b.seatStatus(t, 1) != reservation.SeatBooked {
		t.Fatal("paid seat not booked")
	}
}

func TestNavigateWithoutSessionGoesHome(t *testing.T) {
	f := newFlow(t, newBackend(t))
	ctx := context.Background()
	defer f.Close(ctx)

	d := f.Navigate(ctx, "/booking/1/seats")
	if d.Allow || d.Redirect != navigation.HomePath || d.Reason != navigation.ReasonNoSession {
		t.Fatalf("decision = %+v", d)
	}
	if f.CurrentPath() != navigation.HomePath {
		t.Fatalf("path = %s", f.CurrentPath())
	}
}

func TestCloseReleasesHeldSeats(t *testing.T) {
	b := newBackend(t)
	f := newFlow(t, b)
	ctx := context.Background()

	hold(t, f, b, 5)
	f.Navigate(ctx, "/booking/1/seats")
	if b.seatStatus(t, 5) != reservation.SeatReserved {
		t.Fatal("seat not held")
	}

	closeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := f.Close(closeCtx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if b.seatStatus(t, 5) != reservation.SeatAvailable {
		t.Fatal("beacon did not release the seat")
	}
	if _, ok, _ := f.Store.GetString(ctx, session.KeySelectedSeats); ok {
		t.Fatal("selected seats still persisted")
	}
	if f.Orchestrator.Snapshot().HasSeats() {
		t.Fatal("orchestrator still holds seats")
	}
}

func TestCloseOnConfirmationLeavesSessionAlone(t *testing.T) {
	b := newBackend(t)
	f := newFlow(t, b)
	ctx := context.Background()

	hold(t, f, b, 6)
	f.Navigate(ctx, "/booking/confirmation/BK123")
	if err := f.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if b.seatStatus(t, 6) != reservation.SeatReserved {
		t.Fatal("excluded route released the seat")
	}
	if _, ok, _ := f.Store.GetString(ctx, session.KeySessionID); !ok {
		t.Fatal("excluded route cleared the session")
	}
}

func TestSignalTeardownRunsOnce(t *testing.T) {
	b := newBackend(t)
	f := newFlow(t, b)
	ctx := context.Background()

	hold(t, f, b, 7)
	f.Navigate(ctx, "/booking/1/seats")

	src := unload.NewSignalSource()
	defer src.Stop()
	f.Mount(src)
	src.Fire()

	deadline := time.Now().Add(3 * time.Second)
	for !f.TornDown() {
		if time.Now().After(deadline) {
			t.Fatal("teardown did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if f.Teardown(ctx) {
		t.Fatal("second teardown should be a no-op")
	}
	if err := f.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if b.seatStatus(t, 7) != reservation.SeatAvailable {
		t.Fatal("signal teardown did not release the seat")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	b := newBackend(t)

	cfg := config.Load()
	cfg.Checkout.BackendURL = b.url
	cfg.Checkout.SessionStorage = StorageRedis
	if _, err := New(cfg, Options{Logger: logger.Discard()}); !errors.Is(err, ErrRedisRequired) {
		t.Fatalf("err = %v, want ErrRedisRequired", err)
	}

	cfg.Checkout.SessionStorage = StorageMemory
	cfg.Checkout.BeaconTransport = "pigeon"
	if _, err := New(cfg, Options{Logger: logger.Discard()}); err == nil {
		t.Fatal("unknown beacon transport accepted")
	}

	cfg.Checkout.SessionStorage = "disk"
	if _, err := New(cfg, Options{Logger: logger.Discard()}); err == nil {
		t.Fatal("unknown session storage accepted")
	}
}

func TestReplacedClientCarriesReleases(t *testing.T) {
	b := newBackend(t)
	cfg := config.Load()
	cfg.Checkout.BeaconTimeout = 2 * time.Second
	f, err := New(cfg, Options{
		Logger: logger.Discard(),
		Client: reservation.NewHTTPClient(b.url, 2*time.Second, logger.Discard()),
	})
	if err != nil {
		t.Fatalf("new flow: %v", err)
	}
	ctx := context.Background()

	hold(t, f, b, 8)
	f.Navigate(ctx, "/booking/1/seats")
	if err := f.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for b.seatStatus(t, 8) != reservation.SeatAvailable {
		if time.Now().After(deadline) {
			t.Fatal("release through the client never arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// slowReserveClient answers the reserve that includes seat with a delay
// the test controls. The backend has already taken the hold by then.
type slowReserveClient struct {
	reservation.Client
	seat    int64
	entered chan struct{}
	answer  chan struct{}
}

func (c *slowReserveClient) ReserveSeats(ctx context.Context, perfID int64, seatIDs []int64, sid string) (*reservation.Reservation, error) {
	res, err := c.Client.ReserveSeats(ctx, perfID, seatIDs, sid)
	for _, id := range seatIDs {
		if id == c.seat {
			close(c.entered)
			<-c.answer
			break
		}
	}
	return res, err
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSignalTeardownDiscardsLateReserve(t *testing.T) {
	b := newBackend(t)
	slow := &slowReserveClient{
		Client:  reservation.NewHTTPClient(b.url, 2*time.Second, logger.Discard()),
		seat:    10,
		entered: make(chan struct{}),
		answer:  make(chan struct{}),
	}
	cfg := config.Load()
	cfg.Checkout.BeaconTimeout = 2 * time.Second
	f, err := New(cfg, Options{Logger: logger.Discard(), Client: slow})
	if err != nil {
		t.Fatalf("new flow: %v", err)
	}
	ctx := context.Background()
	defer f.Close(ctx)

	hold(t, f, b, 9)
	f.Navigate(ctx, "/booking/1/seats")
	m, err := f.Client().GetSeatMap(ctx, b.perfID)
	if err != nil {
		t.Fatalf("seat map: %v", err)
	}
	var seat10 reservation.Seat
	for _, e := range m.Seats {
		if e.ID == 10 {
			seat10 = e.Seat
		}
	}

	selectErr := make(chan error, 1)
	go func() { selectErr <- f.Orchestrator.SelectSeat(ctx, seat10) }()
	select {
	case <-slow.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("reserve never reached the backend")
	}

	src := unload.NewSignalSource()
	defer src.Stop()
	f.Mount(src)
	src.Fire()
	eventually(t, "teardown", f.TornDown)
	f.Unload.Unmount()

	close(slow.answer)
	if err := <-selectErr; !booking.IsReason(err, booking.ReasonSuperseded) {
		t.Fatalf("late reserve err = %v, want superseded", err)
	}

	if st := f.Orchestrator.Snapshot(); st.HasSeats() || st.SessionID != "" {
		t.Fatalf("late reserve repopulated state: %+v", st)
	}
	if _, ok, _ := f.Store.GetString(ctx, session.KeySelectedSeats); ok {
		t.Fatal("late reserve repopulated the store")
	}
	eventually(t, "seat 9 released", func() bool { return b.seatStatus(t, 9) == reservation.SeatAvailable })
	eventually(t, "seat 10 released", func() bool { return b.seatStatus(t, 10) == reservation.SeatAvailable })
}
