package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"boxoffice/internal/booking"
	"boxoffice/internal/checkout"
	"boxoffice/internal/navigation"
	"boxoffice/internal/reservation"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/database"
	"boxoffice/internal/unload"
	"boxoffice/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	perfID := flag.Int64("performance", 1, "performance to book")
	seatList := flag.String("seats", "", "comma separated seat labels, e.g. A1,A2")
	name := flag.String("name", "", "customer name")
	email := flag.String("email", "", "customer email")
	phone := flag.String("phone", "", "customer phone")
	discount := flag.String("discount", "", "discount code")
	method := flag.String("method", "card", "payment method")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	appLogger := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.SetDefault(appLogger)

	var rdb *redis.Client
	if cfg.Checkout.SessionStorage == checkout.StorageRedis {
		db, err := database.InitDB(context.Background(), redisOnly(cfg), appLogger)
		if err != nil {
			appLogger.Error("failed to connect session storage", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
		rdb = db.GetRedisClient()
	}

	flow, err := checkout.New(cfg, checkout.Options{
		Logger: appLogger,
		Redis:  rdb,
		OnExpire: func() {
			fmt.Println("⏰ Reservation expired, seats were released")
		},
		OnTick: func(left time.Duration) {
			if left%(30*time.Second) < time.Second {
				fmt.Printf("  %s left on the hold\n", left.Round(time.Second))
			}
		},
	})
	if err != nil {
		appLogger.Error("failed to start checkout", slog.Any("error", err))
		os.Exit(1)
	}

	src := unload.NewSignalSource(os.Interrupt, syscall.SIGTERM)
	defer src.Stop()
	flow.Mount(src)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-src.Teardown()
		cancel()
	}()

	info := booking.CustomerInfo{Name: *name, Email: *email, Phone: *phone}
	runErr := run(ctx, flow, *perfID, splitLabels(*seatList), info, *discount, *method)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Checkout.BeaconTimeout)
	defer closeCancel()
	if err := flow.Close(closeCtx); err != nil {
		appLogger.WithError(err).Warn("checkout close failed")
	}
	cancel()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "❌ %s\n", describe(runErr))
		os.Exit(1)
	}
}

func run(ctx context.Context, flow *checkout.Flow, perfID int64, labels []string, info booking.CustomerInfo, code, method string) error {
	orch := flow.Orchestrator
	if _, err := orch.InitSession(ctx); err != nil {
		return err
	}

	perf, err := flow.Client().GetPerformance(ctx, perfID)
	if err != nil {
		return err
	}
	if err := orch.SelectPerformance(ctx, *perf); err != nil {
		return err
	}
	showID := strconv.FormatInt(perf.ShowID, 10)
	flow.Navigate(ctx, navigation.SeatsPath(showID))
	fmt.Printf("🎭 %s at %s, %s\n", perf.ShowName, perf.VenueName, perf.StartsAt.Format(time.RFC1123))

	seatMap, err := flow.Client().GetSeatMap(ctx, perfID)
	if err != nil {
		return err
	}
	byLabel := make(map[string]reservation.Seat, len(seatMap.Seats))
	for _, e := range seatMap.Seats {
		byLabel[strings.ToUpper(e.FullLabel)] = e.Seat
	}
	for _, l := range labels {
		seat, ok := byLabel[l]
		if !ok {
			return fmt.Errorf("no seat %s in this performance", l)
		}
		if err := orch.SelectSeat(ctx, seat); err != nil {
			return err
		}
	}
	state := orch.Snapshot()
	fmt.Printf("💺 Holding %d seat(s) until %s\n", len(state.Seats), state.ReservationExpiry.Local().Format(time.Kitchen))

	if d := flow.Navigate(ctx, "/booking/"+showID+"/customer-info"); !d.Allow {
		return fmt.Errorf("cannot continue to customer info: %s", d.Reason)
	}
	orch.SetCustomerInfo(ctx, info)
	if code != "" {
		if _, err := orch.ApplyDiscount(ctx, code, info); err != nil {
			return err
		}
	}
	t := orch.Totals()
	fmt.Printf("🧾 Tickets %d + fees %d + shipping %d - discount %d = %d\n",
		t.Subtotal, t.ServiceFee, t.ShippingFee, t.DiscountAmount, t.Final)

	bk, err := orch.CreateBooking(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("📌 Booking %s created\n", bk.BookingCode)
	if d := flow.Navigate(ctx, "/booking/"+showID+"/payment"); !d.Allow {
		return fmt.Errorf("cannot continue to payment: %s", d.Reason)
	}

	pay, err := orch.ProcessPayment(ctx, method)
	if err != nil {
		return err
	}
	if pay.PaymentURL != "" {
		fmt.Printf("💳 Complete payment at %s\n", pay.PaymentURL)
	}
	status, err := orch.AwaitPayment(ctx, pay.TransactionID)
	if err != nil {
		return err
	}
	if status != reservation.PaymentSuccess {
		flow.Navigate(ctx, "/payment/failed")
		return fmt.Errorf("payment %s", status)
	}
	flow.Navigate(ctx, "/booking/confirmation/"+bk.BookingCode)
	fmt.Printf("🎉 Booking %s confirmed\n", bk.BookingCode)
	return nil
}

// redisOnly keeps InitDB from touching postgres
func redisOnly(cfg *config.Config) *config.Config {
	c := *cfg
	c.Database.Enabled = false
	c.Redis.Enabled = true
	return &c
}

func splitLabels(raw string) []string {
	var out []string
	for _, l := range strings.Split(raw, ",") {
		if l = strings.ToUpper(strings.TrimSpace(l)); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func describe(err error) string {
	if apiErr, ok := reservation.AsAPIError(err); ok {
		return apiErr.Message
	}
	var be *booking.Error
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
