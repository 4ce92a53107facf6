package sandbox

import (
	"context"
	"fmt"
	"time"

	"boxoffice/internal/reservation"
)

// SectionLayout describes a block of identical rows
type SectionLayout struct {
	Name        string
	Rows        []string
	SeatsPerRow int
	Category    string
	Color       string
	Price       int64
}

// GenerateSeats lays out seats row by row, numbered from 1
func GenerateSeats(sections []SectionLayout) []Seat {
	var seats []Seat
	for _, sec := range sections {
		for _, row := range sec.Rows {
			for n := 1; n <= sec.SeatsPerRow; n++ {
				seats = append(seats, Seat{
					SectionName: sec.Name,
					Row:         row,
					Number:      n,
					Category:    sec.Category,
					Color:       sec.Color,
					Price:       sec.Price,
				})
			}
		}
	}
	return seats
}

// DemoLayout is a small two-tier hall
func DemoLayout() []SectionLayout {
	return []SectionLayout{
		{Name: "Stalls", Rows: []string{"A", "B", "C"}, SeatsPerRow: 10, Category: "VIP", Color: "#d4af37", Price: 500000},
		{Name: "Stalls", Rows: []string{"D", "E", "F", "G"}, SeatsPerRow: 12, Category: "Standard", Color: "#4a90d9", Price: 300000},
		{Name: "Balcony", Rows: []string{"H", "J"}, SeatsPerRow: 14, Category: "Economy", Color: "#7ed321", Price: 150000},
	}
}

// DemoDiscounts are the codes seeded next to the demo performance
func DemoDiscounts(now time.Time) []Discount {
	limited := 50
	validTo := now.AddDate(0, 3, 0)
	return []Discount{
		{Code: "WELCOME10", Description: "10% off tickets", DiscountType: reservation.DiscountPercentage, Value: 10, Public: true, Active: true, ValidTo: &validTo},
		{Code: "GROUP4", Description: "100,000 off for four or more tickets", DiscountType: reservation.DiscountFixed, Value: 100000, MinTicketQuantity: 4, Public: true, Active: true},
		{Code: "EARLYBIRD", Description: "20% off, first fifty bookings", DiscountType: reservation.DiscountPercentage, Value: 20, MaxUsage: &limited, Public: true, Active: true},
		{Code: "STAFF50", Description: "Staff rate", DiscountType: reservation.DiscountPercentage, Value: 50, Public: false, Active: true},
	}
}

// SeedDemo writes one performance with the demo layout and the demo
// discounts. Returns the performance id.
func SeedDemo(ctx context.Context, repo Repository, now time.Time) (int64, error) {
	perf := &Performance{
		ShowID:              1,
		ShowName:            "The Night Concert",
		StartsAt:            now.Add(14 * 24 * time.Hour).Truncate(time.Hour),
		VenueName:           "Riverside Hall",
		ServiceFeePerTicket: 10000,
		ShippingFee:         30000,
	}
	if err := repo.CreatePerformance(ctx, perf, GenerateSeats(DemoLayout())); err != nil {
		return 0, fmt.Errorf("seed performance: %w", err)
	}
	for _, d := range DemoDiscounts(now) {
		d := d
		if err := repo.SaveDiscount(ctx, &d); err != nil {
			return 0, fmt.Errorf("seed discount %s: %w", d.Code, err)
		}
	}
	return perf.ID, nil
}
