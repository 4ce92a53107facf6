package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrStatusConflict = errors.New("status changed concurrently")
)

// Repository is the durable side of the sandbox: catalogue, bookings,
// payments and discounts. Holds live in a HoldStore.
type Repository interface {
	// Catalogue
	CreatePerformance(ctx context.Context, perf *Performance, seats []Seat) error
	GetPerformance(ctx context.Context, id int64) (*Performance, error)
	GetSeats(ctx context.Context, performanceID int64) ([]Seat, error)
	GetSeatsByIDs(ctx context.Context, performanceID int64, ids []int64) ([]Seat, error)

	// Discounts
	SaveDiscount(ctx context.Context, d *Discount) error
	GetDiscount(ctx context.Context, code string) (*Discount, error)
	ListPublicDiscounts(ctx context.Context) ([]Discount, error)
	CountPendingDiscountUses(ctx context.Context, code string) (int, error)
	IncrementDiscountUsage(ctx context.Context, code string) error

	// Bookings
	CreateBooking(ctx context.Context, b *Booking) error
	GetBooking(ctx context.Context, code string) (*Booking, error)
	UpdateBookingStatus(ctx context.Context, code, from, to string) error

	// Payments
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, transactionID string) (*Payment, error)
	SavePayment(ctx context.Context, p *Payment) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a Repository backed by gorm
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CATALOGUE

func (r *repository) CreatePerformance(ctx context.Context, perf *Performance, seats []Seat) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(perf).Error; err != nil {
			return fmt.Errorf("create performance: %w", err)
		}
		if len(seats) == 0 {
			return nil
		}
		for i := range seats {
			seats[i].PerformanceID = perf.ID
		}
		if err := tx.CreateInBatches(&seats, 200).Error; err != nil {
			return fmt.Errorf("create seats: %w", err)
		}
		return nil
	})
}

func (r *repository) GetPerformance(ctx context.Context, id int64) (*Performance, error) {
	var perf Performance
	if err := r.db.WithContext(ctx).First(&perf, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &perf, nil
}

func (r *repository) GetSeats(ctx context.Context, performanceID int64) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("performance_id = ?", performanceID).
		Order("section_name ASC, row ASC, number ASC").
		Find(&seats).Error
	return seats, err
}

func (r *repository) GetSeatsByIDs(ctx context.Context, performanceID int64, ids []int64) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("performance_id = ? AND id IN ?", performanceID, ids).
		Find(&seats).Error
	return seats, err
}

// DISCOUNTS

func (r *repository) SaveDiscount(ctx context.Context, d *Discount) error {
	d.Code = strings.ToUpper(d.Code)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			UpdateAll: true,
		}).
		Create(d).Error
}

func (r *repository) GetDiscount(ctx context.Context, code string) (*Discount, error) {
	var d Discount
	if err := r.db.WithContext(ctx).First(&d, "UPPER(code) = ?", strings.ToUpper(code)).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *repository) ListPublicDiscounts(ctx context.Context) ([]Discount, error) {
	var out []Discount
	err := r.db.WithContext(ctx).
		Where("public = ? AND active = ?", true, true).
		Order("code ASC").
		Find(&out).Error
	return out, err
}

func (r *repository) CountPendingDiscountUses(ctx context.Context, code string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("UPPER(discount_code) = ? AND status = ?", strings.ToUpper(code), "pending").
		Count(&n).Error
	return int(n), err
}

func (r *repository) IncrementDiscountUsage(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).
		Model(&Discount{}).
		Where("UPPER(code) = ?", strings.ToUpper(code)).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BOOKINGS

func (r *repository) CreateBooking(ctx context.Context, b *Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *repository) GetBooking(ctx context.Context, code string) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).
		Preload("Seats").
		First(&b, "booking_code = ?", code).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// UpdateBookingStatus moves a booking from one status to another and fails
// with ErrStatusConflict when it is no longer in from
func (r *repository) UpdateBookingStatus(ctx context.Context, code, from, to string) error {
	res := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("booking_code = ? AND status = ?", code, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetBooking(ctx, code); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	return nil
}

// PAYMENTS

func (r *repository) CreatePayment(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) GetPayment(ctx context.Context, transactionID string) (*Payment, error) {
	var p Payment
	if err := r.db.WithContext(ctx).First(&p, "transaction_id = ?", transactionID).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *repository) SavePayment(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}
