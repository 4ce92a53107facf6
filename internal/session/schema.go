package session

// Persisted keys
const (
	KeySessionID           = "session_id"
	KeySelectedPerformance = "selectedPerformance"
	KeySelectedSeats       = "selectedSeats"
	KeyReservationExpiry   = "reservationExpiry"
	KeyCurrentBooking      = "currentBooking"
	KeyBookingData         = "bookingData"
	KeyBookingExpiry       = "bookingExpiry"
	KeyCurrentTransaction  = "currentTransaction"
	KeyCustomerInfo        = "customerInfo"
)

// Shape is the decoded form a persisted value must take
type Shape int

const (
	ShapeString Shape = iota
	ShapeObject
	ShapeArray
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeArray:
		return "array"
	default:
		return "string"
	}
}

// Field describes one schema entry
type Field struct {
	Required bool
	Shape    Shape
}

// Schema maps persisted keys to their constraints
type Schema map[string]Field

// DefaultSchema is the checkout session layout
func DefaultSchema() Schema {
	return Schema{
		KeySessionID:           {Required: true, Shape: ShapeString},
		KeySelectedPerformance: {Shape: ShapeObject},
		KeySelectedSeats:       {Shape: ShapeArray},
		KeyReservationExpiry:   {Shape: ShapeString},
		KeyCurrentBooking:      {Shape: ShapeObject},
		KeyBookingData:         {Shape: ShapeObject},
		KeyBookingExpiry:       {Shape: ShapeString},
		KeyCurrentTransaction:  {Shape: ShapeString},
		KeyCustomerInfo:        {Shape: ShapeObject},
	}
}

// BookingKeys are the keys owned by an in-progress booking flow
func BookingKeys() []string {
	return []string{
		KeySelectedPerformance,
		KeySelectedSeats,
		KeyReservationExpiry,
		KeyCurrentBooking,
		KeyBookingData,
		KeyBookingExpiry,
		KeyCurrentTransaction,
		KeyCustomerInfo,
	}
}
