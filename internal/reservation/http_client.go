package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"boxoffice/internal/shared/utils/response"
	"boxoffice/pkg/logger"
)

const maxResponseBytes = 1 << 20

// HTTPClient talks to the reservation backend's JSON API
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewHTTPClient creates a client rooted at baseURL, e.g. http://host/api/v1
func NewHTTPClient(baseURL string, timeout time.Duration, log *logger.Logger) *HTTPClient {
	if log == nil {
		log = logger.GetDefault()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.WithComponent("reservation-client"),
	}
}

// BaseURL returns the API root the client was built with
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) ReserveSeats(ctx context.Context, performanceID int64, seatIDs []int64, sessionID string) (*Reservation, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	body := ReserveRequest{PerformanceID: performanceID, SeatIDs: seatIDs, SessionID: sessionID}
	var out Reservation
	if err := c.do(ctx, "reserve seats", http.MethodPost, "/seats/reserve", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ReleaseSeats(ctx context.Context, seatIDs []int64, sessionID string) (*ReleaseResult, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	body := ReleaseRequest{SeatIDs: seatIDs, SessionID: sessionID}
	var out ReleaseResult
	if err := c.do(ctx, "release seats", http.MethodPost, "/seats/release", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SessionHolds(ctx context.Context, performanceID int64, sessionID string) (*Reservation, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	q := url.Values{}
	q.Set("session_id", sessionID)
	q.Set("performance_id", strconv.FormatInt(performanceID, 10))
	var out Reservation
	if err := c.do(ctx, "session holds", http.MethodGet, "/seats/session", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetSeatMap(ctx context.Context, performanceID int64) (*SeatMap, error) {
	var out SeatMap
	path := fmt.Sprintf("/performances/%d/seat-map", performanceID)
	if err := c.do(ctx, "seat map", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetPerformance(ctx context.Context, performanceID int64) (*Performance, error) {
	var out Performance
	path := fmt.Sprintf("/performances/%d", performanceID)
	if err := c.do(ctx, "performance", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) PreviewBooking(ctx context.Context, req BookingRequest) (*BookingPreview, error) {
	if req.SessionID == "" {
		return nil, ErrMissingSession
	}
	var out BookingPreview
	if err := c.do(ctx, "validate discount", http.MethodPost, "/bookings/preview", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	if req.SessionID == "" {
		return nil, ErrMissingSession
	}
	var out Booking
	if err := c.do(ctx, "create booking", http.MethodPost, "/bookings", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CancelBooking(ctx context.Context, bookingCode string) (*Booking, error) {
	var out Booking
	path := "/bookings/" + url.PathEscape(bookingCode) + "/cancel"
	if err := c.do(ctx, "cancel booking", http.MethodPost, path, nil, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreatePayment(ctx context.Context, bookingCode, method string) (*Payment, error) {
	var out Payment
	path := "/bookings/" + url.PathEscape(bookingCode) + "/payment"
	if err := c.do(ctx, "create payment", http.MethodPost, path, nil, PaymentRequest{PaymentMethod: method}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CheckPaymentStatus(ctx context.Context, transactionID string) (*PaymentStatusResult, error) {
	var out PaymentStatusResult
	path := "/payments/" + url.PathEscape(transactionID) + "/status"
	if err := c.do(ctx, "payment status", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AvailableDiscounts(ctx context.Context) ([]Discount, error) {
	var out []Discount
	if err := c.do(ctx, "available discounts", http.MethodGet, "/discounts/available", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		terr := &TransportError{Op: op, Err: err}
		c.log.LogBackendCall(ctx, op, 0, time.Since(start), terr)
		return terr
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		terr := &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
		c.log.LogBackendCall(ctx, op, resp.StatusCode, time.Since(start), terr)
		return terr
	}

	var envelope response.RawApiResponse
	decodeErr := json.Unmarshal(payload, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = envelope.Message
			if len(envelope.Errors) > 0 && string(envelope.Errors) != "null" {
				apiErr.Details = string(envelope.Errors)
			}
		}
		c.log.LogBackendCall(ctx, op, resp.StatusCode, time.Since(start), apiErr)
		return apiErr
	}

	if decodeErr != nil {
		terr := &TransportError{Op: op, Err: fmt.Errorf("malformed response: %w", decodeErr)}
		c.log.LogBackendCall(ctx, op, resp.StatusCode, time.Since(start), terr)
		return terr
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			terr := &TransportError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
			c.log.LogBackendCall(ctx, op, resp.StatusCode, time.Since(start), terr)
			return terr
		}
	}

	c.log.LogBackendCall(ctx, op, resp.StatusCode, time.Since(start), nil)
	return nil
}
