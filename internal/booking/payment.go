package booking

import (
	"context"
	"strings"
	"time"

	"boxoffice/internal/reservation"
)

// ProcessPayment starts a payment attempt for the current booking. Only
// one attempt may be pending. On success the hold selection is dropped
// locally and from the store; the seats now belong to the booking.
func (o *Orchestrator) ProcessPayment(ctx context.Context, method string) (*PaymentResult, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, precondition(ReasonNoPaymentMethod, "choose a payment method")
	}

	o.mu.Lock()
	if o.booking == nil || o.booking.BookingCode == "" {
		o.mu.Unlock()
		return nil, redirect(precondition(ReasonNoBooking, "no booking to pay for"))
	}
	if o.paymentPending {
		o.mu.Unlock()
		return nil, precondition(ReasonPaymentPending, "a payment is already in progress")
	}
	code := o.booking.BookingCode
	o.paymentPending = true
	o.paymentSeq++
	seq := o.paymentSeq
	o.mu.Unlock()

	pay, err := o.backend.CreatePayment(ctx, code, method)

	o.mu.Lock()
	if seq != o.paymentSeq {
		o.mu.Unlock()
		return nil, superseded()
	}
	if err != nil {
		o.paymentPending = false
		o.mu.Unlock()
		return nil, redirect(backendFailure(err, ReasonPaymentFailed, "payment could not be started"))
	}
	o.transaction = pay
	o.paymentStatus = reservation.PaymentPending
	if pay.AutoComplete {
		// Nothing to charge; the backend settled it already
		o.paymentStatus = reservation.PaymentSuccess
		o.paymentPending = false
	}
	status := o.paymentStatus
	o.seats = nil
	o.expiresAt = time.Time{}
	o.seatSeq++
	o.mu.Unlock()

	o.log.LogPaymentStatus(ctx, pay.TransactionID, string(status))
	o.syncStore(ctx)

	out := *pay
	return &out, nil
}

// CheckPaymentStatus asks the backend once for the state of a transaction
func (o *Orchestrator) CheckPaymentStatus(ctx context.Context, transactionID string) (reservation.PaymentStatus, error) {
	if transactionID == "" {
		return "", precondition(ReasonNoTransaction, "no payment to check")
	}
	res, err := o.backend.CheckPaymentStatus(ctx, transactionID)
	if err != nil {
		return "", backendFailure(err, ReasonStatusUnknown, "payment status unavailable")
	}
	if !res.Status.IsValid() {
		return "", &Error{Kind: KindRejected, Reason: ReasonStatusUnknown, Message: "unrecognised payment status " + string(res.Status)}
	}

	o.mu.Lock()
	if o.transaction != nil && o.transaction.TransactionID == transactionID {
		o.paymentStatus = res.Status
		if res.Status.IsFinal() {
			o.paymentPending = false
		}
	}
	o.mu.Unlock()

	o.log.LogPaymentStatus(ctx, transactionID, string(res.Status))
	return res.Status, nil
}

// AwaitPayment polls until the transaction settles or ctx ends. The first
// check waits PollDelay, later ones PollInterval. Transport failures are
// retried; a pending status keeps polling without limit. A successful
// payment completes the session. Auto-completed payments return at once.
func (o *Orchestrator) AwaitPayment(ctx context.Context, transactionID string) (reservation.PaymentStatus, error) {
	if transactionID == "" {
		o.mu.Lock()
		if o.transaction != nil {
			transactionID = o.transaction.TransactionID
		}
		o.mu.Unlock()
	}
	if transactionID == "" {
		return "", precondition(ReasonNoTransaction, "no payment to wait for")
	}

	o.mu.Lock()
	settled := o.transaction != nil && o.transaction.TransactionID == transactionID &&
		o.transaction.AutoComplete
	o.mu.Unlock()
	if settled {
		o.ClearSession(ctx)
		return reservation.PaymentSuccess, nil
	}

	wait := o.opts.PollDelay
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-o.clock.After(wait):
		}
		wait = o.opts.PollInterval

		status, err := o.CheckPaymentStatus(ctx, transactionID)
		if err != nil {
			if isCanceled(err) && ctx.Err() != nil {
				return "", ctx.Err()
			}
			if IsKind(err, KindTransport) {
				o.log.WarnWithContext(ctx, "payment status check failed, retrying", err, map[string]interface{}{
					"transaction_id": transactionID,
				})
				continue
			}
			return "", err
		}

		switch status {
		case reservation.PaymentSuccess:
			o.ClearSession(ctx)
			return status, nil
		case reservation.PaymentFailed:
			return status, nil
		}
	}
}
