package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"insightmarket/payments-service/pkg/metrics"
)

const paidStatus = "PAID"

const mismatchCancelReason = "paid amount does not match order total"

// VerificationService reconciles the gateway's payment record against the
// order prepared earlier. Any amount discrepancy is treated as adversarial:
// the order is failed and the captured payment is cancelled automatically.
type VerificationService struct {
	repo     Repository
	gateway  PaymentGateway
	notifier StatusNotifier
	metrics  *metrics.PaymentMetrics
	logger   *slog.Logger
}

func NewVerificationService(repo Repository, gateway PaymentGateway, notifier StatusNotifier, m *metrics.PaymentMetrics, logger *slog.Logger) *VerificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationService{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// VerifyAndComplete fetches the gateway record for correlationID, compares
// the paid amount against the order total by exact integer equality, and
// finalizes the order either way:
//
//   - mismatch: the order is failed, a compensating cancellation is attempted
//     against the gateway, and ErrAmountMismatch is returned;
//   - amount ok but not paid: ErrNotPaid, order stays pending;
//   - both ok: the order is completed, the receipt URL stored, and every
//     referenced solution flagged purchased, in one atomic write.
//
// A call on an already-finalized order is a no-op: it short-circuits before
// comparing anything, so neither the cancellation nor the purchased flags can
// run twice. The gateway fetch happens before any local write, so a gateway
// failure leaves the order untouched.
func (s *VerificationService) VerifyAndComplete(ctx context.Context, correlationID string, orderID int64) error {
	payment, err := s.gateway.GetPayment(ctx, correlationID)
	if err != nil {
		return fmt.Errorf("fetch payment %s: %w", correlationID, err)
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if o.Status.Terminal() {
		s.logger.Info("verification skipped, order already finalized",
			"order_id", orderID, "status", o.Status)
		s.metrics.ObserveVerification(metrics.OutcomeAlreadyDone)
		return nil
	}

	if payment.Amount.Total != o.TotalPrice {
		return s.failWithCompensation(ctx, o, payment.Amount.Total)
	}

	if !strings.EqualFold(payment.Status, paidStatus) {
		s.logger.Info("payment not completed yet",
			"order_id", orderID, "gateway_status", payment.Status)
		s.metrics.ObserveVerification(metrics.OutcomeNotPaid)
		return fmt.Errorf("%w: gateway status %q", ErrNotPaid, payment.Status)
	}

	if err := s.repo.CompleteOrder(ctx, orderID, payment.ReceiptURL); err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			s.metrics.ObserveVerification(metrics.OutcomeAlreadyDone)
			return nil
		}
		return fmt.Errorf("complete order %d: %w", orderID, err)
	}

	s.notify(orderID, StatusCompleted)
	s.metrics.ObserveVerification(metrics.OutcomeCompleted)
	s.logger.Info("order completed",
		"order_id", orderID,
		"correlation_id", o.CorrelationID,
		"total", o.TotalPrice,
		"receipt_url", payment.ReceiptURL)
	return nil
}

// failWithCompensation records the failed state first, then unwinds the
// captured money. The ordering guarantees no caller can observe a failed
// order without the cancellation having been attempted; a secondary failure
// of the cancel call is escalated to the caller, not retried.
func (s *VerificationService) failWithCompensation(ctx context.Context, o *Order, paidAmount int) error {
	s.logger.Warn("paid amount mismatch, failing order",
		"order_id", o.ID,
		"correlation_id", o.CorrelationID,
		"order_total", o.TotalPrice,
		"paid", paidAmount)

	if err := s.repo.FailOrder(ctx, o.ID, mismatchCancelReason); err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			s.metrics.ObserveVerification(metrics.OutcomeAlreadyDone)
			return nil
		}
		return fmt.Errorf("fail order %d: %w", o.ID, err)
	}

	s.notify(o.ID, StatusFailed)
	s.metrics.ObserveVerification(metrics.OutcomeAmountMismatch)
	s.metrics.ObserveCancellation()

	if err := s.gateway.Cancel(ctx, o.CorrelationID, mismatchCancelReason); err != nil {
		return fmt.Errorf("cancel payment %s after amount mismatch: %w", o.CorrelationID, err)
	}

	return fmt.Errorf("%w: order total %d, paid %d", ErrAmountMismatch, o.TotalPrice, paidAmount)
}

func (s *VerificationService) notify(orderID int64, status Status) {
	if s.notifier != nil {
		s.notifier.NotifyStatus(orderID, status)
	}
}
