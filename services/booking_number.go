package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/stores"
	"github.com/malwarebo/rentops/utils"
)

const (
	bookingNumberDigits = 6
	maxBookingSequence  = 999999
)

// BookingNumberGenerator hands out BP-<year>-<sequence> numbers. The unique index on
// booking_number is the source of truth; a lost race is retried with a fresh read.
type BookingNumberGenerator struct {
	bookings BookingRepository
	retry    *utils.RetryConfig
}

func CreateBookingNumberGenerator(bookings BookingRepository, maxAttempts int) *BookingNumberGenerator {
	retry := utils.CreateDefaultRetryConfig()
	retry.BaseDelay = 5 * time.Millisecond
	retry.MaxDelay = 50 * time.Millisecond
	if maxAttempts > 0 {
		retry.MaxAttempts = maxAttempts
	}
	retry.ShouldRetry = utils.IsRetryableError

	return &BookingNumberGenerator{bookings: bookings, retry: retry}
}

func BookingNumberPrefix(year int) string {
	return fmt.Sprintf("BP-%d-", year)
}

// NextBookingNumber increments the sequence of last, or starts at 1 when last is empty.
func NextBookingNumber(prefix, last string) (string, error) {
	next := 1
	if last != "" {
		seq, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil || !strings.HasPrefix(last, prefix) {
			return "", fmt.Errorf("malformed booking number %q", last)
		}
		next = seq + 1
	}
	if next > maxBookingSequence {
		return "", utils.NewConflictError(utils.ReasonBookingNumberExhausted, "booking numbers for this year are exhausted")
	}
	return fmt.Sprintf("%s%0*d", prefix, bookingNumberDigits, next), nil
}

// Insert numbers and stores booking. Each attempt runs in its own savepoint so a
// duplicate key does not poison the caller's transaction.
func (g *BookingNumberGenerator) Insert(ctx context.Context, booking *models.Booking, issuedAt time.Time) error {
	prefix := BookingNumberPrefix(issuedAt.UTC().Year())

	err := utils.Retry(ctx, g.retry, func() error {
		return g.bookings.WithTransaction(ctx, func(txCtx context.Context) error {
			last, err := g.bookings.LastBookingNumber(txCtx, prefix)
			if err != nil {
				return fmt.Errorf("read last booking number: %w", err)
			}

			number, err := NextBookingNumber(prefix, last)
			if err != nil {
				return err
			}

			booking.BookingNumber = number
			if err := g.bookings.Create(txCtx, booking); err != nil {
				if errors.Is(err, stores.ErrDuplicate) {
					return utils.CreateRetryableError(err)
				}
				return err
			}
			return nil
		})
	})

	if errors.Is(err, utils.ErrRetriesExhausted) {
		utils.LogError(ctx, err, "booking number allocation gave up", map[string]interface{}{"prefix": prefix})
		return utils.NewConflictError(utils.ReasonBookingNumberExhausted, "could not allocate a booking number, retry the request")
	}
	return err
}
