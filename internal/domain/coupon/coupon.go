// Package coupon holds the per-user loyalty coupon model.
//
// A user has at most one coupon at a time. Coupons are issued automatically
// after qualifying checkouts and consumed (deactivated, never deleted) when
// applied to a successful payment.
package coupon

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no matching coupon exists for a user.
var ErrNotFound = errors.New("coupon not found")

const (
	// CodePrefix starts every generated coupon code.
	CodePrefix = "GIFT"
	// codeSuffixLen is the number of random characters after the prefix.
	codeSuffixLen = 6
	// DiscountPercentage applied by every issued coupon.
	DiscountPercentage = 10
	// Validity is how long an issued coupon remains valid.
	Validity = 30 * 24 * time.Hour
)

// Coupon is a single-use percentage discount owned by one user.
type Coupon struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	UserID             string    `json:"-"`
	DiscountPercentage int       `json:"discountPercentage"`
	IsActive           bool      `json:"isActive"`
	ExpirationDate     time.Time `json:"expirationDate"`
	CreatedAt          time.Time `json:"-"`
}

// Ledger defines the coupon lifecycle operations. All lookups are user-scoped:
// a code valid for one user never applies to another.
type Ledger interface {
	// IssueFor replaces any existing coupon for userID with a fresh one.
	IssueFor(ctx context.Context, userID string) (*Coupon, error)
	// Deactivate marks the matching coupon inactive. Deactivating a missing
	// or already-inactive coupon is not an error.
	Deactivate(ctx context.Context, code, userID string) error
	// FindActive returns the coupon only when code and user match and the
	// coupon is active. Expiration is not checked here; expired-but-active
	// coupons are still honored until explicitly deactivated.
	FindActive(ctx context.Context, code, userID string) (*Coupon, error)
	// FindByUser returns the user's current active coupon, if any.
	FindByUser(ctx context.Context, userID string) (*Coupon, error)
}

// New builds a fresh coupon for userID with a generated code, the fixed
// discount percentage, and expiry measured from now.
func New(userID string, now time.Time) *Coupon {
	return &Coupon{
		ID:                 uuid.New().String(),
		Code:               CodePrefix + randomSuffix(codeSuffixLen),
		UserID:             userID,
		DiscountPercentage: DiscountPercentage,
		IsActive:           true,
		ExpirationDate:     now.Add(Validity),
		CreatedAt:          now,
	}
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomSuffix returns n random characters from the code alphabet. Collisions
// are tolerated: code uniqueness matters per user, not globally.
func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
