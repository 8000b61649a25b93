package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	otpDigits     = 6
	DefaultOTPTTL = 10 * time.Minute
)

var otpSpace = big.NewInt(1_000_000)

// OTPPolicy bounds code lifetime and use. MaxAttempts caps failed
// verifications per (subject, purpose) per TTL window; MaxLive caps how many
// unused codes a subject holds per purpose. Zero disables either cap.
type OTPPolicy struct {
	TTL         time.Duration
	MaxAttempts int64
	MaxLive     int
}

// OTPService issues and verifies one-time codes. A code is usable once:
// verification locks the subject's live codes and flips used in the same
// transaction.
type OTPService struct {
	codes    ports.OTPRepository
	hasher   ports.HashService
	attempts ports.RateLimiter
	tx       *txRunner
	policy   OTPPolicy
	now      func() time.Time
	log      zerolog.Logger
}

func NewOTPService(
	codes ports.OTPRepository,
	hasher ports.HashService,
	attempts ports.RateLimiter,
	tx *txRunner,
	policy OTPPolicy,
	log zerolog.Logger,
) *OTPService {
	if policy.TTL <= 0 {
		policy.TTL = DefaultOTPTTL
	}
	return &OTPService{
		codes:    codes,
		hasher:   hasher,
		attempts: attempts,
		tx:       tx,
		policy:   policy,
		now:      time.Now,
		log:      log,
	}
}

// TTL is the default code lifetime.
func (s *OTPService) TTL() time.Duration { return s.policy.TTL }

// Issue creates a code for (subject, purpose) and returns the plaintext,
// which is never persisted. ttl <= 0 uses the default.
func (s *OTPService) Issue(ctx context.Context, subject domain.Subject, purpose domain.OTPPurpose, ttl time.Duration) (string, *domain.OneTimeCode, error) {
	if ttl <= 0 {
		ttl = s.policy.TTL
	}
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", nil, apperror.InternalError(fmt.Errorf("generate otp: %w", err))
	}
	code := fmt.Sprintf("%0*d", otpDigits, n.Int64())

	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", nil, apperror.InternalError(fmt.Errorf("hash otp: %w", err))
	}

	row := domain.NewOneTimeCode(subject, purpose, hash, s.now().UTC(), ttl)
	if err := s.codes.Create(ctx, row); err != nil {
		return "", nil, apperror.ErrDatabaseError(fmt.Errorf("store otp: %w", err))
	}
	if err := s.retireSurplus(ctx, subject, purpose); err != nil {
		return "", nil, err
	}

	s.log.Info().
		Str("subject", subject.String()).
		Str("purpose", string(purpose)).
		Time("expires_at", row.ExpiresAt).
		Msg("otp issued")
	return code, row, nil
}

// Verify consumes a matching live code. Wrong, used and expired codes all
// fail with the same InvalidOrExpiredCode and count against the attempt
// cap; a successful verification does not.
func (s *OTPService) Verify(ctx context.Context, subject domain.Subject, purpose domain.OTPPurpose, code string) error {
	key := attemptKey(subject, purpose)
	if err := s.checkAttempts(ctx, key); err != nil {
		return err
	}
	err := s.tx.run(ctx, "verify otp", func(tx pgx.Tx) error {
		return s.consume(ctx, tx, subject, purpose, code)
	})
	if err != nil && apperror.CodeOf(err) == apperror.ErrInvalidOrExpiredCode().Code {
		s.log.Warn().Str("subject", subject.String()).Str("purpose", string(purpose)).Msg("otp verification failed")
		s.recordFailure(ctx, key)
	}
	return err
}

func attemptKey(subject domain.Subject, purpose domain.OTPPurpose) string {
	return "otp:" + subject.String() + ":" + string(purpose)
}

func (s *OTPService) limited() bool {
	return s.attempts != nil && s.policy.MaxAttempts > 0
}

// checkAttempts rejects once the window already holds MaxAttempts failures.
func (s *OTPService) checkAttempts(ctx context.Context, key string) error {
	if !s.limited() {
		return nil
	}
	failures, err := s.attempts.Count(ctx, key, s.policy.TTL)
	if err != nil {
		// Fail open: the code check itself still applies.
		s.log.Warn().Err(err).Str("key", key).Msg("otp attempt counter unavailable")
		return nil
	}
	if failures >= s.policy.MaxAttempts {
		return apperror.ErrRateLimitExceeded()
	}
	return nil
}

func (s *OTPService) recordFailure(ctx context.Context, key string) {
	if !s.limited() {
		return
	}
	if _, err := s.attempts.Allow(ctx, key, s.policy.MaxAttempts, s.policy.TTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("otp attempt counter unavailable")
	}
}

// retireSurplus marks used every live code beyond the newest MaxLive, so a
// verification never has to hash-check more than MaxLive candidates.
func (s *OTPService) retireSurplus(ctx context.Context, subject domain.Subject, purpose domain.OTPPurpose) error {
	if s.policy.MaxLive <= 0 {
		return nil
	}
	retired := 0
	err := s.tx.run(ctx, "retire otp codes", func(tx pgx.Tx) error {
		retired = 0
		now := s.now().UTC()
		live, err := s.codes.ListActiveForUpdate(ctx, tx, subject, purpose, now)
		if err != nil {
			return fmt.Errorf("load live otp codes: %w", err)
		}
		// Newest first.
		for i := s.policy.MaxLive; i < len(live); i++ {
			marked, err := s.codes.MarkUsed(ctx, tx, live[i].ID, now)
			if err != nil {
				return fmt.Errorf("retire otp: %w", err)
			}
			if marked {
				retired++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if retired > 0 {
		s.log.Debug().
			Str("subject", subject.String()).
			Str("purpose", string(purpose)).
			Int("retired", retired).
			Msg("superseded otp codes retired")
	}
	return nil
}

func (s *OTPService) consume(ctx context.Context, tx pgx.Tx, subject domain.Subject, purpose domain.OTPPurpose, code string) error {
	now := s.now().UTC()
	candidates, err := s.codes.ListActiveForUpdate(ctx, tx, subject, purpose, now)
	if err != nil {
		return fmt.Errorf("load otp candidates: %w", err)
	}
	for _, c := range candidates {
		match, err := s.hasher.Verify(code, c.CodeHash)
		if err != nil {
			s.log.Warn().Err(err).Str("otp_id", c.ID.String()).Msg("unreadable otp hash")
			continue
		}
		if !match {
			continue
		}
		marked, err := s.codes.MarkUsed(ctx, tx, c.ID, now)
		if err != nil {
			return fmt.Errorf("mark otp used: %w", err)
		}
		if !marked {
			return apperror.ErrInvalidOrExpiredCode()
		}
		return nil
	}
	return apperror.ErrInvalidOrExpiredCode()
}
