package memberauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/mail"
	"github.com/PhilDL/shuken/internal/pkg/metrics"
	"github.com/PhilDL/shuken/internal/pkg/security"
)

const (
	CodeLength  = 6
	CodeTTL     = 10 * time.Minute
	MaxAttempts = 5

	sendInterval = 30 * time.Second
	sendBurst    = 3
	limiterIdle  = 15 * time.Minute
)

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrRateLimited     = errors.New("too many codes requested, please wait a moment")
	ErrCodeInvalid     = errors.New("the code is not valid")
	ErrCodeExpired     = errors.New("the code has expired")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
)

// Issued is a freshly created sign-in code and its magic-link token.
type Issued struct {
	CodeID    string
	Code      string
	Token     string
	ExpiresAt time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Service implements passwordless sign-in for customers: a six digit code
// sent by email, redeemable by typing it or by following a signed link.
type Service struct {
	db      *gorm.DB
	mailer  mail.Sender
	secret  string
	baseURL string
	now     func() time.Time

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

func NewService(db *gorm.DB, mailer mail.Sender, secret, baseURL string) *Service {
	return &Service{
		db:       db,
		mailer:   mailer,
		secret:   secret,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

// Issue creates a new code for the email, replacing unconsumed ones.
func (s *Service) Issue(ctx context.Context, email string) (*Issued, error) {
	email = models.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if !s.allow(email) {
		return nil, ErrRateLimited
	}

	code, err := randomCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	vc := &models.VerificationCode{
		ID:        uuid.NewString(),
		Email:     email,
		CodeHash:  hashCode(code),
		ExpiresAt: s.now().Add(CodeTTL),
	}
	token, err := security.GenerateMagicLinkToken(email, vc.ID, CodeTTL, s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign magic link: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? AND consumed_at IS NULL", email).
			Delete(&models.VerificationCode{}).Error; err != nil {
			return err
		}
		return tx.Create(vc).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}
	metrics.OTPIssuedTotal.Inc()
	return &Issued{CodeID: vc.ID, Code: code, Token: token, ExpiresAt: vc.ExpiresAt}, nil
}

// SendCode issues a code and mails it together with the magic link.
func (s *Service) SendCode(ctx context.Context, email string) error {
	issued, err := s.Issue(ctx, email)
	if err != nil {
		return err
	}
	link := s.baseURL + "/verify?token=" + url.QueryEscape(issued.Token)
	body := fmt.Sprintf(
		`<p>Your sign-in code is <strong>%s</strong>.</p><p>Or <a href="%s">sign in directly</a>. The code expires in %d minutes.</p>`,
		issued.Code, html.EscapeString(link), int(CodeTTL.Minutes()),
	)
	if err := s.mailer.Send(models.NormalizeEmail(email), "Your sign-in code", body); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	log.Infof("[MemberAuth] Sign-in code sent to %s", models.NormalizeEmail(email))
	return nil
}

// VerifyCode redeems a typed code and returns the normalized email.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (string, error) {
	email = models.NormalizeEmail(email)
	code = strings.TrimSpace(code)

	var vc models.VerificationCode
	err := s.db.WithContext(ctx).
		Where("email = ? AND consumed_at IS NULL", email).
		Order("created_at DESC").
		First(&vc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", s.verified(ErrCodeInvalid)
		}
		return "", err
	}
	if err := s.verified(s.redeem(ctx, &vc, code)); err != nil {
		return "", err
	}
	return email, nil
}

// VerifyMagicLink redeems the code referenced by a signed link.
func (s *Service) VerifyMagicLink(ctx context.Context, token string) (string, error) {
	claims, err := security.VerifyMagicLinkToken(token, s.secret)
	if err != nil {
		return "", s.verified(ErrCodeInvalid)
	}

	var vc models.VerificationCode
	if err := s.db.WithContext(ctx).Where("id = ? AND email = ?", claims.CodeID, claims.Email).First(&vc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", s.verified(ErrCodeInvalid)
		}
		return "", err
	}
	if err := s.verified(s.redeem(ctx, &vc, "")); err != nil {
		return "", err
	}
	return vc.Email, nil
}

// redeem consumes the code. An empty code means the caller already proved
// possession through a signed link.
func (s *Service) redeem(ctx context.Context, vc *models.VerificationCode, code string) error {
	now := s.now()
	switch {
	case vc.IsConsumed():
		return ErrCodeInvalid
	case vc.IsExpired(now):
		return ErrCodeExpired
	case vc.Attempts >= MaxAttempts:
		return ErrTooManyAttempts
	}

	if code != "" && subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(vc.CodeHash)) != 1 {
		if err := s.db.WithContext(ctx).Model(vc).
			UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return err
		}
		if vc.Attempts+1 >= MaxAttempts {
			return ErrTooManyAttempts
		}
		return ErrCodeInvalid
	}

	// guarded so two concurrent redemptions cannot both succeed
	tx := s.db.WithContext(ctx).Model(&models.VerificationCode{}).
		Where("id = ? AND consumed_at IS NULL", vc.ID).
		Update("consumed_at", now)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrCodeInvalid
	}
	return nil
}

// LoginCustomer returns the customer for a verified email, creating it on
// first sign-in, and records the login time.
func (s *Service) LoginCustomer(ctx context.Context, email string) (*models.Customer, error) {
	email = models.NormalizeEmail(email)
	now := s.now()

	var customer models.Customer
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&customer).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		customer = models.Customer{Email: email, LastLoginAt: &now}
		if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
			return nil, fmt.Errorf("create customer: %w", err)
		}
		log.Infof("[MemberAuth] New customer %s signed up", customer.ID)
		return &customer, nil
	case err != nil:
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&customer).Update("last_login_at", now).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Service) allow(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > limiterIdle {
			delete(s.limiters, key)
		}
	}

	entry, ok := s.limiters[email]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(sendInterval), sendBurst)}
		s.limiters[email] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (s *Service) verified(err error) error {
	metrics.OTPVerifiedTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	return err
}

func validateEmail(email string) error {
	c := models.Customer{Email: email}
	if err := c.Validate(); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func randomCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
