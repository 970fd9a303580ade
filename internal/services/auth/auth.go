// Package auth содержит логику учётных записей: одноразовые коды на почту,
// регистрацию, вход по паролю, сброс пароля, профиль и операции администратора.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/lib/email"
	"github.com/magabrotheeeer/golden-pips/internal/lib/jwt"
	"github.com/magabrotheeeer/golden-pips/internal/lib/otp"
	"github.com/magabrotheeeer/golden-pips/internal/lib/password"
	"github.com/magabrotheeeer/golden-pips/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// OTPTTL срок жизни одноразового кода.
const OTPTTL = 10 * time.Minute

// RoleUser роль в сессии обычного пользователя.
const RoleUser = "user"

// ErrInvalidCode единый ответ на любую ошибку проверки кода.
var ErrInvalidCode = fmt.Errorf("%w: invalid or expired code", apperr.ErrValidation)

// ErrInvalidCredentials единый ответ на неверную пару почта/пароль.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)

// UserRepository описывает контракт хранилища учётных записей.
type UserRepository interface {
	CreateAccount(ctx context.Context, user models.User, displayName, normalizedEmail string) error
	EmailExists(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUID(ctx context.Context, userUID string) (*models.User, error)
	UpdatePassword(ctx context.Context, userUID, passwordHash string) error
	HasRole(ctx context.Context, userUID, role string) (bool, error)
	DeleteAccount(ctx context.Context, userUID string) error

	GetProfile(ctx context.Context, userUID string) (*models.Profile, error)
	UpdateDisplayName(ctx context.Context, userUID, displayName string) error
	SetPushToken(ctx context.Context, userUID, token string) error
	SetBlocked(ctx context.Context, userUID string, blocked bool, reason *string, at time.Time) error

	ManualUpgrade(ctx context.Context, a models.Activation) error

	CreateOTP(ctx context.Context, code models.OTPCode) error
	GetActiveOTP(ctx context.Context, email, purpose string, now time.Time) (*models.OTPCode, error)
	ConsumeOTP(ctx context.Context, id int) (bool, error)
}

// EmailQueue очередь исходящих писем.
type EmailQueue interface {
	Publish(routingKey string, message any) error
}

// Cache кэш ролей.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Session выданная пользователю сессия.
type Session struct {
	Token   string `json:"token"`
	UserUID string `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// SignupInput данные завершения регистрации.
type SignupInput struct {
	Email       string
	Code        string
	Password    string
	DisplayName string
}

// Service отвечает за учётные записи и сессии.
type Service struct {
	repo     UserRepository
	jwtMaker jwt.Maker
	emails   EmailQueue
	cache    Cache
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service. cache может быть nil.
func New(repo UserRepository, jwtMaker jwt.Maker, emails EmailQueue, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		jwtMaker: jwtMaker,
		emails:   emails,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

// canonical адрес, под которым хранится пользователь.
func canonical(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

var hashCode = password.GetHash

// newOTP генерирует код и его bcrypt-хэш.
func newOTP() (code, hash string, err error) {
	code, err = otp.Generate()
	if err != nil {
		return "", "", err
	}
	hash, err = hashCode(code)
	if err != nil {
		return "", "", err
	}
	return code, hash, nil
}

// issueOTP создает код, сохраняет его хэш и ставит письмо в очередь.
func (s *Service) issueOTP(ctx context.Context, address, purpose string) error {
	const op = "auth.issueOTP"
	code, hash, err := newOTP()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.CreateOTP(ctx, models.OTPCode{
		Email:     address,
		Purpose:   purpose,
		CodeHash:  hash,
		ExpiresAt: s.now().Add(OTPTTL),
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.emails.Publish(rabbitmq.RoutingKeyEmail, otpEmail(address, purpose, code)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func otpEmail(address, purpose, code string) models.EmailMessage {
	subject := "Golden Pips: код подтверждения"
	action := "завершения регистрации"
	if purpose == models.OTPPasswordReset {
		subject = "Golden Pips: сброс пароля"
		action = "сброса пароля"
	}
	return models.EmailMessage{
		To:      address,
		Subject: subject,
		Body: fmt.Sprintf("Ваш код для %s: %s\n\nКод действует %d минут. Если вы не запрашивали код, просто проигнорируйте это письмо.",
			action, code, int(OTPTTL.Minutes())),
	}
}

// verifyOTP проверяет и гасит код. Любая неудача возвращает ErrInvalidCode.
func (s *Service) verifyOTP(ctx context.Context, address, purpose, code string) error {
	const op = "auth.verifyOTP"
	if !otp.Valid(code) {
		return ErrInvalidCode
	}
	stored, err := s.repo.GetActiveOTP(ctx, address, purpose, s.now())
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(stored.CodeHash, code); err != nil {
		return ErrInvalidCode
	}
	consumed, err := s.repo.ConsumeOTP(ctx, stored.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !consumed {
		return ErrInvalidCode
	}
	return nil
}

// RequestSignupOTP отправляет код регистрации. Для занятого адреса код
// не сохраняется и не отправляется, но хэшируется так же, а ответ тот же.
func (s *Service) RequestSignupOTP(ctx context.Context, rawEmail string) error {
	const op = "auth.RequestSignupOTP"
	address := canonical(rawEmail)
	if !strings.Contains(address, "@") {
		return fmt.Errorf("%s: %w: invalid email", op, apperr.ErrValidation)
	}
	exists, err := s.repo.EmailExists(ctx, address)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		if _, _, err := newOTP(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("signup otp requested for registered email", slog.String("op", op))
		return nil
	}
	if err := s.issueOTP(ctx, address, models.OTPSignup); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Signup проверяет код и создает пользователя, профиль, бесплатную подписку
// и строку индекса нормализованных адресов. Возвращает сессию.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	const op = "auth.Signup"
	address := canonical(in.Email)
	if err := password.Validate(in.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = strings.SplitN(address, "@", 2)[0]
	}
	if err := s.verifyOTP(ctx, address, models.OTPSignup, in.Code); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := s.repo.EmailExists(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCode)
	}

	hashed, err := password.GetHash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		UUID:         uuid.NewString(),
		Email:        address,
		PasswordHash: hashed,
	}
	if err := s.repo.CreateAccount(ctx, user, displayName, email.Normalize(address)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account created", slog.String("op", op), slog.String("user_uid", user.UUID))
	return s.session(user, RoleUser)
}

// Login проверяет пароль и выдаёт сессию. Заблокированным пользователям вход закрыт.
func (s *Service) Login(ctx context.Context, rawEmail, rawPassword string) (*Session, error) {
	const op = "auth.Login"
	user, err := s.repo.GetUserByEmail(ctx, canonical(rawEmail))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	profile, err := s.repo.GetProfile(ctx, user.UUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if profile.IsBlocked {
		return nil, fmt.Errorf("%s: %w: account is blocked", op, apperr.ErrForbidden)
	}

	role := RoleUser
	admin, err := s.IsAdmin(ctx, user.UUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if admin {
		role = models.RoleAdmin
	}
	return s.session(*user, role)
}

func (s *Service) session(user models.User, role string) (*Session, error) {
	token, err := s.jwtMaker.GenerateToken(user.UUID, user.Email, role)
	if err != nil {
		return nil, fmt.Errorf("auth.session: %w", err)
	}
	return &Session{Token: token, UserUID: user.UUID, Email: user.Email, Role: role}, nil
}

// RequestPasswordReset отправляет код сброса, если адрес зарегистрирован.
// Вызывающий получает одинаковый ответ в обоих случаях, сбои только логируются.
func (s *Service) RequestPasswordReset(ctx context.Context, rawEmail string) {
	const op = "auth.RequestPasswordReset"
	log := s.log.With(slog.String("op", op))
	address := canonical(rawEmail)

	exists, err := s.repo.EmailExists(ctx, address)
	if err != nil {
		log.Error("failed to check email", sl.Err(err))
		return
	}
	if !exists {
		_, _, _ = newOTP()
		log.Info("password reset requested for unknown email")
		return
	}
	if err := s.issueOTP(ctx, address, models.OTPPasswordReset); err != nil {
		log.Error("failed to issue reset code", sl.Err(err))
	}
}

// ConfirmPasswordReset проверяет код сброса и устанавливает новый пароль.
func (s *Service) ConfirmPasswordReset(ctx context.Context, rawEmail, code, newPassword string) error {
	const op = "auth.ConfirmPasswordReset"
	address := canonical(rawEmail)
	if err := password.Validate(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.verifyOTP(ctx, address, models.OTPPasswordReset, code); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.repo.GetUserByEmail(ctx, address)
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCode)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdatePassword(ctx, user.UUID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password reset", slog.String("op", op), slog.String("user_uid", user.UUID))
	return nil
}
