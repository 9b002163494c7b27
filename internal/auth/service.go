package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jaycoolh/hedera-agent-kit/pkg/logger"
)

const defaultAccessTTL = 3600

// Claims 定义访问令牌的声明结构。
type Claims struct {
	Permissions []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// Service 负责 HTTP 端点的身份验证和授权。
type Service struct {
	mode      Mode
	secret    []byte
	issuer    string
	accessTTL time.Duration
	audit     *slog.Logger
	now       func() time.Time
}

// NewService 构造身份认证服务实例。
func NewService(cfg Config) (*Service, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))
	if mode == "" {
		mode = ModeDisabled
	}
	svc := &Service{
		mode:  mode,
		audit: logger.Audit(),
		now:   time.Now,
	}

	switch mode {
	case ModeDisabled:
		return svc, nil
	case ModeJWT:
		if strings.TrimSpace(cfg.Secret) == "" {
			return nil, errors.New("jwt secret must be configured")
		}
		ttl := cfg.AccessTTL
		if ttl <= 0 {
			ttl = defaultAccessTTL
		}
		svc.secret = []byte(cfg.Secret)
		svc.issuer = strings.TrimSpace(cfg.Issuer)
		svc.accessTTL = time.Duration(ttl) * time.Second
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}

// Mode 返回当前身份认证服务的工作模式。
func (s *Service) Mode() Mode {
	if s == nil {
		return ModeDisabled
	}
	return s.mode
}

// IssueToken 为指定主体签发访问令牌。ttl 为零时使用配置的默认有效期。
func (s *Service) IssueToken(subject string, permissions []string, ttl time.Duration) (string, time.Time, error) {
	if s == nil || s.mode != ModeJWT {
		return "", time.Time{}, ErrDisabled
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, errors.New("subject required")
	}
	if ttl <= 0 {
		ttl = s.accessTTL
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		Permissions: append([]string(nil), permissions...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	s.audit.Info("token_issued", "subject", subject, "permissions", strings.Join(permissions, ","), "expires_at", expiresAt.Unix())
	return signed, expiresAt, nil
}

// AuthenticateRequest 验证传入请求的授权头，并返回相应的主体信息。
func (s *Service) AuthenticateRequest(_ context.Context, authorization string) (*Subject, error) {
	if s == nil || s.mode == ModeDisabled {
		return nil, ErrDisabled
	}
	parts := strings.SplitN(strings.TrimSpace(authorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, ErrMissingToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return nil, ErrMissingToken
	}
	return s.verify(token)
}

// verify 验证 JWT 令牌并返回相应的主体信息。
func (s *Service) verify(raw string) (*Subject, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	subject := &Subject{Name: claims.Subject, Permissions: claims.Permissions}
	subject.normalise()
	return subject, nil
}
