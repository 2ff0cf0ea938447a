package services

import (
	"context"
	"fmt"
	"time"

	"github.com/peerproof/backend/internal/auth"
	"github.com/peerproof/backend/internal/config"
	"github.com/peerproof/backend/internal/models"
	"github.com/peerproof/backend/internal/solana"
	"go.uber.org/zap"
)

// LoginMessagePrefix is the fixed prefix of the message a wallet signs.
// The server reconstructs the full message from the nonce it issued, so
// the client never chooses what gets signed.
const LoginMessagePrefix = "PeerProof login: "

type NonceStore interface {
	Create(ctx context.Context, ttl time.Duration) (*models.LoginNonce, error)
	Consume(ctx context.Context, nonce string) (bool, error)
}

type UserStore interface {
	UpsertByWallet(ctx context.Context, wallet string, displayName *string) (*models.User, error)
}

type AuthService struct {
	nonces NonceStore
	users  UserStore
	cfg    *config.Config
	log    *zap.Logger
}

func NewAuthService(nonces NonceStore, users UserStore, cfg *config.Config, log *zap.Logger) *AuthService {
	return &AuthService{nonces: nonces, users: users, cfg: cfg, log: log}
}

// IssueNonce creates a single-use login challenge. The client signs
// LoginMessagePrefix + nonce with its wallet key.
func (s *AuthService) IssueNonce(ctx context.Context) (*models.LoginNonce, error) {
	n, err := s.nonces.Create(ctx, s.cfg.NonceTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create login nonce: %w", err)
	}
	return n, nil
}

// Login verifies a signed nonce challenge and returns a session token.
// The nonce is consumed before the signature is checked, so a captured
// signature cannot be replayed even if verification below were to fail.
func (s *AuthService) Login(ctx context.Context, walletAddress, nonce, signature string, displayName *string) (string, *models.User, error) {
	canonical, err := solana.CanonicalAddress(walletAddress)
	if err != nil {
		return "", nil, ErrInvalidAddress
	}

	ok, err := s.nonces.Consume(ctx, nonce)
	if err != nil {
		return "", nil, fmt.Errorf("failed to consume nonce: %w", err)
	}
	if !ok {
		return "", nil, ErrInvalidNonce
	}

	if !solana.VerifySignature(canonical, LoginMessagePrefix+nonce, signature) {
		return "", nil, ErrInvalidSignature
	}

	user, err := s.users.UpsertByWallet(ctx, canonical, displayName)
	if err != nil {
		return "", nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, canonical, s.cfg.JWTExpiration)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Info("wallet logged in", zap.String("wallet", canonical))
	return token, user, nil
}
