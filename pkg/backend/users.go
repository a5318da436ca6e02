package backend

import (
	"context"
	"errors"
	"strings"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
	"github.com/acorn-io/acorn-ddns/pkg/rand"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIDLength     = 12
	tokenSecretLength = 32
	tokenSeparator    = "."
)

// Signup registers an email and hands back its bearer token. The token is only ever returned
// here; the database keeps the token ID and a bcrypt hash of the secret.
func (b *backend) Signup(ctx context.Context, input model.SignupRequest) (model.SignupResponse, error) {
	if err := validate(input); err != nil {
		return model.SignupResponse{}, err
	}
	email := strings.ToLower(input.Email)

	_, err := b.db.GetUserByEmail(ctx, email)
	if err == nil {
		return model.SignupResponse{}, ErrEmailTaken
	}
	if !errors.Is(err, db.ErrRecordNotFound) {
		return model.SignupResponse{}, err
	}

	tokenID, secret, hash, err := createToken()
	if err != nil {
		return model.SignupResponse{}, err
	}

	user, err := b.db.CreateUser(ctx, email, uuid.NewString(), tokenID, hash)
	if err != nil {
		return model.SignupResponse{}, err
	}

	b.log.WithField("accountID", user.AccountID).Info("new user signed up")
	return model.SignupResponse{
		Email: user.Email,
		Token: tokenID + tokenSeparator + secret,
	}, nil
}

func (b *backend) Login(ctx context.Context, input model.LoginRequest) (model.UserResponse, error) {
	if err := validate(input); err != nil {
		return model.UserResponse{}, err
	}

	user, err := b.Authenticate(ctx, input.Token)
	if err != nil {
		return model.UserResponse{}, err
	}
	if user.Email != strings.ToLower(input.Email) {
		return model.UserResponse{}, ErrForbidden
	}

	return model.UserResponse{Email: user.Email, AccountID: user.AccountID}, nil
}

// Authenticate resolves a bearer token to its user. Every failure looks the same to the caller.
func (b *backend) Authenticate(ctx context.Context, token string) (db.User, error) {
	tokenID, secret, ok := strings.Cut(token, tokenSeparator)
	if !ok || tokenID == "" || secret == "" {
		return db.User{}, ErrForbidden
	}

	user, err := b.db.GetUserByTokenID(ctx, tokenID)
	if errors.Is(err, db.ErrRecordNotFound) {
		return db.User{}, ErrForbidden
	}
	if err != nil {
		return db.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.TokenHash), []byte(secret)); err != nil {
		return db.User{}, ErrForbidden
	}
	return user, nil
}

func createToken() (tokenID, secret, hash string, err error) {
	if tokenID, err = rand.ID(tokenIDLength); err != nil {
		return "", "", "", err
	}
	if secret, err = rand.Secret(tokenSecretLength); err != nil {
		return "", "", "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return "", "", "", err
	}
	return tokenID, secret, string(h), nil
}
