//go:build integration

package credentials_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"workboard/internal/auth/credentials"
	id "workboard/pkg/domain"
	"workboard/pkg/platform/sentinel"
	"workboard/pkg/testutil/containers"
)

type RedisCredentialsSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *credentials.RedisStore
}

func TestRedisCredentialsSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCredentialsSuite))
}

func (s *RedisCredentialsSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = credentials.NewRedisStore(s.redis.Client)
}

func (s *RedisCredentialsSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCredentialsSuite) TestPutGetRoundTrip() {
	ctx := context.Background()
	cred := credentials.Credential{
		Email:        "ada@demo.ai",
		PasswordHash: []byte("$2a$10$hash"),
		UserID:       id.NewUserID(),
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	s.Require().NoError(s.store.Put(ctx, cred))

	got, err := s.store.Get(ctx, "ada@demo.ai")
	s.Require().NoError(err)
	s.Equal(cred.Email, got.Email)
	s.Equal(cred.PasswordHash, got.PasswordHash)
	s.Equal(cred.UserID, got.UserID)
	s.WithinDuration(cred.CreatedAt, got.CreatedAt, time.Second)
}

func (s *RedisCredentialsSuite) TestEmailsAreCaseInsensitive() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, credentials.Credential{
		Email:        "Ada@Demo.AI",
		PasswordHash: []byte("h"),
		UserID:       id.NewUserID(),
	}))

	got, err := s.store.Get(ctx, "  ada@demo.ai ")
	s.Require().NoError(err)
	s.Equal("ada@demo.ai", got.Email)
}

func (s *RedisCredentialsSuite) TestDuplicateEmailConflicts() {
	ctx := context.Background()
	cred := credentials.Credential{Email: "ada@demo.ai", PasswordHash: []byte("h"), UserID: id.NewUserID()}
	s.Require().NoError(s.store.Put(ctx, cred))

	err := s.store.Put(ctx, credentials.Credential{Email: "ADA@demo.ai", PasswordHash: []byte("other"), UserID: id.NewUserID()})
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// The original credential is untouched.
	got, err := s.store.Get(ctx, "ada@demo.ai")
	s.Require().NoError(err)
	s.Equal(cred.UserID, got.UserID)
}

func (s *RedisCredentialsSuite) TestGetUnknownEmail() {
	_, err := s.store.Get(context.Background(), "nobody@demo.ai")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
