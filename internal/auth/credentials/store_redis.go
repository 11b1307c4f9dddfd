package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "workboard/pkg/domain"
	"workboard/pkg/platform/sentinel"
)

const credentialKeyPrefix = "workboard:creds:"

// RedisStore shares credentials across instances. Keys are
// workboard:creds:<email> with a JSON body.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type credentialWire struct {
	Email        string `json:"email"`
	PasswordHash []byte `json:"password_hash"`
	UserID       string `json:"user_id"`
	CreatedAt    string `json:"created_at"`
}

func (s *RedisStore) Put(ctx context.Context, cred Credential) error {
	wire := credentialWire{
		Email:        NormalizeEmail(cred.Email),
		PasswordHash: cred.PasswordHash,
		UserID:       cred.UserID.String(),
		CreatedAt:    cred.CreatedAt.Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, credentialKeyPrefix+wire.Email, data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, email string) (Credential, error) {
	data, err := s.client.Get(ctx, credentialKeyPrefix+NormalizeEmail(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credential{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Credential{}, err
	}

	var wire credentialWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Credential{}, err
	}
	userID, _ := id.ParseUserID(wire.UserID)
	cred := Credential{
		Email:        wire.Email,
		PasswordHash: wire.PasswordHash,
		UserID:       userID,
	}
	if t, err := time.Parse(time.RFC3339Nano, wire.CreatedAt); err == nil {
		cred.CreatedAt = t
	}
	return cred, nil
}
