package redis

import (
	"context"
	"encoding/json"
	"time"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/service"
	"tenantauth/internal/errors"

	goredis "github.com/redis/go-redis/v9"
)

const oauthStateKeyPrefix = "oauth:state:"

type oauthStateStore struct {
	client goredis.Cmdable
}

// NewOAuthStateStore keeps OAuth CSRF state in Redis so any instance can finish a flow.
func NewOAuthStateStore(client *goredis.Client) service.OAuthStateStore {
	return &oauthStateStore{client: client}
}

func (s *oauthStateStore) Store(ctx context.Context, state string, data entity.OAuthState, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "failed to encode oauth state")
	}

	if err := s.client.Set(ctx, oauthStateKeyPrefix+state, payload, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to store oauth state")
	}

	return nil
}

// Consume reads and deletes the state in one GETDEL so it can be used at most once.
func (s *oauthStateStore) Consume(ctx context.Context, state string) (*entity.OAuthState, error) {
	if state == "" {
		return nil, service.ErrOAuthStateNotFound
	}

	payload, err := s.client.GetDel(ctx, oauthStateKeyPrefix+state).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, service.ErrOAuthStateNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to consume oauth state")
	}

	var data entity.OAuthState
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errors.Wrap(service.ErrOAuthStateNotFound, "malformed oauth state payload")
	}
	if data.Provider == "" || data.RedirectURI == "" {
		return nil, errors.Wrap(service.ErrOAuthStateNotFound, "incomplete oauth state payload")
	}

	return &data, nil
}
