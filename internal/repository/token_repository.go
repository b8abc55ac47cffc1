package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	refreshTokenPrefix = "refresh_token:"
	blacklistPrefix    = "blacklist:"
)

// Sentinels for refresh-token store outcomes. The service layer maps these
// to its typed errors.
var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenMismatch = errors.New("refresh token mismatch")
)

// rotateScript swaps the stored refresh token only when the presented value
// still matches, closing the get-then-put race between concurrent reissues.
// Returns -1 when no token is stored, 0 on mismatch, 1 on success.
var rotateScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false then
  return -1
end
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// RefreshTokenRepository stores the single currently-valid refresh token per
// account under refresh_token:<loginID>. Entries expire in lockstep with the
// token itself.
type RefreshTokenRepository struct {
	client *redis.Client
}

// NewRefreshTokenRepository constructs the repository.
func NewRefreshTokenRepository(client *redis.Client) *RefreshTokenRepository {
	return &RefreshTokenRepository{client: client}
}

// Save upserts the refresh token for the account, replacing any prior value.
// Overwrite-on-issue is what enforces the single-active-token invariant.
func (r *RefreshTokenRepository) Save(ctx context.Context, loginID, token string, ttl time.Duration) error {
	if err := r.client.Set(ctx, refreshTokenPrefix+loginID, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set refresh token for %s: %w", loginID, err)
	}
	return nil
}

// Find returns the stored refresh token for the account.
func (r *RefreshTokenRepository) Find(ctx context.Context, loginID string) (string, error) {
	token, err := r.client.Get(ctx, refreshTokenPrefix+loginID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("redis get refresh token for %s: %w", loginID, err)
	}
	return token, nil
}

// Replace atomically rotates the stored token: the swap happens only if the
// presented token still matches the stored one.
func (r *RefreshTokenRepository) Replace(ctx context.Context, loginID, presented, next string, ttl time.Duration) error {
	result, err := rotateScript.Run(ctx, r.client,
		[]string{refreshTokenPrefix + loginID},
		presented, next, ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("redis rotate refresh token for %s: %w", loginID, err)
	}
	switch result {
	case -1:
		return ErrTokenNotFound
	case 0:
		return ErrTokenMismatch
	default:
		return nil
	}
}

// Delete removes the account's refresh token. Used on logout.
func (r *RefreshTokenRepository) Delete(ctx context.Context, loginID string) error {
	if err := r.client.Del(ctx, refreshTokenPrefix+loginID).Err(); err != nil {
		return fmt.Errorf("redis delete refresh token for %s: %w", loginID, err)
	}
	return nil
}

// RevocationRepository records explicitly invalidated access tokens under
// blacklist:<token>. Entries carry the token's remaining natural lifetime as
// TTL, so the store never outlives the tokens it shadows and no sweep
// process is needed.
type RevocationRepository struct {
	client *redis.Client
}

// NewRevocationRepository constructs the repository.
func NewRevocationRepository(client *redis.Client) *RevocationRepository {
	return &RevocationRepository{client: client}
}

// Revoke blacklists the access token for its remaining lifetime. A token
// with no remaining lifetime needs no entry.
func (r *RevocationRepository) Revoke(ctx context.Context, accessToken string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, blacklistPrefix+accessToken, "logout", ttl).Err(); err != nil {
		return fmt.Errorf("redis blacklist access token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the access token has been blacklisted.
func (r *RevocationRepository) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	n, err := r.client.Exists(ctx, blacklistPrefix+accessToken).Result()
	if err != nil {
		return false, fmt.Errorf("redis check blacklist: %w", err)
	}
	return n > 0, nil
}
