package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// KeySource supplies the bearer credential for provider calls.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a credential taken from process configuration. An empty key is
// sent as-is and rejected by the provider.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	return string(k), nil
}

// TokenGetter reads a token-valued parameter, e.g. *paramstore.Client.
type TokenGetter interface {
	GetToken(ctx context.Context, name string) (string, error)
}

// ParamStoreKey fetches the credential from Parameter Store on first use and
// reuses it for the lifetime of the process. A failed fetch is retried on the
// next call.
type ParamStoreKey struct {
	getter TokenGetter
	name   string

	mu     sync.Mutex
	apiKey string
}

// NewParamStoreKey reads the key from "<paramPrefix>/open-ai-token".
func NewParamStoreKey(getter TokenGetter, paramPrefix string) (*ParamStoreKey, error) {
	if getter == nil {
		return nil, errors.New("openai: token getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("openai: parameter prefix must not be empty")
	}
	return &ParamStoreKey{getter: getter, name: paramPrefix + "/open-ai-token"}, nil
}

func (k *ParamStoreKey) APIKey(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.apiKey != "" {
		return k.apiKey, nil
	}
	key, err := k.getter.GetToken(ctx, k.name)
	if err != nil {
		return "", fmt.Errorf("openai: fetch api key: %w", err)
	}
	k.apiKey = key
	return key, nil
}
