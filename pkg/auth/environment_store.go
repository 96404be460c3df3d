package auth

import (
	"os"
	"time"
)

const (
	envAccessToken = "PSHARVEST_ACCESS_TOKEN"
	envUserAgent   = "PSHARVEST_USER_AGENT"
)

// EnvironmentStore reads a single read-only account from PSHARVEST_ACCESS_TOKEN.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account under name, or "env" when name is
// empty.
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	token := os.Getenv(envAccessToken)
	if token == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = "env"
	}

	return &Account{
		Name:         name,
		AccessToken:  token,
		UserAgent:    os.Getenv(envUserAgent),
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(envAccessToken) != ""
}
