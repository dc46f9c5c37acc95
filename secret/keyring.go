package secret

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// Keyring is the production Backend: macOS Keychain, Windows Credential
// Manager, or the Secret Service on linux.
type Keyring struct{}

func (Keyring) Get(service, provider string) (string, error) {
	v, err := keyring.Get(service, provider)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (Keyring) Set(service, provider, value string) error {
	return keyring.Set(service, provider, value)
}

func (Keyring) Delete(service, provider string) error {
	err := keyring.Delete(service, provider)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
