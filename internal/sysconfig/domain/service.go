package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidKey           = errors.New("invalid_setting_key")
	ErrInvalidValue         = errors.New("invalid_setting_value")
	ErrNotFound             = errors.New("setting_not_found")
	ErrEncryptionKeyMissing = errors.New("encryption_key_missing")
	ErrSealedValue          = errors.New("sealed_value_unreadable")
)

type PutSettingRequest struct {
	Key   string `json:"-" uri:"key"`
	Value string `json:"value"`
	// Description is kept as stored when omitted.
	Description *string `json:"description"`
	// Encrypted keeps the stored flag when omitted; flipping it re-seals
	// or exposes the value accordingly.
	Encrypted *bool `json:"encrypted"`
}

type GetSettingRequest struct {
	Key string `uri:"key"`
}

type ListSettingsResponse struct {
	Settings []SystemConfiguration `json:"settings"`
}

type Service interface {
	// Put creates the setting or replaces its value. Encrypted values
	// are sealed before they touch the database.
	Put(ctx context.Context, req PutSettingRequest) (SystemConfiguration, error)
	// Get returns one setting with the value unsealed.
	Get(ctx context.Context, req GetSettingRequest) (SystemConfiguration, error)
	// List returns every setting ordered by key. A value that cannot be
	// unsealed is blanked rather than failing the whole listing.
	List(ctx context.Context) (ListSettingsResponse, error)
}
