// The storage configuration targets Backblaze B2 through its S3-compatible API.
// Any S3-compatible endpoint works, which also makes integration testing against
// MinIO possible without code changes.
package config

import "fmt"

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeB2 StorageType = "b2"
)

// StorageConfig holds the configuration for the object storage backend
type StorageConfig struct {
	StorageType StorageType `json:"type" yaml:"type" toml:"type"`

	// Common options for all backends
	Common CommonStorageConfig `json:"common,omitempty" yaml:"common,omitempty" toml:"common,omitempty"`

	// type-specific configurations
	B2 *B2Config `json:"b2,omitempty" yaml:"b2,omitempty" toml:"b2,omitempty"`
}

// CommonStorageConfig contains general settings applicable to all backends
type CommonStorageConfig struct {
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty"` // optional: request timeout in seconds
	MaxRPS         int `json:"max_rps,omitempty" yaml:"max_rps,omitempty" toml:"max_rps,omitempty"`                         // optional: maximum requests per second to the backend (0 = no limit)
}

// B2Config holds Backblaze B2 specific configuration.
// ApplicationKeyID and ApplicationKey are the two account secrets; they are
// only ever read from the environment, never from flags.
type B2Config struct {
	Region           string `json:"region" yaml:"region" toml:"region"`
	Bucket           string `json:"bucket" yaml:"bucket" toml:"bucket"`
	ApplicationKeyID string `json:"application_key_id,omitempty" yaml:"application_key_id,omitempty" toml:"application_key_id,omitempty"`
	ApplicationKey   string `json:"application_key,omitempty" yaml:"application_key,omitempty" toml:"application_key,omitempty"`
	Endpoint         string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" toml:"endpoint,omitempty"` // S3-compatible endpoint, e.g. https://s3.us-west-004.backblazeb2.com
}

// Validate ensures the configuration is valid for the specified storage type
func (sc *StorageConfig) Validate() error {
	if err := sc.Common.Validate(); err != nil {
		return err
	}

	switch sc.StorageType {
	case StorageTypeB2:
		if sc.B2 == nil {
			return fmt.Errorf("b2 configuration is required when type is 'b2'")
		}
		return sc.B2.Validate()
	default:
		return fmt.Errorf("unsupported storage type: %s", sc.StorageType)
	}
}

// Validate validates B2 configuration
func (bc *B2Config) Validate() error {
	if bc.Bucket == "" {
		return fmt.Errorf("b2 bucket is required")
	}
	if bc.ApplicationKeyID == "" {
		return fmt.Errorf("b2 application key id is required (set B2_APPLICATION_KEY_ID)")
	}
	if bc.ApplicationKey == "" {
		return fmt.Errorf("b2 application key is required (set B2_APPLICATION_KEY)")
	}
	if bc.Endpoint == "" {
		return fmt.Errorf("b2 endpoint is required")
	}
	return nil
}

// ApplyDefaults sets default values if they are not provided
func (c *CommonStorageConfig) ApplyDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	// MaxRPS leave 0 (means no limit)
}

func (c *CommonStorageConfig) Validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds cannot be negative")
	}
	if c.MaxRPS < 0 {
		return fmt.Errorf("max_rps cannot be negative")
	}
	return nil
}
