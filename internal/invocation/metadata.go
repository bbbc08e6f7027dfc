package invocation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidMetadata wraps every metadata validation failure.
var ErrInvalidMetadata = errors.New("invalid invocation metadata")

// Kind distinguishes syncs from actions.
type Kind string

const (
	KindSync   Kind = "sync"
	KindAction Kind = "action"
)

// Metadata describes one invocation. It is supplied by the caller and never
// modified by the script.
type Metadata struct {
	ConnectionID      string `json:"connection_id" yaml:"connection_id" toml:"connection_id" validate:"required"`
	ProviderConfigKey string `json:"provider_config_key" yaml:"provider_config_key" toml:"provider_config_key" validate:"required"`
	Provider          string `json:"provider,omitempty" yaml:"provider" toml:"provider"`
	SecretKey         string `json:"secret_key" yaml:"secret_key" toml:"secret_key" validate:"required"`
	ActivityLogID     string `json:"activity_log_id,omitempty" yaml:"activity_log_id" toml:"activity_log_id"`
	SyncID            string `json:"sync_id,omitempty" yaml:"sync_id" toml:"sync_id"`
	SyncName          string `json:"sync_name,omitempty" yaml:"sync_name" toml:"sync_name" validate:"required_without=ActionName"`
	ActionName        string `json:"action_name,omitempty" yaml:"action_name" toml:"action_name" validate:"excluded_with=SyncName"`
	DryRun            bool   `json:"dry_run,omitempty" yaml:"dry_run" toml:"dry_run"`
	Input             any    `json:"input,omitempty" yaml:"input" toml:"input"`
}

var validate = validator.New()

// Validate checks that the metadata names a connection, carries a secret and
// identifies exactly one sync or action.
func (m Metadata) Validate() error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: field %s failed on %q", ErrInvalidMetadata, f.Field(), f.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return nil
}

// Kind reports whether the metadata describes an action or a sync.
func (m Metadata) Kind() Kind {
	if m.ActionName != "" {
		return KindAction
	}
	return KindSync
}

// ScriptName returns the sync or action name.
func (m Metadata) ScriptName() string {
	if m.ActionName != "" {
		return m.ActionName
	}
	return m.SyncName
}
