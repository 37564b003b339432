package bootstrap

import (
	"github.com/kbukum/chunkscribe/config"
)

// Config is the constraint for application configuration types. Any struct
// that embeds config.ServiceConfig by value satisfies it through promoted
// methods, as long as it does not shadow them.
//
//	type AppConfig struct {
//	    config.ServiceConfig `mapstructure:",squash"`
//	    Ledger database.Config `mapstructure:"ledger"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
