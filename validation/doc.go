// Package validation checks configuration and run options and reports
// problems as INVALID_INPUT errors with per-field details.
//
// Struct tags cover single-field rules:
//
//	type Config struct {
//	    BucketWidth float64 `mapstructure:"bucket_width" validate:"gt=0"`
//	    OnFailure   string  `mapstructure:"on_failure" validate:"oneof=discard mark"`
//	}
//	err := validation.Validate(cfg)
//
// Cross-field rules use the collecting Validator:
//
//	v := validation.New()
//	v.Custom(tol < max, "duration_tolerance", "must be below max_segment")
//	if err := v.Validate(); err != nil { ... }
//
// Field names are taken from mapstructure tags, so errors name the same
// keys users write in config.yml.
package validation
