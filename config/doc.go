// Package config loads chunkscribe configuration from a YAML file, a .env
// file and the process environment, in that order of precedence (later
// sources win), followed by explicit overrides such as CLI flags.
//
// # Usage
//
//	var cfg Config
//	err := config.LoadConfig("chunkscribe", &cfg, config.WithConfigFile("config.yml"))
//
// Environment variables map onto nested keys by replacing underscores with
// dots (PIPELINE_BUCKET_WIDTH sets pipeline.bucket_width). When an env prefix
// is configured only variables carrying it are considered and the prefix is
// stripped first.
package config
