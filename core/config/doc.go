// Package config loads tagged structs from environment variables.
//
// The first call reads a .env file from the working directory when one
// exists; variables already set in the process win. Parsing uses
// caarlos0/env, so fields are described with env, envDefault and
// envSeparator tags, and nested structs are parsed in place:
//
//	type Config struct {
//		Email string        `env:"ACME_ACCOUNT_EMAIL,required"`
//		Days  int           `env:"ACME_FRESHNESS_DAYS" envDefault:"60"`
//		Redis redis.Config
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err // wraps ErrParsing
//	}
//
// MustLoad panics instead of returning the error.
//
// # Caching
//
// The parsed value is cached per type. Later calls with the same type return
// the first result even if the environment changed in between; tests that
// need fresh values declare their own types.
package config
