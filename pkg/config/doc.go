// Package config loads service configuration.
//
// Environment variables are parsed into tagged structs with
// github.com/caarlos0/env/v11 after an optional .env file is applied with
// github.com/joho/godotenv. Load caches one parsed copy per type; Parse
// always re-reads the environment.
//
// LoadYAML reads optional override files (for example rate limit policies)
// with gopkg.in/yaml.v3, rejecting unknown keys. time.Duration fields accept
// Go duration strings such as "15m".
//
// All errors wrap a package sentinel (ErrParsingConfig, ErrReadingFile,
// ErrParsingYAML, ErrNilPointer) and can be matched with errors.Is.
package config
