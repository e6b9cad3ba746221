// Package config loads and merges mender configuration with viper.
//
// Precedence (highest to lowest):
//  1. CLI flags, passed to [Load] as an overrides map
//  2. Environment variables: MENDER_ plus the dotted key upper-cased with
//     dots as underscores (MENDER_PROVIDER, MENDER_CACHE_TTLHOURS, ...)
//  3. Config file ($XDG_CONFIG_HOME/mender/config.json)
//  4. Built-in defaults
//
// [Save] writes a full config file and [SetField] updates one dotted key.
package config
