// Package config loads voxkit configuration with Viper.
//
// Values come from a YAML file (searched under cmd/<service>/, config/ and the
// user config directory), an optional .env file, and VOXKIT_-prefixed
// environment variables, in increasing order of precedence:
//
//	VOXKIT_PIPELINE_STAGE_TIMEOUT=90s voxd
//
// The user's provider selection lives in its own small file so it can be
// edited while the service runs; see LoadSelection and Watch.
package config
