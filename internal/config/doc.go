// Package config loads relay server settings.
//
// Values are layered in this order, later layers winning:
//
//  1. built-in defaults (Default)
//  2. an optional YAML file, with ${VAR} references expanded
//  3. an optional .env file, which only fills variables not already set
//  4. the process environment
//
// The result is checked with Validate before the server starts.
package config
