// Package config loads typed configuration structs from the environment.
// A .env file, when present, is loaded once before the first parse so
// local development does not need exported variables.
package config
