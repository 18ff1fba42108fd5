package api

import "errors"

var (
	// ErrMissingScope covers 401 and 403: the token lacks a scope or the bot is not a moderator.
	ErrMissingScope = errors.New("missing scope or not a moderator")
	ErrBadRequest   = errors.New("bad request")
	ErrRateLimited  = errors.New("rate limited")
	ErrNotFound     = errors.New("not found")
	ErrNoIdentity   = errors.New("broadcaster or bot id not resolved")
)
