package model

import "errors"

var ErrorNotFound = errors.New("not found")
var ErrorChallengeRequired = errors.New("challenge required")
var ErrorDenied = errors.New("access denied")
var ErrorForbidden = errors.New("forbidden")
var ErrorUnavailable = errors.New("service unavailable")
var ErrorValidation = errors.New("invalid request")
