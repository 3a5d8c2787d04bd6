package service

import "errors"

var (
	ErrPollsClosed         = errors.New("voting session has ended")
	ErrVoterNotFound       = errors.New("voter not found")
	ErrVoterInactive       = errors.New("voter is not eligible to vote")
	ErrUnderage            = errors.New("voter is below the minimum voting age")
	ErrAlreadyVoted        = errors.New("vote already cast")
	ErrInvalidCandidate    = errors.New("invalid candidate")
	ErrInvalidConstituency = errors.New("constituency does not match the voter's")
	ErrQueueFull           = errors.New("vote queue is full")
	ErrQueueClosed         = errors.New("vote queue is closed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)
