package db

import "errors"

var (
	// ErrDuplicateSend indicates an initial send was already logged for the lead id
	ErrDuplicateSend = errors.New("initial send already logged for this lead")
	// ErrLeadNotFound indicates no lead exists with the given id
	ErrLeadNotFound = errors.New("lead not found")
	// ErrStepNotFound indicates the follow-up step index is out of range for the lead
	ErrStepNotFound = errors.New("follow-up step not found")
	// ErrStepAlreadySent indicates the follow-up step was already marked sent
	ErrStepAlreadySent = errors.New("follow-up step already sent")
	// ErrCampaignNotFound indicates no campaign exists with the given id
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrCredentialNotFound indicates no stored credential for the user
	ErrCredentialNotFound = errors.New("credential not found")
)
