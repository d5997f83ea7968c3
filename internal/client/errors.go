package client

import (
	"errors"

	"github.com/aws/smithy-go"
)

// IsAPIErrorCode checks smithy APIError code. Works for both AWS SDK errors and
// errors returned by GraphClient.
func IsAPIErrorCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == code
	}
	return false
}
