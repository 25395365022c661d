package services

import "errors"

// ErrQuotaExceeded signals the upstream gateway marked this user as over quota
var ErrQuotaExceeded = errors.New("generation quota exceeded")

// Allowed decides whether a request may start a pipeline run. Quota
// enforcement itself lives in the gateway; this service only honors the
// verdict headers it forwards. Admins bypass the quota flag.
func Allowed(quotaExceeded bool, role string) error {
	if role == "admin" {
		return nil
	}
	if quotaExceeded {
		return ErrQuotaExceeded
	}
	return nil
}
