// Package services implements the bot's workflows: recording occurrences,
// generating duplicate reports, cleaning up duplicates, and gating commands.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing replies is performed at the dispatcher layer.
package services

import "errors"

var (
	// ErrNotAdmin indicates the requester is a chat member without elevated
	// status and may not run the cleanup command.
	ErrNotAdmin = errors.New("requester is not a chat admin")

	// ErrVerifyAdmin indicates the membership lookup itself failed, so the
	// requester's status could not be verified. The action is denied rather
	// than failing open.
	ErrVerifyAdmin = errors.New("could not verify admin status")
)
