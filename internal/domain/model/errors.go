package model

import "errors"

var (
	// ErrSignatureInvalid rejects a webhook with a missing or bad signature.
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	// ErrNoItemsAvailable is returned when nothing is claimable.
	ErrNoItemsAvailable = errors.New("no items available")
	// ErrDuplicateQueueItem is returned when a dedup key already exists.
	ErrDuplicateQueueItem = errors.New("duplicate queue item")
	// ErrDuplicateRetryItem is returned when an active retry item shares the dedup key.
	ErrDuplicateRetryItem = errors.New("duplicate retry item")
	// ErrContactNotFound aborts message effects for unknown contacts.
	ErrContactNotFound = errors.New("contact not found")
	// ErrConversationNotFound is returned by unread updates for unknown conversations.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrEntityNotFound is returned by entity lookups.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrPermanentFailure marks handler errors that must not be retried.
	ErrPermanentFailure = errors.New("permanent failure")
	// ErrUnsupportedType is returned by handlers that do not cover a webhook type.
	ErrUnsupportedType = errors.New("unsupported webhook type")
)

// Permanent wraps err so callers stop retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrPermanentFailure, err)
}

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanentFailure)
}

// ErrNotClaimed is returned when completing or failing an item that is not
// currently processing, e.g. after a visibility timeout requeued it.
var ErrNotClaimed = errors.New("item is not claimed")
