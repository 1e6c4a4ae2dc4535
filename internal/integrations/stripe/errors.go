package stripe

import "errors"

var (
	// ErrInvalidSignature подпись отсутствует, не совпадает или устарела
	ErrInvalidSignature = errors.New("stripe: invalid webhook signature")

	// ErrMalformedEvent подпись верна, но содержимое события не разбирается
	ErrMalformedEvent = errors.New("stripe: malformed event payload")
)
