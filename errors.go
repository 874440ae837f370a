package fetch

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is matched by every KeyError through errors.Is
var ErrKeyNotFound = errors.New("key not found")

// KeyError indicates that a strict lookup could not resolve the given key.
// It carries the key as it was passed to the lookup and the container the lookup was attempted on.
type KeyError[TKey comparable] struct {
	key      TKey
	receiver any
}

// Create a new key error for the given key and the container it was looked up on
func NewKeyError[TKey comparable](key TKey, receiver any) *KeyError[TKey] {
	return &KeyError[TKey]{
		key:      key,
		receiver: receiver,
	}
}

// The key that caused the lookup failure
func (e *KeyError[TKey]) Key() TKey { return e.key }

// The container on which the lookup failed
func (e *KeyError[TKey]) Receiver() any { return e.receiver }

func (e *KeyError[TKey]) Error() string {
	return fmt.Sprintf("%s: %v", ErrKeyNotFound, e.key)
}

func (e *KeyError[TKey]) Is(target error) bool {
	return target == ErrKeyNotFound
}

// KeyOf returns the key carried by the first KeyError in the error chain
func KeyOf[TKey comparable](err error) (TKey, bool) {
	var keyErr *KeyError[TKey]
	if errors.As(err, &keyErr) {
		return keyErr.Key(), true
	}
	return zero[TKey](), false
}

// ReceiverOf returns the container carried by the first KeyError in the error chain
func ReceiverOf[TKey comparable](err error) (any, bool) {
	var keyErr *KeyError[TKey]
	if errors.As(err, &keyErr) {
		return keyErr.Receiver(), true
	}
	return nil, false
}

// IsKeyError reports whether the error chain contains a key lookup failure
func IsKeyError(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
