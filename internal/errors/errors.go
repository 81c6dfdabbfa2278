// internal/errors/errors.go
package appErrors

import (
	"fmt"
	"strings"
)

// ErrNotFound covers accounts, campaigns and details that are absent or
// soft-deleted. It is recovered locally and never treated as a system fault.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFound(resource, id string) error {
	return &ErrNotFound{Resource: resource, ID: id}
}

// ErrStoreUnavailable means a tenant store could not be reached even after
// the broker's single retry.
type ErrStoreUnavailable struct {
	StoreName string
	Err       error
}

func (e *ErrStoreUnavailable) Error() string {
	return fmt.Sprintf("store %q unavailable: %v", e.StoreName, e.Err)
}

func (e *ErrStoreUnavailable) Unwrap() error { return e.Err }

func NewStoreUnavailable(storeName string, err error) error {
	return &ErrStoreUnavailable{StoreName: storeName, Err: err}
}

// ErrPartialFederation reports the tenants that failed during a degraded-mode
// fan-out. It travels alongside the successfully aggregated partial results;
// callers surface it as a warning, never silently drop it.
type ErrPartialFederation struct {
	Failed map[string]error // account ID -> cause
}

func (e *ErrPartialFederation) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	return fmt.Sprintf("federation degraded, %d tenant(s) failed: %s", len(e.Failed), strings.Join(ids, ", "))
}

func NewPartialFederation(failed map[string]error) *ErrPartialFederation {
	return &ErrPartialFederation{Failed: failed}
}

// ErrInsufficientBalance rejects billed operations before any mutation occurs.
type ErrInsufficientBalance struct {
	AccountID string
	Required  int64
}

func (e *ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("account %s balance too low, %d unit(s) required", e.AccountID, e.Required)
}

func NewInsufficientBalance(accountID string, required int64) error {
	return &ErrInsufficientBalance{AccountID: accountID, Required: required}
}

// ErrConflict is a duplicate unique key, e.g. an account name or store name
// collision.
type ErrConflict struct {
	Resource string
	Key      string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("%s with %s already exists", e.Resource, e.Key)
}

func NewConflict(resource, key string) error {
	return &ErrConflict{Resource: resource, Key: key}
}
