package gateway

import (
	"context"
	"errors"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

// Failure categories. Apart from CategoryRequest they match BACnet error
// classes.
const (
	CategoryRequest   = "request"
	CategoryDevice    = "device"
	CategoryObject    = "object"
	CategoryProperty  = "property"
	CategoryResources = "resources"
	CategorySecurity  = "security"
	CategoryServices  = "services"
)

// Causes for requests rejected before they reach the network.
const (
	CauseInvalidDeviceInstance     = "invalid-device-instance"
	CauseInvalidObjectIdentifier   = "invalid-object-identifier"
	CauseInvalidPropertyIdentifier = "invalid-property-identifier"
	CauseInvalidValue              = "invalid-value"
	CauseMissingValue              = "missing-value"
	CausePriorityOutOfRange        = "priority-out-of-range"
	CausePriorityRequired          = "priority-required"
	CauseEmptyBatch                = "empty-batch"
	CauseTooManyItems              = "too-many-items"
	CauseInvalidRange              = "invalid-range"
	CauseInvalidAddress            = "invalid-address"
)

// Failure is a classified outcome rendered as "<category>, <cause>".
type Failure struct {
	Category string
	Cause    string
}

func (f *Failure) Error() string {
	return f.Category + ", " + f.Cause
}

// Malformed reports whether the request was rejected locally.
func (f *Failure) Malformed() bool {
	return f.Category == CategoryRequest
}

func malformed(cause string) *Failure {
	return &Failure{Category: CategoryRequest, Cause: cause}
}

// Classify maps any error produced while serving a request to a Failure.
func Classify(err error) *Failure {
	var (
		failure *Failure
		errPDU  *bacnet.ErrorPDU
		reject  *bacnet.RejectError
		abort   *bacnet.AbortError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &failure):
		return failure
	case errors.As(err, &errPDU):
		return &Failure{Category: errPDU.ClassName(), Cause: errPDU.CodeName()}
	case errors.As(err, &reject):
		return &Failure{Category: CategoryServices, Cause: reject.ReasonName()}
	case errors.As(err, &abort):
		return &Failure{Category: abortCategory(abort.Reason), Cause: abort.ReasonName()}
	case errors.Is(err, bacnet.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &Failure{Category: CategoryDevice, Cause: "no-response"}
	case errors.Is(err, context.Canceled):
		return &Failure{Category: CategoryDevice, Cause: "request-cancelled"}
	case errors.Is(err, bacnet.ErrDeviceNotFound):
		return &Failure{Category: CategoryDevice, Cause: "unknown-device"}
	case errors.Is(err, bacnet.ErrNoInvokeID):
		return &Failure{Category: CategoryResources, Cause: "no-invoke-id-available"}
	case errors.Is(err, bacnet.ErrMalformedReply):
		return &Failure{Category: CategoryDevice, Cause: "malformed-reply"}
	case errors.Is(err, bacnet.ErrInvalidObjectIdentifier):
		return malformed(CauseInvalidObjectIdentifier)
	case errors.Is(err, bacnet.ErrInvalidPropertyIdentifier):
		return malformed(CauseInvalidPropertyIdentifier)
	case errors.Is(err, bacnet.ErrInvalidValue):
		return malformed(CauseInvalidValue)
	}
	// closed client, socket errors and anything unforeseen
	return &Failure{Category: CategoryDevice, Cause: "communication-failure"}
}

func abortCategory(reason byte) string {
	switch reason {
	case bacnet.ABORT_BUFFER_OVERFLOW, bacnet.ABORT_OUT_OF_RESOURCES:
		return CategoryResources
	case bacnet.ABORT_SECURITY_ERROR, bacnet.ABORT_INSUFFICIENT_SECURITY:
		return CategorySecurity
	}
	return CategoryServices
}
