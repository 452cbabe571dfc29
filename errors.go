package bacnet

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrTimeout        = errors.New("no response from device")
	ErrDeviceNotFound = errors.New("device not found")
	ErrNoInvokeID     = errors.New("no invoke id available")
	ErrClientClosed   = errors.New("client closed")
	ErrMalformedReply = errors.New("malformed reply")
	ErrCommunication  = errors.New("communication failure")
)

var ErrorClassNames = map[uint32]string{
	0: "device",
	1: "object",
	2: "property",
	3: "resources",
	4: "security",
	5: "services",
	6: "vt",
	7: "communication",
}

var ErrorCodeNames = map[uint32]string{
	0:  "other",
	1:  "authentication-failed",
	2:  "configuration-in-progress",
	3:  "device-busy",
	4:  "dynamic-creation-not-supported",
	5:  "file-access-denied",
	6:  "incompatible-security-levels",
	7:  "inconsistent-parameters",
	8:  "inconsistent-selection-criterion",
	9:  "invalid-data-type",
	10: "invalid-file-access-method",
	11: "invalid-file-start-position",
	12: "invalid-operator-name",
	13: "invalid-parameter-data-type",
	14: "invalid-time-stamp",
	15: "key-generation-error",
	16: "missing-required-parameter",
	17: "no-objects-of-specified-type",
	18: "no-space-for-object",
	19: "no-space-to-add-list-element",
	20: "no-space-to-write-property",
	21: "no-vt-sessions-available",
	22: "property-is-not-a-list",
	23: "object-deletion-not-permitted",
	24: "object-identifier-already-exists",
	25: "operational-problem",
	26: "password-failure",
	27: "read-access-denied",
	28: "security-not-supported",
	29: "service-request-denied",
	30: "timeout",
	31: "unknown-object",
	32: "unknown-property",
	34: "unknown-vt-class",
	35: "unknown-vt-session",
	36: "unsupported-object-type",
	37: "value-out-of-range",
	38: "vt-session-already-closed",
	39: "vt-session-termination-failure",
	40: "write-access-denied",
	41: "character-set-not-supported",
	42: "invalid-array-index",
	43: "cov-subscription-failed",
	44: "not-cov-property",
	45: "optional-functionality-not-supported",
	46: "invalid-configuration-data",
	47: "datatype-not-supported",
	48: "duplicate-name",
	49: "duplicate-object-id",
	50: "property-is-not-an-array",
	70: "unknown-device",
	71: "unknown-route",
	72: "value-not-initialized",
}

var RejectReasonNames = map[byte]string{
	0: "other",
	1: "buffer-overflow",
	2: "inconsistent-parameters",
	3: "invalid-parameter-data-type",
	4: "invalid-tag",
	5: "missing-required-parameter",
	6: "parameter-out-of-range",
	7: "too-many-arguments",
	8: "undefined-enumeration",
	9: "unrecognized-service",
}

const (
	ABORT_OTHER                        byte = 0
	ABORT_BUFFER_OVERFLOW              byte = 1
	ABORT_INVALID_APDU_IN_THIS_STATE   byte = 2
	ABORT_PREEMPTED_BY_HIGHER_PRIORITY byte = 3
	ABORT_SEGMENTATION_NOT_SUPPORTED   byte = 4
	ABORT_SECURITY_ERROR               byte = 5
	ABORT_INSUFFICIENT_SECURITY        byte = 6
	ABORT_WINDOW_SIZE_OUT_OF_RANGE     byte = 7
	ABORT_APPLICATION_EXCEEDED_REPLY   byte = 8
	ABORT_OUT_OF_RESOURCES             byte = 9
	ABORT_TSM_TIMEOUT                  byte = 10
	ABORT_APDU_TOO_LONG                byte = 11
)

var AbortReasonNames = map[byte]string{
	ABORT_OTHER:                        "other",
	ABORT_BUFFER_OVERFLOW:              "buffer-overflow",
	ABORT_INVALID_APDU_IN_THIS_STATE:   "invalid-apdu-in-this-state",
	ABORT_PREEMPTED_BY_HIGHER_PRIORITY: "preempted-by-higher-priority-task",
	ABORT_SEGMENTATION_NOT_SUPPORTED:   "segmentation-not-supported",
	ABORT_SECURITY_ERROR:               "security-error",
	ABORT_INSUFFICIENT_SECURITY:        "insufficient-security",
	ABORT_WINDOW_SIZE_OUT_OF_RANGE:     "window-size-out-of-range",
	ABORT_APPLICATION_EXCEEDED_REPLY:   "application-exceeded-reply-time",
	ABORT_OUT_OF_RESOURCES:             "out-of-resources",
	ABORT_TSM_TIMEOUT:                  "tsm-timeout",
	ABORT_APDU_TOO_LONG:                "apdu-too-long",
}

func lookupName[K comparable](names map[K]string, k K, fallback uint64) string {
	if name, ok := names[k]; ok {
		return name
	}
	return strconv.FormatUint(fallback, 10)
}

// ErrorPDU is a BACnet-Error reply, or a per-property access error inside a
// ReadPropertyMultiple result.
type ErrorPDU struct {
	Service byte
	Class   uint32
	Code    uint32
}

func (e *ErrorPDU) ClassName() string {
	return lookupName(ErrorClassNames, e.Class, uint64(e.Class))
}

func (e *ErrorPDU) CodeName() string {
	return lookupName(ErrorCodeNames, e.Code, uint64(e.Code))
}

func (e *ErrorPDU) Error() string {
	return e.ClassName() + ", " + e.CodeName()
}

// RejectError is a BACnet-Reject-PDU reply.
type RejectError struct {
	Reason byte
}

func (e *RejectError) ReasonName() string {
	return lookupName(RejectReasonNames, e.Reason, uint64(e.Reason))
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("request rejected: %s", e.ReasonName())
}

// AbortError is a BACnet-Abort-PDU. Local is set when this client aborted the
// transaction itself, for example on a segmented reply.
type AbortError struct {
	Reason byte
	Local  bool
}

func (e *AbortError) ReasonName() string {
	return lookupName(AbortReasonNames, e.Reason, uint64(e.Reason))
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("transaction aborted: %s", e.ReasonName())
}
