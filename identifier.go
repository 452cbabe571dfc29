package bacnet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type ObjectType uint16

const (
	OBJECT_ANALOG_INPUT           ObjectType = 0
	OBJECT_ANALOG_OUTPUT          ObjectType = 1
	OBJECT_ANALOG_VALUE           ObjectType = 2
	OBJECT_BINARY_INPUT           ObjectType = 3
	OBJECT_BINARY_OUTPUT          ObjectType = 4
	OBJECT_BINARY_VALUE           ObjectType = 5
	OBJECT_CALENDAR               ObjectType = 6
	OBJECT_COMMAND                ObjectType = 7
	OBJECT_DEVICE                 ObjectType = 8
	OBJECT_EVENT_ENROLLMENT       ObjectType = 9
	OBJECT_FILE                   ObjectType = 10
	OBJECT_GROUP                  ObjectType = 11
	OBJECT_LOOP                   ObjectType = 12
	OBJECT_MULTI_STATE_INPUT      ObjectType = 13
	OBJECT_MULTI_STATE_OUTPUT     ObjectType = 14
	OBJECT_NOTIFICATION_CLASS     ObjectType = 15
	OBJECT_PROGRAM                ObjectType = 16
	OBJECT_SCHEDULE               ObjectType = 17
	OBJECT_AVERAGING              ObjectType = 18
	OBJECT_MULTI_STATE_VALUE      ObjectType = 19
	OBJECT_TREND_LOG              ObjectType = 20
	OBJECT_LIFE_SAFETY_POINT      ObjectType = 21
	OBJECT_LIFE_SAFETY_ZONE       ObjectType = 22
	OBJECT_ACCUMULATOR            ObjectType = 23
	OBJECT_PULSE_CONVERTER        ObjectType = 24
	OBJECT_EVENT_LOG              ObjectType = 25
	OBJECT_GLOBAL_GROUP           ObjectType = 26
	OBJECT_TREND_LOG_MULTIPLE     ObjectType = 27
	OBJECT_LOAD_CONTROL           ObjectType = 28
	OBJECT_STRUCTURED_VIEW        ObjectType = 29
	OBJECT_ACCESS_DOOR            ObjectType = 30
	OBJECT_TIMER                  ObjectType = 31
	OBJECT_ACCESS_CREDENTIAL      ObjectType = 32
	OBJECT_ACCESS_POINT           ObjectType = 33
	OBJECT_ACCESS_RIGHTS          ObjectType = 34
	OBJECT_ACCESS_USER            ObjectType = 35
	OBJECT_ACCESS_ZONE            ObjectType = 36
	OBJECT_CREDENTIAL_DATA_INPUT  ObjectType = 37
	OBJECT_NETWORK_SECURITY       ObjectType = 38
	OBJECT_BITSTRING_VALUE        ObjectType = 39
	OBJECT_CHARACTERSTRING_VALUE  ObjectType = 40
	OBJECT_DATE_PATTERN_VALUE     ObjectType = 41
	OBJECT_DATE_VALUE             ObjectType = 42
	OBJECT_DATETIME_PATTERN_VALUE ObjectType = 43
	OBJECT_DATETIME_VALUE         ObjectType = 44
	OBJECT_INTEGER_VALUE          ObjectType = 45
	OBJECT_LARGE_ANALOG_VALUE     ObjectType = 46
	OBJECT_OCTETSTRING_VALUE      ObjectType = 47
	OBJECT_POSITIVE_INTEGER_VALUE ObjectType = 48
	OBJECT_TIME_PATTERN_VALUE     ObjectType = 49
	OBJECT_TIME_VALUE             ObjectType = 50
	OBJECT_NOTIFICATION_FORWARDER ObjectType = 51
	OBJECT_ALERT_ENROLLMENT       ObjectType = 52
	OBJECT_CHANNEL                ObjectType = 53
	OBJECT_LIGHTING_OUTPUT        ObjectType = 54
	OBJECT_BINARY_LIGHTING_OUTPUT ObjectType = 55
	OBJECT_NETWORK_PORT           ObjectType = 56
	OBJECT_ELEVATOR_GROUP         ObjectType = 57
	OBJECT_ESCALATOR              ObjectType = 58
	OBJECT_LIFT                   ObjectType = 59

	// MaxObjectType is the largest object type a 10-bit identifier field carries.
	MaxObjectType ObjectType = 1023
)

var ObjectTypeNames = map[ObjectType]string{
	OBJECT_ANALOG_INPUT:           "analog-input",
	OBJECT_ANALOG_OUTPUT:          "analog-output",
	OBJECT_ANALOG_VALUE:           "analog-value",
	OBJECT_BINARY_INPUT:           "binary-input",
	OBJECT_BINARY_OUTPUT:          "binary-output",
	OBJECT_BINARY_VALUE:           "binary-value",
	OBJECT_CALENDAR:               "calendar",
	OBJECT_COMMAND:                "command",
	OBJECT_DEVICE:                 "device",
	OBJECT_EVENT_ENROLLMENT:       "event-enrollment",
	OBJECT_FILE:                   "file",
	OBJECT_GROUP:                  "group",
	OBJECT_LOOP:                   "loop",
	OBJECT_MULTI_STATE_INPUT:      "multi-state-input",
	OBJECT_MULTI_STATE_OUTPUT:     "multi-state-output",
	OBJECT_NOTIFICATION_CLASS:     "notification-class",
	OBJECT_PROGRAM:                "program",
	OBJECT_SCHEDULE:               "schedule",
	OBJECT_AVERAGING:              "averaging",
	OBJECT_MULTI_STATE_VALUE:      "multi-state-value",
	OBJECT_TREND_LOG:              "trend-log",
	OBJECT_LIFE_SAFETY_POINT:      "life-safety-point",
	OBJECT_LIFE_SAFETY_ZONE:       "life-safety-zone",
	OBJECT_ACCUMULATOR:            "accumulator",
	OBJECT_PULSE_CONVERTER:        "pulse-converter",
	OBJECT_EVENT_LOG:              "event-log",
	OBJECT_GLOBAL_GROUP:           "global-group",
	OBJECT_TREND_LOG_MULTIPLE:     "trend-log-multiple",
	OBJECT_LOAD_CONTROL:           "load-control",
	OBJECT_STRUCTURED_VIEW:        "structured-view",
	OBJECT_ACCESS_DOOR:            "access-door",
	OBJECT_TIMER:                  "timer",
	OBJECT_ACCESS_CREDENTIAL:      "access-credential",
	OBJECT_ACCESS_POINT:           "access-point",
	OBJECT_ACCESS_RIGHTS:          "access-rights",
	OBJECT_ACCESS_USER:            "access-user",
	OBJECT_ACCESS_ZONE:            "access-zone",
	OBJECT_CREDENTIAL_DATA_INPUT:  "credential-data-input",
	OBJECT_NETWORK_SECURITY:       "network-security",
	OBJECT_BITSTRING_VALUE:        "bitstring-value",
	OBJECT_CHARACTERSTRING_VALUE:  "characterstring-value",
	OBJECT_DATE_PATTERN_VALUE:     "date-pattern-value",
	OBJECT_DATE_VALUE:             "date-value",
	OBJECT_DATETIME_PATTERN_VALUE: "datetime-pattern-value",
	OBJECT_DATETIME_VALUE:         "datetime-value",
	OBJECT_INTEGER_VALUE:          "integer-value",
	OBJECT_LARGE_ANALOG_VALUE:     "large-analog-value",
	OBJECT_OCTETSTRING_VALUE:      "octetstring-value",
	OBJECT_POSITIVE_INTEGER_VALUE: "positive-integer-value",
	OBJECT_TIME_PATTERN_VALUE:     "time-pattern-value",
	OBJECT_TIME_VALUE:             "time-value",
	OBJECT_NOTIFICATION_FORWARDER: "notification-forwarder",
	OBJECT_ALERT_ENROLLMENT:       "alert-enrollment",
	OBJECT_CHANNEL:                "channel",
	OBJECT_LIGHTING_OUTPUT:        "lighting-output",
	OBJECT_BINARY_LIGHTING_OUTPUT: "binary-lighting-output",
	OBJECT_NETWORK_PORT:           "network-port",
	OBJECT_ELEVATOR_GROUP:         "elevator-group",
	OBJECT_ESCALATOR:              "escalator",
	OBJECT_LIFT:                   "lift",
}

var objectTypesByName = invert(ObjectTypeNames)

// String returns the standard name, or the number for vendor types.
func (t ObjectType) String() string {
	if name, ok := ObjectTypeNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

type PropertyIdentifier uint32

const (
	PROP_ACKED_TRANSITIONS               PropertyIdentifier = 0
	PROP_ACK_REQUIRED                    PropertyIdentifier = 1
	PROP_ACTION                          PropertyIdentifier = 2
	PROP_ACTION_TEXT                     PropertyIdentifier = 3
	PROP_ACTIVE_TEXT                     PropertyIdentifier = 4
	PROP_ACTIVE_VT_SESSIONS              PropertyIdentifier = 5
	PROP_ALARM_VALUE                     PropertyIdentifier = 6
	PROP_ALARM_VALUES                    PropertyIdentifier = 7
	PROP_ALL                             PropertyIdentifier = 8
	PROP_ALL_WRITES_SUCCESSFUL           PropertyIdentifier = 9
	PROP_APDU_SEGMENT_TIMEOUT            PropertyIdentifier = 10
	PROP_APDU_TIMEOUT                    PropertyIdentifier = 11
	PROP_APPLICATION_SOFTWARE_VERSION    PropertyIdentifier = 12
	PROP_ARCHIVE                         PropertyIdentifier = 13
	PROP_BIAS                            PropertyIdentifier = 14
	PROP_CHANGE_OF_STATE_COUNT           PropertyIdentifier = 15
	PROP_CHANGE_OF_STATE_TIME            PropertyIdentifier = 16
	PROP_NOTIFICATION_CLASS              PropertyIdentifier = 17
	PROP_CONTROLLED_VARIABLE_REFERENCE   PropertyIdentifier = 19
	PROP_CONTROLLED_VARIABLE_UNITS       PropertyIdentifier = 20
	PROP_CONTROLLED_VARIABLE_VALUE       PropertyIdentifier = 21
	PROP_COV_INCREMENT                   PropertyIdentifier = 22
	PROP_DATE_LIST                       PropertyIdentifier = 23
	PROP_DAYLIGHT_SAVINGS_STATUS         PropertyIdentifier = 24
	PROP_DEADBAND                        PropertyIdentifier = 25
	PROP_DERIVATIVE_CONSTANT             PropertyIdentifier = 26
	PROP_DERIVATIVE_CONSTANT_UNITS       PropertyIdentifier = 27
	PROP_DESCRIPTION                     PropertyIdentifier = 28
	PROP_DESCRIPTION_OF_HALT             PropertyIdentifier = 29
	PROP_DEVICE_ADDRESS_BINDING          PropertyIdentifier = 30
	PROP_DEVICE_TYPE                     PropertyIdentifier = 31
	PROP_EFFECTIVE_PERIOD                PropertyIdentifier = 32
	PROP_ELAPSED_ACTIVE_TIME             PropertyIdentifier = 33
	PROP_ERROR_LIMIT                     PropertyIdentifier = 34
	PROP_EVENT_ENABLE                    PropertyIdentifier = 35
	PROP_EVENT_STATE                     PropertyIdentifier = 36
	PROP_EVENT_TYPE                      PropertyIdentifier = 37
	PROP_EXCEPTION_SCHEDULE              PropertyIdentifier = 38
	PROP_FAULT_VALUES                    PropertyIdentifier = 39
	PROP_FEEDBACK_VALUE                  PropertyIdentifier = 40
	PROP_FILE_ACCESS_METHOD              PropertyIdentifier = 41
	PROP_FILE_SIZE                       PropertyIdentifier = 42
	PROP_FILE_TYPE                       PropertyIdentifier = 43
	PROP_FIRMWARE_REVISION               PropertyIdentifier = 44
	PROP_HIGH_LIMIT                      PropertyIdentifier = 45
	PROP_INACTIVE_TEXT                   PropertyIdentifier = 46
	PROP_IN_PROCESS                      PropertyIdentifier = 47
	PROP_INSTANCE_OF                     PropertyIdentifier = 48
	PROP_INTEGRAL_CONSTANT               PropertyIdentifier = 49
	PROP_INTEGRAL_CONSTANT_UNITS         PropertyIdentifier = 50
	PROP_LIMIT_ENABLE                    PropertyIdentifier = 52
	PROP_LIST_OF_GROUP_MEMBERS           PropertyIdentifier = 53
	PROP_LIST_OF_OBJECT_PROPERTY_REFS    PropertyIdentifier = 54
	PROP_LOCAL_DATE                      PropertyIdentifier = 56
	PROP_LOCAL_TIME                      PropertyIdentifier = 57
	PROP_LOCATION                        PropertyIdentifier = 58
	PROP_LOW_LIMIT                       PropertyIdentifier = 59
	PROP_MANIPULATED_VARIABLE_REFERENCE  PropertyIdentifier = 60
	PROP_MAXIMUM_OUTPUT                  PropertyIdentifier = 61
	PROP_MAX_APDU_LENGTH_ACCEPTED        PropertyIdentifier = 62
	PROP_MAX_INFO_FRAMES                 PropertyIdentifier = 63
	PROP_MAX_MASTER                      PropertyIdentifier = 64
	PROP_MAX_PRES_VALUE                  PropertyIdentifier = 65
	PROP_MINIMUM_OFF_TIME                PropertyIdentifier = 66
	PROP_MINIMUM_ON_TIME                 PropertyIdentifier = 67
	PROP_MINIMUM_OUTPUT                  PropertyIdentifier = 68
	PROP_MIN_PRES_VALUE                  PropertyIdentifier = 69
	PROP_MODEL_NAME                      PropertyIdentifier = 70
	PROP_MODIFICATION_DATE               PropertyIdentifier = 71
	PROP_NOTIFY_TYPE                     PropertyIdentifier = 72
	PROP_NUMBER_OF_APDU_RETRIES          PropertyIdentifier = 73
	PROP_NUMBER_OF_STATES                PropertyIdentifier = 74
	PROP_OBJECT_IDENTIFIER               PropertyIdentifier = 75
	PROP_OBJECT_LIST                     PropertyIdentifier = 76
	PROP_OBJECT_NAME                     PropertyIdentifier = 77
	PROP_OBJECT_PROPERTY_REFERENCE       PropertyIdentifier = 78
	PROP_OBJECT_TYPE                     PropertyIdentifier = 79
	PROP_OPTIONAL                        PropertyIdentifier = 80
	PROP_OUT_OF_SERVICE                  PropertyIdentifier = 81
	PROP_OUTPUT_UNITS                    PropertyIdentifier = 82
	PROP_EVENT_PARAMETERS                PropertyIdentifier = 83
	PROP_POLARITY                        PropertyIdentifier = 84
	PROP_PRESENT_VALUE                   PropertyIdentifier = 85
	PROP_PRIORITY                        PropertyIdentifier = 86
	PROP_PRIORITY_ARRAY                  PropertyIdentifier = 87
	PROP_PRIORITY_FOR_WRITING            PropertyIdentifier = 88
	PROP_PROCESS_IDENTIFIER              PropertyIdentifier = 89
	PROP_PROGRAM_CHANGE                  PropertyIdentifier = 90
	PROP_PROGRAM_LOCATION                PropertyIdentifier = 91
	PROP_PROGRAM_STATE                   PropertyIdentifier = 92
	PROP_PROPORTIONAL_CONSTANT           PropertyIdentifier = 93
	PROP_PROPORTIONAL_CONSTANT_UNITS     PropertyIdentifier = 94
	PROP_PROTOCOL_OBJECT_TYPES_SUPPORTED PropertyIdentifier = 96
	PROP_PROTOCOL_SERVICES_SUPPORTED     PropertyIdentifier = 97
	PROP_PROTOCOL_VERSION                PropertyIdentifier = 98
	PROP_READ_ONLY                       PropertyIdentifier = 99
	PROP_REASON_FOR_HALT                 PropertyIdentifier = 100
	PROP_RECIPIENT_LIST                  PropertyIdentifier = 102
	PROP_RELIABILITY                     PropertyIdentifier = 103
	PROP_RELINQUISH_DEFAULT              PropertyIdentifier = 104
	PROP_REQUIRED                        PropertyIdentifier = 105
	PROP_RESOLUTION                      PropertyIdentifier = 106
	PROP_SEGMENTATION_SUPPORTED          PropertyIdentifier = 107
	PROP_SETPOINT                        PropertyIdentifier = 108
	PROP_SETPOINT_REFERENCE              PropertyIdentifier = 109
	PROP_STATE_TEXT                      PropertyIdentifier = 110
	PROP_STATUS_FLAGS                    PropertyIdentifier = 111
	PROP_SYSTEM_STATUS                   PropertyIdentifier = 112
	PROP_TIME_DELAY                      PropertyIdentifier = 113
	PROP_TIME_OF_ACTIVE_TIME_RESET       PropertyIdentifier = 114
	PROP_TIME_OF_STATE_COUNT_RESET       PropertyIdentifier = 115
	PROP_TIME_SYNCHRONIZATION_RECIPIENTS PropertyIdentifier = 116
	PROP_UNITS                           PropertyIdentifier = 117
	PROP_UPDATE_INTERVAL                 PropertyIdentifier = 118
	PROP_UTC_OFFSET                      PropertyIdentifier = 119
	PROP_VENDOR_IDENTIFIER               PropertyIdentifier = 120
	PROP_VENDOR_NAME                     PropertyIdentifier = 121
	PROP_VT_CLASSES_SUPPORTED            PropertyIdentifier = 122
	PROP_WEEKLY_SCHEDULE                 PropertyIdentifier = 123
	PROP_ATTEMPTED_SAMPLES               PropertyIdentifier = 124
	PROP_AVERAGE_VALUE                   PropertyIdentifier = 125
	PROP_BUFFER_SIZE                     PropertyIdentifier = 126
	PROP_CLIENT_COV_INCREMENT            PropertyIdentifier = 127
	PROP_COV_RESUBSCRIPTION_INTERVAL     PropertyIdentifier = 128
	PROP_EVENT_TIME_STAMPS               PropertyIdentifier = 130
	PROP_LOG_BUFFER                      PropertyIdentifier = 131
	PROP_LOG_DEVICE_OBJECT_PROPERTY      PropertyIdentifier = 132
	PROP_ENABLE                          PropertyIdentifier = 133
	PROP_LOG_INTERVAL                    PropertyIdentifier = 134
	PROP_MAXIMUM_VALUE                   PropertyIdentifier = 135
	PROP_MINIMUM_VALUE                   PropertyIdentifier = 136
	PROP_NOTIFICATION_THRESHOLD          PropertyIdentifier = 137
	PROP_PROTOCOL_REVISION               PropertyIdentifier = 139
	PROP_RECORDS_SINCE_NOTIFICATION      PropertyIdentifier = 140
	PROP_RECORD_COUNT                    PropertyIdentifier = 141
	PROP_START_TIME                      PropertyIdentifier = 142
	PROP_STOP_TIME                       PropertyIdentifier = 143
	PROP_STOP_WHEN_FULL                  PropertyIdentifier = 144
	PROP_TOTAL_RECORD_COUNT              PropertyIdentifier = 145
	PROP_VALID_SAMPLES                   PropertyIdentifier = 146
	PROP_WINDOW_INTERVAL                 PropertyIdentifier = 147
	PROP_WINDOW_SAMPLES                  PropertyIdentifier = 148
	PROP_MAXIMUM_VALUE_TIMESTAMP         PropertyIdentifier = 149
	PROP_MINIMUM_VALUE_TIMESTAMP         PropertyIdentifier = 150
	PROP_VARIANCE_VALUE                  PropertyIdentifier = 151
	PROP_ACTIVE_COV_SUBSCRIPTIONS        PropertyIdentifier = 152
	PROP_BACKUP_FAILURE_TIMEOUT          PropertyIdentifier = 153
	PROP_CONFIGURATION_FILES             PropertyIdentifier = 154
	PROP_DATABASE_REVISION               PropertyIdentifier = 155
	PROP_DIRECT_READING                  PropertyIdentifier = 156
	PROP_LAST_RESTORE_TIME               PropertyIdentifier = 157
	PROP_MAINTENANCE_REQUIRED            PropertyIdentifier = 158
	PROP_MEMBER_OF                       PropertyIdentifier = 159
	PROP_MODE                            PropertyIdentifier = 160
	PROP_OPERATION_EXPECTED              PropertyIdentifier = 161
	PROP_SETTING                         PropertyIdentifier = 162
	PROP_SILENCED                        PropertyIdentifier = 163
	PROP_TRACKING_VALUE                  PropertyIdentifier = 164
	PROP_ZONE_MEMBERS                    PropertyIdentifier = 165
	PROP_LIFE_SAFETY_ALARM_VALUES        PropertyIdentifier = 166
	PROP_MAX_SEGMENTS_ACCEPTED           PropertyIdentifier = 167
	PROP_PROFILE_NAME                    PropertyIdentifier = 168
	PROP_PROPERTY_LIST                   PropertyIdentifier = 371

	// MaxPropertyIdentifier is the largest value a property identifier field carries.
	MaxPropertyIdentifier PropertyIdentifier = 4194303
)

var PropertyNames = map[PropertyIdentifier]string{
	PROP_ACKED_TRANSITIONS:               "acked-transitions",
	PROP_ACK_REQUIRED:                    "ack-required",
	PROP_ACTION:                          "action",
	PROP_ACTION_TEXT:                     "action-text",
	PROP_ACTIVE_TEXT:                     "active-text",
	PROP_ACTIVE_VT_SESSIONS:              "active-vt-sessions",
	PROP_ALARM_VALUE:                     "alarm-value",
	PROP_ALARM_VALUES:                    "alarm-values",
	PROP_ALL:                             "all",
	PROP_ALL_WRITES_SUCCESSFUL:           "all-writes-successful",
	PROP_APDU_SEGMENT_TIMEOUT:            "apdu-segment-timeout",
	PROP_APDU_TIMEOUT:                    "apdu-timeout",
	PROP_APPLICATION_SOFTWARE_VERSION:    "application-software-version",
	PROP_ARCHIVE:                         "archive",
	PROP_BIAS:                            "bias",
	PROP_CHANGE_OF_STATE_COUNT:           "change-of-state-count",
	PROP_CHANGE_OF_STATE_TIME:            "change-of-state-time",
	PROP_NOTIFICATION_CLASS:              "notification-class",
	PROP_CONTROLLED_VARIABLE_REFERENCE:   "controlled-variable-reference",
	PROP_CONTROLLED_VARIABLE_UNITS:       "controlled-variable-units",
	PROP_CONTROLLED_VARIABLE_VALUE:       "controlled-variable-value",
	PROP_COV_INCREMENT:                   "cov-increment",
	PROP_DATE_LIST:                       "date-list",
	PROP_DAYLIGHT_SAVINGS_STATUS:         "daylight-savings-status",
	PROP_DEADBAND:                        "deadband",
	PROP_DERIVATIVE_CONSTANT:             "derivative-constant",
	PROP_DERIVATIVE_CONSTANT_UNITS:       "derivative-constant-units",
	PROP_DESCRIPTION:                     "description",
	PROP_DESCRIPTION_OF_HALT:             "description-of-halt",
	PROP_DEVICE_ADDRESS_BINDING:          "device-address-binding",
	PROP_DEVICE_TYPE:                     "device-type",
	PROP_EFFECTIVE_PERIOD:                "effective-period",
	PROP_ELAPSED_ACTIVE_TIME:             "elapsed-active-time",
	PROP_ERROR_LIMIT:                     "error-limit",
	PROP_EVENT_ENABLE:                    "event-enable",
	PROP_EVENT_STATE:                     "event-state",
	PROP_EVENT_TYPE:                      "event-type",
	PROP_EXCEPTION_SCHEDULE:              "exception-schedule",
	PROP_FAULT_VALUES:                    "fault-values",
	PROP_FEEDBACK_VALUE:                  "feedback-value",
	PROP_FILE_ACCESS_METHOD:              "file-access-method",
	PROP_FILE_SIZE:                       "file-size",
	PROP_FILE_TYPE:                       "file-type",
	PROP_FIRMWARE_REVISION:               "firmware-revision",
	PROP_HIGH_LIMIT:                      "high-limit",
	PROP_INACTIVE_TEXT:                   "inactive-text",
	PROP_IN_PROCESS:                      "in-process",
	PROP_INSTANCE_OF:                     "instance-of",
	PROP_INTEGRAL_CONSTANT:               "integral-constant",
	PROP_INTEGRAL_CONSTANT_UNITS:         "integral-constant-units",
	PROP_LIMIT_ENABLE:                    "limit-enable",
	PROP_LIST_OF_GROUP_MEMBERS:           "list-of-group-members",
	PROP_LIST_OF_OBJECT_PROPERTY_REFS:    "list-of-object-property-references",
	PROP_LOCAL_DATE:                      "local-date",
	PROP_LOCAL_TIME:                      "local-time",
	PROP_LOCATION:                        "location",
	PROP_LOW_LIMIT:                       "low-limit",
	PROP_MANIPULATED_VARIABLE_REFERENCE:  "manipulated-variable-reference",
	PROP_MAXIMUM_OUTPUT:                  "maximum-output",
	PROP_MAX_APDU_LENGTH_ACCEPTED:        "max-apdu-length-accepted",
	PROP_MAX_INFO_FRAMES:                 "max-info-frames",
	PROP_MAX_MASTER:                      "max-master",
	PROP_MAX_PRES_VALUE:                  "max-pres-value",
	PROP_MINIMUM_OFF_TIME:                "minimum-off-time",
	PROP_MINIMUM_ON_TIME:                 "minimum-on-time",
	PROP_MINIMUM_OUTPUT:                  "minimum-output",
	PROP_MIN_PRES_VALUE:                  "min-pres-value",
	PROP_MODEL_NAME:                      "model-name",
	PROP_MODIFICATION_DATE:               "modification-date",
	PROP_NOTIFY_TYPE:                     "notify-type",
	PROP_NUMBER_OF_APDU_RETRIES:          "number-of-apdu-retries",
	PROP_NUMBER_OF_STATES:                "number-of-states",
	PROP_OBJECT_IDENTIFIER:               "object-identifier",
	PROP_OBJECT_LIST:                     "object-list",
	PROP_OBJECT_NAME:                     "object-name",
	PROP_OBJECT_PROPERTY_REFERENCE:       "object-property-reference",
	PROP_OBJECT_TYPE:                     "object-type",
	PROP_OPTIONAL:                        "optional",
	PROP_OUT_OF_SERVICE:                  "out-of-service",
	PROP_OUTPUT_UNITS:                    "output-units",
	PROP_EVENT_PARAMETERS:                "event-parameters",
	PROP_POLARITY:                        "polarity",
	PROP_PRESENT_VALUE:                   "present-value",
	PROP_PRIORITY:                        "priority",
	PROP_PRIORITY_ARRAY:                  "priority-array",
	PROP_PRIORITY_FOR_WRITING:            "priority-for-writing",
	PROP_PROCESS_IDENTIFIER:              "process-identifier",
	PROP_PROGRAM_CHANGE:                  "program-change",
	PROP_PROGRAM_LOCATION:                "program-location",
	PROP_PROGRAM_STATE:                   "program-state",
	PROP_PROPORTIONAL_CONSTANT:           "proportional-constant",
	PROP_PROPORTIONAL_CONSTANT_UNITS:     "proportional-constant-units",
	PROP_PROTOCOL_OBJECT_TYPES_SUPPORTED: "protocol-object-types-supported",
	PROP_PROTOCOL_SERVICES_SUPPORTED:     "protocol-services-supported",
	PROP_PROTOCOL_VERSION:                "protocol-version",
	PROP_READ_ONLY:                       "read-only",
	PROP_REASON_FOR_HALT:                 "reason-for-halt",
	PROP_RECIPIENT_LIST:                  "recipient-list",
	PROP_RELIABILITY:                     "reliability",
	PROP_RELINQUISH_DEFAULT:              "relinquish-default",
	PROP_REQUIRED:                        "required",
	PROP_RESOLUTION:                      "resolution",
	PROP_SEGMENTATION_SUPPORTED:          "segmentation-supported",
	PROP_SETPOINT:                        "setpoint",
	PROP_SETPOINT_REFERENCE:              "setpoint-reference",
	PROP_STATE_TEXT:                      "state-text",
	PROP_STATUS_FLAGS:                    "status-flags",
	PROP_SYSTEM_STATUS:                   "system-status",
	PROP_TIME_DELAY:                      "time-delay",
	PROP_TIME_OF_ACTIVE_TIME_RESET:       "time-of-active-time-reset",
	PROP_TIME_OF_STATE_COUNT_RESET:       "time-of-state-count-reset",
	PROP_TIME_SYNCHRONIZATION_RECIPIENTS: "time-synchronization-recipients",
	PROP_UNITS:                           "units",
	PROP_UPDATE_INTERVAL:                 "update-interval",
	PROP_UTC_OFFSET:                      "utc-offset",
	PROP_VENDOR_IDENTIFIER:               "vendor-identifier",
	PROP_VENDOR_NAME:                     "vendor-name",
	PROP_VT_CLASSES_SUPPORTED:            "vt-classes-supported",
	PROP_WEEKLY_SCHEDULE:                 "weekly-schedule",
	PROP_ATTEMPTED_SAMPLES:               "attempted-samples",
	PROP_AVERAGE_VALUE:                   "average-value",
	PROP_BUFFER_SIZE:                     "buffer-size",
	PROP_CLIENT_COV_INCREMENT:            "client-cov-increment",
	PROP_COV_RESUBSCRIPTION_INTERVAL:     "cov-resubscription-interval",
	PROP_EVENT_TIME_STAMPS:               "event-time-stamps",
	PROP_LOG_BUFFER:                      "log-buffer",
	PROP_LOG_DEVICE_OBJECT_PROPERTY:      "log-device-object-property",
	PROP_ENABLE:                          "enable",
	PROP_LOG_INTERVAL:                    "log-interval",
	PROP_MAXIMUM_VALUE:                   "maximum-value",
	PROP_MINIMUM_VALUE:                   "minimum-value",
	PROP_NOTIFICATION_THRESHOLD:          "notification-threshold",
	PROP_PROTOCOL_REVISION:               "protocol-revision",
	PROP_RECORDS_SINCE_NOTIFICATION:      "records-since-notification",
	PROP_RECORD_COUNT:                    "record-count",
	PROP_START_TIME:                      "start-time",
	PROP_STOP_TIME:                       "stop-time",
	PROP_STOP_WHEN_FULL:                  "stop-when-full",
	PROP_TOTAL_RECORD_COUNT:              "total-record-count",
	PROP_VALID_SAMPLES:                   "valid-samples",
	PROP_WINDOW_INTERVAL:                 "window-interval",
	PROP_WINDOW_SAMPLES:                  "window-samples",
	PROP_MAXIMUM_VALUE_TIMESTAMP:         "maximum-value-timestamp",
	PROP_MINIMUM_VALUE_TIMESTAMP:         "minimum-value-timestamp",
	PROP_VARIANCE_VALUE:                  "variance-value",
	PROP_ACTIVE_COV_SUBSCRIPTIONS:        "active-cov-subscriptions",
	PROP_BACKUP_FAILURE_TIMEOUT:          "backup-failure-timeout",
	PROP_CONFIGURATION_FILES:             "configuration-files",
	PROP_DATABASE_REVISION:               "database-revision",
	PROP_DIRECT_READING:                  "direct-reading",
	PROP_LAST_RESTORE_TIME:               "last-restore-time",
	PROP_MAINTENANCE_REQUIRED:            "maintenance-required",
	PROP_MEMBER_OF:                       "member-of",
	PROP_MODE:                            "mode",
	PROP_OPERATION_EXPECTED:              "operation-expected",
	PROP_SETTING:                         "setting",
	PROP_SILENCED:                        "silenced",
	PROP_TRACKING_VALUE:                  "tracking-value",
	PROP_ZONE_MEMBERS:                    "zone-members",
	PROP_LIFE_SAFETY_ALARM_VALUES:        "life-safety-alarm-values",
	PROP_MAX_SEGMENTS_ACCEPTED:           "max-segments-accepted",
	PROP_PROFILE_NAME:                    "profile-name",
	PROP_PROPERTY_LIST:                   "property-list",
}

var propertiesByName = invert(PropertyNames)

func (p PropertyIdentifier) String() string {
	if name, ok := PropertyNames[p]; ok {
		return name
	}
	return strconv.FormatUint(uint64(p), 10)
}

// IsSpecial reports whether p names a group of properties rather than one property.
func (p PropertyIdentifier) IsSpecial() bool {
	return p == PROP_ALL || p == PROP_REQUIRED || p == PROP_OPTIONAL
}

var (
	ErrInvalidObjectIdentifier   = errors.New("invalid object identifier")
	ErrInvalidPropertyIdentifier = errors.New("invalid property identifier")
)

// ObjectIdentifier names one object inside a device.
type ObjectIdentifier struct {
	Type     ObjectType
	Instance uint32
}

// ParseObjectIdentifier accepts "type,instance" where type is a standard name or
// a number and instance fits in 22 bits.
func ParseObjectIdentifier(s string) (ObjectIdentifier, error) {
	typePart, instancePart, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return ObjectIdentifier{}, fmt.Errorf("%w: %q", ErrInvalidObjectIdentifier, s)
	}

	objectType, err := ParseObjectType(typePart)
	if err != nil {
		return ObjectIdentifier{}, err
	}

	instance, err := strconv.ParseUint(strings.TrimSpace(instancePart), 10, 32)
	if err != nil || uint32(instance) > MaxInstance {
		return ObjectIdentifier{}, fmt.Errorf("%w: instance %q", ErrInvalidObjectIdentifier, instancePart)
	}

	return ObjectIdentifier{Type: objectType, Instance: uint32(instance)}, nil
}

// ParseObjectType resolves a standard object type name or a numeric type.
func ParseObjectType(s string) (ObjectType, error) {
	s = strings.TrimSpace(s)
	if t, ok := objectTypesByName[s]; ok {
		return t, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || ObjectType(n) > MaxObjectType {
		return 0, fmt.Errorf("%w: unknown object type %q", ErrInvalidObjectIdentifier, s)
	}
	return ObjectType(n), nil
}

func (o ObjectIdentifier) String() string {
	return o.Type.String() + "," + strconv.FormatUint(uint64(o.Instance), 10)
}

func (o ObjectIdentifier) encode() uint32 {
	return uint32(o.Type)<<22 | o.Instance&MaxInstance
}

func decodeObjectIdentifier(v uint32) ObjectIdentifier {
	return ObjectIdentifier{Type: ObjectType(v >> 22), Instance: v & MaxInstance}
}

// PropertyReference is a property identifier with an optional array index.
type PropertyReference struct {
	Property PropertyIdentifier
	Index    *uint32
}

// ParsePropertyReference accepts "name", "number", "name[index]" or "number[index]".
func ParsePropertyReference(s string) (PropertyReference, error) {
	s = strings.TrimSpace(s)
	name := s
	var index *uint32

	if open := strings.IndexByte(s, '['); open >= 0 {
		if !strings.HasSuffix(s, "]") {
			return PropertyReference{}, fmt.Errorf("%w: %q", ErrInvalidPropertyIdentifier, s)
		}
		n, err := strconv.ParseUint(s[open+1:len(s)-1], 10, 32)
		if err != nil {
			return PropertyReference{}, fmt.Errorf("%w: array index in %q", ErrInvalidPropertyIdentifier, s)
		}
		i := uint32(n)
		index = &i
		name = s[:open]
	}

	if p, ok := propertiesByName[name]; ok {
		return PropertyReference{Property: p, Index: index}, nil
	}
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil || PropertyIdentifier(n) > MaxPropertyIdentifier {
		return PropertyReference{}, fmt.Errorf("%w: unknown property %q", ErrInvalidPropertyIdentifier, name)
	}
	return PropertyReference{Property: PropertyIdentifier(n), Index: index}, nil
}

func (r PropertyReference) String() string {
	if r.Index == nil {
		return r.Property.String()
	}
	return fmt.Sprintf("%s[%d]", r.Property, *r.Index)
}

func (r PropertyReference) equal(other PropertyReference) bool {
	if r.Property != other.Property {
		return false
	}
	if r.Index == nil || other.Index == nil {
		return r.Index == nil && other.Index == nil
	}
	return *r.Index == *other.Index
}

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
