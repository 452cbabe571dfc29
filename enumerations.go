package bacnet

const (
	SEGMENTATION_BOTH     uint32 = 0
	SEGMENTATION_TRANSMIT uint32 = 1
	SEGMENTATION_RECEIVE  uint32 = 2
	SEGMENTATION_NONE     uint32 = 3
)

var SegmentationNames = map[uint32]string{
	SEGMENTATION_BOTH:     "segmented-both",
	SEGMENTATION_TRANSMIT: "segmented-transmit",
	SEGMENTATION_RECEIVE:  "segmented-receive",
	SEGMENTATION_NONE:     "no-segmentation",
}

const (
	BINARY_INACTIVE uint32 = 0
	BINARY_ACTIVE   uint32 = 1
)

var BinaryPVNames = map[uint32]string{
	BINARY_INACTIVE: "inactive",
	BINARY_ACTIVE:   "active",
}

var EventStateNames = map[uint32]string{
	0: "normal",
	1: "fault",
	2: "offnormal",
	3: "high-limit",
	4: "low-limit",
	5: "life-safety-alarm",
}

var ReliabilityNames = map[uint32]string{
	0:  "no-fault-detected",
	1:  "no-sensor",
	2:  "over-range",
	3:  "under-range",
	4:  "open-loop",
	5:  "shorted-loop",
	6:  "no-output",
	7:  "unreliable-other",
	8:  "process-error",
	9:  "multi-state-fault",
	10: "configuration-error",
	12: "communication-failure",
	13: "member-fault",
}

var PolarityNames = map[uint32]string{
	0: "normal",
	1: "reverse",
}

var DeviceStatusNames = map[uint32]string{
	0: "operational",
	1: "operational-read-only",
	2: "download-required",
	3: "download-in-progress",
	4: "non-operational",
	5: "backup-in-progress",
}

var NotifyTypeNames = map[uint32]string{
	0: "alarm",
	1: "event",
	2: "ack-notification",
}

// EngineeringUnitNames covers the units seen on common HVAC points.
var EngineeringUnitNames = map[uint32]string{
	2:  "milliamperes",
	3:  "amperes",
	5:  "volts",
	19: "kilowatt-hours",
	29: "percent-relative-humidity",
	47: "watts",
	48: "kilowatts",
	53: "pascals",
	62: "degrees-celsius",
	63: "degrees-kelvin",
	64: "degrees-fahrenheit",
	71: "hours",
	72: "minutes",
	73: "seconds",
	84: "cubic-feet-per-minute",
	95: "no-units",
	98: "percent",
}

var objectTypeEnumeration = func() map[uint32]string {
	names := make(map[uint32]string, len(ObjectTypeNames))
	for t, name := range ObjectTypeNames {
		names[uint32(t)] = name
	}
	return names
}()

func isBinaryObject(t ObjectType) bool {
	switch t {
	case OBJECT_BINARY_INPUT, OBJECT_BINARY_OUTPUT, OBJECT_BINARY_VALUE:
		return true
	}
	return false
}

func isAnalogObject(t ObjectType) bool {
	switch t {
	case OBJECT_ANALOG_INPUT, OBJECT_ANALOG_OUTPUT, OBJECT_ANALOG_VALUE, OBJECT_LOOP, OBJECT_PULSE_CONVERTER:
		return true
	}
	return false
}

func isMultiStateObject(t ObjectType) bool {
	switch t {
	case OBJECT_MULTI_STATE_INPUT, OBJECT_MULTI_STATE_OUTPUT, OBJECT_MULTI_STATE_VALUE:
		return true
	}
	return false
}

// enumerationNames returns the name table for an enumerated property, or nil.
func enumerationNames(objectType ObjectType, property PropertyIdentifier) map[uint32]string {
	switch property {
	case PROP_OBJECT_TYPE:
		return objectTypeEnumeration
	case PROP_SEGMENTATION_SUPPORTED:
		return SegmentationNames
	case PROP_EVENT_STATE:
		return EventStateNames
	case PROP_RELIABILITY:
		return ReliabilityNames
	case PROP_POLARITY:
		return PolarityNames
	case PROP_SYSTEM_STATUS:
		return DeviceStatusNames
	case PROP_NOTIFY_TYPE:
		return NotifyTypeNames
	case PROP_UNITS, PROP_OUTPUT_UNITS, PROP_CONTROLLED_VARIABLE_UNITS:
		return EngineeringUnitNames
	case PROP_PRESENT_VALUE, PROP_RELINQUISH_DEFAULT, PROP_PRIORITY_ARRAY,
		PROP_ALARM_VALUE, PROP_FEEDBACK_VALUE:
		if isBinaryObject(objectType) {
			return BinaryPVNames
		}
	}
	return nil
}
