package bacnet

// BACnet constants
const (
	// BVLC (BACnet/IP Virtual Link Control)
	BVLC_TYPE_BACNET_IP byte = 0x81

	// BVLC Functions
	BVLC_RESULT                            byte = 0x00
	BVLC_WRITE_BROADCAST_DIST_TABLE        byte = 0x01
	BVLC_READ_BROADCAST_DIST_TABLE         byte = 0x02
	BVLC_READ_BROADCAST_DIST_TABLE_ACK     byte = 0x03
	BVLC_FORWARDED_NPDU                    byte = 0x04
	BVLC_REGISTER_FOREIGN_DEVICE           byte = 0x05
	BVLC_READ_FOREIGN_DEVICE_TABLE         byte = 0x06
	BVLC_READ_FOREIGN_DEVICE_TABLE_ACK     byte = 0x07
	BVLC_DELETE_FOREIGN_DEVICE_TABLE_ENTRY byte = 0x08
	BVLC_DISTRIBUTE_BROADCAST_TO_NETWORK   byte = 0x09
	BVLC_ORIGINAL_UNICAST_NPDU             byte = 0x0a
	BVLC_ORIGINAL_BROADCAST_NPDU           byte = 0x0b

	// NPDU (Network Protocol Data Unit) Control Field
	NPDU_CONTROL_NORMAL_MESSAGE        byte = 0x00
	NPDU_CONTROL_EXPECTING_REPLY       byte = 0x04
	NPDU_CONTROL_SOURCE_SPECIFIER      byte = 0x08
	NPDU_CONTROL_DEST_SPECIFIER        byte = 0x20
	NPDU_CONTROL_NETWORK_LAYER_MESSAGE byte = 0x80

	// APDU (Application Protocol Data Unit) Types
	APDU_CONFIRMED_REQUEST   byte = 0x00
	APDU_UNCONFIRMED_REQUEST byte = 0x10
	APDU_SIMPLE_ACK          byte = 0x20
	APDU_COMPLEX_ACK         byte = 0x30
	APDU_SEGMENT_ACK         byte = 0x40
	APDU_ERROR               byte = 0x50
	APDU_REJECT              byte = 0x60
	APDU_ABORT               byte = 0x70

	// APDU header flags
	APDU_FLAG_SEGMENTED     byte = 0x08
	APDU_FLAG_MORE_FOLLOWS  byte = 0x04
	APDU_FLAG_SEGMENTED_ACK byte = 0x02
	APDU_FLAG_SERVER        byte = 0x01

	// Unconfirmed Service Choice
	SERVICE_UNCONFIRMED_I_AM   byte = 0x00
	SERVICE_UNCONFIRMED_WHO_IS byte = 0x08

	// Confirmed Service Choice
	SERVICE_CONFIRMED_READ_PROPERTY          byte = 0x0c
	SERVICE_CONFIRMED_READ_PROPERTY_MULTIPLE byte = 0x0e
	SERVICE_CONFIRMED_WRITE_PROPERTY         byte = 0x0f

	BACNET_DEFAULT_PORT = 47808

	// MaxInstance is the largest object instance number (22 bits).
	MaxInstance uint32 = 0x3FFFFF

	// MaxAPDUAccepted is the largest APDU this client accepts (encoded as 0x05 in requests).
	MaxAPDUAccepted = 1476

	// MinUnsegmentedAPDU is assumed for devices whose I-Am has not been seen.
	MinUnsegmentedAPDU = 480

	// maxFrameSize bounds a BACnet/IP datagram (BVLL + NPDU + 1476 octet APDU).
	maxFrameSize = 1497
)

// Application tag numbers.
const (
	TAG_NULL              byte = 0
	TAG_BOOLEAN           byte = 1
	TAG_UNSIGNED_INT      byte = 2
	TAG_SIGNED_INT        byte = 3
	TAG_REAL              byte = 4
	TAG_DOUBLE            byte = 5
	TAG_OCTET_STRING      byte = 6
	TAG_CHARACTER_STRING  byte = 7
	TAG_BIT_STRING        byte = 8
	TAG_ENUMERATED        byte = 9
	TAG_DATE              byte = 10
	TAG_TIME              byte = 11
	TAG_OBJECT_IDENTIFIER byte = 12
)
