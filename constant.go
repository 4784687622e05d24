package iso8583

import "github.com/pkg/errors"

// DefaultFieldSpecs is the ISO 8583:1987 data element catalog expressed in
// field types. Field 1 is the secondary bitmap and is handled by the codec.
var DefaultFieldSpecs = map[int]FieldSpec{
	2:  {Type: LLVar},               // Primary Account Number (PAN)
	3:  {Type: Numeric, Length: 6},  // Processing Code
	4:  {Type: Amount},              // Amount, Transaction
	5:  {Type: Amount},              // Amount, Settlement
	6:  {Type: Amount},              // Amount, Cardholder Billing
	7:  {Type: Date10},              // Transmission Date & Time (MMDDhhmmss)
	8:  {Type: Numeric, Length: 8},  // Amount, Cardholder Billing Fee
	9:  {Type: Numeric, Length: 8},  // Conversion Rate, Settlement
	10: {Type: Numeric, Length: 8},  // Conversion Rate, Cardholder Billing
	11: {Type: Numeric, Length: 6},  // System Trace Audit Number (STAN)
	12: {Type: Time},                // Time, Local Transaction (hhmmss)
	13: {Type: Date4},               // Date, Local Transaction (MMDD)
	14: {Type: DateExp},             // Date, Expiration
	15: {Type: Date4},               // Date, Settlement
	16: {Type: Date4},               // Date, Conversion
	17: {Type: Date4},               // Date, Capture
	18: {Type: Numeric, Length: 4},  // Merchant Type
	19: {Type: Numeric, Length: 4},  // Acquiring Institution Country Code
	20: {Type: Numeric, Length: 4},  // PAN Extended, Country Code
	21: {Type: Numeric, Length: 3},  // Forwarding Institution Country Code
	22: {Type: Numeric, Length: 3},  // Point of Service Entry Mode
	23: {Type: Numeric, Length: 3},  // Application PAN Sequence Number
	24: {Type: Numeric, Length: 3},  // Function Code (ISO 8583:1993) / Network International Identifier
	25: {Type: Numeric, Length: 2},  // Point of Service Condition Code
	26: {Type: Numeric, Length: 2},  // Point of Service Capture Code
	27: {Type: Numeric, Length: 3},  // Authorizing Identification Response Length
	28: {Type: Numeric, Length: 9},  // Amount, Transaction Fee (X+N 8)
	29: {Type: Numeric, Length: 3},  // Amount, Settlement Fee (X+N 8)
	30: {Type: Numeric, Length: 3},  // Amount, Transaction Processing Fee (X+N 8)
	31: {Type: LLVar},               // Amount, Settlement Processing Fee (X+N 8)
	32: {Type: LLVar},               // Acquiring Institution Identification Code
	33: {Type: LLVar},               // Forwarding Institution Identification Code
	34: {Type: LLVar},               // Primary Account Number, Extended
	35: {Type: LLVar},               // Track 2 Data
	36: {Type: LLVar},               // Track 3 Data
	37: {Type: Alpha, Length: 12},   // Retrieval Reference Number
	38: {Type: Alpha, Length: 6},    // Authorization Identification Response
	39: {Type: Alpha, Length: 2},    // Response Code
	40: {Type: Alpha, Length: 3},    // Service Restriction Code
	41: {Type: Alpha, Length: 8},    // Card Acceptor Terminal Identification
	42: {Type: Alpha, Length: 15},   // Card Acceptor Identification Code
	43: {Type: Alpha, Length: 40},   // Card Acceptor Name/Location
	44: {Type: LLVar},               // Additional Response Data
	45: {Type: LLVar},               // Track 1 Data
	46: {Type: LLLVar},              // Additional Data - ISO
	47: {Type: LLLVar},              // Additional Data - National
	48: {Type: LLLVar},              // Additional Data - Private
	49: {Type: Alpha, Length: 3},    // Currency Code, Transaction
	50: {Type: Alpha, Length: 3},    // Currency Code, Settlement
	51: {Type: Alpha, Length: 3},    // Currency Code, Cardholder Billing
	52: {Type: Binary, Length: 16},  // Personal Identification Number (PIN) Data
	53: {Type: Numeric, Length: 16}, // Security Related Control Information
	54: {Type: LLLVar},              // Additional Amounts
	55: {Type: LLLBin},              // ICC Data (EMV)
	56: {Type: LLLVar},              // Reserved ISO
	57: {Type: LLLVar},              // Reserved National
	58: {Type: LLLVar},              // Reserved National
	59: {Type: LLLVar},              // Reserved National
	60: {Type: LLLVar},              // Reserved Private
	61: {Type: LLLVar},              // Reserved Private
	62: {Type: LLLVar},              // Reserved Private
	63: {Type: LLLVar},              // Reserved Private
	64: {Type: Binary, Length: 8},   // Message Authentication Code (MAC)

	// Secondary bitmap fields

	65:  {Type: Binary, Length: 1},   // Extended Bitmap
	66:  {Type: Numeric, Length: 1},  // Settlement Code
	67:  {Type: Numeric, Length: 2},  // Extended Payment Code
	68:  {Type: Numeric, Length: 3},  // Receiving Institution Country Code
	69:  {Type: Numeric, Length: 3},  // Settlement Institution Country Code
	70:  {Type: Numeric, Length: 3},  // Network Management Information Code
	71:  {Type: Numeric, Length: 4},  // Message Number
	72:  {Type: Numeric, Length: 4},  // Message Number, Last
	73:  {Type: Date6},               // Date, Action (YYMMDD)
	74:  {Type: Numeric, Length: 10}, // Credits, Number
	75:  {Type: Numeric, Length: 10}, // Credits, Reversal Number
	76:  {Type: Numeric, Length: 10}, // Debits, Number
	77:  {Type: Numeric, Length: 10}, // Debits, Reversal Number
	78:  {Type: Numeric, Length: 10}, // Transfer, Number
	79:  {Type: Numeric, Length: 10}, // Transfer, Reversal Number
	80:  {Type: Numeric, Length: 10}, // Inquiries, Number
	81:  {Type: Numeric, Length: 10}, // Authorizations, Number
	82:  {Type: Numeric, Length: 12}, // Credits, Processing Fee Amount
	83:  {Type: Numeric, Length: 12}, // Credits, Transaction Fee Amount
	84:  {Type: Numeric, Length: 12}, // Debits, Processing Fee Amount
	85:  {Type: Numeric, Length: 12}, // Debits, Transaction Fee Amount
	86:  {Type: Numeric, Length: 16}, // Credits, Amount
	87:  {Type: Numeric, Length: 16}, // Credits, Reversal Amount
	88:  {Type: Numeric, Length: 16}, // Debits, Amount
	89:  {Type: Numeric, Length: 16}, // Debits, Reversal Amount
	90:  {Type: Numeric, Length: 42}, // Original Data Elements
	91:  {Type: Alpha, Length: 1},    // File Update Code
	92:  {Type: Alpha, Length: 2},    // File Security Code
	93:  {Type: Alpha, Length: 5},    // Response Indicator
	94:  {Type: Alpha, Length: 7},    // Service Indicator
	95:  {Type: Alpha, Length: 42},   // Replacement Amounts
	96:  {Type: Binary, Length: 8},   // Message Security Code
	97:  {Type: Numeric, Length: 17}, // Amount, Net Settlement (X+N 16)
	98:  {Type: Alpha, Length: 25},   // Payee
	99:  {Type: LLVar},               // Settlement Institution Identification Code
	100: {Type: LLVar},               // Receiving Institution Identification Code
	101: {Type: LLVar},               // File Name
	102: {Type: LLVar},               // Account Identification 1
	103: {Type: LLVar},               // Account Identification 2
	104: {Type: LLLVar},              // Transaction Description
	105: {Type: LLLVar},              // Reserved for ISO Use
	106: {Type: LLLVar},              // Reserved for ISO Use
	107: {Type: LLLVar},              // Reserved for ISO Use
	108: {Type: LLLVar},              // Reserved for ISO Use
	109: {Type: LLLVar},              // Reserved for ISO Use
	110: {Type: LLLVar},              // Reserved for ISO Use
	111: {Type: LLLVar},              // Reserved for ISO Use
	112: {Type: LLLVar},              // Reserved for National Use
	113: {Type: LLLVar},              // Reserved for National Use
	114: {Type: LLLVar},              // Reserved for National Use
	115: {Type: LLLVar},              // Reserved for National Use
	116: {Type: LLLVar},              // Reserved for National Use
	117: {Type: LLLVar},              // Reserved for National Use
	118: {Type: LLLVar},              // Reserved for National Use
	119: {Type: LLLVar},              // Reserved for National Use
	120: {Type: LLLVar},              // Reserved for Private Use
	121: {Type: LLLVar},              // Reserved for Private Use
	122: {Type: LLLVar},              // Reserved for Private Use
	123: {Type: LLLVar},              // Reserved for Private Use
	124: {Type: LLLVar},              // Reserved for Private Use
	125: {Type: LLLVar},              // Reserved for Private Use
	126: {Type: LLLVar},              // Reserved for Private Use
	127: {Type: LLLVar},              // Reserved for Private Use
	128: {Type: Binary, Length: 8},   // Message Authentication Code (MAC)
}

// StandardGuide builds a guide from DefaultFieldSpecs for the given indices.
func StandardGuide(indices ...int) (GuideSpec, error) {
	guide := make(GuideSpec, len(indices))
	for _, i := range indices {
		spec, ok := DefaultFieldSpecs[i]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidGuide, "no standard definition for field %d", i)
		}
		guide[i] = spec
	}
	return guide, nil
}
