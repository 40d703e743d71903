// Package records models the entries the platform clients append to the log store and decodes
// them from their hash representation.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Platform is a social network the bot is active on
type Platform string

const (
	PlatformTwitter  Platform = "twitter"
	PlatformMastodon Platform = "mastodon"
	PlatformDiscord  Platform = "discord"
)

// Platforms lists the social platforms in report order. Ties between platforms resolve in this order.
var Platforms = []Platform{PlatformTwitter, PlatformMastodon, PlatformDiscord}

func (p Platform) String() string {
	return string(p)
}

// Valid reports whether p is one of Platforms
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// Title returns the display form used in report insights ("Twitter")
func (p Platform) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// Hash field names shared by every record kind
const (
	FieldType       = "type"
	FieldPlatform   = "platform"
	FieldCustomerID = "customer_id"
	FieldTimestamp  = "timestamp"
	FieldData       = "data"
)

// PaymentPlatform is the gateway tag written on payment events
const PaymentPlatform = "paypal"

var (
	// ErrEmptyRecord means the index pointed at a hash that no longer exists
	ErrEmptyRecord = errors.New("record is empty")

	// ErrMissingField means a required hash field was absent
	ErrMissingField = errors.New("field is missing")
)

// DecodeError describes why a stored record could not be decoded
type DecodeError struct {
	Key   string
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode record %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("decode record %s: field %s: %v", e.Key, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Payload is the decoded JSON object stored in a record's data field
type Payload map[string]any

// String returns a string-valued field or "" when absent or not a string
func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Has reports whether the field is present
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Amount reads a monetary field written either as a JSON number or a numeric string.
// A missing or null field is zero.
func (p Payload) Amount(key string) (decimal.Decimal, error) {
	switch v := p[key].(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Zero, fmt.Errorf("amount has unsupported type %T", v)
	}
}

// InteractionRecord is a logged social-platform event
type InteractionRecord struct {
	Key       string    `json:"key"`
	Platform  Platform  `json:"platform"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"data"`

	// RawData is the payload exactly as stored, used for free-text matching
	RawData string `json:"-"`
}

// Content returns the free-text body of the interaction, if any
func (r InteractionRecord) Content() string {
	return r.Payload.String("content")
}

// PaymentEvent is a logged payment gateway event
type PaymentEvent struct {
	Key       string    `json:"key"`
	Platform  string    `json:"platform"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"data"`
	RawData   string    `json:"-"`
}

// SalesInteraction is one step of a customer's sales conversation
type SalesInteraction struct {
	Key        string    `json:"key"`
	CustomerID string    `json:"customer_id"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    Payload   `json:"data"`
	RawData    string    `json:"-"`
}

// DecodeInteraction builds an InteractionRecord from its stored hash
func DecodeInteraction(key string, fields map[string]string) (InteractionRecord, error) {
	ts, payload, raw, err := decodeCommon(key, fields)
	if err != nil {
		return InteractionRecord{}, err
	}

	return InteractionRecord{
		Key:       key,
		Platform:  Platform(fields[FieldPlatform]),
		Type:      fields[FieldType],
		Timestamp: ts,
		Payload:   payload,
		RawData:   raw,
	}, nil
}

// DecodePaymentEvent builds a PaymentEvent from its stored hash
func DecodePaymentEvent(key string, fields map[string]string) (PaymentEvent, error) {
	ts, payload, raw, err := decodeCommon(key, fields)
	if err != nil {
		return PaymentEvent{}, err
	}

	return PaymentEvent{
		Key:       key,
		Platform:  fields[FieldPlatform],
		Type:      fields[FieldType],
		Timestamp: ts,
		Payload:   payload,
		RawData:   raw,
	}, nil
}

// DecodeSalesInteraction builds a SalesInteraction from its stored hash
func DecodeSalesInteraction(key string, fields map[string]string) (SalesInteraction, error) {
	ts, payload, raw, err := decodeCommon(key, fields)
	if err != nil {
		return SalesInteraction{}, err
	}

	return SalesInteraction{
		Key:        key,
		CustomerID: fields[FieldCustomerID],
		Type:       fields[FieldType],
		Timestamp:  ts,
		Payload:    payload,
		RawData:    raw,
	}, nil
}

func decodeCommon(key string, fields map[string]string) (time.Time, Payload, string, error) {
	if len(fields) == 0 {
		return time.Time{}, nil, "", &DecodeError{Key: key, Err: ErrEmptyRecord}
	}

	rawTS, ok := fields[FieldTimestamp]
	if !ok {
		return time.Time{}, nil, "", &DecodeError{Key: key, Field: FieldTimestamp, Err: ErrMissingField}
	}

	ts, err := ParseTimestamp(rawTS)
	if err != nil {
		return time.Time{}, nil, "", &DecodeError{Key: key, Field: FieldTimestamp, Err: err}
	}

	raw := fields[FieldData]
	payload, err := DecodePayload(raw)
	if err != nil {
		return time.Time{}, nil, "", &DecodeError{Key: key, Field: FieldData, Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	return ts, payload, raw, nil
}

// DecodePayload parses a JSON object. Numbers are kept as json.Number so amounts keep their precision.
// An empty string or JSON null decodes to an empty payload.
func DecodePayload(raw string) (Payload, error) {
	if strings.TrimSpace(raw) == "" {
		return Payload{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var payload Payload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid payload: trailing data")
	}
	if payload == nil {
		payload = Payload{}
	}

	return payload, nil
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 (Z or numeric offset) and offset-less ISO-8601, which is read as UTC.
// The result is always in UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}

	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// FormatTimestamp is the canonical stored form of a record timestamp
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

// EncodeFields renders a record hash. Exactly one of platform or customerID is normally set.
func EncodeFields(recordType, platform, customerID string, ts time.Time, payload any) (map[string]string, error) {
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	fields := map[string]string{
		FieldType:      recordType,
		FieldTimestamp: FormatTimestamp(ts),
		FieldData:      string(data),
	}
	if platform != "" {
		fields[FieldPlatform] = platform
	}
	if customerID != "" {
		fields[FieldCustomerID] = customerID
	}

	return fields, nil
}
