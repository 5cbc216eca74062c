package chat

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Type-specific message payloads. Each message type carries its own
// metadata struct; DecodeMetadata is the single exhaustive decoder.

// MediaMetadata applies to image, audio and file messages.
type MediaMetadata struct {
	OriginalName string `json:"original_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
}

// LocationMetadata applies to location messages.
type LocationMetadata struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PollMetadata links a poll message to its poll row.
type PollMetadata struct {
	PollID string `json:"poll_id"`
}

// LinkMetadata marks text that was detected to be a bare URL.
type LinkMetadata struct {
	IsLink bool `json:"is_link"`
}

// EncodeMetadata serializes a typed metadata value for storage.
func EncodeMetadata(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeMetadata parses raw metadata according to the message type.
// Types without metadata return nil. The switch is exhaustive over
// MessageType; an unknown type is an error, not a silent passthrough.
func DecodeMetadata(t MessageType, raw datatypes.JSON) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch t {
	case MessageTypeImage, MessageTypeAudio, MessageTypeFile:
		var m MediaMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case MessageTypeLocation:
		var m LocationMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case MessageTypePoll:
		var m PollMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case MessageTypeLink:
		var m LinkMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case MessageTypeText, MessageTypeSystem:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", t)
	}
}
