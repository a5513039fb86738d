package model

import (
	"encoding/json"
	"fmt"
)

// -----------------------------------------------------------------------------
// List Types
// -----------------------------------------------------------------------------

// Item is a single entry on the shared list, as the UI knows it.
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SectionID   int64  `json:"section_id"`
	Completed   bool   `json:"completed"`
	Uncertain   bool   `json:"uncertain"`
}

// MobileActionTarget is the item currently targeted by the quick-action menu.
type MobileActionTarget struct {
	ID          int64
	Name        string
	Description string
	SectionID   int64
	Uncertain   bool
}

// NewMobileActionTarget copies the fields of an item the quick-action menu needs.
func NewMobileActionTarget(item Item) *MobileActionTarget {
	return &MobileActionTarget{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		SectionID:   item.SectionID,
		Uncertain:   item.Uncertain,
	}
}

// EditingItem is the item being edited plus its buffered form fields.
// Name and Description are decoupled from Item until submit.
type EditingItem struct {
	Item        Item
	Name        string
	Description string
}

// StatsSummary is the completion summary shown in the header.
type StatsSummary struct {
	TotalItems     int `json:"total_items"`
	CompletedItems int `json:"completed_items"`
	Percentage     int `json:"percentage"` // 0-100
}

// -----------------------------------------------------------------------------
// Preferences
// -----------------------------------------------------------------------------

// MobileHelper is the client display mode for the mobile helper widget.
type MobileHelper string

const (
	MobileHelperButton   MobileHelper = "button"
	MobileHelperProgress MobileHelper = "progress"
)

// ParseMobileHelper validates a raw preference value.
func ParseMobileHelper(s string) (MobileHelper, error) {
	switch MobileHelper(s) {
	case MobileHelperButton, MobileHelperProgress:
		return MobileHelper(s), nil
	}
	return "", fmt.Errorf("invalid mobile_helper value %q", s)
}

// Preferences mirrors the server's preferences record.
type Preferences struct {
	MobileHelper MobileHelper `json:"mobile_helper"`
}

// -----------------------------------------------------------------------------
// Realtime Messages
// -----------------------------------------------------------------------------

// MessageType is the "type" tag of a realtime message.
type MessageType string

// Inbound message types.
const (
	MsgSectionCreated     MessageType = "section_created"
	MsgSectionUpdated     MessageType = "section_updated"
	MsgSectionDeleted     MessageType = "section_deleted"
	MsgSectionsDeleted    MessageType = "sections_deleted"
	MsgSectionsReordered  MessageType = "sections_reordered"
	MsgItemCreated        MessageType = "item_created"
	MsgItemDeleted        MessageType = "item_deleted"
	MsgItemMoved          MessageType = "item_moved"
	MsgItemsReordered     MessageType = "items_reordered"
	MsgItemToggled        MessageType = "item_toggled"
	MsgItemUpdated        MessageType = "item_updated"
	MsgPreferencesUpdated MessageType = "preferences_updated"
	MsgPong               MessageType = "pong"
)

// Outbound message types.
const (
	MsgPing MessageType = "ping"
)

// InboundMessage is a decoded realtime message. Data is kept raw and only
// decoded by handlers that consult it.
type InboundMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutboundMessage is a message sent by the client.
type OutboundMessage struct {
	Type MessageType `json:"type"`
}
