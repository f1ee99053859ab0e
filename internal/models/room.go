package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomType selects the capacity and confederate composition of a room.
type RoomType string

const (
	RoomTypeOneOnOne      RoomType = "one_on_one"
	RoomTypeOneOnOneHuman RoomType = "one_on_one_human"
	RoomTypeTwoOnOne      RoomType = "two_on_one"
	RoomTypeTwoVsFour     RoomType = "two_vs_four"
)

// Valid reports whether t is one of the known room kinds.
func (t RoomType) Valid() bool {
	switch t {
	case RoomTypeOneOnOne, RoomTypeOneOnOneHuman, RoomTypeTwoOnOne, RoomTypeTwoVsFour:
		return true
	}
	return false
}

// RoomStatus is the lifecycle state of a room: waiting -> active -> ended.
type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "waiting"
	RoomStatusActive  RoomStatus = "active"
	RoomStatusEnded   RoomStatus = "ended"
)

// Confederate slot names. They double as column names in the rooms table.
const (
	SlotConfederate = "confederate_id"
	SlotLLMUser1    = "llm_user_1"
	SlotLLMUser2    = "llm_user_2"
	SlotLLMUser3    = "llm_user_3"
)

// IsConfederateSlot reports whether name is a slot the rooms table can hold.
func IsConfederateSlot(name string) bool {
	switch name {
	case SlotConfederate, SlotLLMUser1, SlotLLMUser2, SlotLLMUser3:
		return true
	}
	return false
}

// Room is a matched session container of a fixed type.
// Confederate assignments are written once, at creation, and never reshuffled.
type Room struct {
	// ID is the room UUID, generated in BeforeCreate when empty.
	ID     string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Type   RoomType   `gorm:"type:varchar(32);not null;index:idx_rooms_type_status,priority:1" json:"type"`
	Status RoomStatus `gorm:"type:varchar(16);not null;index:idx_rooms_type_status,priority:2" json:"status"`

	ConfederateID *string `gorm:"column:confederate_id" json:"-"`
	LLMUser1      *string `gorm:"column:llm_user_1" json:"-"`
	LLMUser2      *string `gorm:"column:llm_user_2" json:"-"`
	LLMUser3      *string `gorm:"column:llm_user_3" json:"-"`

	// ConfederateAssignments maps slot name to identity label. It is the API view
	// of the four slot columns above and is not persisted on its own.
	ConfederateAssignments map[string]string `gorm:"-" json:"confederate_assignments,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Room) slotColumn(slot string) **string {
	switch slot {
	case SlotConfederate:
		return &r.ConfederateID
	case SlotLLMUser1:
		return &r.LLMUser1
	case SlotLLMUser2:
		return &r.LLMUser2
	case SlotLLMUser3:
		return &r.LLMUser3
	}
	return nil
}

// ApplyAssignments copies ConfederateAssignments into the slot columns.
func (r *Room) ApplyAssignments() error {
	for slot, name := range r.ConfederateAssignments {
		col := r.slotColumn(slot)
		if col == nil {
			return fmt.Errorf("unknown confederate slot %q", slot)
		}
		label := name
		*col = &label
	}
	return nil
}

// LoadAssignments rebuilds ConfederateAssignments from the slot columns.
func (r *Room) LoadAssignments() {
	assignments := make(map[string]string)
	for _, slot := range []string{SlotConfederate, SlotLLMUser1, SlotLLMUser2, SlotLLMUser3} {
		if col := r.slotColumn(slot); *col != nil {
			assignments[slot] = **col
		}
	}
	if len(assignments) == 0 {
		r.ConfederateAssignments = nil
		return
	}
	r.ConfederateAssignments = assignments
}

// Clone returns a deep copy, safe to hand out from an in-memory store.
func (r Room) Clone() Room {
	out := r
	if r.ConfederateAssignments != nil {
		out.ConfederateAssignments = make(map[string]string, len(r.ConfederateAssignments))
		for k, v := range r.ConfederateAssignments {
			out.ConfederateAssignments[k] = v
		}
	}
	for _, col := range []**string{&out.ConfederateID, &out.LLMUser1, &out.LLMUser2, &out.LLMUser3} {
		if *col != nil {
			v := **col
			*col = &v
		}
	}
	return out
}

// BeforeCreate generates the room UUID and fills the slot columns.
func (r *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return r.ApplyAssignments()
}

// AfterFind exposes the slot columns as ConfederateAssignments.
func (r *Room) AfterFind(tx *gorm.DB) (err error) {
	r.LoadAssignments()
	return nil
}

func (Room) TableName() string {
	return "rooms"
}
