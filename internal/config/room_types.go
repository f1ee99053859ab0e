package config

import (
	"fmt"
	"os"
	"pairlab/backend/internal/models"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultConfederatePool is the candidate identity pool for confederate slots.
var DefaultConfederatePool = []string{"Alex", "Jordan", "Taylor", "Morgan", "Casey"}

// RoomTypeConfig fixes everything the matchmaker needs to know about a room type.
type RoomTypeConfig struct {
	Type models.RoomType
	// Capacity is the number of human members that activates the room.
	Capacity int
	// Slots lists confederate slot names; Slots[0] is the primary slot.
	Slots []string
	// Pool is the set of identity labels slots are drawn from.
	Pool []string
}

// RequiresConfederates reports whether rooms of this type get assigned identities.
func (c RoomTypeConfig) RequiresConfederates() bool {
	return len(c.Slots) > 0
}

// Validate checks the table entry is usable by the matchmaker.
func (c RoomTypeConfig) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("unknown room type %q", c.Type)
	}
	if c.Capacity < 1 {
		return fmt.Errorf("room type %s: capacity must be at least 1, got %d", c.Type, c.Capacity)
	}
	seenSlots := make(map[string]bool, len(c.Slots))
	for _, slot := range c.Slots {
		if !models.IsConfederateSlot(slot) {
			return fmt.Errorf("room type %s: unknown confederate slot %q", c.Type, slot)
		}
		if seenSlots[slot] {
			return fmt.Errorf("room type %s: duplicate slot %q", c.Type, slot)
		}
		seenSlots[slot] = true
	}
	if len(c.Pool) < len(c.Slots) {
		return fmt.Errorf("room type %s: pool has %d names for %d slots", c.Type, len(c.Pool), len(c.Slots))
	}
	seenNames := make(map[string]bool, len(c.Pool))
	for _, name := range c.Pool {
		if name == "" || seenNames[name] {
			return fmt.Errorf("room type %s: pool names must be non-empty and distinct", c.Type)
		}
		seenNames[name] = true
	}
	return nil
}

// RoomTypes is the per-type configuration table.
type RoomTypes map[models.RoomType]RoomTypeConfig

// DefaultRoomTypes returns the built-in table.
func DefaultRoomTypes() RoomTypes {
	return RoomTypes{
		models.RoomTypeOneOnOne: {
			Type:     models.RoomTypeOneOnOne,
			Capacity: 1,
		},
		models.RoomTypeOneOnOneHuman: {
			Type:     models.RoomTypeOneOnOneHuman,
			Capacity: 1,
		},
		models.RoomTypeTwoOnOne: {
			Type:     models.RoomTypeTwoOnOne,
			Capacity: 2,
			Slots:    []string{models.SlotConfederate},
			Pool:     DefaultConfederatePool,
		},
		models.RoomTypeTwoVsFour: {
			Type:     models.RoomTypeTwoVsFour,
			Capacity: 2,
			Slots:    []string{models.SlotConfederate, models.SlotLLMUser1, models.SlotLLMUser2, models.SlotLLMUser3},
			Pool:     DefaultConfederatePool,
		},
	}
}

// Lookup returns the configuration for t.
func (rt RoomTypes) Lookup(t models.RoomType) (RoomTypeConfig, bool) {
	c, ok := rt[t]
	return c, ok
}

// Validate checks every entry in the table.
func (rt RoomTypes) Validate() error {
	for t, c := range rt {
		if c.Type != t {
			return fmt.Errorf("room type table key %q holds config for %q", t, c.Type)
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type roomTypesFile struct {
	RoomTypes []roomTypeSchema `toml:"room_types"`
}

type roomTypeSchema struct {
	Type     string   `toml:"type"`
	Capacity int      `toml:"capacity"`
	Slots    []string `toml:"slots"`
	Pool     []string `toml:"pool"`
}

// LoadRoomTypes reads a TOML override file and merges it over the defaults.
// An empty path returns the defaults. Entries replace whole table rows.
func LoadRoomTypes(path string) (RoomTypes, error) {
	types := DefaultRoomTypes()
	if path == "" {
		return types, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read room types file: %w", err)
	}

	var file roomTypesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse room types file %s: %w", path, err)
	}

	for _, entry := range file.RoomTypes {
		rt := models.RoomType(entry.Type)
		types[rt] = RoomTypeConfig{
			Type:     rt,
			Capacity: entry.Capacity,
			Slots:    entry.Slots,
			Pool:     entry.Pool,
		}
	}

	if err := types.Validate(); err != nil {
		return nil, err
	}
	return types, nil
}
