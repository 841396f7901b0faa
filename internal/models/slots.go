// internal/models/slots.go
package models

// SlotName identifies one required dining preference.
type SlotName string

const (
	SlotLocation       SlotName = "Location"
	SlotCuisine        SlotName = "Cuisine"
	SlotDiningTime     SlotName = "DiningTime"
	SlotNumberOfPeople SlotName = "NumberOfPeople"
	SlotEmail          SlotName = "Email"
)

// RequiredSlots is the fixed elicitation priority order. Missing slots are
// always asked for in this order, regardless of map iteration order.
var RequiredSlots = []SlotName{
	SlotLocation,
	SlotCuisine,
	SlotDiningTime,
	SlotNumberOfPeople,
	SlotEmail,
}

// SlotSet holds the per-conversation collected preferences. Values are
// already interpreted/normalized by the slot-recognition oracle, never the
// raw utterance. An empty string means unfilled.
type SlotSet map[SlotName]string

// NewSlotSet returns an empty slot set.
func NewSlotSet() SlotSet {
	return make(SlotSet, len(RequiredSlots))
}

// Get returns the interpreted value for a slot, empty if unfilled.
func (s SlotSet) Get(name SlotName) string {
	return s[name]
}

// Fill sets a slot to a non-empty interpreted value. Empty values are
// ignored so a filled slot is never cleared by a miss.
func (s SlotSet) Fill(name SlotName, value string) {
	if value == "" {
		return
	}
	s[name] = value
}

// Merge folds newly-recognized candidates into the set. The fill is
// monotonic: an absent or empty candidate never clears a filled slot.
// Within one turn, the last non-empty candidate for a slot wins.
func (s SlotSet) Merge(candidates map[SlotName]string) {
	for _, name := range RequiredSlots {
		if v, ok := candidates[name]; ok && v != "" {
			s[name] = v
		}
	}
}

// IsComplete reports whether every required slot has a non-empty value.
func (s SlotSet) IsComplete() bool {
	for _, name := range RequiredSlots {
		if s[name] == "" {
			return false
		}
	}
	return true
}

// Missing returns the unfilled required slots in priority order.
func (s SlotSet) Missing() []SlotName {
	var missing []SlotName
	for _, name := range RequiredSlots {
		if s[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// NextMissing returns the first unfilled slot in priority order, or ok=false
// when the set is complete.
func (s SlotSet) NextMissing() (SlotName, bool) {
	for _, name := range RequiredSlots {
		if s[name] == "" {
			return name, true
		}
	}
	return "", false
}

// Reset clears all slots. A new conversation starts from an empty set.
func (s SlotSet) Reset() {
	for name := range s {
		delete(s, name)
	}
}

// Clone returns an independent copy of the set.
func (s SlotSet) Clone() SlotSet {
	out := make(SlotSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
