package session

// SlotID names one preference fact. The set is fixed at session creation;
// the server-declared vocabulary is trusted but never extends it.
type SlotID string

const (
	SlotToneOfVoice      SlotID = "tone_of_voice"
	SlotResponseFormat   SlotID = "response_format"
	SlotLanguage         SlotID = "language"
	SlotInteractionStyle SlotID = "interaction_style"
	SlotNewsTopics       SlotID = "news_topics"
)

// slotOrder fixes display order; it matches the server's interview order.
var slotOrder = []SlotID{
	SlotToneOfVoice,
	SlotResponseFormat,
	SlotLanguage,
	SlotInteractionStyle,
	SlotNewsTopics,
}

var slotLabels = map[SlotID]string{
	SlotToneOfVoice:      "Tone of voice",
	SlotResponseFormat:   "Response format",
	SlotLanguage:         "Language",
	SlotInteractionStyle: "Interaction style",
	SlotNewsTopics:       "News topics",
}

// PreferenceSlot is one named preference fact. Completed is true iff Value
// was set by an update since the last reset.
type PreferenceSlot struct {
	ID        SlotID
	Label     string
	Value     string
	Completed bool
}

// PreferenceTracker holds the closed set of preference slots.
type PreferenceTracker struct {
	slots map[SlotID]*PreferenceSlot
}

// NewPreferenceTracker creates a tracker with every slot empty.
func NewPreferenceTracker() *PreferenceTracker {
	slots := make(map[SlotID]*PreferenceSlot, len(slotOrder))
	for _, id := range slotOrder {
		slots[id] = &PreferenceSlot{ID: id, Label: slotLabels[id]}
	}
	return &PreferenceTracker{slots: slots}
}

// Update fills the named slot, overwriting any prior value. An unrecognized
// id is a silent no-op, never an error; the return reports whether a slot
// changed.
func (t *PreferenceTracker) Update(id, value string) bool {
	slot, ok := t.slots[SlotID(id)]
	if !ok {
		return false
	}
	slot.Value = value
	slot.Completed = true
	return true
}

// ResetAll empties every slot regardless of current state.
func (t *PreferenceTracker) ResetAll() {
	for _, slot := range t.slots {
		slot.Value = ""
		slot.Completed = false
	}
}

// CompletionRatio returns completed slots over total slots.
func (t *PreferenceTracker) CompletionRatio() float64 {
	completed := 0
	for _, slot := range t.slots {
		if slot.Completed {
			completed++
		}
	}
	return float64(completed) / float64(len(slotOrder))
}

// Slots returns the slots in fixed display order.
func (t *PreferenceTracker) Slots() []PreferenceSlot {
	out := make([]PreferenceSlot, 0, len(slotOrder))
	for _, id := range slotOrder {
		out = append(out, *t.slots[id])
	}
	return out
}
