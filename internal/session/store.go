package session

// MessageStore holds the ordered conversation log. Order is append order and
// is never re-sorted. The store performs no deduplication: the server owns
// ID uniqueness, and re-delivery of an ID yields a second entry.
type MessageStore struct {
	messages []Message
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{messages: make([]Message, 0)}
}

// ApplySnapshot unconditionally replaces the entire log. The snapshot is
// authoritative: anything held locally is discarded, even messages that
// arrived before it (last snapshot wins).
func (s *MessageStore) ApplySnapshot(messages []Message) {
	s.messages = make([]Message, len(messages))
	copy(s.messages, messages)
}

// ApplyAppend appends one message to the end of the log.
func (s *MessageStore) ApplyAppend(m Message) {
	s.messages = append(s.messages, m)
}

// Remove deletes the first message with the given ID. Returns false when no
// such message exists.
func (s *MessageStore) Remove(id string) bool {
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the log.
func (s *MessageStore) Clear() {
	s.messages = s.messages[:0]
}

// Messages returns a copy of the log in order.
func (s *MessageStore) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the log.
func (s *MessageStore) Len() int {
	return len(s.messages)
}
