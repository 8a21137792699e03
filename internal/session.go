package internal

// ChatSession is the per-chat state bundle for one extraction run. It is
// created when a chat is selected, owned exclusively by the convergence loop,
// and never reused across chats.
type ChatSession struct {
	ChatID     string     `json:"chat_id"`
	Messages   []Message  `json:"messages"`
	ImageStats ImageStats `json:"image_stats"`
	Aborted    bool       `json:"aborted,omitempty"`

	seen       *Deduplicator
	noProgress int
	iterations int
	newHashes  []string
}

// ImageStats counts image resolution outcomes for one chat.
type ImageStats struct {
	Resolved int            `json:"resolved"`
	Failed   int            `json:"failed"`
	ByScheme map[Scheme]int `json:"by_scheme,omitempty"`
}

func (s *ImageStats) count(scheme Scheme, ok bool) {
	if s.ByScheme == nil {
		s.ByScheme = make(map[Scheme]int)
	}
	s.ByScheme[scheme]++
	if ok {
		s.Resolved++
	} else {
		s.Failed++
	}
}

// NewChatSession creates a session for one chat. knownHashes seeds the
// deduplication set with hashes persisted by earlier runs, so a re-run only
// admits messages not already exported.
func NewChatSession(chatID string, knownHashes []string) *ChatSession {
	return &ChatSession{
		ChatID: chatID,
		seen:   NewDeduplicator(knownHashes),
	}
}

// NewHashes returns the identity hashes admitted during this run, in
// admission order. Used to append to the persisted hash store.
func (s *ChatSession) NewHashes() []string {
	return s.newHashes
}

// MessageCount returns the number of accumulated messages.
func (s *ChatSession) MessageCount() int {
	return len(s.Messages)
}
