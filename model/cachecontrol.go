package model

import "log/slog"

// AddCacheControl returns a copy of messages annotated so that only the
// final message carries an ephemeral cache marker. Any markers carried by
// earlier messages are cleared, keeping at most one annotation in the
// history at a time.
//
// The offset parameter is deprecated and has no effect; it is accepted for
// compatibility with older trajectory configs and warned about.
func AddCacheControl(messages []Message, offset int) []Message {
	if offset != 0 {
		slog.Warn("cache control offset is deprecated and has no effect", "offset", offset)
	}

	out := make([]Message, len(messages))
	for i, msg := range messages {
		blocks := make(Content, len(msg.Content))
		for j, b := range msg.Content {
			b.CacheControl = nil
			blocks[j] = b
		}
		if i == len(messages)-1 && len(blocks) > 0 {
			blocks[0].CacheControl = Ephemeral()
		}
		out[i] = Message{Role: msg.Role, Content: blocks}
	}
	return out
}
