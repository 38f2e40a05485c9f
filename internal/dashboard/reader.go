package dashboard

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// JournalEntry is a loosely-typed view of one line of the audit journal,
// used only to replay recent activity to a freshly connected dashboard
// client. Field presence varies by Type; consumers switch on Type before
// reading type-specific fields.
type JournalEntry map[string]any

// TailJournal reads the last n JSONL records from the journal at path, in
// file order (oldest of the tail first). Adapted from the teacher's
// session-file reader, which parsed many short-lived sessions; this system
// runs one continuous journal, so tailing the single file replaces
// DiscoverSessions/ParseAllSessions.
func TailJournal(path string, n int) ([]JournalEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer f.Close()

	var all []JournalEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry JournalEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		all = append(all, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}

	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}
