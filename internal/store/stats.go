package store

// Stats summarizes one chat cache database for inspection tooling.
type Stats struct {
	ChatEvents   int64 `json:"chatEvents"`
	ThreadEvents int64 `json:"threadEvents"`
	Snapshots    int64 `json:"snapshots"`
	GroupDetails int64 `json:"groupDetails"`
}

// Stats counts the rows in each table.
func (db *DB) Stats() (Stats, error) {
	var s Stats
	for _, c := range []struct {
		table string
		dest  *int64
	}{
		{"chat_events", &s.ChatEvents},
		{"thread_events", &s.ThreadEvents},
		{"chats", &s.Snapshots},
		{"group_details", &s.GroupDetails},
	} {
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + c.table).Scan(c.dest); err != nil {
			return Stats{}, err
		}
	}
	return s, nil
}
