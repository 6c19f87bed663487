package sqlite

// Migrate creates the ledger table. Schema provisioning is otherwise the
// host's concern; this helper exists for tests and small applications.
func (s *SQLite) Migrate() error {
	stmt := `
	create table if not exists ledger (seq integer primary key autoincrement, stream_name text not null, version integer not null, payload blob not null);
	create unique index if not exists ledger_stream_version on ledger (stream_name, version);
	`
	_, err := s.db.Exec(stmt)
	return err
}
