package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250714-103000",
		Description: "Record storage key for thumbnail offload",
		Up: []string{
			// Thumbnails can be offloaded to object storage; the row then
			// stores only the object key and thumbnail is cleared.
			`ALTER TABLE records ADD COLUMN storage_key TEXT`,
		},
	})
}
