package sqlitedb

import "time"

type Track struct {
	ID        int64
	Path      string
	Title     string
	Format    string
	Codec     string
	Duration  float64
	FileSize  int64
	CreatedAt time.Time
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
