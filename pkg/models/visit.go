package models

import "time"

// Visit represents one inbox lookup in the access log
type Visit struct {
	ID        int64     `db:"id"`
	Time      time.Time `db:"visited_at"`
	Mailbox   string    `db:"mailbox"`
	IP        string    `db:"ip"`
	UserAgent string    `db:"user_agent"`
}

// LocatedVisit is a visit annotated with the visitor's country
type LocatedVisit struct {
	Visit
	Country string
}
