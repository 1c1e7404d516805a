package domain

import "time"

// Comment is an append-only message on a ticket thread.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time

	Author *UserRef
}
