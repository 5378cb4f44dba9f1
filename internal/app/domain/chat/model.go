package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Message is a persisted chat line.
type Message struct {
	ID        string    `json:"id" db:"id"`
	RoomID    string    `json:"room_id" db:"room_id"`
	SenderID  string    `json:"sender_id" db:"sender_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	directPrefix  = "dm:"
	bookingPrefix = "booking:"
)

// DirectRoom returns the room id shared by two users regardless of order.
func DirectRoom(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return directPrefix + ids[0] + ":" + ids[1]
}

// BookingRoom returns the room id of a booking conversation.
func BookingRoom(bookingID string) string {
	return bookingPrefix + bookingID
}

// RoomKind identifies how room membership is derived.
type RoomKind int

const (
	RoomDirect RoomKind = iota + 1
	RoomBooking
)

// Room is a parsed room identifier.
type Room struct {
	Kind      RoomKind
	UserIDs   []string
	BookingID string
}

// ParseRoom splits a room identifier into its parts.
func ParseRoom(id string) (Room, error) {
	switch {
	case strings.HasPrefix(id, directPrefix):
		parts := strings.Split(strings.TrimPrefix(id, directPrefix), ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == parts[1] {
			return Room{}, fmt.Errorf("malformed direct room %q", id)
		}
		if DirectRoom(parts[0], parts[1]) != id {
			return Room{}, fmt.Errorf("direct room %q is not in canonical order", id)
		}
		return Room{Kind: RoomDirect, UserIDs: parts}, nil
	case strings.HasPrefix(id, bookingPrefix):
		bookingID := strings.TrimPrefix(id, bookingPrefix)
		if bookingID == "" {
			return Room{}, fmt.Errorf("malformed booking room %q", id)
		}
		return Room{Kind: RoomBooking, BookingID: bookingID}, nil
	}
	return Room{}, fmt.Errorf("unknown room %q", id)
}
