package domain

import "time"

type (
	RoomName string
	Secret   string
)

// MaxRoomCapacity bounds the max_users setting of a room.
const MaxRoomCapacity = 100

// Room carries room meta only; membership and history live in core.
type Room struct {
	Secret       Secret
	Name         RoomName
	MaxUsers     int // 0 means unlimited
	Protected    bool
	CreatedAt    time.Time
	LastActivity time.Time
}

// Unlimited reports whether the room has no member cap.
func (r *Room) Unlimited() bool { return r.MaxUsers == 0 }
