package middleware

// RateLimit: relay limits. A zero value for any limit disables it.
type RateLimit struct {
	MaxRoomSize       int
	MaxRooms          int
	MaxMessageSize    int
	MessagesPerSecond float64
	BurstSize         int
	SendQueueSize     int
}

// NewRateLimit: creates a new RateLimit configuration
func NewRateLimit(maxRoomSize, maxRooms, maxMessageSize int, messagesPerSecond float64, burstSize, sendQueueSize int) *RateLimit {
	return &RateLimit{
		MaxRoomSize:       maxRoomSize,
		MaxRooms:          maxRooms,
		MaxMessageSize:    maxMessageSize,
		MessagesPerSecond: messagesPerSecond,
		BurstSize:         burstSize,
		SendQueueSize:     sendQueueSize,
	}
}

// ValidateMessageSize: checks if a message is within the size limit
func (rl *RateLimit) ValidateMessageSize(msgSize int) bool {
	return rl.MaxMessageSize <= 0 || msgSize <= rl.MaxMessageSize
}
