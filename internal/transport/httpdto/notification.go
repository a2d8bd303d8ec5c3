package httpdto

import "intake-chat/internal/domain/notification"

type UnreadCounterResponse struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

func FromUnreadCounters(counters []notification.UnreadCounter) []UnreadCounterResponse {
	out := make([]UnreadCounterResponse, 0, len(counters))
	for _, c := range counters {
		out = append(out, UnreadCounterResponse{Category: c.Category, Count: c.Count})
	}
	return out
}

type MarkReadRequest struct {
	Category string `json:"category" binding:"required"`
}
