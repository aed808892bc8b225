package memory

import (
	"time"
)

// Type classifies what kind of thing a memory remembers.
type Type string

const (
	TypeEpisodic     Type = "episodic"
	TypeConversation Type = "conversation"
	TypeSemantic     Type = "semantic"
	TypeCommitment   Type = "commitment"
	TypeRelationship Type = "relationship"
	TypePreference   Type = "preference"
	TypeConcern      Type = "concern"
)

// Record is a durable, ranked unit of remembered content.
type Record struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	SessionID        string    `json:"session_id"`
	Content          string    `json:"content"`
	Summary          string    `json:"summary"`
	Type             Type      `json:"type"`
	Emotion          string    `json:"emotion"`
	EmotionIntensity float64   `json:"emotion_intensity"` // 0-10
	Importance       float64   `json:"importance"`        // 0-1, clamped
	Extraction       string    `json:"extraction"`        // how the record was extracted
	CreatedAt        time.Time `json:"created_at"`
	LastAccessedAt   time.Time `json:"last_accessed_at"`
	AccessCount      int       `json:"access_count"`
	Active           bool      `json:"active"`
}

// ClampImportance bounds an importance score to [0, 1].
func ClampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Hit is one ranked retrieval result.
type Hit struct {
	Record            *Record `json:"record"`
	Similarity        float64 `json:"similarity"`
	DecayedImportance float64 `json:"decayed_importance"`
	Score             float64 `json:"score"`
}

// RetrieveOptions narrows and sizes a long-term retrieval.
type RetrieveOptions struct {
	OwnerID        string
	Query          string
	TopK           int
	TimeWindowDays float64
	MinImportance  float64
	Emotion        string // optional emotion filter
}
