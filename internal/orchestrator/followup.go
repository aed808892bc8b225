package orchestrator

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congde/emochat/internal/memory"
)

// followRule matches one recent memory against (type, age, importance).
// Rules are ordered; the first match across all scanned memories wins.
type followRule struct {
	name     string
	kind     string
	priority int
	delay    time.Duration
	message  string
	match    func(rec *memory.Record, ageDays float64) bool
}

var followRules = []followRule{
	{
		name: "lingering_health_concern", kind: "check_in", priority: 1,
		delay:   24 * time.Hour,
		message: "之前你提到睡眠和状态的事，最近有好一些吗？",
		match: func(rec *memory.Record, ageDays float64) bool {
			return containsAnyTerm(rec.Content, healthConcernTerms) &&
				ageDays >= 7 && rec.Importance > 0.6
		},
	},
	{
		name: "lingering_concern", kind: "check_in", priority: 2,
		delay:   24 * time.Hour,
		message: "之前你提到的事还好吗？想来问问最近怎么样。",
		match: func(rec *memory.Record, ageDays float64) bool {
			return rec.Type == memory.TypeConcern && ageDays >= 7 && rec.Importance > 0.6
		},
	},
	{
		name: "open_commitment", kind: "encourage", priority: 3,
		delay:   48 * time.Hour,
		message: "你之前说要做的那件事，进展如何？",
		match: func(rec *memory.Record, ageDays float64) bool {
			return rec.Type == memory.TypeCommitment && ageDays >= 3 && rec.Importance > 0.5
		},
	},
}

// healthConcernTerms scope the highest-priority follow-up rule to sleep and
// mood complaints.
var healthConcernTerms = []string{
	"insomnia", "can't sleep", "anxious", "anxiety", "depressed",
	"失眠", "睡不着", "焦虑", "抑郁",
}

func containsAnyTerm(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// negativeEmotions are the labels counted toward a low-mood streak.
var negativeEmotions = map[string]bool{
	"sad": true, "anxious": true, "angry": true,
}

// ProposeFollowUp scans recent memories and interaction recency, applying
// the ordered rule table first, then the streak and inactivity triggers.
// At most one proposal per run.
func ProposeFollowUp(ownerID, sessionID string, recent []*memory.Record, lastInteraction, now time.Time) *FollowUp {
	for _, rule := range followRules {
		for _, rec := range recent {
			age := now.Sub(rec.CreatedAt).Hours() / 24
			if rule.match(rec, age) {
				return newFollowUp(ownerID, sessionID, rule, rec.Summary, now)
			}
		}
	}

	if negativeStreak(recent, now) {
		return &FollowUp{
			ID: uuid.New().String(), OwnerID: ownerID, SessionID: sessionID,
			Kind: "mood_support", Priority: 1,
			Reason:    "negative emotion on 3+ of the last 7 days",
			Message:   "最近几天情绪好像都不太好，要不要聊聊？",
			DueAt:     now.Add(12 * time.Hour),
			CreatedAt: now,
		}
	}

	if !lastInteraction.IsZero() && now.Sub(lastInteraction) >= 7*24*time.Hour {
		return &FollowUp{
			ID: uuid.New().String(), OwnerID: ownerID, SessionID: sessionID,
			Kind: "reconnect", Priority: 4,
			Reason:    "no interaction for 7+ days",
			Message:   "好久没聊了，最近过得怎么样？",
			DueAt:     now.Add(24 * time.Hour),
			CreatedAt: now,
		}
	}
	return nil
}

func newFollowUp(ownerID, sessionID string, rule followRule, context string, now time.Time) *FollowUp {
	return &FollowUp{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		SessionID: sessionID,
		Kind:      rule.kind,
		Reason:    rule.name + ": " + context,
		Message:   rule.message,
		Priority:  rule.priority,
		DueAt:     now.Add(rule.delay),
		CreatedAt: now,
	}
}

// negativeStreak reports whether 3 or more of the last 7 days carry a
// negative-emotion memory.
func negativeStreak(recent []*memory.Record, now time.Time) bool {
	days := make(map[int]bool)
	for _, rec := range recent {
		if !negativeEmotions[rec.Emotion] {
			continue
		}
		age := now.Sub(rec.CreatedAt).Hours() / 24
		if age < 0 || age >= 7 {
			continue
		}
		days[int(age)] = true
	}
	return len(days) >= 3
}
