package model

import "time"

// Domain is a question corpus domain such as "java" or "python".
type Domain string

const (
	DomainJava   Domain = "java"
	DomainPython Domain = "python"
	DomainDSA    Domain = "dsa"
)

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultyFlow is the order in which a session walks through difficulty levels.
var DifficultyFlow = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TimeoutAnswer is submitted on behalf of a candidate who ran out of time.
const TimeoutAnswer = "TIMEOUT"

// WeaknessThreshold is the score below which a question counts as a weakness.
const WeaknessThreshold = 6

// MaxScore is the upper bound of every evaluation score.
const MaxScore = 10

// MaxSuggestions caps the suggestions kept per evaluation.
const MaxSuggestions = 5

// Question is an interview question from the corpus.
type Question struct {
	ID              string     `json:"id"`
	Text            string     `json:"text"`
	ReferenceAnswer string     `json:"reference_answer"`
	Domain          Domain     `json:"domain"`
	Difficulty      Difficulty `json:"difficulty"`
}

// Evaluation is the scored assessment of one answer.
type Evaluation struct {
	Score       int      `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// HistoryQuestion is the part of a question kept in session history.
type HistoryQuestion struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	ReferenceAnswer string `json:"reference_answer"`
}

// HistoryEntry records one evaluated answer.
type HistoryEntry struct {
	Time       time.Time       `json:"time"`
	Question   HistoryQuestion `json:"question"`
	Evaluation Evaluation      `json:"evaluation"`
}

// SessionRecord is the durable history of an interview session.
type SessionRecord struct {
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id"`
	Domain     Domain         `json:"domain"`
	CreatedAt  time.Time      `json:"created_at"`
	History    []HistoryEntry `json:"history"`
	Weaknesses map[string]int `json:"weaknesses"`
}

// Clone returns a deep copy of the record.
func (r SessionRecord) Clone() SessionRecord {
	out := r
	out.History = make([]HistoryEntry, len(r.History))
	for i, h := range r.History {
		h.Evaluation.Suggestions = append([]string(nil), h.Evaluation.Suggestions...)
		out.History[i] = h
	}
	out.Weaknesses = make(map[string]int, len(r.Weaknesses))
	for k, v := range r.Weaknesses {
		out.Weaknesses[k] = v
	}
	return out
}

// SummaryDetail is one answered question in a session summary.
type SummaryDetail struct {
	QuestionID      string   `json:"question_id"`
	QuestionText    string   `json:"question_text"`
	ReferenceAnswer string   `json:"reference_answer"`
	Score           int      `json:"score"`
	Feedback        string   `json:"feedback"`
	Suggestions     []string `json:"suggestions"`
}

// Summary is the final report of a session.
type Summary struct {
	SessionID    string          `json:"session_id"`
	Student      string          `json:"student"`
	Domain       Domain          `json:"domain"`
	NumQuestions int             `json:"num_questions"`
	AverageScore float64         `json:"average_score"`
	Details      []SummaryDetail `json:"details"`
	Weaknesses   map[string]int  `json:"weaknesses"`
}

// Profile is a lightweight per-user record kept next to sessions.
type Profile struct {
	UserID            string         `json:"user_id"`
	SessionsCompleted int            `json:"sessions_completed"`
	LastSessionID     string         `json:"last_session_id,omitempty"`
	Weaknesses        map[string]int `json:"weaknesses"`
	Notes             map[string]any `json:"notes,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// InterviewConfig holds runtime parameters set via CLI flags.
type InterviewConfig struct {
	Evaluator     string        // heuristic or remote
	EvalTimeout   time.Duration // bound on a single remote evaluation
	PromptVariant string        // strict, standard, lenient
	Seed          uint64        // 0 means random
}
