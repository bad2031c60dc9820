// Package models holds the plain data records shared by the store,
// assessment engine, and recommendation engine. Typed records are decoded
// from JSONB at the repository boundary; free-form payloads (response
// data, audit details) stay as JSONB maps.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AssessmentType tags the three kinds of attempt the engine drives.
// A tagged variant replacing dynamic dispatch by string type name.
type AssessmentType string

const (
	TypePlacement AssessmentType = "PLACEMENT"
	TypeSpeaking  AssessmentType = "SPEAKING"
	TypeWriting   AssessmentType = "WRITING"
)

// CEFR is one of the six proficiency bands, A1 (lowest) to C2 (highest).
type CEFR string

const (
	A1 CEFR = "A1"
	A2 CEFR = "A2"
	B1 CEFR = "B1"
	B2 CEFR = "B2"
	C1 CEFR = "C1"
	C2 CEFR = "C2"
)

var cefrOrder = []CEFR{A1, A2, B1, B2, C1, C2}

// Next returns the band one step above c, or c itself if c is already C2.
func (c CEFR) Next() CEFR {
	for i, band := range cefrOrder {
		if band == c {
			if i == len(cefrOrder)-1 {
				return c
			}
			return cefrOrder[i+1]
		}
	}
	return c
}

// Index returns c's position in A1..C2, or -1 if unrecognized.
func (c CEFR) Index() int {
	for i, band := range cefrOrder {
		if band == c {
			return i
		}
	}
	return -1
}

// SessionStatus is the Session's lifecycle state (spec.md §4.3).
type SessionStatus string

const (
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
	SessionCancelled  SessionStatus = "CANCELLED"
	SessionExpired    SessionStatus = "EXPIRED"
)

// AssignmentStatus is the AssignedAssessment's lifecycle state.
type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "PENDING"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentCompleted  AssignmentStatus = "COMPLETED"
	AssignmentExpired    AssignmentStatus = "EXPIRED"
)

// ResultType mirrors AssessmentType onto a persisted Result row.
type ResultType string

const (
	ResultPlacement ResultType = "P"
	ResultSpeaking  ResultType = "S"
	ResultWriting   ResultType = "W"
)

// RecommendationSource distinguishes system-generated rows from an
// admin override.
type RecommendationSource string

const (
	SourceAuto   RecommendationSource = "AUTO"
	SourceManual RecommendationSource = "MANUAL"
)

// JSONB adapts an arbitrary JSON document to database/sql, matching the
// teacher's models.JSONB Value/Scan pair.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}

// IRTParams are the 3PL item parameters (a discrimination, b difficulty,
// c pseudo-guessing). c == 0 reduces the model to 2PL; a == 1, c == 0
// reduces it further to 1PL (Rasch).
type IRTParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// Item is a single calibrated question in the bank.
type Item struct {
	ID         uuid.UUID `json:"id"`
	Content    string    `json:"content"`
	ItemType   string    `json:"item_type"`
	SkillAreas []string  `json:"skill_areas"`
	TargetCEFR CEFR      `json:"target_cefr"`
	IRTParams  IRTParams `json:"irt_params"`
	Active     bool      `json:"active"`
}

// TemplateItem fixes one item's position in a non-adaptive template.
type TemplateItem struct {
	TemplateID uuid.UUID `json:"template_id"`
	ItemID     uuid.UUID `json:"item_id"`
	Order      int       `json:"order"`
}

// RubricCriterion is one scored dimension of a speaking/writing rubric.
type RubricCriterion struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// Rubric weights the criteria a speaking/writing scorer evaluates.
type Rubric struct {
	Criteria []RubricCriterion `json:"criteria"`
	// CEFRCutoffs maps the minimum overallScore required for each band,
	// evaluated from C2 down to A1 (first cutoff met wins).
	CEFRCutoffs map[CEFR]float64 `json:"cefr_cutoffs"`
}

// StoppingCriterion bounds acceptable measurement error at termination.
type StoppingCriterion struct {
	StandardError float64 `json:"standard_error"`
}

// SkillAreaRule enforces a per-skill min/max answered-item count.
type SkillAreaRule struct {
	Skill string `json:"skill"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
}

// AdaptiveParams configures the IRT kernel and item selection for a
// placement template.
type AdaptiveParams struct {
	StartingAbility   float64             `json:"starting_ability"`
	MinQuestions      int                 `json:"min_questions"`
	MaxQuestions      int                 `json:"max_questions"`
	StoppingCriterion StoppingCriterion   `json:"stopping_criterion"`
	SkillAreas        []SkillAreaRule     `json:"skill_areas"`
	ProficiencyRange  map[CEFR][2]float64 `json:"proficiency_range"`
	TopKSelection     int                 `json:"top_k_selection"`
}

// SpeakingParams configures the speaking scorer's criteria weighting.
type SpeakingParams struct {
	CriteriaWeights map[string]float64 `json:"criteria_weights"`
	TimeoutSeconds  int                `json:"timeout_seconds"`
}

// WritingParams configures the writing scorer's criteria weighting.
type WritingParams struct {
	CriteriaWeights map[string]float64 `json:"criteria_weights"`
	TimeoutSeconds  int                `json:"timeout_seconds"`
	OneByOne        bool               `json:"one_by_one"`
}

// AssessmentConfig holds the tunables for one AssessmentTemplate.
type AssessmentConfig struct {
	ID             uuid.UUID      `json:"id"`
	TemplateID     uuid.UUID      `json:"template_id"`
	AdaptiveParams AdaptiveParams `json:"adaptive_params"`
	SpeakingParams SpeakingParams `json:"speaking_params"`
	WritingParams  WritingParams  `json:"writing_params"`
	Active         bool           `json:"active"`
}

// AssessmentTemplate is the blueprint for one kind of attempt.
type AssessmentTemplate struct {
	ID          uuid.UUID      `json:"id"`
	PathwayID   uuid.UUID      `json:"pathway_id"`
	Type        AssessmentType `json:"type"`
	Rubric      Rubric         `json:"rubric"`
	Version     int            `json:"version"`
	PublishedAt time.Time      `json:"published_at"`
	Active      bool           `json:"active"`
}

// AssignedAssessment grants one test-taker one attempt at a template.
type AssignedAssessment struct {
	ID          uuid.UUID        `json:"id"`
	TemplateID  uuid.UUID        `json:"template_id"`
	TestTakerID uuid.UUID        `json:"test_taker_id"`
	AssignedBy  uuid.UUID        `json:"assigned_by"`
	DueAt       time.Time        `json:"due_at"`
	Status      AssignmentStatus `json:"status"`
}

// TemplateSnapshot freezes the template and config a Session was
// created against, decoupling in-flight attempts from later edits.
type TemplateSnapshot struct {
	Template AssessmentTemplate `json:"template"`
	Config   AssessmentConfig   `json:"config"`
}

// Session is one concrete attempt at an AssignedAssessment.
type Session struct {
	ID                uuid.UUID        `json:"id"`
	AssignedID        uuid.UUID        `json:"assigned_id"`
	CurrentAbility    float64          `json:"current_ability"`
	StandardError     float64          `json:"standard_error"`
	QuestionsAnswered int              `json:"questions_answered"`
	CurrentIndex      int              `json:"current_index"`
	Status            SessionStatus    `json:"status"`
	TemplateSnapshot  TemplateSnapshot `json:"template_snapshot"`
	StartedAt         time.Time        `json:"started_at"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	ExpiresAt         time.Time        `json:"expires_at"`
}

// Response is one answered item, append-only and unique per (session, item).
type Response struct {
	ID            uuid.UUID `json:"id"`
	SessionID     uuid.UUID `json:"session_id"`
	ItemID        uuid.UUID `json:"item_id"`
	ResponseData  JSONB     `json:"response_data"`
	IsCorrect     bool      `json:"is_correct"`
	RawScore      float64   `json:"raw_score"`
	PresentedAt   time.Time `json:"presented_at"`
	SubmittedAt   time.Time `json:"submitted_at"`
	TimeTakenMS   int       `json:"time_taken_ms"`
	MediaKey      *string   `json:"media_key,omitempty"`
	ASRTranscript *string   `json:"asr_transcript,omitempty"`
}

// SkillScore is one skill's measured ability and CEFR mapping.
type SkillScore struct {
	Theta       float64 `json:"theta"`
	CEFRMapping CEFR    `json:"cefr_mapping"`
}

// Result is the final, immutable measurement produced by a completed Session.
type Result struct {
	ID                uuid.UUID             `json:"id"`
	SessionID         uuid.UUID             `json:"session_id"`
	ProficiencyLevel  CEFR                  `json:"proficiency_level"`
	SkillScores       map[string]SkillScore `json:"skill_scores"`
	OverallScore      float64               `json:"overall_score"`
	ResultType        ResultType            `json:"result_type"`
	InformationMetric float64               `json:"information_metric"`
	CriteriaScores    map[string]float64    `json:"criteria_scores,omitempty"`
	Transcript        *string               `json:"transcript,omitempty"`
	EssayText         *string               `json:"essay_text,omitempty"`
	WordCount         int                   `json:"word_count,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

// RecommendedItem is one row of a learning plan.
type RecommendedItem struct {
	ID            uuid.UUID            `json:"id"`
	ResultID      uuid.UUID            `json:"result_id"`
	ContentID     uuid.UUID            `json:"content_id"`
	ContentType   string               `json:"content_type"` // "course" | "lesson"
	TargetSkill   string               `json:"target_skill"`
	SkillGapSize  float64              `json:"skill_gap_size"`
	Rationale     string               `json:"rationale"`
	PriorityOrder int                  `json:"priority_order"`
	Source        RecommendationSource `json:"source"`
	OverriddenBy  *uuid.UUID           `json:"overridden_by,omitempty"`
	OverriddenAt  *time.Time           `json:"overridden_at,omitempty"`
}

// Course is a catalog entry targeting a CEFR band and a primary skill.
type Course struct {
	ID              uuid.UUID       `json:"id"`
	PathwayID       uuid.UUID       `json:"pathway_id"`
	Title           string          `json:"title"`
	TargetCEFR      CEFR            `json:"target_cefr"`
	PrimarySkill    string          `json:"primary_skill"`
	SecondarySkills []string        `json:"secondary_skills"`
	Prerequisites   map[string]CEFR `json:"prerequisites"`
	DifficultyOrder int             `json:"difficulty_order"`
	Active          bool            `json:"active"`
}

// Lesson belongs to a Course and targets a set of skills.
type Lesson struct {
	ID           uuid.UUID `json:"id"`
	CourseID     uuid.UUID `json:"course_id"`
	Title        string    `json:"title"`
	TargetSkills []string  `json:"target_skills"`
	Order        int       `json:"order"`
	Active       bool      `json:"active"`
}

// AuditLog is an append-only record of a state-changing action.
type AuditLog struct {
	ID         uuid.UUID `json:"id"`
	ActorID    uuid.UUID `json:"actor_id"`
	ActorType  string    `json:"actor_type"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	Details    JSONB     `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ManualOverrideRow is one admin-supplied replacement recommendation row.
type ManualOverrideRow struct {
	ContentType string    `json:"content_type"`
	ContentID   uuid.UUID `json:"content_id"`
	TargetSkill string    `json:"target_skill"`
	Priority    int       `json:"priority"`
}
