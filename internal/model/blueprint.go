package model

import (
	"fmt"
	"strings"
	"time"
)

// HealthGoals groups the three top-level goals. Stored as separate columns,
// recombined when the blueprint is read back.
type HealthGoals struct {
	Goal1 string `json:"goal1"`
	Goal2 string `json:"goal2"`
	Goal3 string `json:"goal3"`
}

type KeyMetric struct {
	Metric         string `json:"metric"`
	CurrentAverage string `json:"currentAverage"`
	TargetGoal     string `json:"targetGoal"`
	TrackingMethod string `json:"trackingMethod"`
}

type MonthlyPlan struct {
	PrimaryFocus  string `json:"primaryFocus"`
	Week1         string `json:"week1"`
	Week2         string `json:"week2"`
	Week3         string `json:"week3"`
	Week4         string `json:"week4"`
	SuccessTarget string `json:"successTarget"`
}

type FamilySupport struct {
	Encourager      string `json:"encourager"`
	ExercisePartner string `json:"exercisePartner"`
	GoalSharer      string `json:"goalSharer"`
}

type Obstacle struct {
	Challenge string `json:"challenge"`
	Plan      string `json:"plan"`
}

type CheckInDates struct {
	Month1 string `json:"month1"`
	Month2 string `json:"month2"`
	Month3 string `json:"month3"`
}

type App struct {
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
}

// Blueprint is the persisted questionnaire record for one user. There is at
// most one per owner; every save replaces the whole document.
type Blueprint struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"userId"`
	Name                 string        `json:"name"`
	Email                string        `json:"email"`
	HealthGoals          HealthGoals   `json:"healthGoals"`
	KeyMetrics           []KeyMetric   `json:"keyMetrics"`
	Month1Plan           MonthlyPlan   `json:"month1Plan"`
	Month2Plan           MonthlyPlan   `json:"month2Plan"`
	Month3Plan           MonthlyPlan   `json:"month3Plan"`
	WhyStatement         string        `json:"whyStatement"`
	AchievementBenefits  string        `json:"achievementBenefits"`
	MostImportantBenefit string        `json:"mostImportantBenefit"`
	HealthBuddy          string        `json:"healthBuddy"`
	ConnectionMethods    []string      `json:"connectionMethods"`
	FamilySupport        FamilySupport `json:"familySupport"`
	Obstacles            []Obstacle    `json:"obstacles"`
	EmergencyPlan        []string      `json:"emergencyPlan"`
	CheckInDates         CheckInDates  `json:"checkInDates"`
	Apps                 []App         `json:"apps"`
	Equipment            []string      `json:"equipment"`
	LearningResources    []string      `json:"learningResources"`
	WeeklyRewards        string        `json:"weeklyRewards"`
	MonthlyRewards       string        `json:"monthlyRewards"`
	NinetyDayReward      string        `json:"ninetyDayReward"`
	Commitments          []string      `json:"commitments"`
	CompletedAt          *time.Time    `json:"completedAt,omitempty"`
	LastSavedAt          time.Time     `json:"lastSavedAt"`
	CreatedAt            time.Time     `json:"createdAt"`
}

// BlueprintInput is the save payload. CompletedAt, when present, is stored
// verbatim; it is set once on final submission and absent on autosaves.
type BlueprintInput struct {
	UserID               string        `json:"userId"`
	Name                 string        `json:"name"`
	Email                string        `json:"email"`
	HealthGoals          HealthGoals   `json:"healthGoals"`
	KeyMetrics           []KeyMetric   `json:"keyMetrics"`
	Month1Plan           MonthlyPlan   `json:"month1Plan"`
	Month2Plan           MonthlyPlan   `json:"month2Plan"`
	Month3Plan           MonthlyPlan   `json:"month3Plan"`
	WhyStatement         string        `json:"whyStatement"`
	AchievementBenefits  string        `json:"achievementBenefits"`
	MostImportantBenefit string        `json:"mostImportantBenefit"`
	HealthBuddy          string        `json:"healthBuddy"`
	ConnectionMethods    []string      `json:"connectionMethods"`
	FamilySupport        FamilySupport `json:"familySupport"`
	Obstacles            []Obstacle    `json:"obstacles"`
	EmergencyPlan        []string      `json:"emergencyPlan"`
	CheckInDates         CheckInDates  `json:"checkInDates"`
	Apps                 []App         `json:"apps"`
	Equipment            []string      `json:"equipment"`
	LearningResources    []string      `json:"learningResources"`
	WeeklyRewards        string        `json:"weeklyRewards"`
	MonthlyRewards       string        `json:"monthlyRewards"`
	NinetyDayReward      string        `json:"ninetyDayReward"`
	Commitments          []string      `json:"commitments"`
	CompletedAt          *time.Time    `json:"completedAt,omitempty"`
}

// FieldError describes a single schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries all schema violations found in a payload. Nothing
// is persisted when a save fails validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("invalid blueprint payload: %s", strings.Join(names, ", "))
}

// Validate checks the payload against the blueprint schema. Required:
// userId, name, a plausible email, and every list field present (an empty
// list is fine, a missing one is not). Returns *ValidationError on failure.
func (in *BlueprintInput) Validate() error {
	var fields []FieldError

	if strings.TrimSpace(in.UserID) == "" {
		fields = append(fields, FieldError{"userId", "is required"})
	}
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, FieldError{"name", "is required"})
	}
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		fields = append(fields, FieldError{"email", "must be a valid email address"})
	}

	lists := []struct {
		name    string
		missing bool
	}{
		{"keyMetrics", in.KeyMetrics == nil},
		{"connectionMethods", in.ConnectionMethods == nil},
		{"obstacles", in.Obstacles == nil},
		{"emergencyPlan", in.EmergencyPlan == nil},
		{"apps", in.Apps == nil},
		{"equipment", in.Equipment == nil},
		{"learningResources", in.LearningResources == nil},
		{"commitments", in.Commitments == nil},
	}
	for _, f := range lists {
		if f.missing {
			fields = append(fields, FieldError{f.name, "is required"})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
