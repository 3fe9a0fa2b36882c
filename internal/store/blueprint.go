package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dapperAuteur/my-health-blueprint/internal/model"
)

type BlueprintStore struct {
	db *sql.DB
}

func NewBlueprintStore(db *sql.DB) *BlueprintStore {
	return &BlueprintStore{db: db}
}

const blueprintCols = `id, user_id, name, email, goal1, goal2, goal3, key_metrics,
	month1_plan, month2_plan, month3_plan, why_statement, achievement_benefits,
	most_important_benefit, health_buddy, connection_methods, family_support,
	obstacles, emergency_plan, check_in_dates, apps, equipment, learning_resources,
	weekly_rewards, monthly_rewards, ninety_day_reward, commitments,
	completed_at, last_saved_at, created_at`

func scanBlueprint(scanner interface{ Scan(...any) error }) (*model.Blueprint, error) {
	var b model.Blueprint
	var keyMetrics, month1, month2, month3 []byte
	var connectionMethods, familySupport, obstacles, emergencyPlan []byte
	var checkInDates, apps, equipment, learningResources, commitments []byte
	var completedAt sql.NullTime

	err := scanner.Scan(
		&b.ID, &b.UserID, &b.Name, &b.Email,
		&b.HealthGoals.Goal1, &b.HealthGoals.Goal2, &b.HealthGoals.Goal3,
		&keyMetrics, &month1, &month2, &month3,
		&b.WhyStatement, &b.AchievementBenefits, &b.MostImportantBenefit,
		&b.HealthBuddy, &connectionMethods, &familySupport, &obstacles,
		&emergencyPlan, &checkInDates, &apps, &equipment, &learningResources,
		&b.WeeklyRewards, &b.MonthlyRewards, &b.NinetyDayReward, &commitments,
		&completedAt, &b.LastSavedAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		data []byte
		dst  any
	}{
		{keyMetrics, &b.KeyMetrics},
		{month1, &b.Month1Plan},
		{month2, &b.Month2Plan},
		{month3, &b.Month3Plan},
		{connectionMethods, &b.ConnectionMethods},
		{familySupport, &b.FamilySupport},
		{obstacles, &b.Obstacles},
		{emergencyPlan, &b.EmergencyPlan},
		{checkInDates, &b.CheckInDates},
		{apps, &b.Apps},
		{equipment, &b.Equipment},
		{learningResources, &b.LearningResources},
		{commitments, &b.Commitments},
	} {
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return nil, fmt.Errorf("decode blueprint column: %w", err)
		}
	}

	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	return &b, nil
}

// GetByUserID returns the owner's blueprint, or nil if none has been saved
// yet. The three goal columns come back recombined into HealthGoals.
func (s *BlueprintStore) GetByUserID(userID string) (*model.Blueprint, error) {
	row := s.db.QueryRow(`SELECT `+blueprintCols+` FROM blueprints WHERE user_id = ?`, userID)
	b, err := scanBlueprint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blueprint by user: %w", err)
	}
	return b, nil
}

// Upsert saves the whole payload for its owner: the first save inserts, every
// later save replaces all fields and sets last_saved_at to now. completed_at
// is stored verbatim from the input. Concurrent saves apply in arrival order
// and the last write wins in full; the single statement keeps each replace
// atomic.
func (s *BlueprintStore) Upsert(in *model.BlueprintInput) (*model.Blueprint, error) {
	cols := map[string]any{}
	for name, v := range map[string]any{
		"key_metrics":        in.KeyMetrics,
		"month1_plan":        in.Month1Plan,
		"month2_plan":        in.Month2Plan,
		"month3_plan":        in.Month3Plan,
		"connection_methods": in.ConnectionMethods,
		"family_support":     in.FamilySupport,
		"obstacles":          in.Obstacles,
		"emergency_plan":     in.EmergencyPlan,
		"check_in_dates":     in.CheckInDates,
		"apps":               in.Apps,
		"equipment":          in.Equipment,
		"learning_resources": in.LearningResources,
		"commitments":        in.Commitments,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		cols[name] = string(data)
	}

	var completedAt sql.NullTime
	if in.CompletedAt != nil {
		completedAt = sql.NullTime{Time: in.CompletedAt.UTC(), Valid: true}
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO blueprints (
			id, user_id, name, email, goal1, goal2, goal3, key_metrics,
			month1_plan, month2_plan, month3_plan, why_statement,
			achievement_benefits, most_important_benefit, health_buddy,
			connection_methods, family_support, obstacles, emergency_plan,
			check_in_dates, apps, equipment, learning_resources,
			weekly_rewards, monthly_rewards, ninety_day_reward, commitments,
			completed_at, last_saved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			goal1 = excluded.goal1,
			goal2 = excluded.goal2,
			goal3 = excluded.goal3,
			key_metrics = excluded.key_metrics,
			month1_plan = excluded.month1_plan,
			month2_plan = excluded.month2_plan,
			month3_plan = excluded.month3_plan,
			why_statement = excluded.why_statement,
			achievement_benefits = excluded.achievement_benefits,
			most_important_benefit = excluded.most_important_benefit,
			health_buddy = excluded.health_buddy,
			connection_methods = excluded.connection_methods,
			family_support = excluded.family_support,
			obstacles = excluded.obstacles,
			emergency_plan = excluded.emergency_plan,
			check_in_dates = excluded.check_in_dates,
			apps = excluded.apps,
			equipment = excluded.equipment,
			learning_resources = excluded.learning_resources,
			weekly_rewards = excluded.weekly_rewards,
			monthly_rewards = excluded.monthly_rewards,
			ninety_day_reward = excluded.ninety_day_reward,
			commitments = excluded.commitments,
			completed_at = excluded.completed_at,
			last_saved_at = excluded.last_saved_at`,
		id, in.UserID, in.Name, in.Email,
		in.HealthGoals.Goal1, in.HealthGoals.Goal2, in.HealthGoals.Goal3,
		cols["key_metrics"], cols["month1_plan"], cols["month2_plan"], cols["month3_plan"],
		in.WhyStatement, in.AchievementBenefits, in.MostImportantBenefit, in.HealthBuddy,
		cols["connection_methods"], cols["family_support"], cols["obstacles"],
		cols["emergency_plan"], cols["check_in_dates"], cols["apps"],
		cols["equipment"], cols["learning_resources"],
		in.WeeklyRewards, in.MonthlyRewards, in.NinetyDayReward, cols["commitments"],
		completedAt, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert blueprint: %w", err)
	}

	return s.GetByUserID(in.UserID)
}
