// Package admin holds the privileged action registry and the tool-calling
// agent that drives it.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/content"
	"github.com/shiksha-ai/study-engine/pkg/llm"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/settings"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// Interaction is one logged agent exchange.
type Interaction struct {
	Command  string    `json:"command"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// Registry is the closed set of privileged operations. Every action takes
// JSON arguments and returns a human-readable confirmation, so a
// tool-calling model can drive any of them through ExecuteTool.
type Registry struct {
	store     store.Store
	settings  settings.Service
	generator *content.Generator
	syllabus  *content.Syllabus
	logger    *zap.Logger
}

// NewRegistry wires the admin action registry.
func NewRegistry(st store.Store, settingsSvc settings.Service, generator *content.Generator, syllabus *content.Syllabus, logger *zap.Logger) *Registry {
	return &Registry{
		store:     st,
		settings:  settingsSvc,
		generator: generator,
		syllabus:  syllabus,
		logger:    logger.Named("admin"),
	}
}

// findUser resolves a user id against the live store first, then falls back
// to scanning the user keyspace. Never silently no-ops: an unresolvable id
// is a descriptive error.
func (r *Registry) findUser(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	found, err := store.GetTyped(ctx, r.store, store.UserKey(userID), user)
	if err != nil {
		r.logger.Warn("Direct user read failed, falling back to scan",
			zap.String("user_id", userID), zap.Error(err))
	}
	if found {
		return user, nil
	}

	keys, err := r.store.ListKeys(ctx, store.UserKeyPrefix())
	if err != nil {
		return nil, fmt.Errorf("user %q not found and scan failed: %w", userID, err)
	}
	for _, key := range keys {
		candidate := &models.User{}
		if ok, _ := store.GetTyped(ctx, r.store, key, candidate); !ok {
			continue
		}
		if candidate.ID == userID || strings.EqualFold(candidate.Email, userID) {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("no user found with id or email %q", userID)
}

func (r *Registry) saveUser(ctx context.Context, user *models.User) error {
	return r.store.SetDocument(ctx, store.UserKey(user.ID), user)
}

// DeleteUser removes a user document.
func (r *Registry) DeleteUser(ctx context.Context, userID string) (string, error) {
	user, err := r.findUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := r.store.DeleteDocument(ctx, store.UserKey(user.ID)); err != nil {
		return "", fmt.Errorf("failed to delete user %s: %w", user.ID, err)
	}
	r.logger.Info("User deleted", zap.String("user_id", user.ID))
	return fmt.Sprintf("Deleted user %s (%s).", user.Name, user.ID), nil
}

// UpdateUser sets one mutable field on a user.
func (r *Registry) UpdateUser(ctx context.Context, userID, field string, value string) (string, error) {
	user, err := r.findUser(ctx, userID)
	if err != nil {
		return "", err
	}

	switch field {
	case "name":
		user.Name = value
	case "email":
		user.Email = value
	case "credits":
		var credits int
		if _, err := fmt.Sscanf(value, "%d", &credits); err != nil {
			return "", fmt.Errorf("credits must be a number, got %q", value)
		}
		user.Credits = credits
	case "role":
		role := models.Role(strings.ToUpper(value))
		if role != models.RoleAdmin && role != models.RoleStudent {
			return "", fmt.Errorf("unknown role %q", value)
		}
		user.Role = role
	default:
		return "", fmt.Errorf("field %q is not updatable", field)
	}

	if err := r.saveUser(ctx, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("Updated %s of user %s to %q.", field, user.ID, value), nil
}

// BanUser locks a user's account.
func (r *Registry) BanUser(ctx context.Context, userID string) (string, error) {
	return r.setLocked(ctx, userID, true)
}

// UnbanUser unlocks a user's account.
func (r *Registry) UnbanUser(ctx context.Context, userID string) (string, error) {
	return r.setLocked(ctx, userID, false)
}

func (r *Registry) setLocked(ctx context.Context, userID string, locked bool) (string, error) {
	user, err := r.findUser(ctx, userID)
	if err != nil {
		return "", err
	}
	user.IsLocked = locked
	if err := r.saveUser(ctx, user); err != nil {
		return "", err
	}
	verb := "unbanned"
	if locked {
		verb = "banned"
	}
	return fmt.Sprintf("User %s (%s) has been %s.", user.Name, user.ID, verb), nil
}

// GrantSubscription grants a paid plan at a level and records it in the
// user's subscription history.
func (r *Registry) GrantSubscription(ctx context.Context, userID string, plan models.SubscriptionPlan, level models.SubscriptionLevel) (string, error) {
	if plan.Duration() == 0 {
		return "", fmt.Errorf("unknown plan %q", plan)
	}
	if level != models.LevelBasic && level != models.LevelUltra {
		return "", fmt.Errorf("subscription level must be BASIC or ULTRA, got %q", level)
	}

	user, err := r.findUser(ctx, userID)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	end := now.Add(plan.Duration())
	user.IsPremium = true
	user.SubscriptionLevel = level
	user.SubscriptionPlan = plan
	user.SubscriptionEnd = &end
	user.History = append(user.History, models.SubscriptionEvent{
		Plan:      plan,
		Level:     level,
		GrantedAt: now,
		ExpiresAt: end,
		GrantedBy: "admin",
	})

	if err := r.saveUser(ctx, user); err != nil {
		return "", err
	}
	r.logger.Info("Subscription granted",
		zap.String("user_id", user.ID),
		zap.String("plan", string(plan)),
		zap.String("level", string(level)))
	return fmt.Sprintf("Granted %s %s subscription to %s until %s.",
		level, plan, user.Name, end.Format("2 Jan 2006")), nil
}

// BroadcastMessage sets the app-wide notice text shown to every user.
func (r *Registry) BroadcastMessage(ctx context.Context, text string) (string, error) {
	if _, err := r.settings.Update(ctx, func(s *models.SystemSettings) {
		s.NoticeText = text
	}); err != nil {
		return "", err
	}
	return "Notice published to all users.", nil
}

// SendInboxMessage appends a message to one user's inbox.
func (r *Registry) SendInboxMessage(ctx context.Context, userID, text string) (string, error) {
	user, err := r.findUser(ctx, userID)
	if err != nil {
		return "", err
	}
	user.Inbox = append(user.Inbox, models.InboxMessage{
		ID:   uuid.NewString(),
		Text: text,
		Type: "admin",
		Date: time.Now().UTC(),
	})
	if err := r.saveUser(ctx, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("Message delivered to %s's inbox.", user.Name), nil
}

// weeklyTestCount sizes a test by subject: quantitative subjects get fewer,
// reading-heavy ones more.
func weeklyTestCount(subject string) int {
	lower := strings.ToLower(subject)
	switch {
	case strings.Contains(lower, "math"):
		return 20
	case strings.Contains(lower, "social"):
		return 50
	case strings.Contains(lower, "science"):
		return 30
	}
	return 20
}

// CreateWeeklyTest generates a question paper for a class and subject and
// publishes it with a one-week expiry. Fails hard when no questions could
// be produced.
func (r *Registry) CreateWeeklyTest(ctx context.Context, board models.Board, class models.ClassLevel, subjectName, title string) (string, error) {
	var subject *models.Subject
	for _, sub := range r.syllabus.SubjectsFor(class, "") {
		if strings.EqualFold(sub.Name, subjectName) {
			s := sub
			subject = &s
			break
		}
	}
	if subject == nil {
		return "", fmt.Errorf("subject %q is not taught in class %s", subjectName, class)
	}

	chapters := r.syllabus.Chapters(ctx, board, class, "", *subject, models.LanguageEnglish)
	if len(chapters) == 0 {
		return "", fmt.Errorf("no chapters available for %s class %s", subjectName, class)
	}

	count := weeklyTestCount(subject.Name)
	var questions []models.MCQItem

	// Pull from random chapters until the paper is full, with a bounded
	// number of attempts so a flaky model cannot spin forever.
	for attempt := 0; attempt < 5 && len(questions) < count; attempt++ {
		chapter := chapters[rand.Intn(len(chapters))]
		lesson, err := r.generator.ResolveOrGenerate(ctx, content.Request{
			Target:          content.Target{Board: board, Class: class, Subject: *subject, Chapter: chapter},
			Type:            models.MCQSimple,
			Language:        models.LanguageEnglish,
			Mode:            models.ModeSchool,
			QuestionCount:   count - len(questions),
			AllowGeneration: true,
			ForceRegenerate: true,
		})
		if err != nil {
			r.logger.Warn("Weekly test batch failed",
				zap.String("chapter", chapter.Title), zap.Error(err))
			continue
		}
		questions = append(questions, lesson.MCQ...)
		questions = dedupeQuestions(questions)
	}

	if len(questions) == 0 {
		return "", fmt.Errorf("could not generate any questions for the weekly test")
	}
	if len(questions) > count {
		questions = questions[:count]
	}

	if title == "" {
		title = fmt.Sprintf("%s Weekly Test - Class %s", subject.Name, class)
	}
	now := time.Now().UTC()
	test := models.WeeklyTest{
		ID:        uuid.NewString(),
		Title:     title,
		Class:     class,
		Subject:   subject.Name,
		Questions: questions,
		CreatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}

	if _, err := r.settings.Update(ctx, func(s *models.SystemSettings) {
		s.WeeklyTests = append(s.WeeklyTests, test)
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Published %q with %d questions.", title, len(questions)), nil
}

func dedupeQuestions(items []models.MCQItem) []models.MCQItem {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if seen[item.Question] {
			continue
		}
		seen[item.Question] = true
		out = append(out, item)
	}
	return out
}

// ScanUsers summarizes the user base under a filter.
func (r *Registry) ScanUsers(ctx context.Context, filter string) (string, error) {
	keys, err := r.store.ListKeys(ctx, store.UserKeyPrefix())
	if err != nil {
		return "", fmt.Errorf("user scan failed: %w", err)
	}

	now := time.Now().UTC()
	inactiveCutoff := now.Add(-30 * 24 * time.Hour)

	var lines []string
	for _, key := range keys {
		user := &models.User{}
		if ok, _ := store.GetTyped(ctx, r.store, key, user); !ok {
			continue
		}

		switch strings.ToUpper(filter) {
		case "PREMIUM":
			if !user.HasValidSubscription(now) {
				continue
			}
		case "FREE":
			if user.HasValidSubscription(now) {
				continue
			}
		case "INACTIVE":
			if user.LastActive != nil && user.LastActive.After(inactiveCutoff) {
				continue
			}
		case "", "ALL":
		default:
			return "", fmt.Errorf("unknown filter %q, use ALL, PREMIUM, FREE or INACTIVE", filter)
		}
		lines = append(lines, fmt.Sprintf("%s (%s) level=%s credits=%d",
			user.Name, user.ID, user.EffectiveLevel(), user.Credits))
	}

	if len(lines) == 0 {
		return "No users matched the filter.", nil
	}
	return fmt.Sprintf("%d users:\n%s", len(lines), strings.Join(lines, "\n")), nil
}

// UpdateSystemSettings sets one named settings field.
func (r *Registry) UpdateSystemSettings(ctx context.Context, field, value string) (string, error) {
	var applyErr error
	_, err := r.settings.Update(ctx, func(s *models.SystemSettings) {
		switch field {
		case "aiModel":
			s.AIModel = value
		case "aiInstruction":
			s.AIInstruction = value
		case "noticeText":
			s.NoticeText = value
		case "safetyLock":
			s.AISafetyLock = strings.EqualFold(value, "true")
		case "autoPilotEnabled":
			s.IsAutoPilotEnabled = strings.EqualFold(value, "true")
		case "accessTier":
			s.AccessTier = models.AccessTier(value)
		case "pilotRatio":
			var ratio int
			if _, err := fmt.Sscanf(value, "%d", &ratio); err != nil {
				applyErr = fmt.Errorf("pilotRatio must be a number, got %q", value)
				return
			}
			s.AIPilotRatio = ratio
		case "dailyLimitPerKey":
			var limit int
			if _, err := fmt.Sscanf(value, "%d", &limit); err != nil {
				applyErr = fmt.Errorf("dailyLimitPerKey must be a number, got %q", value)
				return
			}
			s.AIDailyLimitKey = limit
		default:
			applyErr = fmt.Errorf("unknown settings field %q", field)
		}
	})
	if applyErr != nil {
		return "", applyErr
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Settings updated: %s = %q.", field, value), nil
}

// PublishDailyChallenge generates and publishes today's challenge for one
// board and class.
func (r *Registry) PublishDailyChallenge(ctx context.Context, board models.Board, class models.ClassLevel) (string, error) {
	subjects := r.syllabus.SubjectsFor(class, "")
	if len(subjects) == 0 {
		return "", fmt.Errorf("no subjects for class %s", class)
	}
	subject := subjects[rand.Intn(len(subjects))]
	chapters := r.syllabus.Chapters(ctx, board, class, "", subject, models.LanguageEnglish)
	if len(chapters) == 0 {
		return "", fmt.Errorf("no chapters for %s class %s", subject.Name, class)
	}

	lesson, err := r.generator.ResolveOrGenerate(ctx, content.Request{
		Target:          content.Target{Board: board, Class: class, Subject: subject, Chapter: chapters[rand.Intn(len(chapters))]},
		Type:            models.MCQSimple,
		Language:        models.LanguageEnglish,
		Mode:            models.ModeSchool,
		AllowGeneration: true,
		ForceRegenerate: true,
	})
	if err != nil {
		return "", fmt.Errorf("challenge generation failed: %w", err)
	}
	if len(lesson.MCQ) == 0 {
		return "", fmt.Errorf("no question generated for the challenge")
	}

	challenge := models.DailyChallenge{
		ID:       uuid.NewString(),
		Board:    board,
		Class:    class,
		Question: lesson.MCQ[0],
		Date:     time.Now().UTC().Format("2006-01-02"),
	}
	if _, err := r.settings.Update(ctx, func(s *models.SystemSettings) {
		s.DailyChallenges = append(s.DailyChallenges, challenge)
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Daily challenge published for %s class %s.", board, class), nil
}

// LogInteraction appends an agent exchange to the shared interaction log,
// keeping the most recent fifty entries.
// GenerateMorningInsight digests the last day of analysis logs into the
// banner students see on the home screen.
func (r *Registry) GenerateMorningInsight(ctx context.Context) (string, error) {
	var logs []models.AnalysisLog
	if _, err := store.GetTyped(ctx, r.store, store.AnalysisLogKey, &logs); err != nil {
		return "", fmt.Errorf("failed to read analysis logs: %w", err)
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	var recent []models.AnalysisLog
	for _, l := range logs {
		if l.Date.After(cutoff) {
			recent = append(recent, l)
		}
	}
	if len(recent) == 0 {
		return "No recent activity to analyze.", nil
	}
	// Cap the sample so the prompt stays within the context window.
	if len(recent) > 50 {
		recent = recent[:50]
	}

	banner, err := r.generator.GenerateMorningInsight(ctx, recent)
	if err != nil {
		return "", err
	}
	if _, err := r.settings.Update(ctx, func(s *models.SystemSettings) {
		s.MorningBanner = banner
	}); err != nil {
		return "", fmt.Errorf("failed to publish morning insight: %w", err)
	}

	r.logger.Info("Morning insight published",
		zap.String("title", banner.Title),
		zap.Int("samples", len(recent)))
	return fmt.Sprintf("Morning insight %q published.", banner.Title), nil
}

func (r *Registry) LogInteraction(ctx context.Context, entry Interaction) error {
	var log []Interaction
	if _, err := store.GetTyped(ctx, r.store, store.AdminLogKey, &log); err != nil {
		r.logger.Warn("Interaction log read failed, starting fresh", zap.Error(err))
		log = nil
	}
	log = append(log, entry)
	if len(log) > 50 {
		log = log[len(log)-50:]
	}
	return r.store.SetDocument(ctx, store.AdminLogKey, log)
}

// RecentLogs returns the last n logged interactions, newest last.
func (r *Registry) RecentLogs(ctx context.Context, n int) ([]Interaction, error) {
	var log []Interaction
	if _, err := store.GetTyped(ctx, r.store, store.AdminLogKey, &log); err != nil {
		return nil, err
	}
	if n > 0 && len(log) > n {
		log = log[len(log)-n:]
	}
	return log, nil
}

// ExecuteTool dispatches a named action with JSON arguments. Implements
// llm.ToolExecutor.
func (r *Registry) ExecuteTool(ctx context.Context, name string, arguments string) (string, error) {
	var args struct {
		UserID  string `json:"userId"`
		Field   string `json:"field"`
		Value   string `json:"value"`
		Text    string `json:"text"`
		Plan    string `json:"plan"`
		Level   string `json:"level"`
		Board   string `json:"board"`
		Class   string `json:"classLevel"`
		Subject string `json:"subject"`
		Title   string `json:"title"`
		Filter  string `json:"filter"`
	}
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("malformed arguments for %s: %w", name, err)
		}
	}

	board := models.Board(args.Board)
	if board == "" {
		board = models.BoardCBSE
	}

	switch name {
	case "deleteUser":
		return r.DeleteUser(ctx, args.UserID)
	case "updateUser":
		return r.UpdateUser(ctx, args.UserID, args.Field, args.Value)
	case "banUser":
		return r.BanUser(ctx, args.UserID)
	case "unbanUser":
		return r.UnbanUser(ctx, args.UserID)
	case "grantSubscription":
		return r.GrantSubscription(ctx, args.UserID,
			models.SubscriptionPlan(strings.ToUpper(args.Plan)),
			models.SubscriptionLevel(strings.ToUpper(args.Level)))
	case "broadcastMessage":
		return r.BroadcastMessage(ctx, args.Text)
	case "sendInboxMessage":
		return r.SendInboxMessage(ctx, args.UserID, args.Text)
	case "createWeeklyTest":
		return r.CreateWeeklyTest(ctx, board, models.ClassLevel(args.Class), args.Subject, args.Title)
	case "scanUsers":
		return r.ScanUsers(ctx, args.Filter)
	case "updateSystemSettings":
		return r.UpdateSystemSettings(ctx, args.Field, args.Value)
	case "publishDailyChallenge":
		return r.PublishDailyChallenge(ctx, board, models.ClassLevel(args.Class))
	case "generateMorningInsight":
		return r.GenerateMorningInsight(ctx)
	}
	return "", fmt.Errorf("unknown tool %q", name)
}

// Tools describes every registry action as a callable tool.
func (r *Registry) Tools() []llm.ToolDefinition {
	userID := llm.ParameterProperty{Type: "string", Description: "User id or email address"}
	return []llm.ToolDefinition{
		llm.NewToolDefinition("deleteUser", "Permanently delete a user account.",
			map[string]llm.ParameterProperty{"userId": userID}, []string{"userId"}),
		llm.NewToolDefinition("updateUser", "Update one field of a user account.",
			map[string]llm.ParameterProperty{
				"userId": userID,
				"field":  {Type: "string", Description: "Field to change", Enum: []string{"name", "email", "credits", "role"}},
				"value":  {Type: "string", Description: "New value"},
			}, []string{"userId", "field", "value"}),
		llm.NewToolDefinition("banUser", "Lock a user out of the app.",
			map[string]llm.ParameterProperty{"userId": userID}, []string{"userId"}),
		llm.NewToolDefinition("unbanUser", "Restore a locked user's access.",
			map[string]llm.ParameterProperty{"userId": userID}, []string{"userId"}),
		llm.NewToolDefinition("grantSubscription", "Grant a paid subscription to a user.",
			map[string]llm.ParameterProperty{
				"userId": userID,
				"plan":   {Type: "string", Description: "Billing period", Enum: []string{"WEEKLY", "MONTHLY", "YEARLY", "LIFETIME"}},
				"level":  {Type: "string", Description: "Subscription level", Enum: []string{"BASIC", "ULTRA"}},
			}, []string{"userId", "plan", "level"}),
		llm.NewToolDefinition("broadcastMessage", "Publish a notice shown to every user.",
			map[string]llm.ParameterProperty{"text": {Type: "string", Description: "Notice text"}}, []string{"text"}),
		llm.NewToolDefinition("sendInboxMessage", "Send a private message to one user's inbox.",
			map[string]llm.ParameterProperty{
				"userId": userID,
				"text":   {Type: "string", Description: "Message text"},
			}, []string{"userId", "text"}),
		llm.NewToolDefinition("createWeeklyTest", "Generate and publish a weekly test for a class and subject.",
			map[string]llm.ParameterProperty{
				"board":      {Type: "string", Description: "Examination board", Enum: []string{"CBSE", "BSEB"}},
				"classLevel": {Type: "string", Description: "Class level, e.g. 9"},
				"subject":    {Type: "string", Description: "Subject name"},
				"title":      {Type: "string", Description: "Optional test title"},
			}, []string{"classLevel", "subject"}),
		llm.NewToolDefinition("scanUsers", "List users matching a filter.",
			map[string]llm.ParameterProperty{
				"filter": {Type: "string", Description: "User filter", Enum: []string{"ALL", "PREMIUM", "FREE", "INACTIVE"}},
			}, []string{"filter"}),
		llm.NewToolDefinition("updateSystemSettings", "Change one global settings field.",
			map[string]llm.ParameterProperty{
				"field": {Type: "string", Description: "Settings field", Enum: []string{"aiModel", "aiInstruction", "noticeText", "safetyLock", "autoPilotEnabled", "accessTier", "pilotRatio", "dailyLimitPerKey"}},
				"value": {Type: "string", Description: "New value"},
			}, []string{"field", "value"}),
		llm.NewToolDefinition("publishDailyChallenge", "Generate and publish today's challenge question.",
			map[string]llm.ParameterProperty{
				"board":      {Type: "string", Description: "Examination board", Enum: []string{"CBSE", "BSEB"}},
				"classLevel": {Type: "string", Description: "Class level, e.g. 9"},
			}, []string{"classLevel"}),
		llm.NewToolDefinition("generateMorningInsight", "Digest the last day of test activity into the morning insight banner.",
			map[string]llm.ParameterProperty{}, nil),
	}
}
