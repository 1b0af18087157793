package application

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	repo "github.com/attendly/attendly/internal/domain/repository"
	"github.com/attendly/attendly/internal/portal"
)

// PortalService orchestrates portal operations on top of the low-level client:
// single and batch code validation, planning retrieval, readiness reporting.
type PortalService struct {
	Client     *portal.Client
	Users      repo.UserRepository
	Signatures repo.SignatureRepository
	Notifier   *Notifier
	Logger     *logrus.Logger
}

func NewPortalService(client *portal.Client, users repo.UserRepository, sigs repo.SignatureRepository, notifier *Notifier, logger *logrus.Logger) *PortalService {
	return &PortalService{
		Client:     client,
		Users:      users,
		Signatures: sigs,
		Notifier:   notifier,
		Logger:     logger,
	}
}

func (s *PortalService) randomSignature(ctx context.Context, userID string) (string, error) {
	sigs, err := s.Signatures.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(sigs) == 0 {
		return "", ErrNoSignature
	}
	return pickRandom(sigs).SignatureData, nil
}

// ValidateCode validates a secret code for one user using a randomly chosen
// signature from their collection.
func (s *PortalService) ValidateCode(ctx context.Context, userID, code, planningEventID string) error {
	sig, err := s.randomSignature(ctx, userID)
	if err != nil {
		return err
	}
	return s.Client.ValidateCode(ctx, userID, code, planningEventID, sig)
}

// UserValidationResult is the per-user outcome of a batch validation.
type UserValidationResult struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// MultiValidationInput drives a batch run. Code and PlanningEventID are the
// defaults; the maps override either per user id.
type MultiValidationInput struct {
	UserIDs              []string
	Code                 string
	PlanningEventID      string
	UserCodes            map[string]string
	UserPlanningEventIDs map[string]string
	InitiatedBy          string
}

// MultiValidationResult aggregates a batch run. GlobalSuccess is true only
// when every user succeeded.
type MultiValidationResult struct {
	GlobalSuccess bool                   `json:"global_success"`
	Results       []UserValidationResult `json:"results"`
}

// ValidateMulti runs code validation for each user in order, never aborting
// the batch on individual failures, then reports a summary webhook when at
// least one user succeeded.
func (s *PortalService) ValidateMulti(ctx context.Context, in MultiValidationInput) (*MultiValidationResult, error) {
	results := make([]UserValidationResult, 0, len(in.UserIDs))

	for _, userID := range in.UserIDs {
		u, err := s.Users.GetByID(ctx, userID)
		if err != nil {
			s.Logger.WithField("user_id", userID).Warn("user not found in batch validation")
			results = append(results, UserValidationResult{
				UserID: userID, Username: "<unknown>", Success: false, Message: "User not found",
			})
			continue
		}

		sig, err := s.randomSignature(ctx, u.ID)
		if err != nil {
			results = append(results, UserValidationResult{
				UserID: u.ID, Username: u.Username, Success: false,
				Message: "Signature not set. Please create a signature first.",
			})
			continue
		}

		code := in.Code
		if c, ok := in.UserCodes[u.ID]; ok {
			code = c
		}
		planningEventID := in.PlanningEventID
		if id, ok := in.UserPlanningEventIDs[u.ID]; ok {
			planningEventID = id
		}

		if err := s.Client.ValidateCode(ctx, u.ID, code, planningEventID, sig); err != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"user_id": u.ID, "username": u.Username,
			}).Error("batch code validation failed for user")
			results = append(results, UserValidationResult{
				UserID: u.ID, Username: u.Username, Success: false, Message: err.Error(),
			})
			continue
		}
		results = append(results, UserValidationResult{
			UserID: u.ID, Username: u.Username, Success: true, Message: "Code validé avec succès",
		})
	}

	globalSuccess := true
	var validated []string
	var failed []FailedEntry
	codesSeen := map[string]struct{}{}
	var validatedCodes []string
	for _, r := range results {
		if !r.Success {
			globalSuccess = false
			failed = append(failed, FailedEntry{Username: r.Username, Message: r.Message})
			continue
		}
		validated = append(validated, r.Username)
		code := in.Code
		if c, ok := in.UserCodes[r.UserID]; ok {
			code = c
		}
		if _, ok := codesSeen[code]; !ok {
			codesSeen[code] = struct{}{}
			validatedCodes = append(validatedCodes, code)
		}
	}

	if s.Notifier != nil {
		s.Notifier.NotifyValidation(in.InitiatedBy, globalSuccess, validated, failed, validatedCodes)
	}

	return &MultiValidationResult{GlobalSuccess: globalSuccess, Results: results}, nil
}

// StatusReport describes how ready a user is for code validation.
type StatusReport struct {
	HasSignature        bool `json:"has_signature"`
	HasCookies          bool `json:"has_cookies"`
	HasSavedCredentials bool `json:"has_saved_credentials"`
	IsReady             bool `json:"is_ready"`
}

// Status reports the user's readiness without triggering any portal call.
func (s *PortalService) Status(ctx context.Context, userID string) (*StatusReport, error) {
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		return nil, ErrUserNotFound
	}

	sigs, err := s.Signatures.ListByUser(ctx, userID)
	hasSignature := err == nil && len(sigs) > 0

	hasCookies, err := s.Client.HasValidSession(ctx, userID)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("failed to check stored portal session")
		hasCookies = false
	}

	hasCreds, err := s.Client.HasSavedCredentials(ctx, userID)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("failed to check saved portal credentials")
		hasCreds = false
	}

	return &StatusReport{
		HasSignature:        hasSignature,
		HasCookies:          hasCookies,
		HasSavedCredentials: hasCreds,
		IsReady:             hasSignature && (hasCookies || hasCreds),
	}, nil
}

// EligibleUser is a user ready for batch validation.
type EligibleUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// EligibleUsers returns every user with at least one signature and either a
// live session or saved credentials, sorted by username.
func (s *PortalService) EligibleUsers(ctx context.Context) ([]EligibleUser, error) {
	users, err := s.Users.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]EligibleUser, 0, len(users))
	for _, u := range users {
		sigs, err := s.Signatures.ListByUser(ctx, u.ID)
		if err != nil || len(sigs) == 0 {
			continue
		}
		hasCookies, err := s.Client.HasValidSession(ctx, u.ID)
		if err != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("failed to check portal session for eligibility")
			hasCookies = false
		}
		hasCreds, err := s.Client.HasSavedCredentials(ctx, u.ID)
		if err != nil {
			hasCreds = false
		}
		if hasCookies || hasCreds {
			eligible = append(eligible, EligibleUser{ID: u.ID, Username: u.Username})
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return strings.ToLower(eligible[i].Username) < strings.ToLower(eligible[j].Username)
	})
	return eligible, nil
}

// PlanningEvents returns the portal planning for the given day for one user.
func (s *PortalService) PlanningEvents(ctx context.Context, userID string, date time.Time) ([]portal.PlanningEvent, error) {
	return s.Client.PlanningEvents(ctx, userID, date)
}

// UserPlanningEvents carries one user's planning, or the error that prevented
// fetching it. Per-user failures never abort the batch.
type UserPlanningEvents struct {
	UserID   string                 `json:"user_id"`
	Username string                 `json:"username"`
	Events   []portal.PlanningEvent `json:"events"`
	Error    *string                `json:"error,omitempty"`
}

// PlanningEventsForUsers fetches the day's planning for each user in order.
func (s *PortalService) PlanningEventsForUsers(ctx context.Context, userIDs []string, date time.Time) ([]UserPlanningEvents, error) {
	out := make([]UserPlanningEvents, 0, len(userIDs))
	for _, userID := range userIDs {
		username := "<unknown>"
		if u, err := s.Users.GetByID(ctx, userID); err == nil {
			username = u.Username
		}

		events, err := s.Client.PlanningEvents(ctx, userID, date)
		if err != nil {
			msg := err.Error()
			out = append(out, UserPlanningEvents{
				UserID: userID, Username: username, Events: []portal.PlanningEvent{}, Error: &msg,
			})
			continue
		}
		if events == nil {
			events = []portal.PlanningEvent{}
		}
		out = append(out, UserPlanningEvents{UserID: userID, Username: username, Events: events})
	}
	return out, nil
}

// Login performs a fresh portal login with explicit credentials.
func (s *PortalService) Login(ctx context.Context, userID, email, password string) (string, error) {
	return s.Client.Login(ctx, userID, email, password)
}

// LoginWithSaved reconnects using previously saved credentials.
func (s *PortalService) LoginWithSaved(ctx context.Context, userID string) (string, error) {
	return s.Client.LoginWithSaved(ctx, userID)
}

// SaveCookies stores an externally captured cookie jar as today's session.
func (s *PortalService) SaveCookies(ctx context.Context, userID string, jar portal.Jar) error {
	return s.Client.SaveJar(ctx, userID, jar)
}
