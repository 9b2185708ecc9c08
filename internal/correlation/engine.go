package correlation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"whatsapp-api/internal/correlation/matchers"
	"whatsapp-api/internal/logx"
	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/internal/tenant"
)

// Request is one correlation attempt's input, per spec §4.9.
type Request struct {
	WAPhone          string
	WAContactName    *string
	MessageTimestamp *time.Time
	MessageContent   *string
	UserAgent        *string
}

// Options configures a correlation attempt, defaulting per spec §4.9.
type Options struct {
	AutoVerifyThreshold    float64
	MinConfidenceThreshold float64
	EnableBehavioral       bool
	EnableJourneyMapping   bool
	BatchSize              int
	// DefaultCountryCode resolves a WA phone with no '+' prefix to an E.164
	// calling code, per spec §4.7's fixed map. Empty means no deployment
	// default is configured and such numbers get no calling code prefix.
	DefaultCountryCode string
}

// DefaultOptions mirrors spec §4.9's defaults.
func DefaultOptions() Options {
	return Options{AutoVerifyThreshold: 0.90, MinConfidenceThreshold: 0.40, EnableBehavioral: true, EnableJourneyMapping: false, BatchSize: 10}
}

// Result is what a correlation attempt produces, per spec §4.9.
type Result struct {
	Created       bool
	CorrelationID string
	Score         Score
}

// JourneyBuilder is the narrow interface the engine calls into without
// importing the journey package directly (it only needs "don't fail the
// correlation on journey errors").
type JourneyBuilder interface {
	BuildAndLog(ctx context.Context, umamiUserID string) error
}

// Engine is the single correlation orchestrator, per spec §4.9.
type Engine struct {
	store   *storage.Gateway
	verify  *VerificationManager
	journey JourneyBuilder
	log     *logx.Logger

	phone      *matchers.PhoneMatcher
	email      *matchers.EmailMatcher
	session    *matchers.SessionMatcher
	behavioral *matchers.BehavioralMatcher
}

// NewEngine builds an Engine. journey may be nil when journey mapping is
// disabled entirely.
func NewEngine(store *storage.Gateway, verify *VerificationManager, journey JourneyBuilder, log *logx.Logger) *Engine {
	return &Engine{
		store:      store,
		verify:     verify,
		journey:    journey,
		log:        log,
		phone:      matchers.NewPhoneMatcher(),
		email:      matchers.NewEmailMatcher(),
		session:    matchers.NewSessionMatcher(),
		behavioral: matchers.NewBehavioralMatcher(),
	}
}

// Correlate runs one correlation attempt end to end, per spec §4.9's
// steps 1-7.
func (e *Engine) Correlate(ctx context.Context, req Request, opts Options) (Result, error) {
	tc := tenant.MustFromContext(ctx)
	// Classification thresholds are independent of opts.AutoVerifyThreshold:
	// "high" stays at DefaultThresholds.High (0.85) so a 0.85-0.90 score still
	// classifies as high and skips manual verification. AutoVerifyThreshold
	// (0.90) only gates row.Verified below.
	th := Thresholds{High: DefaultThresholds.High, Medium: DefaultThresholds.Medium, Low: opts.MinConfidenceThreshold}

	var existing models.UserIdentityCorrelation
	var hasExisting bool
	err := e.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		err := tx.Where("team_id = ? AND wa_phone = ? AND is_active = true", tc.TeamID, req.WAPhone).
			Order("confidence_score DESC").First(&existing).Error
		if err == nil {
			hasExisting = true
			return nil
		}
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var allEvidence [][]matchers.Evidence
	err = e.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		phoneEv, err := e.phone.Match(ctx, tx, tc.TeamID, req.WAPhone, opts.DefaultCountryCode)
		if err != nil {
			return err
		}
		allEvidence = append(allEvidence, phoneEv)

		if req.MessageContent != nil {
			for _, addr := range matchers.ExtractEmails(*req.MessageContent, 3) {
				emailEv, err := e.email.Match(ctx, tx, tc.TeamID, addr)
				if err != nil {
					return err
				}
				allEvidence = append(allEvidence, emailEv)
			}
		}

		if req.MessageTimestamp != nil {
			if req.UserAgent != nil {
				sessEv, err := e.session.MatchWithUserAgent(ctx, tx, tc.TeamID, *req.MessageTimestamp, *req.UserAgent)
				if err != nil {
					return err
				}
				allEvidence = append(allEvidence, sessEv)
			} else {
				sessEv, err := e.session.Match(ctx, tx, tc.TeamID, *req.MessageTimestamp)
				if err != nil {
					return err
				}
				allEvidence = append(allEvidence, sessEv)
			}
		}

		if opts.EnableBehavioral {
			behavEv, err := e.behavioral.Match(ctx, tx, tc.TeamID, req.WAPhone)
			if err != nil {
				return err
			}
			allEvidence = append(allEvidence, behavEv)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	score := Combine(allEvidence, th)
	if score.Value < opts.MinConfidenceThreshold {
		return Result{Created: false}, nil
	}

	umamiUserID, umamiSessionID := bestIdentity(allEvidence)

	var row models.UserIdentityCorrelation
	isNew := !hasExisting
	if hasExisting {
		row = existing
	} else {
		row = models.UserIdentityCorrelation{TeamID: tc.TeamID, WAPhone: req.WAPhone, UserConsent: true, IsActive: true}
	}
	row.WAContactName = req.WAContactName
	row.ConfidenceScore = score.Value
	row.Method = models.CorrelationMethod(score.Method)
	row.Evidence = evidenceToJSON(allEvidence)
	row.Verified = score.Value >= opts.AutoVerifyThreshold
	row.IsActive = true
	if umamiUserID != "" {
		row.UmamiUserID = &umamiUserID
	}
	if umamiSessionID != "" {
		row.UmamiSessionID = &umamiSessionID
	}

	err = e.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if isNew {
			return tx.Create(&row).Error
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return Result{}, err
	}

	if NeedsManualVerification(score.Value, th) && isNew {
		priority := priorityFromScore(score.Value)
		if err := e.verify.QueueForVerification(ctx, row.ID.String(), "low_confidence_auto_match", priority); err != nil {
			e.log.Warn("correlation: enqueue verification for %s: %v", row.ID, err)
		}
	}

	if opts.EnableJourneyMapping && e.journey != nil && umamiUserID != "" {
		if err := e.journey.BuildAndLog(ctx, umamiUserID); err != nil {
			e.log.Warn("correlation: journey mapping for %s: %v", umamiUserID, err)
		}
	}

	return Result{Created: true, CorrelationID: row.ID.String(), Score: score}, nil
}

// priorityFromScore maps a score to a verification queue priority, per
// spec §4.9's table.
func priorityFromScore(score float64) int {
	switch {
	case score >= 0.8:
		return 3
	case score >= 0.7:
		return 5
	case score >= 0.6:
		return 7
	case score >= 0.5:
		return 8
	default:
		return 10
	}
}

// bestIdentity picks (umamiUserId, umamiSessionId) by evidence priority
// order phone > email > session > ml_model > user_agent, per spec §4.9.
func bestIdentity(results [][]matchers.Evidence) (userID, sessionID string) {
	priority := []string{"phone", "email", "session", "ml_model", "user_agent"}
	for _, method := range priority {
		for _, set := range results {
			for _, e := range set {
				if !e.Matched || e.Method != method {
					continue
				}
				if uid, ok := e.Data["umami_user_id"].(string); ok && uid != "" {
					userID = uid
				}
				if sid, ok := e.Data["umami_session_id"].(string); ok && sid != "" {
					sessionID = sid
				}
				if userID != "" || sessionID != "" {
					return
				}
			}
		}
	}
	return
}

func evidenceToJSON(results [][]matchers.Evidence) models.JSONMap {
	flat := make([]map[string]interface{}, 0)
	for _, set := range results {
		for _, e := range set {
			flat = append(flat, map[string]interface{}{
				"method": e.Method, "matched": e.Matched, "weight": e.Weight, "quality": e.Quality, "data": e.Data,
			})
		}
	}
	return models.JSONMap{"matches": flat}
}

// BatchResult pairs a request with its settled outcome.
type BatchResult struct {
	Request Request
	Result  Result
	Err     error
}

// CorrelateBatch runs requests concurrently in chunks of opts.BatchSize
// using an errgroup per chunk, per spec §4.9; one request's failure never
// fails the batch or cancels its siblings.
func (e *Engine) CorrelateBatch(ctx context.Context, requests []Request, opts Options) []BatchResult {
	out := make([]BatchResult, len(requests))
	chunkSize := opts.BatchSize
	if chunkSize <= 0 {
		chunkSize = 10
	}
	for start := 0; start < len(requests); start += chunkSize {
		end := start + chunkSize
		if end > len(requests) {
			end = len(requests)
		}
		chunk := requests[start:end]
		g, gctx := errgroup.WithContext(ctx)
		for i, req := range chunk {
			idx := start + i
			req := req
			g.Go(func() error {
				res, err := e.Correlate(gctx, req, opts)
				out[idx] = BatchResult{Request: req, Result: res, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}
