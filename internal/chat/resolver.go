package chat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/careerbridge/chat-service/internal/apperr"
	"github.com/careerbridge/chat-service/internal/models"
	"github.com/careerbridge/chat-service/internal/notify"
	"github.com/careerbridge/chat-service/internal/repository"
)

// Resolver maps a user pair (plus optional job scope) to exactly one
// conversation, creating it on first contact. Creation races between
// concurrent callers are absorbed: the (pair_key, job_id) unique index
// rejects the loser, which then re-reads until the winner's document is
// visible.
type Resolver struct {
	convs  repository.ConversationRepo
	users  repository.UserDirectory
	jobs   repository.JobDirectory
	sink   notify.Sink
	logger *zap.SugaredLogger

	maxAttempts int
	baseDelay   time.Duration
}

func NewResolver(
	convs repository.ConversationRepo,
	users repository.UserDirectory,
	jobs repository.JobDirectory,
	sink notify.Sink,
	logger *zap.SugaredLogger,
	maxAttempts int,
	baseDelay time.Duration,
) *Resolver {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Resolver{
		convs:       convs,
		users:       users,
		jobs:        jobs,
		sink:        sink,
		logger:      logger,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// Resolve returns the single conversation for the unordered pair
// (currentUserID, otherUserID) scoped to jobID ("" means a general
// conversation). Idempotent and symmetric in the user arguments.
func (r *Resolver) Resolve(ctx context.Context, currentUserID, otherUserID, jobID string) (*models.Conversation, error) {
	if currentUserID == "" || otherUserID == "" {
		return nil, apperr.E(apperr.ErrInvalidArgument, "user id required")
	}
	if currentUserID == otherUserID {
		return nil, apperr.E(apperr.ErrInvalidArgument, "cannot start a conversation with yourself")
	}

	// both identities must still exist; a stale token for a deleted
	// account must not mint conversations naming a ghost participant
	for _, uid := range []string{currentUserID, otherUserID} {
		ok, err := r.users.Exists(ctx, uid)
		if err != nil {
			return nil, apperr.Ef(apperr.ErrInternal, "user lookup: %v", err)
		}
		if !ok {
			return nil, apperr.E(apperr.ErrNotFound, "user does not exist")
		}
	}
	if jobID != "" {
		ok, err := r.jobs.Exists(ctx, jobID)
		if err != nil {
			return nil, apperr.Ef(apperr.ErrInternal, "job lookup: %v", err)
		}
		if !ok {
			return nil, apperr.E(apperr.ErrNotFound, "job does not exist")
		}
	}

	pairKey := models.PairKey(currentUserID, otherUserID)

	conv, err := r.convs.FindByPair(ctx, pairKey, jobID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Ef(apperr.ErrInternal, "conversation lookup: %v", err)
	}

	created, err := r.convs.Insert(ctx, &models.Conversation{
		Participants: []string{currentUserID, otherUserID},
		PairKey:      pairKey,
		JobID:        jobID,
	})
	if err == nil {
		r.sink.ConversationCreated(ctx, created, otherUserID)
		return created, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Ef(apperr.ErrInternal, "conversation insert: %v", err)
	}

	// A concurrent resolver won the insert. Its write may not be visible
	// yet, so re-read with backoff instead of failing the caller.
	return r.awaitWinner(ctx, pairKey, jobID)
}

func (r *Resolver) awaitWinner(ctx context.Context, pairKey, jobID string) (*models.Conversation, error) {
	delay := r.baseDelay
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		conv, err := r.convs.FindByPair(ctx, pairKey, jobID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Ef(apperr.ErrInternal, "conversation re-read: %v", err)
		}
		if attempt == r.maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, apperr.Ef(apperr.ErrInternal, "resolve canceled: %v", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	r.logger.Errorw("duplicate conversation never became visible",
		"pair_key", pairKey, "job_id", jobID, "attempts", r.maxAttempts)
	return nil, apperr.E(apperr.ErrInternal, "conversation exists but could not be read back")
}
