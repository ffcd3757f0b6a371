package service

import (
	"context"
	"fmt"

	"flashmeet/internal/logger"
	"flashmeet/internal/push"
)

// RegisterToken stores the caller's current push token, replacing any
// previous one.
func RegisterToken(participantID, token string) error {
	if participantID == "" {
		return ErrPermissionDenied
	}
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidArgument)
	}
	return tokenRepo.Upsert(participantID, token)
}

// NotifyChatOpen resolves every participant's token in one batched
// lookup, sends one multicast push and prunes tokens the gateway
// reports as permanently invalid. An empty callerID marks a
// system-triggered fan-out (reconciler/worker); any other caller must
// be a current participant.
func NotifyChatOpen(ctx context.Context, meetupID, callerID string) (successCount, failureCount int, err error) {
	meetup, err := GetMeetup(meetupID)
	if err != nil {
		return 0, 0, err
	}

	if callerID != "" && !meetup.ParticipantIDs.Contains(callerID) {
		return 0, 0, ErrPermissionDenied
	}

	tokensByOwner, err := tokenRepo.GetByParticipants(meetup.ParticipantIDs)
	if err != nil {
		return 0, 0, err
	}
	if len(tokensByOwner) == 0 {
		logger.Infof("No push tokens registered for meetup %s", meetupID)
		return 0, 0, nil
	}
	if pushSender == nil {
		logger.Warningf("Push sender not configured, skipping fan-out for meetup %s", meetupID)
		return 0, 0, nil
	}

	tokens := make([]string, 0, len(tokensByOwner))
	owners := make(map[string]string, len(tokensByOwner))
	for owner, token := range tokensByOwner {
		tokens = append(tokens, token)
		owners[token] = owner
	}

	msg := push.Message{
		Title: "Chat room is open!",
		Body:  fmt.Sprintf("The %s chat room is open", meetup.LocationText),
		Data:  map[string]string{"meetupId": meetupID, "type": "chat_open"},
	}

	receipts, err := pushSender.SendMulticast(ctx, tokens, msg)
	if err != nil {
		return 0, 0, err
	}

	for _, r := range receipts {
		if r.OK {
			successCount++
		} else {
			failureCount++
		}
	}

	runAsync("token-prune", func() {
		pruneDeadTokens(receipts, owners)
	})

	logger.Infof("Notifications sent for meetup %s: %d success, %d failed", meetupID, successCount, failureCount)
	return successCount, failureCount, nil
}

// pruneDeadTokens removes registrations whose delivery failed with the
// gateway's permanent-invalid signal. Best effort: a failed removal is
// logged and retried never; the next fan-out will report the token
// again.
func pruneDeadTokens(receipts []push.Receipt, owners map[string]string) {
	removed := 0
	for _, r := range receipts {
		if !r.PermanentFailure() {
			continue
		}
		owner, ok := owners[r.Token]
		if !ok {
			continue
		}
		if err := tokenRepo.Remove(owner); err != nil {
			logger.Warningf("Failed to remove dead token for %s: %v", owner, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Infof("Pruned %d invalid push tokens", removed)
	}
}
