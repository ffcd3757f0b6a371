package service

import (
	"errors"
	"fmt"

	"flashmeet/internal/logger"
	"flashmeet/internal/models"

	"gorm.io/gorm"
)

// Reportable content types.
const (
	ContentTypeMeetup  = "meetup"
	ContentTypeMessage = "message"
)

// ReportContent files a moderation report against a meetup or a chat
// message. The underlying transaction dedups by reporter and deletes
// the record once the threshold is reached. Cascading cleanup of a
// deleted meetup's messages is left to the garbage collector.
func ReportContent(contentType, contentID, parentID, reporterID string) (models.ReportOutcome, error) {
	var outcome models.ReportOutcome

	if reporterID == "" {
		return outcome, ErrPermissionDenied
	}
	if contentID == "" {
		return outcome, fmt.Errorf("%w: contentId is required", ErrInvalidArgument)
	}

	var err error
	switch contentType {
	case ContentTypeMeetup:
		outcome, err = meetupRepo.Report(contentID, reporterID)
	case ContentTypeMessage:
		if parentID == "" {
			return outcome, fmt.Errorf("%w: message reports require parentId", ErrInvalidArgument)
		}
		outcome, err = messageRepo.Report(parentID, contentID, reporterID)
	default:
		return outcome, fmt.Errorf("%w: contentType must be meetup or message", ErrInvalidArgument)
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return outcome, ErrNotFound
		}
		return outcome, err
	}

	if outcome.Deleted {
		logger.Infof("Content removed by report threshold: %s %s (%d reports)", contentType, contentID, outcome.ReportCount)
		count := outcome.ReportCount
		runAsync("moderation-alert", func() {
			alertNotifier.ContentRemoved(contentType, contentID, count)
		})
	}

	return outcome, nil
}
