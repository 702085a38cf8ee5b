package monitor

import (
	"time"

	"github.com/charmbracelet/huh"

	"github.com/dominggo/ai-osp/internal/models"
)

// openFeedbackForm builds a fresh huh form. The pointers live on the model
// so the values survive until the form completes.
func (m *Model) openFeedbackForm() {
	rating := 3
	comments := ""
	m.feedbackRating = &rating
	m.feedbackText = &comments

	m.FeedbackForm = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("How useful was this plan?").
				Options(
					huh.NewOption("1 - not at all", 1),
					huh.NewOption("2", 2),
					huh.NewOption("3", 3),
					huh.NewOption("4", 4),
					huh.NewOption("5 - very", 5),
				).
				Value(m.feedbackRating),
			huh.NewText().
				Title("Comments").
				CharLimit(2000).
				Value(m.feedbackText),
		),
	)
	m.FeedbackOpen = true
}

func (m *Model) feedbackRecord() models.FeedbackRecord {
	rec := models.FeedbackRecord{
		Rating:    *m.feedbackRating,
		Comments:  *m.feedbackText,
		Timestamp: time.Now().UTC(),
	}
	if result := m.Session.Result(); result != nil {
		rec.LinkedResult = result.CompletedAt.Format(time.RFC3339)
	}
	return rec
}
